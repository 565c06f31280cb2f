package storage

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/odemir/clinicbook/services/clinic-api/internal/model"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

// The transition statement must carry the CASE guard that freezes updated_at
// when the row already has the target status, so re-applying a status (a
// double-clicked cancel) is a no-op success.
const transitionSQL = `(?s)UPDATE appointments.*SET status = \$2.*CASE WHEN status = \$2 THEN updated_at ELSE now\(\) END.*RETURNING status, updated_at`

func TestTransitionStatus_RepeatedTargetIsNoOpSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewAppointmentRepository(mock)
	frozen := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(transitionSQL).
		WithArgs("appt-1", model.StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"status", "updated_at"}).AddRow(model.StatusCancelled, frozen))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(transitionSQL).
		WithArgs("appt-1", model.StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"status", "updated_at"}).AddRow(model.StatusCancelled, frozen))
	mock.ExpectCommit()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		tx, err := repo.Begin(ctx)
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		status, updatedAt, err := repo.TransitionStatus(ctx, tx, "appt-1", model.StatusCancelled)
		if err != nil {
			t.Fatalf("transition %d failed: %v", i, err)
		}
		if status != model.StatusCancelled {
			t.Fatalf("transition %d: status = %q, want cancelled", i, status)
		}
		if !updatedAt.Equal(frozen) {
			t.Fatalf("transition %d: updated_at moved to %v", i, updatedAt)
		}
		if err := tx.Commit(ctx); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTransitionStatus_MissingAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewAppointmentRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(transitionSQL).
		WithArgs("missing", model.StatusConfirmed).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := repo.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, _, err = repo.TransitionStatus(ctx, tx, "missing", model.StatusConfirmed)
	if !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreate_UniqueViolationIsConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	repo := NewAppointmentRepository(mock)
	appt := &model.Appointment{
		FullName:   "Ayse Yilmaz",
		Phone:      "+905321234567",
		NationalID: "12345678901",
		Type:       model.TypeNew,
		DoctorID:   "doc-1",
		Date:       "2026-03-09",
		Time:       "10:00",
		Status:     model.StatusPending,
		CreatedBy:  model.CreatedByWeb,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO appointments`).
		WithArgs(appt.FullName, appt.Phone, appt.NationalID, appt.Type, appt.DoctorID,
			appt.Date, appt.Time, appt.Status, appt.CreatedBy).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_slot_unique"})
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := repo.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, err = repo.Create(ctx, tx, appt)
	if !IsConflict(err) {
		t.Fatalf("expected slot conflict, got %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
