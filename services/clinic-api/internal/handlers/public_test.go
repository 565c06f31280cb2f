package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/odemir/clinicbook/services/clinic-api/internal/outbox"
	"github.com/odemir/clinicbook/services/clinic-api/internal/storage"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func newBookingHandler(t *testing.T) (*PublicHandler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewPublicHandler(
		storage.NewDoctorRepository(mock),
		storage.NewAppointmentRepository(mock),
		storage.NewSettingsRepository(mock),
		outbox.NewRepository(mock),
		nil,
		logger,
	)
	// Fixed clock: Monday 2026-03-02, so the 2026-03-09 requests below sit
	// inside the public booking window.
	h.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	return h, mock
}

func doctorRows(t *testing.T) *pgxmock.Rows {
	t.Helper()
	return pgxmock.NewRows([]string{
		"id", "name", "specialty", "phone", "address", "working_hours",
		"appointment_duration_minutes", "is_active", "created_at",
	}).AddRow(
		"doc-1", "Dr. Deniz Kaya", "Dermatology", "+905551112233", "Clinic St 1",
		[]byte(`{"monday":[{"start":"09:00","end":"12:00"}]}`),
		30, true, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	)
}

func postBooking(t *testing.T, h *PublicHandler, in bookingInput) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal booking: %v", err)
	}
	rec := httptest.NewRecorder()
	h.Book(rec, httptest.NewRequest(http.MethodPost, "/api/v1/appointments/book", bytes.NewReader(body)))
	return rec
}

func TestBook_RejectsTimeOutsideOfferedSlots(t *testing.T) {
	h, mock := newBookingHandler(t)

	mock.ExpectQuery(`FROM doctors`).WithArgs("doc-1").WillReturnRows(doctorRows(t))

	in := validInput()
	in.Time = "09:15"
	rec := postBooking(t, h, in)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body %s", rec.Code, rec.Body)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBook_RejectsTakenSlotWithConflict(t *testing.T) {
	h, mock := newBookingHandler(t)

	mock.ExpectQuery(`FROM doctors`).WithArgs("doc-1").WillReturnRows(doctorRows(t))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT appointment_time`).
		WithArgs("doc-1", "2026-03-09").
		WillReturnRows(pgxmock.NewRows([]string{"appointment_time"}).AddRow("10:00"))
	mock.ExpectRollback()

	rec := postBooking(t, h, validInput())
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body %s", rec.Code, rec.Body)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBook_UnknownDoctorIsNotFound(t *testing.T) {
	h, mock := newBookingHandler(t)

	mock.ExpectQuery(`FROM doctors`).WithArgs("doc-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "specialty", "phone", "address", "working_hours",
			"appointment_duration_minutes", "is_active", "created_at",
		}))

	rec := postBooking(t, h, validInput())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404; body %s", rec.Code, rec.Body)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
