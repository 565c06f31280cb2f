package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/odemir/clinicbook/libs/db"
	"github.com/odemir/clinicbook/services/clinic-api/internal/model"
)

const dateLayout = "2006-01-02"

type AppointmentRepository struct {
	pool db.Querier
}

func NewAppointmentRepository(pool db.Querier) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create inserts inside the caller's transaction so the booked-time re-check
// and the insert commit together. The partial unique index on
// (doctor_id, appointment_date, appointment_time) rejects double bookings that
// slip past the re-check; detect that with IsConflict.
func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(full_name, phone, national_id, appointment_type, doctor_id, appointment_date, appointment_time, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, appt.FullName, appt.Phone, appt.NationalID, appt.Type, appt.DoctorID,
		appt.Date, appt.Time, appt.Status, appt.CreatedBy).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// BookedTimes returns the slot times consumed for a doctor and date.
// Cancelled appointments never occupy a slot.
func (r *AppointmentRepository) BookedTimes(ctx context.Context, doctorID, date string) ([]string, error) {
	rows, err := r.pool.Query(ctx, bookedTimesSQL, doctorID, date)
	if err != nil {
		return nil, err
	}
	return scanTimes(rows)
}

// BookedTimesTx is the submission-time variant: called inside the booking
// transaction so the guard sees rows committed after the picker rendered.
func (r *AppointmentRepository) BookedTimesTx(ctx context.Context, tx pgx.Tx, doctorID, date string) ([]string, error) {
	rows, err := tx.Query(ctx, bookedTimesSQL, doctorID, date)
	if err != nil {
		return nil, err
	}
	return scanTimes(rows)
}

const bookedTimesSQL = `
	SELECT appointment_time
	FROM appointments
	WHERE doctor_id = $1
		AND appointment_date = $2
		AND status <> 'cancelled'
	ORDER BY appointment_time
`

func scanTimes(rows pgx.Rows) ([]string, error) {
	defer rows.Close()
	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return times, nil
}

type ListFilter struct {
	DoctorID string
	Date     string
	FromDate string
	ToDate   string
	Status   string
	Search   string
	Limit    int
}

// List returns appointments matching the filter, ordered by date then time.
func (r *AppointmentRepository) List(ctx context.Context, f ListFilter) ([]model.Appointment, error) {
	where := []string{"1=1"}
	var args []any

	add := func(cond string, val any) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.DoctorID != "" {
		add("a.doctor_id = $%d", f.DoctorID)
	}
	if f.Date != "" {
		add("a.appointment_date = $%d", f.Date)
	}
	if f.FromDate != "" {
		add("a.appointment_date >= $%d", f.FromDate)
	}
	if f.ToDate != "" {
		add("a.appointment_date <= $%d", f.ToDate)
	}
	if f.Status != "" {
		add("a.status = $%d", f.Status)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(a.full_name ILIKE $%d OR a.national_id LIKE $%d OR a.phone LIKE $%d)", n, n, n))
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT a.id, a.full_name, a.phone, a.national_id, a.appointment_type,
			a.doctor_id, d.name, a.appointment_date, a.appointment_time,
			a.status, a.created_by, a.created_at, a.updated_at
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		WHERE %s
		ORDER BY a.appointment_date, a.appointment_time
		LIMIT $%d
	`, strings.Join(where, " AND "), len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		var date time.Time
		if err := rows.Scan(
			&appt.ID,
			&appt.FullName,
			&appt.Phone,
			&appt.NationalID,
			&appt.Type,
			&appt.DoctorID,
			&appt.DoctorName,
			&date,
			&appt.Time,
			&appt.Status,
			&appt.CreatedBy,
			&appt.CreatedAt,
			&appt.UpdatedAt,
		); err != nil {
			return nil, err
		}
		appt.Date = date.Format(dateLayout)
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	var appt model.Appointment
	var date time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT a.id, a.full_name, a.phone, a.national_id, a.appointment_type,
			a.doctor_id, d.name, a.appointment_date, a.appointment_time,
			a.status, a.created_by, a.created_at, a.updated_at
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.id = $1
	`, id).Scan(
		&appt.ID,
		&appt.FullName,
		&appt.Phone,
		&appt.NationalID,
		&appt.Type,
		&appt.DoctorID,
		&appt.DoctorName,
		&date,
		&appt.Time,
		&appt.Status,
		&appt.CreatedBy,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Date = date.Format(dateLayout)
	return appt, nil
}

// TransitionStatus applies the target status as one atomic statement and
// returns the resulting status and update time. Setting the current status
// again (re-cancelling a cancelled appointment) is a no-op success. Runs in
// the caller's transaction so the outbox event commits with the change.
func (r *AppointmentRepository) TransitionStatus(ctx context.Context, tx pgx.Tx, id, target string) (string, time.Time, error) {
	var status string
	var updatedAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
			updated_at = CASE WHEN status = $2 THEN updated_at ELSE now() END
		WHERE id = $1
		RETURNING status, updated_at
	`, id, target).Scan(&status, &updatedAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return status, updatedAt, nil
}

type Stats struct {
	Total     int
	Pending   int
	Confirmed int
	Today     int
}

// Stats aggregates the dashboard counters in a single pass.
func (r *AppointmentRepository) Stats(ctx context.Context, today string) (Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'confirmed'),
			count(*) FILTER (WHERE appointment_date = $1)
		FROM appointments
	`, today).Scan(&s.Total, &s.Pending, &s.Confirmed, &s.Today)
	return s, err
}

type PatientSummary struct {
	NationalID string
	FullName   string
	Phone      string
	Visits     int
	LastVisit  string
}

// ListPatients projects the patient directory out of appointment history,
// one row per national id with the most recent name and phone.
func (r *AppointmentRepository) ListPatients(ctx context.Context, limit int) ([]PatientSummary, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (national_id)
			national_id, full_name, phone,
			count(*) OVER (PARTITION BY national_id),
			max(appointment_date) OVER (PARTITION BY national_id)
		FROM appointments
		ORDER BY national_id, created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PatientSummary
	for rows.Next() {
		var p PatientSummary
		var last time.Time
		if err := rows.Scan(&p.NationalID, &p.FullName, &p.Phone, &p.Visits, &last); err != nil {
			return nil, err
		}
		p.LastVisit = last.Format(dateLayout)
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// IsConflict reports whether err is the unique-slot violation raised by the
// partial index on non-cancelled (doctor_id, appointment_date, appointment_time).
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
