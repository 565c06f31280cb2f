package storage

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/odemir/clinicbook/libs/db"
	"github.com/odemir/clinicbook/services/clinic-api/internal/availability"
	"github.com/odemir/clinicbook/services/clinic-api/internal/model"
)

type DoctorRepository struct {
	pool db.Querier
}

func NewDoctorRepository(pool db.Querier) *DoctorRepository {
	return &DoctorRepository{pool: pool}
}

const doctorColumns = `
	id, name, specialty, phone, address, working_hours,
	appointment_duration_minutes, is_active, created_at
`

func (r *DoctorRepository) List(ctx context.Context, activeOnly bool) ([]model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors ORDER BY name`
	if activeOnly {
		query = `SELECT ` + doctorColumns + ` FROM doctors WHERE is_active ORDER BY name`
	}
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doctors []model.Doctor
	for rows.Next() {
		doc, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, doc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return doctors, nil
}

func (r *DoctorRepository) Get(ctx context.Context, id string) (model.Doctor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id)
	return scanDoctor(row)
}

func (r *DoctorRepository) Create(ctx context.Context, doc *model.Doctor) (string, error) {
	hours, err := json.Marshal(doc.WorkingHours)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO doctors
			(id, name, specialty, phone, address, working_hours, appointment_duration_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, doc.Name, doc.Specialty, doc.Phone, doc.Address, hours, doc.SlotMinutes, doc.IsActive)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *DoctorRepository) Update(ctx context.Context, doc *model.Doctor) error {
	hours, err := json.Marshal(doc.WorkingHours)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE doctors
		SET name = $2,
			specialty = $3,
			phone = $4,
			address = $5,
			working_hours = $6,
			appointment_duration_minutes = $7
		WHERE id = $1
	`, doc.ID, doc.Name, doc.Specialty, doc.Phone, doc.Address, hours, doc.SlotMinutes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetActive toggles visibility in the public booking flow. Deactivation keeps
// the doctor's appointment history intact.
func (r *DoctorRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE doctors SET is_active = $2 WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanDoctor(row pgx.Row) (model.Doctor, error) {
	var doc model.Doctor
	var hours []byte
	err := row.Scan(
		&doc.ID,
		&doc.Name,
		&doc.Specialty,
		&doc.Phone,
		&doc.Address,
		&hours,
		&doc.SlotMinutes,
		&doc.IsActive,
		&doc.CreatedAt,
	)
	if err != nil {
		return model.Doctor{}, err
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &doc.WorkingHours); err != nil {
			return model.Doctor{}, err
		}
	}
	if doc.WorkingHours == nil {
		doc.WorkingHours = availability.WeeklySchedule{}
	}
	return doc, nil
}
