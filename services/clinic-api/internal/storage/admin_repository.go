package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/odemir/clinicbook/libs/db"
)

const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
)

// AdminUser is a staff account. Doctor-scoped accounts carry the doctor they
// belong to; admin accounts see everything.
type AdminUser struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	DoctorID     *string
	IsActive     bool
	CreatedAt    time.Time
}

type AdminUserRepository struct {
	pool db.Querier
}

func NewAdminUserRepository(pool db.Querier) *AdminUserRepository {
	return &AdminUserRepository{pool: pool}
}

// GetActiveByUsername powers login; disabled accounts are invisible to it.
func (r *AdminUserRepository) GetActiveByUsername(ctx context.Context, username string) (AdminUser, error) {
	var u AdminUser
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role, doctor_id, is_active, created_at
		FROM admin_users
		WHERE username = $1 AND is_active
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.DoctorID, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return AdminUser{}, err
	}
	return u, nil
}

func (r *AdminUserRepository) GetByID(ctx context.Context, id string) (AdminUser, error) {
	var u AdminUser
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, role, doctor_id, is_active, created_at
		FROM admin_users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.DoctorID, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return AdminUser{}, err
	}
	return u, nil
}

func (r *AdminUserRepository) List(ctx context.Context) ([]AdminUser, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, username, password_hash, role, doctor_id, is_active, created_at
		FROM admin_users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []AdminUser
	for rows.Next() {
		var u AdminUser
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.DoctorID, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return users, nil
}

// SetActive enables or disables a staff account. Disabled accounts keep
// their row; GetActiveByUsername simply stops seeing them.
func (r *AdminUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE admin_users SET is_active = $2 WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AdminUserRepository) Create(ctx context.Context, username, passwordHash, role string, doctorID *string) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admin_users (id, username, password_hash, role, doctor_id, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
	`, id, username, passwordHash, role, doctorID)
	if err != nil {
		return "", err
	}
	return id, nil
}
