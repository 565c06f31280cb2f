package model

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

const (
	TypeNew     = "new"
	TypeControl = "control"
)

const (
	CreatedByWeb    = "web"
	CreatedByAdmin  = "admin"
	CreatedByDoctor = "doctor"
)

// Appointment is one booked visit. Date is the calendar day (YYYY-MM-DD) and
// Time the normalized HH:MM slot start; together with DoctorID they identify
// the slot the visit occupies while it is not cancelled.
type Appointment struct {
	ID         string
	FullName   string
	Phone      string
	NationalID string
	Type       string
	DoctorID   string
	DoctorName string
	Date       string
	Time       string
	Status     string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCancelled
}

func ValidType(s string) bool {
	return s == TypeNew || s == TypeControl
}
