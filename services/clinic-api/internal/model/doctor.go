package model

import (
	"time"

	"github.com/odemir/clinicbook/services/clinic-api/internal/availability"
)

// Doctor owns the recurring weekly schedule and the slot duration used to
// tile it. Inactive doctors are hidden from the public booking flow but keep
// their history.
type Doctor struct {
	ID           string
	Name         string
	Specialty    string
	Phone        string
	Address      string
	WorkingHours availability.WeeklySchedule
	SlotMinutes  int
	IsActive     bool
	CreatedAt    time.Time
}
