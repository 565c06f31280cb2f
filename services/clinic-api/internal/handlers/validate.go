package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odemir/clinicbook/services/clinic-api/internal/availability"
	"github.com/odemir/clinicbook/services/clinic-api/internal/model"
)

// errValidation marks local input errors that never reach the database.
var errValidation = errors.New("validation failed")

const (
	phoneDigits      = 10
	nationalIDDigits = 11
	phonePrefix      = "+90"
)

// bookingInput is the shared shape of the public form and the staff manual
// entry dialog.
type bookingInput struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	NationalID string `json:"national_id"`
	Type       string `json:"appointment_type"`
	DoctorID   string `json:"doctor_id"`
	Date       string `json:"appointment_date"`
	Time       string `json:"appointment_time"`
}

// validateBooking normalizes and checks a booking request. today anchors the
// allowed date window; maxDaysAhead caps how far out the date may be.
// The returned input carries the canonical phone (+90 prefixed), national id
// and HH:MM time.
func validateBooking(in bookingInput, today time.Time, maxDaysAhead int) (bookingInput, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	if in.FullName == "" {
		return in, fmt.Errorf("%w: full_name is required", errValidation)
	}

	phone, err := normalizePhone(in.Phone)
	if err != nil {
		return in, err
	}
	in.Phone = phone

	nid := digitsOnly(in.NationalID)
	if len(nid) != nationalIDDigits {
		return in, fmt.Errorf("%w: national_id must be %d digits", errValidation, nationalIDDigits)
	}
	in.NationalID = nid

	if !model.ValidType(in.Type) {
		return in, fmt.Errorf("%w: appointment_type must be %q or %q", errValidation, model.TypeNew, model.TypeControl)
	}
	if strings.TrimSpace(in.DoctorID) == "" {
		return in, fmt.Errorf("%w: doctor_id is required", errValidation)
	}
	in.DoctorID = strings.TrimSpace(in.DoctorID)

	date, err := time.Parse("2006-01-02", strings.TrimSpace(in.Date))
	if err != nil {
		return in, fmt.Errorf("%w: appointment_date must be YYYY-MM-DD", errValidation)
	}
	in.Date = date.Format("2006-01-02")

	// Day boundary in the clinic's own zone; parsed dates sit at UTC
	// midnight, so anchoring the local calendar day in UTC keeps the
	// comparison a pure date comparison.
	y, m, d := today.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if date.Before(dayStart) {
		return in, fmt.Errorf("%w: appointment_date is in the past", errValidation)
	}
	if maxDaysAhead > 0 && date.After(dayStart.AddDate(0, 0, maxDaysAhead)) {
		return in, fmt.Errorf("%w: appointment_date is more than %d days ahead", errValidation, maxDaysAhead)
	}

	t, err := availability.ParseTimeOfDay(in.Time)
	if err != nil {
		return in, fmt.Errorf("%w: appointment_time must be HH:MM", errValidation)
	}
	in.Time = t.String()

	return in, nil
}

// normalizePhone reduces the input to the canonical +90 form. Accepted
// spellings: the bare 10-digit number, a leading 0, or a leading 90 / +90.
func normalizePhone(raw string) (string, error) {
	digits := digitsOnly(raw)
	switch {
	case len(digits) == phoneDigits:
	case len(digits) == phoneDigits+1 && digits[0] == '0':
		digits = digits[1:]
	case len(digits) == phoneDigits+2 && strings.HasPrefix(digits, "90"):
		digits = digits[2:]
	default:
		return "", fmt.Errorf("%w: phone must be %d digits", errValidation, phoneDigits)
	}
	return phonePrefix + digits, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
