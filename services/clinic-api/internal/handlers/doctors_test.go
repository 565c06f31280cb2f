package handlers

import (
	"testing"

	"github.com/odemir/clinicbook/services/clinic-api/internal/availability"
)

func period(t *testing.T, start, end string) availability.WorkPeriod {
	t.Helper()
	s, err := availability.ParseTimeOfDay(start)
	if err != nil {
		t.Fatalf("bad start %q: %v", start, err)
	}
	e, err := availability.ParseTimeOfDay(end)
	if err != nil {
		t.Fatalf("bad end %q: %v", end, err)
	}
	return availability.WorkPeriod{Start: s, End: e}
}

func TestDoctorFromPayloadValidation(t *testing.T) {
	base := doctorPayload{
		Name:        "Dr. Deniz Kaya",
		Specialty:   "Dermatology",
		SlotMinutes: 20,
		WorkingHours: availability.WeeklySchedule{
			"monday": {period(t, "09:00", "12:00")},
		},
	}

	if _, err := doctorFromPayload(base); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	noName := base
	noName.Name = "  "
	if _, err := doctorFromPayload(noName); err == nil {
		t.Fatal("empty name accepted")
	}

	zeroSlot := base
	zeroSlot.SlotMinutes = 0
	if _, err := doctorFromPayload(zeroSlot); err == nil {
		t.Fatal("zero slot duration accepted")
	}

	badDay := base
	badDay.WorkingHours = availability.WeeklySchedule{
		"funday": {period(t, "09:00", "12:00")},
	}
	if _, err := doctorFromPayload(badDay); err == nil {
		t.Fatal("unknown weekday accepted")
	}

	inverted := base
	inverted.WorkingHours = availability.WeeklySchedule{
		"monday": {period(t, "14:00", "09:00")},
	}
	if _, err := doctorFromPayload(inverted); err == nil {
		t.Fatal("inverted period accepted")
	}
}
