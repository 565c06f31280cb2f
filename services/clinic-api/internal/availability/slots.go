package availability

import (
	"errors"
	"time"
)

// ErrSlotTaken is returned by CheckBookable when the requested time collides
// with an existing non-cancelled appointment.
var ErrSlotTaken = errors.New("time slot already booked")

// WorkPeriod is one contiguous working interval on a weekday, e.g. 09:00-17:00.
type WorkPeriod struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// WeeklySchedule maps lowercase weekday names ("sunday".."saturday") to the
// doctor's working periods for that day. A missing or empty day means the
// doctor is off. The JSON form matches the doctors.working_hours column.
type WeeklySchedule map[string][]WorkPeriod

var dayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// PeriodsOn returns the stored periods for the date's weekday, in insertion
// order. Periods are deliberately not sorted: if a schedule lists an evening
// period before a morning one, slot output preserves that order.
func (s WeeklySchedule) PeriodsOn(date time.Time) []WorkPeriod {
	if s == nil {
		return nil
	}
	return s[dayNames[int(date.Weekday())]]
}

// BookedSet holds the normalized HH:MM times already consumed for one
// doctor and date. Built per availability query, never persisted.
type BookedSet map[string]struct{}

// NewBookedSet normalizes raw appointment times into the set. Entries that do
// not parse as a time of day are dropped rather than failing the whole query.
func NewBookedSet(times []string) BookedSet {
	set := make(BookedSet, len(times))
	for _, raw := range times {
		t, err := ParseTimeOfDay(raw)
		if err != nil {
			continue
		}
		set[t.String()] = struct{}{}
	}
	return set
}

func (b BookedSet) Contains(t TimeOfDay) bool {
	_, ok := b[t.String()]
	return ok
}

// Slot is one offerable appointment time, tagged as free or booked.
type Slot struct {
	Time   TimeOfDay `json:"time"`
	Booked bool      `json:"booked"`
}

// GenerateSlots tiles the schedule's working periods for the date's weekday
// into slots of durationMinutes and classifies each against booked.
//
// The loop condition tests the slot start, not its end, so the final slot of a
// period may run past the period end when the remaining span is shorter than
// one duration. An empty weekday yields an empty result; that is the normal
// "doctor not working that day" outcome, not an error.
//
// Pure: same inputs always produce the same output, and neither schedule nor
// booked is mutated.
func GenerateSlots(schedule WeeklySchedule, date time.Time, durationMinutes int, booked BookedSet) []Slot {
	if durationMinutes <= 0 {
		return nil
	}

	var slots []Slot
	for _, period := range schedule.PeriodsOn(date) {
		for cur := period.Start; cur.Before(period.End); cur = cur.AddMinutes(durationMinutes) {
			slots = append(slots, Slot{Time: cur, Booked: booked.Contains(cur)})
		}
	}
	return slots
}

// CheckBookable is the submission-time guard: callers re-fetch booked times
// immediately before persisting and reject when the chosen slot was taken in
// the meantime. The check-then-act gap that remains is closed by the partial
// unique index on (doctor_id, appointment_date, appointment_time).
func CheckBookable(t TimeOfDay, booked BookedSet) error {
	if booked.Contains(t) {
		return ErrSlotTaken
	}
	return nil
}
