package availability

import (
	"reflect"
	"testing"
	"time"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func mustTime(t *testing.T, s string) TimeOfDay {
	t.Helper()
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q) failed: %v", s, err)
	}
	return parsed
}

func period(t *testing.T, start, end string) WorkPeriod {
	t.Helper()
	return WorkPeriod{Start: mustTime(t, start), End: mustTime(t, end)}
}

func TestGenerateSlots_Basic(t *testing.T) {
	schedule := WeeklySchedule{
		"monday": {period(t, "09:00", "12:00")},
	}
	booked := NewBookedSet([]string{"10:00"})

	slots := GenerateSlots(schedule, monday, 30, booked)

	want := []Slot{
		{Time: mustTime(t, "09:00")},
		{Time: mustTime(t, "09:30")},
		{Time: mustTime(t, "10:00"), Booked: true},
		{Time: mustTime(t, "10:30")},
		{Time: mustTime(t, "11:00")},
		{Time: mustTime(t, "11:30")},
	}
	if !reflect.DeepEqual(slots, want) {
		t.Fatalf("slots mismatch:\ngot  %v\nwant %v", slots, want)
	}
}

func TestGenerateSlots_EmptyDay(t *testing.T) {
	sunday := monday.AddDate(0, 0, -1)
	schedule := WeeklySchedule{
		"sunday": {},
		"monday": {period(t, "09:00", "17:00")},
	}

	if slots := GenerateSlots(schedule, sunday, 30, nil); len(slots) != 0 {
		t.Fatalf("expected no slots on an empty day, got %v", slots)
	}
	if slots := GenerateSlots(nil, monday, 30, nil); len(slots) != 0 {
		t.Fatalf("expected no slots for a nil schedule, got %v", slots)
	}
}

func TestGenerateSlots_FinalSlotMayOverrunPeriodEnd(t *testing.T) {
	// 09:00-09:50 with 30-minute slots: 09:30 starts before the period end,
	// so it is emitted even though it runs until 10:00.
	tuesday := monday.AddDate(0, 0, 1)
	schedule := WeeklySchedule{
		"tuesday": {period(t, "09:00", "09:50")},
	}

	slots := GenerateSlots(schedule, tuesday, 30, nil)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d: %v", len(slots), slots)
	}
	if slots[0].Time.String() != "09:00" || slots[1].Time.String() != "09:30" {
		t.Fatalf("unexpected slot times: %v", slots)
	}
}

func TestGenerateSlots_StrideAndOrdering(t *testing.T) {
	cases := []struct {
		name     string
		start    string
		end      string
		duration int
		want     int
	}{
		{"exact multiple", "09:00", "12:00", 30, 6},
		{"remainder rounds up", "09:00", "09:50", 30, 2},
		{"single slot", "09:00", "09:01", 60, 1},
		{"zero-length period", "09:00", "09:00", 30, 0},
		{"inverted period", "12:00", "09:00", 30, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			schedule := WeeklySchedule{"monday": {period(t, tc.start, tc.end)}}
			slots := GenerateSlots(schedule, monday, tc.duration, nil)
			if len(slots) != tc.want {
				t.Fatalf("expected %d slots, got %d: %v", tc.want, len(slots), slots)
			}
			if len(slots) == 0 {
				return
			}
			if slots[0].Time.String() != mustTime(t, tc.start).String() {
				t.Fatalf("first slot should equal period start, got %s", slots[0].Time)
			}
			for i := 1; i < len(slots); i++ {
				prev := slots[i-1].Time.AddMinutes(tc.duration)
				if prev != slots[i].Time {
					t.Fatalf("slot %d not %d minutes after slot %d: %v", i, tc.duration, i-1, slots)
				}
			}
		})
	}
}

func TestGenerateSlots_MultiplePeriodsPreserveStoredOrder(t *testing.T) {
	// Afternoon listed before morning stays afternoon-first in the output.
	schedule := WeeklySchedule{
		"monday": {
			period(t, "14:00", "15:00"),
			period(t, "09:00", "10:00"),
		},
	}

	slots := GenerateSlots(schedule, monday, 30, nil)
	var got []string
	for _, s := range slots {
		got = append(got, s.Time.String())
	}
	want := []string{"14:00", "14:30", "09:00", "09:30"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected stored period order preserved, got %v", got)
	}
}

func TestGenerateSlots_BookedMatchingIsTolerant(t *testing.T) {
	schedule := WeeklySchedule{
		"monday": {period(t, "09:00", "11:00")},
	}
	// Seconds, missing padding and unparseable junk in the raw booked times.
	booked := NewBookedSet([]string{"09:00:00", "9:30", "garbage", ""})

	slots := GenerateSlots(schedule, monday, 30, booked)
	for _, s := range slots {
		wantBooked := s.Time.String() == "09:00" || s.Time.String() == "09:30"
		if s.Booked != wantBooked {
			t.Fatalf("slot %s booked=%v, want %v", s.Time, s.Booked, wantBooked)
		}
	}
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	schedule := WeeklySchedule{
		"monday": {period(t, "08:30", "12:00"), period(t, "13:00", "17:00")},
	}
	booked := NewBookedSet([]string{"08:30", "13:45"})

	first := GenerateSlots(schedule, monday, 15, booked)
	second := GenerateSlots(schedule, monday, 15, booked)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs must produce identical output")
	}
	if len(booked) != 2 {
		t.Fatalf("booked set must not be mutated, got %v", booked)
	}
}

func TestGenerateSlots_NonPositiveDuration(t *testing.T) {
	schedule := WeeklySchedule{"monday": {period(t, "09:00", "17:00")}}
	if slots := GenerateSlots(schedule, monday, 0, nil); slots != nil {
		t.Fatalf("expected nil for zero duration, got %v", slots)
	}
	if slots := GenerateSlots(schedule, monday, -30, nil); slots != nil {
		t.Fatalf("expected nil for negative duration, got %v", slots)
	}
}

func TestCheckBookable(t *testing.T) {
	booked := NewBookedSet([]string{"10:00:00"})
	if err := CheckBookable(mustTime(t, "10:00"), booked); err != ErrSlotTaken {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if err := CheckBookable(mustTime(t, "10:30"), booked); err != nil {
		t.Fatalf("expected free slot, got %v", err)
	}
}
