package availability

import (
	"encoding/json"
	"testing"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "09:00", want: "09:00"},
		{in: "9:00", want: "09:00"},
		{in: "09:00:00", want: "09:00"},
		{in: "09:00:59", want: "09:00"},
		{in: " 14:30 ", want: "14:30"},
		{in: "23:59", want: "23:59"},
		{in: "0:05", want: "00:05"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "12", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseTimeOfDay(%q) should fail, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q) failed: %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Fatalf("ParseTimeOfDay(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestTimeOfDayArithmetic(t *testing.T) {
	nine, _ := ParseTimeOfDay("09:45")
	stepped := nine.AddMinutes(30)
	if stepped.String() != "10:15" {
		t.Fatalf("expected 10:15, got %s", stepped)
	}

	late, _ := ParseTimeOfDay("23:45")
	past := late.AddMinutes(30)
	if !late.Before(past) {
		t.Fatal("stepping past midnight must still compare greater")
	}

	a, _ := ParseTimeOfDay("09:00")
	b, _ := ParseTimeOfDay("09:01")
	if !a.Before(b) || b.Before(a) || a.Before(a) {
		t.Fatal("Before ordering broken")
	}
}

func TestWeeklyScheduleJSON(t *testing.T) {
	// Shape of the doctors.working_hours column.
	raw := `{"monday":[{"start":"09:00","end":"12:00"},{"start":"13:30","end":"17:00"}],"sunday":[]}`

	var schedule WeeklySchedule
	if err := json.Unmarshal([]byte(raw), &schedule); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	periods := schedule["monday"]
	if len(periods) != 2 {
		t.Fatalf("expected 2 monday periods, got %d", len(periods))
	}
	if periods[1].Start.String() != "13:30" || periods[1].End.String() != "17:00" {
		t.Fatalf("unexpected second period: %+v", periods[1])
	}

	out, err := json.Marshal(schedule)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var reread WeeklySchedule
	if err := json.Unmarshal(out, &reread); err != nil {
		t.Fatalf("re-unmarshal failed: %v", err)
	}
	if len(reread["monday"]) != 2 {
		t.Fatalf("round trip lost periods: %s", out)
	}
}
