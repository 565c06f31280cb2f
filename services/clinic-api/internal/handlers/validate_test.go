package handlers

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var anchor = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

func validInput() bookingInput {
	return bookingInput{
		FullName:   "Ayse Yilmaz",
		Phone:      "5321234567",
		NationalID: "12345678901",
		Type:       "new",
		DoctorID:   "doc-1",
		Date:       "2026-03-09",
		Time:       "10:00",
	}
}

func TestValidateBooking_Normalizes(t *testing.T) {
	in := validInput()
	in.Phone = "0532 123 45 67"
	in.Time = "10:00:00"

	out, err := validateBooking(in, anchor, 30)
	if err != nil {
		t.Fatalf("validateBooking failed: %v", err)
	}
	if out.Phone != "+905321234567" {
		t.Fatalf("phone not normalized: %q", out.Phone)
	}
	if out.Time != "10:00" {
		t.Fatalf("time not normalized: %q", out.Time)
	}
}

func TestValidateBooking_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*bookingInput)
	}{
		{"missing name", func(in *bookingInput) { in.FullName = "  " }},
		{"short phone", func(in *bookingInput) { in.Phone = "532123" }},
		{"long phone", func(in *bookingInput) { in.Phone = "53212345678901" }},
		{"short national id", func(in *bookingInput) { in.NationalID = "123" }},
		{"bad type", func(in *bookingInput) { in.Type = "followup" }},
		{"missing doctor", func(in *bookingInput) { in.DoctorID = "" }},
		{"bad date", func(in *bookingInput) { in.Date = "03/09/2026" }},
		{"past date", func(in *bookingInput) { in.Date = "2026-03-01" }},
		{"too far ahead", func(in *bookingInput) { in.Date = "2026-05-01" }},
		{"bad time", func(in *bookingInput) { in.Time = "ten" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			if _, err := validateBooking(in, anchor, 30); !errors.Is(err, errValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestValidateBooking_DateWindowEdges(t *testing.T) {
	in := validInput()
	in.Date = anchor.Format("2006-01-02")
	if _, err := validateBooking(in, anchor, 30); err != nil {
		t.Fatalf("same-day booking should be allowed: %v", err)
	}

	in.Date = anchor.AddDate(0, 0, 30).Format("2006-01-02")
	if _, err := validateBooking(in, anchor, 30); err != nil {
		t.Fatalf("booking exactly at the window edge should be allowed: %v", err)
	}

	// No cap for staff entry.
	in.Date = anchor.AddDate(0, 6, 0).Format("2006-01-02")
	if _, err := validateBooking(in, anchor, 0); err != nil {
		t.Fatalf("uncapped window should allow far dates: %v", err)
	}
}

func TestValidateBooking_DayBoundaryUsesLocalCalendarDay(t *testing.T) {
	// 01:00 local on March 2nd in UTC+3 is still March 1st in UTC. The
	// window must follow the clinic's calendar day, not the UTC one.
	local := time.Date(2026, 3, 2, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))

	in := validInput()
	in.Date = "2026-03-01"
	if _, err := validateBooking(in, local, 30); !errors.Is(err, errValidation) {
		t.Fatalf("previous local day should be rejected, got %v", err)
	}

	in.Date = "2026-03-02"
	if _, err := validateBooking(in, local, 30); err != nil {
		t.Fatalf("current local day should be allowed: %v", err)
	}

	in.Date = "2026-04-01"
	if _, err := validateBooking(in, local, 30); err != nil {
		t.Fatalf("window edge from the local day should be allowed: %v", err)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"5321234567":      "+905321234567",
		"05321234567":     "+905321234567",
		"905321234567":    "+905321234567",
		"+90 532 123 4567": "+905321234567",
		"532 123 45 67":   "+905321234567",
	}
	for in, want := range cases {
		got, err := normalizePhone(in)
		if err != nil {
			t.Fatalf("normalizePhone(%q) failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("normalizePhone(%q) = %q, want %q", in, got, want)
		}
	}

	for _, bad := range []string{"", "123", strings.Repeat("5", 15)} {
		if _, err := normalizePhone(bad); err == nil {
			t.Fatalf("normalizePhone(%q) should fail", bad)
		}
	}
}
