package availability

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadTime = errors.New("malformed time of day")

// TimeOfDay is a clock time with minute precision. Seconds present in a source
// representation are discarded: two times are equal iff hour and minute match,
// so "9:00", "09:00" and "09:00:00" all name the same slot.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts HH:MM and HH:MM:SS, with or without a leading zero.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrBadTime, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrBadTime, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrBadTime, s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// String renders the canonical zero-padded HH:MM form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) Before(other TimeOfDay) bool {
	if t.Hour != other.Hour {
		return t.Hour < other.Hour
	}
	return t.Minute < other.Minute
}

// AddMinutes steps forward without wrapping at midnight. A stepped value past
// 23:59 only ever terminates a generation loop; it is never emitted.
func (t TimeOfDay) AddMinutes(mins int) TimeOfDay {
	total := t.Hour*60 + t.Minute + mins
	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
