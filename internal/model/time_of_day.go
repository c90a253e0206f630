package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedTime is returned when a session start time does not follow
// the 12-hour "h:mm AM/PM" layout.
var ErrMalformedTime = errors.New("malformed session time")

var timeOfDayPattern = regexp.MustCompile(`^(0?[1-9]|1[0-2]):([0-5][0-9])\s*([AaPp][Mm])$`)

// TimeOfDay is the wall-clock start of a session.  It is stored as the
// 12-hour text the gym publishes ("9:00 AM") and validated every time it
// crosses the storage or JSON boundary, so code holding a TimeOfDay never
// has to re-parse free text.
//
// Fields:
//
//	Hour   – 0..23 (24-hour clock).
//	Minute – 0..59.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "9:00 AM", "09:30 pm" or "12:15 AM".  12 AM maps
// to hour 0 and 12 PM stays 12.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	pm := strings.EqualFold(m[3], "PM")
	switch {
	case hour == 12 && !pm:
		hour = 0
	case hour != 12 && pm:
		hour += 12
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// MustTimeOfDay is ParseTimeOfDay for literals; it panics on bad input.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String renders the canonical 12-hour form without a leading zero.
func (t TimeOfDay) String() string {
	meridiem := "AM"
	h := t.Hour
	if h >= 12 {
		meridiem = "PM"
	}
	h = h % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, t.Minute, meridiem)
}

// Minutes is the number of minutes after midnight; used for ordering.
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

// On combines the time of day with the calendar day of date in loc.  Only
// the year, month and day of date are used.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, loc)
}

// Value implements driver.Valuer.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner.  A stored value that cannot be parsed is
// reported as ErrMalformedTime instead of being silently zeroed.
func (t *TimeOfDay) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return fmt.Errorf("%w: NULL", ErrMalformedTime)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrMalformedTime, src)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON encodes the time as its 12-hour string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the 12-hour string form.
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedTime, string(b))
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
