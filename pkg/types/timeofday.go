package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MinutesPerDay is the TimeOfDay value reserved for the end of the day.
	MinutesPerDay = 24 * 60

	// EndOfDay is 24:00.
	EndOfDay TimeOfDay = MinutesPerDay
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight in
// [0, 1440]. 1440 only ever appears as the end of a slot.
type TimeOfDay int

// NewTimeOfDay returns the TimeOfDay for hour:minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// TimeOfDayOf returns the minute-of-day of t in its own location. Seconds are
// ignored.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// ParseTimeOfDay parses "HH:MM". When end is true, "00:00" is read as the end
// of the day (24:00) rather than midnight. "24:00" is always the end of the
// day.
func ParseTimeOfDay(s string, end bool) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if minute < 0 || minute > 59 || hour < 0 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("time of day out of range: %q", s)
	}
	tod := NewTimeOfDay(hour, minute)
	if end && tod == 0 {
		return EndOfDay, nil
	}
	return tod, nil
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats the time as HH:MM, with the end of the day as 24:00.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MonthDay is a recurring yearly calendar boundary such as June 1.
type MonthDay struct {
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// ParseMonthDay parses "MM-DD".
func ParseMonthDay(s string) (MonthDay, error) {
	mm, dd, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return MonthDay{}, fmt.Errorf("invalid month-day %q: expected MM-DD", s)
	}
	month, err := strconv.Atoi(mm)
	if err != nil {
		return MonthDay{}, fmt.Errorf("invalid month in %q: %w", s, err)
	}
	day, err := strconv.Atoi(dd)
	if err != nil {
		return MonthDay{}, fmt.Errorf("invalid day in %q: %w", s, err)
	}
	md := MonthDay{Month: time.Month(month), Day: day}
	if !md.Valid() {
		return MonthDay{}, fmt.Errorf("month-day out of range: %q", s)
	}
	return md, nil
}

// Valid reports whether the month-day exists in a leap year.
func (m MonthDay) Valid() bool {
	if m.Month < time.January || m.Month > time.December || m.Day < 1 {
		return false
	}
	// 2024 is a leap year so Feb 29 is accepted
	last := time.Date(2024, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return m.Day <= last
}

// Compare orders month-days within a year.
func (m MonthDay) Compare(o MonthDay) int {
	switch {
	case m.Month < o.Month:
		return -1
	case m.Month > o.Month:
		return 1
	case m.Day < o.Day:
		return -1
	case m.Day > o.Day:
		return 1
	}
	return 0
}

func (m MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(m.Month), m.Day)
}
