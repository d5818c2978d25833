package tariff

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/raterudder/tou/pkg/calendar"
)

// Day type labels used by the default strategy.
const (
	DayTypeWeekday = "weekday"
	DayTypeWeekend = "weekend"
)

// DayTypeStrategy maps a date to a day type label.
type DayTypeStrategy interface {
	DayTypeOf(d civil.Date) (string, error)
}

// DayTypeLabels is the label set a plan uses. Holiday and Saturday are
// optional: an empty Holiday folds holidays into Weekend, and an empty
// Saturday treats non-holiday Saturdays as Weekday.
type DayTypeLabels struct {
	Weekday  string
	Weekend  string
	Holiday  string
	Saturday string
}

// DefaultDayTypeLabels is the two bucket weekday/weekend set.
var DefaultDayTypeLabels = DayTypeLabels{
	Weekday: DayTypeWeekday,
	Weekend: DayTypeWeekend,
}

// Labels returns the distinct labels in use.
func (l DayTypeLabels) Labels() []string {
	out := []string{l.Weekday, l.Weekend}
	if l.Holiday != "" && l.Holiday != l.Weekend {
		out = append(out, l.Holiday)
	}
	if l.Saturday != "" && l.Saturday != l.Weekday {
		out = append(out, l.Saturday)
	}
	return out
}

// WeekdayDayType classifies dates using a holiday calendar.
type WeekdayDayType struct {
	calendar calendar.Calendar
	labels   DayTypeLabels
}

var _ DayTypeStrategy = (*WeekdayDayType)(nil)

// NewWeekdayDayType returns a strategy over cal with the default labels.
func NewWeekdayDayType(cal calendar.Calendar) *WeekdayDayType {
	return NewWeekdayDayTypeWithLabels(cal, DefaultDayTypeLabels)
}

// NewWeekdayDayTypeWithLabels returns a strategy over cal using labels. Empty
// Weekday or Weekend labels fall back to the defaults.
func NewWeekdayDayTypeWithLabels(cal calendar.Calendar, labels DayTypeLabels) *WeekdayDayType {
	if labels.Weekday == "" {
		labels.Weekday = DayTypeWeekday
	}
	if labels.Weekend == "" {
		labels.Weekend = DayTypeWeekend
	}
	return &WeekdayDayType{calendar: cal, labels: labels}
}

// Labels returns the label set of the strategy.
func (s *WeekdayDayType) Labels() DayTypeLabels {
	return s.labels
}

// DayTypeOf implements DayTypeStrategy.
func (s *WeekdayDayType) DayTypeOf(d civil.Date) (string, error) {
	holiday, err := s.calendar.IsHoliday(d)
	if err != nil {
		return "", err
	}
	if holiday {
		if s.labels.Holiday != "" {
			return s.labels.Holiday, nil
		}
		return s.labels.Weekend, nil
	}
	if s.labels.Saturday != "" && calendar.Weekday(d) == time.Saturday {
		return s.labels.Saturday, nil
	}
	return s.labels.Weekday, nil
}
