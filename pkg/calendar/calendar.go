// Package calendar answers whether a date is a holiday for tariff purposes.
package calendar

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/raterudder/tou/pkg/types"
)

// Calendar is the holiday oracle consumed by day-type strategies.
type Calendar interface {
	// IsHoliday reports whether the date is a holiday. Absence of data is not
	// an error; errors only come from failing to load the backing data.
	IsHoliday(d civil.Date) (bool, error)
}

// HolidaySource provides the explicit holiday records of a year.
type HolidaySource interface {
	Records(ctx context.Context, year int) ([]types.HolidayRecord, error)
}

// ReloadingSource is a HolidaySource that caches records itself. Reload asks
// past that cache.
type ReloadingSource interface {
	HolidaySource
	Reload(ctx context.Context, year int) ([]types.HolidayRecord, error)
}

// IsHolidays answers IsHoliday for every date, preserving order and length.
func IsHolidays(cal Calendar, dates []civil.Date) ([]bool, error) {
	out := make([]bool, len(dates))
	for i, d := range dates {
		h, err := cal.IsHoliday(d)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

// Weekday returns the day of the week of a date.
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// Explicit is a calendar built entirely from caller-supplied holidays and
// weekend days.
type Explicit struct {
	holidays map[civil.Date]struct{}
	weekend  map[time.Weekday]struct{}
}

var _ Calendar = (*Explicit)(nil)

// NewExplicit returns a calendar where a date is a holiday if it is listed in
// holidays or falls on one of weekendDays. Saturday and Sunday are used when
// no weekend days are given.
func NewExplicit(holidays []civil.Date, weekendDays ...time.Weekday) *Explicit {
	if len(weekendDays) == 0 {
		weekendDays = []time.Weekday{time.Saturday, time.Sunday}
	}
	c := &Explicit{
		holidays: make(map[civil.Date]struct{}, len(holidays)),
		weekend:  make(map[time.Weekday]struct{}, len(weekendDays)),
	}
	for _, d := range holidays {
		c.holidays[d] = struct{}{}
	}
	for _, wd := range weekendDays {
		c.weekend[wd] = struct{}{}
	}
	return c
}

// IsHoliday implements Calendar. It never fails.
func (c *Explicit) IsHoliday(d civil.Date) (bool, error) {
	if _, ok := c.holidays[d]; ok {
		return true, nil
	}
	_, ok := c.weekend[Weekday(d)]
	return ok, nil
}
