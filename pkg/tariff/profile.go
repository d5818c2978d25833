package tariff

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/raterudder/tou/pkg/types"
)

type scheduleKey struct {
	season  string
	dayType string
}

// Profile resolves an instant to a (season, day type, period) triple. It is
// immutable after construction and safe for concurrent use.
type Profile struct {
	name        string
	seasons     SeasonStrategy
	dayTypes    DayTypeStrategy
	highVoltage bool
	location    *time.Location
	schedules   map[scheduleKey]types.Schedule
}

// ProfileOption customizes a Profile.
type ProfileOption func(*Profile)

// WithHighVoltage makes the profile resolve seasons from the high-voltage
// boundary set.
func WithHighVoltage(highVoltage bool) ProfileOption {
	return func(p *Profile) {
		p.highVoltage = highVoltage
	}
}

// WithLocation sets the time zone instants are converted to before their date
// and time of day are read. Without it the instant's own location is used.
func WithLocation(loc *time.Location) ProfileOption {
	return func(p *Profile) {
		p.location = loc
	}
}

// Resolution is the outcome of resolving an instant against a profile.
type Resolution struct {
	Time      time.Time
	Date      civil.Date
	TimeOfDay types.TimeOfDay
	Season    string
	DayType   string
	Period    string
}

// NewProfile validates the schedules and returns a profile. Each schedule's
// slots must cover [00:00, 24:00) with no gaps or overlaps, and a (season,
// day type) pair may only be declared once.
func NewProfile(name string, seasons SeasonStrategy, dayTypes DayTypeStrategy, schedules []types.Schedule, opts ...ProfileOption) (*Profile, error) {
	if seasons == nil || dayTypes == nil {
		return nil, &types.InvalidDeclarationError{Where: name, Reason: "profile requires season and day type strategies"}
	}
	p := &Profile{
		name:      name,
		seasons:   seasons,
		dayTypes:  dayTypes,
		schedules: make(map[scheduleKey]types.Schedule, len(schedules)),
	}
	for _, o := range opts {
		o(p)
	}
	for _, s := range schedules {
		where := fmt.Sprintf("%s schedule %s/%s", name, s.Season, s.DayType)
		if s.Season == "" || s.DayType == "" {
			return nil, &types.InvalidDeclarationError{Where: where, Reason: "season and day type are required"}
		}
		key := scheduleKey{season: s.Season, dayType: s.DayType}
		if _, ok := p.schedules[key]; ok {
			return nil, &types.InvalidDeclarationError{Where: where, Reason: "declared more than once"}
		}
		if err := validateSlots(s.Slots); err != nil {
			return nil, &types.InvalidDeclarationError{Where: where, Reason: err.Error()}
		}
		s.Slots = append([]types.TimeSlot(nil), s.Slots...)
		p.schedules[key] = s
	}
	return p, nil
}

// validateSlots checks that the slots partition the day. Declaration order is
// kept for lookups, so slots are sorted on a copy.
func validateSlots(slots []types.TimeSlot) error {
	if len(slots) == 0 {
		return fmt.Errorf("no time slots")
	}
	sorted := append([]types.TimeSlot(nil), slots...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var next types.TimeOfDay
	for _, s := range sorted {
		if s.Period == "" {
			return fmt.Errorf("slot %s-%s has no period", s.Start, s.End)
		}
		if s.Start < 0 || s.End > types.EndOfDay || s.Start >= s.End {
			return fmt.Errorf("slot %s-%s is empty or out of range", s.Start, s.End)
		}
		if s.Start > next {
			return fmt.Errorf("gap between %s and %s", next, s.Start)
		}
		if s.Start < next {
			return fmt.Errorf("slot %s-%s overlaps the previous slot", s.Start, s.End)
		}
		next = s.End
	}
	if next != types.EndOfDay {
		return fmt.Errorf("gap between %s and 24:00", next)
	}
	return nil
}

// Name returns the profile name.
func (p *Profile) Name() string { return p.name }

// HighVoltage reports whether the profile uses the high-voltage seasons.
func (p *Profile) HighVoltage() bool { return p.highVoltage }

// Location returns the profile time zone, nil if instants are used as given.
func (p *Profile) Location() *time.Location { return p.location }

// Seasons returns the season strategy of the profile.
func (p *Profile) Seasons() SeasonStrategy { return p.seasons }

// Schedule returns the schedule for a (season, day type) pair.
func (p *Profile) Schedule(season, dayType string) (types.Schedule, error) {
	s, ok := p.schedules[scheduleKey{season: season, dayType: dayType}]
	if !ok {
		return types.Schedule{}, &types.ScheduleNotFoundError{Season: season, DayType: dayType}
	}
	return s, nil
}

// SeasonOf resolves the season of a date with the profile's voltage variant.
func (p *Profile) SeasonOf(d civil.Date) (string, error) {
	return p.seasons.SeasonOf(d, p.highVoltage)
}

// Resolve resolves an instant. Seconds are ignored.
func (p *Profile) Resolve(t time.Time) (Resolution, error) {
	if p.location != nil {
		t = t.In(p.location)
	}
	res := Resolution{
		Time:      t,
		Date:      civil.DateOf(t),
		TimeOfDay: types.TimeOfDayOf(t),
	}

	var err error
	res.Season, err = p.SeasonOf(res.Date)
	if err != nil {
		return res, err
	}
	res.DayType, err = p.dayTypes.DayTypeOf(res.Date)
	if err != nil {
		return res, err
	}
	schedule, err := p.Schedule(res.Season, res.DayType)
	if err != nil {
		return res, err
	}
	for _, slot := range schedule.Slots {
		if slot.Contains(res.TimeOfDay) {
			res.Period = slot.Period
			return res, nil
		}
	}
	return res, &types.SlotNotFoundError{Season: res.Season, DayType: res.DayType, Time: res.TimeOfDay}
}

// PeriodOf returns the period label in effect at t.
func (p *Profile) PeriodOf(t time.Time) (string, error) {
	res, err := p.Resolve(t)
	if err != nil {
		return "", err
	}
	return res.Period, nil
}

// Periods resolves every instant, preserving order and length.
func (p *Profile) Periods(ts []time.Time) ([]string, error) {
	out := make([]string, len(ts))
	for i, t := range ts {
		period, err := p.PeriodOf(t)
		if err != nil {
			return nil, err
		}
		out[i] = period
	}
	return out, nil
}

// PeriodOf returns the period in effect at t under profile.
func PeriodOf(t time.Time, profile *Profile) (string, error) {
	return profile.PeriodOf(t)
}
