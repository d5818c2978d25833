package tariff

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/raterudder/tou/pkg/types"
)

// Season labels used by the Taipower presets.
const (
	SeasonSummer    = "summer"
	SeasonNonSummer = "non_summer"
)

// SeasonStrategy maps a date to a season label.
type SeasonStrategy interface {
	// SeasonOf returns the season of a date. highVoltage selects the
	// alternate boundary set used by high-voltage plans.
	SeasonOf(d civil.Date, highVoltage bool) (string, error)
}

// RangeStrategy resolves seasons from recurring yearly ranges. Ranges are
// tested in declaration order and the first match wins.
type RangeStrategy struct {
	ranges     []types.SeasonRange
	highVolt   []types.SeasonRange
	hasHighSet bool
}

var _ SeasonStrategy = (*RangeStrategy)(nil)

// NewRangeStrategy returns a strategy over the default ranges. Overlapping
// ranges are not rejected here; see Validate.
func NewRangeStrategy(ranges ...types.SeasonRange) *RangeStrategy {
	return &RangeStrategy{ranges: append([]types.SeasonRange(nil), ranges...)}
}

// WithHighVoltage returns a copy that answers high-voltage queries from
// ranges instead of the default set.
func (s *RangeStrategy) WithHighVoltage(ranges ...types.SeasonRange) *RangeStrategy {
	return &RangeStrategy{
		ranges:     s.ranges,
		highVolt:   append([]types.SeasonRange(nil), ranges...),
		hasHighSet: true,
	}
}

// NewSummerStrategy returns a two-season strategy: summer between start and
// end inclusive, non_summer for the rest of the year.
func NewSummerStrategy(start, end types.MonthDay) *RangeStrategy {
	return NewRangeStrategy(summerRanges(start, end)...)
}

// Taipower returns the standard boundaries: summer June 1 - September 30, and
// May 16 - October 15 for high-voltage plans.
func Taipower() *RangeStrategy {
	return NewSummerStrategy(
		types.MonthDay{Month: time.June, Day: 1},
		types.MonthDay{Month: time.September, Day: 30},
	).WithHighVoltage(summerRanges(
		types.MonthDay{Month: time.May, Day: 16},
		types.MonthDay{Month: time.October, Day: 15},
	)...)
}

func summerRanges(start, end types.MonthDay) []types.SeasonRange {
	return []types.SeasonRange{
		{Name: SeasonSummer, Start: start, End: end},
		{Name: SeasonNonSummer, Start: nextMonthDay(end), End: prevMonthDay(start)},
	}
}

// HasHighVoltage reports whether a separate high-voltage range set exists.
func (s *RangeStrategy) HasHighVoltage() bool { return s.hasHighSet }

// SeasonOf implements SeasonStrategy.
func (s *RangeStrategy) SeasonOf(d civil.Date, highVoltage bool) (string, error) {
	ranges := s.ranges
	if highVoltage && s.hasHighSet {
		ranges = s.highVolt
	}
	for _, r := range ranges {
		if r.Contains(d) {
			return r.Name, nil
		}
	}
	return "", &types.SeasonNotFoundError{Date: d, HighVoltage: highVoltage}
}

// Seasons returns the distinct season names in declaration order across both
// range sets.
func (s *RangeStrategy) Seasons() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range append(append([]types.SeasonRange(nil), s.ranges...), s.highVolt...) {
		if !seen[r.Name] {
			seen[r.Name] = true
			out = append(out, r.Name)
		}
	}
	return out
}

// Validate checks that every range set covers each day of a leap year exactly
// once.
func (s *RangeStrategy) Validate() error {
	if err := validatePartition("seasons", s.ranges); err != nil {
		return err
	}
	if s.hasHighSet {
		return validatePartition("seasons_high_voltage", s.highVolt)
	}
	return nil
}

func validatePartition(where string, ranges []types.SeasonRange) error {
	if len(ranges) == 0 {
		return &types.InvalidDeclarationError{Where: where, Reason: "no season ranges"}
	}
	for _, r := range ranges {
		if r.Name == "" {
			return &types.InvalidDeclarationError{Where: where, Reason: "season range without a name"}
		}
		if !r.Start.Valid() || !r.End.Valid() {
			return &types.InvalidDeclarationError{Where: where, Reason: fmt.Sprintf("season %s has an invalid boundary", r.Name)}
		}
	}
	for d := (civil.Date{Year: 2024, Month: time.January, Day: 1}); d.Year == 2024; d = d.AddDays(1) {
		var matched []string
		for _, r := range ranges {
			if r.Contains(d) {
				matched = append(matched, r.Name)
			}
		}
		switch {
		case len(matched) == 0:
			return &types.InvalidDeclarationError{Where: where, Reason: fmt.Sprintf("no season covers %02d-%02d", int(d.Month), d.Day)}
		case len(matched) > 1:
			return &types.InvalidDeclarationError{Where: where, Reason: fmt.Sprintf("%02d-%02d is covered by %v", int(d.Month), d.Day, matched)}
		}
	}
	return nil
}

func nextMonthDay(m types.MonthDay) types.MonthDay {
	d := civil.Date{Year: 2024, Month: m.Month, Day: m.Day}.AddDays(1)
	return types.MonthDay{Month: d.Month, Day: d.Day}
}

func prevMonthDay(m types.MonthDay) types.MonthDay {
	d := civil.Date{Year: 2024, Month: m.Month, Day: m.Day}.AddDays(-1)
	return types.MonthDay{Month: d.Month, Day: d.Day}
}
