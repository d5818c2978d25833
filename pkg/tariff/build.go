package tariff

import (
	"fmt"

	"github.com/raterudder/tou/pkg/types"
	"github.com/shopspring/decimal"
)

// SlotDecl is a time slot written as "HH:MM" strings. An End of "00:00" means
// the end of the day.
type SlotDecl struct {
	Start  string `json:"start" yaml:"start"`
	End    string `json:"end" yaml:"end"`
	Period string `json:"period" yaml:"period"`
}

// ScheduleDecl declares the slots of one (season, day type).
type ScheduleDecl struct {
	Season  string     `json:"season" yaml:"season"`
	DayType string     `json:"day_type" yaml:"day_type"`
	Slots   []SlotDecl `json:"slots" yaml:"slots"`
}

// PeriodCostDecl declares the unit cost of a (season, period).
type PeriodCostDecl struct {
	Season string          `json:"season" yaml:"season"`
	Period string          `json:"period" yaml:"period"`
	Cost   decimal.Decimal `json:"cost" yaml:"cost"`
}

// PlanDecl is everything needed to build a plan in one call.
type PlanDecl struct {
	Info      types.PlanInfo
	Schedules []ScheduleDecl
	Costs     []PeriodCostDecl
	// RateOptions add tiers, surcharges and basic fees.
	RateOptions    []RateOption
	ProfileOptions []ProfileOption
}

// ParseSchedule converts a declaration to a schedule without validating the
// partition; NewProfile does that.
func ParseSchedule(decl ScheduleDecl) (types.Schedule, error) {
	where := fmt.Sprintf("schedule %s/%s", decl.Season, decl.DayType)
	s := types.Schedule{
		Season:  decl.Season,
		DayType: decl.DayType,
		Slots:   make([]types.TimeSlot, 0, len(decl.Slots)),
	}
	for _, sd := range decl.Slots {
		start, err := types.ParseTimeOfDay(sd.Start, false)
		if err != nil {
			return s, &types.InvalidDeclarationError{Where: where, Reason: err.Error()}
		}
		end, err := types.ParseTimeOfDay(sd.End, true)
		if err != nil {
			return s, &types.InvalidDeclarationError{Where: where, Reason: err.Error()}
		}
		s.Slots = append(s.Slots, types.TimeSlot{Start: start, End: end, Period: sd.Period})
	}
	return s, nil
}

// BuildProfile parses and validates schedule declarations into a profile.
func BuildProfile(name string, seasons SeasonStrategy, dayTypes DayTypeStrategy, decls []ScheduleDecl, opts ...ProfileOption) (*Profile, error) {
	schedules := make([]types.Schedule, 0, len(decls))
	for _, d := range decls {
		s, err := ParseSchedule(d)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return NewProfile(name, seasons, dayTypes, schedules, opts...)
}

// BuildRate builds a rate table from flat cost declarations plus any extra
// options.
func BuildRate(seasons SeasonStrategy, costs []PeriodCostDecl, opts ...RateOption) (*TariffRate, error) {
	pcs := make([]types.PeriodCost, 0, len(costs))
	for _, c := range costs {
		pcs = append(pcs, types.PeriodCost(c))
	}
	if len(pcs) > 0 {
		opts = append([]RateOption{WithPeriodCosts(pcs...)}, opts...)
	}
	return NewRate(seasons, opts...)
}

// BuildPlan builds the profile and rate of decl and composes them.
func BuildPlan(decl PlanDecl, seasons SeasonStrategy, dayTypes DayTypeStrategy) (*Plan, error) {
	if decl.Info.ID == "" {
		return nil, &types.InvalidDeclarationError{Where: "plan", Reason: "id is required"}
	}
	rate, err := BuildRate(seasons, decl.Costs, decl.RateOptions...)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", decl.Info.ID, err)
	}
	schedules := decl.Schedules
	if len(schedules) == 0 && rate.Tiered() {
		schedules = flatSchedules(seasons, dayTypes)
	}
	profile, err := BuildProfile(decl.Info.ID, seasons, dayTypes, schedules, decl.ProfileOptions...)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", decl.Info.ID, err)
	}
	return NewPlan(profile, rate).WithInfo(decl.Info), nil
}

// FlatPeriod is the single period of plans without a time-of-use schedule.
const FlatPeriod = "all_day"

// flatSchedules covers every (season, day type) with one all day slot so that
// tiered plans still answer pricing queries.
func flatSchedules(seasons SeasonStrategy, dayTypes DayTypeStrategy) []ScheduleDecl {
	var seasonNames []string
	if rs, ok := seasons.(*RangeStrategy); ok {
		seasonNames = rs.Seasons()
	} else {
		seasonNames = []string{SeasonSummer, SeasonNonSummer}
	}
	labels := DefaultDayTypeLabels.Labels()
	if wd, ok := dayTypes.(*WeekdayDayType); ok {
		labels = wd.Labels().Labels()
	}

	var out []ScheduleDecl
	for _, s := range seasonNames {
		for _, dt := range labels {
			out = append(out, ScheduleDecl{
				Season:  s,
				DayType: dt,
				Slots:   []SlotDecl{{Start: "00:00", End: "24:00", Period: FlatPeriod}},
			})
		}
	}
	return out
}
