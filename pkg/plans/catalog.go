package plans

import (
	"fmt"
	"sort"
	"time"

	"github.com/raterudder/tou/pkg/calendar"
	"github.com/raterudder/tou/pkg/tariff"
	"github.com/raterudder/tou/pkg/types"
)

// Catalog holds built plans by id. It is immutable once built.
type Catalog struct {
	version string
	order   []string
	plans   map[string]*tariff.Plan
}

// Version returns the declaration version the catalog was built from.
func (c *Catalog) Version() string {
	return c.version
}

// Plan returns a plan by id.
func (c *Catalog) Plan(id string) (*tariff.Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrPlanNotFound, id)
	}
	return p, nil
}

// List returns the metadata of every plan in declaration order.
func (c *Catalog) List() []types.PlanInfo {
	out := make([]types.PlanInfo, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id].Info())
	}
	return out
}

// Build validates decl and builds every plan against cal. Instants are read
// in loc unless a plan names its own location.
func Build(decl *Declaration, cal calendar.Calendar, loc *time.Location) (*Catalog, error) {
	seasons, err := buildSeasons(decl.Definitions)
	if err != nil {
		return nil, err
	}
	b := &builder{
		seasons:  seasons,
		cal:      cal,
		loc:      loc,
		periods:  toSet(decl.Definitions.Periods),
		dayTypes: toSet(decl.Definitions.DayTypes),
	}

	c := &Catalog{
		version: decl.Version,
		plans:   make(map[string]*tariff.Plan, len(decl.Plans)),
	}
	for _, pd := range decl.Plans {
		if _, ok := c.plans[pd.ID]; ok {
			return nil, &types.InvalidDeclarationError{Where: "plan " + pd.ID, Reason: "declared more than once"}
		}
		p, err := b.plan(pd)
		if err != nil {
			return nil, err
		}
		c.plans[pd.ID] = p
		c.order = append(c.order, pd.ID)
	}
	return c, nil
}

// Default builds the embedded plans.
func Default(cal calendar.Calendar, loc *time.Location) (*Catalog, error) {
	decl, err := DefaultDeclaration()
	if err != nil {
		return nil, err
	}
	return Build(decl, cal, loc)
}

func buildSeasons(defs Definitions) (*tariff.RangeStrategy, error) {
	ranges, err := seasonRanges("seasons", defs.Seasons)
	if err != nil {
		return nil, err
	}
	s := tariff.NewRangeStrategy(ranges...)
	if len(defs.SeasonsHighVoltage) > 0 {
		hv, err := seasonRanges("seasons_high_voltage", defs.SeasonsHighVoltage)
		if err != nil {
			return nil, err
		}
		s = s.WithHighVoltage(hv...)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func seasonRanges(where string, decls []SeasonDecl) ([]types.SeasonRange, error) {
	out := make([]types.SeasonRange, 0, len(decls))
	for _, sd := range decls {
		start, err := types.ParseMonthDay(sd.Start)
		if err != nil {
			return nil, &types.InvalidDeclarationError{Where: where + " " + sd.Name, Reason: err.Error()}
		}
		end, err := types.ParseMonthDay(sd.End)
		if err != nil {
			return nil, &types.InvalidDeclarationError{Where: where + " " + sd.Name, Reason: err.Error()}
		}
		out = append(out, types.SeasonRange{Name: sd.Name, Start: start, End: end})
	}
	return out, nil
}

type builder struct {
	seasons  *tariff.RangeStrategy
	cal      calendar.Calendar
	loc      *time.Location
	periods  map[string]bool
	dayTypes map[string]bool
}

func (b *builder) plan(pd PlanDecl) (*tariff.Plan, error) {
	where := "plan " + pd.ID
	invalid := func(format string, args ...any) error {
		return &types.InvalidDeclarationError{Where: where, Reason: fmt.Sprintf(format, args...)}
	}
	if pd.ID == "" {
		return nil, &types.InvalidDeclarationError{Where: "plan", Reason: "id is required"}
	}

	var highVoltage bool
	switch pd.SeasonStrategy {
	case "", SeasonStrategyDefault:
	case SeasonStrategyHighVoltage:
		if !b.seasons.HasHighVoltage() {
			return nil, invalid("high_voltage seasons are not defined")
		}
		highVoltage = true
	default:
		return nil, invalid("unknown season_strategy %q", pd.SeasonStrategy)
	}

	loc := b.loc
	if pd.Location != "" {
		l, err := time.LoadLocation(pd.Location)
		if err != nil {
			return nil, invalid("unknown location %q", pd.Location)
		}
		loc = l
	}

	labels := tariff.DefaultDayTypeLabels
	if pd.DayTypes != nil {
		labels = tariff.DayTypeLabels{
			Weekday:  pd.DayTypes.Weekday,
			Weekend:  pd.DayTypes.Weekend,
			Holiday:  pd.DayTypes.Holiday,
			Saturday: pd.DayTypes.Saturday,
		}
	}
	dayTypes := tariff.NewWeekdayDayTypeWithLabels(b.cal, labels)
	labelSet := toSet(dayTypes.Labels().Labels())
	for label := range labelSet {
		if len(b.dayTypes) > 0 && !b.dayTypes[label] {
			return nil, invalid("day type %q is not defined", label)
		}
	}

	seasonSet := toSet(b.seasons.Seasons())
	for _, r := range pd.Rates {
		if !seasonSet[r.Season] {
			return nil, invalid("rate for unknown season %q", r.Season)
		}
		if len(b.periods) > 0 && !b.periods[r.Period] {
			return nil, invalid("rate for undefined period %q", r.Period)
		}
	}
	for _, s := range pd.Schedules {
		if !seasonSet[s.Season] {
			return nil, invalid("schedule for unknown season %q", s.Season)
		}
		if !labelSet[s.DayType] {
			return nil, invalid("schedule for day type %q the plan does not use", s.DayType)
		}
		for _, slot := range s.Slots {
			if len(b.periods) > 0 && !b.periods[slot.Period] {
				return nil, invalid("schedule %s/%s uses undefined period %q", s.Season, s.DayType, slot.Period)
			}
		}
	}

	rateOpts, err := rateOptions(pd, seasonSet)
	if err != nil {
		return nil, err
	}

	plan, err := tariff.BuildPlan(tariff.PlanDecl{
		Info: types.PlanInfo{
			ID:             pd.ID,
			Name:           pd.Name,
			Type:           pd.Type,
			Category:       pd.Category,
			SeasonStrategy: pd.SeasonStrategy,
			Variant:        pd.Variant,
			Notes:          pd.Notes,
		},
		Schedules:      pd.Schedules,
		Costs:          pd.Rates,
		RateOptions:    rateOpts,
		ProfileOptions: []tariff.ProfileOption{tariff.WithHighVoltage(highVoltage), tariff.WithLocation(loc)},
	}, b.seasons, dayTypes)
	if err != nil {
		return nil, err
	}

	if len(pd.Schedules) > 0 {
		if err := checkCoverage(plan, seasonSet, labelSet); err != nil {
			return nil, invalid("%v", err)
		}
	}
	return plan, nil
}

func rateOptions(pd PlanDecl, seasonSet map[string]bool) ([]tariff.RateOption, error) {
	var opts []tariff.RateOption

	var tierSeasons []string
	tiers := make(map[string][]types.Tier)
	for _, t := range pd.Tiers {
		if !seasonSet[t.Season] {
			return nil, &types.InvalidDeclarationError{Where: "plan " + pd.ID, Reason: fmt.Sprintf("tier for unknown season %q", t.Season)}
		}
		if _, ok := tiers[t.Season]; !ok {
			tierSeasons = append(tierSeasons, t.Season)
		}
		tiers[t.Season] = append(tiers[t.Season], types.Tier{UpTo: t.UpTo, Cost: t.Cost})
	}
	for _, s := range tierSeasons {
		opts = append(opts, tariff.WithTiers(s, tiers[s]...))
	}

	var fees []types.BasicFee
	if pd.BasicFee != nil {
		fees = append(fees, types.BasicFee{Label: "basic", Amount: *pd.BasicFee, Unit: types.BasicFeeUnitMonth})
	}
	for _, f := range pd.BasicFees {
		unit := types.BasicFeeUnit(f.Unit)
		if unit == "" {
			unit = types.BasicFeeUnitMonth
		}
		fees = append(fees, types.BasicFee{
			Label:    f.Label,
			Season:   f.Season,
			Amount:   f.Amount,
			Unit:     unit,
			Required: f.Required,
		})
	}
	if len(fees) > 0 {
		opts = append(opts, tariff.WithBasicFees(fees...))
	}

	if s := pd.Over2000KWhSurcharge; s != nil {
		threshold := DefaultSurchargeThreshold
		if s.ThresholdKWh != nil {
			threshold = *s.ThresholdKWh
		}
		opts = append(opts, tariff.WithSurcharge(types.Surcharge{ThresholdKWh: threshold, CostPerKWh: s.CostPerKWh}))
	}
	return opts, nil
}

// checkCoverage requires a schedule for every (season, day type) and a cost
// for every period a schedule uses, so queries never hit a missing entry.
func checkCoverage(plan *tariff.Plan, seasons, dayTypes map[string]bool) error {
	for _, season := range sortedKeys(seasons) {
		for _, dt := range sortedKeys(dayTypes) {
			s, err := plan.Profile.Schedule(season, dt)
			if err != nil {
				return err
			}
			for _, slot := range s.Slots {
				if _, err := plan.Rate.UnitCost(season, slot.Period); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func toSet(list []string) map[string]bool {
	out := make(map[string]bool, len(list))
	for _, s := range list {
		out[s] = true
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
