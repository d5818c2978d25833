package tariff

import (
	"fmt"
	"time"

	"github.com/raterudder/tou/pkg/types"
	"github.com/shopspring/decimal"
)

// MaxRangeIntervals bounds the length of a PricingRange series.
const MaxRangeIntervals = 10000

// Plan composes a profile with a rate table.
type Plan struct {
	ID      string
	Name    string
	Profile *Profile
	Rate    *TariffRate

	info types.PlanInfo
}

// NewPlan returns a plan named after its profile.
func NewPlan(profile *Profile, rate *TariffRate) *Plan {
	return &Plan{
		ID:      profile.Name(),
		Name:    profile.Name(),
		Profile: profile,
		Rate:    rate,
	}
}

// WithInfo attaches listing metadata. ID and Name follow the info when set.
func (p *Plan) WithInfo(info types.PlanInfo) *Plan {
	if info.ID != "" {
		p.ID = info.ID
	}
	if info.Name != "" {
		p.Name = info.Name
	}
	p.info = info
	return p
}

// Info returns the listing metadata of the plan.
func (p *Plan) Info() types.PlanInfo {
	info := p.info
	info.ID = p.ID
	info.Name = p.Name
	info.Requires = p.Rate.Requires()
	return info
}

// PricingContext resolves t and looks up the unit cost that applies. It does
// not depend on usage.
func (p *Plan) PricingContext(t time.Time) (types.PricingContext, error) {
	res, err := p.Profile.Resolve(t)
	if err != nil {
		return types.PricingContext{}, err
	}
	cost, err := p.Rate.UnitCost(res.Season, res.Period)
	if err != nil {
		return types.PricingContext{}, err
	}
	pc := types.PricingContext{
		Time:     res.Time,
		Season:   res.Season,
		DayType:  res.DayType,
		Period:   res.Period,
		UnitCost: cost,
	}
	if s := p.Rate.Surcharge(); s != nil {
		pc.SurchargeActive = true
		sc := *s
		pc.Surcharge = &sc
	}
	return pc, nil
}

// PricingContexts resolves every instant, preserving order and length.
func (p *Plan) PricingContexts(ts []time.Time) ([]types.PricingContext, error) {
	out := make([]types.PricingContext, len(ts))
	for i, t := range ts {
		pc, err := p.PricingContext(t)
		if err != nil {
			return nil, err
		}
		out[i] = pc
	}
	return out, nil
}

// PricingRange returns a series of step long intervals covering [start, end).
// Intervals are aligned to step from local midnight in the profile location
// and only those entirely within the range are returned.
func (p *Plan) PricingRange(start, end time.Time, step time.Duration) ([]types.PricedInterval, error) {
	if step <= 0 || step > 24*time.Hour {
		return nil, fmt.Errorf("%w: step %s must be within (0, 24h]", types.ErrInvalidQuery, step)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start %s is not before end %s", types.ErrInvalidQuery, start, end)
	}
	if n := end.Sub(start) / step; n > MaxRangeIntervals {
		return nil, fmt.Errorf("%w: range has %d intervals, at most %d allowed", types.ErrInvalidQuery, n, MaxRangeIntervals)
	}

	loc := p.Profile.Location()
	if loc == nil {
		loc = start.Location()
	}
	local := start.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	current := midnight.Add(local.Sub(midnight) / step * step)

	var intervals []types.PricedInterval
	for current.Before(end) {
		next := current.Add(step)
		if !current.Before(start) && !next.After(end) {
			pc, err := p.PricingContext(current)
			if err != nil {
				return nil, err
			}
			intervals = append(intervals, types.PricedInterval{
				PricingContext: pc,
				TSStart:        pc.Time,
				TSEnd:          next.In(pc.Time.Location()),
			})
		}
		current = next
	}
	return intervals, nil
}

// Bill computes basic fee, energy charge and surcharge for a month of usage.
// Inputs are validated before anything is computed.
func (p *Plan) Bill(usage types.Usage, inputs types.BillingInputs) (types.Bill, error) {
	usage, err := normalizeUsage(usage)
	if err != nil {
		return types.Bill{}, err
	}
	if !inputs.Date.IsValid() {
		return types.Bill{}, &types.MissingRequiredInputError{Field: "date"}
	}
	season, err := p.Profile.SeasonOf(inputs.Date)
	if err != nil {
		return types.Bill{}, err
	}
	if err := p.Rate.ValidateInputs(season, inputs); err != nil {
		return types.Bill{}, err
	}

	bill := types.Bill{Season: season}
	bill.BasicFee, err = p.Rate.BasicFee(season, inputs)
	if err != nil {
		return types.Bill{}, err
	}
	bill.EnergyCharge, err = p.Rate.EnergyCharge(season, usage)
	if err != nil {
		return types.Bill{}, err
	}
	bill.Surcharge = p.Rate.SurchargeCharge(usage.Total)
	bill.Total = bill.BasicFee.Add(bill.EnergyCharge).Add(bill.Surcharge)
	return bill, nil
}

// normalizeUsage rejects negative amounts and derives Total from ByPeriod
// when only the breakdown is given. A Total given alongside ByPeriod must
// equal its sum.
func normalizeUsage(usage types.Usage) (types.Usage, error) {
	if usage.Total.IsNegative() {
		return usage, fmt.Errorf("%w: negative total %s", types.ErrInvalidUsage, usage.Total)
	}
	sum := decimal.Zero
	for period, kwh := range usage.ByPeriod {
		if kwh.IsNegative() {
			return usage, fmt.Errorf("%w: negative usage %s for %s", types.ErrInvalidUsage, kwh, period)
		}
		sum = sum.Add(kwh)
	}
	if usage.Total.IsZero() {
		usage.Total = sum
	} else if len(usage.ByPeriod) > 0 && !usage.Total.Equal(sum) {
		return usage, fmt.Errorf("%w: total %s does not match the sum of periods %s", types.ErrInvalidUsage, usage.Total, sum)
	}
	return usage, nil
}
