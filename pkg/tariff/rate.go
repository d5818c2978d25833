package tariff

import (
	"fmt"
	"sort"

	"github.com/raterudder/tou/pkg/types"
	"github.com/shopspring/decimal"
)

// RequiredContractCapacity is the input name reported when a plan charges per
// kW of contract capacity.
const RequiredContractCapacity = "contract_capacity"

// Rate maps a (season, period) to a unit cost.
type Rate interface {
	UnitCost(season, period string) (decimal.Decimal, error)
}

type rateKey struct {
	season string
	period string
}

// TariffRate is a rate table with optional tiers, a high usage surcharge and
// basic fees. It is immutable after construction.
type TariffRate struct {
	seasons   SeasonStrategy
	costs     map[rateKey]decimal.Decimal
	tiers     map[string][]types.Tier
	surcharge *types.Surcharge
	basicFees []types.BasicFee
}

var _ Rate = (*TariffRate)(nil)

// RateOption configures a TariffRate.
type RateOption func(*TariffRate) error

// WithPeriodCosts adds flat (season, period) costs.
func WithPeriodCosts(costs ...types.PeriodCost) RateOption {
	return func(r *TariffRate) error {
		for _, c := range costs {
			if c.Season == "" || c.Period == "" {
				return &types.InvalidDeclarationError{Where: "rates", Reason: "season and period are required"}
			}
			if c.Cost.IsNegative() {
				return &types.InvalidDeclarationError{Where: "rates", Reason: fmt.Sprintf("negative cost for %s/%s", c.Season, c.Period)}
			}
			key := rateKey{season: c.Season, period: c.Period}
			if _, ok := r.costs[key]; ok {
				return &types.InvalidDeclarationError{Where: "rates", Reason: fmt.Sprintf("%s/%s declared more than once", c.Season, c.Period)}
			}
			r.costs[key] = c.Cost
		}
		return nil
	}
}

// WithTiers sets the progressive usage brackets of a season. Brackets must be
// ascending and the last one unbounded.
func WithTiers(season string, tiers ...types.Tier) RateOption {
	return func(r *TariffRate) error {
		where := "tiers " + season
		if len(tiers) == 0 {
			return &types.InvalidDeclarationError{Where: where, Reason: "no tiers"}
		}
		prev := decimal.Zero
		for i, t := range tiers {
			if t.Cost.IsNegative() {
				return &types.InvalidDeclarationError{Where: where, Reason: fmt.Sprintf("tier %d has a negative cost", i)}
			}
			last := i == len(tiers)-1
			if t.Unbounded() != last {
				return &types.InvalidDeclarationError{Where: where, Reason: "only the last tier must be unbounded"}
			}
			if !last {
				if !t.UpTo.GreaterThan(prev) {
					return &types.InvalidDeclarationError{Where: where, Reason: fmt.Sprintf("tier %d limit %s is not above %s", i, t.UpTo, prev)}
				}
				prev = t.UpTo
			}
		}
		r.tiers[season] = append([]types.Tier(nil), tiers...)
		return nil
	}
}

// WithSurcharge charges CostPerKWh on usage above ThresholdKWh.
func WithSurcharge(s types.Surcharge) RateOption {
	return func(r *TariffRate) error {
		if s.ThresholdKWh.IsNegative() || s.CostPerKWh.IsNegative() {
			return &types.InvalidDeclarationError{Where: "surcharge", Reason: "threshold and cost must not be negative"}
		}
		r.surcharge = &s
		return nil
	}
}

// WithBasicFees adds consumption independent fees.
func WithBasicFees(fees ...types.BasicFee) RateOption {
	return func(r *TariffRate) error {
		for _, f := range fees {
			where := "basic fee " + f.Label
			if f.Label == "" {
				return &types.InvalidDeclarationError{Where: "basic fee", Reason: "label is required"}
			}
			switch f.Unit {
			case types.BasicFeeUnitMonth, types.BasicFeeUnitKW:
			default:
				return &types.InvalidDeclarationError{Where: where, Reason: fmt.Sprintf("unknown unit %q", f.Unit)}
			}
			if f.Amount.IsNegative() {
				return &types.InvalidDeclarationError{Where: where, Reason: "negative amount"}
			}
			r.basicFees = append(r.basicFees, f)
		}
		return nil
	}
}

// NewRate builds a rate table resolved against seasons.
func NewRate(seasons SeasonStrategy, opts ...RateOption) (*TariffRate, error) {
	r := &TariffRate{
		seasons: seasons,
		costs:   make(map[rateKey]decimal.Decimal),
		tiers:   make(map[string][]types.Tier),
	}
	for _, o := range opts {
		if err := o(r); err != nil {
			return nil, err
		}
	}
	if len(r.costs) == 0 && len(r.tiers) == 0 {
		return nil, &types.InvalidDeclarationError{Where: "rate", Reason: "no period costs or tiers"}
	}
	return r, nil
}

// Seasons returns the season strategy the rate was built against.
func (r *TariffRate) Seasons() SeasonStrategy { return r.seasons }

// Tiered reports whether usage is billed progressively.
func (r *TariffRate) Tiered() bool { return len(r.tiers) > 0 }

// Surcharge returns the high usage surcharge rule, nil if there is none.
func (r *TariffRate) Surcharge() *types.Surcharge { return r.surcharge }

// BasicFees returns the declared basic fees.
func (r *TariffRate) BasicFees() []types.BasicFee {
	return append([]types.BasicFee(nil), r.basicFees...)
}

// UnitCost implements Rate. A tiered rate without a flat cost for the key
// answers with the first bracket's cost.
func (r *TariffRate) UnitCost(season, period string) (decimal.Decimal, error) {
	if c, ok := r.costs[rateKey{season: season, period: period}]; ok {
		return c, nil
	}
	if tiers, ok := r.tiers[season]; ok {
		return tiers[0].Cost, nil
	}
	return decimal.Zero, &types.RateNotFoundError{Season: season, Period: period}
}

// MarginalCost returns the cost of the bracket a monthly usage ends in.
func (r *TariffRate) MarginalCost(season string, kwh decimal.Decimal) (decimal.Decimal, error) {
	tiers, ok := r.tiers[season]
	if !ok {
		return decimal.Zero, &types.RateNotFoundError{Season: season, Period: "tiers"}
	}
	for _, t := range tiers {
		if t.Unbounded() || kwh.LessThanOrEqual(t.UpTo) {
			return t.Cost, nil
		}
	}
	// unreachable, the last tier is always unbounded
	return tiers[len(tiers)-1].Cost, nil
}

// TieredCharge bills kwh progressively: each bracket's cost applies only to
// the usage inside that bracket.
func (r *TariffRate) TieredCharge(season string, kwh decimal.Decimal) (decimal.Decimal, error) {
	if kwh.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative usage %s", types.ErrInvalidUsage, kwh)
	}
	tiers, ok := r.tiers[season]
	if !ok {
		return decimal.Zero, &types.RateNotFoundError{Season: season, Period: "tiers"}
	}
	total := decimal.Zero
	remaining := kwh
	prev := decimal.Zero
	for _, t := range tiers {
		if !remaining.IsPositive() {
			break
		}
		if t.Unbounded() {
			total = total.Add(remaining.Mul(t.Cost))
			break
		}
		inTier := decimal.Min(remaining, t.UpTo.Sub(prev))
		total = total.Add(inTier.Mul(t.Cost))
		remaining = remaining.Sub(inTier)
		prev = t.UpTo
	}
	return total, nil
}

// EnergyCharge returns the consumption charge for a season. Tiered rates bill
// usage.Total; time-of-use rates bill every entry of usage.ByPeriod.
func (r *TariffRate) EnergyCharge(season string, usage types.Usage) (decimal.Decimal, error) {
	if r.Tiered() {
		return r.TieredCharge(season, usage.Total)
	}
	if len(usage.ByPeriod) == 0 && usage.Total.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: usage by period is required for a time-of-use rate", types.ErrInvalidUsage)
	}
	periods := make([]string, 0, len(usage.ByPeriod))
	for p := range usage.ByPeriod {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	total := decimal.Zero
	for _, p := range periods {
		kwh := usage.ByPeriod[p]
		if kwh.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: negative usage %s for %s", types.ErrInvalidUsage, kwh, p)
		}
		cost, err := r.UnitCost(season, p)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(kwh.Mul(cost))
	}
	return total, nil
}

// SurchargeCharge returns the surcharge owed on a billed total. Only the
// excess above the threshold is charged.
func (r *TariffRate) SurchargeCharge(total decimal.Decimal) decimal.Decimal {
	if r.surcharge == nil || !total.GreaterThan(r.surcharge.ThresholdKWh) {
		return decimal.Zero
	}
	return total.Sub(r.surcharge.ThresholdKWh).Mul(r.surcharge.CostPerKWh)
}

// Requires lists the inputs a bill must provide.
func (r *TariffRate) Requires() []string {
	for _, f := range r.basicFees {
		if f.Unit == types.BasicFeeUnitKW && f.Required {
			return []string{RequiredContractCapacity}
		}
	}
	return nil
}

// ValidateInputs checks contract capacities against the declared basic fees.
// Unknown labels are only rejected in strict mode. Required fees scoped to
// another season are not enforced; an empty season enforces all of them.
func (r *TariffRate) ValidateInputs(season string, inputs types.BillingInputs) error {
	known := make(map[string]bool)
	for _, f := range r.basicFees {
		if f.Unit == types.BasicFeeUnitKW {
			known[f.Label] = true
		}
	}

	labels := make([]string, 0, len(inputs.ContractCapacity))
	for label := range inputs.ContractCapacity {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if inputs.Strict && !known[label] {
			return &types.InvalidBasicFeeInputError{Key: label, Reason: "not a basic fee of this plan"}
		}
		if inputs.ContractCapacity[label].IsNegative() {
			return &types.InvalidBasicFeeInputError{Key: label, Reason: "must not be negative"}
		}
	}

	for _, f := range r.basicFees {
		if f.Unit != types.BasicFeeUnitKW || !f.Required {
			continue
		}
		if season != "" && f.Season != "" && f.Season != season {
			continue
		}
		if len(inputs.ContractCapacity) == 0 {
			return &types.MissingRequiredInputError{Field: RequiredContractCapacity}
		}
		if _, ok := inputs.ContractCapacity[f.Label]; !ok {
			return &types.MissingRequiredInputError{Field: RequiredContractCapacity + "." + f.Label}
		}
	}
	return nil
}

// BasicFee sums the fees that apply in season.
func (r *TariffRate) BasicFee(season string, inputs types.BillingInputs) (decimal.Decimal, error) {
	if err := r.ValidateInputs(season, inputs); err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, f := range r.basicFees {
		if f.Season != "" && f.Season != season {
			continue
		}
		switch f.Unit {
		case types.BasicFeeUnitMonth:
			total = total.Add(f.Amount)
		case types.BasicFeeUnitKW:
			if kw, ok := inputs.ContractCapacity[f.Label]; ok {
				total = total.Add(f.Amount.Mul(kw))
			}
		}
	}
	return total, nil
}
