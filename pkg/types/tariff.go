package types

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// SeasonRange is a named recurring yearly interval. Both ends are inclusive.
// When Start is after End the range wraps across the end of the year.
type SeasonRange struct {
	Name  string   `json:"name"`
	Start MonthDay `json:"start"`
	End   MonthDay `json:"end"`
}

// Wraps reports whether the range crosses Dec 31 -> Jan 1.
func (r SeasonRange) Wraps() bool {
	return r.Start.Compare(r.End) > 0
}

// Contains checks if a date falls inside the range in any year.
func (r SeasonRange) Contains(d civil.Date) bool {
	md := MonthDay{Month: d.Month, Day: d.Day}
	if r.Wraps() {
		return md.Compare(r.Start) >= 0 || md.Compare(r.End) <= 0
	}
	return md.Compare(r.Start) >= 0 && md.Compare(r.End) <= 0
}

// TimeSlot labels the half-open interval [Start, End) of a day with a period.
type TimeSlot struct {
	Start  TimeOfDay `json:"start"`
	End    TimeOfDay `json:"end"`
	Period string    `json:"period"`
}

// Contains checks if a time of day is within the slot (inclusive start,
// exclusive end).
func (s TimeSlot) Contains(t TimeOfDay) bool {
	return t >= s.Start && t < s.End
}

// Schedule is the ordered partition of one (season, day type) into slots.
type Schedule struct {
	Season  string     `json:"season"`
	DayType string     `json:"dayType"`
	Slots   []TimeSlot `json:"slots"`
}

// PeriodCost is the unit cost of energy in a period of a season.
type PeriodCost struct {
	Season string          `json:"season"`
	Period string          `json:"period"`
	Cost   decimal.Decimal `json:"cost"`
}

// Tier is a usage bracket ending at UpTo kWh. A zero UpTo means the bracket is
// unbounded and must be last.
type Tier struct {
	UpTo decimal.Decimal `json:"upTo"`
	Cost decimal.Decimal `json:"cost"`
}

// Unbounded reports whether the tier has no upper limit.
func (t Tier) Unbounded() bool {
	return t.UpTo.IsZero()
}

// Surcharge adds CostPerKWh to every kWh above ThresholdKWh.
type Surcharge struct {
	ThresholdKWh decimal.Decimal `json:"thresholdKWh"`
	CostPerKWh   decimal.Decimal `json:"costPerKWh"`
}

// BasicFeeUnit defines what a basic fee amount is multiplied by.
type BasicFeeUnit string

const (
	// BasicFeeUnitMonth is a fixed charge per billing month.
	BasicFeeUnitMonth BasicFeeUnit = "month"
	// BasicFeeUnitKW is charged per kW of contract capacity.
	BasicFeeUnitKW BasicFeeUnit = "kw"
)

// BasicFee is a consumption independent charge. A fee with a Season only
// applies to bills in that season.
type BasicFee struct {
	Label  string          `json:"label"`
	Season string          `json:"season,omitempty"`
	Amount decimal.Decimal `json:"amount"`
	Unit   BasicFeeUnit    `json:"unit"`
	// Required is only meaningful for per-kW fees: the caller must supply the
	// contract capacity for this label.
	Required bool `json:"required"`
}

// Usage is the energy consumed in the billed interval, in kWh. ByPeriod is
// required for time-of-use rates.
type Usage struct {
	Total    decimal.Decimal            `json:"total"`
	ByPeriod map[string]decimal.Decimal `json:"byPeriod,omitempty"`
}

// BillingInputs carries the non-usage inputs of a bill.
type BillingInputs struct {
	// Date anchors the season of the bill.
	Date civil.Date `json:"date"`
	// ContractCapacity is the contracted kW per basic fee label.
	ContractCapacity map[string]decimal.Decimal `json:"contractCapacity,omitempty"`
	// Strict rejects contract capacity labels the plan does not know.
	Strict bool `json:"strict"`
}

// PricingContext is everything that applies to a single instant.
type PricingContext struct {
	Time     time.Time       `json:"time"`
	Season   string          `json:"season"`
	DayType  string          `json:"dayType"`
	Period   string          `json:"period"`
	UnitCost decimal.Decimal `json:"unitCost"`

	// SurchargeActive reports whether the plan carries a high usage surcharge.
	// Whether it is owed depends on the billed total, see Bill.
	SurchargeActive bool       `json:"surchargeActive"`
	Surcharge       *Surcharge `json:"surcharge,omitempty"`
}

// PricedInterval is a PricingContext held for [TSStart, TSEnd).
type PricedInterval struct {
	PricingContext
	TSStart time.Time `json:"tsStart"`
	TSEnd   time.Time `json:"tsEnd"`
}

// Bill is the breakdown of a computed bill.
type Bill struct {
	Season       string          `json:"season"`
	BasicFee     decimal.Decimal `json:"basicFee"`
	EnergyCharge decimal.Decimal `json:"energyCharge"`
	Surcharge    decimal.Decimal `json:"surcharge"`
	Total        decimal.Decimal `json:"total"`
}

// PlanInfo provides metadata about a tariff plan.
type PlanInfo struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Category       string   `json:"category"`
	SeasonStrategy string   `json:"seasonStrategy"`
	Variant        string   `json:"variant,omitempty"`
	Requires       []string `json:"requires,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}
