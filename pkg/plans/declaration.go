// Package plans loads tariff plan declarations and builds them into a
// catalog of ready to query plans.
package plans

import (
	"bytes"
	_ "embed"
	"errors"
	"io"
	"os"

	"github.com/raterudder/tou/pkg/tariff"
	"github.com/raterudder/tou/pkg/types"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultPlans []byte

// Season strategy names accepted in a plan declaration.
const (
	SeasonStrategyDefault     = "default"
	SeasonStrategyHighVoltage = "high_voltage"
)

// DefaultSurchargeThreshold applies when over_2000_kwh_surcharge omits one.
var DefaultSurchargeThreshold = decimal.NewFromInt(2000)

// Declaration is the top level of a plans file.
type Declaration struct {
	Version     string      `yaml:"version" json:"version"`
	Definitions Definitions `yaml:"definitions" json:"definitions"`
	Plans       []PlanDecl  `yaml:"plans" json:"plans"`
}

// Definitions are shared by every plan of a declaration.
type Definitions struct {
	Seasons            []SeasonDecl `yaml:"seasons" json:"seasons"`
	SeasonsHighVoltage []SeasonDecl `yaml:"seasons_high_voltage,omitempty" json:"seasons_high_voltage,omitempty"`
	Periods            []string     `yaml:"periods" json:"periods"`
	DayTypes           []string     `yaml:"day_types" json:"day_types"`
}

// SeasonDecl is a season range with "MM-DD" bounds.
type SeasonDecl struct {
	Name  string `yaml:"name" json:"name"`
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// DayTypeDecl maps a plan's day type labels. Omitted labels use the
// weekday/weekend defaults.
type DayTypeDecl struct {
	Weekday  string `yaml:"weekday,omitempty" json:"weekday,omitempty"`
	Weekend  string `yaml:"weekend,omitempty" json:"weekend,omitempty"`
	Holiday  string `yaml:"holiday,omitempty" json:"holiday,omitempty"`
	Saturday string `yaml:"saturday,omitempty" json:"saturday,omitempty"`
}

// FeeDecl is a basic fee. Unit defaults to month.
type FeeDecl struct {
	Label    string          `yaml:"label" json:"label"`
	Season   string          `yaml:"season,omitempty" json:"season,omitempty"`
	Amount   decimal.Decimal `yaml:"amount" json:"amount"`
	Unit     string          `yaml:"unit,omitempty" json:"unit,omitempty"`
	Required bool            `yaml:"required,omitempty" json:"required,omitempty"`
}

// TierDecl is one usage bracket of a season. An omitted up_to is unbounded.
type TierDecl struct {
	Season string          `yaml:"season" json:"season"`
	UpTo   decimal.Decimal `yaml:"up_to,omitempty" json:"up_to,omitempty"`
	Cost   decimal.Decimal `yaml:"cost" json:"cost"`
}

// SurchargeDecl is the high usage surcharge. An omitted threshold defaults to
// 2000 kWh; an explicit zero applies to every kWh.
type SurchargeDecl struct {
	ThresholdKWh *decimal.Decimal `yaml:"threshold_kwh,omitempty" json:"threshold_kwh,omitempty"`
	CostPerKWh   decimal.Decimal `yaml:"cost_per_kwh" json:"cost_per_kwh"`
}

// PlanDecl declares a single plan.
type PlanDecl struct {
	ID             string `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	Type           string `yaml:"type" json:"type"`
	Category       string `yaml:"category" json:"category"`
	SeasonStrategy string `yaml:"season_strategy" json:"season_strategy"`
	// Location is an IANA time zone name overriding the catalog's.
	Location string `yaml:"location,omitempty" json:"location,omitempty"`
	Variant  string `yaml:"variant,omitempty" json:"variant,omitempty"`
	Notes    string `yaml:"notes,omitempty" json:"notes,omitempty"`

	DayTypes  *DayTypeDecl            `yaml:"day_types,omitempty" json:"day_types,omitempty"`
	BasicFee  *decimal.Decimal        `yaml:"basic_fee,omitempty" json:"basic_fee,omitempty"`
	BasicFees []FeeDecl               `yaml:"basic_fees,omitempty" json:"basic_fees,omitempty"`
	Tiers     []TierDecl              `yaml:"tiers,omitempty" json:"tiers,omitempty"`
	Rates     []tariff.PeriodCostDecl `yaml:"rates,omitempty" json:"rates,omitempty"`
	Schedules []tariff.ScheduleDecl   `yaml:"schedules,omitempty" json:"schedules,omitempty"`

	Over2000KWhSurcharge *SurchargeDecl `yaml:"over_2000_kwh_surcharge,omitempty" json:"over_2000_kwh_surcharge,omitempty"`
}

// Load decodes a YAML or JSON plans document. Unknown fields are rejected.
func Load(data []byte) (*Declaration, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var d Declaration
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &types.InvalidDeclarationError{Where: "plans", Reason: "empty document"}
		}
		return nil, &types.InvalidDeclarationError{Where: "plans", Reason: err.Error()}
	}
	return &d, nil
}

// LoadFile reads and decodes a plans file.
func LoadFile(path string) (*Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// DefaultDeclaration returns the embedded plans.
func DefaultDeclaration() (*Declaration, error) {
	return Load(defaultPlans)
}
