package plans

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/raterudder/tou/pkg/calendar"
	"github.com/raterudder/tou/pkg/tariff"
	"github.com/raterudder/tou/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taipei = time.FixedZone("CST", 8*60*60)

func testCalendar() calendar.Calendar {
	return calendar.NewExplicit([]civil.Date{{Year: 2025, Month: time.October, Day: 10}}, time.Sunday)
}

func defaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default(testCalendar(), taipei)
	require.NoError(t, err)
	return c
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestDefaultCatalog(t *testing.T) {
	c := defaultCatalog(t)
	assert.Equal(t, "2024-10", c.Version())

	list := c.List()
	require.Len(t, list, 4)
	var ids []string
	for _, info := range list {
		ids = append(ids, info.ID)
	}
	assert.Equal(t, []string{"residential-tiered", "simple-two-stage", "simple-three-stage", "high-voltage-three-stage"}, ids)
	assert.Equal(t, "high_voltage", list[3].Category)
	assert.Equal(t, []string{tariff.RequiredContractCapacity}, list[3].Requires)
	assert.Empty(t, list[0].Requires)

	_, err := c.Plan("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrPlanNotFound))
}

func TestTieredPlan(t *testing.T) {
	p, err := defaultCatalog(t).Plan("residential-tiered")
	require.NoError(t, err)

	bill, err := p.Bill(types.Usage{Total: dec("400")}, types.BillingInputs{Date: civil.Date{Year: 2025, Month: time.July, Day: 1}})
	require.NoError(t, err)
	assert.Equal(t, tariff.SeasonSummer, bill.Season)
	assertDecimal(t, "975.1", bill.EnergyCharge)
	assertDecimal(t, "975.1", bill.Total)

	bill, err = p.Bill(types.Usage{Total: dec("400")}, types.BillingInputs{Date: civil.Date{Year: 2025, Month: time.January, Day: 1}})
	require.NoError(t, err)
	// 120*1.68 + 210*2.16 + 70*3.03
	assertDecimal(t, "867.3", bill.Total)

	pc, err := p.PricingContext(time.Date(2025, 7, 1, 13, 0, 0, 0, taipei))
	require.NoError(t, err)
	assert.Equal(t, tariff.FlatPeriod, pc.Period)
	assertDecimal(t, "1.68", pc.UnitCost)
}

func TestThreeStagePlan(t *testing.T) {
	p, err := defaultCatalog(t).Plan("simple-three-stage")
	require.NoError(t, err)

	tests := []struct {
		name    string
		ts      time.Time
		dayType string
		period  string
		cost    string
	}{
		{"summer weekday peak", time.Date(2025, 7, 1, 17, 0, 0, 0, taipei), "weekday", "peak", "6.92"},
		{"summer weekday peak from utc", time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC), "weekday", "peak", "6.92"},
		{"summer weekday semi peak", time.Date(2025, 7, 1, 22, 0, 0, 0, taipei), "weekday", "semi_peak", "4.54"},
		{"summer weekday off peak", time.Date(2025, 7, 1, 8, 59, 0, 0, taipei), "weekday", "off_peak", "2.06"},
		{"summer saturday", time.Date(2025, 7, 5, 17, 0, 0, 0, taipei), "saturday", "off_peak", "2.06"},
		{"summer sunday", time.Date(2025, 7, 6, 17, 0, 0, 0, taipei), "sunday_holiday", "off_peak", "2.06"},
		{"national day", time.Date(2025, 10, 10, 15, 0, 0, 0, taipei), "sunday_holiday", "off_peak", "1.99"},
		{"non summer midday", time.Date(2025, 1, 7, 12, 0, 0, 0, taipei), "weekday", "off_peak", "1.99"},
		{"non summer afternoon", time.Date(2025, 1, 7, 15, 0, 0, 0, taipei), "weekday", "semi_peak", "4.33"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc, err := p.PricingContext(tt.ts)
			require.NoError(t, err)
			assert.Equal(t, tt.dayType, pc.DayType)
			assert.Equal(t, tt.period, pc.Period)
			assertDecimal(t, tt.cost, pc.UnitCost)
			assert.True(t, pc.SurchargeActive)
		})
	}
}

func TestTwoStageBill(t *testing.T) {
	p, err := defaultCatalog(t).Plan("simple-two-stage")
	require.NoError(t, err)

	bill, err := p.Bill(types.Usage{ByPeriod: map[string]decimal.Decimal{
		"peak":     dec("1500"),
		"off_peak": dec("1000"),
	}}, types.BillingInputs{Date: civil.Date{Year: 2025, Month: time.August, Day: 1}})
	require.NoError(t, err)
	assertDecimal(t, "75", bill.BasicFee)
	assertDecimal(t, "9800", bill.EnergyCharge)
	assertDecimal(t, "510", bill.Surcharge)
	assertDecimal(t, "10385", bill.Total)
}

func TestHighVoltagePlan(t *testing.T) {
	p, err := defaultCatalog(t).Plan("high-voltage-three-stage")
	require.NoError(t, err)

	pc, err := p.PricingContext(time.Date(2025, 5, 20, 10, 0, 0, 0, taipei))
	require.NoError(t, err)
	assert.Equal(t, tariff.SeasonSummer, pc.Season)
	assert.Equal(t, "semi_peak", pc.Period)
	assertDecimal(t, "5.85", pc.UnitCost)

	pc, err = p.PricingContext(time.Date(2025, 5, 24, 10, 0, 0, 0, taipei))
	require.NoError(t, err)
	assert.Equal(t, "saturday", pc.DayType)
	assert.Equal(t, "saturday_semi_peak", pc.Period)
	assertDecimal(t, "2.61", pc.UnitCost)

	_, err = p.Bill(types.Usage{Total: dec("100")}, types.BillingInputs{Date: civil.Date{Year: 2025, Month: time.May, Day: 20}})
	assert.True(t, errors.Is(err, types.ErrMissingRequiredInput))

	bill, err := p.Bill(types.Usage{ByPeriod: map[string]decimal.Decimal{"off_peak": dec("1000")}}, types.BillingInputs{
		Date:             civil.Date{Year: 2025, Month: time.December, Day: 1},
		ContractCapacity: map[string]decimal.Decimal{"regular": dec("100"), "off_peak": dec("20")},
		Strict:           true,
	})
	require.NoError(t, err)
	assert.Equal(t, tariff.SeasonNonSummer, bill.Season)
	// 100*173.2 + 20*47.2
	assertDecimal(t, "18264", bill.BasicFee)
	assertDecimal(t, "2290", bill.EnergyCharge)
	assertDecimal(t, "20554", bill.Total)

	_, err = p.Bill(types.Usage{Total: dec("1")}, types.BillingInputs{
		Date:             civil.Date{Year: 2025, Month: time.December, Day: 1},
		ContractCapacity: map[string]decimal.Decimal{"regular": dec("100"), "peak": dec("20")},
		Strict:           true,
	})
	assert.True(t, errors.Is(err, types.ErrInvalidBasicFeeInput))
}

const jsonPlans = `{
  "version": "test",
  "definitions": {
    "seasons": [
      {"name": "summer", "start": "06-01", "end": "09-30"},
      {"name": "non_summer", "start": "10-01", "end": "05-31"}
    ],
    "periods": ["off_peak", "super_peak"],
    "day_types": ["weekday", "weekend"]
  },
  "plans": [{
    "id": "custom",
    "name": "Custom",
    "type": "tou",
    "category": "residential",
    "season_strategy": "default",
    "location": "UTC",
    "rates": [
      {"season": "summer", "period": "off_peak", "cost": 1.0},
      {"season": "summer", "period": "super_peak", "cost": 5.0},
      {"season": "non_summer", "period": "off_peak", "cost": 1.0}
    ],
    "schedules": [
      {"season": "summer", "day_type": "weekday", "slots": [
        {"start": "00:00", "end": "12:00", "period": "off_peak"},
        {"start": "12:00", "end": "18:00", "period": "super_peak"},
        {"start": "18:00", "end": "00:00", "period": "off_peak"}
      ]},
      {"season": "summer", "day_type": "weekend", "slots": [{"start": "00:00", "end": "00:00", "period": "off_peak"}]},
      {"season": "non_summer", "day_type": "weekday", "slots": [{"start": "00:00", "end": "00:00", "period": "off_peak"}]},
      {"season": "non_summer", "day_type": "weekend", "slots": [{"start": "00:00", "end": "00:00", "period": "off_peak"}]}
    ]
  }]
}`

func TestLoadJSON(t *testing.T) {
	decl, err := Load([]byte(jsonPlans))
	require.NoError(t, err)
	require.Len(t, decl.Plans, 1)
	assertDecimal(t, "5.0", decl.Plans[0].Rates[1].Cost)

	c, err := Build(decl, testCalendar(), taipei)
	require.NoError(t, err)
	p, err := c.Plan("custom")
	require.NoError(t, err)

	pc, err := p.PricingContext(time.Date(2025, 7, 1, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "super_peak", pc.Period)
	assertDecimal(t, "5.0", pc.UnitCost)
	assert.False(t, pc.SurchargeActive)
}

func TestSurchargeThreshold(t *testing.T) {
	build := func(t *testing.T, surcharge string) *tariff.Plan {
		t.Helper()
		doc := strings.Replace(jsonPlans, `"location": "UTC",`, `"location": "UTC", "over_2000_kwh_surcharge": `+surcharge+`,`, 1)
		decl, err := Load([]byte(doc))
		require.NoError(t, err)
		c, err := Build(decl, testCalendar(), taipei)
		require.NoError(t, err)
		p, err := c.Plan("custom")
		require.NoError(t, err)
		return p
	}
	usage := types.Usage{ByPeriod: map[string]decimal.Decimal{"off_peak": dec("10")}}
	inputs := types.BillingInputs{Date: civil.Date{Year: 2025, Month: time.July, Day: 1}}

	t.Run("explicit zero threshold", func(t *testing.T) {
		p := build(t, `{"threshold_kwh": 0, "cost_per_kwh": 0.5}`)
		require.NotNil(t, p.Rate.Surcharge())
		assertDecimal(t, "0", p.Rate.Surcharge().ThresholdKWh)

		bill, err := p.Bill(usage, inputs)
		require.NoError(t, err)
		assertDecimal(t, "10", bill.EnergyCharge)
		assertDecimal(t, "5", bill.Surcharge)
	})

	t.Run("omitted threshold defaults", func(t *testing.T) {
		p := build(t, `{"cost_per_kwh": 0.5}`)
		require.NotNil(t, p.Rate.Surcharge())
		assertDecimal(t, "2000", p.Rate.Surcharge().ThresholdKWh)

		bill, err := p.Bill(usage, inputs)
		require.NoError(t, err)
		assertDecimal(t, "0", bill.Surcharge)
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonPlans), 0o644))
	decl, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "test", decl.Version)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
	}{
		{"unknown field", [2]string{`"location": "UTC",`, `"location": "UTC", "colour": "red",`}},
		{"undefined period", [2]string{`"periods": ["off_peak", "super_peak"]`, `"periods": ["off_peak"]`}},
		{"undefined day type", [2]string{`"day_types": ["weekday", "weekend"]`, `"day_types": ["weekday"]`}},
		{"schedule gap", [2]string{`{"start": "12:00", "end": "18:00", "period": "super_peak"}`, `{"start": "13:00", "end": "18:00", "period": "super_peak"}`}},
		{"missing rate", [2]string{`{"season": "non_summer", "period": "off_peak", "cost": 1.0}`, `{"season": "non_summer", "period": "super_peak", "cost": 1.0}`}},
		{"season overlap", [2]string{`"end": "09-30"`, `"end": "10-30"`}},
		{"season gap", [2]string{`"end": "09-30"`, `"end": "09-29"`}},
		{"bad season date", [2]string{`"start": "06-01"`, `"start": "06-31"`}},
		{"unknown season strategy", [2]string{`"season_strategy": "default"`, `"season_strategy": "lunar"`}},
		{"high voltage without ranges", [2]string{`"season_strategy": "default"`, `"season_strategy": "high_voltage"`}},
		{"unknown location", [2]string{`"location": "UTC"`, `"location": "Mars/Olympus"`}},
		{"schedule for unknown season", [2]string{`{"season": "non_summer", "day_type": "weekend"`, `{"season": "winter", "day_type": "weekend"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(jsonPlans, tt.replace[0], tt.replace[1], 1)
			require.NotEqual(t, jsonPlans, doc)
			decl, err := Load([]byte(doc))
			if err == nil {
				_, err = Build(decl, testCalendar(), taipei)
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrInvalidDeclaration), err.Error())
		})
	}

	t.Run("duplicate id", func(t *testing.T) {
		decl, err := Load([]byte(jsonPlans))
		require.NoError(t, err)
		decl.Plans = append(decl.Plans, decl.Plans[0])
		_, err = Build(decl, testCalendar(), taipei)
		assert.True(t, errors.Is(err, types.ErrInvalidDeclaration))
	})

	t.Run("missing schedule", func(t *testing.T) {
		decl, err := Load([]byte(jsonPlans))
		require.NoError(t, err)
		decl.Plans[0].Schedules = decl.Plans[0].Schedules[:3]
		_, err = Build(decl, testCalendar(), taipei)
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrInvalidDeclaration))
		assert.Contains(t, err.Error(), "non_summer")
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := Load(nil)
		assert.True(t, errors.Is(err, types.ErrInvalidDeclaration))
	})
}

func TestSummary(t *testing.T) {
	decl, err := DefaultDeclaration()
	require.NoError(t, err)

	s := Summary(decl)
	assert.True(t, strings.HasPrefix(s, "# Plans Summary\n\nVersion: 2024-10\n"))
	assert.Contains(t, s, "- seasons:\n  - summer: 06-01 ~ 09-30\n  - non_summer: 10-01 ~ 05-31\n")
	assert.Contains(t, s, "- seasons_high_voltage:\n  - summer: 05-16 ~ 10-15\n")
	assert.Contains(t, s, "### Periods\n- peak, semi_peak, saturday_semi_peak, off_peak\n")
	assert.Contains(t, s, "| residential-tiered | Residential non-time-of-use | tiered | residential | default | tiers:12 |\n")
	assert.Contains(t, s, "| simple-two-stage | Simple time-of-use, two stage | tou | residential | default | basic_fee, rates:4, schedules:6, over_2000_kwh_surcharge |\n")
	assert.Contains(t, s, "| high-voltage-three-stage | High voltage time-of-use, three stage | tou | high_voltage | high_voltage | basic_fees, rates:7, schedules:6, fixed_schedule |\n")

	assert.Contains(t, Summary(&Declaration{Plans: []PlanDecl{{ID: "bare"}}}), "| bare |  |  |  |  | - |")
}
