package tariff

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/raterudder/tou/pkg/calendar"
	"github.com/raterudder/tou/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

var superPeakSlots = []SlotDecl{
	{Start: "00:00", End: "12:00", Period: "off_peak"},
	{Start: "12:00", End: "18:00", Period: "super_peak"},
	{Start: "18:00", End: "00:00", Period: "off_peak"},
}

func testSeasons() *RangeStrategy {
	return NewSummerStrategy(md(time.June, 1), md(time.September, 30))
}

func testDayTypes() *WeekdayDayType {
	return NewWeekdayDayType(calendar.NewExplicit(nil))
}

// testProfile only declares summer schedules.
func testProfile(t *testing.T, opts ...ProfileOption) *Profile {
	t.Helper()
	opts = append([]ProfileOption{WithLocation(time.UTC)}, opts...)
	p, err := BuildProfile("test", testSeasons(), testDayTypes(), []ScheduleDecl{
		{Season: SeasonSummer, DayType: DayTypeWeekday, Slots: superPeakSlots},
		{Season: SeasonSummer, DayType: DayTypeWeekend, Slots: []SlotDecl{{Start: "00:00", End: "00:00", Period: "off_peak"}}},
	}, opts...)
	require.NoError(t, err)
	return p
}

func TestProfilePeriodOf(t *testing.T) {
	p := testProfile(t)

	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{"midday", time.Date(2025, 7, 1, 13, 0, 0, 0, time.UTC), "super_peak"},
		{"start boundary", time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), "super_peak"},
		{"before start", time.Date(2025, 7, 1, 11, 59, 0, 0, time.UTC), "off_peak"},
		{"seconds ignored", time.Date(2025, 7, 1, 11, 59, 59, 0, time.UTC), "off_peak"},
		{"end boundary", time.Date(2025, 7, 1, 18, 0, 0, 0, time.UTC), "off_peak"},
		{"before end", time.Date(2025, 7, 1, 17, 59, 0, 0, time.UTC), "super_peak"},
		{"midnight", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), "off_peak"},
		{"last minute", time.Date(2025, 7, 1, 23, 59, 0, 0, time.UTC), "off_peak"},
		{"weekend", time.Date(2025, 7, 5, 13, 0, 0, 0, time.UTC), "off_peak"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.PeriodOf(tt.ts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			got, err = PeriodOf(tt.ts, p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProfileResolve(t *testing.T) {
	t.Run("converts to the profile location", func(t *testing.T) {
		taipei := time.FixedZone("CST", 8*60*60)
		p := testProfile(t, WithLocation(taipei))

		res, err := p.Resolve(time.Date(2025, 7, 1, 5, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, "super_peak", res.Period)
		assert.Equal(t, date(2025, 7, 1), res.Date)
		assert.Equal(t, types.NewTimeOfDay(13, 0), res.TimeOfDay)
		assert.Equal(t, SeasonSummer, res.Season)
		assert.Equal(t, DayTypeWeekday, res.DayType)

		// 2025-07-04 20:00 UTC is Saturday morning in Taipei
		res, err = p.Resolve(time.Date(2025, 7, 4, 20, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, DayTypeWeekend, res.DayType)
	})

	t.Run("vectorised", func(t *testing.T) {
		p := testProfile(t)
		base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
		got, err := p.Periods([]time.Time{
			base.Add(13 * time.Hour),
			base.Add(2 * time.Hour),
			base.Add(12 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"super_peak", "off_peak", "super_peak"}, got)

		got, err = p.Periods(nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("missing schedule", func(t *testing.T) {
		p := testProfile(t)
		_, err := p.PeriodOf(time.Date(2025, 1, 7, 13, 0, 0, 0, time.UTC))
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrScheduleNotFound))
		assert.False(t, errors.Is(err, types.ErrSlotNotFound))
		assert.False(t, errors.Is(err, types.ErrSeasonNotFound))

		var snf *types.ScheduleNotFoundError
		require.True(t, errors.As(err, &snf))
		assert.Equal(t, SeasonNonSummer, snf.Season)
		assert.Equal(t, DayTypeWeekday, snf.DayType)
	})

	t.Run("schedule gap", func(t *testing.T) {
		// bypasses NewProfile validation to simulate a malformed table
		p := &Profile{
			name:     "gap",
			seasons:  testSeasons(),
			dayTypes: testDayTypes(),
			schedules: map[scheduleKey]types.Schedule{
				{season: SeasonSummer, dayType: DayTypeWeekday}: {
					Season:  SeasonSummer,
					DayType: DayTypeWeekday,
					Slots:   []types.TimeSlot{{Start: 0, End: types.NewTimeOfDay(12, 0), Period: "off_peak"}},
				},
			},
		}
		_, err := p.PeriodOf(time.Date(2025, 7, 1, 13, 0, 0, 0, time.UTC))
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrSlotNotFound))
		assert.False(t, errors.Is(err, types.ErrScheduleNotFound))

		var snf *types.SlotNotFoundError
		require.True(t, errors.As(err, &snf))
		assert.Equal(t, types.NewTimeOfDay(13, 0), snf.Time)
	})

	t.Run("uncovered season", func(t *testing.T) {
		seasons := NewRangeStrategy(types.SeasonRange{Name: SeasonSummer, Start: md(time.June, 1), End: md(time.September, 30)})
		p, err := NewProfile("partial", seasons, testDayTypes(), nil)
		require.NoError(t, err)
		_, err = p.PeriodOf(time.Date(2025, 1, 7, 13, 0, 0, 0, time.UTC))
		assert.True(t, errors.Is(err, types.ErrSeasonNotFound))
	})
}

func TestNewProfileValidation(t *testing.T) {
	tests := []struct {
		name  string
		slots []SlotDecl
	}{
		{"gap", []SlotDecl{
			{Start: "00:00", End: "12:00", Period: "off_peak"},
			{Start: "13:00", End: "00:00", Period: "peak"},
		}},
		{"overlap", []SlotDecl{
			{Start: "00:00", End: "12:00", Period: "off_peak"},
			{Start: "11:00", End: "00:00", Period: "peak"},
		}},
		{"short of midnight", []SlotDecl{
			{Start: "00:00", End: "23:00", Period: "off_peak"},
		}},
		{"empty slot", []SlotDecl{
			{Start: "00:00", End: "00:00", Period: "off_peak"},
			{Start: "12:00", End: "12:00", Period: "peak"},
		}},
		{"no period", []SlotDecl{
			{Start: "00:00", End: "00:00"},
		}},
		{"bad time", []SlotDecl{
			{Start: "00:00", End: "25:00", Period: "off_peak"},
		}},
		{"no slots", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildProfile("bad", testSeasons(), testDayTypes(), []ScheduleDecl{
				{Season: SeasonSummer, DayType: DayTypeWeekday, Slots: tt.slots},
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrInvalidDeclaration))
		})
	}

	t.Run("out of order slots are accepted", func(t *testing.T) {
		p, err := BuildProfile("unordered", testSeasons(), testDayTypes(), []ScheduleDecl{
			{Season: SeasonSummer, DayType: DayTypeWeekday, Slots: []SlotDecl{
				{Start: "12:00", End: "00:00", Period: "peak"},
				{Start: "00:00", End: "12:00", Period: "off_peak"},
			}},
		}, WithLocation(time.UTC))
		require.NoError(t, err)
		got, err := p.PeriodOf(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, "peak", got)
	})

	t.Run("duplicate schedule", func(t *testing.T) {
		_, err := BuildProfile("dup", testSeasons(), testDayTypes(), []ScheduleDecl{
			{Season: SeasonSummer, DayType: DayTypeWeekday, Slots: superPeakSlots},
			{Season: SeasonSummer, DayType: DayTypeWeekday, Slots: superPeakSlots},
		})
		assert.True(t, errors.Is(err, types.ErrInvalidDeclaration))
	})

	t.Run("missing strategies", func(t *testing.T) {
		_, err := NewProfile("nil", nil, testDayTypes(), nil)
		assert.True(t, errors.Is(err, types.ErrInvalidDeclaration))
	})
}

func TestProfileSchedule(t *testing.T) {
	p := testProfile(t)
	s, err := p.Schedule(SeasonSummer, DayTypeWeekday)
	require.NoError(t, err)
	require.Len(t, s.Slots, 3)
	assert.Equal(t, types.EndOfDay, s.Slots[2].End)

	season, err := p.SeasonOf(civil.Date{Year: 2025, Month: time.August, Day: 1})
	require.NoError(t, err)
	assert.Equal(t, SeasonSummer, season)
}
