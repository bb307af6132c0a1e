package tariff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"everwatt-battery-optimizer/internal/ivl"
)

func TestPGEB19Mapper_WeekendIsOff(t *testing.T) {
	// 2024-06-01 is a Saturday.
	ts := time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC)
	season, tou := PGEB19Mapper(ts)
	assert.Equal(t, SeasonSummer, season)
	assert.Equal(t, TOUOff, tou)
}

func TestPGEB19Mapper_SummerOnPeak(t *testing.T) {
	// 2024-06-03 is a Monday.
	ts := time.Date(2024, 6, 3, 17, 0, 0, 0, time.UTC)
	season, tou := PGEB19Mapper(ts)
	assert.Equal(t, SeasonSummer, season)
	assert.Equal(t, TOUOn, tou)
}

func TestPGEB19Mapper_SummerPartPeak(t *testing.T) {
	ts := time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)
	_, tou := PGEB19Mapper(ts)
	assert.Equal(t, TOUPart, tou)
}

func TestPGEB19Mapper_WinterOffPeakOutsideWindow(t *testing.T) {
	ts := time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)
	season, tou := PGEB19Mapper(ts)
	assert.Equal(t, SeasonWinter, season)
	assert.Equal(t, TOUOff, tou)
}

func TestPredicate_HourWindowAndExclusion(t *testing.T) {
	p := Predicate{Season: SeasonAny, ExcludeHourWindows: []HourWindow{{9, 14}}}
	in := Interval{Season: SeasonSummer, TOU: TOUOff}
	local9 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	local20 := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	assert.False(t, p.Applies(in, local9))
	assert.True(t, p.Applies(in, local20))
}

func TestEnergyRateTable_Rate(t *testing.T) {
	rates := DefaultPGEB19Rates()
	plan := BuildPGEB19RatePlan("test", rates)
	iv := Interval{Season: SeasonSummer, TOU: TOUOn}
	assert.InDelta(t, rates.SummerOnPeak, plan.EnergyRates.Rate(iv), 1e-9)
}

func TestToTariffIntervals_AssignsTOUAndKWh(t *testing.T) {
	series := ivl.Series{
		CadenceHours: 1,
		Rows: []ivl.Row{
			{TS: time.Date(2024, 6, 3, 17, 0, 0, 0, time.UTC), KW: 100, MonthKey: "2024-06", DayKey: "2024-06-03"},
		},
	}
	out := ToTariffIntervals(series, time.UTC, PGEB19Mapper)
	assert.Len(t, out, 1)
	assert.Equal(t, TOUOn, out[0].TOU)
	assert.InDelta(t, 100, out[0].KWhBase, 1e-9)
}

func TestOptionSEligibility_TrailingTwelveMonths(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	intervals := []Interval{
		{TS: base, KWBase: 500},
		{TS: base.AddDate(0, 6, 0), KWBase: 1000},
		{TS: base.AddDate(1, 0, 1), KWBase: 50},
	}
	peak, minReq := OptionSEligibility(intervals)
	assert.InDelta(t, 1000, peak, 1e-6)
	assert.InDelta(t, 100, minReq, 1e-6)
}
