package bundle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"everwatt-battery-optimizer/internal/catalog"
	"everwatt-battery-optimizer/internal/ivl"
)

func sampleSKUs() []catalog.SKU {
	cap1 := 4.0
	return []catalog.SKU{
		{ID: "small", EnergyKWh: 50, PowerKW: 25, CRate: 1, RoundTripEfficiency: 0.9, Active: true,
			Price1To10: 10000, Price11To20: 9500, Price21To50: 9000, Price51Plus: 8500, MaxCyclesPerDay: &cap1},
		{ID: "large", EnergyKWh: 200, PowerKW: 100, CRate: 1, RoundTripEfficiency: 0.92, Active: true,
			Price1To10: 30000, Price11To20: 29000, Price21To50: 28000, Price51Plus: 27000, MaxCyclesPerDay: &cap1},
		{ID: "inactive", EnergyKWh: 1000, PowerKW: 1000, CRate: 1, RoundTripEfficiency: 0.95, Active: false,
			Price1To10: 1, Price11To20: 1, Price21To50: 1, Price51Plus: 1},
	}
}

func sampleSeries() ivl.Series {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]ivl.Row, 0, 48)
	for d := 0; d < 2; d++ {
		for h := 0; h < 24; h++ {
			ts := start.AddDate(0, 0, d).Add(time.Duration(h) * time.Hour)
			kw := 100.0
			if h >= 14 && h < 18 {
				kw = 300.0
			}
			rows = append(rows, ivl.Row{TS: ts, KW: kw, MonthKey: "2024-06", DayKey: ts.Format("2006-01-02")})
		}
	}
	return ivl.Series{Rows: rows, CadenceHours: 1}
}

func TestGenerate_ProducesSortedNonEmptyBundles(t *testing.T) {
	bundles := Generate(sampleSeries(), sampleSKUs(), Options{Caps: 5, VariationsPerCap: 3})
	require.NotEmpty(t, bundles)
	for _, b := range bundles {
		for id, qty := range b.SKUQty {
			assert.Greater(t, qty, 0, "sku %s", id)
		}
		assert.Greater(t, b.TotalPowerKW, 0.0)
	}
	for i := 1; i < len(bundles); i++ {
		assert.LessOrEqual(t, bundles[i-1].CapexUSD, bundles[i].CapexUSD)
	}
}

func TestGenerate_ExcludesInactiveSKUs(t *testing.T) {
	bundles := Generate(sampleSeries(), sampleSKUs(), Options{Caps: 3, VariationsPerCap: 1})
	for _, b := range bundles {
		_, used := b.SKUQty["inactive"]
		assert.False(t, used)
	}
}

func TestGenerate_FlatLoadCollapsesToSingleCap(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]ivl.Row, 0, 24)
	for h := 0; h < 24; h++ {
		ts := start.Add(time.Duration(h) * time.Hour)
		rows = append(rows, ivl.Row{TS: ts, KW: 50, MonthKey: "2024-01", DayKey: "2024-01-01"})
	}
	series := ivl.Series{Rows: rows, CadenceHours: 1}
	caps := capLadder(50, 50, 15)
	assert.Len(t, caps, 1)

	bundles := Generate(series, sampleSKUs(), Options{Caps: 15, VariationsPerCap: 2})
	// All emitted bundles must come from the single collapsed cap level; none should error.
	for _, b := range bundles {
		assert.Greater(t, b.TotalEnergyKWh, 0.0)
	}
}

func TestThroughputLimit_NilWhenAnySKULacksCap(t *testing.T) {
	skus := sampleSKUs()
	skus[1].MaxCyclesPerDay = nil // "large" now lacks a cap
	byID := map[string]catalog.SKU{"small": skus[0], "large": skus[1]}
	b, err := buildBundle(byID, map[string]int{"small": 2, "large": 1}, 10, Options{})
	require.NoError(t, err)
	assert.Nil(t, b.ThroughputLimitKWh)
}

func TestThroughputLimit_SetWhenAllSKUsDeclareCap(t *testing.T) {
	skus := sampleSKUs()
	byID := map[string]catalog.SKU{"small": skus[0], "large": skus[1]}
	b, err := buildBundle(byID, map[string]int{"small": 2, "large": 1}, 10, Options{})
	require.NoError(t, err)
	require.NotNil(t, b.ThroughputLimitKWh)
	want := (2*4.0*50.0 + 1*4.0*200.0) * 10
	assert.InDelta(t, want, *b.ThroughputLimitKWh, 1e-6)
}

func TestGreedyBuild_InfeasibleReturnsFalse(t *testing.T) {
	_, ok := greedyBuild(nil, 100, 100, 10, PreferBalanced)
	assert.False(t, ok)
}

func TestGreedyBuild_ZeroTargetsYieldEmptyQty(t *testing.T) {
	qty, ok := greedyBuild(sampleSKUs(), 0, 0, 10, PreferBalanced)
	assert.True(t, ok)
	assert.Empty(t, qty)
}
