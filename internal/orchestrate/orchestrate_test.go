package orchestrate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"everwatt-battery-optimizer/internal/catalog"
	"everwatt-battery-optimizer/internal/ivl"
	"everwatt-battery-optimizer/internal/pricing"
)

func hourlyIntervals(kws []float64, start time.Time) []ivl.Interval {
	out := make([]ivl.Interval, len(kws))
	for i, kw := range kws {
		out[i] = ivl.Interval{Timestamp: start.Add(time.Duration(i) * time.Hour), KW: kw}
	}
	return out
}

func testSKU() catalog.SKU {
	return catalog.SKU{
		ID:                  "pack-a",
		Manufacturer:        "Acme",
		EnergyKWh:           50,
		PowerKW:             25,
		CRate:               1,
		RoundTripEfficiency: 0.9,
		WarrantyYears:       10,
		Price1To10:          20000,
		Price11To20:         19000,
		Price21To50:         18000,
		Price51Plus:         17000,
		Active:              true,
	}
}

func sampleIntervals() []ivl.Interval {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	kws := make([]float64, 24*14)
	for i := range kws {
		hour := i % 24
		if hour >= 14 && hour < 20 {
			kws[i] = 120
		} else {
			kws[i] = 30
		}
	}
	return hourlyIntervals(kws, start)
}

func TestRun_ProducesRankedResultsWithEngineOffers(t *testing.T) {
	cfg := Config{TopN: 5, CandidateCaps: 3, VariationsPerCap: 2}
	out, err := Run(context.Background(), sampleIntervals(), []catalog.SKU{testSKU()}, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)

	for i := 1; i < len(out.Results); i++ {
		ki, _ := bestOfferKey(out.Results[i-1])
		kj, _ := bestOfferKey(out.Results[i])
		assert.GreaterOrEqual(t, ki, kj)
	}
	assert.LessOrEqual(t, len(out.Results), cfg.withDefaults().TopN)
}

func TestRun_FiltersInactiveSKUs(t *testing.T) {
	inactive := testSKU()
	inactive.ID = "inactive"
	inactive.Active = false
	cfg := Config{TopN: 5, CandidateCaps: 3, VariationsPerCap: 2}
	out, err := Run(context.Background(), sampleIntervals(), []catalog.SKU{inactive}, cfg)
	require.NoError(t, err)
	for _, r := range out.Results {
		for id := range r.Bundle.SKUQty {
			assert.NotEqual(t, "inactive", id)
		}
	}
}

func TestRun_NoSKUsYieldsNoResults(t *testing.T) {
	out, err := Run(context.Background(), sampleIntervals(), nil, Config{})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
}

func TestBestOfferKey_PrefersEngineExpectedTSV(t *testing.T) {
	r := Result{
		Offers: []pricing.Offer{
			{Mode: pricing.ModeCustomerBenefit, TSV: 10},
			{Mode: pricing.ModeProfitMax, TSV: 50, GrossMarginUSD: 5000},
			{Mode: pricing.ModeEngine, TSV: 30, HasExpected: true, ExpectedTSV: 25, GrossMarginUSD: 3000},
		},
	}
	tsv, gm := bestOfferKey(r)
	assert.InDelta(t, 25, tsv, 1e-9)
	assert.InDelta(t, 3000, gm, 1e-9)
}

func TestBestOfferKey_FallsBackToProfitMaxThenFirstOffer(t *testing.T) {
	r := Result{Offers: []pricing.Offer{{Mode: pricing.ModeProfitMax, TSV: 40, GrossMarginUSD: 4000}}}
	tsv, gm := bestOfferKey(r)
	assert.InDelta(t, 40, tsv, 1e-9)
	assert.InDelta(t, 4000, gm, 1e-9)

	r2 := Result{Offers: []pricing.Offer{{Mode: pricing.ModeCustomerBenefit, TSV: 5, GrossMarginUSD: 0}}}
	tsv2, _ := bestOfferKey(r2)
	assert.InDelta(t, 5, tsv2, 1e-9)
}
