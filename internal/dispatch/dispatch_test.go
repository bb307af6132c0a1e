package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"everwatt-battery-optimizer/internal/bundle"
	"everwatt-battery-optimizer/internal/tariff"
)

func flatEnergyOnlyPlan(rate float64) tariff.RatePlan {
	return tariff.RatePlan{
		Name: "flat",
		EnergyRates: tariff.EnergyRateTable{
			tariff.SeasonSummer: {tariff.TOUOn: rate, tariff.TOUPart: rate, tariff.TOUOff: rate},
			tariff.SeasonWinter: {tariff.TOUOn: rate, tariff.TOUOff: rate},
		},
	}
}

func buildIntervals(kws []float64, start time.Time) []tariff.Interval {
	out := make([]tariff.Interval, len(kws))
	for i, kw := range kws {
		ts := start.Add(time.Duration(i) * time.Hour)
		out[i] = tariff.Interval{
			TS: ts, KWBase: kw, KWhBase: kw,
			MonthKey: ts.Format("2006-01"), DayKey: ts.Format("2006-01-02"),
			Season: tariff.SeasonSummer, TOU: tariff.TOUOn,
		}
	}
	return out
}

func TestSolve_EmptyIntervalsReturnsZeroSolution(t *testing.T) {
	sol, err := Solve(nil, bundle.Bundle{}, flatEnergyOnlyPlan(0.2), 1, Options{})
	require.NoError(t, err)
	assert.Zero(t, sol.BillUSD)
}

func TestSolve_NoExportCapsDischargeAtBaseLoad(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	intervals := buildIntervals([]float64{10, 10, 10, 10}, start)
	b := bundle.Bundle{TotalPowerKW: 50, TotalEnergyKWh: 100, RoundTripEfficiency: 0.9}

	sol, err := Solve(intervals, b, flatEnergyOnlyPlan(0.2), 1, Options{NoExport: true})
	require.NoError(t, err)
	for _, d := range sol.DischargeKWSeries {
		assert.LessOrEqual(t, d, 10.0+1e-6)
	}
}

func TestSolve_ZeroPowerBundleForcesZeroDispatch(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	intervals := buildIntervals([]float64{10, 20, 10}, start)
	b := bundle.Bundle{TotalPowerKW: 0, TotalEnergyKWh: 0, RoundTripEfficiency: 0.9}

	sol, err := Solve(intervals, b, flatEnergyOnlyPlan(0.2), 1, Options{NoExport: true})
	require.NoError(t, err)
	for _, c := range sol.ChargeKWSeries {
		assert.InDelta(t, 0, c, 1e-6)
	}
	for _, d := range sol.DischargeKWSeries {
		assert.InDelta(t, 0, d, 1e-6)
	}
	// With no battery action, energy charges equal the baseline energy bill.
	assert.InDelta(t, (10+20+10)*0.2, sol.EnergyChargesUSD, 1e-6)
}

func TestSolve_ThroughputBudgetLimitsCumulativeDischarge(t *testing.T) {
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	// High daytime demand charge incentive: a single demand component over all hours.
	intervals := buildIntervals([]float64{100, 100, 100, 100}, start)
	plan := flatEnergyOnlyPlan(0.0)
	plan.DemandComponents = []tariff.DemandComponent{
		{Kind: tariff.DemandMonthlyMax, Name: "all", RatePerKW: 10, Applies: tariff.Always},
	}
	limit := 50.0
	b := bundle.Bundle{TotalPowerKW: 100, TotalEnergyKWh: 200, RoundTripEfficiency: 0.9, ThroughputLimitKWh: &limit}

	sol, err := Solve(intervals, b, plan, 1, Options{NoExport: false})
	require.NoError(t, err)
	var totalDischargeKWh float64
	for _, d := range sol.DischargeKWSeries {
		totalDischargeKWh += d * 1
	}
	assert.LessOrEqual(t, totalDischargeKWh, limit+1e-6)
}

func TestSolve_WellFormedSolveReturnsNoSolverFailure(t *testing.T) {
	// Checks the other side of the ErrSolverFailure contract: a deliberately
	// tiny but well-formed bundle solves optimally, so Solve returns no error.
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	intervals := buildIntervals([]float64{10}, start)
	b := bundle.Bundle{TotalPowerKW: 5, TotalEnergyKWh: 5, RoundTripEfficiency: 0.9}
	_, err := Solve(intervals, b, flatEnergyOnlyPlan(0.2), 1, Options{})
	require.NoError(t, err)
}
