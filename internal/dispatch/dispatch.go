// Package dispatch builds and solves the per-interval battery dispatch LP
// for a single (bundle, rate plan) pairing, grounded on dispatch_lp.py's
// optimize_bill_lp in the engine this was ported from.
package dispatch

import (
	"errors"
	"fmt"
	"math"
	"time"

	"everwatt-battery-optimizer/internal/bundle"
	"everwatt-battery-optimizer/internal/lp"
	"everwatt-battery-optimizer/internal/tariff"
)

// ErrSolverFailure is the sentinel wrapped by a non-optimal solver status.
// The orchestrator treats it as a per-bundle skip, never an abort.
var ErrSolverFailure = errors.New("dispatch: solver failed")

// Options configures a single dispatch solve.
type Options struct {
	Zone                     *time.Location
	NoExport                 bool
	InterconnectKW           *float64
	InitialSOCFrac           float64 // default 0.5
	DegradationCostUSDPerMWh float64
}

func (o Options) withDefaults() Options {
	if o.Zone == nil {
		o.Zone = time.UTC
	}
	if o.InitialSOCFrac == 0 {
		o.InitialSOCFrac = 0.5
	}
	return o
}

// Solution is the dispatch LP's result: bill decomposition, throughput, peak
// maps, and the per-interval series, matching dispatch_lp.py's
// DispatchSolution.
type Solution struct {
	Status           lp.Status
	BillUSD          float64
	EnergyChargesUSD float64
	DemandChargesUSD float64
	FixedChargesUSD  float64
	ThroughputMWh    float64
	PeakMonthlyKW    map[string]float64
	PeakDailyKW      map[string]float64
	NetLoadKWSeries  []float64
	ChargeKWSeries   []float64
	DischargeKWSeries []float64
	SOCKWhSeries     []float64
}

// Solve builds and minimizes the dispatch LP for bundle b against rate plan
// against intervalHours-cadence tariff intervals.
func Solve(intervals []tariff.Interval, b bundle.Bundle, plan tariff.RatePlan, intervalHours float64, opts Options) (Solution, error) {
	opts = opts.withDefaults()
	if len(intervals) == 0 {
		return Solution{PeakMonthlyKW: map[string]float64{}, PeakDailyKW: map[string]float64{}}, nil
	}

	n := len(intervals)
	h := intervalHours
	p := b.TotalPowerKW
	e := b.TotalEnergyKWh
	etaC, etaD := splitEfficiency(b.RoundTripEfficiency)

	disUB := p
	if opts.InterconnectKW != nil {
		disUB = math.Min(p, *opts.InterconnectKW)
	}

	prob := lp.New()
	ch := make([]lp.VarID, n)
	dis := make([]lp.VarID, n)
	soc := make([]lp.VarID, n+1)
	for t := 0; t < n; t++ {
		ch[t] = prob.AddVar(0, p)
		dis[t] = prob.AddVar(0, disUB)
	}
	for t := 0; t <= n; t++ {
		soc[t] = prob.AddVar(0, e)
	}

	soc0 := math.Max(0, math.Min(e, opts.InitialSOCFrac*e))
	if err := prob.AddConstraint(map[lp.VarID]float64{soc[0]: 1}, lp.EQ, soc0); err != nil {
		return Solution{}, err
	}

	for t := 0; t < n; t++ {
		// soc[t+1] = soc[t] + (etaC*ch[t] - dis[t]/etaD) * h
		coeffs := map[lp.VarID]float64{
			soc[t+1]: 1,
			soc[t]:   -1,
			ch[t]:    -etaC * h,
			dis[t]:   h / etaD,
		}
		if err := prob.AddConstraint(coeffs, lp.EQ, 0); err != nil {
			return Solution{}, err
		}
	}

	if opts.NoExport {
		for t := 0; t < n; t++ {
			if err := prob.AddConstraint(map[lp.VarID]float64{dis[t]: 1}, lp.LE, intervals[t].KWBase); err != nil {
				return Solution{}, err
			}
		}
	}

	if b.ThroughputLimitKWh != nil {
		coeffs := make(map[lp.VarID]float64, n)
		for t := 0; t < n; t++ {
			coeffs[dis[t]] = h
		}
		if err := prob.AddConstraint(coeffs, lp.LE, *b.ThroughputLimitKWh); err != nil {
			return Solution{}, err
		}
	}

	type demKey struct {
		name, group string
	}
	monthlyDem := map[demKey]lp.VarID{}
	dailyDem := map[demKey]lp.VarID{}

	for _, comp := range plan.DemandComponents {
		for t := 0; t < n; t++ {
			local := intervals[t].TS.In(opts.Zone)
			if !comp.Applies.Applies(intervals[t], local) {
				continue
			}
			var group string
			var store map[demKey]lp.VarID
			if comp.Kind == tariff.DemandMonthlyMax {
				group = intervals[t].MonthKey
				store = monthlyDem
			} else {
				group = intervals[t].DayKey
				store = dailyDem
			}
			key := demKey{comp.Name, group}
			d, ok := store[key]
			if !ok {
				d = prob.AddVar(0, math.Inf(1))
				store[key] = d
			}
			// base + ch - dis <= D  =>  ch - dis - D <= -base
			coeffs := map[lp.VarID]float64{ch[t]: 1, dis[t]: -1, d: -1}
			if err := prob.AddConstraint(coeffs, lp.LE, -intervals[t].KWBase); err != nil {
				return Solution{}, err
			}
		}
	}

	rateByName := make(map[string]float64, len(plan.DemandComponents))
	for _, comp := range plan.DemandComponents {
		rateByName[comp.Name] = comp.RatePerKW
	}

	degPerKWh := opts.DegradationCostUSDPerMWh / 1000.0
	obj := map[lp.VarID]float64{}
	for t := 0; t < n; t++ {
		er := plan.EnergyRates.Rate(intervals[t])
		obj[ch[t]] += er * h
		obj[dis[t]] += (-er + degPerKWh) * h
	}
	for k, v := range monthlyDem {
		obj[v] += rateByName[k.name]
	}
	for k, v := range dailyDem {
		obj[v] += rateByName[k.name]
	}
	prob.SetObjective(obj)

	status, err := prob.Minimize()
	if err != nil {
		return Solution{}, fmt.Errorf("dispatch: %w", err)
	}
	if status != lp.StatusOptimal {
		return Solution{Status: status}, fmt.Errorf("%w: status=%s", ErrSolverFailure, status)
	}

	chS := make([]float64, n)
	disS := make([]float64, n)
	socS := make([]float64, n+1)
	net := make([]float64, n)
	for t := 0; t < n; t++ {
		chS[t] = prob.Value(ch[t])
		disS[t] = prob.Value(dis[t])
		net[t] = intervals[t].KWBase + chS[t] - disS[t]
	}
	for t := 0; t <= n; t++ {
		socS[t] = prob.Value(soc[t])
	}

	var energyCharges float64
	for t := 0; t < n; t++ {
		energyCharges += plan.EnergyRates.Rate(intervals[t]) * net[t] * h
	}

	var demandCharges float64
	for k, v := range monthlyDem {
		demandCharges += prob.Value(v) * rateByName[k.name]
	}
	for k, v := range dailyDem {
		demandCharges += prob.Value(v) * rateByName[k.name]
	}

	months := map[string]struct{}{}
	for _, iv := range intervals {
		months[iv.MonthKey] = struct{}{}
	}
	fixed := plan.FixedMonthlyUSD * float64(len(months))

	peakMonthly := map[string]float64{}
	peakDaily := map[string]float64{}
	for t := 0; t < n; t++ {
		iv := intervals[t]
		if net[t] > peakMonthly[iv.MonthKey] {
			peakMonthly[iv.MonthKey] = net[t]
		}
		if net[t] > peakDaily[iv.DayKey] {
			peakDaily[iv.DayKey] = net[t]
		}
	}

	var throughputKWh float64
	for t := 0; t < n; t++ {
		throughputKWh += disS[t] * h
	}

	return Solution{
		Status:            status,
		BillUSD:           energyCharges + demandCharges + fixed,
		EnergyChargesUSD:  energyCharges,
		DemandChargesUSD:  demandCharges,
		FixedChargesUSD:   fixed,
		ThroughputMWh:     throughputKWh / 1000.0,
		PeakMonthlyKW:     peakMonthly,
		PeakDailyKW:       peakDaily,
		NetLoadKWSeries:   net,
		ChargeKWSeries:    chS,
		DischargeKWSeries: disS,
		SOCKWhSeries:      socS,
	}, nil
}

// splitEfficiency clamps RTE into (0.01, 0.999) and splits it symmetrically
// into charge/discharge efficiencies, matching dispatch_lp.py's
// _split_efficiency.
func splitEfficiency(roundTripEfficiency float64) (etaC, etaD float64) {
	rte := math.Max(0.01, math.Min(0.999, roundTripEfficiency))
	eta := math.Sqrt(rte)
	return eta, eta
}
