// Package analysis computes a pre-flight "arbitrage potential" summary per
// candidate site, so cmd/optimizer's rank subcommand can triage which
// interval series are worth running the full bundle search on before
// paying for the LP sweep. Adapted from the teacher's LMP-spread ranking
// onto this domain's tariff energy-rate spread.
package analysis

import (
	"math"
	"sort"
	"time"

	"everwatt-battery-optimizer/internal/tariff"
)

// ArbitragePotential is a site-level summary usable for ranking, built from
// a tariff interval series and its energy rate table. It intentionally
// doesn't depend on a specific battery size -- it includes both raw rate
// statistics and an "oracle" profit for a canonical 1kW/1kWh battery.
type ArbitragePotential struct {
	Site string

	Start time.Time
	End   time.Time

	Count int

	MinRate  float64
	MaxRate  float64
	MeanRate float64
	P05Rate  float64
	P95Rate  float64

	SpreadP95P05 float64

	// OracleProfitUSD is the profit from a canonical battery:
	// - 1 kW power, 1 kWh energy, 100% efficiency, no degradation
	// - SOC bounds [0,1], initial SOC 0.5 rounded to the nearest SOC step
	//   (a full 1 kWh at hourly cadence); the final SOC is unconstrained
	// - dispatch choices {-1, 0, +1} kW each interval, valued at the
	//   interval's energy rate (not LMP -- there is no wholesale market
	//   signal in this domain, only the tariff's own $/kWh schedule).
	OracleProfitUSD float64
}

// ComputePotential summarizes one site's tariff intervals under rates.
func ComputePotential(site string, intervals []tariff.Interval, rates tariff.EnergyRateTable) ArbitragePotential {
	p := ArbitragePotential{Site: site}
	if len(intervals) == 0 {
		return p
	}
	p.Count = len(intervals)
	p.Start = intervals[0].TS
	p.End = intervals[len(intervals)-1].TS

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(intervals))
	for _, iv := range intervals {
		v := rates.Rate(iv)
		vals = append(vals, v)
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
	}
	sort.Float64s(vals)
	p.MinRate = minv
	p.MaxRate = maxv
	p.MeanRate = sum / float64(len(vals))
	p.P05Rate = percentileSorted(vals, 0.05)
	p.P95Rate = percentileSorted(vals, 0.95)
	p.SpreadP95P05 = p.P95Rate - p.P05Rate

	p.OracleProfitUSD = oracleProfitCanonical(intervals, rates)
	return p
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// oracleProfitCanonical computes a best-effort upper bound via a simple DP
// over a canonical 1kW/1kWh battery's SOC, dispatched against the tariff's
// own energy rate instead of a wholesale LMP signal.
func oracleProfitCanonical(intervals []tariff.Interval, rates tariff.EnergyRateTable) float64 {
	if len(intervals) < 2 {
		return 0
	}
	dt := intervals[1].TS.Sub(intervals[0].TS).Hours()
	if dt <= 0 {
		return 0
	}
	stepSOC := dt
	steps := int(math.Round(1.0 / stepSOC))
	if steps < 1 {
		steps = 1
	}
	nStates := steps + 1
	negInf := -1e100
	dp := make([]float64, nStates)
	next := make([]float64, nStates)
	for i := range dp {
		dp[i] = negInf
	}
	init := int(math.Round(0.5 * float64(steps)))
	if init < 0 {
		init = 0
	}
	if init > steps {
		init = steps
	}
	dp[init] = 0

	for _, iv := range intervals {
		for i := range next {
			next[i] = negInf
		}
		rate := rates.Rate(iv)

		for socIdx := 0; socIdx <= steps; socIdx++ {
			if dp[socIdx] <= negInf/2 {
				continue
			}
			if dp[socIdx] > next[socIdx] {
				next[socIdx] = dp[socIdx]
			}
			if socIdx < steps {
				gain := -(rate * dt)
				if dp[socIdx]+gain > next[socIdx+1] {
					next[socIdx+1] = dp[socIdx] + gain
				}
			}
			if socIdx > 0 {
				gain := rate * dt
				if dp[socIdx]+gain > next[socIdx-1] {
					next[socIdx-1] = dp[socIdx] + gain
				}
			}
		}
		dp, next = next, dp
	}

	best := negInf
	for _, v := range dp {
		if v > best {
			best = v
		}
	}
	if best <= negInf/2 {
		return 0
	}
	return best
}
