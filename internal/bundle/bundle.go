// Package bundle enumerates candidate battery bundles (integer SKU mixes)
// from a load curve, grounded on bundles.py's generate_candidate_bundles in
// the engine this was ported from.
package bundle

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"everwatt-battery-optimizer/internal/catalog"
	"everwatt-battery-optimizer/internal/ivl"
)

// Preference selects which greedy scoring emphasis _greedy_build uses when
// choosing which SKU to add next.
type Preference string

const (
	PreferPower    Preference = "power"
	PreferEnergy   Preference = "energy"
	PreferBalanced Preference = "balanced"
)

var recipes = []Preference{PreferBalanced, PreferPower, PreferEnergy}

// Bundle is a chosen integer mix of battery SKUs with derived aggregates.
type Bundle struct {
	SKUQty              map[string]int
	TotalPowerKW        float64
	TotalEnergyKWh      float64
	CapexUSD            float64
	RoundTripEfficiency float64
	// ThroughputLimitKWh is nil when at least one active SKU in the bundle
	// lacks a declared daily-cycle cap (all-or-nothing, see DESIGN.md).
	ThroughputLimitKWh *float64
}

// Options controls bundle enumeration.
type Options struct {
	Caps             int     // number of cap levels between peak and baseline
	VariationsPerCap int     // number of cheapest-SKU-unit variants per (cap, recipe)
	PBasePercentile  float64 // quantile used for the baseline cap floor, default 0.5
	MaxUnits         int     // per-bundle unit cap for the greedy builder, default 200
	InstallAdderFrac float64
	FixedSoftCostsUSD float64
}

func (o Options) withDefaults() Options {
	if o.Caps <= 0 {
		o.Caps = 15
	}
	if o.VariationsPerCap <= 0 {
		o.VariationsPerCap = 8
	}
	if o.PBasePercentile <= 0 {
		o.PBasePercentile = 0.5
	}
	if o.MaxUnits <= 0 {
		o.MaxUnits = 200
	}
	return o
}

// Generate enumerates candidate bundles against a normalized load series,
// sorted by (capex, total power, total energy) ascending.
func Generate(series ivl.Series, skus []catalog.SKU, opts Options) []Bundle {
	opts = opts.withDefaults()
	if len(series.Rows) == 0 {
		return nil
	}

	byID := make(map[string]catalog.SKU, len(skus))
	for _, s := range skus {
		byID[s.ID] = s
	}

	loads := make([]float64, len(series.Rows))
	for i, r := range series.Rows {
		loads[i] = r.KW
	}
	pPeak := maxOf(loads)

	sorted := append([]float64(nil), loads...)
	sort.Float64s(sorted)
	pBase := stat.Quantile(opts.PBasePercentile, stat.LinInterp, sorted, nil)

	capsKW := capLadder(pPeak, pBase, opts.Caps)

	dayLoads := map[string][]float64{}
	for _, r := range series.Rows {
		dayLoads[r.DayKey] = append(dayLoads[r.DayKey], r.KW)
	}
	dayCount := series.DayCount()

	dedup := map[string]Bundle{}

	for _, capKW := range capsKW {
		pNeed := math.Max(0, pPeak-capKW)
		eNeed := worstDayEnergyNeed(dayLoads, capKW, series.CadenceHours)

		for _, recipe := range recipes {
			qty, ok := greedyBuild(skus, pNeed, eNeed, opts.MaxUnits, recipe)
			if !ok || len(qty) == 0 {
				continue
			}

			variants := opts.VariationsPerCap
			if variants < 1 {
				variants = 1
			}
			for extra := 0; extra < variants; extra++ {
				qty2 := cloneQty(qty)
				if extra > 0 {
					cheapest, ok := cheapestActiveSKU(skus)
					if ok {
						qty2[cheapest.ID] += extra
					}
				}

				b, err := buildBundle(byID, qty2, dayCount, opts)
				if err != nil {
					continue
				}
				dedup[qtyKey(qty2)] = b
			}
		}
	}

	out := make([]Bundle, 0, len(dedup))
	for _, b := range dedup {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CapexUSD != out[j].CapexUSD {
			return out[i].CapexUSD < out[j].CapexUSD
		}
		if out[i].TotalPowerKW != out[j].TotalPowerKW {
			return out[i].TotalPowerKW < out[j].TotalPowerKW
		}
		return out[i].TotalEnergyKWh < out[j].TotalEnergyKWh
	})
	return out
}

func buildBundle(byID map[string]catalog.SKU, qty map[string]int, dayCount int, opts Options) (Bundle, error) {
	var totalP, totalE, rteNum, rteDen float64
	allHaveCap := len(qty) > 0
	var throughput float64

	for id, q := range qty {
		sku, ok := byID[id]
		if !ok {
			return Bundle{}, fmt.Errorf("unknown SKU %q", id)
		}
		totalP += float64(q) * sku.ContinuousPowerKW()
		e := float64(q) * sku.EnergyKWh
		totalE += e
		rteNum += e * sku.RoundTripEfficiency
		rteDen += e

		if sku.MaxCyclesPerDay == nil {
			allHaveCap = false
			continue
		}
		throughput += float64(q) * (*sku.MaxCyclesPerDay) * sku.EnergyKWh * float64(dayCount)
	}

	rte := 0.9
	if rteDen > 0 {
		rte = rteNum / rteDen
	}

	equipCost, err := catalog.EquipmentCost(byID, qty)
	if err != nil {
		return Bundle{}, err
	}
	capex := catalog.TotalCapex(equipCost, opts.InstallAdderFrac, opts.FixedSoftCostsUSD)

	var limit *float64
	if allHaveCap {
		v := throughput
		limit = &v
	}

	return Bundle{
		SKUQty:              qty,
		TotalPowerKW:        totalP,
		TotalEnergyKWh:      totalE,
		CapexUSD:            capex,
		RoundTripEfficiency: rte,
		ThroughputLimitKWh:  limit,
	}, nil
}

// greedyBuild adds units of the best-scoring active SKU (round-robin over
// the sorted candidate list) until both power and energy targets are met or
// maxUnits is reached. Returns ok=false when targets cannot be met within
// maxUnits. Mirrors _greedy_build.
func greedyBuild(skus []catalog.SKU, targetPowerKW, targetEnergyKWh float64, maxUnits int, prefer Preference) (map[string]int, bool) {
	candidates := make([]catalog.SKU, 0, len(skus))
	for _, s := range skus {
		if s.Active {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	score := func(s catalog.SKU) float64 {
		cost := s.Price1To10
		p := math.Max(1e-6, s.ContinuousPowerKW())
		e := math.Max(1e-6, s.EnergyKWh)
		cpKW := cost / p
		cpKWh := cost / e
		switch prefer {
		case PreferPower:
			return cpKW
		case PreferEnergy:
			return cpKWh
		default:
			return 0.5*cpKW + 0.5*cpKWh
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return score(candidates[i]) < score(candidates[j]) })

	qty := map[string]int{}
	var curP, curE float64
	total := 0
	i := 0
	for (curP < targetPowerKW || curE < targetEnergyKWh) && total < maxUnits {
		sku := candidates[i%len(candidates)]
		qty[sku.ID]++
		curP += sku.ContinuousPowerKW()
		curE += sku.EnergyKWh
		total++
		i++
		if targetPowerKW <= 0 && targetEnergyKWh <= 0 {
			break
		}
	}

	if curP < targetPowerKW || curE < targetEnergyKWh {
		return nil, false
	}
	return qty, true
}

func cheapestActiveSKU(skus []catalog.SKU) (catalog.SKU, bool) {
	var best catalog.SKU
	found := false
	for _, s := range skus {
		if !s.Active {
			continue
		}
		if !found || s.Price1To10 < best.Price1To10 {
			best = s
			found = true
		}
	}
	return best, found
}

func worstDayEnergyNeed(dayLoads map[string][]float64, capKW, cadenceHours float64) float64 {
	var worst float64
	for _, loads := range dayLoads {
		var sum float64
		for _, kw := range loads {
			sum += math.Max(0, kw-capKW)
		}
		e := sum * cadenceHours
		if e > worst {
			worst = e
		}
	}
	return worst
}

// capLadder returns `caps` levels descending from pPeak to pBase. When
// pBase >= pPeak (a flat or inverted load curve), collapses to the single
// level pPeak -- the flat-load edge case.
func capLadder(pPeak, pBase float64, caps int) []float64 {
	if pBase >= pPeak || caps <= 1 {
		return []float64{pPeak}
	}
	out := make([]float64, caps)
	step := (pBase - pPeak) / float64(caps-1)
	for i := 0; i < caps; i++ {
		out[i] = pPeak + step*float64(i)
	}
	return out
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func cloneQty(qty map[string]int) map[string]int {
	out := make(map[string]int, len(qty))
	for k, v := range qty {
		out[k] = v
	}
	return out
}

func qtyKey(qty map[string]int) string {
	ids := make([]string, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s:%d", id, qty[id]))
	}
	return strings.Join(parts, "|")
}
