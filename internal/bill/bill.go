// Package bill computes a deterministic tariff bill (no battery) from a
// series of tariff intervals and a rate plan, grounded on tariffs/bill.py's
// calculate_bill in the engine this was ported from.
package bill

import (
	"time"

	"everwatt-battery-optimizer/internal/tariff"
)

// Summary is the decomposed result of a bill calculation.
type Summary struct {
	BillUSD          float64
	EnergyChargesUSD float64
	DemandChargesUSD float64
	FixedChargesUSD  float64
	PeakKW           float64
	PeakMonthlyKW    map[string]float64
	PeakDailyKW      map[string]float64
}

// Calculate computes energy + demand + fixed charges for a billing period.
// Demand components are the max net kW over their applicable window, per
// month or per day depending on the component's kind. zone resolves the
// local wall clock used by the plan's hour/weekday predicates.
func Calculate(intervals []tariff.Interval, plan tariff.RatePlan, zone *time.Location) Summary {
	if zone == nil {
		zone = time.UTC
	}
	if len(intervals) == 0 {
		return Summary{
			PeakMonthlyKW: map[string]float64{},
			PeakDailyKW:   map[string]float64{},
		}
	}

	var energy float64
	for _, iv := range intervals {
		energy += plan.EnergyRates.Rate(iv) * iv.KWhBase
	}

	var demandTotal float64
	peakMonthly := map[string]float64{}
	peakDaily := map[string]float64{}

	for _, comp := range plan.DemandComponents {
		switch comp.Kind {
		case tariff.DemandMonthlyMax:
			byMonth := map[string]float64{}
			for _, iv := range intervals {
				if !comp.Applies.Applies(iv, iv.TS.In(zone)) {
					continue
				}
				if iv.KWBase > byMonth[iv.MonthKey] {
					byMonth[iv.MonthKey] = iv.KWBase
				}
			}
			for _, v := range byMonth {
				demandTotal += v * comp.RatePerKW
			}
		case tariff.DemandDailyMax:
			byDay := map[string]float64{}
			for _, iv := range intervals {
				if !comp.Applies.Applies(iv, iv.TS.In(zone)) {
					continue
				}
				if iv.KWBase > byDay[iv.DayKey] {
					byDay[iv.DayKey] = iv.KWBase
				}
			}
			for _, v := range byDay {
				demandTotal += v * comp.RatePerKW
			}
		}
	}

	months := map[string]struct{}{}
	for _, iv := range intervals {
		months[iv.MonthKey] = struct{}{}
	}
	fixed := plan.FixedMonthlyUSD * float64(len(months))

	var peak float64
	for _, iv := range intervals {
		if iv.KWBase > peak {
			peak = iv.KWBase
		}
		if iv.KWBase > peakMonthly[iv.MonthKey] {
			peakMonthly[iv.MonthKey] = iv.KWBase
		}
		if iv.KWBase > peakDaily[iv.DayKey] {
			peakDaily[iv.DayKey] = iv.KWBase
		}
	}

	return Summary{
		BillUSD:          energy + demandTotal + fixed,
		EnergyChargesUSD: energy,
		DemandChargesUSD: demandTotal,
		FixedChargesUSD:  fixed,
		PeakKW:           peak,
		PeakMonthlyKW:    peakMonthly,
		PeakDailyKW:      peakDaily,
	}
}
