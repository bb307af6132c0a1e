// Package tariff models commercial time-of-use rate plans as data, not code.
// Energy rates and demand-component applicability are tagged variants rather
// than callables, the way base.py's RatePlan and DemandComponent carry
// function-valued fields in the engine this was ported from -- reimplemented
// here so the evaluator stays deterministic and the plan itself stays
// serializable.
package tariff

import (
	"time"

	"everwatt-battery-optimizer/internal/ivl"
)

// TOUBucket classifies an interval into on/partial/off peak.
type TOUBucket string

const (
	TOUOn   TOUBucket = "on"
	TOUPart TOUBucket = "part"
	TOUOff  TOUBucket = "off"
)

// Season is the rate-plan season an interval falls into.
type Season string

const (
	SeasonSummer Season = "summer"
	SeasonWinter Season = "winter"
	SeasonAny    Season = "any"
)

// Interval is a normalized demand interval enriched with a TOU bucket and
// billing keys, the Go analogue of base.py's TariffInterval.
type Interval struct {
	TS       time.Time
	KWBase   float64
	KWhBase  float64
	MonthKey string
	DayKey   string
	TOU      TOUBucket
	Season   Season
}

// TOUMapper assigns a TOU bucket (and season) to a local timestamp. Plans
// supply their own mapper since the bucket boundaries are plan-specific.
type TOUMapper func(localTS time.Time) (Season, TOUBucket)

// ToTariffIntervals enriches a normalized series with TOU/season keys under
// the given zone, the Go analogue of base.py's to_tariff_intervals.
func ToTariffIntervals(series ivl.Series, zone *time.Location, mapper TOUMapper) []Interval {
	if zone == nil {
		zone = time.UTC
	}
	out := make([]Interval, 0, len(series.Rows))
	for _, r := range series.Rows {
		local := r.TS.In(zone)
		season, tou := mapper(local)
		out = append(out, Interval{
			TS:       r.TS,
			KWBase:   r.KW,
			KWhBase:  r.KW * series.CadenceHours,
			MonthKey: r.MonthKey,
			DayKey:   r.DayKey,
			TOU:      tou,
			Season:   season,
		})
	}
	return out
}

// HourWindow is a half-open local-hour range [Start, End).
type HourWindow struct {
	Start, End int
}

func (w HourWindow) contains(hour int) bool {
	return hour >= w.Start && hour < w.End
}

// Predicate is a tagged-variant applicability test over a tariff interval,
// replacing the source's function-valued predicates so plans stay pure data.
type Predicate struct {
	// Season restricts to a season, or SeasonAny to match every season.
	Season Season
	// TOU restricts to a TOU bucket; empty string matches every bucket.
	TOU TOUBucket
	// HourWindows, if non-empty, requires the interval's local hour to fall
	// in at least one window. Weekends are never excluded by a window alone;
	// combine with WeekdaysOnly when needed.
	HourWindows []HourWindow
	// ExcludeHourWindows, if non-empty, requires the interval's local hour to
	// fall outside every window listed (used by overlay plans whose demand
	// component applies everywhere except a carve-out window).
	ExcludeHourWindows []HourWindow
	// WeekdaysOnly excludes Saturday/Sunday when true.
	WeekdaysOnly bool
}

// Always matches every interval.
var Always = Predicate{Season: SeasonAny}

// Applies evaluates the predicate against an interval and its local
// timestamp (used for hour/weekday checks).
func (p Predicate) Applies(i Interval, local time.Time) bool {
	if p.Season != "" && p.Season != SeasonAny && p.Season != i.Season {
		return false
	}
	if p.TOU != "" && p.TOU != i.TOU {
		return false
	}
	if p.WeekdaysOnly {
		wd := local.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			return false
		}
	}
	h := local.Hour()
	if len(p.HourWindows) > 0 {
		matched := false
		for _, w := range p.HourWindows {
			if w.contains(h) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, w := range p.ExcludeHourWindows {
		if w.contains(h) {
			return false
		}
	}
	return true
}

// DemandKind distinguishes a monthly-peak from a daily-peak demand charge.
type DemandKind string

const (
	DemandMonthlyMax DemandKind = "monthlyMax"
	DemandDailyMax   DemandKind = "dailyMax"
)

// DemandComponent is one billable demand term: a rate applied to the peak
// kW over its applicable window, grouped by month or by day.
type DemandComponent struct {
	Kind      DemandKind
	Name      string
	RatePerKW float64
	Applies   Predicate
}

// EnergyRateTable is a (season, TOU) -> $/kWh lookup, replacing the
// source's energy_rate_per_kWh callable.
type EnergyRateTable map[Season]map[TOUBucket]float64

// Rate resolves the $/kWh for an interval's season and TOU bucket.
func (t EnergyRateTable) Rate(i Interval) float64 {
	bySeason, ok := t[i.Season]
	if !ok {
		return 0
	}
	return bySeason[i.TOU]
}

// RatePlan is a complete tariff: an energy rate table, an ordered list of
// demand components, and a flat monthly fixed charge.
type RatePlan struct {
	Name              string
	EnergyRates       EnergyRateTable
	DemandComponents  []DemandComponent
	FixedMonthlyUSD   float64
}

// ScenarioSpec names one tariff scenario the orchestrator evaluates a
// bundle against, the Go analogue of the source's TariffScenarioSpec.
type ScenarioSpec struct {
	ID   string
	Name string
	Kind string
}
