// Package ivl normalizes raw demand-interval readings into a uniform-cadence
// series with month/day billing keys, the way intervals.py's
// normalize_intervals does for the Python engine this was ported from.
package ivl

import (
	"sort"
	"time"
)

// Interval is a single raw demand reading. KW is site import demand;
// positive means import, negative means net export.
type Interval struct {
	Timestamp time.Time
	KW        float64
}

// Row is one row of the normalized series.
type Row struct {
	TS       time.Time
	KW       float64
	MonthKey string
	DayKey   string
}

// Series is the normalizer's output.
type Series struct {
	Rows         []Row
	CadenceHours float64
	Warnings     []string
}

const fallbackCadenceHours = 0.25

// Options controls normalization behavior.
type Options struct {
	// Zone is the time zone used to derive month/day keys and TOU hours
	// downstream. Defaults to UTC when nil.
	Zone *time.Location

	// FillGaps enables linear interpolation of missing interior intervals.
	FillGaps bool

	// MaxGapIntervalsToFill caps how many consecutive missing intervals will
	// be filled; above this, a warning is recorded and no fill occurs.
	MaxGapIntervalsToFill int
}

// Normalize parses, sorts, and keys a raw interval slice.
func Normalize(raw []Interval, opts Options) Series {
	zone := opts.Zone
	if zone == nil {
		zone = time.UTC
	}
	maxGap := opts.MaxGapIntervalsToFill
	if maxGap <= 0 {
		maxGap = 4
	}

	var warnings []string
	if len(raw) == 0 {
		return Series{CadenceHours: fallbackCadenceHours, Warnings: []string{"no-intervals"}}
	}

	valid := make([]Interval, 0, len(raw))
	for _, iv := range raw {
		if iv.Timestamp.IsZero() {
			warnings = append(warnings, "dropped an interval with an unparseable timestamp")
			continue
		}
		valid = append(valid, iv)
	}
	if len(valid) == 0 {
		return Series{CadenceHours: fallbackCadenceHours, Warnings: append(warnings, "no-intervals-after-parse")}
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i].Timestamp.Before(valid[j].Timestamp) })

	cadence := detectCadenceHours(valid, fallbackCadenceHours)

	rows := make([]Row, 0, len(valid))
	for _, iv := range valid {
		if iv.KW < 0 {
			warnings = append(warnings, "negative kW detected (net export); no-export policy is a tariff/plan decision downstream")
			break
		}
	}

	local := func(t time.Time) time.Time { return t.In(zone) }

	if opts.FillGaps && len(valid) >= 2 {
		filled, gapWarn := fillGaps(valid, cadence, maxGap)
		valid = filled
		if gapWarn != "" {
			warnings = append(warnings, gapWarn)
		}
	}

	for _, iv := range valid {
		lt := local(iv.Timestamp)
		rows = append(rows, Row{
			TS:       iv.Timestamp,
			KW:       iv.KW,
			MonthKey: lt.Format("2006-01"),
			DayKey:   lt.Format("2006-01-02"),
		})
	}

	return Series{Rows: rows, CadenceHours: cadence, Warnings: warnings}
}

// detectCadenceHours is the median of successive timestamp deltas, in hours.
func detectCadenceHours(sorted []Interval, fallback float64) float64 {
	if len(sorted) < 2 {
		return fallback
	}
	deltas := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		d := sorted[i].Timestamp.Sub(sorted[i-1].Timestamp).Hours()
		if d > 0 {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) == 0 {
		return fallback
	}
	sort.Float64s(deltas)
	mid := len(deltas) / 2
	if len(deltas)%2 == 1 {
		return deltas[mid]
	}
	return (deltas[mid-1] + deltas[mid]) / 2.0
}

// fillGaps interpolates missing interior slots on the regular grid implied
// by cadence, up to maxGap consecutive missing slots per run.
func fillGaps(sorted []Interval, cadenceHours float64, maxGap int) ([]Interval, string) {
	if cadenceHours <= 0 {
		return sorted, ""
	}
	step := time.Duration(cadenceHours * float64(time.Hour))
	out := make([]Interval, 0, len(sorted))
	totalFilled := 0
	tooMany := false

	out = append(out, sorted[0])
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1]
		cur := sorted[i]
		gap := int(cur.Timestamp.Sub(prev.Timestamp)/step) - 1
		if gap > 0 {
			if gap > maxGap {
				tooMany = true
			} else {
				for g := 1; g <= gap; g++ {
					frac := float64(g) / float64(gap+1)
					kw := prev.KW + (cur.KW-prev.KW)*frac
					out = append(out, Interval{
						Timestamp: prev.Timestamp.Add(time.Duration(g) * step),
						KW:        kw,
					})
					totalFilled++
				}
			}
		}
		out = append(out, cur)
	}

	switch {
	case tooMany:
		return sorted, "detected gaps exceeding the fill threshold; too many to auto-fill safely"
	case totalFilled > 0:
		return out, "filled missing interior intervals by linear interpolation"
	default:
		return sorted, ""
	}
}

// DayCount returns the number of distinct day keys in the series.
func (s Series) DayCount() int {
	seen := map[string]struct{}{}
	for _, r := range s.Rows {
		seen[r.DayKey] = struct{}{}
	}
	return len(seen)
}

// AnnualizationFactor is 365 / distinct-day-count, per the spec's
// sub-year-to-annual scaling rule. Returns 1 when the series is empty.
func (s Series) AnnualizationFactor() float64 {
	days := s.DayCount()
	if days <= 0 {
		return 1.0
	}
	return 365.0 / float64(days)
}
