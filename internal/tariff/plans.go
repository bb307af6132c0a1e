package tariff

import "time"

// PGEB19Mapper buckets a local timestamp into the PG&E-B-19-style season
// and TOU bucket: weekends are always off-peak; summer (Jun-Sep) on-peak is
// 15:00-20:00 with partial-peak 10:00-15:00 and 20:00-22:00; winter on-peak
// is 15:00-20:00 with everything else off-peak. Grounded on pge_b19.py's
// b19_tou_bucket / _season.
func PGEB19Mapper(local time.Time) (Season, TOUBucket) {
	season := seasonForMonth(local.Month())
	if isWeekend(local) {
		return season, TOUOff
	}
	h := local.Hour()
	if season == SeasonSummer {
		switch {
		case h >= 15 && h < 20:
			return season, TOUOn
		case (h >= 10 && h < 15) || (h >= 20 && h < 22):
			return season, TOUPart
		default:
			return season, TOUOff
		}
	}
	if h >= 15 && h < 20 {
		return season, TOUOn
	}
	return season, TOUOff
}

func seasonForMonth(m time.Month) Season {
	if m >= time.June && m <= time.September {
		return SeasonSummer
	}
	return SeasonWinter
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// PGEB19Rates is the default rate set for BuildPGEB19RatePlan, matching
// pge_b19.py's keyword defaults.
type PGEB19Rates struct {
	IncludeFixedMonthly bool
	FixedMonthlyUSD     float64

	SummerOnPeak     float64
	SummerPartPeak   float64
	SummerOffPeak    float64
	WinterOnPeak     float64
	WinterOffPeak    float64

	DemandAllHoursSummer  float64
	DemandAllHoursWinter  float64
	DemandOnPeakSummer    float64
	DemandPartPeakSummer  float64
	DemandOnPeakWinter    float64
}

// DefaultPGEB19Rates reproduces pge_b19.py's default keyword values.
func DefaultPGEB19Rates() PGEB19Rates {
	return PGEB19Rates{
		IncludeFixedMonthly: true,
		FixedMonthlyUSD:     349.61,
		SummerOnPeak:        0.19551,
		SummerPartPeak:      0.17922,
		SummerOffPeak:       0.14455,
		WinterOnPeak:        0.19441,
		WinterOffPeak:       0.14532,
		DemandAllHoursSummer: 19.20,
		DemandAllHoursWinter: 19.20,
		DemandOnPeakSummer:   19.17,
		DemandPartPeakSummer: 4.79,
		DemandOnPeakWinter:   1.85,
	}
}

// BuildPGEB19RatePlan constructs the commercial TOU demand-charge plan,
// grounded on pge_b19.py's build_pge_b19_rate_plan.
func BuildPGEB19RatePlan(name string, r PGEB19Rates) RatePlan {
	fixed := 0.0
	if r.IncludeFixedMonthly {
		fixed = r.FixedMonthlyUSD
	}
	return RatePlan{
		Name: name,
		EnergyRates: EnergyRateTable{
			SeasonSummer: {TOUOn: r.SummerOnPeak, TOUPart: r.SummerPartPeak, TOUOff: r.SummerOffPeak},
			SeasonWinter: {TOUOn: r.WinterOnPeak, TOUOff: r.WinterOffPeak},
		},
		DemandComponents: []DemandComponent{
			{Kind: DemandMonthlyMax, Name: "max_all_hours_summer", RatePerKW: r.DemandAllHoursSummer, Applies: Predicate{Season: SeasonSummer}},
			{Kind: DemandMonthlyMax, Name: "max_all_hours_winter", RatePerKW: r.DemandAllHoursWinter, Applies: Predicate{Season: SeasonWinter}},
			{Kind: DemandMonthlyMax, Name: "on_peak_summer", RatePerKW: r.DemandOnPeakSummer, Applies: Predicate{Season: SeasonSummer, TOU: TOUOn}},
			{Kind: DemandMonthlyMax, Name: "partial_peak_summer", RatePerKW: r.DemandPartPeakSummer, Applies: Predicate{Season: SeasonSummer, TOU: TOUPart}},
			{Kind: DemandMonthlyMax, Name: "on_peak_winter", RatePerKW: r.DemandOnPeakWinter, Applies: Predicate{Season: SeasonWinter, TOU: TOUOn}},
		},
		FixedMonthlyUSD: fixed,
	}
}

// OptionSRates parameterizes the Option S overlay plan, matching
// option_s.py's OptionSRatesConfig.
type OptionSRates struct {
	DailyPeakPerKWDay       float64
	DailyPartPeakPerKWDay   float64
	MonthlyAllHoursPerKW    float64
	MonthlyExclWindowPerKW  float64
	MonthlyExclusionHours   HourWindow
	PeakHours               HourWindow
	PartPeakWindows         []HourWindow
}

// DefaultOptionSRates reproduces option_s.py's default keyword values.
func DefaultOptionSRates() OptionSRates {
	return OptionSRates{
		DailyPeakPerKWDay:      1.61,
		DailyPartPeakPerKWDay:  0.08,
		MonthlyAllHoursPerKW:   1.23,
		MonthlyExclWindowPerKW: 6.72,
		MonthlyExclusionHours:  HourWindow{9, 14},
		PeakHours:              HourWindow{16, 21},
		PartPeakWindows:        []HourWindow{{14, 16}, {21, 23}},
	}
}

// BuildOptionSRatePlan constructs the Option S overlay demand plan. Its
// monthly-all-hours and monthly-excluding-exclusion-window components both
// apply simultaneously and are summed -- resolved this way in DESIGN.md
// since option_s.py declares both unconditionally with no either/or branch.
// Option S carries no energy rate or fixed charge of its own; it overlays
// demand charges on top of a base plan's energy rates.
func BuildOptionSRatePlan(name string, r OptionSRates) RatePlan {
	return RatePlan{
		Name:        name,
		EnergyRates: EnergyRateTable{},
		DemandComponents: []DemandComponent{
			{Kind: DemandDailyMax, Name: "dailyPeak", RatePerKW: r.DailyPeakPerKWDay, Applies: Predicate{Season: SeasonAny, HourWindows: []HourWindow{r.PeakHours}}},
			{Kind: DemandDailyMax, Name: "dailyPartPeak", RatePerKW: r.DailyPartPeakPerKWDay, Applies: Predicate{Season: SeasonAny, HourWindows: r.PartPeakWindows}},
			{Kind: DemandMonthlyMax, Name: "monthlyAllHours", RatePerKW: r.MonthlyAllHoursPerKW, Applies: Always},
			{Kind: DemandMonthlyMax, Name: "monthlyExcl", RatePerKW: r.MonthlyExclWindowPerKW, Applies: Predicate{Season: SeasonAny, ExcludeHourWindows: []HourWindow{r.MonthlyExclusionHours}}},
		},
		FixedMonthlyUSD: 0,
	}
}

// OptionSEligibility returns the trailing-12-month peak kW and the minimum
// demand (10% of that peak) required for Option S eligibility, grounded on
// option_s.py's option_s_eligibility_required_kw. If less than 12 months of
// history are present, whatever history exists is used.
func OptionSEligibility(intervals []Interval) (peakKW12mo float64, minRequiredKW float64) {
	if len(intervals) == 0 {
		return 0, 0
	}
	latest := intervals[len(intervals)-1].TS
	cutoff := latest.AddDate(0, 0, -365)
	var peak float64
	for _, i := range intervals {
		if i.TS.Before(cutoff) {
			continue
		}
		if i.KWBase > peak {
			peak = i.KWBase
		}
	}
	return peak, 0.10 * peak
}
