// Package apitypes defines the request/response DTOs for cmd/api,
// generalized from the teacher's internal/api/models package onto this
// domain's run/catalog/scenario surface.
package apitypes

// RunRequest is the request body for POST /api/v1/run.
type RunRequest struct {
	Intervals []IntervalPoint `json:"intervals" binding:"required"`
	Config    RunConfig       `json:"config,omitempty"`
}

// IntervalPoint is one raw demand reading.
type IntervalPoint struct {
	Timestamp string  `json:"timestamp" binding:"required"` // RFC3339
	KW        float64 `json:"kw"`
}

// RunConfig mirrors orchestrate.Config's request-facing fields.
type RunConfig struct {
	NoExport                 *bool    `json:"no_export,omitempty"`
	InterconnectKW           *float64 `json:"interconnect_kw,omitempty"`
	PaybackCeilingYears      float64  `json:"payback_ceiling_years,omitempty"`
	PriceGridPoints          int      `json:"price_grid_points,omitempty"`
	InstallAdderFrac         float64  `json:"install_adder_frac,omitempty"`
	FixedSoftCostsUSD        float64  `json:"fixed_soft_costs_usd,omitempty"`
	CloseProbMidPaybackYears float64  `json:"close_prob_mid_payback_years,omitempty"`
	CloseProbSteepness       float64  `json:"close_prob_steepness,omitempty"`
	TariffRateCode           string   `json:"tariff_rate_code,omitempty"`
	TopN                     int      `json:"top_n,omitempty"`
	CandidateCaps            int      `json:"candidate_caps,omitempty"`
	VariationsPerCap         int      `json:"variations_per_cap,omitempty"`
	DeadlineSeconds          float64  `json:"deadline_seconds,omitempty"`
}
