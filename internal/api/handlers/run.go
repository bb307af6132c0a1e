package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"everwatt-battery-optimizer/internal/apitypes"
	"everwatt-battery-optimizer/internal/catalog"
	"everwatt-battery-optimizer/internal/ivl"
	"everwatt-battery-optimizer/internal/orchestrate"
)

// RunHandler drives a full sizing/dispatch run from a JSON request body.
type RunHandler struct {
	skus []catalog.SKU
}

// NewRunHandler creates a handler over an already-loaded catalog.
func NewRunHandler(skus []catalog.SKU) *RunHandler {
	return &RunHandler{skus: skus}
}

// Run handles POST /api/v1/run.
func (h *RunHandler) Run(c *gin.Context) {
	runID := uuid.New().String()

	var req apitypes.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apitypes.ErrorResponse{
			Error: apitypes.ErrorDetail{Code: "INVALID_REQUEST", Message: err.Error()},
		})
		return
	}

	rawIntervals := make([]ivl.Interval, 0, len(req.Intervals))
	for _, p := range req.Intervals {
		ts, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, apitypes.ErrorResponse{
				Error: apitypes.ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "invalid timestamp " + p.Timestamp + ": " + err.Error(),
				},
			})
			return
		}
		rawIntervals = append(rawIntervals, ivl.Interval{Timestamp: ts, KW: p.KW})
	}

	runCfg := runConfigFromRequest(req.Config)

	out, err := orchestrate.Run(c.Request.Context(), rawIntervals, h.skus, runCfg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apitypes.ErrorResponse{
			Error: apitypes.ErrorDetail{Code: "RUN_FAILED", Message: err.Error()},
		})
		return
	}

	resp := toRunResponse(out)
	resp.RunID = runID
	c.JSON(http.StatusOK, resp)
}

func runConfigFromRequest(rc apitypes.RunConfig) orchestrate.Config {
	cfg := orchestrate.Config{
		Zone:                     time.UTC,
		NoExport:                 true,
		InterconnectKW:           rc.InterconnectKW,
		PaybackCeilingYears:      rc.PaybackCeilingYears,
		PriceGridPoints:          rc.PriceGridPoints,
		InstallAdderFrac:         rc.InstallAdderFrac,
		FixedSoftCostsUSD:        rc.FixedSoftCostsUSD,
		CloseProbMidPaybackYears: rc.CloseProbMidPaybackYears,
		CloseProbSteepness:       rc.CloseProbSteepness,
		TariffRateCode:           rc.TariffRateCode,
		TopN:                     rc.TopN,
		CandidateCaps:            rc.CandidateCaps,
		VariationsPerCap:         rc.VariationsPerCap,
	}
	if rc.NoExport != nil {
		cfg.NoExport = *rc.NoExport
	}
	if rc.DeadlineSeconds > 0 {
		cfg.Deadline = time.Duration(rc.DeadlineSeconds * float64(time.Second))
	}
	return cfg
}

func toRunResponse(out orchestrate.Output) apitypes.RunResponse {
	results := make([]apitypes.ResultDTO, 0, len(out.Results))
	for _, r := range out.Results {
		offers := make([]apitypes.OfferDTO, 0, len(r.Offers))
		for _, o := range r.Offers {
			dto := apitypes.OfferDTO{
				Mode:              string(o.Mode),
				PriceUSD:          o.PriceUSD,
				SavingsUSDPerYear: o.SavingsUSDPerYear,
				PaybackYears:      o.PaybackYears,
				GrossMarginUSD:    o.GrossMarginUSD,
				GrossMarginFrac:   o.GrossMarginFrac,
				TSV:               o.TSV,
				ROI:               o.ROI,
			}
			if o.HasExpected {
				cp := o.CloseProbability
				ev := o.ExpectedTSV
				dto.CloseProbability = &cp
				dto.ExpectedTSV = &ev
			}
			offers = append(offers, dto)
		}

		results = append(results, apitypes.ResultDTO{
			ScenarioID:        r.Scenario.ID,
			ScenarioName:      r.Scenario.Name,
			SKUQty:            r.Bundle.SKUQty,
			TotalPowerKW:      r.Bundle.TotalPowerKW,
			TotalEnergyKWh:    r.Bundle.TotalEnergyKWh,
			CapexUSD:          r.Bundle.CapexUSD,
			BaselineBillUSD:   r.BaselineBillUSD,
			OptimizedBillUSD:  r.OptimizedBillUSD,
			SavingsUSDPerYear: r.SavingsUSDPerYear,
			PeakKWBefore:      r.PeakKWBefore,
			PeakKWAfter:       r.PeakKWAfter,
			Offers:            offers,
		})
	}

	warnings := make([]string, 0, len(out.Warnings))
	for _, w := range out.Warnings {
		warnings = append(warnings, string(w.Kind)+": "+w.Message)
	}

	return apitypes.RunResponse{Results: results, Warnings: warnings, Truncated: out.Truncated}
}
