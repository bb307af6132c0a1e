// Package orchestrate drives the full sizing/dispatch pipeline: normalize
// intervals, generate candidate bundles, evaluate each bundle against every
// tariff scenario, price the savings, and rank the results. Grounded on
// optimize.py's optimize_battery_solutions in the engine this was ported
// from.
package orchestrate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"everwatt-battery-optimizer/internal/bill"
	"everwatt-battery-optimizer/internal/bundle"
	"everwatt-battery-optimizer/internal/catalog"
	"everwatt-battery-optimizer/internal/dispatch"
	"everwatt-battery-optimizer/internal/ivl"
	"everwatt-battery-optimizer/internal/pricing"
	"everwatt-battery-optimizer/internal/tariff"
	"everwatt-battery-optimizer/internal/xlog"
)

// ErrorKind distinguishes abort-worthy request errors from per-bundle
// warnings accumulated alongside a partial result set.
type ErrorKind string

const (
	ErrKindInputParse        ErrorKind = "input-parse"
	ErrKindCatalogInvalid    ErrorKind = "catalog-invalid"
	ErrKindInfeasibleBundle  ErrorKind = "infeasible-bundle"
	ErrKindSolverFailure     ErrorKind = "solver-failure"
	ErrKindUnsellable        ErrorKind = "unsellable"
	ErrKindResourceExhausted ErrorKind = "resource-exhaustion"
)

// Warning is one accumulated per-bundle skip; never aborts the request.
type Warning struct {
	Kind    ErrorKind
	Message string
}

// Config enumerates every tunable for a single run, mirroring
// OptimizationConfig plus the teacher's concurrency/deadline knobs.
type Config struct {
	Zone                     *time.Location
	NoExport                 bool
	InterconnectKW           *float64
	PaybackCeilingYears      float64
	PriceGridPoints          int
	InstallAdderFrac         float64
	FixedSoftCostsUSD        float64
	CloseProbMidPaybackYears float64
	CloseProbSteepness       float64
	DegradationCostUSDPerMWh float64

	TariffRateCode   string
	TopN             int
	CandidateCaps    int
	VariationsPerCap int

	// Deadline bounds the wall-clock time spent evaluating bundle x scenario
	// pairs. Zero means no deadline.
	Deadline time.Duration
}

func (c Config) withDefaults() Config {
	if c.Zone == nil {
		c.Zone = time.UTC
	}
	if c.PaybackCeilingYears <= 0 {
		c.PaybackCeilingYears = 10
	}
	if c.PriceGridPoints <= 0 {
		c.PriceGridPoints = 21
	}
	if c.CloseProbMidPaybackYears <= 0 {
		c.CloseProbMidPaybackYears = 6.5
	}
	if c.CloseProbSteepness <= 0 {
		c.CloseProbSteepness = 1.2
	}
	if c.TariffRateCode == "" {
		c.TariffRateCode = "B-19"
	}
	if c.TopN <= 0 {
		c.TopN = 10
	}
	if c.CandidateCaps <= 0 {
		c.CandidateCaps = 15
	}
	if c.VariationsPerCap <= 0 {
		c.VariationsPerCap = 8
	}
	return c
}

func (c Config) pricingConfig() pricing.Config {
	return pricing.Config{
		PaybackCeilingYears:      c.PaybackCeilingYears,
		PriceGridPoints:          c.PriceGridPoints,
		CloseProbMidPaybackYears: c.CloseProbMidPaybackYears,
		CloseProbSteepness:       c.CloseProbSteepness,
	}
}

// Result is one scored (bundle, scenario) evaluation.
type Result struct {
	Scenario         tariff.ScenarioSpec
	Bundle           bundle.Bundle
	BaselineBillUSD  float64
	OptimizedBillUSD float64
	SavingsUSDPerYear float64
	PeakKWBefore     float64
	PeakKWAfter      float64
	Offers           []pricing.Offer
	Dispatch         *dispatch.Solution
}

// Output is a complete run's results plus any accumulated warnings.
type Output struct {
	Results   []Result
	Warnings  []Warning
	Truncated bool
}

func bundleUnitCount(b bundle.Bundle) int {
	n := 0
	for _, qty := range b.SKUQty {
		n += qty
	}
	return n
}

// Scenarios exposes buildScenarios' tariff-rate-code-to-scenario-list
// resolution for callers that only need the scenario catalog, not a full
// run (e.g. the API's GET /api/v1/scenarios).
func Scenarios(tariffRateCode string) []tariff.ScenarioSpec {
	return buildScenarios(tariffRateCode)
}

func buildScenarios(tariffRateCode string) []tariff.ScenarioSpec {
	code := tariffRateCode
	switch code {
	case "B-19", "B19", "b-19", "b19":
		return []tariff.ScenarioSpec{
			{ID: "pge_b19", Name: "PG&E B-19", Kind: "pge_b19"},
			{ID: "pge_option_s", Name: "PG&E Option S (gated)", Kind: "pge_option_s"},
		}
	default:
		return []tariff.ScenarioSpec{
			{ID: "pge_b19", Name: fmt.Sprintf("Stub rate for %s", code), Kind: "pge_b19"},
			{ID: "pge_option_s", Name: "PG&E Option S (gated)", Kind: "pge_option_s"},
		}
	}
}

// Run executes the full pipeline: normalize, enumerate bundles, evaluate
// every (bundle, scenario) pair concurrently, price the savings, and
// return the top Config.TopN results ranked best-offer-first.
func Run(ctx context.Context, rawIntervals []ivl.Interval, skus []catalog.SKU, cfg Config) (Output, error) {
	cfg = cfg.withDefaults()
	log := xlog.Ctx(ctx)

	norm := ivl.Normalize(rawIntervals, ivl.Options{Zone: cfg.Zone})
	annualization := norm.AnnualizationFactor()

	active := make([]catalog.SKU, 0, len(skus))
	for _, s := range skus {
		if s.Active {
			active = append(active, s)
		}
	}

	scenarios := buildScenarios(cfg.TariffRateCode)

	bundles := bundle.Generate(norm, active, bundle.Options{
		Caps:              cfg.CandidateCaps,
		VariationsPerCap:  cfg.VariationsPerCap,
		InstallAdderFrac:  cfg.InstallAdderFrac,
		FixedSoftCostsUSD: cfg.FixedSoftCostsUSD,
	})

	baseTariffIntervals := tariff.ToTariffIntervals(norm, cfg.Zone, tariff.PGEB19Mapper)

	b19Plan := tariff.BuildPGEB19RatePlan("PG&E B-19", tariff.DefaultPGEB19Rates())
	optionSPlan := tariff.BuildOptionSRatePlan("PG&E Option S", tariff.DefaultOptionSRates())
	optionSPlan.EnergyRates = b19Plan.EnergyRates

	planByKind := map[string]tariff.RatePlan{
		"pge_b19":      b19Plan,
		"pge_option_s": optionSPlan,
	}

	baselineBill := map[string]float64{}
	baselinePeak := map[string]float64{}
	for _, sc := range scenarios {
		plan, ok := planByKind[sc.Kind]
		if !ok {
			continue
		}
		summary := bill.Calculate(baseTariffIntervals, plan, cfg.Zone)
		baselineBill[sc.ID] = summary.BillUSD * annualization
		baselinePeak[sc.ID] = summary.PeakKW
	}

	_, minRequiredKW := tariff.OptionSEligibility(baseTariffIntervals)

	h := norm.CadenceHours

	type pair struct {
		b  bundle.Bundle
		sc tariff.ScenarioSpec
	}
	var pairs []pair
	for _, b := range bundles {
		if b.TotalPowerKW <= 0 || b.TotalEnergyKWh <= 0 {
			continue
		}
		for _, sc := range scenarios {
			if sc.Kind == "pge_option_s" && b.TotalPowerKW < minRequiredKW {
				continue
			}
			pairs = append(pairs, pair{b: b, sc: sc})
		}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.Deadline > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.Deadline)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(runCtx)
	var mu sync.Mutex
	var results []Result
	var warnings []Warning
	truncated := false

	for _, pr := range pairs {
		pr := pr
		if gctx.Err() != nil {
			truncated = true
			break
		}

		g.Go(func() error {
			plan, ok := planByKind[pr.sc.Kind]
			if !ok {
				return nil
			}
			dispatchOpts := dispatch.Options{
				Zone:                     cfg.Zone,
				NoExport:                 cfg.NoExport,
				InterconnectKW:           cfg.InterconnectKW,
				DegradationCostUSDPerMWh: cfg.DegradationCostUSDPerMWh,
			}
			sol, err := dispatch.Solve(baseTariffIntervals, pr.b, plan, h, dispatchOpts)
			if err != nil {
				log.Warn("dispatch solve failed", "scenario", pr.sc.ID, "err", err)
				mu.Lock()
				warnings = append(warnings, Warning{Kind: ErrKindSolverFailure, Message: err.Error()})
				mu.Unlock()
				return nil
			}

			baseBill := baselineBill[pr.sc.ID]
			basePeak := baselinePeak[pr.sc.ID]
			optimizedAnnual := sol.BillUSD * annualization
			savings := baseBill - optimizedAnnual
			if savings <= 0 {
				return nil
			}

			offers := pricing.MakeOffers(pr.b.CapexUSD, savings, bundleUnitCount(pr.b), cfg.pricingConfig())
			if len(offers) == 0 {
				mu.Lock()
				warnings = append(warnings, Warning{Kind: ErrKindUnsellable, Message: fmt.Sprintf("scenario %s: savings %.2f not sellable under payback ceiling", pr.sc.ID, savings)})
				mu.Unlock()
				return nil
			}

			peakAfter := 0.0
			for _, v := range sol.NetLoadKWSeries {
				if v > peakAfter {
					peakAfter = v
				}
			}
			solCopy := sol

			mu.Lock()
			results = append(results, Result{
				Scenario:          pr.sc,
				Bundle:            pr.b,
				BaselineBillUSD:   baseBill,
				OptimizedBillUSD:  optimizedAnnual,
				SavingsUSDPerYear: savings,
				PeakKWBefore:      basePeak,
				PeakKWAfter:       peakAfter,
				Offers:            offers,
				Dispatch:          &solCopy,
			})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Output{}, err
	}
	if gctx.Err() != nil {
		truncated = true
	}

	sort.SliceStable(results, func(i, j int) bool {
		ki, kgmi := bestOfferKey(results[i])
		kj, kgmj := bestOfferKey(results[j])
		if ki != kj {
			return ki > kj
		}
		return kgmi > kgmj
	})
	if len(results) > cfg.TopN {
		results = results[:cfg.TopN]
	}

	return Output{Results: results, Warnings: warnings, Truncated: truncated}, nil
}

// bestOfferKey mirrors optimize.py's best_offer_key: prefer the engine
// offer's expected TSV, falling back to profit-max's TSV, falling back to
// the first offer, each paired with that offer's gross margin as the tie
// breaker.
func bestOfferKey(r Result) (float64, float64) {
	var engine, profitMax *pricing.Offer
	for i := range r.Offers {
		switch r.Offers[i].Mode {
		case pricing.ModeEngine:
			engine = &r.Offers[i]
		case pricing.ModeProfitMax:
			profitMax = &r.Offers[i]
		}
	}
	if engine != nil {
		tsv := engine.TSV
		if engine.HasExpected {
			tsv = engine.ExpectedTSV
		}
		return tsv, engine.GrossMarginUSD
	}
	if profitMax != nil {
		return profitMax.TSV, profitMax.GrossMarginUSD
	}
	if len(r.Offers) > 0 {
		return r.Offers[0].TSV, r.Offers[0].GrossMarginUSD
	}
	return 0, 0
}
