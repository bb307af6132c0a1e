// Package config loads the optimizer's on-disk YAML configuration, the way
// the teacher's internal/config loads a battery/strategy YAML: a single
// Load entry point, an optional file-merge pattern for settings commonly
// kept in their own file, and field-by-field override merging so CLI flags
// can layer on top of a loaded file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"everwatt-battery-optimizer/internal/orchestrate"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// CatalogFile points at the battery SKU catalog CSV. Optional: cmd/optimizer
	// also accepts a --catalog flag, which overrides this.
	CatalogFile string          `yaml:"catalog_file"`
	Optimizer   OptimizerConfig `yaml:"optimizer"`
}

// OptimizerConfig mirrors OptimizationConfig from the source's types.py:
// every knob the orchestrator's pipeline exposes to the outside world.
type OptimizerConfig struct {
	NoExport                 *bool    `yaml:"no_export"`
	InterconnectKW            *float64 `yaml:"interconnect_kw"`
	PaybackCeilingYears       float64  `yaml:"payback_ceiling_years"`
	PriceGridPoints           int      `yaml:"price_grid_points"`
	InstallAdderFrac          float64  `yaml:"install_adder_frac"`
	FixedSoftCostsUSD         float64  `yaml:"fixed_soft_costs_usd"`
	CloseProbMidPaybackYears  float64  `yaml:"close_prob_mid_payback_years"`
	CloseProbSteepness        float64  `yaml:"close_prob_steepness"`
	DegradationCostUSDPerMWh  float64  `yaml:"degradation_cost_usd_per_mwh"`
	TariffRateCode            string   `yaml:"tariff_rate_code"`
	TopN                      int      `yaml:"top_n"`
	CandidateCaps             int      `yaml:"candidate_caps"`
	VariationsPerCap          int      `yaml:"variations_per_cap"`
	DeadlineSeconds           float64  `yaml:"deadline_seconds"`
}

// defaultOptimizerConfig reproduces types.py's OptimizationConfig keyword
// defaults, plus this module's own orchestration defaults (top_n,
// candidate_caps, variations_per_cap).
func defaultOptimizerConfig() OptimizerConfig {
	noExport := true
	return OptimizerConfig{
		NoExport:                 &noExport,
		PaybackCeilingYears:      10.0,
		PriceGridPoints:          21,
		CloseProbMidPaybackYears: 6.5,
		CloseProbSteepness:       1.2,
		TariffRateCode:           "B-19",
		TopN:                     10,
		CandidateCaps:            15,
		VariationsPerCap:         8,
	}
}

// Load reads path, merges it over the package defaults, and validates it.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.Optimizer = MergeOptimizer(defaultOptimizerConfig(), c.Optimizer)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads the raw YAML without merging defaults or validating.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the loaded configuration's invariants.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: config is nil")
	}
	if c.Optimizer.PaybackCeilingYears <= 0 {
		return fmt.Errorf("config: optimizer.payback_ceiling_years must be positive")
	}
	if c.Optimizer.PriceGridPoints < 0 {
		return fmt.Errorf("config: optimizer.price_grid_points must be non-negative")
	}
	if c.Optimizer.TopN <= 0 {
		return fmt.Errorf("config: optimizer.top_n must be positive")
	}
	return nil
}

// ToRunConfig builds the orchestrator's Config from this loaded
// configuration, using zone as the run's local time zone.
func (o OptimizerConfig) ToRunConfig(zone *time.Location) orchestrate.Config {
	noExport := true
	if o.NoExport != nil {
		noExport = *o.NoExport
	}
	return orchestrate.Config{
		Zone:                     zone,
		NoExport:                 noExport,
		InterconnectKW:           o.InterconnectKW,
		PaybackCeilingYears:      o.PaybackCeilingYears,
		PriceGridPoints:          o.PriceGridPoints,
		InstallAdderFrac:         o.InstallAdderFrac,
		FixedSoftCostsUSD:        o.FixedSoftCostsUSD,
		CloseProbMidPaybackYears: o.CloseProbMidPaybackYears,
		CloseProbSteepness:       o.CloseProbSteepness,
		DegradationCostUSDPerMWh: o.DegradationCostUSDPerMWh,
		TariffRateCode:           o.TariffRateCode,
		TopN:                     o.TopN,
		CandidateCaps:            o.CandidateCaps,
		VariationsPerCap:         o.VariationsPerCap,
		Deadline:                 time.Duration(o.DeadlineSeconds * float64(time.Second)),
	}
}

// MergeOptimizer overlays non-zero fields from override onto base, the way
// the teacher's MergeBattery layers a request's explicit overrides onto a
// loaded battery file.
func MergeOptimizer(base, override OptimizerConfig) OptimizerConfig {
	out := base
	if override.NoExport != nil {
		out.NoExport = override.NoExport
	}
	if override.InterconnectKW != nil {
		out.InterconnectKW = override.InterconnectKW
	}
	if override.PaybackCeilingYears != 0 {
		out.PaybackCeilingYears = override.PaybackCeilingYears
	}
	if override.PriceGridPoints != 0 {
		out.PriceGridPoints = override.PriceGridPoints
	}
	if override.InstallAdderFrac != 0 {
		out.InstallAdderFrac = override.InstallAdderFrac
	}
	if override.FixedSoftCostsUSD != 0 {
		out.FixedSoftCostsUSD = override.FixedSoftCostsUSD
	}
	if override.CloseProbMidPaybackYears != 0 {
		out.CloseProbMidPaybackYears = override.CloseProbMidPaybackYears
	}
	if override.CloseProbSteepness != 0 {
		out.CloseProbSteepness = override.CloseProbSteepness
	}
	if override.DegradationCostUSDPerMWh != 0 {
		out.DegradationCostUSDPerMWh = override.DegradationCostUSDPerMWh
	}
	if override.TariffRateCode != "" {
		out.TariffRateCode = override.TariffRateCode
	}
	if override.TopN != 0 {
		out.TopN = override.TopN
	}
	if override.CandidateCaps != 0 {
		out.CandidateCaps = override.CandidateCaps
	}
	if override.VariationsPerCap != 0 {
		out.VariationsPerCap = override.VariationsPerCap
	}
	if override.DeadlineSeconds != 0 {
		out.DeadlineSeconds = override.DeadlineSeconds
	}
	return out
}

// resolveRelative interprets a possibly-relative path as relative to the
// config file's own directory, falling back to the given path as-is (e.g.
// relative to cwd) if that candidate doesn't exist. Mirrors the teacher's
// battery-file path resolution in LoadUnchecked.
func resolveRelative(configPath, target string) string {
	if target == "" || filepath.IsAbs(target) {
		return target
	}
	cand := filepath.Join(filepath.Dir(configPath), target)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return target
}

// ResolveCatalogFile returns c.CatalogFile resolved relative to the config
// file's directory when relative, matching resolveRelative's fallback rule.
func (c *Config) ResolveCatalogFile(configPath string) string {
	return resolveRelative(configPath, c.CatalogFile)
}
