package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "optimizer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaultsOverMissingFields(t *testing.T) {
	path := writeTempConfig(t, `
catalog_file: catalog.csv
optimizer:
  tariff_rate_code: "B-19"
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10.0, c.Optimizer.PaybackCeilingYears)
	assert.Equal(t, 21, c.Optimizer.PriceGridPoints)
	assert.Equal(t, 10, c.Optimizer.TopN)
	assert.True(t, *c.Optimizer.NoExport)
}

func TestLoad_ExplicitValuesOverrideDefaults(t *testing.T) {
	path := writeTempConfig(t, `
optimizer:
  payback_ceiling_years: 5
  top_n: 3
  no_export: false
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5.0, c.Optimizer.PaybackCeilingYears)
	assert.Equal(t, 3, c.Optimizer.TopN)
	assert.False(t, *c.Optimizer.NoExport)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_RejectsNonPositivePaybackCeiling(t *testing.T) {
	c := &Config{Optimizer: defaultOptimizerConfig()}
	c.Optimizer.PaybackCeilingYears = 0
	assert.Error(t, c.Validate())
}

func TestMergeOptimizer_OverlaysOnlyNonZeroFields(t *testing.T) {
	base := defaultOptimizerConfig()
	override := OptimizerConfig{TopN: 3}
	merged := MergeOptimizer(base, override)
	assert.Equal(t, 3, merged.TopN)
	assert.Equal(t, base.PaybackCeilingYears, merged.PaybackCeilingYears)
}

func TestToRunConfig_TranslatesFields(t *testing.T) {
	o := defaultOptimizerConfig()
	o.TopN = 7
	rc := o.ToRunConfig(nil)
	assert.Equal(t, 7, rc.TopN)
	assert.True(t, rc.NoExport)
	assert.Equal(t, o.TariffRateCode, rc.TariffRateCode)
}

func TestResolveCatalogFile_PrefersPathRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(catalogPath, []byte("id\n"), 0o644))

	configPath := filepath.Join(dir, "optimizer.yaml")
	c := &Config{CatalogFile: "catalog.csv"}
	assert.Equal(t, catalogPath, c.ResolveCatalogFile(configPath))
}
