// Command optimizer is the CLI entry point for the battery sizing/dispatch
// pipeline: it loads a raw interval CSV and a SKU catalog, runs the full
// orchestrator, and prints or writes the ranked results. Grounded on
// cmd/cli's subcommand-dispatch pattern in the teacher this was ported from.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"everwatt-battery-optimizer/internal/analysis"
	"everwatt-battery-optimizer/internal/catalog"
	"everwatt-battery-optimizer/internal/config"
	"everwatt-battery-optimizer/internal/dispatch"
	"everwatt-battery-optimizer/internal/ivl"
	"everwatt-battery-optimizer/internal/orchestrate"
	"everwatt-battery-optimizer/internal/tariff"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "rank":
		cmdRank(os.Args[2:])
	case "catalog":
		cmdCatalog(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  optimizer run --intervals load.csv --config examples/config.yaml --out results.json")
	fmt.Println("  optimizer rank --intervals a.csv,b.csv")
	fmt.Println("  optimizer catalog --config examples/config.yaml")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - run sizes and dispatches a battery bundle and ranks offers best-first")
	fmt.Println("  - rank scores candidate interval series by tariff arbitrage potential")
	fmt.Println("  - --ledger on run writes the top result's dispatch as a CSV")
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	intervalsPath := fs.String("intervals", "", "Path to interval CSV (timestamp,kw columns)")
	cfgPath := fs.String("config", "", "Path to YAML config")
	catalogPath := fs.String("catalog", "", "Path to battery SKU catalog CSV (overrides config's catalog_file)")
	outPath := fs.String("out", "", "Output path for ranked results as JSON (default: stdout)")
	ledgerPath := fs.String("ledger", "", "Optional: write the top-ranked result's dispatch ledger to this CSV path")
	deadlineSeconds := fs.Float64("deadline-seconds", 0, "Optional: wall-clock deadline for the bundle search (0=none)")
	_ = fs.Parse(args)

	if *intervalsPath == "" {
		fmt.Println("--intervals is required")
		os.Exit(2)
	}
	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	catPath := *catalogPath
	if catPath == "" {
		catPath = cfg.ResolveCatalogFile(*cfgPath)
	}
	if catPath == "" {
		fmt.Println("no catalog file: pass --catalog or set catalog_file in the config")
		os.Exit(2)
	}
	skus, err := catalog.LoadCSV(catPath)
	if err != nil {
		panic(err)
	}

	rawIntervals, err := loadIntervalCSV(*intervalsPath)
	if err != nil {
		panic(err)
	}

	runCfg := cfg.Optimizer.ToRunConfig(time.UTC)
	if *deadlineSeconds > 0 {
		runCfg.Deadline = time.Duration(*deadlineSeconds * float64(time.Second))
	}

	out, err := orchestrate.Run(context.Background(), rawIntervals, skus, runCfg)
	if err != nil {
		panic(err)
	}

	for _, w := range out.Warnings {
		fmt.Fprintf(os.Stderr, "warning[%s]: %s\n", w.Kind, w.Message)
	}
	if out.Truncated {
		fmt.Fprintln(os.Stderr, "warning: bundle search hit its deadline before finishing every candidate")
	}

	if err := writeResults(*outPath, out); err != nil {
		panic(err)
	}

	if *ledgerPath != "" {
		if len(out.Results) == 0 {
			fmt.Println("no results to write a ledger for")
			return
		}
		top := out.Results[0]
		if top.Dispatch == nil {
			fmt.Println("top result has no dispatch solution to export")
			return
		}
		if err := os.MkdirAll(filepath.Dir(*ledgerPath), 0o755); err != nil {
			panic(err)
		}
		intervals := tariff.ToTariffIntervals(ivl.Normalize(rawIntervals, ivl.Options{Zone: time.UTC}), time.UTC, tariff.PGEB19Mapper)
		if err := dispatch.WriteLedgerCSV(*ledgerPath, intervals, *top.Dispatch); err != nil {
			panic(err)
		}
		fmt.Printf("wrote dispatch ledger to %s\n", *ledgerPath)
	}
}

func cmdCatalog(args []string) {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	catalogPath := fs.String("catalog", "", "Path to battery SKU catalog CSV (overrides config's catalog_file)")
	_ = fs.Parse(args)

	catPath := *catalogPath
	if catPath == "" {
		if *cfgPath == "" {
			fmt.Println("pass --catalog, or --config with a catalog_file set")
			os.Exit(2)
		}
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		catPath = cfg.ResolveCatalogFile(*cfgPath)
	}

	skus, err := catalog.LoadCSV(catPath)
	if err != nil {
		panic(err)
	}

	fmt.Printf("%-20s %-16s %-8s %-8s %-6s %-8s\n", "id", "manufacturer", "kwh", "kw", "rte", "warranty")
	for _, s := range skus {
		fmt.Printf("%-20s %-16s %-8.1f %-8.1f %-6.2f %-8.1f\n",
			s.ID, s.Manufacturer, s.EnergyKWh, s.PowerKW, s.RoundTripEfficiency, s.WarrantyYears)
	}
}

func cmdRank(args []string) {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	intervalsArg := fs.String("intervals", "", "Comma-separated interval CSV paths or a directory")
	_ = fs.Parse(args)

	if *intervalsArg == "" {
		fmt.Println("--intervals is required")
		os.Exit(2)
	}

	paths := splitPaths(*intervalsArg)
	bySite := map[string][]tariff.Interval{}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			panic(err)
		}
		if info.IsDir() {
			entries, err := os.ReadDir(p)
			if err != nil {
				panic(err)
			}
			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
					continue
				}
				full := filepath.Join(p, e.Name())
				site := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
				if err := loadSiteIntervals(full, site, bySite); err != nil {
					panic(err)
				}
			}
		} else {
			site := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
			if err := loadSiteIntervals(p, site, bySite); err != nil {
				panic(err)
			}
		}
	}

	rates := tariff.BuildPGEB19RatePlan("PG&E B-19", tariff.DefaultPGEB19Rates()).EnergyRates
	ranked := analysis.RankByOracleProfit(bySite, rates)

	fmt.Printf("%-4s %-18s %-8s %-10s %-12s %-12s\n", "rank", "site", "count", "p95-p05", "min/max", "oracle$")
	for i, r := range ranked {
		fmt.Printf("%-4d %-18s %-8d %-10.4f %-5.3f/%-5.3f %-12.2f\n",
			i+1, r.Site, r.Count, r.SpreadP95P05, r.MinRate, r.MaxRate, r.OracleProfitUSD)
	}
}

func loadSiteIntervals(path, site string, bySite map[string][]tariff.Interval) error {
	raw, err := loadIntervalCSV(path)
	if err != nil {
		return err
	}
	norm := ivl.Normalize(raw, ivl.Options{Zone: time.UTC})
	bySite[site] = append(bySite[site], tariff.ToTariffIntervals(norm, time.UTC, tariff.PGEB19Mapper)...)
	return nil
}

// loadIntervalCSV reads a two-column "timestamp,kw" CSV into raw intervals,
// the way catalog.Load reads its own declared-schema CSV.
func loadIntervalCSV(path string) ([]ivl.Interval, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header row: %w", err)
	}
	tsIdx, kwIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "timestamp", "ts":
			tsIdx = i
		case "kw":
			kwIdx = i
		}
	}
	if tsIdx < 0 || kwIdx < 0 {
		return nil, fmt.Errorf("interval CSV must have timestamp and kw columns")
	}

	var out []ivl.Interval
	rowNum := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		rowNum++

		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[tsIdx]))
		if err != nil {
			out = append(out, ivl.Interval{})
			continue
		}
		kw, err := strconv.ParseFloat(strings.TrimSpace(rec[kwIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid kw %q", rowNum, rec[kwIdx])
		}
		out = append(out, ivl.Interval{Timestamp: ts, KW: kw})
	}
	return out, nil
}

func splitPaths(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeResults(path string, out orchestrate.Output) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if path == "" {
		return enc.Encode(out)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fenc := json.NewEncoder(f)
	fenc.SetIndent("", "  ")
	if err := fenc.Encode(out); err != nil {
		return err
	}
	fmt.Printf("wrote %d ranked result(s) to %s\n", len(out.Results), path)
	return nil
}
