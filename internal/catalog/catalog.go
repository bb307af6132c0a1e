// Package catalog loads battery SKU catalogs from a declared CSV schema and
// resolves volume-tier pricing, the way battery_catalog.py does for the
// Python engine this was ported from.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// SKU is one catalog row: a purchasable battery unit with nameplate specs
// and four quantity-banded price tiers.
type SKU struct {
	ID                  string
	Manufacturer        string
	EnergyKWh           float64
	PowerKW             float64
	CRate               float64
	RoundTripEfficiency float64 // fraction, 0..1
	WarrantyYears       float64
	MaxCyclesPerDay     *float64
	Price1To10          float64
	Price11To20         float64
	Price21To50         float64
	Price51Plus         float64
	Active              bool
}

// ContinuousPowerKW is min(nameplate power, C-rate * energy), the
// single-unit power limit used wherever a unit's deliverable power matters.
func (s SKU) ContinuousPowerKW() float64 {
	return math.Min(s.PowerKW, s.CRate*s.EnergyKWh)
}

var requiredColumns = []string{
	"Model Name",
	"Manufacturer",
	"Capacity (kWh)",
	"Power (kW)",
	"C-Rate",
	"Efficiency (%)",
	"Warranty (Years)",
	"Price 1-10",
	"Price 11-20",
	"Price 21-50",
	"Price 50+",
}

// ParseError reports a malformed or schema-violating catalog input: a
// missing required column (input-parse) or an unparseable field value
// (catalog-invalid).
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return "catalog: " + e.Msg }

// LoadCSV loads a battery catalog from path against the declared schema.
// Rows with an Active value resolving to false are excluded.
func LoadCSV(path string) ([]SKU, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Msg: fmt.Sprintf("opening catalog file: %v", err)}
	}
	defer f.Close()
	return Load(f)
}

// Load reads a battery catalog from r against the declared schema.
func Load(r io.Reader) ([]SKU, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &ParseError{Msg: fmt.Sprintf("reading header row: %v", err)}
	}

	idx := map[string]int{}
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &ParseError{Msg: fmt.Sprintf("missing required column %q", col)}
		}
	}
	activeIdx, hasActive := idx["Active"]

	var skus []SKU
	rowNum := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("row %d: %v", rowNum, err)}
		}
		rowNum++

		active := true
		if hasActive && activeIdx < len(rec) {
			active = parseYesNo(rec[activeIdx])
		}

		effPct, err := parseFloat(rec, idx, "Efficiency (%)")
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("row %d: %v", rowNum, err)}
		}
		energy, err := parseFloat(rec, idx, "Capacity (kWh)")
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("row %d: %v", rowNum, err)}
		}
		power, err := parseFloat(rec, idx, "Power (kW)")
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("row %d: %v", rowNum, err)}
		}
		cRate, err := parseFloat(rec, idx, "C-Rate")
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("row %d: %v", rowNum, err)}
		}
		warranty, err := parseFloat(rec, idx, "Warranty (Years)")
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("row %d: %v", rowNum, err)}
		}
		p1, err := parseFloat(rec, idx, "Price 1-10")
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("row %d: %v", rowNum, err)}
		}
		p2, err := parseFloat(rec, idx, "Price 11-20")
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("row %d: %v", rowNum, err)}
		}
		p3, err := parseFloat(rec, idx, "Price 21-50")
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("row %d: %v", rowNum, err)}
		}
		p4, err := parseFloat(rec, idx, "Price 50+")
		if err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("row %d: %v", rowNum, err)}
		}

		var cyclesCap *float64
		if ci, ok := idx["Max Cycles Per Day"]; ok && ci < len(rec) && strings.TrimSpace(rec[ci]) != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[ci]), 64)
			if err != nil {
				return nil, &ParseError{Msg: fmt.Sprintf("row %d: Max Cycles Per Day: %v", rowNum, err)}
			}
			cyclesCap = &v
		}

		sku := SKU{
			ID:                  field(rec, idx, "Model Name"),
			Manufacturer:        field(rec, idx, "Manufacturer"),
			EnergyKWh:           energy,
			PowerKW:             power,
			CRate:               cRate,
			RoundTripEfficiency: effPct / 100.0,
			WarrantyYears:       warranty,
			MaxCyclesPerDay:     cyclesCap,
			Price1To10:          p1,
			Price11To20:         p2,
			Price21To50:         p3,
			Price51Plus:         p4,
			Active:              active,
		}
		if !sku.Active {
			continue
		}
		skus = append(skus, sku)
	}
	return skus, nil
}

func field(rec []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseFloat(rec []string, idx map[string]int, col string) (float64, error) {
	s := field(rec, idx, col)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: invalid number %q", col, s)
	}
	return v, nil
}

func parseYesNo(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "y":
		return true
	case "no", "false", "0", "n", "":
		return false
	default:
		return false
	}
}

// PricePerUnit resolves the per-unit price for qty units of sku from the
// 1-10/11-20/21-50/51+ tiers.
func PricePerUnit(sku SKU, qty int) float64 {
	switch {
	case qty <= 10:
		return sku.Price1To10
	case qty <= 20:
		return sku.Price11To20
	case qty <= 50:
		return sku.Price21To50
	default:
		return sku.Price51Plus
	}
}

// EquipmentCost sums qty * PricePerUnit(sku, qty) over a bundle's SKU
// quantities, resolved against the final per-SKU quantity.
func EquipmentCost(byID map[string]SKU, qtyBySKU map[string]int) (float64, error) {
	var total float64
	for id, qty := range qtyBySKU {
		sku, ok := byID[id]
		if !ok {
			return 0, &ParseError{Msg: fmt.Sprintf("unknown SKU id %q", id)}
		}
		total += float64(qty) * PricePerUnit(sku, qty)
	}
	return total, nil
}

// TotalCapex applies the install adder and fixed soft costs on top of
// equipment cost.
func TotalCapex(equipmentCost, installAdderFrac, fixedSoftCostsUSD float64) float64 {
	return equipmentCost*(1+installAdderFrac) + fixedSoftCostsUSD
}
