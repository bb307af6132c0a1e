package analysis

import (
	"sort"

	"everwatt-battery-optimizer/internal/tariff"
)

// RankedPotential is one site's ArbitragePotential, ordered by the ranking
// this package produces.
type RankedPotential struct {
	ArbitragePotential
}

// RankByOracleProfit computes a potential per site and sorts descending by
// OracleProfitUSD, so the highest-opportunity sites sort first.
func RankByOracleProfit(bySite map[string][]tariff.Interval, rates tariff.EnergyRateTable) []RankedPotential {
	out := make([]RankedPotential, 0, len(bySite))
	for site, intervals := range bySite {
		p := ComputePotential(site, intervals, rates)
		out = append(out, RankedPotential{ArbitragePotential: p})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OracleProfitUSD > out[j].OracleProfitUSD
	})
	return out
}
