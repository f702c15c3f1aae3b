package histlog

// testMeta returns run metadata with two peril categories.
func testMeta(riskModels int) RunMetadata {
	return RunMetadata{
		RiskModels:    riskModels,
		EventSchedule: [][]int{{3, 17}, {40}},
		EventDamage:   [][]float64{{0.2, 0.5}, {0.9}},
	}
}

// period builds PeriodData with every aggregate set to base and the given
// per-firm slices.
func period(base float64, contracts, cash, reinCash []float64) PeriodData {
	return PeriodData{
		TotalCash:                   base,
		TotalExcessCapital:          base,
		TotalProfitsLosses:          base,
		TotalContracts:              base,
		TotalOperational:            base,
		TotalReinCash:               base,
		TotalReinExcessCapital:      base,
		TotalReinProfitsLosses:      base,
		TotalReinContracts:          base,
		TotalReinOperational:        base,
		TotalCatBondsOperational:    base,
		MarketPremium:               base,
		MarketReinPremium:           base,
		MarketDiffVar:               base,
		CumulativeBankruptcies:      base,
		CumulativeMarketExits:       base,
		CumulativeUnrecoveredClaims: base,
		CumulativeClaims:            base,
		IndividualContracts:         contracts,
		InsuranceFirmsCash:          cash,
		ReinsuranceFirmsCash:        reinCash,
	}
}

// periodMap builds the mapping form of a period with no firms.
func periodMap(base float64) map[string]any {
	m := make(map[string]any)
	for _, k := range ScalarKeys() {
		m[k] = base
	}
	for _, k := range MatrixKeys() {
		m[k] = []float64{}
	}
	return m
}
