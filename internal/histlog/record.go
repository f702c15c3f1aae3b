package histlog

// PeriodData is one period's worth of values for every tracked metric.
// Counts (contracts, bankruptcies, exits) are carried as float64 like the
// other series.
type PeriodData struct {
	// Insurance sector aggregates
	TotalCash          float64
	TotalExcessCapital float64
	TotalProfitsLosses float64
	TotalContracts     float64
	TotalOperational   float64

	// Reinsurance sector aggregates
	TotalReinCash          float64
	TotalReinExcessCapital float64
	TotalReinProfitsLosses float64
	TotalReinContracts     float64
	TotalReinOperational   float64

	TotalCatBondsOperational float64

	// Market-wide premium levels
	MarketPremium     float64
	MarketReinPremium float64
	MarketDiffVar     float64

	// Cumulative counters
	CumulativeBankruptcies      float64
	CumulativeMarketExits       float64
	CumulativeUnrecoveredClaims float64
	CumulativeClaims            float64

	// Per-firm values, one per firm in entry order.
	IndividualContracts  []float64 // insurers
	InsuranceFirmsCash   []float64 // insurers
	ReinsuranceFirmsCash []float64 // reinsurers
}

// Record appends one period to the log.
//
// Every per-firm slice must have exactly one value per firm of its population.
// The whole period is validated before any series is touched: on error the log
// is unchanged and the period counter does not advance.
func (l *Log) Record(d PeriodData) error {
	for _, m := range matrixMetrics {
		values := *m.values(&d)
		if rows := m.matrix(l).Len(); len(values) != rows {
			return NewRowCountMismatchError(m.name, len(values), rows)
		}
	}

	for _, m := range scalarMetrics {
		series := m.series(l)
		*series = append(*series, *m.value(&d))
	}
	for _, m := range matrixMetrics {
		m.matrix(l).appendColumn(*m.values(&d))
	}
	l.periods++

	return l.checkInvariants()
}

// RecordMap appends one period given as a metric-name mapping.
//
// Every tracked metric must be present. Scalars accept any Go integer or float
// kind; per-firm metrics accept []float64, []int or []any of numbers.
func (l *Log) RecordMap(values map[string]any) error {
	for name := range values {
		if !IsScalarKey(name) && !IsMatrixKey(name) {
			return NewUnknownMetricError(name)
		}
	}

	var d PeriodData
	for _, m := range scalarMetrics {
		raw, ok := values[m.name]
		if !ok {
			return NewMissingMetricError(m.name)
		}
		f, ok := toFloat(raw)
		if !ok {
			return NewInvalidValueError(m.name, raw)
		}
		*m.value(&d) = f
	}
	for _, m := range matrixMetrics {
		raw, ok := values[m.name]
		if !ok {
			return NewMissingMetricError(m.name)
		}
		fs, ok := toFloats(raw)
		if !ok {
			return NewInvalidValueError(m.name, raw)
		}
		*m.values(&d) = fs
	}

	return l.Record(d)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toFloats(v any) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return s, true
	case []int:
		out := make([]float64, len(s))
		for i, n := range s {
			out[i] = float64(n)
		}
		return out, true
	case []any:
		out := make([]float64, len(s))
		for i, e := range s {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}
