package histlog

// Scalar metric names.
const (
	MetricTotalCash                   = "total_cash"
	MetricTotalExcessCapital          = "total_excess_capital"
	MetricTotalProfitsLosses          = "total_profitslosses"
	MetricTotalContracts              = "total_contracts"
	MetricTotalOperational            = "total_operational"
	MetricTotalReinCash               = "total_reincash"
	MetricTotalReinExcessCapital      = "total_reinexcess_capital"
	MetricTotalReinProfitsLosses      = "total_reinprofitslosses"
	MetricTotalReinContracts          = "total_reincontracts"
	MetricTotalReinOperational        = "total_reinoperational"
	MetricTotalCatBondsOperational    = "total_catbondsoperational"
	MetricMarketPremium               = "market_premium"
	MetricMarketReinPremium           = "market_reinpremium"
	MetricMarketDiffVar               = "market_diffvar"
	MetricCumulativeBankruptcies      = "cumulative_bankruptcies"
	MetricCumulativeMarketExits       = "cumulative_market_exits"
	MetricCumulativeUnrecoveredClaims = "cumulative_unrecovered_claims"
	MetricCumulativeClaims            = "cumulative_claims"
)

// Matrix metric names.
const (
	MetricIndividualContracts  = "individual_contracts"
	MetricInsuranceFirmsCash   = "insurance_firms_cash"
	MetricReinsuranceFirmsCash = "reinsurance_firms_cash"
)

// Reserved keys under which run metadata travels in the transport form.
const (
	KeyNumberRiskModels     = "number_riskmodels"
	KeyEventScheduleInitial = "rc_event_schedule_initial"
	KeyEventDamageInitial   = "rc_event_damage_initial"
)

// Population identifies which kind of firm a matrix row belongs to.
type Population int

const (
	Insurers Population = iota
	Reinsurers
)

func (p Population) String() string {
	switch p {
	case Insurers:
		return "insurers"
	case Reinsurers:
		return "reinsurers"
	default:
		return "unknown"
	}
}

type scalarMetric struct {
	name   string
	series func(*Log) *[]float64
	value  func(*PeriodData) *float64
}

type matrixMetric struct {
	name       string
	population Population
	matrix     func(*Log) *Matrix
	values     func(*PeriodData) *[]float64
}

// scalarMetrics is the single source of truth for scalar series: the order here
// is the output order of AllKeys and Snapshot.
var scalarMetrics = []scalarMetric{
	{MetricTotalCash, func(l *Log) *[]float64 { return &l.totalCash }, func(d *PeriodData) *float64 { return &d.TotalCash }},
	{MetricTotalExcessCapital, func(l *Log) *[]float64 { return &l.totalExcessCapital }, func(d *PeriodData) *float64 { return &d.TotalExcessCapital }},
	{MetricTotalProfitsLosses, func(l *Log) *[]float64 { return &l.totalProfitsLosses }, func(d *PeriodData) *float64 { return &d.TotalProfitsLosses }},
	{MetricTotalContracts, func(l *Log) *[]float64 { return &l.totalContracts }, func(d *PeriodData) *float64 { return &d.TotalContracts }},
	{MetricTotalOperational, func(l *Log) *[]float64 { return &l.totalOperational }, func(d *PeriodData) *float64 { return &d.TotalOperational }},
	{MetricTotalReinCash, func(l *Log) *[]float64 { return &l.totalReinCash }, func(d *PeriodData) *float64 { return &d.TotalReinCash }},
	{MetricTotalReinExcessCapital, func(l *Log) *[]float64 { return &l.totalReinExcessCapital }, func(d *PeriodData) *float64 { return &d.TotalReinExcessCapital }},
	{MetricTotalReinProfitsLosses, func(l *Log) *[]float64 { return &l.totalReinProfitsLosses }, func(d *PeriodData) *float64 { return &d.TotalReinProfitsLosses }},
	{MetricTotalReinContracts, func(l *Log) *[]float64 { return &l.totalReinContracts }, func(d *PeriodData) *float64 { return &d.TotalReinContracts }},
	{MetricTotalReinOperational, func(l *Log) *[]float64 { return &l.totalReinOperational }, func(d *PeriodData) *float64 { return &d.TotalReinOperational }},
	{MetricTotalCatBondsOperational, func(l *Log) *[]float64 { return &l.totalCatBondsOperational }, func(d *PeriodData) *float64 { return &d.TotalCatBondsOperational }},
	{MetricMarketPremium, func(l *Log) *[]float64 { return &l.marketPremium }, func(d *PeriodData) *float64 { return &d.MarketPremium }},
	{MetricMarketReinPremium, func(l *Log) *[]float64 { return &l.marketReinPremium }, func(d *PeriodData) *float64 { return &d.MarketReinPremium }},
	{MetricMarketDiffVar, func(l *Log) *[]float64 { return &l.marketDiffVar }, func(d *PeriodData) *float64 { return &d.MarketDiffVar }},
	{MetricCumulativeBankruptcies, func(l *Log) *[]float64 { return &l.cumulativeBankruptcies }, func(d *PeriodData) *float64 { return &d.CumulativeBankruptcies }},
	{MetricCumulativeMarketExits, func(l *Log) *[]float64 { return &l.cumulativeMarketExits }, func(d *PeriodData) *float64 { return &d.CumulativeMarketExits }},
	{MetricCumulativeUnrecoveredClaims, func(l *Log) *[]float64 { return &l.cumulativeUnrecoveredClaims }, func(d *PeriodData) *float64 { return &d.CumulativeUnrecoveredClaims }},
	{MetricCumulativeClaims, func(l *Log) *[]float64 { return &l.cumulativeClaims }, func(d *PeriodData) *float64 { return &d.CumulativeClaims }},
}

var matrixMetrics = []matrixMetric{
	{MetricIndividualContracts, Insurers, func(l *Log) *Matrix { return l.individualContracts }, func(d *PeriodData) *[]float64 { return &d.IndividualContracts }},
	{MetricInsuranceFirmsCash, Insurers, func(l *Log) *Matrix { return l.insuranceFirmsCash }, func(d *PeriodData) *[]float64 { return &d.InsuranceFirmsCash }},
	{MetricReinsuranceFirmsCash, Reinsurers, func(l *Log) *Matrix { return l.reinsuranceFirmsCash }, func(d *PeriodData) *[]float64 { return &d.ReinsuranceFirmsCash }},
}

// ScalarKeys returns the names of all scalar series in output order.
func ScalarKeys() []string {
	keys := make([]string, len(scalarMetrics))
	for i, m := range scalarMetrics {
		keys[i] = m.name
	}
	return keys
}

// MatrixKeys returns the names of all matrix series in output order.
func MatrixKeys() []string {
	keys := make([]string, len(matrixMetrics))
	for i, m := range matrixMetrics {
		keys[i] = m.name
	}
	return keys
}

// AllKeys returns every tracked metric: scalars first, then matrices.
func AllKeys() []string {
	return append(ScalarKeys(), MatrixKeys()...)
}

// DefaultKeys is the metric set shipped from workers when the caller does not
// name one. It leaves out individual_contracts, which is only persisted locally.
func DefaultKeys() []string {
	return []string{
		MetricTotalCash,
		MetricTotalExcessCapital,
		MetricTotalProfitsLosses,
		MetricTotalContracts,
		MetricTotalOperational,
		MetricTotalReinCash,
		MetricTotalReinExcessCapital,
		MetricTotalReinProfitsLosses,
		MetricTotalReinContracts,
		MetricTotalReinOperational,
		MetricTotalCatBondsOperational,
		MetricMarketPremium,
		MetricMarketReinPremium,
		MetricCumulativeBankruptcies,
		MetricCumulativeMarketExits,
		MetricCumulativeUnrecoveredClaims,
		MetricCumulativeClaims,
		MetricInsuranceFirmsCash,
		MetricReinsuranceFirmsCash,
		MetricMarketDiffVar,
	}
}

// ReservedKeys returns the metadata keys in the order they are injected.
func ReservedKeys() []string {
	return []string{KeyNumberRiskModels, KeyEventScheduleInitial, KeyEventDamageInitial}
}

// IsReservedKey reports whether name is one of the metadata keys.
func IsReservedKey(name string) bool {
	switch name {
	case KeyNumberRiskModels, KeyEventScheduleInitial, KeyEventDamageInitial:
		return true
	}
	return false
}

// IsMatrixKey reports whether name is a tracked matrix series.
func IsMatrixKey(name string) bool {
	_, ok := lookupMatrix(name)
	return ok
}

// IsScalarKey reports whether name is a tracked scalar series.
func IsScalarKey(name string) bool {
	_, ok := lookupScalar(name)
	return ok
}

func lookupScalar(name string) (scalarMetric, bool) {
	for _, m := range scalarMetrics {
		if m.name == name {
			return m, true
		}
	}
	return scalarMetric{}, false
}

func lookupMatrix(name string) (matrixMetric, bool) {
	for _, m := range matrixMetrics {
		if m.name == name {
			return m, true
		}
	}
	return matrixMetric{}, false
}
