package histlog

import "slices"

// RunMetadata describes a run and is recorded once, at construction.
type RunMetadata struct {
	// RiskModels is the number of risk models in the simulated market (1-4).
	// The history log only uses it to name ensemble output files.
	RiskModels int `yaml:"risk_models" json:"risk_models"`

	// EventSchedule lists, per peril category, the periods at which a
	// catastrophe is scheduled.
	EventSchedule [][]int `yaml:"event_schedule" json:"event_schedule"`

	// EventDamage lists, per peril category, the damage fraction in [0,1] of
	// each scheduled event, aligned with EventSchedule.
	EventDamage [][]float64 `yaml:"event_damage" json:"event_damage"`
}

// Clone returns a deep copy. Nil sequences come back empty, so two metadata
// values that went through different paths compare equal.
func (m RunMetadata) Clone() RunMetadata {
	out := RunMetadata{
		RiskModels:    m.RiskModels,
		EventSchedule: make([][]int, len(m.EventSchedule)),
		EventDamage:   make([][]float64, len(m.EventDamage)),
	}
	for i, s := range m.EventSchedule {
		out.EventSchedule[i] = append([]int{}, s...)
	}
	for i, d := range m.EventDamage {
		out.EventDamage[i] = append([]float64{}, d...)
	}
	return out
}

// Log is the in-memory history of one simulation run.
type Log struct {
	meta    RunMetadata
	periods int
	nextID  EntityID

	insurers   []EntityID
	reinsurers []EntityID

	totalCash                   []float64
	totalExcessCapital          []float64
	totalProfitsLosses          []float64
	totalContracts              []float64
	totalOperational            []float64
	totalReinCash               []float64
	totalReinExcessCapital      []float64
	totalReinProfitsLosses      []float64
	totalReinContracts          []float64
	totalReinOperational        []float64
	totalCatBondsOperational    []float64
	marketPremium               []float64
	marketReinPremium           []float64
	marketDiffVar               []float64
	cumulativeBankruptcies      []float64
	cumulativeMarketExits       []float64
	cumulativeUnrecoveredClaims []float64
	cumulativeClaims            []float64

	individualContracts  *Matrix
	insuranceFirmsCash   *Matrix
	reinsuranceFirmsCash *Matrix
}

// New creates an empty log for a run described by meta.
func New(meta RunMetadata) *Log {
	l := &Log{
		meta:                 meta.Clone(),
		insurers:             []EntityID{},
		reinsurers:           []EntityID{},
		individualContracts:  newMatrix(),
		insuranceFirmsCash:   newMatrix(),
		reinsuranceFirmsCash: newMatrix(),
	}
	for _, m := range scalarMetrics {
		*m.series(l) = []float64{}
	}
	return l
}

// Metadata returns a copy of the run metadata.
func (l *Log) Metadata() RunMetadata {
	return l.meta.Clone()
}

// Periods returns the number of periods recorded so far.
func (l *Log) Periods() int {
	return l.periods
}

// Insurers returns the handles of all insurance firms in entry order.
func (l *Log) Insurers() []EntityID {
	return slices.Clone(l.insurers)
}

// Reinsurers returns the handles of all reinsurance firms in entry order.
func (l *Log) Reinsurers() []EntityID {
	return slices.Clone(l.reinsurers)
}

// Population returns the number of firms of kind p.
func (l *Log) Population(p Population) int {
	switch p {
	case Insurers:
		return len(l.insurers)
	case Reinsurers:
		return len(l.reinsurers)
	default:
		return 0
	}
}

// Scalar returns a copy of the named scalar series.
func (l *Log) Scalar(name string) ([]float64, bool) {
	m, ok := lookupScalar(name)
	if !ok {
		return nil, false
	}
	return slices.Clone(*m.series(l)), true
}

// Matrix returns the named matrix series. The returned Matrix must not be
// modified; use its accessors, which return copies.
func (l *Log) Matrix(name string) (*Matrix, bool) {
	m, ok := lookupMatrix(name)
	if !ok {
		return nil, false
	}
	return m.matrix(l), true
}

// AddInsurer registers a new insurance firm and returns its handle.
// Every insurer matrix gains a row pre-filled with zeros for the periods
// already recorded. Call it before the first Record that carries the firm.
func (l *Log) AddInsurer() EntityID {
	return l.addEntity(Insurers)
}

// AddReinsurer registers a new reinsurance firm and returns its handle.
func (l *Log) AddReinsurer() EntityID {
	return l.addEntity(Reinsurers)
}

func (l *Log) addEntity(p Population) EntityID {
	id := l.nextID
	l.nextID++
	switch p {
	case Insurers:
		l.insurers = append(l.insurers, id)
	case Reinsurers:
		l.reinsurers = append(l.reinsurers, id)
	}
	for _, m := range matrixMetrics {
		if m.population == p {
			m.matrix(l).addRow(id, l.periods)
		}
	}
	return id
}

// checkInvariants verifies every series against the period counter.
func (l *Log) checkInvariants() error {
	for _, m := range scalarMetrics {
		if n := len(*m.series(l)); n != l.periods {
			return newInvariantError(m.name, n, l.periods)
		}
	}
	for _, m := range matrixMetrics {
		mx := m.matrix(l)
		if mx.Len() != l.Population(m.population) {
			return &LogError{
				Code:    ErrCodeInvariantViolation,
				Message: "matrix row count differs from population",
				Metric:  m.name,
			}
		}
		for _, id := range mx.order {
			if n := len(mx.rows[id]); n != l.periods {
				return newInvariantError(m.name, n, l.periods)
			}
		}
	}
	return nil
}
