package histlog

import (
	"fmt"
	"slices"
)

// Snapshot is a detached copy of some or all series of a log, plus the run
// metadata. It is the logical content that travels between processes and is
// written to disk; nothing in it aliases the Log it came from.
type Snapshot struct {
	Meta RunMetadata

	// Keys lists the series in the snapshot, in output order.
	Keys []string

	Scalars  map[string][]float64
	Matrices map[string]MatrixView
}

// MatrixView is a detached matrix series: Rows[i] belongs to Entities[i].
type MatrixView struct {
	Entities []EntityID
	Rows     [][]float64
}

// Snapshot copies the named series out of the log. With no keys it copies
// every tracked series. Duplicate keys are kept once; unknown or reserved keys
// are rejected.
func (l *Log) Snapshot(keys ...string) (*Snapshot, error) {
	if len(keys) == 0 {
		keys = AllKeys()
	}

	s := &Snapshot{
		Meta:     l.meta.Clone(),
		Keys:     make([]string, 0, len(keys)),
		Scalars:  make(map[string][]float64),
		Matrices: make(map[string]MatrixView),
	}
	for _, name := range keys {
		if slices.Contains(s.Keys, name) {
			continue
		}
		if m, ok := lookupScalar(name); ok {
			s.Scalars[name] = slices.Clone(*m.series(l))
			s.Keys = append(s.Keys, name)
			continue
		}
		if m, ok := lookupMatrix(name); ok {
			mx := m.matrix(l)
			s.Matrices[name] = MatrixView{Entities: mx.Entities(), Rows: mx.Rows()}
			s.Keys = append(s.Keys, name)
			continue
		}
		return nil, NewUnknownMetricError(name)
	}
	return s, nil
}

// Periods returns the number of periods covered by the snapshot, taken from
// the first series that has a length. A snapshot with only empty matrices
// reports zero.
func (s *Snapshot) Periods() int {
	for _, k := range s.Keys {
		if v, ok := s.Scalars[k]; ok {
			return len(v)
		}
		if mv, ok := s.Matrices[k]; ok && len(mv.Rows) > 0 {
			return len(mv.Rows[0])
		}
	}
	return 0
}

// Document returns the snapshot series as a plain mapping: scalar keys map to
// []float64 and matrix keys to [][]float64 rows in entry order. Metadata is
// not included.
func (s *Snapshot) Document() map[string]any {
	doc := make(map[string]any, len(s.Keys))
	for _, k := range s.Keys {
		if v, ok := s.Scalars[k]; ok {
			doc[k] = v
			continue
		}
		if mv, ok := s.Matrices[k]; ok {
			doc[k] = mv.Rows
		}
	}
	return doc
}

// Restore rebuilds a Log from a snapshot that carries every tracked series.
// It fails with a structural mismatch when a series is missing, when series
// lengths disagree, or when the matrices of one population list different firms.
func Restore(s *Snapshot) (*Log, error) {
	for _, name := range AllKeys() {
		_, isScalar := s.Scalars[name]
		_, isMatrix := s.Matrices[name]
		if !isScalar && !isMatrix {
			return nil, NewStructuralMismatchError(name, "snapshot does not carry every tracked series")
		}
	}

	l := New(s.Meta)
	l.periods = s.Periods()

	for _, m := range scalarMetrics {
		v := s.Scalars[m.name]
		if len(v) != l.periods {
			return nil, NewStructuralMismatchError(m.name, fmt.Sprintf("series has %d values, expected %d", len(v), l.periods))
		}
		*m.series(l) = slices.Clone(v)
	}

	populations := map[Population][]EntityID{}
	for _, m := range matrixMetrics {
		mv := s.Matrices[m.name]
		if len(mv.Entities) != len(mv.Rows) {
			return nil, NewStructuralMismatchError(m.name, "matrix has different numbers of entities and rows")
		}
		if prev, seen := populations[m.population]; seen && !slices.Equal(prev, mv.Entities) {
			return nil, NewStructuralMismatchError(m.name, fmt.Sprintf("matrix lists different %s than its siblings", m.population))
		}
		populations[m.population] = mv.Entities

		mx := m.matrix(l)
		for i, id := range mv.Entities {
			if _, dup := mx.rows[id]; dup {
				return nil, NewStructuralMismatchError(m.name, fmt.Sprintf("entity %d appears twice", id))
			}
			mx.order = append(mx.order, id)
			mx.rows[id] = slices.Clone(mv.Rows[i])
			if id >= l.nextID {
				l.nextID = id + 1
			}
		}
	}
	l.insurers = slices.Clone(populations[Insurers])
	l.reinsurers = slices.Clone(populations[Reinsurers])

	if err := l.checkInvariants(); err != nil {
		return nil, NewStructuralMismatchError("", err.Error())
	}
	return l, nil
}
