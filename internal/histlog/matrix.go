package histlog

import "slices"

// EntityID is the stable handle of a firm. Handles are allocated in entry order
// from one counter per Log and are never reused.
type EntityID int

// Matrix is a per-firm series: one row per firm, one column per period.
// Rows are keyed by EntityID and kept in entry order, so a firm's row does not
// move when other firms enter.
type Matrix struct {
	order []EntityID
	rows  map[EntityID][]float64
}

func newMatrix() *Matrix {
	return &Matrix{
		order: []EntityID{},
		rows:  make(map[EntityID][]float64),
	}
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	return len(m.order)
}

// Entities returns the row handles in entry order.
func (m *Matrix) Entities() []EntityID {
	return slices.Clone(m.order)
}

// Row returns a copy of the row for id.
func (m *Matrix) Row(id EntityID) ([]float64, bool) {
	row, ok := m.rows[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(row), true
}

// Rows returns copies of all rows in entry order.
func (m *Matrix) Rows() [][]float64 {
	out := make([][]float64, len(m.order))
	for i, id := range m.order {
		out[i] = slices.Clone(m.rows[id])
	}
	return out
}

// addRow appends a zero-filled row of the given length for id.
func (m *Matrix) addRow(id EntityID, periods int) {
	m.order = append(m.order, id)
	m.rows[id] = make([]float64, periods)
}

// appendColumn appends values[i] to the i-th row in entry order.
// The caller has already checked len(values) == m.Len().
func (m *Matrix) appendColumn(values []float64) {
	for i, id := range m.order {
		m.rows[id] = append(m.rows[id], values[i])
	}
}
