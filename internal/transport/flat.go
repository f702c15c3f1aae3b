package transport

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/histlog/internal/histlog"
)

// Flat is the process-boundary form of a history log.
// Keys[i] names Values[i].
type Flat struct {
	Keys   []string    `msgpack:"keys" json:"keys"`
	Values [][]float64 `msgpack:"values" json:"values"`
}

// Len returns the number of entries.
func (f Flat) Len() int {
	return len(f.Keys)
}

func (f *Flat) add(key string, values []float64) {
	f.Keys = append(f.Keys, key)
	f.Values = append(f.Values, slices.Clone(values))
}

// Serialize flattens the named series of l plus its run metadata. With no keys
// it ships histlog.DefaultKeys. Reserved metadata keys in the request are
// ignored because metadata is always included, so a request naming only
// reserved keys ships the metadata alone.
func Serialize(l *histlog.Log, keys ...string) (Flat, error) {
	if len(keys) == 0 {
		keys = histlog.DefaultKeys()
	}
	requested := make([]string, 0, len(keys))
	for _, k := range keys {
		if !histlog.IsReservedKey(k) {
			requested = append(requested, k)
		}
	}
	if len(requested) == 0 {
		return Flatten(&histlog.Snapshot{
			Meta:     l.Metadata(),
			Keys:     []string{},
			Scalars:  map[string][]float64{},
			Matrices: map[string]histlog.MatrixView{},
		}), nil
	}

	snap, err := l.Snapshot(requested...)
	if err != nil {
		return Flat{}, fmt.Errorf("serialize: %w", err)
	}
	return Flatten(snap), nil
}

// Flatten converts a snapshot to the flat form. Series come first in snapshot
// order, then the three metadata keys.
func Flatten(s *histlog.Snapshot) Flat {
	f := Flat{Keys: []string{}, Values: [][]float64{}}

	for _, k := range s.Keys {
		if v, ok := s.Scalars[k]; ok {
			f.add(k, v)
			continue
		}
		if mv, ok := s.Matrices[k]; ok {
			ids := make([]float64, len(mv.Entities))
			for i, id := range mv.Entities {
				ids[i] = float64(id)
			}
			f.add(headerKey(k), ids)
			for i, id := range mv.Entities {
				f.add(rowKey(k, int(id)), mv.Rows[i])
			}
		}
	}

	f.add(histlog.KeyNumberRiskModels, []float64{float64(s.Meta.RiskModels)})

	schedule := make([][]float64, len(s.Meta.EventSchedule))
	for i, periods := range s.Meta.EventSchedule {
		schedule[i] = make([]float64, len(periods))
		for j, p := range periods {
			schedule[i][j] = float64(p)
		}
	}
	addNested(&f, histlog.KeyEventScheduleInitial, schedule)
	addNested(&f, histlog.KeyEventDamageInitial, s.Meta.EventDamage)

	return f
}

// addNested writes a list of rows whose ids are their positions.
func addNested(f *Flat, name string, rows [][]float64) {
	ids := make([]float64, len(rows))
	for i := range rows {
		ids[i] = float64(i)
	}
	f.add(headerKey(name), ids)
	for i, row := range rows {
		f.add(rowKey(name, i), row)
	}
}

func headerKey(name string) string {
	return name + "[]"
}

func rowKey(name string, id int) string {
	return name + "[" + strconv.Itoa(id) + "]"
}

type keyKind int

const (
	kindScalar keyKind = iota
	kindHeader
	kindRow
)

// parseKey splits a flat key into its base name, kind and (for rows) id.
func parseKey(key string) (string, keyKind, int, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		if key == "" {
			return "", 0, 0, fmt.Errorf("empty key")
		}
		return key, kindScalar, 0, nil
	}
	base := key[:open]
	if base == "" || !strings.HasSuffix(key, "]") {
		return "", 0, 0, fmt.Errorf("malformed key %q", key)
	}
	inner := key[open+1 : len(key)-1]
	if inner == "" {
		return base, kindHeader, 0, nil
	}
	id, err := strconv.Atoi(inner)
	if err != nil || id < 0 {
		return "", 0, 0, fmt.Errorf("malformed row id in key %q", key)
	}
	return base, kindRow, id, nil
}

type nestedEntry struct {
	ids  []int
	rows map[int][]float64
}

// Deserialize rebuilds a snapshot from the flat form and moves the reserved
// metadata keys into Snapshot.Meta. It is the exact inverse of Flatten.
func Deserialize(f Flat) (*histlog.Snapshot, error) {
	if len(f.Keys) != len(f.Values) {
		return nil, histlog.NewStructuralMismatchError("",
			fmt.Sprintf("flat form has %d keys and %d values", len(f.Keys), len(f.Values)))
	}

	var order []string
	scalars := make(map[string][]float64)
	nested := make(map[string]*nestedEntry)

	for i, key := range f.Keys {
		base, kind, id, err := parseKey(key)
		if err != nil {
			return nil, histlog.NewStructuralMismatchError("", err.Error())
		}
		values := append([]float64{}, f.Values[i]...)

		switch kind {
		case kindScalar:
			if _, dup := scalars[base]; dup || nested[base] != nil {
				return nil, histlog.NewStructuralMismatchError(base, "key appears twice")
			}
			scalars[base] = values
			order = append(order, base)

		case kindHeader:
			if _, dup := scalars[base]; dup || nested[base] != nil {
				return nil, histlog.NewStructuralMismatchError(base, "key appears twice")
			}
			ids, err := toIDs(values)
			if err != nil {
				return nil, histlog.NewStructuralMismatchError(base, err.Error())
			}
			nested[base] = &nestedEntry{ids: ids, rows: make(map[int][]float64, len(ids))}
			order = append(order, base)

		case kindRow:
			entry := nested[base]
			if entry == nil {
				return nil, histlog.NewStructuralMismatchError(base, fmt.Sprintf("row %d precedes its header", id))
			}
			if !slices.Contains(entry.ids, id) {
				return nil, histlog.NewStructuralMismatchError(base, fmt.Sprintf("row %d is not listed in the header", id))
			}
			if _, dup := entry.rows[id]; dup {
				return nil, histlog.NewStructuralMismatchError(base, fmt.Sprintf("row %d appears twice", id))
			}
			entry.rows[id] = values
		}
	}

	for base, entry := range nested {
		if len(entry.rows) != len(entry.ids) {
			return nil, histlog.NewStructuralMismatchError(base, "header lists rows that are missing")
		}
	}

	meta, err := extractMetadata(scalars, nested)
	if err != nil {
		return nil, err
	}

	s := &histlog.Snapshot{
		Meta:     meta,
		Keys:     []string{},
		Scalars:  make(map[string][]float64),
		Matrices: make(map[string]histlog.MatrixView),
	}
	for _, name := range order {
		if histlog.IsReservedKey(name) {
			continue
		}
		if v, ok := scalars[name]; ok {
			if histlog.IsMatrixKey(name) {
				return nil, histlog.NewStructuralMismatchError(name, "matrix series encoded as scalar")
			}
			s.Scalars[name] = v
		} else {
			if histlog.IsScalarKey(name) {
				return nil, histlog.NewStructuralMismatchError(name, "scalar series encoded as matrix")
			}
			entry := nested[name]
			mv := histlog.MatrixView{
				Entities: make([]histlog.EntityID, len(entry.ids)),
				Rows:     make([][]float64, len(entry.ids)),
			}
			for i, id := range entry.ids {
				mv.Entities[i] = histlog.EntityID(id)
				mv.Rows[i] = entry.rows[id]
			}
			s.Matrices[name] = mv
		}
		s.Keys = append(s.Keys, name)
	}
	return s, nil
}

func extractMetadata(scalars map[string][]float64, nested map[string]*nestedEntry) (histlog.RunMetadata, error) {
	var meta histlog.RunMetadata

	rm, ok := scalars[histlog.KeyNumberRiskModels]
	if !ok {
		return meta, histlog.NewStructuralMismatchError(histlog.KeyNumberRiskModels, "reserved metadata key missing")
	}
	if len(rm) != 1 || !isInteger(rm[0]) {
		return meta, histlog.NewStructuralMismatchError(histlog.KeyNumberRiskModels, "risk-model count must be one integer")
	}
	meta.RiskModels = int(rm[0])

	schedule := nested[histlog.KeyEventScheduleInitial]
	if schedule == nil {
		return meta, histlog.NewStructuralMismatchError(histlog.KeyEventScheduleInitial, "reserved metadata key missing")
	}
	meta.EventSchedule = make([][]int, len(schedule.ids))
	for i, id := range schedule.ids {
		periods, err := toInts(schedule.rows[id])
		if err != nil {
			return meta, histlog.NewStructuralMismatchError(histlog.KeyEventScheduleInitial, err.Error())
		}
		meta.EventSchedule[i] = periods
	}

	damage := nested[histlog.KeyEventDamageInitial]
	if damage == nil {
		return meta, histlog.NewStructuralMismatchError(histlog.KeyEventDamageInitial, "reserved metadata key missing")
	}
	meta.EventDamage = make([][]float64, len(damage.ids))
	for i, id := range damage.ids {
		meta.EventDamage[i] = damage.rows[id]
	}

	return meta, nil
}

// toIDs converts integral non-negative floats to ints.
func toIDs(values []float64) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		if !isInteger(v) || v < 0 {
			return nil, fmt.Errorf("value %v at position %d is not a non-negative integer", v, i)
		}
		out[i] = int(v)
	}
	return out, nil
}

// toInts converts integral floats to ints. Event periods are stored as given,
// so negative values pass through.
func toInts(values []float64) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		if !isInteger(v) {
			return nil, fmt.Errorf("value %v at position %d is not an integer", v, i)
		}
		out[i] = int(v)
	}
	return out, nil
}

func isInteger(v float64) bool {
	return !math.IsInf(v, 0) && v == math.Trunc(v)
}
