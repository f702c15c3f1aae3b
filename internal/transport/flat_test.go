package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/histlog/internal/histlog"
)

func testMeta(riskModels int) histlog.RunMetadata {
	return histlog.RunMetadata{
		RiskModels:    riskModels,
		EventSchedule: [][]int{{3, 17}, {40}},
		EventDamage:   [][]float64{{0.2, 0.5}, {0.9}},
	}
}

func emptyPeriod(contracts, cash, rein []float64) histlog.PeriodData {
	return histlog.PeriodData{
		IndividualContracts:  contracts,
		InsuranceFirmsCash:   cash,
		ReinsuranceFirmsCash: rein,
	}
}

func TestFlatten_ScenarioScalarAndMatrix(t *testing.T) {
	snap := &histlog.Snapshot{
		Meta: testMeta(3),
		Keys: []string{histlog.MetricTotalCash, histlog.MetricIndividualContracts},
		Scalars: map[string][]float64{
			histlog.MetricTotalCash: {1, 2, 3},
		},
		Matrices: map[string]histlog.MatrixView{
			histlog.MetricIndividualContracts: {
				Entities: []histlog.EntityID{0, 1},
				Rows:     [][]float64{{1, 2}, {5, 6}},
			},
		},
	}

	flat := Flatten(snap)
	assert.Equal(t, []string{
		"total_cash",
		"individual_contracts[]",
		"individual_contracts[0]",
		"individual_contracts[1]",
		"number_riskmodels",
		"rc_event_schedule_initial[]",
		"rc_event_schedule_initial[0]",
		"rc_event_schedule_initial[1]",
		"rc_event_damage_initial[]",
		"rc_event_damage_initial[0]",
		"rc_event_damage_initial[1]",
	}, flat.Keys)
	assert.Equal(t, flat.Len(), len(flat.Values))
	assert.Equal(t, []float64{0, 1}, flat.Values[1])
	assert.Equal(t, []float64{3}, flat.Values[4])

	back, err := Deserialize(flat)
	require.NoError(t, err)
	assert.Equal(t, 3, back.Meta.RiskModels)
	assert.Equal(t, [][]float64{{1, 2}, {5, 6}}, back.Matrices[histlog.MetricIndividualContracts].Rows)
	assert.Equal(t, []histlog.EntityID{0, 1}, back.Matrices[histlog.MetricIndividualContracts].Entities)
	assert.Equal(t, []float64{1, 2, 3}, back.Scalars[histlog.MetricTotalCash])
	assert.Equal(t, snap, back)
}

func TestSerialize_RoundTripIdentity(t *testing.T) {
	l := histlog.New(testMeta(2))
	l.AddInsurer()
	l.AddReinsurer()
	require.NoError(t, l.Record(emptyPeriod([]float64{1}, []float64{100.25}, []float64{900})))
	l.AddInsurer()
	require.NoError(t, l.Record(emptyPeriod([]float64{2, 1}, []float64{99.5, 10.0 / 3.0}, []float64{901})))

	tests := []struct {
		name string
		keys []string
	}{
		{"default keys", nil},
		{"all keys", histlog.AllKeys()},
		{"single matrix", []string{histlog.MetricIndividualContracts}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flat, err := Serialize(l, tt.keys...)
			require.NoError(t, err)

			expected, err := l.Snapshot(orDefault(tt.keys)...)
			require.NoError(t, err)

			back, err := Deserialize(flat)
			require.NoError(t, err)
			assert.Equal(t, expected, back)
		})
	}
}

func orDefault(keys []string) []string {
	if len(keys) == 0 {
		return histlog.DefaultKeys()
	}
	return keys
}

func TestSerialize_EmptyLog(t *testing.T) {
	l := histlog.New(histlog.RunMetadata{RiskModels: 1})

	flat, err := Serialize(l, histlog.AllKeys()...)
	require.NoError(t, err)

	back, err := Deserialize(flat)
	require.NoError(t, err)

	expected, err := l.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, expected, back)
	assert.Equal(t, 0, back.Periods())
	assert.Empty(t, back.Meta.EventSchedule)
	assert.NotNil(t, back.Meta.EventSchedule)

	restored, err := histlog.Restore(back)
	require.NoError(t, err)
	assert.Equal(t, 0, restored.Periods())
}

func TestSerialize_IgnoresReservedKeys(t *testing.T) {
	l := histlog.New(testMeta(4))

	flat, err := Serialize(l, histlog.MetricTotalCash, histlog.KeyNumberRiskModels, histlog.KeyEventDamageInitial)
	require.NoError(t, err)

	back, err := Deserialize(flat)
	require.NoError(t, err)
	assert.Equal(t, []string{histlog.MetricTotalCash}, back.Keys)
	assert.Equal(t, 4, back.Meta.RiskModels)
}

func TestSerialize_OnlyReservedKeys(t *testing.T) {
	l := histlog.New(testMeta(3))
	l.AddInsurer()
	require.NoError(t, l.Record(emptyPeriod([]float64{1}, []float64{5}, []float64{})))

	flat, err := Serialize(l, histlog.KeyNumberRiskModels)
	require.NoError(t, err)
	assert.NotContains(t, flat.Keys, histlog.MetricTotalCash)
	assert.NotContains(t, flat.Keys, "individual_contracts[]")

	back, err := Deserialize(flat)
	require.NoError(t, err)
	assert.Empty(t, back.Keys)
	assert.Equal(t, testMeta(3), back.Meta)
}

func TestSerialize_NegativeEventPeriods(t *testing.T) {
	meta := histlog.RunMetadata{
		RiskModels:    1,
		EventSchedule: [][]int{{-1, 4}, {}},
		EventDamage:   [][]float64{{0.1, 0.2}, {}},
	}
	l := histlog.New(meta)

	flat, err := Serialize(l)
	require.NoError(t, err)
	back, err := Deserialize(flat)
	require.NoError(t, err)
	assert.Equal(t, meta.EventSchedule, back.Meta.EventSchedule)
}

func TestSerialize_UnknownKey(t *testing.T) {
	l := histlog.New(testMeta(1))
	_, err := Serialize(l, "nope")
	require.Error(t, err)
	assert.True(t, histlog.IsUnknownMetric(err))
}

func TestSerialize_FullLogRestores(t *testing.T) {
	l := histlog.New(testMeta(2))
	l.AddInsurer()
	require.NoError(t, l.Record(emptyPeriod([]float64{4}, []float64{40}, []float64{})))

	flat, err := Serialize(l, histlog.AllKeys()...)
	require.NoError(t, err)
	back, err := Deserialize(flat)
	require.NoError(t, err)

	restored, err := histlog.Restore(back)
	require.NoError(t, err)
	assert.Equal(t, l.Periods(), restored.Periods())
	assert.Equal(t, l.Insurers(), restored.Insurers())
	assert.Equal(t, l.Metadata(), restored.Metadata())
}

func TestDeserialize_StructuralMismatch(t *testing.T) {
	valid := func() Flat {
		l := histlog.New(testMeta(2))
		l.AddInsurer()
		require.NoError(t, l.Record(emptyPeriod([]float64{1}, []float64{1}, []float64{})))
		flat, err := Serialize(l, histlog.MetricTotalCash, histlog.MetricIndividualContracts)
		require.NoError(t, err)
		return flat
	}
	drop := func(f Flat, key string) Flat {
		out := Flat{}
		for i, k := range f.Keys {
			if k != key {
				out.Keys = append(out.Keys, k)
				out.Values = append(out.Values, f.Values[i])
			}
		}
		return out
	}

	tests := []struct {
		name   string
		mutate func(Flat) Flat
	}{
		{"missing risk models", func(f Flat) Flat { return drop(f, "number_riskmodels") }},
		{"missing schedule header", func(f Flat) Flat {
			f = drop(f, "rc_event_schedule_initial[]")
			f = drop(f, "rc_event_schedule_initial[0]")
			return drop(f, "rc_event_schedule_initial[1]")
		}},
		{"missing damage", func(f Flat) Flat {
			f = drop(f, "rc_event_damage_initial[]")
			f = drop(f, "rc_event_damage_initial[0]")
			return drop(f, "rc_event_damage_initial[1]")
		}},
		{"unequal lengths", func(f Flat) Flat { f.Values = f.Values[:len(f.Values)-1]; return f }},
		{"missing row", func(f Flat) Flat { return drop(f, "individual_contracts[0]") }},
		{"orphan row", func(f Flat) Flat { return drop(f, "individual_contracts[]") }},
		{"row not in header", func(f Flat) Flat {
			f.Keys = append(f.Keys, "individual_contracts[9]")
			f.Values = append(f.Values, []float64{1})
			return f
		}},
		{"duplicate scalar", func(f Flat) Flat {
			f.Keys = append(f.Keys, "total_cash")
			f.Values = append(f.Values, []float64{1})
			return f
		}},
		{"malformed key", func(f Flat) Flat { f.Keys[0] = "total_cash[x]"; return f }},
		{"unterminated key", func(f Flat) Flat { f.Keys[0] = "total_cash[1"; return f }},
		{"fractional risk models", func(f Flat) Flat {
			for i, k := range f.Keys {
				if k == "number_riskmodels" {
					f.Values[i] = []float64{2.5}
				}
			}
			return f
		}},
		{"fractional event period", func(f Flat) Flat {
			for i, k := range f.Keys {
				if k == "rc_event_schedule_initial[0]" {
					f.Values[i] = []float64{3.5}
				}
			}
			return f
		}},
		{"scalar encoded as matrix", func(f Flat) Flat {
			f.Keys[0] = "total_cash[]"
			f.Values[0] = []float64{}
			return f
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize(tt.mutate(valid()))
			require.Error(t, err)
			assert.True(t, histlog.IsStructuralMismatch(err), err.Error())
		})
	}
}

func TestParseKey(t *testing.T) {
	base, kind, _, err := parseKey("total_cash")
	require.NoError(t, err)
	assert.Equal(t, "total_cash", base)
	assert.Equal(t, kindScalar, kind)

	base, kind, _, err = parseKey("insurance_firms_cash[]")
	require.NoError(t, err)
	assert.Equal(t, "insurance_firms_cash", base)
	assert.Equal(t, kindHeader, kind)

	base, kind, id, err := parseKey("insurance_firms_cash[12]")
	require.NoError(t, err)
	assert.Equal(t, "insurance_firms_cash", base)
	assert.Equal(t, kindRow, kind)
	assert.Equal(t, 12, id)

	for _, bad := range []string{"", "[]", "x[-1]", "x[1"} {
		_, _, _, err := parseKey(bad)
		assert.Error(t, err, bad)
	}
}
