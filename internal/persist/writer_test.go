package persist

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/histlog/internal/histlog"
)

func testLog(t *testing.T, riskModels int) *histlog.Log {
	t.Helper()
	l := histlog.New(histlog.RunMetadata{
		RiskModels:    riskModels,
		EventSchedule: [][]int{{3}},
		EventDamage:   [][]float64{{0.5}},
	})
	l.AddInsurer()
	l.AddReinsurer()
	require.NoError(t, l.Record(histlog.PeriodData{
		TotalCash:            100,
		TotalContracts:       5,
		MarketPremium:        0.25,
		IndividualContracts:  []float64{5},
		InsuranceFirmsCash:   []float64{100},
		ReinsuranceFirmsCash: []float64{250.5},
	}))
	l.AddInsurer()
	require.NoError(t, l.Record(histlog.PeriodData{
		TotalCash:            180,
		TotalContracts:       7,
		MarketPremium:        0.3,
		CumulativeClaims:     12.5,
		IndividualContracts:  []float64{5, 2},
		InsuranceFirmsCash:   []float64{100, 80},
		ReinsuranceFirmsCash: []float64{251},
	}))
	return l
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestSave_EnsembleLineGolden(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(LegacyNaming(dir))

	path, err := w.Save(testLog(t, 2), ModeEnsemble)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "two_history_logs.dat"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "ensemble_line", data)
}

func TestSave_EnsembleAppends(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(LegacyNaming(dir))
	l := testLog(t, 3)

	const n = 4
	for i := 0; i < n; i++ {
		path, err := w.Save(l, ModeEnsemble)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "three_history_logs.dat"), path)
	}

	lines := readLines(t, filepath.Join(dir, "three_history_logs.dat"))
	require.Len(t, lines, n)
	for _, line := range lines[1:] {
		assert.Equal(t, lines[0], line)
	}

	docs, err := ReadDocuments(filepath.Join(dir, "three_history_logs.dat"))
	require.NoError(t, err)
	require.Len(t, docs, n)
	for _, doc := range docs {
		assert.Equal(t, 2, doc.Periods())
		assert.Len(t, doc.Keys(), len(histlog.AllKeys()))
	}
}

func TestSave_SingleOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(LegacyNaming(dir))

	first := histlog.New(histlog.RunMetadata{RiskModels: 1})
	require.NoError(t, first.Record(histlog.PeriodData{
		TotalCash:            1,
		IndividualContracts:  []float64{},
		InsuranceFirmsCash:   []float64{},
		ReinsuranceFirmsCash: []float64{},
	}))
	_, err := w.Save(first, ModeSingle)
	require.NoError(t, err)

	second := testLog(t, 1)
	path, err := w.Save(second, ModeSingle)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "history_logs.dat"), path)

	lines := readLines(t, path)
	require.Len(t, lines, 1)

	docs, err := ReadDocuments(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, []float64{100, 180}, docs[0].Scalars[histlog.MetricTotalCash])
	assert.Equal(t, [][]float64{{5, 5}, {0, 2}}, docs[0].Matrices[histlog.MetricIndividualContracts])
}

func TestSave_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	w := NewWriter(LegacyNaming(dir))

	_, err := w.Save(testLog(t, 1), ModeSingle)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "directory must not be created")
}

func TestSave_UnknownRiskModelCount(t *testing.T) {
	w := NewWriter(LegacyNaming(t.TempDir()))

	for _, n := range []int{0, 5, -1} {
		_, err := w.Save(testLog(t, n), ModeEnsemble)
		require.Error(t, err)
		assert.True(t, histlog.IsUnknownRiskModelCount(err))
	}

	// Single mode does not depend on the risk-model count.
	_, err := w.Save(testLog(t, 5), ModeSingle)
	assert.NoError(t, err)
}

func TestSave_CustomNaming(t *testing.T) {
	dir := t.TempDir()
	naming := func(mode Mode, meta histlog.RunMetadata) (string, error) {
		return filepath.Join(dir, mode.String()+".jsonl"), nil
	}
	w := NewWriter(naming)

	path, err := w.Save(testLog(t, 9), ModeEnsemble)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ensemble.jsonl"), path)
}

func TestSave_NonFiniteValuesRoundTrip(t *testing.T) {
	l := histlog.New(histlog.RunMetadata{RiskModels: 1})
	l.AddInsurer()
	require.NoError(t, l.Record(histlog.PeriodData{
		TotalCash:            math.NaN(),
		MarketDiffVar:        math.Inf(1),
		IndividualContracts:  []float64{3},
		InsuranceFirmsCash:   []float64{math.Inf(-1)},
		ReinsuranceFirmsCash: []float64{},
	}))

	w := NewWriter(LegacyNaming(t.TempDir()))
	path, err := w.Save(l, ModeEnsemble)
	require.NoError(t, err)
	_, err = w.Save(l, ModeEnsemble)
	require.NoError(t, err)

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"total_cash":["NaN"]`)
	assert.Contains(t, lines[0], `"market_diffvar":["Infinity"]`)
	assert.Contains(t, lines[0], `"insurance_firms_cash":[["-Infinity"]]`)

	docs, err := ReadDocuments(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	d := docs[1]
	require.Len(t, d.Scalars[histlog.MetricTotalCash], 1)
	assert.True(t, math.IsNaN(d.Scalars[histlog.MetricTotalCash][0]))
	assert.True(t, math.IsInf(d.Scalars[histlog.MetricMarketDiffVar][0], 1))
	assert.True(t, math.IsInf(d.Matrices[histlog.MetricInsuranceFirmsCash][0][0], -1))
	assert.Equal(t, [][]float64{{3}}, d.Matrices[histlog.MetricIndividualContracts])
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("single")
	require.NoError(t, err)
	assert.Equal(t, ModeSingle, m)

	m, err = ParseMode("ensemble")
	require.NoError(t, err)
	assert.Equal(t, ModeEnsemble, m)

	_, err = ParseMode("batch")
	assert.Error(t, err)

	assert.Equal(t, "Mode(7)", Mode(7).String())
}

func TestNewWriter_DefaultNaming(t *testing.T) {
	w := NewWriter(nil)
	path, err := w.Naming(ModeEnsemble, histlog.RunMetadata{RiskModels: 4})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "four_history_logs.dat"), path)
}
