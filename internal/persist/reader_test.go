package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/histlog/internal/histlog"
	"github.com/roach88/histlog/internal/testutil"
)

func TestReadDocuments_EmptyMatrixStaysMatrix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.dat")
	content := `{"individual_contracts":[],"total_cash":[1,2]}` + "\n\n" +
		`{"custom":[[1],[2]],"total_cash":[]}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	docs, err := ReadDocuments(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, [][]float64{}, docs[0].Matrices[histlog.MetricIndividualContracts])
	assert.Equal(t, []float64{1, 2}, docs[0].Scalars[histlog.MetricTotalCash])
	assert.Equal(t, 2, docs[0].Periods())

	assert.Equal(t, [][]float64{{1}, {2}}, docs[1].Matrices["custom"])
	assert.Equal(t, []string{"custom", "total_cash"}, docs[1].Keys())
}

func TestReadDocuments_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.dat")
	require.NoError(t, os.WriteFile(path, []byte(`{"total_cash":"x"}`+"\n"), 0o644))

	_, err := ReadDocuments(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestReadDocuments_MissingFile(t *testing.T) {
	_, err := ReadDocuments(filepath.Join(t.TempDir(), "nope.dat"))
	assert.Error(t, err)
}

func TestReadDocuments_ScenarioRoundTrip(t *testing.T) {
	l := testutil.MustReplay("late-entrant")
	w := NewWriter(LegacyNaming(t.TempDir()))

	path, err := w.Save(l, ModeSingle)
	require.NoError(t, err)

	docs, err := ReadDocuments(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	d := docs[0]
	assert.Equal(t, histlog.AllKeys(), sortedAllKeys(d))
	assert.Equal(t, 2, d.Periods())
	assert.Equal(t, []float64{100, 180}, d.Scalars[histlog.MetricTotalCash])
	assert.Equal(t, [][]float64{{100, 100}, {0, 80}}, d.Matrices[histlog.MetricInsuranceFirmsCash])
	assert.Equal(t, [][]float64{{250.5, 251}}, d.Matrices[histlog.MetricReinsuranceFirmsCash])
}

// sortedAllKeys returns the document keys in histlog.AllKeys order.
func sortedAllKeys(d Document) []string {
	keys := []string{}
	for _, k := range histlog.AllKeys() {
		if _, ok := d.Scalars[k]; ok {
			keys = append(keys, k)
		} else if _, ok := d.Matrices[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}
