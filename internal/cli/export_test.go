package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/histlog/internal/histlog"
	"github.com/roach88/histlog/internal/persist"
	"github.com/roach88/histlog/internal/store"
	"github.com/roach88/histlog/internal/testutil"
	"github.com/roach88/histlog/internal/transport"
)

// seedStore writes the late-entrant scenario into a new store, once with
// every series and once with the default shipped keys.
func seedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replications.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ids := testutil.NewSequentialIDs("rep")
	for _, keys := range [][]string{histlog.AllKeys(), nil} {
		f, err := transport.Serialize(testutil.MustReplay("late-entrant"), keys...)
		require.NoError(t, err)
		rep, err := store.NewReplication(ids.Generate(), f)
		require.NoError(t, err)
		inserted, err := st.WriteReplication(t.Context(), rep)
		require.NoError(t, err)
		require.True(t, inserted)
	}
	return path
}

func TestExport(t *testing.T) {
	db := seedStore(t)
	out := filepath.Join(t.TempDir(), "export")

	stdout, _, err := execute(t, "--format", "json", "export", "--db", db, "--data-dir", out)
	require.NoError(t, err)

	var resp struct {
		Data ExportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	bucket := filepath.Join(out, "two_history_logs.dat")
	assert.Equal(t, 2, resp.Data.Exported)
	assert.Equal(t, map[string]int{bucket: 2}, resp.Data.Files)

	docs, err := persist.ReadDocuments(bucket)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Len(t, docs[0].Keys(), len(histlog.AllKeys()), "restored log is written in full")
	assert.Len(t, docs[1].Keys(), len(histlog.DefaultKeys()), "partial snapshot is written as shipped")
}

func TestExport_FilterByRiskModels(t *testing.T) {
	db := seedStore(t)
	out := t.TempDir()

	stdout, _, err := execute(t, "export", "--db", db, "--data-dir", out, "--risk-models", "4")
	require.NoError(t, err)
	assert.Contains(t, stdout, "exported 0 replication(s)")
	assert.NoFileExists(t, filepath.Join(out, "two_history_logs.dat"))
}

func TestExport_MissingDatabase(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "absent.db")

	_, _, err := execute(t, "export", "--db", db, "--data-dir", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NoFileExists(t, db)
}

func TestExport_RequiresDB(t *testing.T) {
	_, _, err := execute(t, "export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
