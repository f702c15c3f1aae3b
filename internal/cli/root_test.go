package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "histlog", cmd.Use)
	assert.Contains(t, cmd.Long, "history logs")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "inspect", "decode", "export"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	modeFlag := runCmd.Flags().Lookup("mode")
	require.NotNil(t, modeFlag)
	assert.Equal(t, "single", modeFlag.DefValue)

	for _, name := range []string{"periods", "replications", "workers", "seed", "data-dir", "db", "flat"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), name)
	}
}

func TestExportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	exportCmd, _, err := cmd.Find([]string{"export"})
	require.NoError(t, err)

	dbFlag := exportCmd.Flags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	riskFlag := exportCmd.Flags().Lookup("risk-models")
	require.NotNil(t, riskFlag)
	assert.Equal(t, "0", riskFlag.DefValue)
}

func TestDecodeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	decodeCmd, _, err := cmd.Find([]string{"decode"})
	require.NoError(t, err)

	seriesFlag := decodeCmd.Flags().Lookup("series")
	require.NotNil(t, seriesFlag)
	assert.Equal(t, "false", seriesFlag.DefValue)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "inspect", "history_logs.dat"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := loadConfig(&RootOptions{Config: "/nonexistent/run.yaml"})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	st, err := openStore(ctx, filepath.Join(t.TempDir(), "replications.db"))
	require.NoError(t, err)
	defer st.Close()

	n, err := st.CountReplications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOpenStore_MissingDirectory(t *testing.T) {
	_, err := openStore(context.Background(), filepath.Join(t.TempDir(), "absent", "replications.db"))
	assert.Error(t, err)
}
