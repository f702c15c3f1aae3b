package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/histlog/internal/histlog"
	"github.com/roach88/histlog/internal/persist"
	"github.com/roach88/histlog/internal/transport"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database   string
	DataDir    string
	RiskModels int
}

// ExportResult reports how many logs were appended to each bucket file.
type ExportResult struct {
	Database string         `json:"database"`
	Exported int            `json:"exported"`
	Files    map[string]int `json:"files"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Append stored replications to ensemble bucket files",
		Long: `Rebuild ensemble bucket files from the replication store.

Replications are appended in the order they were received, each to the
bucket file for its risk-model count. Existing bucket files are appended
to, not replaced.

Examples:
  histlog export --db data/replications.db --data-dir export
  histlog export --db data/replications.db --risk-models 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the replication store (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "directory for bucket files (default from config)")
	cmd.Flags().IntVar(&opts.RiskModels, "risk-models", 0, "export only this risk-model count")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	dir := cfg.DataDir
	if opts.DataDir != "" {
		dir = opts.DataDir
	}

	// Opening would create an empty database; a typo should fail instead.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	st, err := openStore(ctx, opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	reps, err := st.ListReplications(ctx, opts.RiskModels)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list replications", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create data directory", err)
	}

	w := persist.NewWriter(persist.LegacyNaming(dir))
	res := ExportResult{Database: opts.Database, Files: map[string]int{}}
	for _, rep := range reps {
		snap, err := transport.Deserialize(rep.Flat)
		if err != nil {
			return formatter.Fail(ErrCodeRead, fmt.Sprintf("replication %s", rep.ID), err)
		}
		path, err := exportSnapshot(w, snap)
		if err != nil {
			return formatter.Fail(ErrCodeGeneric, fmt.Sprintf("replication %s", rep.ID), err)
		}
		res.Files[path]++
		res.Exported++
		logger.Debug("replication exported", "id", rep.ID, "seq", rep.Seq, "path", path)
	}
	logger.Info("export complete", "replications", res.Exported, "files", len(res.Files))

	return formatter.Emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "exported %d replication(s) from %s\n", res.Exported, res.Database)
		paths := make([]string, 0, len(res.Files))
		for p := range res.Files {
			paths = append(paths, p)
		}
		slices.Sort(paths)
		for _, p := range paths {
			fmt.Fprintf(w, "  %s: %d\n", p, res.Files[p])
		}
	})
}

// exportSnapshot writes a full log when the snapshot restores, and the
// snapshot as shipped otherwise.
func exportSnapshot(w *persist.Writer, snap *histlog.Snapshot) (string, error) {
	if l, err := histlog.Restore(snap); err == nil {
		return w.Save(l, persist.ModeEnsemble)
	}
	return w.SaveSnapshot(snap, persist.ModeEnsemble)
}
