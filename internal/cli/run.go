package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/histlog/internal/config"
	"github.com/roach88/histlog/internal/ensemble"
	"github.com/roach88/histlog/internal/histlog"
	"github.com/roach88/histlog/internal/persist"
	"github.com/roach88/histlog/internal/sim"
	"github.com/roach88/histlog/internal/transport"
)

// RunOptions holds flags for the run command. Flags that are set override the
// run file.
type RunOptions struct {
	*RootOptions
	Mode         string
	Periods      int
	Replications int
	Workers      int
	Seed         uint64
	DataDir      string
	Database     string
	Flat         string

	// IDs allows overriding the replication id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs ensemble.IDGenerator
}

// RunResult is the run command's output.
type RunResult struct {
	Mode         string   `json:"mode"`
	Path         string   `json:"path"`
	RiskModels   int      `json:"risk_models"`
	Periods      int      `json:"periods"`
	Replications int      `json:"replications"`
	Workers      int      `json:"workers,omitempty"`
	Insurers     int      `json:"insurers,omitempty"`
	Reinsurers   int      `json:"reinsurers,omitempty"`
	FlatPath     string   `json:"flat_path,omitempty"`
	IDs          []string `json:"ids,omitempty"`
	Stored       int      `json:"stored,omitempty"`
	Duplicates   int      `json:"duplicates,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the synthetic market and persist its history",
		Long: `Run the synthetic insurance market and persist the history log.

In single mode one run is recorded and written to history_logs.dat,
replacing any previous file. In ensemble mode every replication runs on
its own worker, ships its log to a single coordinator, and is appended
as one line to the bucket file for the run's risk-model count
(one_history_logs.dat ... four_history_logs.dat).

Example:
  histlog run --periods 200
  histlog run --config run.yaml --mode ensemble --replications 8 --workers 4
  histlog run --mode single --flat run.msgpack`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "single", "persistence mode (single|ensemble)")
	cmd.Flags().IntVar(&opts.Periods, "periods", 0, "periods per run")
	cmd.Flags().IntVar(&opts.Replications, "replications", 0, "ensemble replications")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "ensemble workers")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "market seed")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "directory for .dat history files")
	cmd.Flags().StringVar(&opts.Database, "db", "", "replication store (ensemble mode)")
	cmd.Flags().StringVar(&opts.Flat, "flat", "", "also write the msgpack flat form here (single mode)")

	return cmd
}

// applyFlags copies explicitly set flags over the run file.
func (o *RunOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("periods") {
		cfg.Periods = o.Periods
	}
	if flags.Changed("replications") {
		cfg.Replications = o.Replications
	}
	if flags.Changed("workers") {
		cfg.Workers = o.Workers
	}
	if flags.Changed("seed") {
		cfg.Seed = o.Seed
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = o.DataDir
	}
	if flags.Changed("db") {
		cfg.Database = o.Database
	}
}

func runHistory(opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	mode, err := persist.ParseMode(opts.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid mode", err)
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	opts.applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	// Persistence never creates directories; the command does.
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return WrapExitError(ExitCommandError, "failed to create data directory", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var res *RunResult
	switch mode {
	case persist.ModeSingle:
		res, err = runSingle(ctx, opts, cfg, logger)
	case persist.ModeEnsemble:
		res, err = runEnsemble(ctx, opts, cfg, logger)
	}
	if err != nil {
		return formatter.Fail(ErrCodeGeneric, "run failed", err)
	}

	return formatter.Emit(res, func(w io.Writer) { printRunResult(w, res) })
}

func runSingle(ctx context.Context, opts *RunOptions, cfg config.Config, logger *slog.Logger) (*RunResult, error) {
	market, err := sim.NewMarket(cfg.Market(), cfg.Run)
	if err != nil {
		return nil, err
	}

	logger.Info("single run starting", "periods", cfg.Periods, "seed", cfg.Seed)
	l := histlog.New(cfg.Run)
	if _, err := sim.Run(ctx, l, market); err != nil {
		return nil, err
	}

	w := persist.NewWriter(persist.LegacyNaming(cfg.DataDir))
	path, err := w.Save(l, persist.ModeSingle)
	if err != nil {
		return nil, err
	}
	logger.Info("history saved", "path", path, "periods", l.Periods())

	res := &RunResult{
		Mode:         persist.ModeSingle.String(),
		Path:         path,
		RiskModels:   cfg.Run.RiskModels,
		Periods:      l.Periods(),
		Replications: 1,
		Insurers:     len(l.Insurers()),
		Reinsurers:   len(l.Reinsurers()),
	}

	if opts.Flat != "" {
		f, err := transport.Serialize(l, histlog.AllKeys()...)
		if err != nil {
			return nil, err
		}
		data, err := transport.Encode(f)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(opts.Flat, data, 0o644); err != nil {
			return nil, fmt.Errorf("write flat form: %w", err)
		}
		logger.Debug("flat form written", "path", opts.Flat, "entries", f.Len(), "bytes", len(data))
		res.FlatPath = opts.Flat
	}
	return res, nil
}

func runEnsemble(ctx context.Context, opts *RunOptions, cfg config.Config, logger *slog.Logger) (*RunResult, error) {
	runner := &ensemble.Runner{
		Replications: cfg.Replications,
		Workers:      cfg.Workers,
		Meta:         cfg.Run,
		Sources:      ensemble.MarketSources(cfg.Market()),
		Writer:       persist.NewWriter(persist.LegacyNaming(cfg.DataDir)),
		IDs:          opts.IDs,
		Logger:       logger,
	}

	if cfg.Database != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		st, err := openStore(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		runner.Store = st
	}

	out, err := runner.Run(ctx)
	if err != nil {
		return nil, err
	}
	return &RunResult{
		Mode:         persist.ModeEnsemble.String(),
		Path:         out.Path,
		RiskModels:   cfg.Run.RiskModels,
		Periods:      cfg.Periods,
		Replications: len(out.IDs),
		Workers:      cfg.Workers,
		IDs:          out.IDs,
		Stored:       out.Stored,
		Duplicates:   out.Duplicates,
	}, nil
}

func printRunResult(w io.Writer, res *RunResult) {
	if res.Mode == persist.ModeSingle.String() {
		fmt.Fprintf(w, "recorded %d periods (%d insurers, %d reinsurers)\n", res.Periods, res.Insurers, res.Reinsurers)
		fmt.Fprintf(w, "wrote %s\n", res.Path)
		if res.FlatPath != "" {
			fmt.Fprintf(w, "wrote flat form to %s\n", res.FlatPath)
		}
		return
	}
	fmt.Fprintf(w, "ran %d replications of %d periods on %d workers\n", res.Replications, res.Periods, res.Workers)
	if res.Path != "" {
		fmt.Fprintf(w, "appended to %s\n", res.Path)
	}
	if res.Stored > 0 || res.Duplicates > 0 {
		fmt.Fprintf(w, "store: %d new, %d duplicate\n", res.Stored, res.Duplicates)
	}
}
