package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/histlog/internal/persist"
)

// InspectResult summarizes a .dat history file.
type InspectResult struct {
	Path      string            `json:"path"`
	Documents []DocumentSummary `json:"documents"`
}

// DocumentSummary describes one persisted log.
type DocumentSummary struct {
	Periods int            `json:"periods"`
	Series  int            `json:"series"`
	Rows    map[string]int `json:"rows"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file.dat>",
		Short: "Summarize a persisted history file",
		Long: `Summarize a history file written by run or export.

Each line of the file is one log. For every log the command reports its
period count, the number of series and the row count of each per-firm
series.

Examples:
  histlog inspect data/history_logs.dat
  histlog inspect data/two_history_logs.dat --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	docs, err := persist.ReadDocuments(path)
	if err != nil {
		code := ErrCodeRead
		if errors.Is(err, fs.ErrNotExist) {
			code = ErrCodeNotFound
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read history file", err)
	}
	formatter.VerboseLog("read %d document(s) from %s", len(docs), path)

	res := InspectResult{Path: path, Documents: make([]DocumentSummary, len(docs))}
	for i, d := range docs {
		rows := make(map[string]int, len(d.Matrices))
		for name, m := range d.Matrices {
			rows[name] = len(m)
		}
		res.Documents[i] = DocumentSummary{
			Periods: d.Periods(),
			Series:  len(d.Keys()),
			Rows:    rows,
		}
	}

	return formatter.Emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %d document(s)\n", res.Path, len(res.Documents))
		for i, d := range docs {
			s := res.Documents[i]
			fmt.Fprintf(w, "document %d: %d periods, %d series\n", i+1, s.Periods, s.Series)
			for _, name := range d.Keys() {
				if n, ok := s.Rows[name]; ok {
					fmt.Fprintf(w, "  %s: %d rows\n", name, n)
				}
			}
		}
	})
}
