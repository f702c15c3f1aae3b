package cli

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/histlog/internal/canonical"
	"github.com/roach88/histlog/internal/histlog"
	"github.com/roach88/histlog/internal/transport"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Series bool
}

// DecodeResult summarizes a decoded flat form.
type DecodeResult struct {
	Path     string              `json:"path"`
	Entries  int                 `json:"entries"`
	Meta     histlog.RunMetadata `json:"meta"`
	Periods  int                 `json:"periods"`
	Keys     []string            `json:"keys"`
	Rows     map[string]int      `json:"rows"`
	Complete bool                `json:"complete"`
	Series   SeriesDocument      `json:"series,omitempty"`
}

// SeriesDocument renders through the canonical encoder so that NaN and ±Inf
// come out as tokens instead of failing the JSON output.
type SeriesDocument map[string]any

func (d SeriesDocument) MarshalJSON() ([]byte, error) {
	return canonical.Marshal(map[string]any(d))
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <flat.msgpack>",
		Short: "Decode a msgpack flat form",
		Long: `Decode a history log shipped in flat form and summarize it.

The run metadata carried by the reserved keys is reported separately from
the series. A log is complete when it carries every tracked series and can
be restored in full.

Examples:
  histlog decode run.msgpack
  histlog decode run.msgpack --series --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Series, "series", false, "include every series in the output")

	return cmd
}

func runDecode(opts *DecodeOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read flat form", err)
	}
	f, err := transport.Decode(data)
	if err != nil {
		return formatter.Fail(ErrCodeRead, "failed to decode flat form", err)
	}
	formatter.VerboseLog("decoded %d entries from %s", f.Len(), path)

	snap, err := transport.Deserialize(f)
	if err != nil {
		return formatter.Fail(ErrCodeRead, "failed to deserialize flat form", err)
	}

	res := DecodeResult{
		Path:    path,
		Entries: f.Len(),
		Meta:    snap.Meta,
		Periods: snap.Periods(),
		Keys:    slices.Clone(snap.Keys),
		Rows:    make(map[string]int, len(snap.Matrices)),
	}
	slices.Sort(res.Keys)
	for name, mv := range snap.Matrices {
		res.Rows[name] = len(mv.Rows)
	}
	if _, err := histlog.Restore(snap); err == nil {
		res.Complete = true
	} else {
		formatter.VerboseLog("not restorable: %v", err)
	}
	if opts.Series {
		res.Series = SeriesDocument(snap.Document())
	}

	return formatter.Emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %d entries\n", res.Path, res.Entries)
		fmt.Fprintf(w, "risk models: %d\n", res.Meta.RiskModels)
		fmt.Fprintf(w, "event categories: %d\n", len(res.Meta.EventSchedule))
		fmt.Fprintf(w, "periods: %d\n", res.Periods)
		fmt.Fprintf(w, "series: %d (complete: %t)\n", len(res.Keys), res.Complete)
		for _, name := range res.Keys {
			if n, ok := res.Rows[name]; ok {
				fmt.Fprintf(w, "  %s: %d rows\n", name, n)
			}
		}
		if opts.Series {
			for _, name := range res.Keys {
				fmt.Fprintf(w, "%s: %v\n", name, res.Series[name])
			}
		}
	})
}
