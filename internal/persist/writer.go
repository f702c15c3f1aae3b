package persist

import (
	"fmt"
	"os"

	"github.com/roach88/histlog/internal/canonical"
	"github.com/roach88/histlog/internal/histlog"
)

// Writer saves history logs using its naming strategy.
type Writer struct {
	Naming NamingFunc
}

// NewWriter returns a Writer using naming. A nil naming falls back to
// LegacyNaming("data").
func NewWriter(naming NamingFunc) *Writer {
	if naming == nil {
		naming = LegacyNaming("data")
	}
	return &Writer{Naming: naming}
}

// Save writes every series of l as one line. It returns the path written.
func (w *Writer) Save(l *histlog.Log, mode Mode) (string, error) {
	snap, err := l.Snapshot()
	if err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	return w.SaveSnapshot(snap, mode)
}

// SaveSnapshot writes the series of s as one line. The coordinator uses it to
// persist replications it received in transport form.
func (w *Writer) SaveSnapshot(s *histlog.Snapshot, mode Mode) (string, error) {
	path, err := w.Naming(mode, s.Meta)
	if err != nil {
		return "", fmt.Errorf("save: %w", err)
	}

	line, err := canonical.Marshal(s.Document())
	if err != nil {
		return "", fmt.Errorf("save: render log: %w", err)
	}
	line = append(line, '\n')

	flags := os.O_WRONLY | os.O_CREATE
	if mode == ModeEnsemble {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return "", fmt.Errorf("save: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("save: close %s: %w", path, err)
	}
	return path, nil
}
