package persist

import (
	"fmt"
	"path/filepath"

	"github.com/roach88/histlog/internal/histlog"
)

// Mode selects how a log is written.
type Mode int

const (
	// ModeSingle overwrites the target with one snapshot.
	ModeSingle Mode = iota
	// ModeEnsemble appends one snapshot per replication.
	ModeEnsemble
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeEnsemble:
		return "ensemble"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts "single" or "ensemble" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "single":
		return ModeSingle, nil
	case "ensemble":
		return ModeEnsemble, nil
	default:
		return 0, fmt.Errorf("unknown run mode %q: must be single or ensemble", s)
	}
}

// NamingFunc maps a run mode and run metadata to the file to write.
type NamingFunc func(mode Mode, meta histlog.RunMetadata) (string, error)

var riskModelPrefixes = map[int]string{
	1: "one",
	2: "two",
	3: "three",
	4: "four",
}

// LegacyNaming returns the historical naming scheme rooted at dir.
// Ensemble files are bucketed by risk-model count; counts outside 1-4 fail
// with an UNKNOWN_RISK_MODEL_COUNT error.
func LegacyNaming(dir string) NamingFunc {
	return func(mode Mode, meta histlog.RunMetadata) (string, error) {
		switch mode {
		case ModeSingle:
			return filepath.Join(dir, "history_logs.dat"), nil
		case ModeEnsemble:
			prefix, ok := riskModelPrefixes[meta.RiskModels]
			if !ok {
				return "", histlog.NewUnknownRiskModelCountError(meta.RiskModels)
			}
			return filepath.Join(dir, prefix+"_history_logs.dat"), nil
		default:
			return "", fmt.Errorf("unknown run mode %v", mode)
		}
	}
}
