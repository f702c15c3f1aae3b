package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/histlog/internal/histlog"
	"github.com/roach88/histlog/internal/transport"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestReplication builds a replication with one insurer whose cash
// follows the given values, one period per value.
func createTestReplication(t *testing.T, id string, riskModels int, cash ...float64) Replication {
	t.Helper()

	l := histlog.New(histlog.RunMetadata{
		RiskModels:    riskModels,
		EventSchedule: [][]int{{3}},
		EventDamage:   [][]float64{{0.4}},
	})
	l.AddInsurer()
	for _, c := range cash {
		err := l.Record(histlog.PeriodData{
			TotalCash:           c,
			IndividualContracts: []float64{1},
			InsuranceFirmsCash:  []float64{c},
		})
		if err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	f, err := transport.Serialize(l)
	if err != nil {
		t.Fatalf("Serialize() failed: %v", err)
	}
	rep, err := NewReplication(id, f)
	if err != nil {
		t.Fatalf("NewReplication() failed: %v", err)
	}
	return rep
}
