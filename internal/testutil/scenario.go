package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/roach88/histlog/internal/histlog"
)

// Scenario is a recorded run kept as a YAML fixture.
type Scenario struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description,omitempty"`
	Run         histlog.RunMetadata `yaml:"run"`
	Periods     []Period            `yaml:"periods"`
}

// Period is one recorded period. Firms in Enter are added before Values is
// recorded.
type Period struct {
	Enter  Entry          `yaml:"enter,omitempty"`
	Values map[string]any `yaml:"values"`
}

// Entry counts firms entering the market.
type Entry struct {
	Insurers   int `yaml:"insurers,omitempty"`
	Reinsurers int `yaml:"reinsurers,omitempty"`
}

// LoadScenario reads a scenario fixture, rejecting unknown fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("invalid scenario %s: name is required", path)
	}
	return &s, nil
}

// Replay builds a log from the scenario through the mapping form of Record.
func (s *Scenario) Replay() (*histlog.Log, error) {
	l := histlog.New(s.Run)
	for i, p := range s.Periods {
		for range p.Enter.Insurers {
			l.AddInsurer()
		}
		for range p.Enter.Reinsurers {
			l.AddReinsurer()
		}
		if err := l.RecordMap(p.Values); err != nil {
			return nil, fmt.Errorf("scenario %s period %d: %w", s.Name, i, err)
		}
	}
	return l, nil
}

// ScenarioPath returns the path of a bundled scenario fixture, usable from
// any package's tests.
func ScenarioPath(name string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata", "scenarios", name+".yaml")
}

// MustReplay loads and replays a bundled scenario, panicking on error.
func MustReplay(name string) *histlog.Log {
	s, err := LoadScenario(ScenarioPath(name))
	if err != nil {
		panic(err)
	}
	l, err := s.Replay()
	if err != nil {
		panic(err)
	}
	return l
}
