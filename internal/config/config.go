package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/histlog/internal/histlog"
	"github.com/roach88/histlog/internal/sim"
)

// Config is one run file.
type Config struct {
	// DataDir receives the .dat history files.
	DataDir string `yaml:"data_dir"`

	// Database is the replication store path. Empty disables the store.
	Database string `yaml:"database,omitempty"`

	Periods      int    `yaml:"periods"`
	Replications int    `yaml:"replications"`
	Workers      int    `yaml:"workers"`
	Seed         uint64 `yaml:"seed"`

	// Synthetic market shape.
	InitialInsurers   int     `yaml:"initial_insurers"`
	InitialReinsurers int     `yaml:"initial_reinsurers"`
	EntryProbability  float64 `yaml:"entry_probability"`

	Run histlog.RunMetadata `yaml:"run"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	m := sim.DefaultConfig()
	return Config{
		DataDir:           "data",
		Periods:           m.Periods,
		Replications:      1,
		Workers:           1,
		Seed:              m.Seed,
		InitialInsurers:   m.InitialInsurers,
		InitialReinsurers: m.InitialReinsurers,
		EntryProbability:  m.EntryProbability,
		Run: histlog.RunMetadata{
			RiskModels:    1,
			EventSchedule: [][]int{},
			EventDamage:   [][]float64{},
		},
	}
}

// Load reads and validates a run file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result. An empty document
// yields Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field ranges and that the event schedule and damages line up.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Periods < 0 {
		return fmt.Errorf("periods must not be negative, got %d", c.Periods)
	}
	if c.Replications < 0 {
		return fmt.Errorf("replications must not be negative, got %d", c.Replications)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.InitialInsurers < 0 || c.InitialReinsurers < 0 {
		return fmt.Errorf("initial firm counts must not be negative")
	}
	if c.EntryProbability < 0 || c.EntryProbability > 1 {
		return fmt.Errorf("entry_probability must be in [0, 1], got %v", c.EntryProbability)
	}
	if c.Run.RiskModels < 1 {
		return fmt.Errorf("run.risk_models must be at least 1, got %d", c.Run.RiskModels)
	}
	if len(c.Run.EventSchedule) != len(c.Run.EventDamage) {
		return fmt.Errorf("run.event_schedule has %d categories but run.event_damage has %d",
			len(c.Run.EventSchedule), len(c.Run.EventDamage))
	}
	for i, periods := range c.Run.EventSchedule {
		if len(periods) != len(c.Run.EventDamage[i]) {
			return fmt.Errorf("run category %d: %d scheduled events but %d damages",
				i, len(periods), len(c.Run.EventDamage[i]))
		}
		for _, p := range periods {
			if p < 0 {
				return fmt.Errorf("run category %d: negative event period %d", i, p)
			}
		}
		for _, d := range c.Run.EventDamage[i] {
			if d < 0 || d > 1 {
				return fmt.Errorf("run category %d: damage %v outside [0, 1]", i, d)
			}
		}
	}
	return nil
}

// Market returns the synthetic market configuration for this run.
func (c Config) Market() sim.Config {
	return sim.Config{
		Periods:           c.Periods,
		Seed:              c.Seed,
		InitialInsurers:   c.InitialInsurers,
		InitialReinsurers: c.InitialReinsurers,
		EntryProbability:  c.EntryProbability,
	}
}
