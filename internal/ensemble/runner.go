package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/histlog/internal/histlog"
	"github.com/roach88/histlog/internal/persist"
	"github.com/roach88/histlog/internal/sim"
	"github.com/roach88/histlog/internal/store"
	"github.com/roach88/histlog/internal/transport"
)

// SourceFactory builds the period source for one replication.
type SourceFactory func(replication int, meta histlog.RunMetadata) (sim.Source, error)

// MarketSources returns a factory of synthetic markets. Replication i is
// seeded with cfg.Seed+i so every replication differs but reruns repeat.
func MarketSources(cfg sim.Config) SourceFactory {
	return func(replication int, meta histlog.RunMetadata) (sim.Source, error) {
		c := cfg
		c.Seed = cfg.Seed + uint64(replication)
		return sim.NewMarket(c, meta)
	}
}

// Runner runs an ensemble.
type Runner struct {
	Replications int
	Workers      int // defaults to 1
	Meta         histlog.RunMetadata

	Sources SourceFactory
	Writer  *persist.Writer
	Store   *store.Store // optional
	IDs     IDGenerator  // defaults to UUIDv7Generator
	Logger  *slog.Logger // defaults to slog.Default()
}

// Result summarizes a finished ensemble.
type Result struct {
	// IDs of received replications in arrival order.
	IDs []string
	// Bucket file every replication was appended to.
	Path string
	// Replications newly recorded in the store.
	Stored int
	// Replications the store already held.
	Duplicates int
}

// shipment is what crosses from a worker to the coordinator.
type shipment struct {
	replication int
	payload     []byte
}

// Run executes every replication and returns once the coordinator has
// persisted all of them, or on the first error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}
	logger := r.logger()
	logger.Info("ensemble starting",
		"replications", r.Replications,
		"workers", workers,
		"risk_models", r.Meta.RiskModels)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	shipments := make(chan shipment)

	g.Go(func() error {
		defer close(jobs)
		for i := range r.Replications {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for i := range jobs {
				payload, err := r.replicate(gctx, i)
				if err != nil {
					return err
				}
				select {
				case shipments <- shipment{replication: i, payload: payload}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(shipments)
	}()

	res := &Result{IDs: []string{}}
	g.Go(func() error {
		for s := range shipments {
			if err := r.receive(gctx, s, res); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ensemble: %w", err)
	}
	logger.Info("ensemble complete",
		"replications", len(res.IDs),
		"path", res.Path,
		"stored", res.Stored,
		"duplicates", res.Duplicates)
	return res, nil
}

func (r *Runner) validate() error {
	switch {
	case r.Replications < 0:
		return fmt.Errorf("ensemble: replications must not be negative, got %d", r.Replications)
	case r.Sources == nil:
		return fmt.Errorf("ensemble: runner has no source factory")
	case r.Writer == nil:
		return fmt.Errorf("ensemble: runner has no writer")
	}
	return nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) ids() IDGenerator {
	if r.IDs != nil {
		return r.IDs
	}
	return UUIDv7Generator{}
}

// replicate runs one replication on a fresh log and returns the encoded flat
// form of every tracked series.
func (r *Runner) replicate(ctx context.Context, i int) ([]byte, error) {
	src, err := r.Sources(i, r.Meta)
	if err != nil {
		return nil, fmt.Errorf("replication %d: source: %w", i, err)
	}
	l := histlog.New(r.Meta)
	periods, err := sim.Run(ctx, l, src)
	if err != nil {
		return nil, fmt.Errorf("replication %d: %w", i, err)
	}

	f, err := transport.Serialize(l, histlog.AllKeys()...)
	if err != nil {
		return nil, fmt.Errorf("replication %d: %w", i, err)
	}
	payload, err := transport.Encode(f)
	if err != nil {
		return nil, fmt.Errorf("replication %d: %w", i, err)
	}
	r.logger().Debug("replication finished",
		"replication", i,
		"periods", periods,
		"insurers", len(l.Insurers()),
		"reinsurers", len(l.Reinsurers()),
		"bytes", len(payload))
	return payload, nil
}

// receive runs on the coordinator goroutine only.
func (r *Runner) receive(ctx context.Context, s shipment, res *Result) error {
	f, err := transport.Decode(s.payload)
	if err != nil {
		return fmt.Errorf("replication %d: %w", s.replication, err)
	}
	snap, err := transport.Deserialize(f)
	if err != nil {
		return fmt.Errorf("replication %d: %w", s.replication, err)
	}
	l, err := histlog.Restore(snap)
	if err != nil {
		return fmt.Errorf("replication %d: %w", s.replication, err)
	}

	path, err := r.Writer.Save(l, persist.ModeEnsemble)
	if err != nil {
		return fmt.Errorf("replication %d: %w", s.replication, err)
	}
	res.Path = path

	id := r.ids().Generate()
	res.IDs = append(res.IDs, id)

	attrs := []any{"replication", s.replication, "id", id, "periods", l.Periods()}
	if r.Store != nil {
		rep, err := store.NewReplication(id, f)
		if err != nil {
			return fmt.Errorf("replication %d: %w", s.replication, err)
		}
		inserted, err := r.Store.WriteReplication(ctx, rep)
		if err != nil {
			return fmt.Errorf("replication %d: %w", s.replication, err)
		}
		if inserted {
			res.Stored++
		} else {
			res.Duplicates++
		}
		attrs = append(attrs, "digest", rep.Digest, "inserted", inserted)
	}
	r.logger().Info("replication received", attrs...)
	return nil
}
