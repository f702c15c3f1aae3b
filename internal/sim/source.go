package sim

import (
	"context"
	"fmt"

	"github.com/roach88/histlog/internal/histlog"
)

// Step is one period produced by a Source.
type Step struct {
	// Firms entering before the period is recorded.
	NewInsurers   int
	NewReinsurers int

	Period histlog.PeriodData
}

// Source yields sequential periods. ok is false once the source is exhausted.
type Source interface {
	Next(ctx context.Context) (step Step, ok bool, err error)
}

// Run records every step of src into l and returns the number of periods
// recorded. Entering firms are added before the period that first carries
// their values.
func Run(ctx context.Context, l *histlog.Log, src Source) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		step, ok, err := src.Next(ctx)
		if err != nil {
			return n, fmt.Errorf("sim: period %d: %w", n, err)
		}
		if !ok {
			return n, nil
		}
		for range step.NewInsurers {
			l.AddInsurer()
		}
		for range step.NewReinsurers {
			l.AddReinsurer()
		}
		if err := l.Record(step.Period); err != nil {
			return n, fmt.Errorf("sim: period %d: %w", n, err)
		}
		n++
	}
}

// StaticSource replays a fixed list of steps.
type StaticSource struct {
	steps []Step
	idx   int
}

func NewStaticSource(steps ...Step) *StaticSource {
	return &StaticSource{steps: steps}
}

func (s *StaticSource) Next(ctx context.Context) (Step, bool, error) {
	if s.idx >= len(s.steps) {
		return Step{}, false, nil
	}
	step := s.steps[s.idx]
	s.idx++
	return step, true, nil
}
