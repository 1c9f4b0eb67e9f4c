package main

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dukex/crate/pkg/facts"
	"github.com/dukex/crate/pkg/persistence"
	"github.com/dukex/crate/pkg/workspace"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// TickRecorder receives the duration and result of every workspace tick.
type TickRecorder interface {
	RecordTick(duration time.Duration, err error)
}

// Summary describes one pass over every workspace.
type Summary struct {
	Workspaces int
	Failed     int
	Executed   int
}

// Runner ticks every stored workspace, at most concurrency at a time.
type Runner struct {
	persistence persistence.Persistence
	aggregator  *workspace.Aggregator
	facts       facts.Provider
	clock       clockwork.Clock
	recorder    TickRecorder
	concurrency int
	logger      *slog.Logger
}

func NewRunner(
	p persistence.Persistence,
	aggregator *workspace.Aggregator,
	provider facts.Provider,
	clock clockwork.Clock,
	recorder TickRecorder,
	concurrency int,
	logger *slog.Logger,
) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Runner{
		persistence: p,
		aggregator:  aggregator,
		facts:       provider,
		clock:       clock,
		recorder:    recorder,
		concurrency: concurrency,
		logger:      logger.With("module", "engine_runner"),
	}
}

// TickAll runs one tick for every workspace. A failing workspace is logged
// and counted without stopping the others; only listing workspaces fails the pass.
func (r *Runner) TickAll(ctx context.Context) (Summary, error) {
	workspaces, err := r.persistence.Workspaces(ctx)
	if err != nil {
		return Summary{}, err
	}

	now := r.clock.Now()

	var (
		failed   atomic.Int64
		executed atomic.Int64
	)

	eg := &errgroup.Group{}
	eg.SetLimit(r.concurrency)

	for _, ws := range workspaces {
		eg.Go(func() error {
			started := r.clock.Now()

			report, err := r.aggregator.Tick(ctx, ws.ID, now, r.facts)
			if r.recorder != nil {
				r.recorder.RecordTick(r.clock.Since(started), err)
			}

			if err != nil {
				failed.Add(1)
				r.logger.ErrorContext(ctx, "Workspace tick failed", "workspace_id", ws.ID, "error", err)

				return nil
			}

			executed.Add(int64(report.Executed))

			return nil
		})
	}

	_ = eg.Wait()

	summary := Summary{
		Workspaces: len(workspaces),
		Failed:     int(failed.Load()),
		Executed:   int(executed.Load()),
	}

	r.logger.InfoContext(ctx, "Tick pass finished",
		"workspaces", summary.Workspaces,
		"failed", summary.Failed,
		"executed", summary.Executed,
	)

	return summary, nil
}

// Run ticks immediately and then every interval until ctx is done.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.TickAll(ctx); err != nil {
			r.logger.ErrorContext(ctx, "Failed to list workspaces", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}
