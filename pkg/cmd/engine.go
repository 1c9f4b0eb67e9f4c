package cmd

import (
	"log/slog"

	"github.com/dukex/crate/pkg/conditions"
	"github.com/dukex/crate/pkg/engine"
	"github.com/dukex/crate/pkg/executor"
	"github.com/dukex/crate/pkg/registry"
	"github.com/dukex/crate/pkg/retry"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"
)

// EngineOptions are the knobs shared by every binary that runs cycles.
type EngineOptions struct {
	Config          engine.Config
	Clock           clockwork.Clock
	Tracer          trace.Tracer
	AttemptObserver executor.AttemptObserver
}

// NewEngine wires the condition evaluator and the retrying executor over reg.
func NewEngine(logger *slog.Logger, reg *registry.Registry, options EngineOptions) *engine.Engine {
	clock := options.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	executorOpts := []executor.Option{executor.WithNow(clock.Now)}
	if options.AttemptObserver != nil {
		executorOpts = append(executorOpts, executor.WithAttemptObserver(options.AttemptObserver))
	}

	exec := executor.New(reg, retry.NewClockWaiter(clock), logger, executorOpts...)

	engineOpts := []engine.Option{engine.WithClock(clock)}
	if options.Tracer != nil {
		engineOpts = append(engineOpts, engine.WithTracer(options.Tracer))
	}

	return engine.New(conditions.NewEvaluator(logger), exec, options.Config, logger, engineOpts...)
}

// FailureThreshold converts a flag value to the engine threshold; negative
// values disable it.
func FailureThreshold[T int | int64](v T) uint64 {
	if v < 0 {
		return 0
	}

	return uint64(v)
}
