// Package executor runs a single action through its registered handler,
// retrying failed attempts as the action's retry configuration allows.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/registry"
	"github.com/dukex/crate/pkg/retry"
)

// Resolver finds the handler for an action.
type Resolver interface {
	Resolve(action models.Action) (registry.Handler, error)
}

// AttemptObserver is notified after every attempt.
type AttemptObserver func(action models.Action, attempt int, err error)

// Result is the outcome of one action within a cycle, after retries.
type Result struct {
	Index      int               `json:"index"`
	ActionType models.ActionType `json:"action_type"`
	Target     string            `json:"target"`
	Attempts   int               `json:"attempts"`
	Success    bool              `json:"success"`
	Output     any               `json:"output,omitempty"`
	Err        error             `json:"-"`
	Duration   time.Duration     `json:"duration"`
}

// Reason is the failure message, empty on success.
func (r Result) Reason() string {
	if r.Err == nil {
		return ""
	}

	return r.Err.Error()
}

type Executor struct {
	resolver  Resolver
	waiter    retry.Waiter
	logger    *slog.Logger
	observers []AttemptObserver
	now       func() time.Time
}

type Option func(*Executor)

func WithAttemptObserver(observer AttemptObserver) Option {
	return func(e *Executor) {
		e.observers = append(e.observers, observer)
	}
}

// WithNow overrides the clock used to measure attempt durations.
func WithNow(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

func New(resolver Resolver, waiter retry.Waiter, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		resolver: resolver,
		waiter:   waiter,
		logger:   logger.With("module", "executor"),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute attempts action until it succeeds or the retry policy gives up.
// Unsupported action types are failures like any other and are retried.
// action.RetryConfig.CurrentAttempts is updated in place.
func (e *Executor) Execute(ctx context.Context, index int, action *models.Action) Result {
	return e.run(ctx, index, action, true)
}

// ExecuteOnce makes a single attempt regardless of the retry configuration.
func (e *Executor) ExecuteOnce(ctx context.Context, index int, action *models.Action) Result {
	return e.run(ctx, index, action, false)
}

func (e *Executor) run(ctx context.Context, index int, action *models.Action, withRetry bool) Result {
	logger := e.logger.With("action_index", index, "action_type", action.ActionType, "target", action.Target)
	started := e.now()

	result := Result{
		Index:      index,
		ActionType: action.ActionType,
		Target:     action.Target,
	}

	for {
		result.Attempts++

		output, err := e.attempt(ctx, *action)
		for _, observe := range e.observers {
			observe(*action, result.Attempts, err)
		}

		if err == nil {
			result.Success = true
			result.Output = output
			result.Err = nil

			break
		}

		result.Err = err

		logger.WarnContext(ctx, "action attempt failed", "attempt", result.Attempts, "error", err)

		if !withRetry {
			break
		}

		decision := retry.ShouldRetry(action.RetryConfig, true)
		if decision.Kind != retry.Retry {
			logger.ErrorContext(ctx, "action gave up", "attempts", result.Attempts, "error", err)

			break
		}

		if waitErr := e.waiter.Wait(ctx, decision.After); waitErr != nil {
			logger.WarnContext(ctx, "retry wait interrupted", "error", waitErr)

			break
		}
	}

	result.Duration = e.now().Sub(started)

	return result
}

func (e *Executor) attempt(ctx context.Context, action models.Action) (any, error) {
	handler, err := e.resolver.Resolve(action)
	if err != nil {
		return nil, err
	}

	return handler.Execute(ctx, action.Target, action.Parameters)
}
