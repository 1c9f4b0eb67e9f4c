// Package engine runs automation cycles: trigger gating, condition
// evaluation, ordered action execution and the resulting statistics and
// status transitions.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/crate/pkg/conditions"
	"github.com/dukex/crate/pkg/executor"
	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/otelhelper"
	"github.com/dukex/crate/pkg/scheduler"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ActionRunner executes one action of a cycle.
type ActionRunner interface {
	Execute(ctx context.Context, index int, action *models.Action) executor.Result
	ExecuteOnce(ctx context.Context, index int, action *models.Action) executor.Result
}

type Engine struct {
	evaluator *conditions.Evaluator
	runner    ActionRunner
	config    Config
	clock     clockwork.Clock
	tracer    trace.Tracer
	logger    *slog.Logger
}

type Option func(*Engine)

// WithClock sets the clock used to measure cycle duration.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func New(evaluator *conditions.Evaluator, runner ActionRunner, config Config, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		evaluator: evaluator,
		runner:    runner,
		config:    config,
		clock:     clockwork.NewRealClock(),
		tracer:    noop.NewTracerProvider().Tracer("crate-engine"),
		logger:    logger.With("module", "engine"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type cycleOptions struct {
	withoutRetry bool
}

type CycleOption func(*cycleOptions)

// WithoutRetry runs every action exactly once.
func WithoutRetry() CycleOption {
	return func(o *cycleOptions) {
		o.withoutRetry = true
	}
}

// EvaluateAndExecute runs one cycle of automation at now. It fails without
// touching the automation unless the automation is Active. Otherwise the
// automation is updated in place and the returned outcome describes the cycle.
func (e *Engine) EvaluateAndExecute(
	ctx context.Context,
	automation *models.Automation,
	facts models.FactSnapshot,
	now time.Time,
	opts ...CycleOption,
) (*CycleOutcome, error) {
	if !automation.IsActive() {
		return nil, fmt.Errorf("%w: automation %s is %s", models.ErrAutomationNotActive, automation.ID, automation.Status)
	}

	options := cycleOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.cycle",
		attribute.String(otelhelper.AutomationIDKey, automation.ID),
		attribute.String(otelhelper.WorkspaceIDKey, automation.WorkspaceID),
		attribute.String(otelhelper.TriggerTypeKey, string(automation.Trigger.TriggerType)),
	)
	defer span.End()

	logger := e.logger.With("automation_id", automation.ID, "workspace_id", automation.WorkspaceID)

	outcome := &CycleOutcome{
		AutomationID: automation.ID,
		WorkspaceID:  automation.WorkspaceID,
		Status:       automation.Status,
	}

	if !scheduler.IsDue(automation.Trigger, now) {
		outcome.Kind = OutcomeNotDue
		span.SetAttributes(attribute.String(otelhelper.OutcomeKey, string(outcome.Kind)))

		return outcome, nil
	}

	if facts.Now.IsZero() {
		facts.Now = now
	}

	if !e.evaluator.Evaluate(ctx, automation.Trigger.Conditions, facts, automation.CreatedAt) {
		outcome.Kind = OutcomeConditionsNotMet
		span.SetAttributes(attribute.String(otelhelper.OutcomeKey, string(outcome.Kind)))
		logger.DebugContext(ctx, "conditions not met")

		return outcome, nil
	}

	outcome.Kind = OutcomeExecuted
	e.runActions(ctx, automation, outcome, options)

	automation.LastExecutedAt = &now
	automation.ExecutionStats.RecordCycle(outcome.Success, outcome.Elapsed, outcome.Error)

	e.applyTransitions(ctx, logger, automation, outcome, now)
	outcome.Status = automation.Status

	span.SetAttributes(
		attribute.String(otelhelper.OutcomeKey, string(outcome.Kind)),
		attribute.Bool(otelhelper.SuccessKey, outcome.Success),
	)

	if !outcome.Success {
		otelhelper.SetError(span, fmt.Errorf("cycle failed: %s", outcome.Error),
			attribute.String(otelhelper.AutomationIDKey, automation.ID))
	}

	logger.InfoContext(ctx, "cycle executed",
		"success", outcome.Success,
		"actions", len(outcome.Results),
		"elapsed", outcome.Elapsed,
		"status", automation.Status)

	return outcome, nil
}

func (e *Engine) runActions(ctx context.Context, automation *models.Automation, outcome *CycleOutcome, options cycleOptions) {
	automation.ResetRetryCounters()

	started := e.clock.Now()
	outcome.Success = true
	outcome.Results = make([]executor.Result, 0, len(automation.Actions))

	for i := range automation.Actions {
		var result executor.Result
		if options.withoutRetry {
			result = e.runner.ExecuteOnce(ctx, i, &automation.Actions[i])
		} else {
			result = e.runner.Execute(ctx, i, &automation.Actions[i])
		}

		outcome.Results = append(outcome.Results, result)
		trace.SpanFromContext(ctx).AddEvent("action", trace.WithAttributes(
			attribute.Int(otelhelper.ActionIndexKey, i),
			attribute.String(otelhelper.ActionTypeKey, string(result.ActionType)),
			attribute.Bool(otelhelper.SuccessKey, result.Success),
		))

		if result.Success {
			continue
		}

		if outcome.Success {
			outcome.Success = false
			outcome.Error = result.Reason()
		}

		if e.config.AbortOnActionFailure && i < len(automation.Actions)-1 {
			outcome.Aborted = true

			break
		}
	}

	outcome.Elapsed = e.clock.Since(started)
}

func (e *Engine) applyTransitions(
	ctx context.Context,
	logger *slog.Logger,
	automation *models.Automation,
	outcome *CycleOutcome,
	now time.Time,
) {
	stats := automation.ExecutionStats

	if schedule := automation.Trigger.Schedule; automation.Trigger.TriggerType == models.TriggerTypeSchedule && schedule != nil {
		if scheduler.Exhausted(*schedule, stats.TotalExecutions) {
			e.transition(ctx, logger, automation, models.AutomationStatusCompleted)

			return
		}

		next, err := scheduler.Advance(*schedule, now)
		if err != nil {
			logger.ErrorContext(ctx, "cannot reschedule automation", "error", err)
			e.transition(ctx, logger, automation, models.AutomationStatusFailed)

			return
		}

		automation.Trigger.Schedule = &next
	}

	if !outcome.Success && e.config.FailureThreshold > 0 && stats.FailedExecutions > e.config.FailureThreshold {
		e.transition(ctx, logger, automation, models.AutomationStatusFailed)
	}
}

func (e *Engine) transition(ctx context.Context, logger *slog.Logger, automation *models.Automation, to models.AutomationStatus) {
	from := automation.Status
	if err := automation.TransitionTo(to); err != nil {
		logger.WarnContext(ctx, "status transition rejected", "error", err)

		return
	}

	logger.InfoContext(ctx, "automation status changed", "from", from, "to", to)
}

// RecordFactFailure degrades a fact provider failure to an unmet-conditions
// outcome: every condition is stamped with the failure and statistics are
// left untouched.
func (e *Engine) RecordFactFailure(ctx context.Context, automation *models.Automation, now time.Time, cause error) (*CycleOutcome, error) {
	if !automation.IsActive() {
		return nil, fmt.Errorf("%w: automation %s is %s", models.ErrAutomationNotActive, automation.ID, automation.Status)
	}

	outcome := &CycleOutcome{
		AutomationID: automation.ID,
		WorkspaceID:  automation.WorkspaceID,
		Status:       automation.Status,
		Kind:         OutcomeNotDue,
	}

	if !scheduler.IsDue(automation.Trigger, now) {
		return outcome, nil
	}

	outcome.Kind = OutcomeConditionsNotMet
	outcome.Error = cause.Error()

	for i := range automation.Trigger.Conditions {
		checkedAt := now
		automation.Trigger.Conditions[i].LastCheck = &checkedAt
		automation.Trigger.Conditions[i].LastValue = map[string]any{"error": "facts unavailable: " + cause.Error()}
	}

	e.logger.WarnContext(ctx, "facts unavailable, conditions treated as not met",
		"automation_id", automation.ID,
		"error", cause)

	return outcome, nil
}

// Pause moves an Active automation to Paused.
func (e *Engine) Pause(automation *models.Automation) error {
	if automation.Status != models.AutomationStatusActive {
		return &models.TransitionError{AutomationID: automation.ID, From: automation.Status, To: models.AutomationStatusPaused}
	}

	return automation.TransitionTo(models.AutomationStatusPaused)
}

// Resume moves a Paused automation back to Active.
func (e *Engine) Resume(automation *models.Automation) error {
	if automation.Status != models.AutomationStatusPaused {
		return &models.TransitionError{AutomationID: automation.ID, From: automation.Status, To: models.AutomationStatusActive}
	}

	return automation.TransitionTo(models.AutomationStatusActive)
}
