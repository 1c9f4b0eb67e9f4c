// Package workspace ticks the automations of a workspace and rolls their
// cycle outcomes up into workspace statistics.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/crate/pkg/engine"
	"github.com/dukex/crate/pkg/facts"
	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/otelhelper"
	"github.com/dukex/crate/pkg/persistence"
	"github.com/dukex/crate/pkg/scheduler"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Observer is told about every cycle that was evaluated, after its
// automation and workspace have been persisted.
type Observer interface {
	CycleCompleted(ctx context.Context, workspace *models.Workspace, automation *models.Automation, outcome *engine.CycleOutcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, workspace *models.Workspace, automation *models.Automation, outcome *engine.CycleOutcome)

func (f ObserverFunc) CycleCompleted(ctx context.Context, workspace *models.Workspace, automation *models.Automation, outcome *engine.CycleOutcome) {
	f(ctx, workspace, automation, outcome)
}

// Report summarises one workspace tick.
type Report struct {
	WorkspaceID      string                 `json:"workspace_id"`
	Evaluated        int                    `json:"evaluated"`
	Skipped          int                    `json:"skipped"`
	Missing          int                    `json:"missing"`
	NotDue           int                    `json:"not_due"`
	ConditionsNotMet int                    `json:"conditions_not_met"`
	Executed         int                    `json:"executed"`
	TotalDelta       uint64                 `json:"total_executions_delta"`
	SuccessfulDelta  uint64                 `json:"successful_executions_delta"`
	FailedDelta      uint64                 `json:"failed_executions_delta"`
	Outcomes         []*engine.CycleOutcome `json:"outcomes"`
	Duration         time.Duration          `json:"duration"`
}

// Changed reports whether the tick modified workspace statistics.
func (r *Report) Changed() bool {
	return r.TotalDelta > 0
}

// Aggregator ticks workspaces. Ticks and executions of the same workspace
// are serialized; different workspaces proceed in parallel.
type Aggregator struct {
	persistence persistence.Persistence
	engine      *engine.Engine
	observers   []Observer
	tracer      trace.Tracer
	logger      *slog.Logger
	locks       sync.Map
}

type Option func(*Aggregator)

func WithObservers(observers ...Observer) Option {
	return func(a *Aggregator) {
		a.observers = append(a.observers, observers...)
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(a *Aggregator) {
		a.tracer = tracer
	}
}

func NewAggregator(p persistence.Persistence, e *engine.Engine, logger *slog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		persistence: p,
		engine:      e,
		tracer:      noop.NewTracerProvider().Tracer("crate-workspace"),
		logger:      logger.With("module", "workspace_aggregator"),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Aggregator) lock(workspaceID string) (unlock func()) {
	value, _ := a.locks.LoadOrStore(workspaceID, &sync.Mutex{})
	mu := value.(*sync.Mutex) //nolint:forcetypeassert // only *sync.Mutex is stored

	mu.Lock()

	return mu.Unlock
}

// Tick evaluates every automation of the workspace once, in list order.
//
// All automations are loaded before any cycle runs, so a failing load leaves
// nothing changed. Every evaluated automation is saved right after its cycle,
// followed by the workspace when the cycle executed, so stored workspace
// totals always match the stored automations. Fact failures degrade to unmet
// conditions; persistence failures abort the tick and are returned.
func (a *Aggregator) Tick(ctx context.Context, workspaceID string, now time.Time, provider facts.Provider) (*Report, error) {
	defer a.lock(workspaceID)()

	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "workspace.tick",
		attribute.String(otelhelper.WorkspaceIDKey, workspaceID),
	)
	defer span.End()

	report, err := a.tick(ctx, workspaceID, now, provider)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.Int(otelhelper.ExecutedKey, report.Executed))

	return report, nil
}

func (a *Aggregator) tick(ctx context.Context, workspaceID string, now time.Time, provider facts.Provider) (*Report, error) {
	started := time.Now()

	workspace, err := a.persistence.WorkspaceByID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	logger := a.logger.With("workspace_id", workspace.ID)

	report := &Report{
		WorkspaceID: workspace.ID,
		Outcomes:    make([]*engine.CycleOutcome, 0, len(workspace.Automations)),
	}

	active := make([]*models.Automation, 0, len(workspace.Automations))

	for _, automationID := range workspace.Automations {
		automation, err := a.persistence.AutomationByID(ctx, automationID)
		if persistence.IsAutomationNotFound(err) {
			logger.WarnContext(ctx, "automation listed by workspace not found", "automation_id", automationID)

			report.Missing++

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to load automation %s: %w", automationID, err)
		}

		if !automation.IsActive() {
			report.Skipped++

			continue
		}

		active = append(active, automation)
	}

	for _, automation := range active {
		outcome, err := a.runCycle(ctx, workspace, automation, now, provider)
		if err != nil {
			return nil, err
		}

		report.Evaluated++
		report.Outcomes = append(report.Outcomes, outcome)

		switch outcome.Kind {
		case engine.OutcomeNotDue:
			report.NotDue++

			continue
		case engine.OutcomeConditionsNotMet:
			report.ConditionsNotMet++
		case engine.OutcomeExecuted:
			report.Executed++
			report.TotalDelta++

			if outcome.Success {
				report.SuccessfulDelta++
			} else {
				report.FailedDelta++
			}
		}

		if err := a.persist(ctx, workspace, automation, outcome, now); err != nil {
			return nil, err
		}
	}

	report.Duration = time.Since(started)

	logger.DebugContext(ctx, "workspace ticked",
		"evaluated", report.Evaluated,
		"executed", report.Executed,
		"skipped", report.Skipped,
		"failed", report.FailedDelta)

	return report, nil
}

// Execute runs one cycle of a single automation on demand and rolls an
// executed cycle up into its workspace. It fails with
// models.ErrAutomationNotActive, leaving everything unchanged, unless the
// automation is Active.
func (a *Aggregator) Execute(ctx context.Context, automationID string, now time.Time, provider facts.Provider) (*engine.CycleOutcome, error) {
	automation, err := a.persistence.AutomationByID(ctx, automationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load automation: %w", err)
	}

	defer a.lock(automation.WorkspaceID)()

	// reload, a tick may have finished while waiting for the lock
	automation, err = a.persistence.AutomationByID(ctx, automationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load automation: %w", err)
	}

	if !automation.IsActive() {
		return nil, fmt.Errorf("%w: automation %s is %s", models.ErrAutomationNotActive, automation.ID, automation.Status)
	}

	workspace, err := a.persistence.WorkspaceByID(ctx, automation.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	outcome, err := a.runCycle(ctx, workspace, automation, now, provider)
	if err != nil {
		return nil, err
	}

	if outcome.Kind == engine.OutcomeNotDue {
		return outcome, nil
	}

	if err := a.persist(ctx, workspace, automation, outcome, now); err != nil {
		return nil, err
	}

	return outcome, nil
}

// persist stores an evaluated cycle, then the workspace rollup when the cycle
// executed, and notifies the observers.
func (a *Aggregator) persist(
	ctx context.Context,
	workspace *models.Workspace,
	automation *models.Automation,
	outcome *engine.CycleOutcome,
	now time.Time,
) error {
	if err := a.persistence.SaveAutomation(ctx, automation); err != nil {
		return fmt.Errorf("failed to save automation %s: %w", automation.ID, err)
	}

	if outcome.Kind == engine.OutcomeExecuted {
		workspace.RecordExecution(outcome.Success, now)

		if err := a.persistence.SaveWorkspace(ctx, workspace); err != nil {
			return fmt.Errorf("failed to save workspace: %w", err)
		}
	}

	for _, observer := range a.observers {
		observer.CycleCompleted(ctx, workspace, automation, outcome)
	}

	return nil
}

func (a *Aggregator) runCycle(
	ctx context.Context,
	workspace *models.Workspace,
	automation *models.Automation,
	now time.Time,
	provider facts.Provider,
) (*engine.CycleOutcome, error) {
	var cycleOpts []engine.CycleOption
	if !workspace.Settings.AutoRetry {
		cycleOpts = append(cycleOpts, engine.WithoutRetry())
	}

	if !scheduler.IsDue(automation.Trigger, now) {
		return a.engine.EvaluateAndExecute(ctx, automation, models.FactSnapshot{Now: now}, now, cycleOpts...)
	}

	snapshot, err := provider.Facts(ctx, workspace, automation, now)
	if err != nil {
		return a.engine.RecordFactFailure(ctx, automation, now, err)
	}

	return a.engine.EvaluateAndExecute(ctx, automation, snapshot, now, cycleOpts...)
}
