package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/crate/pkg/conditions"
	"github.com/dukex/crate/pkg/executor"
	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/otelhelper"
	"github.com/dukex/crate/pkg/registry"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var t0 = time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

type noWait struct{}

func (noWait) Wait(context.Context, time.Duration) error { return nil }

type fixture struct {
	engine   *Engine
	registry *registry.Registry
	clock    *clockwork.FakeClock
	calls    map[models.ActionType]int
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()

	f := &fixture{
		registry: registry.NewRegistry(slog.Default()),
		clock:    clockwork.NewFakeClockAt(t0),
		calls:    map[models.ActionType]int{},
	}

	exec := executor.New(f.registry, noWait{}, slog.Default())
	f.engine = New(conditions.NewEvaluator(slog.Default()), exec, config, slog.Default(), WithClock(f.clock))

	return f
}

func (f *fixture) succeed(kind models.ActionType, took time.Duration) {
	f.registry.Register(kind, registry.HandlerFunc(func(context.Context, string, map[string]any) (any, error) {
		f.calls[kind]++
		f.clock.Advance(took)

		return "ok", nil
	}))
}

func (f *fixture) fail(kind models.ActionType) {
	f.registry.Register(kind, registry.HandlerFunc(func(context.Context, string, map[string]any) (any, error) {
		f.calls[kind]++

		return nil, errors.New(string(kind) + " reverted")
	}))
}

func newAutomation(t *testing.T, trigger models.Trigger, actions ...models.Action) *models.Automation {
	t.Helper()

	automation, err := models.NewAutomation("auto-1", "ws-1", "owner", "test", trigger, t0)
	require.NoError(t, err)

	for _, action := range actions {
		require.NoError(t, automation.AddAction(action))
	}

	return automation
}

func priceAbove(threshold float64) models.Trigger {
	return models.Trigger{
		TriggerType: models.TriggerTypePrice,
		Conditions: []models.Condition{{
			ConditionType: models.ConditionPriceAbove,
			Parameters:    map[string]any{conditions.ParamThreshold: threshold},
		}},
	}
}

func TestEvaluateAndExecute_RejectsInactive(t *testing.T) {
	for _, status := range []models.AutomationStatus{
		models.AutomationStatusPaused,
		models.AutomationStatusFailed,
		models.AutomationStatusCompleted,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, Config{})
			f.succeed(models.ActionTypeSwap, 0)

			automation := newAutomation(t, models.Trigger{TriggerType: models.TriggerTypePrice}, models.Action{ActionType: models.ActionTypeSwap})
			automation.Status = status

			outcome, err := f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0)

			require.ErrorIs(t, err, models.ErrAutomationNotActive)
			assert.True(t, models.IsStateError(err))
			assert.Nil(t, outcome)
			assert.Equal(t, models.ExecutionStats{}, automation.ExecutionStats)
			assert.Nil(t, automation.LastExecutedAt)
			assert.Zero(t, f.calls[models.ActionTypeSwap])
		})
	}
}

func TestEvaluateAndExecute_PriceAbove(t *testing.T) {
	f := newFixture(t, Config{})
	f.succeed(models.ActionTypeSwap, time.Second)

	automation := newAutomation(t, priceAbove(100), models.Action{ActionType: models.ActionTypeSwap})

	outcome, err := f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{Price: 50}, t0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConditionsNotMet, outcome.Kind)
	assert.Zero(t, automation.ExecutionStats.TotalExecutions)
	assert.Nil(t, automation.LastExecutedAt)
	require.NotNil(t, automation.Trigger.Conditions[0].LastCheck)
	assert.Equal(t, 50.0, automation.Trigger.Conditions[0].LastValue)

	later := t0.Add(time.Minute)
	outcome, err = f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{Price: 150}, later)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExecuted, outcome.Kind)
	assert.True(t, outcome.Success)
	assert.Equal(t, time.Second, outcome.Elapsed)
	assert.Equal(t, uint64(1), automation.ExecutionStats.TotalExecutions)
	assert.Equal(t, uint64(1), automation.ExecutionStats.SuccessfulExecutions)
	require.NotNil(t, automation.LastExecutedAt)
	assert.Equal(t, later, *automation.LastExecutedAt)
	assert.Equal(t, 1, f.calls[models.ActionTypeSwap])
	assert.Equal(t, later, *automation.Trigger.Conditions[0].LastCheck)
}

func TestEvaluateAndExecute_FailedActionDoesNotStopSiblings(t *testing.T) {
	f := newFixture(t, Config{})
	f.fail(models.ActionTypeSwap)
	f.succeed(models.ActionTypeTransfer, 0)

	automation := newAutomation(t, models.Trigger{TriggerType: models.TriggerTypeBalance},
		models.Action{ActionType: models.ActionTypeSwap, RetryConfig: &models.RetryConfig{MaxAttempts: 2}},
		models.Action{ActionType: models.ActionTypeTransfer, Target: "treasury"},
	)

	outcome, err := f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0)
	require.NoError(t, err)

	assert.Equal(t, OutcomeExecuted, outcome.Kind)
	assert.False(t, outcome.Success)
	assert.False(t, outcome.Aborted)
	require.Len(t, outcome.Results, 2)
	assert.False(t, outcome.Results[0].Success)
	assert.Equal(t, 2, outcome.Results[0].Attempts)
	assert.True(t, outcome.Results[1].Success)
	assert.Equal(t, 1, f.calls[models.ActionTypeTransfer])
	assert.Equal(t, "swap reverted", outcome.Error)

	stats := automation.ExecutionStats
	assert.Equal(t, uint64(1), stats.TotalExecutions)
	assert.Equal(t, uint64(1), stats.FailedExecutions)
	assert.Zero(t, stats.SuccessfulExecutions)
	require.NotNil(t, stats.LastError)
	assert.Equal(t, "swap reverted", *stats.LastError)
	assert.Equal(t, models.AutomationStatusActive, automation.Status)
}

func TestEvaluateAndExecute_AbortOnActionFailure(t *testing.T) {
	f := newFixture(t, Config{AbortOnActionFailure: true})
	f.fail(models.ActionTypeSwap)
	f.succeed(models.ActionTypeTransfer, 0)

	automation := newAutomation(t, models.Trigger{TriggerType: models.TriggerTypeCustom},
		models.Action{ActionType: models.ActionTypeSwap},
		models.Action{ActionType: models.ActionTypeTransfer},
	)

	outcome, err := f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0)
	require.NoError(t, err)

	assert.True(t, outcome.Aborted)
	assert.Len(t, outcome.Results, 1)
	assert.Zero(t, f.calls[models.ActionTypeTransfer])
	assert.Equal(t, uint64(1), automation.ExecutionStats.FailedExecutions)
}

func TestEvaluateAndExecute_RunningAverage(t *testing.T) {
	f := newFixture(t, Config{})

	durations := []time.Duration{4 * time.Second, 2 * time.Second, 9 * time.Second}
	cycle := 0
	f.registry.Register(models.ActionTypeStake, registry.HandlerFunc(func(context.Context, string, map[string]any) (any, error) {
		f.clock.Advance(durations[cycle])
		cycle++

		return nil, nil
	}))

	automation := newAutomation(t, models.Trigger{TriggerType: models.TriggerTypePrice}, models.Action{ActionType: models.ActionTypeStake})

	for i := range durations {
		_, err := f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	require.NotNil(t, automation.ExecutionStats.AverageExecutionTime)
	assert.Equal(t, 5*time.Second, *automation.ExecutionStats.AverageExecutionTime)
	assert.Equal(t, uint64(3), automation.ExecutionStats.TotalExecutions)
}

func TestEvaluateAndExecute_ScheduleCompletes(t *testing.T) {
	f := newFixture(t, Config{})
	f.succeed(models.ActionTypeTransfer, 0)

	maxExecutions := uint64(2)
	automation := newAutomation(t, models.Trigger{
		TriggerType: models.TriggerTypeSchedule,
		Schedule:    &models.Schedule{Interval: 60, NextExecution: t0, MaxExecutions: &maxExecutions},
	}, models.Action{ActionType: models.ActionTypeTransfer})

	outcome, err := f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExecuted, outcome.Kind)
	assert.Equal(t, t0.Add(time.Minute), automation.Trigger.Schedule.NextExecution)
	assert.Equal(t, models.AutomationStatusActive, outcome.Status)

	outcome, err = f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotDue, outcome.Kind)
	assert.Equal(t, uint64(1), automation.ExecutionStats.TotalExecutions)

	outcome, err = f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, OutcomeExecuted, outcome.Kind)
	assert.Equal(t, models.AutomationStatusCompleted, outcome.Status)
	assert.Equal(t, models.AutomationStatusCompleted, automation.Status)

	_, err = f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0.Add(time.Hour))
	require.ErrorIs(t, err, models.ErrAutomationNotActive)
	assert.Equal(t, 2, f.calls[models.ActionTypeTransfer])
}

func TestEvaluateAndExecute_FailureThreshold(t *testing.T) {
	f := newFixture(t, Config{FailureThreshold: 1})
	f.fail(models.ActionTypeUnstake)

	automation := newAutomation(t, models.Trigger{TriggerType: models.TriggerTypePrice}, models.Action{ActionType: models.ActionTypeUnstake})

	outcome, err := f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0)
	require.NoError(t, err)
	assert.Equal(t, models.AutomationStatusActive, outcome.Status)

	outcome, err = f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.AutomationStatusFailed, outcome.Status)
	assert.Equal(t, uint64(2), automation.ExecutionStats.FailedExecutions)
}

func TestEvaluateAndExecute_RetryCountersResetEachCycle(t *testing.T) {
	f := newFixture(t, Config{})
	f.fail(models.ActionTypeSwap)

	automation := newAutomation(t, models.Trigger{TriggerType: models.TriggerTypePrice}, models.Action{
		ActionType:  models.ActionTypeSwap,
		RetryConfig: &models.RetryConfig{MaxAttempts: 3, CurrentAttempts: 7},
	})

	for i := range 2 {
		outcome, err := f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 3, outcome.Results[0].Attempts)
	}

	assert.Equal(t, 6, f.calls[models.ActionTypeSwap])
}

func TestEvaluateAndExecute_WithoutRetry(t *testing.T) {
	f := newFixture(t, Config{})
	f.fail(models.ActionTypeSwap)

	automation := newAutomation(t, models.Trigger{TriggerType: models.TriggerTypePrice}, models.Action{
		ActionType:  models.ActionTypeSwap,
		RetryConfig: &models.RetryConfig{MaxAttempts: 3},
	})

	outcome, err := f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0, WithoutRetry())
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Results[0].Attempts)
}

func TestEvaluateAndExecute_EmptyActionList(t *testing.T) {
	f := newFixture(t, Config{})
	automation := newAutomation(t, models.Trigger{TriggerType: models.TriggerTypePrice})

	outcome, err := f.engine.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, uint64(1), automation.ExecutionStats.SuccessfulExecutions)
}

func TestRecordFactFailure(t *testing.T) {
	f := newFixture(t, Config{})
	automation := newAutomation(t, priceAbove(10))

	outcome, err := f.engine.RecordFactFailure(context.Background(), automation, t0, errors.New("oracle timeout"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeConditionsNotMet, outcome.Kind)
	assert.Equal(t, models.ExecutionStats{}, automation.ExecutionStats)
	assert.Equal(t, t0, *automation.Trigger.Conditions[0].LastCheck)
	assert.Equal(t, map[string]any{"error": "facts unavailable: oracle timeout"}, automation.Trigger.Conditions[0].LastValue)

	automation.Status = models.AutomationStatusPaused
	_, err = f.engine.RecordFactFailure(context.Background(), automation, t0, errors.New("x"))
	require.ErrorIs(t, err, models.ErrAutomationNotActive)
}

func TestPauseResume(t *testing.T) {
	f := newFixture(t, Config{})
	automation := newAutomation(t, models.Trigger{TriggerType: models.TriggerTypePrice})

	require.ErrorIs(t, f.engine.Resume(automation), models.ErrInvalidTransition)

	require.NoError(t, f.engine.Pause(automation))
	assert.Equal(t, models.AutomationStatusPaused, automation.Status)
	require.ErrorIs(t, f.engine.Pause(automation), models.ErrInvalidTransition)

	require.NoError(t, f.engine.Resume(automation))
	assert.Equal(t, models.AutomationStatusActive, automation.Status)

	automation.Status = models.AutomationStatusCompleted
	require.ErrorIs(t, f.engine.Resume(automation), models.ErrInvalidTransition)
}

func TestEvaluateAndExecute_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	reg := registry.NewRegistry(slog.Default())
	reg.Register(models.ActionTypeSwap, registry.HandlerFunc(func(context.Context, string, map[string]any) (any, error) {
		return nil, errors.New("swap reverted")
	}))
	reg.Register(models.ActionTypeStake, registry.HandlerFunc(func(context.Context, string, map[string]any) (any, error) {
		return "staked", nil
	}))

	e := New(conditions.NewEvaluator(slog.Default()), executor.New(reg, noWait{}, slog.Default()), Config{}, slog.Default(),
		WithClock(clockwork.NewFakeClockAt(t0)), WithTracer(provider.Tracer("test")))

	automation := newAutomation(t, models.Trigger{TriggerType: models.TriggerTypeBalance},
		models.Action{ActionType: models.ActionTypeSwap},
		models.Action{ActionType: models.ActionTypeStake},
	)

	_, err := e.EvaluateAndExecute(context.Background(), automation, models.FactSnapshot{}, t0)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "engine.cycle", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(otelhelper.OutcomeKey, string(OutcomeExecuted)))

	var actions []sdktrace.Event
	for _, event := range spans[0].Events() {
		if event.Name == "action" {
			actions = append(actions, event)
		}
	}

	require.Len(t, actions, 2)
	assert.Contains(t, actions[0].Attributes, attribute.String(otelhelper.ActionTypeKey, "swap"))
	assert.Contains(t, actions[0].Attributes, attribute.Bool(otelhelper.SuccessKey, false))
	assert.Contains(t, actions[1].Attributes, attribute.Int(otelhelper.ActionIndexKey, 1))
}
