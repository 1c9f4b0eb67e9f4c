package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/crate/pkg/conditions"
	"github.com/dukex/crate/pkg/engine"
	"github.com/dukex/crate/pkg/executor"
	"github.com/dukex/crate/pkg/facts"
	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/persistence/file"
	"github.com/dukex/crate/pkg/registry"
	"github.com/dukex/crate/pkg/retry"
	"github.com/dukex/crate/pkg/workspace"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type schemaHandler struct{}

func (schemaHandler) Execute(context.Context, string, map[string]any) (any, error) {
	return "done", nil
}

func (schemaHandler) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"amount"},
		"properties": map[string]any{
			"amount": map[string]any{"type": "number"},
		},
	}
}

type fixture struct {
	store       *file.Persistence
	clock       *clockwork.FakeClock
	workspaces  *Workspaces
	automations *Automations
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.Default()
	store := file.NewPersistence(t.TempDir())
	clock := clockwork.NewFakeClockAt(t0)

	reg := registry.NewRegistry(logger)
	reg.Register(models.ActionTypeSwap, schemaHandler{})
	reg.Register(models.ActionTypeTransfer, registry.HandlerFunc(func(context.Context, string, map[string]any) (any, error) {
		return "sent", nil
	}))

	exec := executor.New(reg, retry.NewClockWaiter(clock), logger)
	e := engine.New(conditions.NewEvaluator(logger), exec, engine.Config{}, logger, engine.WithClock(clock))
	aggregator := workspace.NewAggregator(store, e, logger)
	provider := facts.NewStatic(150, 10, nil)

	return &fixture{
		store:       store,
		clock:       clock,
		workspaces:  NewWorkspaces(store, clock, logger, WithTicking(aggregator, provider)),
		automations: NewAutomations(store, reg, e, clock, logger, WithExecution(aggregator, provider)),
	}
}

func (f *fixture) createWorkspace(t *testing.T, settings *models.WorkspaceSettings) *models.Workspace {
	t.Helper()

	created, err := f.workspaces.Create(context.Background(), CreateWorkspaceRequest{
		Owner:    "owner-1",
		Name:     "Treasury",
		Settings: settings,
	})
	require.NoError(t, err)

	return created
}

func TestWorkspaces_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.createWorkspace(t, nil)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.DefaultWorkspaceSettings(), created.Settings)
	assert.Equal(t, t0, created.CreatedAt)

	loaded, err := f.workspaces.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, loaded.Name)

	_, err = f.workspaces.Create(ctx, CreateWorkspaceRequest{Name: "x"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "CreateWorkspace [EMPTY_OWNER]: owner is required", err.Error())

	long := make([]byte, models.MaxNameLength+1)
	for i := range long {
		long[i] = 'n'
	}

	_, err = f.workspaces.Create(ctx, CreateWorkspaceRequest{Owner: "o", Name: string(long)})
	require.ErrorIs(t, err, models.ErrNameTooLong)
	assert.True(t, IsValidationError(err))
}

func TestWorkspaces_ListByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createWorkspace(t, nil)

	_, err := f.workspaces.Create(ctx, CreateWorkspaceRequest{Owner: "owner-2", Name: "Other"})
	require.NoError(t, err)

	all, err := f.workspaces.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	owned, err := f.workspaces.List(ctx, "owner-2")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "Other", owned[0].Name)
}

func TestWorkspaces_AddApp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createWorkspace(t, nil)

	for i := 0; i < models.MaxConnectedApps; i++ {
		_, err := f.workspaces.AddApp(ctx, created.ID, AddAppRequest{AppType: models.AppTypeDex})
		require.NoError(t, err)
	}

	_, err := f.workspaces.AddApp(ctx, created.ID, AddAppRequest{AppType: models.AppTypeDex})
	require.ErrorIs(t, err, models.ErrTooManyApps)

	loaded, err := f.workspaces.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Apps, models.MaxConnectedApps)
}

func TestAutomations_Create_RespectsWorkspaceCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	settings := models.DefaultWorkspaceSettings()
	settings.MaxAutomations = 1
	created := f.createWorkspace(t, &settings)

	request := CreateAutomationRequest{
		WorkspaceID: created.ID,
		Owner:       "owner-1",
		Name:        "Rebalance",
		Trigger:     models.Trigger{TriggerType: models.TriggerTypeBalance},
	}

	_, err := f.automations.Create(ctx, request)
	require.NoError(t, err)

	_, err = f.automations.Create(ctx, request)
	require.ErrorIs(t, err, models.ErrTooManyAutomations)
	assert.True(t, IsValidationError(err))

	loaded, err := f.workspaces.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Automations, 1)

	stored, err := f.automations.ListByWorkspace(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestAutomations_Create_ValidatesBeforeStoring(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createWorkspace(t, nil)

	_, err := f.automations.Create(ctx, CreateAutomationRequest{
		WorkspaceID: created.ID,
		Owner:       "owner-1",
		Name:        "Swap",
		Trigger:     models.Trigger{TriggerType: models.TriggerTypePrice},
		Actions:     []models.Action{{ActionType: models.ActionTypeSwap, Parameters: map[string]any{"amount": "lots"}}},
	})
	require.ErrorIs(t, err, registry.ErrInvalidParameters)
	assert.True(t, IsValidationError(err))

	loaded, err := f.workspaces.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Automations)
}

func TestAutomations_Create_InitializesSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createWorkspace(t, nil)

	automation, err := f.automations.Create(ctx, CreateAutomationRequest{
		WorkspaceID: created.ID,
		Owner:       "owner-1",
		Name:        "Hourly DCA",
		Trigger: models.Trigger{
			TriggerType: models.TriggerTypeSchedule,
			Schedule:    &models.Schedule{Interval: 3600},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), automation.Trigger.Schedule.NextExecution)

	_, err = f.automations.Create(ctx, CreateAutomationRequest{
		WorkspaceID: created.ID,
		Owner:       "owner-1",
		Name:        "Broken",
		Trigger: models.Trigger{
			TriggerType: models.TriggerTypeSchedule,
			Schedule:    &models.Schedule{CronExpression: "not a cron"},
		},
	})
	require.ErrorIs(t, err, models.ErrInvalidSchedule)
}

func TestAutomations_AddAction_Bound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createWorkspace(t, nil)

	automation, err := f.automations.Create(ctx, CreateAutomationRequest{
		WorkspaceID: created.ID,
		Owner:       "owner-1",
		Name:        "Payroll",
		Trigger:     models.Trigger{TriggerType: models.TriggerTypeBalance},
	})
	require.NoError(t, err)

	for i := 0; i < models.MaxActionsPerAutomation; i++ {
		_, err = f.automations.AddAction(ctx, automation.ID, models.Action{ActionType: models.ActionTypeTransfer, Target: "wallet"})
		require.NoError(t, err)
	}

	_, err = f.automations.AddAction(ctx, automation.ID, models.Action{ActionType: models.ActionTypeTransfer})
	require.ErrorIs(t, err, models.ErrTooManyActions)

	stored, err := f.automations.Get(ctx, automation.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Actions, models.MaxActionsPerAutomation)
}

func TestAutomations_PauseResume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createWorkspace(t, nil)

	automation, err := f.automations.Create(ctx, CreateAutomationRequest{
		WorkspaceID: created.ID,
		Owner:       "owner-1",
		Name:        "Rebalance",
		Trigger:     models.Trigger{TriggerType: models.TriggerTypePrice},
	})
	require.NoError(t, err)

	paused, err := f.automations.Pause(ctx, automation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AutomationStatusPaused, paused.Status)

	_, err = f.automations.Pause(ctx, automation.ID)
	require.Error(t, err)
	assert.True(t, IsConflictError(err))

	resumed, err := f.automations.Resume(ctx, automation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AutomationStatusActive, resumed.Status)
}

func TestWorkspaces_Tick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createWorkspace(t, nil)

	_, err := f.automations.Create(ctx, CreateAutomationRequest{
		WorkspaceID: created.ID,
		Owner:       "owner-1",
		Name:        "Pay",
		Trigger:     models.Trigger{TriggerType: models.TriggerTypeBalance},
		Actions:     []models.Action{{ActionType: models.ActionTypeTransfer, Target: "wallet"}},
	})
	require.NoError(t, err)

	report, err := f.workspaces.Tick(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Executed)
	assert.Equal(t, uint64(1), report.SuccessfulDelta)

	unconfigured := NewWorkspaces(f.store, f.clock, slog.Default())
	_, err = unconfigured.Tick(ctx, created.ID)
	require.ErrorIs(t, err, ErrTickUnavailable)
}

func TestAutomations_Execute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createWorkspace(t, nil)

	automation, err := f.automations.Create(ctx, CreateAutomationRequest{
		WorkspaceID: created.ID,
		Owner:       "owner-1",
		Name:        "Pay",
		Trigger:     models.Trigger{TriggerType: models.TriggerTypeBalance},
		Actions:     []models.Action{{ActionType: models.ActionTypeTransfer, Target: "wallet"}},
	})
	require.NoError(t, err)

	outcome, err := f.automations.Execute(ctx, automation.ID)
	require.NoError(t, err)
	assert.True(t, outcome.Executed())
	assert.True(t, outcome.Success)

	stored, err := f.workspaces.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stored.Stats.TotalExecutions)

	_, err = f.automations.Pause(ctx, automation.ID)
	require.NoError(t, err)

	_, err = f.automations.Execute(ctx, automation.ID)
	require.ErrorIs(t, err, models.ErrAutomationNotActive)
	assert.True(t, IsConflictError(err))

	paused, err := f.automations.Get(ctx, automation.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), paused.ExecutionStats.TotalExecutions)

	unconfigured := NewAutomations(f.store, nil, nil, f.clock, slog.Default())
	_, err = unconfigured.Execute(ctx, automation.ID)
	require.ErrorIs(t, err, ErrTickUnavailable)
}

func TestWorkspaces_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createWorkspace(t, nil)

	automation, err := f.automations.Create(ctx, CreateAutomationRequest{
		WorkspaceID: created.ID,
		Owner:       "owner-1",
		Name:        "Rebalance",
		Trigger:     models.Trigger{TriggerType: models.TriggerTypePrice},
	})
	require.NoError(t, err)

	require.NoError(t, f.workspaces.Delete(ctx, created.ID))

	_, err = f.workspaces.Get(ctx, created.ID)
	assert.True(t, IsNotFoundError(err))

	_, err = f.automations.Get(ctx, automation.ID)
	assert.True(t, IsNotFoundError(err))
}

func TestAutomations_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.createWorkspace(t, nil)

	automation, err := f.automations.Create(ctx, CreateAutomationRequest{
		WorkspaceID: created.ID,
		Owner:       "owner-1",
		Name:        "Rebalance",
		Trigger:     models.Trigger{TriggerType: models.TriggerTypePrice},
	})
	require.NoError(t, err)

	require.NoError(t, f.automations.Delete(ctx, automation.ID))

	loaded, err := f.workspaces.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Automations)
}
