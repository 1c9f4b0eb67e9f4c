package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/crate/pkg/engine"
	"github.com/dukex/crate/pkg/facts"
	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/persistence"
	"github.com/dukex/crate/pkg/scheduler"
	"github.com/dukex/crate/pkg/workspace"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ParameterValidator checks action parameters against the handler that will run them.
type ParameterValidator interface {
	ValidateParameters(action models.Action) error
}

// Lifecycle performs explicit status changes.
type Lifecycle interface {
	Pause(automation *models.Automation) error
	Resume(automation *models.Automation) error
}

type Automations struct {
	persistence persistence.Persistence
	validator   ParameterValidator
	lifecycle   Lifecycle
	aggregator  *workspace.Aggregator
	facts       facts.Provider
	clock       clockwork.Clock
	logger      *slog.Logger
}

type AutomationsOption func(*Automations)

// WithExecution enables on-demand cycles through Execute.
func WithExecution(aggregator *workspace.Aggregator, provider facts.Provider) AutomationsOption {
	return func(a *Automations) {
		a.aggregator = aggregator
		a.facts = provider
	}
}

func NewAutomations(
	p persistence.Persistence,
	validator ParameterValidator,
	lifecycle Lifecycle,
	clock clockwork.Clock,
	logger *slog.Logger,
	opts ...AutomationsOption,
) *Automations {
	a := &Automations{
		persistence: p,
		validator:   validator,
		lifecycle:   lifecycle,
		clock:       clock,
		logger:      logger.With("module", "automation_service"),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

type CreateAutomationRequest struct {
	WorkspaceID string
	Owner       string
	Name        string
	Trigger     models.Trigger
	Actions     []models.Action
}

// Create validates the whole automation before anything is stored: the
// workspace cap, the name, the trigger and its schedule, and every action.
func (a *Automations) Create(ctx context.Context, req CreateAutomationRequest) (*models.Automation, error) {
	if req.Owner == "" {
		return nil, NewValidationError("CreateAutomation", "EMPTY_OWNER", "owner is required", ErrEmptyOwnerID)
	}

	workspace, err := a.persistence.WorkspaceByID(ctx, req.WorkspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	now := a.clock.Now()
	trigger := req.Trigger

	if trigger.TriggerType == models.TriggerTypeSchedule && trigger.Schedule != nil {
		schedule, err := scheduler.Initialize(*trigger.Schedule, now)
		if err != nil {
			return nil, NewValidationError("CreateAutomation", "INVALID_SCHEDULE", err.Error(), err)
		}

		trigger.Schedule = &schedule
	}

	automation, err := models.NewAutomation(uuid.New().String(), workspace.ID, req.Owner, req.Name, trigger, now)
	if err != nil {
		return nil, NewValidationError("CreateAutomation", "INVALID_AUTOMATION", err.Error(), err)
	}

	for _, action := range req.Actions {
		if err := a.addAction(automation, action); err != nil {
			return nil, NewValidationError("CreateAutomation", "INVALID_ACTION", err.Error(), err)
		}
	}

	if err := workspace.AddAutomation(automation.ID, now); err != nil {
		return nil, NewValidationError("CreateAutomation", "WORKSPACE_FULL", err.Error(), err)
	}

	if err := a.persistence.SaveAutomation(ctx, automation); err != nil {
		return nil, fmt.Errorf("failed to save automation: %w", err)
	}

	if err := a.persistence.SaveWorkspace(ctx, workspace); err != nil {
		if deleteErr := a.persistence.DeleteAutomation(ctx, automation.ID); deleteErr != nil {
			a.logger.ErrorContext(ctx, "failed to roll back automation", "automation_id", automation.ID, "error", deleteErr)
		}

		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}

	a.logger.InfoContext(ctx, "automation created", "automation_id", automation.ID, "workspace_id", workspace.ID)

	return automation, nil
}

func (a *Automations) addAction(automation *models.Automation, action models.Action) error {
	if a.validator != nil {
		if err := a.validator.ValidateParameters(action); err != nil {
			return err
		}
	}

	if action.RetryConfig != nil {
		retryConfig := *action.RetryConfig
		retryConfig.CurrentAttempts = 0
		action.RetryConfig = &retryConfig
	}

	return automation.AddAction(action)
}

func (a *Automations) Get(ctx context.Context, id string) (*models.Automation, error) {
	automation, err := a.persistence.AutomationByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get automation: %w", err)
	}

	return automation, nil
}

func (a *Automations) ListByWorkspace(ctx context.Context, workspaceID string) ([]*models.Automation, error) {
	if _, err := a.persistence.WorkspaceByID(ctx, workspaceID); err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	automations, err := a.persistence.AutomationsByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}

	return automations, nil
}

// AddAction appends action; the stored automation is unchanged when it is rejected.
func (a *Automations) AddAction(ctx context.Context, id string, action models.Action) (*models.Automation, error) {
	automation, err := a.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.addAction(automation, action); err != nil {
		return nil, NewValidationError("AddAction", "INVALID_ACTION", err.Error(), err)
	}

	if err := a.persistence.SaveAutomation(ctx, automation); err != nil {
		return nil, fmt.Errorf("failed to save automation: %w", err)
	}

	return automation, nil
}

func (a *Automations) Pause(ctx context.Context, id string) (*models.Automation, error) {
	return a.changeStatus(ctx, id, a.lifecycle.Pause)
}

func (a *Automations) Resume(ctx context.Context, id string) (*models.Automation, error) {
	return a.changeStatus(ctx, id, a.lifecycle.Resume)
}

func (a *Automations) changeStatus(ctx context.Context, id string, change func(*models.Automation) error) (*models.Automation, error) {
	automation, err := a.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := automation.Status

	if err := change(automation); err != nil {
		return nil, err
	}

	if err := a.persistence.SaveAutomation(ctx, automation); err != nil {
		return nil, fmt.Errorf("failed to save automation: %w", err)
	}

	a.logger.InfoContext(ctx, "automation status changed", "automation_id", id, "from", from, "to", automation.Status)

	return automation, nil
}

// Execute runs one cycle of the automation now. Automations that are not
// Active are rejected with a state error.
func (a *Automations) Execute(ctx context.Context, id string) (*engine.CycleOutcome, error) {
	if a.aggregator == nil || a.facts == nil {
		return nil, ErrTickUnavailable
	}

	outcome, err := a.aggregator.Execute(ctx, id, a.clock.Now(), a.facts)
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "automation executed on demand",
		"automation_id", id, "outcome", outcome.Kind, "success", outcome.Success)

	return outcome, nil
}

// Delete removes the automation and detaches it from its workspace.
func (a *Automations) Delete(ctx context.Context, id string) error {
	automation, err := a.Get(ctx, id)
	if err != nil {
		return err
	}

	workspace, err := a.persistence.WorkspaceByID(ctx, automation.WorkspaceID)
	if err != nil && !persistence.IsWorkspaceNotFound(err) {
		return fmt.Errorf("failed to get workspace: %w", err)
	}

	if workspace != nil && workspace.RemoveAutomation(id, a.clock.Now()) {
		if err := a.persistence.SaveWorkspace(ctx, workspace); err != nil {
			return fmt.Errorf("failed to save workspace: %w", err)
		}
	}

	if err := a.persistence.DeleteAutomation(ctx, id); err != nil {
		return fmt.Errorf("failed to delete automation: %w", err)
	}

	return nil
}
