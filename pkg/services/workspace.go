package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/crate/pkg/facts"
	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/persistence"
	"github.com/dukex/crate/pkg/workspace"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type Workspaces struct {
	persistence persistence.Persistence
	aggregator  *workspace.Aggregator
	facts       facts.Provider
	clock       clockwork.Clock
	logger      *slog.Logger
}

type WorkspacesOption func(*Workspaces)

// WithTicking enables on-demand ticks through Tick.
func WithTicking(aggregator *workspace.Aggregator, provider facts.Provider) WorkspacesOption {
	return func(w *Workspaces) {
		w.aggregator = aggregator
		w.facts = provider
	}
}

func NewWorkspaces(p persistence.Persistence, clock clockwork.Clock, logger *slog.Logger, opts ...WorkspacesOption) *Workspaces {
	w := &Workspaces{
		persistence: p,
		clock:       clock,
		logger:      logger.With("module", "workspace_service"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// HealthCheck checks the health of the persistence layer.
func (w *Workspaces) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := w.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

type CreateWorkspaceRequest struct {
	Owner       string
	Name        string
	Description *string
	Settings    *models.WorkspaceSettings
}

// Create builds a workspace with default settings, applying req.Settings when given.
func (w *Workspaces) Create(ctx context.Context, req CreateWorkspaceRequest) (*models.Workspace, error) {
	if req.Owner == "" {
		return nil, NewValidationError("CreateWorkspace", "EMPTY_OWNER", "owner is required", ErrEmptyOwnerID)
	}

	now := w.clock.Now()

	created, err := models.NewWorkspace(uuid.New().String(), req.Owner, req.Name, req.Description, now)
	if err != nil {
		return nil, NewValidationError("CreateWorkspace", "INVALID_WORKSPACE", err.Error(), err)
	}

	if req.Settings != nil {
		if err := created.UpdateSettings(*req.Settings, now); err != nil {
			return nil, NewValidationError("CreateWorkspace", "INVALID_SETTINGS", err.Error(), err)
		}
	}

	if err := w.persistence.SaveWorkspace(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}

	w.logger.InfoContext(ctx, "workspace created", "workspace_id", created.ID, "owner", created.Owner)

	return created, nil
}

func (w *Workspaces) Get(ctx context.Context, id string) (*models.Workspace, error) {
	found, err := w.persistence.WorkspaceByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	return found, nil
}

// List returns all workspaces, or only the owner's when owner is set.
func (w *Workspaces) List(ctx context.Context, owner string) ([]*models.Workspace, error) {
	all, err := w.persistence.Workspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	if owner == "" {
		return all, nil
	}

	owned := make([]*models.Workspace, 0, len(all))
	for _, ws := range all {
		if ws.Owner == owner {
			owned = append(owned, ws)
		}
	}

	return owned, nil
}

func (w *Workspaces) UpdateSettings(ctx context.Context, id string, settings models.WorkspaceSettings) (*models.Workspace, error) {
	found, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := found.UpdateSettings(settings, w.clock.Now()); err != nil {
		return nil, NewValidationError("UpdateSettings", "INVALID_SETTINGS", err.Error(), err)
	}

	if err := w.persistence.SaveWorkspace(ctx, found); err != nil {
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}

	return found, nil
}

type AddAppRequest struct {
	AppType models.AppType
	Config  map[string]any
}

func (w *Workspaces) AddApp(ctx context.Context, id string, req AddAppRequest) (*models.ConnectedApp, error) {
	found, err := w.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	app := models.ConnectedApp{
		ID:      uuid.New().String(),
		AppType: req.AppType,
		Config:  req.Config,
	}

	if err := found.AddApp(app, w.clock.Now()); err != nil {
		return nil, NewValidationError("AddApp", "INVALID_APP", err.Error(), err)
	}

	if err := w.persistence.SaveWorkspace(ctx, found); err != nil {
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}

	return &found.Apps[len(found.Apps)-1], nil
}

// Delete removes the workspace and every automation it owns.
func (w *Workspaces) Delete(ctx context.Context, id string) error {
	found, err := w.Get(ctx, id)
	if err != nil {
		return err
	}

	for _, automationID := range found.Automations {
		err := w.persistence.DeleteAutomation(ctx, automationID)
		if err != nil && !persistence.IsAutomationNotFound(err) {
			return fmt.Errorf("failed to delete automation %s: %w", automationID, err)
		}
	}

	if err := w.persistence.DeleteWorkspace(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	w.logger.InfoContext(ctx, "workspace deleted", "workspace_id", id, "automations", len(found.Automations))

	return nil
}

// Tick evaluates the workspace's automations now.
func (w *Workspaces) Tick(ctx context.Context, id string) (*workspace.Report, error) {
	if w.aggregator == nil || w.facts == nil {
		return nil, ErrTickUnavailable
	}

	return w.aggregator.Tick(ctx, id, w.clock.Now(), w.facts)
}
