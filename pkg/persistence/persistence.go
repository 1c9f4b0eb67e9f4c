// Package persistence provides the storage abstraction for workspaces and automations.
package persistence

import (
	"context"

	"github.com/dukex/crate/pkg/models"
)

// Persistence loads and saves workspace and automation records with
// last-writer-wins semantics. Lookups of missing records fail with
// ErrWorkspaceNotFound or ErrAutomationNotFound.
type Persistence interface {
	Workspaces(ctx context.Context) ([]*models.Workspace, error)
	WorkspaceByID(ctx context.Context, id string) (*models.Workspace, error)
	SaveWorkspace(ctx context.Context, workspace *models.Workspace) error
	DeleteWorkspace(ctx context.Context, id string) error

	AutomationByID(ctx context.Context, id string) (*models.Automation, error)
	AutomationsByWorkspace(ctx context.Context, workspaceID string) ([]*models.Automation, error)
	SaveAutomation(ctx context.Context, automation *models.Automation) error
	DeleteAutomation(ctx context.Context, id string) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
