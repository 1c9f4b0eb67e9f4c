package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dukex/crate/pkg/config"
	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/services"
)

// ApplySeed creates the workspaces and automations of the seed file at path.
// Workspaces whose owner already has one with the same name are left alone,
// so applying the same file twice is a no-op.
func ApplySeed(
	ctx context.Context,
	logger *slog.Logger,
	path string,
	workspaces *services.Workspaces,
	automations *services.Automations,
) error {
	seed, err := config.LoadSeed(path)
	if err != nil {
		return err
	}

	for _, ws := range seed.Workspaces {
		existing, err := workspaces.List(ctx, ws.Owner)
		if err != nil {
			return err
		}

		if containsName(existing, ws.Name) {
			logger.InfoContext(ctx, "Seed workspace already exists", "owner", ws.Owner, "name", ws.Name)

			continue
		}

		created, err := workspaces.Create(ctx, services.CreateWorkspaceRequest{
			Owner:       ws.Owner,
			Name:        ws.Name,
			Description: ws.Description,
			Settings:    ws.Settings,
		})
		if err != nil {
			return fmt.Errorf("seed workspace %q: %w", ws.Name, err)
		}

		for _, automation := range ws.Automations {
			_, err := automations.Create(ctx, services.CreateAutomationRequest{
				WorkspaceID: created.ID,
				Owner:       ws.Owner,
				Name:        automation.Name,
				Trigger:     automation.Trigger,
				Actions:     automation.Actions,
			})
			if err != nil {
				return fmt.Errorf("seed automation %q of workspace %q: %w", automation.Name, ws.Name, err)
			}
		}

		logger.InfoContext(ctx, "Seeded workspace",
			"workspace_id", created.ID,
			"name", ws.Name,
			"automations", len(ws.Automations),
		)
	}

	return nil
}

func containsName(workspaces []*models.Workspace, name string) bool {
	return slices.ContainsFunc(workspaces, func(ws *models.Workspace) bool {
		return ws.Name == name
	})
}
