package file

import (
	"context"
	"sort"

	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/persistence"
)

// Workspaces returns every stored workspace ordered by creation time.
func (fp *Persistence) Workspaces(_ context.Context) ([]*models.Workspace, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	ids, err := fp.ids(workspacesDir)
	if err != nil {
		return nil, persistence.NewWorkspaceError("List", "", err)
	}

	workspaces := make([]*models.Workspace, 0, len(ids))
	for _, id := range ids {
		var workspace models.Workspace

		found, err := fp.read(workspacesDir, id, &workspace)
		if err != nil {
			return nil, persistence.NewWorkspaceError("List", id, err)
		}

		if found {
			workspaces = append(workspaces, &workspace)
		}
	}

	sort.SliceStable(workspaces, func(i, j int) bool {
		return workspaces[i].CreatedAt.Before(workspaces[j].CreatedAt)
	})

	return workspaces, nil
}

func (fp *Persistence) WorkspaceByID(_ context.Context, id string) (*models.Workspace, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	var workspace models.Workspace

	found, err := fp.read(workspacesDir, id, &workspace)
	if err != nil {
		return nil, persistence.NewWorkspaceError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewWorkspaceError("GetByID", id, persistence.ErrWorkspaceNotFound)
	}

	return &workspace, nil
}

func (fp *Persistence) SaveWorkspace(_ context.Context, workspace *models.Workspace) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := fp.write(workspacesDir, workspace.ID, workspace); err != nil {
		return persistence.NewWorkspaceError("Save", workspace.ID, err)
	}

	return nil
}

func (fp *Persistence) DeleteWorkspace(_ context.Context, id string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	found, err := fp.remove(workspacesDir, id)
	if err != nil {
		return persistence.NewWorkspaceError("Delete", id, err)
	}

	if !found {
		return persistence.NewWorkspaceError("Delete", id, persistence.ErrWorkspaceNotFound)
	}

	return nil
}
