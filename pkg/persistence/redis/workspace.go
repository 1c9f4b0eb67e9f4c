package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

func (p *Persistence) Workspaces(ctx context.Context) ([]*models.Workspace, error) {
	ids, err := p.client.SMembers(ctx, workspacesIndexKey()).Result()
	if err != nil {
		return nil, persistence.NewWorkspaceError("List", "", err)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, workspaceKey(id))
	}

	workspaces, err := getMany[models.Workspace](ctx, p.client, keys)
	if err != nil {
		return nil, persistence.NewWorkspaceError("List", "", err)
	}

	sort.Slice(workspaces, func(i, j int) bool {
		if workspaces[i].CreatedAt.Equal(workspaces[j].CreatedAt) {
			return workspaces[i].ID < workspaces[j].ID
		}

		return workspaces[i].CreatedAt.Before(workspaces[j].CreatedAt)
	})

	return workspaces, nil
}

func (p *Persistence) WorkspaceByID(ctx context.Context, id string) (*models.Workspace, error) {
	var workspace models.Workspace

	found, err := p.get(ctx, workspaceKey(id), &workspace)
	if err != nil {
		return nil, persistence.NewWorkspaceError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewWorkspaceError("GetByID", id, persistence.ErrWorkspaceNotFound)
	}

	return &workspace, nil
}

func (p *Persistence) SaveWorkspace(ctx context.Context, workspace *models.Workspace) error {
	body, err := json.Marshal(workspace)
	if err != nil {
		return persistence.NewWorkspaceError("Save", workspace.ID, fmt.Errorf("failed to marshal: %w", err))
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, workspaceKey(workspace.ID), body, 0)
		pipe.SAdd(ctx, workspacesIndexKey(), workspace.ID)

		return nil
	})
	if err != nil {
		return persistence.NewWorkspaceError("Save", workspace.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteWorkspace(ctx context.Context, id string) error {
	var deleted *redis.IntCmd

	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, workspaceKey(id))
		pipe.SRem(ctx, workspacesIndexKey(), id)

		return nil
	})
	if err != nil {
		return persistence.NewWorkspaceError("Delete", id, err)
	}

	if deleted.Val() == 0 {
		return persistence.NewWorkspaceError("Delete", id, persistence.ErrWorkspaceNotFound)
	}

	return nil
}
