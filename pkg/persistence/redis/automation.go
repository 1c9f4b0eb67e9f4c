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

func (p *Persistence) AutomationByID(ctx context.Context, id string) (*models.Automation, error) {
	var automation models.Automation

	found, err := p.get(ctx, automationKey(id), &automation)
	if err != nil {
		return nil, persistence.NewAutomationError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
	}

	return &automation, nil
}

func (p *Persistence) AutomationsByWorkspace(ctx context.Context, workspaceID string) ([]*models.Automation, error) {
	ids, err := p.client.SMembers(ctx, workspaceAutomationsKey(workspaceID)).Result()
	if err != nil {
		return nil, persistence.NewAutomationError("ListByWorkspace", workspaceID, err)
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, automationKey(id))
	}

	automations, err := getMany[models.Automation](ctx, p.client, keys)
	if err != nil {
		return nil, persistence.NewAutomationError("ListByWorkspace", workspaceID, err)
	}

	sort.Slice(automations, func(i, j int) bool {
		if automations[i].CreatedAt.Equal(automations[j].CreatedAt) {
			return automations[i].ID < automations[j].ID
		}

		return automations[i].CreatedAt.Before(automations[j].CreatedAt)
	})

	return automations, nil
}

func (p *Persistence) SaveAutomation(ctx context.Context, automation *models.Automation) error {
	body, err := json.Marshal(automation)
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, fmt.Errorf("failed to marshal: %w", err))
	}

	var previous models.Automation

	found, err := p.get(ctx, automationKey(automation.ID), &previous)
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if found && previous.WorkspaceID != automation.WorkspaceID {
			pipe.SRem(ctx, workspaceAutomationsKey(previous.WorkspaceID), automation.ID)
		}

		pipe.Set(ctx, automationKey(automation.ID), body, 0)
		pipe.SAdd(ctx, workspaceAutomationsKey(automation.WorkspaceID), automation.ID)

		return nil
	})
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteAutomation(ctx context.Context, id string) error {
	var automation models.Automation

	found, err := p.get(ctx, automationKey(id), &automation)
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	if !found {
		return persistence.NewAutomationError("Delete", id, persistence.ErrAutomationNotFound)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, automationKey(id))
		pipe.SRem(ctx, workspaceAutomationsKey(automation.WorkspaceID), id)

		return nil
	})
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	return nil
}
