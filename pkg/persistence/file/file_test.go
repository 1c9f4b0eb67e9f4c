package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2025, 2, 10, 14, 0, 0, 0, time.UTC)

func newWorkspace(t *testing.T, id string, offset time.Duration) *models.Workspace {
	t.Helper()

	workspace, err := models.NewWorkspace(id, "owner-1", "Workspace "+id, nil, created.Add(offset))
	require.NoError(t, err)

	return workspace
}

func newAutomation(t *testing.T, id, workspaceID string, offset time.Duration) *models.Automation {
	t.Helper()

	automation, err := models.NewAutomation(id, workspaceID, "owner-1", "Automation "+id, models.Trigger{
		TriggerType: models.TriggerTypePrice,
		Conditions: []models.Condition{{
			ConditionType: models.ConditionPriceAbove,
			Parameters:    map[string]any{"threshold": 100.0},
		}},
	}, created.Add(offset))
	require.NoError(t, err)

	require.NoError(t, automation.AddAction(models.Action{
		ActionType:  models.ActionTypeSwap,
		Target:      "pool",
		RetryConfig: &models.RetryConfig{MaxAttempts: 3, DelayBetweenAttempts: 10},
	}))

	return automation
}

func TestPersistence_WorkspaceLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence("file://" + t.TempDir())

	workspaces, err := p.Workspaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, workspaces)

	second := newWorkspace(t, "ws-b", time.Hour)
	first := newWorkspace(t, "ws-a", 0)
	require.NoError(t, first.AddAutomation("auto-1", created))

	require.NoError(t, p.SaveWorkspace(ctx, second))
	require.NoError(t, p.SaveWorkspace(ctx, first))

	loaded, err := p.WorkspaceByID(ctx, "ws-a")
	require.NoError(t, err)
	assert.Equal(t, first, loaded)

	workspaces, err = p.Workspaces(ctx)
	require.NoError(t, err)
	require.Len(t, workspaces, 2)
	assert.Equal(t, "ws-a", workspaces[0].ID)
	assert.Equal(t, "ws-b", workspaces[1].ID)

	require.NoError(t, p.DeleteWorkspace(ctx, "ws-a"))

	_, err = p.WorkspaceByID(ctx, "ws-a")
	require.ErrorIs(t, err, persistence.ErrWorkspaceNotFound)
	require.ErrorIs(t, p.DeleteWorkspace(ctx, "ws-a"), persistence.ErrWorkspaceNotFound)
}

func TestPersistence_SaveKeepsTimestamps(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	workspace := newWorkspace(t, "ws-1", 0)
	require.NoError(t, p.SaveWorkspace(ctx, workspace))

	loaded, err := p.WorkspaceByID(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, created, loaded.UpdatedAt)
	assert.Equal(t, created, loaded.CreatedAt)
}

func TestPersistence_AutomationLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence(t.TempDir())

	require.NoError(t, p.SaveAutomation(ctx, newAutomation(t, "auto-2", "ws-1", time.Minute)))
	require.NoError(t, p.SaveAutomation(ctx, newAutomation(t, "auto-1", "ws-1", 0)))
	require.NoError(t, p.SaveAutomation(ctx, newAutomation(t, "auto-3", "ws-2", 0)))

	automations, err := p.AutomationsByWorkspace(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, automations, 2)
	assert.Equal(t, "auto-1", automations[0].ID)
	assert.Equal(t, "auto-2", automations[1].ID)

	loaded, err := p.AutomationByID(ctx, "auto-1")
	require.NoError(t, err)
	assert.Equal(t, models.AutomationStatusActive, loaded.Status)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, uint8(3), loaded.Actions[0].RetryConfig.MaxAttempts)
	assert.Equal(t, 100.0, loaded.Trigger.Conditions[0].Parameters["threshold"])

	loaded.Status = models.AutomationStatusPaused
	require.NoError(t, p.SaveAutomation(ctx, loaded))

	reloaded, err := p.AutomationByID(ctx, "auto-1")
	require.NoError(t, err)
	assert.Equal(t, models.AutomationStatusPaused, reloaded.Status)

	require.NoError(t, p.DeleteAutomation(ctx, "auto-1"))
	_, err = p.AutomationByID(ctx, "auto-1")
	require.ErrorIs(t, err, persistence.ErrAutomationNotFound)
	require.ErrorIs(t, p.DeleteAutomation(ctx, "auto-1"), persistence.ErrAutomationNotFound)
}

func TestPersistence_CorruptDocument(t *testing.T) {
	root := t.TempDir()
	p := NewPersistence(root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, automationsDir), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(root, automationsDir, "bad.json"), []byte("{"), 0600))

	_, err := p.AutomationByID(context.Background(), "bad")
	require.Error(t, err)
	assert.False(t, persistence.IsNotFound(err))
}

func TestPersistence_HealthCheck(t *testing.T) {
	require.NoError(t, NewPersistence(t.TempDir()).HealthCheck(context.Background()))
	require.Error(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(context.Background()))
}
