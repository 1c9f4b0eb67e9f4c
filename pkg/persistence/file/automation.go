package file

import (
	"context"
	"sort"

	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/persistence"
)

func (fp *Persistence) AutomationByID(_ context.Context, id string) (*models.Automation, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	var automation models.Automation

	found, err := fp.read(automationsDir, id, &automation)
	if err != nil {
		return nil, persistence.NewAutomationError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
	}

	return &automation, nil
}

// AutomationsByWorkspace scans every automation document; workspaces hold at
// most a few hundred automations.
func (fp *Persistence) AutomationsByWorkspace(_ context.Context, workspaceID string) ([]*models.Automation, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	ids, err := fp.ids(automationsDir)
	if err != nil {
		return nil, persistence.NewAutomationError("ListByWorkspace", workspaceID, err)
	}

	automations := make([]*models.Automation, 0)
	for _, id := range ids {
		var automation models.Automation

		found, err := fp.read(automationsDir, id, &automation)
		if err != nil {
			return nil, persistence.NewAutomationError("ListByWorkspace", id, err)
		}

		if found && automation.WorkspaceID == workspaceID {
			automations = append(automations, &automation)
		}
	}

	sort.SliceStable(automations, func(i, j int) bool {
		return automations[i].CreatedAt.Before(automations[j].CreatedAt)
	})

	return automations, nil
}

func (fp *Persistence) SaveAutomation(_ context.Context, automation *models.Automation) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := fp.write(automationsDir, automation.ID, automation); err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	return nil
}

func (fp *Persistence) DeleteAutomation(_ context.Context, id string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	found, err := fp.remove(automationsDir, id)
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	if !found {
		return persistence.NewAutomationError("Delete", id, persistence.ErrAutomationNotFound)
	}

	return nil
}
