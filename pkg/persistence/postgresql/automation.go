package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/persistence"
)

func (p *Persistence) AutomationByID(ctx context.Context, id string) (*models.Automation, error) {
	var document []byte

	err := p.db.QueryRowContext(ctx, `SELECT document FROM automations WHERE id = $1`, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
	}

	if err != nil {
		return nil, persistence.NewAutomationError("GetByID", id, err)
	}

	var automation models.Automation
	if err := json.Unmarshal(document, &automation); err != nil {
		return nil, persistence.NewAutomationError("GetByID", id, fmt.Errorf("failed to unmarshal: %w", err))
	}

	return &automation, nil
}

func (p *Persistence) AutomationsByWorkspace(ctx context.Context, workspaceID string) ([]*models.Automation, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT document FROM automations WHERE workspace_id = $1 ORDER BY created_at, id`, workspaceID)
	if err != nil {
		return nil, persistence.NewAutomationError("ListByWorkspace", workspaceID, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	automations := make([]*models.Automation, 0)

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, persistence.NewAutomationError("ListByWorkspace", workspaceID, err)
		}

		var automation models.Automation
		if err := json.Unmarshal(document, &automation); err != nil {
			return nil, persistence.NewAutomationError("ListByWorkspace", workspaceID, fmt.Errorf("failed to unmarshal: %w", err))
		}

		automations = append(automations, &automation)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewAutomationError("ListByWorkspace", workspaceID, err)
	}

	return automations, nil
}

func (p *Persistence) SaveAutomation(ctx context.Context, automation *models.Automation) error {
	document, err := json.Marshal(automation)
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, fmt.Errorf("failed to marshal: %w", err))
	}

	query := `
		INSERT INTO automations (id, workspace_id, owner, name, status, document, created_at, last_executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = EXCLUDED.workspace_id,
			owner = EXCLUDED.owner,
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			document = EXCLUDED.document,
			last_executed_at = EXCLUDED.last_executed_at`

	_, err = p.db.ExecContext(ctx, query,
		automation.ID,
		automation.WorkspaceID,
		automation.Owner,
		automation.Name,
		string(automation.Status),
		document,
		automation.CreatedAt,
		automation.LastExecutedAt,
	)
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteAutomation(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM automations WHERE id = $1`, id)
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewAutomationError("Delete", id, persistence.ErrAutomationNotFound)
	}

	return nil
}
