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

func (p *Persistence) Workspaces(ctx context.Context) ([]*models.Workspace, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT document FROM workspaces ORDER BY created_at, id`)
	if err != nil {
		return nil, persistence.NewWorkspaceError("List", "", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	workspaces := make([]*models.Workspace, 0)

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, persistence.NewWorkspaceError("List", "", err)
		}

		var workspace models.Workspace
		if err := json.Unmarshal(document, &workspace); err != nil {
			return nil, persistence.NewWorkspaceError("List", "", fmt.Errorf("failed to unmarshal: %w", err))
		}

		workspaces = append(workspaces, &workspace)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewWorkspaceError("List", "", err)
	}

	return workspaces, nil
}

func (p *Persistence) WorkspaceByID(ctx context.Context, id string) (*models.Workspace, error) {
	var document []byte

	err := p.db.QueryRowContext(ctx, `SELECT document FROM workspaces WHERE id = $1`, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkspaceError("GetByID", id, persistence.ErrWorkspaceNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkspaceError("GetByID", id, err)
	}

	var workspace models.Workspace
	if err := json.Unmarshal(document, &workspace); err != nil {
		return nil, persistence.NewWorkspaceError("GetByID", id, fmt.Errorf("failed to unmarshal: %w", err))
	}

	return &workspace, nil
}

func (p *Persistence) SaveWorkspace(ctx context.Context, workspace *models.Workspace) error {
	document, err := json.Marshal(workspace)
	if err != nil {
		return persistence.NewWorkspaceError("Save", workspace.ID, fmt.Errorf("failed to marshal: %w", err))
	}

	query := `
		INSERT INTO workspaces (id, owner, name, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			owner = EXCLUDED.owner,
			name = EXCLUDED.name,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at`

	_, err = p.db.ExecContext(ctx, query,
		workspace.ID, workspace.Owner, workspace.Name, document, workspace.CreatedAt, workspace.UpdatedAt)
	if err != nil {
		return persistence.NewWorkspaceError("Save", workspace.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteWorkspace(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return persistence.NewWorkspaceError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkspaceError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewWorkspaceError("Delete", id, persistence.ErrWorkspaceNotFound)
	}

	return nil
}
