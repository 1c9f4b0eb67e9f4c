// Package facts supplies the fact snapshots automation conditions are evaluated against.
package facts

import (
	"context"
	"errors"
	"time"

	"github.com/dukex/crate/pkg/models"
)

var ErrFactsUnavailable = errors.New("facts unavailable")

// Provider returns the current facts for one automation of a workspace.
type Provider interface {
	Facts(ctx context.Context, workspace *models.Workspace, automation *models.Automation, now time.Time) (models.FactSnapshot, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, workspace *models.Workspace, automation *models.Automation, now time.Time) (models.FactSnapshot, error)

func (f ProviderFunc) Facts(ctx context.Context, workspace *models.Workspace, automation *models.Automation, now time.Time) (models.FactSnapshot, error) {
	return f(ctx, workspace, automation, now)
}

// Static returns the same snapshot for every automation, stamped with now.
type Static struct {
	Snapshot models.FactSnapshot
}

func NewStatic(price, balance float64, custom map[string]any) *Static {
	return &Static{
		Snapshot: models.FactSnapshot{
			Price:   price,
			Balance: balance,
			Custom:  custom,
		},
	}
}

func (s *Static) Facts(_ context.Context, _ *models.Workspace, _ *models.Automation, now time.Time) (models.FactSnapshot, error) {
	snapshot := s.Snapshot
	snapshot.Now = now

	return snapshot, nil
}
