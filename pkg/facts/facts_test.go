package facts

import (
	"context"
	"testing"
	"time"

	"github.com/dukex/crate/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func TestStatic_Facts(t *testing.T) {
	provider := NewStatic(150, 20, map[string]any{"apy": 4.5})

	snapshot, err := provider.Facts(context.Background(), &models.Workspace{ID: "ws"}, &models.Automation{ID: "a"}, testNow)
	require.NoError(t, err)

	assert.InDelta(t, 150.0, snapshot.Price, 0)
	assert.InDelta(t, 20.0, snapshot.Balance, 0)
	assert.Equal(t, testNow, snapshot.Now)
	assert.Equal(t, map[string]any{"apy": 4.5}, snapshot.Custom)
}

func TestProviderFunc(t *testing.T) {
	var provider Provider = ProviderFunc(func(context.Context, *models.Workspace, *models.Automation, time.Time) (models.FactSnapshot, error) {
		return models.FactSnapshot{}, ErrFactsUnavailable
	})

	_, err := provider.Facts(context.Background(), nil, nil, testNow)
	require.ErrorIs(t, err, ErrFactsUnavailable)
}

func TestSnapshot(t *testing.T) {
	tests := []struct {
		name      string
		fields    map[string]string
		expected  models.FactSnapshot
		expectErr bool
	}{
		{
			name:     "price and balance",
			fields:   map[string]string{"price": "101.5", "balance": "7"},
			expected: models.FactSnapshot{Price: 101.5, Balance: 7, Now: testNow},
		},
		{
			name:   "custom fields keep strings and parse numbers",
			fields: map[string]string{"price": "1", "pair": "SOL/USDC", "apy": "4.25"},
			expected: models.FactSnapshot{
				Price:  1,
				Now:    testNow,
				Custom: map[string]any{"pair": "SOL/USDC", "apy": 4.25},
			},
		},
		{
			name:      "invalid price",
			fields:    map[string]string{"price": "lots"},
			expectErr: true,
		},
		{
			name:      "invalid balance",
			fields:    map[string]string{"balance": "-"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot, err := Snapshot(tt.fields, testNow)
			if tt.expectErr {
				require.ErrorIs(t, err, ErrFactsUnavailable)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, snapshot)
		})
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "crate:facts:ws-1", WorkspaceKey("ws-1"))
	assert.Equal(t, "crate:facts:automation:a-1", AutomationKey("a-1"))
}
