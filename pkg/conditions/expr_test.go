package conditions

import (
	"context"
	"testing"

	"github.com/dukex/crate/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exprCondition(expression string) models.Condition {
	return models.Condition{
		ConditionType: models.ConditionCustom,
		Parameters: map[string]any{
			ParamHandler:    ExprHandler,
			ParamExpression: expression,
			"limit":         100,
		},
	}
}

func TestExprPredicate(t *testing.T) {
	facts := models.FactSnapshot{
		Price:   120,
		Balance: 3,
		Now:     now,
		Custom:  map[string]any{"volume": 5000},
	}

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{"price and balance", "price > 100 && balance < 10", true},
		{"custom payload", "custom.volume >= 5000", true},
		{"parameters", "price > params.limit", true},
		{"unmet", "price < 50", false},
	}

	predicate := NewExprPredicate()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			met, observed, err := predicate.Evaluate(context.Background(), exprCondition(tt.expression), facts)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, met)
			assert.Equal(t, tt.expected, observed)
		})
	}
}

func TestExprPredicate_Errors(t *testing.T) {
	predicate := NewExprPredicate()
	facts := models.FactSnapshot{Now: now}

	_, _, err := predicate.Evaluate(context.Background(), exprCondition("price +"), facts)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, _, err = predicate.Evaluate(context.Background(), exprCondition("price + 1"), facts)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, _, err = predicate.Evaluate(context.Background(), models.Condition{ConditionType: models.ConditionCustom}, facts)
	require.ErrorIs(t, err, ErrMissingParameter)
}

func TestExprPredicate_CachesPrograms(t *testing.T) {
	predicate := NewExprPredicate()
	condition := exprCondition("price > 1")

	for range 3 {
		_, _, err := predicate.Evaluate(context.Background(), condition, models.FactSnapshot{Price: 2, Now: now})
		require.NoError(t, err)
	}

	assert.Len(t, predicate.cache, 1)
}
