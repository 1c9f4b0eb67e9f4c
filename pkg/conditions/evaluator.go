// Package conditions decides whether an automation's conditions hold for a
// fact snapshot, recording last_check/last_value on every condition it inspects.
package conditions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/crate/pkg/models"
)

// Predicate backs Custom conditions. It returns whether the condition holds and
// the value it observed.
type Predicate interface {
	Evaluate(ctx context.Context, condition models.Condition, facts models.FactSnapshot) (bool, any, error)
}

type PredicateFunc func(ctx context.Context, condition models.Condition, facts models.FactSnapshot) (bool, any, error)

func (f PredicateFunc) Evaluate(ctx context.Context, condition models.Condition, facts models.FactSnapshot) (bool, any, error) {
	return f(ctx, condition, facts)
}

// ExprHandler is the name of the built-in expression predicate.
const ExprHandler = "expr"

type Evaluator struct {
	logger *slog.Logger

	mu         sync.RWMutex
	predicates map[string]Predicate
}

func NewEvaluator(logger *slog.Logger) *Evaluator {
	return &Evaluator{
		logger: logger.With("module", "conditions"),
		predicates: map[string]Predicate{
			ExprHandler: NewExprPredicate(),
		},
	}
}

// RegisterPredicate makes p available to Custom conditions whose "handler"
// parameter equals name.
func (e *Evaluator) RegisterPredicate(name string, p Predicate) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.predicates[name] = p
}

// Evaluate returns the conjunction of conditions. An empty list holds.
// Evaluation stops at the first unmet condition; every condition inspected
// before that has its LastCheck and LastValue updated in place. since is the
// reference time for TimeElapsed conditions that never held.
func (e *Evaluator) Evaluate(ctx context.Context, conditions []models.Condition, facts models.FactSnapshot, since time.Time) bool {
	for i := range conditions {
		if !e.EvaluateOne(ctx, &conditions[i], facts, since) {
			return false
		}
	}

	return true
}

// EvaluateOne evaluates a single condition and records the observation on it.
// Malformed or unsupported conditions are unmet and record {"error": reason}.
func (e *Evaluator) EvaluateOne(ctx context.Context, condition *models.Condition, facts models.FactSnapshot, since time.Time) bool {
	met, observed, err := e.evaluate(ctx, *condition, facts, since)

	checkedAt := facts.Now
	condition.LastCheck = &checkedAt

	if err != nil {
		e.logger.DebugContext(ctx, "condition not evaluable",
			"condition_type", condition.ConditionType,
			"error", err)

		condition.LastValue = map[string]any{"error": err.Error()}

		return false
	}

	condition.LastValue = observed

	if met && condition.ConditionType == models.ConditionTimeElapsed {
		condition.ElapsedSince = &checkedAt
	}

	return met
}

func (e *Evaluator) evaluate(ctx context.Context, condition models.Condition, facts models.FactSnapshot, since time.Time) (bool, any, error) {
	switch condition.ConditionType {
	case models.ConditionPriceAbove, models.ConditionPriceBelow:
		limit, err := threshold(condition)
		if err != nil {
			return false, nil, err
		}

		if condition.ConditionType == models.ConditionPriceAbove {
			return facts.Price > limit, facts.Price, nil
		}

		return facts.Price < limit, facts.Price, nil

	case models.ConditionBalanceAbove, models.ConditionBalanceBelow:
		limit, err := threshold(condition)
		if err != nil {
			return false, nil, err
		}

		if condition.ConditionType == models.ConditionBalanceAbove {
			return facts.Balance > limit, facts.Balance, nil
		}

		return facts.Balance < limit, facts.Balance, nil

	case models.ConditionTimeElapsed:
		wait, err := duration(condition)
		if err != nil {
			return false, nil, err
		}

		reference := since
		if condition.ElapsedSince != nil {
			reference = *condition.ElapsedSince
		}

		elapsed := facts.Now.Sub(reference)

		return elapsed >= wait, elapsed.Seconds(), nil

	case models.ConditionCustom:
		name, err := stringParam(condition, ParamHandler)
		if err != nil {
			return false, nil, err
		}

		e.mu.RLock()
		predicate, ok := e.predicates[name]
		e.mu.RUnlock()

		if !ok {
			return false, nil, fmt.Errorf("%w: %s", ErrUnknownPredicate, name)
		}

		return predicate.Evaluate(ctx, condition, facts)

	default:
		return false, nil, fmt.Errorf("%w: %q", ErrUnknownCondition, condition.ConditionType)
	}
}
