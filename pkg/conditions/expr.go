package conditions

import (
	"context"
	"fmt"
	"sync"

	"github.com/dukex/crate/pkg/models"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprPredicate evaluates the boolean expression held in the condition's
// "expression" parameter. The environment exposes price, balance, now,
// custom (the snapshot's custom payload) and params (the condition parameters).
// Compiled programs are cached per expression and safe for concurrent use.
type ExprPredicate struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

func NewExprPredicate() *ExprPredicate {
	return &ExprPredicate{
		cache: make(map[string]*vm.Program),
	}
}

func (p *ExprPredicate) Evaluate(_ context.Context, condition models.Condition, facts models.FactSnapshot) (bool, any, error) {
	expression, err := stringParam(condition, ParamExpression)
	if err != nil {
		return false, nil, err
	}

	env := exprEnv(condition, facts)

	prg, err := p.getOrCompile(expression, env)
	if err != nil {
		return false, nil, err
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return false, nil, fmt.Errorf("expr evaluation failed for %q: %w", expression, err)
	}

	result, ok := out.(bool)
	if !ok {
		return false, out, fmt.Errorf("%w: expression %q returned %T, want bool", ErrInvalidParameter, expression, out)
	}

	return result, out, nil
}

func (p *ExprPredicate) getOrCompile(expression string, env map[string]any) (*vm.Program, error) {
	p.mu.RLock()
	if prg, ok := p.cache[expression]; ok {
		p.mu.RUnlock()

		return prg, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if prg, ok := p.cache[expression]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(expression,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: expr compile error in %q: %w", ErrInvalidParameter, expression, err)
	}

	p.cache[expression] = prg

	return prg, nil
}

func exprEnv(condition models.Condition, facts models.FactSnapshot) map[string]any {
	custom := facts.Custom
	if custom == nil {
		custom = map[string]any{}
	}

	params := condition.Parameters
	if params == nil {
		params = map[string]any{}
	}

	return map[string]any{
		"price":   facts.Price,
		"balance": facts.Balance,
		"now":     facts.Now,
		"custom":  custom,
		"params":  params,
	}
}
