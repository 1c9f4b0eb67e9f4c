// Package registry maps action kinds to the handlers that perform them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/crate/pkg/models"
	"github.com/spf13/cast"
	"github.com/xeipuuv/gojsonschema"
)

// HandlerParam names the parameter that selects the handler of a Custom action.
const HandlerParam = "handler"

var (
	ErrUnsupportedActionType = errors.New("unsupported action type")
	ErrInvalidParameters     = errors.New("invalid action parameters")
	ErrNoHandlers            = errors.New("no action handlers registered")
)

// Handler performs one attempt of an action against target.
type Handler interface {
	Execute(ctx context.Context, target string, params map[string]any) (any, error)
}

type HandlerFunc func(ctx context.Context, target string, params map[string]any) (any, error)

func (f HandlerFunc) Execute(ctx context.Context, target string, params map[string]any) (any, error) {
	return f(ctx, target, params)
}

// SchemaProvider is implemented by handlers that publish a JSON schema for
// their parameters.
type SchemaProvider interface {
	Schema() map[string]any
}

// HealthChecker is implemented by handlers that depend on an external system.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Registry struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[models.ActionType]Handler
	custom   map[string]Handler
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:   log.With("module", "registry"),
		handlers: make(map[models.ActionType]Handler),
		custom:   make(map[string]Handler),
	}
}

// Register binds handler to an action kind, replacing any previous binding.
func (r *Registry) Register(kind models.ActionType, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[kind] = handler
	r.logger.Debug("registered action handler", "action_type", kind)
}

// RegisterCustom binds handler to Custom actions whose "handler" parameter equals name.
func (r *Registry) RegisterCustom(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.custom[name] = handler
	r.logger.Debug("registered custom action handler", "handler", name)
}

// Resolve returns the handler for action. Custom actions are first resolved by
// their "handler" parameter and fall back to a handler registered for the
// Custom kind itself.
// nolint:ireturn
func (r *Registry) Resolve(action models.Action) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if action.ActionType == models.ActionTypeCustom {
		if name := cast.ToString(action.Parameters[HandlerParam]); name != "" {
			if handler, ok := r.custom[name]; ok {
				return handler, nil
			}
		}
	}

	handler, ok := r.handlers[action.ActionType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedActionType, action.ActionType)
	}

	return handler, nil
}

// ValidateParameters checks action parameters against the resolved handler's
// schema. Actions without a resolvable handler or without a schema pass.
func (r *Registry) ValidateParameters(action models.Action) error {
	handler, err := r.Resolve(action)
	if err != nil {
		// unresolved kinds fail when executed
		return nil //nolint:nilerr
	}

	provider, ok := handler.(SchemaProvider)
	if !ok {
		return nil
	}

	params := action.Parameters
	if params == nil {
		params = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(provider.Schema()), gojsonschema.NewGoLoader(params))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParameters, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidParameters, strings.Join(messages, "; "))
	}

	return nil
}

// Kinds lists the registered action kinds followed by "custom:<name>" for
// every named custom handler, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.handlers)+len(r.custom))
	for kind := range r.handlers {
		kinds = append(kinds, string(kind))
	}

	for name := range r.custom {
		kinds = append(kinds, "custom:"+name)
	}

	slices.Sort(kinds)

	return kinds
}

// HealthCheck fails when nothing is registered or when a handler that checks
// its own dependencies reports a problem.
func (r *Registry) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	handlers := make([]Handler, 0, len(r.handlers)+len(r.custom))
	for _, handler := range r.handlers {
		handlers = append(handlers, handler)
	}

	for _, handler := range r.custom {
		handlers = append(handlers, handler)
	}
	r.mu.RUnlock()

	if len(handlers) == 0 {
		return ErrNoHandlers
	}

	for _, handler := range handlers {
		if checker, ok := handler.(HealthChecker); ok {
			if err := checker.HealthCheck(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}
