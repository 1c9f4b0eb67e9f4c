// Package services provides the workspace and automation operations exposed by the API.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/persistence"
	"github.com/dukex/crate/pkg/registry"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrEmptyOwnerID   = errors.New("owner ID cannot be empty")

	ErrWorkspaceNotFound  = persistence.ErrWorkspaceNotFound
	ErrAutomationNotFound = persistence.ErrAutomationNotFound

	// ErrTickUnavailable is returned by Workspaces.Tick when no aggregator or fact provider was configured.
	ErrTickUnavailable = errors.New("ticking is not configured")
)

// ServiceError is a rejected request. Code is a stable machine readable
// identifier such as WORKSPACE_FULL; Message, when set, replaces the
// underlying error in Error().
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	detail := e.Message
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}

	return fmt.Sprintf("%s [%s]: %s", e.Op, e.Code, detail)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err was caused by bad input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyOwnerID) ||
		errors.Is(err, registry.ErrInvalidParameters) ||
		models.IsValidationError(err)
}

// IsConflictError reports whether err is a forbidden lifecycle move.
func IsConflictError(err error) bool {
	return models.IsStateError(err)
}

func IsNotFoundError(err error) bool {
	return persistence.IsNotFound(err)
}

// NewValidationError wraps err as a rejected request of operation op.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
