package models

import (
	"errors"
	"fmt"
)

// Validation errors. Mutations that fail with one of these leave the record untouched.
var (
	ErrNameTooLong         = errors.New("name must be less than 200 characters")
	ErrNameRequired        = errors.New("name is required")
	ErrDescriptionTooLong  = errors.New("description must be less than 200 characters")
	ErrTooManyActions      = errors.New("maximum number of actions reached")
	ErrTooManyApps         = errors.New("maximum number of apps reached")
	ErrTooManyAutomations  = errors.New("maximum number of automations reached")
	ErrInvalidTriggerType  = errors.New("invalid trigger type")
	ErrInvalidActionType   = errors.New("invalid action type")
	ErrInvalidAppType      = errors.New("invalid app type")
	ErrInvalidRiskLevel    = errors.New("invalid risk level")
	ErrInvalidSchedule     = errors.New("invalid schedule configuration")
	ErrDuplicateAutomation = errors.New("automation already belongs to workspace")
)

// State errors.
var (
	ErrAutomationNotActive = errors.New("automation is not active")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	AutomationID string
	From         AutomationStatus
	To           AutomationStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("automation %s: cannot transition from %s to %s", e.AutomationID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// IsValidationError reports whether err was produced by a record bound or shape check.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNameTooLong) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrDescriptionTooLong) ||
		errors.Is(err, ErrTooManyActions) ||
		errors.Is(err, ErrTooManyApps) ||
		errors.Is(err, ErrTooManyAutomations) ||
		errors.Is(err, ErrInvalidTriggerType) ||
		errors.Is(err, ErrInvalidActionType) ||
		errors.Is(err, ErrInvalidAppType) ||
		errors.Is(err, ErrInvalidRiskLevel) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrDuplicateAutomation)
}

// IsStateError reports whether err was caused by the automation lifecycle state.
func IsStateError(err error) bool {
	return errors.Is(err, ErrAutomationNotActive) || errors.Is(err, ErrInvalidTransition)
}
