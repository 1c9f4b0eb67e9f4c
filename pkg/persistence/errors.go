package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrAutomationNotFound = errors.New("automation not found")
)

// RecordError wraps a storage failure with the operation and record involved.
type RecordError struct {
	Op   string // e.g. "GetByID", "Save", "Delete"
	Kind string // "workspace" or "automation"
	ID   string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewWorkspaceError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Kind: "workspace", ID: id, Err: err}
}

func NewAutomationError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Kind: "automation", ID: id, Err: err}
}

func IsWorkspaceNotFound(err error) bool {
	return errors.Is(err, ErrWorkspaceNotFound)
}

func IsAutomationNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound)
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	return IsWorkspaceNotFound(err) || IsAutomationNotFound(err)
}
