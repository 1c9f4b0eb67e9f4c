package engine

import (
	"time"

	"github.com/dukex/crate/pkg/executor"
	"github.com/dukex/crate/pkg/models"
)

// OutcomeKind classifies a cycle.
type OutcomeKind string

const (
	OutcomeNotDue           OutcomeKind = "not_due"
	OutcomeConditionsNotMet OutcomeKind = "conditions_not_met"
	OutcomeExecuted         OutcomeKind = "executed"
)

// CycleOutcome is the result of one evaluate-then-execute pass over an automation.
type CycleOutcome struct {
	AutomationID string                  `json:"automation_id"`
	WorkspaceID  string                  `json:"workspace_id"`
	Kind         OutcomeKind             `json:"kind"`
	Success      bool                    `json:"success"`
	Results      []executor.Result       `json:"results,omitempty"`
	Elapsed      time.Duration           `json:"elapsed"`
	Status       models.AutomationStatus `json:"status"`
	Error        string                  `json:"error,omitempty"`
	Aborted      bool                    `json:"aborted,omitempty"`
}

// Executed reports whether the actions ran.
func (o *CycleOutcome) Executed() bool {
	return o.Kind == OutcomeExecuted
}
