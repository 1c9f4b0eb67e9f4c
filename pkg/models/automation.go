package models

import (
	"fmt"
	"time"
)

// AutomationStatus is the lifecycle state of an automation.
type AutomationStatus string

const (
	AutomationStatusActive    AutomationStatus = "active"
	AutomationStatusPaused    AutomationStatus = "paused"
	AutomationStatusFailed    AutomationStatus = "failed"
	AutomationStatusCompleted AutomationStatus = "completed"
)

var automationTransitions = map[AutomationStatus][]AutomationStatus{
	AutomationStatusActive: {
		AutomationStatusActive,
		AutomationStatusPaused,
		AutomationStatusFailed,
		AutomationStatusCompleted,
	},
	AutomationStatusPaused: {AutomationStatusActive},
}

// CanTransition reports whether an automation may move from one status to another.
// Failed and Completed are terminal.
func CanTransition(from, to AutomationStatus) bool {
	for _, allowed := range automationTransitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

// Automation couples a trigger, its conditions and an ordered list of actions
// with a lifecycle status and running execution statistics.
type Automation struct {
	ID             string           `json:"id"`
	WorkspaceID    string           `json:"workspace_id"`
	Owner          string           `json:"owner"`
	Name           string           `json:"name"`
	Trigger        Trigger          `json:"trigger"`
	Actions        []Action         `json:"actions"`
	Status         AutomationStatus `json:"status"`
	ExecutionStats ExecutionStats   `json:"execution_stats"`
	CreatedAt      time.Time        `json:"created_at"`
	LastExecutedAt *time.Time       `json:"last_executed_at,omitempty"`
}

// NewAutomation validates the name and trigger and returns an Active automation with no actions.
func NewAutomation(id, workspaceID, owner, name string, trigger Trigger, now time.Time) (*Automation, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	if !trigger.TriggerType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTriggerType, trigger.TriggerType)
	}

	if trigger.TriggerType == TriggerTypeSchedule && trigger.Schedule == nil {
		return nil, fmt.Errorf("%w: schedule trigger without schedule", ErrInvalidSchedule)
	}

	if trigger.Conditions == nil {
		trigger.Conditions = make([]Condition, 0)
	}

	return &Automation{
		ID:          id,
		WorkspaceID: workspaceID,
		Owner:       owner,
		Name:        name,
		Trigger:     trigger,
		Actions:     make([]Action, 0),
		Status:      AutomationStatusActive,
		CreatedAt:   now,
	}, nil
}

// AddAction appends an action. The list is left unchanged once it holds MaxActionsPerAutomation actions.
func (a *Automation) AddAction(action Action) error {
	if len(a.Actions) >= MaxActionsPerAutomation {
		return ErrTooManyActions
	}

	if !action.ActionType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidActionType, action.ActionType)
	}

	a.Actions = append(a.Actions, action)

	return nil
}

// IsActive reports whether the automation may be executed.
func (a *Automation) IsActive() bool {
	return a.Status == AutomationStatusActive
}

// TransitionTo moves the automation to status to, rejecting moves the lifecycle forbids.
func (a *Automation) TransitionTo(to AutomationStatus) error {
	if !CanTransition(a.Status, to) {
		return &TransitionError{AutomationID: a.ID, From: a.Status, To: to}
	}

	a.Status = to

	return nil
}

// ResetRetryCounters zeroes every action's per-cycle attempt counter.
func (a *Automation) ResetRetryCounters() {
	for i := range a.Actions {
		if a.Actions[i].RetryConfig != nil {
			a.Actions[i].RetryConfig.CurrentAttempts = 0
		}
	}
}
