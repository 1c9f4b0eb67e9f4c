package models

import "time"

// ActionType identifies the handler an action is dispatched to.
type ActionType string

const (
	ActionTypeSwap     ActionType = "swap"
	ActionTypeTransfer ActionType = "transfer"
	ActionTypeStake    ActionType = "stake"
	ActionTypeUnstake  ActionType = "unstake"
	ActionTypeCustom   ActionType = "custom"
)

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	switch t {
	case ActionTypeSwap, ActionTypeTransfer, ActionTypeStake, ActionTypeUnstake, ActionTypeCustom:
		return true
	default:
		return false
	}
}

// Action is one effect performed when an automation's conditions hold. It has
// no identity beyond its position in the owning automation's list.
type Action struct {
	ActionType  ActionType     `json:"action_type"            validate:"required,oneof=swap transfer stake unstake custom"`
	Target      string         `json:"target"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	RetryConfig *RetryConfig   `json:"retry_config,omitempty"`
}

// RetryConfig bounds the attempts made for a failing action within one cycle.
// DelayBetweenAttempts is expressed in seconds. CurrentAttempts is engine-owned
// and reset at the start of every cycle.
type RetryConfig struct {
	MaxAttempts          uint8  `json:"max_attempts"`
	DelayBetweenAttempts uint64 `json:"delay_between_attempts"`
	CurrentAttempts      uint8  `json:"current_attempts"`
}

// Delay returns DelayBetweenAttempts as a time.Duration.
func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelayBetweenAttempts) * time.Second
}
