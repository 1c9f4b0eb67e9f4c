package models

import "time"

// TriggerType determines when an automation is eligible for evaluation.
type TriggerType string

const (
	TriggerTypePrice    TriggerType = "price"
	TriggerTypeSchedule TriggerType = "schedule"
	TriggerTypeBalance  TriggerType = "balance"
	TriggerTypeCustom   TriggerType = "custom"
)

// Valid reports whether t is a known trigger type.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerTypePrice, TriggerTypeSchedule, TriggerTypeBalance, TriggerTypeCustom:
		return true
	default:
		return false
	}
}

// Trigger couples a trigger type with the conditions gating action execution.
type Trigger struct {
	TriggerType TriggerType `json:"trigger_type" validate:"required,oneof=price schedule balance custom"`
	Conditions  []Condition `json:"conditions"`
	Schedule    *Schedule   `json:"schedule,omitempty"`
}

// Schedule drives Schedule triggers. Interval is expressed in seconds. When
// CronExpression is set it takes precedence over Interval for computing the
// next execution.
type Schedule struct {
	Interval       uint64    `json:"interval"`
	NextExecution  time.Time `json:"next_execution"`
	MaxExecutions  *uint64   `json:"max_executions,omitempty"`
	CronExpression string    `json:"cron_expression,omitempty"`
}

// IntervalDuration returns Interval as a time.Duration.
func (s Schedule) IntervalDuration() time.Duration {
	return time.Duration(s.Interval) * time.Second
}

// ConditionType selects the predicate a condition applies.
type ConditionType string

const (
	ConditionPriceAbove   ConditionType = "price_above"
	ConditionPriceBelow   ConditionType = "price_below"
	ConditionBalanceAbove ConditionType = "balance_above"
	ConditionBalanceBelow ConditionType = "balance_below"
	ConditionTimeElapsed  ConditionType = "time_elapsed"
	ConditionCustom       ConditionType = "custom"
)

// Condition is a predicate evaluated against a fact snapshot. LastCheck and
// LastValue are bookkeeping written by the evaluator on every evaluation.
type Condition struct {
	ConditionType ConditionType  `json:"condition_type"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	LastCheck     *time.Time     `json:"last_check,omitempty"`
	LastValue     any            `json:"last_value,omitempty"`
	// ElapsedSince is where a TimeElapsed window started; it moves only when the condition holds.
	ElapsedSince *time.Time `json:"elapsed_since,omitempty"`
}
