// Package scheduler gates automations on their trigger and computes the next
// execution time of schedule triggers. It performs no timing of its own.
package scheduler

import (
	"fmt"
	"time"

	"github.com/dukex/crate/pkg/models"
	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// IsDue reports whether an automation with trigger may be evaluated at now.
// Price, balance and custom triggers are due on every tick. Schedule triggers
// are due once now reaches next_execution; a schedule trigger without a
// schedule is never due.
func IsDue(trigger models.Trigger, now time.Time) bool {
	if trigger.TriggerType != models.TriggerTypeSchedule {
		return true
	}

	if trigger.Schedule == nil {
		return false
	}

	return !now.Before(trigger.Schedule.NextExecution)
}

// Validate checks that the schedule can produce a next execution time.
func Validate(schedule models.Schedule) error {
	if schedule.CronExpression != "" {
		if _, err := parser.Parse(schedule.CronExpression); err != nil {
			return fmt.Errorf("%w: cron expression %q: %w", models.ErrInvalidSchedule, schedule.CronExpression, err)
		}
	} else if schedule.Interval == 0 {
		return fmt.Errorf("%w: interval must be positive", models.ErrInvalidSchedule)
	}

	if schedule.MaxExecutions != nil && *schedule.MaxExecutions == 0 {
		return fmt.Errorf("%w: max_executions must be positive", models.ErrInvalidSchedule)
	}

	return nil
}

// Initialize validates schedule and, when next_execution is unset, computes
// the first execution after now.
func Initialize(schedule models.Schedule, now time.Time) (models.Schedule, error) {
	if err := Validate(schedule); err != nil {
		return schedule, err
	}

	if !schedule.NextExecution.IsZero() {
		return schedule, nil
	}

	return Advance(schedule, now)
}

// Advance returns schedule with next_execution moved past now: the next cron
// activation when a cron expression is set, now + interval otherwise.
func Advance(schedule models.Schedule, now time.Time) (models.Schedule, error) {
	if schedule.CronExpression != "" {
		cronSchedule, err := parser.Parse(schedule.CronExpression)
		if err != nil {
			return schedule, fmt.Errorf("%w: %w", models.ErrInvalidSchedule, err)
		}

		schedule.NextExecution = cronSchedule.Next(now)

		return schedule, nil
	}

	schedule.NextExecution = now.Add(schedule.IntervalDuration())

	return schedule, nil
}

// Exhausted reports whether an automation that has executed totalExecutions
// cycles must stop being rescheduled.
func Exhausted(schedule models.Schedule, totalExecutions uint64) bool {
	return schedule.MaxExecutions != nil && totalExecutions >= *schedule.MaxExecutions
}
