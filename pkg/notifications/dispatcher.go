// Package notifications turns cycle outcomes into events on the event bus:
// a CycleCompleted for every executed cycle, an AutomationStatusChanged when a
// cycle moved the automation out of Active, and the Notifications the
// workspace subscribed to.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/crate/pkg/engine"
	"github.com/dukex/crate/pkg/eventbus"
	"github.com/dukex/crate/pkg/events"
	"github.com/dukex/crate/pkg/models"
	"github.com/jonboulle/clockwork"
)

type Dispatcher struct {
	publisher eventbus.EventPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
}

func NewDispatcher(publisher eventbus.EventPublisher, clock clockwork.Clock, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		clock:     clock,
		logger:    logger.With("module", "notifications"),
	}
}

// CycleCompleted publishes the events for one cycle. Publish failures are
// logged; delivery never affects the tick.
func (d *Dispatcher) CycleCompleted(ctx context.Context, workspace *models.Workspace, automation *models.Automation, outcome *engine.CycleOutcome) {
	if !outcome.Executed() {
		return
	}

	for _, event := range d.Events(workspace, automation, outcome) {
		if err := d.publisher.Publish(ctx, workspace.ID, event); err != nil {
			d.logger.ErrorContext(ctx, "failed to publish event",
				"workspace_id", workspace.ID,
				"automation_id", automation.ID,
				"event_type", event.GetType(),
				"error", err)
		}
	}
}

// Events builds the events for an executed cycle without publishing them.
func (d *Dispatcher) Events(workspace *models.Workspace, automation *models.Automation, outcome *engine.CycleOutcome) []eventbus.Event {
	now := d.clock.Now()
	result := []eventbus.Event{cycleCompleted(outcome, now)}

	if outcome.Status != models.AutomationStatusActive {
		result = append(result, events.AutomationStatusChanged{
			BaseEvent: events.NewBaseEvent(events.AutomationStatusChangedEvent, workspace.ID, automation.ID, now),
			From:      string(models.AutomationStatusActive),
			To:        string(outcome.Status),
		})
	}

	settings := workspace.Settings.Notifications

	for _, notificationType := range Types(automation, outcome) {
		if !settings.Wants(notificationType) {
			continue
		}

		result = append(result, events.Notification{
			BaseEvent:        events.NewBaseEvent(events.NotificationEvent, workspace.ID, automation.ID, now),
			NotificationType: string(notificationType),
			Channels:         settings.Channels(),
			Message:          message(notificationType, automation, outcome),
			Data: map[string]any{
				"automation_name": automation.Name,
				"success":         outcome.Success,
			},
		})
	}

	return result
}

// Types lists the notification types an executed cycle produces.
func Types(automation *models.Automation, outcome *engine.CycleOutcome) []models.NotificationType {
	types := []models.NotificationType{models.NotificationConditionMet}

	if outcome.Success {
		types = append(types, models.NotificationExecutionSuccess)
	} else {
		types = append(types, models.NotificationExecutionFailure)
	}

	var price, lowBalance bool

	for _, condition := range automation.Trigger.Conditions {
		switch condition.ConditionType {
		case models.ConditionPriceAbove, models.ConditionPriceBelow:
			price = true
		case models.ConditionBalanceBelow:
			lowBalance = true
		}
	}

	if price {
		types = append(types, models.NotificationPriceAlert)
	}

	if lowBalance {
		types = append(types, models.NotificationLowBalance)
	}

	return types
}

func message(notificationType models.NotificationType, automation *models.Automation, outcome *engine.CycleOutcome) string {
	switch notificationType {
	case models.NotificationExecutionSuccess:
		return fmt.Sprintf("automation %q executed %d actions in %s", automation.Name, len(outcome.Results), outcome.Elapsed)
	case models.NotificationExecutionFailure:
		return fmt.Sprintf("automation %q failed: %s", automation.Name, outcome.Error)
	case models.NotificationPriceAlert:
		return fmt.Sprintf("price condition of automation %q met", automation.Name)
	case models.NotificationLowBalance:
		return fmt.Sprintf("balance of automation %q fell below its threshold", automation.Name)
	default:
		return fmt.Sprintf("conditions of automation %q met", automation.Name)
	}
}

func cycleCompleted(outcome *engine.CycleOutcome, now time.Time) events.CycleCompleted {
	actions := make([]events.ActionAttempt, 0, len(outcome.Results))
	for _, result := range outcome.Results {
		actions = append(actions, events.ActionAttempt{
			Index:      result.Index,
			ActionType: string(result.ActionType),
			Target:     result.Target,
			Attempts:   result.Attempts,
			Success:    result.Success,
			Error:      result.Reason(),
		})
	}

	return events.CycleCompleted{
		BaseEvent: events.NewBaseEvent(events.CycleCompletedEvent, outcome.WorkspaceID, outcome.AutomationID, now),
		Outcome:   string(outcome.Kind),
		Success:   outcome.Success,
		Elapsed:   outcome.Elapsed,
		Status:    string(outcome.Status),
		Error:     outcome.Error,
		Actions:   actions,
	}
}
