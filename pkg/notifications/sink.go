package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/crate/pkg/eventbus"
	"github.com/dukex/crate/pkg/events"
)

// LogSink consumes notification and status events from the bus and writes
// them to the log, one record per channel the workspace enabled.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("module", "notification_sink")}
}

// Register installs the sink's handlers on subscriber.
func (s *LogSink) Register(subscriber eventbus.EventSubscriber) error {
	if err := subscriber.Handle(events.NotificationEvent, s.handleNotification); err != nil {
		return err
	}

	return subscriber.Handle(events.AutomationStatusChangedEvent, s.handleStatusChanged)
}

func (s *LogSink) handleNotification(ctx context.Context, event any) error {
	notification, ok := event.(*events.Notification)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	for _, channel := range notification.Channels {
		s.logger.InfoContext(ctx, notification.Message,
			"channel", channel,
			"notification_type", notification.NotificationType,
			"workspace_id", notification.WorkspaceID,
			"automation_id", notification.AutomationID)
	}

	return nil
}

func (s *LogSink) handleStatusChanged(ctx context.Context, event any) error {
	changed, ok := event.(*events.AutomationStatusChanged)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	s.logger.WarnContext(ctx, "automation left active",
		"workspace_id", changed.WorkspaceID,
		"automation_id", changed.AutomationID,
		"from", changed.From,
		"to", changed.To)

	return nil
}
