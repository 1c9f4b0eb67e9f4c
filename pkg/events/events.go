// Package events defines the events published about automation cycles.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	// Topic carries cycle and status events.
	Topic = "crate.events"
	// NotificationTopic carries notifications only, for delivery services.
	NotificationTopic = "crate.notifications"
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	CycleCompletedEvent          EventType = "automation.cycle.completed"
	AutomationStatusChangedEvent EventType = "automation.status.changed"
	NotificationEvent            EventType = "workspace.notification"
)

type BaseEvent struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	WorkspaceID  string         `json:"workspace_id"`
	AutomationID string         `json:"automation_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workspaceID, automationID string, now time.Time) BaseEvent {
	return BaseEvent{
		ID:           uuid.New().String(),
		Type:         eventType,
		Timestamp:    now,
		WorkspaceID:  workspaceID,
		AutomationID: automationID,
	}
}

// ActionAttempt summarises one action of an executed cycle.
type ActionAttempt struct {
	Index      int    `json:"index"`
	ActionType string `json:"action_type"`
	Target     string `json:"target"`
	Attempts   int    `json:"attempts"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type CycleCompleted struct {
	BaseEvent

	Outcome string          `json:"outcome"`
	Success bool            `json:"success"`
	Elapsed time.Duration   `json:"elapsed"`
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Actions []ActionAttempt `json:"actions,omitempty"`
}

func (CycleCompleted) GetType() EventType {
	return CycleCompletedEvent
}

type AutomationStatusChanged struct {
	BaseEvent

	From string `json:"from"`
	To   string `json:"to"`
}

func (AutomationStatusChanged) GetType() EventType {
	return AutomationStatusChangedEvent
}

// Notification asks an external deliverer to notify the workspace owner on Channels.
type Notification struct {
	BaseEvent

	NotificationType string         `json:"notification_type"`
	Channels         []string       `json:"channels"`
	Message          string         `json:"message"`
	Data             map[string]any `json:"data,omitempty"`
}

func (Notification) GetType() EventType {
	return NotificationEvent
}

// TopicFor returns the topic events of eventType are published on.
func TopicFor(eventType EventType) string {
	if eventType == NotificationEvent {
		return NotificationTopic
	}

	return Topic
}

// Topics lists every topic events are published on.
func Topics() []string {
	return []string{Topic, NotificationTopic}
}
