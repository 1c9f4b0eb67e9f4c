// Package models defines the core domain records of the automation engine.
package models

import (
	"fmt"
	"slices"
	"time"
)

// Record bounds shared with every persisted representation.
const (
	MaxNameLength           = 200
	MaxDescriptionLength    = 200
	MaxConnectedApps        = 10
	MaxActionsPerAutomation = 10
	DefaultMaxAutomations   = 10
)

// RiskLevel is the workspace-wide risk appetite.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh:
		return true
	default:
		return false
	}
}

// AppType classifies a connected app.
type AppType string

const (
	AppTypeDex       AppType = "dex"
	AppTypePriceFeed AppType = "price_feed"
	AppTypeLending   AppType = "lending"
	AppTypeYield     AppType = "yield"
	AppTypeCustom    AppType = "custom"
)

// Valid reports whether t is a known app type.
func (t AppType) Valid() bool {
	switch t {
	case AppTypeDex, AppTypePriceFeed, AppTypeLending, AppTypeYield, AppTypeCustom:
		return true
	default:
		return false
	}
}

// NotificationType names an event a workspace owner can subscribe to.
type NotificationType string

const (
	NotificationExecutionSuccess NotificationType = "execution_success"
	NotificationExecutionFailure NotificationType = "execution_failure"
	NotificationConditionMet     NotificationType = "condition_met"
	NotificationLowBalance       NotificationType = "low_balance"
	NotificationPriceAlert       NotificationType = "price_alert"
)

// ConnectedApp is an external app linked to a workspace. It is owned by exactly one workspace.
type ConnectedApp struct {
	ID          string         `json:"id"           validate:"required"`
	AppType     AppType        `json:"app_type"     validate:"required,oneof=dex price_feed lending yield custom"`
	Config      map[string]any `json:"config,omitempty"`
	ConnectedAt time.Time      `json:"connected_at"`
	LastUsed    time.Time      `json:"last_used"`
}

// NotificationSettings selects the channels and event types a workspace is notified about.
type NotificationSettings struct {
	EmailEnabled      bool               `json:"email_enabled"`
	DiscordEnabled    bool               `json:"discord_enabled"`
	TelegramEnabled   bool               `json:"telegram_enabled"`
	NotificationTypes []NotificationType `json:"notification_types,omitempty"`
}

// Channels returns the enabled delivery channels.
func (n NotificationSettings) Channels() []string {
	channels := make([]string, 0, 3)
	if n.EmailEnabled {
		channels = append(channels, "email")
	}

	if n.DiscordEnabled {
		channels = append(channels, "discord")
	}

	if n.TelegramEnabled {
		channels = append(channels, "telegram")
	}

	return channels
}

// Wants reports whether notifications of type t should be emitted at all.
func (n NotificationSettings) Wants(t NotificationType) bool {
	return len(n.Channels()) > 0 && slices.Contains(n.NotificationTypes, t)
}

// WorkspaceSettings holds the caller-configurable workspace policy.
type WorkspaceSettings struct {
	MaxAutomations uint8                `json:"max_automations"`
	AutoRetry      bool                 `json:"auto_retry"`
	Notifications  NotificationSettings `json:"notification_settings"`
	RiskLevel      RiskLevel            `json:"risk_level"`
}

// DefaultWorkspaceSettings returns the settings every new workspace starts with.
func DefaultWorkspaceSettings() WorkspaceSettings {
	return WorkspaceSettings{
		MaxAutomations: DefaultMaxAutomations,
		AutoRetry:      true,
		RiskLevel:      RiskLevelMedium,
	}
}

// WorkspaceStats is the roll-up of every cycle executed by the workspace's automations.
type WorkspaceStats struct {
	TotalExecutions      uint64     `json:"total_executions"`
	SuccessfulExecutions uint64     `json:"successful_executions"`
	FailedExecutions     uint64     `json:"failed_executions"`
	TotalValueLocked     uint64     `json:"total_value_locked"`
	LastExecutionTime    *time.Time `json:"last_execution_time,omitempty"`
}

// Workspace owns a bounded set of automations (by ID) and connected apps.
type Workspace struct {
	ID          string            `json:"id"`
	Owner       string            `json:"owner"`
	Name        string            `json:"name"`
	Description *string           `json:"description,omitempty"`
	Apps        []ConnectedApp    `json:"apps"`
	Automations []string          `json:"automations"`
	Stats       WorkspaceStats    `json:"stats"`
	Settings    WorkspaceSettings `json:"settings"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// NewWorkspace validates the name and description bounds and returns an empty workspace.
func NewWorkspace(id, owner, name string, description *string, now time.Time) (*Workspace, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	if description != nil && len(*description) > MaxDescriptionLength {
		return nil, ErrDescriptionTooLong
	}

	return &Workspace{
		ID:          id,
		Owner:       owner,
		Name:        name,
		Description: description,
		Apps:        make([]ConnectedApp, 0),
		Automations: make([]string, 0),
		Settings:    DefaultWorkspaceSettings(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AddApp connects an app. It fails once MaxConnectedApps apps are connected.
func (w *Workspace) AddApp(app ConnectedApp, now time.Time) error {
	if len(w.Apps) >= MaxConnectedApps {
		return ErrTooManyApps
	}

	if !app.AppType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAppType, app.AppType)
	}

	if app.ConnectedAt.IsZero() {
		app.ConnectedAt = now
	}

	if app.LastUsed.IsZero() {
		app.LastUsed = now
	}

	w.Apps = append(w.Apps, app)
	w.UpdatedAt = now

	return nil
}

// AddAutomation registers an automation ID. It fails once Settings.MaxAutomations are held.
func (w *Workspace) AddAutomation(automationID string, now time.Time) error {
	if len(w.Automations) >= int(w.Settings.MaxAutomations) {
		return ErrTooManyAutomations
	}

	if slices.Contains(w.Automations, automationID) {
		return ErrDuplicateAutomation
	}

	w.Automations = append(w.Automations, automationID)
	w.UpdatedAt = now

	return nil
}

// RemoveAutomation drops an automation ID and reports whether it was present.
func (w *Workspace) RemoveAutomation(automationID string, now time.Time) bool {
	idx := slices.Index(w.Automations, automationID)
	if idx < 0 {
		return false
	}

	w.Automations = slices.Delete(w.Automations, idx, idx+1)
	w.UpdatedAt = now

	return true
}

// UpdateSettings replaces the settings. Lowering MaxAutomations below the
// number of automations already held is rejected.
func (w *Workspace) UpdateSettings(settings WorkspaceSettings, now time.Time) error {
	if len(w.Automations) > int(settings.MaxAutomations) {
		return ErrTooManyAutomations
	}

	if !settings.RiskLevel.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRiskLevel, settings.RiskLevel)
	}

	w.Settings = settings
	w.UpdatedAt = now

	return nil
}

// RecordExecution folds one executed cycle into the workspace statistics.
func (w *Workspace) RecordExecution(success bool, now time.Time) {
	w.Stats.TotalExecutions++
	if success {
		w.Stats.SuccessfulExecutions++
	} else {
		w.Stats.FailedExecutions++
	}

	executedAt := now
	w.Stats.LastExecutionTime = &executedAt
	w.UpdatedAt = now
}

func validateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}

	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}

	return nil
}
