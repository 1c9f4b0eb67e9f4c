// Package web provides HTTP request types and handlers for the workspace and automation API.
package web

import "github.com/dukex/crate/pkg/models"

// CreateWorkspaceRequest represents the request body for creating a workspace.
// Length bounds are enforced by the domain model.
type CreateWorkspaceRequest struct {
	Owner       string                    `json:"owner"                 validate:"required"`
	Name        string                    `json:"name"                  validate:"required"`
	Description *string                   `json:"description,omitempty"`
	Settings    *models.WorkspaceSettings `json:"settings,omitempty"`
}

// UpdateSettingsRequest represents the request body for replacing workspace settings.
type UpdateSettingsRequest struct {
	MaxAutomations uint8                       `json:"max_automations"       validate:"min=1"`
	AutoRetry      bool                        `json:"auto_retry"`
	Notifications  models.NotificationSettings `json:"notification_settings"`
	RiskLevel      models.RiskLevel            `json:"risk_level"            validate:"required,oneof=low medium high"`
}

func (r UpdateSettingsRequest) Settings() models.WorkspaceSettings {
	return models.WorkspaceSettings{
		MaxAutomations: r.MaxAutomations,
		AutoRetry:      r.AutoRetry,
		Notifications:  r.Notifications,
		RiskLevel:      r.RiskLevel,
	}
}

// AddAppRequest represents the request body for connecting an app to a workspace.
type AddAppRequest struct {
	AppType models.AppType `json:"app_type"         validate:"required,oneof=dex price_feed lending yield custom"`
	Config  map[string]any `json:"config,omitempty"`
}

// CreateAutomationRequest represents the request body for creating an automation in a workspace.
type CreateAutomationRequest struct {
	Owner   string          `json:"owner"   validate:"required"`
	Name    string          `json:"name"    validate:"required"`
	Trigger models.Trigger  `json:"trigger"`
	Actions []models.Action `json:"actions"`
}

// ActionRequest represents the request body for appending an action.
type ActionRequest struct {
	ActionType  models.ActionType   `json:"action_type"            validate:"required"`
	Target      string              `json:"target"`
	Parameters  map[string]any      `json:"parameters,omitempty"`
	RetryConfig *models.RetryConfig `json:"retry_config,omitempty"`
}

func (r ActionRequest) Action() models.Action {
	return models.Action{
		ActionType:  r.ActionType,
		Target:      r.Target,
		Parameters:  r.Parameters,
		RetryConfig: r.RetryConfig,
	}
}
