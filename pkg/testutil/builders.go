// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/crate/pkg/models"
	"github.com/google/uuid"
)

// Created is the creation time stamped on every built record.
var Created = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

// CreateTestWorkspace creates a Workspace with default settings that can be overridden.
func CreateTestWorkspace(overrides ...func(*models.Workspace)) *models.Workspace {
	workspace := &models.Workspace{
		ID:          uuid.New().String(),
		Owner:       "owner-1",
		Name:        "Test Workspace",
		Automations: make([]string, 0),
		Apps:        make([]models.ConnectedApp, 0),
		Settings:    models.DefaultWorkspaceSettings(),
		CreatedAt:   Created,
		UpdatedAt:   Created,
	}

	for _, override := range overrides {
		override(workspace)
	}

	return workspace
}

// CreateTestAutomation creates an Active balance-triggered automation of
// workspace with one transfer action. The automation ID is appended to
// workspace.Automations.
func CreateTestAutomation(workspace *models.Workspace, overrides ...func(*models.Automation)) *models.Automation {
	automation := &models.Automation{
		ID:          uuid.New().String(),
		WorkspaceID: workspace.ID,
		Owner:       workspace.Owner,
		Name:        "Test Automation",
		Trigger: models.Trigger{
			TriggerType: models.TriggerTypeBalance,
			Conditions:  make([]models.Condition, 0),
		},
		Actions: []models.Action{
			{ActionType: models.ActionTypeTransfer, Target: "vault"},
		},
		Status:    models.AutomationStatusActive,
		CreatedAt: Created,
	}

	for _, override := range overrides {
		override(automation)
	}

	workspace.Automations = append(workspace.Automations, automation.ID)

	return automation
}

// WithID sets the automation ID.
func WithID(id string) func(*models.Automation) {
	return func(a *models.Automation) {
		a.ID = id
	}
}

// WithStatus sets the automation status.
func WithStatus(status models.AutomationStatus) func(*models.Automation) {
	return func(a *models.Automation) {
		a.Status = status
	}
}

// WithConditions replaces the trigger conditions.
func WithConditions(conditions ...models.Condition) func(*models.Automation) {
	return func(a *models.Automation) {
		a.Trigger.Conditions = conditions
	}
}

// WithActions replaces the action list.
func WithActions(actions ...models.Action) func(*models.Automation) {
	return func(a *models.Automation) {
		a.Actions = actions
	}
}

// WithSchedule turns the trigger into a schedule trigger firing every interval seconds.
func WithSchedule(interval uint64, next time.Time) func(*models.Automation) {
	return func(a *models.Automation) {
		a.Trigger.TriggerType = models.TriggerTypeSchedule
		a.Trigger.Schedule = &models.Schedule{Interval: interval, NextExecution: next}
	}
}
