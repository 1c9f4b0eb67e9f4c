// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"
	"net/http"
	"time"

	logaction "github.com/dukex/crate/pkg/actions/log"
	"github.com/dukex/crate/pkg/actions/webhook"
	"github.com/dukex/crate/pkg/models"
	"github.com/dukex/crate/pkg/registry"
)

const webhookTimeout = 30 * time.Second

var builtinKinds = []models.ActionType{
	models.ActionTypeSwap,
	models.ActionTypeTransfer,
	models.ActionTypeStake,
	models.ActionTypeUnstake,
	models.ActionTypeCustom,
}

func registerHandlerPlugins(reg *registry.Registry, pluginsPath string) {
	if _, err := reg.LoadPlugins(pluginsPath); err != nil {
		panic(err)
	}
}

func registerNativeHandlers(reg *registry.Registry, logger *slog.Logger) {
	reg.RegisterCustom("log", logaction.NewHandler(logger, "info"))
	reg.RegisterCustom("webhook", webhook.NewHandler(logger, &http.Client{Timeout: webhookTimeout}))
}

// registerDryRunHandlers binds the log handler to every built-in kind so
// cycles run end to end without side effects.
func registerDryRunHandlers(reg *registry.Registry, logger *slog.Logger) {
	handler := logaction.NewHandler(logger.With("dry_run", true), "info")
	for _, kind := range builtinKinds {
		reg.Register(kind, handler)
	}

	reg.RegisterCustom("webhook", handler)
}

// NewRegistry builds the action handler registry. Plugins are loaded first so
// the native handlers win on name clashes.
func NewRegistry(log *slog.Logger, pluginsPath string, dryRun bool) *registry.Registry {
	reg := registry.NewRegistry(log)

	if pluginsPath != "" {
		registerHandlerPlugins(reg, pluginsPath)
	}

	registerNativeHandlers(reg, log)

	if dryRun {
		registerDryRunHandlers(reg, log)
	}

	return reg
}
