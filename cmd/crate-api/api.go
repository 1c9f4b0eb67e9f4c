// Package main provides the Crate API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/crate/pkg/cmd"
	"github.com/dukex/crate/pkg/engine"
	"github.com/dukex/crate/pkg/eventbus"
	"github.com/dukex/crate/pkg/facts"
	"github.com/dukex/crate/pkg/notifications"
	"github.com/dukex/crate/pkg/persistence"
	"github.com/dukex/crate/pkg/registry"
	"github.com/dukex/crate/pkg/services"
	"github.com/dukex/crate/pkg/web"
	"github.com/dukex/crate/pkg/workspace"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/jonboulle/clockwork"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	facts       facts.Provider
	config      engine.Config
	clock       clockwork.Clock
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	provider facts.Provider,
	config engine.Config,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		facts:       provider,
		config:      config,
		clock:       clockwork.NewRealClock(),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) services() (*services.Workspaces, *services.Automations) {
	e := cmd.NewEngine(a.logger, a.registry, cmd.EngineOptions{Config: a.config, Clock: a.clock})
	dispatcher := notifications.NewDispatcher(a.eventBus, a.clock, a.logger)
	aggregator := workspace.NewAggregator(a.persistence, e, a.logger, workspace.WithObservers(dispatcher))

	workspaceService := services.NewWorkspaces(a.persistence, a.clock, a.logger, services.WithTicking(aggregator, a.facts))
	automationService := services.NewAutomations(a.persistence, a.registry, e, a.clock, a.logger,
		services.WithExecution(aggregator, a.facts))

	return workspaceService, automationService
}

// Seed applies the seed file at path before the server starts.
func (a *API) Seed(ctx context.Context, path string) error {
	workspaceService, automationService := a.services()

	return cmd.ApplySeed(ctx, a.logger, path, workspaceService, automationService)
}

func (a *API) App() *fiber.App {
	workspaceService, automationService := a.services()

	handlers := web.NewAPIHandlers(workspaceService, automationService, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Crate API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
