package main

import (
	"context"
	"os"

	"github.com/dukex/crate/pkg/cmd"
	"github.com/dukex/crate/pkg/engine"
	"github.com/dukex/crate/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "crate-api",
		Usage:                 "Create and manage workspaces and automations",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file://, postgres://, redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "facts-url",
				Usage:   "Fact source for on-demand ticks (static://?price=..&balance=.., redis://)",
				Sources: cli.EnvVars("FACTS_URL"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing handler plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "seed-file",
				Usage:   "YAML file with workspaces and automations to create on startup",
				Sources: cli.EnvVars("SEED_FILE"),
			},
			&cli.IntFlag{
				Name:    "failure-threshold",
				Usage:   "Failed executions after which an automation is marked failed (0 disables)",
				Sources: cli.EnvVars("FAILURE_THRESHOLD"),
			},
			&cli.BoolFlag{
				Name:    "abort-on-action-failure",
				Usage:   "Skip the remaining actions of a cycle after a permanent failure",
				Sources: cli.EnvVars("ABORT_ON_ACTION_FAILURE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger.InfoContext(ctx, "Initializing Crate API")

			registry := cmd.NewRegistry(logger, command.String("plugins-path"), false)
			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			provider, closeFacts := cmd.NewFactProvider(ctx, logger, command.String("facts-url"))
			defer func() {
				if err := closeFacts(); err != nil {
					logger.ErrorContext(ctx, "Failed to close fact provider", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				persistence,
				registry,
				eventBus,
				provider,
				engine.Config{
					FailureThreshold:     cmd.FailureThreshold(command.Int("failure-threshold")),
					AbortOnActionFailure: command.Bool("abort-on-action-failure"),
				},
			)

			if path := command.String("seed-file"); path != "" {
				if err := api.Seed(ctx, path); err != nil {
					return err
				}
			}

			return api.Start(int(command.Int("port")))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
