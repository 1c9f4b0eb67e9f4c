// Package main provides the Crate engine: it ticks every workspace on an interval.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/crate/pkg/cmd"
	"github.com/dukex/crate/pkg/engine"
	"github.com/dukex/crate/pkg/log"
	"github.com/dukex/crate/pkg/metrics"
	"github.com/dukex/crate/pkg/notifications"
	"github.com/dukex/crate/pkg/otelhelper"
	"github.com/dukex/crate/pkg/workspace"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTickInterval = time.Minute
	defaultConcurrency  = 4
	defaultMetricsPort  = 9092
	shutdownTimeout     = 5 * time.Second
)

func main() {
	logger := log.WithModule("engine")

	command := &cli.Command{
		Name:                  "crate-engine",
		Usage:                 "Evaluate and execute automations for every workspace",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
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
				Usage:   "Fact source (static://?price=..&balance=.., redis://)",
				Sources: cli.EnvVars("FACTS_URL"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing handler plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.DurationFlag{
				Name:    "tick-interval",
				Usage:   "Time between two passes over every workspace",
				Value:   defaultTickInterval,
				Sources: cli.EnvVars("TICK_INTERVAL"),
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single pass and exit",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Workspaces ticked in parallel",
				Value:   defaultConcurrency,
				Sources: cli.EnvVars("ENGINE_CONCURRENCY"),
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
			&cli.BoolFlag{
				Name:    "dry-run",
				Usage:   "Log every action instead of executing it",
				Sources: cli.EnvVars("DRY_RUN"),
			},
			&cli.BoolFlag{
				Name:    "log-notifications",
				Usage:   "Consume notification events from the bus and log them",
				Value:   true,
				Sources: cli.EnvVars("LOG_NOTIFICATIONS"),
			},
			&cli.IntFlag{
				Name:    "metrics-port",
				Usage:   "Port for the Prometheus metrics endpoint (0 disables)",
				Value:   defaultMetricsPort,
				Sources: cli.EnvVars("METRICS_PORT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
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

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing Crate engine", "dry_run", command.Bool("dry-run"))

			var tracer trace.Tracer

			if command.Bool("tracing") {
				t, shutdown, err := otelhelper.NewTracer(ctx, "crate-engine")
				if err != nil {
					return err
				}

				tracer = t

				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()

					if err := shutdown(shutdownCtx); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer", "error", err)
					}
				}()
			}

			engineMetrics := metrics.NewEngineMetrics()
			registry := prometheus.NewRegistry()
			engineMetrics.Register(registry)

			if port := command.Int("metrics-port"); port > 0 {
				server := metrics.NewServer(int(port), logger, registry)
				server.Start()

				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()

					if err := server.Stop(shutdownCtx); err != nil {
						logger.ErrorContext(ctx, "Failed to stop metrics server", "error", err)
					}
				}()
			}

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			if command.Bool("log-notifications") {
				if err := notifications.NewLogSink(logger).Register(eventBus); err != nil {
					return err
				}

				if err := eventBus.Subscribe(ctx); err != nil {
					return fmt.Errorf("failed to subscribe to events: %w", err)
				}
			}

			provider, closeFacts := cmd.NewFactProvider(ctx, logger, command.String("facts-url"))
			defer func() {
				if err := closeFacts(); err != nil {
					logger.ErrorContext(ctx, "Failed to close fact provider", "error", err)
				}
			}()

			clock := clockwork.NewRealClock()
			handlers := cmd.NewRegistry(logger, command.String("plugins-path"), command.Bool("dry-run"))

			e := cmd.NewEngine(logger, handlers, cmd.EngineOptions{
				Config: engine.Config{
					FailureThreshold:     cmd.FailureThreshold(command.Int("failure-threshold")),
					AbortOnActionFailure: command.Bool("abort-on-action-failure"),
				},
				Clock:           clock,
				Tracer:          tracer,
				AttemptObserver: engineMetrics.RecordAttempt,
			})

			aggregatorOpts := []workspace.Option{
				workspace.WithObservers(
					engineMetrics,
					notifications.NewDispatcher(eventBus, clock, logger),
				),
			}
			if tracer != nil {
				aggregatorOpts = append(aggregatorOpts, workspace.WithTracer(tracer))
			}

			aggregator := workspace.NewAggregator(persistence, e, logger, aggregatorOpts...)

			runner := NewRunner(persistence, aggregator, provider, clock, engineMetrics, int(command.Int("concurrency")), logger)

			if command.Bool("once") {
				_, err := runner.TickAll(ctx)

				return err
			}

			return runner.Run(ctx, command.Duration("tick-interval"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
