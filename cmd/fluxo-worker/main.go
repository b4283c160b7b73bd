package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxofin/fluxo/pkg/cmd"
	"github.com/fluxofin/fluxo/pkg/config"
	"github.com/fluxofin/fluxo/pkg/executor"
	"github.com/fluxofin/fluxo/pkg/log"
	"github.com/fluxofin/fluxo/pkg/otelhelper"
	"github.com/fluxofin/fluxo/pkg/recorder"
	"github.com/fluxofin/fluxo/pkg/registry"
)

func main() {
	command := &cli.Command{
		Name:                  "fluxo-worker",
		Usage:                 "Start a worker to execute triggered workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("worker").With("worker_id", workerID)

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Initializing Fluxo Worker")

			store, err := cmd.NewPersistence(ctx, logger, cfg.PersistenceURL)
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(cfg.EventBus, logger, "fluxo-worker")
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			book, err := cmd.NewLedger(ctx, logger, cfg.PersistenceURL)
			if err != nil {
				return err
			}

			reg := registry.NewRegistry(logger)
			reg.RegisterDefaultNodes(book)

			var tracer trace.Tracer
			if cfg.OTELEnabled {
				tracer, err = otelhelper.NewTracer(ctx, "fluxo-worker")
				if err != nil {
					return err
				}
			}

			rec := recorder.NewRecorder(logger, store.ExecutionRepository(), eventBus)
			exec := executor.NewExecutor(logger, reg, rec, tracer, cfg.RetryBackoffBase)

			worker := NewWorker(workerID, logger, store, eventBus, exec)

			return worker.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
