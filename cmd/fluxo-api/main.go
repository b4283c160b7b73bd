package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/fluxofin/fluxo/pkg/cmd"
	"github.com/fluxofin/fluxo/pkg/config"
	"github.com/fluxofin/fluxo/pkg/log"
	"github.com/fluxofin/fluxo/pkg/registry"
)

func main() {
	command := &cli.Command{
		Name:                  "fluxo-api",
		Usage:                 "Create and manage workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
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

			logger := log.WithModule("api")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Initializing Fluxo API", "port", cfg.HTTPPort)

			store, err := cmd.NewPersistence(ctx, logger, cfg.PersistenceURL)
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(cfg.EventBus, logger, "fluxo-api")
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

			api := NewAPI(logger, cfg, store, eventBus, reg)

			return api.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
