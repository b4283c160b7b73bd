// Package main provides the Fluxo scheduler: a single poller that fires due
// cron schedules, plus an optional Redis queue source for external triggers.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	redis "github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"

	"github.com/fluxofin/fluxo/pkg/cmd"
	"github.com/fluxofin/fluxo/pkg/config"
	"github.com/fluxofin/fluxo/pkg/log"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/scheduler"
)

func main() {
	command := &cli.Command{
		Name:                  "fluxo-scheduler",
		Usage:                 "Fire schedule and queue triggers for active workflows",
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

			logger := log.WithModule("scheduler")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Initializing Fluxo Scheduler", "poll_interval", cfg.PollInterval)

			store, err := cmd.NewPersistence(ctx, logger, cfg.PersistenceURL)
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(cfg.EventBus, logger, "fluxo-scheduler")
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			trigger := scheduler.NewTriggerService(logger, store, eventBus, cfg.OverlapPolicy, cfg.TriggerQueueDepth)

			if cfg.OverlapPolicy == models.OverlapPolicyQueue {
				if err := trigger.AttachDrain(eventBus); err != nil {
					return err
				}

				if err := eventBus.Subscribe(ctx); err != nil {
					return err
				}
			}

			poller := scheduler.NewPoller(logger, store.ScheduleRepository(), trigger, cfg.PollInterval)
			if err := poller.Start(ctx); err != nil {
				return err
			}

			defer func() {
				if err := poller.Stop(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to stop poller", "error", err)
				}
			}()

			if cfg.QueueName != "" {
				queueSource, err := scheduler.NewQueueSource(
					logger,
					&redis.Options{Addr: cfg.RedisAddr},
					cfg.QueueName,
					trigger,
				)
				if err != nil {
					return err
				}

				if err := queueSource.Start(ctx); err != nil {
					return err
				}

				defer func() {
					if err := queueSource.Stop(ctx); err != nil {
						logger.ErrorContext(ctx, "Failed to stop queue source", "error", err)
					}
				}()
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-sigChan:
				logger.InfoContext(ctx, "Shutting down scheduler")
			case <-ctx.Done():
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
