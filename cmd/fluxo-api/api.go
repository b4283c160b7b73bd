// Package main provides the Fluxo API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/fluxofin/fluxo/pkg/config"
	"github.com/fluxofin/fluxo/pkg/eventbus"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
	"github.com/fluxofin/fluxo/pkg/registry"
	"github.com/fluxofin/fluxo/pkg/scheduler"
	"github.com/fluxofin/fluxo/pkg/services"
	"github.com/fluxofin/fluxo/pkg/validation"
	"github.com/fluxofin/fluxo/pkg/web"
)

type API struct {
	logger   *slog.Logger
	cfg      config.Config
	store    persistence.Persistence
	eventBus eventbus.EventBus
	registry *registry.Registry
}

func NewAPI(
	logger *slog.Logger,
	cfg config.Config,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	reg *registry.Registry,
) *API {
	return &API{
		logger:   logger,
		cfg:      cfg,
		store:    store,
		eventBus: eventBus,
		registry: reg,
	}
}

func (a *API) Start(ctx context.Context) error {
	trigger := scheduler.NewTriggerService(a.logger, a.store, a.eventBus, a.cfg.OverlapPolicy, a.cfg.TriggerQueueDepth)

	// Under the queue policy, parked manual triggers fire when the running
	// execution reaches a terminal event.
	if a.cfg.OverlapPolicy == models.OverlapPolicyQueue {
		if err := trigger.AttachDrain(a.eventBus); err != nil {
			return err
		}

		if err := a.eventBus.Subscribe(ctx); err != nil {
			return err
		}
	}

	workflowService := services.NewWorkflowService(
		a.logger,
		a.store,
		validation.NewValidator(a.cfg.MaxWorkflowNodes),
		trigger,
	)

	handlers := web.NewAPIHandlers(workflowService, validator.New(), a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	handlers.Register(app)

	return app.Listen(":" + strconv.Itoa(a.cfg.HTTPPort))
}
