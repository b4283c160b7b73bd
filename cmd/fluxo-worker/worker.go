package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fluxofin/fluxo/pkg/eventbus"
	"github.com/fluxofin/fluxo/pkg/events"
	"github.com/fluxofin/fluxo/pkg/executor"
	"github.com/fluxofin/fluxo/pkg/persistence"
)

// Worker consumes trigger events and runs the executions behind them. The
// trigger path has already claimed each execution, so there is no contention
// between workers beyond normal consumer-group partitioning.
type Worker struct {
	id       string
	logger   *slog.Logger
	store    persistence.Persistence
	eventBus eventbus.EventBus
	executor *executor.Executor
}

func NewWorker(
	id string,
	logger *slog.Logger,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	exec *executor.Executor,
) *Worker {
	return &Worker{
		id:       id,
		logger:   logger,
		store:    store,
		eventBus: eventBus,
		executor: exec,
	}
}

// Start subscribes to trigger events and blocks until SIGINT/SIGTERM.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.eventBus.Handle(events.WorkflowTriggeredEvent, w.handleWorkflowTriggered); err != nil {
		return err
	}

	if err := w.eventBus.Subscribe(ctx); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		w.logger.InfoContext(ctx, "Shutting down worker")
	case <-ctx.Done():
	}

	return nil
}

func (w *Worker) handleWorkflowTriggered(ctx context.Context, event any) error {
	triggered, ok := event.(*events.WorkflowTriggered)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event payload for workflow trigger")

		return nil
	}

	logger := w.logger.With(
		"workflow_id", triggered.WorkflowID,
		"execution_id", triggered.ExecutionID,
	)

	logger.InfoContext(ctx, "Processing triggered workflow", "kind", triggered.TriggeredBy)

	workflow, err := w.store.WorkflowRepository().GetByID(ctx, triggered.WorkflowID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load workflow", "error", err)

		return err
	}

	execution, err := w.store.ExecutionRepository().GetByID(ctx, triggered.ExecutionID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load claimed execution", "error", err)

		return err
	}

	// A run failure is a recorded outcome, not a message failure. Returning
	// the error here would nack and redeliver an execution that already
	// reached a terminal state.
	if _, err := w.executor.Run(ctx, workflow, execution); err != nil {
		logger.ErrorContext(ctx, "Run finished with failure", "error", err)
	}

	return nil
}
