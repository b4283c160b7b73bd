// Package recorder persists run progress and publishes the matching
// lifecycle events. It sits between the executor and the outside world: the
// store is the system of record, the event stream is best effort.
package recorder

import (
	"context"
	"log/slog"

	"github.com/fluxofin/fluxo/pkg/eventbus"
	"github.com/fluxofin/fluxo/pkg/events"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
)

type Recorder struct {
	logger     *slog.Logger
	executions persistence.ExecutionRepository
	eventBus   eventbus.EventPublisher
}

func NewRecorder(logger *slog.Logger, executions persistence.ExecutionRepository, eventBus eventbus.EventPublisher) *Recorder {
	return &Recorder{
		logger:     logger.With("module", "recorder"),
		executions: executions,
		eventBus:   eventBus,
	}
}

// RunStarted writes the execution snapshot and announces the run. The
// execution row already exists: the trigger path claimed it, so this is an
// update, not an insert.
func (r *Recorder) RunStarted(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution) error {
	if err := r.executions.Update(ctx, execution); err != nil {
		return err
	}

	event := events.ExecutionStarted{
		BaseEvent:       events.NewBaseEvent(events.ExecutionStartedEvent, workflow.ID),
		ExecutionID:     execution.ID,
		WorkflowName:    workflow.Name,
		WorkflowVersion: workflow.Version,
		TriggeredBy:     execution.TriggeredBy,
	}

	r.publish(ctx, execution, event)

	return nil
}

// NodeFinished durably writes one node outcome the moment it lands, so a
// crash mid-run leaves a partial, inspectable trace.
func (r *Recorder) NodeFinished(ctx context.Context, execution *models.WorkflowExecution, nodeExecution *models.NodeExecution) error {
	if err := r.executions.SaveNodeExecution(ctx, execution.ID, nodeExecution); err != nil {
		return err
	}

	var durationMs int64
	if nodeExecution.StartedAt != nil && nodeExecution.CompletedAt != nil {
		durationMs = nodeExecution.CompletedAt.Sub(*nodeExecution.StartedAt).Milliseconds()
	}

	event := events.NodeCompletion{
		BaseEvent:    events.NewBaseEvent(events.NodeCompletionEvent, execution.WorkflowID),
		ExecutionID:  execution.ID,
		NodeID:       nodeExecution.NodeID,
		Status:       nodeExecution.Status,
		Output:       nodeExecution.Output,
		ErrorMessage: nodeExecution.ErrorMessage,
		Attempts:     nodeExecution.Attempts,
		DurationMs:   durationMs,
	}

	r.publish(ctx, execution, event)

	return nil
}

// RunFinished writes the terminal execution record and publishes the event
// matching its status.
func (r *Recorder) RunFinished(ctx context.Context, execution *models.WorkflowExecution) error {
	if err := r.executions.Update(ctx, execution); err != nil {
		return err
	}

	r.publish(ctx, execution, terminalEvent(execution))

	return nil
}

func terminalEvent(execution *models.WorkflowExecution) eventbus.Event {
	switch execution.Status {
	case models.ExecutionStatusFailed:
		return events.ExecutionFailed{
			BaseEvent:     events.NewBaseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
			ExecutionID:   execution.ID,
			DurationMs:    execution.TotalDurationMs,
			NodesExecuted: len(execution.NodeExecutions),
			Error:         execution.ErrorMessage,
			FailedNodeID:  failedNodeID(execution),
		}
	case models.ExecutionStatusCancelled:
		return events.ExecutionCancelled{
			BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution.WorkflowID),
			ExecutionID: execution.ID,
			DurationMs:  execution.TotalDurationMs,
			Reason:      execution.ErrorMessage,
		}
	default:
		return events.ExecutionCompleted{
			BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, execution.WorkflowID),
			ExecutionID:   execution.ID,
			DurationMs:    execution.TotalDurationMs,
			NodesExecuted: len(execution.NodeExecutions),
			OutputData:    execution.OutputData,
		}
	}
}

func failedNodeID(execution *models.WorkflowExecution) string {
	for nodeID, nodeExecution := range execution.NodeExecutions {
		if nodeExecution.Status == models.NodeStatusFailed {
			return nodeID
		}
	}

	return ""
}

// publish is best effort: a dropped event never fails the run, the stored
// execution record remains authoritative.
func (r *Recorder) publish(ctx context.Context, execution *models.WorkflowExecution, event eventbus.Event) {
	if err := r.eventBus.Publish(ctx, execution.WorkflowID, event); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(),
			"execution_id", execution.ID,
			"error", err)
	}
}
