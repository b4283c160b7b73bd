package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fluxofin/fluxo/pkg/eventbus"
	"github.com/fluxofin/fluxo/pkg/events"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
)

// pendingTrigger is a trigger parked behind a running execution under the
// queue overlap policy.
type pendingTrigger struct {
	kind    models.TriggerKind
	details map[string]any
	input   models.Payload
}

// TriggerService is the single entry point for starting workflow runs. It
// claims the execution slot before publishing, so by the time a worker sees
// the trigger event the run already holds single-flight exclusivity.
type TriggerService struct {
	logger        *slog.Logger
	workflows     persistence.WorkflowRepository
	executions    persistence.ExecutionRepository
	eventBus      eventbus.EventPublisher
	overlapPolicy models.OverlapPolicy
	queueDepth    int

	mu      sync.Mutex
	pending map[string][]pendingTrigger
}

func NewTriggerService(
	logger *slog.Logger,
	store persistence.Persistence,
	eventBus eventbus.EventPublisher,
	overlapPolicy models.OverlapPolicy,
	queueDepth int,
) *TriggerService {
	return &TriggerService{
		logger:        logger.With("module", "trigger"),
		workflows:     store.WorkflowRepository(),
		executions:    store.ExecutionRepository(),
		eventBus:      eventBus,
		overlapPolicy: overlapPolicy,
		queueDepth:    queueDepth,
		pending:       make(map[string][]pendingTrigger),
	}
}

// Trigger starts a run of the workflow. It returns the claimed execution, or
// (nil, nil) when the trigger was parked under the queue overlap policy.
//
// Overlap conflicts surface as persistence.ErrConcurrentExecution under the
// reject policy; the conflict never creates a second execution record.
func (s *TriggerService) Trigger(
	ctx context.Context,
	workflowID string,
	kind models.TriggerKind,
	details map[string]any,
	input models.Payload,
) (*models.WorkflowExecution, error) {
	workflow, err := s.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status != models.WorkflowStatusActive {
		return nil, ErrWorkflowNotActive
	}

	execution := &models.WorkflowExecution{
		ID:              uuid.New().String(),
		WorkflowID:      workflow.ID,
		WorkflowVersion: workflow.Version,
		Status:          models.ExecutionStatusRunning,
		TriggeredBy:     kind,
		TriggerDetails:  details,
		InputData:       input,
		StartedAt:       time.Now().UTC(),
		NodeExecutions:  make(map[string]*models.NodeExecution),
	}

	if err := s.executions.Claim(ctx, execution); err != nil {
		if persistence.IsConcurrentExecution(err) && s.overlapPolicy == models.OverlapPolicyQueue {
			return nil, s.enqueue(ctx, workflowID, kind, details, input)
		}

		return nil, err
	}

	event := events.WorkflowTriggered{
		BaseEvent:      events.NewBaseEvent(events.WorkflowTriggeredEvent, workflow.ID),
		ExecutionID:    execution.ID,
		TriggeredBy:    kind,
		TriggerDetails: details,
		InputData:      input,
	}

	if err := s.eventBus.Publish(ctx, workflow.ID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish trigger event",
			"workflow_id", workflow.ID, "execution_id", execution.ID, "error", err)

		// No worker will ever see this execution; finish it so the claimed
		// single-flight slot is released instead of wedged in running.
		execution.Finish(models.ExecutionStatusFailed, "trigger event publish failed: "+err.Error(), time.Now().UTC())

		if updateErr := s.executions.Update(ctx, execution); updateErr != nil {
			s.logger.ErrorContext(ctx, "Failed to release orphaned execution",
				"workflow_id", workflow.ID, "execution_id", execution.ID, "error", updateErr)
		}

		return nil, err
	}

	s.logger.InfoContext(ctx, "Workflow triggered",
		"workflow_id", workflow.ID, "execution_id", execution.ID, "kind", kind)

	return execution, nil
}

// ExecutionFinished releases the workflow's single-flight slot from this
// service's point of view: if a trigger is parked behind the finished run it
// fires now, FIFO.
func (s *TriggerService) ExecutionFinished(ctx context.Context, workflowID string) {
	s.mu.Lock()

	queue := s.pending[workflowID]
	if len(queue) == 0 {
		s.mu.Unlock()

		return
	}

	next := queue[0]
	s.pending[workflowID] = queue[1:]
	s.mu.Unlock()

	if _, err := s.Trigger(ctx, workflowID, next.kind, next.details, next.input); err != nil {
		s.logger.ErrorContext(ctx, "Failed to fire queued trigger",
			"workflow_id", workflowID, "error", err)
	}
}

// AttachDrain subscribes the service to terminal run events so queued
// triggers fire as soon as the running execution finishes.
func (s *TriggerService) AttachDrain(bus eventbus.EventSubscriber) error {
	drain := func(ctx context.Context, event any) error {
		switch e := event.(type) {
		case *events.ExecutionCompleted:
			s.ExecutionFinished(ctx, e.WorkflowID)
		case *events.ExecutionFailed:
			s.ExecutionFinished(ctx, e.WorkflowID)
		case *events.ExecutionCancelled:
			s.ExecutionFinished(ctx, e.WorkflowID)
		}

		return nil
	}

	for _, eventType := range []events.EventType{
		events.ExecutionCompletedEvent,
		events.ExecutionFailedEvent,
		events.ExecutionCancelledEvent,
	} {
		if err := bus.Handle(eventType, drain); err != nil {
			return err
		}
	}

	return nil
}

// PendingCount reports how many triggers are parked for the workflow.
func (s *TriggerService) PendingCount(workflowID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending[workflowID])
}

func (s *TriggerService) enqueue(ctx context.Context, workflowID string, kind models.TriggerKind, details map[string]any, input models.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending[workflowID]) >= s.queueDepth {
		return ErrTriggerQueueFull
	}

	s.pending[workflowID] = append(s.pending[workflowID], pendingTrigger{
		kind:    kind,
		details: details,
		input:   input,
	})

	s.logger.InfoContext(ctx, "Trigger queued behind running execution",
		"workflow_id", workflowID, "queue_length", len(s.pending[workflowID]))

	return nil
}
