package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence"
	"github.com/fluxofin/fluxo/pkg/scheduler"
	"github.com/fluxofin/fluxo/pkg/validation"
)

// WorkflowService owns the workflow lifecycle. Structural edits are allowed
// only in draft and paused; activation gates on graph validation; archived
// workflows are immutable.
type WorkflowService struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	validator   *validation.Validator
	trigger     *scheduler.TriggerService
}

func NewWorkflowService(
	logger *slog.Logger,
	store persistence.Persistence,
	validator *validation.Validator,
	trigger *scheduler.TriggerService,
) *WorkflowService {
	return &WorkflowService{
		logger:      logger.With("module", "workflow_service"),
		persistence: store,
		validator:   validator,
		trigger:     trigger,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *WorkflowService) HealthCheck(ctx context.Context) (string, bool) {
	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create stores a new workflow in draft status at version 1.
func (s *WorkflowService) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	now := time.Now().UTC()
	workflow.ID = uuid.New().String()
	workflow.Status = models.WorkflowStatusDraft
	workflow.Version = 1
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if err := s.persistence.WorkflowRepository().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	s.logger.InfoContext(ctx, "Workflow created", "workflow_id", workflow.ID)

	return workflow, nil
}

// FetchByID retrieves a workflow by its ID.
func (s *WorkflowService) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return s.persistence.WorkflowRepository().GetByID(ctx, id)
}

// List retrieves all workflows, optionally filtered to one lifecycle status.
func (s *WorkflowService) List(ctx context.Context, status *models.WorkflowStatus) ([]*models.Workflow, error) {
	if status != nil {
		return s.persistence.WorkflowRepository().ListByStatus(ctx, *status)
	}

	return s.persistence.WorkflowRepository().List(ctx)
}

// Update applies a structural edit. Only draft and paused workflows may be
// edited; every accepted edit increments the version, so in-flight runs keep
// executing the graph they started with.
func (s *WorkflowService) Update(ctx context.Context, workflowID string, update *models.Workflow) (*models.Workflow, error) {
	existing, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !existing.Editable() {
		return nil, ErrWorkflowNotEditable
	}

	update.ID = existing.ID
	update.Status = existing.Status
	update.Version = existing.Version + 1
	update.CreatedAt = existing.CreatedAt
	update.UpdatedAt = time.Now().UTC()
	update.ExecutionCount = existing.ExecutionCount
	update.LastExecutedAt = existing.LastExecutedAt

	if err := s.persistence.WorkflowRepository().Save(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	s.logger.InfoContext(ctx, "Workflow updated",
		"workflow_id", update.ID, "version", update.Version)

	return update, nil
}

// Activate validates the workflow graph and, if it passes, moves the
// workflow to active status. A failed validation leaves the status untouched
// and returns every violation found, not just the first.
func (s *WorkflowService) Activate(ctx context.Context, workflowID string) (*models.Workflow, validation.Result, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, validation.Result{}, err
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return workflow, validation.Result{}, ErrWorkflowArchived
	}

	result := s.validator.Validate(workflow)
	if !result.Valid() {
		s.logger.WarnContext(ctx, "Workflow failed activation validation",
			"workflow_id", workflowID, "violations", len(result.Violations))

		return workflow, result, result.Err()
	}

	if err := s.transition(ctx, workflow, models.WorkflowStatusActive); err != nil {
		return workflow, result, err
	}

	return workflow, result, nil
}

// Pause moves an active workflow to paused, where it can be edited but not
// triggered.
func (s *WorkflowService) Pause(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status != models.WorkflowStatusActive {
		return nil, ErrInvalidTransition
	}

	if err := s.transition(ctx, workflow, models.WorkflowStatusPaused); err != nil {
		return nil, err
	}

	return workflow, nil
}

// Archive retires the workflow. Archived workflows keep their run history
// but accept no further edits, activations, or triggers.
func (s *WorkflowService) Archive(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, workflow, models.WorkflowStatusArchived); err != nil {
		return nil, err
	}

	return workflow, nil
}

// Delete removes a workflow and, via cascade, its executions and schedules.
// Active workflows must be paused or archived first.
func (s *WorkflowService) Delete(ctx context.Context, workflowID string) error {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if workflow.Status == models.WorkflowStatusActive {
		return ErrInvalidTransition
	}

	if err := s.persistence.WorkflowRepository().Delete(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	s.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", workflowID)

	return nil
}

// Run triggers a manual execution of the workflow.
func (s *WorkflowService) Run(ctx context.Context, workflowID string, details map[string]any, input models.Payload) (*models.WorkflowExecution, error) {
	return s.trigger.Trigger(ctx, workflowID, models.TriggerKindManual, details, input)
}

// History returns the workflow's executions, newest first.
func (s *WorkflowService) History(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	if _, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID); err != nil {
		return nil, err
	}

	return s.persistence.ExecutionRepository().ListByWorkflow(ctx, workflowID)
}

// FetchExecution returns one run with its full per-node trace.
func (s *WorkflowService) FetchExecution(ctx context.Context, executionID string) (*models.WorkflowExecution, error) {
	return s.persistence.ExecutionRepository().GetByID(ctx, executionID)
}

// transition moves the workflow to the new status and reconciles its
// schedule entry with the new lifecycle state.
func (s *WorkflowService) transition(ctx context.Context, workflow *models.Workflow, status models.WorkflowStatus) error {
	if err := s.persistence.WorkflowRepository().UpdateStatus(ctx, workflow.ID, status); err != nil {
		return err
	}

	workflow.Status = status
	workflow.UpdatedAt = time.Now().UTC()

	if err := scheduler.SyncSchedule(ctx, s.persistence.ScheduleRepository(), workflow); err != nil {
		s.logger.ErrorContext(ctx, "Failed to sync schedule entry",
			"workflow_id", workflow.ID, "error", err)

		return err
	}

	s.logger.InfoContext(ctx, "Workflow status changed",
		"workflow_id", workflow.ID, "status", status)

	return nil
}
