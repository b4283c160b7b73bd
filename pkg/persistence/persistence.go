// Package persistence provides the data storage abstraction for workflows,
// executions, and schedules.
package persistence

import (
	"context"
	"time"

	"github.com/fluxofin/fluxo/pkg/models"
)

// Persistence bundles the engine's repositories behind one boundary.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository
	ScheduleRepository() ScheduleRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions including their node graphs.
type WorkflowRepository interface {
	// Save inserts or replaces a workflow definition.
	Save(ctx context.Context, workflow *models.Workflow) error

	// GetByID returns a workflow or ErrWorkflowNotFound.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)

	// List returns all workflows.
	List(ctx context.Context) ([]*models.Workflow, error)

	// ListByStatus returns workflows in the given lifecycle status.
	ListByStatus(ctx context.Context, status models.WorkflowStatus) ([]*models.Workflow, error)

	// UpdateStatus moves a workflow to a new lifecycle status.
	UpdateStatus(ctx context.Context, id string, status models.WorkflowStatus) error

	// Delete removes a workflow, cascading to its executions and schedules.
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores run instances and their per-node traces.
type ExecutionRepository interface {
	// Claim atomically creates the execution in running state, failing with
	// ErrConcurrentExecution if the workflow already has a running execution.
	// The read-then-insert is a single transaction so two simultaneous
	// triggers cannot both observe "not running".
	Claim(ctx context.Context, execution *models.WorkflowExecution) error

	// GetByID returns an execution or ErrExecutionNotFound.
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)

	// ListByWorkflow returns a workflow's executions, newest first.
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)

	// HasRunning reports whether the workflow has an execution in running state.
	HasRunning(ctx context.Context, workflowID string) (bool, error)

	// SaveNodeExecution durably writes one node's outcome as it completes,
	// so a crash mid-run leaves a partial, inspectable trace.
	SaveNodeExecution(ctx context.Context, executionID string, nodeExecution *models.NodeExecution) error

	// Update replaces the execution record, typically at run completion.
	Update(ctx context.Context, execution *models.WorkflowExecution) error
}

// ScheduleRepository stores cron schedule entries for active workflows.
type ScheduleRepository interface {
	// Save inserts or replaces a schedule entry.
	Save(ctx context.Context, schedule *models.Schedule) error

	// ListDue returns active schedules whose next due time has passed.
	ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error)

	// GetByWorkflow returns the schedule for a workflow, or ErrScheduleNotFound.
	GetByWorkflow(ctx context.Context, workflowID string) (*models.Schedule, error)

	// DeleteByWorkflow removes a workflow's schedule entry if present.
	DeleteByWorkflow(ctx context.Context, workflowID string) error
}
