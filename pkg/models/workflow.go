// Package models defines the core domain models for financial workflow automation.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, not executable
	WorkflowStatusActive   WorkflowStatus = "active"   // Validated, executable
	WorkflowStatusPaused   WorkflowStatus = "paused"   // Editable, not executable
	WorkflowStatusArchived WorkflowStatus = "archived" // Historical, immutable
)

// TriggerKind identifies how a workflow run is started.
type TriggerKind string

const (
	TriggerKindManual   TriggerKind = "manual"
	TriggerKindSchedule TriggerKind = "schedule"
	TriggerKindEvent    TriggerKind = "event"
)

// OverlapPolicy decides what happens when a workflow is triggered while a run
// of the same workflow is still in flight.
type OverlapPolicy string

const (
	OverlapPolicyReject OverlapPolicy = "reject" // Default: refuse the second trigger
	OverlapPolicyQueue  OverlapPolicy = "queue"  // FIFO-queue the trigger, bounded depth
)

// TriggerDescriptor declares how a workflow starts: manually, on a cron
// schedule, or on an external event such as an imported transaction.
type TriggerDescriptor struct {
	Kind   TriggerKind    `json:"kind"             validate:"required,oneof=manual schedule event"`
	Config map[string]any `json:"config,omitempty"` // Cron expression, event type, etc.
}

// Workflow is a named, versioned automation definition over a node graph.
// Only draft and paused workflows may be structurally edited; edits increment
// Version. Active workflows may only be paused or archived.
type Workflow struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"            validate:"required,min=3"`
	Description    string            `json:"description"`
	OwnerID        string            `json:"owner_id"        validate:"required"`
	Status         WorkflowStatus    `json:"status"          validate:"required"`
	Trigger        TriggerDescriptor `json:"trigger"`
	MaxRetries     int               `json:"max_retries"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	Version        int               `json:"version"`
	Nodes          []*WorkflowNode   `json:"nodes"`
	Variables      map[string]any    `json:"variables,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	LastExecutedAt *time.Time        `json:"last_executed_at,omitempty"`
	ExecutionCount int               `json:"execution_count"`
}

// Editable reports whether the workflow may be structurally modified.
func (w *Workflow) Editable() bool {
	return w.Status == WorkflowStatusDraft || w.Status == WorkflowStatusPaused
}

// Timeout returns the per-run wall clock budget.
func (w *Workflow) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}
