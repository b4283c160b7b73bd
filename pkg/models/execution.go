package models

import "time"

// Payload is the data flowing along graph edges during a run.
type Payload map[string]any

// Clone returns a shallow copy so split branches can diverge independently.
func (p Payload) Clone() Payload {
	if p == nil {
		return Payload{}
	}

	clone := make(Payload, len(p))
	for k, v := range p {
		clone[k] = v
	}

	return clone
}

// ExecutionStatus defines the possible states of a workflow run.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is a final run state.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// NodeExecution records one node's outcome within a run. Entries exist only
// for nodes actually reached; unreached branches are absent, not failed.
type NodeExecution struct {
	NodeID       string     `json:"node_id"`
	Status       NodeStatus `json:"status"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Output       Payload    `json:"output,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Attempts     int        `json:"attempts,omitempty"`
}

// WorkflowExecution is one run instance of a workflow against a pinned
// graph version. CompletedAt is set if and only if Status is terminal.
type WorkflowExecution struct {
	ID              string                    `json:"id"`
	WorkflowID      string                    `json:"workflow_id"`
	WorkflowVersion int                       `json:"workflow_version"`
	Status          ExecutionStatus           `json:"status"`
	TriggeredBy     TriggerKind               `json:"triggered_by"`
	TriggerDetails  map[string]any            `json:"trigger_details,omitempty"`
	InputData       Payload                   `json:"input_data,omitempty"`
	OutputData      Payload                   `json:"output_data,omitempty"`
	NodeExecutions  map[string]*NodeExecution `json:"node_executions"`
	StartedAt       time.Time                 `json:"started_at"`
	CompletedAt     *time.Time                `json:"completed_at,omitempty"`
	TotalDurationMs int64                     `json:"total_duration_ms,omitempty"`
	ErrorMessage    string                    `json:"error_message,omitempty"`
}

// Finish moves the run to a terminal status and stamps completion time and
// total duration.
func (e *WorkflowExecution) Finish(status ExecutionStatus, errorMessage string, at time.Time) {
	e.Status = status
	e.ErrorMessage = errorMessage
	e.CompletedAt = &at
	e.TotalDurationMs = at.Sub(e.StartedAt).Milliseconds()
}
