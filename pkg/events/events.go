// Package events defines event types for workflow run lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/fluxofin/fluxo/pkg/models"
)

type EventType string

// Topic is the single event stream carrying trigger and run lifecycle events.
const Topic = "fluxo.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// WorkflowTriggeredEvent asks a worker to start a run. The trigger path
	// has already claimed the execution slot, so the worker only executes.
	WorkflowTriggeredEvent EventType = "workflow.triggered"

	// Run lifecycle events, emitted by the recorder as the run progresses.
	ExecutionStartedEvent   EventType = "execution.started"
	NodeCompletionEvent     EventType = "execution.node.completion"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

// WorkflowTriggered carries an already-claimed execution to a worker.
type WorkflowTriggered struct {
	BaseEvent

	ExecutionID    string             `json:"execution_id"`
	TriggeredBy    models.TriggerKind `json:"triggered_by"`
	TriggerDetails map[string]any     `json:"trigger_details,omitempty"`
	InputData      models.Payload     `json:"input_data,omitempty"`
}

func (w WorkflowTriggered) GetType() EventType {
	return WorkflowTriggeredEvent
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID     string             `json:"execution_id"`
	WorkflowName    string             `json:"workflow_name"`
	WorkflowVersion int                `json:"workflow_version"`
	TriggeredBy     models.TriggerKind `json:"triggered_by"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

// NodeCompletion records one node reaching a terminal status within a run.
type NodeCompletion struct {
	BaseEvent

	ExecutionID  string            `json:"execution_id"`
	NodeID       string            `json:"node_id"`
	Status       models.NodeStatus `json:"status"`
	Output       models.Payload    `json:"output,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Attempts     int               `json:"attempts"`
	DurationMs   int64             `json:"duration_ms"`
}

func (n NodeCompletion) GetType() EventType {
	return NodeCompletionEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string         `json:"execution_id"`
	DurationMs    int64          `json:"duration_ms"`
	NodesExecuted int            `json:"nodes_executed"`
	OutputData    models.Payload `json:"output_data,omitempty"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID   string `json:"execution_id"`
	DurationMs    int64  `json:"duration_ms"`
	NodesExecuted int    `json:"nodes_executed"`
	Error         string `json:"error"`
	FailedNodeID  string `json:"failed_node_id,omitempty"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	DurationMs  int64  `json:"duration_ms"`
	Reason      string `json:"reason,omitempty"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}
