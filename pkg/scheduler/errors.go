// Package scheduler owns the trigger path: it claims the execution slot,
// publishes the trigger event, and drives scheduled and queue-based triggers.
package scheduler

import "errors"

var (
	// ErrWorkflowNotActive indicates a trigger arrived for a workflow that is
	// not in active status.
	ErrWorkflowNotActive = errors.New("workflow is not active")

	// ErrTriggerQueueFull indicates the overlap queue for the workflow has
	// reached its bounded depth.
	ErrTriggerQueueFull = errors.New("trigger queue is full")
)
