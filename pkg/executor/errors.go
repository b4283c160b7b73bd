// Package executor runs workflow graphs: fan-out, joins, conditional
// branching, retries, and the run timeout.
package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeExecution indicates a node exhausted its attempts and failed.
	ErrNodeExecution = errors.New("node execution failed")

	// ErrExecutionTimeout indicates the run exceeded its wall clock budget.
	ErrExecutionTimeout = errors.New("workflow execution timed out")

	// ErrWorkflowVersionMismatch indicates the workflow was structurally
	// edited after the execution was claimed; the run must not proceed
	// against a graph the execution did not pin.
	ErrWorkflowVersionMismatch = errors.New("workflow version does not match execution")
)

// NodeError identifies which node failed a run and after how many attempts.
type NodeError struct {
	ExecutionID string
	NodeID      string
	Attempts    int
	Err         error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s failed after %d attempt(s): %v", e.NodeID, e.Attempts, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

func (e *NodeError) Is(target error) bool {
	return target == ErrNodeExecution || errors.Is(e.Err, target)
}
