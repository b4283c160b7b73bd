// Package protocol defines the contracts between the executor and the typed
// node implementations.
package protocol

import (
	"context"

	"github.com/fluxofin/fluxo/pkg/models"
)

// ExecutionContext carries run-scoped identity into node execution. Nodes use
// it for idempotency keys and back-references, never for control flow.
type ExecutionContext struct {
	ExecutionID string
	WorkflowID  string
	Variables   map[string]any
}

// Result is the outcome of one node execution. Branch is set only by
// condition nodes: true selects the node's first outbound edge, false the
// second.
type Result struct {
	Output models.Payload
	Branch *bool
}

// Node executes one step of a run against the payload flowing in on its
// inbound edge.
type Node interface {
	ID() string
	Kind() models.NodeKind
	Execute(ctx context.Context, ec ExecutionContext, input models.Payload) (*Result, error)
}

// BranchInput is one resolved inbound branch arriving at a join node, in the
// order of the node's declared inputs.
type BranchInput struct {
	SourceNodeID string
	Payload      models.Payload
}

// JoinNode is implemented by nodes that combine multiple inbound branches.
// The executor calls ExecuteJoin instead of Execute once every inbound edge
// has resolved; only successful branches appear in inputs.
type JoinNode interface {
	Node
	ExecuteJoin(ctx context.Context, ec ExecutionContext, inputs []BranchInput) (*Result, error)
}

// NodeFactory creates node instances and describes the node type.
type NodeFactory interface {
	// Create creates a new node instance with the given configuration
	Create(ctx context.Context, id string, config map[string]any) (Node, error)

	// Kind returns the node kind this factory builds
	Kind() models.NodeKind

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() map[string]any
}
