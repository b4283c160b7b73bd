package models

// NodeKind identifies the role a node plays in the workflow graph.
type NodeKind string

const (
	NodeKindSource      NodeKind = "source"      // Seeds the run payload from the ledger
	NodeKindDestination NodeKind = "destination" // Records the final payload, no outbound edges
	NodeKindCondition   NodeKind = "condition"   // Routes to exactly one outbound branch
	NodeKindAction      NodeKind = "action"      // Performs a financial operation
	NodeKindSchedule    NodeKind = "schedule"    // Trigger-anchor marker, pass-through
	NodeKindSplit       NodeKind = "split"       // Fans the payload out to every branch
	NodeKindMerge       NodeKind = "merge"       // Join barrier over all inbound branches
)

// NodeKinds lists every valid node kind.
var NodeKinds = []NodeKind{
	NodeKindSource,
	NodeKindDestination,
	NodeKindCondition,
	NodeKindAction,
	NodeKindSchedule,
	NodeKindSplit,
	NodeKindMerge,
}

// ValidNodeKind reports whether kind is one of the defined node kinds.
func ValidNodeKind(kind NodeKind) bool {
	for _, k := range NodeKinds {
		if k == kind {
			return true
		}
	}

	return false
}

// WorkflowNode is one typed step in a workflow graph. Edges are stored as
// ordered adjacency lists of node IDs; order matters for condition nodes,
// whose first outbound edge is the true branch.
type WorkflowNode struct {
	ID       string         `json:"id"       validate:"required"`
	Kind     NodeKind       `json:"kind"     validate:"required"`
	Name     string         `json:"name"     validate:"required,min=1"`
	Config   map[string]any `json:"config"`
	Inputs   []string       `json:"inputs"`  // Inbound node IDs
	Outputs  []string       `json:"outputs"` // Outbound node IDs
}

// NodeStatus defines the possible states of one node within a run.
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusSucceeded NodeStatus = "succeeded"
	NodeStatusSkipped   NodeStatus = "skipped"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusCancelled NodeStatus = "cancelled"
)

// Terminal reports whether the status is a final node state.
func (s NodeStatus) Terminal() bool {
	switch s {
	case NodeStatusSucceeded, NodeStatusSkipped, NodeStatusFailed, NodeStatusCancelled:
		return true
	default:
		return false
	}
}
