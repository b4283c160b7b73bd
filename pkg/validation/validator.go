// Package validation performs the static graph checks a workflow must pass
// before it may be activated or executed.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fluxofin/fluxo/pkg/models"
)

// ErrValidationFailed indicates a workflow graph failed activation checks.
var ErrValidationFailed = errors.New("workflow validation failed")

// ViolationKind classifies a single validation failure.
type ViolationKind string

const (
	ViolationTooManyNodes    ViolationKind = "too_many_nodes"
	ViolationCyclicGraph     ViolationKind = "cyclic_graph"
	ViolationUnreachableNode ViolationKind = "unreachable_node"
	ViolationDeadEnd         ViolationKind = "dead_end"
	ViolationInvalidTopology ViolationKind = "invalid_topology"
)

// Violation is one rule failure, tied to a node where applicable.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	NodeID  string        `json:"node_id,omitempty"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	if v.NodeID == "" {
		return fmt.Sprintf("%s: %s", v.Kind, v.Message)
	}

	return fmt.Sprintf("%s: node %s: %s", v.Kind, v.NodeID, v.Message)
}

// Result aggregates every violation found, not just the first.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Valid reports whether no violations were found.
func (r Result) Valid() bool { return len(r.Violations) == 0 }

// Err returns an error wrapping ErrValidationFailed listing every violation,
// or nil when the graph is valid.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}

	messages := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		messages[i] = v.String()
	}

	return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(messages, "; "))
}

func (r *Result) add(kind ViolationKind, nodeID, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{
		Kind:    kind,
		NodeID:  nodeID,
		Message: fmt.Sprintf(format, args...),
	})
}

// Validator runs static checks over a workflow's node graph.
type Validator struct {
	maxNodes int
}

// NewValidator creates a validator with the configured node ceiling.
func NewValidator(maxNodes int) *Validator {
	return &Validator{maxNodes: maxNodes}
}

// Validate checks the workflow's graph and reports every violation found:
// node ceiling, acyclicity, reachability from a source, dead ends, and
// per-kind cardinality rules.
func (v *Validator) Validate(workflow *models.Workflow) Result {
	var result Result

	nodes := workflow.Nodes

	if len(nodes) > v.maxNodes {
		result.add(ViolationTooManyNodes, "",
			"workflow has %d nodes, ceiling is %d", len(nodes), v.maxNodes)
	}

	index := make(map[string]int, len(nodes))
	for i, node := range nodes {
		if _, dup := index[node.ID]; dup {
			result.add(ViolationInvalidTopology, node.ID, "duplicate node ID")

			continue
		}

		index[node.ID] = i
	}

	// Adjacency from the outbound lists; dangling references are topology
	// violations rather than panics so every problem surfaces at once.
	out := make([][]int, len(nodes))
	in := make([][]int, len(nodes))

	for i, node := range nodes {
		for _, targetID := range node.Outputs {
			j, ok := index[targetID]
			if !ok {
				result.add(ViolationInvalidTopology, node.ID,
					"outbound edge references nonexistent node %q", targetID)

				continue
			}

			out[i] = append(out[i], j)
			in[j] = append(in[j], i)
		}
	}

	if hasCycle(out) {
		result.add(ViolationCyclicGraph, "", "graph contains a directed cycle")
	}

	v.checkReachability(nodes, out, &result)

	for i, node := range nodes {
		v.checkNode(node, len(in[i]), len(out[i]), &result)
	}

	return result
}

// checkReachability flags every node not reachable from at least one source.
func (v *Validator) checkReachability(nodes []*models.WorkflowNode, out [][]int, result *Result) {
	reached := make([]bool, len(nodes))

	var stack []int

	for i, node := range nodes {
		if node.Kind == models.NodeKindSource {
			stack = append(stack, i)
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if reached[i] {
			continue
		}

		reached[i] = true
		stack = append(stack, out[i]...)
	}

	for i, node := range nodes {
		if !reached[i] {
			result.add(ViolationUnreachableNode, node.ID,
				"node is not reachable from any source node")
		}
	}
}

// checkNode enforces per-kind cardinality plus the dead-end rule.
func (v *Validator) checkNode(node *models.WorkflowNode, in, out int, result *Result) {
	if node.Kind != models.NodeKindDestination && out == 0 {
		result.add(ViolationDeadEnd, node.ID,
			"%s node has no outbound edge", node.Kind)
	}

	switch node.Kind {
	case models.NodeKindSource:
		if in != 0 {
			result.add(ViolationInvalidTopology, node.ID,
				"source node must have no inbound edges, has %d", in)
		}
	case models.NodeKindDestination:
		if out != 0 {
			result.add(ViolationInvalidTopology, node.ID,
				"destination node must have no outbound edges, has %d", out)
		}
	case models.NodeKindSplit:
		if in != 1 {
			result.add(ViolationInvalidTopology, node.ID,
				"split node must have exactly one inbound edge, has %d", in)
		}

		if out < 2 {
			result.add(ViolationInvalidTopology, node.ID,
				"split node must have at least two outbound edges, has %d", out)
		}
	case models.NodeKindMerge:
		if in < 2 {
			result.add(ViolationInvalidTopology, node.ID,
				"merge node must have at least two inbound edges, has %d", in)
		}

		if out != 1 {
			result.add(ViolationInvalidTopology, node.ID,
				"merge node must have exactly one outbound edge, has %d", out)
		}
	case models.NodeKindCondition:
		if out > 2 {
			result.add(ViolationInvalidTopology, node.ID,
				"condition node routes to at most two branches, has %d", out)
		}
	case models.NodeKindSchedule:
		// Schedule nodes are trigger-anchor markers from imported templates;
		// they must not appear mid-graph performing work.
		if in != 0 {
			result.add(ViolationInvalidTopology, node.ID,
				"schedule node must not have inbound edges, has %d", in)
		}
	case models.NodeKindAction:
	}
}

// hasCycle runs Kahn's algorithm over the adjacency lists.
func hasCycle(out [][]int) bool {
	n := len(out)
	indegree := make([]int, n)

	for _, targets := range out {
		for _, j := range targets {
			indegree[j]++
		}
	}

	var queue []int

	for i := range n {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	visited := 0

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		visited++

		for _, j := range out[i] {
			indegree[j]--
			if indegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}

	return visited != n
}
