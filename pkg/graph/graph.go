// Package graph builds an immutable, arena-backed view of a workflow's node
// graph and answers structural queries over it.
package graph

import (
	"errors"
	"fmt"

	"github.com/fluxofin/fluxo/pkg/models"
)

// ErrMalformedGraph indicates a structurally impossible topology. It is
// construction-time and fatal to the edit; a malformed graph never reaches
// execution.
var ErrMalformedGraph = errors.New("malformed workflow graph")

// MalformedGraphError carries the offending node and reason.
type MalformedGraphError struct {
	NodeID string
	Reason string
}

func (e *MalformedGraphError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("malformed workflow graph: %s", e.Reason)
	}

	return fmt.Sprintf("malformed workflow graph: node %s: %s", e.NodeID, e.Reason)
}

func (e *MalformedGraphError) Unwrap() error { return ErrMalformedGraph }

func malformed(nodeID, format string, args ...any) error {
	return &MalformedGraphError{NodeID: nodeID, Reason: fmt.Sprintf(format, args...)}
}

// Node is one arena entry. Edges are stored as arena indices so the graph
// owns all node memory and holds no cyclic references.
type Node struct {
	ID     string
	Kind   models.NodeKind
	Name   string
	Config models.NodeConfig
	In     []int
	Out    []int
}

// Graph is the validated-once, read-only structural model of a workflow
// version. It is immutable after construction and safe to share across
// concurrent runs.
type Graph struct {
	nodes   []Node
	byID    map[string]int
	version int
}

// New builds a Graph from a workflow's node set, decoding each node's typed
// configuration and enforcing per-kind edge cardinality. Edges are taken
// from the ordered outbound lists; inbound lists must mirror them.
func New(workflow *models.Workflow) (*Graph, error) {
	if workflow == nil {
		return nil, malformed("", "workflow is nil")
	}

	g := &Graph{
		nodes:   make([]Node, 0, len(workflow.Nodes)),
		byID:    make(map[string]int, len(workflow.Nodes)),
		version: workflow.Version,
	}

	for _, node := range workflow.Nodes {
		if !models.ValidNodeKind(node.Kind) {
			return nil, malformed(node.ID, "unknown node kind %q", node.Kind)
		}

		if _, exists := g.byID[node.ID]; exists {
			return nil, malformed(node.ID, "duplicate node ID")
		}

		config, err := models.DecodeNodeConfig(node.Kind, node.Config)
		if err != nil {
			return nil, malformed(node.ID, "%v", err)
		}

		g.byID[node.ID] = len(g.nodes)
		g.nodes = append(g.nodes, Node{
			ID:     node.ID,
			Kind:   node.Kind,
			Name:   node.Name,
			Config: config,
		})
	}

	inboundCounts := make([]map[int]int, len(g.nodes))

	for _, node := range workflow.Nodes {
		from := g.byID[node.ID]

		for _, targetID := range node.Outputs {
			to, ok := g.byID[targetID]
			if !ok {
				return nil, malformed(node.ID, "outbound edge references nonexistent node %q", targetID)
			}

			g.nodes[from].Out = append(g.nodes[from].Out, to)

			if inboundCounts[to] == nil {
				inboundCounts[to] = make(map[int]int)
			}

			inboundCounts[to][from]++
		}
	}

	// The inbound list is authoritative for edge order at the receiving node,
	// so it must name exactly the senders that declare an edge here.
	for _, node := range workflow.Nodes {
		idx := g.byID[node.ID]
		remaining := inboundCounts[idx]

		for _, sourceID := range node.Inputs {
			from, ok := g.byID[sourceID]
			if !ok {
				return nil, malformed(node.ID, "inbound list references nonexistent node %q", sourceID)
			}

			if remaining[from] == 0 {
				return nil, malformed(node.ID, "inbound list names %q, which declares no edge here", sourceID)
			}

			remaining[from]--
			g.nodes[idx].In = append(g.nodes[idx].In, from)
		}

		for from, count := range remaining {
			if count > 0 {
				return nil, malformed(node.ID, "inbound list does not mirror outbound edge from %q", g.nodes[from].ID)
			}
		}
	}

	for i := range g.nodes {
		if err := checkCardinality(&g.nodes[i]); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// checkCardinality enforces the per-kind inbound/outbound edge constraints.
func checkCardinality(n *Node) error {
	in, out := len(n.In), len(n.Out)

	switch n.Kind {
	case models.NodeKindSource:
		if in != 0 {
			return malformed(n.ID, "source node must have no inbound edges, has %d", in)
		}

		if out < 1 {
			return malformed(n.ID, "source node must have at least one outbound edge")
		}
	case models.NodeKindDestination:
		if out != 0 {
			return malformed(n.ID, "destination node must have no outbound edges, has %d", out)
		}

		if in < 1 {
			return malformed(n.ID, "destination node must have at least one inbound edge")
		}
	case models.NodeKindSplit:
		if in != 1 {
			return malformed(n.ID, "split node must have exactly one inbound edge, has %d", in)
		}

		if out < 2 {
			return malformed(n.ID, "split node must have at least two outbound edges, has %d", out)
		}
	case models.NodeKindMerge:
		if in < 2 {
			return malformed(n.ID, "merge node must have at least two inbound edges, has %d", in)
		}

		if out != 1 {
			return malformed(n.ID, "merge node must have exactly one outbound edge, has %d", out)
		}
	case models.NodeKindCondition, models.NodeKindAction, models.NodeKindSchedule:
		// No construction-time cardinality constraint beyond edge integrity;
		// dead ends are an activation-time validation concern.
	}

	return nil
}

// Version returns the workflow version this graph was built from.
func (g *Graph) Version() int { return g.version }

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the arena entry for the given node ID.
func (g *Graph) Node(id string) (*Node, bool) {
	idx, ok := g.byID[id]
	if !ok {
		return nil, false
	}

	return &g.nodes[idx], true
}

// NodeAt returns the arena entry at the given index.
func (g *Graph) NodeAt(idx int) *Node { return &g.nodes[idx] }

// Index returns the arena index of the given node ID.
func (g *Graph) Index(id string) (int, bool) {
	idx, ok := g.byID[id]

	return idx, ok
}

// Predecessors returns the IDs of nodes with an edge into the given node.
func (g *Graph) Predecessors(id string) []string {
	idx, ok := g.byID[id]
	if !ok {
		return nil
	}

	return g.ids(g.nodes[idx].In)
}

// Successors returns the IDs of nodes the given node has an edge to, in
// declaration order.
func (g *Graph) Successors(id string) []string {
	idx, ok := g.byID[id]
	if !ok {
		return nil
	}

	return g.ids(g.nodes[idx].Out)
}

// Sources returns the indices of all source nodes.
func (g *Graph) Sources() []int {
	var sources []int

	for i := range g.nodes {
		if g.nodes[i].Kind == models.NodeKindSource {
			sources = append(sources, i)
		}
	}

	return sources
}

// TopologicalOrder returns node IDs in dependency order. It fails if the
// graph contains a directed cycle.
func (g *Graph) TopologicalOrder() ([]string, error) {
	indegree := make([]int, len(g.nodes))
	for i := range g.nodes {
		indegree[i] = len(g.nodes[i].In)
	}

	queue := make([]int, 0, len(g.nodes))

	for i := range g.nodes {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]string, 0, len(g.nodes))

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		order = append(order, g.nodes[idx].ID)

		for _, succ := range g.nodes[idx].Out {
			indegree[succ]--
			if indegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, malformed("", "graph contains a directed cycle")
	}

	return order, nil
}

// ReachableTerminals returns the destination node IDs reachable from the
// given source node.
func (g *Graph) ReachableTerminals(sourceID string) []string {
	start, ok := g.byID[sourceID]
	if !ok {
		return nil
	}

	seen := make([]bool, len(g.nodes))
	stack := []int{start}

	var terminals []string

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[idx] {
			continue
		}

		seen[idx] = true

		if g.nodes[idx].Kind == models.NodeKindDestination {
			terminals = append(terminals, g.nodes[idx].ID)
		}

		stack = append(stack, g.nodes[idx].Out...)
	}

	return terminals
}

func (g *Graph) ids(indices []int) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = g.nodes[idx].ID
	}

	return out
}
