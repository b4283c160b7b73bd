package graph

import (
	"testing"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LinearPipeline(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.SourceNode("src", "act"),
			testutil.ActionNode("act", []string{"src"}, "dst"),
			testutil.DestinationNode("dst", "act"),
		),
	)

	g, err := New(workflow)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "act", "dst"}, order)

	assert.Equal(t, []string{"act"}, g.Successors("src"))
	assert.Equal(t, []string{"act"}, g.Predecessors("dst"))
	assert.Equal(t, []string{"dst"}, g.ReachableTerminals("src"))
}

func TestNew_EdgeToNonexistentNode(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.SourceNode("src", "ghost"),
		),
	)

	_, err := New(workflow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedGraph)
	assert.Contains(t, err.Error(), "nonexistent node")
}

func TestNew_InboundOrderIsAuthoritative(t *testing.T) {
	// The merge declares its inputs in the opposite order of the node
	// declarations; edge order at the join must follow the inbound list.
	workflow := testutil.CreateTestWorkflow(testutil.WithNodes(
		testutil.SourceNode("src", "split"),
		testutil.SplitNode("split", "src", "a1", "a2"),
		testutil.ActionNode("a1", []string{"split"}, "merge"),
		testutil.ActionNode("a2", []string{"split"}, "merge"),
		testutil.MergeNode("merge", []string{"a2", "a1"}, "dst", false),
		testutil.DestinationNode("dst", "merge"),
	))

	g, err := New(workflow)
	require.NoError(t, err)

	assert.Equal(t, []string{"a2", "a1"}, g.Predecessors("merge"))
}

func TestNew_InboundListNamesWrongSender(t *testing.T) {
	// d's inbound list has the right length but names a node that declares
	// no edge to it.
	workflow := testutil.CreateTestWorkflow(testutil.WithNodes(
		testutil.SourceNode("s1", "d"),
		testutil.SourceNode("s2", "a"),
		testutil.ActionNode("a", []string{"s2"}, "d2"),
		testutil.DestinationNode("d", "s2"),
		testutil.DestinationNode("d2", "a"),
	))

	_, err := New(workflow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedGraph)
	assert.Contains(t, err.Error(), "declares no edge here")
}

func TestNew_CardinalityViolations(t *testing.T) {
	tests := []struct {
		name  string
		nodes []*models.WorkflowNode
		want  string
	}{
		{
			name: "source with inbound edge",
			nodes: []*models.WorkflowNode{
				testutil.SourceNode("s1", "s2"),
				{
					ID: "s2", Kind: models.NodeKindSource, Name: "bad source",
					Config:  map[string]any{"entity_id": "e"},
					Inputs:  []string{"s1"},
					Outputs: []string{"d"},
				},
				testutil.DestinationNode("d", "s2"),
			},
			want: "source node must have no inbound edges",
		},
		{
			name: "source without outbound edge",
			nodes: []*models.WorkflowNode{
				{
					ID: "s1", Kind: models.NodeKindSource, Name: "dangling source",
					Config: map[string]any{"entity_id": "e"},
				},
			},
			want: "at least one outbound edge",
		},
		{
			name: "split with single branch",
			nodes: []*models.WorkflowNode{
				testutil.SourceNode("s", "sp"),
				{
					ID: "sp", Kind: models.NodeKindSplit, Name: "split",
					Config:  map[string]any{},
					Inputs:  []string{"s"},
					Outputs: []string{"d"},
				},
				testutil.DestinationNode("d", "sp"),
			},
			want: "at least two outbound edges",
		},
		{
			name: "merge with single input",
			nodes: []*models.WorkflowNode{
				testutil.SourceNode("s", "m"),
				{
					ID: "m", Kind: models.NodeKindMerge, Name: "merge",
					Config:  map[string]any{},
					Inputs:  []string{"s"},
					Outputs: []string{"d"},
				},
				testutil.DestinationNode("d", "m"),
			},
			want: "at least two inbound edges",
		},
		{
			name: "destination with outbound edge",
			nodes: []*models.WorkflowNode{
				testutil.SourceNode("s", "d1"),
				{
					ID: "d1", Kind: models.NodeKindDestination, Name: "bad destination",
					Config:  map[string]any{},
					Inputs:  []string{"s"},
					Outputs: []string{"d2"},
				},
				testutil.DestinationNode("d2", "d1"),
			},
			want: "destination node must have no outbound edges",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := testutil.CreateTestWorkflow(testutil.WithNodes(tt.nodes...))

			_, err := New(workflow)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedGraph)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNew_InvalidNodeConfig(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			&models.WorkflowNode{
				ID: "src", Kind: models.NodeKindSource, Name: "source",
				Config:  map[string]any{}, // missing entity_id
				Outputs: []string{"dst"},
			},
			testutil.DestinationNode("dst", "src"),
		),
	)

	_, err := New(workflow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedGraph)
}

func TestTopologicalOrder_Cycle(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(
			testutil.SourceNode("src", "a1"),
			&models.WorkflowNode{
				ID: "a1", Kind: models.NodeKindAction, Name: "a1",
				Config:  testutil.TransactionActionConfig(),
				Inputs:  []string{"src", "a2"},
				Outputs: []string{"a2"},
			},
			&models.WorkflowNode{
				ID: "a2", Kind: models.NodeKindAction, Name: "a2",
				Config:  testutil.TransactionActionConfig(),
				Inputs:  []string{"a1"},
				Outputs: []string{"a1", "dst"},
			},
			testutil.DestinationNode("dst", "a2"),
		),
	)

	g, err := New(workflow)
	require.NoError(t, err)

	_, err = g.TopologicalOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestNew_SplitMergeDiamond(t *testing.T) {
	workflow := testutil.CreateTestWorkflow(testutil.WithDiamondNodes())

	g, err := New(workflow)
	require.NoError(t, err)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Len(t, order, 6)
	assert.Equal(t, "src", order[0])
	assert.Equal(t, "dst", order[5])

	merge, ok := g.Node("merge")
	require.True(t, ok)
	assert.Len(t, merge.In, 2)
	assert.Len(t, merge.Out, 1)
}
