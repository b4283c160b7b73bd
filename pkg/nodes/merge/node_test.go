package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

func TestMergeNode_UnionsBranchesInOrder(t *testing.T) {
	node, err := NewMergeNode("merge", nil)
	require.NoError(t, err)

	result, err := node.ExecuteJoin(t.Context(), protocol.ExecutionContext{}, []protocol.BranchInput{
		{SourceNodeID: "a1", Payload: models.Payload{"x": 1, "shared": "first"}},
		{SourceNodeID: "a2", Payload: models.Payload{"y": 2, "shared": "second"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Output["x"])
	assert.Equal(t, 2, result.Output["y"])
	// Later branches win on key collisions.
	assert.Equal(t, "second", result.Output["shared"])
	assert.Equal(t, []any{"a1", "a2"}, result.Output["merged_from"])
}

func TestMergeNode_ToleratePartial(t *testing.T) {
	strict, err := NewMergeNode("merge", nil)
	require.NoError(t, err)
	assert.False(t, strict.ToleratePartial())

	tolerant, err := NewMergeNode("merge", map[string]any{"tolerate_partial": true})
	require.NoError(t, err)
	assert.True(t, tolerant.ToleratePartial())
}
