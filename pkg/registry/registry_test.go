package registry

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxofin/fluxo/pkg/ledger/memory"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/testutil"
)

func newTestRegistry() *Registry {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	r := NewRegistry(logger)
	r.RegisterDefaultNodes(memory.NewLedger())

	return r
}

func TestRegistry_RegistersAllKinds(t *testing.T) {
	r := newTestRegistry()

	for _, kind := range models.NodeKinds {
		_, ok := r.Factory(kind)
		assert.True(t, ok, "kind %s should be registered", kind)
	}

	assert.Len(t, r.Kinds(), len(models.NodeKinds))
}

func TestRegistry_CreateConditionNode(t *testing.T) {
	r := newTestRegistry()

	node, err := r.Create(t.Context(), testutil.ConditionNode("cond", "total_amount_cents", models.OperatorGt, float64(1000), []string{"src"}, "a1", "a2"))
	require.NoError(t, err)
	assert.Equal(t, models.NodeKindCondition, node.Kind())
	assert.Equal(t, "cond", node.ID())
}

func TestRegistry_CreateRejectsSchemaViolation(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Create(t.Context(), &models.WorkflowNode{
		ID:   "cond",
		Kind: models.NodeKindCondition,
		Name: "bad condition",
		Config: map[string]any{
			"operator": "gt", // field is required by the schema
			"value":    float64(10),
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestRegistry_CreateRejectsUnknownKind(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Create(t.Context(), &models.WorkflowNode{
		ID:   "x",
		Kind: models.NodeKind("webhook"),
		Name: "unknown",
	})
	assert.Error(t, err)
}
