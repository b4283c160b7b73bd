package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

func TestConditionNode_Operators(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		operator string
		value    any
		payload  models.Payload
		want     bool
	}{
		{
			name:     "eq true",
			field:    "category",
			operator: models.OperatorEq,
			value:    "rent",
			payload:  models.Payload{"category": "rent"},
			want:     true,
		},
		{
			name:     "eq numeric across types",
			field:    "count",
			operator: models.OperatorEq,
			value:    float64(3),
			payload:  models.Payload{"count": 3},
			want:     true,
		},
		{
			name:     "ne",
			field:    "category",
			operator: models.OperatorNe,
			value:    "rent",
			payload:  models.Payload{"category": "utilities"},
			want:     true,
		},
		{
			name:     "gt true",
			field:    "total_amount_cents",
			operator: models.OperatorGt,
			value:    float64(50000),
			payload:  models.Payload{"total_amount_cents": int64(75000)},
			want:     true,
		},
		{
			name:     "gt false on equal",
			field:    "total_amount_cents",
			operator: models.OperatorGt,
			value:    float64(50000),
			payload:  models.Payload{"total_amount_cents": int64(50000)},
			want:     false,
		},
		{
			name:     "gte on equal",
			field:    "total_amount_cents",
			operator: models.OperatorGte,
			value:    float64(50000),
			payload:  models.Payload{"total_amount_cents": int64(50000)},
			want:     true,
		},
		{
			name:     "lt",
			field:    "total_amount_cents",
			operator: models.OperatorLt,
			value:    float64(100),
			payload:  models.Payload{"total_amount_cents": 50},
			want:     true,
		},
		{
			name:     "contains string",
			field:    "description",
			operator: models.OperatorContains,
			value:    "rent",
			payload:  models.Payload{"description": "monthly rent payment"},
			want:     true,
		},
		{
			name:     "contains list",
			field:    "tags",
			operator: models.OperatorContains,
			value:    "urgent",
			payload:  models.Payload{"tags": []any{"monthly", "urgent"}},
			want:     true,
		},
		{
			name:     "exists present",
			field:    "transactions",
			operator: models.OperatorExists,
			payload:  models.Payload{"transactions": []any{}},
			want:     true,
		},
		{
			name:     "exists absent",
			field:    "transactions",
			operator: models.OperatorExists,
			payload:  models.Payload{},
			want:     false,
		},
		{
			name:     "missing field is false not error",
			field:    "missing",
			operator: models.OperatorGt,
			value:    float64(10),
			payload:  models.Payload{},
			want:     false,
		},
		{
			name:     "nested field",
			field:    "summary.count",
			operator: models.OperatorGte,
			value:    float64(2),
			payload:  models.Payload{"summary": map[string]any{"count": 2}},
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := map[string]any{
				"field":    tt.field,
				"operator": tt.operator,
			}
			if tt.value != nil {
				config["value"] = tt.value
			}

			node, err := NewConditionNode("cond", config)
			require.NoError(t, err)

			result, err := node.Execute(t.Context(), protocol.ExecutionContext{ExecutionID: "exec-1"}, tt.payload)
			require.NoError(t, err)
			require.NotNil(t, result.Branch)
			assert.Equal(t, tt.want, *result.Branch)
		})
	}
}

func TestConditionNode_PassesPayloadThrough(t *testing.T) {
	node, err := NewConditionNode("cond", map[string]any{
		"field":    "count",
		"operator": models.OperatorGt,
		"value":    float64(1),
	})
	require.NoError(t, err)

	payload := models.Payload{"count": 5, "extra": "kept"}

	result, err := node.Execute(t.Context(), protocol.ExecutionContext{}, payload)
	require.NoError(t, err)
	assert.Equal(t, payload["extra"], result.Output["extra"])
	assert.Equal(t, payload["count"], result.Output["count"])
}

func TestConditionNode_TypeMismatchIsPermanent(t *testing.T) {
	node, err := NewConditionNode("cond", map[string]any{
		"field":    "category",
		"operator": models.OperatorGt,
		"value":    float64(10),
	})
	require.NoError(t, err)

	_, err = node.Execute(t.Context(), protocol.ExecutionContext{}, models.Payload{"category": "rent"})
	require.Error(t, err)
	assert.True(t, protocol.IsPermanent(err))
}

func TestNewConditionNode_RejectsUnknownOperator(t *testing.T) {
	_, err := NewConditionNode("cond", map[string]any{
		"field":    "count",
		"operator": "between",
		"value":    float64(1),
	})
	assert.Error(t, err)
}
