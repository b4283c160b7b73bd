package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeNodeConfig_Source(t *testing.T) {
	config, err := DecodeNodeConfig(NodeKindSource, map[string]any{
		"entity_id":        "entity-1",
		"account_id":       "account-1",
		"category":         "utilities",
		"min_amount_cents": float64(1000),
		"lookback_days":    float64(30),
	})
	require.NoError(t, err)

	source, ok := config.(SourceConfig)
	require.True(t, ok)
	assert.Equal(t, "entity-1", source.EntityID)
	assert.Equal(t, int64(1000), source.MinAmountCents)
	assert.Equal(t, 30, source.LookbackDays)
	assert.Equal(t, NodeKindSource, source.Kind())
}

func TestDecodeNodeConfig_SourceMissingEntity(t *testing.T) {
	_, err := DecodeNodeConfig(NodeKindSource, map[string]any{
		"account_id": "account-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity_id")
}

func TestDecodeNodeConfig_Condition(t *testing.T) {
	config, err := DecodeNodeConfig(NodeKindCondition, map[string]any{
		"field":    "amount_cents",
		"operator": "gt",
		"value":    float64(5000),
	})
	require.NoError(t, err)

	condition, ok := config.(ConditionConfig)
	require.True(t, ok)
	assert.Equal(t, "amount_cents", condition.Field)
	assert.Equal(t, OperatorGt, condition.Operator)
}

func TestDecodeNodeConfig_ConditionUnknownOperator(t *testing.T) {
	_, err := DecodeNodeConfig(NodeKindCondition, map[string]any{
		"field":    "amount_cents",
		"operator": "between",
		"value":    float64(1),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operator")
}

func TestDecodeNodeConfig_ConditionValueRequired(t *testing.T) {
	_, err := DecodeNodeConfig(NodeKindCondition, map[string]any{
		"field":    "category",
		"operator": "eq",
	})
	require.Error(t, err)

	// exists is the one operator that needs no comparison value
	_, err = DecodeNodeConfig(NodeKindCondition, map[string]any{
		"field":    "category",
		"operator": "exists",
	})
	require.NoError(t, err)
}

func TestDecodeNodeConfig_ActionTransfer(t *testing.T) {
	config, err := DecodeNodeConfig(NodeKindAction, map[string]any{
		"operation":       "transfer",
		"from_entity_id":  "personal",
		"to_entity_id":    "llc",
		"from_account_id": "checking",
		"to_account_id":   "business-checking",
		"amount_cents":    float64(250000),
		"transfer_type":   "equity_contribution",
		"description":     "Monthly capital contribution",
	})
	require.NoError(t, err)

	action, ok := config.(ActionConfig)
	require.True(t, ok)
	assert.Equal(t, OperationTransfer, action.Operation)
	assert.Equal(t, int64(250000), action.AmountCents)
}

func TestDecodeNodeConfig_ActionInvalid(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
	}{
		{
			name: "unknown operation",
			config: map[string]any{
				"operation":    "wire",
				"amount_cents": float64(100),
				"description":  "x",
			},
		},
		{
			name: "non-positive amount",
			config: map[string]any{
				"operation":    "create_transaction",
				"entity_id":    "e",
				"account_id":   "a",
				"amount_cents": float64(0),
				"description":  "x",
			},
		},
		{
			name: "transfer without accounts",
			config: map[string]any{
				"operation":      "transfer",
				"from_entity_id": "a",
				"to_entity_id":   "b",
				"amount_cents":   float64(100),
				"transfer_type":  "owner_draw",
				"description":    "x",
			},
		},
		{
			name: "transfer with unknown type",
			config: map[string]any{
				"operation":       "transfer",
				"from_entity_id":  "a",
				"to_entity_id":    "b",
				"from_account_id": "fa",
				"to_account_id":   "ta",
				"amount_cents":    float64(100),
				"transfer_type":   "gift",
				"description":     "x",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeNodeConfig(NodeKindAction, tt.config)
			assert.Error(t, err)
		})
	}
}

func TestDecodeNodeConfig_Merge(t *testing.T) {
	config, err := DecodeNodeConfig(NodeKindMerge, map[string]any{
		"tolerate_partial": true,
	})
	require.NoError(t, err)

	merge, ok := config.(MergeConfig)
	require.True(t, ok)
	assert.True(t, merge.ToleratePartial)
}

func TestDecodeNodeConfig_ScheduleCron(t *testing.T) {
	_, err := DecodeNodeConfig(NodeKindSchedule, map[string]any{"cron": "0 9 * * 1"})
	require.NoError(t, err)

	_, err = DecodeNodeConfig(NodeKindSchedule, map[string]any{"cron": "not a cron"})
	require.Error(t, err)
}

func TestDecodeNodeConfig_UnknownKind(t *testing.T) {
	_, err := DecodeNodeConfig(NodeKind("loop"), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node kind")
}
