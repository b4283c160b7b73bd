package condition

import (
	"context"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type ConditionNodeFactory struct{}

func NewConditionNodeFactory() protocol.NodeFactory {
	return &ConditionNodeFactory{}
}

func (f *ConditionNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewConditionNode(id, config)
}

func (f *ConditionNodeFactory) Kind() models.NodeKind {
	return models.NodeKindCondition
}

func (f *ConditionNodeFactory) Name() string {
	return "Condition"
}

func (f *ConditionNodeFactory) Description() string {
	return "Evaluates a predicate against the payload and routes the run down the true or false branch."
}

func (f *ConditionNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field": map[string]any{
				"type":        "string",
				"description": "Dotted path into the payload, e.g. total_amount_cents or summary.count.",
			},
			"operator": map[string]any{
				"type": "string",
				"enum": []string{
					models.OperatorEq, models.OperatorNe,
					models.OperatorGt, models.OperatorGte,
					models.OperatorLt, models.OperatorLte,
					models.OperatorContains, models.OperatorExists,
				},
			},
			"value": map[string]any{
				"description": "Comparison operand. Not required for the exists operator.",
			},
		},
		"required": []string{"field", "operator"},
	}
}
