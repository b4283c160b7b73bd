// Package condition provides the branching node that routes a run down
// exactly one of two outbound edges.
package condition

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type ConditionNode struct {
	id     string
	config models.ConditionConfig
}

func NewConditionNode(id string, config map[string]any) (*ConditionNode, error) {
	decoded, err := models.DecodeNodeConfig(models.NodeKindCondition, config)
	if err != nil {
		return nil, err
	}

	return &ConditionNode{
		id:     id,
		config: decoded.(models.ConditionConfig),
	}, nil
}

func (n *ConditionNode) ID() string            { return n.id }
func (n *ConditionNode) Kind() models.NodeKind { return models.NodeKindCondition }

// Execute evaluates the predicate against the payload. The payload passes
// through unchanged; only the branch decision is added. A field missing from
// the payload evaluates to false rather than failing the node, except under
// the exists operator where absence is the answer.
func (n *ConditionNode) Execute(ctx context.Context, ec protocol.ExecutionContext, input models.Payload) (*protocol.Result, error) {
	value, found := lookupField(input, n.config.Field)

	result, err := n.evaluate(value, found)
	if err != nil {
		return nil, protocol.Permanent(fmt.Errorf("condition %s: %w", n.id, err))
	}

	return &protocol.Result{
		Output: input.Clone(),
		Branch: &result,
	}, nil
}

func (n *ConditionNode) evaluate(value any, found bool) (bool, error) {
	if n.config.Operator == models.OperatorExists {
		return found, nil
	}

	if !found {
		return false, nil
	}

	switch n.config.Operator {
	case models.OperatorEq:
		return equal(value, n.config.Value), nil
	case models.OperatorNe:
		return !equal(value, n.config.Value), nil
	case models.OperatorGt, models.OperatorGte, models.OperatorLt, models.OperatorLte:
		return compareOrdered(n.config.Operator, value, n.config.Value)
	case models.OperatorContains:
		return contains(value, n.config.Value)
	default:
		return false, fmt.Errorf("unknown operator %q", n.config.Operator)
	}
}

// lookupField resolves a dotted path like "summary.total_amount_cents"
// through nested maps.
func lookupField(payload models.Payload, field string) (any, bool) {
	var current any = map[string]any(payload)

	for _, part := range strings.Split(field, ".") {
		asMap, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = asMap[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func equal(left, right any) bool {
	leftNum, leftOk := asNumber(left)
	rightNum, rightOk := asNumber(right)

	if leftOk && rightOk {
		return leftNum == rightNum
	}

	return fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)
}

func compareOrdered(operator string, left, right any) (bool, error) {
	leftNum, leftOk := asNumber(left)
	rightNum, rightOk := asNumber(right)

	if !leftOk || !rightOk {
		return false, fmt.Errorf("operator %q requires numeric operands, got %T and %T", operator, left, right)
	}

	switch operator {
	case models.OperatorGt:
		return leftNum > rightNum, nil
	case models.OperatorGte:
		return leftNum >= rightNum, nil
	case models.OperatorLt:
		return leftNum < rightNum, nil
	default:
		return leftNum <= rightNum, nil
	}
}

func contains(haystack, needle any) (bool, error) {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, fmt.Sprintf("%v", needle)), nil
	case []any:
		for _, item := range h {
			if equal(item, needle) {
				return true, nil
			}
		}

		return false, nil
	default:
		return false, fmt.Errorf("operator %q requires a string or list, got %T", models.OperatorContains, haystack)
	}
}

// asNumber normalizes the numeric types JSON decoding and Go literals
// produce so comparisons do not depend on the payload's wire history.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}
