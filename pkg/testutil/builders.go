// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/google/uuid"
)

// CreateTestWorkflow creates a draft workflow with sane defaults that can be
// overridden per test.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:             uuid.New().String(),
		Name:           "Test Workflow",
		Description:    "Workflow used in tests",
		OwnerID:        "user-1",
		Status:         models.WorkflowStatusDraft,
		Trigger:        models.TriggerDescriptor{Kind: models.TriggerKindManual},
		MaxRetries:     3,
		TimeoutSeconds: 300,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithNodes sets the workflow's node graph.
func WithNodes(nodes ...*models.WorkflowNode) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nodes
	}
}

// WithStatus sets the workflow status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// WithTrigger sets the trigger descriptor.
func WithTrigger(kind models.TriggerKind, config map[string]any) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Trigger = models.TriggerDescriptor{Kind: kind, Config: config}
	}
}

// WithMaxRetries sets the per-node retry ceiling.
func WithMaxRetries(n int) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.MaxRetries = n
	}
}

// WithTimeoutSeconds sets the per-run wall clock budget.
func WithTimeoutSeconds(seconds int) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.TimeoutSeconds = seconds
	}
}

// SourceNode builds a source node feeding the given outputs.
func SourceNode(id string, outputs ...string) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:   id,
		Kind: models.NodeKindSource,
		Name: "source " + id,
		Config: map[string]any{
			"entity_id":  "entity-1",
			"account_id": "account-1",
		},
		Outputs: outputs,
	}
}

// DestinationNode builds a destination node fed by the given inputs.
func DestinationNode(id string, inputs ...string) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:     id,
		Kind:   models.NodeKindDestination,
		Name:   "destination " + id,
		Config: map[string]any{},
		Inputs: inputs,
	}
}

// ActionNode builds a create-transaction action node.
func ActionNode(id string, inputs []string, outputs ...string) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:      id,
		Kind:    models.NodeKindAction,
		Name:    "action " + id,
		Config:  TransactionActionConfig(),
		Inputs:  inputs,
		Outputs: outputs,
	}
}

// ConditionNode builds a condition node. The first output is the true branch.
func ConditionNode(id, field, operator string, value any, inputs []string, outputs ...string) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:   id,
		Kind: models.NodeKindCondition,
		Name: "condition " + id,
		Config: map[string]any{
			"field":    field,
			"operator": operator,
			"value":    value,
		},
		Inputs:  inputs,
		Outputs: outputs,
	}
}

// SplitNode builds a split node fanning out to the given outputs.
func SplitNode(id, input string, outputs ...string) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:      id,
		Kind:    models.NodeKindSplit,
		Name:    "split " + id,
		Config:  map[string]any{},
		Inputs:  []string{input},
		Outputs: outputs,
	}
}

// MergeNode builds a merge node joining the given inputs.
func MergeNode(id string, inputs []string, output string, toleratePartial bool) *models.WorkflowNode {
	return &models.WorkflowNode{
		ID:      id,
		Kind:    models.NodeKindMerge,
		Name:    "merge " + id,
		Config:  map[string]any{"tolerate_partial": toleratePartial},
		Inputs:  inputs,
		Outputs: []string{output},
	}
}

// TransactionActionConfig returns a valid create-transaction action config.
func TransactionActionConfig() map[string]any {
	return map[string]any{
		"operation":    "create_transaction",
		"entity_id":    "entity-1",
		"account_id":   "account-1",
		"amount_cents": float64(1000),
		"description":  "test transaction",
	}
}

// TransferActionConfig returns a valid inter-entity transfer action config.
func TransferActionConfig() map[string]any {
	return map[string]any{
		"operation":       "transfer",
		"from_entity_id":  "personal",
		"to_entity_id":    "llc",
		"from_account_id": "checking",
		"to_account_id":   "business-checking",
		"amount_cents":    float64(250000),
		"transfer_type":   "equity_contribution",
		"description":     "test transfer",
	}
}

// WithDiamondNodes builds src -> split -> {a1, a2} -> merge -> dst.
func WithDiamondNodes() func(*models.Workflow) {
	return WithNodes(
		SourceNode("src", "split"),
		SplitNode("split", "src", "a1", "a2"),
		ActionNode("a1", []string{"split"}, "merge"),
		ActionNode("a2", []string{"split"}, "merge"),
		MergeNode("merge", []string{"a1", "a2"}, "dst", false),
		DestinationNode("dst", "merge"),
	)
}

// WithConditionNodes builds src -> cond -> {a1 (true), a2 (false)} with both
// actions feeding their own destinations.
func WithConditionNodes(field, operator string, value any) func(*models.Workflow) {
	return WithNodes(
		SourceNode("src", "cond"),
		ConditionNode("cond", field, operator, value, []string{"src"}, "a1", "a2"),
		ActionNode("a1", []string{"cond"}, "d1"),
		ActionNode("a2", []string{"cond"}, "d2"),
		DestinationNode("d1", "a1"),
		DestinationNode("d2", "a2"),
	)
}
