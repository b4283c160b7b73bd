// Package merge provides the join node that combines fan-out branches back
// into one payload.
package merge

import (
	"context"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type MergeNode struct {
	id     string
	config models.MergeConfig
}

func NewMergeNode(id string, config map[string]any) (*MergeNode, error) {
	decoded, err := models.DecodeNodeConfig(models.NodeKindMerge, config)
	if err != nil {
		return nil, err
	}

	return &MergeNode{
		id:     id,
		config: decoded.(models.MergeConfig),
	}, nil
}

func (n *MergeNode) ID() string            { return n.id }
func (n *MergeNode) Kind() models.NodeKind { return models.NodeKindMerge }

// ToleratePartial reports whether the executor's barrier may release with
// failed or skipped inputs, as long as at least one branch succeeded.
func (n *MergeNode) ToleratePartial() bool {
	return n.config.ToleratePartial
}

// Execute handles the degenerate single-input case the same way ExecuteJoin
// handles many.
func (n *MergeNode) Execute(ctx context.Context, ec protocol.ExecutionContext, input models.Payload) (*protocol.Result, error) {
	return n.ExecuteJoin(ctx, ec, []protocol.BranchInput{{Payload: input}})
}

// ExecuteJoin unions the successful branch payloads in declared input order,
// later branches overwriting earlier keys. The contributing branches are
// recorded so downstream nodes can tell a partial merge from a full one.
func (n *MergeNode) ExecuteJoin(ctx context.Context, ec protocol.ExecutionContext, inputs []protocol.BranchInput) (*protocol.Result, error) {
	output := models.Payload{}
	mergedFrom := make([]any, 0, len(inputs))

	for _, branch := range inputs {
		for key, value := range branch.Payload {
			output[key] = value
		}

		if branch.SourceNodeID != "" {
			mergedFrom = append(mergedFrom, branch.SourceNodeID)
		}
	}

	if len(mergedFrom) > 0 {
		output["merged_from"] = mergedFrom
	}

	return &protocol.Result{Output: output}, nil
}
