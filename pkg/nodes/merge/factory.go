package merge

import (
	"context"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type MergeNodeFactory struct{}

func NewMergeNodeFactory() protocol.NodeFactory {
	return &MergeNodeFactory{}
}

func (f *MergeNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewMergeNode(id, config)
}

func (f *MergeNodeFactory) Kind() models.NodeKind {
	return models.NodeKindMerge
}

func (f *MergeNodeFactory) Name() string {
	return "Merge"
}

func (f *MergeNodeFactory) Description() string {
	return "Waits for every inbound branch and combines their payloads into one."
}

func (f *MergeNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tolerate_partial": map[string]any{
				"type":        "boolean",
				"description": "Proceed when some branches failed or were skipped, as long as one succeeded. Default is to fail the merge.",
			},
		},
	}
}
