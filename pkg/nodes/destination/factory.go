package destination

import (
	"context"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type DestinationNodeFactory struct{}

func NewDestinationNodeFactory() protocol.NodeFactory {
	return &DestinationNodeFactory{}
}

func (f *DestinationNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewDestinationNode(id, config)
}

func (f *DestinationNodeFactory) Kind() models.NodeKind {
	return models.NodeKindDestination
}

func (f *DestinationNodeFactory) Name() string {
	return "Destination"
}

func (f *DestinationNodeFactory) Description() string {
	return "Terminal node that records the final run payload."
}

func (f *DestinationNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"label": map[string]any{
				"type":        "string",
				"description": "Optional label distinguishing this destination in the run output.",
			},
		},
	}
}
