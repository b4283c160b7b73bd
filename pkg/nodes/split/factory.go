package split

import (
	"context"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type SplitNodeFactory struct{}

func NewSplitNodeFactory() protocol.NodeFactory {
	return &SplitNodeFactory{}
}

func (f *SplitNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewSplitNode(id, config)
}

func (f *SplitNodeFactory) Kind() models.NodeKind {
	return models.NodeKindSplit
}

func (f *SplitNodeFactory) Name() string {
	return "Split"
}

func (f *SplitNodeFactory) Description() string {
	return "Fans the payload out to every outbound branch for parallel execution."
}

func (f *SplitNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
