// Package split provides the fan-out node. The executor clones the split's
// output once per outbound edge; the node itself only forwards the payload.
package split

import (
	"context"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type SplitNode struct {
	id string
}

func NewSplitNode(id string, config map[string]any) (*SplitNode, error) {
	if _, err := models.DecodeNodeConfig(models.NodeKindSplit, config); err != nil {
		return nil, err
	}

	return &SplitNode{id: id}, nil
}

func (n *SplitNode) ID() string            { return n.id }
func (n *SplitNode) Kind() models.NodeKind { return models.NodeKindSplit }

func (n *SplitNode) Execute(ctx context.Context, ec protocol.ExecutionContext, input models.Payload) (*protocol.Result, error) {
	return &protocol.Result{Output: input.Clone()}, nil
}
