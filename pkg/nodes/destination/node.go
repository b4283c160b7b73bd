// Package destination provides the terminal node that records the final run
// payload.
package destination

import (
	"context"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type DestinationNode struct {
	id     string
	config models.DestinationConfig
}

func NewDestinationNode(id string, config map[string]any) (*DestinationNode, error) {
	decoded, err := models.DecodeNodeConfig(models.NodeKindDestination, config)
	if err != nil {
		return nil, err
	}

	return &DestinationNode{
		id:     id,
		config: decoded.(models.DestinationConfig),
	}, nil
}

func (n *DestinationNode) ID() string            { return n.id }
func (n *DestinationNode) Kind() models.NodeKind { return models.NodeKindDestination }

// Execute passes the payload through unchanged; the recorder captures it as
// the run output. The optional label distinguishes multiple destinations.
func (n *DestinationNode) Execute(ctx context.Context, ec protocol.ExecutionContext, input models.Payload) (*protocol.Result, error) {
	output := input.Clone()
	if n.config.Label != "" {
		output["destination_label"] = n.config.Label
	}

	return &protocol.Result{Output: output}, nil
}
