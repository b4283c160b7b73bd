// Package schedule provides the trigger-anchor node kept for imported graph
// templates. It has no runtime behavior; the scheduler fires off the
// workflow's trigger descriptor, not this node.
package schedule

import (
	"context"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type ScheduleNode struct {
	id     string
	config models.ScheduleConfig
}

func NewScheduleNode(id string, config map[string]any) (*ScheduleNode, error) {
	decoded, err := models.DecodeNodeConfig(models.NodeKindSchedule, config)
	if err != nil {
		return nil, err
	}

	return &ScheduleNode{
		id:     id,
		config: decoded.(models.ScheduleConfig),
	}, nil
}

func (n *ScheduleNode) ID() string            { return n.id }
func (n *ScheduleNode) Kind() models.NodeKind { return models.NodeKindSchedule }

// Execute passes the payload through untouched.
func (n *ScheduleNode) Execute(ctx context.Context, ec protocol.ExecutionContext, input models.Payload) (*protocol.Result, error) {
	return &protocol.Result{Output: input.Clone()}, nil
}
