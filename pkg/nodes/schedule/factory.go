package schedule

import (
	"context"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type ScheduleNodeFactory struct{}

func NewScheduleNodeFactory() protocol.NodeFactory {
	return &ScheduleNodeFactory{}
}

func (f *ScheduleNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewScheduleNode(id, config)
}

func (f *ScheduleNodeFactory) Kind() models.NodeKind {
	return models.NodeKindSchedule
}

func (f *ScheduleNodeFactory) Name() string {
	return "Schedule Anchor"
}

func (f *ScheduleNodeFactory) Description() string {
	return "Marks where an imported template's schedule trigger attaches. Pass-through at run time."
}

func (f *ScheduleNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cron": map[string]any{
				"type":        "string",
				"description": "Informational cron expression. The workflow trigger descriptor is what the scheduler polls.",
			},
		},
	}
}
