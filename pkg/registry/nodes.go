package registry

import (
	"github.com/fluxofin/fluxo/pkg/ledger"
	"github.com/fluxofin/fluxo/pkg/nodes/action"
	"github.com/fluxofin/fluxo/pkg/nodes/condition"
	"github.com/fluxofin/fluxo/pkg/nodes/destination"
	"github.com/fluxofin/fluxo/pkg/nodes/merge"
	"github.com/fluxofin/fluxo/pkg/nodes/schedule"
	"github.com/fluxofin/fluxo/pkg/nodes/source"
	"github.com/fluxofin/fluxo/pkg/nodes/split"
)

// RegisterDefaultNodes registers every built-in node factory. Source and
// action nodes are bound to the ledger they read and post against.
func (r *Registry) RegisterDefaultNodes(book ledger.Ledger) {
	r.Register(source.NewSourceNodeFactory(book))
	r.Register(destination.NewDestinationNodeFactory())
	r.Register(condition.NewConditionNodeFactory())
	r.Register(action.NewActionNodeFactory(book))
	r.Register(schedule.NewScheduleNodeFactory())
	r.Register(split.NewSplitNodeFactory())
	r.Register(merge.NewMergeNodeFactory())
}
