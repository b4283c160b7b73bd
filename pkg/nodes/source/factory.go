package source

import (
	"context"

	"github.com/fluxofin/fluxo/pkg/ledger"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

// SourceNodeFactory creates SourceNode instances bound to a ledger.
type SourceNodeFactory struct {
	book ledger.Ledger
}

func NewSourceNodeFactory(book ledger.Ledger) protocol.NodeFactory {
	return &SourceNodeFactory{book: book}
}

func (f *SourceNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewSourceNode(id, config, f.book)
}

func (f *SourceNodeFactory) Kind() models.NodeKind {
	return models.NodeKindSource
}

func (f *SourceNodeFactory) Name() string {
	return "Transaction Source"
}

func (f *SourceNodeFactory) Description() string {
	return "Seeds the run payload with ledger transactions matching an entity, account, category, and amount filter."
}

func (f *SourceNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entity_id": map[string]any{
				"type":        "string",
				"description": "Entity whose transactions seed the run.",
			},
			"account_id": map[string]any{
				"type":        "string",
				"description": "Restrict to a single account.",
			},
			"category": map[string]any{
				"type":        "string",
				"description": "Restrict to a transaction category.",
			},
			"min_amount_cents": map[string]any{
				"type":        "integer",
				"description": "Lower amount bound, in cents.",
			},
			"max_amount_cents": map[string]any{
				"type":        "integer",
				"description": "Upper amount bound, in cents.",
			},
			"lookback_days": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"description": "How many days back to look. Zero means unbounded.",
			},
		},
		"required": []string{"entity_id"},
	}
}
