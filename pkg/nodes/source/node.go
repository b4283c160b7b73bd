// Package source provides the node that seeds the run payload with ledger
// transactions matching a filter.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/fluxofin/fluxo/pkg/ledger"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type SourceNode struct {
	id     string
	config models.SourceConfig
	book   ledger.Ledger
}

func NewSourceNode(id string, config map[string]any, book ledger.Ledger) (*SourceNode, error) {
	decoded, err := models.DecodeNodeConfig(models.NodeKindSource, config)
	if err != nil {
		return nil, err
	}

	return &SourceNode{
		id:     id,
		config: decoded.(models.SourceConfig),
		book:   book,
	}, nil
}

func (n *SourceNode) ID() string            { return n.id }
func (n *SourceNode) Kind() models.NodeKind { return models.NodeKindSource }

// Execute queries the ledger and emits the matching transactions along with
// summary fields the downstream conditions usually branch on.
func (n *SourceNode) Execute(ctx context.Context, ec protocol.ExecutionContext, input models.Payload) (*protocol.Result, error) {
	filter := models.TransactionFilter{
		EntityID:       n.config.EntityID,
		AccountID:      n.config.AccountID,
		Category:       n.config.Category,
		MinAmountCents: n.config.MinAmountCents,
		MaxAmountCents: n.config.MaxAmountCents,
	}

	if n.config.LookbackDays > 0 {
		since := time.Now().UTC().AddDate(0, 0, -n.config.LookbackDays)
		filter.Since = &since
	}

	transactions, err := n.book.TransactionsByFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("source query failed: %w", err)
	}

	var totalCents int64

	items := make([]any, 0, len(transactions))
	for _, transaction := range transactions {
		totalCents += transaction.AmountCents
		items = append(items, transaction)
	}

	output := input.Clone()
	output["transactions"] = items
	output["transaction_count"] = len(transactions)
	output["total_amount_cents"] = totalCents
	output["entity_id"] = n.config.EntityID

	return &protocol.Result{Output: output}, nil
}
