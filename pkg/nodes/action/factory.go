package action

import (
	"context"

	"github.com/fluxofin/fluxo/pkg/ledger"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

// ActionNodeFactory creates ActionNode instances bound to a ledger.
type ActionNodeFactory struct {
	book ledger.Ledger
}

func NewActionNodeFactory(book ledger.Ledger) protocol.NodeFactory {
	return &ActionNodeFactory{book: book}
}

func (f *ActionNodeFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewActionNode(id, config, f.book)
}

func (f *ActionNodeFactory) Kind() models.NodeKind {
	return models.NodeKindAction
}

func (f *ActionNodeFactory) Name() string {
	return "Ledger Action"
}

func (f *ActionNodeFactory) Description() string {
	return "Performs a financial operation: posting a transaction or moving money between entities."
}

func (f *ActionNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type": "string",
				"enum": []string{models.OperationCreateTransaction, models.OperationTransfer},
			},
			"entity_id":      map[string]any{"type": "string"},
			"account_id":     map[string]any{"type": "string"},
			"from_entity_id": map[string]any{"type": "string"},
			"to_entity_id":   map[string]any{"type": "string"},
			"from_account_id": map[string]any{
				"type": "string",
			},
			"to_account_id": map[string]any{
				"type": "string",
			},
			"amount_cents": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"description": "Amount in cents. Money never travels as floating point.",
			},
			"transfer_type": map[string]any{
				"type": "string",
				"enum": []string{
					string(models.TransferTypeEquityContribution),
					string(models.TransferTypeOwnerDraw),
					string(models.TransferTypeDistribution),
					string(models.TransferTypeLoanToEntity),
					string(models.TransferTypeLoanFromEntity),
					string(models.TransferTypeExpenseReimbursement),
				},
			},
			"category":    map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
		},
		"required": []string{"operation", "amount_cents", "description"},
	}
}
