// Package action provides the node that performs financial operations
// against the ledger.
package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fluxofin/fluxo/pkg/ledger"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type ActionNode struct {
	id     string
	config models.ActionConfig
	book   ledger.Ledger
}

func NewActionNode(id string, config map[string]any, book ledger.Ledger) (*ActionNode, error) {
	decoded, err := models.DecodeNodeConfig(models.NodeKindAction, config)
	if err != nil {
		return nil, err
	}

	return &ActionNode{
		id:     id,
		config: decoded.(models.ActionConfig),
		book:   book,
	}, nil
}

func (n *ActionNode) ID() string            { return n.id }
func (n *ActionNode) Kind() models.NodeKind { return models.NodeKindAction }

func (n *ActionNode) Execute(ctx context.Context, ec protocol.ExecutionContext, input models.Payload) (*protocol.Result, error) {
	var (
		transaction *models.Transaction
		err         error
	)

	switch n.config.Operation {
	case models.OperationCreateTransaction:
		transaction, err = n.createTransaction(ctx, ec)
	case models.OperationTransfer:
		transaction, err = n.transfer(ctx, ec)
	default:
		return nil, protocol.Permanent(fmt.Errorf("unknown action operation %q", n.config.Operation))
	}

	if err != nil {
		return nil, err
	}

	output := input.Clone()
	output["transaction_id"] = transaction.ID
	output["operation"] = n.config.Operation
	output["amount_cents"] = n.config.AmountCents

	return &protocol.Result{Output: output}, nil
}

func (n *ActionNode) createTransaction(ctx context.Context, ec protocol.ExecutionContext) (*models.Transaction, error) {
	transaction, err := n.book.CreateTransaction(ctx, &models.Transaction{
		EntityID:            n.config.EntityID,
		AccountID:           n.config.AccountID,
		Type:                models.TransactionTypeDebit,
		AmountCents:         n.config.AmountCents,
		Date:                time.Now().UTC(),
		Description:         n.config.Description,
		Category:            n.config.Category,
		WorkflowExecutionID: ec.ExecutionID,
	})
	if err != nil {
		return nil, classify(fmt.Errorf("create_transaction failed: %w", err))
	}

	return transaction, nil
}

func (n *ActionNode) transfer(ctx context.Context, ec protocol.ExecutionContext) (*models.Transaction, error) {
	transaction, err := n.book.CreateInterEntityTransfer(ctx, &models.TransferRequest{
		FromEntityID:  n.config.FromEntityID,
		ToEntityID:    n.config.ToEntityID,
		FromAccountID: n.config.FromAccount,
		ToAccountID:   n.config.ToAccount,
		AmountCents:   n.config.AmountCents,
		TransferType:  models.InterEntityTransferType(n.config.TransferType),
		Description:   n.config.Description,
		// Stable per execution and node, so a retried attempt lands on the
		// originally created transfer instead of posting twice.
		IdempotencyKey: IdempotencyKey(ec.ExecutionID, n.id),
		ExecutionID:    ec.ExecutionID,
	})
	if err != nil {
		return nil, classify(fmt.Errorf("transfer failed: %w", err))
	}

	return transaction, nil
}

// IdempotencyKey derives the transfer dedup key from run and node identity.
func IdempotencyKey(executionID, nodeID string) string {
	return fmt.Sprintf("exec:%s:node:%s", executionID, nodeID)
}

// classify marks failures that retrying cannot fix as permanent. Transient
// ledger failures (connectivity, timeouts) stay retryable.
func classify(err error) error {
	if errors.Is(err, ledger.ErrEntityNotFound) ||
		errors.Is(err, ledger.ErrAccountNotFound) ||
		errors.Is(err, ledger.ErrInsufficientFunds) {
		return protocol.Permanent(err)
	}

	return err
}
