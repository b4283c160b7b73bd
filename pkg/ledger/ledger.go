// Package ledger defines the collaborator contract the engine uses to read
// and produce financial transactions. The ledger owns transaction data; the
// engine only calls these operations from source and action nodes.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/fluxofin/fluxo/pkg/models"
)

// Standard ledger error types all implementations should use.
var (
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEntityNotFound indicates the referenced entity does not exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInsufficientFunds indicates a transfer would overdraw the source account.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateOperation indicates the idempotency key was already used;
	// the original transaction is returned instead of a new one.
	ErrDuplicateOperation = errors.New("duplicate ledger operation")
)

// OperationError wraps a ledger failure with operation context.
type OperationError struct {
	Op        string
	EntityID  string
	AccountID string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed for entity %s account %s: %v", e.Op, e.EntityID, e.AccountID, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Ledger is the engine's view of the bookkeeping system.
type Ledger interface {
	// CreateTransaction posts a single transaction and returns it with its
	// assigned identity.
	CreateTransaction(ctx context.Context, transaction *models.Transaction) (*models.Transaction, error)

	// CreateInterEntityTransfer posts the linked debit/credit pair for a
	// transfer between entities and returns the debit side. The request's
	// idempotency key makes retried calls safe: a repeated key returns the
	// originally created transaction.
	CreateInterEntityTransfer(ctx context.Context, request *models.TransferRequest) (*models.Transaction, error)

	// TransactionsByFilter returns transactions matching the filter, newest
	// first.
	TransactionsByFilter(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error)
}
