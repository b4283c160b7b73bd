package models

import "time"

// TransactionType classifies a ledger movement.
type TransactionType string

const (
	TransactionTypeDebit    TransactionType = "debit"
	TransactionTypeCredit   TransactionType = "credit"
	TransactionTypeTransfer TransactionType = "transfer"
)

// InterEntityTransferType classifies money moved between bookkeeping entities.
type InterEntityTransferType string

const (
	TransferTypeEquityContribution   InterEntityTransferType = "equity_contribution"
	TransferTypeOwnerDraw            InterEntityTransferType = "owner_draw"
	TransferTypeDistribution         InterEntityTransferType = "distribution"
	TransferTypeLoanToEntity         InterEntityTransferType = "loan_to_entity"
	TransferTypeLoanFromEntity       InterEntityTransferType = "loan_from_entity"
	TransferTypeExpenseReimbursement InterEntityTransferType = "expense_reimbursement"
)

// ValidTransferType reports whether t is a defined inter-entity transfer type.
func ValidTransferType(t InterEntityTransferType) bool {
	switch t {
	case TransferTypeEquityContribution,
		TransferTypeOwnerDraw,
		TransferTypeDistribution,
		TransferTypeLoanToEntity,
		TransferTypeLoanFromEntity,
		TransferTypeExpenseReimbursement:
		return true
	default:
		return false
	}
}

// Transaction is a ledger movement. Ownership lies with the ledger; the
// engine only holds a weak back-reference from transactions it produced to
// the execution that created them.
type Transaction struct {
	ID                   string                  `json:"id"`
	EntityID             string                  `json:"entity_id"   validate:"required"`
	AccountID            string                  `json:"account_id"  validate:"required"`
	Type                 TransactionType         `json:"type"        validate:"required"`
	AmountCents          int64                   `json:"amount_cents"`
	Date                 time.Time               `json:"date"`
	Description          string                  `json:"description" validate:"required"`
	Category             string                  `json:"category,omitempty"`
	IsInterEntity        bool                    `json:"is_inter_entity,omitempty"`
	InterEntityType      InterEntityTransferType `json:"inter_entity_type,omitempty"`
	RelatedTransactionID string                  `json:"related_transaction_id,omitempty"`
	RelatedEntityID      string                  `json:"related_entity_id,omitempty"`
	WorkflowExecutionID  string                  `json:"workflow_execution_id,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
}

// TransactionFilter selects ledger transactions for source nodes.
type TransactionFilter struct {
	EntityID       string     `json:"entity_id,omitempty"`
	AccountID      string     `json:"account_id,omitempty"`
	Category       string     `json:"category,omitempty"`
	MinAmountCents int64      `json:"min_amount_cents,omitempty"`
	MaxAmountCents int64      `json:"max_amount_cents,omitempty"`
	Since          *time.Time `json:"since,omitempty"`
}

// TransferRequest asks the ledger for a paired inter-entity transfer: a debit
// on the source account and a credit on the destination account, linked.
type TransferRequest struct {
	FromEntityID   string                  `json:"from_entity_id"  validate:"required"`
	ToEntityID     string                  `json:"to_entity_id"    validate:"required"`
	FromAccountID  string                  `json:"from_account_id" validate:"required"`
	ToAccountID    string                  `json:"to_account_id"   validate:"required"`
	AmountCents    int64                   `json:"amount_cents"    validate:"required,gt=0"`
	TransferType   InterEntityTransferType `json:"transfer_type"   validate:"required"`
	Description    string                  `json:"description"`
	IdempotencyKey string                  `json:"idempotency_key,omitempty"`
	ExecutionID    string                  `json:"execution_id,omitempty"`
}
