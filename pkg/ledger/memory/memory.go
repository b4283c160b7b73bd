// Package memory provides an in-memory ledger implementation for tests and
// local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fluxofin/fluxo/pkg/ledger"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/google/uuid"
)

// Ledger keeps all transactions in memory, guarded by a single mutex.
type Ledger struct {
	mu             sync.Mutex
	transactions   []*models.Transaction
	byIdempotency  map[string]*models.Transaction
	failNextCreate int // test hook: number of upcoming creates to fail
	failErr        error
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		byIdempotency: make(map[string]*models.Transaction),
	}
}

// FailNextCreates makes the next n create operations return err. Used by
// tests to exercise retry behavior.
func (l *Ledger) FailNextCreates(n int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.failNextCreate = n
	l.failErr = err
}

// Seed inserts transactions directly, bypassing validation. Test helper.
func (l *Ledger) Seed(transactions ...*models.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.transactions = append(l.transactions, transactions...)
}

func (l *Ledger) CreateTransaction(ctx context.Context, transaction *models.Transaction) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.maybeFail(); err != nil {
		return nil, &ledger.OperationError{
			Op:        "CreateTransaction",
			EntityID:  transaction.EntityID,
			AccountID: transaction.AccountID,
			Err:       err,
		}
	}

	created := *transaction
	created.ID = uuid.New().String()
	created.CreatedAt = time.Now().UTC()

	if created.Date.IsZero() {
		created.Date = created.CreatedAt
	}

	l.transactions = append(l.transactions, &created)

	return &created, nil
}

func (l *Ledger) CreateInterEntityTransfer(ctx context.Context, request *models.TransferRequest) (*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if request.IdempotencyKey != "" {
		if existing, ok := l.byIdempotency[request.IdempotencyKey]; ok {
			return existing, nil
		}
	}

	if err := l.maybeFail(); err != nil {
		return nil, &ledger.OperationError{
			Op:        "CreateInterEntityTransfer",
			EntityID:  request.FromEntityID,
			AccountID: request.FromAccountID,
			Err:       err,
		}
	}

	now := time.Now().UTC()

	credit := &models.Transaction{
		ID:                  uuid.New().String(),
		EntityID:            request.ToEntityID,
		AccountID:           request.ToAccountID,
		Type:                models.TransactionTypeCredit,
		AmountCents:         request.AmountCents,
		Date:                now,
		Description:         request.Description,
		IsInterEntity:       true,
		InterEntityType:     request.TransferType,
		RelatedEntityID:     request.FromEntityID,
		WorkflowExecutionID: request.ExecutionID,
		CreatedAt:           now,
	}

	debit := &models.Transaction{
		ID:                   uuid.New().String(),
		EntityID:             request.FromEntityID,
		AccountID:            request.FromAccountID,
		Type:                 models.TransactionTypeDebit,
		AmountCents:          request.AmountCents,
		Date:                 now,
		Description:          request.Description,
		IsInterEntity:        true,
		InterEntityType:      request.TransferType,
		RelatedTransactionID: credit.ID,
		RelatedEntityID:      request.ToEntityID,
		WorkflowExecutionID:  request.ExecutionID,
		CreatedAt:            now,
	}

	credit.RelatedTransactionID = debit.ID

	l.transactions = append(l.transactions, debit, credit)

	if request.IdempotencyKey != "" {
		l.byIdempotency[request.IdempotencyKey] = debit
	}

	return debit, nil
}

func (l *Ledger) TransactionsByFilter(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var matched []*models.Transaction

	for _, transaction := range l.transactions {
		if matches(transaction, filter) {
			matched = append(matched, transaction)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Date.After(matched[j].Date)
	})

	return matched, nil
}

func matches(t *models.Transaction, f models.TransactionFilter) bool {
	if f.EntityID != "" && t.EntityID != f.EntityID {
		return false
	}

	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}

	if f.Category != "" && t.Category != f.Category {
		return false
	}

	if f.MinAmountCents != 0 && t.AmountCents < f.MinAmountCents {
		return false
	}

	if f.MaxAmountCents != 0 && t.AmountCents > f.MaxAmountCents {
		return false
	}

	if f.Since != nil && t.Date.Before(*f.Since) {
		return false
	}

	return true
}

func (l *Ledger) maybeFail() error {
	if l.failNextCreate > 0 {
		l.failNextCreate--

		return l.failErr
	}

	return nil
}
