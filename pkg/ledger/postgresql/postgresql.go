// Package postgresql provides a PostgreSQL-backed ledger implementation.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluxofin/fluxo/pkg/ledger"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/persistence/sqlbase"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver
)

// Ledger stores transactions in a PostgreSQL table.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLedger connects to PostgreSQL and runs the ledger migrations.
func NewLedger(ctx context.Context, logger *slog.Logger, databaseURL string) (*Ledger, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	manager := sqlbase.NewMigrationManager(logger, database, "ledger_schema_migrations", migrations())
	if err := manager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run ledger migrations: %w", err)
	}

	return &Ledger{db: database, logger: logger}, nil
}

// Close closes the database connection.
func (l *Ledger) Close(ctx context.Context) error {
	return l.db.Close()
}

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS transactions (
				id TEXT PRIMARY KEY,
				entity_id TEXT NOT NULL,
				account_id TEXT NOT NULL,
				type TEXT NOT NULL,
				amount_cents BIGINT NOT NULL,
				date TIMESTAMP WITH TIME ZONE NOT NULL,
				description TEXT NOT NULL,
				category TEXT,
				is_inter_entity BOOLEAN NOT NULL DEFAULT FALSE,
				inter_entity_type TEXT,
				related_transaction_id TEXT,
				related_entity_id TEXT,
				workflow_execution_id TEXT,
				idempotency_key TEXT UNIQUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_transactions_entity_date ON transactions (entity_id, date);
			CREATE INDEX IF NOT EXISTS idx_transactions_account_date ON transactions (account_id, date);
			CREATE INDEX IF NOT EXISTS idx_transactions_execution ON transactions (workflow_execution_id);
		`,
	}
}

func (l *Ledger) CreateTransaction(ctx context.Context, transaction *models.Transaction) (*models.Transaction, error) {
	created := *transaction
	created.ID = uuid.New().String()
	created.CreatedAt = time.Now().UTC()

	if created.Date.IsZero() {
		created.Date = created.CreatedAt
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, entity_id, account_id, type, amount_cents, date, description,
			category, is_inter_entity, inter_entity_type, related_transaction_id,
			related_entity_id, workflow_execution_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		created.ID, created.EntityID, created.AccountID, created.Type,
		created.AmountCents, created.Date, created.Description,
		nullable(created.Category), created.IsInterEntity,
		nullable(string(created.InterEntityType)),
		nullable(created.RelatedTransactionID), nullable(created.RelatedEntityID),
		nullable(created.WorkflowExecutionID), created.CreatedAt,
	)
	if err != nil {
		return nil, &ledger.OperationError{
			Op:        "CreateTransaction",
			EntityID:  created.EntityID,
			AccountID: created.AccountID,
			Err:       err,
		}
	}

	return &created, nil
}

func (l *Ledger) CreateInterEntityTransfer(ctx context.Context, request *models.TransferRequest) (*models.Transaction, error) {
	if request.IdempotencyKey != "" {
		existing, err := l.transactionByIdempotencyKey(ctx, request.IdempotencyKey)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		if existing != nil {
			return existing, nil
		}
	}

	now := time.Now().UTC()
	debitID := uuid.New().String()
	creditID := uuid.New().String()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transfer transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insert = `
		INSERT INTO transactions (
			id, entity_id, account_id, type, amount_cents, date, description,
			is_inter_entity, inter_entity_type, related_transaction_id,
			related_entity_id, workflow_execution_id, idempotency_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9, $10, $11, $12, $13)`

	_, err = tx.ExecContext(ctx, insert,
		debitID, request.FromEntityID, request.FromAccountID,
		models.TransactionTypeDebit, request.AmountCents, now,
		request.Description, string(request.TransferType), creditID,
		request.ToEntityID, nullable(request.ExecutionID),
		nullable(request.IdempotencyKey), now,
	)
	if err != nil {
		return nil, transferError(request, err)
	}

	_, err = tx.ExecContext(ctx, insert,
		creditID, request.ToEntityID, request.ToAccountID,
		models.TransactionTypeCredit, request.AmountCents, now,
		request.Description, string(request.TransferType), debitID,
		request.FromEntityID, nullable(request.ExecutionID), nil, now,
	)
	if err != nil {
		return nil, transferError(request, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, transferError(request, err)
	}

	return &models.Transaction{
		ID:                   debitID,
		EntityID:             request.FromEntityID,
		AccountID:            request.FromAccountID,
		Type:                 models.TransactionTypeDebit,
		AmountCents:          request.AmountCents,
		Date:                 now,
		Description:          request.Description,
		IsInterEntity:        true,
		InterEntityType:      request.TransferType,
		RelatedTransactionID: creditID,
		RelatedEntityID:      request.ToEntityID,
		WorkflowExecutionID:  request.ExecutionID,
		CreatedAt:            now,
	}, nil
}

func (l *Ledger) TransactionsByFilter(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error) {
	query := `
		SELECT id, entity_id, account_id, type, amount_cents, date, description,
			COALESCE(category, ''), is_inter_entity, COALESCE(inter_entity_type, ''),
			COALESCE(related_transaction_id, ''), COALESCE(related_entity_id, ''),
			COALESCE(workflow_execution_id, ''), created_at
		FROM transactions
		WHERE ($1 = '' OR entity_id = $1)
			AND ($2 = '' OR account_id = $2)
			AND ($3 = '' OR category = $3)
			AND ($4 = 0 OR amount_cents >= $4)
			AND ($5 = 0 OR amount_cents <= $5)
			AND ($6::timestamptz IS NULL OR date >= $6)
		ORDER BY date DESC`

	var since any
	if filter.Since != nil {
		since = *filter.Since
	}

	rows, err := l.db.QueryContext(ctx, query,
		filter.EntityID, filter.AccountID, filter.Category,
		filter.MinAmountCents, filter.MaxAmountCents, since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction

	for rows.Next() {
		var t models.Transaction

		var interEntityType string

		err := rows.Scan(
			&t.ID, &t.EntityID, &t.AccountID, &t.Type, &t.AmountCents,
			&t.Date, &t.Description, &t.Category, &t.IsInterEntity,
			&interEntityType, &t.RelatedTransactionID, &t.RelatedEntityID,
			&t.WorkflowExecutionID, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		t.InterEntityType = models.InterEntityTransferType(interEntityType)
		transactions = append(transactions, &t)
	}

	return transactions, rows.Err()
}

func (l *Ledger) transactionByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	var t models.Transaction

	var interEntityType string

	err := l.db.QueryRowContext(ctx, `
		SELECT id, entity_id, account_id, type, amount_cents, date, description,
			is_inter_entity, COALESCE(inter_entity_type, ''),
			COALESCE(related_transaction_id, ''), COALESCE(related_entity_id, ''),
			COALESCE(workflow_execution_id, ''), created_at
		FROM transactions WHERE idempotency_key = $1`, key).Scan(
		&t.ID, &t.EntityID, &t.AccountID, &t.Type, &t.AmountCents, &t.Date,
		&t.Description, &t.IsInterEntity, &interEntityType,
		&t.RelatedTransactionID, &t.RelatedEntityID, &t.WorkflowExecutionID,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.InterEntityType = models.InterEntityTransferType(interEntityType)

	return &t, nil
}

func transferError(request *models.TransferRequest, err error) error {
	return &ledger.OperationError{
		Op:        "CreateInterEntityTransfer",
		EntityID:  request.FromEntityID,
		AccountID: request.FromAccountID,
		Err:       err,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}
