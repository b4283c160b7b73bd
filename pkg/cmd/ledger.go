package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fluxofin/fluxo/pkg/ledger"
	"github.com/fluxofin/fluxo/pkg/ledger/memory"
	"github.com/fluxofin/fluxo/pkg/ledger/postgresql"
)

// NewLedger picks the transaction book the action and source nodes run
// against. It shares the persistence URL: a postgres store gets a postgres
// ledger, anything else gets the in-memory book.
func NewLedger(ctx context.Context, logger *slog.Logger, databaseURL string) (ledger.Ledger, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		book, err := postgresql.NewLedger(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return book, nil
	}

	return memory.NewLedger(), nil
}
