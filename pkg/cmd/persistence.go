// Package cmd provides common initialization for the engine binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fluxofin/fluxo/pkg/persistence"
	"github.com/fluxofin/fluxo/pkg/persistence/file"
	"github.com/fluxofin/fluxo/pkg/persistence/postgresql"
)

// NewPersistence selects the store implementation from the URL scheme:
// file://<dir> or postgres://... / postgresql://...
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return nil, fmt.Errorf("persistence URL %q has no scheme", databaseURL)
	}

	switch scheme {
	case "file":
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return nil, fmt.Errorf("unsupported persistence scheme %q (supported: file, postgres)", scheme)
	}
}
