// Package sqlbase provides the base functionality for SQL database persistence.
package sqlbase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
)

// MigrationManager handles schema migrations for one subsystem's tables,
// tracked in its own versions table so independent subsystems (engine
// persistence, ledger) can migrate separately against the same database.
type MigrationManager struct {
	db         *sql.DB
	logger     *slog.Logger
	table      string
	migrations map[int]string
}

// NewMigrationManager creates a new migration manager.
func NewMigrationManager(logger *slog.Logger, db *sql.DB, table string, migrations map[int]string) *MigrationManager {
	return &MigrationManager{
		db:         db,
		logger:     logger,
		table:      table,
		migrations: migrations,
	}
}

// RunMigrations applies any migrations newer than the recorded version.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	m.logger.InfoContext(ctx, "Starting database migrations", "table", m.table)

	if err := m.createVersionsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := m.currentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, version := range m.pendingVersions(currentVersion) {
		m.logger.InfoContext(ctx, "Applying migration", "version", version)

		if err := m.apply(ctx, version); err != nil {
			return err
		}
	}

	m.logger.InfoContext(ctx, "Database migrations completed")

	return nil
}

func (m *MigrationManager) createVersionsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`, m.table))

	return err
}

func (m *MigrationManager) currentVersion(ctx context.Context) (int, error) {
	var version int

	err := m.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", m.table)).Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// pendingVersions returns unapplied versions in ascending order; map
// iteration order is not deterministic.
func (m *MigrationManager) pendingVersions(from int) []int {
	var versions []int

	for version := range m.migrations {
		if version > from {
			versions = append(versions, version)
		}
	}

	sort.Ints(versions)

	return versions
}

func (m *MigrationManager) apply(ctx context.Context, version int) error {
	transaction, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
	}

	if _, err := transaction.ExecContext(ctx, m.migrations[version]); err != nil {
		_ = transaction.Rollback()

		return fmt.Errorf("failed to execute migration %d: %w", version, err)
	}

	_, err = transaction.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (version) VALUES ($1)", m.table), version)
	if err != nil {
		_ = transaction.Rollback()

		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}

	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", version, err)
	}

	return nil
}
