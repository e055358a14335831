// pkg/db/migrate.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

// migrationRunner is the part of *goose.Provider that Migrate needs.
type migrationRunner interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
}

// newMigrationProvider is a seam for testing goose.NewProvider. A provider keeps
// its dialect and filesystem to itself, so concurrent Migrate calls on different
// connections do not share goose's package-level state.
var newMigrationProvider = func(db *sql.DB, migrations fs.FS) (migrationRunner, error) {
	return goose.NewProvider(goose.DialectPostgres, db, migrations)
}

// Migrate applies every pending goose migration found at the root of migrations.
func Migrate(ctx context.Context, dbConn *sqlx.DB, migrations fs.FS) error {
	provider, err := newMigrationProvider(dbConn.DB, migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		slog.InfoContext(ctx, "Migration applied", "source", r.Source.Path, "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}
