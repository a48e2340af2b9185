// Package db persists draft articles. PostgreSQL is the production backend;
// SQLite serves single-node installs and tests.
package db

import (
	"context"
	"fmt"

	"github.com/jonathan/newsdesk/internal/types"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// List limits for ListDrafts
const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// DraftStore is the persistence boundary of the pipeline. It only inserts;
// status changes belong to the editorial review tooling.
type DraftStore interface {
	// InsertDraft validates and stores a new article. Validation failures
	// are returned as *ValidationError and nothing is written.
	InsertDraft(ctx context.Context, article *types.Article) error
	// SourceURLExists reports whether any stored article, in any status,
	// was produced from sourceURL.
	SourceURLExists(ctx context.Context, sourceURL string) (bool, error)
	// ListDrafts returns the newest drafts first.
	ListDrafts(ctx context.Context, limit int) ([]types.Article, error)
	Close() error
}

type migratingStore interface {
	DraftStore
	migrate(ctx context.Context) ([]string, error)
}

func connect(ctx context.Context, driver, dsn string) (migratingStore, error) {
	switch driver {
	case DriverPostgres, "":
		return Connect(ctx, dsn)
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects to the store selected by driver and applies pending
// migrations.
func Open(ctx context.Context, driver, dsn string) (DraftStore, error) {
	store, err := connect(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := store.migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate %s store: %w", driver, err)
	}
	return store, nil
}

// Migrate applies pending migrations and returns the versions it applied.
func Migrate(ctx context.Context, driver, dsn string) ([]string, error) {
	store, err := connect(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.migrate(ctx)
}

func clampLimit(limit int) uint64 {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return uint64(limit)
	}
}
