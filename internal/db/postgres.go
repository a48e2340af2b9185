package db

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/newsdesk/internal/types"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
	sql  sq.StatementBuilderType
}

var _ DraftStore = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool, sql: newPostgresBuilder()}, nil
}

func newPostgresBuilder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Close closes the connection pool
func (db *DB) Close() error {
	if db.pool != nil {
		db.pool.Close()
	}
	return nil
}

// InsertDraft stores a validated article
func (db *DB) InsertDraft(ctx context.Context, article *types.Article) error {
	if err := ValidateArticle(article); err != nil {
		return err
	}

	cols, err := encodeCollections(article)
	if err != nil {
		return err
	}

	query, args, err := insertArticle(db.sql, article, cols,
		article.ID, article.Published, article.CreatedAt, article.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := db.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// SourceURLExists reports whether an article was already produced from sourceURL
func (db *DB) SourceURLExists(ctx context.Context, sourceURL string) (bool, error) {
	if sourceURL == "" {
		return false, nil
	}

	query, args, err := sourceExistsQuery(db.sql, sourceURL)
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}

	var one int
	err = db.pool.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check source url: %w", err)
	}
	return true, nil
}

// ListDrafts returns the newest drafts first
func (db *DB) ListDrafts(ctx context.Context, limit int) ([]types.Article, error) {
	query, args, err := listDraftsQuery(db.sql, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var articles []types.Article
	for rows.Next() {
		var a types.Article
		var cols collections
		var category, status, layer string
		if err := rows.Scan(
			&a.ID, &a.Title, &a.Rewritten, &a.Summary, &a.OriginalBody,
			&cols.Tags, &cols.Citations, &a.Topic, &category, &a.PhotoCredit, &cols.Quotes,
			&a.VoiceID, &a.VoiceName, &a.SourceURL, &a.SourceName,
			&status, &a.Published, &a.QualityScore, &layer,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		if err := cols.decodeInto(&a); err != nil {
			return nil, err
		}
		a.Category = types.Category(category)
		a.Status = types.ArticleStatus(status)
		a.RecoveryLayer = types.RecoveryLayer(layer)
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}

	return articles, nil
}

func (db *DB) migrate(ctx context.Context) ([]string, error) {
	if _, err := db.pool.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := loadMigrations(DriverPostgres)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, m := range migrations {
		var exists bool
		err := db.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version,
		).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", m.Version, err)
		}
		if exists {
			continue
		}

		if err := db.applyMigration(ctx, m); err != nil {
			return applied, err
		}
		applied = append(applied, m.Version)
	}
	return applied, nil
}

func (db *DB) applyMigration(ctx context.Context, m migration) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to apply migration %s: %w", m.Version, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
	}
	return nil
}
