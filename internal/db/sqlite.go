package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonathan/newsdesk/internal/types"
)

// sqliteTimeLayout sorts lexically in time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps drafts in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	sql sq.StatementBuilderType
}

var _ DraftStore = (*SQLiteStore)(nil)

// OpenSQLite opens the database at dsn. Migrations are applied by Open or
// Migrate.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under the pipeline's concurrent inserts
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &SQLiteStore{
		db:  db,
		sql: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertDraft stores a validated article
func (s *SQLiteStore) InsertDraft(ctx context.Context, article *types.Article) error {
	if err := ValidateArticle(article); err != nil {
		return err
	}

	cols, err := encodeCollections(article)
	if err != nil {
		return err
	}

	published := 0
	if article.Published {
		published = 1
	}

	query, args, err := insertArticle(s.sql, article, cols,
		article.ID.String(), published, formatTime(article.CreatedAt), formatTime(article.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// SourceURLExists reports whether an article was already produced from sourceURL
func (s *SQLiteStore) SourceURLExists(ctx context.Context, sourceURL string) (bool, error) {
	if sourceURL == "" {
		return false, nil
	}

	query, args, err := sourceExistsQuery(s.sql, sourceURL)
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check source url: %w", err)
	}
	return true, nil
}

// ListDrafts returns the newest drafts first
func (s *SQLiteStore) ListDrafts(ctx context.Context, limit int) ([]types.Article, error) {
	query, args, err := listDraftsQuery(s.sql, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var articles []types.Article
	for rows.Next() {
		a, err := scanSQLiteArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}

	return articles, nil
}

func scanSQLiteArticle(rows *sql.Rows) (types.Article, error) {
	var a types.Article
	var cols collections
	var id, category, status, layer, createdAt, updatedAt string
	var published int
	if err := rows.Scan(
		&id, &a.Title, &a.Rewritten, &a.Summary, &a.OriginalBody,
		&cols.Tags, &cols.Citations, &a.Topic, &category, &a.PhotoCredit, &cols.Quotes,
		&a.VoiceID, &a.VoiceName, &a.SourceURL, &a.SourceName,
		&status, &published, &a.QualityScore, &layer,
		&createdAt, &updatedAt,
	); err != nil {
		return a, fmt.Errorf("failed to scan article: %w", err)
	}

	var err error
	if a.ID, err = uuid.Parse(id); err != nil {
		return a, fmt.Errorf("invalid article id %q: %w", id, err)
	}
	if a.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return a, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if a.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return a, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	if err := cols.decodeInto(&a); err != nil {
		return a, err
	}

	a.Category = types.Category(category)
	a.Status = types.ArticleStatus(status)
	a.RecoveryLayer = types.RecoveryLayer(layer)
	a.Published = published != 0
	return a, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func (s *SQLiteStore) migrate(ctx context.Context) ([]string, error) {
	if _, err := s.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := loadMigrations(DriverSQLite)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, m := range migrations {
		var count int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version,
		).Scan(&count)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration %s: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		if err := s.applyMigration(ctx, m); err != nil {
			return applied, err
		}
		applied = append(applied, m.Version)
	}
	return applied, nil
}

func (s *SQLiteStore) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to apply migration %s: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
	}
	return nil
}
