package db

import (
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/jonathan/newsdesk/internal/types"
)

const articlesTable = "articles"

var articleColumns = []string{
	"id", "title", "rewritten", "summary", "original_body",
	"tags", "citations", "topic", "category", "photo_credit", "quotes",
	"voice_id", "voice_name", "source_url", "source_name",
	"status", "published", "quality_score", "recovery_layer",
	"created_at", "updated_at",
}

// collections holds the JSON-encoded list columns of an article.
type collections struct {
	Tags      string
	Citations string
	Quotes    string
}

func encodeCollections(a *types.Article) (collections, error) {
	var c collections
	var err error
	if c.Tags, err = encodeList(a.Tags); err != nil {
		return c, fmt.Errorf("failed to marshal tags: %w", err)
	}
	if c.Citations, err = encodeList(a.Citations); err != nil {
		return c, fmt.Errorf("failed to marshal citations: %w", err)
	}
	if c.Quotes, err = encodeList(a.Quotes); err != nil {
		return c, fmt.Errorf("failed to marshal quotes: %w", err)
	}
	return c, nil
}

// encodeList marshals a slice, storing nil as an empty JSON array.
func encodeList[T any](list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c collections) decodeInto(a *types.Article) error {
	if err := json.Unmarshal([]byte(c.Tags), &a.Tags); err != nil {
		return fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(c.Citations), &a.Citations); err != nil {
		return fmt.Errorf("failed to unmarshal citations: %w", err)
	}
	if err := json.Unmarshal([]byte(c.Quotes), &a.Quotes); err != nil {
		return fmt.Errorf("failed to unmarshal quotes: %w", err)
	}
	return nil
}

// insertArticle builds the INSERT for a; id, published and the timestamps
// are passed in the backend's own representation.
func insertArticle(b sq.StatementBuilderType, a *types.Article, c collections, id, published, createdAt, updatedAt any) (string, []any, error) {
	return b.Insert(articlesTable).
		Columns(articleColumns...).
		Values(
			id, a.Title, a.Rewritten, a.Summary, a.OriginalBody,
			c.Tags, c.Citations, a.Topic, string(a.Category), a.PhotoCredit, c.Quotes,
			a.VoiceID, a.VoiceName, a.SourceURL, a.SourceName,
			string(a.Status), published, a.QualityScore, string(a.RecoveryLayer),
			createdAt, updatedAt,
		).
		ToSql()
}

func sourceExistsQuery(b sq.StatementBuilderType, sourceURL string) (string, []any, error) {
	return b.Select("1").
		From(articlesTable).
		Where(sq.Eq{"source_url": sourceURL}).
		Limit(1).
		ToSql()
}

func listDraftsQuery(b sq.StatementBuilderType, limit int) (string, []any, error) {
	return b.Select(articleColumns...).
		From(articlesTable).
		Where(sq.Eq{"status": string(types.StatusDraft)}).
		OrderBy("created_at DESC", "id").
		Limit(clampLimit(limit)).
		ToSql()
}
