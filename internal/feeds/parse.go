package feeds

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/jonathan/newsdesk/internal/fetch"
	"github.com/jonathan/newsdesk/internal/types"
)

// Fetcher downloads and normalizes one source's items.
type Fetcher interface {
	FetchSource(ctx context.Context, src Source) ([]types.RawCandidate, error)
}

// HTTPFetcher fetches RSS, Atom, or JSON Feed documents over HTTP.
type HTTPFetcher struct {
	Options *fetch.Options
}

// FetchSource downloads src and converts its entries into candidates.
func (f *HTTPFetcher) FetchSource(ctx context.Context, src Source) ([]types.RawCandidate, error) {
	result, err := fetch.URL(ctx, src.URL, f.Options)
	if err != nil {
		return nil, err
	}
	return ParseFeed(result.Body, src)
}

// ParseFeed converts a feed document into candidates attributed to src.
func ParseFeed(data []byte, src Source) ([]types.RawCandidate, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Source: src.Name, Cause: err}
	}

	sourceName := src.Name
	if sourceName == "" {
		sourceName = strings.TrimSpace(feed.Title)
	}

	items := make([]types.RawCandidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		candidate := types.RawCandidate{
			Title:       fetch.HTMLToText(item.Title),
			Description: fetch.HTMLToText(item.Description),
			Body:        fetch.HTMLToText(item.Content),
			URL:         strings.TrimSpace(item.Link),
			PublishedAt: itemTime(item),
			Author:      itemAuthor(item),
			SourceName:  sourceName,
		}
		if candidate.Title == "" && candidate.Content() == "" {
			continue
		}
		items = append(items, candidate)
	}
	return items, nil
}

func itemTime(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return time.Time{}
	}
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	names := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			names = append(names, a.Name)
		}
	}
	if len(names) > 0 {
		return strings.Join(names, ", ")
	}
	if dc := item.DublinCoreExt; dc != nil && len(dc.Creator) > 0 {
		return dc.Creator[0]
	}
	return ""
}

// SourceError reports a source that could not be used this run.
type SourceError struct {
	Source string
	URL    string
	Cause  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Cause)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}

// ParseError reports a document that is not a recognizable feed.
type ParseError struct {
	Source string
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse feed %s: %v", e.Source, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
