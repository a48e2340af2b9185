package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// ReadablePage is the reader-view extraction of an article page.
type ReadablePage struct {
	Title   string
	Byline  string
	Excerpt string
	Text    string
}

// Readable downloads an article page and extracts its reader-view text.
// When readability finds no content the page's main text is used instead.
func Readable(ctx context.Context, pageURL string, opts *Options) (*ReadablePage, error) {
	result, err := URL(ctx, pageURL, opts)
	if err != nil {
		return nil, err
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, &Error{URL: pageURL, Message: "invalid URL", Cause: err}
	}

	article, err := readability.FromReader(bytes.NewReader(result.Body), parsedURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		return &ReadablePage{
			Title:   article.Title,
			Byline:  article.Byline,
			Excerpt: article.Excerpt,
			Text:    HTMLToText(article.Content),
		}, nil
	}

	text, extractErr := ExtractMainText(string(result.Body), DefaultTextSelectors())
	if extractErr != nil {
		return nil, &Error{URL: pageURL, Message: "no readable content", Cause: extractErr}
	}
	if text == "" {
		return nil, &Error{URL: pageURL, Message: "no readable content", Cause: err}
	}
	return &ReadablePage{Text: text}, nil
}

// ReadableWithTimeout wraps Readable with its own deadline.
func ReadableWithTimeout(ctx context.Context, pageURL string, timeout time.Duration, opts *Options) (*ReadablePage, error) {
	if timeout <= 0 {
		return Readable(ctx, pageURL, opts)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := Readable(ctx, pageURL, opts)
	if err != nil {
		return nil, fmt.Errorf("readable %s: %w", pageURL, err)
	}
	return page, nil
}
