package feeds

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/newsdesk/internal/fetch"
	"github.com/jonathan/newsdesk/internal/types"
)

// PageReader extracts the readable text of an article page.
type PageReader interface {
	ReadPage(ctx context.Context, pageURL string) (string, error)
}

type readabilityReader struct {
	opts *fetch.Options
}

func (r readabilityReader) ReadPage(ctx context.Context, pageURL string) (string, error) {
	page, err := fetch.ReadableWithTimeout(ctx, pageURL, r.opts.Timeout, r.opts)
	if err != nil {
		return "", err
	}
	return page.Text, nil
}

// WithPageReader replaces the full-text extractor used for enrichment.
func WithPageReader(r PageReader) Option {
	return func(c *Client) { c.pageReader = r }
}

// enrich replaces thin feed bodies with the article page's full text.
// Failures leave the candidate untouched.
func (c *Client) enrich(ctx context.Context, candidates []types.RawCandidate) {
	reader := c.pageReader
	if reader == nil {
		reader = readabilityReader{opts: &fetch.Options{Timeout: c.opts.Timeout, UserAgent: c.opts.UserAgent}}
	}

	var g errgroup.Group
	g.SetLimit(c.opts.SampleSize)
	for i := range candidates {
		cand := &candidates[i]
		if cand.URL == "" || wordCount(cand.Content()) >= c.opts.EnrichMinWords {
			continue
		}
		g.Go(func() error {
			text, err := reader.ReadPage(ctx, cand.URL)
			if err != nil {
				c.logger.Debug("full-text enrichment failed",
					zap.String("title", cand.Title),
					zap.String("url", cand.URL),
					zap.Error(err))
				return nil
			}
			if wordCount(text) > wordCount(cand.Content()) {
				cand.Body = text
			}
			return nil
		})
	}
	_ = g.Wait()
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
