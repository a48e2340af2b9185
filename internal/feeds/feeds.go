// Package feeds fetches candidate news items from a roster of syndication
// feeds. Every source is fetched in isolation: one slow or broken feed only
// removes itself from the run.
package feeds

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/newsdesk/internal/fetch"
	"github.com/jonathan/newsdesk/internal/types"
)

// Defaults for Options zero values
const (
	DefaultSampleSize    = 4
	DefaultPerSourceCap  = 2
	DefaultFallbackLimit = 2
	DefaultTimeout       = 10 * time.Second
	DefaultUserAgent     = fetch.DefaultUserAgent
)

// Source is one named syndication endpoint in the roster.
type Source struct {
	Name    string `yaml:"name" json:"name" validate:"required"`
	URL     string `yaml:"url" json:"url" validate:"required,url"`
	Section string `yaml:"section,omitempty" json:"section,omitempty"`
}

// Options tunes sampling, matching, and enrichment.
type Options struct {
	SampleSize     int
	PerSourceCap   int
	FallbackLimit  int
	Timeout        time.Duration
	UserAgent      string
	EnrichFullText bool
	EnrichMinWords int
}

func (o Options) withDefaults() Options {
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	if o.PerSourceCap <= 0 {
		o.PerSourceCap = DefaultPerSourceCap
	}
	if o.FallbackLimit <= 0 {
		o.FallbackLimit = DefaultFallbackLimit
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

// MaxCandidates is the most Fetch can return for these options.
func (o Options) MaxCandidates() int {
	o = o.withDefaults()
	return o.SampleSize * o.PerSourceCap
}

// Client fetches and normalizes feed items for a topic.
type Client struct {
	sources []Source
	opts    Options
	logger  *zap.Logger
	fetcher Fetcher

	pageReader PageReader

	mu  sync.Mutex
	rng *rand.Rand
}

// Option customizes a Client.
type Option func(*Client)

// WithRand makes source sampling deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(c *Client) { c.rng = rng }
}

// WithFetcher replaces the HTTP feed fetcher.
func WithFetcher(f Fetcher) Option {
	return func(c *Client) { c.fetcher = f }
}

// NewClient creates a feed client over the given roster.
func NewClient(sources []Source, opts Options, logger *zap.Logger, options ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	c := &Client{
		sources: append([]Source(nil), sources...),
		opts:    opts,
		logger:  logger.Named("feeds"),
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6e657773)),
	}
	c.fetcher = &HTTPFetcher{Options: &fetch.Options{Timeout: opts.Timeout, UserAgent: opts.UserAgent}}
	for _, o := range options {
		o(c)
	}
	return c
}

// Sources returns a copy of the configured roster.
func (c *Client) Sources() []Source {
	return append([]Source(nil), c.sources...)
}

// sourceResult is the outcome of fetching one sampled source.
type sourceResult struct {
	source Source
	items  []types.RawCandidate
	err    error
}

// Fetch returns up to SampleSize*PerSourceCap deduplicated candidates for
// topic. It never returns an error: unreachable sources are logged and
// skipped, and an empty slice means nothing usable was found.
func (c *Client) Fetch(ctx context.Context, topic string) []types.RawCandidate {
	logger := c.logger.With(zap.String("topic", topic))

	sampled := c.sample()
	if len(sampled) == 0 {
		logger.Warn("feed roster is empty")
		return nil
	}

	results := c.fetchAll(ctx, sampled)

	var reachable []sourceResult
	for _, r := range results {
		if r.err != nil {
			logger.Warn("source unavailable",
				zap.String("source", r.source.Name),
				zap.String("url", r.source.URL),
				zap.Error(r.err))
			continue
		}
		reachable = append(reachable, r)
	}

	if len(reachable) == 0 {
		logger.Warn("no sampled source was reachable", zap.Int("sampled", len(sampled)))
		return nil
	}

	matcher := NewMatcher(topic)
	if matcher.Words() == 0 {
		logger.Warn("topic has no significant words; only recent items can be returned")
	}
	seen := make(map[string]bool)
	candidates := make([]types.RawCandidate, 0, c.opts.MaxCandidates())
	for _, r := range reachable {
		taken := 0
		for _, item := range r.items {
			if taken >= c.opts.PerSourceCap {
				break
			}
			if !matcher.Match(item.Text()) {
				continue
			}
			key := item.DedupKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, item)
			taken++
		}
	}

	if len(candidates) == 0 {
		candidates = c.fallback(reachable)
		logger.Info("no items matched topic; using most recent items",
			zap.Int("reachable_sources", len(reachable)),
			zap.Int("fallback_count", len(candidates)))
	}

	if c.opts.EnrichFullText {
		c.enrich(ctx, candidates)
	}

	logger.Info("fetched candidates",
		zap.Int("sampled", len(sampled)),
		zap.Int("reachable", len(reachable)),
		zap.Int("candidates", len(candidates)))
	return candidates
}

// sample picks SampleSize distinct sources uniformly at random.
func (c *Client) sample() []Source {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.opts.SampleSize
	if n > len(c.sources) {
		n = len(c.sources)
	}
	picked := make([]Source, 0, n)
	for _, idx := range c.rng.Perm(len(c.sources))[:n] {
		picked = append(picked, c.sources[idx])
	}
	return picked
}

// fetchAll fetches every sampled source concurrently, each under its own
// timeout. Results keep the sampled order.
func (c *Client) fetchAll(ctx context.Context, sampled []Source) []sourceResult {
	results := make([]sourceResult, len(sampled))

	var g errgroup.Group
	for i, src := range sampled {
		g.Go(func() error {
			srcCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
			defer cancel()

			items, err := c.fetcher.FetchSource(srcCtx, src)
			if err != nil {
				err = &SourceError{Source: src.Name, URL: src.URL, Cause: err}
			}
			results[i] = sourceResult{source: src, items: items, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fallback takes the single most recent item of each reachable source,
// ignoring the topic, up to FallbackLimit items.
func (c *Client) fallback(reachable []sourceResult) []types.RawCandidate {
	var recent []types.RawCandidate
	for _, r := range reachable {
		if item, ok := mostRecent(r.items); ok {
			recent = append(recent, item)
		}
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].PublishedAt.After(recent[j].PublishedAt)
	})

	seen := make(map[string]bool)
	var out []types.RawCandidate
	for _, item := range recent {
		if len(out) >= c.opts.FallbackLimit {
			break
		}
		key := item.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// mostRecent returns the newest item; feeds without dates fall back to the
// first entry since publishers list newest first.
func mostRecent(items []types.RawCandidate) (types.RawCandidate, bool) {
	if len(items) == 0 {
		return types.RawCandidate{}, false
	}
	best := items[0]
	for _, item := range items[1:] {
		if item.PublishedAt.After(best.PublishedAt) {
			best = item
		}
	}
	return best, true
}
