package parsing

import (
	"strings"

	"github.com/jonathan/newsdesk/internal/types"
)

// Limits applied after recovery
const (
	MaxTags    = 5
	DefaultTag = "news"
)

// applyDefaults fills every field a downstream consumer relies on so a
// recovered result is always complete.
func applyDefaults(r *types.RewriteResult, in RecoveryInput) {
	if strings.TrimSpace(r.Title) == "" {
		r.Title = in.Candidate.Title
	}
	if strings.TrimSpace(r.Summary) == "" {
		r.Summary = leadingSummary(r.Rewritten, summaryWords)
	}

	r.Tags = cleanTags(r.Tags)
	if len(r.Tags) == 0 {
		tag := strings.TrimSpace(in.Candidate.SourceName)
		if tag == "" {
			tag = DefaultTag
		}
		r.Tags = []string{tag}
	}
	if len(r.Tags) > MaxTags {
		r.Tags = r.Tags[:MaxTags]
	}

	if strings.TrimSpace(r.Topic) == "" {
		r.Topic = in.defaultTopic()
	}

	if !r.Category.Valid() {
		r.Category = types.DefaultCategory
	}

	if r.Quotes == nil {
		r.Quotes = []types.Quote{}
	}
	for i := range r.Quotes {
		if !r.Quotes[i].Position.Valid() {
			r.Quotes[i].Position = types.QuoteCenter
		}
	}

	if len(r.Citations) == 0 {
		r.Citations = []types.Citation{in.sourceCitation()}
	}
}

// cleanTags trims tags and drops blanks and case-insensitive duplicates.
func cleanTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
