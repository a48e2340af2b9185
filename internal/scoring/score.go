// Package scoring rates a rewrite for publishable quality. Scores are
// deterministic and depend only on the rewrite itself.
package scoring

import (
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/jonathan/newsdesk/internal/types"
)

// Rule weights
const (
	lengthInBandPoints = 20
	lengthLongPoints   = 10
	paragraphPoints    = 5
	paragraphCap       = 20
	quotePoints        = 5
	markupPoints       = 15
	citationPoints     = 5
	summaryPoints      = 10
	minBandWords       = 500
	maxBandWords       = 1500
	minCreditedWords   = 300
	minSummaryWords    = 20
)

// Score bounds
const (
	MaxScore          = 100
	DefaultAcceptance = 60
)

var (
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	paragraphPattern = regexp.MustCompile(`(?i)<p[\s>/]`)
	emphasisPattern  = regexp.MustCompile(`(?i)<(strong|em|b|i)[\s>]`)
)

// Breakdown is the per-rule contribution to a score.
type Breakdown struct {
	Words      int
	Length     int
	Paragraphs int
	Quotes     int
	Markup     int
	Citations  int
	Summary    int
	Total      int
}

// Evaluate scores r rule by rule. A nil result scores zero.
func Evaluate(r *types.RewriteResult) Breakdown {
	var b Breakdown
	if r == nil {
		return b
	}

	b.Words = len(strings.Fields(tagPattern.ReplaceAllString(r.Rewritten, " ")))
	switch {
	case b.Words >= minBandWords && b.Words <= maxBandWords:
		b.Length = lengthInBandPoints
	case b.Words > minCreditedWords:
		b.Length = lengthLongPoints
	}

	paragraphs := len(paragraphPattern.FindAllStringIndex(r.Rewritten, -1))
	b.Paragraphs = min(paragraphs*paragraphPoints, paragraphCap)

	b.Quotes = len(r.Quotes) * quotePoints

	if paragraphs > 0 && emphasisPattern.MatchString(r.Rewritten) {
		b.Markup = markupPoints
	}

	b.Citations = len(r.Citations) * citationPoints

	if len(strings.Fields(r.Summary)) >= minSummaryWords {
		b.Summary = summaryPoints
	}

	b.Total = min(b.Length+b.Paragraphs+b.Quotes+b.Markup+b.Citations+b.Summary, MaxScore)
	return b
}

// Accept reports whether score clears threshold.
func Accept(score, threshold int) bool {
	return score >= threshold
}

// MarshalLogObject lets a Breakdown be logged with zap.Object.
func (b Breakdown) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("words", b.Words)
	enc.AddInt("length", b.Length)
	enc.AddInt("paragraphs", b.Paragraphs)
	enc.AddInt("quotes", b.Quotes)
	enc.AddInt("markup", b.Markup)
	enc.AddInt("citations", b.Citations)
	enc.AddInt("summary", b.Summary)
	enc.AddInt("total", b.Total)
	return nil
}
