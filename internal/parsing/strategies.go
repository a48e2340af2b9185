package parsing

import (
	"regexp"
	"strings"

	"github.com/jonathan/newsdesk/internal/types"
)

// Strategy is one recovery layer. Layers are tried in order and the first
// that produces an Outcome wins.
type Strategy interface {
	Layer() types.RecoveryLayer
	Attempt(raw string, in RecoveryInput) (*Outcome, error)
}

// Outcome is a layer's result plus the decoded document it came from, when
// there was one.
type Outcome struct {
	Result   *types.RewriteResult
	Document map[string]any
}

// DefaultStrategies returns the layers in the order they are attempted.
func DefaultStrategies() []Strategy {
	return []Strategy{
		StructuralStrategy{},
		LooseStrategy{},
		DegradedStrategy{},
	}
}

// StructuralStrategy strips a code fence and decodes the interior, fixing
// lexical and structural damage only when strict decoding fails.
type StructuralStrategy struct{}

// Layer implements Strategy.
func (StructuralStrategy) Layer() types.RecoveryLayer { return types.LayerStructural }

// Attempt implements Strategy.
func (s StructuralStrategy) Attempt(raw string, _ RecoveryInput) (*Outcome, error) {
	return decodeOutcome(s.Layer(), extractFenced(raw))
}

var outermostObject = regexp.MustCompile(`(?s)\{.*\}`)

// LooseStrategy takes the outermost {...} span from the raw text, ignoring
// whatever prose or fencing surrounds it.
type LooseStrategy struct{}

// Layer implements Strategy.
func (LooseStrategy) Layer() types.RecoveryLayer { return types.LayerLoose }

// Attempt implements Strategy.
func (s LooseStrategy) Attempt(raw string, _ RecoveryInput) (*Outcome, error) {
	span := outermostObject.FindString(raw)
	if span == "" {
		return nil, &LayerError{Layer: s.Layer(), Message: "no object span in text"}
	}
	return decodeOutcome(s.Layer(), span)
}

func decodeOutcome(layer types.RecoveryLayer, text string) (*Outcome, error) {
	doc, err := decodeDocument(text)
	if err != nil {
		return nil, &LayerError{Layer: layer, Message: "decode failed", Cause: err}
	}
	result, err := coerce(doc)
	if err != nil {
		return nil, &LayerError{Layer: layer, Message: "unusable document", Cause: err}
	}
	return &Outcome{Result: result, Document: doc}, nil
}

// summaryWords bounds the synthesized summary of a degraded result.
const summaryWords = 40

var (
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+["'”’)]*`)
	tagStripper     = regexp.MustCompile(`<[^>]*>`)
)

// DegradedStrategy keeps the response text as the article body and
// synthesizes every other field. It fails only on blank input.
type DegradedStrategy struct{}

// Layer implements Strategy.
func (DegradedStrategy) Layer() types.RecoveryLayer { return types.LayerDegraded }

// Attempt implements Strategy.
func (s DegradedStrategy) Attempt(raw string, in RecoveryInput) (*Outcome, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &LayerError{Layer: s.Layer(), Message: "blank response"}
	}

	return &Outcome{Result: &types.RewriteResult{
		Title:     in.Candidate.Title,
		Rewritten: raw,
		Summary:   leadingSummary(raw, summaryWords),
		Tags:      []string{DefaultTag},
		Citations: []types.Citation{in.sourceCitation()},
		Topic:     in.defaultTopic(),
		Category:  types.DefaultCategory,
		Quotes:    []types.Quote{},
	}}, nil
}

// leadingSummary takes whole leading sentences up to maxWords. A first
// sentence longer than that is cut at maxWords.
func leadingSummary(text string, maxWords int) string {
	plain := strings.Join(strings.Fields(tagStripper.ReplaceAllString(text, " ")), " ")
	if plain == "" {
		return ""
	}

	var words []string
	for _, sentence := range sentencePattern.FindAllString(plain, -1) {
		sw := strings.Fields(sentence)
		if len(words)+len(sw) > maxWords {
			break
		}
		words = append(words, sw...)
	}
	if len(words) == 0 {
		words = strings.Fields(plain)
		if len(words) > maxWords {
			words = words[:maxWords]
		}
	}
	return strings.Join(words, " ")
}

func (in RecoveryInput) defaultTopic() string {
	if len(in.Topics) > 0 {
		return in.Topics[0]
	}
	return ""
}

func (in RecoveryInput) sourceCitation() types.Citation {
	title := in.Candidate.Title
	if title == "" {
		title = in.Candidate.SourceName
	}
	return types.Citation{Title: title, URL: in.Candidate.URL}
}
