// Package parsing recovers a structured rewrite from the model's free-text
// response, which is frequently fenced, wrapped in prose, or malformed JSON.
package parsing

import (
	"errors"

	"go.uber.org/zap"

	"github.com/jonathan/newsdesk/internal/logging"
	"github.com/jonathan/newsdesk/internal/schemas"
	"github.com/jonathan/newsdesk/internal/types"
)

// excerptLength bounds how much of a bad response is logged.
const excerptLength = 200

// RecoveryInput is the context a response is recovered against.
type RecoveryInput struct {
	Candidate types.RawCandidate
	Topics    []string
}

// Parser runs the recovery layers in order.
type Parser struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewParser creates a Parser with the default layers.
func NewParser(logger *zap.Logger, strategies ...Strategy) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Parser{strategies: strategies, logger: logger.Named("parsing")}
}

// Recover returns the first layer's result with defaults applied, or
// ok=false when every layer failed. It never panics.
func (p *Parser) Recover(raw string, in RecoveryInput) (result *types.RewriteResult, ok bool) {
	logger := p.logger.With(zap.String("title", in.Candidate.Title))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("response recovery panicked",
				zap.Any("panic", r),
				zap.String("excerpt", logging.Excerpt(raw, excerptLength)))
			result, ok = nil, false
		}
	}()

	for _, s := range p.strategies {
		outcome, err := s.Attempt(raw, in)
		if err != nil {
			logger.Warn("recovery layer failed",
				zap.String("layer", string(s.Layer())),
				zap.String("excerpt", logging.Excerpt(raw, excerptLength)),
				zap.Error(err))
			continue
		}
		if outcome == nil || outcome.Result == nil {
			continue
		}

		if outcome.Document != nil {
			p.logSchemaDiagnostics(logger, outcome.Document)
		}

		result = outcome.Result
		result.Layer = s.Layer()
		applyDefaults(result, in)

		if result.Degraded() {
			logger.Warn("response recovered as degraded text",
				zap.Int("response_chars", len(raw)))
		}
		return result, true
	}

	logger.Error("response unrecoverable",
		zap.String("excerpt", logging.Excerpt(raw, excerptLength)))
	return nil, false
}

// logSchemaDiagnostics records how the decoded document departs from the
// requested shape. Defaults repair these; the log explains what was repaired.
func (p *Parser) logSchemaDiagnostics(logger *zap.Logger, doc map[string]any) {
	err := schemas.ValidateRewriteDocument(doc)
	if err == nil {
		return
	}
	var verr *schemas.ValidationError
	if !errors.As(err, &verr) {
		logger.Debug("schema check unavailable", zap.Error(err))
		return
	}
	for _, fe := range verr.Errors {
		logger.Debug("response deviates from schema",
			zap.String("field", fe.Field),
			zap.String("problem", fe.Message))
	}
}

// Recover runs the default layers without logging.
func Recover(raw string, in RecoveryInput) (*types.RewriteResult, bool) {
	return NewParser(nil).Recover(raw, in)
}
