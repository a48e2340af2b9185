// Package rewriting asks the generative model to rewrite a feed item in a
// configured voice.
package rewriting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jonathan/newsdesk/internal/llm"
	"github.com/jonathan/newsdesk/internal/prompts"
	"github.com/jonathan/newsdesk/internal/types"
)

const promptFile = "rewriting.json"

var (
	systemTemplate  = prompts.MustGet(promptFile, "rewrite-system")
	articleTemplate = prompts.MustGet(promptFile, "rewrite-article")
)

// Format targets written into every prompt
const (
	MinWords      = 800
	MaxWords      = 1200
	MinParagraphs = 5
	QuoteCount    = 2
)

// maxSourceChars bounds how much source text is sent to the model.
const maxSourceChars = 12000

// Options configures a Requester.
type Options struct {
	Tier            llm.ModelTier
	Timeout         time.Duration
	Temperature     float32
	MaxOutputTokens int32
}

// Requester issues one rewrite call per candidate. It never retries.
type Requester struct {
	client llm.Client
	opts   Options
	logger *zap.Logger
}

// NewRequester creates a Requester over client.
func NewRequester(client llm.Client, opts Options, logger *zap.Logger) *Requester {
	if opts.Tier == "" {
		opts.Tier = llm.TierAdvanced
	}
	if opts.Timeout <= 0 {
		opts.Timeout = llm.DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Requester{client: client, opts: opts, logger: logger.Named("rewriting")}
}

// Rewrite returns the model's raw response text for candidate written in
// voice. Any transport, quota, or timeout failure is a *RequestError.
func (r *Requester) Rewrite(ctx context.Context, candidate types.RawCandidate, voice types.Voice, topic string) (string, error) {
	req, err := BuildRequest(candidate, voice, topic)
	if err != nil {
		return "", &RequestError{Title: candidate.Title, Message: "failed to build prompt", Cause: err}
	}
	req.Temperature = r.opts.Temperature
	req.MaxOutputTokens = r.opts.MaxOutputTokens

	callCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	text, err := r.client.GenerateContent(callCtx, req, r.opts.Tier)
	if err != nil {
		msg := "generative call failed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("generative call timed out after %s", r.opts.Timeout)
		}
		return "", &RequestError{Title: candidate.Title, Message: msg, Cause: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &RequestError{Title: candidate.Title, Message: "empty response"}
	}

	r.logger.Debug("rewrite received",
		zap.String("title", candidate.Title),
		zap.String("voice", voice.ID),
		zap.String("model", r.client.GetModel(r.opts.Tier)),
		zap.Int("response_chars", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

// BuildRequest assembles the role-conditioned prompt: the system turn carries
// the voice verbatim, the user turn carries the task and the source item.
func BuildRequest(candidate types.RawCandidate, voice types.Voice, topic string) (llm.Request, error) {
	system, err := prompts.Fill(systemTemplate, map[string]string{
		"VoiceName":        voice.Name,
		"VoiceDescription": voice.Description,
		"StyleDirective":   voice.StyleDirective,
	})
	if err != nil {
		return llm.Request{}, err
	}

	published := "unknown"
	if !candidate.PublishedAt.IsZero() {
		published = candidate.PublishedAt.UTC().Format(time.RFC1123)
	}
	author := candidate.Author
	if author == "" {
		author = "unknown"
	}

	prompt, err := prompts.Fill(articleTemplate, map[string]string{
		"MinWords":      strconv.Itoa(MinWords),
		"MaxWords":      strconv.Itoa(MaxWords),
		"MinParagraphs": strconv.Itoa(MinParagraphs),
		"QuoteCount":    strconv.Itoa(QuoteCount),
		"Categories":    categoryList(),
		"Topic":         topic,
		"SourceName":    candidate.SourceName,
		"SourceTitle":   candidate.Title,
		"SourceURL":     candidate.URL,
		"Published":     published,
		"Author":        author,
		"SourceText":    truncate(candidate.Content(), maxSourceChars),
	})
	if err != nil {
		return llm.Request{}, err
	}

	return llm.Request{System: system, Prompt: prompt}, nil
}

func categoryList() string {
	cats := types.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
