// Package pipeline provides the high-level orchestration of a newsdesk run:
// topics are chosen, feeds fetched, and every candidate is rewritten, scored,
// and either stored as a draft or discarded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/newsdesk/internal/db"
	"github.com/jonathan/newsdesk/internal/parsing"
	"github.com/jonathan/newsdesk/internal/rewriting"
	"github.com/jonathan/newsdesk/internal/scoring"
	"github.com/jonathan/newsdesk/internal/selection"
	"github.com/jonathan/newsdesk/internal/types"
)

// Defaults for Options zero values
const (
	DefaultTopicsPerRun = 3
	DefaultConcurrency  = 3
)

// ErrNoVoices is returned when candidates exist but no voice can be selected.
var ErrNoVoices = errors.New("voice catalog is empty")

// CandidateFetcher returns candidate items for a topic. It reports problems
// by returning fewer items, never an error.
type CandidateFetcher interface {
	Fetch(ctx context.Context, topic string) []types.RawCandidate
}

// Rewriter returns the raw model response for one candidate.
type Rewriter interface {
	Rewrite(ctx context.Context, candidate types.RawCandidate, voice types.Voice, topic string) (string, error)
}

// ResponseParser recovers a structured rewrite from a raw response.
type ResponseParser interface {
	Recover(raw string, in parsing.RecoveryInput) (*types.RewriteResult, bool)
}

// Options holds configuration for running the pipeline
type Options struct {
	// Topics is the full configured pool. Its first entry is the topic given
	// to responses that omit one.
	Topics           []string
	TopicsPerRun     int
	Concurrency      int
	// QualityThreshold is the minimum accepted score; nil means
	// scoring.DefaultAcceptance.
	QualityThreshold *int
	RunTimeout       time.Duration
	OnProgress       ProgressCallback
}

func (o Options) withDefaults() Options {
	if o.TopicsPerRun <= 0 {
		o.TopicsPerRun = DefaultTopicsPerRun
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.QualityThreshold == nil {
		threshold := scoring.DefaultAcceptance
		o.QualityThreshold = &threshold
	}
	return o
}

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Fetcher  CandidateFetcher
	Selector *selection.Selector
	Rewriter Rewriter
	Parser   ResponseParser
	Store    db.DraftStore
}

// Orchestrator runs the end-to-end pipeline. A single Orchestrator must not
// run concurrently with itself; the scheduler's guard enforces that.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(deps Deps, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Parser == nil {
		deps.Parser = parsing.NewParser(logger)
	}
	return &Orchestrator{deps: deps, opts: opts.withDefaults(), logger: logger.Named("pipeline")}
}

// job is one candidate paired with its topic and voice.
type job struct {
	topic     string
	candidate types.RawCandidate
	voice     types.Voice
}

// Run executes one pass of the pipeline. Per-candidate failures are logged
// and counted; only context cancellation or an empty voice catalog end a run
// early. The report is returned even when err is non-nil.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.RunTimeout)
		defer cancel()
	}

	report := &RunReport{RunID: uuid.New(), StartedAt: time.Now().UTC()}
	runID := report.RunID.String()
	logger := o.logger.With(zap.String("run_id", runID))

	report.Topics = o.deps.Selector.SelectTopics(o.opts.TopicsPerRun)
	o.emit(ProgressEvent{Stage: StageSelectTopics, RunID: runID, Message: "topics selected", Content: report.Topics})
	logger.Info("run started", zap.Strings("topics", report.Topics))

	if len(report.Topics) == 0 {
		logger.Warn("no topics configured; nothing to do")
		return o.finish(logger, report, nil)
	}

	batches := o.fetchTopics(ctx, runID, report.Topics)

	jobs, err := o.planJobs(ctx, logger, runID, report, batches)
	if err != nil {
		return o.finish(logger, report, err)
	}
	report.Jobs = len(jobs)

	t := &tally{report: report}
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			if ctx.Err() != nil {
				t.record(outcomeRewriteFailed, false, uuid.Nil)
				return nil
			}
			o.process(ctx, logger, runID, j, t)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return o.finish(logger, report, fmt.Errorf("run interrupted: %w", err))
	}
	return o.finish(logger, report, nil)
}

// fetchTopics fetches every topic concurrently. All fetches finish before
// the result is returned; batches keep topic order.
func (o *Orchestrator) fetchTopics(ctx context.Context, runID string, topics []string) [][]types.RawCandidate {
	batches := make([][]types.RawCandidate, len(topics))

	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)
	for i, topic := range topics {
		g.Go(func() error {
			batches[i] = o.deps.Fetcher.Fetch(ctx, topic)
			o.emit(ProgressEvent{
				Stage:   StageFetch,
				RunID:   runID,
				Topic:   topic,
				Message: fmt.Sprintf("fetched %d candidates", len(batches[i])),
				Content: batches[i],
			})
			return nil
		})
	}
	_ = g.Wait()

	return batches
}

// planJobs drops duplicates and assigns voices serially so the selector's
// history sees every pick in order.
func (o *Orchestrator) planJobs(ctx context.Context, logger *zap.Logger, runID string, report *RunReport, batches [][]types.RawCandidate) ([]job, error) {
	seen := make(map[string]bool)
	var jobs []job

	for i, topic := range report.Topics {
		for _, cand := range batches[i] {
			report.Candidates++

			key := cand.DedupKey()
			if seen[key] {
				report.Duplicates++
				continue
			}
			seen[key] = true

			exists, err := o.deps.Store.SourceURLExists(ctx, cand.URL)
			if err != nil {
				logger.Warn("duplicate check failed; processing candidate anyway",
					zap.String("source_url", cand.URL),
					zap.Error(err))
			}
			if exists {
				report.Duplicates++
				logger.Debug("skipping already stored source",
					zap.String("topic", topic),
					zap.String("source_url", cand.URL))
				continue
			}

			voice, ok := o.deps.Selector.SelectVoice()
			if !ok {
				logger.Error("cannot assign a voice", zap.Error(ErrNoVoices))
				return nil, ErrNoVoices
			}
			o.emit(ProgressEvent{
				Stage:   StageSelectVoice,
				RunID:   runID,
				Topic:   topic,
				Title:   cand.Title,
				Message: "voice " + voice.ID,
			})
			jobs = append(jobs, job{topic: topic, candidate: cand, voice: voice})
		}
	}
	return jobs, nil
}

// process runs one candidate through rewrite, parse, score, and persist.
// Every failure is contained here.
func (o *Orchestrator) process(ctx context.Context, logger *zap.Logger, runID string, j job, t *tally) {
	logger = logger.With(
		zap.String("topic", j.topic),
		zap.String("title", j.candidate.Title),
		zap.String("source", j.candidate.SourceName),
		zap.String("voice", j.voice.ID))
	event := func(stage, message string, content any) {
		o.emit(ProgressEvent{Stage: stage, RunID: runID, Topic: j.topic, Title: j.candidate.Title, Message: message, Content: content})
	}

	event(StageRewrite, "requesting rewrite", nil)
	raw, err := o.deps.Rewriter.Rewrite(ctx, j.candidate, j.voice, j.topic)
	if err != nil {
		logger.Warn("rewrite failed", zap.Error(err))
		event(StageDiscard, "rewrite failed", err.Error())
		t.record(outcomeRewriteFailed, false, uuid.Nil)
		return
	}

	result, ok := o.deps.Parser.Recover(raw, parsing.RecoveryInput{Candidate: j.candidate, Topics: o.opts.Topics})
	if !ok {
		logger.Warn("rewrite response unusable")
		event(StageDiscard, "response unparseable", nil)
		t.record(outcomeUnparseable, false, uuid.Nil)
		return
	}
	degraded := result.Degraded()
	event(StageParse, "recovered via "+string(result.Layer), nil)

	if style := rewriting.CheckStyle(result.Rewritten); !style.Clean() {
		logger.Info("rewrite misses format targets",
			zap.Int("words", style.Words),
			zap.Int("paragraphs", style.Paragraphs),
			zap.Strings("disallowed_tags", style.DisallowedTags))
	}

	breakdown := scoring.Evaluate(result)
	event(StageScore, fmt.Sprintf("scored %d", breakdown.Total), breakdown)
	if !scoring.Accept(breakdown.Total, *o.opts.QualityThreshold) {
		logger.Warn("rewrite rejected for low quality",
			zap.Int("score", breakdown.Total),
			zap.Int("threshold", *o.opts.QualityThreshold),
			zap.Object("breakdown", breakdown))
		event(StageDiscard, "below quality threshold", breakdown)
		t.record(outcomeRejected, degraded, uuid.Nil)
		return
	}

	article := types.NewDraft(j.candidate, j.voice, result, breakdown.Total)
	if err := o.deps.Store.InsertDraft(ctx, article); err != nil {
		var verr *db.ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				logger.Warn("draft failed validation",
					zap.String("field", f.Field),
					zap.String("rule", f.Tag),
					zap.String("param", f.Param),
					zap.Any("value", f.Value))
			}
		} else {
			logger.Error("failed to persist draft", zap.Error(err))
		}
		event(StageDiscard, "persistence failed", err.Error())
		t.record(outcomePersistFailed, degraded, uuid.Nil)
		return
	}

	logger.Info("draft stored",
		zap.String("article_id", article.ID.String()),
		zap.Int("score", breakdown.Total),
		zap.String("recovery_layer", string(result.Layer)))
	event(StagePersist, "draft stored", article.ID.String())
	t.record(outcomePersisted, degraded, article.ID)
}

func (o *Orchestrator) finish(logger *zap.Logger, report *RunReport, err error) (*RunReport, error) {
	report.FinishedAt = time.Now().UTC()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)
	report.RecentTopics = o.deps.Selector.RecentTopics()
	report.RecentVoices = o.deps.Selector.RecentVoices()

	fields := []zap.Field{zap.Object("report", report)}
	if err != nil {
		fields = append(fields, zap.Error(err))
		logger.Warn("run ended early", fields...)
	} else {
		logger.Info("run complete", fields...)
	}
	o.emit(ProgressEvent{Stage: StageDone, RunID: report.RunID.String(), Message: "run complete", Content: report})
	return report, err
}
