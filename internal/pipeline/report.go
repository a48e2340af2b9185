package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
)

// RunReport summarizes one orchestrator run.
type RunReport struct {
	RunID      uuid.UUID     `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Topics     []string      `json:"topics"`

	Candidates      int `json:"candidates"`
	Duplicates      int `json:"duplicates"`
	Jobs            int `json:"jobs"`
	RewriteFailures int `json:"rewrite_failures"`
	Unparseable     int `json:"unparseable"`
	Degraded        int `json:"degraded"`
	Rejected        int `json:"rejected"`
	PersistFailures int `json:"persist_failures"`
	Persisted       int `json:"persisted"`

	ArticleIDs []uuid.UUID `json:"article_ids"`

	// Selection history after the run, oldest first. Later runs steer away
	// from these.
	RecentTopics []string `json:"recent_topics"`
	RecentVoices []string `json:"recent_voices"`
}

// MarshalLogObject lets a RunReport be logged with zap.Object.
func (r *RunReport) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("run_id", r.RunID.String())
	enc.AddDuration("duration", r.Duration)
	enc.AddInt("topics", len(r.Topics))
	enc.AddInt("candidates", r.Candidates)
	enc.AddInt("duplicates", r.Duplicates)
	enc.AddInt("jobs", r.Jobs)
	enc.AddInt("rewrite_failures", r.RewriteFailures)
	enc.AddInt("unparseable", r.Unparseable)
	enc.AddInt("degraded", r.Degraded)
	enc.AddInt("rejected", r.Rejected)
	enc.AddInt("persist_failures", r.PersistFailures)
	enc.AddInt("persisted", r.Persisted)
	return nil
}

// outcome is the terminal state of one rewrite job
type outcome int

const (
	outcomeRewriteFailed outcome = iota
	outcomeUnparseable
	outcomeRejected
	outcomePersistFailed
	outcomePersisted
)

// tally collects job outcomes from concurrent workers.
type tally struct {
	mu     sync.Mutex
	report *RunReport
}

func (t *tally) record(o outcome, degraded bool, id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if degraded {
		t.report.Degraded++
	}
	switch o {
	case outcomeRewriteFailed:
		t.report.RewriteFailures++
	case outcomeUnparseable:
		t.report.Unparseable++
	case outcomeRejected:
		t.report.Rejected++
	case outcomePersistFailed:
		t.report.PersistFailures++
	case outcomePersisted:
		t.report.Persisted++
		t.report.ArticleIDs = append(t.report.ArticleIDs, id)
	}
}
