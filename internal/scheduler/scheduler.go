// Package scheduler triggers pipeline runs on a cron schedule or on demand,
// never letting two runs overlap.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jonathan/newsdesk/internal/pipeline"
)

// DefaultSpecs fire twice daily, morning and evening.
var DefaultSpecs = []string{"0 6 * * *", "0 18 * * *"}

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (*pipeline.RunReport, error)
}

// Options configures a Scheduler.
type Options struct {
	Specs    []string
	Location *time.Location
}

// Scheduler owns the cron triggers and the manual trigger.
type Scheduler struct {
	runner Runner
	guard  *Guard
	cron   *cron.Cron
	loc    *time.Location
	logger *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	last    *pipeline.RunReport
	lastErr error
	wg      sync.WaitGroup
}

// New creates a scheduler. Every spec is a standard five-field cron
// expression evaluated in opts.Location (UTC when nil).
func New(runner Runner, guard *Guard, opts Options, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if guard == nil {
		guard = NewGuard(nil, logger)
	}
	if len(opts.Specs) == 0 {
		opts.Specs = DefaultSpecs
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	logger = logger.Named("scheduler")
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		runner: runner,
		guard:  guard,
		loc:    opts.Location,
		logger: logger,
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	for _, spec := range opts.Specs {
		if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
		}
	}
	return s, nil
}

// Start begins firing scheduled runs. Runs started by the scheduler are
// cancelled when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", zap.Times("next_runs", s.NextRuns()))
}

// Stop halts the cron triggers, cancels in-flight runs, and waits for them
// to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()

	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	runsDone := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(runsDone)
	}()

	select {
	case <-runsDone:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunNow runs the pipeline synchronously. It returns ErrRunInProgress when
// a run is already underway.
func (s *Scheduler) RunNow(ctx context.Context) (*pipeline.RunReport, error) {
	release, err := s.guard.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.execute(ctx, "manual")
}

// Trigger starts a run in the background and returns immediately. The guard
// is claimed before returning, so a nil error means the run was accepted.
func (s *Scheduler) Trigger() error {
	ctx := s.runContext()
	release, err := s.guard.Acquire(ctx)
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()
		_, _ = s.execute(ctx, "trigger")
	}()
	return nil
}

// tick is the cron callback; a busy guard skips the tick.
func (s *Scheduler) tick() {
	ctx := s.runContext()
	release, err := s.guard.Acquire(ctx)
	if errors.Is(err, ErrRunInProgress) {
		s.logger.Warn("scheduled run skipped; previous run still in progress")
		return
	}
	if err != nil {
		s.logger.Error("scheduled run could not start", zap.Error(err))
		return
	}
	defer release()

	s.wg.Add(1)
	defer s.wg.Done()
	_, _ = s.execute(ctx, "schedule")
}

func (s *Scheduler) execute(ctx context.Context, trigger string) (*pipeline.RunReport, error) {
	logger := s.logger.With(zap.String("trigger", trigger))
	logger.Info("pipeline run starting")

	report, err := s.runner.Run(ctx)
	if err != nil {
		logger.Error("pipeline run failed", zap.Error(err))
	}

	s.mu.Lock()
	s.last, s.lastErr = report, err
	s.mu.Unlock()
	return report, err
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// LastRun returns the most recent run's report and error. Both are nil
// before the first run.
func (s *Scheduler) LastRun() (*pipeline.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

// Running reports whether a run is in progress in this process.
func (s *Scheduler) Running() bool {
	return s.guard.Running()
}

// NextRuns returns the next fire time of every schedule, soonest first.
func (s *Scheduler) NextRuns() []time.Time {
	entries := s.cron.Entries()
	next := make([]time.Time, 0, len(entries))
	now := time.Now().In(s.loc)
	for _, e := range entries {
		if !e.Next.IsZero() {
			next = append(next, e.Next)
			continue
		}
		next = append(next, e.Schedule.Next(now))
	}
	slices.SortFunc(next, time.Time.Compare)
	return next
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
