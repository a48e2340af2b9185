package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrRunInProgress is returned when a run is requested while another holds
// the guard, in this process or, with a Lock, in any process.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// releaseTimeout bounds how long releasing a distributed lock may take.
const releaseTimeout = 5 * time.Second

// Release gives up a held Lock.
type Release func(ctx context.Context) error

// Lock is a cross-process mutual exclusion primitive. Acquire returns
// ErrRunInProgress when another holder has it.
type Lock interface {
	Acquire(ctx context.Context) (Release, error)
}

// Guard ensures at most one pipeline run at a time. The in-process flag is
// always checked first; the optional Lock extends exclusion across
// processes.
type Guard struct {
	running atomic.Bool
	lock    Lock
	logger  *zap.Logger
}

// NewGuard creates a guard. lock may be nil for single-process deployments.
func NewGuard(lock Lock, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{lock: lock, logger: logger.Named("guard")}
}

// Acquire claims the guard. The returned function releases it and is safe to
// call more than once.
func (g *Guard) Acquire(ctx context.Context) (func(), error) {
	if !g.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}

	var release Release
	if g.lock != nil {
		var err error
		release, err = g.lock.Acquire(ctx)
		if err != nil {
			g.running.Store(false)
			return nil, err
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if release != nil {
				ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
				defer cancel()
				if err := release(ctx); err != nil {
					g.logger.Warn("failed to release run lock", zap.Error(err))
				}
			}
			g.running.Store(false)
		})
	}, nil
}

// Running reports whether this process currently holds the guard.
func (g *Guard) Running() bool {
	return g.running.Load()
}
