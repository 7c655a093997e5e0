// Package task manages the goroutines that run the device's concurrent
// activities: the periodic sampling task and the command serving loop.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-co2mon/logger"
)

// ErrStopped is returned when starting a task on a stopped manager.
var ErrStopped = errors.New("task: manager stopped")

// PeriodicFunc is one activation of a periodic task. scheduled is the
// nominal start time of the activation. Return false to stop the task.
type PeriodicFunc func(scheduled time.Time) bool

// LoopFunc is a long running task body. It must return when ctx is done.
type LoopFunc func(ctx context.Context) error

// Manager starts, stops and waits for named tasks sharing one context.
//
//	mgr := task.NewManager(ctx, log)
//	_ = mgr.StartPeriodic("sampler", 20*time.Millisecond, poll)
//	_ = mgr.Go("server", srv.Serve)
//	...
//	mgr.Stop()
//	err := mgr.Wait()
type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger logger.Logger
	count  atomic.Int32

	errMu sync.Mutex
	err   error
}

// NewManager creates a Manager whose tasks stop when ctx is done or Stop is
// called.
func NewManager(ctx context.Context, l logger.Logger) *Manager {
	if l == nil {
		l = logger.GetLogger()
	}
	mgr := &Manager{logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)

	return mgr
}

// Context returns the context shared by all tasks.
func (mgr *Manager) Context() context.Context {
	return mgr.ctx
}

// Go runs fn in a new goroutine. The first non-nil error other than a
// context cancellation is kept and returned by Wait; it also stops the
// other tasks.
func (mgr *Manager) Go(name string, fn LoopFunc) error {
	if err := mgr.ctx.Err(); err != nil {
		return fmt.Errorf("%w: cannot start %s", ErrStopped, name)
	}

	mgr.start(name, func() {
		var err error
		mgr.callWithRecover(name, func() { err = fn(mgr.ctx) })

		if err != nil && !errors.Is(err, context.Canceled) {
			mgr.logger.Error("task failed", "name", name, "error", err)
			mgr.setErr(fmt.Errorf("%s: %w", name, err))
			mgr.cancel()
		}
	})

	return nil
}

// StartPeriodic runs fn every period, first immediately.
//
// Each activation is scheduled one period after the nominal start of the
// previous one, not after it finished, so execution time does not
// accumulate as drift. Activations that could not start in time are
// skipped rather than run back to back.
func (mgr *Manager) StartPeriodic(name string, period time.Duration, fn PeriodicFunc) error {
	if period <= 0 {
		return fmt.Errorf("task: invalid period %v for %s", period, name)
	}
	if err := mgr.ctx.Err(); err != nil {
		return fmt.Errorf("%w: cannot start %s", ErrStopped, name)
	}

	mgr.start(name, func() {
		next := time.Now()
		for {
			if !sleepUntil(mgr.ctx, next) {
				return
			}

			scheduled := next
			next = scheduled.Add(period)

			var cont bool
			mgr.callWithRecover(name, func() { cont = fn(scheduled) })
			if !cont {
				return
			}

			if late := time.Since(next); late >= period {
				skipped := late / period
				next = next.Add(skipped * period)
				mgr.logger.Debug("periodic task overran", "name", name, "skipped", int64(skipped))
			}
		}
	})

	return nil
}

// Stop signals every task to return.
func (mgr *Manager) Stop() {
	mgr.cancel()
}

// Wait blocks until every task returned and reports the first task error.
func (mgr *Manager) Wait() error {
	mgr.wg.Wait()

	mgr.errMu.Lock()
	defer mgr.errMu.Unlock()

	return mgr.err
}

// TaskCount returns the number of running tasks.
func (mgr *Manager) TaskCount() int {
	return int(mgr.count.Load())
}

func (mgr *Manager) start(name string, body func()) {
	mgr.wg.Add(1)
	mgr.count.Add(1)
	mgr.logger.Debug("start task", "name", name)

	go func() {
		defer func() {
			mgr.count.Add(-1)
			mgr.logger.Debug("task terminated", "name", name, "task_count", mgr.TaskCount())
			mgr.wg.Done()
		}()

		body()
	}()
}

func (mgr *Manager) setErr(err error) {
	mgr.errMu.Lock()
	if mgr.err == nil {
		mgr.err = err
	}
	mgr.errMu.Unlock()
}

// callWithRecover keeps a panicking task from taking the process down.
func (mgr *Manager) callWithRecover(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("panic in task", "name", name, "panic", r)
			mgr.setErr(fmt.Errorf("%s: panic: %v", name, r))
			mgr.cancel()
		}
	}()

	fn()
}
