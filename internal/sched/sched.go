// Package sched runs deferred work: render-thread tasks drained once per
// frame, and background tasks on a bounded worker pool.
package sched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"mini-engine/internal/logging"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrQueueFull is returned by StartAsync when every worker slot is busy.
	ErrQueueFull = errors.New("sched: async queue full")
	// ErrStopped is returned by StartAsync after Shutdown.
	ErrStopped = errors.New("sched: scheduler stopped")
)

type Options struct {
	// Workers bounds concurrently running async tasks; 0 means GOMAXPROCS.
	Workers int
	// Queue is the number of extra tasks accepted beyond Workers.
	Queue  int
	Logger *slog.Logger
}

// Scheduler owns the sync task list and the async pool. ScheduleSync and
// StartAsync are safe for concurrent use; RunSyncTick must only be called
// from the render thread.
type Scheduler struct {
	log *slog.Logger

	mu      sync.Mutex
	pending []func()
	stopped bool
	err     error

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

func New(opts Options) *Scheduler {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers + max(opts.Queue, 0))
	return &Scheduler{
		log:    logging.OrNop(opts.Logger),
		ctx:    ctx,
		cancel: cancel,
		group:  g,
	}
}

// ScheduleSync queues fn for the next RunSyncTick.
func (s *Scheduler) ScheduleSync(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}

// Pending returns the number of queued sync tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// RunSyncTick runs every sync task queued before the call. Tasks scheduled
// while the tick runs wait for the next tick. A panicking task is logged and
// does not stop the others. It returns the number of tasks run.
func (s *Scheduler) RunSyncTick() int {
	s.mu.Lock()
	tasks := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, fn := range tasks {
		if err := protect(func() error { fn(); return nil }); err != nil {
			s.log.Warn("sync task failed", "err", err)
		}
	}
	return len(tasks)
}

// StartAsync runs fn on the worker pool without blocking. The context is
// cancelled by Shutdown.
func (s *Scheduler) StartAsync(fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	ok := s.group.TryGo(func() error {
		if err := protect(func() error { return fn(s.ctx) }); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("async task failed", "err", err)
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
		}
		return nil
	})
	if !ok {
		return ErrQueueFull
	}
	return nil
}

// Shutdown stops accepting async work, cancels running tasks and waits for
// them. It returns the first async task error, if any. Sync tasks still run
// on later ticks.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	_ = s.group.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
