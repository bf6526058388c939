// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"shelfwise/internal/clock"
)

// Job is one recurring unit of work with a calendar rule. This scheduler is
// deliberately not general purpose: it exists to run the reminder and report
// jobs against one inventory.
type Job interface {
	Name() string
	// Next returns the first firing instant strictly after the given time.
	Next(after time.Time) time.Time
	Run(ctx context.Context, now time.Time) error
}

type managedJob struct {
	job     Job
	next    time.Time
	running atomic.Bool
}

// Scheduler owns the next-fire instant of each registered job and fires each
// at most once per instant. A job still running when its next instant arrives
// has that firing discarded, not queued.
type Scheduler struct {
	clk        clock.Clock
	store      JobStore
	log        *slog.Logger
	runTimeout time.Duration
	jobs       []*managedJob
	wg         sync.WaitGroup
}

func New(clk clock.Clock, store JobStore, log *slog.Logger, runTimeout time.Duration) *Scheduler {
	return &Scheduler{
		clk:        clk,
		store:      store,
		log:        log,
		runTimeout: runTimeout,
	}
}

func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, &managedJob{job: job})
}

// init loads persisted next-fire instants. A persisted instant in the past
// means the process slept through a firing: it stays as-is so the first
// RunPending fires once immediately, then the normal calendar resumes. One
// firing, regardless of how many intervals were missed.
func (s *Scheduler) init(ctx context.Context) error {
	now := s.clk.Now()
	for _, mj := range s.jobs {
		persisted, ok, err := s.store.NextFire(ctx, mj.job.Name())
		if err != nil {
			return err
		}
		if ok {
			mj.next = persisted
			continue
		}
		mj.next = mj.job.Next(now)
		if err := s.store.SetNextFire(ctx, mj.job.Name(), mj.next); err != nil {
			return err
		}
	}
	return nil
}

// RunPending fires every job whose next instant has arrived and advances its
// calendar. Firing is asynchronous; the calendar advances immediately either
// way, which is what discards overlapping firings instead of queueing them.
func (s *Scheduler) RunPending(ctx context.Context) {
	now := s.clk.Now()
	for _, mj := range s.jobs {
		if mj.next.IsZero() || now.Before(mj.next) {
			continue
		}

		if mj.running.CompareAndSwap(false, true) {
			s.wg.Add(1)
			go s.fire(ctx, mj, now)
		} else {
			s.log.Warn("job still running, discarding firing",
				"job", mj.job.Name(), "scheduled_for", mj.next)
		}

		mj.next = mj.job.Next(now)
		if err := s.store.SetNextFire(ctx, mj.job.Name(), mj.next); err != nil {
			s.log.Error("failed to persist job state", "job", mj.job.Name(), "error", err)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, mj *managedJob, now time.Time) {
	defer s.wg.Done()
	defer mj.running.Store(false)

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	s.log.Info("job firing", "job", mj.job.Name(), "at", now)
	if err := mj.job.Run(runCtx, now); err != nil {
		// A failed firing is fatal for that firing only; the calendar has
		// already been re-armed.
		s.log.Error("job failed", "job", mj.job.Name(), "error", err)
		return
	}
	s.log.Info("job completed", "job", mj.job.Name())
}

// Run drives the scheduler until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.init(ctx); err != nil {
		return err
	}

	for {
		s.RunPending(ctx)

		timer := time.NewTimer(s.untilNext())
		select {
		case <-ctx.Done():
			timer.Stop()
			s.wg.Wait()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// untilNext returns how long to sleep before the earliest next firing,
// clamped so clock adjustments are picked up within a minute.
func (s *Scheduler) untilNext() time.Duration {
	now := s.clk.Now()
	wait := time.Minute
	for _, mj := range s.jobs {
		if mj.next.IsZero() {
			continue
		}
		if d := mj.next.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}
