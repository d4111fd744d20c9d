// Package scheduler runs named jobs on the intervals stored in the schedule table.
//
// A single ticker wakes the scheduler. Each tick starts at most one pass; a tick that
// arrives while a pass is still running is dropped. Within a pass every registered job
// is checked against its schedule and, when due, run and stamped with the pass time.
package scheduler

import (
	"context"                       // Cancellation
	"fmt"                           // Panic formatting
	"ledger_system/internal/domain" // Schedule model
	"sync"                          // In-flight pass tracking
	"sync/atomic"                   // Reentrancy guard
	"time"                          // Ticker and pass time

	"github.com/google/uuid"     // Run IDs
	"github.com/sirupsen/logrus" // Logging library
)

// ScheduleStore loads and stamps job schedules.
type ScheduleStore interface {
	GetOrCreate(ctx context.Context, name string, defaultInterval int) (*domain.TaskSchedule, error)
	UpdateLastRun(ctx context.Context, name string, at time.Time) error
}

// Job is work run whenever its schedule is due.
type Job interface {
	Name() string
	// Run performs one pass at now. A returned error keeps the schedule from advancing.
	Run(ctx context.Context, now time.Time) error
}

// Options configures a Scheduler.
type Options struct {
	Schedules              ScheduleStore      // Schedule persistence
	Jobs                   []Job              // Jobs checked on every pass
	TickInterval           time.Duration      // Ticker period, one second when unset
	DefaultIntervalSeconds int                // Interval of a schedule created on first sight
	Now                    func() time.Time   // Clock
	Log                    logrus.FieldLogger // Scheduler logger
}

// Scheduler drives registered jobs from a fixed-cadence ticker.
type Scheduler struct {
	schedules       ScheduleStore
	jobs            []Job
	tick            time.Duration
	defaultInterval int
	now             func() time.Time
	log             logrus.FieldLogger

	running  atomic.Bool // Set while a pass is in flight
	inflight sync.WaitGroup
}

// New creates a Scheduler. Missing Now and Log default to time.Now and the standard logger.
func New(opts Options) *Scheduler {
	s := &Scheduler{
		schedules:       opts.Schedules,
		jobs:            opts.Jobs,
		tick:            opts.TickInterval,
		defaultInterval: opts.DefaultIntervalSeconds,
		now:             opts.Now,
		log:             opts.Log,
	}
	if s.tick <= 0 {
		s.tick = time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// Run ticks until ctx is canceled, then waits for the in-flight pass before returning.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.log.WithField("tick", s.tick.String()).Info("Scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.inflight.Wait() // Let the running pass finish
			s.log.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick starts a pass in the background and reports whether it did. It returns false
// without side effects while the previous pass is still running.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Debug("Previous pass still running, tick skipped")
		return false
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				s.log.WithField("panic", fmt.Sprint(r)).Error("Pass panicked")
			}
		}()
		s.RunPass(ctx)
	}()
	return true
}

// Wait blocks until the in-flight pass, if any, has finished.
func (s *Scheduler) Wait() {
	s.inflight.Wait()
}

// RunPass checks every job once and runs those that are due.
func (s *Scheduler) RunPass(ctx context.Context) {
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		s.runJob(ctx, job)
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	// Schedule bookkeeping must not be cut short by shutdown
	storeCtx := context.WithoutCancel(ctx)
	now := s.now() // One timestamp for the due check and the stamp
	log := s.log.WithFields(logrus.Fields{
		"job":    job.Name(),       // Schedule name
		"run_id": uuid.NewString(), // Correlates the pass log lines
	})

	entry, err := s.schedules.GetOrCreate(storeCtx, job.Name(), s.defaultInterval)
	if err != nil {
		log.WithField("error", err.Error()).Error("Failed to load schedule")
		return
	}
	if !entry.Due(now) {
		return
	}

	started := time.Now()
	if err := job.Run(ctx, now); err != nil {
		log.WithField("error", err.Error()).Error("Job failed, schedule not advanced")
		return
	}
	if err := s.schedules.UpdateLastRun(storeCtx, job.Name(), now); err != nil {
		log.WithField("error", err.Error()).Error("Failed to record last run")
		return
	}
	log.WithField("duration", time.Since(started).String()).Info("Job completed")
}
