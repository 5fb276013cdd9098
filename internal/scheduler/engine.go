// Package scheduler runs named jobs on cron schedules and records the
// outcome of every run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	siftErrors "github.com/harunnryd/sift/internal/errors"

	"github.com/robfig/cron/v3"
)

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

// ErrSkipped lets a job report that it declined to run, for example because
// a previous run is still active.
var ErrSkipped = errors.New("run skipped")

type job struct {
	name    string
	spec    string
	fn      JobFunc
	entryID cron.EntryID
}

type Scheduler struct {
	store *Store
	cron  *cron.Cron

	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	jobs    map[string]*job

	shutdownTimeout time.Duration
}

func NewScheduler(store *Store, shutdownTimeout time.Duration) *Scheduler {
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug))

	return &Scheduler{
		store: store,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		jobs:            make(map[string]*job),
		shutdownTimeout: shutdownTimeout,
	}
}

// EverySpec returns the cron spec for a fixed interval in minutes.
func EverySpec(minutes int) string {
	return fmt.Sprintf("@every %dm", minutes)
}

// Add registers fn under name. Adding an existing name replaces its schedule.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return siftErrors.InvalidInput(fmt.Sprintf("invalid schedule %q: %v", spec, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[name]; ok {
		s.cron.Remove(existing.entryID)
	}

	j := &job{name: name, spec: spec, fn: fn}
	entryID, err := s.cron.AddFunc(spec, func() { s.execute(j) })
	if err != nil {
		return siftErrors.InvalidInput(fmt.Sprintf("invalid schedule %q: %v", spec, err))
	}
	j.entryID = entryID
	s.jobs[name] = j

	if err := s.store.Update(name, func(st *JobStatus) {
		st.Schedule = spec
		st.NextRun = s.cron.Entry(entryID).Next
	}); err != nil {
		slog.Warn("Failed to record job schedule", "job", name, "error", err)
	}

	slog.Info("Job scheduled", "job", name, "schedule", spec)
	return nil
}

// Reschedule changes the schedule of a registered job.
func (s *Scheduler) Reschedule(name, spec string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return siftErrors.NotFound(fmt.Sprintf("job %s not found", name))
	}
	if j.spec == spec {
		return nil
	}
	return s.Add(name, spec, j.fn)
}

// RunNow executes a registered job synchronously.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return siftErrors.NotFound(fmt.Sprintf("job %s not found", name))
	}
	return s.execute(j)
}

func (s *Scheduler) execute(j *job) error {
	ctx := s.runContext()
	runID := generateRunID()
	started := time.Now()

	_ = s.store.Update(j.name, func(st *JobStatus) {
		st.Status = StatusRunning
		st.LastRunID = runID
		st.LastRun = started
	})

	err := j.fn(ctx)

	updateErr := s.store.Update(j.name, func(st *JobStatus) {
		st.NextRun = s.cron.Entry(j.entryID).Next
		switch {
		case errors.Is(err, ErrSkipped):
			st.Status = StatusSkipped
			st.Skipped++
		case err != nil:
			st.Status = StatusFailed
			st.LastError = err.Error()
			st.Runs++
			st.Failures++
		default:
			st.Status = StatusDone
			st.LastError = ""
			st.Runs++
		}
	})
	if updateErr != nil {
		slog.Warn("Failed to record job run", "job", j.name, "error", updateErr)
	}

	switch {
	case errors.Is(err, ErrSkipped):
		slog.Info("Job run skipped", "job", j.name, "run_id", runID)
		return nil
	case err != nil:
		slog.Error("Job run failed", "job", j.name, "run_id", runID, "error", err)
		return err
	}

	slog.Debug("Job run finished", "job", j.name, "run_id", runID, "duration", time.Since(started))
	return nil
}

func (s *Scheduler) runContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

func (s *Scheduler) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	slog.Info("Scheduler initialized")
	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	}
	s.running = true
	s.mu.Unlock()

	s.cron.Start()

	slog.Info("Scheduler started", "jobs", len(s.Jobs()))
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	if cancel != nil {
		cancel()
	}

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case <-done.Done():
		slog.Info("Scheduler stopped gracefully")
		return nil
	case <-time.After(timeout):
		slog.Warn("Scheduler shutdown timeout, force stopping")
		return siftErrors.Internal("shutdown timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Health(ctx context.Context) error {
	if !s.IsRunning() {
		return siftErrors.Internal("scheduler not running")
	}
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Jobs returns the recorded status of every registered job.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	s.mu.RUnlock()
	slices.Sort(names)

	out := make([]JobStatus, 0, len(names))
	for _, name := range names {
		if st, ok := s.store.Get(name); ok {
			out = append(out, st)
		}
	}
	return out
}
