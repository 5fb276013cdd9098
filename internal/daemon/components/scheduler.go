package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/sift/internal/config"
	"github.com/harunnryd/sift/internal/daemon"
	"github.com/harunnryd/sift/internal/mail"
	"github.com/harunnryd/sift/internal/scheduler"
	"github.com/harunnryd/sift/internal/store"
)

// MailCheckJob is the scheduler job name of the periodic mail check.
const MailCheckJob = "mail-check"

type SchedulerComponent struct {
	sched    *scheduler.Scheduler
	cfg      *config.Config
	mailComp *MailComponent
}

func NewSchedulerComponent(cfg *config.Config, mailComp *MailComponent) *SchedulerComponent {
	return &SchedulerComponent{
		cfg:      cfg,
		mailComp: mailComp,
	}
}

func (s *SchedulerComponent) Name() string {
	return "Scheduler"
}

func (s *SchedulerComponent) Dependencies() []string {
	return []string{"Mail"}
}

func (s *SchedulerComponent) Init(ctx context.Context) error {
	if s.mailComp == nil {
		return fmt.Errorf("mailComp not provided")
	}

	shutdownTimeout, err := config.DurationOrDefault(s.cfg.Daemon.ShutdownTimeout, config.DefaultDaemonShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse daemon shutdown timeout: %w", err)
	}

	storePath := ""
	if dataDir := s.mailComp.DataDir(); dataDir != "" {
		storePath = store.SchedulerPath(dataDir)
	}
	jobStore, err := scheduler.NewStore(storePath)
	if err != nil {
		return fmt.Errorf("failed to create scheduler store: %w", err)
	}
	s.sched = scheduler.NewScheduler(jobStore, shutdownTimeout)

	if err := s.sched.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	if agent := s.mailComp.Agent(); agent != nil {
		spec := s.mailSchedule(agent.Preferences().Get())
		if err := s.sched.Add(MailCheckJob, spec, mailCheckJob(agent)); err != nil {
			return fmt.Errorf("failed to schedule mail check: %w", err)
		}
	}

	slog.Info("Scheduler initialized", "component", s.Name())
	return nil
}

// mailCheckJob adapts Agent.Check to a scheduler job. A check already in
// flight (for example one triggered over HTTP) makes the run a skip.
func mailCheckJob(agent *mail.Agent) scheduler.JobFunc {
	return func(ctx context.Context) error {
		_, err := agent.Check(ctx)
		if errors.Is(err, mail.ErrCheckRunning) {
			return scheduler.ErrSkipped
		}
		return err
	}
}

// mailSchedule prefers an explicit cron schedule from config over the
// interval stored in the user preferences.
func (s *SchedulerComponent) mailSchedule(prefs mail.Preferences) string {
	if spec := strings.TrimSpace(s.cfg.Mail.Schedule); spec != "" {
		return spec
	}
	return scheduler.EverySpec(prefs.CheckIntervalMinutes)
}

// PreferencesChanged moves the mail check to the new interval.
func (s *SchedulerComponent) PreferencesChanged(prefs mail.Preferences) {
	if s.sched == nil || s.mailComp.Agent() == nil {
		return
	}
	if err := s.sched.Reschedule(MailCheckJob, s.mailSchedule(prefs)); err != nil {
		slog.Warn("Failed to reschedule mail check", "error", err)
	}
}

func (s *SchedulerComponent) Start(ctx context.Context) error {
	if s.sched == nil {
		return fmt.Errorf("scheduler not initialized")
	}

	if err := s.sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info("Scheduler started", "component", s.Name())
	return nil
}

func (s *SchedulerComponent) Stop(ctx context.Context) error {
	if s.sched == nil {
		slog.Info("Scheduler not initialized, skipping stop", "component", s.Name())
		return nil
	}

	if err := s.sched.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	slog.Info("Scheduler stopped", "component", s.Name())
	return nil
}

func (s *SchedulerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	if s.sched == nil {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	err := s.sched.Health(ctx)

	if err != nil {
		return &daemon.ComponentHealth{
			Name:    s.Name(),
			Healthy: false,
			Error:   err,
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    s.Name(),
		Healthy: true,
		Error:   nil,
	}, nil
}

func (s *SchedulerComponent) GetScheduler() *scheduler.Scheduler {
	return s.sched
}
