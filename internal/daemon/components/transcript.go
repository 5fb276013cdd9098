package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/sift/internal/config"
	"github.com/harunnryd/sift/internal/daemon"
	"github.com/harunnryd/sift/internal/transcript"
	"github.com/harunnryd/sift/internal/transcript/youtube"
)

// TranscriptComponent owns the process-wide transcript cache, the provider
// behind it and the optional background sweeper.
type TranscriptComponent struct {
	cfg         *config.TranscriptConfig
	cache       *transcript.Cache
	service     *transcript.Service
	sweeper     *transcript.Sweeper
	initialized bool
	mu          sync.RWMutex
}

func NewTranscriptComponent(cfg *config.TranscriptConfig) *TranscriptComponent {
	return &TranscriptComponent{cfg: cfg}
}

func (t *TranscriptComponent) Name() string {
	return "Transcript"
}

func (t *TranscriptComponent) Dependencies() []string {
	return []string{}
}

func (t *TranscriptComponent) Init(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	expiry, err := config.DurationOrDefault(t.cfg.SessionExpiry, config.DefaultTranscriptSessionExpiry)
	if err != nil {
		return fmt.Errorf("parse transcript session expiry: %w", err)
	}
	sweepInterval, err := config.DurationOrDefault(t.cfg.SweepInterval, config.DefaultTranscriptSweepInterval)
	if err != nil {
		return fmt.Errorf("parse transcript sweep interval: %w", err)
	}
	timeout, err := config.DurationOrDefault(t.cfg.Timeout, config.DefaultTranscriptTimeout)
	if err != nil {
		return fmt.Errorf("parse transcript timeout: %w", err)
	}

	t.cache = transcript.NewCache(transcript.CacheConfig{
		SessionExpiry: expiry,
		MaxSessions:   t.cfg.MaxSessions,
	}, nil)
	t.service = transcript.NewService(t.cache, youtube.New(t.cfg.BaseURL, t.cfg.Language, timeout)).
		WithFetchTimeout(timeout)
	t.sweeper = transcript.NewSweeper(t.cache, sweepInterval)

	t.initialized = true
	slog.Info("Transcript cache initialized", "component", t.Name(), "session_expiry", expiry, "max_sessions", t.cfg.MaxSessions)
	return nil
}

func (t *TranscriptComponent) Start(ctx context.Context) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.initialized {
		return fmt.Errorf("Transcript not initialized")
	}

	t.sweeper.Start(ctx)
	return nil
}

func (t *TranscriptComponent) Stop(ctx context.Context) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.sweeper != nil {
		t.sweeper.Stop()
	}
	return nil
}

func (t *TranscriptComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.initialized {
		return &daemon.ComponentHealth{Name: t.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	return &daemon.ComponentHealth{Name: t.Name(), Healthy: true}, nil
}

func (t *TranscriptComponent) Cache() *transcript.Cache {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cache
}

func (t *TranscriptComponent) Service() *transcript.Service {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.service
}
