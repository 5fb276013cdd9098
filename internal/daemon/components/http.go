package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/harunnryd/sift/internal/api"
	"github.com/harunnryd/sift/internal/concurrency"
	"github.com/harunnryd/sift/internal/config"
	"github.com/harunnryd/sift/internal/daemon"
	"github.com/harunnryd/sift/internal/video"
)

type HTTPServerComponent struct {
	daemon         *daemon.Daemon
	cfg            *config.Config
	transcriptComp *TranscriptComponent
	modelsComp     *ModelsComponent
	mailComp       *MailComponent
	schedulerComp  *SchedulerComponent
	server         *http.Server
	listener       net.Listener
	shutdownTTL    time.Duration
	initialized    bool
	started        bool
	mu             sync.RWMutex
	startTime      time.Time
}

func NewHTTPServerComponent(d *daemon.Daemon, cfg *config.Config, transcriptComp *TranscriptComponent, modelsComp *ModelsComponent, mailComp *MailComponent, schedulerComp *SchedulerComponent) *HTTPServerComponent {
	return &HTTPServerComponent{
		daemon:         d,
		cfg:            cfg,
		transcriptComp: transcriptComp,
		modelsComp:     modelsComp,
		mailComp:       mailComp,
		schedulerComp:  schedulerComp,
	}
}

func (h *HTTPServerComponent) Name() string {
	return "HTTPServer"
}

func (h *HTTPServerComponent) Dependencies() []string {
	return []string{"Transcript", "Models", "Mail", "Scheduler"}
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.transcriptComp == nil || h.transcriptComp.Service() == nil {
		return fmt.Errorf("transcript service not initialized")
	}
	if h.modelsComp == nil || h.modelsComp.Router() == nil {
		return fmt.Errorf("model router not initialized")
	}

	srvCfg := h.cfg.Server
	readTimeout, err := config.DurationOrDefault(srvCfg.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(srvCfg.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return fmt.Errorf("parse server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(srvCfg.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return fmt.Errorf("parse server idle timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(srvCfg.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	deps := api.Dependencies{
		Video:          video.NewService(h.transcriptComp.Service(), h.modelsComp.Router(), h.cfg.Video),
		Cache:          h.transcriptComp.Cache(),
		Components:     h.componentStatus,
		AllowedOrigins: srvCfg.AllowedOrigins,
	}
	if h.mailComp != nil {
		deps.Mail = h.mailComp.Agent()
	}
	if h.schedulerComp != nil {
		deps.OnPreferencesChange = h.schedulerComp.PreferencesChanged
	}

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", srvCfg.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	h.shutdownTTL = shutdownTimeout

	h.initialized = true
	slog.Info("HTTPServer initialized", "component", h.Name(), "port", srvCfg.Port, "mail_enabled", deps.Mail != nil)
	return nil
}

func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return fmt.Errorf("HTTPServer not initialized")
	}

	// Bind before returning so a taken port fails startup instead of a
	// background goroutine.
	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.server.Addr, err)
	}
	h.listener = ln

	concurrency.SafeGo("http-serve", func() {
		slog.Info("HTTP server listening", "component", h.Name(), "addr", ln.Addr().String())
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "component", h.Name(), "error", err)
		}
	}, nil)

	h.started = true
	h.startTime = time.Now()
	slog.Info("HTTPServer started", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		slog.Info("HTTPServer not started, skipping stop", "component", h.Name())
		return nil
	}

	slog.Info("Stopping HTTPServer...", "component", h.Name())
	shutdownCtx, cancel := context.WithTimeout(ctx, h.shutdownTTL)
	defer cancel()

	if err := h.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTPServer shutdown error", "component", h.Name(), "error", err)
		return err
	}

	h.started = false
	slog.Info("HTTPServer stopped", "component", h.Name(), "uptime", time.Since(h.startTime))
	return nil
}

func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.initialized {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not initialized"),
		}, nil
	}

	if !h.started {
		return &daemon.ComponentHealth{
			Name:    h.Name(),
			Healthy: false,
			Error:   fmt.Errorf("not started"),
		}, nil
	}

	return &daemon.ComponentHealth{
		Name:    h.Name(),
		Healthy: true,
		Error:   nil,
	}, nil
}

// Addr returns the bound listen address once started.
func (h *HTTPServerComponent) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *HTTPServerComponent) componentStatus(ctx context.Context) map[string]api.ComponentStatus {
	if h.daemon == nil {
		return nil
	}

	out := make(map[string]api.ComponentStatus)
	for name, ch := range h.daemon.ComponentHealth() {
		status := api.ComponentStatus{Healthy: ch.Healthy}
		if ch.Error != nil {
			status.Error = ch.Error.Error()
		}
		out[name] = status
	}
	return out
}
