package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/sift/internal/config"
	"github.com/harunnryd/sift/internal/daemon"
	"github.com/harunnryd/sift/internal/model"
)

type ModelsComponent struct {
	cfg    *config.ModelsConfig
	router *model.DefaultModelRouter
	mu     sync.RWMutex
}

func NewModelsComponent(cfg *config.ModelsConfig) *ModelsComponent {
	return &ModelsComponent{cfg: cfg}
}

func (m *ModelsComponent) Name() string {
	return "Models"
}

func (m *ModelsComponent) Dependencies() []string {
	return []string{}
}

func (m *ModelsComponent) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	router, err := model.NewModelRouter(*m.cfg)
	if err != nil {
		return fmt.Errorf("create model router: %w", err)
	}
	m.router = router

	slog.Info("Model router initialized", "component", m.Name(), "models", router.ListModels(), "default", m.cfg.Default)
	return nil
}

func (m *ModelsComponent) Start(ctx context.Context) error {
	return nil
}

func (m *ModelsComponent) Stop(ctx context.Context) error {
	return nil
}

func (m *ModelsComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.router == nil {
		return &daemon.ComponentHealth{Name: m.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if err := m.router.Health(ctx); err != nil {
		return &daemon.ComponentHealth{Name: m.Name(), Healthy: false, Error: err}, nil
	}
	return &daemon.ComponentHealth{Name: m.Name(), Healthy: true}, nil
}

func (m *ModelsComponent) Router() *model.DefaultModelRouter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.router
}
