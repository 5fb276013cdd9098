package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/harunnryd/sift/internal/config"
	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/logger"
	"github.com/harunnryd/sift/internal/model/contract"
	anthropicProvider "github.com/harunnryd/sift/internal/model/providers/anthropic"
	geminiProvider "github.com/harunnryd/sift/internal/model/providers/gemini"
	openaiProvider "github.com/harunnryd/sift/internal/model/providers/openai"
)

// DefaultModelRouter implements ModelRouter interface
type DefaultModelRouter struct {
	cfg       config.ModelsConfig
	providers map[string]Provider
	mu        sync.RWMutex
}

// NewModelRouter creates a new model router
func NewModelRouter(cfg config.ModelsConfig) (*DefaultModelRouter, error) {
	router := &DefaultModelRouter{
		cfg:       cfg,
		providers: make(map[string]Provider),
	}

	if err := router.initProviders(); err != nil {
		return nil, err
	}

	return router, nil
}

// Register adds or replaces the provider serving a model name.
func (r *DefaultModelRouter) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
}

// Route routes a completion request to the appropriate provider
func (r *DefaultModelRouter) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	traceID := logger.GetTraceID(ctx)

	if model == "" {
		model = r.cfg.Default
	}

	slog.Info("Routing completion request", "model", model, "trace_id", traceID)

	currentModel, provider, err := r.resolveProvider(ctx, model)
	if err != nil {
		return nil, err
	}

	return r.executeWithFallback(ctx, currentModel, provider, req, traceID)
}

// ListModels returns all registered model names
func (r *DefaultModelRouter) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.providers))
	for name := range r.providers {
		models = append(models, name)
	}
	sort.Strings(models)

	return models
}

// Health checks the health of the router and its providers
func (r *DefaultModelRouter) Health(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.providers) == 0 {
		return siftErrors.Transient("no model providers registered")
	}

	for name, provider := range r.providers {
		if err := provider.Health(ctx); err != nil {
			slog.Warn("Provider unhealthy", "provider", name, "error", err)
			return siftErrors.Transient(fmt.Sprintf("provider %s unhealthy", name))
		}
	}

	return nil
}

// initProviders initializes all providers from configuration
func (r *DefaultModelRouter) initProviders() error {
	for _, entry := range r.cfg.Registry {
		provider, err := r.createProvider(entry)
		if err != nil {
			slog.Warn("Failed to create provider", "provider", entry.Provider, "model", entry.Name, "error", err)
			continue
		}

		r.providers[entry.Name] = provider
		slog.Info("Provider initialized", "name", entry.Name, "type", entry.Provider)
	}

	if len(r.providers) == 0 && len(r.cfg.Registry) > 0 {
		return siftErrors.Internal("no providers initialized")
	}

	return nil
}

// resolveProvider resolves a provider by model name with fallback
func (r *DefaultModelRouter) resolveProvider(ctx context.Context, model string) (string, Provider, error) {
	select {
	case <-ctx.Done():
		return "", nil, siftErrors.Wrap(ctx.Err(), "provider resolution cancelled")
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider, exists := r.providers[model]; exists {
		return model, provider, nil
	}

	slog.Warn("Model not found", "model", model)

	if r.cfg.Fallback != "" && model != r.cfg.Fallback {
		slog.Info("Trying fallback model", "model", model, "fallback", r.cfg.Fallback)

		if fallbackProvider, ok := r.providers[r.cfg.Fallback]; ok {
			return r.cfg.Fallback, fallbackProvider, nil
		}
	}

	return "", nil, siftErrors.NotFound(fmt.Sprintf("model %s not found", model))
}

// executeWithFallback executes a request with fallback logic
func (r *DefaultModelRouter) executeWithFallback(ctx context.Context, model string, provider Provider, req contract.CompletionRequest, traceID string) (*contract.CompletionResponse, error) {
	maxAttempts := r.cfg.MaxFallbackAttempts
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultModelMaxFallbackAttempts
	}

	currentModel := model
	currentProvider := provider

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, siftErrors.Wrap(ctx.Err(), "request execution cancelled")
		default:
		}

		attemptReq := req
		attemptReq.Model = currentModel

		resp, err := currentProvider.Generate(ctx, attemptReq)
		if err == nil {
			slog.Info("Request completed", "model", currentModel, "attempt", attempt+1, "trace_id", traceID)
			return resp, nil
		}

		slog.Error("Provider request failed", "model", currentModel, "attempt", attempt+1, "error", err)

		if r.cfg.Fallback == "" || currentModel == r.cfg.Fallback {
			return nil, siftErrors.Wrap(siftErrors.MapError(err), "provider request failed")
		}

		r.mu.RLock()
		fallbackProvider, exists := r.providers[r.cfg.Fallback]
		r.mu.RUnlock()
		if !exists {
			return nil, siftErrors.NotFound(fmt.Sprintf("fallback model %s not found", r.cfg.Fallback))
		}

		slog.Info("Attempting fallback", "from", currentModel, "to", r.cfg.Fallback)

		currentModel = r.cfg.Fallback
		currentProvider = fallbackProvider
	}

	return nil, siftErrors.Transient("fallback exhausted")
}

// createProvider creates a provider instance based on registry entry
func (r *DefaultModelRouter) createProvider(entry config.ModelRegistry) (Provider, error) {
	timeout, err := config.DurationOrDefault(entry.RequestTimeout, config.DefaultModelRequestTimeout)
	if err != nil {
		return nil, siftErrors.InvalidInput(fmt.Sprintf("invalid request_timeout for model %s: %v", entry.Name, err))
	}

	adapter := func(p generator, providerType string) *ProviderAdapter {
		return &ProviderAdapter{
			provider:     p,
			name:         entry.Name,
			providerType: providerType,
			timeout:      timeout,
		}
	}

	switch entry.Provider {
	case "openai":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOpenAIBaseURL
		}

		if entry.APIKey == "" {
			return nil, siftErrors.InvalidInput("API key required for OpenAI provider")
		}

		return adapter(openaiProvider.New(entry.APIKey, baseURL), "openai"), nil

	case "ollama":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOllamaBaseURL
		}

		apiKey := entry.APIKey
		if apiKey == "" {
			apiKey = config.DefaultOllamaAPIKey
		}

		return adapter(openaiProvider.New(apiKey, baseURL), "ollama"), nil

	case "anthropic":
		if entry.APIKey == "" {
			return nil, siftErrors.InvalidInput("API key required for Anthropic provider")
		}

		return adapter(anthropicProvider.New(entry.APIKey), "anthropic"), nil

	case "gemini":
		if entry.APIKey == "" {
			return nil, siftErrors.InvalidInput("API key required for Gemini provider")
		}

		provider, err := geminiProvider.New(entry.APIKey)
		if err != nil {
			return nil, siftErrors.WrapWithCategory(err, "failed to create Gemini provider", siftErrors.ErrInternal)
		}

		return adapter(provider, "gemini"), nil

	default:
		return nil, siftErrors.InvalidInput(fmt.Sprintf("unknown provider type: %s", entry.Provider))
	}
}

