package model

import (
	"context"
	"time"

	"github.com/harunnryd/sift/internal/model/contract"
)

type generator interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

// ProviderAdapter gives a vendor client a registry name, a type and a
// per-request timeout so it satisfies model.Provider.
type ProviderAdapter struct {
	provider     generator
	name         string
	providerType string
	timeout      time.Duration
}

func (a *ProviderAdapter) Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if req.Model == "" {
		req.Model = a.name
	}
	return a.provider.Generate(ctx, req)
}

func (a *ProviderAdapter) Name() string {
	return a.name
}

func (a *ProviderAdapter) Type() string {
	return a.providerType
}

func (a *ProviderAdapter) Health(ctx context.Context) error {
	return nil
}
