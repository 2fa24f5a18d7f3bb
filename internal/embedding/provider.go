package embedding

import (
	"context"

	"github.com/tablescout/tablescout/internal/config"
	"github.com/tablescout/tablescout/internal/errors"
	"github.com/tablescout/tablescout/internal/observability"
)

// Provider defines the interface for embedding providers. The same provider
// and model must be used at index time and query time; mixing embedding
// spaces silently breaks retrieval.
type Provider interface {
	// GenerateEmbedding generates an embedding for the given text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// GetDimensions returns the dimensionality of embeddings produced by this provider
	GetDimensions() int

	// GetName returns the provider name for identification
	GetName() string
}

// Manager wraps a provider and validates every result against the configured
// dimension.
type Manager struct {
	config   config.EmbeddingConfig
	provider Provider
}

// NewManager constructs the provider named in the configuration
func NewManager(cfg config.EmbeddingConfig) (*Manager, error) {
	manager := &Manager{config: cfg}

	var provider Provider

	var err error

	switch cfg.Provider {
	case "openai":
		provider, err = NewOpenAIProvider(cfg)
	case "ollama":
		provider, err = NewOllamaProvider(cfg)
	case "disabled":
		provider = &DisabledProvider{}
	default:
		return nil, errors.Newf(errors.ErrTypeConfiguration, "unsupported embedding provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeConfiguration, "failed to initialize embedding provider")
	}

	manager.provider = provider

	return manager, nil
}

// GenerateEmbedding generates an embedding using the configured provider
func (m *Manager) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vector, err := m.provider.GenerateEmbedding(ctx, text)
	observability.ObserveEmbeddingRequest(m.provider.GetName(), err)

	if err != nil {
		return nil, err
	}

	if len(vector) != m.config.Dimensions {
		return nil, errors.Newf(errors.ErrTypeEmbeddingGateway,
			"dimension mismatch from %s: expected %d, got %d",
			m.provider.GetName(), m.config.Dimensions, len(vector))
	}

	return vector, nil
}

// GetDimensions returns the embedding dimensions
func (m *Manager) GetDimensions() int {
	return m.config.Dimensions
}

// GetName returns the underlying provider name
func (m *Manager) GetName() string {
	return m.provider.GetName()
}

// DisabledProvider is a no-op provider for when embeddings are disabled
type DisabledProvider struct{}

func (p *DisabledProvider) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New(errors.ErrTypeEmbeddingGateway, "embedding provider is disabled")
}

func (p *DisabledProvider) GetDimensions() int {
	return 0
}

func (p *DisabledProvider) GetName() string {
	return "disabled"
}
