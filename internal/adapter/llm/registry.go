package llm

import (
	"fmt"
	"log/slog"
	"sync"

	"freightdesk/internal/domain"
	"freightdesk/internal/infra/config"
)

// Registry holds the LLM backend registered for each provider.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.Provider]domain.LLMProvider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[domain.Provider]domain.LLMProvider),
	}
}

// Register adds a backend for provider. Returns error if already registered.
func (r *Registry) Register(provider domain.Provider, backend domain.LLMProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[provider]; exists {
		return fmt.Errorf("provider %q already registered", provider)
	}
	r.providers[provider] = backend
	return nil
}

// Get retrieves the backend for provider.
func (r *Registry) Get(provider domain.Provider) (domain.LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[provider]
	if !ok {
		return nil, domain.NewDomainError("Registry.Get", domain.ErrProviderNotFound, string(provider))
	}
	return p, nil
}

// List returns all registered provider identifiers.
func (r *Registry) List() []domain.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]domain.Provider, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// BuildRegistry constructs backends for every configured provider, each
// wrapped in a circuit breaker, and registers them. Config entries whose
// name is not a known provider are skipped with a warning, never an error.
func BuildRegistry(cfg *config.Config, logger *slog.Logger) (*Registry, error) {
	registry := NewRegistry()

	for _, pc := range cfg.Providers {
		provider, ok := domain.ParseProvider(pc.Name)
		if !ok {
			logger.Warn("skipping unknown provider in config", "name", pc.Name)
			continue
		}

		var backend domain.LLMProvider
		switch provider {
		case domain.ProviderOllama:
			backend = NewOllamaProvider(pc, logger)
		case domain.ProviderDeepSeek:
			backend = NewDeepSeekProvider(pc, logger)
		case domain.ProviderAnthropic:
			backend = NewAnthropicProvider(pc, logger)
		case domain.ProviderGemini:
			backend = NewGeminiProvider(pc, logger)
		}

		wrapped := NewCircuitBreakerProvider(backend, pc.Breaker, logger)
		if err := registry.Register(provider, wrapped); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
