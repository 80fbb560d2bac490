package llm

import (
	"context"
	"log/slog"
	"strings"

	"freightdesk/internal/domain"
	"freightdesk/internal/infra/config"
)

// Compile-time interface assertion.
var _ domain.LLMProvider = (*DeepSeekProvider)(nil)

// DeepSeekProvider wraps CompatProvider to work with the DeepSeek API,
// which is OpenAI-compatible.
type DeepSeekProvider struct {
	inner *CompatProvider
}

// NewDeepSeekProvider creates a DeepSeek provider that delegates to
// CompatProvider with the DeepSeek endpoint defaults.
func NewDeepSeekProvider(cfg config.ProviderConfig, logger *slog.Logger) *DeepSeekProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.deepseek.com/v1"
	}

	model := cfg.Model
	if model == "" {
		model = "deepseek-chat"
	}

	return &DeepSeekProvider{
		inner: &CompatProvider{
			name:    cfg.Name,
			model:   model,
			apiKey:  cfg.APIKey,
			baseURL: baseURL,
			client:  NewHTTPClient(cfg),
			logger:  logger,
		},
	}
}

// Chat implements domain.LLMProvider.
func (p *DeepSeekProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	return p.inner.Chat(ctx, req)
}

// Name implements domain.LLMProvider.
func (p *DeepSeekProvider) Name() string { return p.inner.Name() }
