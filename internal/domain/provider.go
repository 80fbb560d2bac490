package domain

import (
	"context"
	"strings"
)

// Provider identifies an LLM backend vendor. The set is closed: callers that
// hold a Provider value always hold one of the constants below.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderDeepSeek  Provider = "deepseek"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// DefaultProvider is the hard-coded fallback when no configuration matches.
const DefaultProvider = ProviderOllama

// ParseProvider maps a free-form string to a known Provider. Matching is
// case-insensitive. The second return is false for unrecognized input;
// callers fall through to the next configuration level, never error.
func ParseProvider(s string) (Provider, bool) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderOllama:
		return ProviderOllama, true
	case ProviderDeepSeek:
		return ProviderDeepSeek, true
	case ProviderAnthropic:
		return ProviderAnthropic, true
	case ProviderGemini:
		return ProviderGemini, true
	}
	return "", false
}

// KnownProviders returns the closed provider set.
func KnownProviders() []Provider {
	return []Provider{ProviderOllama, ProviderDeepSeek, ProviderAnthropic, ProviderGemini}
}

// LLMProvider is the interface for any LLM backend.
type LLMProvider interface {
	// Chat sends a request and returns a complete response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Name returns the provider's identifier (e.g., "ollama", "deepseek").
	Name() string
}
