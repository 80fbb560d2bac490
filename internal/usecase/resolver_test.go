package usecase

import (
	"testing"

	"freightdesk/internal/domain"
	"freightdesk/internal/infra/config"
)

func TestResolveProviderPrecedence(t *testing.T) {
	routing := config.ModelRoutingConfig{
		Global: config.ModelOverride{Provider: "gemini"},
		Roles: map[string]config.ModelOverride{
			"finalizer": {Provider: "anthropic"},
		},
		Domains: map[string]map[string]config.ModelOverride{
			"quote": {
				"finalizer": {Provider: "deepseek"},
			},
		},
	}
	r := NewResolver(routing)

	// Domain+role beats role beats global.
	if got := r.ResolveProvider(domain.RoleFinalizer, "quote"); got != domain.ProviderDeepSeek {
		t.Errorf("domain+role override: got %q, want deepseek", got)
	}
	if got := r.ResolveProvider(domain.RoleFinalizer, "billing"); got != domain.ProviderAnthropic {
		t.Errorf("role override: got %q, want anthropic", got)
	}
	if got := r.ResolveProvider(domain.RoleRequestManager, "quote"); got != domain.ProviderGemini {
		t.Errorf("global override: got %q, want gemini", got)
	}
}

func TestResolveProviderGlobalOnly(t *testing.T) {
	r := NewResolver(config.ModelRoutingConfig{
		Global: config.ModelOverride{Provider: "anthropic"},
	})
	for _, role := range domain.KnownRoles() {
		for _, dom := range []string{"", "quote", "anything"} {
			if got := r.ResolveProvider(role, dom); got != domain.ProviderAnthropic {
				t.Errorf("ResolveProvider(%s, %q) = %q, want anthropic", role, dom, got)
			}
		}
	}
}

func TestResolveProviderCaseInsensitive(t *testing.T) {
	r := NewResolver(config.ModelRoutingConfig{
		Domains: map[string]map[string]config.ModelOverride{
			"Quote": {
				"Finalizer": {Provider: "DeepSeek"},
			},
		},
	})
	if got := r.ResolveProvider(domain.RoleFinalizer, "quote"); got != domain.ProviderDeepSeek {
		t.Errorf("mixed-case config: got %q, want deepseek", got)
	}
	if got := r.ResolveProvider(domain.RoleFinalizer, "QUOTE"); got != domain.ProviderDeepSeek {
		t.Errorf("upper-case lookup: got %q, want deepseek", got)
	}
}

func TestResolveProviderUnknownFallsThrough(t *testing.T) {
	r := NewResolver(config.ModelRoutingConfig{
		Global: config.ModelOverride{Provider: "gemini"},
		Roles: map[string]config.ModelOverride{
			"finalizer": {Provider: "not_a_provider"},
		},
	})
	// The bogus role override is skipped, not an error.
	if got := r.ResolveProvider(domain.RoleFinalizer, ""); got != domain.ProviderGemini {
		t.Errorf("unknown override: got %q, want gemini", got)
	}

	// With nothing recognizable anywhere, the hard-coded default wins.
	r = NewResolver(config.ModelRoutingConfig{
		Global: config.ModelOverride{Provider: "not_a_provider"},
	})
	if got := r.ResolveProvider(domain.RoleFinalizer, ""); got != domain.DefaultProvider {
		t.Errorf("all unknown: got %q, want default %q", got, domain.DefaultProvider)
	}
}

func TestResolveModel(t *testing.T) {
	routing := config.ModelRoutingConfig{
		Roles: map[string]config.ModelOverride{
			"finalizer": {Model: "claude-sonnet-4"},
		},
		Defaults: map[string]map[string]string{
			"ollama": {"request_manager": "qwen2.5"},
		},
		DefaultModel: "llama3.1",
	}
	r := NewResolver(routing)

	if got := r.ResolveModel(domain.ProviderAnthropic, domain.RoleFinalizer, ""); got != "claude-sonnet-4" {
		t.Errorf("override model: got %q", got)
	}
	if got := r.ResolveModel(domain.ProviderOllama, domain.RoleRequestManager, ""); got != "qwen2.5" {
		t.Errorf("provider/role default: got %q", got)
	}
	if got := r.ResolveModel(domain.ProviderDeepSeek, domain.RoleRequestManager, ""); got != "llama3.1" {
		t.Errorf("default model: got %q", got)
	}
}

// A layer can carry an unrecognized provider next to a usable model name.
// Provider resolution skips the layer; the model walk does not. The pairing
// is the operator's contract, pinned here so it never changes silently.
func TestResolveModelIndependentOfProviderLayer(t *testing.T) {
	r := NewResolver(config.ModelRoutingConfig{
		Global:       config.ModelOverride{Provider: "watson", Model: "granite-13b"},
		DefaultModel: "llama3.1",
	})

	provider, model := r.Resolve(domain.RoleFinalizer, "")
	if provider != domain.DefaultProvider {
		t.Errorf("provider = %q, want default %q", provider, domain.DefaultProvider)
	}
	if model != "granite-13b" {
		t.Errorf("model = %q, want the layer's model despite its skipped provider", model)
	}
}

func TestResolveNeverEmptyWithDefaults(t *testing.T) {
	cfg := config.Default()
	r := NewResolver(cfg.Models)
	for _, role := range domain.KnownRoles() {
		provider, model := r.Resolve(role, domain.DomainQuote)
		if provider == "" || model == "" {
			t.Errorf("Resolve(%s) returned empty provider or model: %q %q", role, provider, model)
		}
	}
}
