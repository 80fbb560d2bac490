package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1, cfg.Guardrail.MaxCallsPerTurn)
	assert.Equal(t, []string{"analytics"}, cfg.Guardrail.DeniedCategories)
	assert.Equal(t, "llama3.1", cfg.Models.DefaultModel)
	assert.Equal(t, 200*time.Millisecond, cfg.Broadcast.SubscribeWait)
	assert.Equal(t, "file", cfg.Audit.Backend)
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "ollama", cfg.Providers[0].Name)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "freightdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  global:
    provider: ollama
  roles:
    finalizer:
      provider: anthropic
      model: claude-sonnet-4
  domains:
    quote:
      request_manager:
        provider: deepseek
  default_model: qwen2.5
providers:
  - name: ollama
  - name: anthropic
    api_key: test-key
guardrail:
  max_calls_per_turn: 2
  denied_categories: [analytics, billing]
audit:
  backend: sqlite
  path: audit.db
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Models.Global.Provider)
	assert.Equal(t, "claude-sonnet-4", cfg.Models.Roles["finalizer"].Model)
	assert.Equal(t, "deepseek", cfg.Models.Domains["quote"]["request_manager"].Provider)
	assert.Equal(t, "qwen2.5", cfg.Models.DefaultModel)
	assert.Equal(t, 2, cfg.Guardrail.MaxCallsPerTurn)
	assert.Equal(t, []string{"analytics", "billing"}, cfg.Guardrail.DeniedCategories)
	assert.Equal(t, "sqlite", cfg.Audit.Backend)
	// Defaults still fill the gaps.
	assert.Equal(t, 30, cfg.RateLimit.TurnsPerMinute)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero guardrail cap", func(c *Config) { c.Guardrail.MaxCallsPerTurn = -1 }},
		{"zero rate limit", func(c *Config) { c.RateLimit.TurnsPerMinute = -1 }},
		{"bad audit backend", func(c *Config) { c.Audit.Backend = "kafka" }},
		{"duplicate provider", func(c *Config) {
			c.Providers = []ProviderConfig{{Name: "ollama"}, {Name: "ollama"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// Unknown provider names in routing overrides must not fail validation;
// the resolver skips them at lookup time.
func TestValidateToleratesUnknownOverride(t *testing.T) {
	cfg := Default()
	cfg.Models.Global.Provider = "not_a_provider"
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.Providers = []ProviderConfig{
		{Name: "deepseek"},
		{Name: "anthropic", APIKey: "from-yaml"},
	}
	cfg.ApplyEnv(Env{
		LogLevel:        "debug",
		DeepSeekAPIKey:  "ds-env",
		AnthropicAPIKey: "an-env",
	})

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "ds-env", cfg.Providers[0].APIKey)
	// YAML wins over environment.
	assert.Equal(t, "from-yaml", cfg.Providers[1].APIKey)
}
