package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Models    ModelRoutingConfig `yaml:"models"`
	Providers []ProviderConfig   `yaml:"providers"`
	Guardrail GuardrailConfig    `yaml:"guardrail"`
	RateLimit RateLimitConfig    `yaml:"rate_limit"`
	Session   SessionConfig      `yaml:"session"`
	Audit     AuditConfig        `yaml:"audit"`
	Broadcast BroadcastConfig    `yaml:"broadcast"`
	Pricing   PricingConfig      `yaml:"pricing"`
	Logger    LoggerConfig       `yaml:"logger"`
	Tracer    TracerConfig       `yaml:"tracer"`
}

// ModelOverride is one layer of provider/model routing configuration.
// Either field may be empty; empty fields fall through to the next layer.
type ModelOverride struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
}

// ModelRoutingConfig holds the layered routing tables consumed by the
// resolver. Precedence: Domains[domain][role] > Roles[role] > Global >
// hard-coded default. Defaults is the per-(provider, role) default model
// table, loaded once and read-only thereafter.
type ModelRoutingConfig struct {
	Global       ModelOverride                       `yaml:"global,omitempty"`
	Roles        map[string]ModelOverride            `yaml:"roles,omitempty"`
	Domains      map[string]map[string]ModelOverride `yaml:"domains,omitempty"`
	Defaults     map[string]map[string]string        `yaml:"defaults,omitempty"`
	DefaultModel string                              `yaml:"default_model,omitempty"`
}

// ProviderConfig holds the transport settings for one LLM backend.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Pool        PoolConfig    `yaml:"pool"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// PoolConfig tunes the pooled HTTP transport shared by provider backends.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// BreakerConfig configures the per-provider circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// GuardrailConfig holds the tool-batch policy. Both values are policy, not
// constants: the cap and the category list are owned by the tool registry
// owner and may change per deployment.
type GuardrailConfig struct {
	MaxCallsPerTurn  int      `yaml:"max_calls_per_turn"`
	DeniedCategories []string `yaml:"denied_categories"`
}

// RateLimitConfig bounds how fast a single actor may start turns.
type RateLimitConfig struct {
	TurnsPerMinute int `yaml:"turns_per_minute"`
	Burst          int `yaml:"burst"`
}

// SessionConfig holds session-state persistence settings.
type SessionConfig struct {
	DBPath string `yaml:"db_path"`
}

// AuditConfig selects and configures the audit store backend.
type AuditConfig struct {
	Backend string        `yaml:"backend"` // "file" or "sqlite"
	Path    string        `yaml:"path"`
	MaxAge  time.Duration `yaml:"max_age"` // 0 = keep forever
}

// BroadcastConfig tunes the progress broadcaster.
type BroadcastConfig struct {
	// SubscribeWait bounds how long a turn waits for an observer before
	// proceeding and dropping that turn's events.
	SubscribeWait time.Duration `yaml:"subscribe_wait"`
}

// PricingConfig is the price table read by the quote tool.
type PricingConfig struct {
	Currency string     `yaml:"currency"`
	BaseFee  float64    `yaml:"base_fee"`
	PerKg    float64    `yaml:"per_kg"`
	Lanes    []LaneRate `yaml:"lanes,omitempty"`
}

// LaneRate overrides the flat rate for one origin/destination lane.
type LaneRate struct {
	Origin      string  `yaml:"origin"`
	Destination string  `yaml:"destination"`
	BaseFee     float64 `yaml:"base_fee"`
	PerKg       float64 `yaml:"per_kg"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout, noop
}

// Load reads and parses the YAML config at path, applies defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a usable configuration without reading any file.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Guardrail.MaxCallsPerTurn == 0 {
		c.Guardrail.MaxCallsPerTurn = 1
	}
	if c.Guardrail.DeniedCategories == nil {
		c.Guardrail.DeniedCategories = []string{"analytics"}
	}
	if c.RateLimit.TurnsPerMinute == 0 {
		c.RateLimit.TurnsPerMinute = 30
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 5
	}
	if c.Session.DBPath == "" {
		c.Session.DBPath = "freightdesk.db"
	}
	if c.Audit.Backend == "" {
		c.Audit.Backend = "file"
	}
	if c.Audit.Path == "" {
		c.Audit.Path = "audit.log"
	}
	if c.Broadcast.SubscribeWait == 0 {
		c.Broadcast.SubscribeWait = 200 * time.Millisecond
	}
	if c.Models.DefaultModel == "" {
		c.Models.DefaultModel = "llama3.1"
	}
	if c.Pricing.Currency == "" {
		c.Pricing.Currency = "EUR"
	}
	if c.Pricing.BaseFee == 0 {
		c.Pricing.BaseFee = 4.90
	}
	if c.Pricing.PerKg == 0 {
		c.Pricing.PerKg = 1.15
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "text"
	}
	if c.Logger.Output == "" {
		c.Logger.Output = "stderr"
	}
	if c.Tracer.Exporter == "" {
		c.Tracer.Exporter = "noop"
	}
	if len(c.Providers) == 0 {
		c.Providers = []ProviderConfig{{Name: "ollama"}}
	}
}

// Validate checks configuration invariants. Unknown provider names in the
// routing overrides are deliberately NOT an error: the resolver ignores
// them at lookup time, so a stale override never prevents startup.
func (c *Config) Validate() error {
	if c.Guardrail.MaxCallsPerTurn < 1 {
		return fmt.Errorf("guardrail.max_calls_per_turn must be >= 1, got %d", c.Guardrail.MaxCallsPerTurn)
	}
	if c.RateLimit.TurnsPerMinute < 1 {
		return fmt.Errorf("rate_limit.turns_per_minute must be >= 1, got %d", c.RateLimit.TurnsPerMinute)
	}
	switch c.Audit.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("audit.backend must be \"file\" or \"sqlite\", got %q", c.Audit.Backend)
	}
	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Provider returns the ProviderConfig with the given name, if present.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}
