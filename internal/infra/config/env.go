package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env is the process environment bootstrap. Secrets live here, not in the
// YAML file; structure lives in the YAML file, not here.
type Env struct {
	ConfigPath      string `env:"FREIGHTDESK_CONFIG" envDefault:"freightdesk.yaml"`
	LogLevel        string `env:"FREIGHTDESK_LOG_LEVEL"`
	DeepSeekAPIKey  string `env:"DEEPSEEK_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
}

// LoadEnv parses the bootstrap environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse environment: %w", err)
	}
	return e, nil
}

// ApplyEnv injects environment-provided secrets and overrides into the
// config. A key already present in the YAML file wins over the environment,
// so checked-in configs for local providers keep working.
func (c *Config) ApplyEnv(e Env) {
	if e.LogLevel != "" {
		c.Logger.Level = e.LogLevel
	}
	for i := range c.Providers {
		if c.Providers[i].APIKey != "" {
			continue
		}
		switch c.Providers[i].Name {
		case "deepseek":
			c.Providers[i].APIKey = e.DeepSeekAPIKey
		case "anthropic":
			c.Providers[i].APIKey = e.AnthropicAPIKey
		case "gemini":
			c.Providers[i].APIKey = e.GeminiAPIKey
		}
	}
}
