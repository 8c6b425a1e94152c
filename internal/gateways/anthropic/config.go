package anthropic

import (
	"fmt"

	"github.com/praetorian-inc/deliberate/pkg/registry"
)

const (
	defaultMaxTokens  = 1024
	defaultAPIVersion = "2023-06-01"
	defaultBaseURL    = "https://api.anthropic.com/v1"
)

// Config holds typed configuration for the Anthropic gateway.
type Config struct {
	Model      string
	APIKey     string
	BaseURL    string
	APIVersion string
	MaxTokens  int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{BaseURL: defaultBaseURL, APIVersion: defaultAPIVersion, MaxTokens: defaultMaxTokens}
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := DefaultConfig()

	model, err := registry.RequireString(m, "model")
	if err != nil {
		return cfg, fmt.Errorf("anthropic gateway requires 'model' configuration")
	}
	cfg.Model = model

	cfg.APIKey, err = registry.GetAPIKeyWithEnv(m, "ANTHROPIC_API_KEY", "anthropic")
	if err != nil {
		return cfg, err
	}

	if baseURL := registry.GetString(m, "base_url", ""); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if maxTokens := registry.GetInt(m, "max_tokens", 0); maxTokens > 0 {
		cfg.MaxTokens = maxTokens
	}

	return cfg, nil
}

// Option is a functional option for Config.
type Option = registry.Option[Config]

// ApplyOptions applies functional options to a Config.
func ApplyOptions(cfg Config, opts ...Option) Config {
	return registry.ApplyOptions(cfg, opts...)
}

// WithModel sets the model name.
func WithModel(model string) Option { return func(c *Config) { c.Model = model } }

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }

// WithMaxTokens sets the max_tokens request field, required by Anthropic.
func WithMaxTokens(n int) Option { return func(c *Config) { c.MaxTokens = n } }
