package openai

import (
	"fmt"

	"github.com/praetorian-inc/deliberate/pkg/registry"
)

// Config holds typed configuration for the OpenAI gateway.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{}
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := DefaultConfig()

	model, err := registry.RequireString(m, "model")
	if err != nil {
		return cfg, fmt.Errorf("openai gateway requires 'model' configuration")
	}
	cfg.Model = model

	cfg.APIKey, err = registry.GetAPIKeyWithEnv(m, "OPENAI_API_KEY", "openai")
	if err != nil {
		return cfg, err
	}

	cfg.BaseURL = registry.GetString(m, "base_url", "")
	return cfg, nil
}

// Option is a functional option for Config.
type Option = registry.Option[Config]

// ApplyOptions applies functional options to a Config.
func ApplyOptions(cfg Config, opts ...Option) Config {
	return registry.ApplyOptions(cfg, opts...)
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}
