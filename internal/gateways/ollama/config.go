package ollama

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/praetorian-inc/deliberate/pkg/registry"
)

// DefaultHost is used when neither the config nor OLLAMA_HOST is set.
const DefaultHost = "http://127.0.0.1:11434"

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 60 * time.Second

// Config holds typed configuration for the Ollama gateway.
type Config struct {
	Model   string
	Host    string
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Host: DefaultHost, Timeout: DefaultTimeout}
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := DefaultConfig()

	model, err := registry.RequireString(m, "model")
	if err != nil {
		return cfg, fmt.Errorf("ollama gateway requires 'model' configuration")
	}
	cfg.Model = model

	cfg.Host = registry.GetString(m, "host", "")
	if cfg.Host == "" {
		if envHost := os.Getenv("OLLAMA_HOST"); envHost != "" {
			cfg.Host = envHost
		} else {
			cfg.Host = DefaultHost
		}
	}
	cfg.Host = strings.TrimSuffix(cfg.Host, "/")

	if timeout := registry.GetInt(m, "timeout", 0); timeout > 0 {
		cfg.Timeout = time.Duration(timeout) * time.Second
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
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithHost sets the Ollama host URL.
func WithHost(host string) Option {
	return func(c *Config) { c.Host = host }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}
