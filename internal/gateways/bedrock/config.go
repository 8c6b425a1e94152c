package bedrock

import (
	"fmt"

	"github.com/praetorian-inc/deliberate/pkg/registry"
)

const defaultMaxTokens = 1024

// Config holds typed configuration for the Bedrock gateway.
type Config struct {
	ModelID   string
	Region    string
	MaxTokens int
	Endpoint  string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{MaxTokens: defaultMaxTokens}
}

// ConfigFromMap parses a registry.Config map into a typed Config.
func ConfigFromMap(m registry.Config) (Config, error) {
	cfg := DefaultConfig()

	modelID, err := registry.RequireString(m, "model")
	if err != nil {
		return cfg, fmt.Errorf("bedrock gateway: %w", err)
	}
	cfg.ModelID = modelID

	region, err := registry.RequireString(m, "region")
	if err != nil {
		return cfg, fmt.Errorf("bedrock gateway: %w", err)
	}
	cfg.Region = region

	if maxTokens := registry.GetInt(m, "max_tokens", 0); maxTokens > 0 {
		cfg.MaxTokens = maxTokens
	}
	cfg.Endpoint = registry.GetString(m, "endpoint", "")

	return cfg, nil
}

// Option is a functional option for Config.
type Option = registry.Option[Config]

// ApplyOptions applies functional options to a Config.
func ApplyOptions(cfg Config, opts ...Option) Config {
	return registry.ApplyOptions(cfg, opts...)
}

// WithModelID sets the Bedrock model ID.
func WithModelID(id string) Option { return func(c *Config) { c.ModelID = id } }

// WithRegion sets the AWS region.
func WithRegion(region string) Option { return func(c *Config) { c.Region = region } }

// WithMaxTokens sets the max token count.
func WithMaxTokens(n int) Option { return func(c *Config) { c.MaxTokens = n } }

// WithEndpoint overrides the Bedrock Runtime endpoint, mainly for tests.
func WithEndpoint(endpoint string) Option { return func(c *Config) { c.Endpoint = endpoint } }
