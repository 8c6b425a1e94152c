// Package config loads deliberation.Config from a YAML file and environment
// variables, with precedence env > file > defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/praetorian-inc/deliberate/pkg/deliberation"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix environment-variable overrides must carry, e.g.
// DELIBERATE_NUM_CANDIDATES or DELIBERATE_GENERATION__TEMPERATURE (double
// underscore maps to a nested key, matching the teacher's convention).
const EnvPrefix = "DELIBERATE_"

// Load builds a deliberation.Config with precedence:
// environment variables > YAML file > built-in defaults.
// configPath may be empty to skip the file layer.
func Load(configPath string) (deliberation.Config, error) {
	k := koanf.New(".")

	defaults := deliberation.Default()
	if err := k.Load(confmap.Provider(structToMap(defaults), "."), nil); err != nil {
		return deliberation.Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return deliberation.Config{}, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil)
	if err != nil {
		return deliberation.Config{}, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg deliberation.Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return deliberation.Config{}, fmt.Errorf("config unmarshal failed: %w", err)
	}

	v := validator.New()
	if err := v.Struct(&cfg); err != nil {
		return deliberation.Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return deliberation.Config{}, err
	}

	return cfg, nil
}

// structToMap flattens defaults into the map shape confmap.Provider wants.
// Only the handful of top-level/nested fields Config actually has are
// represented; this mirrors how the defaults are documented in spec section 6.
func structToMap(cfg deliberation.Config) map[string]any {
	return map[string]any{
		"generation": map[string]any{
			"temperature": cfg.Generation.Temperature,
			"top_p":       cfg.Generation.TopP,
			"top_k":       cfg.Generation.TopK,
			"endpoint":    cfg.Generation.Endpoint,
			"model":       cfg.Generation.Model,
		},
		"ranking": map[string]any{
			"temperature": cfg.Ranking.Temperature,
			"max_retries": cfg.Ranking.MaxRetries,
			"endpoint":    cfg.Ranking.Endpoint,
			"model":       cfg.Ranking.Model,
		},
		"num_candidates":  cfg.NumCandidates,
		"max_group_size":  cfg.MaxGroupSize,
		"voting_strategy": string(cfg.VotingStrategy),
		"max_in_flight":   cfg.MaxInFlight,
	}
}
