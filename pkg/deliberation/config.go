package deliberation

import (
	"fmt"
	"runtime"

	"github.com/praetorian-inc/deliberate/pkg/templates"
)

// GenerationConfig configures candidate generation calls.
type GenerationConfig struct {
	Temperature float64 `yaml:"temperature" koanf:"temperature" validate:"gte=0,lte=2"`
	TopP        float64 `yaml:"top_p" koanf:"top_p" validate:"gte=0,lte=1"`
	TopK        int     `yaml:"top_k" koanf:"top_k" validate:"gte=0"`
	Endpoint    string  `yaml:"endpoint,omitempty" koanf:"endpoint"`
	Model       string  `yaml:"model,omitempty" koanf:"model"`
}

// RankingConfig configures ranking-oracle calls.
type RankingConfig struct {
	Temperature float64 `yaml:"temperature" koanf:"temperature" validate:"gte=0,lte=2"`
	MaxRetries  int     `yaml:"max_retries" koanf:"max_retries" validate:"gte=1"`
	Endpoint    string  `yaml:"endpoint,omitempty" koanf:"endpoint"`
	Model       string  `yaml:"model,omitempty" koanf:"model"`
}

// PromptTemplatesConfig carries the raw template strings as loaded from
// configuration, before placeholder validation.
type PromptTemplatesConfig struct {
	Candidate string `yaml:"candidate,omitempty" koanf:"candidate"`
	Ranking   string `yaml:"ranking,omitempty" koanf:"ranking"`
}

// Config is the complete deliberation engine configuration (spec section 6).
type Config struct {
	Generation      GenerationConfig      `yaml:"generation" koanf:"generation"`
	Ranking         RankingConfig         `yaml:"ranking" koanf:"ranking"`
	NumCandidates   int                   `yaml:"num_candidates" koanf:"num_candidates" validate:"gte=2,lte=9"`
	MaxGroupSize    int                   `yaml:"max_group_size" koanf:"max_group_size" validate:"gte=2"`
	VotingStrategy  VotingStrategy        `yaml:"voting_strategy" koanf:"voting_strategy"`
	MaxInFlight     int                   `yaml:"max_in_flight" koanf:"max_in_flight" validate:"gte=2"`
	PromptTemplates PromptTemplatesConfig `yaml:"prompt_templates,omitempty" koanf:"prompt_templates"`
}

// Default returns the configuration defaults listed in spec section 6.
func Default() Config {
	return Config{
		Generation: GenerationConfig{
			Temperature: 0.7,
			TopP:        0.9,
			TopK:        40,
		},
		Ranking: RankingConfig{
			Temperature: 0.2,
			MaxRetries:  3,
		},
		NumCandidates:  4,
		MaxGroupSize:   12,
		VotingStrategy: OwnGroupOnly,
		MaxInFlight:    defaultMaxInFlight(),
	}
}

// defaultMaxInFlight is the CPU count, floored at 2.
func defaultMaxInFlight() int {
	n := runtime.NumCPU()
	if n < 2 {
		return 2
	}
	return n
}

// Templates resolves the effective prompt template set: configured
// overrides where given, built-in defaults otherwise.
func (c Config) Templates() templates.Set {
	defaults := templates.Default()
	set := defaults
	if c.PromptTemplates.Candidate != "" {
		set.Candidate = c.PromptTemplates.Candidate
	}
	if c.PromptTemplates.Ranking != "" {
		set.Ranking = c.PromptTemplates.Ranking
	}
	return set
}

// Validate checks the configuration and resolves the prompt templates,
// returning a TemplateError or a plain error describing the first problem.
func (c Config) Validate() error {
	if c.NumCandidates < 2 || c.NumCandidates > 9 {
		return fmt.Errorf("%w: num_candidates must be in [2, 9], got %d", ErrInvalidInput, c.NumCandidates)
	}
	if c.MaxGroupSize < 2 {
		return fmt.Errorf("%w: max_group_size must be >= 2, got %d", ErrInvalidInput, c.MaxGroupSize)
	}
	if c.MaxInFlight < 2 {
		return fmt.Errorf("%w: max_in_flight must be >= 2, got %d", ErrInvalidInput, c.MaxInFlight)
	}
	if c.Ranking.MaxRetries < 1 {
		return fmt.Errorf("%w: ranking.max_retries must be >= 1, got %d", ErrInvalidInput, c.Ranking.MaxRetries)
	}
	switch c.VotingStrategy {
	case "", OwnGroupOnly, AllParticipants:
	default:
		return fmt.Errorf("%w: unknown voting_strategy %q", ErrInvalidInput, c.VotingStrategy)
	}
	return c.Templates().Validate()
}

// ClampK applies the spec's group size clamp: 2 <= K <= min(9, members).
func ClampK(requested, members int) int {
	k := requested
	max := members
	if max > 9 {
		max = 9
	}
	if k > max {
		k = max
	}
	if k < 2 {
		k = 2
	}
	if k > members {
		k = members
	}
	return k
}
