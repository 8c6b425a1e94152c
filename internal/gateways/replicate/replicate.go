// Package replicate implements gateway.Gateway over the Replicate prediction
// API. replicate-go's Run call blocks until the full prediction completes, so
// unlike the other gateways this one has no incremental chunks to forward: it
// emits the whole completion as a single chunk followed by the terminal
// chunk, which still satisfies gateway.Gateway's streaming contract.
package replicate

import (
	"context"
	"fmt"
	"strings"

	"github.com/praetorian-inc/deliberate/pkg/gateway"
	"github.com/praetorian-inc/deliberate/pkg/registry"
	replicatego "github.com/replicate/replicate-go"
)

func init() {
	gateway.Register("replicate.Replicate", New)
}

// New constructs a Replicate gateway from registry.Config.
func New(m registry.Config) (gateway.Gateway, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewTyped(cfg)
}

// NewTyped constructs a Replicate gateway from typed configuration.
func NewTyped(cfg Config) (*Gateway, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("replicate gateway requires model")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("replicate gateway requires api_key")
	}

	opts := []replicatego.ClientOption{replicatego.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, replicatego.WithBaseURL(cfg.BaseURL))
	}

	client, err := replicatego.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("replicate: create client: %w", err)
	}
	return &Gateway{cfg: cfg, client: client}, nil
}

// NewWithOptions constructs a Replicate gateway from functional options.
func NewWithOptions(opts ...Option) (*Gateway, error) {
	return NewTyped(ApplyOptions(DefaultConfig(), opts...))
}

// Gateway is the Replicate implementation of gateway.Gateway.
type Gateway struct {
	cfg    Config
	client *replicatego.Client
}

// Complete runs one prediction and forwards its full output as a single chunk.
func (g *Gateway) Complete(ctx context.Context, prompt, system string, sampling gateway.Sampling) (<-chan gateway.Chunk, error) {
	fullPrompt := prompt
	if system != "" {
		fullPrompt = system + "\n\n" + prompt
	}

	input := replicatego.PredictionInput{
		"prompt":             fullPrompt,
		"temperature":        float64(firstNonZero(sampling.Temperature, float64(g.cfg.Temperature))),
		"top_p":              float64(firstNonZero(sampling.TopP, float64(g.cfg.TopP))),
		"repetition_penalty": float64(g.cfg.RepetitionPenalty),
		"seed":               g.cfg.Seed,
	}
	if g.cfg.MaxTokens > 0 {
		input["max_length"] = g.cfg.MaxTokens
	}

	out := make(chan gateway.Chunk, 1)
	go func() {
		defer close(out)

		output, err := g.client.Run(ctx, g.cfg.Model, input, nil)
		if err != nil {
			emit(ctx, out, gateway.Chunk{Err: wrapError(err), Done: true})
			return
		}

		text := extractText(output)
		if text != "" {
			if !emit(ctx, out, gateway.Chunk{Text: text}) {
				return
			}
		}
		emit(ctx, out, gateway.Chunk{Done: true})
	}()
	return out, nil
}

func emit(ctx context.Context, out chan<- gateway.Chunk, c gateway.Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func firstNonZero(preferred float64, fallback float64) float64 {
	if preferred != 0 {
		return preferred
	}
	return fallback
}

// extractText converts Replicate's output, which can be a string, a []string,
// or a []any of strings depending on the model, into a single string.
func extractText(output replicatego.PredictionOutput) string {
	switch v := output.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, "")
	case []any:
		var parts []string
		for _, elem := range v {
			if s, ok := elem.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "")
	default:
		return fmt.Sprintf("%v", output)
	}
}

func wrapError(err error) error {
	if apiErr, ok := err.(*replicatego.APIError); ok {
		return fmt.Errorf("replicate: API error (status %d): %w", apiErr.Status, err)
	}
	return fmt.Errorf("replicate: %w", err)
}

func (g *Gateway) Name() string { return "replicate.Replicate" }

func (g *Gateway) Description() string {
	return "Replicate gateway running open-source models hosted on Replicate's API"
}
