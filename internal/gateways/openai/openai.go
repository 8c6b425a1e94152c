// Package openai implements gateway.Gateway over OpenAI's chat completion
// streaming API via the go-openai SDK.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/praetorian-inc/deliberate/pkg/gateway"
	"github.com/praetorian-inc/deliberate/pkg/registry"
	goopenai "github.com/sashabaranov/go-openai"
)

func init() {
	gateway.Register("openai.ChatCompletion", New)
}

// New constructs an OpenAI gateway from registry.Config.
func New(m registry.Config) (gateway.Gateway, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewTyped(cfg)
}

// NewTyped constructs an OpenAI gateway from typed configuration.
func NewTyped(cfg Config) (*Gateway, error) {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Gateway{client: goopenai.NewClientWithConfig(clientCfg), model: cfg.Model}, nil
}

// NewWithOptions constructs an OpenAI gateway from functional options.
func NewWithOptions(opts ...Option) (*Gateway, error) {
	return NewTyped(ApplyOptions(DefaultConfig(), opts...))
}

// Gateway is the OpenAI implementation of gateway.Gateway.
type Gateway struct {
	client *goopenai.Client
	model  string
}

// Complete streams a chat completion, forwarding each delta as a
// gateway.Chunk.
func (g *Gateway) Complete(ctx context.Context, prompt, system string, sampling gateway.Sampling) (<-chan gateway.Chunk, error) {
	var messages []goopenai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt})

	req := goopenai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: float32(sampling.Temperature),
		TopP:        float32(sampling.TopP),
		Stream:      true,
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai: create stream: %w", err)
	}

	out := make(chan gateway.Chunk)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				emit(ctx, out, gateway.Chunk{Done: true})
				return
			}
			if err != nil {
				emit(ctx, out, gateway.Chunk{Err: fmt.Errorf("openai: stream recv: %w", err), Done: true})
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if !emit(ctx, out, gateway.Chunk{Text: resp.Choices[0].Delta.Content}) {
				return
			}
		}
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

func (g *Gateway) Name() string { return "openai.ChatCompletion" }

func (g *Gateway) Description() string {
	return "OpenAI gateway streaming chat completions"
}
