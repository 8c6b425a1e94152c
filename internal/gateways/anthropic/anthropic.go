// Package anthropic implements gateway.Gateway over Anthropic's Messages
// API using its server-sent-events streaming mode, since Anthropic has no
// official Go SDK comparable to go-openai.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/praetorian-inc/deliberate/pkg/gateway"
	"github.com/praetorian-inc/deliberate/pkg/registry"
)

func init() {
	gateway.Register("anthropic.Messages", New)
}

const defaultTimeout = 120 * time.Second

// New constructs an Anthropic gateway from registry.Config.
func New(m registry.Config) (gateway.Gateway, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewTyped(cfg)
}

// NewTyped constructs an Anthropic gateway from typed configuration.
func NewTyped(cfg Config) (*Gateway, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic gateway requires model")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic gateway requires api_key")
	}
	return &Gateway{cfg: cfg, client: &http.Client{Timeout: defaultTimeout}}, nil
}

// NewWithOptions constructs an Anthropic gateway from functional options.
func NewWithOptions(opts ...Option) (*Gateway, error) {
	return NewTyped(ApplyOptions(DefaultConfig(), opts...))
}

// Gateway is the Anthropic implementation of gateway.Gateway.
type Gateway struct {
	cfg    Config
	client *http.Client
}

type messageRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	Messages    []anthropicMsg   `json:"messages"`
	System      string           `json:"system,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	TopP        float64          `json:"top_p,omitempty"`
	TopK        int              `json:"top_k,omitempty"`
	Stream      bool             `json:"stream"`
}

type anthropicMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// sseEvent mirrors the fields we need from Anthropic's streaming events:
// content_block_delta carries the incremental text, message_stop ends the
// stream, error reports a mid-stream failure.
type sseEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete streams one Messages API completion over SSE.
func (g *Gateway) Complete(ctx context.Context, prompt, system string, sampling gateway.Sampling) (<-chan gateway.Chunk, error) {
	req := messageRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Messages:    []anthropicMsg{{Role: "user", Content: prompt}},
		System:      system,
		Temperature: sampling.Temperature,
		TopP:        sampling.TopP,
		TopK:        sampling.TopK,
		Stream:      true,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	url := strings.TrimSuffix(g.cfg.BaseURL, "/") + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", g.cfg.APIVersion)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("anthropic: HTTP %d", resp.StatusCode)
	}

	out := make(chan gateway.Chunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			data, ok := strings.CutPrefix(line, "data: ")
			if !ok {
				continue
			}

			var ev sseEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				continue
			}

			switch ev.Type {
			case "content_block_delta":
				if !emit(ctx, out, gateway.Chunk{Text: ev.Delta.Text}) {
					return
				}
			case "message_stop":
				emit(ctx, out, gateway.Chunk{Done: true})
				return
			case "error":
				emit(ctx, out, gateway.Chunk{Err: fmt.Errorf("anthropic: %s", ev.Error.Message), Done: true})
				return
			}
		}
		if err := scanner.Err(); err != nil {
			emit(ctx, out, gateway.Chunk{Err: fmt.Errorf("anthropic: read stream: %w", err), Done: true})
			return
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

func (g *Gateway) Name() string { return "anthropic.Messages" }

func (g *Gateway) Description() string {
	return "Anthropic gateway streaming completions over the Messages API"
}
