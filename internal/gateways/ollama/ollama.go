// Package ollama implements gateway.Gateway against a local or remote Ollama
// server's streaming /api/generate endpoint. Ollama's NDJSON stream is the
// most direct match for the gateway contract: each line is a JSON object
// that maps onto one gateway.Chunk with no reframing needed.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/praetorian-inc/deliberate/pkg/gateway"
	"github.com/praetorian-inc/deliberate/pkg/registry"
)

func init() {
	gateway.Register("ollama.Generate", New)
}

// New constructs an Ollama gateway from registry.Config, the entry point the
// global gateway registry calls by name.
func New(m registry.Config) (gateway.Gateway, error) {
	cfg, err := ConfigFromMap(m)
	if err != nil {
		return nil, err
	}
	return NewTyped(cfg)
}

// NewTyped constructs an Ollama gateway from typed configuration.
func NewTyped(cfg Config) (*Gateway, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama gateway requires a model")
	}
	return &Gateway{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// NewWithOptions constructs an Ollama gateway from functional options.
func NewWithOptions(opts ...Option) (*Gateway, error) {
	return NewTyped(ApplyOptions(DefaultConfig(), opts...))
}

// Gateway is the Ollama implementation of gateway.Gateway.
type Gateway struct {
	cfg    Config
	client *http.Client
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
}

type generateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options,omitempty"`
}

type generateLine struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Complete streams one completion by reading the /api/generate NDJSON
// response line by line, forwarding one gateway.Chunk per line.
func (g *Gateway) Complete(ctx context.Context, prompt, system string, sampling gateway.Sampling) (<-chan gateway.Chunk, error) {
	reqBody := generateRequest{
		Model:  g.cfg.Model,
		Prompt: prompt,
		System: system,
		Stream: true,
		Options: ollamaOptions{
			Temperature: sampling.Temperature,
			TopP:        sampling.TopP,
			TopK:        sampling.TopK,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("ollama: server returned status %d", resp.StatusCode)
	}

	out := make(chan gateway.Chunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				emit(ctx, out, gateway.Chunk{Err: ctx.Err(), Done: true})
				return
			default:
			}

			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var parsed generateLine
			if err := json.Unmarshal(line, &parsed); err != nil {
				emit(ctx, out, gateway.Chunk{Err: fmt.Errorf("ollama: parse stream line: %w", err), Done: true})
				return
			}
			if parsed.Error != "" {
				emit(ctx, out, gateway.Chunk{Err: fmt.Errorf("ollama: %s", parsed.Error), Done: true})
				return
			}
			if !emit(ctx, out, gateway.Chunk{Text: parsed.Response, Done: parsed.Done}) {
				return
			}
			if parsed.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			emit(ctx, out, gateway.Chunk{Err: fmt.Errorf("ollama: read stream: %w", err), Done: true})
			return
		}
		// Stream ended without an explicit done:true line.
		emit(ctx, out, gateway.Chunk{Done: true})
	}()
	return out, nil
}

// emit sends c on out unless ctx is done first, reporting whether the send
// happened so the caller knows whether to keep reading.
func emit(ctx context.Context, out chan<- gateway.Chunk, c gateway.Chunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func (g *Gateway) Name() string { return "ollama.Generate" }

func (g *Gateway) Description() string {
	return "Ollama gateway streaming completions from the /api/generate endpoint"
}
