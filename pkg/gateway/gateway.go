// Package gateway defines the model gateway contract used by the deliberation
// engine: a minimal streaming completion call plus cooperative cancellation.
//
// Gateways wrap LLM APIs (OpenAI, Anthropic, Bedrock, Replicate, Ollama) behind
// one interface. They handle authentication and request shaping; the engine
// never talks to a vendor SDK directly.
package gateway

import (
	"context"

	"github.com/praetorian-inc/deliberate/pkg/registry"

)

// Sampling carries the generation parameters passed through to a gateway.
type Sampling struct {
	Temperature float64
	TopP        float64
	TopK        int
}

// Chunk is one piece of a streamed completion.
//
// A gateway implementation sends zero or more chunks with Err == nil and
// Done == false, followed by exactly one terminal chunk with Done == true
// (or a chunk with Err set, which is also terminal). Concatenating the Text
// fields of all non-error chunks in order yields the full completion.
type Chunk struct {
	Text string
	Done bool
	Err  error
}

// Gateway is the interface every model backend implements.
//
// Complete issues one completion request and returns a channel of chunks.
// The channel is closed by the implementation once the terminal chunk has
// been sent. Cancelling ctx must cause the implementation to stop reading
// from the underlying transport and close the channel promptly; this is
// the Go equivalent of the spec's "cancel() hook".
type Gateway interface {
	Complete(ctx context.Context, prompt, system string, sampling Sampling) (<-chan Chunk, error)
	// Name returns the fully qualified gateway name (e.g., "openai.ChatCompletion").
	Name() string
	// Description returns a human-readable description.
	Description() string
}

// Registry is the global gateway registry.
var Registry = registry.New[Gateway]("gateways")

// Register adds a gateway factory to the global registry.
// Called from init() functions in gateway implementations.
func Register(name string, factory func(registry.Config) (Gateway, error)) {
	Registry.Register(name, factory)
}

// List returns all registered gateway names.
func List() []string {
	return Registry.List()
}

// Get retrieves a gateway factory by name.
func Get(name string) (func(registry.Config) (Gateway, error), bool) {
	return Registry.Get(name)
}

// Create instantiates a gateway by name.
func Create(name string, cfg registry.Config) (Gateway, error) {
	return Registry.Create(name, cfg)
}
