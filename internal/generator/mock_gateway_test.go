package generator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/praetorian-inc/deliberate/pkg/gateway"
)

// scriptedGateway returns a fixed response for every call, except that the
// first failUntil calls return an empty completion. It's safe for concurrent use since GenerateCandidates
// fires all K calls at once.
type scriptedGateway struct {
	response  string
	failUntil int32 // calls below this index (0-based) fail
	calls     int32
	mu        sync.Mutex
	prompts   []string
}

func (g *scriptedGateway) Complete(ctx context.Context, prompt, system string, sampling gateway.Sampling) (<-chan gateway.Chunk, error) {
	n := atomic.AddInt32(&g.calls, 1) - 1

	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	ch := make(chan gateway.Chunk, 1)
	if n < g.failUntil {
		ch <- gateway.Chunk{Text: "", Done: true}
	} else {
		ch <- gateway.Chunk{Text: g.response, Done: true}
	}
	close(ch)
	return ch, nil
}

func (g *scriptedGateway) Name() string        { return "test.scripted" }
func (g *scriptedGateway) Description() string { return "scripted test gateway" }
