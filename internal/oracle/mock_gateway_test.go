package oracle

import (
	"context"

	"github.com/praetorian-inc/deliberate/pkg/gateway"
)

// scriptedGateway returns one scripted response per call, in order, cycling
// if exhausted. It mirrors the teacher's MockGenerator pattern, adapted to
// the streaming Gateway contract: each response is emitted as a single
// chunk.
type scriptedGateway struct {
	responses []string
	calls     int
}

func (g *scriptedGateway) Complete(ctx context.Context, prompt, system string, sampling gateway.Sampling) (<-chan gateway.Chunk, error) {
	resp := g.responses[g.calls%len(g.responses)]
	g.calls++

	ch := make(chan gateway.Chunk, 1)
	ch <- gateway.Chunk{Text: resp, Done: true}
	close(ch)
	return ch, nil
}

func (g *scriptedGateway) Name() string        { return "test.scripted" }
func (g *scriptedGateway) Description() string { return "scripted test gateway" }
