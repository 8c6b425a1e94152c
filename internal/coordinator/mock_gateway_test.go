package coordinator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/praetorian-inc/deliberate/pkg/events"
	"github.com/praetorian-inc/deliberate/pkg/gateway"
)

// identityGateway answers candidate-generation prompts with a fixed
// statement and ranking prompts with the identity permutation (candidate 1
// always most preferred), so elections are fully deterministic: the winner
// is always candidate index 0.
type identityGateway struct{}

var numberedLine = regexp.MustCompile(`(?m)^\d+\. `)

func (identityGateway) Complete(ctx context.Context, prompt, system string, sampling gateway.Sampling) (<-chan gateway.Chunk, error) {
	ch := make(chan gateway.Chunk, 1)
	switch {
	case strings.Contains(prompt, "Write a single consensus statement"):
		ch <- gateway.Chunk{Text: "<statement>Consensus.</statement>", Done: true}
	case strings.Contains(prompt, "Rank all"):
		k := len(numberedLine.FindAllString(prompt, -1))
		ch <- gateway.Chunk{Text: identityRankingJSON(k), Done: true}
	default:
		close(ch)
		return ch, fmt.Errorf("identityGateway: unrecognized prompt shape")
	}
	close(ch)
	return ch, nil
}

func (identityGateway) Name() string        { return "test.identity" }
func (identityGateway) Description() string { return "deterministic test gateway" }

func identityRankingJSON(k int) string {
	var b strings.Builder
	b.WriteString(`{"ranking": [`)
	for i := 1; i <= k; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", i)
	}
	b.WriteString(`]}`)
	return b.String()
}

// erroringGateway always fails, for testing that persistent gateway
// failures surface as an error (ErrGenerationFailed from the generator)
// rather than hanging or panicking.
type erroringGateway struct{}

func (erroringGateway) Complete(ctx context.Context, prompt, system string, sampling gateway.Sampling) (<-chan gateway.Chunk, error) {
	return nil, fmt.Errorf("connection refused")
}

func (erroringGateway) Name() string        { return "test.erroring" }
func (erroringGateway) Description() string { return "always-failing test gateway" }

// countingGateway wraps identityGateway's deterministic responses with an
// atomic call counter, so a test can compare how many Complete calls a run
// made against a known-full baseline run.
type countingGateway struct {
	identityGateway
	calls int64
}

func (g *countingGateway) Complete(ctx context.Context, prompt, system string, sampling gateway.Sampling) (<-chan gateway.Chunk, error) {
	atomic.AddInt64(&g.calls, 1)
	return g.identityGateway.Complete(ctx, prompt, system, sampling)
}

func (g *countingGateway) callCount() int64 { return atomic.LoadInt64(&g.calls) }

// cancelOnEventSink calls cancel the first time it observes an event of the
// given kind, letting a test trip cancellation mid-flight (e.g. after the
// first CandidateDone, per spec scenario S7) rather than only before any
// work starts.
type cancelOnEventSink struct {
	mu      sync.Mutex
	target  events.Kind
	cancel  context.CancelFunc
	tripped bool
}

func (s *cancelOnEventSink) Emit(e events.Event) {
	if e.Kind != s.target {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tripped {
		return
	}
	s.tripped = true
	s.cancel()
}
