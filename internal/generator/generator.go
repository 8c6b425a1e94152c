// Package generator implements the candidate generator (spec section 4.3):
// it asks the model gateway to draft K candidate consensus statements for a
// group, each call seeing the group's opinions in an independently shuffled
// order so that no single candidate is systematically anchored on whichever
// opinion happened to come first.
package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/praetorian-inc/deliberate/pkg/admission"
	"github.com/praetorian-inc/deliberate/pkg/deliberation"
	"github.com/praetorian-inc/deliberate/pkg/events"
	"github.com/praetorian-inc/deliberate/pkg/gateway"
	"github.com/praetorian-inc/deliberate/pkg/postprocess"
	"github.com/praetorian-inc/deliberate/pkg/retry"
	"github.com/praetorian-inc/deliberate/pkg/templates"
	"golang.org/x/sync/errgroup"
)

// gatewayRetry is the spec section 7 GatewayUnavailable policy: "local
// retry with bounded backoff (max 3)". It is a distinct recovery loop from
// the per-candidate empty-statement retry above it (maxEmptyRetries) — that
// loop re-prompts the model after a usable-but-empty completion, this one
// retries the transport call itself after it failed outright.
var gatewayRetry = retry.Config{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     1 * time.Second,
	Multiplier:   2.0,
	Jitter:       0.2,
	RetryableFunc: func(err error) bool {
		return errors.Is(err, deliberation.ErrGatewayUnavailable)
	},
}

// maxEmptyRetries bounds how many times a single candidate slot retries
// after the model returns an empty or envelope-less-and-blank statement,
// before the whole group is abandoned.
const maxEmptyRetries = 2

// Request bundles one group's generation inputs.
type Request struct {
	Question   string
	Opinions   []string
	K          int
	Config     deliberation.GenerationConfig
	Templates  templates.Set
	Level      int
	GroupIndex int
}

// GenerateCandidates produces req.K candidate statements concurrently,
// bounded by sem (the session's single admission semaphore, shared with the
// ranking oracle and sibling group elections). Each candidate's generation
// call sees req.Opinions in an independently shuffled order, derived from
// rng. If any candidate slot exhausts its retries the whole group aborts
// with ErrGenerationFailed; partial successes from other slots are
// discarded, matching the spec's all-or-nothing group contract.
func GenerateCandidates(ctx context.Context, gw gateway.Gateway, sem *admission.Semaphore, rng *rand.Rand, sink events.Sink, req Request) ([]string, error) {
	if sink == nil {
		sink = events.NoopSink{}
	}
	if len(req.Opinions) == 0 {
		return nil, fmt.Errorf("%w: generator needs at least one opinion", deliberation.ErrInvalidInput)
	}
	if req.K < 2 {
		return nil, fmt.Errorf("%w: generator needs K >= 2, got %d", deliberation.ErrInvalidInput, req.K)
	}

	// Derive one independent shuffle seed per slot up front, sequentially,
	// so the whole group's output is reproducible for a fixed rng even
	// though the calls themselves run concurrently.
	seeds := make([]int64, req.K)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	candidates := make([]string, req.K)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < req.K; i++ {
		i := i
		g.Go(func() error {
			text, err := generateOne(gctx, gw, sem, rand.New(rand.NewSource(seeds[i])), sink, req, i)
			if err != nil {
				return err
			}
			candidates[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %s", deliberation.ErrGenerationFailed, err)
	}
	return candidates, nil
}

func generateOne(ctx context.Context, gw gateway.Gateway, sem *admission.Semaphore, rng *rand.Rand, sink events.Sink, req Request, index int) (string, error) {
	sink.Emit(events.Event{
		Kind: events.KindCandidateStart, Level: req.Level, GroupIndex: req.GroupIndex,
		Payload: map[string]any{"index": index},
	})

	var lastErr error
	for attempt := 0; attempt <= maxEmptyRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		shuffled := shuffledCopy(req.Opinions, rng)
		prompt := templates.RenderCandidate(req.Templates.Candidate, req.Question, formatOpinions(shuffled))

		text, err := complete(ctx, gw, sem, prompt, req.Config)
		if err != nil {
			lastErr = err
			continue
		}

		cleaned := postprocess.StripAllKnownTags(text)
		statement, ok := postprocess.ExtractEnvelope(cleaned, "statement")
		if !ok {
			// No terminal marker: degrade gracefully and use the cleaned
			// text as-is rather than discarding a usable completion.
			statement = cleaned
		}
		if statement == "" {
			lastErr = fmt.Errorf("generator: candidate %d produced an empty statement", index)
			continue
		}

		sink.Emit(events.Event{
			Kind: events.KindCandidateDone, Level: req.Level, GroupIndex: req.GroupIndex,
			Payload: map[string]any{"index": index, "length": len(statement)},
		})
		return statement, nil
	}
	return "", fmt.Errorf("candidate %d: %w", index, lastErr)
}

// complete wraps one gateway call with the GatewayUnavailable retry policy:
// each attempt re-acquires sem, since a failed attempt must release its
// admission slot before backing off rather than holding it across the
// delay.
func complete(ctx context.Context, gw gateway.Gateway, sem *admission.Semaphore, prompt string, cfg deliberation.GenerationConfig) (string, error) {
	var text string
	err := retry.Do(ctx, gatewayRetry, func() error {
		t, attemptErr := completeOnce(ctx, gw, sem, prompt, cfg)
		if attemptErr != nil {
			return attemptErr
		}
		text = t
		return nil
	})
	return text, err
}

func completeOnce(ctx context.Context, gw gateway.Gateway, sem *admission.Semaphore, prompt string, cfg deliberation.GenerationConfig) (string, error) {
	if err := sem.Acquire(ctx); err != nil {
		return "", err
	}
	defer sem.Release()

	chunks, err := gw.Complete(ctx, prompt, "", gateway.Sampling{
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		TopK:        cfg.TopK,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s", deliberation.ErrGatewayUnavailable, err)
	}

	var buf bytes.Buffer
	for chunk := range chunks {
		if chunk.Err != nil {
			return "", fmt.Errorf("%w: %s", deliberation.ErrGatewayUnavailable, chunk.Err)
		}
		buf.WriteString(chunk.Text)
		if chunk.Done {
			break
		}
	}
	return buf.String(), nil
}

func shuffledCopy(opinions []string, rng *rand.Rand) []string {
	out := make([]string, len(opinions))
	copy(out, opinions)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func formatOpinions(opinions []string) string {
	var buf bytes.Buffer
	for i, o := range opinions {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, o)
	}
	return buf.String()
}
