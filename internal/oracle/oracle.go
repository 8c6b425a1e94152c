// Package oracle implements the ranking oracle (spec section 4.4): it asks
// one participant, via the model gateway, to rank the candidate statements
// from most to least preferred, parses the response into a strict
// permutation, and falls back to a uniform-random permutation if every
// attempt fails to parse.
package oracle

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
)

// gatewayRetry is the spec section 7 GatewayUnavailable policy: "local
// retry with bounded backoff (max 3)". It is distinct from the oracle's own
// attempt loop in PredictRanking, which retries a malformed or
// unparseable *response*; gatewayRetry retries the transport call itself
// when it failed outright, before the oracle's attempt loop ever sees it.
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

// AttemptLog records what happened while predicting one ranking, for
// diagnostics and for the S4/S5 test scenarios: how many attempts were
// made and whether the result is a fallback.
type AttemptLog struct {
	Attempts int
	Fallback bool
}

// Request bundles the inputs PredictRanking needs for one voter.
type Request struct {
	Question             string
	ParticipantPosition  int
	ParticipantStatement string
	Candidates           []string
	Config               deliberation.RankingConfig
	Templates            templates.Set
	Level                int
	GroupIndex           int
}

// PredictRanking asks gw to rank req.Candidates on behalf of one voter and
// returns a validated permutation of [0, len(Candidates)). It makes up to
// Config.MaxRetries attempts in total to get a parseable response, then
// falls back to a uniform-random permutation drawn from rng, reporting that
// through the returned AttemptLog's Fallback field.
//
// rng must not be nil. Callers that want deterministic fallback behavior in
// tests should pass a seeded *rand.Rand; production callers should pass a
// *rand.Rand seeded from real entropy, shared per session or per call as the
// caller prefers (fallback draws are independent of each other either way).
func PredictRanking(ctx context.Context, gw gateway.Gateway, sem *admission.Semaphore, rng *rand.Rand, sink events.Sink, req Request) (deliberation.Ranking, AttemptLog, error) {
	if sink == nil {
		sink = events.NoopSink{}
	}
	k := len(req.Candidates)
	if k < 2 {
		return nil, AttemptLog{}, fmt.Errorf("%w: ranking oracle needs at least 2 candidates, got %d", deliberation.ErrInvalidInput, k)
	}

	sink.Emit(events.Event{
		Kind: events.KindOracleStart, Level: req.Level, GroupIndex: req.GroupIndex,
		Payload: map[string]any{"participant": req.ParticipantPosition},
	})

	prompt := templates.RenderRanking(
		req.Templates.Ranking,
		req.Question,
		req.ParticipantPosition,
		req.ParticipantStatement,
		k,
		formatCandidates(req.Candidates),
	)

	maxRetries := req.Config.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, AttemptLog{Attempts: attempt - 1}, err
		}

		raw, err := complete(ctx, gw, sem, prompt, req.Config.Temperature)
		sink.Emit(events.Event{
			Kind: events.KindOracleAttempt, Level: req.Level, GroupIndex: req.GroupIndex,
			Payload: map[string]any{"participant": req.ParticipantPosition, "attempt": attempt, "ok": err == nil},
		})
		if err != nil {
			lastErr = err
			continue
		}

		cleaned := postprocess.StripAllKnownTags(raw)
		labels, parseErr := parseRanking(cleaned)
		if parseErr != nil {
			lastErr = parseErr
			continue
		}

		ranking, convErr := toZeroBased(labels, k)
		if convErr != nil {
			lastErr = convErr
			continue
		}

		sink.Emit(events.Event{
			Kind: events.KindOracleDone, Level: req.Level, GroupIndex: req.GroupIndex,
			Payload: map[string]any{"participant": req.ParticipantPosition, "fallback": false},
		})
		return ranking, AttemptLog{Attempts: attempt, Fallback: false}, nil
	}

	fallback := uniformRandomPermutation(k, rng)
	sink.Emit(events.Event{
		Kind: events.KindOracleFallback, Level: req.Level, GroupIndex: req.GroupIndex,
		Payload: map[string]any{"participant": req.ParticipantPosition, "reason": lastErr.Error()},
	})
	sink.Emit(events.Event{
		Kind: events.KindOracleDone, Level: req.Level, GroupIndex: req.GroupIndex,
		Payload: map[string]any{"participant": req.ParticipantPosition, "fallback": true},
	})
	return fallback, AttemptLog{Attempts: maxRetries, Fallback: true}, nil
}

// complete wraps one gateway call with the GatewayUnavailable retry policy
// and acquires sem for the duration of each attempt, same as the generator,
// since maxInFlight bounds concurrent model calls across the whole session,
// not just within one component (spec section 5).
func complete(ctx context.Context, gw gateway.Gateway, sem *admission.Semaphore, prompt string, temperature float64) (string, error) {
	var text string
	err := retry.Do(ctx, gatewayRetry, func() error {
		t, attemptErr := completeOnce(ctx, gw, sem, prompt, temperature)
		if attemptErr != nil {
			return attemptErr
		}
		text = t
		return nil
	})
	return text, err
}

// completeOnce issues one non-streamed-from-the-caller's-perspective
// completion: it drains gw's chunk channel and concatenates the text,
// since the oracle needs the whole response before it can attempt to
// parse it.
func completeOnce(ctx context.Context, gw gateway.Gateway, sem *admission.Semaphore, prompt string, temperature float64) (string, error) {
	if err := sem.Acquire(ctx); err != nil {
		return "", err
	}
	defer sem.Release()

	chunks, err := gw.Complete(ctx, prompt, "", gateway.Sampling{Temperature: temperature})
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

// toZeroBased converts 1-based candidate labels to a validated 0-based
// deliberation.Ranking.
func toZeroBased(labels []int, k int) (deliberation.Ranking, error) {
	r := make(deliberation.Ranking, len(labels))
	for i, label := range labels {
		r[i] = label - 1
	}
	if err := r.Validate(k); err != nil {
		return nil, err
	}
	return r, nil
}

// uniformRandomPermutation draws a uniformly random permutation of [0, k)
// using rng.
func uniformRandomPermutation(k int, rng *rand.Rand) deliberation.Ranking {
	r := make(deliberation.Ranking, k)
	for i := range r {
		r[i] = i
	}
	rng.Shuffle(k, func(i, j int) { r[i], r[j] = r[j], r[i] })
	return r
}

// formatCandidates renders the numbered candidate list the ranking template
// expects in its {candidate_statements} placeholder.
func formatCandidates(candidates []string) string {
	var buf bytes.Buffer
	for i, c := range candidates {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, c)
	}
	return buf.String()
}
