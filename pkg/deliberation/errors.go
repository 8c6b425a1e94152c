package deliberation

import "errors"

// Error kinds surfaced on the event stream and as typed return values
// (spec section 7). Only RankingParseFailed is recoverable in place; every
// other kind aborts the session or the current group.
var (
	// ErrInvalidInput is raised pre-flight: fewer than 2 opinions, an empty
	// question, or an otherwise invalid configuration.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGenerationFailed means K candidates could not be produced after
	// per-candidate retries; the current group is aborted.
	ErrGenerationFailed = errors.New("candidate generation failed")

	// ErrCancelled is returned when the session cancel signal was observed.
	// It is never wrapped around a spurious winner.
	ErrCancelled = errors.New("deliberation cancelled")

	// ErrGatewayUnavailable means the gateway transport failed after local
	// retries; fatal if it persists.
	ErrGatewayUnavailable = errors.New("model gateway unavailable")
)
