// Package admission provides the single admission semaphore shared by an
// entire deliberation session: a ceiling on concurrent model-gateway calls
// across candidate generation, ranking prediction and sibling group
// elections alike (spec section 5).
package admission

import "context"

// Semaphore is a context-aware counting semaphore. The zero value is not
// usable; construct with New.
type Semaphore struct {
	slots chan struct{}
}

// New creates a Semaphore admitting at most n concurrent holders. n is
// floored at 1.
func New(n int) *Semaphore {
	if n < 1 {
		n = 1
	}
	return &Semaphore{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done, whichever comes
// first. This is one of the suspension points the coordinator re-checks the
// cancel signal at (spec section 5).
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot. It must be called exactly once per successful
// Acquire, typically via defer.
func (s *Semaphore) Release() {
	<-s.slots
}
