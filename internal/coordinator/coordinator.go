// Package coordinator implements the top-level orchestration described in
// spec section 4.1: partition participants into groups, elect a winning
// statement per group, and recurse on the promoted winners until a single
// group remains.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/praetorian-inc/deliberate/internal/partition"
	"github.com/praetorian-inc/deliberate/pkg/admission"
	"github.com/praetorian-inc/deliberate/pkg/deliberation"
	"github.com/praetorian-inc/deliberate/pkg/events"
	"github.com/praetorian-inc/deliberate/pkg/gateway"
	"golang.org/x/sync/errgroup"
)

// Kind discriminates a Result without callers having to sniff the returned
// error: a cancelled run is distinguishable from a completed one by
// Result.Kind alone.
type Kind int

const (
	// Completed means the run produced a final winner.
	Completed Kind = iota
	// Cancelled means the session cancel signal was observed before the run
	// finished. Result still carries whatever partial tree was built; it
	// never carries a spurious Winner (spec section 4.1, "Cancellation
	// never produces a spurious winner").
	Cancelled
)

// Result is the outcome of a deliberation run.
type Result struct {
	Kind     Kind
	Root     *deliberation.GroupNode
	Winner   string
	Degraded bool
}

// NewRNG returns a *rand.Rand seeded from real entropy, suitable as the
// production default. Callers that need reproducible runs (tests, replay)
// should construct their own seeded *rand.Rand instead.
func NewRNG() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// SingleRun runs one flat election over every opinion with no partitioning
// or recursion, regardless of how many opinions there are. It's the engine
// used directly by small deliberations; Recursive does not call it, but runs
// the same per-group election (electGroup) for every group at every level.
func SingleRun(ctx context.Context, question string, opinions []string, cfg deliberation.Config, gw gateway.Gateway, rng *rand.Rand, sink events.Sink) (Result, error) {
	if sink == nil {
		sink = events.NoopSink{}
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	participants, err := validateOpinions(opinions)
	if err != nil {
		return Result{}, err
	}

	s := &session{question: question, config: cfg, gateway: gw, sem: admission.New(cfg.MaxInFlight), sink: sink, rng: rng, allParticipants: participants}
	node, err := electGroup(ctx, s, 0, 0, itemsFromParticipants(participants))
	if err != nil {
		if errors.Is(err, deliberation.ErrCancelled) || ctx.Err() != nil {
			sink.Emit(events.Event{Kind: events.KindDone, Level: 0, GroupIndex: 0, Payload: map[string]any{"cancelled": true}})
			return Result{Kind: Cancelled, Root: node, Degraded: anyDegraded(node)}, nil
		}
		return Result{}, err
	}

	sink.Emit(events.Event{Kind: events.KindDone, Level: 0, GroupIndex: 0, Payload: map[string]any{"winner": node.Winner()}})
	return Result{Kind: Completed, Root: node, Winner: node.Winner(), Degraded: node.Degraded}, nil
}

// Recursive runs the full hierarchical deliberation (spec section 2):
// partition participants into groups of at most cfg.MaxGroupSize, elect a
// winner per group, promote winners as the next level's voting items, and
// repeat until partitioning collapses to a single group.
func Recursive(ctx context.Context, question string, opinions []string, cfg deliberation.Config, gw gateway.Gateway, rng *rand.Rand, sink events.Sink) (Result, error) {
	if sink == nil {
		sink = events.NoopSink{}
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	participants, err := validateOpinions(opinions)
	if err != nil {
		return Result{}, err
	}

	s := &session{question: question, config: cfg, gateway: gw, sem: admission.New(cfg.MaxInFlight), sink: sink, rng: rng, allParticipants: participants}
	root, err := runLevel(ctx, s, 0, itemsFromParticipants(participants))
	if err != nil {
		if errors.Is(err, deliberation.ErrCancelled) || ctx.Err() != nil {
			level := 0
			if root != nil {
				level = root.Level
			}
			sink.Emit(events.Event{Kind: events.KindDone, Level: level, GroupIndex: 0, Payload: map[string]any{"cancelled": true}})
			return Result{Kind: Cancelled, Root: root, Degraded: anyDegraded(root)}, nil
		}
		return Result{}, err
	}

	sink.Emit(events.Event{Kind: events.KindDone, Level: root.Level, GroupIndex: 0, Payload: map[string]any{"winner": root.Winner()}})
	return Result{Kind: Completed, Root: root, Winner: root.Winner(), Degraded: anyDegraded(root)}, nil
}

// runLevel partitions items, elects every resulting group concurrently
// (bounded indirectly by s.sem at the gateway call sites underneath), and
// either returns the single collapsed group's node or recurses one level
// deeper with the promoted winners. Partitioning strictly reduces the item
// count at every level except the terminal one, so this always terminates.
func runLevel(ctx context.Context, s *session, level int, items []levelItem) (*deliberation.GroupNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", deliberation.ErrCancelled, err)
	}

	s.sink.Emit(events.Event{Kind: events.KindLevelStart, Level: level, Payload: map[string]any{"items": len(items)}})

	groups := partitionLevelItems(items, s.config.MaxGroupSize, s.nextRand())
	if len(groups) == 1 {
		node, err := electGroup(ctx, s, level, 0, groups[0])
		if err != nil {
			// node may carry partial progress (statements, candidates,
			// some rankings) even on a cancellation error; the caller
			// decides what to do with it rather than us discarding it.
			return node, err
		}
		s.sink.Emit(events.Event{Kind: events.KindLevelDone, Level: level, Payload: map[string]any{"winner": node.Winner()}})
		return node, nil
	}

	childNodes := make([]*deliberation.GroupNode, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for gi, group := range groups {
		gi, group := gi, group
		g.Go(func() error {
			node, err := electGroup(gctx, s, level, gi, group)
			// Record whatever this group produced even if it errored, so a
			// mid-flight cancellation still preserves sibling groups that
			// had already finished (or partially finished) when the signal
			// was observed.
			childNodes[gi] = node
			if err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &deliberation.GroupNode{Level: level, ChildNodes: childNodes, WinnerCandidateIndex: -1}, err
	}

	nextItems := make([]levelItem, len(childNodes))
	for gi, node := range childNodes {
		nextItems[gi] = levelItem{
			position:        gi,
			statement:       node.Winner(),
			memberPositions: node.MemberParticipantPositions,
		}
	}

	s.sink.Emit(events.Event{Kind: events.KindLevelDone, Level: level, Payload: map[string]any{"groups": len(groups)}})

	parent, err := runLevel(ctx, s, level+1, nextItems)
	if err != nil {
		// The next level up may have been cancelled mid-flight; still
		// attach this level's completed children so the caller gets this
		// level's partial progress rather than nothing at all.
		if parent == nil {
			parent = &deliberation.GroupNode{Level: level + 1, WinnerCandidateIndex: -1}
		}
		parent.ChildNodes = childNodes
		return parent, err
	}
	parent.ChildNodes = childNodes
	return parent, nil
}

// partitionLevelItems adapts levelItems through the generic partitioner and
// back, preserving each item's promoted statement and member positions.
func partitionLevelItems(items []levelItem, maxGroupSize int, rng *rand.Rand) [][]levelItem {
	groups := partition.Partition(asParticipants(items), maxGroupSize, rng)
	out := make([][]levelItem, len(groups))
	for i, g := range groups {
		out[i] = regroup(items, g)
	}
	return out
}

func validateOpinions(opinions []string) ([]deliberation.Participant, error) {
	if len(opinions) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 opinions, got %d", deliberation.ErrInvalidInput, len(opinions))
	}
	participants := make([]deliberation.Participant, len(opinions))
	for i, o := range opinions {
		participants[i] = deliberation.Participant{Position: i, Opinion: o}
	}
	return participants, nil
}

func anyDegraded(node *deliberation.GroupNode) bool {
	if node == nil {
		return false
	}
	if node.Degraded {
		return true
	}
	for _, child := range node.ChildNodes {
		if anyDegraded(child) {
			return true
		}
	}
	return false
}
