package coordinator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/praetorian-inc/deliberate/pkg/admission"
	"github.com/praetorian-inc/deliberate/pkg/deliberation"
	"github.com/praetorian-inc/deliberate/pkg/events"
	"github.com/praetorian-inc/deliberate/pkg/gateway"
	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/deliberate/internal/generator"
	"github.com/praetorian-inc/deliberate/internal/oracle"
	"github.com/praetorian-inc/deliberate/internal/schulze"
)

// session bundles everything an election needs that stays constant across
// the whole deliberation run, so electGroup's signature doesn't balloon.
type session struct {
	question        string
	config          deliberation.Config
	gateway         gateway.Gateway
	sem             *admission.Semaphore
	sink            events.Sink
	allParticipants []deliberation.Participant

	rngMu sync.Mutex
	rng   *rand.Rand
}

// nextRand draws an independently-seeded *rand.Rand off the session's
// shared source. math/rand.Rand is not safe for concurrent use, and
// elections at the same level run concurrently, so every draw goes through
// this mutex rather than touching s.rng directly.
func (s *session) nextRand() *rand.Rand {
	s.rngMu.Lock()
	seed := s.rng.Int63()
	s.rngMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

// electGroup runs one full group election: generate K candidates from the
// group's statements, collect a ranking from every resolved voter, tabulate
// the Schulze winner. It is the unit of work run concurrently, one per
// sibling group, bounded by s.sem.
func electGroup(ctx context.Context, s *session, level, groupIndex int, group []levelItem) (*deliberation.GroupNode, error) {
	// WinnerCandidateIndex starts at -1 (no winner yet) rather than the
	// zero value so a partial node abandoned before Schulze tabulation runs
	// never reports Candidates[0] as a spurious winner via Winner().
	node := &deliberation.GroupNode{Level: level, GroupIndex: groupIndex, WinnerCandidateIndex: -1}
	if err := ctx.Err(); err != nil {
		return node, fmt.Errorf("%w: %s", deliberation.ErrCancelled, err)
	}

	memberSets := make([][]int, len(group))
	statements := make([]string, len(group))
	for i, item := range group {
		memberSets[i] = item.memberPositions
		statements[i] = item.statement
	}
	node.MemberParticipantPositions = unionPositions(memberSets...)
	node.Statements = statements

	k := deliberation.ClampK(s.config.NumCandidates, len(statements))
	candidates, err := generator.GenerateCandidates(ctx, s.gateway, s.sem, s.nextRand(), s.sink, generator.Request{
		Question:   s.question,
		Opinions:   statements,
		K:          k,
		Config:     s.config.Generation,
		Templates:  s.config.Templates(),
		Level:      level,
		GroupIndex: groupIndex,
	})
	if err != nil {
		return node, err
	}
	node.Candidates = candidates

	s.sink.Emit(events.Event{
		Kind: events.KindGroupStart, Level: level, GroupIndex: groupIndex,
		Payload: map[string]any{"members": node.MemberParticipantPositions, "candidates": len(candidates)},
	})

	voters := resolveVoters(s.config.VotingStrategy, node.MemberParticipantPositions, s.allParticipants)
	if len(voters) == 0 {
		return node, fmt.Errorf("%w: group %d at level %d resolved to zero voters", deliberation.ErrInvalidInput, groupIndex, level)
	}

	rankings := make(map[string]deliberation.Ranking, len(voters))
	var mu sync.Mutex
	degraded := false

	g, gctx := errgroup.WithContext(ctx)
	for _, voter := range voters {
		voter := voter
		voterRng := s.nextRand()
		g.Go(func() error {
			ranking, log, err := oracle.PredictRanking(gctx, s.gateway, s.sem, voterRng, s.sink, oracle.Request{
				Question:             s.question,
				ParticipantPosition:  voter.Position,
				ParticipantStatement: voter.Opinion,
				Candidates:           candidates,
				Config:               s.config.Ranking,
				Templates:            s.config.Templates(),
				Level:                level,
				GroupIndex:           groupIndex,
			})
			if err != nil {
				return err
			}
			mu.Lock()
			rankings[voterKey(voter.Position)] = ranking
			if log.Fallback {
				degraded = true
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Some voters may have already produced a ranking before the error
		// (e.g. cancellation) aborted the rest; keep them as partial
		// progress rather than discarding the whole election.
		node.Rankings = rankings
		node.Degraded = degraded
		return node, err
	}

	result, err := schulze.Tabulate(rankings, len(candidates))
	if err != nil {
		node.Rankings = rankings
		node.Degraded = degraded
		return node, err
	}

	node.Rankings = rankings
	node.Degraded = degraded
	node.WinnerCandidateIndex = result.Winner
	node.Pairwise = result.Pairwise
	node.StrongestPaths = result.StrongestPaths

	s.sink.Emit(events.Event{
		Kind: events.KindElectionDone, Level: level, GroupIndex: groupIndex,
		Payload: map[string]any{"winner": result.Winner, "degraded": degraded},
	})
	return node, nil
}

func voterKey(position int) string {
	return fmt.Sprintf("%d", position)
}
