// Package partition implements the recursive partitioner: it shuffles and
// splits a group of participants into balanced subgroups for the next
// recursion level (spec section 4.2).
package partition

import (
	"math/rand"

	"github.com/praetorian-inc/deliberate/pkg/deliberation"
)

// Partition splits items into ceil(len(items)/maxGroupSize) groups whose
// sizes differ by at most one, after shuffling items once with rng so that
// group membership is independent of input order. If len(items) <=
// maxGroupSize it returns a single group preserving the shuffled order.
//
// rng must not be nil; callers that want reproducible partitioning should
// pass a seeded *rand.Rand, callers that want anti-manipulation shuffling
// should seed from a real entropy source.
func Partition(items []deliberation.Participant, maxGroupSize int, rng *rand.Rand) [][]deliberation.Participant {
	if len(items) == 0 {
		return nil
	}

	shuffled := make([]deliberation.Participant, len(items))
	copy(shuffled, items)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if len(shuffled) <= maxGroupSize {
		return [][]deliberation.Participant{shuffled}
	}

	numGroups := ceilDiv(len(shuffled), maxGroupSize)
	base := len(shuffled) / numGroups
	remainder := len(shuffled) % numGroups

	groups := make([][]deliberation.Participant, 0, numGroups)
	offset := 0
	for g := 0; g < numGroups; g++ {
		size := base
		if g < remainder {
			size++
		}
		groups = append(groups, shuffled[offset:offset+size])
		offset += size
	}
	return groups
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// MemberPositions extracts the original participant positions from a group.
// Nothing in the module calls it; the coordinator builds level-0 positions
// in its own items code.
func MemberPositions(group []deliberation.Participant) []int {
	positions := make([]int, len(group))
	for i, p := range group {
		positions[i] = p.Position
	}
	return positions
}
