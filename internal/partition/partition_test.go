package partition

import (
	"math/rand"
	"testing"

	"github.com/praetorian-inc/deliberate/pkg/deliberation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participants(n int) []deliberation.Participant {
	ps := make([]deliberation.Participant, n)
	for i := range ps {
		ps[i] = deliberation.Participant{Position: i, Opinion: "opinion"}
	}
	return ps
}

// TestPartition_Balanced verifies property 5: sizes sum to the input size,
// every item appears exactly once, and group sizes differ by at most one.
func TestPartition_Balanced(t *testing.T) {
	items := participants(25)
	groups := Partition(items, 12, rand.New(rand.NewSource(1)))

	require.Len(t, groups, 3)

	total := 0
	seen := make(map[int]bool)
	min, max := len(groups[0]), len(groups[0])
	for _, g := range groups {
		total += len(g)
		if len(g) < min {
			min = len(g)
		}
		if len(g) > max {
			max = len(g)
		}
		for _, p := range g {
			assert.Falsef(t, seen[p.Position], "participant %d appeared twice", p.Position)
			seen[p.Position] = true
		}
	}

	assert.Equal(t, 25, total)
	assert.LessOrEqual(t, max-min, 1)
	assert.Len(t, seen, 25)
}

func TestPartition_SingleGroupWhenUnderCap(t *testing.T) {
	items := participants(5)
	groups := Partition(items, 12, rand.New(rand.NewSource(1)))

	require.Len(t, groups, 1)
	assert.Len(t, groups[0], 5)
}

func TestPartition_ShuffleIndependentOfOrder(t *testing.T) {
	items := participants(10)
	groups := Partition(items, 12, rand.New(rand.NewSource(42)))

	require.Len(t, groups, 1)
	inOriginalOrder := true
	for i, p := range groups[0] {
		if p.Position != i {
			inOriginalOrder = false
			break
		}
	}
	assert.False(t, inOriginalOrder, "expected shuffled order, got identity order")
}

func TestPartition_Empty(t *testing.T) {
	groups := Partition(nil, 12, rand.New(rand.NewSource(1)))
	assert.Empty(t, groups)
}
