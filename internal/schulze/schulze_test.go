package schulze

import (
	"testing"

	"github.com/praetorian-inc/deliberate/pkg/deliberation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zeroIndex converts a 1-based ranking (as written in the spec's scenario
// suites) to the 0-based form the tabulator expects.
func zeroIndex(oneBased ...int) deliberation.Ranking {
	r := make(deliberation.Ranking, len(oneBased))
	for i, v := range oneBased {
		r[i] = v - 1
	}
	return r
}

// TestTabulate_ClassicFive is scenario S1: Schulze elects candidate 1
// (0-based: candidate 0).
func TestTabulate_ClassicFive(t *testing.T) {
	rankings := map[string]deliberation.Ranking{
		"P1": zeroIndex(2, 1, 3, 4),
		"P2": zeroIndex(2, 4, 3, 1),
		"P3": zeroIndex(2, 1, 3, 4),
		"P4": zeroIndex(1, 2, 3, 4),
		"P5": zeroIndex(2, 4, 3, 1),
	}

	result, err := Tabulate(rankings, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Winner)
}

// TestTabulate_CondorcetSingleton is scenario S2.
func TestTabulate_CondorcetSingleton(t *testing.T) {
	rankings := map[string]deliberation.Ranking{
		"v0": {0, 1, 2},
		"v1": {0, 2, 1},
		"v2": {1, 0, 2},
	}

	result, err := Tabulate(rankings, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Winner)

	// Hand-calculated pairwise preferences.
	assert.Equal(t, 2, result.Pairwise[0][1])
	assert.Equal(t, 3, result.Pairwise[0][2])
	assert.Equal(t, 1, result.Pairwise[1][0])
	assert.Equal(t, 2, result.Pairwise[1][2])
}

// TestTabulate_ThreeCycleTie is scenario S3: undominated set is {0,1,2},
// tiebreak selects 0.
func TestTabulate_ThreeCycleTie(t *testing.T) {
	rankings := map[string]deliberation.Ranking{
		"v0": {0, 1, 2},
		"v1": {1, 2, 0},
		"v2": {2, 0, 1},
	}

	result, err := Tabulate(rankings, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Winner)
}

// TestTabulate_Deterministic verifies property 2: equal inputs produce
// bit-identical matrices and winner.
func TestTabulate_Deterministic(t *testing.T) {
	rankings := map[string]deliberation.Ranking{
		"a": {0, 1, 2, 3},
		"b": {2, 0, 1, 3},
		"c": {1, 3, 0, 2},
	}

	first, err := Tabulate(rankings, 4)
	require.NoError(t, err)
	second, err := Tabulate(rankings, 4)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestTabulate_CondorcetCriterion verifies property 3: a candidate beating
// every other candidate pairwise always wins.
func TestTabulate_CondorcetCriterion(t *testing.T) {
	rankings := map[string]deliberation.Ranking{
		"a": {2, 0, 1},
		"b": {2, 1, 0},
		"c": {0, 2, 1},
	}

	result, err := Tabulate(rankings, 3)
	require.NoError(t, err)

	for j := 0; j < 3; j++ {
		if j == result.Winner {
			continue
		}
		assert.Greaterf(t, result.Pairwise[result.Winner][j], result.Pairwise[j][result.Winner],
			"winner %d should beat candidate %d pairwise", result.Winner, j)
	}
}

func TestTabulate_RejectsInvalidRanking(t *testing.T) {
	rankings := map[string]deliberation.Ranking{
		"a": {0, 0, 1},
	}
	_, err := Tabulate(rankings, 3)
	assert.Error(t, err)
}

func TestTabulate_NoVoters(t *testing.T) {
	result, err := Tabulate(map[string]deliberation.Ranking{}, 3)
	require.NoError(t, err)
	// No preferences recorded: everything is mutually undominated, so the
	// lowest index wins by tiebreak.
	assert.Equal(t, 0, result.Winner)
}
