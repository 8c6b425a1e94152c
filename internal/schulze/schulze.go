// Package schulze implements the Schulze method tabulator: a pure function
// from a set of voter rankings to a winner, a pairwise preference matrix and
// a strongest-path matrix (spec section 4.5).
package schulze

import (
	"fmt"
	"sort"

	"github.com/praetorian-inc/deliberate/pkg/deliberation"
)

// Result is the outcome of tabulating one election.
type Result struct {
	Winner         int
	Pairwise       [][]int
	StrongestPaths [][]int
}

// Tabulate runs the Schulze method over rankings (keyed by voter id and
// visited in sorted key order) for K candidates. It is deterministic: equal rankings always produce bit
// identical matrices and winner.
func Tabulate(rankings map[string]deliberation.Ranking, k int) (Result, error) {
	if k < 1 {
		return Result{}, fmt.Errorf("schulze: K must be >= 1, got %d", k)
	}

	pairwise := newMatrix(k)
	voters := sortedKeys(rankings)
	for _, voter := range voters {
		ranking := rankings[voter]
		if err := ranking.Validate(k); err != nil {
			return Result{}, fmt.Errorf("schulze: voter %s: %w", voter, err)
		}
		for ai, a := range ranking {
			for _, b := range ranking[ai+1:] {
				pairwise[a][b]++
			}
		}
	}

	strongest := strongestPaths(pairwise, k)
	winner, err := undominatedWinner(strongest, k)
	if err != nil {
		return Result{}, err
	}

	return Result{Winner: winner, Pairwise: pairwise, StrongestPaths: strongest}, nil
}

func newMatrix(k int) [][]int {
	m := make([][]int, k)
	for i := range m {
		m[i] = make([]int, k)
	}
	return m
}

func sortedKeys(rankings map[string]deliberation.Ranking) []string {
	keys := make([]string, 0, len(rankings))
	for k := range rankings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// strongestPaths computes the widest path matrix via the Floyd-Warshall
// variant in spec section 4.5.
func strongestPaths(pairwise [][]int, k int) [][]int {
	strongest := newMatrix(k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			if i != j {
				strongest[i][j] = pairwise[i][j]
			}
		}
	}

	for kk := 0; kk < k; kk++ {
		for i := 0; i < k; i++ {
			if i == kk {
				continue
			}
			for j := 0; j < k; j++ {
				if j == i || j == kk {
					continue
				}
				if m := min(strongest[i][kk], strongest[kk][j]); m > strongest[i][j] {
					strongest[i][j] = m
				}
			}
		}
	}
	return strongest
}

// undominatedWinner finds the Schulze-undominated candidate, breaking ties
// by lowest index. By the Schulze theorem the undominated set is never
// empty; we assert that rather than silently defaulting (spec section 9).
func undominatedWinner(strongest [][]int, k int) (int, error) {
	for i := 0; i < k; i++ {
		dominated := false
		for j := 0; j < k; j++ {
			if j == i {
				continue
			}
			if strongest[j][i] > strongest[i][j] {
				dominated = true
				break
			}
		}
		if !dominated {
			return i, nil
		}
	}
	return 0, fmt.Errorf("schulze: undominated set empty for K=%d, this is a bug in strongest-path computation", k)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
