package coordinator

import "github.com/praetorian-inc/deliberate/pkg/deliberation"

// resolveVoters picks the voter population for one group's election
// according to strategy (spec section 4.1). OwnGroupOnly restricts votes to
// the original participants whose opinions transitively feed this group's
// candidates; AllParticipants lets the whole session vote on every group,
// including subgroups whose candidates they had no hand in drafting.
func resolveVoters(strategy deliberation.VotingStrategy, memberPositions []int, all []deliberation.Participant) []deliberation.Participant {
	if strategy == deliberation.AllParticipants {
		return all
	}

	members := make(map[int]bool, len(memberPositions))
	for _, p := range memberPositions {
		members[p] = true
	}

	voters := make([]deliberation.Participant, 0, len(memberPositions))
	for _, p := range all {
		if members[p.Position] {
			voters = append(voters, p)
		}
	}
	return voters
}

// unionPositions merges the deduplicated original participant positions
// feeding one promoted group, in first-seen order (not sorted).
func unionPositions(groups ...[]int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, g := range groups {
		for _, p := range g {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}
