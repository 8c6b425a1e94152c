package coordinator

import "github.com/praetorian-inc/deliberate/pkg/deliberation"

// levelItem is one voting item at a given recursion level: a participant's
// original opinion at level 0, or a promoted winning statement from a child
// group's election at any level above.
type levelItem struct {
	position        int
	statement       string
	memberPositions []int
}

// itemsFromParticipants builds level 0 items directly from the session's
// participants, one item per participant.
func itemsFromParticipants(participants []deliberation.Participant) []levelItem {
	items := make([]levelItem, len(participants))
	for i, p := range participants {
		items[i] = levelItem{position: p.Position, statement: p.Opinion, memberPositions: []int{p.Position}}
	}
	return items
}

// asParticipants adapts items to deliberation.Participant so the generic
// partitioner can shuffle and split them without knowing about levelItem.
func asParticipants(items []levelItem) []deliberation.Participant {
	ps := make([]deliberation.Participant, len(items))
	for i, it := range items {
		ps[i] = deliberation.Participant{Position: i, Opinion: it.statement}
	}
	return ps
}

// regroup reorders items to match a partition.Partition group, keyed by the
// synthetic index Position assigned in asParticipants.
func regroup(items []levelItem, group []deliberation.Participant) []levelItem {
	out := make([]levelItem, len(group))
	for i, p := range group {
		out[i] = items[p.Position]
	}
	return out
}
