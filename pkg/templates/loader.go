package templates

import (
	"strconv"
	"strings"
)

// findMissing returns the first placeholder from required that is absent
// from tmpl, or "" if all are present.
func findMissing(tmpl string, required []string) string {
	for _, placeholder := range required {
		if !strings.Contains(tmpl, placeholder) {
			return placeholder
		}
	}
	return ""
}

// RenderCandidate substitutes the candidate template's placeholders.
func RenderCandidate(tmpl, question, participantStatements string) string {
	r := strings.NewReplacer(
		"{question}", question,
		"{participant_statements}", participantStatements,
	)
	return r.Replace(tmpl)
}

// RenderRanking substitutes the ranking template's placeholders.
func RenderRanking(tmpl, question string, participantNum int, participantStatement string, numCandidates int, candidateStatements string) string {
	r := strings.NewReplacer(
		"{question}", question,
		"{participant_num}", strconv.Itoa(participantNum),
		"{participant_statement}", participantStatement,
		"{num_candidates}", strconv.Itoa(numCandidates),
		"{candidate_statements}", candidateStatements,
	)
	return r.Replace(tmpl)
}
