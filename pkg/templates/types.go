// Package templates loads and validates the prompt templates used by the
// candidate generator and ranking oracle. A template is a plain string with
// {placeholder} markers; a missing placeholder is a configuration error
// caught before any model call is issued (spec section 6).
package templates

import "fmt"

// Set holds the two prompt templates the engine needs.
type Set struct {
	// Candidate must accept {question} and {participant_statements}.
	Candidate string
	// Ranking must accept {question}, {participant_num}, {participant_statement},
	// {num_candidates} and {candidate_statements}.
	Ranking string
}

// candidatePlaceholders are the markers the candidate template must contain.
var candidatePlaceholders = []string{"{question}", "{participant_statements}"}

// rankingPlaceholders are the markers the ranking template must contain.
var rankingPlaceholders = []string{
	"{question}",
	"{participant_num}",
	"{participant_statement}",
	"{num_candidates}",
	"{candidate_statements}",
}

// Default returns the built-in templates used when the configuration does
// not override them.
func Default() Set {
	return Set{
		Candidate: defaultCandidateTemplate,
		Ranking:   defaultRankingTemplate,
	}
}

// Validate checks that both templates carry every placeholder they are
// required to accept, returning a TemplateError describing the first
// problem found.
func (s Set) Validate() error {
	if s.Candidate == "" {
		return &TemplateError{Template: "candidate", Reason: "template is empty"}
	}
	if s.Ranking == "" {
		return &TemplateError{Template: "ranking", Reason: "template is empty"}
	}
	if missing := findMissing(s.Candidate, candidatePlaceholders); missing != "" {
		return &TemplateError{Template: "candidate", Reason: fmt.Sprintf("missing placeholder %s", missing)}
	}
	if missing := findMissing(s.Ranking, rankingPlaceholders); missing != "" {
		return &TemplateError{Template: "ranking", Reason: fmt.Sprintf("missing placeholder %s", missing)}
	}
	return nil
}

// TemplateError reports a malformed prompt template, raised pre-flight.
type TemplateError struct {
	Template string
	Reason   string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error in %s template: %s", e.Template, e.Reason)
}
