// Package postprocess strips model-family artefacts from a raw completion
// before it is treated as candidate or ranking text. Some models wrap
// internal reasoning in a designated delimiter pair (e.g. DeepSeek-R1's
// <think>...</think>, QwQ's <reasoning>...</reasoning>); left in place that
// text would pollute both the generator's candidate statement and the
// oracle's JSON parse. Rules are name-keyed and pluggable so a new model
// family's delimiter can be registered without touching callers.
package postprocess

import (
	"regexp"
	"strings"
	"sync"
)

// Rule strips one model family's artefacts from text.
type Rule func(text string) string

var (
	mu    sync.RWMutex
	rules = map[string]Rule{}
)

// Register adds a named rule. Called from init() in callers that know about
// a particular model family; re-registering a name replaces it.
func Register(name string, rule Rule) {
	mu.Lock()
	defer mu.Unlock()
	rules[name] = rule
}

// Named looks up a previously registered rule.
func Named(name string) (Rule, bool) {
	mu.RLock()
	defer mu.RUnlock()
	r, ok := rules[name]
	return r, ok
}

func init() {
	Register("delimited-reasoning", StripAllKnownTags)
}

// knownTagPairs are the reasoning-wrapper delimiters observed across current
// model families. New pairs are added here as they're encountered; this is
// not meant to be exhaustive, only to cover what's actually in the wild.
var knownTagPairs = [][2]string{
	{"think", "think"},
	{"thinking", "thinking"},
	{"reasoning", "reasoning"},
	{"scratchpad", "scratchpad"},
}

// StripAllKnownTags removes every known reasoning-delimiter region, start tag
// through matching close tag inclusive, and trims the result. It does not
// attempt to balance nested tags of the same kind; models don't nest them.
func StripAllKnownTags(text string) string {
	for _, pair := range knownTagPairs {
		open, close := pair[0], pair[1]
		pattern := regexp.MustCompile(`(?is)<\s*` + regexp.QuoteMeta(open) + `\s*>.*?<\s*/\s*` + regexp.QuoteMeta(close) + `\s*>`)
		text = pattern.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// ExtractEnvelope pulls the content of the first <tag>...</tag> region found
// in text. It reports false if no closing tag is present, so a caller can
// degrade gracefully to treating the whole text as the payload rather than
// silently truncating a still-streaming completion.
func ExtractEnvelope(text, tag string) (string, bool) {
	openTag, closeTag := "<"+tag+">", "</"+tag+">"
	start := strings.Index(text, openTag)
	if start < 0 {
		return "", false
	}
	start += len(openTag)
	end := strings.Index(text[start:], closeTag)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}
