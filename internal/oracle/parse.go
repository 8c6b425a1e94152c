package oracle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// rankingPayload is the strict shape the prompt asks the model for.
type rankingPayload struct {
	Ranking []int `json:"ranking"`
}

// parseRanking runs the three-stage cascade described in spec section 4.4:
// a strict JSON parse of the whole response, then a strict parse of the
// first balanced {...} substring (tolerating chatty preambles/epilogues),
// then a relaxed literal scan tolerating single-quoted keys and a trailing
// comma. It returns the raw 1-based labels; the caller converts to 0-based
// and validates the permutation.
func parseRanking(raw string) ([]int, error) {
	trimmed := strings.TrimSpace(raw)

	if labels, err := parseStrictJSON(trimmed); err == nil {
		return labels, nil
	}

	if block, ok := firstBalancedBraces(trimmed); ok {
		if labels, err := parseStrictJSON(block); err == nil {
			return labels, nil
		}
	}

	if labels, err := parseRelaxed(trimmed); err == nil {
		return labels, nil
	}

	return nil, fmt.Errorf("oracle: could not parse a ranking from response")
}

func parseStrictJSON(s string) ([]int, error) {
	var p rankingPayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, err
	}
	if len(p.Ranking) == 0 {
		return nil, fmt.Errorf("oracle: parsed ranking is empty")
	}
	return p.Ranking, nil
}

// firstBalancedBraces returns the first {...} substring of s with balanced
// braces, skipping over braces that occur inside string literals.
func firstBalancedBraces(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// parseRelaxed tolerates single-quoted keys/values and a trailing comma
// before the closing bracket, the two deviations models most often produce
// when asked for JSON under a low token budget. It locates the "ranking"
// key (single or double quoted), then the first bracketed list after it.
func parseRelaxed(s string) ([]int, error) {
	idx := strings.IndexAny(s, "\"'")
	keyPos := -1
	for idx >= 0 {
		rest := s[idx:]
		if strings.HasPrefix(rest, `"ranking"`) || strings.HasPrefix(rest, `'ranking'`) {
			keyPos = idx
			break
		}
		next := strings.IndexAny(s[idx+1:], "\"'")
		if next < 0 {
			break
		}
		idx = idx + 1 + next
	}
	if keyPos < 0 {
		// No quoted key at all: maybe the model just emitted the bare list.
		return parseBareList(s)
	}

	bracketStart := strings.IndexByte(s[keyPos:], '[')
	if bracketStart < 0 {
		return nil, fmt.Errorf("oracle: no list found after ranking key")
	}
	bracketStart += keyPos

	bracketEnd := strings.IndexByte(s[bracketStart:], ']')
	if bracketEnd < 0 {
		return nil, fmt.Errorf("oracle: unterminated ranking list")
	}
	bracketEnd += bracketStart

	return parseIntList(s[bracketStart+1 : bracketEnd])
}

// parseBareList handles a response that is nothing but "[1, 2, 3]" with no
// surrounding object.
func parseBareList(s string) ([]int, error) {
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start < 0 || end < 0 || end < start {
		return nil, fmt.Errorf("oracle: no bracketed list found")
	}
	return parseIntList(s[start+1 : end])
}

func parseIntList(body string) ([]int, error) {
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, ",")
	if body == "" {
		return nil, fmt.Errorf("oracle: empty list body")
	}

	fields := strings.Split(body, ",")
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		f = strings.Trim(f, `"'`)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("oracle: non-integer list entry %q: %w", f, err)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("oracle: list had no integer entries")
	}
	return out, nil
}
