package postprocess

import "testing"

func TestStripAllKnownTags(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "think block removed",
			in:   "<think>let me consider the options</think>The consensus is X.",
			want: "The consensus is X.",
		},
		{
			name: "reasoning block removed case-insensitively",
			in:   "<REASONING>\nsome steps\n</REASONING>\nFinal answer here.",
			want: "Final answer here.",
		},
		{
			name: "no tags leaves text untouched",
			in:   "Just the statement, nothing hidden.",
			want: "Just the statement, nothing hidden.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := StripAllKnownTags(tc.in)
			if got != tc.want {
				t.Errorf("StripAllKnownTags(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExtractEnvelope(t *testing.T) {
	text := "<thinking>ignored</thinking><statement>We should do X.</statement>"
	got, ok := ExtractEnvelope(text, "statement")
	if !ok {
		t.Fatal("expected envelope to be found")
	}
	if got != "We should do X." {
		t.Errorf("got %q", got)
	}

	_, ok = ExtractEnvelope("no envelope here", "statement")
	if ok {
		t.Error("expected ok=false when closing tag is absent")
	}
}

func TestNamedRegistered(t *testing.T) {
	rule, ok := Named("delimited-reasoning")
	if !ok {
		t.Fatal("expected default rule to be registered")
	}
	if got := rule("<think>x</think>kept"); got != "kept" {
		t.Errorf("got %q", got)
	}
}
