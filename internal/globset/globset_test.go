package globset

import "testing"

func TestMatchAny(t *testing.T) {
	cases := []struct {
		name     string
		patterns []string
		input    string
		want     bool
	}{
		{"exact", []string{"main"}, "main", true},
		{"single-segment-star", []string{"release-*"}, "release-1.2", true},
		{"star-does-not-cross-slash", []string{"release-*"}, "release-1/2", false},
		{"doublestar-crosses-slash", []string{"docs/**"}, "docs/a/b/c.md", true},
		{"doublestar-bare-not-included", []string{"docs/**"}, "docs", false},
		{"case-sensitive", []string{"Main"}, "main", false},
		{"no-match", []string{"foo", "bar"}, "baz", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			set, err := Compile(c.patterns)
			if err != nil {
				t.Fatalf("Compile(%v): %v", c.patterns, err)
			}
			if got := set.MatchAny(c.input); got != c.want {
				t.Errorf("MatchAny(%q) with patterns %v = %v, want %v", c.input, c.patterns, got, c.want)
			}
		})
	}
}

func TestOrderIndependence(t *testing.T) {
	forward, err := Compile([]string{"a/*", "b/*"})
	if err != nil {
		t.Fatal(err)
	}
	backward, err := Compile([]string{"b/*", "a/*"})
	if err != nil {
		t.Fatal(err)
	}
	for _, candidate := range []string{"a/x", "b/y", "c/z"} {
		if forward.MatchAny(candidate) != backward.MatchAny(candidate) {
			t.Errorf("pattern order changed match result for %q", candidate)
		}
	}
}

func TestPatternsRoundTrip(t *testing.T) {
	patterns := []string{"a/*", "b/**"}
	set, err := Compile(patterns)
	if err != nil {
		t.Fatal(err)
	}
	got := set.Patterns()
	if len(got) != len(patterns) {
		t.Fatalf("Patterns() = %v, want %v", got, patterns)
	}
	for i := range patterns {
		if got[i] != patterns[i] {
			t.Errorf("Patterns()[%d] = %q, want %q", i, got[i], patterns[i])
		}
	}
}
