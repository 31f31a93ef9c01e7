// Package globset implements the glob pattern semantics shared by
// branch admission and protected-path checks so both use exactly the
// same matching rules.
//
//   - "*" matches one path segment (never crosses "/").
//   - "**" matches zero or more segments, including "/".
//   - matching is case-sensitive and anchored to the full string.
//
// The trailing-slash expansion for protected paths ("foo/" also
// matching bare "foo") is applied by the callers (package config at
// load time, package validator for a policy that was not loaded), not
// here: by the time a pattern reaches globset it is already a plain glob.
package globset

import "github.com/gobwas/glob"

// Set is a compiled collection of glob patterns.
type Set struct {
	globs    []glob.Glob
	patterns []string
}

// Compile compiles patterns once so repeated matches don't re-parse.
func Compile(patterns []string) (*Set, error) {
	s := &Set{patterns: patterns}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		s.globs = append(s.globs, g)
	}
	return s, nil
}

// MatchAny reports whether any compiled pattern matches candidate. An
// empty pattern list matches nothing.
func (set *Set) MatchAny(candidate string) bool {
	for _, g := range set.globs {
		if g.Match(candidate) {
			return true
		}
	}
	return false
}

// Patterns returns the original pattern strings, for building
// human-readable rejection messages.
func (set *Set) Patterns() []string {
	return set.patterns
}
