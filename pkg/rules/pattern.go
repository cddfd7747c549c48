package rules

import (
	"cmp"
	"path"
	"strings"
)

// Pattern is a request path glob. A trailing "*" (or "/**") makes it a prefix
// match, an interior "*" matches a single path segment, and a pattern without
// wildcards matches itself and everything below it.
type Pattern string

// Match reports whether the request path p is covered by the pattern.
func (pt Pattern) Match(p string) bool {
	s := string(pt)
	if s == "" {
		return false
	}

	if prefix, ok := pt.prefix(); ok {
		return strings.HasPrefix(p, prefix)
	}

	if strings.ContainsAny(s, "*?[") {
		ok, err := path.Match(s, p)
		return err == nil && ok
	}

	// plain prefix, but only on a segment boundary so /api doesn't grab /apix
	if p == s {
		return true
	}
	if strings.HasSuffix(s, "/") {
		return strings.HasPrefix(p, s)
	}
	return strings.HasPrefix(p, s+"/")
}

// prefix returns the literal text before a trailing wildcard, if the pattern
// has one and no other glob characters.
func (pt Pattern) prefix() (string, bool) {
	s := string(pt)
	if !strings.HasSuffix(s, "*") {
		return "", false
	}
	lit := strings.TrimRight(s, "*")
	if strings.ContainsAny(lit, "*?[") {
		return "", false
	}
	return lit, true
}

// literal is the longest wildcard-free leading part of the pattern, used to
// rank rules by specificity.
func (pt Pattern) literal() string {
	s := string(pt)
	if i := strings.IndexAny(s, "*?["); i >= 0 {
		return s[:i]
	}
	return s
}

// kind ranks how narrowly a pattern matches once the literal prefix is
// equal: interior globs, then plain prefixes, then trailing wildcards.
func (pt Pattern) kind() int {
	if _, ok := pt.prefix(); ok {
		return 2
	}
	if strings.ContainsAny(string(pt), "*?[") {
		return 0
	}
	return 1
}

// compareSpecificity is negative when pt should be tried before other: longer
// literal prefix, then narrower kind, then longer pattern, then by text.
func (pt Pattern) compareSpecificity(other Pattern) int {
	if c := cmp.Compare(len(other.literal()), len(pt.literal())); c != 0 {
		return c
	}
	if c := cmp.Compare(pt.kind(), other.kind()); c != 0 {
		return c
	}
	if c := cmp.Compare(len(other), len(pt)); c != 0 {
		return c
	}
	return cmp.Compare(pt, other)
}

func (pt Pattern) validate() error {
	s := string(pt)
	if s == "" {
		return errEmptyPattern
	}
	if !strings.HasPrefix(s, "/") && s != "*" && s != "**" {
		return errRelativePattern
	}
	if _, ok := pt.prefix(); ok {
		return nil
	}
	if _, err := path.Match(s, "/"); err != nil {
		return err
	}
	return nil
}

func (pt Pattern) String() string {
	return string(pt)
}
