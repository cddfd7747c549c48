// Package rules holds the proxy rule set a development server consults to
// decide which request paths are forwarded to a backend, and how their
// headers are rewritten on the way through.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
)

// BypassFunc is a pre-forward hook. It may mutate the request headers and
// returns a local path to serve instead of proxying. An empty return means
// the request is forwarded.
type BypassFunc func(h Headers) string

// Spec describes a rule before validation, as read from a config file or
// written in code.
type Spec struct {
	// Pattern is the request path glob, e.g. "/api/*".
	Pattern string

	// Target is the upstream URL, e.g. "http://127.0.0.1:7220".
	Target string

	// Secure enforces upstream TLS certificate validation.
	Secure bool

	// LogLevel is one of debug, info, warn, error, silent. Empty means info.
	LogLevel string

	// Headers are extra static overrides applied after Host, Referer and Origin.
	Headers []HeaderOverride

	// Bypass optionally runs after the overrides on every matched request.
	Bypass BypassFunc
}

// Rule is a validated, immutable proxy rule.
type Rule struct {
	pattern   Pattern
	target    *url.URL
	secure    bool
	level     LogLevel
	overrides []HeaderOverride
	bypass    BypassFunc
}

func newRule(s Spec) (*Rule, error) {
	pt := Pattern(s.Pattern)
	if err := pt.validate(); err != nil {
		return nil, &InvalidRuleError{Pattern: s.Pattern, Err: err}
	}

	target, err := url.Parse(s.Target)
	if err != nil {
		return nil, &InvalidRuleError{Pattern: s.Pattern, Err: fmt.Errorf("parse target: %w", err)}
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, &InvalidRuleError{Pattern: s.Pattern, Err: fmt.Errorf("target %q must be http or https", s.Target)}
	}
	if target.Host == "" {
		return nil, &InvalidRuleError{Pattern: s.Pattern, Err: fmt.Errorf("target %q has no host", s.Target)}
	}

	level, err := ParseLogLevel(s.LogLevel)
	if err != nil {
		return nil, &InvalidRuleError{Pattern: s.Pattern, Err: err}
	}

	overrides := targetOverrides(target)
	for _, h := range s.Headers {
		if h.Name == "" {
			return nil, &InvalidRuleError{Pattern: s.Pattern, Err: errors.New("header override has no name")}
		}
		if isTargetHeader(h.Name) {
			return nil, &InvalidRuleError{Pattern: s.Pattern, Err: fmt.Errorf("header %s is derived from the target and cannot be overridden", h.Name)}
		}
		overrides = append(overrides, h)
	}

	return &Rule{
		pattern:   pt,
		target:    target,
		secure:    s.Secure,
		level:     level,
		overrides: overrides,
		bypass:    s.Bypass,
	}, nil
}

func (r *Rule) Pattern() Pattern { return r.pattern }

// Target returns a copy of the upstream URL.
func (r *Rule) Target() *url.URL {
	u := *r.target
	return &u
}

func (r *Rule) Secure() bool { return r.secure }

func (r *Rule) LogLevel() LogLevel { return r.level }

// HeaderOverrides returns the ordered overrides, Host, Referer and Origin first.
func (r *Rule) HeaderOverrides() []HeaderOverride {
	return slices.Clone(r.overrides)
}

// Match reports whether the rule applies to the request path.
func (r *Rule) Match(path string) bool {
	return r.pattern.Match(path)
}

// Apply sets every header override on h, in order.
func (r *Rule) Apply(h Headers) {
	for _, o := range r.overrides {
		h.Set(o.Name, o.Value)
	}
}

// PreForward is the hook the host runs exactly once per matched request,
// before forwarding. The overrides are always applied; a custom Bypass then
// gets the final say. An empty return means forward the request.
func (r *Rule) PreForward(h Headers) string {
	r.Apply(h)
	if r.bypass == nil {
		return ""
	}
	return r.bypass(h)
}

type ruleJSON struct {
	Pattern  string           `json:"pattern"`
	Target   string           `json:"target"`
	Secure   bool             `json:"secure"`
	LogLevel LogLevel         `json:"logLevel"`
	Headers  []HeaderOverride `json:"headers"`
}

func (r *Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(ruleJSON{
		Pattern:  string(r.pattern),
		Target:   r.target.String(),
		Secure:   r.secure,
		LogLevel: r.level,
		Headers:  r.overrides,
	})
}

// Set is an immutable, ordered collection of rules. The most specific pattern
// is consulted first.
type Set struct {
	rules []*Rule
}

// New validates specs and builds a Set. Patterns must be unique.
func New(specs ...Spec) (*Set, error) {
	seen := make(map[string]struct{}, len(specs))
	rules := make([]*Rule, 0, len(specs))

	for _, s := range specs {
		if _, dup := seen[s.Pattern]; dup {
			return nil, &InvalidRuleError{Pattern: s.Pattern, Err: errors.New("duplicate path pattern")}
		}
		seen[s.Pattern] = struct{}{}

		r, err := newRule(s)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	slices.SortStableFunc(rules, func(a, b *Rule) int {
		return a.pattern.compareSpecificity(b.pattern)
	})

	return &Set{rules: rules}, nil
}

// DefaultTarget is the backend the built-in rule forwards to.
const DefaultTarget = "http://127.0.0.1:7220"

// Default returns the built-in rule set: everything under /api/ goes to the
// local backend without certificate checks, logged at debug.
func Default() *Set {
	s, err := New(Spec{
		Pattern:  "/api/*",
		Target:   DefaultTarget,
		Secure:   false,
		LogLevel: string(LevelDebug),
	})
	if err != nil {
		panic("invalid default rule set: " + err.Error())
	}
	return s
}

// Match returns the first rule, by specificity, whose pattern covers path.
func (s *Set) Match(path string) (*Rule, bool) {
	for _, r := range s.rules {
		if r.Match(path) {
			return r, true
		}
	}
	return nil, false
}

// Rules returns the rules in match order.
func (s *Set) Rules() []*Rule {
	return slices.Clone(s.rules)
}

func (s *Set) Len() int { return len(s.rules) }

// MinLevel is the most verbose level any rule asks for. The host builds its
// base logger at this level. It returns LevelInfo for an empty set.
func (s *Set) MinLevel() LogLevel {
	lowest := LevelSilent
	for _, r := range s.rules {
		if r.level.Silent() {
			continue
		}
		if lowest.Silent() || r.level.ZapLevel() < lowest.ZapLevel() {
			lowest = r.level
		}
	}
	if lowest.Silent() {
		return LevelInfo
	}
	return lowest
}
