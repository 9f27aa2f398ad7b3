// Package irutil holds helpers shared by the analysis and its drivers:
// leveled logging carried through a context, callee name matching, and
// graph exports of functions in the ir package.
package irutil

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// MatchStrategy represents different ways to match function names
type MatchStrategy int

const (
	// MatchExact requires an exact string match
	MatchExact MatchStrategy = iota
	// MatchFuzzy uses substring matching
	MatchFuzzy
	// MatchGlob uses shell-style pattern matching with *, ?, []
	MatchGlob
	// MatchRegex uses regular expression matching
	MatchRegex
)

// String returns a human-readable description of the match strategy
func (m MatchStrategy) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchFuzzy:
		return "fuzzy"
	case MatchGlob:
		return "glob"
	case MatchRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// FunctionMatcher matches callee names against a pattern.
type FunctionMatcher struct {
	pattern  string
	strategy MatchStrategy
	regex    *regexp.Regexp
}

// NewFunctionMatcher creates a new matcher with explicit strategy
func NewFunctionMatcher(pattern string, strategy MatchStrategy) (*FunctionMatcher, error) {
	matcher := &FunctionMatcher{
		pattern:  pattern,
		strategy: strategy,
	}

	if strategy == MatchRegex {
		regex, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern '%s': %w", pattern, err)
		}
		matcher.regex = regex
	}

	return matcher, nil
}

// MustFunctionMatcher is like NewFunctionMatcher but panics on an invalid
// pattern. It is meant for built-in tables.
func MustFunctionMatcher(pattern string, strategy MatchStrategy) *FunctionMatcher {
	m, err := NewFunctionMatcher(pattern, strategy)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseFunctionMatcher creates a matcher by parsing a pattern with an
// optional strategy prefix:
//   - "exact:pattern" - exact matching
//   - "fuzzy:pattern" - substring matching
//   - "glob:pattern" - glob pattern matching
//   - "regex:pattern" - regular expression matching
//   - "pattern" - substring matching, the way input functions are
//     recognized by default
func ParseFunctionMatcher(input string) (*FunctionMatcher, error) {
	strategy := MatchFuzzy
	pattern := input

	if prefix, rest, ok := strings.Cut(input, ":"); ok {
		switch strings.ToLower(prefix) {
		case "exact":
			strategy, pattern = MatchExact, rest
		case "fuzzy", "fuzz", "substring", "contains":
			strategy, pattern = MatchFuzzy, rest
		case "glob", "pattern":
			strategy, pattern = MatchGlob, rest
		case "regex", "regexp", "re":
			strategy, pattern = MatchRegex, rest
		}
	}

	if pattern == "" {
		return nil, fmt.Errorf("empty pattern in %q", input)
	}

	return NewFunctionMatcher(pattern, strategy)
}

// Match returns true if the function name matches according to the strategy
func (m *FunctionMatcher) Match(funcName string) bool {
	switch m.strategy {
	case MatchExact:
		return funcName == m.pattern
	case MatchFuzzy:
		return strings.Contains(funcName, m.pattern)
	case MatchGlob:
		matched, err := path.Match(m.pattern, funcName)
		if err != nil {
			return funcName == m.pattern
		}
		return matched
	case MatchRegex:
		if m.regex == nil {
			return false
		}
		return m.regex.MatchString(funcName)
	default:
		return false
	}
}

// Strategy returns the matching strategy being used
func (m *FunctionMatcher) Strategy() MatchStrategy {
	return m.strategy
}

// Pattern returns the pattern being matched
func (m *FunctionMatcher) Pattern() string {
	return m.pattern
}

// String returns the matcher in the syntax accepted by ParseFunctionMatcher.
func (m *FunctionMatcher) String() string {
	return fmt.Sprintf("%s:%s", m.strategy.String(), m.pattern)
}
