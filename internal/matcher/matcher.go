// Package matcher filters gene symbols with glob or regex patterns.
// Patterns are matched case-insensitively by default because gene symbols
// are stored upper-case while users type them in any case.
package matcher

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// PatternType represents the type of pattern matching to use.
type PatternType int

const (
	// Glob uses shell-style glob patterns (*, ?, []).
	Glob PatternType = iota
	// Regex uses regular expressions.
	Regex
	// Prefix matches symbols starting with the pattern.
	Prefix
	// Auto picks Regex, Glob or Prefix from the pattern's metacharacters.
	Auto
)

// Matcher is the main interface for pattern matching operations.
type Matcher interface {
	// Match checks if the input matches the pattern
	Match(input string) bool
	// Filter returns the inputs that match, in input order.
	Filter(inputs []string) []string
	// Type returns the pattern type being used.
	Type() PatternType
}

// Options configures the matcher behavior.
type Options struct {
	// CaseSensitive disables the default case folding
	CaseSensitive bool
	// Anchored adds ^ and $ to regex patterns if not present
	Anchored bool
}

type matcher struct {
	pattern     string
	patternType PatternType
	compiled    *regexp.Regexp
	folded      string
	fold        bool
}

// New creates a new Matcher with the specified pattern and type.
func New(patternType PatternType, pattern string, opts ...*Options) (Matcher, error) {
	options := &Options{}
	if len(opts) > 0 && opts[0] != nil {
		options = opts[0]
	}

	m := &matcher{
		pattern:     strings.TrimSpace(pattern),
		patternType: patternType,
		fold:        !options.CaseSensitive,
	}
	if patternType == Auto {
		m.patternType = detectPatternType(m.pattern)
	}

	if err := m.compile(options); err != nil {
		return nil, fmt.Errorf("failed to compile pattern: %w", err)
	}
	return m, nil
}

// MustNew creates a new Matcher and panics if there's an error.
func MustNew(patternType PatternType, pattern string, opts ...*Options) Matcher {
	m, err := New(patternType, pattern, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *matcher) compile(opts *Options) error {
	m.folded = m.pattern
	if m.fold {
		m.folded = strings.ToUpper(m.pattern)
	}

	switch m.patternType {
	case Prefix:
		return nil
	case Glob:
		if _, err := path.Match(m.folded, ""); err != nil {
			return fmt.Errorf("invalid glob pattern: %w", err)
		}
		return nil
	case Regex:
		pattern := m.pattern
		if opts.Anchored {
			if !strings.HasPrefix(pattern, "^") {
				pattern = "^" + pattern
			}
			if !strings.HasSuffix(pattern, "$") {
				pattern += "$"
			}
		}
		if m.fold && !strings.HasPrefix(pattern, "(?i)") {
			pattern = "(?i)" + pattern
		}
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		m.compiled = compiled
		return nil
	default:
		return fmt.Errorf("unsupported pattern type: %v", m.patternType)
	}
}

// Match checks if the input matches the pattern.
func (m *matcher) Match(input string) bool {
	if m.fold && m.patternType != Regex {
		input = strings.ToUpper(input)
	}
	switch m.patternType {
	case Prefix:
		return strings.HasPrefix(input, m.folded)
	case Glob:
		matched, _ := path.Match(m.folded, input)
		return matched
	case Regex:
		return m.compiled.MatchString(input)
	default:
		return false
	}
}

// Filter returns the inputs that match, in input order.
func (m *matcher) Filter(inputs []string) []string {
	results := make([]string, 0)
	for _, input := range inputs {
		if m.Match(input) {
			results = append(results, input)
		}
	}
	return results
}

func (m *matcher) Type() PatternType { return m.patternType }

// detectPatternType guesses the pattern type from its metacharacters. Gene
// symbols often contain '-' and '.', so only characters that never appear
// in HGNC symbols count.
func detectPatternType(pattern string) PatternType {
	regexIndicators := []string{
		"^", "$", "\\d", "\\w", "\\s", "\\D", "\\W", "\\S",
		"(?i)", "{", "}", "+", "|", "(", ")", ".*",
	}
	for _, indicator := range regexIndicators {
		if strings.Contains(pattern, indicator) {
			return Regex
		}
	}
	if isGlobPattern(pattern) {
		return Glob
	}
	return Prefix
}

// String returns a string representation of the PatternType.
func (pt PatternType) String() string {
	switch pt {
	case Glob:
		return "glob"
	case Regex:
		return "regex"
	case Prefix:
		return "prefix"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// multiMatcher matches when any of its patterns matches.
type multiMatcher struct {
	matchers []Matcher
}

// newMultiMatcher creates a matcher with multiple patterns. Empty patterns
// are ignored; a multiMatcher with no patterns matches everything.
func newMultiMatcher(patterns []string, patternType PatternType, opts ...*Options) (*multiMatcher, error) {
	mm := &multiMatcher{matchers: make([]Matcher, 0, len(patterns))}
	for _, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			continue
		}
		m, err := New(patternType, pattern, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create matcher for pattern %q: %w", pattern, err)
		}
		mm.matchers = append(mm.matchers, m)
	}
	return mm, nil
}

// Match returns true if any pattern matches.
func (mm *multiMatcher) Match(input string) bool {
	if len(mm.matchers) == 0 {
		return true
	}
	for _, m := range mm.matchers {
		if m.Match(input) {
			return true
		}
	}
	return false
}

// Filter returns the inputs that match any pattern, without duplicates.
func (mm *multiMatcher) Filter(inputs []string) []string {
	results := make([]string, 0)
	seen := make(map[string]bool)
	for _, input := range inputs {
		if !seen[input] && mm.Match(input) {
			results = append(results, input)
			seen[input] = true
		}
	}
	return results
}

// FilterGenes filters gene symbols by a comma-separated list of patterns.
func FilterGenes(patterns string, genes []string) ([]string, error) {
	mm, err := newMultiMatcher(strings.Split(patterns, ","), Auto)
	if err != nil {
		return nil, err
	}
	return mm.Filter(genes), nil
}

// isGlobPattern checks if a string contains glob metacharacters.
func isGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[]")
}
