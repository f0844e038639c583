package linker

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// SymbolSet is a set of linker set keys.
type SymbolSet map[string]struct{}

// Has reports whether key is in s.
func (s SymbolSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Add inserts key into s.
func (s SymbolSet) Add(key string) {
	s[key] = struct{}{}
}

// Sorted returns the members of s in ascending order.
func (s SymbolSet) Sorted() []string {
	res := make([]string, 0, len(s))
	for k := range s {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// Matcher decides whether a symbol is covered by a set of version script
// wildcard patterns. All patterns are compiled into one alternation and every
// symbol that matched once is remembered, so repeated queries for the same
// symbol are answered from the matched set. A Matcher is not safe for
// concurrent use.
type Matcher struct {
	re      *regexp.Regexp
	matched SymbolSet
}

// NewMatcher compiles patterns into a Matcher. Each `*` matches any run of
// characters, every other character is matched literally and each pattern
// is anchored on word boundaries. An empty pattern set never matches.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{matched: make(SymbolSet)}
	expr := GlobsToRegexp(patterns)
	if expr == "" {
		return m, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid wildcard patterns %q: %w", patterns, err)
	}
	m.re = re
	return m, nil
}

// GlobsToRegexp builds the alternation expression for patterns, in the form
// `(\bPAT1\b)|(\bPAT2\b)`. Patterns are sorted first so the expression does
// not depend on the order they were declared in.
func GlobsToRegexp(patterns []string) string {
	sortedPatterns := append([]string(nil), patterns...)
	sort.Strings(sortedPatterns)

	var b strings.Builder
	for i, p := range sortedPatterns {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(`(\b`)
		for j, part := range strings.Split(p, "*") {
			if j > 0 {
				b.WriteString(".*")
			}
			b.WriteString(regexp.QuoteMeta(part))
		}
		b.WriteString(`\b)`)
	}
	return b.String()
}

// Match reports whether symbol is covered by the patterns. The first
// successful match records symbol in the matched set; later queries for the
// same symbol return true without evaluating the expression again.
func (m *Matcher) Match(symbol string) bool {
	if m.matched.Has(symbol) {
		return true
	}
	if m.re == nil || !m.re.MatchString(symbol) {
		return false
	}
	m.matched.Add(symbol)
	return true
}

// Matched returns the symbols matched so far.
func (m *Matcher) Matched() SymbolSet {
	return m.matched
}

// Empty reports whether the matcher was built from no patterns.
func (m *Matcher) Empty() bool {
	return m.re == nil
}

func (m *Matcher) String() string {
	if m.re == nil {
		return ""
	}
	return m.re.String()
}
