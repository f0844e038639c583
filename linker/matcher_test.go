package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobsToRegexp(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		patterns []string
		exp      string
	}{
		{name: "empty", patterns: nil, exp: ""},
		{name: "single", patterns: []string{"ba*"}, exp: `(\bba.*\b)`},
		{name: "sorted", patterns: []string{"zed*", "ab*c"}, exp: `(\bab.*c\b)|(\bzed.*\b)`},
		{name: "literal metacharacters", patterns: []string{"ns::Foo<int>*", "a.b*"}, exp: `(\ba\.b.*\b)|(\bns::Foo<int>.*\b)`},
		{name: "only star", patterns: []string{"*"}, exp: `(\b.*\b)`},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.exp, GlobsToRegexp(tc.patterns))
		})
	}
}

func TestGlobsToRegexpIgnoresDeclarationOrder(t *testing.T) {
	t.Parallel()

	patterns := []string{"c*", "a*", "b*"}
	assert.Equal(t, GlobsToRegexp([]string{"a*", "b*", "c*"}), GlobsToRegexp(patterns))
	assert.Equal(t, []string{"c*", "a*", "b*"}, patterns, "input is not modified")
}

func TestMatcher(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher([]string{"ba*", "_ZN2ns*"})
	require.NoError(t, err)
	assert.False(t, m.Empty())

	assert.True(t, m.Match("bar"))
	assert.True(t, m.Match("baz"))
	assert.True(t, m.Match("_ZN2ns3FooEv"))
	assert.False(t, m.Match("foo"))
	assert.False(t, m.Match("xyz"))

	// repeated queries are answered from the matched set
	assert.True(t, m.Match("bar"))
	assert.Equal(t, []string{"_ZN2ns3FooEv", "bar", "baz"}, m.Matched().Sorted())
}

func TestMatcherWordBoundaries(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher([]string{"foo"})
	require.NoError(t, err)

	assert.True(t, m.Match("foo"))
	assert.False(t, m.Match("foobar"))
	assert.False(t, m.Match("xfoo"))
	// the expression is not anchored to the whole symbol
	assert.True(t, m.Match("foo.cold"))
}

func TestEmptyMatcher(t *testing.T) {
	t.Parallel()

	m, err := NewMatcher(nil)
	require.NoError(t, err)
	assert.True(t, m.Empty())
	assert.Equal(t, "", m.String())
	assert.False(t, m.Match("anything"))
	assert.Empty(t, m.Matched())
}

func TestSymbolSet(t *testing.T) {
	t.Parallel()

	s := make(SymbolSet)
	s.Add("b")
	s.Add("a")
	s.Add("b")
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))
	assert.Equal(t, []string{"a", "b"}, s.Sorted())
}
