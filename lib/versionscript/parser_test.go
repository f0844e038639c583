package versionscript

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/lib/fsext"
)

const libfooScript = `# libfoo exports
LIBFOO_1 {
  global:
    foo_open;
    foo_close; # weak
    foo_debug; # platform-only
    foo_version; # var
    foo_handlers_*; # var
    foo_ext_*;
    foo_arm_only; # arm64
    foo_new; # introduced=30
    foo_newer; # introduced=29 introduced-arm64=31
    foo_next; # future
    extern "C++" {
      "foo::Widget::draw()";
    };
  local:
    *;
};

LIBFOO_2 {
  foo_reset;
} LIBFOO_1;

LIBFOO_PRIVATE {
  global:
    foo_internal;
};

LIBFOO_PLATFORM {
  foo_platform;
};
`

func parse(t *testing.T, arch, api, script string) *Result {
	t.Helper()
	p, err := NewParser(arch, api)
	require.NoError(t, err)
	res, err := p.Parse(strings.NewReader(script))
	require.NoError(t, err)
	return res
}

func functionNames(res *Result) []string {
	names := make([]string, 0, len(res.Functions))
	for name := range res.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestParseCurrent(t *testing.T) {
	t.Parallel()

	res := parse(t, "", APICurrent, libfooScript)

	assert.Equal(t, []string{
		"foo::Widget::draw()", "foo_arm_only", "foo_close", "foo_new", "foo_newer",
		"foo_next", "foo_open", "foo_reset",
	}, functionNames(res))
	assert.Equal(t, abi.BindingWeak, res.Functions["foo_close"].Binding)
	assert.Equal(t, abi.BindingGlobal, res.Functions["foo_open"].Binding)

	assert.Equal(t, map[string]abi.ElfObject{
		"foo_version": {Name: "foo_version", Binding: abi.BindingGlobal},
	}, res.GlobalVars)
	assert.Equal(t, []string{"foo_ext_*"}, res.FunctionPatterns)
	assert.Equal(t, []string{"foo_handlers_*"}, res.GlobalVarPatterns)
}

func TestParseArchAndAPI(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		arch, api string
		present   []string
		absent    []string
	}{
		{
			arch: "x86_64", api: "30",
			present: []string{"foo_new", "foo_newer", "foo_open"},
			absent:  []string{"foo_arm_only", "foo_next"},
		},
		{
			arch: "arm64", api: "30",
			present: []string{"foo_arm_only", "foo_new"},
			absent:  []string{"foo_newer", "foo_next"},
		},
		{
			arch: "arm64", api: "29",
			present: []string{"foo_arm_only", "foo_open"},
			absent:  []string{"foo_new", "foo_newer"},
		},
		{
			arch: "", api: "",
			present: []string{"foo_arm_only", "foo_newer", "foo_next"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.arch+"/"+tc.api, func(t *testing.T) {
			t.Parallel()
			res := parse(t, tc.arch, tc.api, libfooScript)
			for _, name := range tc.present {
				assert.Contains(t, res.Functions, name)
			}
			for _, name := range tc.absent {
				assert.NotContains(t, res.Functions, name)
			}
		})
	}
}

func TestParseSkipsPrivateBlocks(t *testing.T) {
	t.Parallel()

	res := parse(t, "", "", libfooScript)
	assert.NotContains(t, res.Functions, "foo_internal")
	assert.NotContains(t, res.Functions, "foo_platform")
	assert.NotContains(t, res.Functions, "foo_debug")
	assert.NotContains(t, res.Functions, "*")
}

func TestParseAnonymousBlock(t *testing.T) {
	t.Parallel()

	res := parse(t, "", "", "{ global: a; b*; local: c; };")
	assert.Equal(t, []string{"a"}, functionNames(res))
	assert.Equal(t, []string{"b*"}, res.FunctionPatterns)
	assert.Empty(t, res.GlobalVarPatterns)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	testCases := map[string]string{
		"unterminated block":    "LIBFOO { global: a;",
		"missing semicolon":     "LIBFOO { a b; };",
		"unknown section":       "LIBFOO { public: a; };",
		"unterminated string":   "LIBFOO { extern \"C++ { a; }; };",
		"stray semicolon":       "; LIBFOO { a; };",
		"missing block end ;":   "LIBFOO { a; }",
		"extern without lang":   "LIBFOO { extern { a; }; };",
		"unterminated extern":   "LIBFOO { extern \"C++\" { a;",
		"missing opening brace": "LIBFOO a;",
	}
	for name, script := range testCases {
		script := script
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p, err := NewParser("", "")
			require.NoError(t, err)
			_, err = p.Parse(strings.NewReader(script))
			require.Error(t, err)
		})
	}
}

func TestNewParserInvalidAPI(t *testing.T) {
	t.Parallel()

	_, err := NewParser("arm64", "Q")
	require.ErrorContains(t, err, `invalid API level "Q"`)
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	fs := fsext.NewMemMapFs()
	require.NoError(t, fsext.WriteFile(fs, "/src/libfoo.map.txt", []byte(libfooScript), 0o644))

	p, err := NewParser("", "")
	require.NoError(t, err)
	res, err := p.ParseFile(fs, "/src/libfoo.map.txt")
	require.NoError(t, err)
	assert.Contains(t, res.Functions, "foo_open")

	_, err = p.ParseFile(fs, "/src/missing.map.txt")
	require.ErrorContains(t, err, "couldn't open version script")

	require.NoError(t, fsext.WriteFile(fs, "/src/broken.map.txt", []byte("LIBFOO {\n  a\n};\n"), 0o644))
	_, err = p.ParseFile(fs, "/src/broken.map.txt")
	require.ErrorContains(t, err, "/src/broken.map.txt: line 3")
}
