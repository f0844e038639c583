package linker

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/lib/headers"
	"github.com/abitools/abilinker/lib/testutils"
)

type recordingWriter struct {
	elements []abi.Linkable
	symbols  []abi.ElfSymbol
	failOn   string
}

func (w *recordingWriter) AddLinkable(e abi.Linkable) error {
	if w.failOn != "" && e.LinkerSetKey() == w.failOn {
		return errors.New("disk full")
	}
	w.elements = append(w.elements, e)
	return nil
}

func (w *recordingWriter) AddElfSymbol(s abi.ElfSymbol) error {
	w.symbols = append(w.symbols, s)
	return nil
}

func (w *recordingWriter) Dump() error { return nil }

func (w *recordingWriter) keys(k abi.Kind) []string {
	var res []string
	for _, e := range w.elements {
		if e.Kind() == k {
			res = append(res, e.LinkerSetKey())
		}
	}
	return res
}

func newTruth() *GroundTruth {
	return &GroundTruth{
		Functions:       map[string]abi.ElfFunction{},
		GlobalVars:      map[string]abi.ElfObject{},
		ExportedHeaders: headers.Set{},
	}
}

func mustGraph(t *testing.T, elems ...abi.Linkable) *abi.Graph {
	t.Helper()
	g := abi.NewGraph()
	for _, e := range elems {
		require.NoError(t, g.Add(e))
	}
	return g
}

func TestLinkSymbolFilter(t *testing.T) {
	t.Parallel()

	truth := newTruth()
	truth.Functions["foo"] = abi.ElfFunction{Name: "foo", Binding: abi.BindingGlobal}
	truth.FunctionPatterns = []string{"ba*"}

	l, err := New(truth, testutils.NewLogger(t))
	require.NoError(t, err)

	g := mustGraph(t,
		&abi.Function{Name: "foo", Key: "foo"},
		&abi.Function{Name: "bar", Key: "bar"},
		&abi.Function{Name: "baz", Key: "baz"},
		&abi.Function{Name: "qux", Key: "qux"},
	)
	w := &recordingWriter{}
	require.NoError(t, l.Link(g, w))

	assert.Equal(t, []string{"bar", "baz", "foo"}, w.keys(abi.KindFunction))

	stats := l.Stats()
	assert.Equal(t, 2, stats.WildcardFunctions)
	assert.Equal(t, 0, stats.WildcardGlobalVars)
	assert.Equal(t, CategoryStats{Considered: 4, DroppedBySymbol: 1, Emitted: 3}, stats.Categories[abi.KindFunction])

	// A second pass reports the wildcard matches from the matched set.
	require.NoError(t, l.LinkFunctions(g, &recordingWriter{}))
	assert.Equal(t, 2, l.Stats().WildcardFunctions)
}

func TestNewLogsWildcardPatterns(t *testing.T) {
	t.Parallel()

	logger, hook := testutils.NewLoggerWithHook(t, logrus.DebugLevel)
	_, err := New(newTruth(), logger)
	require.NoError(t, err)
	assert.False(t, testutils.LogContains(hook.Drain(), logrus.DebugLevel, "Compiled wildcard patterns"))

	truth := newTruth()
	truth.GlobalVarPatterns = []string{"gv_pub_*"}
	_, err = New(truth, logger)
	require.NoError(t, err)
	entry, ok := testutils.FindEntry(hook.Drain(), logrus.DebugLevel, "Compiled wildcard patterns")
	require.True(t, ok)
	assert.Equal(t, "", entry.Data["function_patterns"])
	assert.Contains(t, entry.Data["global_var_patterns"], "gv_pub_")
}

func TestLinkGlobalVars(t *testing.T) {
	t.Parallel()

	truth := newTruth()
	truth.GlobalVars["gv_exact"] = abi.ElfObject{Name: "gv_exact"}
	truth.GlobalVarPatterns = []string{"gv_pub_*"}
	truth.Functions["gv_hidden"] = abi.ElfFunction{Name: "gv_hidden"}

	l, err := New(truth, testutils.NewLogger(t))
	require.NoError(t, err)

	g := mustGraph(t,
		&abi.GlobalVar{Name: "gv_exact", Key: "gv_exact"},
		&abi.GlobalVar{Name: "gv_pub_one", Key: "gv_pub_one"},
		&abi.GlobalVar{Name: "gv_hidden", Key: "gv_hidden"},
	)
	w := &recordingWriter{}
	require.NoError(t, l.Link(g, w))

	// A function symbol doesn't export a variable of the same name.
	assert.Equal(t, []string{"gv_exact", "gv_pub_one"}, w.keys(abi.KindGlobalVar))
	assert.Equal(t, 1, l.Stats().WildcardGlobalVars)
}

func TestLinkProvenance(t *testing.T) {
	t.Parallel()

	truth := newTruth()
	truth.Functions["pub"] = abi.ElfFunction{Name: "pub"}
	truth.Functions["priv"] = abi.ElfFunction{Name: "priv"}
	truth.ExportedHeaders["/src/include/public.h"] = struct{}{}

	l, err := New(truth, testutils.NewLogger(t))
	require.NoError(t, err)

	g := mustGraph(t,
		&abi.BuiltinType{TypeInfo: abi.TypeInfo{Name: "int", Key: "int"}},
		&abi.RecordType{TypeInfo: abi.TypeInfo{Name: "Pub", Key: "struct Pub", Source: "/src/include/public.h"}},
		&abi.RecordType{TypeInfo: abi.TypeInfo{Name: "Priv", Key: "struct Priv", Source: "/src/internal.h"}},
		&abi.Function{Name: "pub", Key: "pub", Source: "/src/include/public.h"},
		&abi.Function{Name: "priv", Key: "priv", Source: "/src/internal.h"},
	)
	w := &recordingWriter{}
	require.NoError(t, l.Link(g, w))

	assert.Equal(t, []string{"int"}, w.keys(abi.KindBuiltinType), "builtins are never filtered out")
	assert.Equal(t, []string{"struct Pub"}, w.keys(abi.KindRecordType))
	assert.Equal(t, []string{"pub"}, w.keys(abi.KindFunction))

	stats := l.Stats()
	assert.Equal(t, CategoryStats{Considered: 2, DroppedByProvenance: 1, Emitted: 1}, stats.Categories[abi.KindRecordType])
	assert.Equal(t, CategoryStats{Considered: 2, DroppedByProvenance: 1, Emitted: 1}, stats.Categories[abi.KindFunction])
	assert.Equal(t, 1, stats.ExportedHeaderCount)
	assert.Equal(t, 3, stats.Emitted())
}

func TestLinkCategoryOrder(t *testing.T) {
	t.Parallel()

	truth := newTruth()
	truth.Functions["f"] = abi.ElfFunction{Name: "f"}
	truth.GlobalVars["v"] = abi.ElfObject{Name: "v"}

	l, err := New(truth, testutils.NewLogger(t))
	require.NoError(t, err)

	g := mustGraph(t,
		&abi.GlobalVar{Name: "v", Key: "v"},
		&abi.Function{Name: "f", Key: "f"},
		&abi.QualifiedType{TypeInfo: abi.TypeInfo{Name: "const int", Key: "const int"}},
		&abi.PointerType{TypeInfo: abi.TypeInfo{Name: "int *", Key: "int *"}},
		&abi.BuiltinType{TypeInfo: abi.TypeInfo{Name: "int", Key: "int"}},
		&abi.EnumType{TypeInfo: abi.TypeInfo{Name: "E", Key: "enum E"}},
		&abi.RecordType{TypeInfo: abi.TypeInfo{Name: "S", Key: "struct S"}},
	)
	w := &recordingWriter{}
	require.NoError(t, l.Link(g, w))

	kinds := make([]abi.Kind, 0, len(w.elements))
	for _, e := range w.elements {
		kinds = append(kinds, e.Kind())
	}
	assert.Equal(t, []abi.Kind{
		abi.KindRecordType, abi.KindEnumType, abi.KindBuiltinType, abi.KindPointerType,
		abi.KindQualifiedType, abi.KindFunction, abi.KindGlobalVar,
	}, kinds)
}

func TestLinkWriterError(t *testing.T) {
	t.Parallel()

	truth := newTruth()
	truth.Functions["f"] = abi.ElfFunction{Name: "f"}
	l, err := New(truth, testutils.NewLogger(t))
	require.NoError(t, err)

	g := mustGraph(t, &abi.Function{Name: "f", Key: "f"})
	err = l.Link(g, &recordingWriter{failOn: "f"})
	require.ErrorContains(t, err, "failed to add functions element f")
}

func TestAddElfSymbols(t *testing.T) {
	t.Parallel()

	truth := newTruth()
	truth.Functions["b"] = abi.ElfFunction{Name: "b"}
	truth.Functions["a"] = abi.ElfFunction{Name: "a", Binding: abi.BindingWeak}
	truth.GlobalVars["v"] = abi.ElfObject{Name: "v"}
	l, err := New(truth, testutils.NewLogger(t))
	require.NoError(t, err)

	w := &recordingWriter{}
	require.NoError(t, l.AddElfSymbols(w))
	assert.Equal(t, []abi.ElfSymbol{
		abi.ElfFunction{Name: "a", Binding: abi.BindingWeak},
		abi.ElfFunction{Name: "b"},
		abi.ElfObject{Name: "v"},
	}, w.symbols)

	stats := l.Stats()
	assert.Equal(t, 2, stats.ElfFunctions)
	assert.Equal(t, 1, stats.ElfObjects)
}
