package dump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/lib/fsext"
)

const sampleJSON = `{
 "record_types": [
  {"name": "Foo", "linker_set_key": "struct Foo", "source_file": "/src/include/foo.h", "size": 8,
   "fields": [{"field_name": "x", "referenced_type": "int", "field_offset": 0}]},
  {"name": "Impl", "linker_set_key": "struct Impl", "source_file": "/src/internal.h"}
 ],
 "builtin_types": [{"name": "int", "linker_set_key": "int", "size": 4}],
 "functions": [
  {"function_name": "foo", "linker_set_key": "_Z3foov", "source_file": "/src/include/foo.h", "return_type": "int"}
 ],
 "global_vars": [
  {"name": "g", "linker_set_key": "g", "source_file": "/src/internal.h", "referenced_type": "int"}
 ]
}`

func TestParseFormat(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in  string
		exp Format
		err bool
	}{
		{in: "json", exp: FormatJSON},
		{in: "Json", exp: FormatJSON},
		{in: "YAML", exp: FormatYAML},
		{in: "yml", exp: FormatYAML},
		{in: " auto ", exp: FormatAuto},
		{in: "protobuf", err: true},
		{in: "", err: true},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			f, err := ParseFormat(tc.in)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, f)
		})
	}

	var f Format
	require.NoError(t, f.UnmarshalText([]byte("yaml")))
	assert.Equal(t, FormatYAML, f)
	text, err := FormatAuto.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "auto", string(text))
}

func TestDetect(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatJSON, Detect([]byte(sampleJSON)))
	assert.Equal(t, FormatYAML, Detect([]byte("functions:\n  - linker_set_key: foo\n")))
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	t.Parallel()

	_, err := decode(FormatJSON, []byte(`[{"linker_set_key": "x"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an object")

	d, err := decode(FormatJSON, []byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, d.Linkables())

	_, err = decode(FormatYAML, []byte("functions: {not: [a list"))
	require.Error(t, err)
}

func TestCompressionFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CompressionNone, CompressionFor("libfoo.lsdump"))
	assert.Equal(t, CompressionGzip, CompressionFor("libfoo.lsdump.gz"))
	assert.Equal(t, CompressionZstd, CompressionFor("/out/libfoo.lsdump.zst"))
	assert.Equal(t, CompressionBr, CompressionFor("libfoo.lsdump.br"))
	assert.Equal(t, "zstd", CompressionZstd.String())
}

func TestCompressionRoundTrip(t *testing.T) {
	t.Parallel()

	data := []byte(sampleJSON)
	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd, CompressionBr} {
		c := c
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()
			packed, err := compress(c, data)
			require.NoError(t, err)
			if c != CompressionNone {
				assert.NotEqual(t, data, packed)
			}
			unpacked, err := decompress(c, packed)
			require.NoError(t, err)
			assert.Equal(t, data, unpacked)
		})
	}
}

func TestFileReader(t *testing.T) {
	t.Parallel()

	fs := fsext.NewMemMapFs()
	require.NoError(t, fsext.WriteFile(fs, "/dumps/foo.sdump", []byte(sampleJSON), 0o644))

	t.Run("everything", func(t *testing.T) {
		t.Parallel()
		g, err := NewFileReader(fs, FormatJSON, nil).ReadDump("/dumps/foo.sdump")
		require.NoError(t, err)
		assert.Equal(t, []string{"struct Foo", "struct Impl"}, g.Keys(abi.KindRecordType))
		assert.Equal(t, []string{"g"}, g.Keys(abi.KindGlobalVar))
		assert.Equal(t, uint64(8), g.RecordTypes["struct Foo"].Size)
		require.Len(t, g.RecordTypes["struct Foo"].Fields, 1)
	})

	t.Run("exported headers", func(t *testing.T) {
		t.Parallel()
		headers := map[string]struct{}{"/src/include/foo.h": {}}
		g, err := NewFileReader(fs, FormatAuto, headers).ReadDump("/dumps/foo.sdump")
		require.NoError(t, err)
		assert.Equal(t, []string{"struct Foo"}, g.Keys(abi.KindRecordType))
		assert.Equal(t, []string{"int"}, g.Keys(abi.KindBuiltinType))
		assert.Equal(t, []string{"_Z3foov"}, g.Keys(abi.KindFunction))
		assert.Empty(t, g.Keys(abi.KindGlobalVar))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := NewFileReader(fs, FormatJSON, nil).ReadDump("/dumps/missing.sdump")
		require.Error(t, err)
	})

	t.Run("wrong format", func(t *testing.T) {
		t.Parallel()
		_, err := NewFileReader(fs, FormatYAML, nil).ReadDump("/dumps/foo.sdump")
		// JSON is valid YAML, so this only works because the schema matches
		require.NoError(t, err)

		require.NoError(t, fsext.WriteFile(fs, "/dumps/bad.sdump", []byte("record_types: [}"), 0o644))
		_, err = NewFileReader(fs, FormatJSON, nil).ReadDump("/dumps/bad.sdump")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "/dumps/bad.sdump")
	})
}

func TestIsExported(t *testing.T) {
	t.Parallel()

	pub := &abi.Function{Key: "f", Source: "/inc/pub.h"}
	priv := &abi.Function{Key: "g", Source: "/src/priv.h"}
	builtin := &abi.BuiltinType{TypeInfo: abi.TypeInfo{Key: "int"}}

	assert.True(t, IsExported(priv, nil))
	headers := map[string]struct{}{"/inc/pub.h": {}}
	assert.True(t, IsExported(pub, headers))
	assert.False(t, IsExported(priv, headers))
	assert.True(t, IsExported(builtin, headers))
}

func TestFileWriterRoundTrip(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		path   string
		format Format
	}{
		{"/out/libfoo.lsdump", FormatJSON},
		{"/out/libfoo.lsdump.gz", FormatJSON},
		{"/out/libfoo.yaml.zst", FormatYAML},
		{"/out/libfoo.yaml.br", FormatYAML},
	} {
		tc := tc
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()

			fs := fsext.NewMemMapFs()
			w, err := NewFileWriter(fs, tc.path, tc.format)
			require.NoError(t, err)

			require.NoError(t, w.AddElfSymbol(abi.ElfFunction{Name: "_Z3foov", Binding: abi.BindingGlobal}))
			require.NoError(t, w.AddElfSymbol(abi.ElfObject{Name: "g"}))
			require.NoError(t, w.AddLinkable(&abi.RecordType{TypeInfo: abi.TypeInfo{Name: "Foo", Key: "struct Foo"}}))
			require.NoError(t, w.AddLinkable(&abi.Function{Name: "foo", Key: "_Z3foov", ReturnType: "int"}))

			exists, err := fsext.Exists(fs, tc.path)
			require.NoError(t, err)
			assert.False(t, exists, "nothing is written before Dump")

			require.NoError(t, w.Dump())

			d, err := NewFileReader(fs, tc.format, nil).Decode(tc.path)
			require.NoError(t, err)
			assert.Equal(t, w.Document(), d)

			functions, objects := d.ElfSymbolNames()
			assert.Equal(t, []string{"_Z3foov"}, functions)
			assert.Equal(t, []string{"g"}, objects)
		})
	}
}

func TestNewFileWriterRejectsAuto(t *testing.T) {
	t.Parallel()

	_, err := NewFileWriter(fsext.NewMemMapFs(), "/out.json", FormatAuto)
	require.Error(t, err)
}

func TestWriteReplacesExistingFile(t *testing.T) {
	t.Parallel()

	fs := fsext.NewMemMapFs()
	require.NoError(t, fsext.WriteFile(fs, "/out/libfoo.lsdump", []byte("stale"), 0o644))

	d := &abi.Dump{GlobalVars: []*abi.GlobalVar{{Name: "g", Key: "g", ReferencedType: "int"}}}
	w, err := NewFileWriter(fs, "/out/libfoo.lsdump", FormatJSON)
	require.NoError(t, err)
	w.doc = *d
	require.NoError(t, w.Dump())

	got, err := NewFileReader(fs, FormatJSON, nil).Decode("/out/libfoo.lsdump")
	require.NoError(t, err)
	assert.Equal(t, d, got)
}
