package dump

import (
	"fmt"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/lib/fsext"
)

// Reader reads single dump files into graphs.
type Reader interface {
	ReadDump(path string) (*abi.Graph, error)
}

// FileReader reads dumps from a file system.
type FileReader struct {
	fs     fsext.Fs
	format Format

	// ExportedHeaders, when not empty, drops elements declared in a header
	// outside the set while reading. Elements without a source file are
	// always kept.
	ExportedHeaders map[string]struct{}
}

var _ Reader = &FileReader{}

// NewFileReader returns a reader for dumps in format.
func NewFileReader(fs fsext.Fs, format Format, exportedHeaders map[string]struct{}) *FileReader {
	return &FileReader{fs: fs, format: format, ExportedHeaders: exportedHeaders}
}

// ReadDump reads, decompresses and decodes the dump at path.
func (r *FileReader) ReadDump(path string) (*abi.Graph, error) {
	d, err := r.Decode(path)
	if err != nil {
		return nil, err
	}
	g, err := d.Graph(r.keep)
	if err != nil {
		return nil, fmt.Errorf("couldn't index dump %s: %w", path, err)
	}
	return g, nil
}

// Decode returns the dump document at path as it is stored.
func (r *FileReader) Decode(path string) (*abi.Dump, error) {
	data, err := fsext.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read dump: %w", err)
	}
	data, err = decompress(CompressionFor(path), data)
	if err != nil {
		return nil, fmt.Errorf("couldn't decompress dump %s: %w", path, err)
	}
	d, err := decode(r.format, data)
	if err != nil {
		return nil, fmt.Errorf("couldn't decode %s dump %s: %w", r.format, path, err)
	}
	return d, nil
}

func (r *FileReader) keep(e abi.Linkable) bool {
	return IsExported(e, r.ExportedHeaders)
}

// IsExported applies the header provenance rule: with a non-empty set of
// exported headers, an element declared in a header outside of it is not
// exported. Elements without a source file, like builtins, always are.
func IsExported(e abi.Linkable, exportedHeaders map[string]struct{}) bool {
	if len(exportedHeaders) == 0 {
		return true
	}
	src := e.SourceFile()
	if src == "" {
		return true
	}
	_, ok := exportedHeaders[src]
	return ok
}
