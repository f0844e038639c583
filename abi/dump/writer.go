package dump

import (
	"fmt"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/lib/fsext"
)

// Writer accumulates the linked dump and serializes it.
type Writer interface {
	AddLinkable(e abi.Linkable) error
	AddElfSymbol(s abi.ElfSymbol) error
	Dump() error
}

// FileWriter writes a dump to a single file. Nothing touches the file
// system before Dump is called, and Dump replaces the destination in one
// step, so a failed run never leaves a partial output behind.
type FileWriter struct {
	fs     fsext.Fs
	path   string
	format Format
	doc    abi.Dump
}

var _ Writer = &FileWriter{}

// NewFileWriter returns a writer for path in format.
func NewFileWriter(fs fsext.Fs, path string, format Format) (*FileWriter, error) {
	if format == FormatAuto {
		return nil, fmt.Errorf("the output dump format must be json or yaml")
	}
	return &FileWriter{fs: fs, path: path, format: format}, nil
}

// AddLinkable appends e to the output.
func (w *FileWriter) AddLinkable(e abi.Linkable) error {
	return w.doc.Append(e)
}

// AddElfSymbol appends s to the output's ELF symbol list.
func (w *FileWriter) AddElfSymbol(s abi.ElfSymbol) error {
	return w.doc.AppendElfSymbol(s)
}

// Document returns the dump accumulated so far.
func (w *FileWriter) Document() *abi.Dump {
	return &w.doc
}

// Dump encodes, compresses and writes the output file.
func (w *FileWriter) Dump() error {
	data, err := encode(w.format, &w.doc)
	if err != nil {
		return fmt.Errorf("couldn't encode the linked dump: %w", err)
	}
	data, err = compress(CompressionFor(w.path), data)
	if err != nil {
		return fmt.Errorf("couldn't compress the linked dump: %w", err)
	}
	if err := fsext.ReplaceFile(w.fs, w.path, data, 0o644); err != nil {
		return fmt.Errorf("couldn't write the linked dump to %s: %w", w.path, err)
	}
	return nil
}
