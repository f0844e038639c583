// Package elfsym reads the exported dynamic symbols of an ELF shared object
// and splits them into functions and data objects.
package elfsym

import (
	"errors"
	"fmt"

	"github.com/Binject/debug/elf"
	"github.com/sirupsen/logrus"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/lib/fsext"
)

// STT_GNU_IFUNC is the GNU indirect function symbol type. It is missing from
// the symbol type constants of the elf package.
const STT_GNU_IFUNC elf.SymType = 10 //nolint:revive,stylecheck

// Symbols holds the exported symbols of a shared object.
type Symbols struct {
	Functions  map[string]abi.ElfFunction
	GlobalVars map[string]abi.ElfObject
}

// ReadFile opens the shared object at path and returns its exported symbols.
// The file must be an ELF object; anything else is an error.
func ReadFile(fs fsext.Fs, path string, logger logrus.FieldLogger) (*Symbols, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open shared object: %w", err)
	}
	defer func() { _ = f.Close() }()

	ef, err := elf.NewFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s is not a valid ELF object: %w", path, err)
	}
	defer func() { _ = ef.Close() }()

	dynSyms, err := ef.DynamicSymbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		logger.WithField("path", path).Warn("Shared object has no dynamic symbol table")
		return newSymbols(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't read the dynamic symbols of %s: %w", path, err)
	}

	res := Collect(dynSyms)
	logger.WithFields(logrus.Fields{
		"path":        path,
		"functions":   len(res.Functions),
		"global_vars": len(res.GlobalVars),
	}).Debug("Read exported symbols from shared object")
	return res, nil
}

// Collect classifies dynamic symbols. Only defined symbols with global or
// weak binding and default or protected visibility are exported.
func Collect(syms []elf.Symbol) *Symbols {
	res := newSymbols()
	for _, sym := range syms {
		if sym.Section == elf.SHN_UNDEF || sym.Name == "" {
			continue
		}

		var binding abi.ElfSymbolBinding
		switch elf.ST_BIND(sym.Info) {
		case elf.STB_GLOBAL:
			binding = abi.BindingGlobal
		case elf.STB_WEAK:
			binding = abi.BindingWeak
		default:
			continue
		}

		switch elf.ST_VISIBILITY(sym.Other) {
		case elf.STV_DEFAULT, elf.STV_PROTECTED:
		default:
			continue
		}

		switch elf.ST_TYPE(sym.Info) {
		case elf.STT_FUNC, STT_GNU_IFUNC:
			res.Functions[sym.Name] = abi.ElfFunction{Name: sym.Name, Binding: binding}
		case elf.STT_OBJECT, elf.STT_TLS, elf.STT_COMMON:
			res.GlobalVars[sym.Name] = abi.ElfObject{Name: sym.Name, Binding: binding}
		}
	}
	return res
}

func newSymbols() *Symbols {
	return &Symbols{
		Functions:  make(map[string]abi.ElfFunction),
		GlobalVars: make(map[string]abi.ElfObject),
	}
}
