package abi

// ElfSymbolBinding is the linkage of an exported symbol.
type ElfSymbolBinding string

// Symbol bindings.
const (
	BindingGlobal ElfSymbolBinding = "global"
	BindingWeak   ElfSymbolBinding = "weak"
)

// ElfSymbolKind tells functions and data objects apart.
type ElfSymbolKind uint8

// Kinds of exported symbols.
const (
	ElfFunctionKind ElfSymbolKind = iota
	ElfObjectKind
)

// ElfSymbol is an entry of the export ground truth, either read from a
// shared object's dynamic symbol table or declared in a version script.
type ElfSymbol interface {
	SymbolName() string
	SymbolKind() ElfSymbolKind
}

// ElfFunction is an exported function symbol.
type ElfFunction struct {
	Name    string           `json:"name" yaml:"name"`
	Binding ElfSymbolBinding `json:"binding,omitempty" yaml:"binding,omitempty"`
}

// ElfObject is an exported data symbol.
type ElfObject struct {
	Name    string           `json:"name" yaml:"name"`
	Binding ElfSymbolBinding `json:"binding,omitempty" yaml:"binding,omitempty"`
}

// SymbolName returns the symbol name.
func (f ElfFunction) SymbolName() string { return f.Name }

// SymbolKind returns ElfFunctionKind.
func (ElfFunction) SymbolKind() ElfSymbolKind { return ElfFunctionKind }

// SymbolName returns the symbol name.
func (o ElfObject) SymbolName() string { return o.Name }

// SymbolKind returns ElfObjectKind.
func (ElfObject) SymbolKind() ElfSymbolKind { return ElfObjectKind }
