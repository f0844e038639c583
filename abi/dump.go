package abi

import (
	"fmt"
	"sort"
)

// Dump is the serialized form of an ABI dump. Input dumps written by the
// header scanner and the linked output share this layout.
type Dump struct {
	RecordTypes          []*RecordType          `json:"record_types,omitempty" yaml:"record_types,omitempty"`
	EnumTypes            []*EnumType            `json:"enum_types,omitempty" yaml:"enum_types,omitempty"`
	FunctionTypes        []*FunctionType        `json:"function_types,omitempty" yaml:"function_types,omitempty"`
	BuiltinTypes         []*BuiltinType         `json:"builtin_types,omitempty" yaml:"builtin_types,omitempty"`
	PointerTypes         []*PointerType         `json:"pointer_types,omitempty" yaml:"pointer_types,omitempty"`
	RvalueReferenceTypes []*RvalueReferenceType `json:"rvalue_reference_types,omitempty" yaml:"rvalue_reference_types,omitempty"`
	LvalueReferenceTypes []*LvalueReferenceType `json:"lvalue_reference_types,omitempty" yaml:"lvalue_reference_types,omitempty"`
	ArrayTypes           []*ArrayType           `json:"array_types,omitempty" yaml:"array_types,omitempty"`
	QualifiedTypes       []*QualifiedType       `json:"qualified_types,omitempty" yaml:"qualified_types,omitempty"`
	Functions            []*Function            `json:"functions,omitempty" yaml:"functions,omitempty"`
	GlobalVars           []*GlobalVar           `json:"global_vars,omitempty" yaml:"global_vars,omitempty"`
	ElfFunctions         []ElfFunction          `json:"elf_functions,omitempty" yaml:"elf_functions,omitempty"`
	ElfObjects           []ElfObject            `json:"elf_objects,omitempty" yaml:"elf_objects,omitempty"`
}

// Append adds e to the slice of its category.
func (d *Dump) Append(e Linkable) error {
	switch v := e.(type) {
	case *RecordType:
		d.RecordTypes = append(d.RecordTypes, v)
	case *EnumType:
		d.EnumTypes = append(d.EnumTypes, v)
	case *FunctionType:
		d.FunctionTypes = append(d.FunctionTypes, v)
	case *BuiltinType:
		d.BuiltinTypes = append(d.BuiltinTypes, v)
	case *PointerType:
		d.PointerTypes = append(d.PointerTypes, v)
	case *RvalueReferenceType:
		d.RvalueReferenceTypes = append(d.RvalueReferenceTypes, v)
	case *LvalueReferenceType:
		d.LvalueReferenceTypes = append(d.LvalueReferenceTypes, v)
	case *ArrayType:
		d.ArrayTypes = append(d.ArrayTypes, v)
	case *QualifiedType:
		d.QualifiedTypes = append(d.QualifiedTypes, v)
	case *Function:
		d.Functions = append(d.Functions, v)
	case *GlobalVar:
		d.GlobalVars = append(d.GlobalVars, v)
	default:
		return fmt.Errorf("unsupported element type %T", e)
	}
	return nil
}

// AppendElfSymbol adds s to elf_functions or elf_objects.
func (d *Dump) AppendElfSymbol(s ElfSymbol) error {
	switch v := s.(type) {
	case ElfFunction:
		d.ElfFunctions = append(d.ElfFunctions, v)
	case *ElfFunction:
		d.ElfFunctions = append(d.ElfFunctions, *v)
	case ElfObject:
		d.ElfObjects = append(d.ElfObjects, v)
	case *ElfObject:
		d.ElfObjects = append(d.ElfObjects, *v)
	default:
		return fmt.Errorf("unsupported ELF symbol type %T", s)
	}
	return nil
}

// Linkables returns every element of d in category order, preserving the
// order within each category.
func (d *Dump) Linkables() []Linkable {
	var res []Linkable
	res = appendAll(res, d.RecordTypes)
	res = appendAll(res, d.EnumTypes)
	res = appendAll(res, d.FunctionTypes)
	res = appendAll(res, d.BuiltinTypes)
	res = appendAll(res, d.PointerTypes)
	res = appendAll(res, d.RvalueReferenceTypes)
	res = appendAll(res, d.LvalueReferenceTypes)
	res = appendAll(res, d.ArrayTypes)
	res = appendAll(res, d.QualifiedTypes)
	res = appendAll(res, d.Functions)
	res = appendAll(res, d.GlobalVars)
	return res
}

// Graph indexes d by linker set key. Elements for which keep returns false
// are left out; a nil keep keeps everything. Duplicate keys within d resolve
// to the last occurrence.
func (d *Dump) Graph(keep func(Linkable) bool) (*Graph, error) {
	g := NewGraph()
	for _, e := range d.Linkables() {
		if keep != nil && !keep(e) {
			continue
		}
		if err := g.Add(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// ElfSymbolNames returns the sorted names of the ELF functions and objects.
func (d *Dump) ElfSymbolNames() (functions, objects []string) {
	for _, f := range d.ElfFunctions {
		functions = append(functions, f.Name)
	}
	for _, o := range d.ElfObjects {
		objects = append(objects, o.Name)
	}
	sort.Strings(functions)
	sort.Strings(objects)
	return functions, objects
}

// appendAll skips null entries, which decode as nil pointers.
func appendAll[T Linkable](dst []Linkable, src []T) []Linkable {
	var zero T
	for _, e := range src {
		if any(e) == any(zero) {
			continue
		}
		dst = append(dst, e)
	}
	return dst
}
