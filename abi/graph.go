package abi

import (
	"fmt"
	"sort"
)

// ElementMap indexes the elements of one category by linker set key.
type ElementMap[T Linkable] map[string]T

// Put stores e under its linker set key, replacing any previous element.
func (m ElementMap[T]) Put(e T) {
	m[e.LinkerSetKey()] = e
}

// Merge copies every element of src into m. Keys already present in m are
// overwritten: the last merge wins.
func (m ElementMap[T]) Merge(src ElementMap[T]) {
	for k, v := range src {
		m[k] = v
	}
}

// SortedKeys returns the keys of m in ascending order.
func (m ElementMap[T]) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Graph is the deduplicated collection of elements of one or more dumps,
// one map per category.
type Graph struct {
	RecordTypes          ElementMap[*RecordType]
	EnumTypes            ElementMap[*EnumType]
	FunctionTypes        ElementMap[*FunctionType]
	BuiltinTypes         ElementMap[*BuiltinType]
	PointerTypes         ElementMap[*PointerType]
	RvalueReferenceTypes ElementMap[*RvalueReferenceType]
	LvalueReferenceTypes ElementMap[*LvalueReferenceType]
	ArrayTypes           ElementMap[*ArrayType]
	QualifiedTypes       ElementMap[*QualifiedType]
	Functions            ElementMap[*Function]
	GlobalVars           ElementMap[*GlobalVar]
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		RecordTypes:          make(ElementMap[*RecordType]),
		EnumTypes:            make(ElementMap[*EnumType]),
		FunctionTypes:        make(ElementMap[*FunctionType]),
		BuiltinTypes:         make(ElementMap[*BuiltinType]),
		PointerTypes:         make(ElementMap[*PointerType]),
		RvalueReferenceTypes: make(ElementMap[*RvalueReferenceType]),
		LvalueReferenceTypes: make(ElementMap[*LvalueReferenceType]),
		ArrayTypes:           make(ElementMap[*ArrayType]),
		QualifiedTypes:       make(ElementMap[*QualifiedType]),
		Functions:            make(ElementMap[*Function]),
		GlobalVars:           make(ElementMap[*GlobalVar]),
	}
}

// Add stores e in the map of its category.
func (g *Graph) Add(e Linkable) error {
	switch v := e.(type) {
	case *RecordType:
		g.RecordTypes.Put(v)
	case *EnumType:
		g.EnumTypes.Put(v)
	case *FunctionType:
		g.FunctionTypes.Put(v)
	case *BuiltinType:
		g.BuiltinTypes.Put(v)
	case *PointerType:
		g.PointerTypes.Put(v)
	case *RvalueReferenceType:
		g.RvalueReferenceTypes.Put(v)
	case *LvalueReferenceType:
		g.LvalueReferenceTypes.Put(v)
	case *ArrayType:
		g.ArrayTypes.Put(v)
	case *QualifiedType:
		g.QualifiedTypes.Put(v)
	case *Function:
		g.Functions.Put(v)
	case *GlobalVar:
		g.GlobalVars.Put(v)
	default:
		return fmt.Errorf("unsupported element type %T", e)
	}
	return nil
}

// Merge folds other into g, category by category. other is left untouched
// but its elements become shared with g.
func (g *Graph) Merge(other *Graph) {
	g.RecordTypes.Merge(other.RecordTypes)
	g.EnumTypes.Merge(other.EnumTypes)
	g.FunctionTypes.Merge(other.FunctionTypes)
	g.BuiltinTypes.Merge(other.BuiltinTypes)
	g.PointerTypes.Merge(other.PointerTypes)
	g.RvalueReferenceTypes.Merge(other.RvalueReferenceTypes)
	g.LvalueReferenceTypes.Merge(other.LvalueReferenceTypes)
	g.ArrayTypes.Merge(other.ArrayTypes)
	g.QualifiedTypes.Merge(other.QualifiedTypes)
	g.Functions.Merge(other.Functions)
	g.GlobalVars.Merge(other.GlobalVars)
}

// Elements returns the elements of category k in ascending key order.
func (g *Graph) Elements(k Kind) []Linkable {
	switch k {
	case KindRecordType:
		return sorted(g.RecordTypes)
	case KindEnumType:
		return sorted(g.EnumTypes)
	case KindFunctionType:
		return sorted(g.FunctionTypes)
	case KindBuiltinType:
		return sorted(g.BuiltinTypes)
	case KindPointerType:
		return sorted(g.PointerTypes)
	case KindRvalueReferenceType:
		return sorted(g.RvalueReferenceTypes)
	case KindLvalueReferenceType:
		return sorted(g.LvalueReferenceTypes)
	case KindArrayType:
		return sorted(g.ArrayTypes)
	case KindQualifiedType:
		return sorted(g.QualifiedTypes)
	case KindFunction:
		return sorted(g.Functions)
	case KindGlobalVar:
		return sorted(g.GlobalVars)
	}
	return nil
}

// Keys returns the sorted linker set keys of category k.
func (g *Graph) Keys(k Kind) []string {
	elems := g.Elements(k)
	keys := make([]string, len(elems))
	for i, e := range elems {
		keys[i] = e.LinkerSetKey()
	}
	return keys
}

// Len returns the number of elements in category k.
func (g *Graph) Len(k Kind) int {
	switch k {
	case KindRecordType:
		return len(g.RecordTypes)
	case KindEnumType:
		return len(g.EnumTypes)
	case KindFunctionType:
		return len(g.FunctionTypes)
	case KindBuiltinType:
		return len(g.BuiltinTypes)
	case KindPointerType:
		return len(g.PointerTypes)
	case KindRvalueReferenceType:
		return len(g.RvalueReferenceTypes)
	case KindLvalueReferenceType:
		return len(g.LvalueReferenceTypes)
	case KindArrayType:
		return len(g.ArrayTypes)
	case KindQualifiedType:
		return len(g.QualifiedTypes)
	case KindFunction:
		return len(g.Functions)
	case KindGlobalVar:
		return len(g.GlobalVars)
	}
	return 0
}

// Total returns the number of elements across all categories.
func (g *Graph) Total() int {
	n := 0
	for _, k := range AllKinds {
		n += g.Len(k)
	}
	return n
}

func sorted[T Linkable](m ElementMap[T]) []Linkable {
	res := make([]Linkable, 0, len(m))
	for _, k := range m.SortedKeys() {
		res = append(res, m[k])
	}
	return res
}
