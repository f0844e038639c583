// Package abi holds the in-memory representation of ABI dumps: the element
// categories produced by the header scanner, the merged graph built out of
// many dumps and the ELF symbol descriptors used as export ground truth.
package abi

// Kind identifies the category an element belongs to.
type Kind uint8

// The element categories, in the order they are linked and serialized.
const (
	KindRecordType Kind = iota
	KindEnumType
	KindFunctionType
	KindBuiltinType
	KindPointerType
	KindRvalueReferenceType
	KindLvalueReferenceType
	KindArrayType
	KindQualifiedType
	KindFunction
	KindGlobalVar
)

// NumKinds is the number of element categories.
const NumKinds = int(KindGlobalVar) + 1

var kindNames = [...]string{
	KindRecordType:          "record_types",
	KindEnumType:            "enum_types",
	KindFunctionType:        "function_types",
	KindBuiltinType:         "builtin_types",
	KindPointerType:         "pointer_types",
	KindRvalueReferenceType: "rvalue_reference_types",
	KindLvalueReferenceType: "lvalue_reference_types",
	KindArrayType:           "array_types",
	KindQualifiedType:       "qualified_types",
	KindFunction:            "functions",
	KindGlobalVar:           "global_vars",
}

// TypeKinds lists the nine type categories in their stable link order.
var TypeKinds = []Kind{ //nolint:gochecknoglobals
	KindRecordType, KindEnumType, KindFunctionType, KindBuiltinType, KindPointerType,
	KindRvalueReferenceType, KindLvalueReferenceType, KindArrayType, KindQualifiedType,
}

// AllKinds lists every category in link order: types first, then functions,
// then global variables.
var AllKinds = append(append([]Kind{}, TypeKinds...), KindFunction, KindGlobalVar) //nolint:gochecknoglobals

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsType reports whether k is one of the type categories.
func (k Kind) IsType() bool {
	return k <= KindQualifiedType
}

// Linkable is implemented by every element that can be merged and linked.
type Linkable interface {
	LinkerSetKey() string
	SourceFile() string
	Kind() Kind
}

// AccessSpecifier is the C++ access level of a declaration.
type AccessSpecifier string

// Access specifiers as emitted by the header scanner.
const (
	AccessPublic    AccessSpecifier = "public"
	AccessProtected AccessSpecifier = "protected"
	AccessPrivate   AccessSpecifier = "private"
)

// TypeInfo carries the attributes common to all type categories.
type TypeInfo struct {
	Name           string          `json:"name" yaml:"name"`
	Key            string          `json:"linker_set_key" yaml:"linker_set_key"`
	Source         string          `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	ReferencedType string          `json:"referenced_type,omitempty" yaml:"referenced_type,omitempty"`
	SelfType       string          `json:"self_type,omitempty" yaml:"self_type,omitempty"`
	Size           uint64          `json:"size,omitempty" yaml:"size,omitempty"`
	Alignment      uint32          `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	Access         AccessSpecifier `json:"access,omitempty" yaml:"access,omitempty"`
}

// TemplateElement is one argument of a template instantiation.
type TemplateElement struct {
	ReferencedType string `json:"referenced_type" yaml:"referenced_type"`
}

// RecordField is a data member of a struct, class or union.
type RecordField struct {
	FieldName      string          `json:"field_name" yaml:"field_name"`
	ReferencedType string          `json:"referenced_type" yaml:"referenced_type"`
	FieldOffset    uint64          `json:"field_offset" yaml:"field_offset"`
	Access         AccessSpecifier `json:"access,omitempty" yaml:"access,omitempty"`
}

// BaseSpecifier is a base class of a record.
type BaseSpecifier struct {
	ReferencedType string          `json:"referenced_type" yaml:"referenced_type"`
	IsVirtual      bool            `json:"is_virtual,omitempty" yaml:"is_virtual,omitempty"`
	Access         AccessSpecifier `json:"access,omitempty" yaml:"access,omitempty"`
}

// VTableComponent is a single slot of a record's virtual table.
type VTableComponent struct {
	Kind        string `json:"kind" yaml:"kind"`
	MangledName string `json:"mangled_component_name,omitempty" yaml:"mangled_component_name,omitempty"`
	Value       int64  `json:"component_value,omitempty" yaml:"component_value,omitempty"`
	IsPure      bool   `json:"is_pure,omitempty" yaml:"is_pure,omitempty"`
}

// RecordType is a struct, class or union.
type RecordType struct {
	TypeInfo         `yaml:",inline"`
	RecordKind       string            `json:"record_kind,omitempty" yaml:"record_kind,omitempty"`
	IsAnonymous      bool              `json:"is_anonymous,omitempty" yaml:"is_anonymous,omitempty"`
	Fields           []RecordField     `json:"fields,omitempty" yaml:"fields,omitempty"`
	BaseSpecifiers   []BaseSpecifier   `json:"base_specifiers,omitempty" yaml:"base_specifiers,omitempty"`
	TemplateArgs     []TemplateElement `json:"template_args,omitempty" yaml:"template_args,omitempty"`
	VTableComponents []VTableComponent `json:"vtable_components,omitempty" yaml:"vtable_components,omitempty"`
}

// EnumField is one enumerator.
type EnumField struct {
	Name  string `json:"name" yaml:"name"`
	Value int64  `json:"enum_field_value" yaml:"enum_field_value"`
}

// EnumType is an enumeration.
type EnumType struct {
	TypeInfo       `yaml:",inline"`
	UnderlyingType string      `json:"underlying_type" yaml:"underlying_type"`
	Fields         []EnumField `json:"enum_fields,omitempty" yaml:"enum_fields,omitempty"`
}

// Parameter is a function parameter.
type Parameter struct {
	ReferencedType string `json:"referenced_type" yaml:"referenced_type"`
	DefaultArg     bool   `json:"default_arg,omitempty" yaml:"default_arg,omitempty"`
	IsThisPtr      bool   `json:"is_this_ptr,omitempty" yaml:"is_this_ptr,omitempty"`
}

// FunctionType is the type of a function pointer target.
type FunctionType struct {
	TypeInfo   `yaml:",inline"`
	ReturnType string      `json:"return_type" yaml:"return_type"`
	Parameters []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// BuiltinType is a language provided type such as int or char. Builtins
// never carry a source file.
type BuiltinType struct {
	TypeInfo   `yaml:",inline"`
	IsUnsigned bool `json:"is_unsigned,omitempty" yaml:"is_unsigned,omitempty"`
	IsIntegral bool `json:"is_integral,omitempty" yaml:"is_integral,omitempty"`
}

// PointerType is T*.
type PointerType struct {
	TypeInfo `yaml:",inline"`
}

// RvalueReferenceType is T&&.
type RvalueReferenceType struct {
	TypeInfo `yaml:",inline"`
}

// LvalueReferenceType is T&.
type LvalueReferenceType struct {
	TypeInfo `yaml:",inline"`
}

// ArrayType is T[N].
type ArrayType struct {
	TypeInfo `yaml:",inline"`
}

// QualifiedType is a cv-qualified type.
type QualifiedType struct {
	TypeInfo     `yaml:",inline"`
	IsConst      bool `json:"is_const,omitempty" yaml:"is_const,omitempty"`
	IsVolatile   bool `json:"is_volatile,omitempty" yaml:"is_volatile,omitempty"`
	IsRestricted bool `json:"is_restricted,omitempty" yaml:"is_restricted,omitempty"`
}

// Function is an exported function declaration. Its linker set key is the
// mangled symbol name.
type Function struct {
	Name         string            `json:"function_name" yaml:"function_name"`
	Key          string            `json:"linker_set_key" yaml:"linker_set_key"`
	Source       string            `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	ReturnType   string            `json:"return_type" yaml:"return_type"`
	Parameters   []Parameter       `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	TemplateArgs []TemplateElement `json:"template_args,omitempty" yaml:"template_args,omitempty"`
	Access       AccessSpecifier   `json:"access,omitempty" yaml:"access,omitempty"`
}

// GlobalVar is an exported variable declaration.
type GlobalVar struct {
	Name           string          `json:"name" yaml:"name"`
	Key            string          `json:"linker_set_key" yaml:"linker_set_key"`
	Source         string          `json:"source_file,omitempty" yaml:"source_file,omitempty"`
	ReferencedType string          `json:"referenced_type" yaml:"referenced_type"`
	Access         AccessSpecifier `json:"access,omitempty" yaml:"access,omitempty"`
}

// LinkerSetKey returns the key the type is deduplicated by.
func (t TypeInfo) LinkerSetKey() string { return t.Key }

// SourceFile returns the header the type was declared in, if any.
func (t TypeInfo) SourceFile() string { return t.Source }

func (*RecordType) Kind() Kind          { return KindRecordType }
func (*EnumType) Kind() Kind            { return KindEnumType }
func (*FunctionType) Kind() Kind        { return KindFunctionType }
func (*BuiltinType) Kind() Kind         { return KindBuiltinType }
func (*PointerType) Kind() Kind         { return KindPointerType }
func (*RvalueReferenceType) Kind() Kind { return KindRvalueReferenceType }
func (*LvalueReferenceType) Kind() Kind { return KindLvalueReferenceType }
func (*ArrayType) Kind() Kind           { return KindArrayType }
func (*QualifiedType) Kind() Kind       { return KindQualifiedType }

func (f *Function) LinkerSetKey() string { return f.Key }
func (f *Function) SourceFile() string   { return f.Source }
func (*Function) Kind() Kind             { return KindFunction }

func (g *GlobalVar) LinkerSetKey() string { return g.Key }
func (g *GlobalVar) SourceFile() string   { return g.Source }
func (*GlobalVar) Kind() Kind             { return KindGlobalVar }
