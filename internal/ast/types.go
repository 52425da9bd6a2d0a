package ast

// Primitive is one of the closed set of primitive scalar types (spec §3).
type Primitive string

const (
	PrimInt     Primitive = "int"
	PrimDecimal Primitive = "decimal"
	PrimText    Primitive = "text"
	PrimFlag    Primitive = "flag"
	PrimDate    Primitive = "date"
	PrimFile    Primitive = "file"
	PrimVoid    Primitive = "void" // task return "type" — no value produced
)

// CollectionKind distinguishes the ordered list from the unordered group.
type CollectionKind int

const (
	NotCollection CollectionKind = iota
	ListKind                     // list of T — ordered, equality is element-wise
	GroupKind                    // group of T — unordered multiset
)

// Type is the resolved type of an expression or declaration: either a
// primitive, a list/group of some element type, or a named record type.
// Exactly one of Primitive/RecordName is meaningful unless Collection is set,
// in which case Elem describes the element type.
type Type struct {
	Primitive  Primitive      // set when this is a primitive type
	Collection CollectionKind // NotCollection unless this is list/group of T
	Elem       *Type          // element type when Collection != NotCollection
	RecordName string         // set when this is a user-defined record type
}

func Int() *Type     { return &Type{Primitive: PrimInt} }
func Decimal() *Type { return &Type{Primitive: PrimDecimal} }
func Text() *Type    { return &Type{Primitive: PrimText} }
func Flag() *Type    { return &Type{Primitive: PrimFlag} }
func Date() *Type     { return &Type{Primitive: PrimDate} }
func FileType() *Type { return &Type{Primitive: PrimFile} }
func Void() *Type     { return &Type{Primitive: PrimVoid} }

func ListOf(elem *Type) *Type  { return &Type{Collection: ListKind, Elem: elem} }
func GroupOf(elem *Type) *Type { return &Type{Collection: GroupKind, Elem: elem} }
func Record(name string) *Type { return &Type{RecordName: name} }

// IsPrimitive reports whether t names one of the closed primitive types.
func (t *Type) IsPrimitive() bool {
	return t != nil && t.Collection == NotCollection && t.RecordName == ""
}

// IsNumeric reports whether t is int or decimal.
func (t *Type) IsNumeric() bool {
	return t.IsPrimitive() && (t.Primitive == PrimInt || t.Primitive == PrimDecimal)
}

// IsCollection reports whether t is a list or group.
func (t *Type) IsCollection() bool { return t != nil && t.Collection != NotCollection }

// IsRecord reports whether t names a user-defined record.
func (t *Type) IsRecord() bool { return t != nil && t.RecordName != "" }

// Equal reports structural type equality (spec §3 assignment compatibility
// treats equal types, plus the legacy number→int alias, as compatible).
func (t *Type) Equal(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Collection != other.Collection {
		return false
	}
	if t.Collection != NotCollection {
		return t.Elem.Equal(other.Elem)
	}
	if t.RecordName != "" || other.RecordName != "" {
		return t.RecordName == other.RecordName
	}
	return t.Primitive == other.Primitive
}

// String renders the type the way it appears in diagnostics and source.
func (t *Type) String() string {
	if t == nil {
		return "<unknown>"
	}
	switch t.Collection {
	case ListKind:
		return "list of " + t.Elem.String()
	case GroupKind:
		return "group of " + t.Elem.String()
	}
	if t.RecordName != "" {
		return t.RecordName
	}
	return string(t.Primitive)
}

// legacyAliases maps historical spellings to their canonical primitive, per
// spec §3's "compatibility: equal, or from a legacy alias like number→int".
var legacyAliases = map[string]Primitive{
	"number": PrimInt,
}

// ResolvePrimitiveName maps a lowercase type-keyword spelling (including
// legacy aliases) to its canonical Primitive. ok is false for collection or
// record-type names, which the parser resolves separately.
func ResolvePrimitiveName(name string) (Primitive, bool) {
	switch Primitive(name) {
	case PrimInt, PrimDecimal, PrimText, PrimFlag, PrimDate, PrimFile:
		return Primitive(name), true
	}
	if alias, ok := legacyAliases[name]; ok {
		return alias, true
	}
	return "", false
}
