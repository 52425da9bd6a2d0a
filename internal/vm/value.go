package vm

import "fmt"

// ValueType tags a runtime Value (spec §3's closed primitive/collection/
// record lattice — no classes, no closures, no arbitrary variants).
type ValueType byte

const (
	ValueNil ValueType = iota
	ValueInt
	ValueDecimal // scaled ×100, per spec §4.7's decimal invariant
	ValueText
	ValueFlag
	ValueDate // canonical "YYYY-MM-DD" text
	ValueFile // path-as-text
	ValueList
	ValueGroup
	ValueRecord
)

var valueTypeNames = [...]string{
	ValueNil:     "nil",
	ValueInt:     "int",
	ValueDecimal: "decimal",
	ValueText:    "text",
	ValueFlag:    "flag",
	ValueDate:    "date",
	ValueFile:    "file",
	ValueList:    "list",
	ValueGroup:   "group",
	ValueRecord:  "record",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "unknown"
}

// Record is a named, field-indexed record instance. Fields are stored
// positionally (matching bytecode.RecordSchema's field order) so GetField/
// SetField can address them by the index the emitter resolved at compile
// time without a name lookup at run time.
type Record struct {
	TypeName string
	Fields   []Value
}

// Value is a tagged union over Droe's runtime value set. Values are
// logically immutable: assignment copies the Value (a struct, not a
// pointer), and mutation operations (SetField, collection append) produce
// a new underlying slice/record rather than aliasing the original — per
// spec §4.7's "assignment copies the reference; mutation produces a new
// value" requirement, lists/records hold their own backing storage so a
// shallow struct copy is enough to keep the caller's copy untouched as
// long as mutators never write through a shared slice index in place.
type Value struct {
	Type   ValueType
	Int    int64 // ValueInt (32-bit range enforced on arithmetic) and ValueDecimal (×100 scaled)
	Text   string
	Flag   bool
	List   []Value
	Record *Record
}

func Nil() Value               { return Value{Type: ValueNil} }
func IntValue(i int64) Value   { return Value{Type: ValueInt, Int: i} }
func Decimal(scaled int64) Value { return Value{Type: ValueDecimal, Int: scaled} }
func Text(s string) Value      { return Value{Type: ValueText, Text: s} }
func Flag(b bool) Value        { return Value{Type: ValueFlag, Flag: b} }
func Date(s string) Value      { return Value{Type: ValueDate, Text: s} }
func File(s string) Value      { return Value{Type: ValueFile, Text: s} }

func List(elems []Value) Value {
	return Value{Type: ValueList, List: elems}
}

func Group(elems []Value) Value {
	return Value{Type: ValueGroup, List: elems}
}

func RecordValue(typeName string, fields []Value) Value {
	return Value{Type: ValueRecord, Record: &Record{TypeName: typeName, Fields: fields}}
}

func (v Value) IsNil() bool        { return v.Type == ValueNil }
func (v Value) IsInt() bool        { return v.Type == ValueInt }
func (v Value) IsDecimal() bool    { return v.Type == ValueDecimal }
func (v Value) IsText() bool       { return v.Type == ValueText }
func (v Value) IsFlag() bool       { return v.Type == ValueFlag }
func (v Value) IsNumber() bool     { return v.Type == ValueInt || v.Type == ValueDecimal }
func (v Value) IsCollection() bool { return v.Type == ValueList || v.Type == ValueGroup }
func (v Value) IsRecord() bool     { return v.Type == ValueRecord }

// AsDecimalScaled returns v's value in ×100-scaled form, promoting a plain
// int so mixed int/decimal arithmetic can share one code path. Any
// non-numeric value (flags included) yields 0.
func (v Value) AsDecimalScaled() int64 {
	switch v.Type {
	case ValueDecimal:
		return v.Int
	case ValueInt:
		return v.Int * 100
	default:
		return 0
	}
}

// String renders v the way `display` and string interpolation do: decimals
// always show two fractional digits (per spec §8's "3.10, not 3.1"), lists
// are comma-joined, records show their type name.
func (v Value) String() string {
	switch v.Type {
	case ValueNil:
		return ""
	case ValueInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueDecimal:
		whole := v.Int / 100
		frac := v.Int % 100
		if frac < 0 {
			frac = -frac
		}
		return fmt.Sprintf("%d.%02d", whole, frac)
	case ValueText, ValueDate, ValueFile:
		return v.Text
	case ValueFlag:
		return fmt.Sprintf("%t", v.Flag)
	case ValueList, ValueGroup:
		s := "["
		for i, el := range v.List {
			if i > 0 {
				s += ", "
			}
			s += el.String()
		}
		return s + "]"
	case ValueRecord:
		return v.Record.TypeName
	}
	return "<unknown>"
}

// Equal compares two values for the Eq/Ne opcodes. Int and decimal compare
// by scaled value (an int is promoted, so `1 equals 1.00` is true); lists
// and records compare structurally.
func (v Value) Equal(other Value) bool {
	switch {
	case v.IsNumber() && other.IsNumber():
		return v.AsDecimalScaled() == other.AsDecimalScaled()
	case v.Type != other.Type:
		return false
	}
	switch v.Type {
	case ValueNil:
		return true
	case ValueText, ValueDate, ValueFile:
		return v.Text == other.Text
	case ValueFlag:
		return v.Flag == other.Flag
	case ValueList, ValueGroup:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	case ValueRecord:
		if v.Record == nil || other.Record == nil {
			return v.Record == other.Record
		}
		if v.Record.TypeName != other.Record.TypeName || len(v.Record.Fields) != len(other.Record.Fields) {
			return false
		}
		for i := range v.Record.Fields {
			if !v.Record.Fields[i].Equal(other.Record.Fields[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Less orders two numeric, text, or date values for Lt/Le/Gt/Ge.
func (v Value) Less(other Value) bool {
	switch {
	case v.IsNumber() && other.IsNumber():
		return v.AsDecimalScaled() < other.AsDecimalScaled()
	case v.Type == ValueText || v.Type == ValueDate:
		return v.Text < other.Text
	}
	return false
}
