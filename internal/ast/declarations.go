package ast

import (
	"strings"

	"github.com/droe-lang/droe/internal/token"
)

// TypeRef names a type as written in source: a primitive keyword, a
// "list of <type>" / "group of <type>" collection, or a record name.
type TypeRef struct {
	Token      token.Token
	Primitive  Primitive // set when Collection == NotCollection && RecordName == ""
	Collection CollectionKind
	Elem       *TypeRef // set when Collection != NotCollection
	RecordName string   // set when this names a user-defined record
}

func (t *TypeRef) Pos() token.Position { return t.Token.Pos }
func (t *TypeRef) String() string {
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

// Resolve converts a parsed TypeRef into the checker's Type representation.
// Record references are left unresolved (RecordName only); the checker
// validates them against the data-declaration table.
func (t *TypeRef) Resolve() *Type {
	if t == nil {
		return nil
	}
	switch t.Collection {
	case ListKind:
		return ListOf(t.Elem.Resolve())
	case GroupKind:
		return GroupOf(t.Elem.Resolve())
	}
	if t.RecordName != "" {
		return Record(t.RecordName)
	}
	return &Type{Primitive: t.Primitive}
}

// Param is a single formal parameter of an action/task declaration.
type Param struct {
	Name string
	Type *TypeRef
}

// ActionDecl is "action <name> [with <params>] [gives <type>] ... end action"
// (also covers "task", which never declares a "gives" return type).
type ActionDecl struct {
	Token      token.Token
	Name       string
	IsTask     bool
	Params     []Param
	ReturnType *TypeRef // nil for a task, or an action with no "gives"
	Body       *Block
}

func (d *ActionDecl) topLevelNode()      {}
func (d *ActionDecl) Pos() token.Position { return d.Token.Pos }
func (d *ActionDecl) String() string {
	var sb strings.Builder
	kw := "action"
	if d.IsTask {
		kw = "task"
	}
	sb.WriteString(kw + " " + d.Name)
	if len(d.Params) > 0 {
		sb.WriteString(" with ")
		for i, p := range d.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.Name + " which is " + p.Type.String())
		}
	}
	if d.ReturnType != nil {
		sb.WriteString(" gives " + d.ReturnType.String())
	}
	sb.WriteByte('\n')
	sb.WriteString(d.Body.String())
	sb.WriteString("end " + kw)
	return sb.String()
}

// ModuleDecl groups actions, tasks, and data declarations under a namespace,
// "module <name> ... end module".
type ModuleDecl struct {
	Token token.Token
	Name  string
	Nodes []TopLevel // ActionDecl, DataDecl, ServeDecl, or nested statements
}

func (d *ModuleDecl) topLevelNode()      {}
func (d *ModuleDecl) Pos() token.Position { return d.Token.Pos }
func (d *ModuleDecl) String() string {
	var sb strings.Builder
	sb.WriteString("module " + d.Name + "\n")
	for _, n := range d.Nodes {
		sb.WriteString(n.String())
		sb.WriteByte('\n')
	}
	sb.WriteString("end module")
	return sb.String()
}

// FieldAnnotation is one of the field-level modifiers recognized on a data
// declaration: key, auto, required, optional, unique, default=<literal>.
type FieldAnnotation struct {
	Kind    string // "key", "auto", "required", "optional", "unique", "default"
	Default string // literal text, set only when Kind == "default"
}

// DataField is a single "<name> is <type> [annotation]*" field of a data
// declaration.
type DataField struct {
	Name        string
	Type        *TypeRef
	Annotations []FieldAnnotation
}

// DataDecl is "data <name> ... end data": a named record type with typed
// fields, per spec §3's record type support.
type DataDecl struct {
	Token  token.Token
	Name   string
	Fields []DataField
}

func (d *DataDecl) topLevelNode()      {}
func (d *DataDecl) Pos() token.Position { return d.Token.Pos }
func (d *DataDecl) String() string {
	var sb strings.Builder
	sb.WriteString("data " + d.Name + "\n")
	for _, f := range d.Fields {
		sb.WriteString("  " + f.Name + " is " + f.Type.String())
		for _, a := range f.Annotations {
			if a.Kind == "default" {
				sb.WriteString(" default=" + a.Default)
			} else {
				sb.WriteString(" " + a.Kind)
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("end data")
	return sb.String()
}
