package ast

import (
	"sort"
	"strings"
)

// TypeKind classifies a Type.
type TypeKind int

const (
	TypeInt TypeKind = iota
	TypeVoid
	TypePtr
	TypeFn
)

// Type is a Rev type. For TypeFn, Args[0] is the return type and the rest are
// parameter types. For TypePtr, Args[0] is the pointee.
type Type struct {
	Kind TypeKind
	Args []*Type
}

var (
	intType  = &Type{Kind: TypeInt}
	voidType = &Type{Kind: TypeVoid}
)

// IntType returns the shared int type.
func IntType() *Type { return intType }

// VoidType returns the shared void type.
func VoidType() *Type { return voidType }

// PtrType returns a pointer to elem.
func PtrType(elem *Type) *Type { return &Type{Kind: TypePtr, Args: []*Type{elem}} }

// FnType builds a function type from a return type and parameter types.
func FnType(ret *Type, params ...*Type) *Type {
	args := make([]*Type, 0, len(params)+1)
	args = append(args, ret)
	args = append(args, params...)
	return &Type{Kind: TypeFn, Args: args}
}

// Ret returns the return type of a function type.
func (t *Type) Ret() *Type {
	if t == nil || t.Kind != TypeFn || len(t.Args) == 0 {
		return nil
	}
	return t.Args[0]
}

// Params returns the parameter types of a function type.
func (t *Type) Params() []*Type {
	if t == nil || t.Kind != TypeFn || len(t.Args) == 0 {
		return nil
	}
	return t.Args[1:]
}

// Equal reports whether two types are structurally identical.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || len(t.Args) != len(o.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

func (t *Type) String() string {
	if t == nil {
		return "<untyped>"
	}
	switch t.Kind {
	case TypeInt:
		return "int"
	case TypeVoid:
		return "()"
	case TypePtr:
		if len(t.Args) == 1 {
			return "*" + t.Args[0].String()
		}
		return "*?"
	case TypeFn:
		var sb strings.Builder
		sb.WriteString("fn(")
		for i, p := range t.Params() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
		sb.WriteString(") -> ")
		sb.WriteString(t.Ret().String())
		return sb.String()
	}
	return "?"
}

// Object is the descriptor shared by every reference to one identifier.
type Object struct {
	Name string
	Type *Type
}

// Symbols deduplicates identifiers so that equal names resolve to the same
// Object. One Symbols value spans a parse session; the REPL reuses it across
// inputs.
type Symbols struct {
	objs map[string]*Object
}

// NewSymbols returns an empty symbol set.
func NewSymbols() *Symbols {
	return &Symbols{objs: make(map[string]*Object)}
}

// Intern returns the Object for name, creating it on first use.
func (s *Symbols) Intern(name string) *Object {
	if o, ok := s.objs[name]; ok {
		return o
	}
	o := &Object{Name: name}
	s.objs[name] = o
	return o
}

// Lookup returns the Object for name without creating one.
func (s *Symbols) Lookup(name string) (*Object, bool) {
	o, ok := s.objs[name]
	return o, ok
}

// Names returns all interned names in sorted order.
func (s *Symbols) Names() []string {
	names := make([]string, 0, len(s.objs))
	for n := range s.objs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Symbols) Len() int { return len(s.objs) }
