package swiftlet

import "strings"

// TypeKind is the shape of a written type.
type TypeKind int

const (
	NamedType TypeKind = iota
	OptionalType
	ArrayType
	DictType
	TupleType
	FuncType
)

// TypeExpr is a type as written in source: Int, String?, [Int], [K: V],
// (min: Int, max: Int), (Int) -> Int.
type TypeExpr struct {
	Kind TypeKind
	Name string

	// Elem is the wrapped type of T?, the element of [T] and the value of
	// [K: V]. Key is K.
	Elem *TypeExpr
	Key  *TypeExpr

	Elems  []*TypeExpr
	Labels []string
}

func named(name string) *TypeExpr { return &TypeExpr{Kind: NamedType, Name: name} }

func optionalOf(t *TypeExpr) *TypeExpr { return &TypeExpr{Kind: OptionalType, Elem: t} }

func arrayOf(t *TypeExpr) *TypeExpr { return &TypeExpr{Kind: ArrayType, Elem: t} }

func (t *TypeExpr) String() string {
	if t == nil {
		return "_"
	}
	switch t.Kind {
	case OptionalType:
		return t.Elem.String() + "?"
	case ArrayType:
		return "[" + t.Elem.String() + "]"
	case DictType:
		return "[" + t.Key.String() + ": " + t.Elem.String() + "]"
	case TupleType:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			if i < len(t.Labels) && t.Labels[i] != "" {
				parts[i] = t.Labels[i] + ": " + e.String()
			} else {
				parts[i] = e.String()
			}
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case FuncType:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ") -> " + t.Elem.String()
	}
	return t.Name
}

// isOptional reports whether values of t may be nil.
func (t *TypeExpr) isOptional() bool {
	return t != nil && t.Kind == OptionalType
}

// sameType compares written types structurally, ignoring tuple labels.
func sameType(a, b *TypeExpr) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case NamedType:
		return canonicalName(a.Name) == canonicalName(b.Name)
	case OptionalType, ArrayType:
		return sameType(a.Elem, b.Elem)
	case DictType:
		return sameType(a.Key, b.Key) && sameType(a.Elem, b.Elem)
	}
	if len(a.Elems) != len(b.Elems) {
		return false
	}
	for i := range a.Elems {
		if !sameType(a.Elems[i], b.Elems[i]) {
			return false
		}
	}
	return a.Kind != FuncType || sameType(a.Elem, b.Elem)
}

// canonicalName folds type aliases the interpreter treats as one type.
func canonicalName(name string) string {
	switch name {
	case "Float", "Float64", "CGFloat":
		return "Double"
	case "Character", "Substring":
		return "String"
	case "Int64", "Int32", "UInt", "Int8", "Int16":
		return "Int"
	case "Void":
		return "()"
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
