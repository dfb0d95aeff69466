package swiftlet

import (
	"sort"
	"strings"
)

// Value is a runtime value. Values are immutable: mutation builds a new
// value and stores it back through a reference, which gives the value
// semantics of arrays, dictionaries and structs for free.
type Value interface {
	TypeName() string
}

type (
	IntVal    int64
	DoubleVal float64
	StringVal string
	BoolVal   bool
	VoidVal   struct{}

	// OptionalVal is nil when V is nil.
	OptionalVal struct {
		V Value
	}

	ArrayVal struct {
		Elem  *TypeExpr
		Elems []Value
	}

	TupleVal struct {
		Labels []string
		Elems  []Value
	}

	StructVal struct {
		Type   string
		Names  []string
		Fields []Value
	}

	EnumVal struct {
		Type   string
		Case   string
		Labels []string
		Assoc  []Value
	}

	RangeVal struct {
		Lo, Hi Value
		Closed bool
	}

	// FuncVal is a user function. Env is nil for top-level functions, which
	// resolve globals against the scope they are called in.
	FuncVal struct {
		Decl *FuncDecl
		Env  *env
	}

	// FuncSet holds overloads that differ by argument labels.
	FuncSet struct {
		Name  string
		Funcs []*FuncVal
	}

	BuiltinVal struct {
		Name string
		Fn   builtinFunc
	}

	// TypeVal is a type used as a value.
	TypeVal struct {
		T *TypeExpr
	}
)

func (IntVal) TypeName() string    { return "Int" }
func (DoubleVal) TypeName() string { return "Double" }
func (StringVal) TypeName() string { return "String" }
func (BoolVal) TypeName() string   { return "Bool" }
func (VoidVal) TypeName() string   { return "()" }

func (o OptionalVal) TypeName() string {
	if o.V == nil {
		return "Optional"
	}
	return o.V.TypeName() + "?"
}

func (a ArrayVal) TypeName() string {
	if a.Elem != nil {
		return "[" + a.Elem.String() + "]"
	}
	if len(a.Elems) > 0 {
		return "[" + a.Elems[0].TypeName() + "]"
	}
	return "[Any]"
}

func (d DictVal) TypeName() string {
	if d.Key != nil && d.Val != nil {
		return "[" + d.Key.String() + ": " + d.Val.String() + "]"
	}
	if len(d.keys) > 0 {
		return "[" + d.keys[0].TypeName() + ": " + d.vals[0].TypeName() + "]"
	}
	return "[AnyHashable: Any]"
}

func (t TupleVal) TypeName() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.TypeName()
		if i < len(t.Labels) && t.Labels[i] != "" {
			parts[i] = t.Labels[i] + ": " + parts[i]
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (s StructVal) TypeName() string { return s.Type }
func (e EnumVal) TypeName() string   { return e.Type }

func (r RangeVal) TypeName() string {
	if r.Closed {
		return "ClosedRange<" + r.Lo.TypeName() + ">"
	}
	return "Range<" + r.Lo.TypeName() + ">"
}

func (f *FuncVal) TypeName() string   { return "function" }
func (f *FuncSet) TypeName() string   { return "function" }
func (b BuiltinVal) TypeName() string { return "function" }
func (t TypeVal) TypeName() string    { return t.T.String() + ".Type" }

var (
	void    Value = VoidVal{}
	nilOpt  Value = OptionalVal{}
	trueVal Value = BoolVal(true)
)

// wrap makes v optional, leaving optionals as they are.
func wrap(v Value) Value {
	if o, ok := v.(OptionalVal); ok {
		return o
	}
	return OptionalVal{V: v}
}

// DictVal is an insertion-ordered dictionary.
type DictVal struct {
	Key, Val *TypeExpr

	keys  []Value
	vals  []Value
	index map[string]int
}

func newDict(key, val *TypeExpr) DictVal {
	return DictVal{Key: key, Val: val, index: map[string]int{}}
}

// hashKey identifies dictionary keys.
func hashKey(v Value) string {
	return v.TypeName() + "\x00" + debugString(v)
}

func (d DictVal) Len() int { return len(d.keys) }

func (d DictVal) Get(k Value) (Value, bool) {
	i, ok := d.index[hashKey(k)]
	if !ok {
		return nil, false
	}
	return d.vals[i], true
}

// With returns a copy of d with k set to v.
func (d DictVal) With(k, v Value) DictVal {
	out := DictVal{Key: d.Key, Val: d.Val, index: make(map[string]int, len(d.keys)+1)}
	out.keys = append(make([]Value, 0, len(d.keys)+1), d.keys...)
	out.vals = append(make([]Value, 0, len(d.vals)+1), d.vals...)
	for h, i := range d.index {
		out.index[h] = i
	}
	h := hashKey(k)
	if i, ok := out.index[h]; ok {
		out.vals[i] = v
		return out
	}
	out.index[h] = len(out.keys)
	out.keys = append(out.keys, k)
	out.vals = append(out.vals, v)
	return out
}

// Without returns a copy of d without k.
func (d DictVal) Without(k Value) DictVal {
	out := newDict(d.Key, d.Val)
	h := hashKey(k)
	for i, key := range d.keys {
		if hashKey(key) == h {
			continue
		}
		out.index[hashKey(key)] = len(out.keys)
		out.keys = append(out.keys, key)
		out.vals = append(out.vals, d.vals[i])
	}
	return out
}

func (d DictVal) Keys() []Value   { return append([]Value(nil), d.keys...) }
func (d DictVal) Values() []Value { return append([]Value(nil), d.vals...) }

// field returns the stored property name of a struct value.
func (s StructVal) field(name string) (Value, bool) {
	for i, n := range s.Names {
		if n == name {
			return s.Fields[i], true
		}
	}
	return nil, false
}

func (s StructVal) withField(name string, v Value) StructVal {
	fields := append([]Value(nil), s.Fields...)
	for i, n := range s.Names {
		if n == name {
			fields[i] = v
		}
	}
	return StructVal{Type: s.Type, Names: s.Names, Fields: fields}
}

func (a ArrayVal) with(i int, v Value) ArrayVal {
	elems := append([]Value(nil), a.Elems...)
	elems[i] = v
	return ArrayVal{Elem: a.Elem, Elems: elems}
}

// valuesEqual implements == for the built-in and synthesized Equatable
// conformances.
func valuesEqual(a, b Value) bool {
	switch x := a.(type) {
	case IntVal:
		switch y := b.(type) {
		case IntVal:
			return x == y
		case DoubleVal:
			return float64(x) == float64(y)
		}
	case DoubleVal:
		switch y := b.(type) {
		case DoubleVal:
			return x == y
		case IntVal:
			return float64(x) == float64(y)
		}
	case StringVal:
		if y, ok := b.(StringVal); ok {
			return x == y
		}
	case BoolVal:
		if y, ok := b.(BoolVal); ok {
			return x == y
		}
	case VoidVal:
		_, ok := b.(VoidVal)
		return ok
	case OptionalVal:
		if y, ok := b.(OptionalVal); ok {
			if x.V == nil || y.V == nil {
				return x.V == nil && y.V == nil
			}
			return valuesEqual(x.V, y.V)
		}
		return x.V != nil && valuesEqual(x.V, b)
	case ArrayVal:
		if y, ok := b.(ArrayVal); ok {
			return elemsEqual(x.Elems, y.Elems)
		}
	case TupleVal:
		if y, ok := b.(TupleVal); ok {
			return elemsEqual(x.Elems, y.Elems)
		}
	case StructVal:
		if y, ok := b.(StructVal); ok {
			return x.Type == y.Type && elemsEqual(x.Fields, y.Fields)
		}
	case EnumVal:
		if y, ok := b.(EnumVal); ok {
			return x.Type == y.Type && x.Case == y.Case && elemsEqual(x.Assoc, y.Assoc)
		}
	case DictVal:
		y, ok := b.(DictVal)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i, k := range x.keys {
			v, ok := y.Get(k)
			if !ok || !valuesEqual(x.vals[i], v) {
				return false
			}
		}
		return true
	case RangeVal:
		y, ok := b.(RangeVal)
		return ok && x.Closed == y.Closed && valuesEqual(x.Lo, y.Lo) && valuesEqual(x.Hi, y.Hi)
	}
	if o, ok := b.(OptionalVal); ok {
		return o.V != nil && valuesEqual(a, o.V)
	}
	return false
}

func elemsEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// compareValues orders Int, Double, String and Bool values. ok is false for
// values without an order.
func compareValues(a, b Value) (int, bool) {
	switch x := a.(type) {
	case IntVal:
		switch y := b.(type) {
		case IntVal:
			return cmp3(x < y, x > y), true
		case DoubleVal:
			return cmp3(float64(x) < float64(y), float64(x) > float64(y)), true
		}
	case DoubleVal:
		switch y := b.(type) {
		case DoubleVal:
			return cmp3(x < y, x > y), true
		case IntVal:
			return cmp3(float64(x) < float64(y), float64(x) > float64(y)), true
		}
	case StringVal:
		if y, ok := b.(StringVal); ok {
			return strings.Compare(string(x), string(y)), true
		}
	case TupleVal:
		y, ok := b.(TupleVal)
		if !ok || len(x.Elems) != len(y.Elems) {
			return 0, false
		}
		for i := range x.Elems {
			c, ok := compareValues(x.Elems[i], y.Elems[i])
			if !ok {
				return 0, false
			}
			if c != 0 {
				return c, true
			}
		}
		return 0, true
	}
	return 0, false
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// sortValues sorts in ascending order; ok is false when elements are not
// comparable.
func sortValues(vals []Value) bool {
	ok := true
	sort.SliceStable(vals, func(i, j int) bool {
		c, cok := compareValues(vals[i], vals[j])
		if !cok {
			ok = false
		}
		return c < 0
	})
	return ok
}

func isNumeric(v Value) bool {
	switch v.(type) {
	case IntVal, DoubleVal:
		return true
	}
	return false
}

func toFloat(v Value) float64 {
	switch x := v.(type) {
	case IntVal:
		return float64(x)
	case DoubleVal:
		return float64(x)
	}
	return 0
}
