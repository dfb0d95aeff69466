package swiftlet

import (
	"math"
	"strconv"
	"strings"
)

// renderer turns values into the text print and the results sidebar show.
// custom, when set, supplies descriptions for CustomStringConvertible types.
type renderer struct {
	custom func(Value) (string, bool)
}

// describe is what print and string interpolation produce.
func (r renderer) describe(v Value) string {
	if r.custom != nil {
		if s, ok := r.custom(v); ok {
			return s
		}
	}
	switch x := v.(type) {
	case StringVal:
		return string(x)
	case OptionalVal:
		if x.V == nil {
			return "nil"
		}
		return "Optional(" + r.debug(x.V) + ")"
	}
	return r.debug(v)
}

// debug is the debug description: strings are quoted.
func (r renderer) debug(v Value) string {
	if r.custom != nil {
		if _, ok := v.(StringVal); !ok {
			if s, ok := r.custom(v); ok {
				return s
			}
		}
	}
	switch x := v.(type) {
	case nil:
		return "<uninitialized>"
	case IntVal:
		return strconv.FormatInt(int64(x), 10)
	case DoubleVal:
		return formatDouble(float64(x))
	case StringVal:
		return quote(string(x))
	case BoolVal:
		if x {
			return "true"
		}
		return "false"
	case VoidVal:
		return "()"
	case OptionalVal:
		if x.V == nil {
			return "nil"
		}
		return "Optional(" + r.debug(x.V) + ")"
	case ArrayVal:
		return "[" + r.join(x.Elems, nil) + "]"
	case DictVal:
		if x.Len() == 0 {
			return "[:]"
		}
		parts := make([]string, x.Len())
		for i := range x.keys {
			parts[i] = r.debug(x.keys[i]) + ": " + r.debug(x.vals[i])
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TupleVal:
		return "(" + r.join(x.Elems, x.Labels) + ")"
	case StructVal:
		return x.Type + "(" + r.join(x.Fields, x.Names) + ")"
	case EnumVal:
		if len(x.Assoc) == 0 {
			return x.Case
		}
		return x.Case + "(" + r.join(x.Assoc, x.Labels) + ")"
	case RangeVal:
		op := "..<"
		if x.Closed {
			op = "..."
		}
		return r.debug(x.Lo) + op + r.debug(x.Hi)
	case *FuncVal, *FuncSet, BuiltinVal, boundMethod:
		return "(Function)"
	case TypeVal:
		return x.T.String()
	}
	return v.TypeName()
}

func (r renderer) join(vals []Value, labels []string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = r.debug(v)
		if i < len(labels) && labels[i] != "" {
			parts[i] = labels[i] + ": " + parts[i]
		}
	}
	return strings.Join(parts, ", ")
}

// Describe renders v the way print does.
func Describe(v Value) string { return renderer{}.describe(v) }

func debugString(v Value) string { return renderer{}.debug(v) }

// formatDouble follows Swift's Double.description: integral values keep a
// trailing .0 and very large or small magnitudes use exponent notation.
func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
