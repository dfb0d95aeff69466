package swiftlet

import (
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// builtins are the global functions. It is filled in init because the
// functions reach back into the interpreter, which looks names up here.
var builtins map[string]builtinFunc

// builtinStatics are functions called on built-in types: Int.random(in:).
var builtinStatics map[string]builtinFunc

func init() {
	builtins = map[string]builtinFunc{
		"print":               builtinPrint(false),
		"debugPrint":          builtinPrint(true),
		"abs":                 builtinAbs,
		"min":                 builtinExtreme(-1),
		"max":                 builtinExtreme(1),
		"sqrt":                mathFunc(math.Sqrt),
		"floor":               mathFunc(math.Floor),
		"ceil":                mathFunc(math.Ceil),
		"round":               mathFunc(roundAway),
		"exp":                 mathFunc(math.Exp),
		"log":                 mathFunc(math.Log),
		"sin":                 mathFunc(math.Sin),
		"cos":                 mathFunc(math.Cos),
		"tan":                 mathFunc(math.Tan),
		"pow":                 builtinPow,
		"stride":              builtinStride,
		"zip":                 builtinZip,
		"swap":                builtinSwap,
		"type":                builtinTypeOf,
		"fatalError":          builtinFail("Fatal error"),
		"preconditionFailure": builtinFail("Fatal error"),
		"assertionFailure":    builtinFail("Fatal error"),
		"assert":              builtinCheck("Assertion failed"),
		"precondition":        builtinCheck("Precondition failed"),
		"readLine":            func(*interp, int, []argVal) Value { return nilOpt },
		"repeatElement":       builtinRepeat,
	}
	builtinStatics = map[string]builtinFunc{
		"Int.random":    randomInt,
		"Double.random": randomDouble,
		"Bool.random": func(in *interp, line int, args []argVal) Value {
			expectArgs(args, line, "random")
			return BoolVal(rand.IntN(2) == 1)
		},
	}
}

func labelText(l string) string {
	if l == "" {
		return "_:"
	}
	return l + ":"
}

// signature renders name(label:label:) for dispatching on argument labels.
func signature(name string, args []argVal) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('(')
	for _, a := range args {
		b.WriteString(labelText(a.label))
	}
	b.WriteByte(')')
	return b.String()
}

func expectArgs(args []argVal, line int, name string, labels ...string) {
	if len(args) != len(labels) {
		if len(args) > len(labels) {
			failCompile(line, "extra argument in call to '%s'", name)
		}
		failCompile(line, "missing argument for parameter #%d in call to '%s'", len(args)+1, name)
	}
	for i, l := range labels {
		if args[i].label != l {
			failCompile(line, "incorrect argument label in call (have '%s', expected '%s')", labelText(args[i].label), labelText(l))
		}
	}
}

func builtinPrint(debug bool) builtinFunc {
	return func(in *interp, line int, args []argVal) Value {
		sep, term := " ", "\n"
		var items []string
		r := in.render()
		for _, a := range args {
			switch a.label {
			case "":
				if debug {
					items = append(items, r.debug(a.val))
				} else {
					items = append(items, r.describe(a.val))
				}
			case "separator":
				sep = in.str(a.val, line)
			case "terminator":
				term = in.str(a.val, line)
			default:
				failCompile(line, "extraneous argument label '%s:' in call", a.label)
			}
		}
		in.write(strings.Join(items, sep) + term)
		return void
	}
}

func (in *interp) str(v Value, line int) string {
	s, ok := v.(StringVal)
	if !ok {
		failCompile(line, "cannot convert value of type '%s' to expected argument type 'String'", v.TypeName())
	}
	return string(s)
}

func (in *interp) integer(v Value, line int) int {
	n, ok := v.(IntVal)
	if !ok {
		failCompile(line, "cannot convert value of type '%s' to expected argument type 'Int'", v.TypeName())
	}
	return int(n)
}

func (in *interp) truth(v Value, line int) bool {
	b, ok := v.(BoolVal)
	if !ok {
		failCompile(line, "cannot convert value of type '%s' to closure result type 'Bool'", v.TypeName())
	}
	return bool(b)
}

func builtinAbs(in *interp, line int, args []argVal) Value {
	expectArgs(args, line, "abs", "")
	switch x := args[0].val.(type) {
	case IntVal:
		if x == math.MinInt64 {
			trap(line, "arithmetic overflow")
		}
		if x < 0 {
			return -x
		}
		return x
	case DoubleVal:
		return DoubleVal(math.Abs(float64(x)))
	}
	failCompile(line, "global function 'abs' requires that '%s' conform to 'Comparable'", args[0].val.TypeName())
	return nil
}

// builtinExtreme implements min (sign -1) and max (sign 1).
func builtinExtreme(sign int) builtinFunc {
	return func(in *interp, line int, args []argVal) Value {
		if len(args) < 2 {
			failCompile(line, "missing argument for parameter #2 in call")
		}
		best := args[0].val
		for _, a := range args[1:] {
			c, ok := compareValues(a.val, best)
			if !ok {
				in.operandError("<", best, a.val, line)
			}
			if c*sign > 0 {
				best = a.val
			}
		}
		if _, anyDouble := best.(DoubleVal); !anyDouble {
			for _, a := range args {
				if _, ok := a.val.(DoubleVal); ok {
					return DoubleVal(toFloat(best))
				}
			}
		}
		return best
	}
}

func mathFunc(f func(float64) float64) builtinFunc {
	return func(in *interp, line int, args []argVal) Value {
		if len(args) != 1 || !isNumeric(args[0].val) {
			failCompile(line, "cannot convert arguments to expected argument type 'Double'")
		}
		return DoubleVal(f(toFloat(args[0].val)))
	}
}

// roundAway rounds half away from zero like Swift's round.
func roundAway(f float64) float64 { return math.Round(f) }

func builtinPow(in *interp, line int, args []argVal) Value {
	expectArgs(args, line, "pow", "", "")
	if !isNumeric(args[0].val) || !isNumeric(args[1].val) {
		failCompile(line, "cannot convert arguments to expected argument type 'Double'")
	}
	return DoubleVal(math.Pow(toFloat(args[0].val), toFloat(args[1].val)))
}

func builtinStride(in *interp, line int, args []argVal) Value {
	if len(args) != 3 || args[0].label != "from" || args[2].label != "by" ||
		(args[1].label != "to" && args[1].label != "through") {
		failCompile(line, "no exact matches in call to global function 'stride'")
	}
	through := args[1].label == "through"
	from, to, by := args[0].val, args[1].val, args[2].val
	for _, v := range []Value{from, to, by} {
		if !isNumeric(v) {
			failCompile(line, "global function 'stride' requires that '%s' conform to 'Strideable'", v.TypeName())
		}
	}
	if toFloat(by) == 0 {
		trap(line, "Stride size must not be zero")
	}

	out := ArrayVal{}
	_, fi := from.(IntVal)
	_, ti := to.(IntVal)
	_, bi := by.(IntVal)
	if fi && ti && bi {
		f, t, b := from.(IntVal), to.(IntVal), by.(IntVal)
		out.Elem = named("Int")
		for i := f; (b > 0 && (i < t || through && i == t)) || (b < 0 && (i > t || through && i == t)); i += b {
			in.tick()
			out.Elems = append(out.Elems, i)
		}
		return out
	}
	f, t, b := toFloat(from), toFloat(to), toFloat(by)
	out.Elem = named("Double")
	for n := 0; ; n++ {
		in.tick()
		x := f + float64(n)*b
		if b > 0 && (x > t || !through && x == t) || b < 0 && (x < t || !through && x == t) {
			break
		}
		out.Elems = append(out.Elems, DoubleVal(x))
	}
	return out
}

func builtinZip(in *interp, line int, args []argVal) Value {
	expectArgs(args, line, "zip", "", "")
	a := in.sequence(args[0].val, line)
	b := in.sequence(args[1].val, line)
	n := min(len(a), len(b))
	out := ArrayVal{Elems: make([]Value, n)}
	for i := range n {
		out.Elems[i] = TupleVal{Elems: []Value{a[i], b[i]}}
	}
	return out
}

func builtinSwap(in *interp, line int, args []argVal) Value {
	expectArgs(args, line, "swap", "", "")
	if args[0].ref == nil || args[1].ref == nil {
		failCompile(line, "passing value of type '%s' to an inout parameter requires explicit '&'", args[0].val.TypeName())
	}
	a, b := args[0].val, args[1].val
	args[0].ref.set(b)
	args[1].ref.set(a)
	return void
}

func builtinTypeOf(in *interp, line int, args []argVal) Value {
	expectArgs(args, line, "type", "of")
	t := typeOfValue(args[0].val)
	if t == nil {
		t = named(args[0].val.TypeName())
	}
	return TypeVal{T: t}
}

func builtinFail(prefix string) builtinFunc {
	return func(in *interp, line int, args []argVal) Value {
		if len(args) > 0 {
			trap(line, "%s: %s", prefix, in.render().describe(args[0].val))
		}
		trap(line, "%s", prefix)
		return nil
	}
}

func builtinCheck(prefix string) builtinFunc {
	return func(in *interp, line int, args []argVal) Value {
		if len(args) == 0 || len(args) > 2 {
			failCompile(line, "missing argument for parameter #1 in call")
		}
		if in.truth(args[0].val, line) {
			return void
		}
		if len(args) == 2 {
			trap(line, "%s: %s", prefix, in.render().describe(args[1].val))
		}
		trap(line, "%s", prefix)
		return nil
	}
}

func builtinRepeat(in *interp, line int, args []argVal) Value {
	expectArgs(args, line, "repeatElement", "", "count")
	return repeated(args[0].val, in.integer(args[1].val, line), nil, line)
}

func repeated(v Value, n int, elem *TypeExpr, line int) ArrayVal {
	if n < 0 {
		trap(line, "Can't construct Array with count < 0")
	}
	out := ArrayVal{Elem: elem, Elems: make([]Value, n)}
	for i := range out.Elems {
		out.Elems[i] = v
	}
	if elem == nil {
		out.Elem = typeOfValue(v)
	}
	return out
}

func randomInt(in *interp, line int, args []argVal) Value {
	expectArgs(args, line, "random", "in")
	r, ok := args[0].val.(RangeVal)
	if !ok {
		failCompile(line, "cannot convert value of type '%s' to expected argument type 'Range<Int>'", args[0].val.TypeName())
	}
	lo, hi := in.integer(r.Lo, line), in.integer(r.Hi, line)
	if !r.Closed {
		hi--
	}
	if hi < lo {
		trap(line, "Can't get random value with an empty range")
	}
	return IntVal(int64(lo) + rand.Int64N(int64(hi-lo)+1))
}

func randomDouble(in *interp, line int, args []argVal) Value {
	expectArgs(args, line, "random", "in")
	r, ok := args[0].val.(RangeVal)
	if !ok {
		failCompile(line, "cannot convert value of type '%s' to expected argument type 'Range<Double>'", args[0].val.TypeName())
	}
	lo, hi := toFloat(r.Lo), toFloat(r.Hi)
	if hi < lo || !r.Closed && hi == lo {
		trap(line, "Can't get random value with an empty range")
	}
	return DoubleVal(lo + rand.Float64()*(hi-lo))
}

// builtinProperty reads a property of a built-in value.
func (in *interp) builtinProperty(v Value, name string, line int) (Value, bool) {
	if name == "description" {
		return StringVal(in.render().describe(v)), true
	}
	switch x := v.(type) {
	case ArrayVal:
		switch name {
		case "count":
			return IntVal(len(x.Elems)), true
		case "isEmpty":
			return BoolVal(len(x.Elems) == 0), true
		case "first":
			if len(x.Elems) == 0 {
				return nilOpt, true
			}
			return OptionalVal{V: x.Elems[0]}, true
		case "last":
			if len(x.Elems) == 0 {
				return nilOpt, true
			}
			return OptionalVal{V: x.Elems[len(x.Elems)-1]}, true
		case "indices":
			return RangeVal{Lo: IntVal(0), Hi: IntVal(len(x.Elems))}, true
		case "startIndex":
			return IntVal(0), true
		case "endIndex":
			return IntVal(len(x.Elems)), true
		}
	case DictVal:
		switch name {
		case "count":
			return IntVal(x.Len()), true
		case "isEmpty":
			return BoolVal(x.Len() == 0), true
		case "keys":
			return ArrayVal{Elem: x.Key, Elems: x.Keys()}, true
		case "values":
			return ArrayVal{Elem: x.Val, Elems: x.Values()}, true
		}
	case StringVal:
		return in.stringProperty(x, name)
	case IntVal:
		switch name {
		case "magnitude":
			if x < 0 {
				return -x, true
			}
			return x, true
		case "isZero":
			return BoolVal(x == 0), true
		}
	case DoubleVal:
		f := float64(x)
		switch name {
		case "isNaN":
			return BoolVal(math.IsNaN(f)), true
		case "isInfinite":
			return BoolVal(math.IsInf(f, 0)), true
		case "isFinite":
			return BoolVal(!math.IsInf(f, 0) && !math.IsNaN(f)), true
		case "isZero":
			return BoolVal(f == 0), true
		case "magnitude":
			return DoubleVal(math.Abs(f)), true
		}
	case RangeVal:
		switch name {
		case "lowerBound":
			return x.Lo, true
		case "upperBound":
			return x.Hi, true
		case "count":
			return IntVal(len(rangeElems(x, line))), true
		case "isEmpty":
			return BoolVal(!x.Closed && valuesEqual(x.Lo, x.Hi)), true
		}
	}
	return nil, false
}

func (in *interp) stringProperty(s StringVal, name string) (Value, bool) {
	str := string(s)
	switch name {
	case "count":
		return IntVal(uniseg.GraphemeClusterCount(str)), true
	case "isEmpty":
		return BoolVal(str == ""), true
	case "first", "last":
		chars := characters(str)
		if len(chars) == 0 {
			return nilOpt, true
		}
		if name == "first" {
			return OptionalVal{V: chars[0]}, true
		}
		return OptionalVal{V: chars[len(chars)-1]}, true
	case "capitalized":
		words := strings.Fields(str)
		for i, w := range words {
			r := []rune(strings.ToLower(w))
			r[0] = unicode.ToUpper(r[0])
			words[i] = string(r)
		}
		return StringVal(strings.Join(words, " ")), true
	case "isLetter", "isNumber", "isWhitespace", "isUppercase", "isLowercase", "isPunctuation":
		return BoolVal(str != "" && allRunes(str, runeClass(name))), true
	case "wholeNumberValue":
		if n, err := strconv.Atoi(str); err == nil && len([]rune(str)) == 1 {
			return OptionalVal{V: IntVal(n)}, true
		}
		return nilOpt, true
	}
	return nil, false
}

func runeClass(name string) func(rune) bool {
	switch name {
	case "isLetter":
		return unicode.IsLetter
	case "isNumber":
		return unicode.IsDigit
	case "isWhitespace":
		return unicode.IsSpace
	case "isUppercase":
		return unicode.IsUpper
	case "isLowercase":
		return unicode.IsLower
	}
	return unicode.IsPunct
}

func allRunes(s string, f func(rune) bool) bool {
	for _, r := range s {
		if !f(r) {
			return false
		}
	}
	return true
}

// closureLabels is the argument label a trailing closure stands for.
var closureLabels = map[string]string{
	"sorted":     "by",
	"sort":       "by",
	"min":        "by",
	"max":        "by",
	"contains":   "where",
	"first":      "where",
	"last":       "where",
	"firstIndex": "where",
	"lastIndex":  "where",
	"removeAll":  "where",
	"count":      "where",
	"drop":       "while",
	"prefix":     "while",
}

// elemArg are the array methods whose first argument is an element.
var elemArg = map[string]bool{
	"append":     true,
	"insert":     true,
	"contains":   true,
	"firstIndex": true,
	"lastIndex":  true,
}

func isFunc(v Value) bool {
	switch v.(type) {
	case *FuncVal, *FuncSet, BuiltinVal, boundMethod:
		return true
	}
	return false
}

// builtinMethod calls a method of a built-in value. Mutating methods
// store the result back through base.
func (in *interp) builtinMethod(e *env, base ref, v Value, name string, args []Arg, line int) (Value, bool) {
	hints := make([]*TypeExpr, len(args))
	for i := range hints {
		switch {
		case name == "rounded" || name == "round":
			hints[i] = named("FloatingPointRoundingRule")
		case name == "trimmingCharacters":
			hints[i] = named("CharacterSet")
		case i == 0 && elemArg[name] && args[0].Label == "":
			if a, ok := v.(ArrayVal); ok {
				hints[i] = a.Elem
			}
		}
	}
	argv := in.evalArgs(e, args, hints)
	if n := len(argv); n > 0 && argv[n-1].label == "" && isFunc(argv[n-1].val) {
		if l, ok := closureLabels[name]; ok {
			argv[n-1].label = l
		}
	}

	mutate := func(nv Value) {
		base.check(line, "use mutating member on")
		base.set(nv)
	}
	sig := signature(name, argv)

	switch x := v.(type) {
	case ArrayVal:
		return in.arrayMethod(x, sig, argv, mutate, line)
	case RangeVal:
		switch sig {
		case "contains(_:)":
			return BoolVal(rangeContains(x, argv[0].val)), true
		}
		return in.arrayMethod(ArrayVal{Elem: typeOfValue(x.Lo), Elems: rangeElems(x, line)}, sig, argv, nil, line)
	case DictVal:
		return in.dictMethod(x, sig, argv, mutate, line)
	case StringVal:
		return in.stringMethod(x, sig, argv, mutate, line)
	case IntVal:
		switch sig {
		case "isMultiple(of:)":
			d := in.integer(argv[0].val, line)
			if d == 0 {
				return BoolVal(x == 0), true
			}
			return BoolVal(int(x)%d == 0), true
		case "signum()":
			return IntVal(cmp3(x < 0, x > 0)), true
		case "advanced(by:)":
			return intOp("+", x, IntVal(in.integer(argv[0].val, line)), line), true
		case "distance(to:)":
			return intOp("-", IntVal(in.integer(argv[0].val, line)), x, line), true
		case "quotientAndRemainder(dividingBy:)":
			d := IntVal(in.integer(argv[0].val, line))
			return TupleVal{
				Labels: []string{"quotient", "remainder"},
				Elems:  []Value{intOp("/", x, d, line), intOp("%", x, d, line)},
			}, true
		case "negate()":
			mutate(intOp("-", 0, x, line))
			return void, true
		}
	case DoubleVal:
		f := float64(x)
		switch sig {
		case "rounded()":
			return DoubleVal(math.Round(f)), true
		case "rounded(_:)":
			return DoubleVal(roundRule(f, argv[0].val, line)), true
		case "round()":
			mutate(DoubleVal(math.Round(f)))
			return void, true
		case "round(_:)":
			mutate(DoubleVal(roundRule(f, argv[0].val, line)))
			return void, true
		case "squareRoot()":
			return DoubleVal(math.Sqrt(f)), true
		case "truncatingRemainder(dividingBy:)":
			return DoubleVal(math.Mod(f, toFloat(argv[0].val))), true
		case "remainder(dividingBy:)":
			return DoubleVal(math.Remainder(f, toFloat(argv[0].val))), true
		case "negate()":
			mutate(-x)
			return void, true
		}
	case BoolVal:
		if sig == "toggle()" {
			mutate(!x)
			return void, true
		}
	}
	return nil, false
}

func roundRule(f float64, rule Value, line int) float64 {
	ev, ok := rule.(EnumVal)
	if !ok {
		failCompile(line, "cannot convert value of type '%s' to expected argument type 'FloatingPointRoundingRule'", rule.TypeName())
	}
	switch ev.Case {
	case "up":
		return math.Ceil(f)
	case "down":
		return math.Floor(f)
	case "towardZero":
		return math.Trunc(f)
	case "toNearestOrEven":
		return math.RoundToEven(f)
	case "awayFromZero":
		if f < 0 {
			return math.Floor(f)
		}
		return math.Ceil(f)
	case "toNearestOrAwayFromZero":
		return math.Round(f)
	}
	failCompile(line, "type 'FloatingPointRoundingRule' has no member '%s'", ev.Case)
	return 0
}

func (in *interp) arrayMethod(x ArrayVal, sig string, argv []argVal, mutate func(Value), line int) (Value, bool) {
	elems := x.Elems
	elemType := x.Elem
	if elemType == nil && len(elems) > 0 {
		elemType = typeOfValue(elems[0])
	}
	arr := func(vals []Value) ArrayVal { return ArrayVal{Elem: x.Elem, Elems: vals} }
	opt := func(v Value, ok bool) Value {
		if !ok {
			return nilOpt
		}
		return OptionalVal{V: v}
	}
	call := func(f Value, args ...Value) Value { return in.callFunc(f, args, line) }
	pred := func(f Value, v Value) bool { return in.truth(call(f, v), line) }
	if mutate == nil {
		mutate = func(Value) { failCompile(line, "cannot use mutating member on immutable value") }
	}

	switch sig {
	case "append(_:)":
		nv := in.coerce(argv[0].val, elemType, line)
		mutate(arr(append(slices.Clip(elems), nv)))
		return void, true
	case "append(contentsOf:)":
		add := in.sequence(argv[0].val, line)
		out := slices.Clone(elems)
		for _, v := range add {
			out = append(out, in.coerce(v, elemType, line))
		}
		mutate(arr(out))
		return void, true
	case "insert(_:at:)":
		i := in.integer(argv[1].val, line)
		if i < 0 || i > len(elems) {
			trap(line, "Array index is out of range")
		}
		mutate(arr(slices.Insert(slices.Clone(elems), i, in.coerce(argv[0].val, elemType, line))))
		return void, true
	case "insert(contentsOf:at:)":
		i := in.integer(argv[1].val, line)
		if i < 0 || i > len(elems) {
			trap(line, "Array index is out of range")
		}
		add := in.sequence(argv[0].val, line)
		ins := make([]Value, len(add))
		for j, v := range add {
			ins[j] = in.coerce(v, elemType, line)
		}
		mutate(arr(slices.Insert(slices.Clone(elems), i, ins...)))
		return void, true
	case "remove(at:)":
		i := in.integer(argv[0].val, line)
		if i < 0 || i >= len(elems) {
			trap(line, "Index out of range")
		}
		removed := elems[i]
		mutate(arr(slices.Delete(slices.Clone(elems), i, i+1)))
		return removed, true
	case "removeFirst()", "removeLast()", "popLast()":
		if len(elems) == 0 {
			if sig == "popLast()" {
				return nilOpt, true
			}
			which := "first"
			if sig == "removeLast()" {
				which = "last"
			}
			trap(line, "Can't remove %s element from an empty collection", which)
		}
		if sig == "removeFirst()" {
			mutate(arr(slices.Clone(elems[1:])))
			return elems[0], true
		}
		last := elems[len(elems)-1]
		mutate(arr(slices.Clone(elems[:len(elems)-1])))
		if sig == "popLast()" {
			return OptionalVal{V: last}, true
		}
		return last, true
	case "removeAll()":
		mutate(arr(nil))
		return void, true
	case "removeAll(where:)":
		var keep []Value
		for _, v := range elems {
			if !pred(argv[0].val, v) {
				keep = append(keep, v)
			}
		}
		mutate(arr(keep))
		return void, true
	case "swapAt(_:_:)":
		i, j := in.integer(argv[0].val, line), in.integer(argv[1].val, line)
		if i < 0 || j < 0 || i >= len(elems) || j >= len(elems) {
			trap(line, "Index out of range")
		}
		out := slices.Clone(elems)
		out[i], out[j] = out[j], out[i]
		mutate(arr(out))
		return void, true
	case "sort()":
		mutate(arr(in.sortNatural(elems, line)))
		return void, true
	case "sort(by:)":
		mutate(arr(in.sortBy(elems, argv[0].val, line)))
		return void, true
	case "reverse()":
		out := slices.Clone(elems)
		slices.Reverse(out)
		mutate(arr(out))
		return void, true
	case "shuffle()":
		out := slices.Clone(elems)
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		mutate(arr(out))
		return void, true

	case "contains(_:)":
		for _, v := range elems {
			if valuesEqual(v, argv[0].val) {
				return trueVal, true
			}
		}
		return BoolVal(false), true
	case "contains(where:)":
		return BoolVal(slices.ContainsFunc(elems, func(v Value) bool { return pred(argv[0].val, v) })), true
	case "allSatisfy(_:)":
		for _, v := range elems {
			if !pred(argv[0].val, v) {
				return BoolVal(false), true
			}
		}
		return trueVal, true
	case "firstIndex(of:)", "lastIndex(of:)":
		i := -1
		for j, v := range elems {
			if valuesEqual(v, argv[0].val) {
				i = j
				if sig == "firstIndex(of:)" {
					break
				}
			}
		}
		return opt(IntVal(i), i >= 0), true
	case "firstIndex(where:)":
		i := slices.IndexFunc(elems, func(v Value) bool { return pred(argv[0].val, v) })
		return opt(IntVal(i), i >= 0), true
	case "first(where:)":
		for _, v := range elems {
			if pred(argv[0].val, v) {
				return OptionalVal{V: v}, true
			}
		}
		return nilOpt, true
	case "last(where:)":
		for i := len(elems) - 1; i >= 0; i-- {
			if pred(argv[0].val, elems[i]) {
				return OptionalVal{V: elems[i]}, true
			}
		}
		return nilOpt, true
	case "count(where:)":
		n := 0
		for _, v := range elems {
			if pred(argv[0].val, v) {
				n++
			}
		}
		return IntVal(n), true

	case "map(_:)":
		out := make([]Value, len(elems))
		for i, v := range elems {
			out[i] = call(argv[0].val, v)
		}
		return mapped(out), true
	case "compactMap(_:)":
		var out []Value
		for _, v := range elems {
			r := call(argv[0].val, v)
			if o, ok := r.(OptionalVal); ok {
				if o.V == nil {
					continue
				}
				r = o.V
			}
			out = append(out, r)
		}
		return mapped(out), true
	case "flatMap(_:)":
		var out []Value
		for _, v := range elems {
			out = append(out, in.sequence(call(argv[0].val, v), line)...)
		}
		return mapped(out), true
	case "filter(_:)":
		out := []Value{}
		for _, v := range elems {
			if pred(argv[0].val, v) {
				out = append(out, v)
			}
		}
		return ArrayVal{Elem: elemType, Elems: out}, true
	case "reduce(_:_:)":
		acc := argv[0].val
		for _, v := range elems {
			acc = call(argv[1].val, acc, v)
		}
		return acc, true
	case "forEach(_:)":
		for _, v := range elems {
			call(argv[0].val, v)
		}
		return void, true

	case "sorted()":
		return ArrayVal{Elem: elemType, Elems: in.sortNatural(elems, line)}, true
	case "sorted(by:)":
		return ArrayVal{Elem: elemType, Elems: in.sortBy(elems, argv[0].val, line)}, true
	case "reversed()":
		out := slices.Clone(elems)
		slices.Reverse(out)
		return ArrayVal{Elem: elemType, Elems: out}, true
	case "shuffled()":
		out := slices.Clone(elems)
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return ArrayVal{Elem: elemType, Elems: out}, true
	case "min()", "max()":
		if len(elems) == 0 {
			return nilOpt, true
		}
		sorted := in.sortNatural(elems, line)
		if sig == "min()" {
			return OptionalVal{V: sorted[0]}, true
		}
		return OptionalVal{V: sorted[len(sorted)-1]}, true
	case "min(by:)", "max(by:)":
		if len(elems) == 0 {
			return nilOpt, true
		}
		sorted := in.sortBy(elems, argv[0].val, line)
		if sig == "min(by:)" {
			return OptionalVal{V: sorted[0]}, true
		}
		return OptionalVal{V: sorted[len(sorted)-1]}, true
	case "enumerated()":
		out := make([]Value, len(elems))
		for i, v := range elems {
			out[i] = TupleVal{Labels: []string{"offset", "element"}, Elems: []Value{IntVal(i), v}}
		}
		return ArrayVal{Elems: out}, true
	case "joined()", "joined(separator:)":
		sep := ""
		if len(argv) == 1 {
			sep = in.str(argv[0].val, line)
		}
		for _, v := range elems {
			if _, ok := v.(StringVal); !ok {
				failCompile(line, "referencing instance method 'joined(separator:)' on 'Sequence' requires the types '%s' and 'String' be equivalent", v.TypeName())
			}
		}
		return StringVal(joinStrings(elems, sep)), true
	case "prefix(_:)", "suffix(_:)", "dropFirst(_:)", "dropLast(_:)", "dropFirst()", "dropLast()":
		n := 1
		if len(argv) == 1 {
			n = in.integer(argv[0].val, line)
		}
		if n < 0 {
			trap(line, "Can't take a prefix of negative length from a collection")
		}
		return ArrayVal{Elem: elemType, Elems: slices.Clone(cut(elems, sig, n))}, true
	case "randomElement()":
		if len(elems) == 0 {
			return nilOpt, true
		}
		return OptionalVal{V: elems[rand.IntN(len(elems))]}, true
	}
	return nil, false
}

// cut implements prefix, suffix, dropFirst and dropLast.
func cut[T any](s []T, sig string, n int) []T {
	n = min(n, len(s))
	switch {
	case strings.HasPrefix(sig, "prefix"):
		return s[:n]
	case strings.HasPrefix(sig, "suffix"):
		return s[len(s)-n:]
	case strings.HasPrefix(sig, "dropFirst"):
		return s[n:]
	}
	return s[:len(s)-n]
}

func mapped(vals []Value) ArrayVal {
	out := ArrayVal{Elems: vals}
	if len(vals) > 0 {
		out.Elem = typeOfValue(vals[0])
	}
	if out.Elems == nil {
		out.Elems = []Value{}
	}
	return out
}

func joinStrings(vals []Value, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v.(StringVal))
	}
	return strings.Join(parts, sep)
}

// sortNatural sorts ascending by the built-in order, or the case order
// of Comparable enums.
func (in *interp) sortNatural(vals []Value, line int) []Value {
	out := slices.Clone(vals)
	sort.SliceStable(out, func(i, j int) bool {
		c, ok := compareValues(out[i], out[j])
		if !ok {
			c, ok = in.compareUser(out[i], out[j], line)
		}
		if !ok {
			failCompile(line, "referencing instance method 'sorted()' on 'Sequence' requires that '%s' conform to 'Comparable'", out[i].TypeName())
		}
		return c < 0
	})
	return out
}

func (in *interp) sortBy(vals []Value, less Value, line int) []Value {
	out := slices.Clone(vals)
	sort.SliceStable(out, func(i, j int) bool {
		return in.truth(in.callFunc(less, []Value{out[i], out[j]}, line), line)
	})
	return out
}

func dictItems(d DictVal) []Value {
	out := make([]Value, d.Len())
	for i := range d.keys {
		out[i] = TupleVal{Labels: []string{"key", "value"}, Elems: []Value{d.keys[i], d.vals[i]}}
	}
	return out
}

func (in *interp) dictMethod(x DictVal, sig string, argv []argVal, mutate func(Value), line int) (Value, bool) {
	switch sig {
	case "updateValue(_:forKey:)":
		old, ok := x.Get(argv[1].val)
		val := argv[0].val
		if x.Val != nil {
			val = in.coerce(val, x.Val, line)
		}
		mutate(x.With(argv[1].val, val))
		if !ok {
			return nilOpt, true
		}
		return OptionalVal{V: old}, true
	case "removeValue(forKey:)":
		old, ok := x.Get(argv[0].val)
		if !ok {
			return nilOpt, true
		}
		mutate(x.Without(argv[0].val))
		return OptionalVal{V: old}, true
	case "removeAll()":
		mutate(newDict(x.Key, x.Val))
		return void, true
	case "filter(_:)":
		out := newDict(x.Key, x.Val)
		for i, item := range dictItems(x) {
			if in.truth(in.callFunc(argv[0].val, []Value{item}, line), line) {
				out = out.With(x.keys[i], x.vals[i])
			}
		}
		return out, true
	case "mapValues(_:)":
		out := newDict(x.Key, nil)
		for i := range x.keys {
			out = out.With(x.keys[i], in.callFunc(argv[0].val, []Value{x.vals[i]}, line))
		}
		if out.Len() > 0 {
			out.Val = typeOfValue(out.vals[0])
		}
		return out, true
	case "index(forKey:)":
		_, ok := x.Get(argv[0].val)
		if !ok {
			return nilOpt, true
		}
		return OptionalVal{V: x.keys[x.index[hashKey(argv[0].val)]]}, true
	}
	items := ArrayVal{Elem: &TypeExpr{Kind: TupleType, Labels: []string{"key", "value"}, Elems: []*TypeExpr{x.Key, x.Val}}, Elems: dictItems(x)}
	return in.arrayMethod(items, sig, argv, nil, line)
}

func (in *interp) stringMethod(x StringVal, sig string, argv []argVal, mutate func(Value), line int) (Value, bool) {
	s := string(x)
	arg := func(i int) string { return in.str(argv[i].val, line) }
	switch sig {
	case "uppercased()":
		return StringVal(strings.ToUpper(s)), true
	case "lowercased()":
		return StringVal(strings.ToLower(s)), true
	case "hasPrefix(_:)", "starts(with:)":
		return BoolVal(strings.HasPrefix(s, arg(0))), true
	case "hasSuffix(_:)":
		return BoolVal(strings.HasSuffix(s, arg(0))), true
	case "contains(_:)":
		return BoolVal(strings.Contains(s, arg(0))), true
	case "split(separator:)":
		var out []Value
		for _, part := range strings.Split(s, arg(0)) {
			if part != "" {
				out = append(out, StringVal(part))
			}
		}
		return ArrayVal{Elem: named("String"), Elems: append([]Value{}, out...)}, true
	case "components(separatedBy:)":
		var out []Value
		for _, part := range strings.Split(s, arg(0)) {
			out = append(out, StringVal(part))
		}
		return ArrayVal{Elem: named("String"), Elems: out}, true
	case "replacingOccurrences(of:with:)":
		return StringVal(strings.ReplaceAll(s, arg(0), arg(1))), true
	case "trimmingCharacters(in:)":
		set, _ := argv[0].val.(EnumVal)
		if set.Case == "whitespaces" {
			return StringVal(strings.Trim(s, " \t")), true
		}
		return StringVal(strings.TrimSpace(s)), true
	case "reversed()":
		chars := characters(s)
		slices.Reverse(chars)
		return StringVal(joinStrings(chars, "")), true
	case "append(_:)", "append(contentsOf:)":
		mutate(StringVal(s + arg(0)))
		return void, true
	case "removeAll()":
		mutate(StringVal(""))
		return void, true
	case "removeFirst()", "removeLast()":
		chars := characters(s)
		if len(chars) == 0 {
			trap(line, "Can't remove %s element from an empty collection", strings.TrimSuffix(strings.TrimPrefix(sig, "remove"), "()"))
		}
		if sig == "removeFirst()" {
			mutate(StringVal(joinStrings(chars[1:], "")))
			return chars[0], true
		}
		mutate(StringVal(joinStrings(chars[:len(chars)-1], "")))
		return chars[len(chars)-1], true
	case "prefix(_:)", "suffix(_:)", "dropFirst(_:)", "dropLast(_:)", "dropFirst()", "dropLast()":
		n := 1
		if len(argv) == 1 {
			n = in.integer(argv[0].val, line)
		}
		return StringVal(joinStrings(cut(characters(s), sig, n), "")), true
	case "filter(_:)":
		var out []Value
		for _, c := range characters(s) {
			if in.truth(in.callFunc(argv[0].val, []Value{c}, line), line) {
				out = append(out, c)
			}
		}
		return StringVal(joinStrings(out, "")), true
	}
	chars := ArrayVal{Elem: named("Character"), Elems: characters(s)}
	return in.arrayMethod(chars, sig, argv, nil, line)
}

// constructBuiltin calls an initializer of a built-in type.
func (in *interp) constructBuiltin(e *env, name string, args []Arg, line int) Value {
	argv := in.evalArgs(e, args, nil)
	sig := signature(name, argv)
	arg := func(i int) Value { return argv[i].val }

	switch sig {
	case "Int()":
		return IntVal(0)
	case "Int(_:)":
		switch x := arg(0).(type) {
		case IntVal:
			return x
		case DoubleVal:
			f := float64(x)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				trap(line, "Double value cannot be converted to Int because it is either infinite or NaN")
			}
			if f >= math.MaxInt64 || f < math.MinInt64 {
				trap(line, "Double value cannot be converted to Int because the result would be greater than Int.max")
			}
			return IntVal(int64(f))
		case StringVal:
			if v, ok := parseIntString(string(x)); ok {
				return OptionalVal{V: v}
			}
			return nilOpt
		}
	case "Int(_:radix:)":
		n, err := strconv.ParseInt(in.str(arg(0), line), in.integer(arg(1), line), 64)
		if err != nil {
			return nilOpt
		}
		return OptionalVal{V: IntVal(n)}
	case "Double()":
		return DoubleVal(0)
	case "Double(_:)":
		switch x := arg(0).(type) {
		case IntVal:
			return DoubleVal(x)
		case DoubleVal:
			return x
		case StringVal:
			f, err := strconv.ParseFloat(string(x), 64)
			if err != nil {
				return nilOpt
			}
			return OptionalVal{V: DoubleVal(f)}
		}
	case "String()":
		return StringVal("")
	case "String(_:)", "Character(_:)":
		if a, ok := arg(0).(ArrayVal); ok && allStrings(a.Elems) && hintName(a.Elem) == "String" {
			return StringVal(joinStrings(a.Elems, ""))
		}
		return StringVal(in.render().describe(arg(0)))
	case "String(describing:)":
		return StringVal(in.render().describe(arg(0)))
	case "String(reflecting:)":
		return StringVal(in.render().debug(arg(0)))
	case "String(repeating:count:)":
		n := in.integer(arg(1), line)
		if n < 0 {
			trap(line, "Negative count not allowed")
		}
		return StringVal(strings.Repeat(in.str(arg(0), line), n))
	case "String(_:radix:)":
		return StringVal(strconv.FormatInt(int64(in.integer(arg(0), line)), in.integer(arg(1), line)))
	case "Bool(_:)":
		switch x := arg(0).(type) {
		case BoolVal:
			return x
		case StringVal:
			switch x {
			case "true":
				return OptionalVal{V: BoolVal(true)}
			case "false":
				return OptionalVal{V: BoolVal(false)}
			}
			return nilOpt
		}
	case "Array(_:)":
		return mapped(slices.Clone(in.sequence(arg(0), line)))
	case "Array(repeating:count:)":
		return repeated(arg(0), in.integer(arg(1), line), nil, line)
	case "Dictionary(uniqueKeysWithValues:)":
		return in.dictFromPairs(nil, in.sequence(arg(0), line), line)
	case "Dictionary(grouping:by:)":
		d := newDict(nil, nil)
		for _, v := range in.sequence(arg(0), line) {
			k := in.callFunc(arg(1), []Value{v}, line)
			group, _ := d.Get(k)
			ga, _ := group.(ArrayVal)
			d = d.With(k, ArrayVal{Elem: typeOfValue(v), Elems: append(slices.Clip(ga.Elems), v)})
		}
		return d
	}

	if !builtinTypeNames[name] {
		failCompile(line, "cannot find '%s' in scope", name)
	}
	if len(argv) == 1 && argv[0].label == "" {
		failCompile(line, "no exact matches in call to initializer of '%s' with an argument of type '%s'", name, arg(0).TypeName())
	}
	failCompile(line, "no exact matches in call to initializer of '%s'", name)
	return nil
}

func allStrings(vals []Value) bool {
	for _, v := range vals {
		if _, ok := v.(StringVal); !ok {
			return false
		}
	}
	return true
}

func (in *interp) dictFromPairs(t *TypeExpr, pairs []Value, line int) DictVal {
	var d DictVal
	if t != nil {
		d = newDict(t.Key, t.Elem)
	} else {
		d = newDict(nil, nil)
	}
	for _, p := range pairs {
		tv, ok := p.(TupleVal)
		if !ok || len(tv.Elems) != 2 {
			failCompile(line, "cannot convert value of type '%s' to expected argument type '(Key, Value)'", p.TypeName())
		}
		if _, dup := d.Get(tv.Elems[0]); dup {
			trap(line, "Fatal error: Duplicate values for key: '%s'", in.render().describe(tv.Elems[0]))
		}
		d = d.With(tv.Elems[0], tv.Elems[1])
	}
	if t == nil && d.Len() > 0 {
		d.Key, d.Val = typeOfValue(d.keys[0]), typeOfValue(d.vals[0])
	}
	return d
}

// constructCollection handles [T](...) and [K: V](...).
func (in *interp) constructCollection(e *env, t *TypeExpr, args []Arg, line int) Value {
	hints := make([]*TypeExpr, len(args))
	if t.Kind == ArrayType && len(args) > 0 && args[0].Label == "repeating" {
		hints[0] = t.Elem
	}
	argv := in.evalArgs(e, args, hints)
	sig := signature("", argv)
	if t.Kind == DictType {
		switch sig {
		case "()":
			return newDict(t.Key, t.Elem)
		case "(uniqueKeysWithValues:)":
			return in.coerce(in.dictFromPairs(t, in.sequence(argv[0].val, line), line), t, line)
		}
		failCompile(line, "no exact matches in call to initializer of '%s'", t)
	}
	switch sig {
	case "()":
		return ArrayVal{Elem: t.Elem, Elems: []Value{}}
	case "(_:)":
		return in.coerce(ArrayVal{Elems: slices.Clone(in.sequence(argv[0].val, line))}, t, line)
	case "(repeating:count:)":
		return repeated(in.coerce(argv[0].val, t.Elem, line), in.integer(argv[1].val, line), t.Elem, line)
	}
	failCompile(line, "no exact matches in call to initializer of '%s'", t)
	return nil
}
