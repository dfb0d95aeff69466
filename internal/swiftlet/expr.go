package swiftlet

import (
	"math"
	"strconv"
	"strings"

	"github.com/rivo/uniseg"
)

func (in *interp) eval(e *env, x Expr) Value {
	return in.evalHint(e, x, nil)
}

// evalHint evaluates x with the type the context expects, which literals
// and implicit members such as .north need.
func (in *interp) evalHint(e *env, x Expr, hint *TypeExpr) Value {
	switch x := x.(type) {
	case *IntLit:
		if hintName(hint) == "Double" {
			return DoubleVal(x.Val)
		}
		return IntVal(x.Val)
	case *FloatLit:
		return DoubleVal(x.Val)
	case *StringLit:
		return in.evalString(e, x)
	case *BoolLit:
		return BoolVal(x.Val)
	case *NilLit:
		return nilOpt
	case *Ident:
		return in.lookup(e, x.Name, x.Line).get()
	case *ImplicitMember:
		return in.implicitMember(x, hint)
	case *ArrayLit:
		return in.evalArray(e, x, hint)
	case *DictLit:
		return in.evalDict(e, x, hint)
	case *TupleLit:
		return in.evalTuple(e, x, hint)
	case *Unary:
		return in.evalUnary(e, x, hint)
	case *Binary:
		return in.evalBinary(e, x, hint)
	case *Ternary:
		if in.condition(e, x.Cond) {
			return in.evalHint(e, x.Then, hint)
		}
		return in.evalHint(e, x.Else, hint)
	case *Call:
		return in.evalCall(e, x, hint)
	case *Member:
		return in.getMember(in.eval(e, x.X), x.Name, x.Line)
	case *Index:
		base := in.eval(e, x.X)
		return in.subscript(base, in.evalArgs(e, x.Index, nil), x.Line)
	case *ForceUnwrap:
		return in.unwrap(in.eval(e, x.X), false, x.Line)
	case *OptionalTry:
		return in.unwrap(in.eval(e, x.X), true, x.Line)
	case *OptionalChain:
		return in.evalChain(e, x, hint)
	case *InoutExpr:
		failCompile(x.Line, "'&' may only be used to pass an argument to inout parameter")
	case *TypeLit:
		return TypeVal{T: x.Type}
	case *ClosureLit:
		return in.closure(e, x, hint)
	}
	failCompile(x.Pos(), "unsupported expression %T", x)
	return nil
}

// hintName is the canonical name of a named hint, looking through
// optionals.
func hintName(t *TypeExpr) string {
	for t != nil && t.Kind == OptionalType {
		t = t.Elem
	}
	if t == nil || t.Kind != NamedType {
		return ""
	}
	return canonicalName(t.Name)
}

func (in *interp) evalString(e *env, x *StringLit) Value {
	if len(x.Parts) == 1 && x.Parts[0].Expr == nil {
		return StringVal(x.Parts[0].Lit)
	}
	var b strings.Builder
	r := in.render()
	for _, part := range x.Parts {
		if part.Expr == nil {
			b.WriteString(part.Lit)
			continue
		}
		b.WriteString(r.describe(in.eval(e, part.Expr)))
	}
	return StringVal(b.String())
}

func (in *interp) unwrap(v Value, chain bool, line int) Value {
	o, ok := v.(OptionalVal)
	if !ok {
		if chain {
			failCompile(line, "cannot use optional chaining on non-optional value of type '%s'", v.TypeName())
		}
		failCompile(line, "cannot force unwrap value of non-optional type '%s'", v.TypeName())
	}
	if o.V == nil {
		if chain {
			panic(errChainNil)
		}
		trap(line, "Unexpectedly found nil while unwrapping an Optional value")
	}
	return o.V
}

// evalChain evaluates an optional chain, yielding nil when a step met nil.
func (in *interp) evalChain(e *env, x *OptionalChain, hint *TypeExpr) (v Value) {
	defer func() {
		if r := recover(); r != nil {
			if r != errChainNil {
				panic(r)
			}
			v = nilOpt
		}
	}()
	v = in.evalHint(e, x.X, hint)
	if _, ok := v.(VoidVal); ok {
		return v
	}
	return wrap(v)
}

func (in *interp) implicitMember(x *ImplicitMember, hint *TypeExpr) Value {
	if hint != nil && hint.Kind == OptionalType {
		if x.Name == "none" {
			return nilOpt
		}
		hint = hint.Elem
	}
	if hint == nil || hint.Kind != NamedType {
		failCompile(x.Line, "cannot infer contextual base in reference to member '%s'", x.Name)
	}
	return in.staticMember(TypeVal{T: hint}, x.Name, x.Line)
}

func (in *interp) evalArray(e *env, x *ArrayLit, hint *TypeExpr) Value {
	var elemHint *TypeExpr
	if hint != nil && hint.Kind == ArrayType {
		elemHint = hint.Elem
	}
	if len(x.Elems) == 0 {
		if hint == nil {
			failCompile(x.Line, "empty collection literal requires an explicit type")
		}
		return ArrayVal{Elem: elemHint}
	}
	elems := make([]Value, len(x.Elems))
	for i, el := range x.Elems {
		elems[i] = in.evalHint(e, el, elemHint)
	}
	if elemHint != nil {
		for i := range elems {
			elems[i] = in.coerce(elems[i], elemHint, x.Line)
		}
		return ArrayVal{Elem: elemHint, Elems: elems}
	}
	elems = unifyLiteral(elems, x.Line)
	return ArrayVal{Elem: typeOfValue(elems[0]), Elems: elems}
}

// unifyLiteral gives the elements of an unannotated collection literal one
// type: Int and Double mix as Double, anything else must match.
func unifyLiteral(vals []Value, line int) []Value {
	anyDouble := false
	for _, v := range vals {
		if _, ok := v.(DoubleVal); ok {
			anyDouble = true
		}
	}
	first := vals[0].TypeName()
	for i, v := range vals {
		if anyDouble && isNumeric(v) {
			vals[i] = DoubleVal(toFloat(v))
			continue
		}
		if v.TypeName() != first && !optionalMix(vals[0], v) {
			failCompile(line, "heterogeneous collection literal could only be inferred to '[Any]'; add explicit type annotation if this is intentional")
		}
	}
	return vals
}

func optionalMix(a, b Value) bool {
	oa, aok := a.(OptionalVal)
	ob, bok := b.(OptionalVal)
	return aok && oa.V == nil || bok && ob.V == nil
}

func (in *interp) evalDict(e *env, x *DictLit, hint *TypeExpr) Value {
	var keyHint, valHint *TypeExpr
	if hint != nil && hint.Kind == DictType {
		keyHint, valHint = hint.Key, hint.Elem
	}
	if len(x.Keys) == 0 {
		if hint == nil {
			failCompile(x.Line, "empty collection literal requires an explicit type")
		}
		return newDict(keyHint, valHint)
	}
	keys := make([]Value, len(x.Keys))
	vals := make([]Value, len(x.Vals))
	for i := range x.Keys {
		keys[i] = in.evalHint(e, x.Keys[i], keyHint)
		vals[i] = in.evalHint(e, x.Vals[i], valHint)
		if keyHint != nil {
			keys[i] = in.coerce(keys[i], keyHint, x.Line)
		}
		if valHint != nil {
			vals[i] = in.coerce(vals[i], valHint, x.Line)
		}
	}
	if keyHint == nil {
		keys = unifyLiteral(keys, x.Line)
		vals = unifyLiteral(vals, x.Line)
		keyHint, valHint = typeOfValue(keys[0]), typeOfValue(vals[0])
	}
	d := newDict(keyHint, valHint)
	for i := range keys {
		if _, dup := d.Get(keys[i]); dup {
			trap(x.Line, "Fatal error: Dictionary literal contains duplicate keys")
		}
		d = d.With(keys[i], vals[i])
	}
	return d
}

func (in *interp) evalTuple(e *env, x *TupleLit, hint *TypeExpr) Value {
	t := TupleVal{Elems: make([]Value, len(x.Elems))}
	for i, el := range x.Elems {
		var h *TypeExpr
		if hint != nil && hint.Kind == TupleType && i < len(hint.Elems) {
			h = hint.Elems[i]
		}
		t.Elems[i] = in.evalHint(e, el, h)
	}
	for _, l := range x.Labels {
		if l != "" {
			t.Labels = x.Labels
			break
		}
	}
	return t
}

func (in *interp) evalUnary(e *env, x *Unary, hint *TypeExpr) Value {
	v := in.evalHint(e, x.X, hint)
	switch x.Op {
	case "-":
		switch n := v.(type) {
		case IntVal:
			if n == math.MinInt64 {
				trap(x.Line, "arithmetic overflow")
			}
			return -n
		case DoubleVal:
			return -n
		}
	case "+":
		if isNumeric(v) {
			return v
		}
	case "!":
		if b, ok := v.(BoolVal); ok {
			return !b
		}
	}
	failCompile(x.Line, "unary operator '%s' cannot be applied to an operand of type '%s'", x.Op, v.TypeName())
	return nil
}

func (in *interp) evalBinary(e *env, x *Binary, hint *TypeExpr) Value {
	switch x.Op {
	case "&&":
		if !in.condition(e, x.L) {
			return BoolVal(false)
		}
		return BoolVal(in.condition(e, x.R))
	case "||":
		if in.condition(e, x.L) {
			return trueVal
		}
		return BoolVal(in.condition(e, x.R))
	case "??":
		var lh *TypeExpr
		if hint != nil {
			lh = optionalOf(hint)
		}
		l := in.evalHint(e, x.L, lh)
		o, ok := l.(OptionalVal)
		if !ok {
			return l
		}
		if o.V != nil {
			return o.V
		}
		return in.evalHint(e, x.R, hint)
	}

	// An implicit member on the left takes its type from the right.
	var l, r Value
	if _, ok := x.L.(*ImplicitMember); ok {
		r = in.evalHint(e, x.R, arithHint(x.Op, hint))
		l = in.evalHint(e, x.L, typeOfValue(r))
	} else {
		l = in.evalHint(e, x.L, arithHint(x.Op, hint))
		r = in.evalHint(e, x.R, operandHint(x.Op, l, hint))
	}
	return in.binaryOp(x.Op, l, r, x.Line)
}

// arithHint passes a numeric context down to operands: in
// let d: Double = 1 + 2 both literals are Doubles.
func arithHint(op string, hint *TypeExpr) *TypeExpr {
	switch op {
	case "+", "-", "*", "/", "%":
		return hint
	}
	return nil
}

func operandHint(op string, l Value, hint *TypeExpr) *TypeExpr {
	switch op {
	case "+", "-", "*", "/", "%":
		if _, ok := l.(DoubleVal); ok {
			return named("Double")
		}
		return hint
	}
	return typeOfValue(l)
}

// binaryOp applies an arithmetic, comparison or range operator.
func (in *interp) binaryOp(op string, a, b Value, line int) Value {
	switch op {
	case "==", "===":
		in.checkComparable(op, a, b, line)
		return BoolVal(valuesEqual(a, b))
	case "!=", "!==":
		in.checkComparable(op, a, b, line)
		return BoolVal(!valuesEqual(a, b))
	case "<", "<=", ">", ">=":
		c, ok := compareValues(a, b)
		if !ok {
			c, ok = in.compareUser(a, b, line)
		}
		if !ok {
			in.operandError(op, a, b, line)
		}
		switch op {
		case "<":
			return BoolVal(c < 0)
		case "<=":
			return BoolVal(c <= 0)
		case ">":
			return BoolVal(c > 0)
		}
		return BoolVal(c >= 0)
	case "...", "..<":
		return in.makeRange(a, b, op == "...", line)
	}

	switch x := a.(type) {
	case IntVal:
		switch y := b.(type) {
		case IntVal:
			return intOp(op, x, y, line)
		case DoubleVal:
			return doubleOp(op, DoubleVal(x), y, line)
		}
	case DoubleVal:
		if isNumeric(b) {
			return doubleOp(op, x, DoubleVal(toFloat(b)), line)
		}
	case StringVal:
		if y, ok := b.(StringVal); ok && op == "+" {
			return x + y
		}
	case ArrayVal:
		if y, ok := b.(ArrayVal); ok && op == "+" {
			elems := append(append([]Value(nil), x.Elems...), y.Elems...)
			return ArrayVal{Elem: x.Elem, Elems: elems}
		}
	}
	in.operandError(op, a, b, line)
	return nil
}

func (in *interp) operandError(op string, a, b Value, line int) {
	if a.TypeName() == b.TypeName() {
		failCompile(line, "binary operator '%s' cannot be applied to two '%s' operands", op, a.TypeName())
	}
	failCompile(line, "binary operator '%s' cannot be applied to operands of type '%s' and '%s'", op, a.TypeName(), b.TypeName())
}

func (in *interp) checkComparable(op string, a, b Value, line int) {
	if !comparableTypes(a, b) {
		in.operandError(op, a, b, line)
	}
}

// compareUser orders values of types that declare a static < operator
// method, and enums by case order.
func (in *interp) compareUser(a, b Value, line int) (int, bool) {
	x, ok := a.(EnumVal)
	if !ok {
		return 0, false
	}
	y, ok := b.(EnumVal)
	if !ok || x.Type != y.Type {
		return 0, false
	}
	td := in.lookupType(x.Type)
	if td == nil || !in.conformsTo(td, "Comparable") {
		return 0, false
	}
	xi, yi := caseIndex(td, x.Case), caseIndex(td, y.Case)
	return cmp3(xi < yi, xi > yi), true
}

func caseIndex(td *typeDesc, name string) int {
	for i, c := range td.cases {
		if c.name == name {
			return i
		}
	}
	return -1
}

func (in *interp) makeRange(a, b Value, closed bool, line int) Value {
	if _, ok := compareValues(a, b); !ok {
		failCompile(line, "referencing operator function '%s' requires that '%s' conform to 'Comparable'", rangeOp(closed), a.TypeName())
	}
	if c, _ := compareValues(a, b); c > 0 {
		trap(line, "Range requires lowerBound <= upperBound")
	}
	if isNumeric(a) && isNumeric(b) && a.TypeName() != b.TypeName() {
		a, b = DoubleVal(toFloat(a)), DoubleVal(toFloat(b))
	}
	return RangeVal{Lo: a, Hi: b, Closed: closed}
}

func rangeOp(closed bool) string {
	if closed {
		return "..."
	}
	return "..<"
}

func intOp(op string, x, y IntVal, line int) Value {
	switch op {
	case "+":
		r := x + y
		if (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r >= 0) {
			trap(line, "arithmetic overflow")
		}
		return r
	case "-":
		r := x - y
		if (x >= 0 && y < 0 && r < 0) || (x < 0 && y > 0 && r >= 0) {
			trap(line, "arithmetic overflow")
		}
		return r
	case "*":
		if x == 0 || y == 0 {
			return IntVal(0)
		}
		r := x * y
		if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
			trap(line, "arithmetic overflow")
		}
		return r
	case "/":
		if y == 0 {
			trap(line, "Division by zero")
		}
		if x == math.MinInt64 && y == -1 {
			trap(line, "arithmetic overflow")
		}
		return x / y
	case "%":
		if y == 0 {
			trap(line, "Division by zero in remainder operation")
		}
		if y == -1 {
			return IntVal(0)
		}
		return x % y
	}
	failCompile(line, "binary operator '%s' cannot be applied to two 'Int' operands", op)
	return nil
}

func doubleOp(op string, x, y DoubleVal, line int) Value {
	switch op {
	case "+":
		return x + y
	case "-":
		return x - y
	case "*":
		return x * y
	case "/":
		return x / y
	case "%":
		failCompile(line, "'%%' is unavailable: For floating point numbers use truncatingRemainder instead")
	}
	failCompile(line, "binary operator '%s' cannot be applied to two 'Double' operands", op)
	return nil
}

// ref resolves an assignable expression to a location.
func (in *interp) ref(e *env, x Expr) ref {
	switch x := x.(type) {
	case *Ident:
		return in.lookup(e, x.Name, x.Line)
	case *Member:
		return &memberRef{in: in, base: in.refOrTemp(e, x.X), name: x.Name, line: x.Line}
	case *Index:
		base := in.refOrTemp(e, x.X)
		return &indexRef{in: in, base: base, args: in.evalArgs(e, x.Index, nil), line: x.Line}
	case *ForceUnwrap:
		return &unwrapRef{in: in, base: in.refOrTemp(e, x.X), line: x.Line}
	case *OptionalTry:
		return &unwrapRef{in: in, base: in.refOrTemp(e, x.X), chain: true, line: x.Line}
	case *OptionalChain:
		return in.ref(e, x.X)
	}
	failCompile(x.Pos(), "cannot assign to this expression")
	return nil
}

// refOrTemp is ref for addressable expressions and a read-only temporary
// otherwise, such as a call result.
func (in *interp) refOrTemp(e *env, x Expr) ref {
	switch x.(type) {
	case *Ident, *Member, *Index, *ForceUnwrap, *OptionalTry:
		return in.ref(e, x)
	}
	return &tempRef{v: in.eval(e, x)}
}

// lookup resolves a name: locals, then members of self, then globals,
// types and built-ins.
func (in *interp) lookup(e *env, name string, line int) ref {
	var selfEnv *env
	for cur := e; cur != nil && cur != in.global; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return &varRef{in: in, b: b, name: name, line: line}
		}
		if selfEnv == nil && cur.selfType != "" {
			selfEnv = cur
		}
	}
	if selfEnv != nil {
		// In a static method self is the type; Self always is.
		if name == "Self" || (name == "self" && selfEnv.static) {
			return &tempRef{v: TypeVal{T: named(selfEnv.selfType)}}
		}
		if r := in.selfMember(e, selfEnv, name, line); r != nil {
			return r
		}
	}
	if b, ok := in.scope.vars[name]; ok {
		return &varRef{in: in, b: b, name: name, line: line}
	}
	if td := in.lookupType(name); td != nil {
		return &tempRef{v: TypeVal{T: named(td.name)}}
	}
	if builtinTypeNames[name] {
		return &tempRef{v: TypeVal{T: named(name)}}
	}
	if fn, ok := builtins[name]; ok {
		return &tempRef{v: BuiltinVal{Name: name, Fn: fn}}
	}
	failCompile(line, "cannot find '%s' in scope", name)
	return nil
}

// selfMember resolves an unqualified member name inside a method body.
func (in *interp) selfMember(e, selfEnv *env, name string, line int) ref {
	td := in.lookupType(selfEnv.selfType)
	if td == nil {
		return nil
	}
	if selfEnv.static {
		if in.hasStatic(td, name) {
			return &memberRef{in: in, base: &tempRef{v: TypeVal{T: named(td.name)}}, name: name, line: line}
		}
		return nil
	}
	if !in.hasInstanceMember(td, name) {
		return nil
	}
	self := in.lookup(e, "self", line)
	return &memberRef{in: in, base: self, name: name, line: line}
}

// closure captures e. Closures created at top level resolve globals at
// call time like top-level functions.
func (in *interp) closure(e *env, x *ClosureLit, hint *TypeExpr) Value {
	decl := &FuncDecl{
		Name:     "closure",
		Params:   x.Params,
		Result:   x.Result,
		Body:     x.Body,
		Closure:  true,
		Implicit: x.Implicit,
		Arity:    x.Arity,
	}
	decl.Line = x.Line
	if hint != nil && hint.Kind == FuncType && !x.Implicit {
		params := make([]*Param, len(x.Params))
		for i, p := range x.Params {
			cp := *p
			if cp.Type == nil && i < len(hint.Elems) {
				cp.Type = hint.Elems[i]
			}
			params[i] = &cp
		}
		decl.Params = params
		if decl.Result == nil {
			decl.Result = hint.Elem
		}
	}
	fv := &FuncVal{Decl: decl}
	if e != in.global {
		fv.Env = e
	}
	return fv
}

// typeOfValue is the static type a variable initialized with v gets.
func typeOfValue(v Value) *TypeExpr {
	switch x := v.(type) {
	case nil:
		return nil
	case IntVal, DoubleVal, StringVal, BoolVal:
		return named(x.TypeName())
	case VoidVal:
		return named("()")
	case OptionalVal:
		if x.V == nil {
			return nil
		}
		return optionalOf(typeOfValue(x.V))
	case ArrayVal:
		if x.Elem != nil {
			return arrayOf(x.Elem)
		}
		if len(x.Elems) > 0 {
			return arrayOf(typeOfValue(x.Elems[0]))
		}
		return &TypeExpr{Kind: ArrayType}
	case DictVal:
		t := &TypeExpr{Kind: DictType, Key: x.Key, Elem: x.Val}
		if t.Key == nil && x.Len() > 0 {
			t.Key, t.Elem = typeOfValue(x.keys[0]), typeOfValue(x.vals[0])
		}
		return t
	case TupleVal:
		t := &TypeExpr{Kind: TupleType, Labels: x.Labels}
		for _, el := range x.Elems {
			t.Elems = append(t.Elems, typeOfValue(el))
		}
		return t
	case StructVal:
		return named(x.Type)
	case EnumVal:
		return named(x.Type)
	}
	return nil
}

// coerce converts v to the declared type t, failing with a compile error
// when the value does not fit.
func (in *interp) coerce(v Value, t *TypeExpr, line int) Value {
	return in.convert(v, t, line, "cannot convert value of type '%s' to specified type '%s'")
}

func (in *interp) coerceAssign(v Value, t *TypeExpr, line int) Value {
	return in.convert(v, t, line, "cannot assign value of type '%s' to type '%s'")
}

func (in *interp) convert(v Value, t *TypeExpr, line int, msg string) Value {
	if t == nil || v == nil {
		return v
	}
	mismatch := func() {
		failCompile(line, msg, v.TypeName(), t.String())
	}

	if o, ok := v.(OptionalVal); ok && t.Kind != OptionalType && !in.isAnyType(t) {
		if o.V == nil {
			failCompile(line, "'nil' cannot be assigned to type '%s'", t.String())
		}
		failCompile(line, "value of optional type '%s' must be unwrapped to a value of type '%s'", v.TypeName(), t.String())
	}

	switch t.Kind {
	case OptionalType:
		if o, ok := v.(OptionalVal); ok {
			if o.V == nil {
				return o
			}
			return OptionalVal{V: in.convert(o.V, t.Elem, line, msg)}
		}
		return OptionalVal{V: in.convert(v, t.Elem, line, msg)}
	case ArrayType:
		a, ok := v.(ArrayVal)
		if !ok {
			mismatch()
		}
		if t.Elem == nil {
			return a
		}
		elems := make([]Value, len(a.Elems))
		for i, el := range a.Elems {
			elems[i] = in.convert(el, t.Elem, line, msg)
		}
		return ArrayVal{Elem: t.Elem, Elems: elems}
	case DictType:
		d, ok := v.(DictVal)
		if !ok {
			mismatch()
		}
		if t.Key == nil {
			return d
		}
		out := newDict(t.Key, t.Elem)
		for i := range d.keys {
			out = out.With(in.convert(d.keys[i], t.Key, line, msg), in.convert(d.vals[i], t.Elem, line, msg))
		}
		return out
	case TupleType:
		tv, ok := v.(TupleVal)
		if !ok || len(tv.Elems) != len(t.Elems) {
			mismatch()
		}
		out := TupleVal{Labels: tv.Labels, Elems: make([]Value, len(tv.Elems))}
		for i, el := range tv.Elems {
			out.Elems[i] = in.convert(el, t.Elems[i], line, msg)
		}
		for _, l := range t.Labels {
			if l != "" {
				out.Labels = t.Labels
				break
			}
		}
		return out
	case FuncType:
		switch v.(type) {
		case *FuncVal, *FuncSet, BuiltinVal:
			return v
		}
		mismatch()
	}

	name := canonicalName(t.Name)
	switch name {
	case "Any", "AnyObject", "AnyHashable":
		return v
	case "Double":
		switch x := v.(type) {
		case DoubleVal:
			return x
		case IntVal:
			return DoubleVal(x)
		}
		mismatch()
	case "Int", "String", "Bool", "()":
		if v.TypeName() != name {
			mismatch()
		}
		return v
	case "Range", "ClosedRange":
		if _, ok := v.(RangeVal); !ok {
			mismatch()
		}
		return v
	}

	td := in.lookupType(name)
	if td == nil {
		if builtinProtocols[name] {
			return v
		}
		// Generic parameters and types the interpreter does not model.
		return v
	}
	if td.kind == protocolKind {
		if !in.valueConforms(v, td.name) {
			failCompile(line, "value of type '%s' does not conform to specified type '%s'", v.TypeName(), td.name)
		}
		return v
	}
	if canonicalName(v.TypeName()) != td.name {
		mismatch()
	}
	return v
}

func (in *interp) isAnyType(t *TypeExpr) bool {
	if t.Kind != NamedType {
		return false
	}
	switch canonicalName(t.Name) {
	case "Any", "AnyObject":
		return true
	}
	return false
}

// accepts reports whether v can be passed where t is expected, used to
// pick between overloads.
func (in *interp) accepts(v Value, t *TypeExpr) (ok bool) {
	if t == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			if _, isErr := r.(*Error); !isErr {
				panic(r)
			}
			ok = false
		}
	}()
	if _, isInt := v.(IntVal); isInt && hintName(t) == "Double" {
		return false
	}
	in.coerce(v, t, 0)
	return true
}

// characters splits s into Characters, one per grapheme cluster.
func characters(s string) []Value {
	out := make([]Value, 0, len(s))
	state := -1
	var cluster string
	for len(s) > 0 {
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		out = append(out, StringVal(cluster))
	}
	return out
}

func parseIntString(s string) (Value, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, false
	}
	return IntVal(n), true
}
