package swiftlet

import (
	"fmt"
	"strings"
)

// argVal is an evaluated call argument. ref is set for &x arguments.
type argVal struct {
	label string
	val   Value
	ref   ref
}

// builtinFunc implements a built-in function or method.
type builtinFunc func(in *interp, line int, args []argVal) Value

// recv is the receiver of a method call. val is nil for static methods and
// for self before an initializer assigned it.
type recv struct {
	val      Value
	typeName string
	static   bool
}

func argLabels(args []Arg) []string {
	labels := make([]string, len(args))
	for i, a := range args {
		labels[i] = a.Label
	}
	return labels
}

// evalArgs evaluates call arguments. hints, when given, is indexed like
// args.
func (in *interp) evalArgs(e *env, args []Arg, hints []*TypeExpr) []argVal {
	out := make([]argVal, len(args))
	for i, a := range args {
		out[i].label = a.Label
		if io, ok := a.Value.(*InoutExpr); ok {
			r := in.ref(e, io.X)
			r.check(io.Line, "pass")
			out[i].ref = r
			out[i].val = r.get()
			continue
		}
		var h *TypeExpr
		if i < len(hints) {
			h = hints[i]
		}
		out[i].val = in.evalHint(e, a.Value, h)
	}
	return out
}

func (in *interp) evalCall(e *env, c *Call, hint *TypeExpr) Value {
	switch fn := c.Fn.(type) {
	case *Member:
		base := in.refOrTemp(e, fn.X)
		return in.callMember(e, base, fn.Name, c.Args, c.Line, hint)
	case *Ident:
		r := in.lookup(e, fn.Name, fn.Line)
		if mr, ok := r.(*memberRef); ok {
			return in.callMember(e, mr.base, mr.name, c.Args, c.Line, hint)
		}
		return in.callValue(e, r.get(), c.Args, c.Line, hint)
	case *ImplicitMember:
		t := hint
		if t != nil && t.Kind == OptionalType {
			if fn.Name == "some" && len(c.Args) == 1 {
				return wrap(in.evalHint(e, c.Args[0].Value, t.Elem))
			}
			t = t.Elem
		}
		if t == nil || t.Kind == OptionalType {
			failCompile(fn.Line, "cannot infer contextual base in reference to member '%s'", fn.Name)
		}
		return in.callStatic(e, TypeVal{T: t}, fn.Name, c.Args, c.Line, hint)
	}
	return in.callValue(e, in.eval(e, c.Fn), c.Args, c.Line, hint)
}

// callValue calls a function value, a type (an initializer call) or a
// bound method.
func (in *interp) callValue(e *env, f Value, args []Arg, line int, hint *TypeExpr) Value {
	switch fn := f.(type) {
	case *FuncVal:
		return in.callFuncs(e, []*FuncVal{fn}, nil, args, line, fn.Decl.Name)
	case *FuncSet:
		return in.callFuncs(e, fn.Funcs, nil, args, line, fn.Name)
	case BuiltinVal:
		return fn.Fn(in, line, in.evalArgs(e, args, nil))
	case TypeVal:
		return in.construct(e, fn.T, args, line, hint)
	case boundMethod:
		return in.callMethod(e, &tempRef{v: fn.recv}, fn.td, fn.decls, false, args, line)
	case OptionalVal:
		failCompile(line, "value of optional type '%s' must be unwrapped to a value of type '%s'", f.TypeName(), strings.TrimSuffix(f.TypeName(), "?"))
	}
	failCompile(line, "cannot call value of non-function type '%s'", f.TypeName())
	return nil
}

func (in *interp) callFuncs(e *env, cands []*FuncVal, self *recv, args []Arg, line int, name string) Value {
	fv, vals, refs := in.selectFunc(e, cands, args, line, name)
	ret, _ := in.invoke(fv, self, vals, refs, line)
	return ret
}

// selectFunc picks the overload whose labels (and, when labels tie,
// parameter types) fit the call, and evaluates the arguments for it.
func (in *interp) selectFunc(e *env, cands []*FuncVal, args []Arg, line int, name string) (*FuncVal, []Value, []ref) {
	labels := argLabels(args)
	var (
		matched []*FuncVal
		plans   [][][]int
		first   string
	)
	for _, f := range cands {
		plan, msg := matchLabels(f.Decl, labels)
		if msg != "" {
			if first == "" {
				first = msg
			}
			continue
		}
		matched = append(matched, f)
		plans = append(plans, plan)
	}
	switch {
	case len(matched) == 0 && len(cands) == 1:
		failCompile(line, "%s", first)
	case len(matched) == 0:
		failCompile(line, "no exact matches in call to %s '%s'", funcKind(cands[0].Decl), name)
	case len(matched) == 1:
		f, plan := matched[0], plans[0]
		argv := in.evalArgs(e, args, paramHints(f.Decl, plan, len(args)))
		vals, refs := in.bindArgs(f, plan, argv, line)
		return f, vals, refs
	}

	argv := in.evalArgs(e, args, nil)
	for i, f := range matched {
		if in.argsFit(f.Decl, plans[i], argv) {
			vals, refs := in.bindArgs(f, plans[i], argv, line)
			return f, vals, refs
		}
	}
	vals, refs := in.bindArgs(matched[0], plans[0], argv, line)
	return matched[0], vals, refs
}

func funcKind(d *FuncDecl) string {
	switch {
	case d.Name == "init":
		return "initializer"
	case d.Closure:
		return "closure"
	}
	return "function"
}

// matchLabels maps arguments to parameters by label. plan[i] lists the
// argument indexes bound to parameter i; an empty entry takes the
// default value.
func matchLabels(d *FuncDecl, labels []string) ([][]int, string) {
	if d.Closure {
		if !d.Implicit && len(labels) != len(d.Params) {
			return nil, fmt.Sprintf("closure expects %d arguments, but %d were used", len(d.Params), len(labels))
		}
		n := len(d.Params)
		if d.Implicit {
			n = len(labels)
		}
		plan := make([][]int, n)
		for i := range plan {
			plan[i] = []int{i}
		}
		return plan, ""
	}

	plan := make([][]int, len(d.Params))
	ai := 0
	for pi, p := range d.Params {
		if p.Variadic {
			if ai < len(labels) && labels[ai] == p.Label {
				plan[pi] = append(plan[pi], ai)
				ai++
				for ai < len(labels) && labels[ai] == "" {
					plan[pi] = append(plan[pi], ai)
					ai++
				}
			}
			continue
		}
		if ai < len(labels) && labels[ai] == p.Label {
			plan[pi] = []int{ai}
			ai++
			continue
		}
		if p.Default != nil {
			continue
		}
		if ai < len(labels) {
			switch {
			case labels[ai] == "":
				return nil, fmt.Sprintf("missing argument label '%s:' in call", p.Label)
			case p.Label == "":
				return nil, fmt.Sprintf("extraneous argument label '%s:' in call", labels[ai])
			}
			return nil, fmt.Sprintf("incorrect argument label in call (have '%s:', expected '%s:')", labels[ai], p.Label)
		}
		return nil, fmt.Sprintf("missing argument for parameter '%s' in call", paramName(p))
	}
	if ai < len(labels) {
		if labels[ai] != "" {
			return nil, fmt.Sprintf("extra argument '%s' in call", labels[ai])
		}
		return nil, "extra argument in call"
	}
	return plan, ""
}

func paramName(p *Param) string {
	if p.Label != "" {
		return p.Label
	}
	return p.Name
}

// paramHints gives each argument the type of the parameter it binds to.
func paramHints(d *FuncDecl, plan [][]int, n int) []*TypeExpr {
	hints := make([]*TypeExpr, n)
	if d.Implicit {
		return hints
	}
	for pi, idxs := range plan {
		for _, ai := range idxs {
			hints[ai] = d.Params[pi].Type
		}
	}
	return hints
}

func (in *interp) argsFit(d *FuncDecl, plan [][]int, argv []argVal) bool {
	if d.Implicit {
		return true
	}
	for pi, idxs := range plan {
		for _, ai := range idxs {
			if !in.accepts(argv[ai].val, d.Params[pi].Type) {
				return false
			}
		}
	}
	return true
}

// bindArgs produces one value per parameter, filling in defaults and
// packing variadic arguments.
func (in *interp) bindArgs(f *FuncVal, plan [][]int, argv []argVal, line int) ([]Value, []ref) {
	d := f.Decl
	const msg = "cannot convert value of type '%s' to expected argument type '%s'"
	vals := make([]Value, len(plan))
	refs := make([]ref, len(plan))

	if d.Implicit {
		for i := range plan {
			vals[i] = argv[i].val
		}
		return vals, refs
	}

	for pi, p := range d.Params {
		idxs := plan[pi]
		switch {
		case p.Variadic:
			elems := make([]Value, len(idxs))
			for i, ai := range idxs {
				elems[i] = in.convert(argv[ai].val, p.Type, line, msg)
			}
			vals[pi] = ArrayVal{Elem: p.Type, Elems: elems}
		case len(idxs) == 0:
			scope := f.Env
			if scope == nil {
				scope = in.global
			}
			v := in.evalHint(scope, p.Default, p.Type)
			vals[pi] = in.convert(v, p.Type, line, msg)
		default:
			a := argv[idxs[0]]
			if p.Inout && a.ref == nil {
				failCompile(line, "passing value of type '%s' to an inout parameter requires explicit '&'", a.val.TypeName())
			}
			if !p.Inout && a.ref != nil {
				failCompile(line, "'&' used with non-inout argument of type '%s'", a.val.TypeName())
			}
			vals[pi] = in.convert(a.val, p.Type, line, msg)
			refs[pi] = a.ref
		}
	}
	return vals, refs
}

// invoke runs a function body. For methods it returns self as the body
// left it, which mutating methods and initializers store back.
func (in *interp) invoke(fv *FuncVal, self *recv, vals []Value, refs []ref, line int) (Value, Value) {
	d := fv.Decl
	in.depth++
	defer func() { in.depth-- }()
	if in.depth > in.maxDepth {
		trap(line, "stack overflow")
	}

	parent := fv.Env
	if parent == nil {
		parent = in.global
	}
	fe := parent.child()
	isInit := d.Name == "init" && self != nil && !d.Closure
	fe.fn = &fnCtx{name: d.Name, result: d.Result, init: isInit, closure: d.Closure}

	var selfSlot *binding
	if self != nil {
		fe.selfType = self.typeName
		fe.static = self.static
		if !self.static {
			selfSlot = &binding{val: self.val, mutable: d.Mutating || isInit, initSelf: isInit, typ: named(self.typeName)}
			fe.vars["self"] = selfSlot
		}
	}

	if d.Implicit {
		for i, v := range vals {
			fe.vars[fmt.Sprintf("$%d", i)] = &binding{val: v, typ: typeOfValue(v)}
		}
	} else {
		for i, p := range d.Params {
			fe.define(p.Name, &binding{val: vals[i], mutable: p.Inout, typ: p.Type})
		}
	}

	ret := in.runBody(fe, d)

	for i, r := range refs {
		if r != nil {
			r.set(fe.vars[d.Params[i].Name].val)
		}
	}
	var selfOut Value
	if selfSlot != nil {
		selfOut = selfSlot.val
	}
	return ret, selfOut
}

func (in *interp) runBody(fe *env, d *FuncDecl) Value {
	returnsValue := d.Result != nil && !isVoidType(d.Result)
	if len(d.Body) == 1 && (returnsValue || d.Closure) {
		if x, ok := d.Body[0].(*ExprStmt); ok {
			in.tick()
			v := in.evalHint(fe, x.X, d.Result)
			if returnsValue {
				v = in.coerce(v, d.Result, x.Line)
			}
			return v
		}
	}

	in.hoist(fe, d.Body)
	for _, s := range d.Body {
		c := in.exec(fe, s)
		switch c.kind {
		case ctrlNone:
			continue
		case ctrlReturn:
			return c.val
		default:
			failCompile(s.Pos(), "%s is only allowed inside a loop", c.kind)
		}
	}
	if returnsValue && d.Name != "init" {
		failCompile(d.Line, "missing return in %s expected to return '%s'", funcKind(d), d.Result)
	}
	return void
}

// callFunc calls a function value with positional arguments, as
// higher-order built-ins such as map do.
func (in *interp) callFunc(f Value, args []Value, line int) Value {
	switch fn := f.(type) {
	case *FuncVal:
		return in.callPositional(fn, splat(fn.Decl, args), line)
	case *FuncSet:
		for _, cand := range fn.Funcs {
			if len(cand.Decl.Params) == len(args) {
				return in.callPositional(cand, args, line)
			}
		}
		failCompile(line, "no exact matches in call to function '%s'", fn.Name)
	case BuiltinVal:
		argv := make([]argVal, len(args))
		for i, v := range args {
			argv[i] = argVal{val: v}
		}
		return fn.Fn(in, line, argv)
	case boundMethod:
		return in.callPositionalMethod(fn, args, line)
	}
	failCompile(line, "cannot call value of non-function type '%s'", f.TypeName())
	return nil
}

// splat spreads a single tuple argument over a closure taking one
// parameter per element, as in dict.map { key, value in ... }.
func splat(d *FuncDecl, args []Value) []Value {
	if len(args) != 1 {
		return args
	}
	t, ok := args[0].(TupleVal)
	if !ok || len(t.Elems) < 2 {
		return args
	}
	n := len(d.Params)
	if d.Implicit {
		n = d.Arity
	}
	if n == len(t.Elems) {
		return t.Elems
	}
	return args
}

func (in *interp) callPositional(fv *FuncVal, args []Value, line int) Value {
	d := fv.Decl
	if d.Implicit {
		ret, _ := in.invoke(fv, nil, args, nil, line)
		return ret
	}
	if len(args) != len(d.Params) {
		failCompile(line, "%s expects %d arguments, but %d were used", funcKind(d), len(d.Params), len(args))
	}
	vals := make([]Value, len(args))
	for i, v := range args {
		vals[i] = in.convert(v, d.Params[i].Type, line, "cannot convert value of type '%s' to expected argument type '%s'")
	}
	ret, _ := in.invoke(fv, nil, vals, make([]ref, len(vals)), line)
	return ret
}

func (in *interp) callPositionalMethod(m boundMethod, args []Value, line int) Value {
	for _, d := range m.decls {
		if len(d.Params) != len(args) || d.Mutating {
			continue
		}
		self := &recv{val: m.recv, typeName: m.td.name, static: m.static}
		ret, _ := in.invoke(&FuncVal{Decl: d}, self, args, make([]ref, len(args)), line)
		return ret
	}
	failCompile(line, "cannot use method '%s' as a function value here", m.decls[0].Name)
	return nil
}

// callMember calls base.name(args): a method, an initializer delegation,
// a function-valued property or a built-in method.
func (in *interp) callMember(e *env, base ref, name string, args []Arg, line int, hint *TypeExpr) Value {
	v := base.get()
	if tv, ok := v.(TypeVal); ok {
		return in.callStatic(e, tv, name, args, line, hint)
	}
	if o, ok := v.(OptionalVal); ok {
		failCompile(line, "value of optional type '%s' must be unwrapped to refer to member '%s' of wrapped base type '%s'", o.TypeName(), name, strings.TrimSuffix(o.TypeName(), "?"))
	}

	if name == "init" {
		newSelf := in.construct(e, named(canonicalName(v.TypeName())), args, line, nil)
		base.set(newSelf)
		return void
	}

	if td := in.typeOf(v); td != nil {
		if decls := in.findMethods(td, name); len(decls) > 0 {
			return in.callMethod(e, base, td, decls, false, args, line)
		}
		if p := in.findComputed(td, name); p != nil {
			return in.callValue(e, in.runGetter(td, p, v, line), args, line, hint)
		}
	}
	if s, ok := v.(StructVal); ok {
		if fv, ok := s.field(name); ok {
			return in.callValue(e, fv, args, line, hint)
		}
	}
	if res, ok := in.builtinMethod(e, base, v, name, args, line); ok {
		return res
	}
	failCompile(line, "value of type '%s' has no member '%s'", v.TypeName(), name)
	return nil
}

// callMethod selects among a type's methods and runs the chosen one with
// base as self. Mutating methods write self back through base.
func (in *interp) callMethod(e *env, base ref, td *typeDesc, decls []*FuncDecl, static bool, args []Arg, line int) Value {
	cands := make([]*FuncVal, len(decls))
	for i, d := range decls {
		cands[i] = &FuncVal{Decl: d}
	}
	fv, vals, refs := in.selectFunc(e, cands, args, line, decls[0].Name)

	self := &recv{typeName: td.name, static: static}
	if !static {
		if fv.Decl.Mutating {
			base.check(line, "use mutating member on")
		}
		self.val = base.get()
		if td.kind == builtinKind || td.kind == protocolKind {
			self.typeName = canonicalName(self.val.TypeName())
			if in.lookupType(self.typeName) == nil {
				self.typeName = td.name
			}
		}
	}
	ret, selfOut := in.invoke(fv, self, vals, refs, line)
	if fv.Decl.Mutating && !static {
		base.set(selfOut)
	}
	return ret
}

// callStatic calls Type.name(args): initializers, static methods, enum
// cases with associated values and built-in type functions.
func (in *interp) callStatic(e *env, tv TypeVal, name string, args []Arg, line int, hint *TypeExpr) Value {
	if name == "init" {
		return in.construct(e, tv.T, args, line, hint)
	}
	if tv.T.Kind == NamedType {
		if td := in.lookupType(tv.T.Name); td != nil {
			if decls := td.staticMethods[name]; len(decls) > 0 {
				return in.callMethod(e, &tempRef{v: tv}, td, decls, true, args, line)
			}
			if c := td.enumCase(name); c != nil && len(c.assoc) > 0 {
				return in.makeCase(e, td, c, args, line)
			}
			if nested := in.lookupType(td.name + "." + name); nested != nil {
				return in.construct(e, named(nested.name), args, line, hint)
			}
		}
		if fn, ok := builtinStatics[canonicalName(tv.T.Name)+"."+name]; ok {
			return fn(in, line, in.evalArgs(e, args, nil))
		}
	}
	return in.callValue(e, in.staticMember(tv, name, line), args, line, hint)
}

// makeCase builds an enum value with associated values.
func (in *interp) makeCase(e *env, td *typeDesc, c *caseDesc, args []Arg, line int) Value {
	decl := &FuncDecl{Name: c.name, Params: c.assoc}
	plan, msg := matchLabels(decl, argLabels(args))
	if msg != "" {
		failCompile(line, "%s", msg)
	}
	fv := &FuncVal{Decl: decl}
	vals, _ := in.bindArgs(fv, plan, in.evalArgs(e, args, paramHints(decl, plan, len(args))), line)
	return in.newCase(td, c, vals)
}

func (in *interp) newCase(td *typeDesc, c *caseDesc, vals []Value) EnumVal {
	ev := EnumVal{Type: td.name, Case: c.name, Assoc: vals}
	for _, p := range c.assoc {
		if p.Label != "" {
			ev.Labels = make([]string, len(c.assoc))
			for i, p := range c.assoc {
				ev.Labels[i] = p.Label
			}
			break
		}
	}
	return ev
}

// construct calls an initializer of t.
func (in *interp) construct(e *env, t *TypeExpr, args []Arg, line int, hint *TypeExpr) Value {
	switch t.Kind {
	case ArrayType, DictType:
		return in.constructCollection(e, t, args, line)
	case OptionalType:
		failCompile(line, "cannot construct value of optional type '%s'", t)
	case NamedType:
	default:
		failCompile(line, "cannot construct value of type '%s'", t)
	}

	td := in.lookupType(t.Name)
	if td == nil {
		return in.constructBuiltin(e, canonicalName(t.Name), args, line)
	}
	switch td.kind {
	case protocolKind:
		failCompile(line, "type '%s' cannot be instantiated", td.name)
	case builtinKind:
		if len(td.inits) > 0 {
			if _, msg := in.pickInit(td, args); msg == "" {
				return in.callInit(e, td, args, line)
			}
		}
		return in.constructBuiltin(e, td.name, args, line)
	case enumKind:
		if len(td.inits) > 0 {
			if _, msg := in.pickInit(td, args); msg == "" || td.rawType == nil {
				return in.callInit(e, td, args, line)
			}
		}
		if td.rawType != nil && len(args) == 1 && args[0].Label == "rawValue" {
			raw := in.evalHint(e, args[0].Value, td.rawType)
			for _, c := range td.cases {
				if valuesEqual(c.raw, raw) {
					return OptionalVal{V: EnumVal{Type: td.name, Case: c.name}}
				}
			}
			return nilOpt
		}
		failCompile(line, "'%s' cannot be constructed because it has no accessible initializers", td.name)
	}

	if len(td.inits) > 0 {
		if _, msg := in.pickInit(td, args); msg == "" || !td.memberwise {
			return in.callInit(e, td, args, line)
		}
	}
	if !td.memberwise {
		failCompile(line, "'%s' cannot be constructed because it has no accessible initializers", td.name)
	}
	return in.memberwise(e, td, args, line)
}

// pickInit reports whether some declared initializer accepts the labels.
func (in *interp) pickInit(td *typeDesc, args []Arg) (*FuncDecl, string) {
	labels := argLabels(args)
	msg := ""
	for _, d := range td.inits {
		_, m := matchLabels(d, labels)
		if m == "" {
			return d, ""
		}
		if msg == "" {
			msg = m
		}
	}
	return nil, msg
}

func (in *interp) callInit(e *env, td *typeDesc, args []Arg, line int) Value {
	cands := make([]*FuncVal, len(td.inits))
	for i, d := range td.inits {
		cands[i] = &FuncVal{Decl: d}
	}
	fv, vals, refs := in.selectFunc(e, cands, args, line, td.name+".init")

	self := &recv{typeName: td.name}
	if td.kind == structKind {
		self.val = in.blankStruct(td)
	}
	ret, selfOut := in.invoke(fv, self, vals, refs, line)
	if o, ok := ret.(OptionalVal); ok && o.V == nil && fv.Decl.Failable {
		return nilOpt
	}
	in.checkInitialized(td, selfOut, fv.Decl.Line)
	if fv.Decl.Failable {
		return OptionalVal{V: selfOut}
	}
	return selfOut
}

// blankStruct is self at the start of an initializer: properties with
// default values are set, the rest are uninitialized.
func (in *interp) blankStruct(td *typeDesc) StructVal {
	s := StructVal{Type: td.name, Names: td.fieldNames(), Fields: make([]Value, len(td.fields))}
	for i, f := range td.fields {
		switch {
		case f.init != nil:
			s.Fields[i] = in.coerce(in.evalHint(in.global, f.init, f.typ), f.typ, 0)
		case f.mutable && f.typ.isOptional():
			s.Fields[i] = nilOpt
		}
	}
	return s
}

func (in *interp) checkInitialized(td *typeDesc, self Value, line int) {
	if self == nil {
		failCompile(line, "'self' used before 'self.init' call or assignment to 'self'")
	}
	s, ok := self.(StructVal)
	if !ok {
		return
	}
	for i, f := range s.Fields {
		if f == nil {
			failCompile(line, "return from initializer without initializing all stored properties (missing '%s')", s.Names[i])
		}
	}
}

// memberwise is the synthesized initializer of a struct without declared
// initializers. let properties with a default value are not parameters.
func (in *interp) memberwise(e *env, td *typeDesc, args []Arg, line int) Value {
	decl := &FuncDecl{Name: "init"}
	var index []int
	for i, f := range td.fields {
		if !f.mutable && f.init != nil {
			continue
		}
		decl.Params = append(decl.Params, &Param{Label: f.name, Name: f.name, Type: f.typ, Default: f.init})
		index = append(index, i)
	}
	plan, msg := matchLabels(decl, argLabels(args))
	if msg != "" {
		failCompile(line, "%s", msg)
	}
	fv := &FuncVal{Decl: decl}
	vals, _ := in.bindArgs(fv, plan, in.evalArgs(e, args, paramHints(decl, plan, len(args))), line)

	s := in.blankStruct(td)
	for pi, fi := range index {
		s.Fields[fi] = vals[pi]
	}
	return s
}
