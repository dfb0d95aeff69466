package swiftlet

import (
	"math"
	"slices"
	"strconv"
)

// boundMethod is a method read as a value: list.sorted, self.helper.
type boundMethod struct {
	recv   Value
	td     *typeDesc
	decls  []*FuncDecl
	static bool
}

func (boundMethod) TypeName() string { return "function" }

func (in *interp) lookupType(name string) *typeDesc {
	if td, ok := in.scope.types[name]; ok {
		return td
	}
	if td, ok := in.scope.types[canonicalName(name)]; ok {
		return td
	}
	return nil
}

// builtinTypeKey names the extension slot of a built-in value's type.
func builtinTypeKey(v Value) string {
	switch v.(type) {
	case ArrayVal:
		return "Array"
	case DictVal:
		return "Dictionary"
	case RangeVal:
		return "Range"
	}
	return canonicalName(v.TypeName())
}

// typeOf returns the descriptor of v's type, including extended built-in
// types, or nil.
func (in *interp) typeOf(v Value) *typeDesc {
	switch x := v.(type) {
	case StructVal:
		return in.lookupType(x.Type)
	case EnumVal:
		return in.lookupType(x.Type)
	case OptionalVal, TupleVal, TypeVal, *FuncVal, *FuncSet, BuiltinVal, boundMethod:
		return nil
	}
	return in.lookupType(builtinTypeKey(v))
}

// protocols lists every protocol td conforms to, directly or through
// protocol inheritance.
func (in *interp) protocols(td *typeDesc) []*typeDesc {
	var out []*typeDesc
	seen := map[string]bool{}
	var walk func(names []string)
	walk = func(names []string) {
		for _, n := range names {
			if seen[n] {
				continue
			}
			seen[n] = true
			if p := in.lookupType(n); p != nil && p.kind == protocolKind {
				out = append(out, p)
				walk(p.conforms)
			}
		}
	}
	walk(td.conforms)
	return out
}

func (in *interp) conformsTo(td *typeDesc, proto string) bool {
	if slices.Contains(td.conforms, proto) {
		return true
	}
	for _, p := range in.protocols(td) {
		if p.name == proto || slices.Contains(p.conforms, proto) {
			return true
		}
	}
	return false
}

func (in *interp) valueConforms(v Value, proto string) bool {
	if td := in.typeOf(v); td != nil && in.conformsTo(td, proto) {
		return true
	}
	switch v.(type) {
	case StructVal, EnumVal:
		return false
	}
	return builtinProtocols[proto]
}

// findMethods returns the methods named name of td, falling back to the
// default implementations of its protocols.
func (in *interp) findMethods(td *typeDesc, name string) []*FuncDecl {
	if decls := td.methods[name]; len(decls) > 0 {
		return decls
	}
	for _, p := range in.protocols(td) {
		if decls := p.methods[name]; len(decls) > 0 {
			return decls
		}
	}
	return nil
}

func (in *interp) findComputed(td *typeDesc, name string) *propDesc {
	if p, ok := td.computed[name]; ok {
		return p
	}
	if td.field(name) != nil {
		return nil
	}
	for _, proto := range in.protocols(td) {
		if p, ok := proto.computed[name]; ok {
			return p
		}
	}
	return nil
}

func (in *interp) hasInstanceMember(td *typeDesc, name string) bool {
	if td.field(name) != nil || in.findComputed(td, name) != nil || len(in.findMethods(td, name)) > 0 {
		return true
	}
	return td.kind == enumKind && name == "rawValue" && td.rawType != nil
}

func (in *interp) hasStatic(td *typeDesc, name string) bool {
	if slices.Contains(td.staticNames, name) || td.enumCase(name) != nil {
		return true
	}
	if _, ok := td.staticComputed[name]; ok {
		return true
	}
	_, ok := td.staticMethods[name]
	return ok
}

// runGetter evaluates a computed property on self.
func (in *interp) runGetter(td *typeDesc, p *propDesc, self Value, line int) Value {
	decl := &FuncDecl{Name: p.name, Result: p.typ, Body: p.acc.Get}
	decl.Line = line
	ret, _ := in.invoke(&FuncVal{Decl: decl}, &recv{val: self, typeName: td.name, static: self == nil}, nil, nil, line)
	return ret
}

// runSetter runs a computed property's setter and returns the new self.
func (in *interp) runSetter(td *typeDesc, p *propDesc, self Value, v Value, line int) Value {
	name := p.acc.SetName
	if name == "" {
		name = "newValue"
	}
	decl := &FuncDecl{
		Name:     p.name,
		Params:   []*Param{{Name: name, Type: p.typ}},
		Body:     p.acc.Set,
		Mutating: true,
	}
	decl.Line = line
	_, selfOut := in.invoke(&FuncVal{Decl: decl}, &recv{val: self, typeName: td.name, static: self == nil}, []Value{v}, []ref{nil}, line)
	return selfOut
}

// runObserver runs a willSet or didSet block. didSet may modify self.
func (in *interp) runObserver(td *typeDesc, body []Stmt, param string, arg Value, self Value, mutating bool, line int) Value {
	decl := &FuncDecl{Name: "observer", Params: []*Param{{Name: param}}, Body: body, Mutating: mutating}
	decl.Line = line
	_, selfOut := in.invoke(&FuncVal{Decl: decl}, &recv{val: self, typeName: td.name}, []Value{arg}, []ref{nil}, line)
	return selfOut
}

// customDescription renders values of CustomStringConvertible types
// through their description property.
func (in *interp) customDescription(v Value) (string, bool) {
	switch v.(type) {
	case StructVal, EnumVal:
	default:
		return "", false
	}
	td := in.typeOf(v)
	if td == nil || !in.conformsTo(td, "CustomStringConvertible") {
		return "", false
	}
	var d Value
	if p := in.findComputed(td, "description"); p != nil {
		d = in.runGetter(td, p, v, 0)
	} else if s, ok := v.(StructVal); ok {
		d, _ = s.field("description")
	}
	if s, ok := d.(StringVal); ok {
		return string(s), true
	}
	return "", false
}

// getMember reads recv.name.
func (in *interp) getMember(recv Value, name string, line int) Value {
	switch x := recv.(type) {
	case TypeVal:
		return in.staticMember(x, name, line)
	case OptionalVal:
		failCompile(line, "value of optional type '%s' must be unwrapped to refer to member '%s' of wrapped base type '%s'", x.TypeName(), name, typeNameOf(x.V))
	case TupleVal:
		if i := tupleIndex(x, name); i >= 0 {
			return x.Elems[i]
		}
	case StructVal:
		if v, ok := x.field(name); ok {
			if v == nil {
				failCompile(line, "'self' used before all stored properties are initialized")
			}
			return v
		}
	}

	if td := in.typeOf(recv); td != nil {
		if p := in.findComputed(td, name); p != nil {
			return in.runGetter(td, p, recv, line)
		}
		if decls := in.findMethods(td, name); len(decls) > 0 {
			return boundMethod{recv: recv, td: td, decls: decls}
		}
	}
	if ev, ok := recv.(EnumVal); ok && name == "rawValue" {
		if td := in.lookupType(ev.Type); td != nil && td.rawType != nil {
			return td.enumCase(ev.Case).raw
		}
	}
	if v, ok := in.builtinProperty(recv, name, line); ok {
		return v
	}
	failCompile(line, "value of type '%s' has no member '%s'", recv.TypeName(), name)
	return nil
}

func typeNameOf(v Value) string {
	if v == nil {
		return "Wrapped"
	}
	return v.TypeName()
}

func tupleIndex(t TupleVal, name string) int {
	if i, err := strconv.Atoi(name); err == nil {
		if i < len(t.Elems) {
			return i
		}
		return -1
	}
	for i, l := range t.Labels {
		if l == name {
			return i
		}
	}
	return -1
}

// setMember stores v into base.name and writes the updated value back
// through base.
func (in *interp) setMember(base ref, name string, v Value, line int) {
	recv := base.get()
	switch x := recv.(type) {
	case TypeVal:
		in.setStatic(x, name, v, line)
		return
	case TupleVal:
		i := tupleIndex(x, name)
		if i < 0 {
			break
		}
		elems := append([]Value(nil), x.Elems...)
		elems[i] = in.coerceAssign(v, typeOfValue(x.Elems[i]), line)
		base.set(TupleVal{Labels: x.Labels, Elems: elems})
		return
	case StructVal:
		td := in.lookupType(x.Type)
		if fd := td.field(name); fd != nil {
			in.setField(base, x, td, fd, v, line)
			return
		}
	}

	if td := in.typeOf(recv); td != nil {
		if p := in.findComputed(td, name); p != nil {
			if p.acc.Set == nil {
				failCompile(line, "cannot assign to property: '%s' is a get-only property", name)
			}
			base.set(in.runSetter(td, p, recv, in.coerceAssign(v, p.typ, line), line))
			return
		}
	}
	if _, ok := in.builtinProperty(recv, name, line); ok {
		failCompile(line, "cannot assign to property: '%s' is a get-only property", name)
	}
	failCompile(line, "value of type '%s' has no member '%s'", recv.TypeName(), name)
}

func (in *interp) setField(base ref, s StructVal, td *typeDesc, fd *fieldDesc, v Value, line int) {
	typ := fd.typ
	old, _ := s.field(fd.name)
	if typ == nil {
		typ = typeOfValue(old)
	}
	v = in.coerceAssign(v, typ, line)

	initializing := false
	if vr, ok := base.(*varRef); ok && vr.initializing() {
		initializing = true
	}
	key := td.name + "." + fd.name
	if fd.observe == nil || initializing || in.observing[key] {
		base.set(s.withField(fd.name, v))
		return
	}

	in.observing[key] = true
	defer delete(in.observing, key)
	if fd.observe.WillSet != nil {
		param := fd.observe.WillSetVar
		if param == "" {
			param = "newValue"
		}
		in.runObserver(td, fd.observe.WillSet, param, v, s, false, line)
	}
	base.set(s.withField(fd.name, v))
	if fd.observe.DidSet != nil {
		param := fd.observe.DidSetVar
		if param == "" {
			param = "oldValue"
		}
		base.set(in.runObserver(td, fd.observe.DidSet, param, old, base.get(), true, line))
	}
}

func (in *interp) setStatic(tv TypeVal, name string, v Value, line int) {
	td := in.lookupType(tv.T.String())
	if td == nil {
		failCompile(line, "cannot assign to property: '%s' is a get-only property", name)
	}
	if b, ok := in.scope.vars[staticKey(td.name, name)]; ok {
		typ := b.typ
		if typ == nil {
			typ = typeOfValue(b.val)
		}
		b.val = in.coerceAssign(v, typ, line)
		return
	}
	if p, ok := td.staticComputed[name]; ok && p.acc.Set != nil {
		in.runSetter(td, p, nil, in.coerceAssign(v, p.typ, line), line)
		return
	}
	failCompile(line, "cannot assign to property: '%s' is a get-only property", name)
}

func (in *interp) checkMemberAssignable(recv Value, name string, line int, verb string) {
	switch x := recv.(type) {
	case TupleVal:
		return
	case StructVal:
		td := in.lookupType(x.Type)
		if fd := td.field(name); fd != nil {
			if !fd.mutable {
				if verb == "assign to" {
					failCompile(line, "cannot assign to property: '%s' is a 'let' constant", name)
				}
				failCompile(line, "cannot %s immutable value: '%s' is a 'let' constant", verb, name)
			}
			return
		}
	}
	if td := in.typeOf(recv); td != nil {
		if p := in.findComputed(td, name); p != nil {
			if p.acc.Set == nil {
				failCompile(line, "cannot %s property: '%s' is a get-only property", verbWord(verb), name)
			}
			return
		}
	}
	if _, ok := recv.(OptionalVal); ok {
		return
	}
	failCompile(line, "cannot %s property: '%s' is a get-only property", verbWord(verb), name)
}

func verbWord(verb string) string {
	if verb == "assign to" {
		return verb
	}
	return "mutate"
}

func (in *interp) checkStaticAssignable(tv TypeVal, name string, line int) {
	td := in.lookupType(tv.T.String())
	if td == nil {
		failCompile(line, "cannot assign to property: '%s' is a get-only property", name)
	}
	if b, ok := in.scope.vars[staticKey(td.name, name)]; ok {
		if !b.mutable {
			failCompile(line, "cannot assign to property: '%s' is a 'let' constant", name)
		}
		return
	}
	if p, ok := td.staticComputed[name]; ok && p.acc.Set != nil {
		return
	}
	failCompile(line, "cannot assign to property: '%s' is a get-only property", name)
}

// staticMember reads Type.name: enum cases, static properties, nested
// types and built-in constants.
func (in *interp) staticMember(tv TypeVal, name string, line int) Value {
	t := tv.T
	if t.Kind == OptionalType && name == "none" {
		return nilOpt
	}
	if t.Kind != NamedType {
		failCompile(line, "type '%s' has no member '%s'", t, name)
	}
	if td := in.lookupType(t.Name); td != nil {
		if c := td.enumCase(name); c != nil {
			if len(c.assoc) == 0 {
				return EnumVal{Type: td.name, Case: c.name}
			}
			return BuiltinVal{Name: name, Fn: func(in *interp, line int, args []argVal) Value {
				vals := make([]Value, len(args))
				for i, a := range args {
					vals[i] = a.val
				}
				return in.newCase(td, c, vals)
			}}
		}
		if b, ok := in.scope.vars[staticKey(td.name, name)]; ok {
			if b.val == nil {
				failCompile(line, "static property '%s' used before being initialized", name)
			}
			return b.val
		}
		if p, ok := td.staticComputed[name]; ok {
			return in.runGetter(td, p, nil, line)
		}
		if decls := td.staticMethods[name]; len(decls) > 0 {
			return boundMethod{td: td, decls: decls, static: true}
		}
		if nested := in.lookupType(td.name + "." + name); nested != nil {
			return TypeVal{T: named(nested.name)}
		}
		if name == "allCases" && td.kind == enumKind {
			cases := ArrayVal{Elem: named(td.name)}
			for _, c := range td.cases {
				if len(c.assoc) > 0 {
					failCompile(line, "type '%s' does not conform to protocol 'CaseIterable'", td.name)
				}
				cases.Elems = append(cases.Elems, EnumVal{Type: td.name, Case: c.name})
			}
			return cases
		}
		if td.kind != builtinKind {
			failCompile(line, "type '%s' has no member '%s'", td.name, name)
		}
	}
	if v, ok := builtinConstant(canonicalName(t.Name), name); ok {
		return v
	}
	if fn, ok := builtinStatics[canonicalName(t.Name)+"."+name]; ok {
		return BuiltinVal{Name: name, Fn: fn}
	}
	failCompile(line, "type '%s' has no member '%s'", t, name)
	return nil
}

func builtinConstant(typeName, name string) (Value, bool) {
	switch typeName + "." + name {
	case "Int.max":
		return IntVal(math.MaxInt64), true
	case "Int.min":
		return IntVal(math.MinInt64), true
	case "Int.zero":
		return IntVal(0), true
	case "Double.pi":
		return DoubleVal(math.Pi), true
	case "Double.infinity":
		return DoubleVal(math.Inf(1)), true
	case "Double.nan":
		return DoubleVal(math.NaN()), true
	case "Double.greatestFiniteMagnitude":
		return DoubleVal(math.MaxFloat64), true
	case "Double.leastNonzeroMagnitude":
		return DoubleVal(math.SmallestNonzeroFloat64), true
	case "Double.zero":
		return DoubleVal(0), true
	}
	switch typeName {
	case "FloatingPointRoundingRule", "CharacterSet":
		return EnumVal{Type: typeName, Case: name}, true
	}
	return nil, false
}

// subscript reads v[args].
func (in *interp) subscript(v Value, args []argVal, line int) Value {
	switch x := v.(type) {
	case ArrayVal:
		if len(args) != 1 || args[0].label != "" {
			break
		}
		switch i := args[0].val.(type) {
		case IntVal:
			if i < 0 || int(i) >= len(x.Elems) {
				trap(line, "Index out of range")
			}
			return x.Elems[i]
		case RangeVal:
			lo, hi := sliceBounds(i, len(x.Elems), line)
			return ArrayVal{Elem: x.Elem, Elems: slices.Clone(x.Elems[lo:hi])}
		}
		failCompile(line, "cannot subscript a value of type '%s' with an argument of type '%s'", v.TypeName(), args[0].val.TypeName())
	case DictVal:
		if len(args) == 0 || args[0].label != "" {
			break
		}
		val, ok := x.Get(args[0].val)
		if len(args) == 2 && args[1].label == "default" {
			if !ok {
				return args[1].val
			}
			return val
		}
		if len(args) != 1 {
			break
		}
		if !ok {
			return nilOpt
		}
		return OptionalVal{V: val}
	case StringVal:
		if len(args) == 1 {
			if r, ok := args[0].val.(RangeVal); ok {
				chars := characters(string(x))
				lo, hi := sliceBounds(r, len(chars), line)
				return StringVal(joinStrings(chars[lo:hi], ""))
			}
		}
		failCompile(line, "'subscript(_:)' is unavailable: cannot subscript String with an Int, use a String.Index instead.")
	}
	failCompile(line, "value of type '%s' has no subscripts", v.TypeName())
	return nil
}

func sliceBounds(r RangeVal, n, line int) (int, int) {
	lo, lok := r.Lo.(IntVal)
	hi, hok := r.Hi.(IntVal)
	if !lok || !hok {
		failCompile(line, "subscript range must be of type 'Int'")
	}
	if r.Closed {
		hi++
	}
	if lo < 0 || int(hi) > n {
		trap(line, "Index out of range")
	}
	return int(lo), int(hi)
}

// subscriptSet returns v with v[args] replaced by nv.
func (in *interp) subscriptSet(v Value, args []argVal, nv Value, line int) Value {
	switch x := v.(type) {
	case ArrayVal:
		i, ok := args[0].val.(IntVal)
		if len(args) != 1 || !ok {
			failCompile(line, "cannot assign through subscript of type '%s'", v.TypeName())
		}
		if i < 0 || int(i) >= len(x.Elems) {
			trap(line, "Index out of range")
		}
		elemType := x.Elem
		if elemType == nil {
			elemType = typeOfValue(x.Elems[i])
		}
		return x.with(int(i), in.coerceAssign(nv, elemType, line))
	case DictVal:
		key := args[0].val
		if x.Key != nil {
			key = in.coerce(key, x.Key, line)
		}
		if o, ok := nv.(OptionalVal); ok && (x.Val == nil || !x.Val.isOptional()) {
			if o.V == nil {
				return x.Without(key)
			}
			nv = o.V
		}
		if x.Val != nil {
			nv = in.coerceAssign(nv, x.Val, line)
		}
		return x.With(key, nv)
	}
	failCompile(line, "cannot assign through subscript: value of type '%s' has no subscripts", v.TypeName())
	return nil
}
