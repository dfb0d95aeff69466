package swiftlet

// ref is an assignable location: a variable, a property, an element.
type ref interface {
	get() Value
	set(v Value)

	// check fails with a compile error when the location cannot be
	// modified. verb is "assign to" or "use mutating member on".
	check(line int, verb string)

	// describe names the root variable for diagnostics.
	describe() string
}

type varRef struct {
	in   *interp
	b    *binding
	name string
	line int
}

func (r *varRef) get() Value {
	if r.b.val == nil {
		kind := "variable"
		if !r.b.mutable {
			kind = "constant"
		}
		failCompile(r.line, "%s '%s' used before being initialized", kind, r.name)
	}
	return r.b.val
}

func (r *varRef) set(v Value) {
	r.b.val = r.in.coerceAssign(v, r.b.typ, r.line)
}

func (r *varRef) check(line int, verb string) {
	if r.b.mutable || r.b.val == nil {
		return
	}
	if r.name == "self" {
		failCompile(line, "cannot %s property: 'self' is immutable", verb)
	}
	if verb == "assign to" {
		failCompile(line, "cannot assign to value: '%s' is a 'let' constant", r.name)
	}
	failCompile(line, "cannot %s immutable value: '%s' is a 'let' constant", verb, r.name)
}

func (r *varRef) describe() string { return r.name }

// initializing reports whether r is self inside an initializer, where let
// properties may still be assigned.
func (r *varRef) initializing() bool {
	return r.name == "self" && r.b.initSelf
}

type memberRef struct {
	in   *interp
	base ref
	name string
	line int
}

func (r *memberRef) get() Value {
	return r.in.getMember(r.base.get(), r.name, r.line)
}

func (r *memberRef) set(v Value) {
	r.in.setMember(r.base, r.name, v, r.line)
}

func (r *memberRef) check(line int, verb string) {
	if vr, ok := r.base.(*varRef); ok && vr.initializing() {
		return
	}
	if tv, ok := r.base.get().(TypeVal); ok {
		r.in.checkStaticAssignable(tv, r.name, line)
		return
	}
	r.base.check(line, verb)
	r.in.checkMemberAssignable(r.base.get(), r.name, line, verb)
}

func (r *memberRef) describe() string { return r.base.describe() }

type indexRef struct {
	in   *interp
	base ref
	args []argVal
	line int
}

func (r *indexRef) get() Value {
	return r.in.subscript(r.base.get(), r.args, r.line)
}

func (r *indexRef) set(v Value) {
	r.base.set(r.in.subscriptSet(r.base.get(), r.args, v, r.line))
}

func (r *indexRef) check(line int, verb string) {
	r.base.check(line, verb)
	if _, ok := r.base.get().(RangeVal); ok {
		failCompile(line, "cannot %s immutable value of type '%s'", verb, r.base.get().TypeName())
	}
}

func (r *indexRef) describe() string { return r.base.describe() }

// unwrapRef is x! or x? used as a location.
type unwrapRef struct {
	in    *interp
	base  ref
	chain bool
	line  int
}

func (r *unwrapRef) get() Value {
	v := r.base.get()
	o, ok := v.(OptionalVal)
	if !ok {
		return v
	}
	if o.V == nil {
		if r.chain {
			panic(errChainNil)
		}
		trap(r.line, "Unexpectedly found nil while unwrapping an Optional value")
	}
	return o.V
}

func (r *unwrapRef) set(v Value) {
	r.get()
	r.base.set(wrap(v))
}

func (r *unwrapRef) check(line int, verb string) { r.base.check(line, verb) }

func (r *unwrapRef) describe() string { return r.base.describe() }

// tempRef holds an rvalue: reads work, writes fail.
type tempRef struct {
	v Value
}

func (r *tempRef) get() Value  { return r.v }
func (r *tempRef) set(v Value) { r.v = v }

func (r *tempRef) check(line int, verb string) {
	failCompile(line, "cannot %s immutable value of type '%s'", verb, r.v.TypeName())
}

func (r *tempRef) describe() string { return "value" }
