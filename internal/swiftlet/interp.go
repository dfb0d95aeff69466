package swiftlet

import (
	"context"
	"errors"
	"fmt"
)

// Output receives what a cell prints and its trailing value.
type Output interface {
	Write(text string) error
	SetFinal(value string) error
}

// Options tunes one Run.
type Options struct {
	// MaxCallDepth caps recursion; deeper calls trap with a stack
	// overflow. 0 selects DefaultMaxCallDepth.
	MaxCallDepth int
}

const (
	DefaultMaxCallDepth = 256

	// checkEvery is how many steps run between context polls.
	checkEvery = 256
)

type chainNil struct{}

// errChainNil unwinds an optional chain that met nil.
var errChainNil = &chainNil{}

type interrupted struct{ err error }

// Run parses, checks and executes src against scope. Declarations of a
// successful run stay in scope; a failed run may leave partial changes, so
// callers wanting rollback run against scope.Clone().
//
// The returned error is an *Error for compile errors and traps, or the
// context's error when ctx ends first.
func Run(ctx context.Context, src string, scope *Scope, out Output, opts Options) (err error) {
	stmts, err := Parse(src)
	if err != nil {
		return err
	}
	if err := Check(stmts, scope); err != nil {
		return err
	}

	in := newInterp(ctx, scope, out, opts)
	defer func() {
		if r := recover(); r != nil {
			switch x := r.(type) {
			case *Error:
				err = x
			case interrupted:
				err = x.err
			default:
				panic(r)
			}
		}
	}()
	in.runTop(stmts)
	return nil
}

type interp struct {
	ctx      context.Context
	scope    *Scope
	out      Output
	global   *env
	steps    int
	depth    int
	maxDepth int

	// observing holds the properties whose observers are running, which
	// do not fire again for their own assignments.
	observing map[string]bool
}

func newInterp(ctx context.Context, scope *Scope, out Output, opts Options) *interp {
	in := &interp{
		ctx:       ctx,
		scope:     scope,
		out:       out,
		maxDepth:  opts.MaxCallDepth,
		observing: map[string]bool{},
	}
	if in.maxDepth <= 0 {
		in.maxDepth = DefaultMaxCallDepth
	}
	in.global = &env{vars: scope.vars}
	return in
}

// tick counts a step and aborts once the context is done.
func (in *interp) tick() {
	in.steps++
	if in.steps%checkEvery != 0 {
		return
	}
	if err := in.ctx.Err(); err != nil {
		panic(interrupted{err: err})
	}
}

func (in *interp) write(text string) {
	if err := in.out.Write(text); err != nil {
		panic(runtimeErr(0, "output: %v", err))
	}
}

func (in *interp) render() renderer {
	return renderer{custom: in.customDescription}
}

// runTop executes the top level of a cell. The value of a trailing
// expression statement becomes the cell's final value.
func (in *interp) runTop(stmts []Stmt) {
	in.hoist(in.global, stmts)
	for i, s := range stmts {
		if x, ok := s.(*ExprStmt); ok && i == len(stmts)-1 {
			v := in.eval(in.global, x.X)
			if _, isVoid := v.(VoidVal); !isVoid {
				if err := in.out.SetFinal(in.render().debug(v)); err != nil {
					panic(runtimeErr(x.Line, "output: %v", err))
				}
			}
			return
		}
		c := in.exec(in.global, s)
		if c.kind != ctrlNone {
			failCompile(s.Pos(), "%s is only allowed inside a loop or function", c.kind)
		}
	}
}

// env is a lexical environment. The outermost env holds the scope's
// globals.
type env struct {
	vars   map[string]*binding
	parent *env

	// selfType names the type whose members resolve implicitly, set in
	// method and initializer bodies. static is set in static methods.
	selfType string
	static   bool

	fn *fnCtx
}

type fnCtx struct {
	name    string
	result  *TypeExpr
	init    bool
	closure bool
}

func (e *env) child() *env {
	return &env{vars: map[string]*binding{}, parent: e}
}

func (e *env) define(name string, b *binding) {
	if name == "_" {
		return
	}
	e.vars[name] = b
}

func (e *env) function() *fnCtx {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.fn != nil {
			return cur.fn
		}
	}
	return nil
}

type ctrlKind int

const (
	ctrlNone ctrlKind = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
	ctrlFallthrough
)

func (k ctrlKind) String() string {
	switch k {
	case ctrlBreak:
		return "'break'"
	case ctrlContinue:
		return "'continue'"
	case ctrlReturn:
		return "'return'"
	case ctrlFallthrough:
		return "'fallthrough'"
	}
	return "statement"
}

type ctrl struct {
	kind ctrlKind
	val  Value
}

var normal = ctrl{}

// hoist binds the functions of a block before its statements run, so they
// can be called before their declaration.
func (in *interp) hoist(e *env, stmts []Stmt) {
	for _, s := range stmts {
		if f, ok := s.(*FuncDecl); ok {
			in.declareFunc(e, f)
		}
	}
}

func (in *interp) execBlock(e *env, stmts []Stmt) ctrl {
	inner := e.child()
	in.hoist(inner, stmts)
	for _, s := range stmts {
		if c := in.exec(inner, s); c.kind != ctrlNone {
			return c
		}
	}
	return normal
}

func (in *interp) exec(e *env, s Stmt) ctrl {
	in.tick()
	switch s := s.(type) {
	case *ExprStmt:
		in.eval(e, s.X)
	case *AssignStmt:
		in.assign(e, s)
	case *VarDecl:
		in.declareVar(e, s)
	case *FuncDecl:
		// Hoisted.
	case *StructDecl:
		in.declareStruct(s, "")
	case *EnumDecl:
		in.declareEnum(s, "")
	case *ProtocolDecl:
		in.declareProtocol(s)
	case *ExtensionDecl:
		in.declareExtension(s)
	case *ImportStmt:
	case *BlockStmt:
		return in.execBlock(e, s.Body)
	case *IfStmt:
		return in.execIf(e, s)
	case *GuardStmt:
		return in.execGuard(e, s)
	case *WhileStmt:
		return in.execWhile(e, s)
	case *RepeatStmt:
		return in.execRepeat(e, s)
	case *ForStmt:
		return in.execFor(e, s)
	case *SwitchStmt:
		return in.execSwitch(e, s)
	case *BreakStmt:
		return ctrl{kind: ctrlBreak}
	case *ContinueStmt:
		return ctrl{kind: ctrlContinue}
	case *FallthroughStmt:
		return ctrl{kind: ctrlFallthrough}
	case *ReturnStmt:
		return in.execReturn(e, s)
	default:
		failCompile(s.Pos(), "unsupported statement %T", s)
	}
	return normal
}

func (in *interp) execReturn(e *env, s *ReturnStmt) ctrl {
	fn := e.function()
	if fn == nil {
		failCompile(s.Line, "return invalid outside of a func")
	}
	if s.Value == nil {
		if fn.result != nil && !fn.init && !isVoidType(fn.result) {
			failCompile(s.Line, "non-void function should return a value")
		}
		return ctrl{kind: ctrlReturn, val: void}
	}
	if _, isNil := s.Value.(*NilLit); isNil && fn.init {
		return ctrl{kind: ctrlReturn, val: nilOpt}
	}
	if fn.closure && fn.result == nil {
		return ctrl{kind: ctrlReturn, val: in.eval(e, s.Value)}
	}
	if fn.result == nil || isVoidType(fn.result) {
		v := in.eval(e, s.Value)
		if _, ok := v.(VoidVal); !ok {
			failCompile(s.Line, "unexpected non-void return value in void function")
		}
		return ctrl{kind: ctrlReturn, val: void}
	}
	v := in.evalHint(e, s.Value, fn.result)
	return ctrl{kind: ctrlReturn, val: in.coerce(v, fn.result, s.Line)}
}

func isVoidType(t *TypeExpr) bool {
	return t != nil && t.Kind == NamedType && canonicalName(t.Name) == "()"
}

func (in *interp) execIf(e *env, s *IfStmt) ctrl {
	inner := e.child()
	if in.evalConds(inner, s.Conds) {
		return in.execBlock(inner, s.Then)
	}
	if s.Else != nil {
		return in.execBlock(e, s.Else)
	}
	return normal
}

func (in *interp) execGuard(e *env, s *GuardStmt) ctrl {
	// Bindings of a guard stay visible after it.
	if in.evalConds(e, s.Conds) {
		return normal
	}
	c := in.execBlock(e, s.Else)
	if c.kind == ctrlNone {
		failCompile(s.Line, "'guard' body must not fall through, consider using a 'return' or 'throw' to exit the scope")
	}
	return c
}

func (in *interp) execWhile(e *env, s *WhileStmt) ctrl {
	for {
		in.tick()
		inner := e.child()
		if !in.evalConds(inner, s.Conds) {
			return normal
		}
		c := in.execBlock(inner, s.Body)
		switch c.kind {
		case ctrlBreak:
			return normal
		case ctrlReturn:
			return c
		}
	}
}

func (in *interp) execRepeat(e *env, s *RepeatStmt) ctrl {
	for {
		in.tick()
		c := in.execBlock(e, s.Body)
		switch c.kind {
		case ctrlBreak:
			return normal
		case ctrlReturn:
			return c
		}
		if !in.condition(e, s.Cond) {
			return normal
		}
	}
}

func (in *interp) execFor(e *env, s *ForStmt) ctrl {
	seq := in.eval(e, s.Seq)
	items := in.sequence(seq, s.Seq.Pos())
	for _, item := range items {
		in.tick()
		inner := e.child()
		in.bindPattern(inner, s.Pattern, item, s.Line)
		if s.Where != nil && !in.condition(inner, s.Where) {
			continue
		}
		c := in.execBlock(inner, s.Body)
		switch c.kind {
		case ctrlBreak:
			return normal
		case ctrlReturn:
			return c
		}
	}
	return normal
}

// sequence lists the elements a for-in loop visits.
func (in *interp) sequence(v Value, line int) []Value {
	switch x := v.(type) {
	case ArrayVal:
		return x.Elems
	case RangeVal:
		return rangeElems(x, line)
	case DictVal:
		out := make([]Value, x.Len())
		for i := range x.keys {
			out[i] = TupleVal{Labels: []string{"key", "value"}, Elems: []Value{x.keys[i], x.vals[i]}}
		}
		return out
	case StringVal:
		return characters(string(x))
	}
	failCompile(line, "for-in loop requires '%s' to conform to 'Sequence'", v.TypeName())
	return nil
}

func rangeElems(r RangeVal, line int) []Value {
	lo, lok := r.Lo.(IntVal)
	hi, hok := r.Hi.(IntVal)
	if !lok || !hok {
		failCompile(line, "for-in loop requires '%s' to conform to 'Sequence'", r.TypeName())
	}
	if !r.Closed {
		hi--
	}
	var out []Value
	for i := lo; i <= hi; i++ {
		out = append(out, i)
		if i == hi {
			break
		}
	}
	return out
}

func (in *interp) execSwitch(e *env, s *SwitchStmt) ctrl {
	subject := in.eval(e, s.Subject)
	in.checkExhaustive(s, subject)

	matched := -1
	var caseEnv *env
	for i, c := range s.Cases {
		caseEnv = e.child()
		if c.Default || in.matchCase(caseEnv, c, subject) {
			matched = i
			break
		}
	}
	if matched < 0 {
		return normal
	}

	for i := matched; i < len(s.Cases); i++ {
		if i > matched {
			caseEnv = e.child()
		}
		c := in.execBlock(caseEnv, s.Cases[i].Body)
		switch c.kind {
		case ctrlFallthrough:
			continue
		case ctrlBreak:
			return normal
		default:
			return c
		}
	}
	return normal
}

func (in *interp) matchCase(e *env, c *SwitchCase, subject Value) bool {
	for _, p := range c.Patterns {
		bind := e.child()
		if !in.matchPattern(bind, p, subject, c.Line) {
			continue
		}
		for name, b := range bind.vars {
			e.vars[name] = b
		}
		if c.Where == nil || in.condition(e, c.Where) {
			return true
		}
	}
	return false
}

// checkExhaustive rejects switches without default that miss enum cases
// or switch over open-ended values.
func (in *interp) checkExhaustive(s *SwitchStmt, subject Value) {
	covered := map[string]bool{}
	allTrue, allFalse := false, false
	for _, c := range s.Cases {
		if c.Default {
			return
		}
		for _, p := range c.Patterns {
			switch p := p.(type) {
			case *WildcardPattern:
				return
			case *BindPattern:
				if c.Where == nil {
					return
				}
			case *EnumPattern:
				if c.Where == nil && !p.HasElems || c.Where == nil && allBinding(p.Elems) {
					covered[p.Case] = true
				}
			case *ExprPattern:
				if b, ok := p.X.(*BoolLit); ok && c.Where == nil {
					if b.Val {
						allTrue = true
					} else {
						allFalse = true
					}
				}
			}
		}
	}

	switch x := subject.(type) {
	case EnumVal:
		if td := in.lookupType(x.Type); td != nil {
			for _, ec := range td.cases {
				if !covered[ec.name] {
					failCompile(s.Line, "switch must be exhaustive (missing case '.%s')", ec.name)
				}
			}
			return
		}
	case BoolVal:
		if allTrue && allFalse {
			return
		}
	}
	failCompile(s.Line, "switch must be exhaustive")
}

func allBinding(ps []Pattern) bool {
	for _, p := range ps {
		switch p.(type) {
		case *BindPattern, *WildcardPattern:
		default:
			return false
		}
	}
	return true
}

// evalConds evaluates an if/while/guard condition list, binding names
// into e.
func (in *interp) evalConds(e *env, conds []*Cond) bool {
	for _, c := range conds {
		switch {
		case c.Case != nil:
			v := in.eval(e, c.Value)
			if !in.matchPattern(e, c.Case, v, c.Line) {
				return false
			}
		case c.Bind != "":
			v := in.eval(e, c.Value)
			o, ok := v.(OptionalVal)
			if !ok {
				failCompile(c.Line, "initializer for conditional binding must have Optional type, not '%s'", v.TypeName())
			}
			if o.V == nil {
				return false
			}
			e.define(c.Bind, &binding{val: o.V, mutable: c.Mutable, typ: typeOfValue(o.V)})
		default:
			if !in.condition(e, c.Expr) {
				return false
			}
		}
	}
	return true
}

func (in *interp) condition(e *env, x Expr) bool {
	v := in.eval(e, x)
	b, ok := v.(BoolVal)
	if !ok {
		if _, isOpt := v.(OptionalVal); isOpt {
			failCompile(x.Pos(), "value of optional type '%s' must be unwrapped to a value of type 'Bool'", v.TypeName())
		}
		failCompile(x.Pos(), "type '%s' cannot be used as a boolean; test for '!= 0' instead", v.TypeName())
	}
	return bool(b)
}

// matchPattern tests v against p, binding names into e.
func (in *interp) matchPattern(e *env, p Pattern, v Value, line int) bool {
	switch p := p.(type) {
	case *WildcardPattern:
		return true
	case *BindPattern:
		e.define(p.Name, &binding{val: v, mutable: p.Mutable, typ: typeOfValue(v)})
		return true
	case *TuplePattern:
		t, ok := v.(TupleVal)
		if !ok || len(t.Elems) != len(p.Elems) {
			failCompile(line, "tuple pattern cannot match values of type '%s'", v.TypeName())
		}
		for i, sub := range p.Elems {
			if !in.matchPattern(e, sub, t.Elems[i], line) {
				return false
			}
		}
		return true
	case *EnumPattern:
		return in.matchEnum(e, p, v)
	case *ExprPattern:
		pv := in.evalHint(e, p.X, typeOfValue(v))
		if r, ok := pv.(RangeVal); ok && isNumeric(v) {
			return rangeContains(r, v)
		}
		if !comparableTypes(pv, v) {
			failCompile(line, "expression pattern of type '%s' cannot match values of type '%s'", pv.TypeName(), v.TypeName())
		}
		return valuesEqual(pv, v)
	}
	return false
}

func (in *interp) matchEnum(e *env, p *EnumPattern, v Value) bool {
	if o, ok := v.(OptionalVal); ok {
		switch {
		case p.Case == "none":
			return o.V == nil
		case p.Case == "some" && o.V != nil:
			if len(p.Elems) == 1 {
				return in.matchPattern(e, p.Elems[0], o.V, p.Line)
			}
			return true
		case o.V == nil:
			return false
		}
		v = o.V
	}

	ev, ok := v.(EnumVal)
	if !ok {
		if p.TypeName != "" {
			sv := in.staticMember(TypeVal{T: named(p.TypeName)}, p.Case, p.Line)
			return valuesEqual(sv, v)
		}
		failCompile(p.Line, "enum case '%s' cannot match values of the non-enum type '%s'", p.Case, v.TypeName())
	}
	if p.TypeName != "" && canonicalName(p.TypeName) != ev.Type {
		failCompile(p.Line, "pattern of type '%s' cannot match values of type '%s'", p.TypeName, ev.Type)
	}
	if td := in.lookupType(ev.Type); td != nil && td.enumCase(p.Case) == nil {
		failCompile(p.Line, "type '%s' has no member '%s'", ev.Type, p.Case)
	}
	if ev.Case != p.Case {
		return false
	}
	if !p.HasElems {
		return true
	}
	if len(p.Elems) == 1 && len(ev.Assoc) > 1 {
		tuple := TupleVal{Labels: ev.Labels, Elems: ev.Assoc}
		return in.matchPattern(e, p.Elems[0], tuple, p.Line)
	}
	if len(p.Elems) != len(ev.Assoc) {
		failCompile(p.Line, "pattern with associated values does not match enum case '%s'", p.Case)
	}
	for i, sub := range p.Elems {
		if !in.matchPattern(e, sub, ev.Assoc[i], p.Line) {
			return false
		}
	}
	return true
}

func rangeContains(r RangeVal, v Value) bool {
	lo, _ := compareValues(r.Lo, v)
	hi, _ := compareValues(v, r.Hi)
	if lo > 0 {
		return false
	}
	if r.Closed {
		return hi <= 0
	}
	return hi < 0
}

// comparableTypes reports whether == between a and b type-checks.
func comparableTypes(a, b Value) bool {
	if isNumeric(a) && isNumeric(b) {
		return true
	}
	if o, ok := a.(OptionalVal); ok {
		return o.V == nil || comparableTypes(o.V, b)
	}
	if o, ok := b.(OptionalVal); ok {
		return o.V == nil || comparableTypes(a, o.V)
	}
	return a.TypeName() == b.TypeName() || sameShape(a, b)
}

func sameShape(a, b Value) bool {
	switch a.(type) {
	case ArrayVal:
		_, ok := b.(ArrayVal)
		return ok
	case DictVal:
		_, ok := b.(DictVal)
		return ok
	case TupleVal:
		_, ok := b.(TupleVal)
		return ok
	}
	return false
}

// bindPattern destructures v for for-in loops and let declarations.
func (in *interp) bindPattern(e *env, p Pattern, v Value, line int) {
	switch p := p.(type) {
	case *WildcardPattern:
	case *BindPattern:
		e.define(p.Name, &binding{val: v, mutable: p.Mutable, typ: typeOfValue(v)})
	case *TuplePattern:
		t, ok := v.(TupleVal)
		if !ok || len(t.Elems) != len(p.Elems) {
			failCompile(line, "pattern cannot match values of type '%s'", v.TypeName())
		}
		for i, sub := range p.Elems {
			in.bindPattern(e, sub, t.Elems[i], line)
		}
	default:
		if !in.matchPattern(e, p, v, line) {
			return
		}
	}
}

func (in *interp) assign(e *env, s *AssignStmt) {
	if id, ok := s.Target.(*Ident); ok && id.Name == "_" {
		in.eval(e, s.Value)
		return
	}

	r := in.ref(e, s.Target)
	r.check(s.Line, "assign to")

	if s.Op == "=" {
		var hint *TypeExpr
		if vr, ok := r.(*varRef); ok && vr.b.typ != nil {
			hint = vr.b.typ
		} else if cur := in.peekRef(r); cur != nil {
			hint = typeOfValue(cur)
		}
		r.set(in.evalHint(e, s.Value, hint))
		return
	}

	cur := r.get()
	rhs := in.evalHint(e, s.Value, typeOfValue(cur))
	r.set(in.binaryOp(s.Op[:1], cur, rhs, s.Line))
}

// peekRef reads a location for type hints without failing on
// uninitialized variables.
func (in *interp) peekRef(r ref) (v Value) {
	defer func() {
		if rec := recover(); rec != nil {
			if _, ok := rec.(*Error); !ok {
				panic(rec)
			}
			v = nil
		}
	}()
	return r.get()
}

func (in *interp) declareVar(e *env, d *VarDecl) {
	for _, b := range d.Bindings {
		if b.Accessors != nil {
			failCompile(b.Line, "computed and observed properties are only supported inside types")
		}
		if b.Tuple != nil {
			v := in.evalHint(e, b.Value, b.Type)
			if b.Type != nil {
				v = in.coerce(v, b.Type, b.Line)
			}
			t, ok := v.(TupleVal)
			if !ok || len(t.Elems) != len(b.Tuple) {
				failCompile(b.Line, "cannot destructure value of type '%s' into %d names", v.TypeName(), len(b.Tuple))
			}
			for i, name := range b.Tuple {
				e.define(name, &binding{val: t.Elems[i], mutable: d.Mutable, typ: typeOfValue(t.Elems[i])})
			}
			continue
		}

		slot := &binding{mutable: d.Mutable, typ: b.Type}
		switch {
		case b.Value != nil:
			v := in.evalHint(e, b.Value, b.Type)
			if b.Type != nil {
				v = in.coerce(v, b.Type, b.Line)
			} else {
				slot.typ = typeOfValue(v)
				if o, ok := v.(OptionalVal); ok && o.V == nil {
					// A nil result from a lookup or failable call still
					// makes an optional; its wrapped type is unknown.
					slot.typ = &TypeExpr{Kind: OptionalType}
				}
			}
			slot.val = v
		case b.Type.isOptional() && d.Mutable:
			slot.val = nilOpt
		}
		e.define(b.Name, slot)
	}
}

func (in *interp) declareFunc(e *env, f *FuncDecl) {
	fv := &FuncVal{Decl: f}
	if e != in.global {
		fv.Env = e
	}
	e.vars[f.Name] = &binding{val: addOverload(e.vars[f.Name], fv)}
}

// addOverload merges fv into an existing function binding, replacing an
// overload with the same signature.
func addOverload(prev *binding, fv *FuncVal) Value {
	if prev == nil {
		return fv
	}
	var funcs []*FuncVal
	switch x := prev.val.(type) {
	case *FuncVal:
		funcs = []*FuncVal{x}
	case *FuncSet:
		funcs = x.Funcs
	default:
		return fv
	}
	set := &FuncSet{Name: fv.Decl.Name}
	for _, f := range funcs {
		if !sameLabels(paramLabels(f.Decl.Params), paramLabels(fv.Decl.Params)) || !sameParamTypes(f.Decl.Params, fv.Decl.Params) {
			set.Funcs = append(set.Funcs, f)
		}
	}
	set.Funcs = append(set.Funcs, fv)
	if len(set.Funcs) == 1 {
		return fv
	}
	return set
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Errorf is used by tests and engines to describe a failure compactly.
func Errorf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
	}
	return err.Error()
}
