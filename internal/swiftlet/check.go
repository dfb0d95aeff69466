package swiftlet

import "strings"

// Check rejects what can be found without running a cell: unknown names,
// assignments to constants, redeclarations in one block, operators applied
// to literals of different types, and misplaced return, break, continue or
// fallthrough. Names declared by earlier cells are read from scope.
func Check(stmts []Stmt, scope *Scope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			err = e
		}
	}()
	c := &checker{scope: scope, types: map[string]bool{}}
	c.collectTypes(stmts)
	c.block(stmts, checkCtx{}, nil)
	return nil
}

type checker struct {
	scope  *Scope
	types  map[string]bool
	blocks []map[string]*checkVar
}

type checkVar struct {
	mutable bool
	// set is false for constants declared without a value.
	set  bool
	fn   bool
	kind string
}

// checkCtx is what the statement being checked is nested in.
type checkCtx struct {
	fn       bool
	loop     bool
	swtch    bool
	typ      bool
	implicit bool
}

// deferredFunc is a function body checked once its enclosing block is
// complete, since functions see every name of the block they are in.
type deferredFunc struct {
	decl *FuncDecl
	ctx  checkCtx
}

func (c *checker) collectTypes(stmts []Stmt) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *StructDecl:
			c.types[s.Name] = true
			c.collectTypes(s.Members)
		case *EnumDecl:
			c.types[s.Name] = true
			c.collectTypes(s.Members)
		case *ProtocolDecl:
			c.types[s.Name] = true
		case *ExtensionDecl:
			c.collectTypes(s.Members)
		case *BlockStmt:
			c.collectTypes(s.Body)
		}
	}
}

func (c *checker) push() map[string]*checkVar {
	m := map[string]*checkVar{}
	c.blocks = append(c.blocks, m)
	return m
}

func (c *checker) pop() { c.blocks = c.blocks[:len(c.blocks)-1] }

func (c *checker) declare(line int, name string, v *checkVar) {
	if name == "_" || name == "" {
		return
	}
	top := c.blocks[len(c.blocks)-1]
	if prev, ok := top[name]; ok && !(prev.fn && v.fn) {
		failCompile(line, "invalid redeclaration of '%s'", name)
	}
	top[name] = v
}

func (c *checker) local(name string) *checkVar {
	for i := len(c.blocks) - 1; i >= 0; i-- {
		if v, ok := c.blocks[i][name]; ok {
			return v
		}
	}
	return nil
}

// block checks stmts in a new scope. pre, when set, holds parameters,
// which live in a scope of their own that the body may shadow.
func (c *checker) block(stmts []Stmt, ctx checkCtx, pre map[string]*checkVar) {
	if pre != nil {
		params := c.push()
		defer c.pop()
		for name, v := range pre {
			params[name] = v
		}
	}
	c.push()
	defer c.pop()
	for _, s := range stmts {
		if f, ok := s.(*FuncDecl); ok {
			c.declare(f.Line, f.Name, &checkVar{fn: true, set: true, kind: "func"})
		}
	}
	var funcs []deferredFunc
	for _, s := range stmts {
		if f, ok := s.(*FuncDecl); ok {
			funcs = append(funcs, deferredFunc{decl: f, ctx: ctx})
			continue
		}
		c.stmt(s, ctx)
	}
	for _, f := range funcs {
		c.function(f.decl, f.ctx)
	}
}

func (c *checker) function(f *FuncDecl, outer checkCtx) {
	if f.NoBody {
		return
	}
	pre := map[string]*checkVar{}
	for _, p := range f.Params {
		if p.Default != nil {
			c.expr(p.Default, outer)
		}
		pre[p.Name] = &checkVar{mutable: p.Inout, set: true}
	}
	c.block(f.Body, checkCtx{fn: true, typ: outer.typ}, pre)
}

func (c *checker) stmt(s Stmt, ctx checkCtx) {
	switch s := s.(type) {
	case *ExprStmt:
		c.expr(s.X, ctx)
	case *AssignStmt:
		c.expr(s.Value, ctx)
		c.expr(s.Target, ctx)
		c.assignTarget(s.Target, s.Line, ctx, s.Op == "=")
	case *VarDecl:
		c.varDecl(s, ctx)
	case *StructDecl:
		c.declare(s.Line, s.Name, &checkVar{kind: "type"})
		c.typeBody(s.Members, ctx)
	case *EnumDecl:
		c.declare(s.Line, s.Name, &checkVar{kind: "type"})
		c.typeBody(s.Members, ctx)
	case *ProtocolDecl:
		c.declare(s.Line, s.Name, &checkVar{kind: "type"})
	case *ExtensionDecl:
		c.typeBody(s.Members, ctx)
	case *ImportStmt:
	case *BlockStmt:
		c.block(s.Body, ctx, nil)
	case *IfStmt:
		c.push()
		c.conds(s.Conds, ctx)
		c.block(s.Then, ctx, nil)
		c.pop()
		c.block(s.Else, ctx, nil)
	case *GuardStmt:
		c.push()
		c.conds(s.Conds, ctx)
		c.pop()
		c.block(s.Else, ctx, nil)
		// Names bound by the conditions are visible after the guard.
		for _, cd := range s.Conds {
			if cd.Bind != "" {
				c.blocks[len(c.blocks)-1][cd.Bind] = &checkVar{mutable: cd.Mutable, set: true}
			}
			if cd.Case != nil {
				c.pattern(cd.Case, cd.Line, ctx)
			}
		}
	case *WhileStmt:
		c.push()
		c.conds(s.Conds, ctx)
		inner := ctx
		inner.loop = true
		c.block(s.Body, inner, nil)
		c.pop()
	case *RepeatStmt:
		inner := ctx
		inner.loop = true
		c.block(s.Body, inner, nil)
		c.expr(s.Cond, ctx)
	case *ForStmt:
		c.expr(s.Seq, ctx)
		c.push()
		c.pattern(s.Pattern, s.Line, ctx)
		if s.Where != nil {
			c.expr(s.Where, ctx)
		}
		inner := ctx
		inner.loop = true
		c.block(s.Body, inner, nil)
		c.pop()
	case *SwitchStmt:
		c.expr(s.Subject, ctx)
		inner := ctx
		inner.swtch = true
		for _, sc := range s.Cases {
			c.push()
			for _, p := range sc.Patterns {
				c.pattern(p, sc.Line, ctx)
			}
			if sc.Where != nil {
				c.expr(sc.Where, ctx)
			}
			c.block(sc.Body, inner, nil)
			c.pop()
		}
	case *BreakStmt:
		if !ctx.loop && !ctx.swtch {
			failCompile(s.Line, "'break' is only allowed inside a loop, if, do, or switch")
		}
	case *ContinueStmt:
		if !ctx.loop {
			failCompile(s.Line, "'continue' is only allowed inside a loop")
		}
	case *FallthroughStmt:
		if !ctx.swtch {
			failCompile(s.Line, "'fallthrough' is only allowed inside a switch")
		}
	case *ReturnStmt:
		if !ctx.fn {
			failCompile(s.Line, "return invalid outside of a func")
		}
		if s.Value != nil {
			c.expr(s.Value, ctx)
		}
	}
}

func (c *checker) varDecl(d *VarDecl, ctx checkCtx) {
	for _, b := range d.Bindings {
		untypedNil(b)
		if b.Value != nil {
			c.expr(b.Value, ctx)
		}
		if b.Accessors != nil {
			c.accessors(b.Accessors, ctx)
		}
		if b.Tuple != nil {
			for _, name := range b.Tuple {
				c.declare(b.Line, name, &checkVar{mutable: d.Mutable, set: true})
			}
			continue
		}
		c.declare(b.Line, b.Name, &checkVar{mutable: d.Mutable, set: b.Value != nil || b.Accessors != nil})
	}
}

func (c *checker) accessors(a *Accessors, ctx checkCtx) {
	fn := checkCtx{fn: true, typ: ctx.typ}
	one := func(body []Stmt, name, fallback string) {
		if body == nil {
			return
		}
		if name == "" {
			name = fallback
		}
		c.block(body, fn, map[string]*checkVar{name: {set: true}})
	}
	one(a.Get, "", "newValue")
	one(a.Set, a.SetName, "newValue")
	one(a.WillSet, a.WillSetVar, "newValue")
	one(a.DidSet, a.DidSetVar, "oldValue")
}

// untypedNil rejects `let x = nil`, which has no type to infer.
func untypedNil(b *VarBinding) {
	if _, isNil := b.Value.(*NilLit); isNil && b.Type == nil {
		failCompile(b.Line, "'nil' requires a contextual type")
	}
}

// typeBody checks member bodies. Inside a type, unknown names may be
// members of self, so name resolution is left to the interpreter.
func (c *checker) typeBody(members []Stmt, ctx checkCtx) {
	inner := checkCtx{typ: true}
	c.push()
	defer c.pop()
	for _, m := range members {
		switch m := m.(type) {
		case *FuncDecl:
			c.function(m, inner)
		case *VarDecl:
			for _, b := range m.Bindings {
				untypedNil(b)
				if b.Value != nil {
					c.expr(b.Value, inner)
				}
				if b.Accessors != nil {
					c.accessors(b.Accessors, inner)
				}
			}
		case *StructDecl:
			c.typeBody(m.Members, inner)
		case *EnumDecl:
			c.typeBody(m.Members, inner)
		}
	}
}

func (c *checker) conds(conds []*Cond, ctx checkCtx) {
	for _, cd := range conds {
		switch {
		case cd.Bind != "":
			c.expr(cd.Value, ctx)
			c.blocks[len(c.blocks)-1][cd.Bind] = &checkVar{mutable: cd.Mutable, set: true}
		case cd.Case != nil:
			c.expr(cd.Value, ctx)
			c.pattern(cd.Case, cd.Line, ctx)
		default:
			c.expr(cd.Expr, ctx)
		}
	}
}

// pattern declares the names a pattern binds and checks the expressions
// it compares against.
func (c *checker) pattern(p Pattern, line int, ctx checkCtx) {
	switch p := p.(type) {
	case *BindPattern:
		if p.Name != "_" {
			c.blocks[len(c.blocks)-1][p.Name] = &checkVar{mutable: p.Mutable, set: true}
		}
	case *TuplePattern:
		for _, e := range p.Elems {
			c.pattern(e, line, ctx)
		}
	case *EnumPattern:
		for _, e := range p.Elems {
			c.pattern(e, line, ctx)
		}
	case *ExprPattern:
		c.expr(p.X, ctx)
	}
}

// assignTarget rejects assignments whose root is a known constant.
func (c *checker) assignTarget(x Expr, line int, ctx checkCtx, plain bool) {
	id, ok := x.(*Ident)
	if !ok || id.Name == "_" {
		return
	}
	if v := c.local(id.Name); v != nil {
		switch {
		case v.fn || v.kind == "type":
			failCompile(line, "cannot assign to value: '%s' is a %s", id.Name, orWord(v.kind, "function"))
		case !v.mutable && v.set:
			failCompile(line, "cannot assign to value: '%s' is a 'let' constant", id.Name)
		case !v.mutable && plain:
			v.set = true
		}
		return
	}
	if ctx.typ {
		return
	}
	if b, ok := c.scope.vars[id.Name]; ok && !b.mutable && b.val != nil {
		if _, isFunc := b.val.(*FuncVal); isFunc {
			failCompile(line, "cannot assign to value: '%s' is a function", id.Name)
		}
		failCompile(line, "cannot assign to value: '%s' is a 'let' constant", id.Name)
	}
}

func orWord(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func (c *checker) ident(name string, line int, ctx checkCtx) {
	switch {
	case c.local(name) != nil:
	case strings.HasPrefix(name, "$"):
		if !ctx.implicit {
			failCompile(line, "anonymous closure argument not contained in a closure")
		}
	case name == "self":
		if !ctx.typ {
			failCompile(line, "cannot find 'self' in scope")
		}
	case c.known(name), ctx.typ:
	default:
		failCompile(line, "cannot find '%s' in scope", name)
	}
}

// known reports names declared before this cell or built in.
func (c *checker) known(name string) bool {
	if _, ok := c.scope.vars[name]; ok {
		return true
	}
	if _, ok := c.scope.types[name]; ok {
		return true
	}
	if _, ok := builtins[name]; ok {
		return true
	}
	return c.types[name] || builtinTypeNames[name]
}

func (c *checker) expr(x Expr, ctx checkCtx) {
	switch x := x.(type) {
	case nil:
	case *Ident:
		c.ident(x.Name, x.Line, ctx)
	case *StringLit:
		for _, part := range x.Parts {
			if part.Expr != nil {
				c.expr(part.Expr, ctx)
			}
		}
	case *ArrayLit:
		for _, e := range x.Elems {
			c.expr(e, ctx)
		}
	case *DictLit:
		for i := range x.Keys {
			c.expr(x.Keys[i], ctx)
			c.expr(x.Vals[i], ctx)
		}
	case *TupleLit:
		for _, e := range x.Elems {
			c.expr(e, ctx)
		}
	case *Unary:
		c.expr(x.X, ctx)
	case *Binary:
		c.expr(x.L, ctx)
		c.expr(x.R, ctx)
		c.literalOperands(x)
	case *Ternary:
		c.expr(x.Cond, ctx)
		c.expr(x.Then, ctx)
		c.expr(x.Else, ctx)
	case *Call:
		c.expr(x.Fn, ctx)
		c.args(x.Args, ctx)
	case *Member:
		c.expr(x.X, ctx)
	case *Index:
		c.expr(x.X, ctx)
		c.args(x.Index, ctx)
	case *ForceUnwrap:
		c.expr(x.X, ctx)
	case *OptionalTry:
		c.expr(x.X, ctx)
	case *OptionalChain:
		c.expr(x.X, ctx)
	case *InoutExpr:
		c.expr(x.X, ctx)
		if id, ok := x.X.(*Ident); ok {
			if v := c.local(id.Name); v != nil && !v.mutable && v.set {
				failCompile(x.Line, "cannot pass immutable value as inout argument: '%s' is a 'let' constant", id.Name)
			}
		}
	case *ClosureLit:
		pre := map[string]*checkVar{}
		for _, p := range x.Params {
			pre[p.Name] = &checkVar{set: true}
		}
		c.block(x.Body, checkCtx{fn: true, typ: ctx.typ, implicit: x.Implicit}, pre)
	}
}

func (c *checker) args(args []Arg, ctx checkCtx) {
	for _, a := range args {
		c.expr(a.Value, ctx)
	}
}

// literalKind names the type of a literal, or "" for other expressions.
func literalKind(x Expr) string {
	switch x.(type) {
	case *IntLit:
		return "Int"
	case *FloatLit:
		return "Double"
	case *StringLit:
		return "String"
	case *BoolLit:
		return "Bool"
	}
	return ""
}

func (c *checker) literalOperands(x *Binary) {
	l, r := literalKind(x.L), literalKind(x.R)
	if l == "" || r == "" {
		return
	}
	numeric := func(k string) bool { return k == "Int" || k == "Double" }
	switch x.Op {
	case "+", "-", "*", "/", "%":
		if l == "Bool" && r == "Bool" || x.Op != "+" && l == "String" && r == "String" {
			failCompile(x.Line, "binary operator '%s' cannot be applied to two '%s' operands", x.Op, l)
		}
	case "==", "!=", "<", ">", "<=", ">=":
	default:
		return
	}
	if l != r && !(numeric(l) && numeric(r)) {
		failCompile(x.Line, "binary operator '%s' cannot be applied to operands of type '%s' and '%s'", x.Op, l, r)
	}
}
