package swiftlet

import (
	"strconv"
	"strings"
)

type parser struct {
	toks []Token
	pos  int

	// noTrailing is positive where a '{' opens a statement body rather
	// than a trailing closure: conditions, for-in sequences, switch
	// subjects.
	noTrailing int

	// dollars counts the $0, $1 arguments the innermost closure uses.
	dollars int
}

// nested parses f with trailing closures allowed again, as inside
// parentheses and brackets.
func (p *parser) nested(f func()) {
	saved := p.noTrailing
	p.noTrailing = 0
	defer func() { p.noTrailing = saved }()
	f()
}

// Parse turns cell source into statements. Syntax errors are returned as a
// CompileError *Error.
func Parse(src string) (stmts []Stmt, err error) {
	toks, err := Lex(src, 1)
	if err != nil {
		return nil, err
	}
	return parseTokens(toks)
}

func parseTokens(toks []Token) (stmts []Stmt, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			stmts, err = nil, e
		}
	}()

	p := &parser{toks: toks}
	for !p.at(TokEOF, "") {
		if p.punct(";") {
			p.next()
			continue
		}
		stmts = append(stmts, p.parseStmt())
	}
	return stmts, nil
}

// parseInterpolation parses the source of one \( ) segment.
func parseInterpolation(part StrPart) Expr {
	toks, err := Lex(part.Src, part.Line)
	if err != nil {
		panic(err)
	}
	p := &parser{toks: toks}
	x := p.parseExpr()
	if !p.at(TokEOF, "") {
		p.fail("unexpected %s in string interpolation", p.peek().describe())
	}
	return x
}

// Token helpers.

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != TokEOF {
		p.pos++
	}
	return t
}

func (p *parser) line() int { return p.peek().Line }

func (p *parser) at(kind TokenKind, text string) bool {
	t := p.peek()
	return t.Kind == kind && (text == "" || t.Text == text)
}

func (p *parser) punct(text string) bool   { return p.at(TokPunct, text) }
func (p *parser) keyword(text string) bool { return p.at(TokKeyword, text) }

func (p *parser) fail(format string, args ...any) {
	failCompile(p.line(), format, args...)
}

func (p *parser) expectPunct(text string) Token {
	if !p.punct(text) {
		p.fail("expected '%s', found %s", text, p.peek().describe())
	}
	return p.next()
}

func (p *parser) expectKeyword(text string) Token {
	if !p.keyword(text) {
		p.fail("expected '%s', found %s", text, p.peek().describe())
	}
	return p.next()
}

func (p *parser) expectIdent() string {
	t := p.peek()
	if t.Kind != TokIdent {
		p.fail("expected identifier, found %s", t.describe())
	}
	p.next()
	return t.Text
}

// name accepts identifiers and keywords, as in member names and labels.
func (p *parser) name() string {
	t := p.peek()
	if t.Kind != TokIdent && t.Kind != TokKeyword {
		p.fail("expected name, found %s", t.describe())
	}
	p.next()
	return t.Text
}

// endStmt enforces that statements are separated by a line break or ';'.
func (p *parser) endStmt() {
	t := p.peek()
	switch {
	case t.is(TokPunct, ";"):
		p.next()
	case t.is(TokPunct, "}"), t.Kind == TokEOF, t.NewlineBefore:
	default:
		p.fail("consecutive statements on a line must be separated by ';'")
	}
}

// Statements.

func (p *parser) parseBlock() []Stmt {
	p.expectPunct("{")
	body := []Stmt{}
	for !p.punct("}") {
		if p.at(TokEOF, "") {
			p.fail("expected '}' at end of block")
		}
		if p.punct(";") {
			p.next()
			continue
		}
		body = append(body, p.parseStmt())
	}
	p.next()
	return body
}

func (p *parser) parseStmt() Stmt {
	t := p.peek()
	line := t.Line

	for p.punct("@") {
		p.next()
		p.name()
		t = p.peek()
	}

	if t.Kind == TokKeyword {
		switch t.Text {
		case "let", "var":
			s := p.parseVarDecl(false)
			p.endStmt()
			return s
		case "static":
			p.next()
			switch {
			case p.keyword("let"), p.keyword("var"):
				s := p.parseVarDecl(true)
				p.endStmt()
				return s
			case p.keyword("func"):
				f := p.parseFunc(false)
				f.Static = true
				return f
			}
			p.fail("expected declaration after 'static'")
		case "mutating":
			p.next()
			f := p.parseFunc(false)
			f.Mutating = true
			return f
		case "func":
			return p.parseFunc(false)
		case "init":
			return p.parseInit(false)
		case "struct":
			return p.parseStruct()
		case "enum":
			return p.parseEnum()
		case "protocol":
			return p.parseProtocol()
		case "extension":
			return p.parseExtension()
		case "import":
			p.next()
			mod := p.expectIdent()
			for p.punct(".") {
				p.next()
				mod += "." + p.expectIdent()
			}
			p.endStmt()
			return &ImportStmt{pos: pos{line}, Module: mod}
		case "if":
			return p.parseIf()
		case "guard":
			p.next()
			conds := p.parseConds()
			p.expectKeyword("else")
			return &GuardStmt{pos: pos{line}, Conds: conds, Else: p.parseBlock()}
		case "while":
			p.next()
			conds := p.parseConds()
			return &WhileStmt{pos: pos{line}, Conds: conds, Body: p.parseBlock()}
		case "repeat":
			p.next()
			body := p.parseBlock()
			p.expectKeyword("while")
			cond := p.parseExpr()
			p.endStmt()
			return &RepeatStmt{pos: pos{line}, Body: body, Cond: cond}
		case "for":
			return p.parseFor()
		case "switch":
			return p.parseSwitch()
		case "break":
			p.next()
			p.endStmt()
			return &BreakStmt{pos: pos{line}}
		case "continue":
			p.next()
			p.endStmt()
			return &ContinueStmt{pos: pos{line}}
		case "fallthrough":
			p.next()
			p.endStmt()
			return &FallthroughStmt{pos: pos{line}}
		case "return":
			p.next()
			s := &ReturnStmt{pos: pos{line}}
			if n := p.peek(); !n.NewlineBefore && !n.is(TokPunct, "}") && !n.is(TokPunct, ";") && n.Kind != TokEOF {
				s.Value = p.parseExpr()
			}
			p.endStmt()
			return s
		case "else":
			p.fail("'else' without 'if'")
		case "case", "default":
			p.fail("'%s' label can only appear inside a 'switch' statement", t.Text)
		}
	}

	if t.is(TokIdent, "do") && p.peekAt(1).is(TokPunct, "{") {
		p.next()
		return &BlockStmt{pos: pos{line}, Body: p.parseBlock()}
	}

	x := p.parseExpr()
	if n := p.peek(); n.Kind == TokPunct {
		switch n.Text {
		case "=", "+=", "-=", "*=", "/=", "%=":
			p.next()
			v := p.parseExpr()
			p.endStmt()
			return &AssignStmt{pos: pos{line}, Op: n.Text, Target: x, Value: v}
		}
	}
	p.endStmt()
	return &ExprStmt{pos: pos{line}, X: x}
}

func (p *parser) parseVarDecl(static bool) *VarDecl {
	line := p.line()
	mutable := p.next().Text == "var"
	d := &VarDecl{pos: pos{line}, Mutable: mutable, Static: static}

	var untyped []*VarBinding
	for {
		b := &VarBinding{Line: p.line()}
		if p.punct("(") {
			p.next()
			for !p.punct(")") {
				b.Tuple = append(b.Tuple, p.expectIdent())
				if !p.punct(")") {
					p.expectPunct(",")
				}
			}
			p.next()
		} else {
			b.Name = p.expectIdent()
		}

		if p.punct(":") {
			p.next()
			b.Type = p.parseType()
			// let width, height: Double
			for _, u := range untyped {
				u.Type = b.Type
			}
			untyped = nil
		}
		if p.punct("=") {
			p.next()
			b.Value = p.parseExpr()
		}
		if p.punct("{") {
			b.Accessors = p.parseAccessors()
		}
		if b.Type == nil && b.Value == nil && b.Accessors == nil {
			untyped = append(untyped, b)
		}
		d.Bindings = append(d.Bindings, b)

		if !p.punct(",") {
			break
		}
		p.next()
	}
	if len(untyped) > 0 {
		failCompile(untyped[0].Line, "type annotation missing in pattern")
	}
	return d
}

var accessorNames = map[string]bool{"get": true, "set": true, "willSet": true, "didSet": true}

func (p *parser) parseAccessors() *Accessors {
	a := &Accessors{}
	n := p.peekAt(1)
	if !(n.Kind == TokIdent && accessorNames[n.Text]) {
		a.Get = p.parseBlock()
		return a
	}

	p.expectPunct("{")
	for !p.punct("}") {
		line := p.line()
		kind := p.expectIdent()
		param := ""
		if p.punct("(") {
			p.next()
			param = p.expectIdent()
			p.expectPunct(")")
		}
		switch kind {
		case "get":
			a.Get = p.parseBlock()
		case "set":
			a.SetName = param
			a.Set = p.parseBlock()
		case "willSet":
			a.WillSetVar = param
			a.WillSet = p.parseBlock()
		case "didSet":
			a.DidSetVar = param
			a.DidSet = p.parseBlock()
		default:
			failCompile(line, "expected 'get', 'set', 'willSet', or 'didSet' accessor")
		}
	}
	p.next()

	if a.Set != nil && a.Get == nil {
		p.fail("variable with a setter must also have a getter")
	}
	if a.Get != nil && (a.WillSet != nil || a.DidSet != nil) {
		p.fail("'willSet' cannot be provided together with a getter")
	}
	return a
}

func (p *parser) parseParams() []*Param {
	p.expectPunct("(")
	var params []*Param
	for !p.punct(")") {
		pr := &Param{}
		first := p.name()
		if p.punct(":") {
			pr.Label, pr.Name = first, first
		} else {
			pr.Label, pr.Name = first, p.name()
		}
		if pr.Label == "_" {
			pr.Label = ""
		}
		p.expectPunct(":")
		if p.keyword("inout") {
			p.next()
			pr.Inout = true
		}
		pr.Type = p.parseType()
		if p.punct("...") {
			p.next()
			pr.Variadic = true
		}
		if p.punct("=") {
			p.next()
			pr.Default = p.parseExpr()
		}
		params = append(params, pr)
		if !p.punct(")") {
			p.expectPunct(",")
		}
	}
	p.next()
	return params
}

func (p *parser) parseFunc(requirement bool) *FuncDecl {
	line := p.expectKeyword("func").Line
	f := &FuncDecl{pos: pos{line}, Name: p.name()}
	f.Params = p.parseParams()
	if p.punct("->") {
		p.next()
		f.Result = p.parseType()
	}
	if requirement || !p.punct("{") {
		if !requirement {
			p.fail("expected '{' in body of function declaration")
		}
		f.NoBody = true
		p.endStmt()
		return f
	}
	f.Body = p.parseBlock()
	return f
}

func (p *parser) parseInit(requirement bool) *FuncDecl {
	line := p.expectKeyword("init").Line
	f := &FuncDecl{pos: pos{line}, Name: "init"}
	if (p.punct("?") || p.punct("!")) && !p.peek().SpaceBefore {
		p.next()
		f.Failable = true
	}
	f.Params = p.parseParams()
	if requirement {
		f.NoBody = true
		p.endStmt()
		return f
	}
	f.Body = p.parseBlock()
	return f
}

func (p *parser) parseInheritance() []string {
	var names []string
	if !p.punct(":") {
		return nil
	}
	p.next()
	for {
		names = append(names, p.parseType().String())
		if !p.punct(",") {
			return names
		}
		p.next()
	}
}

func (p *parser) parseStruct() *StructDecl {
	line := p.expectKeyword("struct").Line
	d := &StructDecl{pos: pos{line}, Name: p.expectIdent()}
	d.Conforms = p.parseInheritance()
	d.Members = p.parseBlock()
	return d
}

var rawTypes = map[string]bool{"Int": true, "String": true, "Double": true, "Character": true, "Float": true}

func (p *parser) parseEnum() *EnumDecl {
	line := p.expectKeyword("enum").Line
	d := &EnumDecl{pos: pos{line}, Name: p.expectIdent()}
	for i, name := range p.parseInheritance() {
		if i == 0 && rawTypes[name] {
			d.RawType = named(name)
			continue
		}
		d.Conforms = append(d.Conforms, name)
	}

	p.expectPunct("{")
	for !p.punct("}") {
		if p.at(TokEOF, "") {
			p.fail("expected '}' in enum")
		}
		if p.punct(";") {
			p.next()
			continue
		}
		if !p.keyword("case") {
			d.Members = append(d.Members, p.parseStmt())
			continue
		}
		p.next()
		for {
			c := &EnumCase{Line: p.line(), Name: p.name()}
			if p.punct("(") && !p.peek().SpaceBefore {
				c.Assoc = p.parseAssoc()
			}
			if p.punct("=") {
				p.next()
				c.Raw = p.parseUnary()
			}
			d.Cases = append(d.Cases, c)
			if !p.punct(",") {
				break
			}
			p.next()
		}
		p.endStmt()
	}
	p.next()
	return d
}

func (p *parser) parseAssoc() []*Param {
	p.expectPunct("(")
	var out []*Param
	for !p.punct(")") {
		pr := &Param{}
		if t := p.peek(); (t.Kind == TokIdent || t.Kind == TokKeyword) && p.peekAt(1).is(TokPunct, ":") {
			pr.Label = p.name()
			pr.Name = pr.Label
			p.next()
		}
		pr.Type = p.parseType()
		if p.punct("=") {
			p.next()
			pr.Default = p.parseExpr()
		}
		out = append(out, pr)
		if !p.punct(")") {
			p.expectPunct(",")
		}
	}
	p.next()
	return out
}

func (p *parser) parseProtocol() *ProtocolDecl {
	line := p.expectKeyword("protocol").Line
	d := &ProtocolDecl{pos: pos{line}, Name: p.expectIdent()}
	d.Inherits = p.parseInheritance()

	p.expectPunct("{")
	for !p.punct("}") {
		if p.at(TokEOF, "") {
			p.fail("expected '}' in protocol")
		}
		if p.punct(";") {
			p.next()
			continue
		}
		r := &Requirement{Line: p.line()}
		if p.keyword("static") {
			p.next()
			r.Static = true
		}
		if p.keyword("mutating") {
			p.next()
			r.Mutating = true
		}
		switch {
		case p.keyword("var"):
			p.next()
			r.Name = p.expectIdent()
			p.expectPunct(":")
			r.Type = p.parseType()
			p.expectPunct("{")
			for !p.punct("}") {
				switch p.expectIdent() {
				case "get":
				case "set":
					r.Settable = true
				default:
					p.fail("expected get or set in a protocol property")
				}
			}
			p.next()
			p.endStmt()
		case p.keyword("func"):
			f := p.parseFunc(true)
			r.Func = true
			r.Name = f.Name
			r.Labels = paramLabels(f.Params)
		case p.keyword("init"):
			f := p.parseInit(true)
			r.Func = true
			r.Name = "init"
			r.Labels = paramLabels(f.Params)
		case p.keyword("let"):
			p.fail("protocols cannot require properties to be immutable; declare read-only properties by using 'var' with a '{ get }' specifier")
		default:
			p.fail("expected 'var', 'func' or 'init' in protocol")
		}
		d.Reqs = append(d.Reqs, r)
	}
	p.next()
	return d
}

func paramLabels(params []*Param) []string {
	labels := make([]string, len(params))
	for i, pr := range params {
		labels[i] = pr.Label
	}
	return labels
}

func (p *parser) parseExtension() *ExtensionDecl {
	line := p.expectKeyword("extension").Line
	name := p.expectIdent()
	for p.punct(".") {
		p.next()
		name = p.expectIdent()
	}
	d := &ExtensionDecl{pos: pos{line}, TypeName: name}
	d.Conforms = p.parseInheritance()
	d.Members = p.parseBlock()
	return d
}

func (p *parser) parseIf() *IfStmt {
	line := p.expectKeyword("if").Line
	s := &IfStmt{pos: pos{line}}
	s.Conds = p.parseConds()
	s.Then = p.parseBlock()
	if p.keyword("else") {
		p.next()
		if p.keyword("if") {
			s.Else = []Stmt{p.parseIf()}
		} else {
			s.Else = p.parseBlock()
		}
	}
	return s
}

func (p *parser) parseConds() []*Cond {
	p.noTrailing++
	defer func() { p.noTrailing-- }()

	var conds []*Cond
	for {
		c := &Cond{Line: p.line()}
		switch {
		case p.keyword("let"), p.keyword("var"):
			c.Mutable = p.next().Text == "var"
			c.Bind = p.expectIdent()
			if p.punct(":") {
				p.next()
				p.parseType()
			}
			if p.punct("=") {
				p.next()
				c.Value = p.parseExpr()
			} else {
				c.Value = &Ident{pos: pos{c.Line}, Name: c.Bind}
			}
		case p.keyword("case"):
			p.next()
			c.Case = p.parsePattern(false)
			p.expectPunct("=")
			c.Value = p.parseExpr()
		default:
			c.Expr = p.parseExpr()
		}
		conds = append(conds, c)
		if !p.punct(",") {
			return conds
		}
		p.next()
	}
}

func (p *parser) parseFor() *ForStmt {
	line := p.expectKeyword("for").Line
	s := &ForStmt{pos: pos{line}}
	if p.keyword("case") {
		p.next()
	}
	s.Pattern = p.parsePattern(true)
	p.expectKeyword("in")
	p.noTrailing++
	s.Seq = p.parseExpr()
	if p.keyword("where") {
		p.next()
		s.Where = p.parseExpr()
	}
	p.noTrailing--
	s.Body = p.parseBlock()
	return s
}

func (p *parser) parseSwitch() *SwitchStmt {
	line := p.expectKeyword("switch").Line
	p.noTrailing++
	s := &SwitchStmt{pos: pos{line}, Subject: p.parseExpr()}
	p.noTrailing--
	p.expectPunct("{")
	for !p.punct("}") {
		c := &SwitchCase{Line: p.line()}
		switch {
		case p.keyword("case"):
			p.next()
			for {
				c.Patterns = append(c.Patterns, p.parsePattern(false))
				if !p.punct(",") {
					break
				}
				p.next()
			}
			if p.keyword("where") {
				p.next()
				c.Where = p.parseExpr()
			}
		case p.keyword("default"):
			p.next()
			c.Default = true
		default:
			p.fail("all statements inside a switch must be covered by a 'case' or 'default'")
		}
		p.expectPunct(":")

		c.Body = []Stmt{}
		for !p.keyword("case") && !p.keyword("default") && !p.punct("}") {
			if p.at(TokEOF, "") {
				p.fail("expected '}' at end of 'switch' statement")
			}
			if p.punct(";") {
				p.next()
				continue
			}
			c.Body = append(c.Body, p.parseStmt())
		}
		if len(c.Body) == 0 {
			failCompile(c.Line, "'%s' label in a 'switch' must have at least one executable statement", caseWord(c))
		}
		s.Cases = append(s.Cases, c)
	}
	p.next()
	return s
}

func caseWord(c *SwitchCase) string {
	if c.Default {
		return "default"
	}
	return "case"
}

// parsePattern reads a pattern. With bind set, bare identifiers bind new
// names (for-in loops and let-patterns); otherwise they are expressions.
func (p *parser) parsePattern(bind bool) Pattern {
	t := p.peek()
	switch {
	case t.is(TokIdent, "_"):
		p.next()
		return &WildcardPattern{}
	case t.is(TokKeyword, "let"), t.is(TokKeyword, "var"):
		p.next()
		mutable := t.Text == "var"
		if p.at(TokIdent, "") && !p.peekAt(1).is(TokPunct, ".") && !p.peekAt(1).is(TokPunct, "(") {
			return &BindPattern{Name: p.expectIdent(), Mutable: mutable}
		}
		return p.parsePattern(true)
	case t.is(TokPunct, "("):
		p.next()
		tp := &TuplePattern{}
		for !p.punct(")") {
			tp.Elems = append(tp.Elems, p.parsePattern(bind))
			if !p.punct(")") {
				p.expectPunct(",")
			}
		}
		p.next()
		return tp
	case t.is(TokPunct, ".") && p.peekAt(1).Kind == TokIdent:
		p.next()
		return p.parseEnumPattern(t.Line, "", bind)
	case t.Kind == TokIdent && bind:
		p.next()
		return &BindPattern{Name: t.Text}
	case t.Kind == TokIdent && isUpper(t.Text) && !builtinTypeNames[t.Text] &&
		p.peekAt(1).is(TokPunct, ".") && p.peekAt(2).Kind == TokIdent:
		p.next()
		p.next()
		return p.parseEnumPattern(t.Line, t.Text, bind)
	}
	return &ExprPattern{X: p.parseExpr()}
}

func (p *parser) parseEnumPattern(line int, typeName string, bind bool) Pattern {
	ep := &EnumPattern{Line: line, TypeName: typeName, Case: p.expectIdent()}
	if p.punct("(") && !p.peek().SpaceBefore {
		p.next()
		ep.HasElems = true
		for !p.punct(")") {
			// Labels in patterns are accepted and ignored.
			if p.at(TokIdent, "") && p.peekAt(1).is(TokPunct, ":") {
				p.next()
				p.next()
			}
			ep.Elems = append(ep.Elems, p.parsePattern(bind))
			if !p.punct(")") {
				p.expectPunct(",")
			}
		}
		p.next()
	}
	return ep
}

func isUpper(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

var builtinTypeNames = map[string]bool{
	"Int": true, "Double": true, "String": true, "Bool": true, "Float": true,
	"Character": true, "Array": true, "Dictionary": true, "Optional": true,
	"Any": true, "Void": true,
}

// Types.

func (p *parser) parseType() *TypeExpr {
	var t *TypeExpr
	switch {
	case p.punct("["):
		p.next()
		elem := p.parseType()
		if p.punct(":") {
			p.next()
			val := p.parseType()
			t = &TypeExpr{Kind: DictType, Key: elem, Elem: val}
		} else {
			t = arrayOf(elem)
		}
		p.expectPunct("]")
	case p.punct("("):
		p.next()
		tt := &TypeExpr{Kind: TupleType}
		for !p.punct(")") {
			label := ""
			if n := p.peek(); (n.Kind == TokIdent || n.Kind == TokKeyword) && p.peekAt(1).is(TokPunct, ":") {
				label = p.name()
				p.next()
			}
			tt.Labels = append(tt.Labels, label)
			tt.Elems = append(tt.Elems, p.parseType())
			if !p.punct(")") {
				p.expectPunct(",")
			}
		}
		p.next()
		switch {
		case p.punct("->"):
			p.next()
			t = &TypeExpr{Kind: FuncType, Elems: tt.Elems, Elem: p.parseType()}
		case len(tt.Elems) == 0:
			t = named("()")
		case len(tt.Elems) == 1 && tt.Labels[0] == "":
			t = tt.Elems[0]
		default:
			t = tt
		}
	default:
		name := p.expectIdent()
		for p.punct(".") && p.peekAt(1).Kind == TokIdent {
			p.next()
			name += "." + p.expectIdent()
		}
		t = named(name)
		if p.punct("<") && !p.peek().SpaceBefore {
			t = p.parseGeneric(name)
		}
	}

	for (p.punct("?") || p.punct("!")) && !p.peek().SpaceBefore {
		p.next()
		t = optionalOf(t)
	}
	return t
}

func (p *parser) parseGeneric(name string) *TypeExpr {
	p.expectPunct("<")
	var args []*TypeExpr
	for {
		args = append(args, p.parseType())
		if !p.punct(",") {
			break
		}
		p.next()
	}
	p.expectPunct(">")
	switch {
	case name == "Array" && len(args) == 1:
		return arrayOf(args[0])
	case name == "Optional" && len(args) == 1:
		return optionalOf(args[0])
	case name == "Dictionary" && len(args) == 2:
		return &TypeExpr{Kind: DictType, Key: args[0], Elem: args[1]}
	}
	p.fail("cannot specialize non-generic type '%s'", name)
	return nil
}

// Expressions.

var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3, "<": 3, "<=": 3, ">": 3, ">=": 3, "===": 3, "!==": 3,
	"??":  4,
	"...": 5, "..<": 5,
	"+": 6, "-": 6,
	"*": 7, "/": 7, "%": 7,
}

func (p *parser) parseExpr() Expr {
	cond := p.parseBinary(1)
	t := p.peek()
	if t.is(TokPunct, "?") && t.SpaceBefore && (!t.NewlineBefore || t.SpaceAfter) {
		p.next()
		then := p.parseExpr()
		p.expectPunct(":")
		els := p.parseExpr()
		return &Ternary{pos: pos{t.Line}, Cond: cond, Then: then, Else: els}
	}
	return cond
}

func (p *parser) parseBinary(minPrec int) Expr {
	left := p.parseUnary()
	for {
		t := p.peek()
		if t.Kind != TokPunct {
			return left
		}
		prec, ok := binaryPrec[t.Text]
		if !ok || prec < minPrec {
			return left
		}
		// An operator opening a line continues the expression only when it
		// reads as binary.
		if t.NewlineBefore && !t.SpaceAfter {
			return left
		}
		p.next()
		next := prec + 1
		if t.Text == "??" {
			next = prec
		}
		right := p.parseBinary(next)
		left = &Binary{pos: pos{t.Line}, Op: t.Text, L: left, R: right}
	}
}

func (p *parser) parseUnary() Expr {
	t := p.peek()
	if t.Kind == TokPunct {
		switch t.Text {
		case "-", "+", "!":
			p.next()
			x := p.parseUnary()
			if t.Text == "-" {
				switch lit := x.(type) {
				case *IntLit:
					lit.Val = -lit.Val
					return lit
				case *FloatLit:
					lit.Val = -lit.Val
					return lit
				}
			}
			return &Unary{pos: pos{t.Line}, Op: t.Text, X: x}
		case "&":
			p.next()
			return &InoutExpr{pos: pos{t.Line}, X: p.parsePostfix(p.parsePrimary())}
		case ".":
			p.next()
			im := &ImplicitMember{pos: pos{t.Line}, Name: p.name()}
			return p.parsePostfix(im)
		}
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *parser) parsePostfix(x Expr) Expr {
	chained := false
	for {
		t := p.peek()
		if t.Kind != TokPunct {
			break
		}
		switch {
		case t.Text == "." && !t.SpaceAfter:
			p.next()
			n := p.peek()
			if n.Kind == TokInt {
				p.next()
				x = &Member{pos: pos{n.Line}, X: x, Name: n.Text}
				continue
			}
			x = &Member{pos: pos{n.Line}, X: x, Name: p.name()}
			continue
		case t.Text == "(" && !t.NewlineBefore:
			x = &Call{pos: pos{t.Line}, Fn: x, Args: p.parseArgs("(", ")")}
			continue
		case t.Text == "[" && !t.NewlineBefore:
			x = &Index{pos: pos{t.Line}, X: x, Index: p.parseArgs("[", "]")}
			continue
		case t.Text == "{" && !t.NewlineBefore && p.noTrailing == 0 && !p.accessorsAhead():
			closure := p.parseClosure()
			if call, ok := x.(*Call); ok {
				call.Args = append(call.Args, Arg{Value: closure})
			} else {
				x = &Call{pos: pos{t.Line}, Fn: x, Args: []Arg{{Value: closure}}}
			}
			continue
		case t.Text == "!" && !t.SpaceBefore:
			p.next()
			x = &ForceUnwrap{pos: pos{t.Line}, X: x}
			continue
		case t.Text == "?" && !t.SpaceBefore:
			p.next()
			x = &OptionalTry{pos: pos{t.Line}, X: x}
			chained = true
			continue
		}
		break
	}
	if chained {
		return &OptionalChain{pos: pos{x.Pos()}, X: x}
	}
	return x
}

func (p *parser) parseArgs(open, close string) (args []Arg) {
	p.nested(func() { args = p.args(open, close) })
	return args
}

func (p *parser) args(open, close string) []Arg {
	p.expectPunct(open)
	args := []Arg{}
	for !p.punct(close) {
		a := Arg{}
		if t := p.peek(); (t.Kind == TokIdent || t.Kind == TokKeyword) && p.peekAt(1).is(TokPunct, ":") {
			a.Label = p.name()
			p.next()
		}
		a.Value = p.parseExpr()
		args = append(args, a)
		if !p.punct(close) {
			if !p.punct(",") {
				p.fail("expected ',' separator, found %s", p.peek().describe())
			}
			p.next()
		}
	}
	p.next()
	return args
}

func (p *parser) parsePrimary() Expr {
	t := p.peek()
	line := t.Line
	switch t.Kind {
	case TokInt:
		p.next()
		return &IntLit{pos: pos{line}, Val: parseIntLit(t.Text)}
	case TokFloat:
		p.next()
		v, _ := strconv.ParseFloat(strings.ReplaceAll(t.Text, "_", ""), 64)
		return &FloatLit{pos: pos{line}, Val: v}
	case TokString:
		p.next()
		lit := &StringLit{pos: pos{line}}
		for _, part := range t.Parts {
			if part.Interp {
				lit.Parts = append(lit.Parts, StringSeg{Expr: parseInterpolation(part)})
			} else {
				lit.Parts = append(lit.Parts, StringSeg{Lit: part.Lit})
			}
		}
		return lit
	case TokIdent:
		p.next()
		if n, ok := dollarIndex(t.Text); ok && n+1 > p.dollars {
			p.dollars = n + 1
		}
		return &Ident{pos: pos{line}, Name: t.Text}
	case TokKeyword:
		switch t.Text {
		case "true", "false":
			p.next()
			return &BoolLit{pos: pos{line}, Val: t.Text == "true"}
		case "nil":
			p.next()
			return &NilLit{pos: pos{line}}
		case "self":
			p.next()
			return &Ident{pos: pos{line}, Name: "self"}
		}
	case TokPunct:
		var x Expr
		switch t.Text {
		case "(":
			p.nested(func() { x = p.parseParen() })
			return x
		case "[":
			if tl := p.tryTypeLit(); tl != nil {
				return tl
			}
			p.nested(func() { x = p.parseCollection() })
			return x
		case "{":
			return p.parseClosure()
		}
	}
	p.fail("expected expression, found %s", t.describe())
	return nil
}

func parseIntLit(text string) int64 {
	clean := strings.ReplaceAll(text, "_", "")
	base := 10
	if len(clean) > 2 && clean[0] == '0' {
		switch clean[1] {
		case 'x':
			base = 16
		case 'b':
			base = 2
		case 'o':
			base = 8
		}
		if base != 10 {
			clean = clean[2:]
		}
	}
	v, _ := strconv.ParseInt(clean, base, 64)
	return v
}

func (p *parser) parseParen() Expr {
	line := p.expectPunct("(").Line
	tup := &TupleLit{pos: pos{line}}
	for !p.punct(")") {
		label := ""
		if t := p.peek(); (t.Kind == TokIdent || t.Kind == TokKeyword) && p.peekAt(1).is(TokPunct, ":") {
			label = p.name()
			p.next()
		}
		tup.Labels = append(tup.Labels, label)
		tup.Elems = append(tup.Elems, p.parseExpr())
		if !p.punct(")") {
			p.expectPunct(",")
		}
	}
	p.next()
	if len(tup.Elems) == 1 && tup.Labels[0] == "" {
		return tup.Elems[0]
	}
	return tup
}

// tryTypeLit recognises [T]( and [K: V]( as type expressions.
func (p *parser) tryTypeLit() (x Expr) {
	start := p.pos
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*Error); !ok {
				panic(r)
			}
			p.pos = start
			x = nil
		}
	}()
	line := p.line()
	t := p.parseType()
	if t.Kind == OptionalType || !p.punct("(") || p.peek().SpaceBefore {
		p.pos = start
		return nil
	}
	return &TypeLit{pos: pos{line}, Type: t}
}

func (p *parser) parseCollection() Expr {
	line := p.expectPunct("[").Line
	if p.punct("]") {
		p.next()
		return &ArrayLit{pos: pos{line}}
	}
	if p.punct(":") && p.peekAt(1).is(TokPunct, "]") {
		p.next()
		p.next()
		return &DictLit{pos: pos{line}}
	}

	first := p.parseExpr()
	if p.punct(":") {
		d := &DictLit{pos: pos{line}}
		p.next()
		d.Keys = append(d.Keys, first)
		d.Vals = append(d.Vals, p.parseExpr())
		for p.punct(",") {
			p.next()
			if p.punct("]") {
				break
			}
			d.Keys = append(d.Keys, p.parseExpr())
			p.expectPunct(":")
			d.Vals = append(d.Vals, p.parseExpr())
		}
		p.expectPunct("]")
		return d
	}

	a := &ArrayLit{pos: pos{line}, Elems: []Expr{first}}
	for p.punct(",") {
		p.next()
		if p.punct("]") {
			break
		}
		a.Elems = append(a.Elems, p.parseExpr())
	}
	p.expectPunct("]")
	return a
}

// accessorsAhead reports whether the '{' at the cursor opens property
// observers or accessors rather than a closure.
func (p *parser) accessorsAhead() bool {
	n := p.peekAt(1)
	return n.Kind == TokIdent && accessorNames[n.Text] && p.peekAt(2).Kind == TokPunct
}

// parseClosure reads { (params) -> Result in body } and its shorter forms.
// A closure without a signature takes its arguments as $0, $1 and so on.
func (p *parser) parseClosure() Expr {
	line := p.expectPunct("{").Line
	c := &ClosureLit{pos: pos{line}}
	if params, result, ok := p.closureSignature(); ok {
		c.Params, c.Result = params, result
	} else {
		c.Implicit = true
	}

	outer := p.dollars
	p.dollars = 0
	defer func() { p.dollars = outer }()

	p.nested(func() {
		c.Body = []Stmt{}
		for !p.punct("}") {
			if p.at(TokEOF, "") {
				p.fail("expected '}' at end of closure")
			}
			if p.punct(";") {
				p.next()
				continue
			}
			c.Body = append(c.Body, p.parseStmt())
		}
		p.next()
	})
	c.Arity = p.dollars
	return c
}

// dollarIndex parses anonymous closure argument names.
func dollarIndex(name string) (int, bool) {
	if len(name) < 2 || name[0] != '$' {
		return 0, false
	}
	n, err := strconv.Atoi(name[1:])
	return n, err == nil
}

// closureSignature consumes "a, b in" or "(a: Int, b: Int) -> Int in" when
// present.
func (p *parser) closureSignature() (params []*Param, result *TypeExpr, ok bool) {
	start := p.pos
	defer func() {
		if r := recover(); r != nil {
			if _, isErr := r.(*Error); !isErr {
				panic(r)
			}
			p.pos = start
			params, result, ok = nil, nil, false
		}
	}()

	if p.punct("(") {
		p.next()
		for !p.punct(")") {
			pr := &Param{Name: p.expectIdent()}
			if p.punct(":") {
				p.next()
				pr.Type = p.parseType()
			}
			params = append(params, pr)
			if !p.punct(")") {
				p.expectPunct(",")
			}
		}
		p.next()
	} else {
		for {
			params = append(params, &Param{Name: p.expectIdent()})
			if !p.punct(",") {
				break
			}
			p.next()
		}
	}
	if p.punct("->") {
		p.next()
		result = p.parseType()
	}
	if !p.keyword("in") {
		p.pos = start
		return nil, nil, false
	}
	p.next()
	return params, result, true
}
