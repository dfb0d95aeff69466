package swiftlet

// Node is any syntax tree node. Pos returns the cell-relative line.
type Node interface {
	Pos() int
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement or declaration node.
type Stmt interface {
	Node
	stmtNode()
}

type pos struct{ Line int }

func (p pos) Pos() int { return p.Line }

// Expressions.

type (
	IntLit struct {
		pos
		Val int64
	}

	FloatLit struct {
		pos
		Val float64
	}

	StringLit struct {
		pos
		Parts []StringSeg
	}

	BoolLit struct {
		pos
		Val bool
	}

	NilLit struct {
		pos
	}

	Ident struct {
		pos
		Name string
	}

	// ImplicitMember is .name resolved against the contextual type.
	ImplicitMember struct {
		pos
		Name string
	}

	ArrayLit struct {
		pos
		Elems []Expr
	}

	DictLit struct {
		pos
		Keys, Vals []Expr
	}

	TupleLit struct {
		pos
		Labels []string
		Elems  []Expr
	}

	Unary struct {
		pos
		Op string
		X  Expr
	}

	Binary struct {
		pos
		Op   string
		L, R Expr
	}

	Ternary struct {
		pos
		Cond, Then, Else Expr
	}

	Call struct {
		pos
		Fn   Expr
		Args []Arg
	}

	Member struct {
		pos
		X    Expr
		Name string
	}

	Index struct {
		pos
		X     Expr
		Index []Arg
	}

	ForceUnwrap struct {
		pos
		X Expr
	}

	// OptionalTry is the x? step of an optional chain.
	OptionalTry struct {
		pos
		X Expr
	}

	// OptionalChain wraps a postfix chain containing an OptionalTry. It
	// yields nil when any step of the chain meets nil.
	OptionalChain struct {
		pos
		X Expr
	}

	InoutExpr struct {
		pos
		X Expr
	}

	// TypeLit is a type used as a value: [Int](), Int.max.
	TypeLit struct {
		pos
		Type *TypeExpr
	}

	// ClosureLit is { params in body }. Implicit closures have no
	// signature and name their arguments $0, $1; Arity is one past the
	// highest one used.
	ClosureLit struct {
		pos
		Params   []*Param
		Result   *TypeExpr
		Body     []Stmt
		Implicit bool
		Arity    int
	}
)

// StringSeg is a literal run or an interpolated expression.
type StringSeg struct {
	Lit  string
	Expr Expr
}

// Arg is a call or subscript argument with its optional label.
type Arg struct {
	Label string
	Value Expr
}

func (*IntLit) exprNode()         {}
func (*FloatLit) exprNode()       {}
func (*StringLit) exprNode()      {}
func (*BoolLit) exprNode()        {}
func (*NilLit) exprNode()         {}
func (*Ident) exprNode()          {}
func (*ImplicitMember) exprNode() {}
func (*ArrayLit) exprNode()       {}
func (*DictLit) exprNode()        {}
func (*TupleLit) exprNode()       {}
func (*Unary) exprNode()          {}
func (*Binary) exprNode()         {}
func (*Ternary) exprNode()        {}
func (*Call) exprNode()           {}
func (*Member) exprNode()         {}
func (*Index) exprNode()          {}
func (*ForceUnwrap) exprNode()    {}
func (*OptionalTry) exprNode()    {}
func (*OptionalChain) exprNode()  {}
func (*InoutExpr) exprNode()      {}
func (*TypeLit) exprNode()        {}
func (*ClosureLit) exprNode()     {}

// Statements and declarations.

type (
	ExprStmt struct {
		pos
		X Expr
	}

	AssignStmt struct {
		pos
		Op     string
		Target Expr
		Value  Expr
	}

	VarDecl struct {
		pos
		Mutable  bool
		Static   bool
		Bindings []*VarBinding
	}

	FuncDecl struct {
		pos
		Name     string
		Params   []*Param
		Result   *TypeExpr
		Body     []Stmt
		Mutating bool
		Static   bool

		// Failable marks init?.
		Failable bool

		// NoBody is set for protocol requirements.
		NoBody bool

		// Closure marks a function built from a closure literal; Implicit
		// closures bind their arguments to $0, $1 instead of Params.
		Closure  bool
		Implicit bool
		Arity    int
	}

	StructDecl struct {
		pos
		Name     string
		Conforms []string
		Members  []Stmt
	}

	EnumDecl struct {
		pos
		Name     string
		RawType  *TypeExpr
		Conforms []string
		Cases    []*EnumCase
		Members  []Stmt
	}

	ProtocolDecl struct {
		pos
		Name     string
		Inherits []string
		Reqs     []*Requirement
	}

	ExtensionDecl struct {
		pos
		TypeName string
		Conforms []string
		Members  []Stmt
	}

	ImportStmt struct {
		pos
		Module string
	}

	IfStmt struct {
		pos
		Conds []*Cond
		Then  []Stmt

		// Else holds the else block; an else-if is a single nested IfStmt.
		Else []Stmt
	}

	GuardStmt struct {
		pos
		Conds []*Cond
		Else  []Stmt
	}

	WhileStmt struct {
		pos
		Conds []*Cond
		Body  []Stmt
	}

	RepeatStmt struct {
		pos
		Body []Stmt
		Cond Expr
	}

	ForStmt struct {
		pos
		Pattern Pattern
		Seq     Expr
		Where   Expr
		Body    []Stmt
	}

	SwitchStmt struct {
		pos
		Subject Expr
		Cases   []*SwitchCase
	}

	BreakStmt struct {
		pos
	}

	ContinueStmt struct {
		pos
	}

	FallthroughStmt struct {
		pos
	}

	ReturnStmt struct {
		pos
		Value Expr
	}

	BlockStmt struct {
		pos
		Body []Stmt
	}
)

// VarBinding is one name (or tuple pattern) of a let/var declaration.
type VarBinding struct {
	Line  int
	Name  string
	Tuple []string
	Type  *TypeExpr
	Value Expr

	// Accessors is set for computed and observed properties.
	Accessors *Accessors
}

// Accessors are the get/set/willSet/didSet blocks of a property.
type Accessors struct {
	Get        []Stmt
	Set        []Stmt
	SetName    string
	WillSet    []Stmt
	WillSetVar string
	DidSet     []Stmt
	DidSetVar  string
}

// Computed reports whether the property has no storage.
func (a *Accessors) Computed() bool {
	return a != nil && a.Get != nil
}

// Param is a function parameter.
type Param struct {
	Label    string
	Name     string
	Type     *TypeExpr
	Default  Expr
	Inout    bool
	Variadic bool
}

// EnumCase is one case of an enum declaration.
type EnumCase struct {
	Line  int
	Name  string
	Raw   Expr
	Assoc []*Param
}

// Requirement is a protocol member requirement.
type Requirement struct {
	Line     int
	Name     string
	Func     bool
	Labels   []string
	Settable bool
	Static   bool
	Mutating bool
	Type     *TypeExpr
}

// Cond is one clause of an if/guard/while condition list.
type Cond struct {
	Line int

	// Expr is a boolean condition.
	Expr Expr

	// Bind is set for "let name = value" optional binding.
	Bind    string
	Mutable bool
	Value   Expr

	// Case is set for "case pattern = value".
	Case Pattern
}

// SwitchCase is one case block of a switch.
type SwitchCase struct {
	Line     int
	Patterns []Pattern
	Where    Expr
	Default  bool
	Body     []Stmt
}

// Pattern is a switch, for-in or if-case pattern.
type Pattern interface {
	patternNode()
}

type (
	WildcardPattern struct{}

	BindPattern struct {
		Name    string
		Mutable bool
	}

	TuplePattern struct {
		Elems []Pattern
	}

	// EnumPattern matches .case or Type.case with optional sub-patterns
	// for associated values.
	EnumPattern struct {
		Line     int
		TypeName string
		Case     string
		Elems    []Pattern
		HasElems bool
	}

	ExprPattern struct {
		X Expr
	}
)

func (*WildcardPattern) patternNode() {}
func (*BindPattern) patternNode()     {}
func (*TuplePattern) patternNode()    {}
func (*EnumPattern) patternNode()     {}
func (*ExprPattern) patternNode()     {}

func (*ExprStmt) stmtNode()        {}
func (*AssignStmt) stmtNode()      {}
func (*VarDecl) stmtNode()         {}
func (*FuncDecl) stmtNode()        {}
func (*StructDecl) stmtNode()      {}
func (*EnumDecl) stmtNode()        {}
func (*ProtocolDecl) stmtNode()    {}
func (*ExtensionDecl) stmtNode()   {}
func (*ImportStmt) stmtNode()      {}
func (*IfStmt) stmtNode()          {}
func (*GuardStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()       {}
func (*RepeatStmt) stmtNode()      {}
func (*ForStmt) stmtNode()         {}
func (*SwitchStmt) stmtNode()      {}
func (*BreakStmt) stmtNode()       {}
func (*ContinueStmt) stmtNode()    {}
func (*FallthroughStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()      {}
func (*BlockStmt) stmtNode()       {}
