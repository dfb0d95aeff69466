package swiftlet

import "fmt"

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokKeyword
	TokInt
	TokFloat
	TokString
	TokPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "end of input"
	case TokIdent:
		return "identifier"
	case TokKeyword:
		return "keyword"
	case TokInt:
		return "integer literal"
	case TokFloat:
		return "floating-point literal"
	case TokString:
		return "string literal"
	default:
		return "punctuation"
	}
}

var keywords = map[string]bool{
	"let": true, "var": true, "func": true, "return": true, "if": true,
	"else": true, "guard": true, "while": true, "repeat": true, "for": true,
	"in": true, "break": true, "continue": true, "switch": true, "case": true,
	"default": true, "fallthrough": true, "struct": true, "enum": true,
	"protocol": true, "extension": true, "init": true, "self": true,
	"static": true, "mutating": true, "inout": true, "true": true,
	"false": true, "nil": true, "where": true, "import": true,
}

// Token is one lexeme with its position in the cell source.
type Token struct {
	Kind TokenKind
	Text string
	Line int
	Col  int

	// NewlineBefore is set when a line break separates the token from the
	// previous one. Statements end at line breaks.
	NewlineBefore bool

	// SpaceBefore and SpaceAfter decide between prefix, postfix and binary
	// readings of operators.
	SpaceBefore bool
	SpaceAfter  bool

	// Parts holds the segments of a string literal.
	Parts []StrPart
}

// StrPart is a literal run or an interpolated expression of a string.
type StrPart struct {
	Lit    string
	Interp bool
	Src    string
	Line   int
}

func (t Token) is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

func (t Token) describe() string {
	switch t.Kind {
	case TokEOF:
		return "end of input"
	case TokString:
		return "string literal"
	default:
		return fmt.Sprintf("'%s'", t.Text)
	}
}
