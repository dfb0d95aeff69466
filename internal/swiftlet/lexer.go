package swiftlet

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// puncts is ordered longest first so the lexer takes maximal munch.
var puncts = []string{
	"...", "..<", "===", "!==",
	"==", "!=", "<=", ">=", "&&", "||", "??", "->", "+=", "-=", "*=", "/=", "%=",
	"+", "-", "*", "/", "%", "=", "<", ">", "!", "?", ".", ",", ":", ";",
	"(", ")", "[", "]", "{", "}", "&", "@", "#",
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int

	toks []Token
}

// Lex splits src into tokens. firstLine is the line number of src's first
// line, so interpolated expressions keep cell-relative positions.
func Lex(src string, firstLine int) ([]Token, error) {
	lx := &lexer{src: src, line: firstLine, col: 1}
	if err := lx.run(); err != nil {
		return nil, err
	}
	return lx.toks, nil
}

func (lx *lexer) run() error {
	newline := true
	space := true
	for {
		nl, sp, err := lx.skipTrivia()
		if err != nil {
			return err
		}
		newline = newline || nl
		space = space || sp || nl

		if lx.pos >= len(lx.src) {
			lx.toks = append(lx.toks, Token{Kind: TokEOF, Line: lx.line, Col: lx.col, NewlineBefore: true, SpaceBefore: true})
			break
		}

		tok, err := lx.next()
		if err != nil {
			return err
		}
		tok.NewlineBefore = newline
		tok.SpaceBefore = space
		lx.toks = append(lx.toks, tok)
		newline, space = false, false
	}

	for i := 0; i+1 < len(lx.toks); i++ {
		n := lx.toks[i+1]
		lx.toks[i].SpaceAfter = n.SpaceBefore || n.NewlineBefore || n.Kind == TokEOF
	}
	return nil
}

func (lx *lexer) peekByte(off int) byte {
	if lx.pos+off < len(lx.src) {
		return lx.src[lx.pos+off]
	}
	return 0
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.pos < len(lx.src); i++ {
		if lx.src[lx.pos] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.pos++
	}
}

// skipTrivia consumes whitespace and comments.
func (lx *lexer) skipTrivia() (newline, space bool, err error) {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == '\n':
			newline = true
			lx.advance(1)
		case c == ' ' || c == '\t' || c == '\r':
			space = true
			lx.advance(1)
		case c == '/' && lx.peekByte(1) == '/':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.advance(1)
			}
			space = true
		case c == '/' && lx.peekByte(1) == '*':
			start := lx.line
			depth := 0
			for {
				if lx.pos >= len(lx.src) {
					return false, false, compileErr(start, "unterminated '/*' comment")
				}
				if lx.src[lx.pos] == '/' && lx.peekByte(1) == '*' {
					depth++
					lx.advance(2)
					continue
				}
				if lx.src[lx.pos] == '*' && lx.peekByte(1) == '/' {
					depth--
					lx.advance(2)
					if depth == 0 {
						break
					}
					continue
				}
				if lx.src[lx.pos] == '\n' {
					newline = true
				}
				lx.advance(1)
			}
			space = true
		default:
			return newline, space, nil
		}
	}
	return newline, space, nil
}

func (lx *lexer) next() (Token, error) {
	tok := Token{Line: lx.line, Col: lx.col}
	c := lx.src[lx.pos]

	switch {
	case c == '"':
		return lx.lexString(tok)
	case c >= '0' && c <= '9':
		return lx.lexNumber(tok)
	case c == '`':
		end := strings.IndexByte(lx.src[lx.pos+1:], '`')
		if end <= 0 {
			return tok, compileErr(tok.Line, "unterminated escaped identifier")
		}
		tok.Kind = TokIdent
		tok.Text = lx.src[lx.pos+1 : lx.pos+1+end]
		lx.advance(end + 2)
		return tok, nil
	}

	if r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:]); isIdentStart(r) {
		start := lx.pos
		for lx.pos < len(lx.src) {
			r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
			if !isIdentStart(r) && !unicode.IsDigit(r) {
				break
			}
			lx.pos += size
			lx.col++
		}
		tok.Text = lx.src[start:lx.pos]
		tok.Kind = TokIdent
		if keywords[tok.Text] {
			tok.Kind = TokKeyword
		}
		return tok, nil
	}

	for _, p := range puncts {
		if strings.HasPrefix(lx.src[lx.pos:], p) {
			tok.Kind = TokPunct
			tok.Text = p
			lx.advance(len(p))
			return tok, nil
		}
	}

	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
	return tok, compileErr(tok.Line, "unexpected character '%c'", r)
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || (r > 0x7f && unicode.Is(unicode.So, r))
}

func (lx *lexer) lexNumber(tok Token) (Token, error) {
	start := lx.pos
	base := 10
	if lx.src[lx.pos] == '0' {
		switch lx.peekByte(1) {
		case 'x':
			base = 16
		case 'b':
			base = 2
		case 'o':
			base = 8
		}
		if base != 10 {
			lx.advance(2)
		}
	}

	isDigit := func(c byte) bool {
		switch base {
		case 16:
			return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		case 2:
			return c == '0' || c == '1'
		case 8:
			return c >= '0' && c <= '7'
		}
		return c >= '0' && c <= '9'
	}

	for lx.pos < len(lx.src) && (isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '_') {
		lx.advance(1)
	}

	float := false
	if base == 10 {
		// 1...5 is a range, 1.5 is a float.
		if lx.peekByte(0) == '.' && lx.peekByte(1) >= '0' && lx.peekByte(1) <= '9' {
			float = true
			lx.advance(1)
			for lx.pos < len(lx.src) && (isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '_') {
				lx.advance(1)
			}
		}
		if c := lx.peekByte(0); c == 'e' || c == 'E' {
			n := 1
			if s := lx.peekByte(1); s == '+' || s == '-' {
				n = 2
			}
			if d := lx.peekByte(n); d >= '0' && d <= '9' {
				float = true
				lx.advance(n)
				for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
					lx.advance(1)
				}
			}
		}
	}

	text := lx.src[start:lx.pos]
	tok.Text = text
	clean := strings.ReplaceAll(text, "_", "")
	if float {
		tok.Kind = TokFloat
		if _, err := strconv.ParseFloat(clean, 64); err != nil {
			return tok, compileErr(tok.Line, "invalid floating-point literal '%s'", text)
		}
		return tok, nil
	}

	tok.Kind = TokInt
	digits := clean
	if base != 10 {
		digits = clean[2:]
	}
	if _, err := strconv.ParseInt(digits, base, 64); err != nil {
		return tok, compileErr(tok.Line, "integer literal '%s' overflows when stored into 'Int'", text)
	}
	return tok, nil
}

func (lx *lexer) lexString(tok Token) (Token, error) {
	tok.Kind = TokString
	if strings.HasPrefix(lx.src[lx.pos:], `"""`) {
		return lx.lexMultiline(tok)
	}
	lx.advance(1)

	var parts []StrPart
	var lit strings.Builder
	for {
		if lx.pos >= len(lx.src) || lx.src[lx.pos] == '\n' {
			return tok, compileErr(tok.Line, "unterminated string literal")
		}
		c := lx.src[lx.pos]
		if c == '"' {
			lx.advance(1)
			break
		}
		if c != '\\' {
			r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
			lit.WriteRune(r)
			lx.pos += size
			lx.col++
			continue
		}
		if lx.peekByte(1) == '(' {
			if lit.Len() > 0 || len(parts) == 0 {
				parts = append(parts, StrPart{Lit: lit.String()})
				lit.Reset()
			}
			part, err := lx.lexInterpolation()
			if err != nil {
				return tok, err
			}
			parts = append(parts, part)
			continue
		}
		if err := lx.lexEscape(&lit, tok.Line); err != nil {
			return tok, err
		}
	}
	if lit.Len() > 0 || len(parts) == 0 {
		parts = append(parts, StrPart{Lit: lit.String()})
	}
	tok.Parts = parts
	return tok, nil
}

// lexMultiline reads a """ literal. The closing delimiter's indentation is
// removed from every line.
func (lx *lexer) lexMultiline(tok Token) (Token, error) {
	lx.advance(3)
	for lx.pos < len(lx.src) && (lx.src[lx.pos] == ' ' || lx.src[lx.pos] == '\t') {
		lx.advance(1)
	}
	if lx.peekByte(0) != '\n' {
		return tok, compileErr(tok.Line, "multi-line string literal content must begin on a new line")
	}
	lx.advance(1)

	end := strings.Index(lx.src[lx.pos:], `"""`)
	if end < 0 {
		return tok, compileErr(tok.Line, "unterminated string literal")
	}
	body := lx.src[lx.pos : lx.pos+end]
	lastNL := strings.LastIndexByte(body, '\n')
	indent := body[lastNL+1:]
	if strings.TrimLeft(indent, " \t") != "" {
		return tok, compileErr(tok.Line, "multi-line string literal closing delimiter must begin on a new line")
	}

	var lines []string
	if lastNL >= 0 {
		lines = strings.Split(body[:lastNL], "\n")
	}
	for i, l := range lines {
		lines[i] = strings.TrimPrefix(l, indent)
	}
	text := strings.Join(lines, "\n")

	// Re-lex the dedented content as an ordinary literal body so escapes
	// and interpolations behave the same.
	inner := &lexer{src: text, line: tok.Line + 1, col: 1}
	var parts []StrPart
	var lit strings.Builder
	for inner.pos < len(inner.src) {
		c := inner.src[inner.pos]
		if c != '\\' {
			r, size := utf8.DecodeRuneInString(inner.src[inner.pos:])
			lit.WriteRune(r)
			inner.advance(size)
			continue
		}
		if inner.peekByte(1) == '(' {
			parts = append(parts, StrPart{Lit: lit.String()})
			lit.Reset()
			part, err := inner.lexInterpolation()
			if err != nil {
				return tok, err
			}
			parts = append(parts, part)
			continue
		}
		if err := inner.lexEscape(&lit, inner.line); err != nil {
			return tok, err
		}
	}
	if lit.Len() > 0 || len(parts) == 0 {
		parts = append(parts, StrPart{Lit: lit.String()})
	}
	tok.Parts = parts

	lx.advance(end + 3)
	return tok, nil
}

func (lx *lexer) lexEscape(lit *strings.Builder, line int) error {
	lx.advance(1)
	c := lx.peekByte(0)
	switch c {
	case 'n':
		lit.WriteByte('\n')
	case 't':
		lit.WriteByte('\t')
	case 'r':
		lit.WriteByte('\r')
	case '0':
		lit.WriteByte(0)
	case '\\', '"', '\'':
		lit.WriteByte(c)
	case 'u':
		if lx.peekByte(1) != '{' {
			return compileErr(line, "expected hexadecimal code in braces after unicode escape")
		}
		end := strings.IndexByte(lx.src[lx.pos:], '}')
		if end < 0 {
			return compileErr(line, "expected '}' in \\u{...} escape sequence")
		}
		code, err := strconv.ParseUint(lx.src[lx.pos+2:lx.pos+end], 16, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			return compileErr(line, "invalid unicode scalar")
		}
		lit.WriteRune(rune(code))
		lx.advance(end + 1)
		return nil
	default:
		return compileErr(line, "invalid escape sequence in literal")
	}
	lx.advance(1)
	return nil
}

// lexInterpolation reads \( ... ) and returns its raw source. Nested
// parentheses and string literals are skipped over.
func (lx *lexer) lexInterpolation() (StrPart, error) {
	line := lx.line
	lx.advance(2)
	start := lx.pos
	depth := 1
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch c {
		case '\n':
			return StrPart{}, compileErr(line, "unterminated string interpolation")
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				src := lx.src[start:lx.pos]
				lx.advance(1)
				if strings.TrimSpace(src) == "" {
					return StrPart{}, compileErr(line, "expected expression in string interpolation")
				}
				return StrPart{Interp: true, Src: src, Line: line}, nil
			}
		case '"':
			lx.advance(1)
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '"' {
				if lx.src[lx.pos] == '\\' {
					lx.advance(1)
				}
				lx.advance(1)
			}
		}
		lx.advance(1)
	}
	return StrPart{}, compileErr(line, "unterminated string interpolation")
}
