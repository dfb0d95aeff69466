package engines

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/itsmostafa/goplay/internal/capture"
	"github.com/itsmostafa/goplay/internal/eval"
)

// finalName holds the value of a cell's trailing expression.
const finalName = "__final__"

// tengoModules are the standard modules cells may import. os and the like
// are left out so cells cannot touch the host.
var tengoModules = []string{"math", "text", "times", "rand", "fmt", "json", "base64", "hex", "enum"}

var tengoLocation = regexp.MustCompile(`\(main\):(\d+):\d+`)

// Tengo runs cells as tengo scripts. Globals of a successful cell carry
// over to the next one; compiled functions do not, since they belong to the
// bytecode of the cell that defined them.
type Tengo struct {
	maxAllocs int64
}

// NewTengo creates the tengo engine.
func NewTengo() *Tengo {
	return &Tengo{maxAllocs: 1000000}
}

func (t *Tengo) Name() string { return "tengo" }

func (t *Tengo) NewScope() eval.Scope {
	return &TengoScope{vars: map[string]tengo.Object{}}
}

// TengoScope holds the globals declared by earlier cells.
type TengoScope struct {
	vars map[string]tengo.Object
}

func (s *TengoScope) Begin() eval.Scope {
	vars := make(map[string]tengo.Object, len(s.vars))
	for name, v := range s.vars {
		vars[name] = v.Copy()
	}
	return &TengoScope{vars: vars}
}

func (s *TengoScope) Commit(working eval.Scope) {
	s.vars = working.(*TengoScope).vars
}

func (t *Tengo) Eval(ctx context.Context, src string, scope eval.Scope, out *capture.Capture) error {
	s, ok := scope.(*TengoScope)
	if !ok {
		return fmt.Errorf("tengo engine: unexpected scope %T", scope)
	}

	// Prefer reading the last line as an expression; fall back to the cell
	// as written when that does not compile.
	var compiled *tengo.Compiled
	hasFinal := false
	if withFinal, ok := finalExpression(src); ok {
		if c, err := t.compile(withFinal, s, out); err == nil {
			compiled, hasFinal = c, true
		}
	}
	if compiled == nil {
		c, err := t.compile(src, s, out)
		if err != nil {
			line, msg := tengoError(err, "Compile Error: ")
			return eval.Compilef(line, "%s", msg)
		}
		compiled = c
	}

	if err := compiled.RunContext(ctx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("tengo: %w", ctx.Err())
		}
		line, msg := tengoError(err, "Runtime Error: ")
		return eval.Faultf(line, "%s", msg)
	}

	for _, v := range compiled.GetAll() {
		switch v.Object().(type) {
		case *tengo.UserFunction, *tengo.CompiledFunction:
			continue
		}
		if v.Name() != finalName {
			s.vars[v.Name()] = v.Object()
		}
	}
	if !hasFinal {
		return nil
	}
	final := compiled.Get(finalName).Object()
	if final == tengo.UndefinedValue {
		return nil
	}
	return out.SetFinal(formatTengo(final, true))
}

func (t *Tengo) compile(src string, s *TengoScope, out *capture.Capture) (*tengo.Compiled, error) {
	script := tengo.NewScript([]byte(src))
	script.SetMaxAllocs(t.maxAllocs)
	script.SetImports(stdlib.GetModuleMap(tengoModules...))

	for name, v := range s.vars {
		if err := script.Add(name, v); err != nil {
			return nil, fmt.Errorf("add variable %s: %w", name, err)
		}
	}
	addBuiltinFunctions(script, out)
	return script.Compile()
}

// addBuiltinFunctions adds print (space separated, newline terminated) and
// println as an alias.
func addBuiltinFunctions(script *tengo.Script, out *capture.Capture) {
	printFunc := func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = formatTengo(arg, false)
		}
		if err := out.Print(strings.Join(parts, " ")); err != nil {
			return nil, err
		}
		return tengo.UndefinedValue, nil
	}
	_ = script.Add("print", &tengo.UserFunction{Name: "print", Value: printFunc})
	_ = script.Add("println", &tengo.UserFunction{Name: "println", Value: printFunc})
}

// finalExpression rewrites src so its last line is assigned to finalName.
// ok is false when the last line cannot be an expression.
func finalExpression(src string) (string, bool) {
	lines := strings.Split(strings.TrimRight(src, "\n\t "), "\n")
	last := strings.TrimSpace(stripComment(lines[len(lines)-1]))
	if last == "" || strings.HasSuffix(last, "{") || strings.HasPrefix(last, "}") {
		return "", false
	}
	for _, kw := range []string{"if ", "for ", "return", "break", "continue", "export", "import"} {
		if strings.HasPrefix(last, kw) {
			return "", false
		}
	}
	lines[len(lines)-1] = finalName + " := (" + last + ")"
	return strings.Join(lines, "\n"), true
}

// stripComment removes a trailing // comment outside string literals.
func stripComment(line string) string {
	var quote rune
	escaped := false
	for i, r := range line {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if r == '\\' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'' || r == '`':
			quote = r
		case r == '/' && strings.HasPrefix(line[i:], "//"):
			return line[:i]
		}
	}
	return line
}

// tengoError extracts the message and cell line from a tengo error.
func tengoError(err error, prefix string) (int, string) {
	text := err.Error()
	line := 0
	if m := tengoLocation.FindStringSubmatch(text); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	msg := strings.TrimPrefix(firstLine(text), prefix)
	return line, msg
}

// formatTengo renders a tengo object. quoted is set for final values, where
// strings are shown with quotes.
func formatTengo(o tengo.Object, quoted bool) string {
	switch v := o.(type) {
	case *tengo.String:
		if quoted {
			return strconv.Quote(v.Value)
		}
		return v.Value
	case *tengo.Array:
		items := make([]string, len(v.Value))
		for i, item := range v.Value {
			items[i] = formatTengo(item, true)
		}
		return "[" + strings.Join(items, ", ") + "]"
	}
	if o == tengo.UndefinedValue {
		return "undefined"
	}
	return o.String()
}
