package swiftlet

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	text     strings.Builder
	final    string
	hasFinal bool
}

func (r *recorder) Write(s string) error {
	r.text.WriteString(s)
	return nil
}

func (r *recorder) SetFinal(v string) error {
	r.final, r.hasFinal = v, true
	return nil
}

func (r *recorder) lines() []string {
	s := strings.TrimSuffix(r.text.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func run(t *testing.T, scope *Scope, src string) (*recorder, error) {
	t.Helper()
	rec := &recorder{}
	err := Run(context.Background(), src, scope, rec, Options{})
	return rec, err
}

func mustRun(t *testing.T, scope *Scope, src string) *recorder {
	t.Helper()
	rec, err := run(t, scope, src)
	require.NoError(t, err, "source:\n%s", src)
	return rec
}

func asError(t *testing.T, err error) *Error {
	t.Helper()
	var e *Error
	require.True(t, errors.As(err, &e), "want *Error, got %v", err)
	return e
}

func TestCellsShareScope(t *testing.T) {
	scope := NewScope()

	rec := mustRun(t, scope, "let x = 3")
	assert.Empty(t, rec.lines())
	assert.False(t, rec.hasFinal)

	rec = mustRun(t, scope, "print(x + 1)")
	assert.Equal(t, []string{"4"}, rec.lines())
	assert.False(t, rec.hasFinal, "print returns Void")
}

func TestForceUnwrapNilTraps(t *testing.T) {
	scope := NewScope()
	mustRun(t, scope, "let y: Int? = nil")

	rec, err := run(t, scope, "print(y!)")
	e := asError(t, err)
	assert.Equal(t, RuntimeError, e.Kind)
	assert.Contains(t, e.Msg, "Unexpectedly found nil")
	assert.Empty(t, rec.lines())
}

func TestFinalValue(t *testing.T) {
	tests := []struct {
		src   string
		final string
	}{
		{"let x = 3\nx + 1", "4"},
		{`"hi"`, `"hi"`},
		{"[1, 2, 3]", "[1, 2, 3]"},
		{"2.5 * 2", "5.0"},
		{"let t = (1, \"a\")\nt", `(1, "a")`},
		{"let o: Int? = 4\no", "Optional(4)"},
		{"1..<3", "1..<3"},
	}
	for _, tt := range tests {
		rec := mustRun(t, NewScope(), tt.src)
		require.True(t, rec.hasFinal, tt.src)
		assert.Equal(t, tt.final, rec.final, tt.src)
	}
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "interpolation",
			src:  "let name = \"World\"\nprint(\"Hello, \\(name)!\")\nprint(\"\\(2 + 3)\")",
			want: []string{"Hello, World!", "5"},
		},
		{
			name: "for in closed range",
			src:  "var total = 0\nfor i in 1...4 {\n    total += i\n}\nprint(total)",
			want: []string{"10"},
		},
		{
			name: "while with break",
			src:  "var n = 0\nwhile true {\n    n += 1\n    if n == 3 {\n        break\n    }\n}\nprint(n)",
			want: []string{"3"},
		},
		{
			name: "array methods",
			src:  "var xs = [3, 1, 2]\nxs.append(4)\nprint(xs.sorted())\nprint(xs.count)",
			want: []string{"[1, 2, 3, 4]", "4"},
		},
		{
			name: "trailing closure",
			src:  "let nums = [1, 2, 3]\nprint(nums.map { $0 * 2 })",
			want: []string{"[2, 4, 6]"},
		},
		{
			name: "print separator",
			src:  `print(1, 2, 3, separator: "-")`,
			want: []string{"1-2-3"},
		},
		{
			name: "dictionary",
			src:  "var ages = [\"a\": 1]\nages[\"b\"] = 2\nprint(ages.count)",
			want: []string{"2"},
		},
		{
			name: "optional binding",
			src:  "let s: String? = \"hi\"\nif let s = s {\n    print(s.count)\n} else {\n    print(\"none\")\n}",
			want: []string{"2"},
		},
		{
			name: "guard and nil coalescing",
			src: "func half(_ n: Int) -> Int? {\n" +
				"    guard n % 2 == 0 else { return nil }\n" +
				"    return n / 2\n" +
				"}\n" +
				"print(half(4) ?? -1)\n" +
				"print(half(3) ?? -1)",
			want: []string{"2", "-1"},
		},
		{
			name: "struct with method",
			src: "struct Point {\n" +
				"    var x: Int\n" +
				"    var y: Int\n" +
				"    func sum() -> Int {\n" +
				"        return x + y\n" +
				"    }\n" +
				"}\n" +
				"var p = Point(x: 1, y: 2)\n" +
				"p.x = 10\n" +
				"print(p.sum())\n" +
				"print(p)",
			want: []string{"12", "Point(x: 10, y: 2)"},
		},
		{
			name: "enum switch",
			src: "enum Direction {\n" +
				"    case north\n" +
				"    case south\n" +
				"}\n" +
				"let d = Direction.south\n" +
				"switch d {\n" +
				"case .north:\n" +
				"    print(\"up\")\n" +
				"case .south:\n" +
				"    print(\"down\")\n" +
				"}",
			want: []string{"down"},
		},
		{
			name: "grapheme clusters",
			src:  "print(\"héllo👍🏽\".count)",
			want: []string{"6"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mustRun(t, NewScope(), tt.src)
			assert.Equal(t, tt.want, rec.lines())
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{"print(z)", "cannot find 'z' in scope"},
		{"let a = 1\na = 2", "cannot assign to value: 'a' is a 'let' constant"},
		{`print("123" + 456)`, "binary operator '+' cannot be applied to operands of type 'String' and 'Int'"},
		{"let a = 1\nlet a = 2", "invalid redeclaration of 'a'"},
		{"break", "'break' is only allowed inside a loop, if, do, or switch"},
		{"return 1", "return invalid outside of a func"},
		{"if false {\n    print(nope)\n}", "cannot find 'nope' in scope"},
	}
	for _, tt := range tests {
		rec, err := run(t, NewScope(), tt.src)
		e := asError(t, err)
		assert.Equal(t, CompileError, e.Kind, tt.src)
		assert.Equal(t, tt.msg, e.Msg, tt.src)
		assert.Empty(t, rec.lines(), "a rejected cell prints nothing")
	}
}

func TestCompileErrorSeesEarlierCells(t *testing.T) {
	scope := NewScope()
	mustRun(t, scope, "let limit = 10")

	_, err := run(t, scope, "limit = 11")
	assert.Equal(t, "cannot assign to value: 'limit' is a 'let' constant", asError(t, err).Msg)

	rec := mustRun(t, scope, "let limit = 12\nprint(limit)")
	assert.Equal(t, []string{"12"}, rec.lines(), "a later cell may redeclare a name")
}

func TestRuntimeTraps(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{"let xs = [1]\nprint(xs[3])", "Index out of range"},
		{"let z = 0\nprint(1 / z)", "Division by zero"},
		{"print(Int.max + 1)", "arithmetic overflow"},
		{"fatalError(\"boom\")", "Fatal error: boom"},
		{"func f(_ n: Int) -> Int {\n    return f(n + 1)\n}\nf(0)", "stack overflow"},
	}
	for _, tt := range tests {
		_, err := run(t, NewScope(), tt.src)
		e := asError(t, err)
		assert.Equal(t, RuntimeError, e.Kind, tt.src)
		assert.Equal(t, tt.msg, e.Msg, tt.src)
	}
}

func TestTrapKeepsEarlierOutput(t *testing.T) {
	rec, err := run(t, NewScope(), "print(\"before\")\nlet xs: [Int] = []\nprint(xs[0])\nprint(\"after\")")
	assert.Equal(t, RuntimeError, asError(t, err).Kind)
	assert.Equal(t, []string{"before"}, rec.lines())
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := Run(ctx, "var i = 0\nwhile true {\n    i += 1\n}", NewScope(), &recorder{}, Options{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloneIsolatesChanges(t *testing.T) {
	scope := NewScope()
	mustRun(t, scope, "var a = 1")

	trial := scope.Clone()
	mustRun(t, trial, "a = 2\nvar b = 3")

	v, ok := scope.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, IntVal(1), v)
	_, ok = scope.Lookup("b")
	assert.False(t, ok)

	v, ok = trial.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, IntVal(2), v)
}

func TestFunctionsPersistAcrossCells(t *testing.T) {
	scope := NewScope()
	mustRun(t, scope, "func square(_ n: Int) -> Int {\n    return n * n\n}")
	rec := mustRun(t, scope, "square(5)")
	assert.Equal(t, "25", rec.final)
	assert.Contains(t, scope.Names(), "square")
}

func TestErrorf(t *testing.T) {
	_, err := run(t, NewScope(), "print(z)")
	assert.Equal(t, "compile error: cannot find 'z' in scope", Errorf(err))
}
