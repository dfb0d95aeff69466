package engines

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsmostafa/goplay/internal/config"
	"github.com/itsmostafa/goplay/internal/eval"
)

// runCells evaluates cells in order against one scope, the way a session
// does.
func runCells(t *testing.T, engine eval.Engine, timeout time.Duration, cells ...string) []eval.ExecutionResult {
	t.Helper()
	ev := eval.New(eval.Config{Timeout: timeout})
	scope := engine.NewScope()
	results := make([]eval.ExecutionResult, len(cells))
	for i, src := range cells {
		results[i] = ev.Evaluate(context.Background(), engine, scope, i, src)
	}
	return results
}

func finalOf(t *testing.T, r eval.ExecutionResult) string {
	t.Helper()
	require.Nil(t, r.Failure)
	require.NotNil(t, r.FinalValue)
	return *r.FinalValue
}

func TestNativeScenarios(t *testing.T) {
	native := NewNative(0)

	results := runCells(t, native, time.Second, "let x = 3", "print(x + 1)")
	assert.Empty(t, results[0].PrintedLines)
	assert.Nil(t, results[0].FinalValue)
	assert.Equal(t, []string{"4"}, results[1].PrintedLines)
	assert.Nil(t, results[1].FinalValue)

	results = runCells(t, native, time.Second, "let y: Int? = nil", "print(y!)")
	assert.Nil(t, results[0].Failure)
	require.NotNil(t, results[1].Failure)
	assert.Equal(t, eval.RuntimeFault, results[1].Failure.Kind)
	assert.Empty(t, results[1].PrintedLines)
}

func TestNativeRollsBackFailedCells(t *testing.T) {
	results := runCells(t, NewNative(0), time.Second,
		"var a = 1",
		"a = 2\nlet q: Int? = nil\nprint(q!)",
		"a",
	)
	require.NotNil(t, results[1].Failure)
	assert.Equal(t, "1", finalOf(t, results[2]))
}

func TestNativeFailureKinds(t *testing.T) {
	tests := []struct {
		src  string
		kind eval.FailureKind
		line int
	}{
		{"print(\"ok\")\nprint(missing)", eval.CompileFailure, 2},
		{"let xs = [1]\nxs[4]", eval.RuntimeFault, 2},
		{"var n = 0\nwhile true {\n    n += 1\n}", eval.Timeout, 0},
	}
	for _, tt := range tests {
		r := runCells(t, NewNative(0), 100*time.Millisecond, tt.src)[0]
		require.NotNil(t, r.Failure, tt.src)
		assert.Equal(t, tt.kind, r.Failure.Kind, tt.src)
		assert.Equal(t, tt.line, r.Failure.Line, tt.src)
		if tt.kind == eval.CompileFailure {
			assert.Empty(t, r.PrintedLines, "a rejected cell prints nothing")
		}
	}
}

func TestNativeScopeNames(t *testing.T) {
	native := NewNative(0)
	scope := native.NewScope()
	ev := eval.New(eval.Config{})
	ev.Evaluate(context.Background(), native, scope, 0, "let answer = 42\nfunc greet() {}")

	assert.Equal(t, []string{"answer", "greet"}, scope.(*NativeScope).Names())
}

func TestJS(t *testing.T) {
	results := runCells(t, NewJS(0), time.Second,
		"let x = 3",
		"x + 1",
		"console.log('hi', 2)",
		"'a'",
		"[1, 'b']",
		"({n: 1})",
	)
	assert.Nil(t, results[0].FinalValue)
	assert.Equal(t, "4", finalOf(t, results[1]))
	assert.Equal(t, []string{"hi 2"}, results[2].PrintedLines)
	assert.Equal(t, `"a"`, finalOf(t, results[3]))
	assert.Equal(t, `[1, "b"]`, finalOf(t, results[4]))
	assert.Equal(t, `{"n":1}`, finalOf(t, results[5]))
}

func TestJSFailureKinds(t *testing.T) {
	tests := []struct {
		src  string
		kind eval.FailureKind
	}{
		{"undefinedThing + 1", eval.CompileFailure},
		{"let = ;", eval.CompileFailure},
		{"throw new Error('boom')", eval.RuntimeFault},
		{"null.foo", eval.RuntimeFault},
		{"while (true) {}", eval.Timeout},
	}
	for _, tt := range tests {
		r := runCells(t, NewJS(0), 100*time.Millisecond, tt.src)[0]
		require.NotNil(t, r.Failure, tt.src)
		assert.Equal(t, tt.kind, r.Failure.Kind, tt.src)
	}
}

func TestJSRuntimeUsableAfterTimeout(t *testing.T) {
	results := runCells(t, NewJS(0), 100*time.Millisecond,
		"var n = 1",
		"while (true) {}",
		"n + 1",
	)
	require.NotNil(t, results[1].Failure)
	assert.Equal(t, eval.Timeout, results[1].Failure.Kind)
	assert.Equal(t, "2", finalOf(t, results[2]))
}

func TestTengo(t *testing.T) {
	results := runCells(t, NewTengo(), time.Second,
		"a := 2",
		"a * 3",
		`print("x", 1)`,
		`"s" // => "s"`,
		"a = a + 1\na",
	)
	assert.Nil(t, results[0].FinalValue)
	assert.Equal(t, "6", finalOf(t, results[1]))
	assert.Equal(t, []string{"x 1"}, results[2].PrintedLines)
	assert.Nil(t, results[2].FinalValue)
	assert.Equal(t, `"s"`, finalOf(t, results[3]))
	assert.Equal(t, "3", finalOf(t, results[4]))
}

func TestTengoFailureKinds(t *testing.T) {
	results := runCells(t, NewTengo(), 100*time.Millisecond,
		"a := 2",
		"b + 1",
		"a = 100\nx := [1]\ny := x[\"k\"]",
		"for {}",
		"a",
	)
	require.NotNil(t, results[1].Failure)
	assert.Equal(t, eval.CompileFailure, results[1].Failure.Kind)
	require.NotNil(t, results[2].Failure)
	assert.Equal(t, eval.RuntimeFault, results[2].Failure.Kind)
	require.NotNil(t, results[3].Failure)
	assert.Equal(t, eval.Timeout, results[3].Failure.Kind)
	assert.Equal(t, "2", finalOf(t, results[4]), "failed cells leave globals untouched")
}

func TestFinalExpression(t *testing.T) {
	tests := []struct {
		src  string
		want string
		ok   bool
	}{
		{"a + 1", "__final__ := (a + 1)", true},
		{"x := 1\nx // => 1\n", "x := 1\n__final__ := (x)", true},
		{`s := "a//b"`, `__final__ := (s := "a//b")`, true},
		{"if x {\n}", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := finalExpression(tt.src)
		assert.Equal(t, tt.ok, ok, tt.src)
		assert.Equal(t, tt.want, got, tt.src)
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"js", "swift", "tengo"}, Names())

	name, err := Resolve("JavaScript")
	require.NoError(t, err)
	assert.Equal(t, "js", name)

	_, err = Resolve("cobol")
	assert.ErrorContains(t, err, `unknown engine "cobol"`)

	reg := NewRegistry(config.Default())
	a, err := reg.Get("swiftlet")
	require.NoError(t, err)
	b, err := reg.Get("swift")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, []string{"swift"}, reg.Loaded())
	for _, n := range Names() {
		assert.NotEmpty(t, Descriptions[n], n)
	}
}
