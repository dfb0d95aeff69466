package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/itsmostafa/goplay/internal/config"
	"github.com/itsmostafa/goplay/internal/eval"
	"github.com/itsmostafa/goplay/internal/lesson"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	cfg := config.Default()
	cfg.CellTimeout = time.Second
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

// writeLesson writes src below dir. Fences are spelled ~~~ in test sources
// and turned into backticks here.
func writeLesson(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.ReplaceAll(src, "~~~", "```")), 0644))
	return path
}

func failureKinds(results []eval.ExecutionResult) []eval.FailureKind {
	kinds := make([]eval.FailureKind, len(results))
	for i, r := range results {
		if r.Failure != nil {
			kinds[i] = r.Failure.Kind
		}
	}
	return kinds
}

func TestRun_ScopeIsShared(t *testing.T) {
	path := writeLesson(t, t.TempDir(), "scope.md", `# Scope

~~~swift
let x = 3
~~~

~~~swift
print(x + 1)
~~~
`)

	report, err := newSession(t).Run(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	assert.Equal(t, "Scope", report.Lesson.Title)
	assert.Equal(t, "swift", report.Lesson.Engine)
	assert.Nil(t, report.Results[0].Failure)
	assert.Empty(t, report.Results[0].PrintedLines)
	assert.Nil(t, report.Results[0].FinalValue)
	assert.Equal(t, []string{"4"}, report.Results[1].PrintedLines)
	assert.Nil(t, report.Results[1].FinalValue)
	assert.Nil(t, report.Results[1].Failure)
}

func TestRun_FailureDoesNotStopLesson(t *testing.T) {
	path := writeLesson(t, t.TempDir(), "unwrap.md", `~~~swift
let y: Int? = nil
~~~

~~~swift
print(y!)
~~~

~~~swift
print("still running")
~~~
`)

	report, err := newSession(t).Run(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	require.NotNil(t, report.Results[1].Failure)
	assert.Equal(t, eval.RuntimeFault, report.Results[1].Failure.Kind)
	assert.Empty(t, report.Results[1].PrintedLines)
	assert.Equal(t, []string{"still running"}, report.Results[2].PrintedLines)
	assert.Equal(t, 1, report.Failures())
}

func TestRun_NilResultIsNotAFailure(t *testing.T) {
	path := writeLesson(t, t.TempDir(), "lookup.md", `~~~swift
print("start")
let ages = ["a": 1]
let b = ages["b"]
print(b ?? 0)
~~~

~~~swift
let n = Int("abc")
print(n == nil)
~~~
`)

	report, err := newSession(t).Run(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	assert.Equal(t, []eval.FailureKind{"", ""}, failureKinds(report.Results))
	assert.Equal(t, []string{"start", "0"}, report.Results[0].PrintedLines)
	assert.Equal(t, []string{"true"}, report.Results[1].PrintedLines)
}

func TestRun_UnclosedFenceIsParseError(t *testing.T) {
	path := writeLesson(t, t.TempDir(), "broken.md", `# Broken

~~~swift
let x = 1
`)

	report, err := newSession(t).Run(context.Background(), path)
	assert.Nil(t, report)

	var perr *lesson.ParseError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, 3, perr.Line)
}

func TestRun_Idempotent(t *testing.T) {
	path := writeLesson(t, t.TempDir(), "repeat.md", `~~~swift
var total = 0
for i in 1...4 {
    total += i
}
print("total: \(total)")
total
~~~

~~~swift
let words = ["b", "a", "c"]
words.sorted()
~~~

~~~swift
let n: Int? = nil
n!
~~~
`)
	s := newSession(t)

	first, err := s.Run(context.Background(), path)
	require.NoError(t, err)
	second, err := s.Run(context.Background(), path)
	require.NoError(t, err)

	ignoreTiming := cmpopts.IgnoreFields(eval.ExecutionResult{}, "Duration")
	if diff := cmp.Diff(first.Results, second.Results, ignoreTiming); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, []string{"total: 10"}, first.Results[0].PrintedLines)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))

	firstYAML, err := yaml.Marshal(first)
	require.NoError(t, err)
	secondYAML, err := yaml.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstYAML), string(secondYAML))
}

func TestRun_LessonsDoNotShareScope(t *testing.T) {
	dir := t.TempDir()
	a := writeLesson(t, dir, "a.md", "~~~swift\nlet shared = 1\n~~~\n")
	b := writeLesson(t, dir, "b.md", "~~~swift\nprint(shared)\n~~~\n")
	s := newSession(t)

	ra, err := s.Run(context.Background(), a)
	require.NoError(t, err)
	assert.Nil(t, ra.Results[0].Failure)

	rb, err := s.Run(context.Background(), b)
	require.NoError(t, err)
	require.NotNil(t, rb.Results[0].Failure)
	assert.Equal(t, eval.CompileFailure, rb.Results[0].Failure.Kind)
}

func TestRun_IsolatedCells(t *testing.T) {
	path := writeLesson(t, t.TempDir(), "isolated.md", `~~~swift
let x = 1
~~~

~~~swift isolated
print(x)
~~~

~~~swift isolated
let z = 2
~~~

~~~swift
print(z)
~~~

~~~swift
print(x)
~~~
`)

	report, err := newSession(t).Run(context.Background(), path)
	require.NoError(t, err)

	want := []eval.FailureKind{"", eval.CompileFailure, "", eval.CompileFailure, ""}
	assert.Equal(t, want, failureKinds(report.Results))
	assert.Equal(t, []string{"1"}, report.Results[4].PrintedLines)
}

func TestRun_EnginesHaveSeparateScopes(t *testing.T) {
	path := writeLesson(t, t.TempDir(), "mixed.md", `~~~swift
let x = 1
~~~

~~~js
let x = 2; x
~~~

~~~tengo
x
~~~

~~~swift
x
~~~
`)
	s := newSession(t)

	report, err := s.Run(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []eval.FailureKind{"", "", eval.CompileFailure, ""}, failureKinds(report.Results))
	require.NotNil(t, report.Results[1].FinalValue)
	assert.Equal(t, "2", *report.Results[1].FinalValue)
	require.NotNil(t, report.Results[3].FinalValue)
	assert.Equal(t, "1", *report.Results[3].FinalValue)
	assert.Equal(t, []string{"js", "swift", "tengo"}, s.LoadedEngines())
}

func TestRun_Playground(t *testing.T) {
	path := writeLesson(t, t.TempDir(), "basics.swift", `//: # Basics
let a = 2
/*:
 Doubling a constant.
 */
print(a * 2) // Prints 4
`)

	report, err := newSession(t).Run(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "Basics", report.Lesson.Title)
	assert.Equal(t, []string{"4"}, report.Results[1].PrintedLines)
}

func TestRun_CancelledContext(t *testing.T) {
	path := writeLesson(t, t.TempDir(), "cancel.md", "~~~swift\nlet x = 1\n~~~\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newSession(t).Run(ctx, path)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultEngine = "cobol"
	_, err := New(cfg)
	assert.ErrorContains(t, err, "unknown engine")

	cfg = config.Default()
	cfg.CellTimeout = 0
	_, err = New(cfg)
	assert.ErrorContains(t, err, "cell_timeout")
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	writeLesson(t, dir, "b.md", "~~~swift\nprint(\"b\")\n~~~\n")
	writeLesson(t, dir, "a.md", "~~~swift\nprint(\"a\")\n~~~\n")
	writeLesson(t, dir, "broken.md", "~~~swift\nprint(1)\n")
	writeLesson(t, dir, "sub/c.swift", "print(\"c\")\n")
	writeLesson(t, dir, "vendor/skipped.md", "~~~swift\nprint(1)\n~~~\n")
	writeLesson(t, dir, "notes.txt", "not a lesson")

	outcomes, err := newSession(t).RunAll(context.Background(), dir)
	require.NoError(t, err)

	var paths []string
	for _, o := range outcomes {
		rel, err := filepath.Rel(dir, o.Path)
		require.NoError(t, err)
		paths = append(paths, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"a.md", "b.md", "broken.md", "sub/c.swift"}, paths)

	assert.Equal(t, []string{"a"}, outcomes[0].Report.Results[0].PrintedLines)
	assert.Nil(t, outcomes[2].Report)
	var perr *lesson.ParseError
	assert.True(t, errors.As(outcomes[2].Err, &perr))
	assert.Equal(t, []string{"c"}, outcomes[3].Report.Results[0].PrintedLines)
}

func TestCatalog(t *testing.T) {
	dir := t.TempDir()
	one := writeLesson(t, dir, "one.md", "# One\n")
	four := writeLesson(t, dir, "four.markdown", "# Four\n")
	writeLesson(t, dir, ".hidden/two.md", "# Two\n")
	writeLesson(t, dir, "drafts/three.swift", "let x = 1\n")
	other := writeLesson(t, dir, "readme.txt", "")

	paths, err := NewCatalog(dir, []string{"drafts"}).Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{four, one}, paths)

	paths, err = NewCatalog(one, nil).Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{one}, paths)

	_, err = NewCatalog(other, nil).Discover()
	assert.ErrorContains(t, err, "not a lesson file")

	_, err = NewCatalog(filepath.Join(dir, "missing"), nil).Discover()
	assert.Error(t, err)
}

func TestSampleLessons(t *testing.T) {
	outcomes, err := newSession(t).RunAll(context.Background(), filepath.Join("..", "..", "lessons"))
	require.NoError(t, err)
	require.NotEmpty(t, outcomes)

	for _, o := range outcomes {
		t.Run(filepath.Base(o.Path), func(t *testing.T) {
			require.NoError(t, o.Err)
			v := Verify(o.Report, o.Lesson)
			for _, c := range v.Checks {
				assert.Empty(t, c.Problems, "cell %d (line %d)", c.Cell, c.Line)
			}
			assert.True(t, v.Passed)
		})
	}
}
