package session

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsmostafa/goplay/internal/eval"
	"github.com/itsmostafa/goplay/internal/lesson"
)

func TestVerify_Lesson(t *testing.T) {
	path := writeLesson(t, t.TempDir(), "verify.md", `# Verify

~~~swift
let name = "World"
print("Hello, \(name)!") // Prints Hello, World!
~~~

~~~swift
name.count // => 5
~~~

~~~swift
let y: Int? = nil
print(y!) // error: runtime
~~~

~~~swift
Int.random(in: 1...6) // => in 1...6
~~~

~~~swift
print(1 + 1) // Prints 3
~~~

~~~swift
let q: Int? = nil
q!
~~~

~~~swift
let z = 1
~~~
`)
	l, err := lesson.Load(path)
	require.NoError(t, err)
	report, err := newSession(t).RunLesson(context.Background(), l)
	require.NoError(t, err)

	v := Verify(report, l)
	assert.False(t, v.Passed)
	assert.Equal(t, 4, v.Pass)
	assert.Equal(t, 2, v.Fail)
	assert.Equal(t, 1, v.Unchecked)

	statuses := make([]Status, len(v.Checks))
	for i, c := range v.Checks {
		statuses[i] = c.Status
	}
	want := []Status{StatusPass, StatusPass, StatusPass, StatusPass, StatusFail, StatusFail, StatusUnchecked}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Errorf("statuses mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, v.Checks[4].Problems, 1)
	assert.Contains(t, v.Checks[4].Problems[0], `expected "3", printed "2"`)
	require.Len(t, v.Checks[5].Problems, 1)
	assert.Contains(t, v.Checks[5].Problems[0], "unexpected runtime failure")
}

func TestVerify_Cell(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name     string
		expected []lesson.Expectation
		result   eval.ExecutionResult
		problems []string
	}{
		{
			name:     "normalizes unicode",
			expected: []lesson.Expectation{{Kind: lesson.ExpectPrint, Text: "caf\u00e9", Line: 1}},
			result:   eval.ExecutionResult{PrintedLines: []string{"cafe\u0301"}},
		},
		{
			name:     "quoted string value",
			expected: []lesson.Expectation{{Kind: lesson.ExpectValue, Text: "hi", Line: 1}},
			result:   eval.ExecutionResult{FinalValue: str(`"hi"`)},
		},
		{
			name:     "missing value",
			expected: []lesson.Expectation{{Kind: lesson.ExpectValue, Text: "3", Line: 2}},
			result:   eval.ExecutionResult{},
			problems: []string{`line 2: expected value "3", but the cell has no value`},
		},
		{
			name: "too few lines",
			expected: []lesson.Expectation{
				{Kind: lesson.ExpectPrint, Text: "a", Line: 1},
				{Kind: lesson.ExpectPrint, Text: "b", Line: 2},
			},
			result:   eval.ExecutionResult{PrintedLines: []string{"a"}},
			problems: []string{"expected 2 printed lines, got 1"},
		},
		{
			name:     "wrong failure kind",
			expected: []lesson.Expectation{{Kind: lesson.ExpectFailure, Failure: eval.CompileFailure}},
			result:   eval.ExecutionResult{Failure: eval.Faultf(1, "boom")},
			problems: []string{"expected a compile failure, got runtime failure at line 1: boom"},
		},
		{
			name:     "failure expected but none",
			expected: []lesson.Expectation{{Kind: lesson.ExpectFailure, Failure: eval.Timeout}},
			result:   eval.ExecutionResult{},
			problems: []string{"expected a timeout failure, but the cell succeeded"},
		},
		{
			name:     "range",
			expected: []lesson.Expectation{{Kind: lesson.ExpectPrint, Range: &lesson.Range{Lo: 0, Hi: 1, HalfOpen: true}, Line: 4}},
			result:   eval.ExecutionResult{PrintedLines: []string{"1"}},
			problems: []string{`line 4: expected in 0..<1, printed "1"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cell := lesson.Cell{Expected: tt.expected}
			got := checkCell(cell, tt.result)
			if diff := cmp.Diff(tt.problems, got); diff != "" {
				t.Errorf("problems mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVerify_MissingResults(t *testing.T) {
	l := &lesson.Lesson{Path: "x.md", Cells: []lesson.Cell{{Index: 0}}}
	v := Verify(&LessonReport{}, l)
	assert.False(t, v.Passed)
	assert.Equal(t, []string{"cell was not evaluated"}, v.Checks[0].Problems)
}
