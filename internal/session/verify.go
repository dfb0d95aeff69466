package session

import (
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/itsmostafa/goplay/internal/eval"
	"github.com/itsmostafa/goplay/internal/lesson"
)

// Status is the verdict of one cell.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"

	// StatusUnchecked marks a successful cell without annotations.
	StatusUnchecked Status = "unchecked"
)

// CellCheck is the verification outcome of one cell.
type CellCheck struct {
	Cell     int      `json:"cell" yaml:"cell"`
	Line     int      `json:"line" yaml:"line"`
	Status   Status   `json:"status" yaml:"status"`
	Problems []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// VerificationReport compares a lesson's annotations with what its cells
// actually produced.
type VerificationReport struct {
	Lesson    string      `json:"lesson" yaml:"lesson"`
	Passed    bool        `json:"passed" yaml:"passed"`
	Checks    []CellCheck `json:"checks" yaml:"checks"`
	Pass      int         `json:"pass" yaml:"pass"`
	Fail      int         `json:"fail" yaml:"fail"`
	Unchecked int         `json:"unchecked" yaml:"unchecked"`
}

// Verify checks every cell of l against its result in report. A cell fails
// when its output differs from its annotations, or when it failed without
// an `// error:` annotation saying it should. Text is compared in Unicode
// NFC form.
func Verify(report *LessonReport, l *lesson.Lesson) VerificationReport {
	v := VerificationReport{
		Lesson: l.Path,
		Passed: true,
		Checks: make([]CellCheck, 0, len(l.Cells)),
	}

	for i, cell := range l.Cells {
		check := CellCheck{Cell: cell.Index, Line: cell.Line}
		if i < len(report.Results) {
			check.Problems = checkCell(cell, report.Results[i])
		} else {
			check.Problems = []string{"cell was not evaluated"}
		}

		switch {
		case len(check.Problems) > 0:
			check.Status = StatusFail
			v.Fail++
			v.Passed = false
		case !cell.HasExpectations():
			check.Status = StatusUnchecked
			v.Unchecked++
		default:
			check.Status = StatusPass
			v.Pass++
		}
		v.Checks = append(v.Checks, check)
	}
	return v
}

// checkCell lists every way result differs from the cell's annotations.
func checkCell(cell lesson.Cell, result eval.ExecutionResult) []string {
	var problems []string
	var wantFailure *lesson.Expectation
	var prints, values []lesson.Expectation
	for _, e := range cell.Expected {
		switch e.Kind {
		case lesson.ExpectFailure:
			wantFailure = &e
		case lesson.ExpectPrint:
			prints = append(prints, normalized(e))
		case lesson.ExpectValue:
			values = append(values, normalized(e))
		}
	}

	switch {
	case wantFailure != nil && result.Failure == nil:
		problems = append(problems, fmt.Sprintf("expected a %s failure, but the cell succeeded", wantFailure.Failure))
	case wantFailure != nil && result.Failure.Kind != wantFailure.Failure:
		problems = append(problems, fmt.Sprintf("expected a %s failure, got %s", wantFailure.Failure, result.Failure.Error()))
	case wantFailure == nil && result.Failure != nil:
		problems = append(problems, "unexpected "+result.Failure.Error())
	}

	if len(prints) > 0 {
		if len(prints) != len(result.PrintedLines) {
			problems = append(problems, fmt.Sprintf("expected %d printed lines, got %d", len(prints), len(result.PrintedLines)))
		}
		for i := 0; i < len(prints) && i < len(result.PrintedLines); i++ {
			actual := norm.NFC.String(result.PrintedLines[i])
			if !prints[i].Matches(actual) {
				problems = append(problems, fmt.Sprintf("line %d: expected %s, printed %q", prints[i].Line, quoteExpectation(prints[i]), actual))
			}
		}
	}

	for _, want := range values {
		switch {
		case result.FinalValue == nil:
			problems = append(problems, fmt.Sprintf("line %d: expected value %s, but the cell has no value", want.Line, quoteExpectation(want)))
		case !valueMatches(want, *result.FinalValue):
			problems = append(problems, fmt.Sprintf("line %d: expected value %s, got %s", want.Line, quoteExpectation(want), *result.FinalValue))
		}
	}
	return problems
}

// valueMatches accepts a string value with or without its quotes, since
// annotations may spell `// => "hi"` or `// => hi`.
func valueMatches(want lesson.Expectation, actual string) bool {
	actual = norm.NFC.String(actual)
	if want.Matches(actual) {
		return true
	}
	if unquoted, err := strconv.Unquote(actual); err == nil {
		return want.Matches(unquoted)
	}
	return false
}

func normalized(e lesson.Expectation) lesson.Expectation {
	e.Text = norm.NFC.String(e.Text)
	return e
}

func quoteExpectation(e lesson.Expectation) string {
	if e.Range != nil {
		return e.String()
	}
	return strconv.Quote(e.Text)
}
