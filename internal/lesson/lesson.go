// Package lesson parses lesson files into ordered, immutable cells.
//
// Two formats are understood. Markdown lessons (.md) keep prose as markdown
// and put every cell in a fenced code block:
//
//	# Optionals
//
//	Forced unwrapping traps on nil.
//
//	```swift
//	let y: Int? = nil
//	print(y!)   // error: runtime
//	```
//
// A fence opens with three backticks, an optional language tag and optional
// attributes (`isolated`, `name=<label>`), and closes with a line holding
// exactly three backticks.
//
// Playground lessons (.swift) follow the Xcode playground layout: prose
// lives in /*: ... */ blocks and //: lines, and each run of code between
// prose blocks is one cell.
//
// In both formats a trailing comment on a code line may carry an
// expectation: "// Prints <text>", "// => <value>" or
// "// error: compile|runtime|timeout". Text may be double-quoted, and
// "in <lo>...<hi>" asserts a numeric range instead of a literal.
package lesson

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/itsmostafa/goplay/internal/eval"
)

// Lesson is an ordered sequence of cells sharing one evaluation scope.
type Lesson struct {
	Path  string
	Title string

	// Engine is the lesson-wide language, used for cells whose fence has no
	// tag. Empty means the configured default.
	Engine string

	Cells []Cell
}

// Cell is one unit of source text plus its expected-output annotations.
type Cell struct {
	// Index is the position within the lesson, assigned at load time.
	Index int

	// Line is the 1-based line of the first source line in the lesson file.
	Line int

	Name     string
	Engine   string
	Isolated bool
	Source   string

	// Prose is the explanatory text that precedes the cell.
	Prose string

	Expected []Expectation
}

// ExpectKind tells what an Expectation asserts.
type ExpectKind string

const (
	ExpectPrint   ExpectKind = "print"
	ExpectValue   ExpectKind = "value"
	ExpectFailure ExpectKind = "failure"
)

// Expectation is one annotation extracted from a trailing comment.
type Expectation struct {
	Kind ExpectKind

	// Text is the literal expected line or value.
	Text string

	// Range replaces Text for non-deterministic output.
	Range *Range

	// Failure is set for ExpectFailure.
	Failure eval.FailureKind

	// Line is the 1-based line in the lesson file.
	Line int
}

// String renders the expectation the way it reads in a report.
func (e Expectation) String() string {
	switch {
	case e.Kind == ExpectFailure:
		return "error: " + string(e.Failure)
	case e.Range != nil:
		return "in " + e.Range.String()
	default:
		return e.Text
	}
}

// Matches checks one captured string against the expectation.
func (e Expectation) Matches(actual string) bool {
	if e.Range != nil {
		return e.Range.Contains(actual)
	}
	return e.Text == actual
}

// Range is a numeric interval, closed (lo...hi) or half-open (lo..<hi).
type Range struct {
	Lo, Hi   float64
	HalfOpen bool
}

// Contains reports whether s parses as a number inside the range.
func (r Range) Contains(s string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return false
	}
	if v < r.Lo {
		return false
	}
	if r.HalfOpen {
		return v < r.Hi
	}
	return v <= r.Hi
}

func (r Range) String() string {
	op := "..."
	if r.HalfOpen {
		op = "..<"
	}
	return strconv.FormatFloat(r.Lo, 'g', -1, 64) + op + strconv.FormatFloat(r.Hi, 'g', -1, 64)
}

// ExpectedOutput returns the cell's expected output as one ordered
// sequence: printed lines first, then the final value.
func (c Cell) ExpectedOutput() []string {
	var out []string
	for _, e := range c.Expected {
		if e.Kind == ExpectPrint {
			out = append(out, e.String())
		}
	}
	for _, e := range c.Expected {
		if e.Kind == ExpectValue {
			out = append(out, e.String())
		}
	}
	return out
}

// HasExpectations reports whether the cell carries any annotation.
func (c Cell) HasExpectations() bool {
	return len(c.Expected) > 0
}

// ParseError reports malformed lesson source. It aborts loading the lesson.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}
