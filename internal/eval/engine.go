// Package eval runs single cells through a language engine, capturing output
// and turning every kind of failure into data on the ExecutionResult.
package eval

import (
	"context"
	"time"

	"github.com/itsmostafa/goplay/internal/capture"
)

// Scope is the engine-specific lesson scope: everything earlier cells of the
// same lesson defined. Its lifetime is exactly one lesson run.
type Scope any

// Engine executes cell source for one language.
type Engine interface {
	// Name returns the engine name used by language tags and --engine.
	Name() string

	// NewScope returns an empty lesson scope.
	NewScope() Scope

	// Eval runs src against scope, mutating it in place, and writes printed
	// output and the trailing value to out. A returned *Failure classifies
	// the error; any other error is treated as a RuntimeFault. Engines must
	// stop promptly once ctx is done.
	Eval(ctx context.Context, src string, scope Scope, out *capture.Capture) error
}

// Transactional is implemented by scopes that can hand out a working copy.
// The Evaluator runs the cell against the copy and commits it only when the
// cell succeeds, so failed and timed-out cells leave the scope untouched.
type Transactional interface {
	Begin() Scope
	Commit(working Scope)
}

// ExecutionResult is the outcome of evaluating one cell. It is never
// mutated after the Evaluator returns it.
type ExecutionResult struct {
	CellIndex    int      `json:"cell" yaml:"cell"`
	PrintedLines []string `json:"printed_lines" yaml:"printed_lines"`
	FinalValue   *string  `json:"final_value,omitempty" yaml:"final_value,omitempty"`
	Failure      *Failure `json:"failure,omitempty" yaml:"failure,omitempty"`
	Truncated    bool     `json:"truncated,omitempty" yaml:"truncated,omitempty"`

	// Duration is wall-clock time and is left out of serialized results so
	// that reruns of a deterministic lesson serialize identically.
	Duration time.Duration `json:"-" yaml:"-"`
}

// Failed reports whether the cell produced a failure.
func (r ExecutionResult) Failed() bool {
	return r.Failure != nil
}
