package eval

import (
	"fmt"
	"strings"
)

// FailureKind tags why a cell did not complete.
type FailureKind string

const (
	// CompileFailure means the source was rejected before running, given the
	// accumulated lesson scope (undeclared identifier, type mismatch, ...).
	CompileFailure FailureKind = "compile"

	// RuntimeFault means a trapping condition while running (force unwrap of
	// nil, index out of range, overflow, ...).
	RuntimeFault FailureKind = "runtime"

	// Timeout means the cell exceeded its evaluation budget.
	Timeout FailureKind = "timeout"
)

// ParseFailureKind accepts the annotation spellings of a failure kind.
func ParseFailureKind(s string) (FailureKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compile", "compilefailure", "compile_failure":
		return CompileFailure, nil
	case "runtime", "runtimefault", "runtime_fault", "fault", "crash":
		return RuntimeFault, nil
	case "timeout":
		return Timeout, nil
	default:
		return "", fmt.Errorf("unknown failure kind %q (valid options: compile, runtime, timeout)", s)
	}
}

// Failure is the captured error of one cell. Engines return it from Eval;
// the Evaluator stores it in the ExecutionResult instead of propagating it.
type Failure struct {
	Kind    FailureKind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`

	// Line is the 1-based line within the cell source, 0 when unknown.
	Line int `json:"line,omitempty" yaml:"line,omitempty"`
}

func (f *Failure) Error() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s failure at line %d: %s", f.Kind, f.Line, f.Message)
	}
	return fmt.Sprintf("%s failure: %s", f.Kind, f.Message)
}

// Compilef builds a CompileFailure.
func Compilef(line int, format string, args ...any) *Failure {
	return &Failure{Kind: CompileFailure, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Faultf builds a RuntimeFault.
func Faultf(line int, format string, args ...any) *Failure {
	return &Failure{Kind: RuntimeFault, Line: line, Message: fmt.Sprintf(format, args...)}
}
