package swiftlet

import "fmt"

// ErrorKind separates rejected programs from programs that trapped.
type ErrorKind int

const (
	// CompileError means the cell was rejected: bad syntax, unknown names,
	// type mismatches, assignments to constants.
	CompileError ErrorKind = iota

	// RuntimeError means the cell trapped while running.
	RuntimeError
)

func (k ErrorKind) String() string {
	if k == CompileError {
		return "compile"
	}
	return "runtime"
}

// Error is returned by Run for every compile error and runtime trap.
type Error struct {
	Kind ErrorKind
	Line int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

func compileErr(line int, format string, args ...any) *Error {
	return &Error{Kind: CompileError, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func runtimeErr(line int, format string, args ...any) *Error {
	return &Error{Kind: RuntimeError, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// failCompile and trap abort evaluation. Run recovers them.
func failCompile(line int, format string, args ...any) {
	panic(compileErr(line, format, args...))
}

func trap(line int, format string, args ...any) {
	panic(runtimeErr(line, format, args...))
}
