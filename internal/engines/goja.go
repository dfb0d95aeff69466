package engines

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"github.com/itsmostafa/goplay/internal/capture"
	"github.com/itsmostafa/goplay/internal/eval"
)

// compileErrorNames are the JavaScript exceptions reported as compile
// failures: the cell referred to something that does not exist or could
// not be parsed.
var compileErrorNames = map[string]bool{
	"SyntaxError":    true,
	"ReferenceError": true,
}

// JS runs cells as JavaScript in a goja runtime kept for the whole lesson.
// A goja runtime cannot be copied, so a failed cell keeps whatever it
// changed before failing.
type JS struct {
	maxCallDepth int
}

// NewJS creates the JavaScript engine.
func NewJS(maxCallDepth int) *JS {
	return &JS{maxCallDepth: maxCallDepth}
}

func (j *JS) Name() string { return "js" }

func (j *JS) NewScope() eval.Scope {
	s := &JSScope{vm: goja.New()}
	if j.maxCallDepth > 0 {
		s.vm.SetMaxCallStackSize(j.maxCallDepth)
	}
	s.setupEnvironment()
	return s
}

// JSScope is a lesson's goja runtime. out is the capture of the cell
// currently running.
type JSScope struct {
	vm  *goja.Runtime
	out *capture.Capture
}

// setupEnvironment installs print and console.log.
func (s *JSScope) setupEnvironment() {
	printFunc := func(call goja.FunctionCall) goja.Value {
		args := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.String()
		}
		if s.out != nil {
			if err := s.out.Print(strings.Join(args, " ")); err != nil {
				panic(s.vm.NewGoError(err))
			}
		}
		return goja.Undefined()
	}
	_ = s.vm.Set("print", printFunc)

	console := s.vm.NewObject()
	_ = console.Set("log", printFunc)
	_ = s.vm.Set("console", console)
}

func (j *JS) Eval(ctx context.Context, src string, scope eval.Scope, out *capture.Capture) error {
	s, ok := scope.(*JSScope)
	if !ok {
		return fmt.Errorf("js engine: unexpected scope %T", scope)
	}
	s.out = out
	defer func() { s.out = nil }()

	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		s.vm.Interrupt("execution timeout or cancelled")
		close(interrupted)
	})
	val, err := s.vm.RunString(src)
	if !stop() {
		<-interrupted
	}
	s.vm.ClearInterrupt()

	if err != nil {
		return s.classify(ctx, err)
	}
	if val == nil || goja.IsUndefined(val) {
		return nil
	}
	return out.SetFinal(s.formatValue(val))
}

func (s *JSScope) classify(ctx context.Context, err error) error {
	var interrupt *goja.InterruptedError
	if errors.As(err, &interrupt) {
		if ctx.Err() != nil {
			return fmt.Errorf("js: %w", ctx.Err())
		}
		return eval.Faultf(0, "execution interrupted: %v", interrupt.Value())
	}

	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return eval.Compilef(0, "%s", syntax.Error())
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		name := ""
		if obj, ok := ex.Value().(*goja.Object); ok {
			if v := obj.Get("name"); v != nil {
				name = v.String()
			}
		}
		msg := firstLine(ex.Error())
		if compileErrorNames[name] {
			return eval.Compilef(0, "%s", msg)
		}
		return eval.Faultf(0, "%s", msg)
	}
	return eval.Faultf(0, "%s", firstLine(err.Error()))
}

// formatValue renders a final value: strings quoted, arrays element by
// element, other objects as JSON.
func (s *JSScope) formatValue(val goja.Value) string {
	switch {
	case val == nil || goja.IsUndefined(val):
		return "undefined"
	case goja.IsNull(val):
		return "null"
	}
	obj, isObject := val.(*goja.Object)
	if !isObject {
		if str, ok := val.Export().(string); ok {
			return strconv.Quote(str)
		}
		return val.String()
	}
	if obj.ClassName() == "Array" {
		n := int(obj.Get("length").ToInteger())
		items := make([]string, n)
		for i := range n {
			items[i] = s.formatValue(obj.Get(strconv.Itoa(i)))
		}
		return "[" + strings.Join(items, ", ") + "]"
	}
	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return "[Function]"
	}
	if data, err := obj.MarshalJSON(); err == nil {
		return string(data)
	}
	return val.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
