package engines

import (
	"context"
	"errors"
	"fmt"

	"github.com/itsmostafa/goplay/internal/capture"
	"github.com/itsmostafa/goplay/internal/eval"
	"github.com/itsmostafa/goplay/internal/swiftlet"
)

// Native runs cells through the swiftlet interpreter.
type Native struct {
	maxCallDepth int
}

// NewNative creates the native engine. maxCallDepth <= 0 uses the
// interpreter default.
func NewNative(maxCallDepth int) *Native {
	return &Native{maxCallDepth: maxCallDepth}
}

func (n *Native) Name() string { return "swift" }

// NewScope returns an empty lesson scope. It is transactional: every cell
// runs against a clone that replaces the scope only when the cell succeeds.
func (n *Native) NewScope() eval.Scope {
	return &NativeScope{scope: swiftlet.NewScope()}
}

func (n *Native) Eval(ctx context.Context, src string, scope eval.Scope, out *capture.Capture) error {
	s, ok := scope.(*NativeScope)
	if !ok {
		return fmt.Errorf("swift engine: unexpected scope %T", scope)
	}
	err := swiftlet.Run(ctx, src, s.scope, out, swiftlet.Options{MaxCallDepth: n.maxCallDepth})
	if err == nil {
		return nil
	}

	var serr *swiftlet.Error
	if !errors.As(err, &serr) {
		return err
	}
	if serr.Kind == swiftlet.CompileError {
		return eval.Compilef(serr.Line, "%s", serr.Msg)
	}
	return eval.Faultf(serr.Line, "%s", serr.Msg)
}

// NativeScope is the lesson scope of the native engine.
type NativeScope struct {
	scope *swiftlet.Scope
}

func (s *NativeScope) Begin() eval.Scope {
	return &NativeScope{scope: s.scope.Clone()}
}

func (s *NativeScope) Commit(working eval.Scope) {
	s.scope = working.(*NativeScope).scope
}

// Names lists the globals declared so far.
func (s *NativeScope) Names() []string {
	return s.scope.Names()
}
