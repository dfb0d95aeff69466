package eval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/itsmostafa/goplay/internal/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScope is a transactional map scope.
type fakeScope struct {
	vars map[string]string
}

func (s *fakeScope) Begin() Scope {
	c := &fakeScope{vars: make(map[string]string, len(s.vars))}
	for k, v := range s.vars {
		c.vars[k] = v
	}
	return c
}

func (s *fakeScope) Commit(working Scope) {
	s.vars = working.(*fakeScope).vars
}

// fakeEngine runs a scripted function per source string.
type fakeEngine struct {
	scripts map[string]func(ctx context.Context, s *fakeScope, out *capture.Capture) error
}

func (e *fakeEngine) Name() string    { return "fake" }
func (e *fakeEngine) NewScope() Scope { return &fakeScope{vars: map[string]string{}} }

func (e *fakeEngine) Eval(ctx context.Context, src string, scope Scope, out *capture.Capture) error {
	return e.scripts[src](ctx, scope.(*fakeScope), out)
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{scripts: map[string]func(context.Context, *fakeScope, *capture.Capture) error{
		"define": func(_ context.Context, s *fakeScope, _ *capture.Capture) error {
			s.vars["x"] = "3"
			return nil
		},
		"print": func(_ context.Context, s *fakeScope, out *capture.Capture) error {
			_ = out.Print("x=" + s.vars["x"])
			return out.SetFinal("done")
		},
		"define-then-fault": func(_ context.Context, s *fakeScope, out *capture.Capture) error {
			s.vars["y"] = "1"
			_ = out.Print("before")
			return Faultf(1, "unexpectedly found nil")
		},
		"compile-error": func(_ context.Context, _ *fakeScope, out *capture.Capture) error {
			_ = out.Print("never shown")
			return Compilef(2, "cannot find 'z' in scope")
		},
		"plain-error": func(context.Context, *fakeScope, *capture.Capture) error {
			return errors.New("boom")
		},
		"panic": func(context.Context, *fakeScope, *capture.Capture) error {
			panic("engine bug")
		},
		"spin": func(ctx context.Context, _ *fakeScope, _ *capture.Capture) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}}
}

func TestEvaluator_SuccessCommitsScope(t *testing.T) {
	engine := newFakeEngine()
	scope := engine.NewScope().(*fakeScope)
	ev := New(Config{Timeout: time.Second})

	r := ev.Evaluate(context.Background(), engine, scope, 0, "define")
	require.Nil(t, r.Failure)
	assert.Empty(t, r.PrintedLines)
	assert.Nil(t, r.FinalValue)

	r = ev.Evaluate(context.Background(), engine, scope, 1, "print")
	require.Nil(t, r.Failure)
	assert.Equal(t, 1, r.CellIndex)
	assert.Equal(t, []string{"x=3"}, r.PrintedLines)
	require.NotNil(t, r.FinalValue)
	assert.Equal(t, "done", *r.FinalValue)
}

func TestEvaluator_FailureRollsBackScope(t *testing.T) {
	engine := newFakeEngine()
	scope := engine.NewScope().(*fakeScope)
	ev := New(Config{})

	r := ev.Evaluate(context.Background(), engine, scope, 0, "define-then-fault")
	require.NotNil(t, r.Failure)
	assert.Equal(t, RuntimeFault, r.Failure.Kind)
	assert.Equal(t, []string{"before"}, r.PrintedLines)
	assert.NotContains(t, scope.vars, "y")
}

func TestEvaluator_CompileFailureDropsOutput(t *testing.T) {
	engine := newFakeEngine()
	r := New(Config{}).Evaluate(context.Background(), engine, engine.NewScope(), 0, "compile-error")

	require.NotNil(t, r.Failure)
	assert.Equal(t, CompileFailure, r.Failure.Kind)
	assert.Equal(t, 2, r.Failure.Line)
	assert.Empty(t, r.PrintedLines)
}

func TestEvaluator_Classification(t *testing.T) {
	tests := []struct {
		src  string
		want FailureKind
	}{
		{src: "plain-error", want: RuntimeFault},
		{src: "panic", want: RuntimeFault},
		{src: "spin", want: Timeout},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			engine := newFakeEngine()
			ev := New(Config{Timeout: 20 * time.Millisecond})
			r := ev.Evaluate(context.Background(), engine, engine.NewScope(), 0, tt.src)
			require.NotNil(t, r.Failure)
			assert.Equal(t, tt.want, r.Failure.Kind)
		})
	}
}

func TestParseFailureKind(t *testing.T) {
	for in, want := range map[string]FailureKind{
		"compile":      CompileFailure,
		"RuntimeFault": RuntimeFault,
		" timeout ":    Timeout,
	} {
		got, err := ParseFailureKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFailureKind("syntax")
	assert.Error(t, err)
}

func TestFailure_Error(t *testing.T) {
	assert.Equal(t, "runtime failure at line 3: index out of range", Faultf(3, "index out of range").Error())
	assert.Equal(t, "timeout failure: slow", (&Failure{Kind: Timeout, Message: "slow"}).Error())
}
