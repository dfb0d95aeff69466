package eval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/itsmostafa/goplay/internal/capture"
	"github.com/itsmostafa/goplay/internal/ctxlog"
)

// Config holds the per-cell limits applied by the Evaluator.
type Config struct {
	// Timeout is the wall-clock budget of one cell (0 = no budget).
	Timeout time.Duration

	// MaxOutputChars caps printed output per cell (0 = unlimited).
	MaxOutputChars int
}

// Evaluator executes one cell at a time and never lets a cell failure
// escape: compile errors, runtime faults, timeouts and engine panics all end
// up in ExecutionResult.Failure.
type Evaluator struct {
	config Config
}

// New creates an Evaluator with the given limits.
func New(config Config) *Evaluator {
	return &Evaluator{config: config}
}

// Evaluate runs src (the cell at index) on engine against scope.
func (e *Evaluator) Evaluate(ctx context.Context, engine Engine, scope Scope, index int, src string) ExecutionResult {
	logger := ctxlog.FromContext(ctx).With("cell", index, "engine", engine.Name())
	start := time.Now()

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	out := capture.New(e.config.MaxOutputChars)
	failure := e.run(ctx, engine, scope, src, out)

	// A rejected cell never ran, so nothing it printed counts.
	if failure != nil && failure.Kind == CompileFailure {
		out.Reset()
	}

	captured := out.Result()
	result := ExecutionResult{
		CellIndex:    index,
		PrintedLines: captured.PrintedLines,
		FinalValue:   captured.FinalValue,
		Failure:      failure,
		Truncated:    captured.Truncated,
		Duration:     time.Since(start),
	}

	if failure != nil {
		logger.Debug("Cell failed.", "kind", failure.Kind, "error", failure.Message, "duration", result.Duration)
	} else {
		logger.Debug("Cell evaluated.", "lines", len(result.PrintedLines), "has_value", result.FinalValue != nil, "duration", result.Duration)
	}
	return result
}

func (e *Evaluator) run(ctx context.Context, engine Engine, scope Scope, src string, out *capture.Capture) *Failure {
	working := scope
	tx, transactional := scope.(Transactional)
	if transactional {
		working = tx.Begin()
	}

	err := safeEval(ctx, engine, working, src, out)
	if err == nil {
		if transactional {
			tx.Commit(working)
		}
		return nil
	}
	return classify(ctx, err)
}

// safeEval converts an engine panic into an error so a misbehaving engine
// cannot take the session down.
func safeEval(ctx context.Context, engine Engine, scope Scope, src string, out *capture.Capture) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Faultf(0, "engine %s panicked: %v", engine.Name(), r)
		}
	}()
	return engine.Eval(ctx, src, scope, out)
}

func classify(ctx context.Context, err error) *Failure {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Failure{Kind: Timeout, Message: "cell exceeded its evaluation budget"}
	}
	return &Failure{Kind: RuntimeFault, Message: fmt.Sprint(err)}
}
