// Package session runs lessons: every cell in order, each on its engine,
// against a scope shared by the cells of one lesson.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/itsmostafa/goplay/internal/config"
	"github.com/itsmostafa/goplay/internal/ctxlog"
	"github.com/itsmostafa/goplay/internal/engines"
	"github.com/itsmostafa/goplay/internal/eval"
	"github.com/itsmostafa/goplay/internal/lesson"
)

// Session runs lessons with one configuration. Engines are created once and
// reused; scopes live for a single lesson run.
type Session struct {
	cfg       config.Config
	engines   *engines.Registry
	evaluator *eval.Evaluator
}

// New creates a Session. The configuration must be valid and name a known
// default engine.
func New(cfg config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := engines.Resolve(cfg.DefaultEngine); err != nil {
		return nil, fmt.Errorf("invalid default engine: %w", err)
	}
	return &Session{
		cfg:     cfg,
		engines: engines.NewRegistry(cfg),
		evaluator: eval.New(eval.Config{
			Timeout:        cfg.CellTimeout,
			MaxOutputChars: cfg.MaxOutputChars,
		}),
	}, nil
}

// Run loads the lesson at path and runs it. The error is only set when the
// lesson cannot be loaded or parsed, or ctx ends; cell failures are part of
// the report.
func (s *Session) Run(ctx context.Context, path string) (*LessonReport, error) {
	l, err := lesson.Load(path)
	if err != nil {
		return nil, err
	}
	return s.RunLesson(ctx, l)
}

// RunLesson runs every cell of l in order and returns one result per cell.
func (s *Session) RunLesson(ctx context.Context, l *lesson.Lesson) (*LessonReport, error) {
	logger := ctxlog.FromContext(ctx).With("lesson", l.Path)

	lessonEngine := l.Engine
	if lessonEngine == "" {
		lessonEngine = s.cfg.DefaultEngine
	}
	lessonEngine, err := engines.Resolve(lessonEngine)
	if err != nil {
		return nil, fmt.Errorf("lesson %s: %w", l.Path, err)
	}

	// Resolve every engine up front so a bad tag fails before any cell runs.
	cellEngines := make([]eval.Engine, len(l.Cells))
	for i, cell := range l.Cells {
		name := cell.Engine
		if name == "" {
			name = lessonEngine
		}
		engine, err := s.engines.Get(name)
		if err != nil {
			return nil, fmt.Errorf("lesson %s, cell %d: %w", l.Path, cell.Index, err)
		}
		cellEngines[i] = engine
	}

	report := &LessonReport{
		RunID: uuid.New(),
		Lesson: LessonInfo{
			Path:   l.Path,
			Title:  l.Title,
			Engine: lessonEngine,
			Cells:  len(l.Cells),
		},
		Results:   make([]eval.ExecutionResult, 0, len(l.Cells)),
		StartedAt: time.Now(),
	}
	logger.Info("Lesson started.", "run_id", report.RunID, "cells", len(l.Cells), "engine", lessonEngine)

	// One scope per engine, created when the first cell needs it.
	scopes := map[string]eval.Scope{}
	for i, cell := range l.Cells {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("lesson %s interrupted at cell %d: %w", l.Path, cell.Index, err)
		}

		engine := cellEngines[i]
		var scope eval.Scope
		if cell.Isolated {
			scope = engine.NewScope()
		} else {
			var ok bool
			if scope, ok = scopes[engine.Name()]; !ok {
				scope = engine.NewScope()
				scopes[engine.Name()] = scope
			}
		}

		result := s.evaluator.Evaluate(ctx, engine, scope, cell.Index, cell.Source)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("lesson %s interrupted at cell %d: %w", l.Path, cell.Index, err)
		}
		report.Results = append(report.Results, result)
	}

	report.Duration = time.Since(report.StartedAt)
	logger.Info("Lesson finished.", "run_id", report.RunID, "failures", report.Failures(), "duration", report.Duration)
	return report, nil
}

// Outcome is the result of one lesson in RunAll. Err is set when the lesson
// could not be loaded or run; Report is nil then.
type Outcome struct {
	Path   string
	Lesson *lesson.Lesson
	Report *LessonReport
	Err    error
}

// RunAll runs every lesson the catalog finds under dir, in lexical path
// order. A lesson that fails to parse is recorded in its Outcome and does
// not stop the others.
func (s *Session) RunAll(ctx context.Context, dir string) ([]Outcome, error) {
	logger := ctxlog.FromContext(ctx)

	paths, err := NewCatalog(dir, s.cfg.Exclude).Discover()
	if err != nil {
		return nil, err
	}
	logger.Debug("Lessons discovered.", "dir", dir, "count", len(paths))

	outcomes := make([]Outcome, 0, len(paths))
	for _, path := range paths {
		l, err := lesson.Load(path)
		if err != nil {
			logger.Warn("Skipping lesson.", "path", path, "error", err)
			outcomes = append(outcomes, Outcome{Path: path, Err: err})
			continue
		}
		report, err := s.RunLesson(ctx, l)
		if err != nil {
			if ctx.Err() != nil {
				return outcomes, err
			}
			outcomes = append(outcomes, Outcome{Path: path, Lesson: l, Err: err})
			continue
		}
		outcomes = append(outcomes, Outcome{Path: path, Lesson: l, Report: report})
	}
	return outcomes, nil
}

// LoadedEngines lists the engines created by this session so far.
func (s *Session) LoadedEngines() []string {
	return s.engines.Loaded()
}
