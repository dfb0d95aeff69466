package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/itsmostafa/goplay/internal/eval"
)

// LessonInfo identifies the lesson a report was produced for.
type LessonInfo struct {
	Path   string `json:"path" yaml:"path"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Engine string `json:"engine" yaml:"engine"`
	Cells  int    `json:"cells" yaml:"cells"`
}

// LessonReport holds one ExecutionResult per cell, in cell order. Only the
// lesson and its results are serialized, so two runs of a deterministic
// lesson encode to the same bytes.
type LessonReport struct {
	Lesson  LessonInfo             `json:"lesson" yaml:"lesson"`
	Results []eval.ExecutionResult `json:"results" yaml:"results"`

	// RunID and the timings identify one run. They appear in logs and
	// text output only.
	RunID     uuid.UUID     `json:"-" yaml:"-"`
	StartedAt time.Time     `json:"-" yaml:"-"`
	Duration  time.Duration `json:"-" yaml:"-"`
}

// Failures counts the cells that failed.
func (r *LessonReport) Failures() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}
