// Package report renders lesson reports and check summaries as styled
// text, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/itsmostafa/goplay/internal/lesson"
	"github.com/itsmostafa/goplay/internal/session"
)

// Format selects a renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the accepted formats in display order.
var Formats = []Format{FormatText, FormatJSON, FormatYAML}

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid format %q: must be 'text', 'json', or 'yaml'", s)
	}
}

// Lesson writes one lesson report. l supplies cell sources for the text
// format and may be nil.
func Lesson(w io.Writer, format Format, r *session.LessonReport, l *lesson.Lesson) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	default:
		writeLessonText(w, r, l)
		return nil
	}
}

// LoadError records a lesson that could not be loaded or run.
type LoadError struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// CheckSummary is the outcome of verifying a set of lessons.
type CheckSummary struct {
	Passed    bool                         `json:"passed" yaml:"passed"`
	Lessons   []session.VerificationReport `json:"lessons" yaml:"lessons"`
	Errors    []LoadError                  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Pass      int                          `json:"pass" yaml:"pass"`
	Fail      int                          `json:"fail" yaml:"fail"`
	Unchecked int                          `json:"unchecked" yaml:"unchecked"`
}

// Summarize verifies every outcome of a RunAll.
func Summarize(outcomes []session.Outcome) CheckSummary {
	s := CheckSummary{Passed: true, Lessons: []session.VerificationReport{}}
	for _, o := range outcomes {
		if o.Err != nil {
			s.Errors = append(s.Errors, LoadError{Path: o.Path, Error: o.Err.Error()})
			s.Passed = false
			continue
		}
		v := session.Verify(o.Report, o.Lesson)
		s.Lessons = append(s.Lessons, v)
		s.Pass += v.Pass
		s.Fail += v.Fail
		s.Unchecked += v.Unchecked
		if !v.Passed {
			s.Passed = false
		}
	}
	return s
}

// Summary writes a check summary.
func Summary(w io.Writer, format Format, s CheckSummary) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, s)
	case FormatYAML:
		return writeYAML(w, s)
	default:
		writeSummaryText(w, s)
		return nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}
