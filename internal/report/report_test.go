package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/itsmostafa/goplay/internal/eval"
	"github.com/itsmostafa/goplay/internal/lesson"
	"github.com/itsmostafa/goplay/internal/session"
)

var runID = uuid.MustParse("6f1c2a36-3f0e-4a57-9d0e-8a3a5d1b2c4e")

func sampleReport() (*session.LessonReport, *lesson.Lesson) {
	four := "4"
	l := &lesson.Lesson{
		Path:  "lessons/scope.md",
		Title: "Scope",
		Cells: []lesson.Cell{
			{Index: 0, Line: 3, Source: "let x = 3"},
			{Index: 1, Line: 7, Source: "print(x + 1)\nx + 1", Expected: []lesson.Expectation{{Kind: lesson.ExpectPrint, Text: "4"}}},
			{Index: 2, Line: 11, Source: "let y: Int? = nil\nprint(y!)", Isolated: true},
		},
	}
	r := &session.LessonReport{
		RunID:     runID,
		Lesson:    session.LessonInfo{Path: l.Path, Title: l.Title, Engine: "swift", Cells: 3},
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Results: []eval.ExecutionResult{
			{CellIndex: 0, PrintedLines: []string{}},
			{CellIndex: 1, PrintedLines: []string{"4"}, FinalValue: &four, Duration: time.Millisecond},
			{CellIndex: 2, PrintedLines: []string{}, Failure: eval.Faultf(2, "Unexpectedly found nil while unwrapping an Optional value")},
		},
	}
	return r, l
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "text", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: "yml", want: FormatYAML},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLesson_JSON(t *testing.T) {
	r, l := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, Lesson(&buf, FormatJSON, r, l))

	var decoded struct {
		Results []struct {
			Cell         int      `json:"cell"`
			PrintedLines []string `json:"printed_lines"`
			FinalValue   *string  `json:"final_value"`
			Failure      *struct {
				Kind string `json:"kind"`
				Line int    `json:"line"`
			} `json:"failure"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	require.Len(t, decoded.Results, 3)
	assert.Equal(t, []string{"4"}, decoded.Results[1].PrintedLines)
	require.NotNil(t, decoded.Results[1].FinalValue)
	assert.Equal(t, "4", *decoded.Results[1].FinalValue)
	assert.Nil(t, decoded.Results[0].FinalValue)
	require.NotNil(t, decoded.Results[2].Failure)
	assert.Equal(t, "runtime", decoded.Results[2].Failure.Kind)
	assert.Equal(t, 2, decoded.Results[2].Failure.Line)
	for _, field := range []string{"duration", "run_id", "started_at", runID.String()} {
		assert.NotContains(t, buf.String(), field)
	}
}

func TestLesson_YAML(t *testing.T) {
	r, l := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, Lesson(&buf, FormatYAML, r, l))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.NotContains(t, decoded, "run_id")
	assert.Equal(t, "swift", decoded["lesson"].(map[any]any)["engine"])
	assert.Contains(t, buf.String(), "kind: runtime")
	assert.Contains(t, buf.String(), "final_value: \"4\"")
}

func TestLesson_Text(t *testing.T) {
	r, l := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, Lesson(&buf, FormatText, r, l))
	out := buf.String()

	for _, want := range []string{
		"Scope",
		"CELL 1",
		"print(x + 1)",
		"=> 4",
		"isolated",
		"runtime failure at line 2: Unexpectedly found nil",
		"1 FAILED",
		runID.String(),
	} {
		assert.Contains(t, out, want)
	}
}

func TestLesson_TextWithoutLesson(t *testing.T) {
	r, _ := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, Lesson(&buf, FormatText, r, nil))
	assert.Contains(t, buf.String(), "CELL 2")
	assert.NotContains(t, buf.String(), "let x = 3")
}

func TestSummarize(t *testing.T) {
	r, l := sampleReport()
	outcomes := []session.Outcome{
		{Path: l.Path, Lesson: l, Report: r},
		{Path: "lessons/broken.md", Err: errors.New("lessons/broken.md:3: code fence is never closed")},
	}

	s := Summarize(outcomes)
	assert.False(t, s.Passed)
	assert.Equal(t, 1, s.Pass)
	assert.Equal(t, 1, s.Fail)
	assert.Equal(t, 1, s.Unchecked)
	require.Len(t, s.Errors, 1)
	assert.Equal(t, "lessons/broken.md", s.Errors[0].Path)

	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, FormatText, s))
	out := buf.String()
	assert.Contains(t, out, "code fence is never closed")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "cell 2:")
	assert.Equal(t, 1, strings.Count(out, "unexpected runtime failure"))
}

func TestSummarize_AllPassing(t *testing.T) {
	r, l := sampleReport()
	r.Results = r.Results[:2]
	l.Cells = l.Cells[:2]

	s := Summarize([]session.Outcome{{Path: l.Path, Lesson: l, Report: r}})
	assert.True(t, s.Passed)

	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, FormatJSON, s))
	assert.Contains(t, buf.String(), `"passed": true`)
}

func TestCells(t *testing.T) {
	_, l := sampleReport()
	var buf bytes.Buffer
	Cells(&buf, l)
	out := buf.String()
	assert.Contains(t, out, "(3 cells)")
	assert.Contains(t, out, "line 7, default")
	assert.Contains(t, out, "expect print: 4")
}
