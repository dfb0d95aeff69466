package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/itsmostafa/goplay/internal/eval"
	"github.com/itsmostafa/goplay/internal/lesson"
	"github.com/itsmostafa/goplay/internal/session"
)

var (
	// titleStyle for bold headers
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("208"))

	// dimStyle for muted metadata text
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	// valueStyle for trailing expression values
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81"))

	// boxStyle for the summary box
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("208")).
			Padding(0, 1)

	headerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("208")).
			Padding(0, 1)

	// cellBannerStyle for the per-cell banner
	cellBannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("208")).
			Padding(0, 1)

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			PaddingLeft(2)
)

func writeLessonText(w io.Writer, r *session.LessonReport, l *lesson.Lesson) {
	title := r.Lesson.Title
	if title == "" {
		title = r.Lesson.Path
	}
	header := fmt.Sprintf("%s\n%s %s  %s %s",
		titleStyle.Render(title),
		dimStyle.Render("File:"), r.Lesson.Path,
		dimStyle.Render("Engine:"), r.Lesson.Engine,
	)
	fmt.Fprintln(w, headerBoxStyle.Render(header))

	for _, res := range r.Results {
		fmt.Fprintln(w)
		writeCellText(w, res, cellFor(l, res.CellIndex))
	}

	failures := r.Failures()
	status := successStyle.Render("OK")
	if failures > 0 {
		status = errorStyle.Render(fmt.Sprintf("%d FAILED", failures))
	}
	summary := fmt.Sprintf("%s %d  %s\n%s %s",
		dimStyle.Render("Cells:"), len(r.Results), status,
		dimStyle.Render("Run:"), r.RunID,
	)
	fmt.Fprintln(w)
	fmt.Fprintln(w, boxStyle.Render(summary))
}

func writeCellText(w io.Writer, res eval.ExecutionResult, cell *lesson.Cell) {
	banner := fmt.Sprintf("CELL %d", res.CellIndex)
	if cell != nil && cell.Name != "" {
		banner += " " + cell.Name
	}
	meta := ""
	if cell != nil {
		meta = dimStyle.Render(fmt.Sprintf("line %d", cell.Line))
		if cell.Isolated {
			meta += dimStyle.Render(", isolated")
		}
	}
	fmt.Fprintln(w, cellBannerStyle.Render(banner), meta)

	if cell != nil && cell.Source != "" {
		fmt.Fprintln(w, sourceStyle.Render(cell.Source))
	}

	for _, line := range res.PrintedLines {
		fmt.Fprintln(w, line)
	}
	if res.Truncated {
		fmt.Fprintln(w, warnStyle.Render("... [output truncated]"))
	}
	if res.FinalValue != nil {
		fmt.Fprintln(w, dimStyle.Render("=>"), valueStyle.Render(*res.FinalValue))
	}
	if res.Failure != nil {
		fmt.Fprintln(w, errorStyle.Render("✗ "+res.Failure.Error()))
	}
}

func cellFor(l *lesson.Lesson, index int) *lesson.Cell {
	if l == nil || index < 0 || index >= len(l.Cells) {
		return nil
	}
	return &l.Cells[index]
}

func writeSummaryText(w io.Writer, s CheckSummary) {
	for _, e := range s.Errors {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("✗"), e.Error)
	}
	for _, v := range s.Lessons {
		mark := successStyle.Render("✓")
		if !v.Passed {
			mark = errorStyle.Render("✗")
		}
		fmt.Fprintf(w, "%s %s %s\n", mark, v.Lesson, dimStyle.Render(fmt.Sprintf("(%d pass, %d fail, %d unchecked)", v.Pass, v.Fail, v.Unchecked)))
		for _, c := range v.Checks {
			if c.Status != session.StatusFail {
				continue
			}
			for _, p := range c.Problems {
				fmt.Fprintf(w, "    %s %s\n", dimStyle.Render(fmt.Sprintf("cell %d:", c.Cell)), p)
			}
		}
	}

	status := successStyle.Render("PASSED")
	if !s.Passed {
		status = errorStyle.Render("FAILED")
	}
	content := fmt.Sprintf("%s %s\n%s %d  %s %d  %s %d  %s %d",
		titleStyle.Render("Check"), status,
		dimStyle.Render("Lessons:"), len(s.Lessons)+len(s.Errors),
		dimStyle.Render("Pass:"), s.Pass,
		dimStyle.Render("Fail:"), s.Fail,
		dimStyle.Render("Unchecked:"), s.Unchecked,
	)
	fmt.Fprintln(w)
	fmt.Fprintln(w, boxStyle.Render(content))
}

// Cells lists the parsed cells of l with their expectations.
func Cells(w io.Writer, l *lesson.Lesson) {
	title := l.Title
	if title == "" {
		title = l.Path
	}
	fmt.Fprintln(w, titleStyle.Render(title), dimStyle.Render(fmt.Sprintf("(%d cells)", len(l.Cells))))
	for _, c := range l.Cells {
		engine := c.Engine
		if engine == "" {
			engine = "default"
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, cellBannerStyle.Render(fmt.Sprintf("CELL %d", c.Index)), dimStyle.Render(fmt.Sprintf("line %d, %s", c.Line, engine)))
		if c.Prose != "" {
			fmt.Fprintln(w, dimStyle.Render(firstLine(c.Prose)))
		}
		fmt.Fprintln(w, sourceStyle.Render(c.Source))
		for _, e := range c.Expected {
			fmt.Fprintf(w, "  %s %s\n", dimStyle.Render(fmt.Sprintf("expect %s:", e.Kind)), e.String())
		}
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
