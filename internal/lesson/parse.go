package lesson

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	headerPattern = regexp.MustCompile(`^#\s+(.+)$`)
	fencePattern  = regexp.MustCompile("^\x60\x60\x60([A-Za-z0-9_+-]*)\\s*(.*)$")
)

// engineTags maps fence language tags to engine names.
var engineTags = map[string]string{
	"":           "",
	"swift":      "swift",
	"swiftlet":   "swift",
	"js":         "js",
	"javascript": "js",
	"tengo":      "tengo",
}

// Extensions lists the file extensions Load understands.
var Extensions = []string{".md", ".markdown", ".swift"}

// Load reads and parses the lesson file at path.
func Load(path string) (*Lesson, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lesson %s: %w", path, err)
	}
	return Parse(path, src)
}

// Parse picks the lesson format from the extension of path.
func Parse(path string, src []byte) (*Lesson, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".swift":
		return ParsePlayground(path, src)
	case ".md", ".markdown":
		return ParseMarkdown(path, src)
	default:
		return nil, fmt.Errorf("unsupported lesson file %s (expected one of %s)", path, strings.Join(Extensions, ", "))
	}
}

// ParseMarkdown parses a markdown lesson. Every fenced code block is a cell.
func ParseMarkdown(path string, src []byte) (*Lesson, error) {
	lines := splitLines(src)
	l := &Lesson{Path: path}

	var prose []string
	var open *Cell
	var body []string

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		if open != nil {
			if trimmed == "```" {
				if err := finishCell(l, open, body, path); err != nil {
					return nil, err
				}
				open, body = nil, nil
				continue
			}
			if strings.HasPrefix(trimmed, "```") {
				return nil, &ParseError{Path: path, Line: open.Line - 1, Msg: fmt.Sprintf("code fence is not closed before the fence at line %d", lineNum)}
			}
			body = append(body, line)
			continue
		}

		if m := fencePattern.FindStringSubmatch(trimmed); m != nil {
			cell, err := openCell(path, lineNum, m[1], m[2])
			if err != nil {
				return nil, err
			}
			cell.Prose = strings.TrimSpace(strings.Join(prose, "\n"))
			prose = nil
			open = cell
			continue
		}

		if l.Title == "" {
			if m := headerPattern.FindStringSubmatch(trimmed); m != nil {
				l.Title = strings.TrimSpace(m[1])
			}
		}
		prose = append(prose, line)
	}

	if open != nil {
		return nil, &ParseError{Path: path, Line: open.Line - 1, Msg: "code fence is never closed"}
	}
	return l, nil
}

// openCell builds a cell from a fence's language tag and attributes.
func openCell(path string, lineNum int, tag, attrs string) (*Cell, error) {
	engine, ok := engineTags[strings.ToLower(tag)]
	if !ok {
		return nil, &ParseError{Path: path, Line: lineNum, Msg: fmt.Sprintf("unknown language tag %q", tag)}
	}

	cell := &Cell{Engine: engine, Line: lineNum + 1}
	for _, attr := range strings.Fields(attrs) {
		key, value, hasValue := strings.Cut(attr, "=")
		switch {
		case key == "isolated" && !hasValue:
			cell.Isolated = true
		case key == "name" && hasValue && value != "":
			cell.Name = value
		default:
			return nil, &ParseError{Path: path, Line: lineNum, Msg: fmt.Sprintf("unknown fence attribute %q", attr)}
		}
	}
	return cell, nil
}

func finishCell(l *Lesson, cell *Cell, body []string, path string) error {
	expected, err := extractExpectations(path, cell.Line, body)
	if err != nil {
		return err
	}
	cell.Index = len(l.Cells)
	cell.Source = strings.Join(body, "\n")
	cell.Expected = expected
	l.Cells = append(l.Cells, *cell)
	return nil
}

// ParsePlayground parses an Xcode-playground style .swift lesson.
func ParsePlayground(path string, src []byte) (*Lesson, error) {
	lines := splitLines(src)
	l := &Lesson{Path: path, Engine: "swift"}

	var prose []string
	var code []string
	codeStart := 0

	flush := func() error {
		first, last := -1, -1
		for i, line := range code {
			if strings.TrimSpace(line) != "" {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		if first >= 0 {
			body := code[first : last+1]
			cell := &Cell{
				Engine: "swift",
				Line:   codeStart + first,
				Prose:  strings.TrimSpace(strings.Join(prose, "\n")),
			}
			if err := finishCell(l, cell, body, path); err != nil {
				return err
			}
			prose = nil
		}
		code = nil
		return nil
	}

	proseStart := 0
	inProse := false
	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		if inProse {
			text, closed := strings.CutSuffix(strings.TrimRight(line, " \t"), "*/")
			if !closed && strings.Contains(line, "*/") {
				text, _, closed = strings.Cut(line, "*/")
			}
			prose = append(prose, text)
			l.noteTitle(text)
			if closed {
				inProse = false
			}
			continue
		}

		if strings.HasPrefix(trimmed, "/*:") {
			if err := flush(); err != nil {
				return nil, err
			}
			rest := strings.TrimPrefix(trimmed, "/*:")
			if text, _, closed := strings.Cut(rest, "*/"); closed {
				prose = append(prose, text)
				l.noteTitle(text)
				continue
			}
			prose = append(prose, rest)
			l.noteTitle(rest)
			inProse = true
			proseStart = lineNum
			continue
		}

		if strings.HasPrefix(trimmed, "//:") {
			if err := flush(); err != nil {
				return nil, err
			}
			text := strings.TrimPrefix(trimmed, "//:")
			prose = append(prose, text)
			l.noteTitle(text)
			continue
		}

		if len(code) == 0 {
			codeStart = lineNum
		}
		code = append(code, line)
	}

	if inProse {
		return nil, &ParseError{Path: path, Line: proseStart, Msg: "prose block /*: is never closed"}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Lesson) noteTitle(text string) {
	if l.Title != "" {
		return
	}
	if m := headerPattern.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		l.Title = strings.TrimSpace(m[1])
	}
}

func splitLines(src []byte) []string {
	s := strings.ReplaceAll(string(src), "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
