package lesson

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/itsmostafa/goplay/internal/eval"
)

// extractExpectations collects the annotations of a cell body. firstLine is
// the lesson-file line number of body[0].
func extractExpectations(path string, firstLine int, body []string) ([]Expectation, error) {
	var out []Expectation
	for i, line := range body {
		comment, ok := trailingComment(line)
		if !ok {
			continue
		}
		exp, ok, err := parseAnnotation(comment)
		if err != nil {
			return nil, &ParseError{Path: path, Line: firstLine + i, Msg: err.Error()}
		}
		if ok {
			exp.Line = firstLine + i
			out = append(out, exp)
		}
	}
	return out, nil
}

// trailingComment returns the text after the first // that is not inside a
// string literal.
func trailingComment(line string) (string, bool) {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimSpace(line[i+2:]), true
		}
	}
	return "", false
}

// parseAnnotation recognises the annotation forms. ok is false for ordinary
// comments.
func parseAnnotation(comment string) (exp Expectation, ok bool, err error) {
	switch {
	case hasPrefixFold(comment, "prints "):
		exp.Kind = ExpectPrint
		comment = comment[len("prints "):]
	case strings.HasPrefix(comment, "=>"):
		exp.Kind = ExpectValue
		comment = comment[len("=>"):]
	case hasPrefixFold(comment, "error:"):
		kind, err := eval.ParseFailureKind(comment[len("error:"):])
		if err != nil {
			return exp, false, err
		}
		return Expectation{Kind: ExpectFailure, Failure: kind}, true, nil
	default:
		return exp, false, nil
	}

	text := strings.TrimSpace(comment)
	if strings.HasPrefix(text, "in ") {
		r, err := parseRange(strings.TrimSpace(text[len("in "):]))
		if err != nil {
			return exp, false, err
		}
		exp.Range = &r
		return exp, true, nil
	}

	if strings.HasPrefix(text, `"`) {
		text, err = unquote(text)
		if err != nil {
			return exp, false, err
		}
	}
	exp.Text = text
	return exp, true, nil
}

// unquote decodes a double-quoted annotation value. Nothing may follow the
// closing quote.
func unquote(text string) (string, error) {
	end := -1
	for i := 1; i < len(text); i++ {
		if text[i] == '\\' {
			i++
			continue
		}
		if text[i] == '"' {
			end = i
			break
		}
	}
	if end < 0 {
		return "", fmt.Errorf("unterminated quoted annotation %s", text)
	}
	if rest := strings.TrimSpace(text[end+1:]); rest != "" {
		return "", fmt.Errorf("unexpected text %q after quoted annotation", rest)
	}
	s, err := strconv.Unquote(text[:end+1])
	if err != nil {
		return "", fmt.Errorf("invalid quoted annotation %s: %w", text[:end+1], err)
	}
	return s, nil
}

func parseRange(s string) (Range, error) {
	var r Range
	lo, hi, found := strings.Cut(s, "..<")
	if found {
		r.HalfOpen = true
	} else if lo, hi, found = strings.Cut(s, "..."); !found {
		return r, fmt.Errorf("invalid range %q (want lo...hi or lo..<hi)", s)
	}

	var err error
	if r.Lo, err = strconv.ParseFloat(strings.TrimSpace(lo), 64); err != nil {
		return r, fmt.Errorf("invalid range bound %q", lo)
	}
	if r.Hi, err = strconv.ParseFloat(strings.TrimSpace(hi), 64); err != nil {
		return r, fmt.Errorf("invalid range bound %q", hi)
	}
	if r.Hi < r.Lo {
		return r, fmt.Errorf("empty range %q", s)
	}
	return r, nil
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
