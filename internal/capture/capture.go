// Package capture buffers the two observable channels of a cell evaluation:
// printed text and the value of the trailing expression.
package capture

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrFinalized is returned when output arrives after the final value has
// been recorded. The final value is always the last thing a cell emits.
var ErrFinalized = errors.New("capture: output after final value")

// Output is the frozen result of a Capture.
type Output struct {
	// PrintedLines holds printed text split into lines, in emission order.
	PrintedLines []string

	// FinalValue is the rendered trailing-expression value, if any.
	FinalValue *string

	// Truncated reports that printed output exceeded the character limit.
	Truncated bool
}

// Capture collects output for exactly one cell evaluation. It is not safe
// for concurrent use; cells are evaluated one at a time.
type Capture struct {
	maxChars  int
	size      int
	lines     []string
	pending   strings.Builder
	hasFinal  bool
	final     string
	truncated bool
}

// New creates a Capture that keeps at most maxChars characters (runes) of
// printed output, newlines included. A maxChars of 0 disables the limit.
func New(maxChars int) *Capture {
	return &Capture{maxChars: maxChars}
}

// Write appends raw text. Newlines split the text into printed lines; text
// after the last newline stays pending until more text or Result.
func (c *Capture) Write(text string) error {
	if c.hasFinal {
		return ErrFinalized
	}
	if c.truncated {
		return nil
	}
	if c.maxChars > 0 {
		n := utf8.RuneCountInString(text)
		if c.size+n > c.maxChars {
			n = c.maxChars - c.size
			text = text[:runeOffset(text, n)]
			c.truncated = true
		}
		c.size += n
	}

	for {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			c.pending.WriteString(text)
			return nil
		}
		c.pending.WriteString(text[:i])
		c.lines = append(c.lines, c.pending.String())
		c.pending.Reset()
		text = text[i+1:]
	}
}

// runeOffset is the byte offset of the n-th rune of s.
func runeOffset(s string, n int) int {
	i := 0
	for ; n > 0 && i < len(s); n-- {
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
	}
	return i
}

// Print records one printed line.
func (c *Capture) Print(line string) error {
	return c.Write(line + "\n")
}

// SetFinal records the trailing-expression value. It may be called once.
func (c *Capture) SetFinal(value string) error {
	if c.hasFinal {
		return ErrFinalized
	}
	c.hasFinal = true
	c.final = value
	return nil
}

// Reset drops everything captured so far, used when a cell is rejected
// before any of its statements count as executed.
func (c *Capture) Reset() {
	c.size = 0
	c.lines = nil
	c.pending.Reset()
	c.hasFinal = false
	c.final = ""
	c.truncated = false
}

// Result freezes the captured output. Pending text without a trailing
// newline becomes the last printed line.
func (c *Capture) Result() Output {
	lines := make([]string, len(c.lines), len(c.lines)+1)
	copy(lines, c.lines)
	if c.pending.Len() > 0 {
		lines = append(lines, c.pending.String())
	}

	out := Output{
		PrintedLines: lines,
		Truncated:    c.truncated,
	}
	if c.hasFinal {
		v := c.final
		out.FinalValue = &v
	}
	return out
}
