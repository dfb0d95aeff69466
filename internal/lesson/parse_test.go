package lesson

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/itsmostafa/goplay/internal/eval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const markdownLesson = "# Constants\n" +
	"\n" +
	"Name a value with `let`.\n" +
	"\n" +
	"```swift\n" +
	"let x = 3\n" +
	"```\n" +
	"\n" +
	"Use it later.\n" +
	"\n" +
	"```\n" +
	"print(x + 1)   // Prints 4\n" +
	"x               // => 3\n" +
	"```\n" +
	"\n" +
	"```js isolated name=dice\n" +
	"Math.floor(Math.random() * 6) + 1   // => in 1...6\n" +
	"```\n"

func TestParseMarkdown(t *testing.T) {
	l, err := Parse("basics.md", []byte(markdownLesson))
	require.NoError(t, err)

	assert.Equal(t, "Constants", l.Title)
	require.Len(t, l.Cells, 3)

	c0 := l.Cells[0]
	assert.Equal(t, 0, c0.Index)
	assert.Equal(t, 6, c0.Line)
	assert.Equal(t, "swift", c0.Engine)
	assert.Equal(t, "let x = 3", c0.Source)
	assert.Contains(t, c0.Prose, "Name a value")
	assert.False(t, c0.HasExpectations())

	c1 := l.Cells[1]
	assert.Equal(t, 1, c1.Index)
	assert.Equal(t, "", c1.Engine)
	assert.Equal(t, "print(x + 1)   // Prints 4\nx               // => 3", c1.Source)
	assert.Equal(t, "Use it later.", c1.Prose)
	require.Len(t, c1.Expected, 2)
	assert.Equal(t, Expectation{Kind: ExpectPrint, Text: "4", Line: 12}, c1.Expected[0])
	assert.Equal(t, Expectation{Kind: ExpectValue, Text: "3", Line: 13}, c1.Expected[1])
	assert.Equal(t, []string{"4", "3"}, c1.ExpectedOutput())

	c2 := l.Cells[2]
	assert.Equal(t, "js", c2.Engine)
	assert.True(t, c2.Isolated)
	assert.Equal(t, "dice", c2.Name)
	require.Len(t, c2.Expected, 1)
	require.NotNil(t, c2.Expected[0].Range)
	assert.Equal(t, Range{Lo: 1, Hi: 6}, *c2.Expected[0].Range)
}

func TestParseMarkdownErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{
			name: "unterminated fence",
			src:  "# L\n```swift\nlet x = 1\n",
			line: 2,
		},
		{
			name: "fence opened inside fence",
			src:  "```swift\nlet x = 1\n```swift\nlet y = 2\n```\n",
			line: 1,
		},
		{
			name: "unknown language",
			src:  "```cobol\nDISPLAY 'HI'\n```\n",
			line: 1,
		},
		{
			name: "unknown attribute",
			src:  "```swift hidden\nlet x = 1\n```\n",
			line: 1,
		},
		{
			name: "unterminated quoted annotation",
			src:  "```swift\nprint(\"a\") // Prints \"a\n```\n",
			line: 2,
		},
		{
			name: "bad failure kind",
			src:  "```swift\nprint(1) // error: syntax\n```\n",
			line: 2,
		},
		{
			name: "bad range",
			src:  "```swift\nInt.random(in: 1...6) // => in 6...1\n```\n",
			line: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Parse("bad.md", []byte(tt.src))
			assert.Nil(t, l)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected ParseError, got %v", err)
			assert.Equal(t, "bad.md", perr.Path)
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestParsePlayground(t *testing.T) {
	src := `/*:
 # function with return value
 __値を返す関数__

 ` + "```swift" + `
 area(height: 3, width: 4) // 12
 ` + "```" + `
 */
func area(height: Int, width: Int) -> Int {
    height * width
}

let smallRectangle = area(height: 3, width: 4)
print(smallRectangle)   // Prints 12
//: Errors are kept as teaching material.
//"123" + 456 // error
let y: Int? = nil
print(y!)   // error: runtime
`
	l, err := Parse("Contents.swift", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "function with return value", l.Title)
	assert.Equal(t, "swift", l.Engine)
	require.Len(t, l.Cells, 2)

	c0 := l.Cells[0]
	assert.Equal(t, 9, c0.Line)
	assert.Contains(t, c0.Prose, "値を返す関数")
	assert.Contains(t, c0.Source, "func area(height: Int, width: Int) -> Int {")
	assert.Contains(t, c0.Source, "print(smallRectangle)")
	assert.Equal(t, []Expectation{{Kind: ExpectPrint, Text: "12", Line: 14}}, c0.Expected)

	c1 := l.Cells[1]
	assert.Equal(t, 1, c1.Index)
	assert.Equal(t, "Errors are kept as teaching material.", c1.Prose)
	assert.Equal(t, "//\"123\" + 456 // error\nlet y: Int? = nil\nprint(y!)   // error: runtime", c1.Source)
	assert.Equal(t, []Expectation{{Kind: ExpectFailure, Failure: eval.RuntimeFault, Line: 18}}, c1.Expected)
}

func TestParsePlaygroundUnterminatedProse(t *testing.T) {
	_, err := Parse("Contents.swift", []byte("let a = 1\n/*:\n # Title\n"))

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestParseUnsupportedExtension(t *testing.T) {
	_, err := Parse("notes.txt", []byte("hi"))
	assert.Error(t, err)

	var perr *ParseError
	assert.False(t, errors.As(err, &perr))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lesson.md")
	require.NoError(t, os.WriteFile(path, []byte(markdownLesson), 0644))

	l, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, l.Path)
	assert.Len(t, l.Cells, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		comment string
		want    Expectation
		ok      bool
	}{
		{comment: "Prints 15", want: Expectation{Kind: ExpectPrint, Text: "15"}, ok: true},
		{comment: "prints Hello, world!", want: Expectation{Kind: ExpectPrint, Text: "Hello, world!"}, ok: true},
		{comment: `Prints "  padded "`, want: Expectation{Kind: ExpectPrint, Text: "  padded "}, ok: true},
		{comment: `=> "abcdef"`, want: Expectation{Kind: ExpectValue, Text: "abcdef"}, ok: true},
		{comment: `=> "\"abcdef\""`, want: Expectation{Kind: ExpectValue, Text: `"abcdef"`}, ok: true},
		{comment: "=> 12756", want: Expectation{Kind: ExpectValue, Text: "12756"}, ok: true},
		{comment: "Error: compile", want: Expectation{Kind: ExpectFailure, Failure: eval.CompileFailure}, ok: true},
		{comment: "Prints in 0..<1", want: Expectation{Kind: ExpectPrint, Range: &Range{Lo: 0, Hi: 1, HalfOpen: true}}, ok: true},
		{comment: "diameter of the earth", ok: false},
		{comment: "error", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.comment, func(t *testing.T) {
			got, ok, err := parseAnnotation(tt.comment)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestTrailingComment(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{line: `print("a // b")`, ok: false},
		{line: `print("a // b") // Prints a // b`, want: "Prints a // b", ok: true},
		{line: `let s = "say \"hi\" // not" // => 1`, want: "=> 1", ok: true},
		{line: `// whole line`, want: "whole line", ok: true},
		{line: `let url = 'http://x'`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := trailingComment(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRangeContains(t *testing.T) {
	closed := Range{Lo: 1, Hi: 6}
	assert.True(t, closed.Contains("1"))
	assert.True(t, closed.Contains("6"))
	assert.False(t, closed.Contains("7"))
	assert.False(t, closed.Contains("six"))

	open := Range{Lo: 0, Hi: 1, HalfOpen: true}
	assert.True(t, open.Contains("0.5"))
	assert.False(t, open.Contains("1.0"))
	assert.Equal(t, "0..<1", open.String())
}
