package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns what it wrote to
// stdout. Flag variables are reset since cobra keeps them between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configFile, logLevel, logFormat, cellTimeout = "", "", "", 0
	runFormat, runEngine = "text", ""
	checkFormat, checkEngine = "text", ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
	return exitErr.Code
}

func TestEnginesCommand(t *testing.T) {
	out, err := execute(t, "engines")
	require.NoError(t, err)
	assert.Contains(t, out, "* swift")
	assert.Contains(t, out, "  js")
	assert.Contains(t, out, "  tengo")
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scope.swift", "let x = 3\n/*: Next */\nprint(x + 1)\n")

	out, err := execute(t, "run", "--format", "json", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"printed_lines": [
        "4"
      ]`)

	out, err = execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "CELL 1")
}

func TestRunCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	broken := writeFile(t, dir, "broken.swift", "/*: never closed\nlet x = 1\n")

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing argument", args: []string{"run"}},
		{name: "unknown flag", args: []string{"run", "--nope", broken}},
		{name: "bad format", args: []string{"run", "--format", "xml", broken}},
		{name: "bad engine", args: []string{"run", "--engine", "cobol", broken}},
		{name: "bad timeout", args: []string{"--timeout=-1s", "run", broken}},
		{name: "parse error", args: []string{"run", broken}},
		{name: "missing config", args: []string{"--config", filepath.Join(dir, "nope.hcl"), "engines"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Equal(t, ExitUsage, exitCode(t, err))
		})
	}
}

func TestCheckCommand(t *testing.T) {
	good := t.TempDir()
	writeFile(t, good, "a.swift", "let x = 3\n/*: Next */\nprint(x + 1) // Prints 4\n")

	out, err := execute(t, "check", good)
	require.NoError(t, err)
	assert.Contains(t, out, "PASSED")

	bad := t.TempDir()
	writeFile(t, bad, "a.swift", "print(1) // Prints 2\n")
	out, err = execute(t, "check", bad)
	assert.Equal(t, ExitFailure, exitCode(t, err))
	assert.Contains(t, out, "FAILED")

	broken := t.TempDir()
	writeFile(t, broken, "a.swift", "/*: never closed\n")
	_, err = execute(t, "check", "--format", "yaml", broken)
	assert.Equal(t, ExitUsage, exitCode(t, err))
}

func TestCellsCommand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cells.swift", "//: # Cells\nlet a = 1 // => 1\n")
	out, err := execute(t, "cells", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Cells")
	assert.Contains(t, out, "expect value: 1")
}
