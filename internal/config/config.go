// Package config holds the playground configuration: defaults, an optional
// HCL file, and the validation shared by the CLI and the session.
package config

import (
	"errors"
	"fmt"
	"time"
)

// DefaultFile is the config file looked up in the working directory when
// no --config flag is given.
const DefaultFile = "goplay.hcl"

// Config holds everything a playground session needs to run lessons.
type Config struct {
	// CellTimeout is the wall-clock budget of a single cell evaluation.
	CellTimeout time.Duration

	// DefaultEngine runs cells whose lesson and fence carry no language tag.
	DefaultEngine string

	// LessonsDir is scanned by `goplay check` when no directory is given.
	LessonsDir string

	// Exclude lists directory names skipped while discovering lessons.
	Exclude []string

	// MaxOutputChars caps the captured output of one cell (0 = unlimited).
	MaxOutputChars int

	// MaxCallDepth caps function call nesting in the native engine.
	MaxCallDepth int

	LogLevel  string
	LogFormat string
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		CellTimeout:    2 * time.Second,
		DefaultEngine:  "swift",
		LessonsDir:     "lessons",
		Exclude:        []string{".git", "node_modules", "vendor", "testdata"},
		MaxOutputChars: 20000,
		MaxCallDepth:   256,
		LogLevel:       "warn",
		LogFormat:      "text",
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.CellTimeout <= 0 {
		return fmt.Errorf("cell_timeout must be positive, got %s", c.CellTimeout)
	}
	if c.DefaultEngine == "" {
		return errors.New("default_engine cannot be empty")
	}
	if c.MaxOutputChars < 0 {
		return fmt.Errorf("max_output_chars cannot be negative, got %d", c.MaxOutputChars)
	}
	if c.MaxCallDepth <= 0 {
		return fmt.Errorf("max_call_depth must be positive, got %d", c.MaxCallDepth)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be 'text' or 'json'", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", c.LogLevel)
	}
	return nil
}
