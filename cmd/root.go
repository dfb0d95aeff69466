package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/itsmostafa/goplay/internal/config"
	"github.com/itsmostafa/goplay/internal/ctxlog"
	"github.com/itsmostafa/goplay/internal/version"
)

var configFile string
var logLevel string
var logFormat string
var cellTimeout time.Duration

// appConfig is the effective configuration, resolved before any command
// runs.
var appConfig config.Config

var rootCmd = &cobra.Command{
	Use:   "goplay",
	Short: "Run and verify code playground lessons",
	Long: `goplay runs lessons made of prose and code cells. Cells run in order and
share one scope per lesson; each cell's printed lines, trailing value and
failure are captured into a lesson report.

Lessons are markdown files with fenced code blocks or Xcode-style .swift
playgrounds. Trailing comments such as "// Prints 4", "// => 4" and
"// error: runtime" are checked by "goplay check".`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("goplay %s\n", version.String()))

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("Config file (default %s in the working directory, if present)", config.DefaultFile))
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "Log format (text, json)")
	flags.DurationVar(&cellTimeout, "timeout", 0, "Wall-clock budget per cell, e.g. 500ms (0 = config value)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
}

// loadConfig reads the config file, applies flag overrides and installs the
// logger in the command context.
func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Context(), configFile)
	if err != nil {
		return usageError(err)
	}
	if logLevel != "" {
		cfg.LogLevel = strings.ToLower(logLevel)
	}
	if logFormat != "" {
		cfg.LogFormat = strings.ToLower(logFormat)
	}
	if cellTimeout != 0 {
		cfg.CellTimeout = cellTimeout
	}
	if err := cfg.Validate(); err != nil {
		return usageError(err)
	}

	logger := ctxlog.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	logger.Debug("Configuration resolved.", "engine", cfg.DefaultEngine, "timeout", cfg.CellTimeout, "lessons_dir", cfg.LessonsDir)

	appConfig = cfg
	return nil
}

// Execute runs the root command and exits with the code carried by an
// ExitError, or 1 for any other error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintln(os.Stderr, exitErr.Message)
		}
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(ExitFailure)
}
