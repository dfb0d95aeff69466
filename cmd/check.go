package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itsmostafa/goplay/internal/engines"
	"github.com/itsmostafa/goplay/internal/report"
	"github.com/itsmostafa/goplay/internal/session"
)

var checkFormat string
var checkEngine string

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Run all lessons and verify their annotations",
	Long: `Run every lesson below dir (default: lessons_dir from the config) and
compare each cell's output with its "// Prints", "// =>" and "// error:"
annotations. Exits with 1 when a cell does not match and with 2 when a lesson
does not parse.`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(checkFormat)
		if err != nil {
			return usageError(err)
		}
		cfg := appConfig
		if checkEngine != "" {
			if cfg.DefaultEngine, err = engines.Resolve(checkEngine); err != nil {
				return usageError(err)
			}
		}
		dir := cfg.LessonsDir
		if len(args) == 1 {
			dir = args[0]
		}

		sess, err := session.New(cfg)
		if err != nil {
			return usageError(err)
		}
		outcomes, err := sess.RunAll(cmd.Context(), dir)
		if err != nil {
			return usageError(err)
		}

		summary := report.Summarize(outcomes)
		if err := report.Summary(cmd.OutOrStdout(), format, summary); err != nil {
			return err
		}
		switch {
		case len(summary.Errors) > 0:
			return &ExitError{Code: ExitUsage, Message: fmt.Sprintf("%d lesson(s) could not be loaded", len(summary.Errors))}
		case !summary.Passed:
			return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d cell(s) failed verification", summary.Fail)}
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text, json, yaml)")
	checkCmd.Flags().StringVar(&checkEngine, "engine", "", "Engine for cells without a language tag (swift, js, tengo)")
	rootCmd.AddCommand(checkCmd)
}
