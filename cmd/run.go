package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/itsmostafa/goplay/internal/engines"
	"github.com/itsmostafa/goplay/internal/lesson"
	"github.com/itsmostafa/goplay/internal/report"
	"github.com/itsmostafa/goplay/internal/session"
)

var runFormat string
var runEngine string

var runCmd = &cobra.Command{
	Use:   "run <lesson>",
	Short: "Run one lesson and print its report",
	Long: `Run every cell of a lesson in order and print what each cell printed, its
trailing value and any failure. Cell failures are part of the report and do
not change the exit code; a lesson that does not parse exits with 2.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(runFormat)
		if err != nil {
			return usageError(err)
		}
		cfg := appConfig
		if runEngine != "" {
			if cfg.DefaultEngine, err = engines.Resolve(runEngine); err != nil {
				return usageError(err)
			}
		}

		sess, err := session.New(cfg)
		if err != nil {
			return usageError(err)
		}
		l, err := lesson.Load(args[0])
		if err != nil {
			return usageError(err)
		}
		r, err := sess.RunLesson(cmd.Context(), l)
		if err != nil {
			return err
		}
		return report.Lesson(cmd.OutOrStdout(), format, r, l)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "text", "Output format (text, json, yaml)")

	// Engine flag with env var fallback
	defaultEngine := os.Getenv("GOPLAY_ENGINE")
	runCmd.Flags().StringVar(&runEngine, "engine", defaultEngine, "Engine for cells without a language tag (swift, js, tengo)")

	rootCmd.AddCommand(runCmd)
}
