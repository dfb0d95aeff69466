package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itsmostafa/goplay/internal/engines"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List the available cell engines",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, _ []string) error {
		def, err := engines.Resolve(appConfig.DefaultEngine)
		if err != nil {
			return usageError(err)
		}
		for _, name := range engines.Names() {
			marker := " "
			if name == def {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-6s %s\n", marker, name, engines.Descriptions[name])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enginesCmd)
}
