package cmd

import (
	"github.com/spf13/cobra"

	"github.com/itsmostafa/goplay/internal/lesson"
	"github.com/itsmostafa/goplay/internal/report"
)

var cellsCmd = &cobra.Command{
	Use:   "cells <lesson>",
	Short: "List the cells of a lesson without running them",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := lesson.Load(args[0])
		if err != nil {
			return usageError(err)
		}
		report.Cells(cmd.OutOrStdout(), l)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cellsCmd)
}
