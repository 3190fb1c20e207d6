package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/statch/statch"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of statch",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("statch version %s\n", statch.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
