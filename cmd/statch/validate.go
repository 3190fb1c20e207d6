package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/statch/statch"
	"github.com/statch/statch/pkg/definition"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a machine definition for consistency",
	Long:  `Loads the definition and runs machine construction: flatness, initial state and transition targets are all verified.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Definition is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	cfg, err := definition.Load(path)
	if err != nil {
		return err
	}
	if _, err := statch.NewMachine(cfg); err != nil {
		return err
	}
	return nil
}
