package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/statch/statch/internal/presentation/graph"
	"github.com/statch/statch/pkg/definition"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Export the machine graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) representing the machine's states and transitions.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := definition.Load(args[0])
		if err != nil {
			fmt.Printf("Error loading definition: %v\n", err)
			os.Exit(1)
		}

		var overlay *graph.Overlay
		if current, _ := cmd.Flags().GetString("state"); current != "" {
			overlay = &graph.Overlay{Current: current}
		}

		fmt.Print(graph.GenerateMermaid(cfg, overlay))
	},
}

func init() {
	graphCmd.Flags().String("state", "", "Highlight a state as current")
	rootCmd.AddCommand(graphCmd)
}
