package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/statch/statch"
	"github.com/statch/statch/internal/logging"
	"github.com/statch/statch/pkg/definition"
	"github.com/statch/statch/pkg/domain"
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a machine interactively",
	Long: `Starts a service for the definition and reads event types from stdin,
one per line. Each notification prints the state value, the changed flag and
the context. Named actions without a binding are no-ops.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInteractive(cmd, args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runInteractive(cmd *cobra.Command, path string) error {
	cfg, err := definition.Load(path)
	if err != nil {
		return err
	}
	machine, err := statch.NewMachine(cfg)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(level)

	service := machine.Interpret(statch.WithLogger(logger))
	unsubscribe := service.Subscribe(func(state domain.StateResult) {
		fmt.Printf("state=%s changed=%v context=%v\n", state.Value, state.Changed, state.Context)
	})
	defer unsubscribe()

	service.Start()

	fmt.Println("--- statch (type an event name, 'exit' to quit) ---")
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		event := strings.TrimSpace(line)
		if event == "" {
			continue
		}
		if event == "exit" || event == "quit" {
			fmt.Println("Bye!")
			break
		}
		service.Send(event)
	}

	service.Stop()
	return nil
}
