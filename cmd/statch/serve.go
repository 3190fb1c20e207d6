package main

import (
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/statch/statch"
	"github.com/statch/statch/internal/logging"
	httpadapter "github.com/statch/statch/pkg/adapters/http"
	"github.com/statch/statch/pkg/adapters/memory"
	"github.com/statch/statch/pkg/adapters/redis"
	"github.com/statch/statch/pkg/definition"
	"github.com/statch/statch/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve <file>",
	Short: "Serve a machine as a session API",
	Long: `Exposes the machine over HTTP: POST /sessions creates a session,
POST /sessions/{id}/events delivers events, GET /sessions/{id} reads state.
Sessions persist in memory by default, or in Redis with --redis.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd, args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("redis", "", "Redis address for durable sessions (e.g. localhost:6379)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, path string) error {
	cfg, err := definition.Load(path)
	if err != nil {
		return err
	}
	machine, err := statch.NewMachine(cfg)
	if err != nil {
		return err
	}

	logger := logging.New(slog.LevelInfo)

	var store ports.SnapshotStore = memory.NewStore()
	if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
		redisStore := redis.New(addr, "", 0)
		defer redisStore.Close()
		store = redisStore
		logger.Info("using redis session store", "addr", addr)
	}

	handler := httpadapter.NewHandler(machine, store, httpadapter.WithLogger(logger))

	addr, _ := cmd.Flags().GetString("addr")
	logger.Info("serving machine", "machine", machine.ID(), "addr", addr)
	return nethttp.ListenAndServe(addr, handler)
}
