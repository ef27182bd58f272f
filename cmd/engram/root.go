package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/engram/engram/internal/config"
	"github.com/engram/engram/internal/logging"
	"github.com/engram/engram/internal/memory"
	"github.com/engram/engram/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "1.0.0"

var (
	logLevel string
	quiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "engram",
	Short: "A local, single-node memory store for AI coding agents",
	Long: `Engram persists short textual memories and returns ranked memories in
response to natural-language queries, over a CLI, an HTTP/JSON API, and a
JSON-RPC tool protocol for agent harnesses.

Memories are created only over the HTTP API and the MCP transport; this
CLI is for inspection and maintenance (forget, decay and prune write).

Examples:
  engram search "gin routing"
  engram show <id>
  engram forget <id>

  engram serve        # start the HTTP API and MCP transport
  engram status       # check whether engram is running`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides ENGRAM_LOG_LEVEL")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "accepted for compatibility; no command reads it")
}

// loadConfig loads configuration and applies --log-level if set.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stderr"})
	return cfg
}

// openService opens storage and wires a memory.Service, for commands that
// talk to the store directly rather than through a transport. Callers must
// close the returned database.
func openService(cfg *config.Config) (*memory.Service, *storage.Database) {
	if err := cfg.EnsureDataDir(); err != nil {
		fmt.Fprintf(os.Stderr, "error creating data directory: %v\n", err)
		os.Exit(1)
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	return memory.NewService(db, cfg), db
}
