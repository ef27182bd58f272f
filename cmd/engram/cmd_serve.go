package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/engram/engram/internal/api"
	"github.com/engram/engram/internal/daemon"
	"github.com/engram/engram/internal/mcp"
)

var (
	serveHost       string
	servePort       int
	serveBackground bool
	serveNoMCP      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and MCP transport",
	Long: `serve runs the HTTP/JSON API and the JSON-RPC-over-stdio MCP transport
against the same store. MCP reads tools/call requests from stdin. With
--background the detached process has no stdin, so its MCP transport
sees end of input at once and only the HTTP API keeps serving.`,
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether engram is running",
	Run: func(cmd *cobra.Command, args []string) {
		runStatus()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "HTTP host (overrides ENGRAM_HTTP_HOST)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides ENGRAM_HTTP_PORT)")
	serveCmd.Flags().BoolVarP(&serveBackground, "background", "b", false, "daemonize: detach and run in the background")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "disable the MCP stdio transport")
}

func runServe() {
	cfg := loadConfig()
	if serveHost != "" {
		cfg.HTTPHost = serveHost
	}
	if servePort != 0 {
		cfg.HTTPPort = servePort
	}

	svc, db := openService(cfg)
	defer db.Close()

	dataDir := filepath.Dir(cfg.DBPath)
	d := daemon.New(dataDir, Version)

	if d.IsRunning() {
		status := d.Status()
		fmt.Fprintf(os.Stderr, "engram is already running (PID %d)\n", status.PID)
		os.Exit(1)
	}

	if serveBackground {
		args := []string{"serve", "--host", cfg.HTTPHost, "--port", fmt.Sprintf("%d", cfg.HTTPPort)}
		if serveNoMCP {
			args = append(args, "--no-mcp")
		}
		if _, err := d.Daemonize(args); err != nil {
			fmt.Fprintf(os.Stderr, "error starting daemon: %v\n", err)
			os.Exit(1)
		}
		for i := 0; i < 50; i++ {
			time.Sleep(100 * time.Millisecond)
			if d.IsRunning() {
				fmt.Printf("engram started (PID %d), HTTP on %s:%d\n", d.Status().PID, cfg.HTTPHost, cfg.HTTPPort)
				return
			}
		}
		fmt.Fprintln(os.Stderr, "engram did not start within 5s")
		os.Exit(1)
	}

	if err := d.Start(cfg.HTTPHost, cfg.HTTPPort, !serveNoMCP); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not register daemon state: %v\n", err)
	}
	defer d.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	httpServer := api.NewServer(svc, cfg)
	errChan := make(chan error, 2)

	go func() {
		fmt.Printf("HTTP API listening on %s:%d\n", cfg.HTTPHost, cfg.HTTPPort)
		if err := httpServer.StartWithContext(ctx, 5*time.Second); err != nil {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	if !serveNoMCP {
		mcpServer := mcp.NewServer(svc, cfg)
		go func() {
			if err := mcpServer.Run(ctx); err != nil && err != context.Canceled {
				errChan <- fmt.Errorf("mcp server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		fmt.Println("\nshutting down...")
	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "%v\n", err)
		cancel()
		os.Exit(1)
	}
}

func runStatus() {
	cfg := loadConfig()
	d := daemon.New(filepath.Dir(cfg.DBPath), Version)
	status := d.Status()

	if status.Running {
		fmt.Printf("engram: running (PID %d), uptime %s\n", status.PID, status.Uptime.Round(time.Second))
		fmt.Printf("HTTP:   %s:%d\n", status.HTTPHost, status.HTTPPort)
		fmt.Printf("MCP:    %v\n", status.MCPEnabled)
	} else {
		fmt.Println("engram: not running")
	}
	fmt.Printf("Database: %s\n", cfg.DBPath)
}
