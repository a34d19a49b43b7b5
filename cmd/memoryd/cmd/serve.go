package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amanmcp-labs/memoryd/internal/app"
	"github.com/amanmcp-labs/memoryd/internal/logging"
	"github.com/amanmcp-labs/memoryd/internal/mcpserver"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Start memoryd as an MCP server speaking JSON-RPC over stdio.

The stdio transport reserves stdout exclusively for protocol frames, so
serve logs only to file (~/.memoryd/logs/server.log), never stdout or
stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	return cmd
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cleanup, err := logging.SetupMCPModeWithLevel(resolveLogLevel(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	srv, err := mcpserver.NewServer(a, nil)
	if err != nil {
		return fmt.Errorf("initializing MCP server: %w", err)
	}

	return srv.Serve(ctx)
}

func resolveLogLevel(configured string) string {
	if flagLogLevel != "" {
		return flagLogLevel
	}
	if configured != "" {
		return configured
	}
	return "info"
}
