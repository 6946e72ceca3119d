// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Lets LLM agents ask FK-Guiden questions via stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harper/fkguiden/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs FK-Guiden as an MCP (Model Context Protocol) server over stdio,
exposing the ask_question, search_chunks and list_chunks tools.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by an MCP client)
  fkguiden mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "fkguiden": {
  #       "command": "fkguiden",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	server := mcpserver.NewMCPServer(
		"FK-Guiden",
		versionInfo.Version,
	)
	mcp.RegisterTools(server, a.pipeline, a.lister, logger.With("component", "mcp"))

	logger.Info("MCP server starting on stdio")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := a.Close(); err != nil {
			logger.Warn("error closing store", "error", err)
		}
	case err := <-serverErr:
		a.Close()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
