package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codeqa/internal/mcp"
	"codeqa/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server on stdio",
	Long: `Start the Model Context Protocol (MCP) server.

The server speaks JSON-RPC 2.0 over stdin/stdout and exposes every analysis
tool plus ask_question. Logs go to stderr. This command is normally started
by an MCP client rather than by hand.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mcp.NewMCPServer(version.Version, a.svc, a.logger)
	if err := server.Start(ctx); err != nil && err != context.Canceled {
		a.logger.Error("MCP server error", "error", err.Error())
		return err
	}
	return nil
}
