package main

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/bull/docqa/internal/mcp"
)

var version = "dev"

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.NewServer(&mcpserver.Config{Service: a, Version: version, Logger: a.Logger})
	a.Logger.Info("Starting docqa MCP server (stdio mode)")
	return server.Run(ctx)
}
