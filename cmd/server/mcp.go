package main

import (
	"github.com/spf13/cobra"

	"github.com/prasenjit/go-meraki-mcp/internal/logging"
	"github.com/prasenjit/go-meraki-mcp/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long: `Runs as a Model Context Protocol server on stdin/stdout.

Tools: search_endpoints, get_endpoint_parameters, execute_endpoint,
key and organization management, and shortcuts for common calls.
Logs go to stderr so they never corrupt the protocol stream.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	core, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer core.Close()

	return mcpserver.New(core, Version, logging.Component("mcp")).ServeStdio()
}
