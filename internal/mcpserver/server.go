// Package mcpserver exposes the engine as a small set of MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/prasenjit/go-meraki-mcp/internal/engine"
	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

// Server wraps an MCP server whose tools delegate to the engine
type Server struct {
	core      *engine.Engine
	logger    zerolog.Logger
	mcpServer *server.MCPServer
	tools     []server.ServerTool
}

// New builds the MCP server and registers every tool
func New(core *engine.Engine, version string, logger zerolog.Logger) *Server {
	mcpServer := server.NewMCPServer(
		"meraki-mcp",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		core:      core,
		logger:    logger,
		mcpServer: mcpServer,
	}
	s.tools = s.buildTools()
	mcpServer.AddTools(s.tools...)

	return s
}

// ServeStdio serves the MCP protocol on stdin/stdout until the client disconnects
func (s *Server) ServeStdio() error {
	s.logger.Info().Int("tools", len(s.tools)).Msg("serving MCP over stdio")
	return server.ServeStdio(s.mcpServer)
}

// MCPServer returns the underlying mcp-go server
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ToolNames lists the registered tools in registration order
func (s *Server) ToolNames() []string {
	names := make([]string, len(s.tools))
	for i, t := range s.tools {
		names[i] = t.Tool.Name
	}
	return names
}

// jsonResult renders v as indented JSON text
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult turns a domain error into a tool error carrying structured detail
func errorResult(err error) (*mcp.CallToolResult, error) {
	payload := map[string]any{"error": err.Error()}

	var (
		verr    *models.ValidationError
		nf      *models.NotFoundError
		execErr *models.ExecutionError
	)
	switch {
	case errors.As(err, &verr):
		payload["type"] = "validation"
		payload["details"] = verr
		payload["hint"] = "Call get_endpoint_parameters to see the accepted parameters"
	case errors.As(err, &nf):
		payload["type"] = "notFound"
		payload["details"] = nf
		if nf.Kind == "operation" {
			payload["hint"] = "Call search_endpoints to find the operation id"
		}
	case errors.As(err, &execErr):
		payload["type"] = "execution"
		payload["details"] = execErr
	}

	data, _ := json.MarshalIndent(payload, "", "  ")
	return mcp.NewToolResultError(string(data)), nil
}

// argsObject reads an optional object argument
func argsObject(request mcp.CallToolRequest, key string) (map[string]any, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("%s must be a JSON object", key)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s must be a JSON object", key)
}

func (s *Server) execute(ctx context.Context, in engine.ExecuteInput) (*mcp.CallToolResult, error) {
	res, err := s.core.Execute(ctx, in)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}
