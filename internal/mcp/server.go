// Package mcp exposes the layout daemon to MCP clients over stdio. The
// server is a thin bridge: every tool call round-trips through the daemon's
// IPC socket, so it carries no engine state of its own.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rivenirvana/MosaicWM-sub002/internal/ipc"
)

const (
	ServerName    = "mosaicwm"
	ServerVersion = "0.1.0"
)

// Server is the MCP server bridging tools to the daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *ipc.Client
}

// NewServer creates an MCP server that talks to the running daemon.
func NewServer() (*Server, error) {
	client := ipc.NewClient()
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("daemon not reachable: %w", err)
	}

	s := &Server{client: client}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Get daemon status: managed window count, edge-tiled count, disabled workspaces and uptime.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List every managed window with its geometry, desktop, lifecycle phase and snap zone. Optionally filter by desktop.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "retile_workspace",
		Description: "Re-converge one (desktop, monitor) pair onto its computed mosaic layout.",
	}, s.handleRetileWorkspace)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_workspace_enabled",
		Description: "Enable or disable automatic layout management for one workspace. Re-enabling retiles it immediately.",
	}, s.handleSetWorkspaceEnabled)
}
