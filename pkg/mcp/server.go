package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"aircast/pkg/bluetooth"
	"aircast/pkg/session"
	"aircast/pkg/store"
)

// Server wraps the MCP server with Aircast's capture and device control
type Server struct {
	mcpServer   *server.MCPServer
	coordinator *session.Coordinator
	registry    *bluetooth.Registry
	store       store.Store
}

// NewServer creates a new MCP server for capture and device control
func NewServer(coordinator *session.Coordinator, registry *bluetooth.Registry, st store.Store) *Server {
	s := &Server{
		coordinator: coordinator,
		registry:    registry,
		store:       st,
	}

	s.mcpServer = server.NewMCPServer(
		"aircast",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
