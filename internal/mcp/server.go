package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// Properties backs the property tools. When nil no tools are registered.
	Properties PropertySearcher
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Properties != nil {
		RegisterSearchTool(s, cfg.Properties)
		RegisterGetTool(s, cfg.Properties)
	}

	return s
}
