package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetArgument defines the property lookup parameters.
type GetArgument struct {
	ID int64 `json:"id" jsonschema_description:"Property id"`
}

// GetHandler handles the property lookup MCP tool.
type GetHandler struct {
	searcher PropertySearcher
}

// NewGetHandler creates a new get handler.
func NewGetHandler(searcher PropertySearcher) *GetHandler {
	return &GetHandler{searcher: searcher}
}

// Handle fetches one property document by id.
func (h *GetHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args GetArgument) (*mcp.CallToolResult, any, error) {
	if args.ID <= 0 {
		return errorResult("id must be a positive integer"), nil, nil
	}

	hit, err := h.searcher.Find(ctx, args.ID)
	if err != nil {
		return errorResult(fmt.Sprintf("Lookup failed: %s", err)), nil, nil
	}
	if hit == nil {
		return textResult(fmt.Sprintf("Property %d not found", args.ID)), nil, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("### Property %s\n", hit.ID))
	writeSource(&sb, hit.Source)
	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *GetHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_property",
		Description: "Get one indexed property document by id",
	}
}

// RegisterGetTool registers the get tool with an MCP server.
func RegisterGetTool(server *mcp.Server, searcher PropertySearcher) {
	handler := NewGetHandler(searcher)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
