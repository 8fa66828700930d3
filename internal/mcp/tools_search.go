package mcp

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/propindex/internal/domain"
	"github.com/sha1n/propindex/internal/properties"
	"github.com/sha1n/propindex/internal/query"
	"github.com/sha1n/propindex/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PropertySearcher is the part of the property manager the tools use.
type PropertySearcher interface {
	FindBy(ctx context.Context, c domain.Criteria, orderBy []query.SortField, limit, offset int) (*properties.Result, error)
	Find(ctx context.Context, id int64) (*store.Hit, error)
}

// SearchArgument defines search parameters.
type SearchArgument struct {
	Criteria string `json:"criteria,omitempty" jsonschema_description:"Criteria as a JSON object, e.g. {\"lang\":\"fr\",\"country_ids\":[\"fr\"],\"rooms\":3}. Key order matters: the last keys are relaxed first"`
	OrderBy  string `json:"order_by,omitempty" jsonschema_description:"Comma separated sort fields, e.g. price:desc,size"`
	Limit    int    `json:"limit,omitempty" jsonschema_description:"Maximum number of properties to return"`
	Offset   int    `json:"offset,omitempty" jsonschema_description:"Number of properties to skip"`
}

// SearchHandler handles the property search MCP tool.
type SearchHandler struct {
	searcher PropertySearcher
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searcher PropertySearcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Handle runs the criteria search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	criteria := domain.Criteria{}
	if strings.TrimSpace(args.Criteria) != "" {
		c, err := domain.ParseCriteria([]byte(args.Criteria))
		if err != nil {
			return errorResult(fmt.Sprintf("Invalid criteria: %s", err)), nil, nil
		}
		criteria = c
	}

	orderBy, err := query.ParseSort(args.OrderBy)
	if err != nil {
		return errorResult(fmt.Sprintf("Invalid order_by: %s", err)), nil, nil
	}
	if args.Limit < 0 || args.Offset < 0 {
		return errorResult("limit and offset cannot be negative"), nil, nil
	}

	res, err := h.searcher.FindBy(ctx, criteria, orderBy, args.Limit, args.Offset)
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return h.formatResults(res), nil, nil
}

// formatResults renders the search result as markdown with one JSON block per property.
func (h *SearchHandler) formatResults(res *properties.Result) *mcp.CallToolResult {
	if res.Total == 0 {
		return textResult(fmt.Sprintf("No properties found for criteria: %s", res.Criteria))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d properties for %s\n", res.Total, res.Criteria))
	if len(res.Dropped) > 0 {
		sb.WriteString(fmt.Sprintf("Relaxed criteria: %s\n", strings.Join(res.Dropped, ", ")))
	}
	sb.WriteString("\n")

	for i, hit := range res.Hits {
		sb.WriteString(fmt.Sprintf("### %d. Property %s\n", i+1, hit.ID))
		writeSource(&sb, hit.Source)
	}

	if res.Total > uint64(len(res.Hits)) {
		sb.WriteString(fmt.Sprintf("... and %d more properties\n", res.Total-uint64(len(res.Hits))))
	}

	return textResult(sb.String())
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_properties",
		Description: "Search property listings by criteria. When too few properties match, the most recently given criteria are relaxed until enough do",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, searcher PropertySearcher) {
	handler := NewSearchHandler(searcher)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

func writeSource(sb *strings.Builder, source map[string]any) {
	data, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		sb.WriteString(fmt.Sprintf("(unprintable document: %s)\n\n", err))
		return
	}
	sb.WriteString("```json\n")
	sb.Write(data)
	sb.WriteString("\n```\n\n")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	res := textResult(text)
	res.IsError = true
	return res
}
