// ABOUTME: MCP tool definitions and registration for the FK-Guiden server
// ABOUTME: Exposes the query pipeline and raw retrieval as MCP tools
package mcp

import (
	"context"
	"log/slog"

	"github.com/harper/fkguiden/internal/core"
	"github.com/harper/fkguiden/internal/models"
	"github.com/harper/fkguiden/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Service is the part of the pipeline the tools call. *core.Pipeline satisfies it.
type Service interface {
	Answer(ctx context.Context, req core.Request) core.Response
	Search(ctx context.Context, question string, k int) ([]models.ScoredChunk, error)
}

// RegisterTools registers all MCP tools with the server. list_chunks is
// only registered when lister is non-nil.
func RegisterTools(server *mcpserver.MCPServer, svc Service, lister storage.Lister, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	handlers := &Handlers{
		service: svc,
		lister:  lister,
		logger:  logger,
	}

	// 1. ask_question - full pipeline answer
	server.AddTool(mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question about Försäkringskassan (Swedish Social Insurance Agency) in Swedish, grounded in indexed forsakringskassan.se content.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The user's latest question",
				},
				"history": map[string]interface{}{
					"type":        "array",
					"description": "Optional earlier turns, oldest first",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"role":    map[string]interface{}{"type": "string", "enum": []string{"user", "assistant"}},
							"content": map[string]interface{}{"type": "string"},
						},
						"required": []string{"role", "content"},
					},
				},
			},
			Required: []string{"question"},
		},
	}, handlers.AskQuestion)

	// 2. search_chunks - retrieval only
	server.AddTool(mcp.Tool{
		Name:        "search_chunks",
		Description: "Return the indexed text chunks most similar to a query, with similarity scores.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of chunks to return (default: 5)",
					"default":     core.DefaultTopK,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchChunks)

	// 3. list_chunks - browse the corpus
	if lister != nil {
		server.AddTool(mcp.Tool{
			Name:        "list_chunks",
			Description: "List indexed chunks in insertion order with their source file.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "number",
						"description": "Maximum number of chunks to list (default: 10)",
						"default":     10,
					},
				},
			},
		}, handlers.ListChunks)
	}

	return handlers
}
