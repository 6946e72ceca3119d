// ABOUTME: MCP tool handler implementations for the FK-Guiden server
// ABOUTME: Tool failures are returned as error results, never as protocol errors
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harper/fkguiden/internal/core"
	"github.com/harper/fkguiden/internal/models"
	"github.com/harper/fkguiden/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// previewLen is the number of characters of chunk text shown by list_chunks
const previewLen = 100

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	service Service
	lister  storage.Lister
	logger  *slog.Logger
}

type chunkResult struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score,omitempty"`
}

// AskQuestion handles the ask_question tool
func (h *Handlers) AskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	if strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("question must not be empty"), nil
	}

	history, err := parseHistory(request.GetArguments()["history"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid history: %v", err)), nil
	}

	resp := h.service.Answer(ctx, core.Request{Question: question, History: history})

	response := map[string]interface{}{
		"answer": resp.Answer.Text,
		"kind":   resp.Kind.String(),
	}
	if resp.Retrieval != nil {
		response["mode"] = string(resp.Retrieval.Mode())
		response["standalone_question"] = resp.Retrieval.StandaloneQuestion
		response["chunks"] = len(resp.Retrieval.Chunks)
	}

	return jsonResult(response)
}

// SearchChunks handles the search_chunks tool
func (h *Handlers) SearchChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	maxResults := request.GetInt("max_results", core.DefaultTopK)
	if maxResults <= 0 {
		return mcp.NewToolResultError("max_results must be positive"), nil
	}

	chunks, err := h.service.Search(ctx, query, maxResults)
	if err != nil && !errors.Is(err, core.ErrNoEvidence) {
		return mcp.NewToolResultError(fmt.Sprintf("chunk search failed: %v", err)), nil
	}
	if err != nil {
		h.logger.Debug("search found no evidence", "error", err)
	}

	results := make([]chunkResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, chunkResult{ID: c.ID, Source: c.SourceRef, Text: c.Text, Score: c.Score})
	}

	return jsonResult(map[string]interface{}{
		"query":  query,
		"chunks": results,
	})
}

// ListChunks handles the list_chunks tool
func (h *Handlers) ListChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 10)

	chunks, err := h.lister.List(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list chunks: %v", err)), nil
	}

	results := make([]chunkResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, chunkResult{ID: c.ID, Source: c.SourceRef, Text: preview(c.Text)})
	}

	return jsonResult(map[string]interface{}{
		"chunks": results,
		"count":  len(results),
	})
}

// parseHistory accepts the history argument as a JSON array or a JSON-encoded string
func parseHistory(raw interface{}) ([]models.ConversationTurn, error) {
	if raw == nil {
		return nil, nil
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, nil
		}
		data = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		data = encoded
	}

	var history []models.ConversationTurn
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLen {
		return s
	}
	return string(runes[:previewLen])
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
