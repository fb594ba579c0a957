// Package mcp exposes a small MCP tool surface over the datasets service so
// agent clients can search and inspect datasets through the same collaborator
// the REST API uses.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/seqbench/seqbench/internal/services"
	"github.com/seqbench/seqbench/pkg/models"
)

type Server struct {
	mcpServer *server.MCPServer
	datasets  services.DatasetsService
}

func NewServer(datasets services.DatasetsService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"seqbench datasets",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		datasets: datasets,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"search_datasets",
			mcp.WithDescription("Search datasets, optionally restricted to one history"),
			mcp.WithString("history_id", mcp.Description("Restrict the search to this history")),
		),
		s.handleSearchDatasets,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"show_dataset",
			mcp.WithDescription("Show detailed information about a dataset"),
			mcp.WithString("dataset_id", mcp.Required(), mcp.Description("The encoded dataset identifier")),
		),
		s.handleShowDataset,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_content_as_text",
			mcp.WithDescription("Return dataset content decoded as text"),
			mcp.WithString("dataset_id", mcp.Required(), mcp.Description("The encoded dataset identifier")),
		),
		s.handleContentAsText,
	)
}

func (s *Server) handleSearchDatasets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	historyID, _ := args["history_id"].(string)
	items, err := s.datasets.Index(ctx, historyID,
		models.SerializationParams{DefaultView: "summary"}, models.FilterQueryParams{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search datasets: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(items)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleShowDataset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	datasetID, ok := args["dataset_id"].(string)
	if !ok || datasetID == "" {
		return mcp.NewToolResultError("Missing required parameter: dataset_id"), nil
	}

	result, err := s.datasets.Show(ctx, datasetID, models.DatasetSourceHDA,
		models.SerializationParams{View: "detailed"}, "", url.Values{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to show dataset: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleContentAsText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	datasetID, ok := args["dataset_id"].(string)
	if !ok || datasetID == "" {
		return mcp.NewToolResultError("Missing required parameter: dataset_id"), nil
	}

	details, err := s.datasets.ContentAsText(ctx, datasetID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read dataset content: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(details)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// SSE server for the /mcp/sse and /mcp/message endpoints.
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls.
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
