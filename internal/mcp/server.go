package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docqa/internal/retrieval"
)

// Service is the retrieval surface the tools call.
type Service interface {
	Query(ctx context.Context, question string, k int) ([]retrieval.Result, error)
	Ask(ctx context.Context, question string) (*retrieval.Answer, error)
	ListDocuments(ctx context.Context) ([]retrieval.DocumentSummary, error)
	Health(ctx context.Context) error
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	svc    Service
	logger *slog.Logger
}

// Config holds server dependencies.
type Config struct {
	Service Service
	Version string
	Logger  *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	if cfg.Version == "" {
		cfg.Version = "v0.1.0"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "docqa",
		Version: cfg.Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Search uploaded documents semantically. Returns the most similar text fragments with their filenames and cosine similarity.",
	}, makeSearchHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_documents",
		Description: "Answer a question using only the uploaded documents. Returns the answer and the filenames it was drawn from.",
	}, makeAskHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List all uploaded documents with their chunk counts.",
	}, makeListHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Report store health, document and chunk counts, and the time of the last upload.",
	}, makeStatusHandler(cfg.Service, cfg.Logger))

	return &Server{
		server: server,
		svc:    cfg.Service,
		logger: cfg.Logger,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
