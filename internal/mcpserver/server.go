// Package mcpserver exposes memoryd's operations as MCP tools over stdio,
// bridging AI coding assistants to the app.App wiring layer.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/amanmcp-labs/memoryd/internal/app"
	"github.com/amanmcp-labs/memoryd/pkg/version"
)

// Server is the MCP server for memoryd.
type Server struct {
	mcp    *mcp.Server
	app    *app.App
	logger *slog.Logger
}

// NewServer builds an MCP server over a, registering every tool up front.
func NewServer(a *app.App, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		app:    a,
		logger: logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "memoryd",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying SDK server, mostly for tests.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	s.logger.Debug("registering MCP tools")

	// Memory group
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "store_memory",
		Description: "Store a new memory: episodic, semantic, or procedural content with optional metadata.",
	}, s.handleStoreMemory)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_memory",
		Description: "Fetch a single memory by id.",
	}, s.handleGetMemory)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "update_memory",
		Description: "Update a memory's content, type, or metadata in place.",
	}, s.handleUpdateMemory)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_memory",
		Description: "Permanently delete a memory by id.",
	}, s.handleDeleteMemory)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_memories",
		Description: "List memories, most recently ingested first, paginated.",
	}, s.handleListMemories)

	// Search group
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Dense vector search over stored memories by semantic similarity.",
	}, s.handleSearch)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_text",
		Description: "Lexical BM25 search over stored memories by keyword.",
	}, s.handleSearchText)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "recall",
		Description: "Hybrid recall: fuses vector similarity, BM25, and personalized PageRank over the entity graph. The primary retrieval tool.",
	}, s.handleRecall)

	// Graph group
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create_entity",
		Description: "Create a named node in the knowledge graph.",
	}, s.handleCreateEntity)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "create_relation",
		Description: "Create a directed, weighted edge between two entities.",
	}, s.handleCreateRelation)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_related",
		Description: "Walk the entity graph outward from an entity up to a given depth.",
	}, s.handleGetRelated)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "detect_communities",
		Description: "Run Louvain community detection over the whole entity graph.",
	}, s.handleDetectCommunities)

	// Temporal group
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_valid",
		Description: "List every currently-valid memory, optionally scoped to a user.",
	}, s.handleGetValid)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_valid_at",
		Description: "List every memory valid at a specific point in time.",
	}, s.handleGetValidAt)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "invalidate",
		Description: "Close a memory's validity window, optionally recording what superseded it.",
	}, s.handleInvalidate)

	// Code group
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_project",
		Description: "Index a project's source tree: chunk, extract symbols, embed, and persist.",
	}, s.handleIndexProject)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_code",
		Description: "Dense vector search over indexed code chunks, optionally scoped to a project.",
	}, s.handleSearchCode)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "recall_code",
		Description: "Hybrid vector+BM25 search over indexed code chunks.",
	}, s.handleRecallCode)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Fetch a project's indexing progress.",
	}, s.handleGetIndexStatus)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_projects",
		Description: "List every indexed project's progress record.",
	}, s.handleListProjects)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_project",
		Description: "Delete every chunk, symbol, and progress record for a project.",
	}, s.handleDeleteProject)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_symbols",
		Description: "Find symbols whose name fuzzy-matches a query, optionally scoped to a project.",
	}, s.handleSearchSymbols)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_callers",
		Description: "List every symbol that calls a given symbol.",
	}, s.handleGetCallers)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_callees",
		Description: "List every symbol a given symbol calls.",
	}, s.handleGetCallees)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_related_symbols",
		Description: "Walk the symbol relation graph outward from a symbol up to a given depth.",
	}, s.handleGetRelatedSymbols)

	// System group
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_status",
		Description: "Report version, table counts, and embedding model diagnostics.",
	}, s.handleGetStatus)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reset_all_memory",
		Description: "Irreversibly wipe every stored memory. Requires confirm=true.",
	}, s.handleResetAllMemory)

	s.logger.Info("MCP tools registered", slog.Int("count", 27))
}

// Serve runs the server over stdio until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped gracefully")
	return nil
}
