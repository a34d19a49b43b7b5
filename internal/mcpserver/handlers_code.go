package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleIndexProject(ctx context.Context, _ *mcp.CallToolRequest, input IndexProjectInput) (
	*mcp.CallToolResult, IndexProjectOutput, error,
) {
	if input.Path == "" {
		return nil, IndexProjectOutput{}, invalidParams("path is required")
	}
	result, err := s.app.IndexProject(ctx, input.Path, input.Watch)
	if err != nil {
		return nil, IndexProjectOutput{}, mapError(err)
	}
	return nil, IndexProjectOutput{
		ProjectID:     result.ProjectID,
		FilesIndexed:  result.FilesIndexed,
		ChunksCreated: result.ChunksCreated,
	}, nil
}

func (s *Server) handleSearchCode(ctx context.Context, _ *mcp.CallToolRequest, input SearchCodeInput) (
	*mcp.CallToolResult, CodeSearchOutput, error,
) {
	if input.Query == "" {
		return nil, CodeSearchOutput{}, invalidParams("query is required")
	}
	results, err := s.app.SearchCode(ctx, input.Query, input.ProjectID, input.Limit)
	if err != nil {
		return nil, CodeSearchOutput{}, mapError(err)
	}
	out := codeResultOutputsFromRecall(results)
	return nil, CodeSearchOutput{Results: out, Count: len(out), Query: input.Query}, nil
}

func (s *Server) handleRecallCode(ctx context.Context, _ *mcp.CallToolRequest, input SearchCodeInput) (
	*mcp.CallToolResult, CodeSearchOutput, error,
) {
	if input.Query == "" {
		return nil, CodeSearchOutput{}, invalidParams("query is required")
	}
	results, err := s.app.RecallCode(ctx, input.Query, input.ProjectID, input.Limit)
	if err != nil {
		return nil, CodeSearchOutput{}, mapError(err)
	}
	out := codeResultOutputsFromRecall(results)
	return nil, CodeSearchOutput{Results: out, Count: len(out), Query: input.Query}, nil
}

func (s *Server) handleGetIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, input GetIndexStatusInput) (
	*mcp.CallToolResult, IndexStatusOutput, error,
) {
	if input.ProjectID == "" {
		return nil, IndexStatusOutput{}, invalidParams("project_id is required")
	}
	st, err := s.app.GetIndexStatus(ctx, input.ProjectID)
	if err != nil {
		return nil, IndexStatusOutput{}, mapError(err)
	}
	return nil, indexStatusOutputFromModel(st), nil
}

func (s *Server) handleListProjects(ctx context.Context, _ *mcp.CallToolRequest, _ ListProjectsInput) (
	*mcp.CallToolResult, ListProjectsOutput, error,
) {
	projects, err := s.app.ListProjects(ctx)
	if err != nil {
		return nil, ListProjectsOutput{}, mapError(err)
	}
	out := make([]IndexStatusOutput, len(projects))
	for i, p := range projects {
		out[i] = indexStatusOutputFromModel(p)
	}
	return nil, ListProjectsOutput{Projects: out, Count: len(out)}, nil
}

func (s *Server) handleDeleteProject(ctx context.Context, _ *mcp.CallToolRequest, input DeleteProjectInput) (
	*mcp.CallToolResult, DeleteProjectOutput, error,
) {
	if input.ProjectID == "" {
		return nil, DeleteProjectOutput{}, invalidParams("project_id is required")
	}
	n, err := s.app.DeleteProject(ctx, input.ProjectID)
	if err != nil {
		return nil, DeleteProjectOutput{}, mapError(err)
	}
	return nil, DeleteProjectOutput{ChunksDeleted: n}, nil
}

func (s *Server) handleSearchSymbols(ctx context.Context, _ *mcp.CallToolRequest, input SearchSymbolsInput) (
	*mcp.CallToolResult, SymbolSearchOutput, error,
) {
	if input.NameQuery == "" {
		return nil, SymbolSearchOutput{}, invalidParams("name_query is required")
	}
	symbols, err := s.app.SearchSymbols(ctx, input.NameQuery, input.ProjectID)
	if err != nil {
		return nil, SymbolSearchOutput{}, mapError(err)
	}
	out := symbolOutputsFromModel(symbols)
	return nil, SymbolSearchOutput{Results: out, Count: len(out)}, nil
}

func (s *Server) handleGetCallers(ctx context.Context, _ *mcp.CallToolRequest, input GetCallersInput) (
	*mcp.CallToolResult, SymbolListOutput, error,
) {
	if input.SymbolID == "" {
		return nil, SymbolListOutput{}, invalidParams("symbol_id is required")
	}
	symbols, err := s.app.GetCallers(ctx, input.SymbolID)
	if err != nil {
		return nil, SymbolListOutput{}, mapError(err)
	}
	out := symbolOutputsFromModel(symbols)
	return nil, SymbolListOutput{Symbols: out, Count: len(out)}, nil
}

func (s *Server) handleGetCallees(ctx context.Context, _ *mcp.CallToolRequest, input GetCalleesInput) (
	*mcp.CallToolResult, SymbolListOutput, error,
) {
	if input.SymbolID == "" {
		return nil, SymbolListOutput{}, invalidParams("symbol_id is required")
	}
	symbols, err := s.app.GetCallees(ctx, input.SymbolID)
	if err != nil {
		return nil, SymbolListOutput{}, mapError(err)
	}
	out := symbolOutputsFromModel(symbols)
	return nil, SymbolListOutput{Symbols: out, Count: len(out)}, nil
}

func (s *Server) handleGetRelatedSymbols(ctx context.Context, _ *mcp.CallToolRequest, input GetRelatedSymbolsInput) (
	*mcp.CallToolResult, GetRelatedSymbolsOutput, error,
) {
	if input.SymbolID == "" {
		return nil, GetRelatedSymbolsOutput{}, invalidParams("symbol_id is required")
	}
	relations, err := s.app.GetRelatedSymbols(ctx, input.SymbolID, input.Depth)
	if err != nil {
		return nil, GetRelatedSymbolsOutput{}, mapError(err)
	}
	out := make([]SymbolRelationOutput, len(relations))
	for i, r := range relations {
		out[i] = SymbolRelationOutput{
			ID:     r.ID.String(),
			Source: r.Source.String(),
			Target: r.Target.String(),
			Kind:   string(r.Kind),
		}
	}
	return nil, GetRelatedSymbolsOutput{Relations: out, Count: len(out)}, nil
}
