package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleGetStatus(ctx context.Context, _ *mcp.CallToolRequest, _ GetStatusInput) (
	*mcp.CallToolResult, GetStatusOutput, error,
) {
	report, err := s.app.Status(ctx)
	if err != nil {
		return nil, GetStatusOutput{}, mapError(err)
	}
	return nil, GetStatusOutput{
		Version:       report.Version,
		Status:        report.Status,
		MemoriesCount: report.Memories,
		Embedding: EmbeddingStatusOutput{
			Status:     report.Embedding.Status,
			Model:      report.Embedding.Model,
			Dimensions: report.Embedding.Dimensions,
			CacheStats: cacheStatsOutputFromModel(report.Embedding.CacheStats),
		},
	}, nil
}

func (s *Server) handleResetAllMemory(ctx context.Context, _ *mcp.CallToolRequest, input ResetAllMemoryInput) (
	*mcp.CallToolResult, ResetAllMemoryOutput, error,
) {
	wiped, err := s.app.ResetAllMemory(ctx, input.Confirm)
	if err != nil {
		return nil, ResetAllMemoryOutput{}, mapError(err)
	}
	return nil, ResetAllMemoryOutput{Wiped: wiped}, nil
}
