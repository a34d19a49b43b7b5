package mcpserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/amanmcp-labs/memoryd/internal/model"
)

func memoryOutputsFromModel(memories []model.Memory) []MemoryOutput {
	out := make([]MemoryOutput, len(memories))
	for i, m := range memories {
		out[i] = memoryOutputFromModel(m)
	}
	return out
}

func (s *Server) handleGetValid(ctx context.Context, _ *mcp.CallToolRequest, input GetValidInput) (
	*mcp.CallToolResult, GetValidOutput, error,
) {
	memories, err := s.app.GetValid(ctx, input.UserID, input.Limit)
	if err != nil {
		return nil, GetValidOutput{}, mapError(err)
	}
	out := memoryOutputsFromModel(memories)
	return nil, GetValidOutput{Results: out, Count: len(out)}, nil
}

func (s *Server) handleGetValidAt(ctx context.Context, _ *mcp.CallToolRequest, input GetValidAtInput) (
	*mcp.CallToolResult, GetValidAtOutput, error,
) {
	if input.Timestamp == "" {
		return nil, GetValidAtOutput{}, invalidParams("timestamp is required")
	}
	at, err := time.Parse(time.RFC3339, input.Timestamp)
	if err != nil {
		return nil, GetValidAtOutput{}, invalidParams("timestamp must be RFC3339")
	}
	memories, err := s.app.GetValidAt(ctx, at, input.UserID, input.Limit)
	if err != nil {
		return nil, GetValidAtOutput{}, mapError(err)
	}
	out := memoryOutputsFromModel(memories)
	return nil, GetValidAtOutput{Results: out, Count: len(out), Timestamp: input.Timestamp}, nil
}

func (s *Server) handleInvalidate(ctx context.Context, _ *mcp.CallToolRequest, input InvalidateInput) (
	*mcp.CallToolResult, InvalidateOutput, error,
) {
	if input.ID == "" {
		return nil, InvalidateOutput{}, invalidParams("id is required")
	}
	invalidated, err := s.app.Invalidate(ctx, input.ID, input.Reason, input.SupersededBy)
	if err != nil {
		return nil, InvalidateOutput{}, mapError(err)
	}
	return nil, InvalidateOutput{Invalidated: invalidated}, nil
}
