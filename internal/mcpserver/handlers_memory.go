package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleStoreMemory(ctx context.Context, _ *mcp.CallToolRequest, input StoreMemoryInput) (
	*mcp.CallToolResult, StoreMemoryOutput, error,
) {
	if input.Content == "" {
		return nil, StoreMemoryOutput{}, invalidParams("content is required")
	}
	memoryType := input.MemoryType
	if memoryType == "" {
		memoryType = "episodic"
	}
	id, err := s.app.StoreMemory(ctx, input.Content, memoryType, input.UserID, input.Metadata)
	if err != nil {
		return nil, StoreMemoryOutput{}, mapError(err)
	}
	return nil, StoreMemoryOutput{ID: id}, nil
}

func (s *Server) handleGetMemory(ctx context.Context, _ *mcp.CallToolRequest, input GetMemoryInput) (
	*mcp.CallToolResult, MemoryOutput, error,
) {
	if input.ID == "" {
		return nil, MemoryOutput{}, invalidParams("id is required")
	}
	m, err := s.app.GetMemory(ctx, input.ID)
	if err != nil {
		return nil, MemoryOutput{}, mapError(err)
	}
	return nil, memoryOutputFromModel(m), nil
}

func (s *Server) handleUpdateMemory(ctx context.Context, _ *mcp.CallToolRequest, input UpdateMemoryInput) (
	*mcp.CallToolResult, MemoryOutput, error,
) {
	if input.ID == "" {
		return nil, MemoryOutput{}, invalidParams("id is required")
	}
	m, err := s.app.UpdateMemory(ctx, input.ID, input.Content, input.MemoryType, input.Metadata)
	if err != nil {
		return nil, MemoryOutput{}, mapError(err)
	}
	return nil, memoryOutputFromModel(m), nil
}

func (s *Server) handleDeleteMemory(ctx context.Context, _ *mcp.CallToolRequest, input DeleteMemoryInput) (
	*mcp.CallToolResult, DeleteMemoryOutput, error,
) {
	if input.ID == "" {
		return nil, DeleteMemoryOutput{}, invalidParams("id is required")
	}
	deleted, err := s.app.DeleteMemory(ctx, input.ID)
	if err != nil {
		return nil, DeleteMemoryOutput{}, mapError(err)
	}
	return nil, DeleteMemoryOutput{Deleted: deleted}, nil
}

func (s *Server) handleListMemories(ctx context.Context, _ *mcp.CallToolRequest, input ListMemoriesInput) (
	*mcp.CallToolResult, ListMemoriesOutput, error,
) {
	page, err := s.app.ListMemories(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, ListMemoriesOutput{}, mapError(err)
	}
	out := ListMemoriesOutput{
		Memories: make([]MemoryOutput, len(page.Memories)),
		Total:    page.Total,
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	for i, m := range page.Memories {
		out.Memories[i] = memoryOutputFromModel(m)
	}
	return nil, out, nil
}
