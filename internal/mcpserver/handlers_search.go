package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/amanmcp-labs/memoryd/internal/recall"
)

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, invalidParams("query is required")
	}
	results, err := s.app.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, mapError(err)
	}
	out := searchResultOutputsFromRecall(results)
	return nil, SearchOutput{Results: out, Count: len(out), Query: input.Query}, nil
}

func (s *Server) handleSearchText(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, invalidParams("query is required")
	}
	results, err := s.app.SearchText(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, mapError(err)
	}
	out := searchResultOutputsFromRecall(results)
	return nil, SearchOutput{Results: out, Count: len(out), Query: input.Query}, nil
}

func (s *Server) handleRecall(ctx context.Context, _ *mcp.CallToolRequest, input RecallInput) (
	*mcp.CallToolResult, RecallOutput, error,
) {
	if input.Query == "" {
		return nil, RecallOutput{}, invalidParams("query is required")
	}
	results, err := s.app.Recall(ctx, input.Query, input.Limit, input.VectorWeight, input.BM25Weight, input.PPRWeight)
	if err != nil {
		return nil, RecallOutput{}, mapError(err)
	}
	weights := recall.DefaultWeights()
	if input.VectorWeight != 0 {
		weights.Vector = input.VectorWeight
	}
	if input.BM25Weight != 0 {
		weights.BM25 = input.BM25Weight
	}
	if input.PPRWeight != 0 {
		weights.PPR = input.PPRWeight
	}
	out := searchResultOutputsFromRecall(results)
	return nil, RecallOutput{
		Results: out,
		Count:   len(out),
		Query:   input.Query,
		Weights: WeightsOutput{Vector: weights.Vector, BM25: weights.BM25, PPR: weights.PPR},
	}, nil
}
