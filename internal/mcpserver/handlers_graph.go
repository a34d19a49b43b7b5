package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/amanmcp-labs/memoryd/internal/model"
)

func entityOutputFromModel(e model.Entity) EntityOutput {
	return EntityOutput{
		ID:          e.ID.String(),
		Name:        e.Name,
		EntityType:  e.EntityType,
		Description: e.Description,
	}
}

func relationOutputFromModel(r model.Relation) RelationOutput {
	return RelationOutput{
		ID:           r.ID.String(),
		From:         r.InEntity.String(),
		To:           r.OutEntity.String(),
		RelationType: r.RelationType,
		Weight:       r.Weight,
	}
}

func (s *Server) handleCreateEntity(ctx context.Context, _ *mcp.CallToolRequest, input CreateEntityInput) (
	*mcp.CallToolResult, CreateEntityOutput, error,
) {
	if input.Name == "" {
		return nil, CreateEntityOutput{}, invalidParams("name is required")
	}
	id, err := s.app.CreateEntity(ctx, input.Name, input.EntityType, input.Description, input.UserID)
	if err != nil {
		return nil, CreateEntityOutput{}, mapError(err)
	}
	return nil, CreateEntityOutput{ID: id}, nil
}

func (s *Server) handleCreateRelation(ctx context.Context, _ *mcp.CallToolRequest, input CreateRelationInput) (
	*mcp.CallToolResult, CreateRelationOutput, error,
) {
	if input.From == "" || input.To == "" {
		return nil, CreateRelationOutput{}, invalidParams("from and to are required")
	}
	if input.RelationType == "" {
		return nil, CreateRelationOutput{}, invalidParams("relation_type is required")
	}
	weight := input.Weight
	if weight == 0 {
		weight = model.DefaultRelationWeight
	}
	id, err := s.app.CreateRelation(ctx, input.From, input.To, input.RelationType, weight)
	if err != nil {
		return nil, CreateRelationOutput{}, mapError(err)
	}
	return nil, CreateRelationOutput{ID: id}, nil
}

func (s *Server) handleGetRelated(ctx context.Context, _ *mcp.CallToolRequest, input GetRelatedInput) (
	*mcp.CallToolResult, GetRelatedOutput, error,
) {
	if input.EntityID == "" {
		return nil, GetRelatedOutput{}, invalidParams("entity_id is required")
	}
	result, err := s.app.GetRelated(ctx, input.EntityID, input.Depth, input.Direction)
	if err != nil {
		return nil, GetRelatedOutput{}, mapError(err)
	}
	out := GetRelatedOutput{
		Entities:      make([]EntityOutput, len(result.Entities)),
		Relations:     make([]RelationOutput, len(result.Relations)),
		Truncated:     result.Truncated,
		DeferredCount: result.DeferredCount,
	}
	for i, e := range result.Entities {
		out.Entities[i] = entityOutputFromModel(e)
	}
	for i, r := range result.Relations {
		out.Relations[i] = relationOutputFromModel(r)
	}
	return nil, out, nil
}

func (s *Server) handleDetectCommunities(ctx context.Context, _ *mcp.CallToolRequest, input DetectCommunitiesInput) (
	*mcp.CallToolResult, DetectCommunitiesOutput, error,
) {
	resolution := input.Resolution
	if resolution == 0 {
		resolution = 1.0
	}
	communities, err := s.app.DetectCommunities(ctx, resolution)
	if err != nil {
		return nil, DetectCommunitiesOutput{}, mapError(err)
	}
	return nil, DetectCommunitiesOutput{Communities: communities}, nil
}
