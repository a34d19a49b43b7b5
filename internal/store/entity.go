package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
	"github.com/amanmcp-labs/memoryd/internal/ident"
	"github.com/amanmcp-labs/memoryd/internal/model"
)

type entityRow struct {
	ID          ident.ID  `json:"id"`
	Name        string    `json:"name"`
	EntityType  string    `json:"entity_type"`
	Description *string   `json:"description,omitempty"`
	UserID      *string   `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Embedding   []float32 `json:"embedding,omitempty"`
	AliasOf     *ident.ID `json:"alias_of,omitempty"`
}

func (r entityRow) toModel() model.Entity {
	e := model.Entity{
		ID:         r.ID,
		Name:       r.Name,
		EntityType: r.EntityType,
		CreatedAt:  r.CreatedAt,
		Embedding:  r.Embedding,
		AliasOf:    r.AliasOf,
	}
	if r.Description != nil {
		e.Description = *r.Description
	}
	if r.UserID != nil {
		e.UserID = *r.UserID
	}
	return e
}

const createEntityQuery = `
CREATE entity CONTENT {
	name: $name,
	entity_type: $entity_type,
	description: $description,
	user_id: $user_id,
	created_at: $created_at,
	embedding: $embedding
};`

// CreateEntity inserts a new entity node.
func (s *Store) CreateEntity(ctx context.Context, e model.Entity) (ident.ID, error) {
	id, err := ident.New("entity", uuid.NewString())
	if err != nil {
		return ident.ID{}, err
	}

	rows, err := query[entityRow](ctx, s, createEntityQuery, map[string]any{
		"name":        e.Name,
		"entity_type": e.EntityType,
		"description": nilIfEmpty(e.Description),
		"user_id":     nilIfEmpty(e.UserID),
		"created_at":  orNow(e.CreatedAt),
		"embedding":   e.Embedding,
	})
	if err != nil {
		return ident.ID{}, err
	}
	if len(rows) == 0 {
		return ident.ID{}, apperr.New(apperr.Database, "entity_create_no_row", "create returned no row", nil)
	}
	return rows[0].ID, nil
}

const getEntityQuery = `SELECT * FROM $id;`

// GetEntity fetches an entity by identifier.
func (s *Store) GetEntity(ctx context.Context, id ident.ID) (model.Entity, error) {
	row, err := querySingle[entityRow](ctx, s, "entity_not_found", getEntityQuery, map[string]any{
		"id": recordID(id.Table(), id.Key()),
	})
	if err != nil {
		return model.Entity{}, err
	}
	return row.toModel(), nil
}

const findEntityByNameQuery = `
SELECT * FROM entity WHERE name = $name AND ($user_id = NONE OR user_id = $user_id) LIMIT 1;`

// FindEntityByName looks up an entity by exact name match, scoped to an
// optional user.
func (s *Store) FindEntityByName(ctx context.Context, name, userID string) (model.Entity, bool, error) {
	rows, err := query[entityRow](ctx, s, findEntityByNameQuery, map[string]any{
		"name":    name,
		"user_id": nilIfEmpty(userID),
	})
	if err != nil {
		return model.Entity{}, false, err
	}
	if len(rows) == 0 {
		return model.Entity{}, false, nil
	}
	return rows[0].toModel(), true, nil
}

const mergeEntityQuery = `UPDATE $id SET alias_of = $canonical;`

// MergeEntity marks a duplicate entity as an alias of the canonical one.
func (s *Store) MergeEntity(ctx context.Context, duplicate, canonical ident.ID) error {
	_, err := query[entityRow](ctx, s, mergeEntityQuery, map[string]any{
		"id":        recordID(duplicate.Table(), duplicate.Key()),
		"canonical": recordID(canonical.Table(), canonical.Key()),
	})
	return err
}

const allEntitiesQuery = `SELECT * FROM entity WHERE alias_of = NONE;`

// AllEntities returns every non-alias entity, used by the recall
// orchestrator to find entities a memory candidate's content mentions by
// name, since no other operation links a memory to specific entities.
func (s *Store) AllEntities(ctx context.Context) ([]model.Entity, error) {
	rows, err := query[entityRow](ctx, s, allEntitiesQuery, nil)
	if err != nil {
		return nil, err
	}
	entities := make([]model.Entity, len(rows))
	for i, r := range rows {
		entities[i] = r.toModel()
	}
	return entities, nil
}

const searchEntitiesVectorQuery = `
SELECT *, vector::similarity::cosine(embedding, $query_vector) AS score
FROM entity
WHERE embedding != NONE AND alias_of = NONE
ORDER BY score DESC
LIMIT $limit;`

// EntityHit pairs an entity with a similarity score.
type EntityHit struct {
	Entity model.Entity
	Score  float64
}

// SearchEntitiesVector runs cosine similarity search over entity name
// embeddings, excluding merged aliases.
func (s *Store) SearchEntitiesVector(ctx context.Context, queryVector []float32, limit int) ([]EntityHit, error) {
	type row struct {
		entityRow
		Score float64 `json:"score"`
	}

	rows, err := query[row](ctx, s, searchEntitiesVectorQuery, map[string]any{
		"query_vector": queryVector,
		"limit":        limit,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]EntityHit, len(rows))
	for i, r := range rows {
		hits[i] = EntityHit{Entity: r.toModel(), Score: r.Score}
	}
	return hits, nil
}

type relationRow struct {
	ID           ident.ID   `json:"id"`
	In           ident.ID   `json:"in"`
	Out          ident.ID   `json:"out"`
	RelationType string     `json:"relation_type"`
	Weight       float64    `json:"weight"`
	ValidFrom    time.Time  `json:"valid_from"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
}

func (r relationRow) toModel() model.Relation {
	return model.Relation{
		ID:           r.ID,
		InEntity:     r.In,
		OutEntity:    r.Out,
		RelationType: r.RelationType,
		Weight:       r.Weight,
		ValidFrom:    r.ValidFrom,
		ValidUntil:   r.ValidUntil,
	}
}

const relateEntitiesQuery = `
RELATE $in->related_to->$out CONTENT {
	relation_type: $relation_type,
	weight: $weight,
	valid_from: $valid_from
};`

// RelateEntities creates a directed, typed, weighted edge between two
// entities.
func (s *Store) RelateEntities(ctx context.Context, in, out ident.ID, relationType string, weight float64) (ident.ID, error) {
	if weight == 0 {
		weight = model.DefaultRelationWeight
	}

	rows, err := query[relationRow](ctx, s, relateEntitiesQuery, map[string]any{
		"in":            recordID(in.Table(), in.Key()),
		"out":           recordID(out.Table(), out.Key()),
		"relation_type": relationType,
		"weight":        weight,
		"valid_from":    time.Now().UTC(),
	})
	if err != nil {
		return ident.ID{}, err
	}
	if len(rows) == 0 {
		return ident.ID{}, apperr.New(apperr.Database, "relation_create_no_row", "relate returned no row", nil)
	}
	return rows[0].ID, nil
}

const neighborsQuery = `
SELECT * FROM related_to
WHERE (in = $id OR out = $id)
  AND (valid_until = NONE OR valid_until > time::now());`

// Neighbors returns every currently-valid edge touching id, in either
// direction. Graph algorithms build their adjacency from this.
func (s *Store) Neighbors(ctx context.Context, id ident.ID) ([]model.Relation, error) {
	rows, err := query[relationRow](ctx, s, neighborsQuery, map[string]any{
		"id": recordID(id.Table(), id.Key()),
	})
	if err != nil {
		return nil, err
	}

	rels := make([]model.Relation, len(rows))
	for i, r := range rows {
		rels[i] = r.toModel()
	}
	return rels, nil
}

const relationsAmongQuery = `
SELECT * FROM related_to
WHERE (in IN $ids OR out IN $ids)
  AND (valid_until = NONE OR valid_until > time::now());`

// RelationsAmong returns every currently-valid edge with at least one
// endpoint in ids: the induced subgraph the hybrid recall orchestrator
// walks PPR over, seeded by its candidate pool.
func (s *Store) RelationsAmong(ctx context.Context, ids []ident.ID) ([]model.Relation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	recordIDs := make([]models.RecordID, len(ids))
	for i, id := range ids {
		recordIDs[i] = recordID(id.Table(), id.Key())
	}

	rows, err := query[relationRow](ctx, s, relationsAmongQuery, map[string]any{
		"ids": recordIDs,
	})
	if err != nil {
		return nil, err
	}

	rels := make([]model.Relation, len(rows))
	for i, r := range rows {
		rels[i] = r.toModel()
	}
	return rels, nil
}

const allRelationsQuery = `
SELECT * FROM related_to WHERE valid_until = NONE OR valid_until > time::now();`

// AllRelations returns every currently-valid edge, for whole-graph
// algorithms (PageRank, community detection).
func (s *Store) AllRelations(ctx context.Context) ([]model.Relation, error) {
	rows, err := query[relationRow](ctx, s, allRelationsQuery, nil)
	if err != nil {
		return nil, err
	}

	rels := make([]model.Relation, len(rows))
	for i, r := range rows {
		rels[i] = r.toModel()
	}
	return rels, nil
}
