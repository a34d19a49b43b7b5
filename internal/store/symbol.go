package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
	"github.com/amanmcp-labs/memoryd/internal/ident"
	"github.com/amanmcp-labs/memoryd/internal/model"
)

type symbolRow struct {
	ID                 ident.ID `json:"id"`
	ProjectID          string   `json:"project_id"`
	FilePath           string   `json:"file_path"`
	Kind               string   `json:"kind"`
	Name               string   `json:"name"`
	FullyQualifiedName string   `json:"fully_qualified_name"`
	StartLine          int      `json:"start_line"`
	EndLine            int      `json:"end_line"`
}

func (r symbolRow) toModel() model.Symbol {
	return model.Symbol{
		ID:                 r.ID,
		ProjectID:          r.ProjectID,
		FilePath:           r.FilePath,
		Kind:               model.SymbolKind(r.Kind),
		Name:               r.Name,
		FullyQualifiedName: r.FullyQualifiedName,
		Location: model.Location{
			FilePath:  r.FilePath,
			StartLine: r.StartLine,
			EndLine:   r.EndLine,
		},
	}
}

const createSymbolQuery = `
CREATE symbol CONTENT {
	project_id: $project_id,
	file_path: $file_path,
	kind: $kind,
	name: $name,
	fully_qualified_name: $fqn,
	start_line: $start_line,
	end_line: $end_line
};`

// CreateSymbol inserts a symbol, keyed uniquely by (ProjectID, FQN).
func (s *Store) CreateSymbol(ctx context.Context, sym model.Symbol) (ident.ID, error) {
	id, err := ident.New("symbol", uuid.NewString())
	if err != nil {
		return ident.ID{}, err
	}

	rows, err := query[symbolRow](ctx, s, createSymbolQuery, map[string]any{
		"project_id": sym.ProjectID,
		"file_path":  sym.FilePath,
		"kind":       string(sym.Kind),
		"name":       sym.Name,
		"fqn":        sym.FullyQualifiedName,
		"start_line": sym.Location.StartLine,
		"end_line":   sym.Location.EndLine,
	})
	if err != nil {
		return ident.ID{}, err
	}
	if len(rows) == 0 {
		return ident.ID{}, apperr.New(apperr.Database, "symbol_create_no_row", "create returned no row", nil)
	}
	return rows[0].ID, nil
}

const findSymbolByFQNQuery = `
SELECT * FROM symbol WHERE project_id = $project_id AND fully_qualified_name = $fqn LIMIT 1;`

// FindSymbolByFQN looks up a symbol by its fully qualified name.
func (s *Store) FindSymbolByFQN(ctx context.Context, projectID, fqn string) (model.Symbol, bool, error) {
	rows, err := query[symbolRow](ctx, s, findSymbolByFQNQuery, map[string]any{
		"project_id": projectID,
		"fqn":        fqn,
	})
	if err != nil {
		return model.Symbol{}, false, err
	}
	if len(rows) == 0 {
		return model.Symbol{}, false, nil
	}
	return rows[0].toModel(), true, nil
}

const deleteSymbolsByFileQuery = `
DELETE FROM symbol WHERE project_id = $project_id AND file_path = $file_path;`

// DeleteSymbolsByFile removes every symbol defined in a file.
func (s *Store) DeleteSymbolsByFile(ctx context.Context, projectID, filePath string) error {
	_, err := query[symbolRow](ctx, s, deleteSymbolsByFileQuery, map[string]any{
		"project_id": projectID,
		"file_path":  filePath,
	})
	return err
}

const deleteSymbolsByProjectQuery = `DELETE FROM symbol WHERE project_id = $project_id;`

// DeleteSymbolsByProject removes every symbol belonging to a project.
func (s *Store) DeleteSymbolsByProject(ctx context.Context, projectID string) error {
	_, err := query[symbolRow](ctx, s, deleteSymbolsByProjectQuery, map[string]any{
		"project_id": projectID,
	})
	return err
}

type symbolRelationRow struct {
	ID     ident.ID `json:"id"`
	Source ident.ID `json:"in"`
	Target ident.ID `json:"out"`
	Kind   string   `json:"kind"`
}

func (r symbolRelationRow) toModel() model.SymbolRelation {
	return model.SymbolRelation{
		ID:     r.ID,
		Source: r.Source,
		Target: r.Target,
		Kind:   model.SymbolRelationKind(r.Kind),
	}
}

const relateSymbolsQuery = `
RELATE $source->symbol_relation->$target CONTENT { kind: $kind };`

// RelateSymbols creates a directed edge between two symbols (calls,
// imports, extends, implements, mixes_in).
func (s *Store) RelateSymbols(ctx context.Context, source, target ident.ID, kind model.SymbolRelationKind) (ident.ID, error) {
	rows, err := query[symbolRelationRow](ctx, s, relateSymbolsQuery, map[string]any{
		"source": recordID(source.Table(), source.Key()),
		"target": recordID(target.Table(), target.Key()),
		"kind":   string(kind),
	})
	if err != nil {
		return ident.ID{}, err
	}
	if len(rows) == 0 {
		return ident.ID{}, apperr.New(apperr.Database, "symbol_relation_create_no_row", "relate returned no row", nil)
	}
	return rows[0].ID, nil
}

const relatedSymbolsQuery = `
SELECT * FROM symbol_relation WHERE in = $id OR out = $id;`

// RelatedSymbols returns every symbol_relation edge touching id.
func (s *Store) RelatedSymbols(ctx context.Context, id ident.ID) ([]model.SymbolRelation, error) {
	rows, err := query[symbolRelationRow](ctx, s, relatedSymbolsQuery, map[string]any{
		"id": recordID(id.Table(), id.Key()),
	})
	if err != nil {
		return nil, err
	}

	rels := make([]model.SymbolRelation, len(rows))
	for i, r := range rows {
		rels[i] = r.toModel()
	}
	return rels, nil
}

const searchSymbolsByNameQuery = `
SELECT * FROM symbol
WHERE name ~ $name_query AND ($project_id = NONE OR project_id = $project_id)
LIMIT 50;`

// SearchSymbolsByName finds symbols whose name fuzzy-matches nameQuery,
// optionally scoped to a project, for search_symbols.
func (s *Store) SearchSymbolsByName(ctx context.Context, nameQuery, projectID string) ([]model.Symbol, error) {
	rows, err := query[symbolRow](ctx, s, searchSymbolsByNameQuery, map[string]any{
		"name_query": nameQuery,
		"project_id": nilIfEmpty(projectID),
	})
	if err != nil {
		return nil, err
	}
	symbols := make([]model.Symbol, len(rows))
	for i, r := range rows {
		symbols[i] = r.toModel()
	}
	return symbols, nil
}

const callersQuery = `
SELECT in.* AS symbol FROM symbol_relation WHERE out = $id AND kind = 'calls';`

// symbolRelSourceRow decodes the "in.* AS symbol" projection used by
// Callers/Callees: a symbol_relation row re-shaped around one endpoint.
type symbolRelSourceRow struct {
	Symbol symbolRow `json:"symbol"`
}

// Callers returns every symbol that calls id, for get_callers.
func (s *Store) Callers(ctx context.Context, id ident.ID) ([]model.Symbol, error) {
	rows, err := query[symbolRelSourceRow](ctx, s, callersQuery, map[string]any{
		"id": recordID(id.Table(), id.Key()),
	})
	if err != nil {
		return nil, err
	}
	symbols := make([]model.Symbol, len(rows))
	for i, r := range rows {
		symbols[i] = r.Symbol.toModel()
	}
	return symbols, nil
}

const calleesQuery = `
SELECT out.* AS symbol FROM symbol_relation WHERE in = $id AND kind = 'calls';`

// Callees returns every symbol id calls, for get_callees.
func (s *Store) Callees(ctx context.Context, id ident.ID) ([]model.Symbol, error) {
	rows, err := query[symbolRelSourceRow](ctx, s, calleesQuery, map[string]any{
		"id": recordID(id.Table(), id.Key()),
	})
	if err != nil {
		return nil, err
	}
	symbols := make([]model.Symbol, len(rows))
	for i, r := range rows {
		symbols[i] = r.Symbol.toModel()
	}
	return symbols, nil
}
