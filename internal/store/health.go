package store

import "context"

const countsQuery = `
RETURN {
	memories: count(SELECT 1 FROM memory),
	entities: count(SELECT 1 FROM entity),
	relations: count(SELECT 1 FROM related_to),
	code_chunks: count(SELECT 1 FROM code_chunk),
	symbols: count(SELECT 1 FROM symbol)
};`

// Counts summarizes table sizes, surfaced by the doctor CLI command.
type Counts struct {
	Memories   int `json:"memories"`
	Entities   int `json:"entities"`
	Relations  int `json:"relations"`
	CodeChunks int `json:"code_chunks"`
	Symbols    int `json:"symbols"`
}

// Counts reports per-table row counts for diagnostics.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	rows, err := query[Counts](ctx, s, countsQuery, nil)
	if err != nil {
		return Counts{}, err
	}
	if len(rows) == 0 {
		return Counts{}, nil
	}
	return rows[0], nil
}
