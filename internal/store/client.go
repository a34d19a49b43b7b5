// Package store is the persistence layer: an embedded SurrealDB instance
// holding typed SCHEMAFULL tables, an HNSW vector index, a BM25 full-text
// index, and graph edges, accessed exclusively through parameter-bound
// queries built from ident.ID values.
package store

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
)

// Store wraps an embedded SurrealDB connection and exposes the domain
// operations the rest of memoryd depends on.
type Store struct {
	db        *surrealdb.DB
	namespace string
	database  string
}

// Options configures Open.
type Options struct {
	// Path is the on-disk directory SurrealDB's embedded engine persists to.
	Path      string
	Namespace string
	Database  string
	// Dimension is the active embedding model's effective dimension, used to
	// parameterize the HNSW vector indexes. Zero skips index creation (tests
	// that never touch embeddings leave it unset); callers that embed
	// anything must pass the real dimension, typically computed from
	// config before the embedding model has even finished loading.
	Dimension int
}

// Open connects to (creating if absent) the embedded SurrealDB instance
// rooted at opts.Path, selects the namespace/database, and ensures the
// schema — including the HNSW vector indexes sized to opts.Dimension — is
// present.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Namespace == "" {
		opts.Namespace = "memoryd"
	}
	if opts.Database == "" {
		opts.Database = "memoryd"
	}

	endpoint := fmt.Sprintf("surrealkv://%s", opts.Path)
	db, err := surrealdb.New(endpoint)
	if err != nil {
		return nil, apperr.Wrap(apperr.Database, "store_connect_failed", err)
	}

	if err := db.Use(opts.Namespace, opts.Database); err != nil {
		return nil, apperr.Wrap(apperr.Database, "store_use_ns_failed", err)
	}

	s := &Store{db: db, namespace: opts.Namespace, database: opts.Database}

	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if opts.Dimension > 0 {
		if err := s.EnsureVectorIndexes(ctx, opts.Dimension); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return apperr.Wrap(apperr.Database, "store_close_failed", err)
	}
	return nil
}

// Ping verifies the connection is live.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := surrealdb.Query[any](s.db, "RETURN 1;", nil); err != nil {
		return apperr.Wrap(apperr.Database, "store_ping_failed", err)
	}
	return nil
}

// query runs a single parameter-bound statement and returns its decoded
// result set. Every query text passed here must be a package-level constant
// or a string built purely from static fragments — never from interpolated
// identifiers or values. Dynamic parts travel exclusively through params.
func query[T any](ctx context.Context, s *Store, q string, params map[string]any) ([]T, error) {
	res, err := surrealdb.Query[[]T](s.db, q, params)
	if err != nil {
		return nil, apperr.Wrap(apperr.Database, "store_query_failed", err)
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}
	return (*res)[0].Result, nil
}

// querySingle runs q and returns the first decoded row, or apperr.NotFound
// if the result set is empty.
func querySingle[T any](ctx context.Context, s *Store, notFoundCode string, q string, params map[string]any) (T, error) {
	var zero T
	rows, err := query[T](ctx, s, q, params)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, apperr.NotFoundf(notFoundCode, "no row returned for query")
	}
	return rows[0], nil
}

// execDDL runs a schema-definition script with no parameters and no
// decoded result.
func (s *Store) execDDL(ctx context.Context, ddl string) error {
	if _, err := surrealdb.Query[any](s.db, ddl, nil); err != nil {
		return apperr.Wrap(apperr.Database, "store_schema_failed", err)
	}
	return nil
}

// execMulti runs a multi-statement, parameter-free script with no decoded
// result, for fixed statement sequences like a full-table reset where no
// caller needs the per-statement results back.
func (s *Store) execMulti(ctx context.Context, script string) error {
	if _, err := surrealdb.Query[any](s.db, script, nil); err != nil {
		return apperr.Wrap(apperr.Database, "store_exec_failed", err)
	}
	return nil
}

// recordID builds a SurrealDB RecordID for a table/key pair, used when a
// query parameter needs to be typed as a record link rather than a string.
func recordID(table, key string) models.RecordID {
	return models.RecordID{Table: table, ID: key}
}
