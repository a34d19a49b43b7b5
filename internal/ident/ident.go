// Package ident provides validated, store-safe record identifiers.
//
// Every identifier that crosses a query boundary into internal/store is
// constructed through this package. An ID is guaranteed to match
// `table:id` where table is `[A-Za-z0-9_]+` and id is `[A-Za-z0-9_-]+`,
// so it can always be passed to the store by parameter binding and never
// needs to be formatted into a query string.
package ident

import (
	"regexp"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
)

var (
	tablePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	idPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ID is a validated, table-qualified record identifier.
type ID struct {
	table string
	id    string
}

// New validates table and id and constructs an ID. It fails with a
// Validation error if either component contains a character outside the
// allowed alphabet.
func New(table, id string) (ID, error) {
	if table == "" || !tablePattern.MatchString(table) {
		return ID{}, apperr.Validationf("ident_invalid_table", "invalid table name %q", table)
	}
	if id == "" || !idPattern.MatchString(id) {
		return ID{}, apperr.Validationf("ident_invalid_id", "invalid identifier %q for table %q", id, table)
	}
	return ID{table: table, id: id}, nil
}

// MustNew is like New but panics on validation failure. Reserved for
// constant, compile-time-known identifiers (e.g. singleton table rows).
func MustNew(table, id string) ID {
	v, err := New(table, id)
	if err != nil {
		panic(err)
	}
	return v
}

// Table returns the identifier's table component.
func (i ID) Table() string { return i.table }

// Key returns the identifier's id component (without the table prefix).
func (i ID) Key() string { return i.id }

// String returns the canonical `table:id` form.
func (i ID) String() string {
	if i.table == "" && i.id == "" {
		return ""
	}
	return i.table + ":" + i.id
}

// IsZero reports whether this is the zero-value ID.
func (i ID) IsZero() bool {
	return i.table == "" && i.id == ""
}

// Bind returns the value that should be passed as a query parameter for
// this identifier. Returning a plain string keeps the binding explicit at
// every store call site; never concatenate ID.String() into a query.
func (i ID) Bind() string {
	return i.String()
}

// Parse splits a canonical `table:id` string back into an ID, validating
// both components. Used when the store driver returns record ids.
func Parse(s string) (ID, error) {
	for idx := 0; idx < len(s); idx++ {
		if s[idx] == ':' {
			return New(s[:idx], s[idx+1:])
		}
	}
	return ID{}, apperr.Validationf("ident_malformed", "identifier %q is not of the form table:id", s)
}
