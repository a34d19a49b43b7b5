package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidIdentifier(t *testing.T) {
	id, err := New("memory", "abc123_XYZ-9")
	require.NoError(t, err)
	assert.Equal(t, "memory", id.Table())
	assert.Equal(t, "abc123_XYZ-9", id.Key())
	assert.Equal(t, "memory:abc123_XYZ-9", id.String())
}

func TestNew_RejectsInvalidTable(t *testing.T) {
	tests := []string{"memory;drop", "mem ory", "mem.ory", ""}
	for _, table := range tests {
		_, err := New(table, "abc123")
		assert.Error(t, err, "table %q should be rejected", table)
	}
}

func TestNew_RejectsInvalidID(t *testing.T) {
	tests := []string{"abc 123", "abc;DROP TABLE", "abc'", "abc\"", ""}
	for _, id := range tests {
		_, err := New("memory", id)
		assert.Error(t, err, "id %q should be rejected", id)
	}
}

func TestNew_AllowsUnderscoreAndHyphenInID(t *testing.T) {
	id, err := New("memory", "a-b_c-123")
	require.NoError(t, err)
	assert.Equal(t, "a-b_c-123", id.Key())
}

func TestBind_ReturnsCanonicalForm(t *testing.T) {
	id, err := New("entity", "e1")
	require.NoError(t, err)
	assert.Equal(t, "entity:e1", id.Bind())
}

func TestParse_RoundTrips(t *testing.T) {
	id, err := New("code_chunk", "ch-1")
	require.NoError(t, err)

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParse_RejectsMalformed(t *testing.T) {
	_, err := Parse("no-colon-here")
	assert.Error(t, err)
}

func TestIsZero(t *testing.T) {
	var zero ID
	assert.True(t, zero.IsZero())
	assert.Equal(t, "", zero.String())

	id, err := New("memory", "m1")
	require.NoError(t, err)
	assert.False(t, id.IsZero())
}

func TestMustNew_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() {
		MustNew("memory", "bad id")
	})
}
