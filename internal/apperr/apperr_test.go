package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	wrapped := Wrap(Database, "store_query_failed", originalErr)

	require.NotNil(t, wrapped)
	assert.Equal(t, originalErr, errors.Unwrap(wrapped))
	assert.True(t, errors.Is(wrapped, originalErr))
}

func TestError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		code     string
		message  string
		expected string
	}{
		{"validation", Validation, "memory_content_empty", "content must not be empty", "[memory_content_empty] content must not be empty"},
		{"not found", NotFound, "memory_not_found", "memory mem:abc123 not found", "[memory_not_found] memory mem:abc123 not found"},
		{"database", Database, "store_query_failed", "query failed", "[store_query_failed] query failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.kind, tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	err1 := New(NotFound, "memory_not_found", "memory A not found", nil)
	err2 := New(NotFound, "memory_not_found", "memory B not found", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(NotFound, "memory_not_found", "memory not found", nil)
	err2 := New(NotFound, "entity_not_found", "entity not found", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestError_WithDetail_AddsContext(t *testing.T) {
	err := New(Validation, "memory_content_too_large", "content exceeds limit", nil)
	err.WithDetail("limit_bytes", "102400").WithDetail("actual_bytes", "204800")

	assert.Equal(t, "102400", err.Details["limit_bytes"])
	assert.Equal(t, "204800", err.Details["actual_bytes"])
}

func TestNew_DatabaseKindIsRetryableByDefault(t *testing.T) {
	err := New(Database, "store_query_failed", "connection reset", nil)
	assert.True(t, err.Retryable)

	vErr := New(Validation, "memory_content_empty", "content must not be empty", nil)
	assert.False(t, vErr.Retryable)
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(Internal, "x", nil))
}

func TestKindOf(t *testing.T) {
	err := New(DimensionMismatch, "embedding_dimension_mismatch", "expected 768 got 384", nil)
	assert.Equal(t, DimensionMismatch, KindOf(err))

	plain := errors.New("plain error")
	assert.Equal(t, Internal, KindOf(plain))
}

func TestIsRetryable(t *testing.T) {
	dbErr := New(Database, "store_query_failed", "timeout", nil)
	assert.True(t, IsRetryable(dbErr))

	valErr := New(Validation, "memory_content_empty", "content must not be empty", nil)
	assert.False(t, IsRetryable(valErr))

	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestValidationfAndNotFoundf(t *testing.T) {
	v := Validationf("memory_limit_exceeded", "limit %d exceeds max %d", 100, 50)
	assert.Equal(t, Validation, v.Kind)
	assert.Equal(t, "limit 100 exceeds max 50", v.Message)

	nf := NotFoundf("entity_not_found", "entity %s not found", "entity:abc")
	assert.Equal(t, NotFound, nf.Kind)
	assert.Equal(t, "entity entity:abc not found", nf.Message)
}
