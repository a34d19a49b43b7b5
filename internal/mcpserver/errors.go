package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
)

// Standard JSON-RPC error codes, plus memoryd's own range starting at -32001.
const (
	errCodeNotFound          = -32001
	errCodeEmbeddingNotReady = -32002
	errCodeTimeout           = -32003
	errCodeDimensionMismatch = -32004

	errCodeInvalidParams = -32602
	errCodeInternalError = -32603
)

// MCPError is a JSON-RPC-shaped tool error.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// mapError translates a domain error into an MCPError, checking for
// memoryd's own *apperr.Error first and falling through to context
// cancellation before defaulting to an internal error.
func mapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		return mapAppError(ae)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: errCodeTimeout, Message: "request timed out"}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: errCodeTimeout, Message: "request was canceled"}
	default:
		return &MCPError{Code: errCodeInternalError, Message: "internal server error"}
	}
}

func mapAppError(ae *apperr.Error) *MCPError {
	switch ae.Kind {
	case apperr.Validation:
		return &MCPError{Code: errCodeInvalidParams, Message: ae.Message}
	case apperr.NotFound:
		return &MCPError{Code: errCodeNotFound, Message: ae.Message}
	case apperr.NotReady:
		return &MCPError{Code: errCodeEmbeddingNotReady, Message: ae.Message}
	case apperr.DimensionMismatch:
		return &MCPError{Code: errCodeDimensionMismatch, Message: ae.Message}
	default: // Database, Embedding, Indexing, Internal
		return &MCPError{Code: errCodeInternalError, Message: ae.Message}
	}
}

func invalidParams(msg string) *MCPError {
	return &MCPError{Code: errCodeInvalidParams, Message: msg}
}
