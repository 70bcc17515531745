// Package mcp exposes the index builder as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	ierrors "github.com/Aman-CERP/scribeindex/internal/errors"
)

// MCP error codes. Negative values in the -32000 range are server defined.
const (
	ErrCodeIndexNotFound  = -32001
	ErrCodeIndexCorrupt   = -32002
	ErrCodeCancelled      = -32003
	ErrCodeFileProcessing = -32004

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is a protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts an internal error to an MCPError. IndexErrors keep
// their message and suggestion.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	if ie, ok := ierrors.As(err); ok {
		return mapIndexError(ie)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeCancelled, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeCancelled, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an invalid-parameters error.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}

func mapIndexError(ie *ierrors.IndexError) *MCPError {
	message := ie.Message
	if ie.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ie.Message, ie.Suggestion)
	}

	switch ie.Code {
	case ierrors.ErrCodeIndexNotFound:
		return &MCPError{Code: ErrCodeIndexNotFound, Message: message}
	case ierrors.ErrCodeIndexCorruption:
		return &MCPError{Code: ErrCodeIndexCorrupt, Message: message}
	case ierrors.ErrCodeBuildCancelled:
		return &MCPError{Code: ErrCodeCancelled, Message: message}
	case ierrors.ErrCodeFileProcessing, ierrors.ErrCodePermissionDenied:
		return &MCPError{Code: ErrCodeFileProcessing, Message: message}
	case ierrors.ErrCodeConfigInvalid, ierrors.ErrCodeInvalidInput, ierrors.ErrCodeBuildNotFound:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
