// Package mcp exposes the search service to AI clients as a Model Context
// Protocol server over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
)

// MCP error codes.
const (
	// ErrCodeStoreUnavailable indicates the index cannot serve the request.
	ErrCodeStoreUnavailable = -32001

	// ErrCodeTimeout indicates the request timed out or was cancelled.
	ErrCodeTimeout = -32003

	// ErrCodeNotFound indicates an unknown document.
	ErrCodeNotFound = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// MCPError is an error reported to the MCP client.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts a service error to an MCPError. Messages are sanitized
// unless debug is set.
func MapError(err error, debug bool) *MCPError {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	}

	me, ok := mderrors.As(err)
	if !ok {
		if debug {
			return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
		}
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}

	message := me.Message
	if !debug {
		message = mderrors.Sanitize(me).Message
	} else if me.Cause != nil {
		message = fmt.Sprintf("%s: %v", me.Message, me.Cause)
	}
	if me.Suggestion != "" {
		message = fmt.Sprintf("%s %s", message, me.Suggestion)
	}

	switch {
	case me.Code == mderrors.ErrCodeDocumentNotFound:
		return &MCPError{Code: ErrCodeNotFound, Message: message}
	case me.Category == mderrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case me.Category == mderrors.CategoryStore && me.Code != mderrors.ErrCodeInternal:
		return &MCPError{Code: ErrCodeStoreUnavailable, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}

// NewInvalidParamsError creates an invalid-parameters error.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}
