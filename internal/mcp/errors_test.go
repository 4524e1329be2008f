package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		debug    bool
		wantCode int
		wantMsg  string
	}{
		{name: "nil", err: nil},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout, wantMsg: "Request timed out."},
		{name: "cancelled", err: fmt.Errorf("search: %w", context.Canceled), wantCode: ErrCodeTimeout, wantMsg: "Request was canceled."},
		{
			name:     "validation",
			err:      mderrors.New(mderrors.ErrCodeInvalidPagination, "offset must not be negative", nil),
			wantCode: ErrCodeInvalidParams,
			wantMsg:  "offset must not be negative",
		},
		{
			name:     "not found",
			err:      mderrors.NotFound("document 4 not found"),
			wantCode: ErrCodeNotFound,
			wantMsg:  "document 4 not found",
		},
		{
			name:     "store sanitized with suggestion",
			err:      mderrors.StoreError("catalog at /var/x is locked", errors.New("busy")),
			wantCode: ErrCodeStoreUnavailable,
			wantMsg:  "index unavailable The index is temporarily unavailable. Retry shortly or run 'mdsearch rebuild'.",
		},
		{
			name:     "internal",
			err:      mderrors.New(mderrors.ErrCodeInternal, "bad state at /tmp/x", nil),
			wantCode: ErrCodeInternalError,
			wantMsg:  "internal error",
		},
		{
			name:     "plain error",
			err:      errors.New("open /secret"),
			wantCode: ErrCodeInternalError,
			wantMsg:  "Internal server error.",
		},
		{
			name:     "plain error debug",
			err:      errors.New("open /secret"),
			debug:    true,
			wantCode: ErrCodeInternalError,
			wantMsg:  "open /secret",
		},
		{
			name:     "validation debug keeps cause",
			err:      mderrors.New(mderrors.ErrCodeInvalidInput, "invalid params", errors.New("bad json")),
			debug:    true,
			wantCode: ErrCodeInvalidParams,
			wantMsg:  "invalid params: bad json",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err, tt.debug)

			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

func TestMCPError_Error(t *testing.T) {
	err := NewInvalidParamsError("id must be positive")

	assert.Equal(t, "MCP error -32602: id must be positive", err.Error())
}
