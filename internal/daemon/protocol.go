package daemon

import (
	"encoding/json"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/service"
)

// JSON-RPC 2.0 method names.
const (
	MethodPing        = "ping"
	MethodStatus      = "status"
	MethodSearch      = "search"
	MethodGetDocument = "get_document"
	MethodRender      = "render"
	MethodRebuild     = "rebuild"
	MethodShutdown    = "shutdown"
)

// Standard JSON-RPC 2.0 error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Server-defined error codes.
const (
	ErrCodeStoreUnavailable = -32001
	ErrCodeNotFound         = -32004
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      string          `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      string          `json:"id"`
}

// Error is a JSON-RPC 2.0 error. It implements error so that clients can
// return it directly.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData carries the structured error code.
type ErrorData struct {
	Code       string `json:"code"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewSuccessResponse creates a successful response.
func NewSuccessResponse(id string, result any) Response {
	data, err := json.Marshal(result)
	if err != nil {
		return NewErrorResponse(id, &Error{Code: ErrCodeInternalError, Message: "failed to encode result"})
	}
	return Response{JSONRPC: "2.0", Result: data, ID: id}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id string, e *Error) Response {
	return Response{JSONRPC: "2.0", Error: e, ID: id}
}

// errorFor maps a service error to a JSON-RPC error. Unless debug is set the
// message is sanitized.
func errorFor(err error, debug bool) *Error {
	me, ok := mderrors.As(err)
	if !ok {
		me = mderrors.Wrap(mderrors.ErrCodeInternal, err)
	}

	out := &Error{
		Code:    rpcCode(me),
		Message: me.Message,
		Data:    &ErrorData{Code: me.Code, Suggestion: me.Suggestion},
	}
	if !debug {
		out.Message = mderrors.Sanitize(me).Message
	} else if me.Cause != nil {
		out.Message += ": " + me.Cause.Error()
	}
	return out
}

func rpcCode(me *mderrors.MDError) int {
	switch {
	case me.Code == mderrors.ErrCodeDocumentNotFound:
		return ErrCodeNotFound
	case me.Category == mderrors.CategoryValidation:
		return ErrCodeInvalidParams
	case me.Code == mderrors.ErrCodeStoreUnavailable, me.Code == mderrors.ErrCodeStoreBusy:
		return ErrCodeStoreUnavailable
	default:
		return ErrCodeInternalError
	}
}

// SearchParams are the parameters of the search method.
type SearchParams = service.Request

// DocumentParams are the parameters of get_document and render.
type DocumentParams struct {
	ID int64 `json:"id"`
}

// PingResult is the response to ping.
type PingResult struct {
	Pong bool `json:"pong"`
}

// StatusResult describes the daemon and its index.
type StatusResult struct {
	PID     int    `json:"pid"`
	Uptime  string `json:"uptime"`
	Version string `json:"version,omitempty"`
	service.Status
}

// RenderResult is the response to render.
type RenderResult struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}
