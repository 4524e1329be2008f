package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/service"
	"github.com/Aman-CERP/mdsearch/internal/store"
)

// Client talks to a running daemon. Each call uses its own connection.
type Client struct {
	socketPath string
	timeout    time.Duration
	requestID  atomic.Uint64
}

// NewClient creates a client for the daemon described by cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{socketPath: cfg.SocketPath, timeout: timeout}
}

// IsRunning reports whether the daemon answers ping within a second.
func (c *Client) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return c.Ping(ctx) == nil
}

// Ping checks that the daemon is responsive.
func (c *Client) Ping(ctx context.Context) error {
	var out PingResult
	return c.call(ctx, MethodPing, nil, &out)
}

// Status returns daemon and index status.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var out StatusResult
	if err := c.call(ctx, MethodStatus, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a query on the daemon.
func (c *Client) Search(ctx context.Context, req service.Request) (*service.Response, error) {
	var out service.Response
	if err := c.call(ctx, MethodSearch, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDocument fetches a stored document.
func (c *Client) GetDocument(ctx context.Context, id store.DocID) (*store.Document, error) {
	var out store.Document
	if err := c.call(ctx, MethodGetDocument, DocumentParams{ID: int64(id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenderableContent fetches a document's normalized body.
func (c *Client) RenderableContent(ctx context.Context, id store.DocID) (string, error) {
	var out RenderResult
	if err := c.call(ctx, MethodRender, DocumentParams{ID: int64(id)}, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

// TriggerFullRebuild asks the daemon to rebuild its index and waits for it.
func (c *Client) TriggerFullRebuild(ctx context.Context) (*index.RebuildStats, error) {
	var out index.RebuildStats
	if err := c.call(ctx, MethodRebuild, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Shutdown asks the daemon to stop.
func (c *Client) Shutdown(ctx context.Context) error {
	var out PingResult
	return c.call(ctx, MethodShutdown, nil, &out)
}

// call sends one request and decodes the result into out. Errors returned
// by the daemon come back as *mderrors.MDError when they carry a code, and
// as *Error otherwise.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	conn, err := d.DialContext(dialCtx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}

	// Unblock the read if ctx ends first.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	req := Request{JSONRPC: "2.0", Method: method, ID: c.nextID()}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to encode params: %w", err)
		}
		req.Params = raw
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&resp); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to receive response: %w", err)
	}

	if resp.Error != nil {
		if resp.Error.Data != nil && resp.Error.Data.Code != "" {
			return mderrors.New(resp.Error.Data.Code, resp.Error.Message, nil).
				WithSuggestion(resp.Error.Data.Suggestion)
		}
		return resp.Error
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func (c *Client) nextID() string {
	return fmt.Sprintf("req-%d", c.requestID.Add(1))
}
