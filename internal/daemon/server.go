package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/service"
	"github.com/Aman-CERP/mdsearch/internal/store"
)

const maxRequestSize = 1024 * 1024

// Backend is the service the daemon exposes. *service.Service implements it.
type Backend interface {
	Search(ctx context.Context, req service.Request) (*service.Response, error)
	GetDocument(ctx context.Context, id store.DocID) (*store.Document, error)
	RenderableContent(ctx context.Context, id store.DocID) (string, error)
	TriggerFullRebuild(ctx context.Context) (*index.RebuildStats, error)
	Status() service.Status
}

// Server listens on a Unix socket and dispatches requests to a Backend.
type Server struct {
	cfg     Config
	backend Backend
	logger  *slog.Logger
	version string
	started time.Time

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	shutdown bool
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the version reported by status.
func WithVersion(v string) ServerOption {
	return func(s *Server) { s.version = v }
}

// NewServer creates a Server.
func NewServer(cfg Config, backend Backend, opts ...ServerOption) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid daemon config: %w", err)
	}
	if backend == nil {
		return nil, fmt.Errorf("daemon backend is required")
	}
	s := &Server{
		cfg:     cfg,
		backend: backend,
		logger:  slog.Default(),
		conns:   make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListenAndServe serves until ctx is cancelled or a client calls shutdown.
// It refuses to start while another daemon answers on the socket.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.cfg.EnsureDir(); err != nil {
		return err
	}

	pid := NewPIDFile(s.cfg.PIDPath)
	if err := pid.Acquire(); err != nil {
		return err
	}
	defer func() { _ = pid.Remove() }()

	if conn, err := net.DialTimeout("unix", s.cfg.SocketPath, time.Second); err == nil {
		_ = conn.Close()
		return fmt.Errorf("%w: socket %s is in use", ErrAlreadyRunning, s.cfg.SocketPath)
	}
	// Nothing answers, so any socket file is stale.
	_ = os.Remove(s.cfg.SocketPath)

	listener, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.SocketPath, err)
	}
	defer func() { _ = os.Remove(s.cfg.SocketPath) }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.listener = listener
	s.stop = cancel
	s.started = time.Now()
	s.mu.Unlock()

	s.logger.Info("daemon_listening",
		slog.String("socket", s.cfg.SocketPath),
		slog.Int("pid", os.Getpid()))

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				break
			}
			s.logger.Error("daemon_accept_failed", slog.String("error", err.Error()))
			continue
		}

		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.track(conn, false)
			s.handleConnection(ctx, conn)
		}()
	}

	s.drain()
	s.logger.Info("daemon_stopped")
	return nil
}

// drain waits for open connections, closing them after the grace period.
func (s *Server) drain() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGracePeriod):
		s.mu.Lock()
		for c := range s.conns {
			_ = c.Close()
		}
		s.mu.Unlock()
		<-done
	}
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
}

// handleConnection serves newline-delimited requests until the client
// closes the connection or the deadline passes.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	if err := conn.SetDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
		s.logger.Warn("daemon_deadline_failed", slog.String("error", err.Error()))
	}

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 4096), maxRequestSize)
	enc := json.NewEncoder(conn)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp Response
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			resp = NewErrorResponse("", &Error{Code: ErrCodeParseError, Message: "failed to parse request"})
		} else {
			resp = s.handleRequest(ctx, req)
		}
		if err := enc.Encode(resp); err != nil {
			return
		}
		if req.Method == MethodShutdown && resp.Error == nil {
			return
		}
	}
}

// handleRequest dispatches a request to its method.
func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	if req.JSONRPC != "2.0" || req.Method == "" {
		return NewErrorResponse(req.ID, &Error{Code: ErrCodeInvalidRequest, Message: "invalid JSON-RPC 2.0 request"})
	}

	start := time.Now()
	var (
		result any
		err    error
	)
	switch req.Method {
	case MethodPing:
		result = PingResult{Pong: true}

	case MethodStatus:
		result = s.status()

	case MethodSearch:
		var p SearchParams
		if err = decodeParams(req.Params, &p); err == nil {
			result, err = s.backend.Search(ctx, p)
		}

	case MethodGetDocument:
		var p DocumentParams
		if err = decodeParams(req.Params, &p); err == nil {
			result, err = s.backend.GetDocument(ctx, store.DocID(p.ID))
		}

	case MethodRender:
		var p DocumentParams
		if err = decodeParams(req.Params, &p); err == nil {
			var content string
			content, err = s.backend.RenderableContent(ctx, store.DocID(p.ID))
			result = RenderResult{ID: p.ID, Content: content}
		}

	case MethodRebuild:
		result, err = s.backend.TriggerFullRebuild(ctx)

	case MethodShutdown:
		result = PingResult{Pong: true}
		s.mu.Lock()
		stop := s.stop
		s.mu.Unlock()
		if stop != nil {
			stop()
		}

	default:
		return NewErrorResponse(req.ID, &Error{
			Code:    ErrCodeMethodNotFound,
			Message: fmt.Sprintf("method not found: %s", req.Method),
		})
	}

	s.logger.Debug("daemon_request",
		slog.String("method", req.Method),
		slog.Duration("duration", time.Since(start)),
		slog.Bool("ok", err == nil))

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return NewErrorResponse(req.ID, &Error{Code: ErrCodeInternalError, Message: "request cancelled"})
		}
		if mderrors.GetCategory(err) != mderrors.CategoryValidation {
			s.logger.Warn("daemon_request_failed",
				slog.String("method", req.Method),
				slog.String("error", err.Error()))
		}
		return NewErrorResponse(req.ID, errorFor(err, s.cfg.DebugErrors))
	}
	return NewSuccessResponse(req.ID, result)
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return mderrors.New(mderrors.ErrCodeInvalidInput, "params are required", nil)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return mderrors.New(mderrors.ErrCodeInvalidInput, "invalid params", err)
	}
	return nil
}

func (s *Server) status() StatusResult {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	return StatusResult{
		PID:     os.Getpid(),
		Uptime:  time.Since(started).Round(time.Second).String(),
		Version: s.version,
		Status:  s.backend.Status(),
	}
}

// Close stops accepting connections.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	if s.stop != nil {
		s.stop()
	}
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
