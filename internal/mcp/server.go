package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/service"
	"github.com/Aman-CERP/mdsearch/internal/store"
	"github.com/Aman-CERP/mdsearch/pkg/version"
)

// ServerName is the implementation name announced to clients.
const ServerName = "mdsearch"

// Backend is the service the MCP server exposes. *service.Service
// implements it.
type Backend interface {
	Search(ctx context.Context, req service.Request) (*service.Response, error)
	GetDocument(ctx context.Context, id store.DocID) (*store.Document, error)
	RenderableContent(ctx context.Context, id store.DocID) (string, error)
	TriggerFullRebuild(ctx context.Context) (*index.RebuildStats, error)
	Status() service.Status
}

// Server is the MCP server.
type Server struct {
	mcp     *mcp.Server
	backend Backend
	logger  *slog.Logger
	debug   bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. It must not write to stdout or stderr when
// serving over stdio.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithDebugErrors returns unsanitized error messages to clients.
func WithDebugErrors(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// NewServer creates an MCP server with the search tools and the document
// resource template registered.
func NewServer(backend Backend, opts ...Option) (*Server, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}

	s := &Server{backend: backend, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version.Version,
	}, nil)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve runs the server over stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_failed", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "search",
		Description: "Full-text search over the indexed Markdown documents. Returns documents ranked by BM25 " +
			"with a highlighted snippet for each. Use limit and offset to page through results.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_document",
		Description: "Fetch a document by the id returned from search, including its full body without metadata.",
	}, s.getDocumentHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "rebuild",
		Description: "Rebuild the index from the filesystem. Searches keep working while it runs.",
	}, s.rebuildHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report document count, index generation and synchronization state.",
	}, s.indexStatusHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 4))
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	requestID := generateRequestID()
	start := time.Now()

	resp, err := s.backend.Search(ctx, service.Request{Query: in.Query, Limit: in.Limit, Offset: in.Offset})
	if err != nil {
		s.logger.Warn("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err, s.debug)
	}

	s.logger.Info("mcp_search",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("total", resp.Total),
		slog.Int("returned", len(resp.Results)))

	return textResult(FormatSearchResults(resp)), toSearchOutput(resp), nil
}

func (s *Server) getDocumentHandler(ctx context.Context, _ *mcp.CallToolRequest, in DocumentInput) (
	*mcp.CallToolResult,
	DocumentOutput,
	error,
) {
	doc, err := s.backend.GetDocument(ctx, store.DocID(in.ID))
	if err != nil {
		return nil, DocumentOutput{}, MapError(err, s.debug)
	}
	return textResult(FormatDocument(doc)), toDocumentOutput(doc), nil
}

func (s *Server) rebuildHandler(ctx context.Context, _ *mcp.CallToolRequest, _ RebuildInput) (
	*mcp.CallToolResult,
	RebuildOutput,
	error,
) {
	stats, err := s.backend.TriggerFullRebuild(ctx)
	if err != nil {
		s.logger.Warn("mcp_rebuild_failed", slog.String("error", err.Error()))
		return nil, RebuildOutput{}, MapError(err, s.debug)
	}
	return textResult(FormatRebuild(stats)), toRebuildOutput(stats), nil
}

func (s *Server) indexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	IndexStatusOutput,
	error,
) {
	st := s.backend.Status()
	return textResult(FormatStatus(st)), toStatusOutput(st), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// generateRequestID creates a short id for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xffffffff)
	}
	return hex.EncodeToString(b)
}
