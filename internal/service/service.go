// Package service is the query and control surface shared by the daemon,
// the MCP server and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/search"
	"github.com/Aman-CERP/mdsearch/internal/store"
)

// Limits bound search requests.
type Limits struct {
	DefaultLimit   int
	MaxLimit       int
	MaxQueryLength int
}

// DefaultLimits returns the default request limits.
func DefaultLimits() Limits {
	return Limits{DefaultLimit: 20, MaxLimit: 100, MaxQueryLength: 500}
}

// Request is a search request.
type Request struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Response is a page of search results.
type Response struct {
	Total   int          `json:"total"`
	Results []search.Hit `json:"results"`
	Query   string       `json:"query"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// Status describes the index and the synchronization pipeline.
type Status struct {
	Root           string `json:"root,omitempty"`
	Documents      int    `json:"documents"`
	Terms          int    `json:"terms"`
	Generation     uint64 `json:"generation"`
	Rebuilding     bool   `json:"rebuilding"`
	RebuildPending bool   `json:"rebuild_pending"`
	QueueDepth     int    `json:"queue_depth"`
	Overflows      int64  `json:"overflows"`
	WatchMode      string `json:"watch_mode,omitempty"`
}

// Config contains the dependencies of a Service.
type Config struct {
	Store  *store.Store
	Engine *search.Engine
	// Synchronizer is optional; without it rebuilds are unavailable.
	Synchronizer *index.Synchronizer
	Limits       Limits
	Root         string
	// WatchMode reports the active watcher strategy. Optional.
	WatchMode func() string
	Logger    *slog.Logger
}

// Service implements the external operations.
type Service struct {
	store     *store.Store
	engine    *search.Engine
	sync      *index.Synchronizer
	limits    Limits
	root      string
	watchMode func() string
	logger    *slog.Logger
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil || cfg.Engine == nil {
		return nil, fmt.Errorf("service: store and engine are required")
	}
	def := DefaultLimits()
	if cfg.Limits.DefaultLimit <= 0 {
		cfg.Limits.DefaultLimit = def.DefaultLimit
	}
	if cfg.Limits.MaxLimit <= 0 {
		cfg.Limits.MaxLimit = def.MaxLimit
	}
	if cfg.Limits.MaxQueryLength <= 0 {
		cfg.Limits.MaxQueryLength = def.MaxQueryLength
	}
	cfg.Limits.DefaultLimit = min(cfg.Limits.DefaultLimit, cfg.Limits.MaxLimit)
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		store:     cfg.Store,
		engine:    cfg.Engine,
		sync:      cfg.Synchronizer,
		limits:    cfg.Limits,
		root:      cfg.Root,
		watchMode: cfg.WatchMode,
		logger:    cfg.Logger,
	}, nil
}

// Search validates req and returns the requested page of ranked results.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	limit, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	page, err := s.engine.Search(ctx, search.Query{Text: req.Query, Limit: limit, Offset: req.Offset})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, storeError("search failed", err)
	}

	return &Response{
		Total:   page.Total,
		Results: page.Hits,
		Query:   req.Query,
		Limit:   limit,
		Offset:  req.Offset,
	}, nil
}

// validate checks req and returns the effective limit.
func (s *Service) validate(req Request) (int, error) {
	if strings.TrimSpace(req.Query) == "" {
		return 0, mderrors.New(mderrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	if n := utf8.RuneCountInString(req.Query); n > s.limits.MaxQueryLength {
		return 0, mderrors.New(mderrors.ErrCodeQueryTooLong,
			fmt.Sprintf("query exceeds %d characters", s.limits.MaxQueryLength), nil).
			WithDetail("length", fmt.Sprint(n))
	}
	if req.Offset < 0 {
		return 0, mderrors.New(mderrors.ErrCodeInvalidPagination, "offset must not be negative", nil)
	}
	if req.Limit < 0 {
		return 0, mderrors.New(mderrors.ErrCodeInvalidPagination, "limit must not be negative", nil)
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.limits.DefaultLimit
	}
	return min(limit, s.limits.MaxLimit), nil
}

// GetDocument returns the stored fields of a document.
func (s *Service) GetDocument(ctx context.Context, id store.DocID) (*store.Document, error) {
	if id <= 0 {
		return nil, mderrors.New(mderrors.ErrCodeInvalidID, "document id must be positive", nil).
			WithDetail("id", fmt.Sprint(int64(id)))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, mderrors.NotFound(fmt.Sprintf("document %d not found", id))
		}
		return nil, storeError("failed to get document", err)
	}
	return doc, nil
}

// RenderableContent returns the normalized body of a document, without its
// metadata block.
func (s *Service) RenderableContent(ctx context.Context, id store.DocID) (string, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// TriggerFullRebuild rebuilds the index from the filesystem. Concurrent
// triggers share one rebuild, which runs to completion even if ctx is
// cancelled. Queries keep being served meanwhile.
func (s *Service) TriggerFullRebuild(ctx context.Context) (*index.RebuildStats, error) {
	if s.sync == nil {
		return nil, mderrors.StoreError("rebuild is not available", nil)
	}

	stats, err := s.sync.Rebuild(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, storeError("rebuild failed", err)
	}
	s.engine.Purge()
	return stats, nil
}

// Status reports index and pipeline state.
func (s *Service) Status() Status {
	st := s.store.Stats()
	out := Status{
		Root:       s.root,
		Documents:  st.Documents,
		Terms:      st.Terms,
		Generation: st.Generation,
		Rebuilding: s.store.Rebuilding(),
	}
	if s.sync != nil {
		out.RebuildPending = s.sync.RebuildPending()
		out.QueueDepth = s.sync.QueueDepth()
		out.Overflows = s.sync.Overflows()
	}
	if s.watchMode != nil {
		out.WatchMode = s.watchMode()
	}
	return out
}

// storeError keeps MDErrors as they are and reports anything else as the
// index being unavailable.
func storeError(msg string, err error) error {
	if _, ok := mderrors.As(err); ok {
		return err
	}
	return mderrors.StoreError(msg, err)
}
