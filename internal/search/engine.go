package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/mdsearch/internal/analysis"
	"github.com/Aman-CERP/mdsearch/internal/highlight"
	"github.com/Aman-CERP/mdsearch/internal/store"
)

// DefaultCacheSize is the number of pages kept by the result cache.
const DefaultCacheSize = 256

type cacheKey struct {
	generation uint64
	query      string
	limit      int
	offset     int
}

// Engine answers queries against a Store. It only reads and is safe for
// concurrent use.
type Engine struct {
	store       *store.Store
	ranker      *Ranker
	highlighter *highlight.Highlighter
	cacheSize   int
	cache       *lru.Cache[cacheKey, *Page]
	observer    Observer
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRanker sets the ranker.
func WithRanker(r *Ranker) Option {
	return func(e *Engine) {
		if r != nil {
			e.ranker = r
		}
	}
}

// WithHighlighter sets the snippet highlighter.
func WithHighlighter(h *highlight.Highlighter) Option {
	return func(e *Engine) {
		if h != nil {
			e.highlighter = h
		}
	}
}

// WithCacheSize sets the result cache size. Zero or less disables caching.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine over st.
func NewEngine(st *store.Store, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("search: store is required")
	}
	e := &Engine{
		store:       st,
		ranker:      NewRanker(DefaultK1, DefaultB),
		highlighter: highlight.New(),
		cacheSize:   DefaultCacheSize,
		observer:    nopObserver{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cacheSize > 0 {
		cache, err := lru.New[cacheKey, *Page](e.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// Search ranks the documents matching q and highlights the requested page.
// Results reflect a single generation of the store.
func (e *Engine) Search(ctx context.Context, q Query) (*Page, error) {
	start := time.Now()

	page, cached, err := e.search(ctx, q)
	switch {
	case ctx.Err() != nil:
		e.observer.QueryServed(ResultCancelled, time.Since(start), 0)
		return nil, ctx.Err()
	case err != nil:
		e.observer.QueryServed(ResultError, time.Since(start), 0)
		return nil, err
	}

	result := ResultOK
	if page.Total == 0 {
		result = ResultZero
	}
	e.observer.QueryServed(result, time.Since(start), len(page.Hits))

	e.logger.Debug("search_complete",
		slog.String("query", q.Text),
		slog.Int("total", page.Total),
		slog.Int("returned", len(page.Hits)),
		slog.Bool("cached", cached),
		slog.Uint64("generation", page.Generation),
		slog.Int64("duration_us", time.Since(start).Microseconds()))
	return page, nil
}

func (e *Engine) search(ctx context.Context, q Query) (*Page, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	terms := analysis.Terms(q.Text)
	key := cacheKey{
		generation: e.store.Generation(),
		query:      analysis.CollapseSpace(q.Text),
		limit:      q.Limit,
		offset:     q.Offset,
	}
	if e.cache != nil {
		if page, ok := e.cache.Get(key); ok {
			e.observer.CacheHit()
			return page, true, nil
		}
		e.observer.CacheMiss()
	}

	if len(terms) == 0 {
		return &Page{Hits: []Hit{}, Generation: key.generation}, false, nil
	}

	res, err := e.store.Query(terms)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	scored := e.ranker.Rank(res)
	window := paginate(scored, q.Offset, q.Limit)

	page := &Page{
		Total:      len(scored),
		Hits:       make([]Hit, 0, len(window)),
		Generation: res.Generation,
	}
	for _, s := range window {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		snip := e.highlighter.Document(q.Text, s.Doc.Title, s.Doc.Content)
		page.Hits = append(page.Hits, Hit{
			ID:      s.Doc.ID,
			Title:   s.Doc.Title,
			Path:    s.Doc.Path,
			Snippet: snip.Text,
			Score:   s.Score,
			Tier:    snip.Tier,
		})
	}

	if e.cache != nil {
		key.generation = res.Generation
		e.cache.Add(key, page)
	}
	return page, false, nil
}

// Purge empties the result cache.
func (e *Engine) Purge() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

func paginate(scored []Scored, offset, limit int) []Scored {
	offset = max(offset, 0)
	if offset >= len(scored) {
		return nil
	}
	scored = scored[offset:]
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
