package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/mdsearch/internal/analysis"
	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
)

// CatalogFile is the catalog database name inside the data directory.
const CatalogFile = "catalog.db"

// Store is the in-memory index with optional persistence.
type Store struct {
	writeMu    sync.Mutex
	current    atomic.Pointer[table]
	gen        atomic.Uint64
	arena      *arena
	catalog    Catalog
	rebuilding atomic.Bool
	closed     atomic.Bool
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCatalog persists writes to c.
func WithCatalog(c Catalog) Option {
	return func(s *Store) {
		s.catalog = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty store. Without WithCatalog it is memory only.
func New(opts ...Option) *Store {
	s := &Store{
		arena:  newArena(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(newTable())
	return s
}

// Open opens the SQLite catalog in dataDir and loads it.
func Open(ctx context.Context, dataDir string, opts ...Option) (*Store, error) {
	cat, err := NewSQLiteCatalog(filepath.Join(dataDir, CatalogFile))
	if err != nil {
		return nil, err
	}
	s := New(append(opts, WithCatalog(cat))...)
	if err := s.load(ctx); err != nil {
		_ = cat.Close()
		return nil, err
	}
	return s, nil
}

// load fills the table from the catalog, re-tokenizing stored content.
func (s *Store) load(ctx context.Context) error {
	snap, err := s.catalog.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	s.arena.restore(snap.Arena)
	t := newTable()
	for _, doc := range snap.Documents {
		s.arena.restore(map[string]DocID{doc.Path: doc.ID})
		t.put(doc, analysis.TokenizeFields(doc.Title, doc.Content))
	}
	t.gen = s.gen.Add(1)
	s.current.Store(t)

	s.logger.Info("store_loaded",
		slog.Int("documents", len(snap.Documents)),
		slog.Int("arena", len(snap.Arena)))
	return nil
}

// Upsert inserts or replaces the document at in.Path.
func (s *Store) Upsert(ctx context.Context, in Input) (DocID, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id, fresh := s.arena.assign(in.Path)
	doc := documentFrom(id, in)
	if s.catalog != nil {
		if err := s.catalog.Put(ctx, doc); err != nil {
			if fresh {
				s.arena.forget(in.Path)
			}
			return 0, mderrors.StoreError("failed to persist document", err).WithDetail("path", in.Path)
		}
	}

	t := s.current.Load()
	t.mu.Lock()
	t.put(doc, in.Tokens)
	t.gen = s.gen.Add(1)
	t.mu.Unlock()

	return id, nil
}

// Remove deletes the document at path. Unknown paths are a no-op.
func (s *Store) Remove(ctx context.Context, path string) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	t := s.current.Load()
	t.mu.RLock()
	id, ok := t.paths[path]
	t.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if s.catalog != nil {
		if err := s.catalog.Delete(ctx, path); err != nil {
			return false, mderrors.StoreError("failed to delete document", err).WithDetail("path", path)
		}
	}

	t.mu.Lock()
	t.del(id)
	t.gen = s.gen.Add(1)
	t.mu.Unlock()

	return true, nil
}

// Clear removes every document. Ids already assigned stay reserved.
func (s *Store) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.catalog != nil {
		if err := s.catalog.DeleteAll(ctx); err != nil {
			return mderrors.StoreError("failed to clear catalog", err)
		}
	}

	t := newTable()
	t.gen = s.gen.Add(1)
	s.current.Store(t)
	return nil
}

// Get returns the document with the given id.
func (s *Store) Get(id DocID) (*Document, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	t := s.current.Load()
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	doc := e.doc
	return &doc, nil
}

// GetByPath returns the document stored for path.
func (s *Store) GetByPath(path string) (*Document, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	t := s.current.Load()
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, ok := t.paths[path]
	if !ok {
		return nil, ErrNotFound
	}
	doc := t.docs[id].doc
	return &doc, nil
}

// Query returns the documents containing any of terms, with the statistics
// needed for scoring, read from one consistent generation.
func (s *Store) Query(terms []string) (*QueryResult, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	t := s.current.Load()
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.query(terms), nil
}

// Generation returns the generation of the published table.
func (s *Store) Generation() uint64 {
	t := s.current.Load()
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gen
}

// Stats returns counts for the published table.
func (s *Store) Stats() Stats {
	t := s.current.Load()
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Stats{
		Documents:   len(t.docs),
		Terms:       len(t.postings),
		TotalTokens: t.totalTokens,
		Generation:  t.gen,
	}
}

// Paths returns the modification time of every stored path.
func (s *Store) Paths() map[string]time.Time {
	t := s.current.Load()
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]time.Time, len(t.docs))
	for _, e := range t.docs {
		out[e.doc.Path] = e.doc.ModTime
	}
	return out
}

// Rebuilding reports whether a rebuild is staged.
func (s *Store) Rebuilding() bool {
	return s.rebuilding.Load()
}

// Close closes the catalog. It is safe to call more than once.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.catalog != nil {
		return s.catalog.Close()
	}
	return nil
}

func documentFrom(id DocID, in Input) Document {
	return Document{
		ID:      id,
		Path:    in.Path,
		Title:   in.Title,
		Summary: in.Summary,
		Content: in.Content,
		ModTime: in.ModTime,
		Size:    in.Size,
		Length:  analysis.Units(in.Tokens),
	}
}
