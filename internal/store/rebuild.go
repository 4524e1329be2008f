package store

import (
	"context"
	"log/slog"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
)

// Rebuild stages a complete replacement of the index. Readers keep seeing
// the published table until Commit swaps the staged one in. A Rebuild is
// not safe for concurrent use.
type Rebuild struct {
	s    *Store
	t    *table
	done bool
}

// BeginRebuild starts a rebuild from an empty table. Only one rebuild can
// be staged at a time.
func (s *Store) BeginRebuild() (*Rebuild, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if !s.rebuilding.CompareAndSwap(false, true) {
		return nil, ErrRebuildInProgress
	}
	return &Rebuild{s: s, t: newTable()}, nil
}

// Upsert adds a document to the staged table.
func (r *Rebuild) Upsert(in Input) (DocID, error) {
	if r.done {
		return 0, ErrRebuildDone
	}

	r.s.writeMu.Lock()
	id, _ := r.s.arena.assign(in.Path)
	r.s.writeMu.Unlock()

	r.t.put(documentFrom(id, in), in.Tokens)
	return id, nil
}

// Len returns the number of staged documents.
func (r *Rebuild) Len() int {
	return len(r.t.docs)
}

// Commit persists the staged documents and publishes the table.
func (r *Rebuild) Commit(ctx context.Context) error {
	if r.done {
		return ErrRebuildDone
	}
	s := r.s
	if s.closed.Load() {
		r.Abort()
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.catalog != nil {
		docs := make([]Document, 0, len(r.t.docs))
		for _, e := range r.t.docs {
			docs = append(docs, e.doc)
		}
		if err := s.catalog.ReplaceAll(ctx, docs, s.arena.snapshot()); err != nil {
			r.done = true
			s.rebuilding.Store(false)
			return mderrors.StoreError("failed to persist rebuild", err)
		}
	}

	r.t.gen = s.gen.Add(1)
	s.current.Store(r.t)
	r.done = true
	s.rebuilding.Store(false)

	s.logger.Debug("rebuild_committed",
		slog.Int("documents", len(r.t.docs)),
		slog.Uint64("generation", r.t.gen))
	return nil
}

// Abort discards the staged table. It is a no-op after Commit.
func (r *Rebuild) Abort() {
	if r.done {
		return
	}
	r.done = true
	r.s.rebuilding.Store(false)
}
