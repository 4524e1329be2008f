package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/scanner"
	"github.com/Aman-CERP/mdsearch/internal/store"
	"github.com/Aman-CERP/mdsearch/internal/watcher"
)

// Apply applies one event. The document is handled end to end even if ctx
// is cancelled part way through.
func (s *Synchronizer) Apply(ctx context.Context, ev watcher.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)

	s.logger.Debug("event_apply",
		slog.String("path", ev.Path),
		slog.String("kind", ev.Kind.String()))

	var err error
	switch ev.Kind {
	case watcher.Created, watcher.Modified:
		err = s.upsertPath(ctx, ev.Path)
	case watcher.Deleted:
		err = s.removeTree(ctx, ev.Path)
	default:
		return nil
	}
	s.publishState()
	return err
}

// upsertPath indexes rel, or removes it when it is no longer an indexable
// document.
func (s *Synchronizer) upsertPath(ctx context.Context, rel string) error {
	fi, ok, err := s.scanner.Stat(rel)
	if err != nil {
		switch mderrors.GetCode(err) {
		case mderrors.ErrCodeInvalidPath, mderrors.ErrCodeOutsideRoot:
			return err
		}
		// Gone, unreadable or replaced by something else.
		return s.removePath(ctx, rel)
	}
	if !ok {
		return s.removePath(ctx, rel)
	}

	in, err := s.load(fi)
	if err != nil {
		if mderrors.GetCategory(err) == mderrors.CategoryExtraction {
			s.observer.ExtractionFailed()
			s.logger.Warn("extraction_skipped",
				slog.String("path", rel),
				slog.String("error", err.Error()))
		}
		return s.removePath(ctx, rel)
	}

	id, err := s.store.Upsert(ctx, in)
	if err != nil {
		return err
	}
	s.observer.DocumentIndexed()
	s.logger.Debug("document_indexed",
		slog.String("path", rel),
		slog.Int64("id", int64(id)))
	return nil
}

// removeTree removes rel and, when rel was a directory, every document
// below it.
func (s *Synchronizer) removeTree(ctx context.Context, rel string) error {
	if err := s.removePath(ctx, rel); err != nil {
		return err
	}

	prefix := strings.TrimSuffix(rel, "/") + "/"
	var firstErr error
	for p := range s.store.Paths() {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		if err := s.removePath(ctx, p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Synchronizer) removePath(ctx context.Context, rel string) error {
	removed, err := s.store.Remove(ctx, rel)
	if err != nil {
		return err
	}
	if removed {
		s.observer.DocumentRemoved()
		s.logger.Debug("document_removed", slog.String("path", rel))
	}
	return nil
}

// load reads and extracts one document. I/O failures are returned as IO
// errors, undecodable content as extraction errors.
func (s *Synchronizer) load(fi scanner.FileInfo) (store.Input, error) {
	data, err := os.ReadFile(fi.AbsPath)
	if err != nil {
		code := mderrors.ErrCodeFileNotFound
		if os.IsPermission(err) {
			code = mderrors.ErrCodeFilePermission
		}
		return store.Input{}, mderrors.New(code, "failed to read document", err).WithDetail("path", fi.Path)
	}
	if int64(len(data)) > s.filter.MaxFileSize() {
		return store.Input{}, mderrors.New(mderrors.ErrCodeFileTooLarge,
			fmt.Sprintf("document exceeds %d bytes", s.filter.MaxFileSize()), nil).
			WithDetail("path", fi.Path)
	}

	res, err := s.extractor.Extract(fi.Path, data)
	if err != nil {
		return store.Input{}, err
	}

	return store.Input{
		Path:    fi.Path,
		Title:   res.Title,
		Summary: res.Summary,
		Content: res.Body,
		Tokens:  res.Tokens,
		ModTime: fi.ModTime,
		Size:    int64(len(data)),
	}, nil
}
