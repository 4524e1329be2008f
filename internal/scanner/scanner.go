// Package scanner discovers the documents under the watched root.
package scanner

import (
	"context"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FileInfo describes one discovered document.
type FileInfo struct {
	Path    string // slash-separated, relative to the root
	AbsPath string
	Size    int64
	ModTime time.Time
}

// Scanner walks the root and yields documents accepted by its Filter.
type Scanner struct {
	filter *Filter
	logger *slog.Logger
}

// New creates a Scanner. A nil logger uses slog.Default().
func New(filter *Filter, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{filter: filter, logger: logger}
}

// Filter returns the scanner's filter.
func (s *Scanner) Filter() *Filter {
	return s.filter
}

// Scan walks the whole root. See ScanDir.
func (s *Scanner) Scan(ctx context.Context) iter.Seq2[FileInfo, error] {
	return s.ScanDir(ctx, s.filter.Root())
}

// ScanDir lazily walks dir, which must be inside the root. Each range over
// the returned sequence starts a new walk. Entries that cannot be read are
// logged and skipped. A failure to open dir itself, or cancellation of ctx,
// is yielded once as an error and ends the sequence.
func (s *Scanner) ScanDir(ctx context.Context, dir string) iter.Seq2[FileInfo, error] {
	return func(yield func(FileInfo, error) bool) {
		if _, err := os.Stat(dir); err != nil {
			yield(FileInfo{}, err)
			return
		}

		stopped := false
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				s.logger.Warn("scan_entry_skipped",
					slog.String("path", p),
					slog.String("error", err.Error()))
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			rel, relErr := s.filter.Rel(p)
			if relErr != nil {
				s.logger.Warn("scan_entry_skipped",
					slog.String("path", p),
					slog.String("error", relErr.Error()))
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if rel != "." && s.filter.SkipDir(rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type()&fs.ModeSymlink != 0 || !d.Type().IsRegular() {
				return nil
			}
			if !s.filter.Match(rel) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				s.logger.Warn("scan_entry_skipped",
					slog.String("path", rel),
					slog.String("error", err.Error()))
				return nil
			}
			if info.Size() > s.filter.MaxFileSize() {
				s.logger.Debug("scan_file_too_large",
					slog.String("path", rel),
					slog.Int64("size", info.Size()))
				return nil
			}

			if !yield(FileInfo{Path: rel, AbsPath: p, Size: info.Size(), ModTime: info.ModTime()}, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield(FileInfo{}, err)
		}
	}
}

// Stat returns the FileInfo for a single relative path if it is currently
// an indexable document.
func (s *Scanner) Stat(rel string) (FileInfo, bool, error) {
	if !s.filter.Match(rel) {
		return FileInfo{}, false, nil
	}
	abs, err := s.filter.Abs(rel)
	if err != nil {
		return FileInfo{}, false, err
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return FileInfo{}, false, err
	}
	if !info.Mode().IsRegular() || info.Size() > s.filter.MaxFileSize() {
		return FileInfo{}, false, nil
	}
	return FileInfo{Path: rel, AbsPath: abs, Size: info.Size(), ModTime: info.ModTime()}, true, nil
}
