package scanner

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
)

const (
	// MaxPathLength is the longest accepted relative path, in bytes.
	MaxPathLength = 1000

	// DefaultMaxFileSize is the default maximum file size (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	decisionCacheSize = 4096
)

// DefaultExtensions are indexed when none are configured.
var DefaultExtensions = []string{".md"}

// FilterOptions configures a Filter.
type FilterOptions struct {
	// Extensions lists accepted file extensions, with leading dot.
	Extensions []string
	// Exclude lists glob patterns relative to the root.
	Exclude []string
	// MaxFileSize is the largest indexed file in bytes (0 = 10MB).
	MaxFileSize int64
}

// Filter decides which paths under a root are documents. The scanner and
// the watcher share one Filter so both see the same document set.
type Filter struct {
	root     string
	exts     map[string]struct{}
	patterns []pattern
	maxSize  int64

	// decisions caches exclude results per relative path.
	decisions *lru.Cache[string, bool]
}

// NewFilter creates a Filter for root.
func NewFilter(root string, opts FilterOptions) (*Filter, error) {
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	// Resolve the root itself so events reported under a symlinked root
	// still map back inside it.
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	cache, err := lru.New[string, bool](decisionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern cache: %w", err)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	f := &Filter{
		root:      absRoot,
		exts:      make(map[string]struct{}, len(exts)),
		maxSize:   opts.MaxFileSize,
		decisions: cache,
	}
	if f.maxSize <= 0 {
		f.maxSize = DefaultMaxFileSize
	}
	for _, ext := range exts {
		f.exts[strings.ToLower(ext)] = struct{}{}
	}
	for _, glob := range opts.Exclude {
		if p, ok := compilePattern(glob); ok {
			f.patterns = append(f.patterns, p)
		}
	}
	return f, nil
}

// Root returns the absolute watched root.
func (f *Filter) Root() string {
	return f.root
}

// MaxFileSize returns the size limit in bytes.
func (f *Filter) MaxFileSize() int64 {
	return f.maxSize
}

// Rel converts an absolute path to a slash-separated path relative to the
// root. Paths outside the root and over-long paths are rejected.
func (f *Filter) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(f.root, filepath.Clean(abs))
	if err != nil {
		return "", mderrors.New(mderrors.ErrCodeOutsideRoot, "path is outside the root", err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", mderrors.New(mderrors.ErrCodeOutsideRoot, "path is outside the root", nil)
	}
	if len(rel) > MaxPathLength {
		return "", mderrors.New(mderrors.ErrCodeInvalidPath, "path is too long", nil).
			WithDetail("length", fmt.Sprint(len(rel)))
	}
	return rel, nil
}

// Abs converts a relative document path back to an absolute path. It
// rejects paths that would escape the root.
func (f *Filter) Abs(rel string) (string, error) {
	if rel == "" || len(rel) > MaxPathLength || path.IsAbs(rel) || strings.ContainsRune(rel, 0) {
		return "", mderrors.New(mderrors.ErrCodeInvalidPath, "invalid document path", nil)
	}
	clean := path.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", mderrors.New(mderrors.ErrCodeOutsideRoot, "path is outside the root", nil)
	}
	return filepath.Join(f.root, filepath.FromSlash(clean)), nil
}

// SkipDir reports whether a directory and everything below it is skipped.
func (f *Filter) SkipDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	if isHidden(path.Base(rel)) {
		return true
	}
	return f.excluded(rel)
}

// Match reports whether rel names an indexable document, judging by its
// path alone.
func (f *Filter) Match(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	if _, ok := f.exts[strings.ToLower(path.Ext(rel))]; !ok {
		return false
	}
	if dir := path.Dir(rel); dir != "." {
		for _, seg := range strings.Split(dir, "/") {
			if isHidden(seg) {
				return false
			}
		}
	}
	return !f.excluded(rel)
}

func (f *Filter) excluded(rel string) bool {
	if len(f.patterns) == 0 {
		return false
	}
	if v, ok := f.decisions.Get(rel); ok {
		return v
	}
	out := false
	for _, p := range f.patterns {
		if p.match(rel) {
			out = true
			break
		}
	}
	f.decisions.Add(rel, out)
	return out
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.' && name != ".."
}
