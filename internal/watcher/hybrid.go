package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/mdsearch/internal/scanner"
)

// Hybrid watches with fsnotify and falls back to polling when fsnotify
// cannot be initialized or a directory cannot be added.
type Hybrid struct {
	scanner   *scanner.Scanner
	filter    *scanner.Filter
	opts      Options
	logger    *slog.Logger
	debouncer *Debouncer
	errors    chan error
	resync    chan struct{}
	ready     chan struct{}
	readyOnce sync.Once
	stopCh    chan struct{}
	polling   atomic.Bool

	mu      sync.Mutex
	stopped bool
	fsw     *fsnotify.Watcher
	// watch adds one directory to fsw. Replaced in tests.
	watch func(fsw *fsnotify.Watcher, dir string) error
	// dirs holds every watched directory, by absolute path.
	dirs map[string]struct{}
}

var _ Watcher = (*Hybrid)(nil)

// NewHybrid creates a watcher over the scanner's root. Paths are filtered
// by the scanner's Filter.
func NewHybrid(scn *scanner.Scanner, opts Options) *Hybrid {
	opts = opts.WithDefaults()
	return &Hybrid{
		scanner:   scn,
		filter:    scn.Filter(),
		opts:      opts,
		logger:    opts.Logger,
		debouncer: NewDebouncer(opts.DebounceWindow),
		errors:    make(chan error, 10),
		resync:    make(chan struct{}, 1),
		ready:     make(chan struct{}),
		stopCh:    make(chan struct{}),
		watch:     (*fsnotify.Watcher).Add,
		dirs:      make(map[string]struct{}),
	}
}

// Start watches until ctx is cancelled or Stop is called.
func (h *Hybrid) Start(ctx context.Context) error {
	h.mu.Lock()
	stopped := h.stopped
	h.mu.Unlock()
	if stopped {
		return nil
	}

	if !h.opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			h.mu.Lock()
			h.fsw = fsw
			h.mu.Unlock()
			if err = h.addRecursive(h.filter.Root()); err == nil {
				return h.runFsnotify(ctx)
			}
			h.closeFsnotify()
		}
		h.logger.Warn("watcher_fallback_polling",
			slog.String("root", h.filter.Root()),
			slog.String("error", err.Error()))
	}
	return h.runPolling(ctx, false)
}

func (h *Hybrid) runFsnotify(ctx context.Context) error {
	h.logger.Info("watcher_started",
		slog.String("mode", "fsnotify"),
		slog.String("root", h.filter.Root()))
	h.markReady()

	h.mu.Lock()
	fsw := h.fsw
	h.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if err := h.handle(ctx, ev); err != nil {
				h.logger.Warn("watcher_fallback_polling",
					slog.String("root", h.filter.Root()),
					slog.String("error", err.Error()))
				h.closeFsnotify()
				// Changes made while switching have no event.
				return h.runPolling(ctx, true)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			h.handleError(err)
		}
	}
}

// handle normalizes one fsnotify event. It returns an error only when a new
// directory could not be watched.
func (h *Hybrid) handle(ctx context.Context, ev fsnotify.Event) error {
	rel, err := h.filter.Rel(ev.Name)
	if err != nil || rel == "." {
		return nil
	}

	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		if h.forgetDir(ev.Name) {
			h.add(rel, Deleted)
			return nil
		}
		if h.filter.Match(rel) {
			h.add(rel, Deleted)
		}

	case ev.Has(fsnotify.Create):
		info, err := os.Lstat(ev.Name)
		if err != nil {
			// Gone already; the Remove that follows is handled.
			return nil
		}
		if info.IsDir() {
			if h.filter.SkipDir(rel) {
				return nil
			}
			if err := h.addRecursive(ev.Name); err != nil {
				return err
			}
			// Files may have been written before the watch was in place.
			for fi, err := range h.scanner.ScanDir(ctx, ev.Name) {
				if err != nil {
					break
				}
				h.add(fi.Path, Created)
			}
			return nil
		}
		if info.Mode().IsRegular() && h.filter.Match(rel) {
			h.add(rel, Created)
		}

	case ev.Has(fsnotify.Write):
		if h.filter.Match(rel) {
			h.add(rel, Modified)
		}
	}
	return nil
}

func (h *Hybrid) add(rel string, kind Kind) {
	h.debouncer.Add(Event{Path: rel, Kind: kind, Time: time.Now()})
}

// addRecursive watches dir and every non-skipped directory below it.
func (h *Hybrid) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := h.filter.Rel(p)
		if relErr != nil {
			return filepath.SkipDir
		}
		if rel != "." && h.filter.SkipDir(rel) {
			return filepath.SkipDir
		}

		h.mu.Lock()
		defer h.mu.Unlock()
		if h.fsw == nil {
			return fmt.Errorf("watcher closed")
		}
		if err := h.watch(h.fsw, p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		h.dirs[p] = struct{}{}
		return nil
	})
}

// forgetDir drops a removed directory and its descendants from the watched
// set. It reports whether p was a watched directory.
func (h *Hybrid) forgetDir(p string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.dirs[p]; !ok {
		return false
	}
	prefix := p + string(filepath.Separator)
	for d := range h.dirs {
		if d == p || strings.HasPrefix(d, prefix) {
			delete(h.dirs, d)
		}
	}
	return true
}

func (h *Hybrid) closeFsnotify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fsw != nil {
		_ = h.fsw.Close()
		h.fsw = nil
	}
	h.dirs = make(map[string]struct{})
}

// handleError reports an fsnotify error. A queue overflow also requests a
// resync, which is delivered even when the errors channel is full.
func (h *Hybrid) handleError(err error) {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		h.requestResync(err.Error())
	}
	h.emitError(err)
}

func (h *Hybrid) emitError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	select {
	case h.errors <- err:
	default:
		h.logger.Warn("watcher_error_dropped", slog.String("error", err.Error()))
	}
}

// requestResync signals that events were lost. Requests made before the
// consumer reads the signal collapse into one, so none is ever dropped.
func (h *Hybrid) requestResync(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	h.logger.Warn("watcher_resync_requested", slog.String("reason", reason))
	select {
	case h.resync <- struct{}{}:
	default:
	}
}

func (h *Hybrid) markReady() {
	h.readyOnce.Do(func() { close(h.ready) })
}

// Stop stops the watcher and closes its channels.
func (h *Hybrid) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	close(h.stopCh)
	if h.fsw != nil {
		_ = h.fsw.Close()
		h.fsw = nil
	}
	close(h.errors)
	close(h.resync)
	h.mu.Unlock()
	h.markReady()

	h.debouncer.Stop()
	return nil
}

// Events returns batches of coalesced events.
func (h *Hybrid) Events() <-chan []Event {
	return h.debouncer.Output()
}

// Errors returns non-fatal watcher errors.
func (h *Hybrid) Errors() <-chan error {
	return h.errors
}

// Resync signals that events may have been lost.
func (h *Hybrid) Resync() <-chan struct{} {
	return h.resync
}

// Ready is closed once the root is being watched: every directory has an
// fsnotify watch, or the polling baseline has been taken. A change made
// after Ready is reported. Ready is also closed by Stop.
func (h *Hybrid) Ready() <-chan struct{} {
	return h.ready
}

// Mode returns the active strategy.
func (h *Hybrid) Mode() string {
	if h.polling.Load() {
		return "polling"
	}
	return "fsnotify"
}
