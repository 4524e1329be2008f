// Package index keeps the Index Store in step with the filesystem. The
// Synchronizer is the store's only writer: it applies watcher events from a
// bounded queue, performs full rebuilds and reconciles the persisted catalog
// at startup.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/mdsearch/internal/extract"
	"github.com/Aman-CERP/mdsearch/internal/scanner"
	"github.com/Aman-CERP/mdsearch/internal/store"
	"github.com/Aman-CERP/mdsearch/internal/watcher"
)

// DefaultQueueSize is the event queue capacity used when none is configured.
const DefaultQueueSize = 1024

// Config contains the dependencies of a Synchronizer.
type Config struct {
	Store     *store.Store
	Scanner   *scanner.Scanner
	Extractor *extract.Extractor

	// QueueSize bounds the event queue. Default: DefaultQueueSize.
	QueueSize int

	// Workers is the extraction pool size for rebuilds. Default: NumCPU.
	Workers int

	// Observer receives metrics. Optional.
	Observer Observer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Synchronizer applies filesystem changes to the store.
type Synchronizer struct {
	store     *store.Store
	scanner   *scanner.Scanner
	filter    *scanner.Filter
	extractor *extract.Extractor
	workers   int
	observer  Observer
	logger    *slog.Logger

	queue       chan watcher.Event
	wake        chan struct{}
	needRebuild atomic.Bool
	overflows   atomic.Int64

	// mu serializes every write to the store.
	mu      sync.Mutex
	rebuild singleflight.Group
}

// New creates a Synchronizer.
func New(cfg Config) (*Synchronizer, error) {
	if cfg.Store == nil || cfg.Scanner == nil {
		return nil, fmt.Errorf("index: store and scanner are required")
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Synchronizer{
		store:     cfg.Store,
		scanner:   cfg.Scanner,
		filter:    cfg.Scanner.Filter(),
		extractor: cfg.Extractor,
		workers:   cfg.Workers,
		observer:  cfg.Observer,
		logger:    cfg.Logger,
		queue:     make(chan watcher.Event, cfg.QueueSize),
		wake:      make(chan struct{}, 1),
	}, nil
}

// Enqueue pushes an event without blocking. When the queue is full it is
// drained, a full rebuild is scheduled and false is returned.
func (s *Synchronizer) Enqueue(ev watcher.Event) bool {
	select {
	case s.queue <- ev:
		s.observer.QueueDepth(len(s.queue))
		return true
	default:
	}

	dropped := 1
drain:
	for {
		select {
		case <-s.queue:
			dropped++
		default:
			break drain
		}
	}

	s.overflows.Add(1)
	s.observer.QueueOverflow()
	s.observer.QueueDepth(0)
	s.logger.Warn("queue_overflow",
		slog.Int("dropped", dropped),
		slog.Int("capacity", cap(s.queue)))
	s.ScheduleRebuild()
	return false
}

// ScheduleRebuild asks Run to perform a full rebuild. Repeated requests
// before the rebuild starts collapse into one.
func (s *Synchronizer) ScheduleRebuild() {
	s.needRebuild.Store(true)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pump forwards the watcher's batches into the queue until the watcher's
// channels close or ctx is done. Event loss reported by the watcher
// schedules a rebuild.
func (s *Synchronizer) Pump(ctx context.Context, w watcher.Watcher) {
	events := w.Events()
	errs := w.Errors()
	resync := w.Resync()
	for events != nil || errs != nil || resync != nil {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			for _, ev := range batch {
				if !s.Enqueue(ev) {
					// The rest of the batch is covered by the rebuild.
					break
				}
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("watcher_error", slog.String("error", err.Error()))
		case _, ok := <-resync:
			if !ok {
				resync = nil
				continue
			}
			s.logger.Warn("watcher_events_lost")
			s.overflows.Add(1)
			s.observer.QueueOverflow()
			s.ScheduleRebuild()
		}
	}
}

// Serve keeps the store in sync with w until ctx is done or reconciliation
// fails. The watcher is running before the startup reconciliation scans
// the root, so changes made during it are queued rather than missed. A nil
// w only reconciles and then applies scheduled rebuilds.
func (s *Synchronizer) Serve(ctx context.Context, w watcher.Watcher, progress ProgressFunc) error {
	group, gctx := errgroup.WithContext(ctx)

	if w != nil {
		group.Go(func() error {
			if err := w.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watcher failed: %w", err)
			}
			return nil
		})
		group.Go(func() error {
			s.Pump(gctx, w)
			return nil
		})

		select {
		case <-w.Ready():
		case <-gctx.Done():
		}
	}

	group.Go(func() error {
		if _, err := s.Reconcile(gctx, progress); err != nil {
			return fmt.Errorf("failed to reconcile index: %w", err)
		}
		return s.Run(gctx)
	})
	return group.Wait()
}

// Run drains the queue and performs scheduled rebuilds until ctx is done.
func (s *Synchronizer) Run(ctx context.Context) error {
	for {
		if s.needRebuild.CompareAndSwap(true, false) {
			if _, err := s.Rebuild(ctx, nil); err != nil && ctx.Err() == nil {
				s.logger.Error("rebuild_failed", slog.String("error", err.Error()))
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case ev := <-s.queue:
			s.observer.QueueDepth(len(s.queue))
			if err := s.Apply(ctx, ev); err != nil {
				s.logger.Warn("event_failed",
					slog.String("path", ev.Path),
					slog.String("kind", ev.Kind.String()),
					slog.String("error", err.Error()))
			}
		}
	}
}

// QueueDepth returns the number of events waiting to be applied.
func (s *Synchronizer) QueueDepth() int {
	return len(s.queue)
}

// Overflows returns how many times events were lost and a rebuild scheduled.
func (s *Synchronizer) Overflows() int64 {
	return s.overflows.Load()
}

// RebuildPending reports whether a scheduled rebuild has not started yet.
func (s *Synchronizer) RebuildPending() bool {
	return s.needRebuild.Load()
}

func (s *Synchronizer) publishState() {
	st := s.store.Stats()
	s.observer.IndexState(st.Generation, st.Documents)
}
