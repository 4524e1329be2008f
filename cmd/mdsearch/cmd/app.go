package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Aman-CERP/mdsearch/internal/config"
	"github.com/Aman-CERP/mdsearch/internal/daemon"
	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/extract"
	"github.com/Aman-CERP/mdsearch/internal/highlight"
	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/metrics"
	"github.com/Aman-CERP/mdsearch/internal/scanner"
	"github.com/Aman-CERP/mdsearch/internal/search"
	"github.com/Aman-CERP/mdsearch/internal/service"
	"github.com/Aman-CERP/mdsearch/internal/store"
	"github.com/Aman-CERP/mdsearch/internal/watcher"
)

// errDataDirBusy is returned when another process holds the data directory.
var errDataDirBusy = stderrors.New("data directory is in use by another mdsearch process")

// stackOptions selects the optional parts of a stack.
type stackOptions struct {
	// lock takes the exclusive data directory lock; required for writers.
	lock bool
	// watch creates a filesystem watcher.
	watch bool
	// metrics creates the Prometheus collectors.
	metrics bool
	logger  *slog.Logger
}

// stack is the wired set of components behind every command.
type stack struct {
	cfg     *config.Config
	root    string
	dataDir string

	lock    *store.FileLock
	store   *store.Store
	scanner *scanner.Scanner
	sync    *index.Synchronizer
	engine  *search.Engine
	service *service.Service
	watcher *watcher.Hybrid
	metrics *metrics.Metrics
}

// openStack builds the components for cfg. Close must be called on the
// returned stack.
func openStack(ctx context.Context, cfg *config.Config, opts stackOptions) (_ *stack, err error) {
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}

	st := &stack{cfg: cfg}
	defer func() {
		if err != nil {
			_ = st.Close()
		}
	}()

	if st.root, err = cfg.RootDir(); err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	if info, statErr := os.Stat(st.root); statErr != nil || !info.IsDir() {
		return nil, mderrors.IOError("root is not a readable directory", statErr).
			WithDetail("root", st.root)
	}
	if st.dataDir, err = cfg.DataDir(); err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	if opts.lock {
		st.lock = store.NewFileLock(st.dataDir)
		ok, lockErr := st.lock.TryLock()
		if lockErr != nil {
			return nil, lockErr
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", errDataDirBusy, st.dataDir)
		}
	}

	if opts.metrics {
		st.metrics = metrics.New()
	}

	if st.store, err = store.Open(ctx, st.dataDir, store.WithLogger(logger)); err != nil {
		return nil, err
	}

	filter, err := scanner.NewFilter(st.root, scanner.FilterOptions{
		Extensions:  cfg.Paths.Extensions,
		Exclude:     cfg.Paths.Exclude,
		MaxFileSize: cfg.Paths.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	st.scanner = scanner.New(filter, logger)

	syncCfg := index.Config{
		Store:     st.store,
		Scanner:   st.scanner,
		Extractor: extract.New(extract.WithSummaryChars(cfg.Search.SummaryChars), extract.WithLogger(logger)),
		QueueSize: cfg.Watch.QueueSize,
		Workers:   cfg.Watch.Workers,
		Logger:    logger,
	}
	engineOpts := []search.Option{
		search.WithRanker(search.NewRanker(cfg.Search.K1, cfg.Search.B)),
		search.WithHighlighter(highlight.New(
			highlight.WithMarkers(cfg.Search.MarkOpen, cfg.Search.MarkClose),
			highlight.WithWindow(cfg.Search.SnippetTokens),
		)),
		search.WithCacheSize(cfg.Search.CacheSize),
		search.WithLogger(logger),
	}
	if st.metrics != nil {
		syncCfg.Observer = st.metrics
		engineOpts = append(engineOpts, search.WithObserver(st.metrics))
	}

	if st.sync, err = index.New(syncCfg); err != nil {
		return nil, err
	}
	if st.engine, err = search.NewEngine(st.store, engineOpts...); err != nil {
		return nil, err
	}

	svcCfg := service.Config{
		Store:        st.store,
		Engine:       st.engine,
		Synchronizer: st.sync,
		Limits: service.Limits{
			DefaultLimit:   cfg.Search.DefaultLimit,
			MaxLimit:       cfg.Search.MaxLimit,
			MaxQueryLength: cfg.Search.MaxQueryLength,
		},
		Root:   st.root,
		Logger: logger,
	}
	if opts.watch {
		st.watcher = watcher.NewHybrid(st.scanner, watcher.Options{
			DebounceWindow: cfg.DebounceWindow(),
			PollInterval:   cfg.PollInterval(),
			ForcePolling:   cfg.Watch.ForcePolling,
			Logger:         logger,
		})
		svcCfg.WatchMode = st.watcher.Mode
	}
	if st.service, err = service.New(svcCfg); err != nil {
		return nil, err
	}
	return st, nil
}

// Close stops the watcher, closes the store and releases the lock.
func (s *stack) Close() error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Stop())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.lock != nil {
		errs = append(errs, s.lock.Unlock())
	}
	return stderrors.Join(errs...)
}

// daemonConfig derives the daemon settings from cfg.
func daemonConfig(cfg *config.Config) (daemon.Config, error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return daemon.Config{}, fmt.Errorf("failed to resolve data directory: %w", err)
	}
	socket, err := cfg.SocketPath()
	if err != nil {
		return daemon.Config{}, fmt.Errorf("failed to resolve socket path: %w", err)
	}
	dcfg := daemon.DefaultConfig(dataDir)
	dcfg.SocketPath = socket
	dcfg.DebugErrors = cfg.Server.DebugErrors
	return dcfg, nil
}
