package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/scanner"
	"github.com/Aman-CERP/mdsearch/internal/store"
)

// Stage names a rebuild phase.
type Stage string

const (
	StageScan    Stage = "scan"
	StageExtract Stage = "extract"
	StageIndex   Stage = "index"
)

// Progress is one progress report.
type Progress struct {
	Stage   Stage
	Current int
	Total   int
	Path    string
}

// ProgressFunc receives rebuild progress. Calls are serialized.
type ProgressFunc func(Progress)

// RebuildStats summarizes a completed rebuild.
type RebuildStats struct {
	Scanned int `json:"scanned"`
	Indexed int `json:"indexed"`
	// Skipped counts documents whose content could not be extracted.
	Skipped int `json:"skipped"`
	// Failed counts documents that could not be read.
	Failed     int           `json:"failed"`
	Generation uint64        `json:"generation"`
	Duration   time.Duration `json:"duration"`
}

type loaded struct {
	in  store.Input
	err error
}

// Rebuild re-indexes everything under the root. The new index is staged
// privately and published in one step; queries keep reading the previous
// one until then. Concurrent calls share a single rebuild, and progress is
// reported only to the caller that started it.
func (s *Synchronizer) Rebuild(ctx context.Context, progress ProgressFunc) (*RebuildStats, error) {
	v, err, shared := s.rebuild.Do("rebuild", func() (any, error) {
		return s.fullRebuild(ctx, progress)
	})
	if shared {
		s.logger.Debug("rebuild_joined")
	}
	if err != nil {
		return nil, err
	}
	stats := *v.(*RebuildStats)
	return &stats, nil
}

func (s *Synchronizer) fullRebuild(ctx context.Context, progress ProgressFunc) (*RebuildStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// This rebuild covers any request made before it started.
	s.needRebuild.Store(false)

	start := time.Now()
	report := serialize(progress)

	s.logger.Info("rebuild_started", slog.String("root", s.filter.Root()))

	files, err := s.scanAll(ctx, report)
	if err != nil {
		s.observer.RebuildFinished("error", time.Since(start))
		return nil, fmt.Errorf("failed to scan root: %w", err)
	}

	rb, err := s.store.BeginRebuild()
	if err != nil {
		s.observer.RebuildFinished("error", time.Since(start))
		return nil, mderrors.StoreError("failed to begin rebuild", err)
	}

	results, err := s.extractAll(ctx, files, report)
	if err != nil {
		rb.Abort()
		s.observer.RebuildFinished("cancelled", time.Since(start))
		return nil, err
	}

	stats := &RebuildStats{Scanned: len(files)}
	for i, r := range results {
		switch {
		case r.err == nil:
			if _, err := rb.Upsert(r.in); err != nil {
				rb.Abort()
				s.observer.RebuildFinished("error", time.Since(start))
				return nil, err
			}
			stats.Indexed++
		case mderrors.GetCategory(r.err) == mderrors.CategoryExtraction:
			stats.Skipped++
			s.observer.ExtractionFailed()
			s.logger.Warn("extraction_skipped",
				slog.String("path", files[i].Path),
				slog.String("error", r.err.Error()))
		default:
			stats.Failed++
			s.logger.Warn("document_unreadable",
				slog.String("path", files[i].Path),
				slog.String("error", r.err.Error()))
		}
		report(Progress{Stage: StageIndex, Current: i + 1, Total: len(files), Path: files[i].Path})
	}

	if err := rb.Commit(context.WithoutCancel(ctx)); err != nil {
		s.observer.RebuildFinished("error", time.Since(start))
		return nil, err
	}

	stats.Generation = s.store.Generation()
	stats.Duration = time.Since(start)
	s.observer.RebuildFinished("success", stats.Duration)
	s.publishState()

	s.logger.Info("rebuild_complete",
		slog.Int("scanned", stats.Scanned),
		slog.Int("indexed", stats.Indexed),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Uint64("generation", stats.Generation),
		slog.Int64("duration_ms", stats.Duration.Milliseconds()))
	return stats, nil
}

func (s *Synchronizer) scanAll(ctx context.Context, report ProgressFunc) ([]scanner.FileInfo, error) {
	var files []scanner.FileInfo
	for fi, err := range s.scanner.Scan(ctx) {
		if err != nil {
			return nil, err
		}
		files = append(files, fi)
		report(Progress{Stage: StageScan, Current: len(files), Path: fi.Path})
	}
	report(Progress{Stage: StageScan, Current: len(files), Total: len(files)})
	return files, nil
}

// extractAll loads files on the worker pool. Results keep scan order.
func (s *Synchronizer) extractAll(ctx context.Context, files []scanner.FileInfo, report ProgressFunc) ([]loaded, error) {
	results := make([]loaded, len(files))
	if len(files) == 0 {
		return results, nil
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for i, fi := range files {
		if ctx.Err() != nil {
			break
		}
		task := func() {
			defer wg.Done()
			in, err := s.load(fi)
			results[i] = loaded{in: in, err: err}

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			report(Progress{Stage: StageExtract, Current: n, Total: len(files), Path: fi.Path})
		}
		wg.Add(1)
		if err := pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// serialize wraps fn so that concurrent calls never overlap. A nil fn
// discards reports.
func serialize(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(Progress) {}
	}
	var mu sync.Mutex
	return func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		fn(p)
	}
}
