package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ReconcileStats summarizes a startup reconciliation.
type ReconcileStats struct {
	Added     int           `json:"added"`
	Updated   int           `json:"updated"`
	Removed   int           `json:"removed"`
	Unchanged int           `json:"unchanged"`
	Duration  time.Duration `json:"duration"`
	// Rebuilt is set when the catalog was empty and a full rebuild ran
	// instead.
	Rebuilt bool `json:"rebuilt"`
}

// Reconcile brings a store loaded from the catalog up to date with the
// filesystem: new or changed documents are indexed and vanished ones
// removed. An empty store is filled with a full rebuild.
func (s *Synchronizer) Reconcile(ctx context.Context, progress ProgressFunc) (*ReconcileStats, error) {
	indexed := s.store.Paths()
	if len(indexed) == 0 {
		rs, err := s.Rebuild(ctx, progress)
		if err != nil {
			return nil, err
		}
		return &ReconcileStats{Added: rs.Indexed, Duration: rs.Duration, Rebuilt: true}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	stats := &ReconcileStats{}
	seen := make(map[string]struct{}, len(indexed))
	writeCtx := context.WithoutCancel(ctx)

	for fi, err := range s.scanner.Scan(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to scan root: %w", err)
		}
		seen[fi.Path] = struct{}{}

		modTime, ok := indexed[fi.Path]
		if ok && modTime.Equal(fi.ModTime) {
			stats.Unchanged++
			continue
		}
		if err := s.upsertPath(writeCtx, fi.Path); err != nil {
			s.logger.Warn("reconcile_failed",
				slog.String("path", fi.Path),
				slog.String("error", err.Error()))
			continue
		}
		if ok {
			stats.Updated++
		} else {
			stats.Added++
		}
	}

	for p := range indexed {
		if _, ok := seen[p]; ok {
			continue
		}
		if err := s.removePath(writeCtx, p); err != nil {
			s.logger.Warn("reconcile_failed",
				slog.String("path", p),
				slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
	}

	stats.Duration = time.Since(start)
	s.publishState()

	s.logger.Info("reconcile_complete",
		slog.Int("added", stats.Added),
		slog.Int("updated", stats.Updated),
		slog.Int("removed", stats.Removed),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int64("duration_ms", stats.Duration.Milliseconds()))
	return stats, nil
}
