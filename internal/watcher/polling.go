package watcher

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// runPolling diffs periodic snapshots of the root. resync requests a full
// rescan once the baseline is taken, for changes that happened before it.
func (h *Hybrid) runPolling(ctx context.Context, resync bool) error {
	h.polling.Store(true)
	h.logger.Info("watcher_started",
		slog.String("mode", "polling"),
		slog.String("root", h.filter.Root()),
		slog.Duration("interval", h.opts.PollInterval))

	state := h.snapshot(ctx)
	h.markReady()
	if resync {
		h.requestResync("switched to polling")
	}

	ticker := time.NewTicker(h.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case <-ticker.C:
			current := h.snapshot(ctx)
			if ctx.Err() != nil {
				continue
			}
			for _, ev := range diffSnapshots(state, current) {
				h.debouncer.Add(ev)
			}
			state = current
		}
	}
}

// snapshot records the modification time and size of every document.
func (h *Hybrid) snapshot(ctx context.Context) map[string]fileSnapshot {
	state := make(map[string]fileSnapshot)
	for fi, err := range h.scanner.Scan(ctx) {
		if err != nil {
			h.emitError(err)
			break
		}
		state[fi.Path] = fileSnapshot{modTime: fi.ModTime, size: fi.Size}
	}
	return state
}

// diffSnapshots returns the events that turn prev into cur, ordered by path.
func diffSnapshots(prev, cur map[string]fileSnapshot) []Event {
	now := time.Now()
	var events []Event

	for p, snap := range cur {
		old, ok := prev[p]
		switch {
		case !ok:
			events = append(events, Event{Path: p, Kind: Created, Time: now})
		case !old.modTime.Equal(snap.modTime) || old.size != snap.size:
			events = append(events, Event{Path: p, Kind: Modified, Time: now})
		}
	}
	for p := range prev {
		if _, ok := cur[p]; !ok {
			events = append(events, Event{Path: p, Kind: Deleted, Time: now})
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}
