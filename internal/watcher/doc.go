// Package watcher turns filesystem notifications under the watched root into
// batches of document events.
//
// Two strategies share one pipeline:
//   - fsnotify, watching every directory recursively
//   - polling, diffing scanner snapshots by mtime and size, used when
//     fsnotify cannot be initialized or runs out of watches
//
// Raw notifications are normalized to Created, Modified and Deleted and
// filtered by the scanner's Filter. A Debouncer coalesces events per path
// and emits batches ordered by each path's latest arrival. Batches are
// never dropped: sends block until the consumer reads them. Lost kernel
// events and a switch to polling are signalled on Resync.
//
// Usage:
//
//	w := watcher.NewHybrid(scn, watcher.DefaultOptions())
//	go func() { _ = w.Start(ctx) }()
//	for batch := range w.Events() {
//	    for _, ev := range batch {
//	        // ev.Kind is Created, Modified or Deleted
//	    }
//	}
package watcher
