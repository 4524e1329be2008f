package watcher

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// Debouncer coalesces events per path within a window. Pending and
// incoming kinds merge as follows:
//   - Created + Modified = Created (file is still new)
//   - Created + Deleted = nothing (file never really existed)
//   - Modified + Deleted = Deleted (file is gone)
//   - Deleted + Created = Modified (file was replaced)
//   - otherwise the incoming kind wins
//
// A batch is ordered by each path's latest arrival, so a merged event never
// overtakes a later event for another path (such as the deletion of its
// parent directory). Batches are delivered without loss: a slow consumer
// delays delivery but never drops a batch.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	seq     uint64
	timer   *time.Timer
	ready   [][]Event
	stopped bool

	wake   chan struct{}
	output chan []Event
	stopCh chan struct{}
	done   chan struct{}
}

type pendingEvent struct {
	event Event
	seq   uint64
}

// NewDebouncer creates a debouncer with the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	d := &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		wake:    make(chan struct{}, 1),
		output:  make(chan []Event),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Add queues an event, merging it with any pending event for the same path.
func (d *Debouncer) Add(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.seq++
	if existing, ok := d.pending[ev.Path]; ok {
		kind, keep := coalesce(existing.event.Kind, ev.Kind)
		if !keep {
			delete(d.pending, ev.Path)
		} else {
			existing.event.Kind = kind
			existing.seq = d.seq
		}
	} else {
		d.pending[ev.Path] = &pendingEvent{event: ev, seq: d.seq}
	}

	// The window starts at the first pending event so a steady stream of
	// changes cannot postpone delivery indefinitely.
	if d.timer == nil && len(d.pending) > 0 {
		d.timer = time.AfterFunc(d.window, d.Flush)
	}
}

// coalesce merges a pending kind with an incoming one. keep is false when
// the two cancel out.
func coalesce(pending, incoming Kind) (Kind, bool) {
	switch pending {
	case Created:
		switch incoming {
		case Modified, Created:
			return Created, true
		case Deleted:
			return 0, false
		}
	case Modified:
		switch incoming {
		case Created:
			return Modified, true
		case Deleted:
			return Deleted, true
		}
	case Deleted:
		if incoming == Created {
			return Modified, true
		}
	}
	return incoming, true
}

// Flush moves all pending events into one batch for delivery.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.stopped || len(d.pending) == 0 {
		return
	}

	items := make([]*pendingEvent, 0, len(d.pending))
	for _, pe := range d.pending {
		items = append(items, pe)
	}
	d.pending = make(map[string]*pendingEvent)
	slices.SortFunc(items, func(a, b *pendingEvent) int {
		return cmp.Compare(a.seq, b.seq)
	})

	batch := make([]Event, len(items))
	for i, pe := range items {
		batch[i] = pe.event
	}
	d.ready = append(d.ready, batch)

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of paths waiting for the window to close.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) run() {
	defer close(d.done)
	defer close(d.output)

	for {
		select {
		case <-d.stopCh:
			return
		case <-d.wake:
		}

		for {
			d.mu.Lock()
			if len(d.ready) == 0 {
				d.mu.Unlock()
				break
			}
			batch := d.ready[0]
			d.ready = d.ready[1:]
			d.mu.Unlock()

			select {
			case d.output <- batch:
			case <-d.stopCh:
				return
			}
		}
	}
}

// Output returns the channel of batches. It is closed by Stop.
func (d *Debouncer) Output() <-chan []Event {
	return d.output
}

// Stop discards pending events and closes the output channel.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	close(d.stopCh)
	d.mu.Unlock()

	<-d.done
}
