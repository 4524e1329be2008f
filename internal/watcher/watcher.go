package watcher

import (
	"context"
	"log/slog"
	"time"
)

// Kind is a normalized filesystem change.
type Kind int

const (
	// Created indicates a document appeared.
	Created Kind = iota
	// Modified indicates a document's content may have changed.
	Modified
	// Deleted indicates a path disappeared. When the path was a directory,
	// everything below it is gone too.
	Deleted
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case Created:
		return "CREATED"
	case Modified:
		return "MODIFIED"
	case Deleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// Event is one document change.
type Event struct {
	// Path is slash-separated and relative to the watched root.
	Path string
	Kind Kind
	// Time is when the first coalesced notification arrived.
	Time time.Time
}

// Watcher produces batches of document events.
type Watcher interface {
	// Start watches until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop releases resources and closes Events and Errors.
	// Safe to call multiple times.
	Stop() error

	// Events returns batches of coalesced events.
	Events() <-chan []Event

	// Errors returns non-fatal errors. Errors may be dropped when nobody
	// reads them.
	Errors() <-chan error

	// Resync signals that events were lost, for example on a kernel queue
	// overflow or a fallback to polling, and the index needs a full
	// rescan. Signals are never dropped.
	Resync() <-chan struct{}

	// Ready is closed once changes are being observed, and by Stop.
	Ready() <-chan struct{}

	// Mode returns "fsnotify" or "polling".
	Mode() string
}

// Options configures watcher behavior.
type Options struct {
	// DebounceWindow is the time events for one path are coalesced.
	// Default: 200ms
	DebounceWindow time.Duration

	// PollInterval is the interval for polling mode.
	// Default: 5s
	PollInterval time.Duration

	// ForcePolling skips fsnotify.
	ForcePolling bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 200 * time.Millisecond,
		PollInterval:   5 * time.Second,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
