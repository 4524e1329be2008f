package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// plainStep is how many documents pass between plain progress lines.
const plainStep = 100

// PlainRenderer outputs plain text progress (for CI/pipes).
type PlainRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	stage   Stage
	started bool
	last    int
	errors  []ErrorEvent
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer. A line is printed when a stage
// begins, when it reaches its total, and every plainStep documents between.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := !r.started || event.Stage != r.stage
	r.started = true
	r.stage = event.Stage

	finished := event.Total > 0 && event.Current >= event.Total
	if !changed && !finished && event.Current-r.last < plainStep {
		return
	}
	r.last = event.Current

	msg := event.Message
	if msg == "" {
		msg = event.CurrentFile
	}

	switch {
	case event.Total > 0:
		_, _ = fmt.Fprintf(r.out, "[%s] %d/%d - %s\n", event.Stage.Icon(), event.Current, event.Total, msg)
	case msg != "":
		_, _ = fmt.Fprintf(r.out, "[%s] %d - %s\n", event.Stage.Icon(), event.Current, msg)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.File != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "Complete: %d documents indexed in %s (generation %d)",
		stats.Documents, stats.Duration.Round(100*time.Millisecond), stats.Generation)
	if stats.Skipped > 0 || stats.Failed > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d skipped, %d unreadable)", stats.Skipped, stats.Failed)
	}
	_, _ = fmt.Fprintln(r.out)

	if st := stats.Stages; st.Scan > 0 || st.Extract > 0 || st.Index > 0 {
		_, _ = fmt.Fprintln(r.out)
		_, _ = fmt.Fprintln(r.out, "Stage Breakdown:")
		_, _ = fmt.Fprintf(r.out, "  Scan:    %s\n", st.Scan.Round(time.Millisecond))
		_, _ = fmt.Fprintf(r.out, "  Extract: %s\n", st.Extract.Round(time.Millisecond))
		_, _ = fmt.Fprintf(r.out, "  Index:   %s\n", st.Index.Round(time.Millisecond))
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

// Errors returns the errors and warnings reported so far.
func (r *PlainRenderer) Errors() []ErrorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorEvent, len(r.errors))
	copy(out, r.errors)
	return out
}

var _ Renderer = (*PlainRenderer)(nil)
