// Package ui provides terminal UI components for rebuild progress and
// index status display.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/mdsearch/internal/index"
)

// Stage represents a rebuild stage.
type Stage int

const (
	// StageScanning walks the root for documents.
	StageScanning Stage = iota
	// StageExtracting reads and tokenizes documents.
	StageExtracting
	// StageIndexing stages documents into the new index.
	StageIndexing
	// StageComplete indicates the rebuild was published.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageScanning:
		return "Scanning"
	case StageExtracting:
		return "Extracting"
	case StageIndexing:
		return "Indexing"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short stage tag for plain text output.
func (s Stage) Icon() string {
	switch s {
	case StageScanning:
		return "SCAN"
	case StageExtracting:
		return "EXTRACT"
	case StageIndexing:
		return "INDEX"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// StageOf maps a synchronizer stage onto the display stage.
func StageOf(s index.Stage) Stage {
	switch s {
	case index.StageExtract:
		return StageExtracting
	case index.StageIndex:
		return StageIndexing
	default:
		return StageScanning
	}
}

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Stage       Stage
	Current     int
	Total       int
	CurrentFile string
	Message     string
}

// ErrorEvent represents an error during processing.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// StageTimings tracks how long each rebuild stage ran.
type StageTimings struct {
	Scan    time.Duration
	Extract time.Duration
	Index   time.Duration
}

// CompletionStats contains final rebuild statistics.
type CompletionStats struct {
	Documents  int
	Skipped    int
	Failed     int
	Generation uint64
	Duration   time.Duration
	Errors     int
	Warnings   int
	Stages     StageTimings
}

// CompletionFromRebuild converts synchronizer statistics. Skipped documents
// count as warnings and unreadable ones as errors.
func CompletionFromRebuild(rs *index.RebuildStats, stages StageTimings) CompletionStats {
	if rs == nil {
		return CompletionStats{Stages: stages}
	}
	return CompletionStats{
		Documents:  rs.Indexed,
		Skipped:    rs.Skipped,
		Failed:     rs.Failed,
		Generation: rs.Generation,
		Duration:   rs.Duration,
		Errors:     rs.Failed,
		Warnings:   rs.Skipped,
		Stages:     stages,
	}
}

// Renderer defines the interface for progress display.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress updates progress display.
	UpdateProgress(event ProgressEvent)

	// AddError adds an error to display.
	AddError(event ErrorEvent)

	// Complete marks rendering as complete with summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	// Root is the indexed directory shown in the TUI header.
	Root string
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithRoot sets the root directory displayed in the header.
func WithRoot(dir string) ConfigOption {
	return func(c *Config) {
		c.Root = dir
	}
}

// NewConfig creates a new Config with the given output and options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a plain
// text renderer for CI, pipes, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// ProgressFunc adapts a Renderer to the synchronizer's progress callback.
// Scan reports carry no total until the walk ends; they are forwarded so the
// display can show a running count.
func ProgressFunc(r Renderer) index.ProgressFunc {
	return func(p index.Progress) {
		r.UpdateProgress(ProgressEvent{
			Stage:       StageOf(p.Stage),
			Current:     p.Current,
			Total:       p.Total,
			CurrentFile: p.Path,
		})
	}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
