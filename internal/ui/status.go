package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Aman-CERP/mdsearch/internal/service"
)

// StatusInfo describes an index for the status command.
type StatusInfo struct {
	service.Status

	// Source is "daemon" when a running server answered, else "local".
	Source      string `json:"source"`
	DataDir     string `json:"data_dir,omitempty"`
	CatalogSize int64  `json:"catalog_size"`
	PID         int    `json:"pid,omitempty"`
	Uptime      string `json:"uptime,omitempty"`
	Version     string `json:"version,omitempty"`
	// LastIndexed is the catalog modification time, if known.
	LastIndexed time.Time `json:"last_indexed,omitzero"`
}

// State summarizes the rebuild state in one word.
func (s StatusInfo) State() string {
	switch {
	case s.Rebuilding:
		return "rebuilding"
	case s.RebuildPending:
		return "pending"
	default:
		return "ready"
	}
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render writes a human-readable status report.
func (r *StatusRenderer) Render(info StatusInfo) error {
	p := func(format string, args ...any) {
		_, _ = fmt.Fprintf(r.out, format, args...)
	}

	p("%s\n\n", r.styles.Header.Render("Index Status: "+info.Root))

	p("  State:       %s\n", r.renderState(info.State()))
	p("  Documents:   %d\n", info.Documents)
	p("  Terms:       %d\n", info.Terms)
	p("  Generation:  %d\n", info.Generation)
	if !info.LastIndexed.IsZero() {
		p("  Last write:  %s\n", formatTime(info.LastIndexed))
	}
	p("\n")

	p("  Watcher:\n")
	mode := info.WatchMode
	if mode == "" {
		mode = "off"
	}
	p("    Mode:      %s\n", mode)
	p("    Queue:     %d\n", info.QueueDepth)
	if info.Overflows > 0 {
		p("    Overflows: %s\n", r.styles.Warning.Render(fmt.Sprint(info.Overflows)))
	}
	p("\n")

	p("  Storage:\n")
	if info.DataDir != "" {
		p("    Data dir:  %s\n", info.DataDir)
	}
	p("    Catalog:   %s\n", FormatBytes(info.CatalogSize))

	if info.Source == "daemon" {
		p("\n  Server:      pid %d, up %s", info.PID, info.Uptime)
		if info.Version != "" {
			p(", %s", info.Version)
		}
		p("\n")
	}
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderState(state string) string {
	switch state {
	case "ready":
		return r.styles.Success.Render(state)
	case "rebuilding", "pending":
		return r.styles.Warning.Render(state)
	default:
		return state
	}
}

func formatTime(t time.Time) string {
	diff := time.Since(t)

	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
