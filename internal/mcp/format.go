package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/service"
	"github.com/Aman-CERP/mdsearch/internal/store"
)

// FormatSearchResults renders a result page as markdown.
func FormatSearchResults(resp *service.Response) string {
	if resp == nil || len(resp.Results) == 0 {
		q := ""
		if resp != nil {
			q = resp.Query
		}
		return fmt.Sprintf("No results found for \"%s\"", q)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", resp.Query)
	fmt.Fprintf(&sb, "Showing %d-%d of %d result", resp.Offset+1, resp.Offset+len(resp.Results), resp.Total)
	if resp.Total != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = r.Path
		}
		fmt.Fprintf(&sb, "### %d. %s\n\n", resp.Offset+i+1, title)
		fmt.Fprintf(&sb, "**Path:** `%s` | **ID:** %d | **Score:** %.3f\n\n", r.Path, r.ID, r.Score)
		if r.Snippet != "" {
			sb.WriteString("> ")
			sb.WriteString(strings.ReplaceAll(r.Snippet, "\n", "\n> "))
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

// FormatDocument renders a stored document as markdown.
func FormatDocument(doc *store.Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", doc.Title)
	fmt.Fprintf(&sb, "**Path:** `%s` | **ID:** %d | **Modified:** %s\n\n",
		doc.Path, doc.ID, doc.ModTime.UTC().Format(time.RFC3339))
	if doc.Summary != "" {
		fmt.Fprintf(&sb, "_%s_\n\n", doc.Summary)
	}
	sb.WriteString("---\n\n")
	sb.WriteString(doc.Content)
	return sb.String()
}

// FormatStatus renders index status as markdown.
func FormatStatus(st service.Status) string {
	state := "ready"
	switch {
	case st.Rebuilding:
		state = "rebuilding"
	case st.RebuildPending:
		state = "rebuild pending"
	}

	var sb strings.Builder
	sb.WriteString("## Index Status\n\n")
	if st.Root != "" {
		fmt.Fprintf(&sb, "- **Root:** `%s`\n", st.Root)
	}
	fmt.Fprintf(&sb, "- **State:** %s\n", state)
	fmt.Fprintf(&sb, "- **Documents:** %d\n", st.Documents)
	fmt.Fprintf(&sb, "- **Terms:** %d\n", st.Terms)
	fmt.Fprintf(&sb, "- **Generation:** %d\n", st.Generation)
	if st.WatchMode != "" {
		fmt.Fprintf(&sb, "- **Watch mode:** %s\n", st.WatchMode)
	}
	fmt.Fprintf(&sb, "- **Queue depth:** %d\n", st.QueueDepth)
	if st.Overflows > 0 {
		fmt.Fprintf(&sb, "- **Queue overflows:** %d\n", st.Overflows)
	}
	return sb.String()
}

// FormatRebuild renders rebuild statistics as markdown.
func FormatRebuild(stats *index.RebuildStats) string {
	return fmt.Sprintf("## Rebuild Complete\n\n"+
		"- **Scanned:** %d\n- **Indexed:** %d\n- **Skipped:** %d\n- **Failed:** %d\n"+
		"- **Generation:** %d\n- **Duration:** %s\n",
		stats.Scanned, stats.Indexed, stats.Skipped, stats.Failed,
		stats.Generation, stats.Duration.Round(time.Millisecond))
}
