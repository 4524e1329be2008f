package mcp

import (
	"time"

	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/service"
	"github.com/Aman-CERP/mdsearch/internal/store"
)

// SearchInput is the input of the search tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"the words to search for"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 20, at most 100"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of ranked results to skip"`
}

// SearchOutput is the output of the search tool.
type SearchOutput struct {
	Total   int            `json:"total" jsonschema:"number of matching documents"`
	Results []ResultOutput `json:"results" jsonschema:"ranked results for this page"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// ResultOutput is one search result.
type ResultOutput struct {
	ID      int64   `json:"id" jsonschema:"document id, usable with get_document"`
	Title   string  `json:"title"`
	Path    string  `json:"path" jsonschema:"path relative to the indexed root"`
	Snippet string  `json:"snippet" jsonschema:"excerpt with matches wrapped in <mark> tags"`
	Score   float64 `json:"score"`
}

// DocumentInput is the input of the get_document tool.
type DocumentInput struct {
	ID int64 `json:"id" jsonschema:"document id from a search result"`
}

// DocumentOutput is the output of the get_document tool.
type DocumentOutput struct {
	ID       int64  `json:"id"`
	Path     string `json:"path"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Content  string `json:"content" jsonschema:"document body without its metadata block"`
	Modified string `json:"modified"`
	Size     int64  `json:"size"`
}

// RebuildInput is the input of the rebuild tool.
type RebuildInput struct{}

// RebuildOutput is the output of the rebuild tool.
type RebuildOutput struct {
	Scanned    int    `json:"scanned"`
	Indexed    int    `json:"indexed"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Generation uint64 `json:"generation"`
	DurationMS int64  `json:"duration_ms"`
}

// IndexStatusInput is the input of the index_status tool.
type IndexStatusInput struct{}

// IndexStatusOutput is the output of the index_status tool.
type IndexStatusOutput struct {
	Root           string `json:"root,omitempty"`
	Documents      int    `json:"documents"`
	Terms          int    `json:"terms"`
	Generation     uint64 `json:"generation" jsonschema:"increments on every index change"`
	Rebuilding     bool   `json:"rebuilding"`
	RebuildPending bool   `json:"rebuild_pending"`
	QueueDepth     int    `json:"queue_depth"`
	Overflows      int64  `json:"overflows"`
	WatchMode      string `json:"watch_mode,omitempty"`
}

func toSearchOutput(resp *service.Response) SearchOutput {
	out := SearchOutput{
		Total:   resp.Total,
		Results: make([]ResultOutput, 0, len(resp.Results)),
		Limit:   resp.Limit,
		Offset:  resp.Offset,
	}
	for _, h := range resp.Results {
		out.Results = append(out.Results, ResultOutput{
			ID:      int64(h.ID),
			Title:   h.Title,
			Path:    h.Path,
			Snippet: h.Snippet,
			Score:   h.Score,
		})
	}
	return out
}

func toStatusOutput(st service.Status) IndexStatusOutput {
	return IndexStatusOutput{
		Root:           st.Root,
		Documents:      st.Documents,
		Terms:          st.Terms,
		Generation:     st.Generation,
		Rebuilding:     st.Rebuilding,
		RebuildPending: st.RebuildPending,
		QueueDepth:     st.QueueDepth,
		Overflows:      st.Overflows,
		WatchMode:      st.WatchMode,
	}
}

func toDocumentOutput(doc *store.Document) DocumentOutput {
	return DocumentOutput{
		ID:       int64(doc.ID),
		Path:     doc.Path,
		Title:    doc.Title,
		Summary:  doc.Summary,
		Content:  doc.Content,
		Modified: doc.ModTime.UTC().Format(time.RFC3339),
		Size:     doc.Size,
	}
}

func toRebuildOutput(stats *index.RebuildStats) RebuildOutput {
	return RebuildOutput{
		Scanned:    stats.Scanned,
		Indexed:    stats.Indexed,
		Skipped:    stats.Skipped,
		Failed:     stats.Failed,
		Generation: stats.Generation,
		DurationMS: stats.Duration.Milliseconds(),
	}
}
