package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/mdsearch/internal/search"
	"github.com/Aman-CERP/mdsearch/internal/service"
	"github.com/Aman-CERP/mdsearch/internal/store"
)

func TestWriter_StatusLines(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{"status with icon", func(w *Writer) { w.Status("->", "checking") }, "-> checking\n"},
		{"status without icon", func(w *Writer) { w.Status("", "detail") }, "   detail\n"},
		{"success", func(w *Writer) { w.Successf("indexed %d", 3) }, "✓ indexed 3\n"},
		{"warning", func(w *Writer) { w.Warningf("queue %s", "full") }, "⚠ queue full\n"},
		{"error", func(w *Writer) { w.Errorf("failed: %v", "boom") }, "✗ failed: boom\n"},
		{"newline", func(w *Writer) { w.Newline() }, "\n"},
		{"code", func(w *Writer) { w.Code("a\nb") }, "\n  a\n  b\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			w := New(buf)

			tt.write(w)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestNew_BufferHasNoColor(t *testing.T) {
	w := New(&bytes.Buffer{})
	assert.False(t, w.useColor)
}

func TestWriter_Snippet(t *testing.T) {
	tests := []struct {
		name  string
		color bool
		in    string
		want  string
	}{
		{"plain keeps markers", false, "a <mark>b</mark> c", "a <mark>b</mark> c"},
		{"color strips markers", true, "a <mark>b</mark> c <mark>d</mark>", "a b c d"},
		{"unclosed marker", true, "x <mark>y z", "x y z"},
		{"no markers", true, "plain text", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(&bytes.Buffer{}, WithColor(tt.color))
			// The match style is replaced so the result is comparable
			// regardless of the terminal's colour profile.
			w.styles.Match = w.styles.Match.UnsetForeground().UnsetBold()

			assert.Equal(t, tt.want, w.Snippet(tt.in))
		})
	}
}

func TestWriter_SnippetCustomMarkers(t *testing.T) {
	w := New(&bytes.Buffer{}, WithColor(true), WithMarkers("[[", "]]"))
	w.styles.Match = w.styles.Match.UnsetForeground().UnsetBold()

	assert.Equal(t, "find me", w.Snippet("find [[me]]"))
}

func TestWriter_Results(t *testing.T) {
	// Given: a page of results
	buf := &bytes.Buffer{}
	w := New(buf)
	resp := &service.Response{
		Total:  3,
		Query:  "raft",
		Limit:  2,
		Offset: 1,
		Results: []search.Hit{
			{ID: 4, Title: "Consensus", Path: "notes/raft.md", Snippet: "<mark>raft</mark> log", Score: 1.25},
			{ID: 9, Path: "untitled.md", Score: 0.5},
		},
	}

	// When: printing
	w.Results(resp)

	// Then: the range, titles, paths and snippets are shown
	out := buf.String()
	assert.Contains(t, out, `2-3 of 3 results for "raft"`)
	assert.Contains(t, out, " 2. Consensus  [4] 1.250")
	assert.Contains(t, out, "    notes/raft.md")
	assert.Contains(t, out, "    <mark>raft</mark> log")
	assert.Contains(t, out, " 3. untitled.md  [9] 0.500")
}

func TestWriter_ResultsEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Results(&service.Response{Query: "nothing"})
	w.Results(nil)

	assert.Equal(t, "No results for \"nothing\"\nNo results for \"\"\n", buf.String())
}

func TestWriter_Document(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Document(&store.Document{
		ID:      2,
		Path:    "a.md",
		Title:   "Alpha",
		Content: "# Alpha\nbody",
		Size:    12,
		ModTime: time.Date(2026, 3, 4, 5, 6, 0, 0, time.UTC),
	})

	out := buf.String()
	assert.Contains(t, out, "Alpha\n")
	assert.Contains(t, out, "a.md • id 2 • 12 bytes • 2026-03-04 05:06")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("body\n")))
}

func TestWriter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	require.NoError(t, w.JSON(map[string]int{"documents": 3}))

	var parsed map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, 3, parsed["documents"])
}
