package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/mdsearch/internal/service"
)

func sampleStatus() StatusInfo {
	return StatusInfo{
		Status: service.Status{
			Root:       "/docs",
			Documents:  42,
			Terms:      1300,
			Generation: 7,
			QueueDepth: 3,
			Overflows:  1,
			WatchMode:  "fsnotify",
		},
		Source:      "daemon",
		DataDir:     "/home/u/.mdsearch/data",
		CatalogSize: 2 * 1024 * 1024,
		PID:         1234,
		Uptime:      "5m0s",
		Version:     "1.0.0",
	}
}

func TestStatusInfo_State(t *testing.T) {
	tests := []struct {
		name   string
		status service.Status
		want   string
	}{
		{"ready", service.Status{}, "ready"},
		{"pending", service.Status{RebuildPending: true}, "pending"},
		{"rebuilding wins", service.Status{Rebuilding: true, RebuildPending: true}, "rebuilding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusInfo{Status: tt.status}.State())
		})
	}
}

func TestStatusRenderer_Render(t *testing.T) {
	// Given: status reported by a running server
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	// When: rendering
	require.NoError(t, r.Render(sampleStatus()))

	// Then: index, watcher, storage and server details appear
	out := buf.String()
	assert.Contains(t, out, "Index Status: /docs")
	assert.Contains(t, out, "State:       ready")
	assert.Contains(t, out, "Documents:   42")
	assert.Contains(t, out, "Generation:  7")
	assert.Contains(t, out, "Mode:      fsnotify")
	assert.Contains(t, out, "Overflows: 1")
	assert.Contains(t, out, "Catalog:   2.0 MB")
	assert.Contains(t, out, "pid 1234, up 5m0s, 1.0.0")
}

func TestStatusRenderer_RenderLocal(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)
	info := StatusInfo{Status: service.Status{Root: "/docs"}, Source: "local", LastIndexed: time.Now()}

	require.NoError(t, r.Render(info))

	out := buf.String()
	assert.Contains(t, out, "Mode:      off")
	assert.Contains(t, out, "Last write:  just now")
	assert.NotContains(t, out, "Overflows")
	assert.NotContains(t, out, "pid")
}

func TestStatusRenderer_RenderJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	require.NoError(t, r.RenderJSON(sampleStatus()))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "/docs", parsed["root"])
	assert.Equal(t, float64(42), parsed["documents"])
	assert.Equal(t, "daemon", parsed["source"])
	assert.Equal(t, float64(1234), parsed["pid"])
	assert.NotContains(t, parsed, "last_indexed")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.in))
		})
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		in   time.Time
		want string
	}{
		{now, "just now"},
		{now.Add(-time.Minute - time.Second), "1 minute ago"},
		{now.Add(-5 * time.Minute), "5 minutes ago"},
		{now.Add(-3 * time.Hour), "3 hours ago"},
		{now.Add(-25 * time.Hour), "1 day ago"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatTime(tt.in))
		})
	}
}
