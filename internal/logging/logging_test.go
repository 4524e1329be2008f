package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: file-only logging at warn level
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: path})
	require.NoError(t, err)

	// When: logging below and at the threshold
	logger.Info("dropped")
	logger.Warn("queue_overflow", slog.Int("depth", 1024))
	cleanup()

	// Then: only the warning is in the file, as JSON
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"queue_overflow"`)
	assert.Contains(t, string(data), `"depth":1024`)
}

func TestSetup_NoOutputs(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "debug"})
	require.NoError(t, err)
	defer cleanup()

	assert.NotPanics(t, func() { logger.Info("nowhere") })
}

func TestStdioSafeConfig_NeverWritesStderr(t *testing.T) {
	cfg := StdioSafeConfig("debug")

	assert.False(t, cfg.WriteToStderr)
	assert.NotEmpty(t, cfg.FilePath)
	assert.Equal(t, "debug", cfg.Level)
}

func TestRotatingWriter_Rotates(t *testing.T) {
	// Given: a writer with a 1MB limit keeping two generations
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	chunk := bytes.Repeat([]byte("x"), 600*1024)

	// When: writing four chunks, each forcing a rotation after the first
	for range 4 {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}

	// Then: the live file plus two rotated generations exist
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(chunk)), info.Size())
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	w, err := NewRotatingWriter(path, 1, 1)
	require.NoError(t, err)
	_, err = w.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(data))
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "server.log"), 1, 1)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestViewer_TailFilters(t *testing.T) {
	path := writeLog(t,
		`{"time":"2026-01-02T03:04:05.000Z","level":"DEBUG","msg":"scan_start"}`,
		`{"time":"2026-01-02T03:04:06.000Z","level":"INFO","msg":"rebuild_complete","documents":3}`,
		`not json`,
		`{"time":"2026-01-02T03:04:07.000Z","level":"ERROR","msg":"extraction_failed","path":"a.md"}`,
	)

	tests := []struct {
		name string
		cfg  ViewerConfig
		n    int
		want []string
	}{
		{name: "all", n: 10, want: []string{"scan_start", "rebuild_complete", "", "extraction_failed"}},
		{name: "last two", n: 2, want: []string{"", "extraction_failed"}},
		{name: "level", cfg: ViewerConfig{Level: "info"}, n: 10, want: []string{"rebuild_complete", "", "extraction_failed"}},
		{name: "pattern", cfg: ViewerConfig{Pattern: regexp.MustCompile(`a\.md`)}, n: 10, want: []string{"extraction_failed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := NewViewer(tt.cfg, nil).Tail(path, tt.n)
			require.NoError(t, err)

			var got []string
			for _, e := range entries {
				got = append(got, e.Msg)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestViewer_Format(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, nil)
	e := parseLine(`{"time":"2026-01-02T03:04:05.123Z","level":"WARN","msg":"queue_overflow","b":2,"a":"x"}`)

	assert.Equal(t, "03:04:05.123 WARN  queue_overflow a=x b=2", v.Format(e))
	assert.Equal(t, "plain text", v.Format(parseLine("plain text")))
}

func TestViewer_Follow(t *testing.T) {
	if testing.Short() {
		t.Skip("polls the file")
	}

	path := writeLog(t, `{"level":"INFO","msg":"before"}`)
	v := NewViewer(ViewerConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries := make(chan Entry, 4)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, entries) }()

	// Let Follow seek to the end before appending.
	time.Sleep(50 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"level":"INFO","msg":"after"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case e := <-entries:
		assert.Equal(t, "after", e.Msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no entry followed")
	}

	cancel()
	assert.NoError(t, <-done)
}
