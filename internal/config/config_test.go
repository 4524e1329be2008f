package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
)

// isolate points the user config at an empty temp dir.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, []string{".md"}, cfg.Paths.Extensions)
	assert.Equal(t, int64(10*1024*1024), cfg.Paths.MaxFileSize)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
	assert.Equal(t, 500, cfg.Search.MaxQueryLength)
	assert.Equal(t, 10, cfg.Search.SnippetTokens)
	assert.InDelta(t, 1.2, cfg.Search.K1, 1e-9)
	assert.InDelta(t, 0.75, cfg.Search.B, 1e-9)
	assert.Equal(t, "<mark>", cfg.Search.MarkOpen)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.DebounceWindow())
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, 1024, cfg.Watch.QueueSize)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestGetUserConfigPath_XDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "mdsearch", "config.yaml"), GetUserConfigPath())
}

func TestLoad_NoFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Paths.Root)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	// Given: a user config and a project config setting the same key
	isolate(t)
	writeFile(t, GetUserConfigPath(), `
search:
  default_limit: 30
  snippet_tokens: 5
paths:
  exclude: ["drafts/**"]
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".mdsearch.yaml"), `
search:
  default_limit: 40
paths:
  exclude: ["archive/**"]
`)

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: the project wins, untouched user keys survive, exclusions merge
	assert.Equal(t, 40, cfg.Search.DefaultLimit)
	assert.Equal(t, 5, cfg.Search.SnippetTokens)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
	assert.Contains(t, cfg.Paths.Exclude, "archive/**")
	assert.Contains(t, cfg.Paths.Exclude, "drafts/**")
	assert.Contains(t, cfg.Paths.Exclude, "node_modules/**")
}

func TestLoad_YMLExtension(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".mdsearch.yml"), "watch:\n  enabled: false\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.False(t, cfg.Watch.Enabled)
}

func TestLoad_RelativeRootResolvedAgainstProject(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".mdsearch.yaml"), "paths:\n  root: docs\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "docs"), cfg.Paths.Root)
}

func TestLoadFile_ExplicitFileWins(t *testing.T) {
	// Given: a project config and a separate explicit file
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".mdsearch.yaml"), "search:\n  default_limit: 40\n")
	explicit := filepath.Join(t.TempDir(), "alt.yaml")
	writeFile(t, explicit, "search:\n  default_limit: 7\n")

	// When: loading with the explicit file
	cfg, err := LoadFile(dir, explicit)

	// Then: only the explicit file is applied
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.DefaultLimit)
}

func TestLoadFile_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := LoadFile(t.TempDir(), filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Equal(t, mderrors.ErrCodeConfigNotFound, mderrors.GetCode(err))
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".mdsearch.yaml"), "server:\n  log_level: warn\n")
	t.Setenv("MDSEARCH_LOG_LEVEL", "debug")
	t.Setenv("MDSEARCH_QUEUE_SIZE", "64")
	t.Setenv("MDSEARCH_B", "0.5")
	t.Setenv("MDSEARCH_FORCE_POLLING", "true")
	t.Setenv("MDSEARCH_DEBOUNCE", "1s")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 64, cfg.Watch.QueueSize)
	assert.InDelta(t, 0.5, cfg.Search.B, 1e-9)
	assert.True(t, cfg.Watch.ForcePolling)
	assert.Equal(t, time.Second, cfg.DebounceWindow())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{name: "unknown key", file: "search:\n  limt: 3\n", wantErr: "failed to parse config file"},
		{name: "malformed yaml", file: "search: [\n", wantErr: "failed to parse config file"},
		{name: "invalid value", file: "search:\n  b: 2\n", wantErr: "invalid configuration"},
		{name: "bad env int", env: map[string]string{"MDSEARCH_WORKERS": "many"}, wantErr: "invalid environment override"},
		{name: "bad env bool", env: map[string]string{"MDSEARCH_WATCH": "sometimes"}, wantErr: "invalid environment override"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			dir := t.TempDir()
			if tt.file != "" {
				writeFile(t, filepath.Join(dir, ".mdsearch.yaml"), tt.file)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(dir)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, mderrors.CategoryConfig, mderrors.GetCategory(err))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty extensions", mutate: func(c *Config) { c.Paths.Extensions = nil }, wantErr: "paths.extensions"},
		{name: "extension without dot", mutate: func(c *Config) { c.Paths.Extensions = []string{"md"} }, wantErr: "start with '.'"},
		{name: "zero file size", mutate: func(c *Config) { c.Paths.MaxFileSize = 0 }, wantErr: "paths.max_file_size"},
		{name: "default above max", mutate: func(c *Config) { c.Search.DefaultLimit = 200 }, wantErr: "search.default_limit"},
		{name: "max limit zero", mutate: func(c *Config) { c.Search.MaxLimit = 0 }, wantErr: "search.max_limit"},
		{name: "negative k1", mutate: func(c *Config) { c.Search.K1 = -1 }, wantErr: "search.k1"},
		{name: "b above one", mutate: func(c *Config) { c.Search.B = 1.5 }, wantErr: "search.b"},
		{name: "bad debounce", mutate: func(c *Config) { c.Watch.Debounce = "soon" }, wantErr: "watch.debounce"},
		{name: "negative poll", mutate: func(c *Config) { c.Watch.PollInterval = "-1s" }, wantErr: "watch.poll_interval"},
		{name: "zero queue", mutate: func(c *Config) { c.Watch.QueueSize = 0 }, wantErr: "watch.queue_size"},
		{name: "bad log level", mutate: func(c *Config) { c.Server.LogLevel = "verbose" }, wantErr: "server.log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Search.DefaultLimit = 7
	cfg.Server.MetricsAddr = "127.0.0.1:9100"

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".mdsearch.yaml")))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Search.DefaultLimit)
	assert.Equal(t, "127.0.0.1:9100", loaded.Server.MetricsAddr)
}

func TestSocketPath(t *testing.T) {
	cfg := NewConfig()
	cfg.Paths.DataDir = "/var/lib/mdsearch"

	p, err := cfg.SocketPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var/lib/mdsearch", "mdsearch.sock"), p)

	cfg.Server.SocketPath = "/tmp/custom.sock"
	p, err = cfg.SocketPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.sock", p)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".mdsearch"), ExpandHome("~/.mdsearch"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}
