// Package config loads mdsearch configuration from defaults, a user config
// file, a project config file and MDSEARCH_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
)

// Project config file names, in order of precedence.
var projectFiles = []string{".mdsearch.yaml", ".mdsearch.yml"}

// Config is the complete mdsearch configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Paths   PathsConfig  `yaml:"paths" json:"paths"`
	Search  SearchConfig `yaml:"search" json:"search"`
	Watch   WatchConfig  `yaml:"watch" json:"watch"`
	Server  ServerConfig `yaml:"server" json:"server"`
}

// PathsConfig configures what is indexed and where state is kept.
type PathsConfig struct {
	// Root is the watched directory.
	Root string `yaml:"root" json:"root"`
	// DataDir holds the catalog, lock, socket and PID file.
	DataDir    string   `yaml:"data_dir" json:"data_dir"`
	Extensions []string `yaml:"extensions" json:"extensions"`
	// Exclude holds gitignore-style patterns relative to Root. Patterns
	// from every layer are combined.
	Exclude     []string `yaml:"exclude" json:"exclude"`
	MaxFileSize int64    `yaml:"max_file_size" json:"max_file_size"`
}

// SearchConfig configures ranking, pagination and snippets.
type SearchConfig struct {
	DefaultLimit   int `yaml:"default_limit" json:"default_limit"`
	MaxLimit       int `yaml:"max_limit" json:"max_limit"`
	MaxQueryLength int `yaml:"max_query_length" json:"max_query_length"`
	// SnippetTokens is the number of units kept on each side of the first
	// match.
	SnippetTokens int     `yaml:"snippet_tokens" json:"snippet_tokens"`
	SummaryChars  int     `yaml:"summary_chars" json:"summary_chars"`
	K1            float64 `yaml:"k1" json:"k1"`
	B             float64 `yaml:"b" json:"b"`
	CacheSize     int     `yaml:"cache_size" json:"cache_size"`
	MarkOpen      string  `yaml:"mark_open" json:"mark_open"`
	MarkClose     string  `yaml:"mark_close" json:"mark_close"`
}

// WatchConfig configures change notification and synchronization.
type WatchConfig struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	Debounce     string `yaml:"debounce" json:"debounce"`
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
	ForcePolling bool   `yaml:"force_polling" json:"force_polling"`
	QueueSize    int    `yaml:"queue_size" json:"queue_size"`
	Workers      int    `yaml:"workers" json:"workers"`
}

// ServerConfig configures the daemon.
type ServerConfig struct {
	// SocketPath defaults to <data_dir>/mdsearch.sock.
	SocketPath string `yaml:"socket_path" json:"socket_path"`
	// MetricsAddr enables the /metrics endpoint when set.
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	LogLevel    string `yaml:"log_level" json:"log_level"`
	// DebugErrors returns error causes to clients.
	DebugErrors bool `yaml:"debug_errors" json:"debug_errors"`
}

var defaultExcludePatterns = []string{
	"node_modules/**",
	".git/**",
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Root:        ".",
			DataDir:     filepath.Join("~", ".mdsearch", "data"),
			Extensions:  []string{".md"},
			Exclude:     slices.Clone(defaultExcludePatterns),
			MaxFileSize: 10 * 1024 * 1024,
		},
		Search: SearchConfig{
			DefaultLimit:   20,
			MaxLimit:       100,
			MaxQueryLength: 500,
			SnippetTokens:  10,
			SummaryChars:   200,
			K1:             1.2,
			B:              0.75,
			CacheSize:      256,
			MarkOpen:       "<mark>",
			MarkClose:      "</mark>",
		},
		Watch: WatchConfig{
			Enabled:      true,
			Debounce:     "200ms",
			PollInterval: "5s",
			QueueSize:    1024,
			Workers:      runtime.NumCPU(),
		},
		Server: ServerConfig{
			LogLevel: "info",
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/mdsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/mdsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mdsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "mdsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "mdsearch", "config.yaml")
}

// Load loads configuration for the project in dir. Layers apply in order
// of increasing precedence:
//  1. Defaults
//  2. User config (GetUserConfigPath)
//  3. Project config (.mdsearch.yaml or .mdsearch.yml in dir)
//  4. Environment variables (MDSEARCH_*)
//
// A relative paths.root from the project config is resolved against dir.
func Load(dir string) (*Config, error) {
	return LoadFile(dir, "")
}

// LoadFile is Load with an explicit project config file. An empty file
// falls back to the project config files in dir; a named file must exist.
func LoadFile(dir, file string) (*Config, error) {
	cfg := NewConfig()
	cfg.Paths.Root = dir

	if p := GetUserConfigPath(); fileExists(p) {
		if err := cfg.loadYAML(p); err != nil {
			return nil, err
		}
	}

	candidates := make([]string, 0, len(projectFiles))
	if file != "" {
		candidates = append(candidates, file)
	} else {
		for _, name := range projectFiles {
			if p := filepath.Join(dir, name); fileExists(p) {
				candidates = append(candidates, p)
			}
		}
	}
	if len(candidates) > 0 {
		if err := cfg.loadYAML(candidates[0]); err != nil {
			return nil, err
		}
		if !filepath.IsAbs(cfg.Paths.Root) {
			cfg.Paths.Root = filepath.Join(dir, cfg.Paths.Root)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, mderrors.ConfigError("invalid environment override", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, mderrors.ConfigError("invalid configuration", err)
	}
	return cfg, nil
}

// loadYAML overlays the keys present in the file at path. Unknown keys are
// rejected.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return mderrors.New(mderrors.ErrCodeConfigNotFound, "failed to read config file", err).
			WithDetail("path", path)
	}

	exclude := c.Paths.Exclude
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return mderrors.ConfigError("failed to parse config file", err).WithDetail("path", path)
	}

	// Exclusions accumulate across layers.
	for _, p := range exclude {
		if !slices.Contains(c.Paths.Exclude, p) {
			c.Paths.Exclude = append(c.Paths.Exclude, p)
		}
	}
	return nil
}

// applyEnvOverrides applies MDSEARCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	str := map[string]*string{
		"MDSEARCH_ROOT":         &c.Paths.Root,
		"MDSEARCH_DATA_DIR":     &c.Paths.DataDir,
		"MDSEARCH_DEBOUNCE":     &c.Watch.Debounce,
		"MDSEARCH_POLL":         &c.Watch.PollInterval,
		"MDSEARCH_SOCKET":       &c.Server.SocketPath,
		"MDSEARCH_METRICS_ADDR": &c.Server.MetricsAddr,
		"MDSEARCH_LOG_LEVEL":    &c.Server.LogLevel,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MDSEARCH_DEFAULT_LIMIT":  &c.Search.DefaultLimit,
		"MDSEARCH_MAX_LIMIT":      &c.Search.MaxLimit,
		"MDSEARCH_SNIPPET_TOKENS": &c.Search.SnippetTokens,
		"MDSEARCH_QUEUE_SIZE":     &c.Watch.QueueSize,
		"MDSEARCH_WORKERS":        &c.Watch.Workers,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s must be an integer, got %q", key, v)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"MDSEARCH_K1": &c.Search.K1,
		"MDSEARCH_B":  &c.Search.B,
	}
	for key, dst := range floats {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s must be a number, got %q", key, v)
			}
			*dst = f
		}
	}

	bools := map[string]*bool{
		"MDSEARCH_WATCH":         &c.Watch.Enabled,
		"MDSEARCH_FORCE_POLLING": &c.Watch.ForcePolling,
		"MDSEARCH_DEBUG_ERRORS":  &c.Server.DebugErrors,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s must be a boolean, got %q", key, v)
			}
			*dst = b
		}
	}
	return nil
}

// Validate checks ranges and formats.
func (c *Config) Validate() error {
	if c.Paths.Root == "" {
		return fmt.Errorf("paths.root must be set")
	}
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must be set")
	}
	if len(c.Paths.Extensions) == 0 {
		return fmt.Errorf("paths.extensions must not be empty")
	}
	for _, ext := range c.Paths.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("paths.extensions entries must start with '.', got %q", ext)
		}
	}
	if c.Paths.MaxFileSize <= 0 {
		return fmt.Errorf("paths.max_file_size must be positive, got %d", c.Paths.MaxFileSize)
	}

	s := c.Search
	if s.MaxLimit < 1 || s.MaxLimit > 1000 {
		return fmt.Errorf("search.max_limit must be between 1 and 1000, got %d", s.MaxLimit)
	}
	if s.DefaultLimit < 1 || s.DefaultLimit > s.MaxLimit {
		return fmt.Errorf("search.default_limit must be between 1 and max_limit (%d), got %d", s.MaxLimit, s.DefaultLimit)
	}
	if s.MaxQueryLength < 1 {
		return fmt.Errorf("search.max_query_length must be positive, got %d", s.MaxQueryLength)
	}
	if s.SnippetTokens < 1 || s.SnippetTokens > 100 {
		return fmt.Errorf("search.snippet_tokens must be between 1 and 100, got %d", s.SnippetTokens)
	}
	if s.SummaryChars < 1 {
		return fmt.Errorf("search.summary_chars must be positive, got %d", s.SummaryChars)
	}
	if s.K1 < 0 {
		return fmt.Errorf("search.k1 must be non-negative, got %g", s.K1)
	}
	if s.B < 0 || s.B > 1 {
		return fmt.Errorf("search.b must be between 0 and 1, got %g", s.B)
	}
	if s.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be non-negative, got %d", s.CacheSize)
	}

	if _, err := parseDuration("watch.debounce", c.Watch.Debounce); err != nil {
		return err
	}
	if _, err := parseDuration("watch.poll_interval", c.Watch.PollInterval); err != nil {
		return err
	}
	if c.Watch.QueueSize <= 0 {
		return fmt.Errorf("watch.queue_size must be positive, got %d", c.Watch.QueueSize)
	}
	if c.Watch.Workers < 0 {
		return fmt.Errorf("watch.workers must be non-negative, got %d", c.Watch.Workers)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	return nil
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

// DebounceWindow returns the parsed watch.debounce.
func (c *Config) DebounceWindow() time.Duration {
	d, _ := time.ParseDuration(c.Watch.Debounce)
	return d
}

// PollInterval returns the parsed watch.poll_interval.
func (c *Config) PollInterval() time.Duration {
	d, _ := time.ParseDuration(c.Watch.PollInterval)
	return d
}

// RootDir returns the absolute watched root.
func (c *Config) RootDir() (string, error) {
	return filepath.Abs(ExpandHome(c.Paths.Root))
}

// DataDir returns the absolute data directory.
func (c *Config) DataDir() (string, error) {
	return filepath.Abs(ExpandHome(c.Paths.DataDir))
}

// SocketPath returns the daemon socket path.
func (c *Config) SocketPath() (string, error) {
	if c.Server.SocketPath != "" {
		return filepath.Abs(ExpandHome(c.Server.SocketPath))
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mdsearch.sock"), nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") && !strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
