// Package daemon serves the search service to local clients over a Unix
// socket, speaking newline-delimited JSON-RPC 2.0. The CLI uses the Client
// to query a running `mdsearch serve` instead of loading the index itself.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds configuration for the daemon.
type Config struct {
	// SocketPath is the Unix domain socket. Default: <data_dir>/mdsearch.sock
	SocketPath string

	// PIDPath holds the daemon's process ID. Default: <data_dir>/mdsearch.pid
	PIDPath string

	// Timeout bounds one client connection. Default: 30s
	Timeout time.Duration

	// ShutdownGracePeriod is how long in-flight connections get on shutdown.
	// Default: 10s
	ShutdownGracePeriod time.Duration

	// DebugErrors returns unsanitized error messages to clients.
	DebugErrors bool
}

// DefaultConfig returns the defaults for a data directory.
func DefaultConfig(dataDir string) Config {
	return Config{
		SocketPath:          filepath.Join(dataDir, "mdsearch.sock"),
		PIDPath:             filepath.Join(dataDir, "mdsearch.pid"),
		Timeout:             30 * time.Second,
		ShutdownGracePeriod: 10 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket path cannot be empty")
	}
	if c.PIDPath == "" {
		return fmt.Errorf("PID path cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("shutdown grace period must be positive")
	}
	return nil
}

// EnsureDir creates the directories for the socket and PID file.
func (c Config) EnsureDir() error {
	for _, dir := range []string{filepath.Dir(c.SocketPath), filepath.Dir(c.PIDPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create daemon directory: %w", err)
		}
	}
	return nil
}
