package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/mdsearch/internal/daemon"
	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/ui"
)

func TestServeCmd_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping server test in short mode")
	}

	// Given: a project and a socket path short enough for a unix socket
	p := newTestProject(t, sampleNotes)
	sockDir, err := os.MkdirTemp("/tmp", "mds")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(sockDir) })
	socket := filepath.Join(sockDir, "s.sock")
	t.Setenv("MDSEARCH_SOCKET", socket)
	t.Setenv("MDSEARCH_DEBOUNCE", "50ms")

	// When: the server is started
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveErr := make(chan error, 1)
	go func() {
		cmd := NewRootCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"--root", p.root, "--data-dir", p.dataDir, "serve"})
		serveErr <- cmd.ExecuteContext(ctx)
	}()

	dcfg := daemon.DefaultConfig(p.dataDir)
	dcfg.SocketPath = socket
	client := daemon.NewClient(dcfg)
	require.Eventually(t, func() bool { return client.IsRunning(ctx) }, 10*time.Second, 50*time.Millisecond)

	// The socket is up while the startup reconciliation still runs.
	require.Eventually(t, func() bool {
		st, err := client.Status(ctx)
		return err == nil && st.Documents == 3
	}, 10*time.Second, 50*time.Millisecond)

	// Then: queries are answered by the server
	t.Run("search through server", func(t *testing.T) {
		out, _, err := p.run(t, "search", "raft")
		require.NoError(t, err)
		assert.Contains(t, out, "raft.md")
	})

	t.Run("status reports the server", func(t *testing.T) {
		out, _, err := p.run(t, "status", "--json")
		require.NoError(t, err)
		var info ui.StatusInfo
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		assert.Equal(t, "daemon", info.Source)
		assert.Equal(t, 3, info.Documents)
		assert.Positive(t, info.PID)
	})

	t.Run("index refuses while serving", func(t *testing.T) {
		_, _, err := p.run(t, "index", "--plain")
		require.Error(t, err)
		assert.Equal(t, mderrors.ErrCodeStoreBusy, mderrors.GetCode(err))
	})

	t.Run("rebuild through server", func(t *testing.T) {
		out, _, err := p.run(t, "rebuild", "--json")
		require.NoError(t, err)
		var rs index.RebuildStats
		require.NoError(t, json.Unmarshal([]byte(out), &rs))
		assert.Equal(t, 3, rs.Indexed)
	})

	t.Run("watcher picks up new notes", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(p.root, "airship.md"),
			[]byte("# Airships\n\nA zeppelin is a rigid airship.\n"), 0o644))

		require.Eventually(t, func() bool {
			out, _, err := p.run(t, "search", "zeppelin")
			return err == nil && strings.Contains(out, "airship.md")
		}, 10*time.Second, 100*time.Millisecond)
	})

	// When: the context is cancelled
	cancel()

	// Then: the server stops cleanly
	select {
	case err := <-serveErr:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
