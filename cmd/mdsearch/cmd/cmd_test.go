package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testProject is a root directory of Markdown files plus an isolated data
// directory and user config location.
type testProject struct {
	root    string
	dataDir string
}

func newTestProject(t *testing.T, files map[string]string) testProject {
	t.Helper()

	base := t.TempDir()
	p := testProject{
		root:    filepath.Join(base, "notes"),
		dataDir: filepath.Join(base, "data"),
	}
	require.NoError(t, os.MkdirAll(p.root, 0o755))
	for name, content := range files {
		path := filepath.Join(p.root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "xdg"))
	t.Setenv("HOME", base)
	return p
}

// run executes the CLI against the project and returns stdout and stderr.
func (p testProject) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--root", p.root, "--data-dir", p.dataDir}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

var sampleNotes = map[string]string{
	"raft.md":          "# Raft consensus\n\nRaft is a consensus algorithm built around a replicated log.\n",
	"garden/tomato.md": "# Tomatoes\n\nWater tomatoes deeply and mulch around the stems.\n",
	"ideas.md":         "# Ideas\n\nA log of half-formed ideas.\n",
}
