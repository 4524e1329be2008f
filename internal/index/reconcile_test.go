package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_EmptyStoreRebuilds(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.md", "alpha")
	s, st := newSync(t, root, 0)

	stats, err := s.Reconcile(context.Background(), nil)

	require.NoError(t, err)
	assert.True(t, stats.Rebuilt)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, st.Stats().Documents)
}

func TestReconcile_AppliesDifferences(t *testing.T) {
	// Given: an index built from three documents
	root := t.TempDir()
	write(t, root, "keep.md", "keep")
	write(t, root, "change.md", "old words")
	write(t, root, "gone.md", "gone")
	s, st := newSync(t, root, 0)
	ctx := context.Background()
	_, err := s.Rebuild(ctx, nil)
	require.NoError(t, err)

	// When: the tree changes while nothing is watching
	write(t, root, "change.md", "new words")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "change.md"), future, future))
	require.NoError(t, os.Remove(filepath.Join(root, "gone.md")))
	write(t, root, "fresh.md", "fresh")

	stats, err := s.Reconcile(ctx, nil)

	// Then: each difference is applied once
	require.NoError(t, err)
	assert.False(t, stats.Rebuilt)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, 1, stats.Unchanged)

	doc, err := st.GetByPath("change.md")
	require.NoError(t, err)
	assert.Equal(t, "new words", doc.Content)
	_, err = st.GetByPath("gone.md")
	assert.Error(t, err)
}
