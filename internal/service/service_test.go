package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mderrors "github.com/Aman-CERP/mdsearch/internal/errors"
	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/scanner"
	"github.com/Aman-CERP/mdsearch/internal/search"
	"github.com/Aman-CERP/mdsearch/internal/store"
	"github.com/Aman-CERP/mdsearch/internal/watcher"
)

type fixture struct {
	root string
	svc  *Service
	sync *index.Synchronizer
	st   *store.Store
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	filter, err := scanner.NewFilter(root, scanner.FilterOptions{})
	require.NoError(t, err)
	st := store.New()
	t.Cleanup(func() { _ = st.Close() })

	syn, err := index.New(index.Config{Store: st, Scanner: scanner.New(filter, nil)})
	require.NoError(t, err)
	_, err = syn.Rebuild(context.Background(), nil)
	require.NoError(t, err)

	eng, err := search.NewEngine(st)
	require.NoError(t, err)
	svc, err := New(Config{Store: st, Engine: eng, Synchronizer: syn, Root: root})
	require.NoError(t, err)

	return &fixture{root: root, svc: svc, sync: syn, st: st}
}

func TestSearch_Validation(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "alpha"})

	tests := []struct {
		name string
		req  Request
		code string
	}{
		{name: "empty query", req: Request{Query: ""}, code: mderrors.ErrCodeQueryEmpty},
		{name: "whitespace query", req: Request{Query: " \t\n"}, code: mderrors.ErrCodeQueryEmpty},
		{name: "query too long", req: Request{Query: strings.Repeat("語", 501)}, code: mderrors.ErrCodeQueryTooLong},
		{name: "negative offset", req: Request{Query: "alpha", Offset: -1}, code: mderrors.ErrCodeInvalidPagination},
		{name: "negative limit", req: Request{Query: "alpha", Limit: -5}, code: mderrors.ErrCodeInvalidPagination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.svc.Search(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, tt.code, mderrors.GetCode(err))
			assert.True(t, mderrors.IsValidation(err))
		})
	}
}

func TestSearch_QueryAtLengthLimitAccepted(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "alpha"})

	_, err := f.svc.Search(context.Background(), Request{Query: strings.Repeat("a", 500)})

	assert.NoError(t, err)
}

func TestSearch_LimitDefaultsAndClamp(t *testing.T) {
	files := make(map[string]string)
	for i := range 120 {
		files[filepath.Join("docs", strings.Repeat("x", i%5+1)+string(rune('a'+i%26))+strings.Repeat("y", i/26)+".md")] = "common word"
	}
	f := newFixture(t, files)
	ctx := context.Background()

	resp, err := f.svc.Search(ctx, Request{Query: "common"})
	require.NoError(t, err)
	assert.Equal(t, 20, resp.Limit)
	assert.Len(t, resp.Results, 20)
	assert.Equal(t, 120, resp.Total)

	resp, err = f.svc.Search(ctx, Request{Query: "common", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Limit)
	assert.Len(t, resp.Results, 100)
}

func TestSearch_ScoresNonIncreasing(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.md": "go go go",
		"b.md": "go and rust",
		"c.md": "go",
		"d.md": "rust only",
	})

	resp, err := f.svc.Search(context.Background(), Request{Query: "go"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)
	for i := 1; i < len(resp.Results); i++ {
		prev, cur := resp.Results[i-1], resp.Results[i]
		assert.GreaterOrEqual(t, prev.Score, cur.Score)
		if prev.Score == cur.Score {
			assert.Less(t, prev.ID, cur.ID)
		}
		assert.Contains(t, cur.Snippet, "<mark>")
	}
}

func TestGetDocument(t *testing.T) {
	f := newFixture(t, map[string]string{"guide.md": "---\ntitle: Guide\n---\nquick brown fox"})
	ctx := context.Background()

	doc, err := f.st.GetByPath("guide.md")
	require.NoError(t, err)

	got, err := f.svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Guide", got.Title)

	body, err := f.svc.RenderableContent(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "quick brown fox", body)

	_, err = f.svc.GetDocument(ctx, 0)
	assert.Equal(t, mderrors.ErrCodeInvalidID, mderrors.GetCode(err))

	_, err = f.svc.GetDocument(ctx, doc.ID+1000)
	assert.Equal(t, mderrors.ErrCodeDocumentNotFound, mderrors.GetCode(err))
}

func TestDeletedDocument_NotFoundAndAbsent(t *testing.T) {
	// Given: an indexed document with unique content
	f := newFixture(t, map[string]string{"gone.md": "xylophone", "stay.md": "other"})
	ctx := context.Background()
	doc, err := f.st.GetByPath("gone.md")
	require.NoError(t, err)

	// When: the file is deleted and the event applied
	require.NoError(t, os.Remove(filepath.Join(f.root, "gone.md")))
	require.NoError(t, f.sync.Apply(ctx, watcher.Event{Path: "gone.md", Kind: watcher.Deleted}))

	// Then: it is absent from results and GetDocument reports NotFound
	resp, err := f.svc.Search(ctx, Request{Query: "xylophone"})
	require.NoError(t, err)
	assert.Zero(t, resp.Total)

	_, err = f.svc.GetDocument(ctx, doc.ID)
	assert.Equal(t, mderrors.ErrCodeDocumentNotFound, mderrors.GetCode(err))
}

func TestTriggerFullRebuild_Concurrent(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "alpha", "b.md": "bravo"})

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Queries are served while rebuilds run.
			_, err := f.svc.Search(context.Background(), Request{Query: "alpha"})
			assert.NoError(t, err)
			stats, err := f.svc.TriggerFullRebuild(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 2, stats.Indexed)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, f.svc.Status().Documents)
}

func TestTriggerFullRebuild_WithoutSynchronizer(t *testing.T) {
	st := store.New()
	defer st.Close()
	eng, err := search.NewEngine(st)
	require.NoError(t, err)
	svc, err := New(Config{Store: st, Engine: eng})
	require.NoError(t, err)

	_, err = svc.TriggerFullRebuild(context.Background())

	assert.Equal(t, mderrors.ErrCodeStoreUnavailable, mderrors.GetCode(err))
}

func TestStatus(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "alpha"})

	st := f.svc.Status()

	assert.Equal(t, 1, st.Documents)
	assert.Equal(t, f.root, st.Root)
	assert.Positive(t, st.Generation)
	assert.False(t, st.Rebuilding)
	assert.Zero(t, st.QueueDepth)
}

func TestSearch_ClosedStoreIsUnavailable(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "alpha"})
	require.NoError(t, f.st.Close())

	_, err := f.svc.Search(context.Background(), Request{Query: "something new"})

	assert.Equal(t, mderrors.ErrCodeStoreUnavailable, mderrors.GetCode(err))
}
