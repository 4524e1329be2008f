// Package integration exercises the store, synchronizer, watcher and
// search engine together against real directories.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/mdsearch/internal/extract"
	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/scanner"
	"github.com/Aman-CERP/mdsearch/internal/search"
	"github.com/Aman-CERP/mdsearch/internal/service"
	"github.com/Aman-CERP/mdsearch/internal/store"
	"github.com/Aman-CERP/mdsearch/internal/watcher"
)

// pipeline is the set of components a server wires together.
type pipeline struct {
	store   *store.Store
	scanner *scanner.Scanner
	sync    *index.Synchronizer
	service *service.Service
}

func openPipeline(t *testing.T, root, dataDir string) *pipeline {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, dataDir)
	require.NoError(t, err)

	filter, err := scanner.NewFilter(root, scanner.FilterOptions{Exclude: []string{"drafts/**"}})
	require.NoError(t, err)
	scn := scanner.New(filter, nil)

	syn, err := index.New(index.Config{Store: st, Scanner: scn, Extractor: extract.New(), Workers: 2})
	require.NoError(t, err)
	engine, err := search.NewEngine(st)
	require.NoError(t, err)
	svc, err := service.New(service.Config{Store: st, Engine: engine, Synchronizer: syn, Limits: service.DefaultLimits(), Root: root})
	require.NoError(t, err)

	return &pipeline{store: st, scanner: scn, sync: syn, service: svc}
}

func (p *pipeline) close(t *testing.T) {
	t.Helper()
	require.NoError(t, p.store.Close())
}

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func createNotes(t *testing.T, root string) {
	t.Helper()
	writeNote(t, root, "raft.md", "# Raft\n\nRaft elects a leader and replicates the log to followers.\n")
	writeNote(t, root, "paxos.md", "# Paxos\n\nPaxos reaches consensus with proposers and acceptors.\n")
	writeNote(t, root, "cooking/bread.md", "# Sourdough\n\nFeed the starter, then knead and proof the dough.\n")
	writeNote(t, root, "drafts/secret.md", "# Draft\n\nUnpublished leader election notes.\n")
	writeNote(t, root, ".hidden/skip.md", "# Hidden\n\nleader\n")
	writeNote(t, root, "notes.txt", "leader leader leader\n")
}

func paths(resp *service.Response) []string {
	out := make([]string, 0, len(resp.Results))
	for _, h := range resp.Results {
		out = append(out, h.Path)
	}
	return out
}

func TestIntegration_RebuildAndSearch(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a root with notes, an excluded draft and a hidden directory
	root := t.TempDir()
	createNotes(t, root)
	p := openPipeline(t, root, t.TempDir())
	defer p.close(t)
	ctx := context.Background()

	// When: the index is rebuilt
	rs, err := p.sync.Rebuild(ctx, nil)
	require.NoError(t, err)

	// Then: only the three visible Markdown notes are indexed
	assert.Equal(t, 3, rs.Indexed)

	// And: a query ranks the matching note with a highlighted snippet
	resp, err := p.service.Search(ctx, service.Request{Query: "leader"})
	require.NoError(t, err)
	require.Equal(t, []string{"raft.md"}, paths(resp))
	assert.Contains(t, resp.Results[0].Snippet, "<mark>leader</mark>")
	assert.Equal(t, "Raft", resp.Results[0].Title)
}

func TestIntegration_PersistenceKeepsIDs(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: an indexed root
	root := t.TempDir()
	dataDir := t.TempDir()
	createNotes(t, root)
	ctx := context.Background()

	p := openPipeline(t, root, dataDir)
	_, err := p.sync.Rebuild(ctx, nil)
	require.NoError(t, err)
	before, err := p.store.GetByPath("paxos.md")
	require.NoError(t, err)
	p.close(t)

	// When: the catalog is reopened
	p = openPipeline(t, root, dataDir)
	defer p.close(t)

	// Then: documents are searchable without a rebuild and keep their ids
	after, err := p.store.GetByPath("paxos.md")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)

	resp, err := p.service.Search(ctx, service.Request{Query: "acceptors"})
	require.NoError(t, err)
	assert.Equal(t, []string{"paxos.md"}, paths(resp))
}

func TestIntegration_ReconcileAppliesOfflineChanges(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: an indexed root that changes while nothing is running
	root := t.TempDir()
	dataDir := t.TempDir()
	createNotes(t, root)
	ctx := context.Background()

	p := openPipeline(t, root, dataDir)
	_, err := p.sync.Rebuild(ctx, nil)
	require.NoError(t, err)
	p.close(t)

	require.NoError(t, os.Remove(filepath.Join(root, "paxos.md")))
	writeNote(t, root, "gossip.md", "# Gossip\n\nEpidemic protocols spread membership.\n")
	future := time.Now().Add(time.Hour)
	writeNote(t, root, "raft.md", "# Raft\n\nRaft uses terms and heartbeats.\n")
	require.NoError(t, os.Chtimes(filepath.Join(root, "raft.md"), future, future))

	// When: the catalog is reopened and reconciled
	p = openPipeline(t, root, dataDir)
	defer p.close(t)
	stats, err := p.sync.Reconcile(ctx, nil)
	require.NoError(t, err)

	// Then: each offline change is applied
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, 1, stats.Unchanged)
	assert.False(t, stats.Rebuilt)

	resp, err := p.service.Search(ctx, service.Request{Query: "heartbeats membership acceptors"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"raft.md", "gossip.md"}, paths(resp))
}

func TestIntegration_WatcherKeepsIndexInSync(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tests := []struct {
		name  string
		force bool
	}{
		{name: "fsnotify"},
		{name: "polling", force: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a running watcher feeding the synchronizer
			root := t.TempDir()
			createNotes(t, root)
			p := openPipeline(t, root, t.TempDir())
			defer p.close(t)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			_, err := p.sync.Rebuild(ctx, nil)
			require.NoError(t, err)

			w := watcher.NewHybrid(p.scanner, watcher.Options{
				DebounceWindow: 20 * time.Millisecond,
				PollInterval:   50 * time.Millisecond,
				ForcePolling:   tt.force,
			})
			var wg sync.WaitGroup
			wg.Add(3)
			go func() { defer wg.Done(); _ = w.Start(ctx) }()
			go func() { defer wg.Done(); p.sync.Pump(ctx, w) }()
			go func() { defer wg.Done(); _ = p.sync.Run(ctx) }()
			defer func() {
				cancel()
				_ = w.Stop()
				wg.Wait()
			}()

			find := func(q string) []string {
				resp, err := p.service.Search(ctx, service.Request{Query: q})
				if err != nil {
					return nil
				}
				return paths(resp)
			}
			// Polling takes its baseline on start; give it one interval.
			time.Sleep(100 * time.Millisecond)

			// When: a note is created in a new directory
			writeNote(t, root, "dist/gossip.md", "# Gossip\n\nEpidemic protocols spread membership.\n")

			// Then: it becomes searchable
			require.Eventually(t, func() bool {
				return assert.ObjectsAreEqual([]string{"dist/gossip.md"}, find("membership"))
			}, 5*time.Second, 20*time.Millisecond)

			// When: a note is deleted
			require.NoError(t, os.Remove(filepath.Join(root, "paxos.md")))

			// Then: it disappears from results
			require.Eventually(t, func() bool {
				return len(find("acceptors")) == 0
			}, 5*time.Second, 20*time.Millisecond)

			// When: a directory is removed
			require.NoError(t, os.RemoveAll(filepath.Join(root, "cooking")))

			// Then: everything below it is removed
			require.Eventually(t, func() bool {
				return len(find("sourdough")) == 0
			}, 5*time.Second, 20*time.Millisecond)
		})
	}
}

func TestIntegration_ChangesDuringStartupAreApplied(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tests := []struct {
		name  string
		force bool
	}{
		{name: "fsnotify"},
		{name: "polling", force: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: an unindexed root and a watcher
			root := t.TempDir()
			createNotes(t, root)
			p := openPipeline(t, root, t.TempDir())
			defer p.close(t)

			w := watcher.NewHybrid(p.scanner, watcher.Options{
				DebounceWindow: 20 * time.Millisecond,
				PollInterval:   50 * time.Millisecond,
				ForcePolling:   tt.force,
			})

			// When: a note is written after the startup scan has passed
			var once sync.Once
			writeErr := make(chan error, 1)
			progress := func(pr index.Progress) {
				if pr.Stage != index.StageExtract {
					return
				}
				once.Do(func() {
					writeErr <- os.WriteFile(filepath.Join(root, "late.md"),
						[]byte("# Late\n\nA straggler note.\n"), 0o644)
				})
			}

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- p.sync.Serve(ctx, w, progress) }()
			defer func() {
				cancel()
				assert.ErrorIs(t, <-done, context.Canceled)
			}()
			require.NoError(t, <-writeErr)

			// Then: the watcher delivers it once the startup rebuild is done
			require.Eventually(t, func() bool {
				resp, err := p.service.Search(ctx, service.Request{Query: "straggler"})
				return err == nil && assert.ObjectsAreEqual([]string{"late.md"}, paths(resp))
			}, 5*time.Second, 20*time.Millisecond)

			// And: the notes present at startup are indexed too
			resp, err := p.service.Search(ctx, service.Request{Query: "leader"})
			require.NoError(t, err)
			assert.Equal(t, []string{"raft.md"}, paths(resp))
		})
	}
}

func TestIntegration_RecreatedFileSurvivesParentDeletion(t *testing.T) {
	// Given: an indexed note inside a directory
	root := t.TempDir()
	writeNote(t, root, "dir/x.md", "# X\n\nfirst draft\n")
	p := openPipeline(t, root, t.TempDir())
	defer p.close(t)
	ctx := context.Background()
	_, err := p.sync.Rebuild(ctx, nil)
	require.NoError(t, err)

	// When: the note is edited, its directory removed and the note recreated
	// within one debounce window
	d := watcher.NewDebouncer(time.Hour)
	defer d.Stop()
	d.Add(watcher.Event{Path: "dir/x.md", Kind: watcher.Modified})
	d.Add(watcher.Event{Path: "dir/x.md", Kind: watcher.Deleted})
	d.Add(watcher.Event{Path: "dir", Kind: watcher.Deleted})
	writeNote(t, root, "dir/x.md", "# X\n\nsecond draft survives\n")
	d.Add(watcher.Event{Path: "dir/x.md", Kind: watcher.Created})
	d.Flush()

	var batch []watcher.Event
	select {
	case batch = <-d.Output():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for batch")
	}
	for _, ev := range batch {
		require.NoError(t, p.sync.Apply(ctx, ev))
	}

	// Then: the note on disk is indexed with its new content
	doc, err := p.store.GetByPath("dir/x.md")
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "survives")

	resp, err := p.service.Search(ctx, service.Request{Query: "survives"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/x.md"}, paths(resp))
}

func TestIntegration_SearchDuringRebuild(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: an indexed root with many notes
	root := t.TempDir()
	for i := range 200 {
		writeNote(t, root, fmt.Sprintf("n/%03d.md", i), fmt.Sprintf("# Note %d\n\nshared term and unique%d\n", i, i))
	}
	p := openPipeline(t, root, t.TempDir())
	defer p.close(t)
	ctx := context.Background()
	_, err := p.sync.Rebuild(ctx, nil)
	require.NoError(t, err)

	// When: searches run concurrently with rebuilds
	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				resp, err := p.service.Search(ctx, service.Request{Query: "shared", Limit: 5})
				if err != nil {
					errs <- err
					return
				}
				// Then: every answer comes from a complete index
				if resp.Total != 200 {
					errs <- fmt.Errorf("partial index: %d documents", resp.Total)
					return
				}
			}
		}()
	}
	for range 3 {
		_, err := p.service.TriggerFullRebuild(ctx)
		require.NoError(t, err)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
