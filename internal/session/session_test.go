package session

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gitnet/internal/config"
	"gitnet/internal/errors"
	"gitnet/internal/executor"
	"gitnet/internal/graph"
	"gitnet/internal/model"
	"gitnet/internal/repo"
	"gitnet/internal/storage"
	"gitnet/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.Enabled = false
	cfg.Watcher.DebounceMs = 20
	return cfg
}

type memStore struct {
	mu     sync.Mutex
	snaps  map[string]*storage.Snapshot
	saves  int
	closed bool
}

func newMemStore() *memStore {
	return &memStore{snaps: make(map[string]*storage.Snapshot)}
}

func (s *memStore) Save(ctx context.Context, snap *storage.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.RepoPath] = snap
	s.saves++
	return nil
}

func (s *memStore) Load(ctx context.Context, repoPath string) (*storage.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snaps[repoPath], nil
}

func (s *memStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memStore) snapshot(repoPath string) (*storage.Snapshot, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snaps[repoPath], s.saves, s.closed
}

func newRealManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.Config == nil {
		opts.Config = testConfig()
	}
	opts.Logger = testLogger()
	svc := repo.New(executor.New(executor.Options{}, testLogger()), opts.Config, testLogger())
	m := New(svc, opts)
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

// waitFor reads updates until match accepts one or the deadline passes.
func waitFor(t *testing.T, ch <-chan Update, match func(Update) bool) Update {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				t.Fatal("subscription closed while waiting")
			}
			if match(u) {
				return u
			}
		case <-deadline:
			t.Fatal("timed out waiting for update")
		}
	}
}

func isGraph(u Update) bool { return u.Type == UpdateGraph && !u.Degraded }

func TestOpenPublishesGraph(t *testing.T) {
	r := testutil.NewRepo(t)
	r.CommitFile("a.txt", "a\n", "feat: first")
	head := r.CommitFile("b.txt", "b\n", "fix: second")

	m := newRealManager(t, Options{})
	updates, cancel := m.Subscribe(r.Dir)
	defer cancel()

	info, err := m.Open(context.Background(), r.Dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if info.HeadHash != head {
		t.Errorf("HeadHash = %q, want %q", info.HeadHash, head)
	}

	u := waitFor(t, updates, isGraph)
	if u.RepoPath != r.Dir {
		t.Errorf("RepoPath = %q, want %q", u.RepoPath, r.Dir)
	}
	if len(u.Graph.Nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(u.Graph.Nodes))
	}
	if u.Graph.HeadHash != head {
		t.Errorf("graph head = %q, want %q", u.Graph.HeadHash, head)
	}

	cur, ok := m.Current(r.Dir)
	if !ok || cur.Seq != u.Seq {
		t.Errorf("Current() = %v/%v, want seq %d", cur.Seq, ok, u.Seq)
	}
	if got := m.Sessions(); len(got) != 1 || got[0] != r.Dir {
		t.Errorf("Sessions() = %v", got)
	}
}

func TestOpenTwiceReusesSession(t *testing.T) {
	r := testutil.NewRepo(t)
	r.CommitFile("a.txt", "a\n", "first")
	if err := os.MkdirAll(filepath.Join(r.Dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	m := newRealManager(t, Options{})
	ctx := context.Background()
	if _, err := m.Open(ctx, r.Dir); err != nil {
		t.Fatal(err)
	}
	info, err := m.Open(ctx, filepath.Join(r.Dir, "sub"))
	if err != nil {
		t.Fatalf("Open(sub) error = %v", err)
	}
	if info.Path != r.Dir {
		t.Errorf("Path = %q, want %q", info.Path, r.Dir)
	}
	if got := m.Sessions(); len(got) != 1 {
		t.Errorf("Sessions() = %v, want one", got)
	}
	if _, ok := m.Info(filepath.Join(r.Dir, "sub")); !ok {
		t.Error("Info() by alias not found")
	}
}

func TestOpenInvalidRepository(t *testing.T) {
	testutil.RequireGit(t)
	m := newRealManager(t, Options{})

	_, err := m.Open(context.Background(), t.TempDir())
	if !errors.IsCode(err, errors.InvalidRepository) {
		t.Fatalf("Open() error = %v, want INVALID_REPOSITORY", err)
	}
	if got := m.Sessions(); len(got) != 0 {
		t.Errorf("Sessions() = %v, want none", got)
	}
}

func TestWatcherTriggersRefresh(t *testing.T) {
	r := testutil.NewRepo(t)
	r.CommitFile("a.txt", "a\n", "first")

	m := newRealManager(t, Options{})
	updates, cancel := m.Subscribe(r.Dir)
	defer cancel()

	if _, err := m.Open(context.Background(), r.Dir); err != nil {
		t.Fatal(err)
	}
	waitFor(t, updates, isGraph)

	r.CommitFile("b.txt", "b\n", "second")

	waitFor(t, updates, func(u Update) bool { return u.Type == UpdateEvent && u.Event != nil })
	u := waitFor(t, updates, func(u Update) bool {
		return isGraph(u) && len(u.Graph.Nodes) == 2
	})
	if newest := u.Graph.Nodes[1]; newest.Commit.Subject != "second" || !newest.IsHead {
		t.Errorf("newest node = %q head=%v, want second head", newest.Commit.Subject, newest.IsHead)
	}
}

func TestNewBranchInvalidatesCache(t *testing.T) {
	r := testutil.NewRepo(t)
	r.CommitFile("a.txt", "a\n", "first")

	m := newRealManager(t, Options{})
	updates, cancel := m.Subscribe(r.Dir)
	defer cancel()

	if _, err := m.Open(context.Background(), r.Dir); err != nil {
		t.Fatal(err)
	}
	waitFor(t, updates, isGraph)

	r.Branch("topic")

	u := waitFor(t, updates, func(u Update) bool {
		if !isGraph(u) {
			return false
		}
		for _, b := range u.Graph.Branches {
			if b.Name == "topic" {
				return true
			}
		}
		return false
	})
	if len(u.Graph.Branches) != 2 {
		t.Errorf("branches = %d, want 2", len(u.Graph.Branches))
	}
}

func TestSnapshotSavedAndStoreClosed(t *testing.T) {
	r := testutil.NewRepo(t)
	head := r.CommitFile("a.txt", "a\n", "first")

	store := newMemStore()
	m := newRealManager(t, Options{
		OpenStore: func(string) (SnapshotStore, error) { return store, nil },
	})
	if _, err := m.Open(context.Background(), r.Dir); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(r.Dir); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	snap, saves, closed := store.snapshot(r.Dir)
	if saves == 0 || snap == nil {
		t.Fatalf("saves = %d, snapshot = %v", saves, snap)
	}
	if snap.HeadHash != head || snap.CommitCount != 1 {
		t.Errorf("snapshot = %q/%d, want %q/1", snap.HeadHash, snap.CommitCount, head)
	}
	if !closed {
		t.Error("store not closed")
	}
}

func TestDegradedPublishesSnapshot(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := testutil.NewFakeRunner().
		On("true\n", nil, "rev-parse", "--is-inside-work-tree").
		On(dir+"\n", nil, "rev-parse", "--show-toplevel").
		On(filepath.Join(dir, ".git")+"\n", nil, "rev-parse", "--absolute-git-dir").
		On("main\n", nil, "symbolic-ref").
		On("0123456789abcdef0123456789abcdef01234567\n", nil, "rev-parse", "HEAD").
		On("", errors.New(errors.CommandFailed, "fatal: not a git repository", nil, nil), "log")

	previous := graph.Layout(graph.Input{
		Commits: []model.Commit{{Hash: "0123456789abcdef0123456789abcdef01234567", Branch: "main"}},
	}, graph.DefaultOptions())
	store := newMemStore()
	store.snaps[dir] = &storage.Snapshot{RepoPath: dir, Data: previous}

	cfg := testConfig()
	svc := repo.New(runner, cfg, testLogger())
	m := New(svc, Options{
		Config:    cfg,
		Logger:    testLogger(),
		OpenStore: func(string) (SnapshotStore, error) { return store, nil },
	})
	defer m.Shutdown()

	updates, cancel := m.Subscribe(dir)
	defer cancel()

	if _, err := m.Open(context.Background(), dir); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	u := waitFor(t, updates, func(u Update) bool { return u.Type == UpdateGraph })
	if !u.Degraded {
		t.Fatal("expected degraded update")
	}
	if u.Graph != previous {
		t.Errorf("degraded update did not carry the stored snapshot")
	}
	if u.Reason == "" {
		t.Error("degraded update has no reason")
	}
}

func TestDegradedWithoutSnapshot(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := testutil.NewFakeRunner().
		On("true\n", nil, "rev-parse", "--is-inside-work-tree").
		On(dir+"\n", nil, "rev-parse", "--show-toplevel").
		On(filepath.Join(dir, ".git")+"\n", nil, "rev-parse", "--absolute-git-dir")

	cfg := testConfig()
	m := New(repo.New(runner, cfg, testLogger()), Options{Config: cfg, Logger: testLogger()})
	defer m.Shutdown()

	updates, cancel := m.Subscribe(dir)
	defer cancel()
	if _, err := m.Open(context.Background(), dir); err != nil {
		t.Fatal(err)
	}

	u := waitFor(t, updates, func(u Update) bool { return u.Type == UpdateGraph })
	if !u.Degraded || u.Graph != nil {
		t.Errorf("update = degraded %v graph %v, want degraded with no graph", u.Degraded, u.Graph)
	}
}

func TestCloseAndShutdown(t *testing.T) {
	r := testutil.NewRepo(t)
	r.CommitFile("a.txt", "a\n", "first")

	m := newRealManager(t, Options{})
	ctx := context.Background()

	if err := m.Close(r.Dir); !errors.IsCode(err, errors.NotFound) {
		t.Errorf("Close() before Open error = %v, want NOT_FOUND", err)
	}
	if err := m.Refresh(ctx, r.Dir); !errors.IsCode(err, errors.NotFound) {
		t.Errorf("Refresh() before Open error = %v, want NOT_FOUND", err)
	}

	if _, err := m.Open(ctx, r.Dir); err != nil {
		t.Fatal(err)
	}
	updates, cancel := m.Subscribe(r.Dir)
	defer cancel()

	if err := m.Close(r.Dir); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	var last Update
	for u := range updates {
		last = u
	}
	if last.Type != UpdateClosed {
		t.Errorf("last update = %q, want closed", last.Type)
	}
	if _, ok := m.Current(r.Dir); ok {
		t.Error("Current() after Close still found")
	}

	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if _, err := m.Open(ctx, r.Dir); err == nil {
		t.Error("Open() after Shutdown succeeded")
	}
}

func TestBuildGraph(t *testing.T) {
	r := testutil.NewRepo(t)
	r.CommitFile("a.txt", "a\n", "first")
	r.Branch("dev")
	r.Checkout("dev")
	r.CommitFile("b.txt", "b\n", "on dev")

	svc := repo.New(executor.New(executor.Options{}, testLogger()), testConfig(), testLogger())
	data, err := BuildGraph(context.Background(), svc, r.Dir, graph.DefaultOptions(), 100)
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}
	if len(data.Nodes) != 2 || len(data.Edges) != 1 {
		t.Errorf("nodes/edges = %d/%d, want 2/1", len(data.Nodes), len(data.Edges))
	}

	if _, err := BuildGraph(context.Background(), svc, t.TempDir(), graph.DefaultOptions(), 100); !errors.IsCode(err, errors.InvalidRepository) {
		t.Errorf("BuildGraph(non-repo) error = %v", err)
	}
}

func TestBuildGraphWithStash(t *testing.T) {
	r := testutil.NewRepo(t)
	r.CommitFile("a.txt", "a\n", "first")
	r.CommitFile("a.txt", "b\n", "second")
	r.WriteFile("a.txt", "work in progress\n")
	r.Git("stash", "-q")

	svc := repo.New(executor.New(executor.Options{}, testLogger()), testConfig(), testLogger())
	data, err := BuildGraph(context.Background(), svc, r.Dir, graph.DefaultOptions(), 100)
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}

	if len(data.Nodes) != 3 {
		t.Fatalf("nodes = %d, want 2 commits and 1 stash", len(data.Nodes))
	}
	stashes := 0
	for _, n := range data.Nodes {
		if n.Branch != "main" {
			t.Errorf("node %s on branch %q, want main", n.ID, n.Branch)
		}
		if n.Shape == graph.ShapeSquare {
			stashes++
		}
	}
	if stashes != 1 {
		t.Errorf("stash nodes = %d, want 1", stashes)
	}
	for _, l := range data.Lanes {
		if l.Branch != "main" {
			t.Errorf("lane %d owned by %q", l.Lane, l.Branch)
		}
	}
	for _, e := range data.Edges {
		parent, _ := data.Node(e.Source)
		child, _ := data.Node(e.Target)
		if parent == nil || child == nil {
			t.Fatalf("edge %s references a missing node", e.ID)
		}
		if parent.Y >= child.Y {
			t.Errorf("edge %s: parent y=%v not above child y=%v", e.ID, parent.Y, child.Y)
		}
	}
}

func TestOpenSnapshots(t *testing.T) {
	root := t.TempDir()
	store, err := OpenSnapshots(root, testLogger())
	if err != nil {
		t.Fatalf("OpenSnapshots() error = %v", err)
	}
	ctx := context.Background()
	data := graph.Layout(graph.Input{Commits: []model.Commit{{Hash: "abc"}}}, graph.DefaultOptions())
	if err := store.Save(ctx, &storage.Snapshot{RepoPath: root, HeadHash: "abc", Data: data}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(ctx, root)
	if err != nil || got == nil || got.HeadHash != "abc" {
		t.Fatalf("Load() = %v, %v", got, err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
