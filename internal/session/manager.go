// Package session runs the live loop behind an open repository: watch the
// metadata directory, invalidate caches, re-read history, lay it out and
// publish the result to subscribers.
package session

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gitnet/internal/config"
	"gitnet/internal/errors"
	"gitnet/internal/graph"
	"gitnet/internal/model"
	"gitnet/internal/repo"
	"gitnet/internal/storage"
	"gitnet/internal/watcher"
)

const (
	defaultBufferSize   = 16
	defaultRefreshDelay = 50 * time.Millisecond
)

// SnapshotStore keeps the last good layout of a repository.
type SnapshotStore interface {
	Save(ctx context.Context, snap *storage.Snapshot) error
	Load(ctx context.Context, repoPath string) (*storage.Snapshot, error)
	Close() error
}

// Options configures a Manager.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	// OpenStore opens the snapshot store of a repository root. When nil the
	// sqlite store is used if storage is enabled in Config.
	OpenStore func(repoRoot string) (SnapshotStore, error)

	// BufferSize is the channel capacity of each subscriber.
	BufferSize int

	// RefreshDelay coalesces watcher events of different kinds into one
	// refresh.
	RefreshDelay time.Duration
}

// Manager owns the sessions of every open repository.
type Manager struct {
	svc          *repo.Service
	cfg          *config.Config
	logger       *slog.Logger
	watcher      *watcher.Watcher
	hub          *hub
	layoutOpts   graph.Options
	openStore    func(string) (SnapshotStore, error)
	refreshDelay time.Duration

	mu       sync.RWMutex
	sessions map[string]*repoSession
	aliases  map[string]string
	closed   bool
}

type repoSession struct {
	root   string
	engine *graph.Engine
	batch  *watcher.Batch
	store  SnapshotStore

	// refreshMu serializes refreshes so layouts are submitted in read order.
	refreshMu sync.Mutex
	closed    bool

	mu      sync.RWMutex
	info    *model.RepositoryInfo
	current *Update
}

// New creates a Manager reading repositories through svc.
func New(svc *repo.Service, opts Options) *Manager {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.RefreshDelay <= 0 {
		opts.RefreshDelay = defaultRefreshDelay
	}
	if opts.OpenStore == nil && opts.Config.Storage.Enabled {
		logger := opts.Logger
		opts.OpenStore = func(root string) (SnapshotStore, error) {
			return OpenSnapshots(root, logger)
		}
	}

	m := &Manager{
		svc:          svc,
		cfg:          opts.Config,
		logger:       opts.Logger,
		hub:          newHub(opts.BufferSize, opts.Logger),
		layoutOpts:   graph.OptionsFromConfig(opts.Config),
		openStore:    opts.OpenStore,
		refreshDelay: opts.RefreshDelay,
		sessions:     make(map[string]*repoSession),
		aliases:      make(map[string]string),
	}
	m.watcher = watcher.New(watcher.ConfigFrom(opts.Config), opts.Logger, m.onEvent)
	return m
}

// Service returns the repository data service behind the manager.
func (m *Manager) Service() *repo.Service {
	return m.svc
}

// Open discovers the repository containing path, starts watching it and
// runs the first refresh. Discovery errors are returned as is. Opening a
// repository twice reuses its session.
func (m *Manager) Open(ctx context.Context, path string) (*model.RepositoryInfo, error) {
	info, err := m.svc.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	root := info.Path

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.New(errors.InternalError, "session manager is shut down", nil, nil)
	}
	m.aliases[keyOf(path)] = root
	if rs, ok := m.sessions[root]; ok {
		m.mu.Unlock()
		rs.setInfo(info)
		return info, nil
	}
	rs := m.newSession(info)
	m.sessions[root] = rs
	m.mu.Unlock()

	if err := m.watcher.Watch(root); err != nil {
		m.logger.Warn("Failed to watch repository",
			"repoPath", root,
			"error", err.Error(),
		)
	}

	m.logger.Info("Opened session", "repoPath", root)
	if err := m.refresh(ctx, rs); err != nil {
		return nil, err
	}
	return info, nil
}

func (m *Manager) newSession(info *model.RepositoryInfo) *repoSession {
	rs := &repoSession{root: info.Path, info: info}

	if m.openStore != nil {
		store, err := m.openStore(info.Path)
		if err != nil {
			m.logger.Warn("Snapshot store unavailable",
				"repoPath", info.Path,
				"error", err.Error(),
			)
		} else {
			rs.store = store
		}
	}

	rs.engine = graph.NewEngine(m.layoutOpts, func(res graph.Result) {
		m.onLayout(rs, res)
	}, m.logger)
	rs.batch = watcher.NewBatch(m.refreshDelay, func(events []watcher.Event) {
		m.logger.Debug("Refreshing after changes",
			"repoPath", rs.root,
			"events", len(events),
		)
		if err := m.refresh(context.Background(), rs); err != nil {
			m.logger.Warn("Refresh failed",
				"repoPath", rs.root,
				"error", err.Error(),
			)
		}
	})
	return rs
}

// Refresh re-reads an open repository and submits a new layout. The graph
// update is published asynchronously. Watcher events still waiting for
// their batch are folded into this refresh.
func (m *Manager) Refresh(ctx context.Context, path string) error {
	rs := m.lookup(path)
	if rs == nil {
		return notOpen(path)
	}
	rs.batch.Cancel()
	return m.refresh(ctx, rs)
}

func (m *Manager) refresh(ctx context.Context, rs *repoSession) error {
	rs.refreshMu.Lock()
	defer rs.refreshMu.Unlock()
	if rs.closed {
		return nil
	}

	info, err := m.svc.Open(ctx, rs.root)
	if err != nil {
		m.hub.publish(rs.root, Update{Type: UpdateError, Reason: err.Error()})
		return err
	}
	rs.setInfo(info)

	in, err := collect(ctx, m.svc, info, m.cfg.Log.DefaultLimit)
	if err != nil {
		m.publishDegraded(ctx, rs, err.Error())
		return nil
	}

	seq := rs.engine.Submit(in)
	m.logger.Debug("Submitted layout",
		"repoPath", rs.root,
		"seq", seq,
		"commits", len(in.Commits),
	)
	return nil
}

func (m *Manager) onLayout(rs *repoSession, res graph.Result) {
	if res.Err != nil {
		m.publishDegraded(context.Background(), rs, res.Err.Error())
		return
	}

	u := Update{Type: UpdateGraph, Seq: res.Seq, Graph: res.Data, Timestamp: time.Now()}
	rs.setCurrent(u)
	m.hub.publish(rs.root, u)

	if rs.store == nil {
		return
	}
	snap := &storage.Snapshot{
		RepoPath:    rs.root,
		HeadHash:    res.Data.HeadHash,
		CommitCount: commitCount(res.Data),
		Data:        res.Data,
		CreatedAt:   u.Timestamp,
	}
	if err := rs.store.Save(context.Background(), snap); err != nil {
		m.logger.Warn("Failed to save snapshot",
			"repoPath", rs.root,
			"error", err.Error(),
		)
	}
}

// publishDegraded republishes the last good layout, from memory or from the
// snapshot store, flagged as degraded.
func (m *Manager) publishDegraded(ctx context.Context, rs *repoSession, reason string) {
	var last *graph.VisualizationData
	if cur, ok := rs.currentUpdate(); ok {
		last = cur.Graph
	}
	if last == nil && rs.store != nil {
		snap, err := rs.store.Load(ctx, rs.root)
		if err != nil {
			m.logger.Warn("Failed to load snapshot",
				"repoPath", rs.root,
				"error", err.Error(),
			)
		} else if snap != nil {
			last = snap.Data
		}
	}

	m.logger.Warn("Publishing degraded graph",
		"repoPath", rs.root,
		"reason", reason,
		"hasSnapshot", last != nil,
	)
	u := Update{Type: UpdateGraph, Graph: last, Degraded: true, Reason: reason, Timestamp: time.Now()}
	rs.setCurrent(u)
	m.hub.publish(rs.root, u)
}

func (m *Manager) onEvent(ev watcher.Event) {
	rs := m.lookup(ev.RepoPath)
	if rs == nil {
		return
	}

	switch ev.Type {
	case watcher.EventBranchesUpdated, watcher.EventHeadChanged:
		m.svc.Invalidate(rs.root)
	}

	e := ev
	m.hub.publish(rs.root, Update{Type: UpdateEvent, Event: &e, Timestamp: ev.Timestamp})
	rs.batch.Add(ev)
}

// Subscribe returns a channel of updates for the repository at path and a
// function that ends the subscription. Subscribing before Open is allowed
// when path is the repository root.
func (m *Manager) Subscribe(path string) (<-chan Update, func()) {
	return m.hub.subscribe(m.resolve(path))
}

// Current returns the most recent graph update of an open repository.
func (m *Manager) Current(path string) (Update, bool) {
	rs := m.lookup(path)
	if rs == nil {
		return Update{}, false
	}
	return rs.currentUpdate()
}

// Info returns the repository info from the latest refresh.
func (m *Manager) Info(path string) (*model.RepositoryInfo, bool) {
	rs := m.lookup(path)
	if rs == nil {
		return nil, false
	}
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.info, rs.info != nil
}

// Sessions lists the roots of the open repositories.
func (m *Manager) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	roots := make([]string, 0, len(m.sessions))
	for root := range m.sessions {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}

// WatcherStats reports the state of the change watcher.
func (m *Manager) WatcherStats() map[string]interface{} {
	stats := m.watcher.Stats()
	stats["repos"] = m.watcher.WatchedRepos()
	return stats
}

// Close ends the session of one repository and closes its subscribers.
func (m *Manager) Close(path string) error {
	m.mu.Lock()
	root := m.resolveLocked(path)
	rs, ok := m.sessions[root]
	if ok {
		delete(m.sessions, root)
		for alias, target := range m.aliases {
			if target == root {
				delete(m.aliases, alias)
			}
		}
	}
	m.mu.Unlock()

	if !ok {
		return notOpen(path)
	}
	m.closeSession(rs)
	return nil
}

// Shutdown closes every session and stops the watcher.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*repoSession)
	m.aliases = make(map[string]string)
	m.mu.Unlock()

	for _, rs := range sessions {
		m.closeSession(rs)
	}
	m.svc.ClearCaches()
	return m.watcher.Stop()
}

func (m *Manager) closeSession(rs *repoSession) {
	m.watcher.Unwatch(rs.root)
	rs.batch.Cancel()

	rs.refreshMu.Lock()
	rs.closed = true
	rs.refreshMu.Unlock()

	rs.engine.Wait()
	if rs.store != nil {
		if err := rs.store.Close(); err != nil {
			m.logger.Warn("Failed to close snapshot store",
				"repoPath", rs.root,
				"error", err.Error(),
			)
		}
	}
	m.hub.closeAll(rs.root)
	m.logger.Info("Closed session", "repoPath", rs.root)
}

func (m *Manager) lookup(path string) *repoSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[m.resolveLocked(path)]
}

func (m *Manager) resolve(path string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolveLocked(path)
}

func (m *Manager) resolveLocked(path string) string {
	key := keyOf(path)
	if root, ok := m.aliases[key]; ok {
		return root
	}
	return key
}

func (rs *repoSession) setInfo(info *model.RepositoryInfo) {
	rs.mu.Lock()
	rs.info = info
	rs.mu.Unlock()
}

func (rs *repoSession) setCurrent(u Update) {
	u.RepoPath = rs.root
	rs.mu.Lock()
	rs.current = &u
	rs.mu.Unlock()
}

func (rs *repoSession) currentUpdate() (Update, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	if rs.current == nil {
		return Update{}, false
	}
	return *rs.current, true
}

func keyOf(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func notOpen(path string) error {
	return errors.New(errors.NotFound, "repository is not open: "+path, nil, nil)
}

func commitCount(data *graph.VisualizationData) int {
	n := 0
	for _, node := range data.Nodes {
		if node.Commit != nil {
			n++
		}
	}
	return n
}
