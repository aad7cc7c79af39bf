// Package watcher observes repository metadata directories and emits
// debounced change notifications.
package watcher

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"gitnet/internal/config"
	"gitnet/internal/errors"
)

// EventType is the kind of change a notification reports.
type EventType string

const (
	EventRepositoryChanged EventType = "repository-changed"
	EventCommitsUpdated    EventType = "commits-updated"
	EventBranchesUpdated   EventType = "branches-updated"
	EventHeadChanged       EventType = "head-changed"
)

// Event is one debounced notification.
type Event struct {
	Type      EventType `json:"type"`
	RepoPath  string    `json:"repoPath"`
	Path      string    `json:"path"` // relative to the metadata directory
	Timestamp time.Time `json:"timestamp"`
}

// ChangeHandler is called once per debounced burst of one event type.
type ChangeHandler func(Event)

// Config contains watcher configuration
type Config struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	DebounceMs int  `json:"debounceMs" mapstructure:"debounceMs"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		DebounceMs: 100,
	}
}

// ConfigFrom reads the watcher section of cfg.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Enabled:    cfg.Watcher.Enabled,
		DebounceMs: cfg.Watcher.DebounceMs,
	}
}

// skippedDirs are metadata subdirectories that churn without affecting
// refs, HEAD or the index.
var skippedDirs = map[string]bool{
	"objects": true,
	"logs":    true,
}

// Watcher watches the metadata directories of git repositories
type Watcher struct {
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	repos   map[string]*repoWatcher // repoPath -> watcher

	mu sync.RWMutex
}

// repoWatcher watches a single repository
type repoWatcher struct {
	repoPath string
	gitDir   string
	fs       *fsnotify.Watcher

	events *coalescer

	mu   sync.Mutex
	dirs int

	stopCh chan struct{}
	done   chan struct{}
}

// New creates a new watcher
func New(config Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.DebounceMs <= 0 {
		config.DebounceMs = DefaultConfig().DebounceMs
	}
	return &Watcher{
		config:  config,
		logger:  logger,
		handler: handler,
		repos:   make(map[string]*repoWatcher),
	}
}

// Watch starts watching a repository's metadata directory. A path without
// one is ignored.
func (w *Watcher) Watch(repoPath string) error {
	if !w.config.Enabled {
		return nil
	}
	if abs, err := filepath.Abs(repoPath); err == nil {
		repoPath = abs
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.repos[repoPath]; exists {
		return nil
	}

	gitDir, found := ResolveGitDir(repoPath)
	if !found {
		w.logger.Debug("No metadata directory, not watching", "repoPath", repoPath)
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New(errors.InternalError, "failed to create file watcher", err, nil)
	}

	rw := &repoWatcher{
		repoPath: repoPath,
		gitDir:   gitDir,
		fs:       fsw,
		events:   newCoalescer(time.Duration(w.config.DebounceMs)*time.Millisecond, w.deliver),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	if err := rw.addTree(gitDir); err != nil {
		fsw.Close()
		return errors.New(errors.InternalError, "failed to watch "+gitDir, err, nil)
	}

	w.repos[repoPath] = rw
	go w.loop(rw)

	w.logger.Info("Watching repository",
		"repoPath", repoPath,
		"gitDir", gitDir,
		"dirs", rw.dirCount(),
	)
	return nil
}

// Unwatch stops watching a repository and cancels its pending callbacks.
func (w *Watcher) Unwatch(repoPath string) {
	if abs, err := filepath.Abs(repoPath); err == nil {
		repoPath = abs
	}

	w.mu.Lock()
	rw, exists := w.repos[repoPath]
	delete(w.repos, repoPath)
	w.mu.Unlock()

	if !exists {
		return
	}
	rw.stop()
	w.logger.Info("Stopped watching repository", "repoPath", repoPath)
}

// UnwatchAll stops watching every repository.
func (w *Watcher) UnwatchAll() {
	w.mu.Lock()
	repos := w.repos
	w.repos = make(map[string]*repoWatcher)
	w.mu.Unlock()

	for _, rw := range repos {
		rw.stop()
	}
}

// Stop stops watching
func (w *Watcher) Stop() error {
	w.logger.Info("Stopping file watcher")
	w.UnwatchAll()
	return nil
}

func (w *Watcher) loop(rw *repoWatcher) {
	defer close(rw.done)

	for {
		select {
		case <-rw.stopCh:
			return

		case ev, ok := <-rw.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(rw, ev)

		case err, ok := <-rw.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error",
				"repoPath", rw.repoPath,
				"error", err.Error(),
			)
		}
	}
}

func (w *Watcher) handleEvent(rw *repoWatcher, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}

	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := rw.addTree(ev.Name); err != nil {
				w.logger.Warn("Failed to watch new directory",
					"repoPath", rw.repoPath,
					"dir", ev.Name,
					"error", err.Error(),
				)
			}
		}
	}

	rel, err := filepath.Rel(rw.gitDir, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	for _, t := range Classify(rel) {
		rw.events.Add(Event{Type: t, RepoPath: rw.repoPath, Path: rel})
	}
}

func (w *Watcher) deliver(event Event) {
	w.logger.Debug("Repository change",
		"repoPath", event.RepoPath,
		"type", string(event.Type),
		"path", event.Path,
	)
	if w.handler != nil {
		w.handler(event)
	}
}

// Classify maps a path relative to the metadata directory to the events it
// implies. Lock files and unrelated paths yield nothing.
func Classify(rel string) []EventType {
	if strings.HasSuffix(rel, ".lock") {
		return nil
	}
	switch {
	case rel == "HEAD" || rel == "ORIG_HEAD":
		return []EventType{EventHeadChanged}
	case strings.HasPrefix(rel, "refs") || rel == "packed-refs":
		return []EventType{EventBranchesUpdated, EventCommitsUpdated}
	case rel == "index":
		return []EventType{EventRepositoryChanged, EventCommitsUpdated}
	}
	return nil
}

// WatchedRepos returns the list of watched repository paths
func (w *Watcher) WatchedRepos() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	repos := make([]string, 0, len(w.repos))
	for path := range w.repos {
		repos = append(repos, path)
	}
	sort.Strings(repos)
	return repos
}

// Stats returns watcher statistics
func (w *Watcher) Stats() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()

	dirs := 0
	for _, rw := range w.repos {
		dirs += rw.dirCount()
	}
	return map[string]interface{}{
		"enabled":      w.config.Enabled,
		"watchedRepos": len(w.repos),
		"watchedDirs":  dirs,
		"debounceMs":   w.config.DebounceMs,
	}
}

// ResolveGitDir finds the metadata directory of a working tree: either a
// .git directory or the target of a .git file's "gitdir:" line.
func ResolveGitDir(repoPath string) (string, bool) {
	dotGit := filepath.Join(repoPath, ".git")
	fi, err := os.Stat(dotGit)
	if err != nil {
		return "", false
	}
	if fi.IsDir() {
		return dotGit, true
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", false
	}
	target, found := strings.CutPrefix(strings.TrimSpace(string(data)), "gitdir:")
	if !found {
		return "", false
	}
	target = strings.TrimSpace(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(repoPath, target)
	}
	if fi, err := os.Stat(target); err != nil || !fi.IsDir() {
		return "", false
	}
	return filepath.Clean(target), true
}

// addTree watches root and its subdirectories, skipping skippedDirs
// directly under the metadata directory.
func (rw *repoWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories can vanish while git rewrites refs.
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(rw.gitDir, path); relErr == nil && skippedDirs[filepath.ToSlash(rel)] {
			return filepath.SkipDir
		}
		if err := rw.fs.Add(path); err != nil {
			return err
		}
		rw.mu.Lock()
		rw.dirs++
		rw.mu.Unlock()
		return nil
	})
}

func (rw *repoWatcher) dirCount() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.dirs
}

func (rw *repoWatcher) stop() {
	close(rw.stopCh)
	rw.fs.Close()
	<-rw.done
	rw.events.Stop()
}
