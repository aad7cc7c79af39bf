// Package repo implements the repository data service: read and mutate
// operations over a working tree, each built from one or more git
// invocations, plus the branch, tag and avatar caches.
package repo

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"gitnet/internal/config"
	"gitnet/internal/executor"
	"gitnet/internal/errors"
	"gitnet/internal/model"
)

// branchList is the cached value of a branch enumeration.
type branchList struct {
	branches []model.Branch
	remotes  []string
}

// Service is the repository data service. Caches belong to the instance and
// live as long as it does.
type Service struct {
	runner executor.Runner
	cfg    *config.Config
	logger *slog.Logger

	branches *expirable.LRU[string, branchList]
	tags     *expirable.LRU[string, model.TagMap]
	avatars  *lru.Cache[string, string]

	mu          sync.RWMutex
	githubUsers map[string]string
}

// New creates a Service running git through runner.
func New(runner executor.Runner, cfg *config.Config, logger *slog.Logger) *Service {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	avatars, err := lru.New[string, string](cfg.Cache.AvatarMaxEntries)
	if err != nil {
		// Only a non-positive size fails; fall back to the default.
		avatars, _ = lru.New[string, string](config.DefaultConfig().Cache.AvatarMaxEntries)
	}

	return &Service{
		runner: runner,
		cfg:    cfg,
		logger: logger,
		branches: expirable.NewLRU[string, branchList](
			cfg.Cache.BranchMaxEntries,
			nil,
			time.Duration(cfg.Cache.BranchTtlSeconds)*time.Second,
		),
		tags: expirable.NewLRU[string, model.TagMap](
			cfg.Cache.TagMaxEntries,
			nil,
			time.Duration(cfg.Cache.TagTtlSeconds)*time.Second,
		),
		avatars:     avatars,
		githubUsers: make(map[string]string),
	}
}

// Invalidate drops the cached branch list and tag map of one repository.
func (s *Service) Invalidate(repoPath string) {
	key := cacheKey(repoPath)
	s.branches.Remove(key)
	s.tags.Remove(key)
	s.logger.Debug("Invalidated repository caches", "repoPath", key)
}

// ClearCaches empties every cache owned by the service.
func (s *Service) ClearCaches() {
	s.branches.Purge()
	s.tags.Purge()
	s.avatars.Purge()
}

// git runs one command in the repository.
func (s *Service) git(ctx context.Context, repoPath string, args ...string) (string, error) {
	return s.runner.Run(ctx, repoPath, args...)
}

func cacheKey(repoPath string) string {
	if abs, err := filepath.Abs(repoPath); err == nil {
		return abs
	}
	return filepath.Clean(repoPath)
}

// validateRev rejects revisions that git would read as options.
func validateRev(field, rev string) error {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		return errors.New(errors.ValidationFailed, field+" is required", nil, nil)
	}
	if strings.HasPrefix(rev, "-") {
		return errors.New(errors.ValidationFailed, field+" must not start with '-'", nil, nil)
	}
	return nil
}
