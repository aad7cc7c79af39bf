package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"gitnet/internal/errors"
	"gitnet/internal/model"
)

// UnknownBranch is reported when neither a symbolic ref nor a HEAD commit
// can be resolved.
const UnknownBranch = "Unknown"

// Open verifies that path is a git working tree and computes the
// repository state flags. Failures are returned, never degraded.
func (s *Service) Open(ctx context.Context, path string) (*model.RepositoryInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, invalidRepository(path, err)
	}
	if fi, err := os.Stat(abs); err != nil || !fi.IsDir() {
		return nil, invalidRepository(abs, err)
	}

	out, err := s.git(ctx, abs, "rev-parse", "--is-inside-work-tree")
	if err != nil || strings.TrimSpace(out) != "true" {
		return nil, invalidRepository(abs, err)
	}

	top, err := s.git(ctx, abs, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, invalidRepository(abs, err)
	}
	gitDir, err := s.git(ctx, abs, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, invalidRepository(abs, err)
	}

	info := &model.RepositoryInfo{
		Path:   strings.TrimSpace(top),
		GitDir: strings.TrimSpace(gitDir),
	}
	if info.Path == "" {
		info.Path = abs
	}
	info.Name = filepath.Base(info.Path)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info.CurrentBranch, info.IsDetached = s.currentBranch(gctx, info.Path)
		return nil
	})
	g.Go(func() error {
		if out, err := s.git(gctx, info.Path, "rev-parse", "HEAD"); err == nil {
			info.HeadHash = strings.TrimSpace(out)
		}
		return nil
	})
	g.Go(func() error {
		info.IsRebasing = exists(filepath.Join(info.GitDir, "rebase-merge")) ||
			exists(filepath.Join(info.GitDir, "rebase-apply"))
		return nil
	})
	g.Go(func() error {
		info.IsMerging = exists(filepath.Join(info.GitDir, "MERGE_HEAD"))
		return nil
	})
	_ = g.Wait()

	s.logger.Debug("Opened repository",
		"repoPath", info.Path,
		"branch", info.CurrentBranch,
		"detached", info.IsDetached,
	)
	return info, nil
}

// currentBranch resolves the symbolic HEAD, falling back to a short hash
// when detached and to UnknownBranch when even that fails.
func (s *Service) currentBranch(ctx context.Context, repoPath string) (string, bool) {
	if out, err := s.git(ctx, repoPath, "symbolic-ref", "--short", "-q", "HEAD"); err == nil {
		if name := strings.TrimSpace(out); name != "" {
			return name, false
		}
	}
	if out, err := s.git(ctx, repoPath, "rev-parse", "--short", "HEAD"); err == nil {
		if short := strings.TrimSpace(out); short != "" {
			return short, true
		}
	}
	return UnknownBranch, true
}

func invalidRepository(path string, cause error) error {
	return errors.New(
		errors.InvalidRepository,
		"not a valid repository",
		cause,
		errors.GetSuggestedFixes(errors.InvalidRepository),
	).WithDetails(map[string]interface{}{"path": path})
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
