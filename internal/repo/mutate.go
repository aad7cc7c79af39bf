package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gitnet/internal/errors"
)

// Stage adds files to the index; with no files every change is staged.
func (s *Service) Stage(ctx context.Context, repoPath string, files ...string) error {
	args := []string{"add", "-A"}
	if len(files) > 0 {
		args = append([]string{"add", "--"}, files...)
	}
	return s.mutate(ctx, repoPath, args...)
}

// Unstage removes files from the index, keeping working-tree changes.
func (s *Service) Unstage(ctx context.Context, repoPath string, files ...string) error {
	args := append([]string{"reset", "-q", "--"}, files...)
	return s.mutate(ctx, repoPath, args...)
}

// Discard restores tracked files to their indexed content.
func (s *Service) Discard(ctx context.Context, repoPath string, files ...string) error {
	if len(files) == 0 {
		return errors.New(errors.ValidationFailed, "no files to discard", nil, nil)
	}
	return s.mutate(ctx, repoPath, append([]string{"checkout", "--"}, files...)...)
}

// Clean deletes untracked files.
func (s *Service) Clean(ctx context.Context, repoPath string, files ...string) error {
	if len(files) == 0 {
		return errors.New(errors.ValidationFailed, "no files to clean", nil, nil)
	}
	return s.mutate(ctx, repoPath, append([]string{"clean", "-f", "--"}, files...)...)
}

// Commit records the index. An empty message is rejected before git runs.
func (s *Service) Commit(ctx context.Context, repoPath, message string, amend bool) error {
	if strings.TrimSpace(message) == "" {
		return errors.New(errors.ValidationFailed, "commit message must not be empty", nil, nil)
	}
	args := []string{"commit", "-m", message}
	if amend {
		args = append(args, "--amend")
	}
	return s.mutate(ctx, repoPath, args...)
}

// Push pushes branch to remote.
func (s *Service) Push(ctx context.Context, repoPath, remote, branch string, setUpstream bool) error {
	if remote == "" {
		remote = "origin"
	}
	if err := validateRev("remote", remote); err != nil {
		return err
	}
	args := []string{"push"}
	if setUpstream {
		args = append(args, "-u")
	}
	args = append(args, remote)
	if branch != "" {
		if err := validateRev("branch", branch); err != nil {
			return err
		}
		args = append(args, branch)
	}
	return s.mutate(ctx, repoPath, args...)
}

// Checkout switches to ref. Failures are returned to the caller.
func (s *Service) Checkout(ctx context.Context, repoPath, ref string) error {
	if err := validateRev("ref", ref); err != nil {
		return err
	}
	return s.mutate(ctx, repoPath, "checkout", ref)
}

// StashApply applies stash@{index} without dropping it.
func (s *Service) StashApply(ctx context.Context, repoPath string, index int) error {
	ref, err := stashRef(index)
	if err != nil {
		return err
	}
	return s.mutate(ctx, repoPath, "stash", "apply", ref)
}

// StashDrop deletes stash@{index}.
func (s *Service) StashDrop(ctx context.Context, repoPath string, index int) error {
	ref, err := stashRef(index)
	if err != nil {
		return err
	}
	return s.mutate(ctx, repoPath, "stash", "drop", ref)
}

// Clone clones url into dest. The parent of dest must exist.
func (s *Service) Clone(ctx context.Context, url, dest string) error {
	if strings.TrimSpace(url) == "" || strings.HasPrefix(url, "-") {
		return errors.New(errors.ValidationFailed, "invalid clone url", nil, nil)
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return errors.New(errors.ValidationFailed, "invalid clone destination", err, nil)
	}
	if _, err := os.Stat(abs); err == nil {
		return errors.New(errors.ValidationFailed, "clone destination already exists: "+abs, nil, nil)
	}

	_, err = s.git(ctx, filepath.Dir(abs), "clone", "--", url, abs)
	return err
}

func stashRef(index int) (string, error) {
	if index < 0 {
		return "", errors.New(errors.ValidationFailed, "stash index must not be negative", nil, nil)
	}
	return fmt.Sprintf("stash@{%d}", index), nil
}

// mutate runs a state-changing command and drops the repository's cached
// branch list and tag map.
func (s *Service) mutate(ctx context.Context, repoPath string, args ...string) error {
	defer s.Invalidate(repoPath)

	if _, err := s.git(ctx, repoPath, args...); err != nil {
		s.logger.Info("Git command failed",
			"repoPath", repoPath,
			"command", args[0],
			"error", err.Error(),
		)
		return err
	}
	return nil
}
