package repo

import (
	"context"
	"strconv"

	"gitnet/internal/model"
	"gitnet/internal/parser"
)

// Status returns the working-tree status. A failure yields a degraded,
// empty status.
func (s *Service) Status(ctx context.Context, repoPath string) Result[*model.WorkingTreeStatus] {
	out, err := s.git(ctx, repoPath, "status", "--porcelain=v1", "-b")
	if err != nil {
		s.logger.Warn("Failed to read status",
			"repoPath", repoPath,
			"error", err.Error(),
		)
		return degraded(&model.WorkingTreeStatus{Files: []model.FileStatus{}}, err)
	}

	st := parser.ParseStatus(out)
	return ok(st, len(st.Files) == 0)
}

// Stashes lists the stash entries, newest first.
func (s *Service) Stashes(ctx context.Context, repoPath string) Result[[]model.Stash] {
	out, err := s.git(ctx, repoPath, "stash", "list", "--format="+parser.StashFormat)
	if err != nil {
		s.logger.Warn("Failed to list stashes",
			"repoPath", repoPath,
			"error", err.Error(),
		)
		return degraded([]model.Stash{}, err)
	}

	stashes := parser.ParseStashList(out)
	return ok(stashes, len(stashes) == 0)
}

// HotFiles returns the most frequently changed paths over the last
// maxCommits commits, optionally bounded by since.
func (s *Service) HotFiles(ctx context.Context, repoPath string, limit int, since string) Result[[]model.HotFile] {
	args := []string{"log", "--numstat", "--format=", "--no-renames", "-n", strconv.Itoa(hotFileWindow)}
	if since != "" {
		args = append(args, "--since="+since)
	}

	out, err := s.git(ctx, repoPath, args...)
	if err != nil {
		if isUnbornHead(err) {
			return ok([]model.HotFile{}, true)
		}
		s.logger.Warn("Failed to compute hot files",
			"repoPath", repoPath,
			"error", err.Error(),
		)
		return degraded([]model.HotFile{}, err)
	}

	files := parser.ParseHotFiles(out, limit)
	return ok(files, len(files) == 0)
}

// hotFileWindow bounds the history scanned for hot files.
const hotFileWindow = 1000

// Contributors returns commit counts per author reachable from HEAD.
func (s *Service) Contributors(ctx context.Context, repoPath string) Result[[]model.Contributor] {
	out, err := s.git(ctx, repoPath, "shortlog", "-sne", "HEAD")
	if err != nil {
		if isUnbornHead(err) {
			return ok([]model.Contributor{}, true)
		}
		s.logger.Warn("Failed to list contributors",
			"repoPath", repoPath,
			"error", err.Error(),
		)
		return degraded([]model.Contributor{}, err)
	}

	contributors := parser.ParseShortlog(out)
	for i := range contributors {
		contributors[i].AvatarURL = s.AvatarURL(contributors[i].Email)
	}
	return ok(contributors, len(contributors) == 0)
}
