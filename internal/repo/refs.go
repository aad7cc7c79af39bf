package repo

import (
	"context"
	"strings"

	"gitnet/internal/executor"
	"gitnet/internal/model"
	"gitnet/internal/parser"
)

// Branches lists local and remote branches. Results are cached per
// repository; a failed listing is returned empty and not cached.
func (s *Service) Branches(ctx context.Context, repoPath string) Result[[]model.Branch] {
	list, err := s.branchList(ctx, repoPath)
	if err != nil {
		return degraded([]model.Branch{}, err)
	}
	return ok(list.branches, len(list.branches) == 0)
}

func (s *Service) branchList(ctx context.Context, repoPath string) (branchList, error) {
	key := cacheKey(repoPath)
	if cached, found := s.branches.Get(key); found {
		return cached, nil
	}

	out, err := s.git(ctx, repoPath,
		"for-each-ref",
		"--format="+parser.BranchListFormat,
		"refs/heads",
		"refs/remotes",
	)
	if err != nil {
		s.logger.Warn("Failed to list branches",
			"repoPath", key,
			"error", err.Error(),
		)
		return branchList{branches: []model.Branch{}}, err
	}

	branches, remotes := parser.ParseBranchList(out)
	list := branchList{branches: branches, remotes: remotes}
	s.branches.Add(key, list)
	return list, nil
}

// Tags returns the commit hash to tag names map. Results are cached per
// repository; a failed listing is returned empty and not cached.
func (s *Service) Tags(ctx context.Context, repoPath string) Result[model.TagMap] {
	tags, err := s.tagMap(ctx, repoPath)
	if err != nil {
		return degraded(model.TagMap{}, err)
	}
	return ok(tags, len(tags) == 0)
}

func (s *Service) tagMap(ctx context.Context, repoPath string) (model.TagMap, error) {
	key := cacheKey(repoPath)
	if cached, found := s.tags.Get(key); found {
		return cached, nil
	}

	out, err := s.git(ctx, repoPath, "show-ref", "--tags", "-d")
	if err != nil {
		// show-ref exits 1 without output when there are no tags.
		if code, isExit := executor.ExitCode(err); !isExit || code != 1 {
			s.logger.Warn("Failed to list tags",
				"repoPath", key,
				"error", err.Error(),
			)
			return model.TagMap{}, err
		}
		out = ""
	}

	tags := parser.ParseTagRefs(out)
	s.tags.Add(key, tags)
	return tags, nil
}

// refNames turns `--format=%(refname)` branch output into stripped,
// de-duplicated branch names.
func refNames(output string) []string {
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		ref := strings.TrimSpace(line)
		var name string
		switch {
		case strings.HasPrefix(ref, "refs/heads/"):
			name = strings.TrimPrefix(ref, "refs/heads/")
		case strings.HasPrefix(ref, "refs/remotes/"):
			rest := strings.TrimPrefix(ref, "refs/remotes/")
			idx := strings.Index(rest, "/")
			if idx <= 0 {
				continue
			}
			name = rest[idx+1:]
		default:
			continue
		}
		if name == "" || name == "HEAD" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
