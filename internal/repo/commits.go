package repo

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"gitnet/internal/model"
	"gitnet/internal/parser"
)

// LogOptions selects a page of history.
type LogOptions struct {
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Author string `json:"author,omitempty"` // substring of name or email
	Since  string `json:"since,omitempty"`
	Until  string `json:"until,omitempty"`
	Grep   string `json:"grep,omitempty"` // case-insensitive message search
	Path   string `json:"path,omitempty"`
	// AllRefs walks every ref instead of HEAD only.
	AllRefs bool `json:"allRefs,omitempty"`
}

// logArgs builds the log invocation for opts.
func (s *Service) logArgs(opts LogOptions) []string {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.Log.DefaultLimit
	}

	args := []string{
		"log",
		"--format=" + parser.LogFormat,
		"--date-order",
		"-n", strconv.Itoa(limit),
	}
	if opts.Offset > 0 {
		args = append(args, "--skip="+strconv.Itoa(opts.Offset))
	}
	if opts.AllRefs {
		// Stashes reach the graph through Stashes, not as log entries.
		args = append(args, "--exclude=refs/stash", "--all")
	}
	if opts.Author != "" {
		args = append(args, "--author="+regexp.QuoteMeta(opts.Author))
	}
	if opts.Since != "" {
		args = append(args, "--since="+opts.Since)
	}
	if opts.Until != "" {
		args = append(args, "--until="+opts.Until)
	}
	if opts.Grep != "" {
		args = append(args, "--grep="+opts.Grep, "--regexp-ignore-case")
	}
	if opts.Path != "" {
		args = append(args, "--", opts.Path)
	}
	return args
}

// Commits returns a page of history, newest first, with branches inferred
// and tags and avatars attached. Any failure yields a degraded empty list.
func (s *Service) Commits(ctx context.Context, repoPath string, opts LogOptions) Result[[]model.Commit] {
	var (
		logOut   string
		branches branchList
		tags     model.TagMap
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.git(gctx, repoPath, s.logArgs(opts)...)
		logOut = out
		return err
	})
	g.Go(func() error {
		// Branch and tag listings fail open.
		branches, _ = s.branchList(gctx, repoPath)
		return nil
	})
	g.Go(func() error {
		tags, _ = s.tagMap(gctx, repoPath)
		return nil
	})

	if err := g.Wait(); err != nil {
		if isUnbornHead(err) {
			return ok([]model.Commit{}, true)
		}
		s.logger.Warn("Failed to load commit log",
			"repoPath", repoPath,
			"error", err.Error(),
		)
		return degraded([]model.Commit{}, err)
	}

	tips := parser.BuildTipMap(branches.branches)
	commits := parser.ParseLog(logOut, tips, branches.remotes)
	for i := range commits {
		commits[i].Tags = mergeTags(commits[i].Tags, tags[commits[i].Hash])
		s.attachAvatar(&commits[i])
	}

	return ok(commits, len(commits) == 0)
}

func (s *Service) attachAvatar(c *model.Commit) {
	url := s.AvatarURL(c.Author.Email)
	c.Author.AvatarURL = url
	c.Committer.AvatarURL = url
}

// isUnbornHead reports whether err is git refusing to walk a repository
// that has no commits yet.
func isUnbornHead(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "does not have any commits yet") ||
		strings.Contains(msg, "ambiguous argument 'HEAD'")
}

// mergeTags returns the union of a and b, preserving first-seen order.
func mergeTags(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, t := range list {
			if t = strings.TrimSpace(t); t != "" && !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}
