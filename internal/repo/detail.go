package repo

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"gitnet/internal/errors"
	"gitnet/internal/executor"
	"gitnet/internal/model"
	"gitnet/internal/parser"
)

// CommitDetail assembles one commit with its file changes, full message,
// containing tags and branches, and the branches it is the tip of. The
// header query's failure is returned; the enrichment queries fail soft.
func (s *Service) CommitDetail(ctx context.Context, repoPath, hash string) (*model.Commit, error) {
	if err := validateRev("hash", hash); err != nil {
		return nil, err
	}

	var (
		commit      model.Commit
		body        string
		tags        []string
		containedIn []string
		headOf      []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.showCommit(gctx, repoPath, hash)
		if err != nil {
			return err
		}
		commit = c
		return nil
	})
	g.Go(func() error {
		if out, err := s.git(gctx, repoPath, "log", "-1", "--format=%B", hash); err == nil {
			body = strings.TrimRight(out, "\n")
		}
		return nil
	})
	g.Go(func() error {
		if out, err := s.git(gctx, repoPath, "tag", "--contains", hash); err == nil {
			tags = executor.Lines(out)
		}
		return nil
	})
	g.Go(func() error {
		if out, err := s.git(gctx, repoPath, "branch", "-a", "--contains", hash, "--format=%(refname)"); err == nil {
			containedIn = refNames(out)
		}
		return nil
	})
	g.Go(func() error {
		if out, err := s.git(gctx, repoPath, "branch", "-a", "--points-at", hash, "--format=%(refname)"); err == nil {
			headOf = refNames(out)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if body != "" {
		commit.Message = body
	}
	commit.Tags = mergeTags(commit.Tags, tags)
	commit.ContainedIn = containedIn
	commit.HeadOf = headOf
	if len(headOf) > 0 {
		commit.Branch = headOf[0]
	} else if len(containedIn) > 0 {
		commit.Branch = containedIn[0]
	}
	s.attachAvatar(&commit)

	return &commit, nil
}

// showCommit runs show with the patch, retrying without it when the patch
// exceeds the output ceiling.
func (s *Service) showCommit(ctx context.Context, repoPath, hash string) (model.Commit, error) {
	base := []string{"show", "--numstat", "--find-renames", "--format=" + parser.DetailFormat}

	out, err := s.git(ctx, repoPath, append(append(base, "--patch"), hash)...)
	if errors.IsCode(err, errors.OutputTooLarge) {
		s.logger.Debug("Commit patch too large, falling back to numstat",
			"repoPath", repoPath,
			"hash", hash,
		)
		out, err = s.git(ctx, repoPath, append(base, hash)...)
	}
	if err != nil {
		return model.Commit{}, notFoundOr(err, hash)
	}

	c, err := parser.ParseCommitDetail(out)
	if err != nil {
		return model.Commit{}, errors.New(errors.InternalError, "Failed to parse commit", err, nil)
	}
	return c, nil
}

// notFoundOr maps git's unknown-object failures to NOT_FOUND.
func notFoundOr(err error, rev string) error {
	if !errors.IsCode(err, errors.CommandFailed) {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "unknown revision") ||
		strings.Contains(msg, "bad object") ||
		strings.Contains(msg, "bad revision") {
		return errors.New(errors.NotFound, "commit not found: "+rev, err, nil)
	}
	return err
}
