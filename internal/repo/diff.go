package repo

import (
	"context"
	"fmt"
	"strings"

	"gitnet/internal/errors"
	"gitnet/internal/model"
	"gitnet/internal/parser"
)

// DiffRequest selects a diff. With Hash set it is the change introduced by
// that commit; otherwise it is the working tree against the index, or the
// index against HEAD when Staged is set.
type DiffRequest struct {
	Hash   string `json:"hash,omitempty"`
	File   string `json:"file,omitempty"`
	Staged bool   `json:"staged,omitempty"`
}

func (r DiffRequest) args(numstat bool) []string {
	var args []string
	if r.Hash != "" {
		args = []string{"show", "--format=", "--find-renames"}
	} else {
		args = []string{"diff", "--find-renames"}
		if r.Staged {
			args = append(args, "--cached")
		}
	}
	if numstat {
		args = append(args, "--numstat")
	}
	if r.Hash != "" {
		args = append(args, r.Hash)
	}
	if r.File != "" {
		args = append(args, "--", r.File)
	}
	return args
}

// Diff fetches the numstat summary first and only materializes the full
// diff when it is textual and no larger than the preview limit.
func (s *Service) Diff(ctx context.Context, repoPath string, req DiffRequest) (*model.DiffResult, error) {
	if req.Hash != "" {
		if err := validateRev("hash", req.Hash); err != nil {
			return nil, err
		}
	}

	out, err := s.git(ctx, repoPath, req.args(true)...)
	if err != nil {
		return nil, notFoundOr(err, req.Hash)
	}

	files, additions, deletions := parser.ParseNumstat(out)
	if len(files) == 0 {
		return &model.DiffResult{Kind: model.DiffEmpty}, nil
	}
	for _, f := range files {
		if f.Binary {
			return &model.DiffResult{
				Kind:    model.DiffBinary,
				Message: fmt.Sprintf("Binary file %s, no preview available", f.Path),
			}, nil
		}
	}

	total := additions + deletions
	if total > s.cfg.Diff.MaxPreviewLines {
		return tooLarge(additions, deletions), nil
	}

	text, err := s.git(ctx, repoPath, req.args(false)...)
	if err != nil {
		if errors.IsCode(err, errors.OutputTooLarge) {
			return tooLarge(additions, deletions), nil
		}
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return &model.DiffResult{Kind: model.DiffEmpty}, nil
	}
	return &model.DiffResult{
		Kind:      model.DiffText,
		Text:      text,
		Additions: additions,
		Deletions: deletions,
	}, nil
}

func tooLarge(additions, deletions int) *model.DiffResult {
	return &model.DiffResult{
		Kind:      model.DiffTooLarge,
		Additions: additions,
		Deletions: deletions,
		Message:   fmt.Sprintf("Diff too large to display (%d lines changed)", additions+deletions),
	}
}
