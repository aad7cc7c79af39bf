// Package parser converts git's textual output into model entities.
//
// Every function here is pure: no process is spawned and no state is kept
// between calls.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gitnet/internal/model"
)

// LogFormat is the pretty format ParseLogLine expects. The subject may
// contain the separator; the decoration is split from the right.
const LogFormat = "%H|%P|%an|%ae|%at|%s|%D"

// conventionalPrefix matches "word:", "word(scope):" and "word!:".
var conventionalPrefix = regexp.MustCompile(`^([A-Za-z]+)(\([^)]*\))?!?:`)

var commitTypes = map[string]model.CommitType{
	"feat":     model.CommitFeat,
	"fix":      model.CommitFix,
	"docs":     model.CommitDocs,
	"style":    model.CommitStyle,
	"refactor": model.CommitRefactor,
	"perf":     model.CommitPerf,
	"test":     model.CommitTest,
	"chore":    model.CommitChore,
	"revert":   model.CommitRevert,
}

// ClassifyCommitType returns the conventional-commit type of a message.
func ClassifyCommitType(message string) model.CommitType {
	msg := strings.TrimSpace(message)
	if strings.HasPrefix(strings.ToLower(msg), "revert") {
		return model.CommitRevert
	}

	m := conventionalPrefix.FindStringSubmatch(msg)
	if m == nil {
		return model.CommitOther
	}
	if t, ok := commitTypes[strings.ToLower(m[1])]; ok {
		return t
	}
	return model.CommitOther
}

// ParseLogLine parses one line produced with LogFormat. Branch inference is
// not applied; see ParseLog.
func ParseLogLine(line string) (model.Commit, error) {
	parts := strings.SplitN(line, "|", 6)
	if len(parts) < 6 {
		return model.Commit{}, fmt.Errorf("malformed log line: expected 7 fields, got %d", len(parts))
	}

	hash := strings.TrimSpace(parts[0])
	if hash == "" {
		return model.Commit{}, fmt.Errorf("malformed log line: empty hash")
	}

	timestamp, err := strconv.ParseInt(strings.TrimSpace(parts[4]), 10, 64)
	if err != nil {
		return model.Commit{}, fmt.Errorf("malformed log line: bad timestamp %q", parts[4])
	}

	subject, refs := parts[5], ""
	if idx := strings.LastIndex(parts[5], "|"); idx >= 0 {
		subject, refs = parts[5][:idx], strings.TrimSpace(parts[5][idx+1:])
	}

	author := model.Person{Name: parts[2], Email: parts[3]}
	parents := strings.Fields(parts[1])
	if parents == nil {
		parents = []string{}
	}

	return model.Commit{
		Hash:      hash,
		ShortHash: model.ShortHash(hash),
		Parents:   parents,
		Message:   subject,
		Subject:   subject,
		Type:      ClassifyCommitType(subject),
		Author:    author,
		Committer: author,
		Timestamp: timestamp,
		IsMerge:   len(parents) > 1,
		Tags:      DecorationTags(refs),
		Refs:      refs,
	}, nil
}

// ParseLog parses a newest-first log and attributes branches to commits.
// Malformed lines are skipped.
func ParseLog(output string, tips map[string]string, remotes []string) []model.Commit {
	commits := make([]model.Commit, 0)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		c, err := ParseLogLine(line)
		if err != nil {
			continue
		}
		commits = append(commits, c)
	}
	return InferBranches(commits, tips, remotes)
}

// decorationEntries splits a %D decoration into its entries.
func decorationEntries(refs string) []string {
	if strings.TrimSpace(refs) == "" {
		return nil
	}
	raw := strings.Split(refs, ",")
	entries := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			entries = append(entries, r)
		}
	}
	return entries
}

// DecorationTags returns the tag names found in a decoration.
func DecorationTags(refs string) []string {
	var tags []string
	for _, e := range decorationEntries(refs) {
		if strings.HasPrefix(e, "tag: ") {
			tags = append(tags, strings.TrimSpace(strings.TrimPrefix(e, "tag: ")))
		}
	}
	return tags
}

// DecorationBranch returns the first branch named in a decoration, with
// remote prefixes stripped. Tags, bare HEAD markers and refs outside
// heads and remotes (refs/stash, refs/notes/*) are skipped.
func DecorationBranch(refs string, remotes []string) string {
	for _, e := range decorationEntries(refs) {
		if strings.HasPrefix(e, "tag: ") || strings.HasPrefix(e, "refs/") {
			continue
		}
		if strings.HasPrefix(e, "HEAD -> ") {
			e = strings.TrimSpace(strings.TrimPrefix(e, "HEAD -> "))
		}
		if e == "HEAD" || strings.HasSuffix(e, "/HEAD") {
			continue
		}
		if name := StripRemotePrefix(e, remotes); name != "" {
			return name
		}
	}
	return ""
}
