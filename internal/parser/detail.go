package parser

import (
	"fmt"
	"strconv"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"gitnet/internal/model"
)

// DetailFormat is the header format ParseCommitDetail expects.
const DetailFormat = "%H|%P|%an|%ae|%at|%s"

// ParseCommitDetail parses `show --numstat [--patch] --format=DetailFormat`.
// Numstat lines are read until the first "diff --git" marker; the remaining
// unified diff, when present, decides each file's status. Without a patch
// every file is reported as modified.
func ParseCommitDetail(output string) (model.Commit, error) {
	output = strings.TrimLeft(output, "\n")
	header, body, _ := strings.Cut(output, "\n")
	header = strings.TrimRight(header, "\r")

	parts := strings.SplitN(header, "|", 6)
	if len(parts) < 6 || strings.TrimSpace(parts[0]) == "" {
		return model.Commit{}, fmt.Errorf("malformed commit header: %q", header)
	}
	timestamp, err := strconv.ParseInt(strings.TrimSpace(parts[4]), 10, 64)
	if err != nil {
		return model.Commit{}, fmt.Errorf("malformed commit header: bad timestamp %q", parts[4])
	}

	stats, patch := body, ""
	if idx := indexDiffMarker(body); idx >= 0 {
		stats, patch = body[:idx], body[idx:]
	}

	files, additions, deletions := ParseNumstat(stats)
	if patch != "" {
		applyPatchStatus(files, patch)
	}

	hash := strings.TrimSpace(parts[0])
	author := model.Person{Name: parts[2], Email: parts[3]}
	parents := strings.Fields(parts[1])
	if parents == nil {
		parents = []string{}
	}

	return model.Commit{
		Hash:      hash,
		ShortHash: model.ShortHash(hash),
		Parents:   parents,
		Message:   parts[5],
		Subject:   parts[5],
		Type:      ClassifyCommitType(parts[5]),
		Author:    author,
		Committer: author,
		Timestamp: timestamp,
		IsMerge:   len(parents) > 1,
		Files:     files,
		Additions: additions,
		Deletions: deletions,
	}, nil
}

func indexDiffMarker(body string) int {
	if strings.HasPrefix(body, "diff --git ") {
		return 0
	}
	if idx := strings.Index(body, "\ndiff --git "); idx >= 0 {
		return idx + 1
	}
	return -1
}

// ParseNumstat parses `added\tdeleted\tpath` lines. Binary entries ("-\t-")
// count as zero lines. Rename notation resolves to the new path.
func ParseNumstat(output string) ([]model.FileChange, int, int) {
	files := make([]model.FileChange, 0)
	var additions, deletions int

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		fc := model.FileChange{Status: model.FileModified}
		if parts[0] == "-" && parts[1] == "-" {
			fc.Binary = true
		} else {
			added, err1 := strconv.Atoi(parts[0])
			deleted, err2 := strconv.Atoi(parts[1])
			if err1 != nil || err2 != nil {
				continue
			}
			fc.Additions, fc.Deletions = added, deleted
		}

		fc.Path, fc.OldPath = resolveRename(unquotePath(parts[2]))
		if fc.OldPath != "" {
			fc.Status = model.FileRenamed
		}

		additions += fc.Additions
		deletions += fc.Deletions
		files = append(files, fc)
	}

	return files, additions, deletions
}

// resolveRename expands "old => new" and "dir/{a => b}/f" into the new and
// old paths. Paths without rename notation are returned with an empty old path.
func resolveRename(path string) (string, string) {
	if open := strings.Index(path, "{"); open >= 0 {
		if end := strings.Index(path[open:], "}"); end > 0 {
			end += open
			inner := path[open+1 : end]
			if from, to, ok := strings.Cut(inner, " => "); ok {
				prefix, suffix := path[:open], path[end+1:]
				newPath := joinRenamePart(prefix, to, suffix)
				oldPath := joinRenamePart(prefix, from, suffix)
				return newPath, oldPath
			}
		}
	}
	if from, to, ok := strings.Cut(path, " => "); ok {
		return to, from
	}
	return path, ""
}

// joinRenamePart rebuilds a path around an empty brace side without
// leaving a doubled slash ("a/{ => b}/c" becomes "a/b/c" or "a/c").
func joinRenamePart(prefix, middle, suffix string) string {
	if middle == "" {
		return prefix + strings.TrimPrefix(suffix, "/")
	}
	return prefix + middle + suffix
}

// unquotePath undoes git's C-style quoting of unusual paths.
func unquotePath(path string) string {
	if len(path) >= 2 && strings.HasPrefix(path, `"`) && strings.HasSuffix(path, `"`) {
		if unq, err := strconv.Unquote(path); err == nil {
			return unq
		}
	}
	return path
}

// applyPatchStatus derives added/deleted/renamed/copied status from the
// unified diff. An unparsable patch leaves the numstat status untouched.
func applyPatchStatus(files []model.FileChange, patch string) {
	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(patch))
	if err != nil {
		return
	}

	byPath := make(map[string]int, len(files))
	for i, f := range files {
		byPath[f.Path] = i
	}

	for _, fd := range fileDiffs {
		path, oldPath, status := fileDiffStatus(fd)
		i, ok := byPath[path]
		if !ok {
			continue
		}
		files[i].Status = status
		if oldPath != "" && oldPath != path {
			files[i].OldPath = oldPath
		}
	}
}

func fileDiffStatus(fd *godiff.FileDiff) (string, string, model.FileChangeStatus) {
	oldPath, newPath := cleanDiffPath(fd.OrigName), cleanDiffPath(fd.NewName)
	status := model.FileModified

	for _, ext := range fd.Extended {
		switch {
		case strings.HasPrefix(ext, "new file mode"):
			status = model.FileAdded
		case strings.HasPrefix(ext, "deleted file mode"):
			status = model.FileDeleted
		case strings.HasPrefix(ext, "rename from "):
			status = model.FileRenamed
			oldPath = unquotePath(strings.TrimPrefix(ext, "rename from "))
		case strings.HasPrefix(ext, "rename to "):
			newPath = unquotePath(strings.TrimPrefix(ext, "rename to "))
		case strings.HasPrefix(ext, "copy from "):
			status = model.FileCopied
			oldPath = unquotePath(strings.TrimPrefix(ext, "copy from "))
		case strings.HasPrefix(ext, "copy to "):
			newPath = unquotePath(strings.TrimPrefix(ext, "copy to "))
		}
	}

	if fd.OrigName == "/dev/null" {
		status = model.FileAdded
		oldPath = ""
	}
	if fd.NewName == "/dev/null" {
		status = model.FileDeleted
		newPath = oldPath
	}
	if status == model.FileModified && oldPath != "" && newPath != "" && oldPath != newPath {
		status = model.FileRenamed
	}

	return newPath, oldPath, status
}

// cleanDiffPath removes the a/ or b/ prefix from git diff paths
func cleanDiffPath(path string) string {
	path = unquotePath(path)
	if path == "" || path == "/dev/null" {
		return ""
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}
