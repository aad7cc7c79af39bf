package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gitnet/internal/model"
)

// StashFormat is the stash list format ParseStashList expects.
const StashFormat = "%gd|%H|%P|%at|%gs"

var (
	aheadPattern  = regexp.MustCompile(`ahead (\d+)`)
	behindPattern = regexp.MustCompile(`behind (\d+)`)
	stashIndex    = regexp.MustCompile(`^stash@\{(\d+)\}$`)
)

// conflictPairs are the XY codes of an unmerged path.
var conflictPairs = map[string]bool{
	"DD": true, "AU": true, "UD": true, "UA": true,
	"DU": true, "AA": true, "UU": true,
}

// ParseStatus parses `status --porcelain=v1 -b`. A path with both staged and
// unstaged changes yields two entries.
func ParseStatus(output string) *model.WorkingTreeStatus {
	status := &model.WorkingTreeStatus{Files: make([]model.FileStatus, 0)}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "## ") {
			parseStatusHeader(status, strings.TrimPrefix(line, "## "))
			continue
		}
		if len(line) < 4 {
			continue
		}

		xy, rest := line[:2], line[3:]
		if xy == "!!" {
			continue
		}

		path, oldPath := rest, ""
		if from, to, ok := strings.Cut(rest, " -> "); ok {
			path, oldPath = to, unquotePath(from)
		}
		path = unquotePath(path)

		switch {
		case xy == "??":
			status.Files = append(status.Files, model.FileStatus{Path: path, Status: model.StateUntracked})
			continue
		case conflictPairs[xy]:
			status.Files = append(status.Files, model.FileStatus{Path: path, Status: model.StateConflicted})
			continue
		}

		if x := xy[0]; x != ' ' {
			status.Files = append(status.Files, model.FileStatus{
				Path:    path,
				OldPath: oldPath,
				Status:  statusCode(x),
				Staged:  true,
			})
		}
		if y := xy[1]; y != ' ' {
			status.Files = append(status.Files, model.FileStatus{
				Path:   path,
				Status: statusCode(y),
			})
		}
	}

	return status
}

func parseStatusHeader(status *model.WorkingTreeStatus, header string) {
	switch {
	case strings.HasPrefix(header, "HEAD (no branch)"):
		status.Detached = true
		return
	case strings.HasPrefix(header, "No commits yet on "):
		status.Branch = strings.TrimPrefix(header, "No commits yet on ")
		return
	case strings.HasPrefix(header, "Initial commit on "):
		status.Branch = strings.TrimPrefix(header, "Initial commit on ")
		return
	}

	tracking := ""
	if idx := strings.Index(header, " ["); idx >= 0 {
		header, tracking = header[:idx], header[idx:]
	}
	if local, upstream, ok := strings.Cut(header, "..."); ok {
		status.Branch, status.Upstream = local, upstream
	} else {
		status.Branch = header
	}

	if m := aheadPattern.FindStringSubmatch(tracking); m != nil {
		status.Ahead, _ = strconv.Atoi(m[1])
	}
	if m := behindPattern.FindStringSubmatch(tracking); m != nil {
		status.Behind, _ = strconv.Atoi(m[1])
	}
}

func statusCode(c byte) model.FileState {
	switch c {
	case 'A':
		return model.StateAdded
	case 'D':
		return model.StateDeleted
	case 'R':
		return model.StateRenamed
	case 'C':
		return model.StateCopied
	case 'T':
		return model.StateTypeChange
	case 'U':
		return model.StateConflicted
	default:
		return model.StateModified
	}
}

// ParseStashList parses `stash list --format=StashFormat`. The first parent
// of a stash commit is the commit it was taken on.
func ParseStashList(output string) []model.Stash {
	stashes := make([]model.Stash, 0)

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 5)
		if len(parts) < 5 {
			continue
		}
		m := stashIndex.FindStringSubmatch(parts[0])
		if m == nil {
			continue
		}
		index, _ := strconv.Atoi(m[1])
		ts, _ := strconv.ParseInt(parts[3], 10, 64)

		base := ""
		if parents := strings.Fields(parts[2]); len(parents) > 0 {
			base = parents[0]
		}

		stashes = append(stashes, model.Stash{
			Index:     index,
			Ref:       parts[0],
			Hash:      parts[1],
			BaseHash:  base,
			Message:   parts[4],
			Timestamp: ts,
		})
	}

	return stashes
}

// ParseShortlog parses `shortlog -sne` output ("   12\tName <email>").
func ParseShortlog(output string) []model.Contributor {
	contributors := make([]model.Contributor, 0)

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		countStr, who, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			continue
		}

		name, email := strings.TrimSpace(who), ""
		if open := strings.LastIndex(who, "<"); open >= 0 && strings.HasSuffix(who, ">") {
			name = strings.TrimSpace(who[:open])
			email = who[open+1 : len(who)-1]
		}

		contributors = append(contributors, model.Contributor{
			Name:    name,
			Email:   email,
			Commits: count,
		})
	}

	return contributors
}

// ParseHotFiles aggregates `log --numstat --format=` output per path and
// returns the most frequently changed files first. A limit of zero or less
// returns every file.
func ParseHotFiles(output string, limit int) []model.HotFile {
	stats := make(map[string]*model.HotFile)

	changes, _, _ := ParseNumstat(output)
	for _, fc := range changes {
		hf, ok := stats[fc.Path]
		if !ok {
			hf = &model.HotFile{Path: fc.Path}
			stats[fc.Path] = hf
		}
		hf.Commits++
		hf.Additions += fc.Additions
		hf.Deletions += fc.Deletions
	}

	files := make([]model.HotFile, 0, len(stats))
	for _, hf := range stats {
		files = append(files, *hf)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Commits != files[j].Commits {
			return files[i].Commits > files[j].Commits
		}
		ci := files[i].Additions + files[i].Deletions
		cj := files[j].Additions + files[j].Deletions
		if ci != cj {
			return ci > cj
		}
		return files[i].Path < files[j].Path
	})

	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files
}
