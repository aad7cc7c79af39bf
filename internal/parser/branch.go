package parser

import (
	"strings"

	"gitnet/internal/model"
)

// BranchListFormat is the for-each-ref format ParseBranchList expects.
const BranchListFormat = "%(refname)|%(objectname)|%(HEAD)|%(upstream:short)"

// Fixed colors for the well-known branch types.
const (
	ColorMain    = "#22c55e"
	ColorDevelop = "#eab308"
	ColorHotfix  = "#ef4444"
	ColorRelease = "#a855f7"
)

// BranchPalette holds the colors handed out to feature and custom branches.
var BranchPalette = []string{
	"#3b82f6",
	"#ec4899",
	"#14b8a6",
	"#f97316",
	"#06b6d4",
	"#84cc16",
	"#6366f1",
	"#d946ef",
	"#0ea5e9",
	"#f43f5e",
}

// StripRemotePrefix removes a leading "remotes/", then a leading "origin/",
// then one leading segment naming a known remote.
func StripRemotePrefix(name string, remotes []string) string {
	name = strings.TrimPrefix(name, "remotes/")
	name = strings.TrimPrefix(name, "origin/")

	if idx := strings.Index(name, "/"); idx > 0 {
		head := name[:idx]
		for _, r := range remotes {
			if r == head {
				return name[idx+1:]
			}
		}
	}
	return name
}

// IsPrimaryBranch reports whether name is main or master.
func IsPrimaryBranch(name string) bool {
	return name == "main" || name == "master"
}

// ClassifyBranchType classifies an already stripped branch name.
func ClassifyBranchType(name string) model.BranchType {
	switch {
	case IsPrimaryBranch(name):
		return model.BranchMain
	case name == "develop" || name == "dev":
		return model.BranchDevelop
	case strings.HasPrefix(name, "feature/"):
		return model.BranchFeature
	case strings.HasPrefix(name, "release/"):
		return model.BranchRelease
	case strings.HasPrefix(name, "hotfix/"):
		return model.BranchHotfix
	default:
		return model.BranchCustom
	}
}

// BranchColor returns the display color of a branch. It depends only on name.
func BranchColor(name string) string {
	switch ClassifyBranchType(name) {
	case model.BranchMain:
		return ColorMain
	case model.BranchDevelop:
		return ColorDevelop
	case model.BranchHotfix:
		return ColorHotfix
	case model.BranchRelease:
		return ColorRelease
	}

	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return BranchPalette[sum%len(BranchPalette)]
}

// ParseBranchList parses for-each-ref output in BranchListFormat over
// refs/heads and refs/remotes. Local and remote refs of the same name merge
// into one Branch. The remote names seen are returned in first-seen order.
func ParseBranchList(output string) ([]model.Branch, []string) {
	branches := make([]model.Branch, 0)
	remotes := make([]string, 0)
	index := make(map[string]int)
	seenRemote := make(map[string]bool)

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) < 2 {
			continue
		}
		for len(parts) < 4 {
			parts = append(parts, "")
		}
		refname, target := parts[0], parts[1]
		current := strings.TrimSpace(parts[2]) == "*"
		upstream := strings.TrimSpace(parts[3])

		var name, remote string
		isLocal := false
		switch {
		case strings.HasPrefix(refname, "refs/heads/"):
			name = strings.TrimPrefix(refname, "refs/heads/")
			isLocal = true
		case strings.HasPrefix(refname, "refs/remotes/"):
			rest := strings.TrimPrefix(refname, "refs/remotes/")
			idx := strings.Index(rest, "/")
			if idx <= 0 {
				continue
			}
			remote, name = rest[:idx], rest[idx+1:]
			if name == "HEAD" {
				continue
			}
			if !seenRemote[remote] {
				seenRemote[remote] = true
				remotes = append(remotes, remote)
			}
		default:
			continue
		}

		if i, ok := index[name]; ok {
			b := &branches[i]
			if isLocal {
				b.IsLocal = true
				b.FullName = refname
				b.Target = target
				b.IsCurrent = b.IsCurrent || current
				if upstream != "" {
					b.Upstream = upstream
				}
			} else {
				b.IsRemote = true
				if b.Remote == "" {
					b.Remote = remote
				}
			}
			continue
		}

		index[name] = len(branches)
		branches = append(branches, model.Branch{
			Name:      name,
			FullName:  refname,
			Type:      ClassifyBranchType(name),
			Target:    target,
			IsLocal:   isLocal,
			IsRemote:  !isLocal,
			IsCurrent: current,
			Remote:    remote,
			Upstream:  upstream,
			Color:     BranchColor(name),
			Lane:      model.NoLane,
		})
	}

	return branches, remotes
}

// BuildTipMap maps each branch target hash to a branch name. When several
// branches share a tip, a primary branch wins, then a local one, then the
// first listed.
func BuildTipMap(branches []model.Branch) map[string]string {
	tips := make(map[string]string, len(branches))
	chosen := make(map[string]model.Branch, len(branches))

	for _, b := range branches {
		if b.Target == "" {
			continue
		}
		prev, ok := chosen[b.Target]
		if ok && !betterTip(b, prev) {
			continue
		}
		chosen[b.Target] = b
		tips[b.Target] = b.Name
	}
	return tips
}

func betterTip(candidate, current model.Branch) bool {
	cp, pp := IsPrimaryBranch(candidate.Name), IsPrimaryBranch(current.Name)
	if cp != pp {
		return cp
	}
	return candidate.IsLocal && !current.IsLocal
}

// ParseTagRefs parses `show-ref --tags -d` output into a hash to tag-names
// map. Peeled "^{}" entries replace the tag object hash with the commit hash.
func ParseTagRefs(output string) model.TagMap {
	targets := make(map[string]string)
	order := make([]string, 0)

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		hash, ref := fields[0], fields[1]
		if !strings.HasPrefix(ref, "refs/tags/") {
			continue
		}
		name := strings.TrimPrefix(ref, "refs/tags/")
		peeled := strings.HasSuffix(name, "^{}")
		name = strings.TrimSuffix(name, "^{}")

		if _, ok := targets[name]; !ok {
			order = append(order, name)
		} else if !peeled {
			continue
		}
		targets[name] = hash
	}

	tags := make(model.TagMap, len(targets))
	for _, name := range order {
		hash := targets[name]
		tags[hash] = append(tags[hash], name)
	}
	return tags
}
