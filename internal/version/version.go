// Package version reports the gitnet build.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Overridable with -ldflags "-X gitnet/internal/version.Version=...".
var (
	Version   = "0.1.0"
	Commit    = ""
	BuildDate = ""
)

// Build is the resolved build metadata.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
	BuildDate string `json:"buildDate,omitempty"`
	GoVersion string `json:"goVersion"`
}

// Current merges the ldflags values with the VCS stamp the Go toolchain
// embeds. Explicit ldflags win.
func Current() Build {
	b := Build{Version: Version, Commit: Commit, BuildDate: BuildDate, GoVersion: runtime.Version()}
	if info, ok := debug.ReadBuildInfo(); ok {
		b = fromSettings(b, info.Settings)
	}
	return b
}

func fromSettings(b Build, settings []debug.BuildSetting) Build {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.BuildDate == "" {
				b.BuildDate = s.Value
			}
		case "vcs.modified":
			b.Dirty = s.Value == "true"
		}
	}
	return b
}

// Short is the version with an abbreviated commit, e.g. "0.1.0 (3f2a9c1)".
func (b Build) Short() string {
	if len(b.Commit) < 7 {
		return b.Version
	}
	s := b.Version + " (" + b.Commit[:7]
	if b.Dirty {
		s += "-dirty"
	}
	return s + ")"
}

// Full is the multi-line form printed by `gitnet version`.
func Full() string {
	b := Current()
	commit, date := b.Commit, b.BuildDate
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("gitnet version %s\nCommit: %s\nBuilt: %s\nGo: %s", b.Short(), commit, date, b.GoVersion)
}
