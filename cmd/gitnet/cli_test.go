package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gitnet/internal/errors"
	"gitnet/internal/graph"
	"gitnet/internal/model"
	"gitnet/internal/session"
	"gitnet/internal/testutil"
	"gitnet/internal/watcher"
)

func TestRelativeTime(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{-time.Hour, "in the future"},
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{2 * 24 * time.Hour, "2 days ago"},
		{60 * 24 * time.Hour, "2 months ago"},
		{800 * 24 * time.Hour, "2 years ago"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := relativeTime(now.Add(-tt.ago).Unix(), now); got != tt.want {
				t.Errorf("relativeTime(-%s) = %q, want %q", tt.ago, got, tt.want)
			}
		})
	}
}

func TestCommitLine(t *testing.T) {
	now := time.Unix(1700003600, 0)
	c := model.Commit{
		ShortHash: "abc1234",
		Branch:    "main",
		Tags:      []string{"v1.0"},
		Subject:   "feat: graph export",
		Author:    model.Person{Name: "Jane"},
		Timestamp: 1700000000,
	}
	line := commitLine(c, now)
	for _, want := range []string{"abc1234", "[main]", "(v1.0)", "feat: graph export", "Jane, 1 hour ago"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestPrintBranches(t *testing.T) {
	branches := []model.Branch{
		{Name: "zeta", Target: "2222222222", IsLocal: true},
		{Name: "main", Target: "1111111111", IsLocal: true, IsCurrent: true, Upstream: "origin/main"},
		{Name: "remote-only", Target: "3333333333", IsRemote: true, Remote: "origin"},
	}

	var buf bytes.Buffer
	printBranches(&buf, branches, false)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "* ") || !strings.Contains(lines[0], "main") || !strings.Contains(lines[0], "-> origin/main") {
		t.Errorf("current branch line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "zeta") || !strings.Contains(lines[1], "2222222") {
		t.Errorf("second line = %q", lines[1])
	}

	buf.Reset()
	printBranches(&buf, branches, true)
	if !strings.Contains(buf.String(), "remote-only") || !strings.Contains(buf.String(), "(origin)") {
		t.Errorf("remote listing = %q", buf.String())
	}
}

func TestPrintStatus(t *testing.T) {
	info := &model.RepositoryInfo{HeadHash: "1234567890"}

	var buf bytes.Buffer
	printStatus(&buf, info, &model.WorkingTreeStatus{Branch: "main"})
	if !strings.Contains(buf.String(), "working tree clean") {
		t.Errorf("clean status = %q", buf.String())
	}

	buf.Reset()
	printStatus(&buf, info, &model.WorkingTreeStatus{
		Branch: "main",
		Files: []model.FileStatus{
			{Path: "a.txt", Status: model.StateModified, Staged: true},
			{Path: "b.txt", Status: model.StateUntracked},
			{Path: "new.txt", OldPath: "old.txt", Status: model.StateRenamed, Staged: true},
		},
	})
	out := buf.String()
	for _, want := range []string{"Staged:", "M a.txt", "R old.txt -> new.txt", "Not staged:", "? b.txt"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func sampleGraph() *graph.VisualizationData {
	return graph.Layout(graph.Input{
		Commits: []model.Commit{
			{Hash: "bbbbbbbbbb", ShortHash: "bbbbbbb", Parents: []string{"aaaaaaaaaa"}, Subject: "second", Timestamp: 2, Branch: "main"},
			{Hash: "aaaaaaaaaa", ShortHash: "aaaaaaa", Subject: "first", Timestamp: 1, Branch: "main"},
		},
		HeadHash: "bbbbbbbbbb",
	}, graph.DefaultOptions())
}

func TestWriteGraphFormats(t *testing.T) {
	ctx := context.Background()
	data := sampleGraph()

	var buf bytes.Buffer
	if err := writeGraph(ctx, &buf, data, "json"); err != nil {
		t.Fatal(err)
	}
	var decoded graph.VisualizationData
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json output: %v", err)
	}
	if len(decoded.Nodes) != 2 || decoded.HeadHash != "bbbbbbbbbb" {
		t.Errorf("decoded = %d nodes, head %q", len(decoded.Nodes), decoded.HeadHash)
	}

	buf.Reset()
	if err := writeGraph(ctx, &buf, data, "yaml"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "nodes:") || !strings.Contains(buf.String(), "headhash: bbbbbbbbbb") {
		t.Errorf("yaml output = %q", buf.String())
	}

	buf.Reset()
	if err := writeGraph(ctx, &buf, data, "dot"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "digraph") {
		t.Errorf("dot output = %q", buf.String())
	}

	lineage, err := graph.Lineage(data, "bbbbbbbbbb")
	if err != nil {
		t.Fatal(err)
	}
	if err := writeGraph(ctx, &buf, lineage, "dot"); !errors.IsCode(err, errors.ValidationFailed) {
		t.Errorf("dot of lineage error = %v", err)
	}
	if err := writeGraph(ctx, &buf, data, "png"); !errors.IsCode(err, errors.ValidationFailed) {
		t.Errorf("png error = %v", err)
	}
}

func TestResolveFocus(t *testing.T) {
	data := sampleGraph()
	data.Nodes = append(data.Nodes, graph.GraphNode{ID: "bbbbccccdd"})

	tests := []struct {
		ref     string
		want    string
		errCode errors.ErrorCode
	}{
		{"HEAD", "bbbbbbbbbb", ""},
		{"aaaaaaaaaa", "aaaaaaaaaa", ""},
		{"aaaa", "aaaaaaaaaa", ""},
		{"bbbbc", "bbbbccccdd", ""},
		{"bbbb", "", errors.ValidationFailed},
		{"ffff", "", errors.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := resolveFocus(data, tt.ref)
			if tt.errCode != "" {
				if !errors.IsCode(err, tt.errCode) {
					t.Errorf("resolveFocus(%q) error = %v, want %s", tt.ref, err, tt.errCode)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("resolveFocus(%q) = %q, %v, want %q", tt.ref, got, err, tt.want)
			}
		})
	}
}

func TestDescribeUpdate(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		u    session.Update
		want []string
	}{
		{"event", session.Update{Type: session.UpdateEvent, Timestamp: ts,
			Event: &watcher.Event{Type: watcher.EventHeadChanged, Path: "HEAD"}}, []string{"head-changed", "HEAD"}},
		{"graph", session.Update{Type: session.UpdateGraph, Timestamp: ts, Graph: sampleGraph()},
			[]string{"graph", "2 commits", "head bbbbbbb"}},
		{"degraded", session.Update{Type: session.UpdateGraph, Timestamp: ts, Degraded: true, Reason: "log failed", Graph: sampleGraph()},
			[]string{"degraded", "log failed", "2 commits from last good graph"}},
		{"error", session.Update{Type: session.UpdateError, Timestamp: ts, Reason: "not a repo"}, []string{"error", "not a repo"}},
		{"closed", session.Update{Type: session.UpdateClosed, Timestamp: ts}, []string{"closed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeUpdate(tt.u)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("describeUpdate = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestFollowUpdatesStopsOnClose(t *testing.T) {
	updates := make(chan session.Update, 2)
	updates <- session.Update{Type: session.UpdateGraph, Graph: sampleGraph()}
	updates <- session.Update{Type: session.UpdateClosed}

	var buf bytes.Buffer
	if err := followUpdates(context.Background(), &buf, updates); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Errorf("printed %d lines, want 2", lines)
	}
}

func TestCLIRepoFile(t *testing.T) {
	root := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	t.Chdir(root)

	rel, err := cliRepoFile(root, filepath.Join("src", "main.go"))
	if err != nil || rel != "src/main.go" {
		t.Errorf("cliRepoFile = %q, %v", rel, err)
	}
	if _, err := cliRepoFile(root, filepath.Join("..", "elsewhere")); !errors.IsCode(err, errors.ValidationFailed) {
		t.Errorf("outside path error = %v", err)
	}
}

func TestGraphCommandWritesDOT(t *testing.T) {
	r := testutil.NewRepo(t)
	r.CommitFile("a.txt", "a\n", "feat: first")
	r.CommitFile("b.txt", "b\n", "fix: second")

	out := filepath.Join(t.TempDir(), "graph.dot")
	rootCmd.SetArgs([]string{"--repo", r.Dir, "--quiet", "graph", "--format", "dot", "--output", out})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		repoFlag, quietFlag = ".", false
		graphFormat, graphOutput = "json", ""
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("graph command: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "digraph") || strings.Count(string(data), "shape=") != 2 {
		t.Errorf("dot file = %q", data)
	}
}
