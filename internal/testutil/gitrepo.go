package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// baseTimestamp is the author date of the first fixture commit. Each commit
// advances the clock by one minute so ordering is deterministic.
const baseTimestamp int64 = 1700000000

// RequireGit skips the test when no git binary is available.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// Repo is a throwaway git repository rooted in a test temp dir.
type Repo struct {
	t     *testing.T
	Dir   string
	clock int64
}

// NewRepo initializes an empty repository on branch main.
func NewRepo(t *testing.T) *Repo {
	t.Helper()
	RequireGit(t)

	dir := t.TempDir()
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	r := &Repo{t: t, Dir: dir, clock: baseTimestamp}
	r.Git("init", "-q")
	r.Git("symbolic-ref", "HEAD", "refs/heads/main")
	r.Git("config", "user.name", "Test User")
	r.Git("config", "user.email", "test@example.com")
	r.Git("config", "commit.gpgsign", "false")
	r.Git("config", "tag.gpgsign", "false")
	return r
}

// Git runs git in the repository and returns trimmed stdout, failing the
// test on error.
func (r *Repo) Git(args ...string) string {
	r.t.Helper()

	date := fmt.Sprintf("%d +0000", r.clock)
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_DATE="+date,
		"GIT_COMMITTER_DATE="+date,
		"GIT_TERMINAL_PROMPT=0",
		"LC_ALL=C",
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// WriteFile writes content to a path relative to the repository root.
func (r *Repo) WriteFile(name, content string) {
	r.t.Helper()

	path := filepath.Join(r.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("Failed to write %s: %v", name, err)
	}
}

// Commit stages everything and commits it, returning the new HEAD hash.
func (r *Repo) Commit(message string) string {
	r.t.Helper()

	r.clock += 60
	r.Git("add", "-A")
	r.Git("commit", "-q", "--allow-empty", "-m", message)
	return r.Git("rev-parse", "HEAD")
}

// CommitFile writes a file and commits it.
func (r *Repo) CommitFile(name, content, message string) string {
	r.t.Helper()
	r.WriteFile(name, content)
	return r.Commit(message)
}

// Branch creates a branch at HEAD without switching to it.
func (r *Repo) Branch(name string) {
	r.t.Helper()
	r.Git("branch", name)
}

// Checkout switches to an existing branch or commit.
func (r *Repo) Checkout(ref string) {
	r.t.Helper()
	r.Git("checkout", "-q", ref)
}

// Tag creates an annotated tag at HEAD.
func (r *Repo) Tag(name string) {
	r.t.Helper()
	r.Git("tag", "-a", name, "-m", name)
}

// Merge merges branch into the current branch with a merge commit and
// returns the new HEAD hash.
func (r *Repo) Merge(branch string) string {
	r.t.Helper()

	r.clock += 60
	r.Git("merge", "-q", "--no-ff", "--no-edit", branch)
	return r.Git("rev-parse", "HEAD")
}

// GitDir returns the repository's metadata directory.
func (r *Repo) GitDir() string {
	return filepath.Join(r.Dir, ".git")
}
