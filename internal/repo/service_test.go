package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"testing"

	"gitnet/internal/config"
	"gitnet/internal/errors"
	"gitnet/internal/model"
	"gitnet/internal/testutil"
)

const (
	hash1 = "1111111111111111111111111111111111111111"
	hash2 = "2222222222222222222222222222222222222222"
	hash3 = "3333333333333333333333333333333333333333"
	hash4 = "4444444444444444444444444444444444444444"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(runner *testutil.FakeRunner) *Service {
	return New(runner, config.DefaultConfig(), testLogger())
}

func exitErr(code int, msg string) error {
	return errors.New(errors.CommandFailed, msg, nil, nil).
		WithDetails(map[string]interface{}{"exitCode": code})
}

var sampleLog = strings.Join([]string{
	hash3 + "|" + hash2 + "|Jane|jane@example.com|1700000300|feat: three|",
	hash2 + "|" + hash1 + "|Jane|jane@example.com|1700000200|fix: two|",
	hash1 + "||Bob|12345+bob@users.noreply.github.com|1700000100|chore: one|tag: v0.1",
}, "\n") + "\n"

var sampleBranches = "refs/heads/feature/x|" + hash3 + "|*|\n"

var sampleTags = hash4 + " refs/tags/v1.0\n" + hash2 + " refs/tags/v1.0^{}\n"

func TestCommits_InheritsBranchAndAttachesTags(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On(sampleLog, nil, "log").
		On(sampleBranches, nil, "for-each-ref").
		On(sampleTags, nil, "show-ref")
	svc := newTestService(runner)

	res := svc.Commits(context.Background(), "/repo", LogOptions{Limit: 10})
	if res.State != StateOK {
		t.Fatalf("State = %s (%s), want ok", res.State, res.Reason)
	}
	if len(res.Data) != 3 {
		t.Fatalf("len(Data) = %d, want 3", len(res.Data))
	}

	for _, c := range res.Data {
		if c.Branch != "feature/x" {
			t.Errorf("commit %s branch = %q, want feature/x", c.ShortHash, c.Branch)
		}
		if c.Author.AvatarURL == "" {
			t.Errorf("commit %s has no avatar", c.ShortHash)
		}
	}
	if got := res.Data[1].Tags; len(got) != 1 || got[0] != "v1.0" {
		t.Errorf("commit 2 tags = %v, want [v1.0]", got)
	}
	if got := res.Data[2].Tags; len(got) != 1 || got[0] != "v0.1" {
		t.Errorf("commit 1 tags = %v, want [v0.1]", got)
	}
	if got := res.Data[2].Author.AvatarURL; got != "https://github.com/bob.png" {
		t.Errorf("noreply avatar = %q", got)
	}
}

func TestCommits_LogArguments(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("", nil, "log").
		On("", nil, "for-each-ref").
		On("", nil, "show-ref")
	svc := newTestService(runner)

	res := svc.Commits(context.Background(), "/repo", LogOptions{
		Limit:   50,
		Offset:  100,
		Author:  "jane",
		Since:   "2024-01-01",
		Until:   "2024-12-31",
		Grep:    "Fix",
		Path:    "src/main.go",
		AllRefs: true,
	})
	if res.State != StateEmpty {
		t.Errorf("State = %s, want empty", res.State)
	}

	var logArgs []string
	for _, c := range runner.Calls() {
		if c[0] == "log" {
			logArgs = c
		}
	}
	joined := strings.Join(logArgs, " ")
	for _, want := range []string{
		"--date-order", "-n 50", "--skip=100", "--exclude=refs/stash --all", "--author=jane", "--since=2024-01-01",
		"--until=2024-12-31", "--grep=Fix --regexp-ignore-case", "-- src/main.go",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("log args %q missing %q", joined, want)
		}
	}
}

func TestCommits_AuthorIsLiteral(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("", nil, "log").
		On("", nil, "for-each-ref").
		On("", nil, "show-ref")
	svc := newTestService(runner)

	svc.Commits(context.Background(), "/repo", LogOptions{Author: "c++ a.b"})
	for _, c := range runner.Calls() {
		if c[0] != "log" {
			continue
		}
		joined := strings.Join(c, " ")
		if !strings.Contains(joined, `--author=c\+\+ a\.b`) {
			t.Errorf("log args %q do not escape the author", joined)
		}
	}
}

func TestCommits_DefaultLimit(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("", nil, "log").
		On("", nil, "for-each-ref").
		On("", nil, "show-ref")
	svc := newTestService(runner)

	svc.Commits(context.Background(), "/repo", LogOptions{})

	for _, c := range runner.Calls() {
		if c[0] == "log" && !strings.Contains(strings.Join(c, " "), "-n 500") {
			t.Errorf("log args = %v, want default limit 500", c)
		}
	}
}

func TestCommits_DegradesOnFailure(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("", exitErr(128, "fatal: not a git repository"), "log").
		On(sampleBranches, nil, "for-each-ref").
		On(sampleTags, nil, "show-ref")
	svc := newTestService(runner)

	res := svc.Commits(context.Background(), "/repo", LogOptions{})
	if !res.Degraded() {
		t.Fatalf("State = %s, want degraded", res.State)
	}
	if res.Data == nil || len(res.Data) != 0 {
		t.Errorf("Data = %v, want empty non-nil", res.Data)
	}
	if res.Err == nil || res.Reason == "" {
		t.Error("degraded result should carry the reason")
	}
}

func TestCommits_UnbornHeadIsEmpty(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("", exitErr(128, "fatal: your current branch 'main' does not have any commits yet"), "log").
		On("", nil, "for-each-ref").
		On("", exitErr(1, "exit code 1"), "show-ref")
	svc := newTestService(runner)

	res := svc.Commits(context.Background(), "/repo", LogOptions{})
	if res.State != StateEmpty {
		t.Errorf("State = %s, want empty", res.State)
	}
}

func TestBranches_Cache(t *testing.T) {
	runner := testutil.NewFakeRunner().On(sampleBranches, nil, "for-each-ref")
	svc := newTestService(runner)
	ctx := context.Background()

	first := svc.Branches(ctx, "/repo")
	second := svc.Branches(ctx, "/repo")

	if first.State != StateOK || len(second.Data) != 1 {
		t.Fatalf("Branches() = %+v / %+v", first, second)
	}
	if n := runner.CallCount("for-each-ref"); n != 1 {
		t.Errorf("for-each-ref calls = %d, want 1 (cache hit)", n)
	}

	svc.Invalidate("/repo")
	svc.Branches(ctx, "/repo")
	if n := runner.CallCount("for-each-ref"); n != 2 {
		t.Errorf("for-each-ref calls after Invalidate = %d, want 2", n)
	}

	svc.Branches(ctx, "/other")
	if n := runner.CallCount("for-each-ref"); n != 3 {
		t.Errorf("for-each-ref calls for second repo = %d, want 3", n)
	}
}

func TestBranches_FailOpen(t *testing.T) {
	runner := testutil.NewFakeRunner().On("", exitErr(128, "fatal: not a git repository"), "for-each-ref")
	svc := newTestService(runner)
	ctx := context.Background()

	res := svc.Branches(ctx, "/repo")
	if !res.Degraded() || len(res.Data) != 0 {
		t.Fatalf("Branches() = %+v, want degraded empty", res)
	}

	svc.Branches(ctx, "/repo")
	if n := runner.CallCount("for-each-ref"); n != 2 {
		t.Errorf("for-each-ref calls = %d, want 2 (failures are not cached)", n)
	}
}

func TestTags_NoTagsIsEmptyAndCached(t *testing.T) {
	runner := testutil.NewFakeRunner().On("", exitErr(1, "exit code 1"), "show-ref")
	svc := newTestService(runner)
	ctx := context.Background()

	res := svc.Tags(ctx, "/repo")
	if res.State != StateEmpty {
		t.Errorf("State = %s, want empty", res.State)
	}
	svc.Tags(ctx, "/repo")
	if n := runner.CallCount("show-ref"); n != 1 {
		t.Errorf("show-ref calls = %d, want 1", n)
	}
}

func TestTags_PeeledAndFailure(t *testing.T) {
	runner := testutil.NewFakeRunner().On(sampleTags, nil, "show-ref")
	svc := newTestService(runner)

	res := svc.Tags(context.Background(), "/repo")
	if got := res.Data[hash2]; len(got) != 1 || got[0] != "v1.0" {
		t.Errorf("Tags()[hash2] = %v, want [v1.0]", got)
	}

	failing := newTestService(testutil.NewFakeRunner().On("", exitErr(128, "fatal"), "show-ref"))
	if res := failing.Tags(context.Background(), "/repo"); !res.Degraded() {
		t.Errorf("State = %s, want degraded", res.State)
	}
}

func TestClearCaches(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On(sampleBranches, nil, "for-each-ref").
		On(sampleTags, nil, "show-ref")
	svc := newTestService(runner)
	ctx := context.Background()

	svc.Branches(ctx, "/repo")
	svc.Tags(ctx, "/repo")
	svc.ClearCaches()
	svc.Branches(ctx, "/repo")
	svc.Tags(ctx, "/repo")

	if runner.CallCount("for-each-ref") != 2 || runner.CallCount("show-ref") != 2 {
		t.Errorf("calls = %v, want a refetch of both after ClearCaches", runner.Calls())
	}
}

func TestDiff_TwoPhase(t *testing.T) {
	tests := []struct {
		name        string
		numstat     string
		wantKind    model.DiffKind
		wantFetched bool
	}{
		{"binary", "-\t-\tbinary.png\n", model.DiffBinary, false},
		{"too large", "4000\t2000\tbig.txt\n", model.DiffTooLarge, false},
		{"at threshold", "2500\t2500\tedge.txt\n", model.DiffText, true},
		{"small", "3\t1\tsmall.go\n", model.DiffText, true},
		{"empty", "", model.DiffEmpty, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := testutil.NewFakeRunner().
				On(tt.numstat, nil, "diff", "--find-renames", "--numstat").
				On("diff --git a/x b/x\n+line\n", nil, "diff", "--find-renames")
			svc := newTestService(runner)

			res, err := svc.Diff(context.Background(), "/repo", DiffRequest{File: "x"})
			if err != nil {
				t.Fatalf("Diff() error = %v", err)
			}
			if res.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", res.Kind, tt.wantKind)
			}

			fetched := runner.CallCount("diff") - runner.CallCount("diff", "--find-renames", "--numstat")
			if (fetched > 0) != tt.wantFetched {
				t.Errorf("full diff fetched = %v, want %v", fetched > 0, tt.wantFetched)
			}
			if tt.wantKind == model.DiffText && !strings.Contains(res.Text, "+line") {
				t.Errorf("Text = %q", res.Text)
			}
		})
	}
}

func TestDiff_CommitAndStagedArgs(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("1\t0\ta.go\n", nil, "show").
		On("1\t0\ta.go\n", nil, "diff")
	svc := newTestService(runner)
	ctx := context.Background()

	if _, err := svc.Diff(ctx, "/repo", DiffRequest{Hash: hash1, File: "a.go"}); err != nil {
		t.Fatalf("Diff(commit) error = %v", err)
	}
	if _, err := svc.Diff(ctx, "/repo", DiffRequest{Staged: true}); err != nil {
		t.Fatalf("Diff(staged) error = %v", err)
	}

	calls := runner.Calls()
	if got := strings.Join(calls[0], " "); got != "show --format= --find-renames --numstat "+hash1+" -- a.go" {
		t.Errorf("commit numstat args = %q", got)
	}
	if got := strings.Join(calls[2], " "); got != "diff --find-renames --cached --numstat" {
		t.Errorf("staged numstat args = %q", got)
	}
}

func TestDiff_RejectsOptionLikeHash(t *testing.T) {
	runner := testutil.NewFakeRunner()
	svc := newTestService(runner)

	_, err := svc.Diff(context.Background(), "/repo", DiffRequest{Hash: "--output=/tmp/x"})
	if !errors.IsCode(err, errors.ValidationFailed) {
		t.Errorf("Diff() error = %v, want VALIDATION_FAILED", err)
	}
	if len(runner.Calls()) != 0 {
		t.Error("no command should run")
	}
}

func TestCommitDetail_FallsBackWithoutPatch(t *testing.T) {
	header := hash2 + "|" + hash1 + "|Jane|jane@example.com|1700000200|fix: two\n\n2\t1\tmain.go\n"
	runner := testutil.NewFakeRunner().
		On("", errors.New(errors.OutputTooLarge, "too big", nil, nil), "show", "--numstat", "--find-renames", "--format="+"%H|%P|%an|%ae|%at|%s", "--patch").
		On(header, nil, "show").
		On("fix: two\n\nLonger body.\n", nil, "log", "-1").
		On("v1.0\n", nil, "tag", "--contains").
		On("refs/heads/main\nrefs/remotes/origin/main\nrefs/heads/dev\n", nil, "branch", "-a", "--contains").
		On("refs/heads/dev\n", nil, "branch", "-a", "--points-at")
	svc := newTestService(runner)

	c, err := svc.CommitDetail(context.Background(), "/repo", hash2)
	if err != nil {
		t.Fatalf("CommitDetail() error = %v", err)
	}

	if c.Message != "fix: two\n\nLonger body." {
		t.Errorf("Message = %q", c.Message)
	}
	if c.Subject != "fix: two" || c.Type != model.CommitFix {
		t.Errorf("Subject/Type = %q/%s", c.Subject, c.Type)
	}
	if len(c.Files) != 1 || c.Additions != 2 || c.Deletions != 1 {
		t.Errorf("Files = %+v", c.Files)
	}
	if len(c.Tags) != 1 || c.Tags[0] != "v1.0" {
		t.Errorf("Tags = %v", c.Tags)
	}
	if len(c.ContainedIn) != 2 || c.ContainedIn[0] != "main" || c.ContainedIn[1] != "dev" {
		t.Errorf("ContainedIn = %v, want [main dev]", c.ContainedIn)
	}
	if len(c.HeadOf) != 1 || c.HeadOf[0] != "dev" || c.Branch != "dev" {
		t.Errorf("HeadOf/Branch = %v/%q", c.HeadOf, c.Branch)
	}
	if runner.CallCount("show") != 2 {
		t.Errorf("show calls = %d, want 2 (patch, then fallback)", runner.CallCount("show"))
	}
}

func TestCommitDetail_NotFound(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("", exitErr(128, "fatal: bad object deadbeef"), "show").
		On("", nil, "log").
		On("", nil, "tag").
		On("", nil, "branch")
	svc := newTestService(runner)

	_, err := svc.CommitDetail(context.Background(), "/repo", "deadbeef")
	if !errors.IsCode(err, errors.NotFound) {
		t.Errorf("CommitDetail() error = %v, want NOT_FOUND", err)
	}
}

func TestCommit_RejectsEmptyMessage(t *testing.T) {
	runner := testutil.NewFakeRunner()
	svc := newTestService(runner)

	for _, msg := range []string{"", "   ", "\n\t"} {
		err := svc.Commit(context.Background(), "/repo", msg, false)
		if !errors.IsCode(err, errors.ValidationFailed) {
			t.Errorf("Commit(%q) error = %v, want VALIDATION_FAILED", msg, err)
		}
	}
	if len(runner.Calls()) != 0 {
		t.Errorf("calls = %v, want none", runner.Calls())
	}
}

func TestMutations_InvalidateCaches(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On(sampleBranches, nil, "for-each-ref").
		On("", nil, "commit").
		On("", exitErr(1, "error: pathspec 'nope' did not match"), "checkout")
	svc := newTestService(runner)
	ctx := context.Background()

	svc.Branches(ctx, "/repo")
	if err := svc.Commit(ctx, "/repo", "feat: x", true); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	svc.Branches(ctx, "/repo")

	if n := runner.CallCount("for-each-ref"); n != 2 {
		t.Errorf("for-each-ref calls = %d, want 2", n)
	}
	if runner.CallCount("commit", "-m", "feat: x", "--amend") != 1 {
		t.Errorf("calls = %v, want amend commit", runner.Calls())
	}

	err := svc.Checkout(ctx, "/repo", "nope")
	if !errors.IsCode(err, errors.CommandFailed) {
		t.Errorf("Checkout() error = %v, want COMMAND_FAILED propagated", err)
	}
}

func TestMutations_Arguments(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("", nil, "add").
		On("", nil, "reset").
		On("", nil, "checkout").
		On("", nil, "clean").
		On("", nil, "push").
		On("", nil, "stash")
	svc := newTestService(runner)
	ctx := context.Background()

	steps := []struct {
		run  func() error
		want string
	}{
		{func() error { return svc.Stage(ctx, "/repo", "a.go", "b.go") }, "add -- a.go b.go"},
		{func() error { return svc.Stage(ctx, "/repo") }, "add -A"},
		{func() error { return svc.Unstage(ctx, "/repo", "a.go") }, "reset -q -- a.go"},
		{func() error { return svc.Discard(ctx, "/repo", "a.go") }, "checkout -- a.go"},
		{func() error { return svc.Clean(ctx, "/repo", "tmp.txt") }, "clean -f -- tmp.txt"},
		{func() error { return svc.Push(ctx, "/repo", "", "main", true) }, "push -u origin main"},
		{func() error { return svc.Checkout(ctx, "/repo", "feature/x") }, "checkout feature/x"},
		{func() error { return svc.StashApply(ctx, "/repo", 2) }, "stash apply stash@{2}"},
		{func() error { return svc.StashDrop(ctx, "/repo", 0) }, "stash drop stash@{0}"},
	}

	for i, step := range steps {
		runner.Reset()
		if err := step.run(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
		calls := runner.Calls()
		if len(calls) != 1 || strings.Join(calls[0], " ") != step.want {
			t.Errorf("step %d calls = %v, want %q", i, calls, step.want)
		}
	}

	if err := svc.StashDrop(ctx, "/repo", -1); !errors.IsCode(err, errors.ValidationFailed) {
		t.Errorf("StashDrop(-1) error = %v, want VALIDATION_FAILED", err)
	}
	if err := svc.Checkout(ctx, "/repo", "--orphan"); !errors.IsCode(err, errors.ValidationFailed) {
		t.Errorf("Checkout(--orphan) error = %v, want VALIDATION_FAILED", err)
	}
}

func TestAvatarURL(t *testing.T) {
	svc := newTestService(testutil.NewFakeRunner())

	sum := sha256.Sum256([]byte("jane@example.com"))
	wantGravatar := "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=identicon&s=64"

	tests := []struct {
		email string
		want  string
	}{
		{"  Jane@Example.COM ", wantGravatar},
		{"jane@example.com", wantGravatar},
		{"octocat@users.noreply.github.com", "https://github.com/octocat.png"},
		{"583231+octocat@users.noreply.github.com", "https://github.com/octocat.png"},
	}
	for _, tt := range tests {
		if got := svc.AvatarURL(tt.email); got != tt.want {
			t.Errorf("AvatarURL(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}

	svc.SetGitHubUsers(map[string]string{"JANE@example.com": "janedoe"})
	if got := svc.AvatarURL("jane@example.com"); got != "https://github.com/janedoe.png" {
		t.Errorf("AvatarURL after SetGitHubUsers = %q, want github mapping", got)
	}
}

func TestAvatarURL_CacheBounded(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.AvatarMaxEntries = 2
	svc := New(testutil.NewFakeRunner(), cfg, testLogger())

	svc.AvatarURL("a@x")
	svc.AvatarURL("b@x")
	svc.AvatarURL("c@x")

	if n := svc.avatars.Len(); n != 2 {
		t.Errorf("avatar cache len = %d, want 2", n)
	}
}
