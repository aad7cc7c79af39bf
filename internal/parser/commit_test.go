package parser

import (
	"reflect"
	"strings"
	"testing"

	"gitnet/internal/model"
)

const (
	hashA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hashB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	hashC = "cccccccccccccccccccccccccccccccccccccccc"
	hashD = "dddddddddddddddddddddddddddddddddddddddd"
	hashE = "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
)

func TestClassifyCommitType(t *testing.T) {
	tests := []struct {
		message string
		want    model.CommitType
	}{
		{"feat: add graph", model.CommitFeat},
		{"fix(parser): handle quotes", model.CommitFix},
		{"docs: readme", model.CommitDocs},
		{"style: gofmt", model.CommitStyle},
		{"refactor!: drop v1 api", model.CommitRefactor},
		{"perf(layout)!: faster lanes", model.CommitPerf},
		{"test: more cases", model.CommitTest},
		{"chore: bump deps", model.CommitChore},
		{"revert: feat: add graph", model.CommitRevert},
		{"Revert \"feat: add graph\"", model.CommitRevert},
		{"REVERTING everything", model.CommitRevert},
		{"FEAT: shouting", model.CommitFeat},
		{"build: ci tweaks", model.CommitOther},
		{"Add a feature", model.CommitOther},
		{"feat add no colon", model.CommitOther},
		{"", model.CommitOther},
		{"  fix: leading space", model.CommitFix},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := ClassifyCommitType(tt.message); got != tt.want {
				t.Errorf("ClassifyCommitType(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestParseLogLine_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		parents   string
		wantMerge bool
	}{
		{"root", "", false},
		{"single parent", hashB, false},
		{"merge", hashB + " " + hashC, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := hashA + "|" + tt.parents + "|Jane Doe|jane@example.com|1700000000|feat: add X|"

			c, err := ParseLogLine(line)
			if err != nil {
				t.Fatalf("ParseLogLine() error = %v", err)
			}
			if c.Type != model.CommitFeat {
				t.Errorf("Type = %q, want feat", c.Type)
			}
			if c.IsMerge != tt.wantMerge {
				t.Errorf("IsMerge = %v, want %v", c.IsMerge, tt.wantMerge)
			}
			if c.ShortHash != hashA[:7] {
				t.Errorf("ShortHash = %q, want %q", c.ShortHash, hashA[:7])
			}
			if c.Subject != "feat: add X" || c.Message != "feat: add X" {
				t.Errorf("Subject/Message = %q/%q", c.Subject, c.Message)
			}
			if c.Author.Name != "Jane Doe" || c.Author.Email != "jane@example.com" {
				t.Errorf("Author = %+v", c.Author)
			}
			if c.Committer != c.Author {
				t.Errorf("Committer = %+v, want author", c.Committer)
			}
			if c.Timestamp != 1700000000 {
				t.Errorf("Timestamp = %d", c.Timestamp)
			}
			if c.Refs != "" {
				t.Errorf("Refs = %q, want empty", c.Refs)
			}
		})
	}
}

func TestParseLogLine_SubjectWithSeparator(t *testing.T) {
	line := hashA + "||Jane|jane@example.com|1700000000|fix: a | b | c|HEAD -> main, tag: v1.0, origin/main"

	c, err := ParseLogLine(line)
	if err != nil {
		t.Fatalf("ParseLogLine() error = %v", err)
	}
	if c.Subject != "fix: a | b | c" {
		t.Errorf("Subject = %q", c.Subject)
	}
	if c.Refs != "HEAD -> main, tag: v1.0, origin/main" {
		t.Errorf("Refs = %q", c.Refs)
	}
	if !reflect.DeepEqual(c.Tags, []string{"v1.0"}) {
		t.Errorf("Tags = %v, want [v1.0]", c.Tags)
	}
	if len(c.Parents) != 0 {
		t.Errorf("Parents = %v, want empty", c.Parents)
	}
}

func TestParseLogLine_Malformed(t *testing.T) {
	lines := []string{
		"",
		"abc|def",
		"|p|a|e|1|s|",
		hashA + "|p|a|e|notanumber|s|",
	}
	for _, line := range lines {
		if _, err := ParseLogLine(line); err == nil {
			t.Errorf("ParseLogLine(%q) should fail", line)
		}
	}
}

func TestDecorationBranch(t *testing.T) {
	remotes := []string{"origin", "upstream"}
	tests := []struct {
		refs string
		want string
	}{
		{"", ""},
		{"HEAD -> main, origin/main", "main"},
		{"tag: v1.0, feature/x", "feature/x"},
		{"origin/HEAD, origin/develop", "develop"},
		{"remotes/origin/release/1.2", "release/1.2"},
		{"upstream/hotfix/bug", "hotfix/bug"},
		{"HEAD", ""},
		{"tag: v2", ""},
		{"refs/stash", ""},
		{"refs/notes/commits, feature/y", "feature/y"},
	}

	for _, tt := range tests {
		t.Run(tt.refs, func(t *testing.T) {
			if got := DecorationBranch(tt.refs, remotes); got != tt.want {
				t.Errorf("DecorationBranch(%q) = %q, want %q", tt.refs, got, tt.want)
			}
		})
	}
}

func TestParseLog_SkipsMalformedLines(t *testing.T) {
	output := strings.Join([]string{
		hashC + "|" + hashB + "|A|a@x|3|feat: c|HEAD -> main",
		"garbage",
		"",
		hashB + "||A|a@x|2|fix: b|",
	}, "\n")

	commits := ParseLog(output, nil, nil)
	if len(commits) != 2 {
		t.Fatalf("len = %d, want 2", len(commits))
	}
	if commits[1].Branch != "main" {
		t.Errorf("commits[1].Branch = %q, want main (inherited)", commits[1].Branch)
	}
}
