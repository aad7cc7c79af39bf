// Package model holds the entities shared by the parser, the repository
// service and the layout engine. Values are rebuilt on every refresh and are
// never mutated after parsing.
package model

// CommitType is the conventional-commit classification of a message.
type CommitType string

const (
	CommitFeat     CommitType = "feat"
	CommitFix      CommitType = "fix"
	CommitDocs     CommitType = "docs"
	CommitStyle    CommitType = "style"
	CommitRefactor CommitType = "refactor"
	CommitPerf     CommitType = "perf"
	CommitTest     CommitType = "test"
	CommitChore    CommitType = "chore"
	CommitRevert   CommitType = "revert"
	CommitOther    CommitType = "other"
)

// Person identifies an author or committer.
type Person struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// FileChangeStatus describes how a file changed in a commit.
type FileChangeStatus string

const (
	FileAdded    FileChangeStatus = "added"
	FileModified FileChangeStatus = "modified"
	FileDeleted  FileChangeStatus = "deleted"
	FileRenamed  FileChangeStatus = "renamed"
	FileCopied   FileChangeStatus = "copied"
)

// FileChange is one file touched by a commit.
type FileChange struct {
	Path      string           `json:"path"`
	OldPath   string           `json:"oldPath,omitempty"`
	Status    FileChangeStatus `json:"status"`
	Additions int              `json:"additions"`
	Deletions int              `json:"deletions"`
	Binary    bool             `json:"binary,omitempty"`
}

// Commit is a parsed commit.
type Commit struct {
	Hash      string     `json:"hash"`
	ShortHash string     `json:"shortHash"`
	Parents   []string   `json:"parents"`
	Message   string     `json:"message"`
	Subject   string     `json:"subject"`
	Type      CommitType `json:"type"`
	Author    Person     `json:"author"`
	Committer Person     `json:"committer"`
	Timestamp int64      `json:"timestamp"`
	IsMerge   bool       `json:"isMerge"`
	Branch    string     `json:"branch,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Refs      string     `json:"refs,omitempty"`

	Files     []FileChange `json:"files,omitempty"`
	Additions int          `json:"additions,omitempty"`
	Deletions int          `json:"deletions,omitempty"`

	// Populated by commit detail only.
	ContainedIn []string `json:"containedIn,omitempty"`
	HeadOf      []string `json:"headOf,omitempty"`
}

// ShortHashLen is the length of Commit.ShortHash.
const ShortHashLen = 7

// ShortHash abbreviates a full hash.
func ShortHash(hash string) string {
	if len(hash) <= ShortHashLen {
		return hash
	}
	return hash[:ShortHashLen]
}

// Stash is an entry of the stash list.
type Stash struct {
	Index     int    `json:"index"`
	Ref       string `json:"ref"`
	Hash      string `json:"hash"`
	BaseHash  string `json:"baseHash"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// HotFile aggregates churn for a path.
type HotFile struct {
	Path      string `json:"path"`
	Commits   int    `json:"commits"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// Contributor aggregates commit counts per author.
type Contributor struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Commits   int    `json:"commits"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}
