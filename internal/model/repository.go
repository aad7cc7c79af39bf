package model

// BranchType classifies a branch by naming convention.
type BranchType string

const (
	BranchMain    BranchType = "main"
	BranchDevelop BranchType = "develop"
	BranchFeature BranchType = "feature"
	BranchRelease BranchType = "release"
	BranchHotfix  BranchType = "hotfix"
	BranchCustom  BranchType = "custom"
)

// NoLane marks a branch that has not been placed by the layout engine.
const NoLane = -1

// Branch is a local or remote branch with its remote prefix stripped.
type Branch struct {
	Name      string     `json:"name"`
	FullName  string     `json:"fullName"`
	Type      BranchType `json:"type"`
	Target    string     `json:"target"`
	IsLocal   bool       `json:"isLocal"`
	IsRemote  bool       `json:"isRemote"`
	IsCurrent bool       `json:"isCurrent"`
	Remote    string     `json:"remote,omitempty"`
	Upstream  string     `json:"upstream,omitempty"`
	Color     string     `json:"color"`
	Lane      int        `json:"lane"`
}

// TagMap maps a commit hash to the tags pointing at it.
type TagMap map[string][]string

// RepositoryInfo is the result of repository discovery.
type RepositoryInfo struct {
	Path          string `json:"path"`
	Name          string `json:"name"`
	GitDir        string `json:"gitDir"`
	CurrentBranch string `json:"currentBranch"`
	HeadHash      string `json:"headHash"`
	IsDetached    bool   `json:"isDetached"`
	IsRebasing    bool   `json:"isRebasing"`
	IsMerging     bool   `json:"isMerging"`
}

// FileState is the working-tree state of a path.
type FileState string

const (
	StateAdded      FileState = "added"
	StateModified   FileState = "modified"
	StateDeleted    FileState = "deleted"
	StateRenamed    FileState = "renamed"
	StateCopied     FileState = "copied"
	StateTypeChange FileState = "typechange"
	StateUntracked  FileState = "untracked"
	StateConflicted FileState = "conflicted"
)

// FileStatus is a single entry of the working-tree status. A path with both
// staged and unstaged changes is reported twice.
type FileStatus struct {
	Path    string    `json:"path"`
	OldPath string    `json:"oldPath,omitempty"`
	Status  FileState `json:"status"`
	Staged  bool      `json:"staged"`
}

// WorkingTreeStatus is the parsed short-form status.
type WorkingTreeStatus struct {
	Branch   string       `json:"branch"`
	Upstream string       `json:"upstream,omitempty"`
	Ahead    int          `json:"ahead"`
	Behind   int          `json:"behind"`
	Detached bool         `json:"detached"`
	Files    []FileStatus `json:"files"`
}

// DiffKind tells the consumer how to present a DiffResult.
type DiffKind string

const (
	DiffText     DiffKind = "text"
	DiffBinary   DiffKind = "binary"
	DiffTooLarge DiffKind = "too-large"
	DiffEmpty    DiffKind = "empty"
)

// DiffResult is the outcome of a diff request.
type DiffResult struct {
	Kind      DiffKind `json:"kind"`
	Text      string   `json:"text,omitempty"`
	Additions int      `json:"additions"`
	Deletions int      `json:"deletions"`
	Message   string   `json:"message,omitempty"`
}
