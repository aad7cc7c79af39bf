package parser

import "gitnet/internal/model"

// claim is a branch label a descendant has offered to one of its parents.
type claim struct {
	branch      string
	firstParent bool
}

// beats reports whether c should replace an existing claim. A first-parent
// claim beats a merge-parent claim; between equals a primary branch beats
// the rest; otherwise the existing claim stays.
func (c claim) beats(existing claim) bool {
	if c.firstParent != existing.firstParent {
		return c.firstParent
	}
	return IsPrimaryBranch(c.branch) && !IsPrimaryBranch(existing.branch)
}

// inheritance is the fold state: pending claims keyed by commit hash. It is
// created per InferBranches call and never escapes it.
type inheritance struct {
	tips    map[string]string
	remotes []string
	pending map[string]claim
}

// label resolves a commit's branch: an explicit tip, then the decoration,
// then a pending claim from a descendant.
func (s *inheritance) label(c model.Commit) string {
	if name, ok := s.tips[c.Hash]; ok && name != "" {
		return name
	}
	if name := DecorationBranch(c.Refs, s.remotes); name != "" {
		return name
	}
	if cl, ok := s.pending[c.Hash]; ok {
		return cl.branch
	}
	return ""
}

// offer propagates branch to the parents of c.
func (s *inheritance) offer(c model.Commit, branch string) {
	for i, parent := range c.Parents {
		next := claim{branch: branch, firstParent: i == 0}
		if existing, ok := s.pending[parent]; ok && !next.beats(existing) {
			continue
		}
		s.pending[parent] = next
	}
}

// step consumes one commit and returns it with its branch attributed.
func (s *inheritance) step(c model.Commit) model.Commit {
	c.Branch = s.label(c)
	delete(s.pending, c.Hash)
	if c.Branch != "" {
		s.offer(c, c.Branch)
	}
	return c
}

// InferBranches attributes a branch to every commit of a newest-first list.
// Commits no label reaches keep an empty Branch. The input is not modified.
func InferBranches(commits []model.Commit, tips map[string]string, remotes []string) []model.Commit {
	s := &inheritance{
		tips:    tips,
		remotes: remotes,
		pending: make(map[string]claim),
	}

	out := make([]model.Commit, len(commits))
	for i, c := range commits {
		out[i] = s.step(c)
	}
	return out
}
