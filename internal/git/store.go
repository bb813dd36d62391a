package git

import (
	"context"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ObjectStore is everything the patch stack engine needs from a repository.
// Ids are commit, tree or blob hashes depending on the method.
type ObjectStore interface {
	// GitDir is the directory holding repository metadata; locks live below it.
	GitDir() string
	CurrentBranch(ctx context.Context) (string, error)

	ReadCommit(ctx context.Context, id plumbing.Hash) (*Commit, error)
	WriteCommit(ctx context.Context, c *Commit) (plumbing.Hash, error)
	ReadTree(ctx context.Context, id plumbing.Hash) ([]TreeEntry, error)
	WriteTree(ctx context.Context, entries []TreeEntry) (plumbing.Hash, error)
	ReadBlob(ctx context.Context, id plumbing.Hash) ([]byte, error)
	WriteBlob(ctx context.Context, data []byte) (plumbing.Hash, error)

	// ThreeWayMerge merges the trees of the commits ours and theirs relative to base.
	ThreeWayMerge(ctx context.Context, base, ours, theirs plumbing.Hash) (*MergeResult, error)

	// ResolveRef returns plumbing.ZeroHash for a reference that does not exist.
	ResolveRef(ctx context.Context, name plumbing.ReferenceName) (plumbing.Hash, error)
	// UpdateRefs applies all updates atomically or none of them.
	// A reference whose current value is not Old fails the whole batch with ErrRefRace.
	UpdateRefs(ctx context.Context, message string, updates []RefUpdate) error

	// Checkout moves the worktree and index from tree from to tree to.
	// Without force, local changes are carried over and conflicting ones abort the checkout.
	Checkout(ctx context.Context, from, to plumbing.Hash, force bool) error
	WorktreeIsClean(ctx context.Context, tree plumbing.Hash) (bool, error)
	// StageWorktree records the worktree in the index and returns the resulting tree.
	StageWorktree(ctx context.Context, includeUntracked bool) (plumbing.Hash, error)

	ApplyDiff(ctx context.Context, tree plumbing.Hash, diff []byte) (plumbing.Hash, error)
	DiffTrees(ctx context.Context, from, to plumbing.Hash) ([]byte, error)

	// Identity returns the author and committer to stamp on new commits.
	Identity(ctx context.Context) (author, committer object.Signature, err error)
}

// Commit is a decoded commit object
type Commit struct {
	ID        plumbing.Hash
	Tree      plumbing.Hash
	Parents   []plumbing.Hash
	Author    object.Signature
	Committer object.Signature
	Message   string
}

// Parent returns the first parent, or plumbing.ZeroHash for a root commit
func (c *Commit) Parent() plumbing.Hash {
	if len(c.Parents) == 0 {
		return plumbing.ZeroHash
	}
	return c.Parents[0]
}

// Subject returns the first line of the commit message
func (c *Commit) Subject() string {
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return strings.TrimSpace(subject)
}

// TreeEntry is a single entry of a tree object
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
}

// RefUpdate moves Name from Old to New. A zero Old requires the reference to be absent,
// a zero New deletes it.
type RefUpdate struct {
	Name plumbing.ReferenceName
	Old  plumbing.Hash
	New  plumbing.Hash
}

// MergeResult is the outcome of a three-way tree merge.
// A conflicted result still carries a tree, with conflict markers in the affected files.
type MergeResult struct {
	Tree       plumbing.Hash
	Conflicted bool
	Conflicts  []string
}

// StackRef returns the reference the stack state of branch is published under
func StackRef(branch string) plumbing.ReferenceName {
	return plumbing.ReferenceName("refs/stacks/" + branch)
}

// BranchRef returns the reference of a local branch
func BranchRef(branch string) plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(branch)
}
