package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	pstackerrors "stackit.dev/pstack/internal/errors"
)

// Repository is the ObjectStore of an on-disk repository
type Repository struct {
	repo   *git.Repository
	runner *CommandRunner
	root   string
	gitDir string

	// Synchronize go-git operations to prevent concurrent packfile access
	mu sync.Mutex
}

var _ ObjectStore = (*Repository)(nil)

// OpenRepository opens the repository containing path
func OpenRepository(ctx context.Context, path string) (*Repository, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	runner := NewCommandRunner(absPath)
	root, err := runner.Run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	gitDir, err := runner.Run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("failed to locate git directory: %w", err)
	}

	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	return &Repository{
		repo:   repo,
		runner: NewCommandRunner(root),
		root:   root,
		gitDir: gitDir,
	}, nil
}

// Root returns the top level directory of the worktree
func (r *Repository) Root() string {
	return r.root
}

// GitDir returns the absolute path of the git directory
func (r *Repository) GitDir() string {
	return r.gitDir
}

// CurrentBranch returns the branch HEAD points at
func (r *Repository) CurrentBranch(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	head, err := r.repo.Storer.Reference(plumbing.HEAD)
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", pstackerrors.ErrNotOnBranch
	}
	return head.Target().Short(), nil
}

// ReadCommit reads a commit object
func (r *Repository) ReadCommit(_ context.Context, id plumbing.Hash) (*Commit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return LoadCommit(r.repo.Storer, id)
}

// WriteCommit writes a commit object
func (r *Repository) WriteCommit(_ context.Context, c *Commit) (plumbing.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return StoreCommit(r.repo.Storer, c)
}

// ReadTree reads the top level entries of a tree
func (r *Repository) ReadTree(_ context.Context, id plumbing.Hash) ([]TreeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return LoadTree(r.repo.Storer, id)
}

// WriteTree writes a tree object
func (r *Repository) WriteTree(_ context.Context, entries []TreeEntry) (plumbing.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return StoreTree(r.repo.Storer, entries)
}

// ReadBlob reads a blob object
func (r *Repository) ReadBlob(_ context.Context, id plumbing.Hash) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return LoadBlob(r.repo.Storer, id)
}

// WriteBlob writes a blob object
func (r *Repository) WriteBlob(_ context.Context, data []byte) (plumbing.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return StoreBlob(r.repo.Storer, data)
}

// ResolveRef returns the commit a reference points at, following symbolic references
func (r *Repository) ResolveRef(_ context.Context, name plumbing.ReferenceName) (plumbing.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, err := r.repo.Reference(name, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	return ref.Hash(), nil
}

// ResolveRevision resolves any revision expression to a commit id
func (r *Repository) ResolveRevision(ctx context.Context, rev string) (plumbing.Hash, error) {
	out, err := r.runner.Run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("unknown revision %q", rev)
	}
	return plumbing.NewHash(out), nil
}

// UpdateRefs applies updates in a single `git update-ref --stdin` transaction
func (r *Repository) UpdateRefs(ctx context.Context, message string, updates []RefUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	var input strings.Builder
	for _, u := range updates {
		if u.New.IsZero() {
			if u.Old.IsZero() {
				fmt.Fprintf(&input, "delete %s\n", u.Name)
			} else {
				fmt.Fprintf(&input, "delete %s %s\n", u.Name, u.Old)
			}
			continue
		}
		fmt.Fprintf(&input, "update %s %s %s\n", u.Name, u.New, u.Old)
	}

	args := []string{"update-ref", "--stdin"}
	if message != "" {
		args = []string{"update-ref", "-m", message, "--stdin"}
	}
	_, err := r.runner.RunWithInput(ctx, []byte(input.String()), args...)
	if err == nil {
		return nil
	}

	// Distinguish a lost race from any other failure by re-reading the refs
	for _, u := range updates {
		current, resolveErr := r.ResolveRef(ctx, u.Name)
		if resolveErr != nil {
			return errors.Join(err, resolveErr)
		}
		if current != u.Old {
			return fmt.Errorf("%w: %s is at %s, expected %s", pstackerrors.ErrRefRace, u.Name, short(current), short(u.Old))
		}
	}
	return fmt.Errorf("failed to update refs: %w", err)
}

// Checkout moves index and worktree between two trees with git read-tree
func (r *Repository) Checkout(ctx context.Context, from, to plumbing.Hash, force bool) error {
	var err error
	if force {
		_, err = r.runner.Run(ctx, "read-tree", "--reset", "-u", to.String())
	} else {
		if from == to {
			return nil
		}
		_, err = r.runner.Run(ctx, "read-tree", "-u", "-m", from.String(), to.String())
	}
	if err != nil {
		return fmt.Errorf("failed to check out %s: %w", short(to), err)
	}
	return nil
}

// WorktreeIsClean reports whether index and worktree both match tree.
// Untracked files are ignored.
func (r *Repository) WorktreeIsClean(ctx context.Context, tree plumbing.Hash) (bool, error) {
	// Stat information may be stale; a refresh keeps diff-files from reporting false positives
	_, _ = r.runner.Run(ctx, "update-index", "-q", "--refresh")

	for _, args := range [][]string{
		{"diff-index", "--cached", "--quiet", tree.String(), "--"},
		{"diff-files", "--quiet"},
	} {
		_, err := r.runner.Run(ctx, args...)
		if err == nil {
			continue
		}
		if code, _, ok := exitStatus(err); ok && code == 1 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// StageWorktree stages tracked changes (and untracked files when asked) and writes the index as a tree
func (r *Repository) StageWorktree(ctx context.Context, includeUntracked bool) (plumbing.Hash, error) {
	addArgs := []string{"add", "-u"}
	if includeUntracked {
		addArgs = []string{"add", "-A"}
	}
	if _, err := r.runner.Run(ctx, addArgs...); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to stage worktree: %w", err)
	}
	out, err := r.runner.Run(ctx, "write-tree")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to write index tree: %w", err)
	}
	return plumbing.NewHash(out), nil
}

// ApplyDiff applies a unified diff to tree using a throwaway index and returns the new tree
func (r *Repository) ApplyDiff(ctx context.Context, tree plumbing.Hash, diff []byte) (plumbing.Hash, error) {
	f, err := os.CreateTemp(r.gitDir, "pstack-index-*")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create temporary index: %w", err)
	}
	indexPath := f.Name()
	_ = f.Close()
	// git refuses an empty file as an index, it has to start out absent
	_ = os.Remove(indexPath)
	defer os.Remove(indexPath)

	runner := r.runner.WithEnv("GIT_INDEX_FILE=" + indexPath)
	if _, err := runner.Run(ctx, "read-tree", tree.String()); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to load tree %s: %w", short(tree), err)
	}
	if _, err := runner.RunWithInput(ctx, diff, "apply", "--cached"); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %w", pstackerrors.ErrApplyFailed, err)
	}
	out, err := runner.Run(ctx, "write-tree")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to write tree: %w", err)
	}
	return plumbing.NewHash(out), nil
}

// DiffTrees returns the binary-safe patch turning tree from into tree to
func (r *Repository) DiffTrees(ctx context.Context, from, to plumbing.Hash) ([]byte, error) {
	out, err := r.runner.RunRaw(ctx, "diff-tree", "-p", "--binary", from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}
	return []byte(out), nil
}

// Identity reads author and committer the way git commit would
func (r *Repository) Identity(ctx context.Context) (object.Signature, object.Signature, error) {
	authorLine, err := r.runner.Run(ctx, "var", "GIT_AUTHOR_IDENT")
	if err != nil {
		return object.Signature{}, object.Signature{}, fmt.Errorf("failed to read author identity: %w", err)
	}
	committerLine, err := r.runner.Run(ctx, "var", "GIT_COMMITTER_IDENT")
	if err != nil {
		return object.Signature{}, object.Signature{}, fmt.Errorf("failed to read committer identity: %w", err)
	}
	author, err := ParseIdent(authorLine)
	if err != nil {
		return object.Signature{}, object.Signature{}, err
	}
	committer, err := ParseIdent(committerLine)
	if err != nil {
		return object.Signature{}, object.Signature{}, err
	}
	return author, committer, nil
}

func short(h plumbing.Hash) string {
	if h.IsZero() {
		return "(none)"
	}
	return h.String()[:12]
}
