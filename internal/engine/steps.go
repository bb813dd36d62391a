package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/git"
)

// step is one primitive mutation of the working stack
type step interface {
	run(ctx context.Context, x *executor) error
}

// executor runs queued steps against the working stack, writing objects as it goes
type executor struct {
	store git.ObjectStore
	cache *commitCache
	log   *slog.Logger
	w     *working
	out   *Outcome

	// worktreeTree is the tree the worktree holds before the final checkout
	worktreeTree plumbing.Hash
	branchHead   plumbing.Hash
	nameLength   int

	author    *object.Signature
	committer *object.Signature
}

func (x *executor) identity(ctx context.Context) (object.Signature, object.Signature, error) {
	if x.author == nil {
		author, committer, err := x.store.Identity(ctx)
		if err != nil {
			return object.Signature{}, object.Signature{}, err
		}
		x.author, x.committer = &author, &committer
	}
	return *x.author, *x.committer, nil
}

func (x *executor) patchCommit(ctx context.Context, name string) (*git.Commit, error) {
	e, ok := x.w.entries[name]
	if !ok {
		return nil, fmt.Errorf("patch %s vanished from the working stack", name)
	}
	c, err := x.cache.get(ctx, e.commit)
	if err != nil {
		return nil, err
	}
	if len(c.Parents) != 1 {
		return nil, fmt.Errorf("patch %s: commit %s must have exactly one parent", name, c.ID)
	}
	return c, nil
}

func (x *executor) writeCommit(ctx context.Context, c *git.Commit) (plumbing.Hash, error) {
	id, err := x.store.WriteCommit(ctx, c)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	stored := *c
	stored.ID = id
	x.cache.commits[id] = &stored
	return id, nil
}

type pushStep struct{ name string }

func (s *pushStep) run(ctx context.Context, x *executor) error {
	c, err := x.patchCommit(ctx, s.name)
	if err != nil {
		return err
	}
	head := x.w.head()
	headCommit, err := x.cache.get(ctx, head)
	if err != nil {
		return err
	}
	e := x.w.entries[s.name]
	x.w.unapplied = removeName(x.w.unapplied, s.name)
	x.w.applied = append(x.w.applied, s.name)
	x.out.Pushed = append(x.out.Pushed, s.name)

	if c.Parent() == head {
		x.log.Debug("fast-forward push", "patch", s.name)
		if c.Tree == headCommit.Tree {
			x.out.Empty = append(x.out.Empty, s.name)
		}
		return nil
	}

	result, err := x.store.ThreeWayMerge(ctx, c.Parent(), head, c.ID)
	if err != nil {
		return fmt.Errorf("push %s: %w", s.name, err)
	}
	_, committer, err := x.identity(ctx)
	if err != nil {
		return err
	}
	id, err := x.writeCommit(ctx, &git.Commit{
		Tree:      result.Tree,
		Parents:   []plumbing.Hash{head},
		Author:    c.Author,
		Committer: committer,
		Message:   c.Message,
	})
	if err != nil {
		return err
	}

	if result.Conflicted {
		x.log.Info("push conflicted", "patch", s.name, "files", result.Conflicts)
		e.orig = e.commit
		e.conflict = true
		e.conflicts = slices.Clone(result.Conflicts)
		e.commit = id
		x.out.Conflict = &Conflict{Patch: s.name, Files: result.Conflicts}
		return nil
	}
	if e.orig.IsZero() {
		e.orig = e.commit
	}
	e.commit = id
	if result.Tree == headCommit.Tree {
		x.out.Empty = append(x.out.Empty, s.name)
	}
	x.log.Debug("merged push", "patch", s.name, "commit", id.String())
	return nil
}

type popStep struct{ name string }

func (s *popStep) run(_ context.Context, x *executor) error {
	if x.w.top() != s.name {
		return fmt.Errorf("cannot pop %s: %s is on top", s.name, x.w.top())
	}
	e := x.w.entries[s.name]
	x.w.applied = x.w.applied[:len(x.w.applied)-1]
	x.w.unapplied = append([]string{s.name}, x.w.unapplied...)
	if !e.orig.IsZero() {
		// A merged or conflicted result is dropped, the patch goes back to what it was before the push
		e.commit = e.orig
	}
	e.orig = plumbing.ZeroHash
	e.conflict = false
	e.conflicts = nil
	x.out.Popped = append(x.out.Popped, s.name)
	return nil
}

type setCommitStep struct {
	name   string
	commit plumbing.Hash
}

func (s *setCommitStep) run(ctx context.Context, x *executor) error {
	e := x.w.entries[s.name]
	previous := *e
	e.amended(s.commit)
	if _, err := x.patchCommit(ctx, s.name); err != nil {
		*e = previous
		return err
	}
	return nil
}

type deleteStep struct{ name string }

func (s *deleteStep) run(_ context.Context, x *executor) error {
	if slices.Contains(x.w.applied, s.name) {
		return fmt.Errorf("cannot delete applied patch %s", s.name)
	}
	x.w.unapplied = removeName(x.w.unapplied, s.name)
	x.w.hidden = removeName(x.w.hidden, s.name)
	delete(x.w.entries, s.name)
	return nil
}

type hideStep struct{ name string }

func (s *hideStep) run(_ context.Context, x *executor) error {
	x.w.unapplied = removeName(x.w.unapplied, s.name)
	x.w.hidden = append(x.w.hidden, s.name)
	return nil
}

type unhideStep struct{ name string }

func (s *unhideStep) run(_ context.Context, x *executor) error {
	x.w.hidden = removeName(x.w.hidden, s.name)
	x.w.unapplied = append(x.w.unapplied, s.name)
	return nil
}

type renameStep struct{ oldName, newName string }

func (s *renameStep) run(_ context.Context, x *executor) error {
	x.w.applied = replaceName(x.w.applied, s.oldName, s.newName)
	x.w.unapplied = replaceName(x.w.unapplied, s.oldName, s.newName)
	x.w.hidden = replaceName(x.w.hidden, s.oldName, s.newName)
	x.w.entries[s.newName] = x.w.entries[s.oldName]
	delete(x.w.entries, s.oldName)
	return nil
}

type newStep struct{ name, message string }

func (s *newStep) run(ctx context.Context, x *executor) error {
	head := x.w.head()
	headCommit, err := x.cache.get(ctx, head)
	if err != nil {
		return err
	}
	author, committer, err := x.identity(ctx)
	if err != nil {
		return err
	}
	id, err := x.writeCommit(ctx, &git.Commit{
		Tree:      headCommit.Tree,
		Parents:   []plumbing.Hash{head},
		Author:    author,
		Committer: committer,
		Message:   s.message,
	})
	if err != nil {
		return err
	}
	x.w.entries[s.name] = &entry{commit: id}
	x.w.applied = append(x.w.applied, s.name)
	x.out.Created = append(x.out.Created, s.name)
	return nil
}

type insertStep struct {
	name   string
	commit plumbing.Hash
	front  bool
}

func (s *insertStep) run(ctx context.Context, x *executor) error {
	x.w.entries[s.name] = &entry{commit: s.commit}
	if _, err := x.patchCommit(ctx, s.name); err != nil {
		delete(x.w.entries, s.name)
		return err
	}
	if s.front {
		x.w.unapplied = append([]string{s.name}, x.w.unapplied...)
	} else {
		x.w.unapplied = append(x.w.unapplied, s.name)
	}
	x.out.Created = append(x.out.Created, s.name)
	return nil
}

type setBaseStep struct{ commit plumbing.Hash }

func (s *setBaseStep) run(ctx context.Context, x *executor) error {
	if len(x.w.applied) > 0 {
		return fmt.Errorf("cannot move the base with %d patches applied", len(x.w.applied))
	}
	if _, err := x.cache.get(ctx, s.commit); err != nil {
		return err
	}
	x.w.base = s.commit
	return nil
}

type orderStep struct{ order []string }

func (s *orderStep) run(_ context.Context, x *executor) error {
	current := slices.Clone(x.w.unapplied)
	wanted := slices.Clone(s.order)
	slices.Sort(current)
	slices.Sort(wanted)
	if !slices.Equal(current, wanted) {
		return fmt.Errorf("unapplied series changed while reordering")
	}
	x.w.unapplied = slices.Clone(s.order)
	return nil
}

type refreshStep struct {
	name             string
	message          string
	includeUntracked bool
}

func (s *refreshStep) run(ctx context.Context, x *executor) error {
	if x.w.top() != s.name {
		return fmt.Errorf("cannot refresh %s: %s is on top", s.name, x.w.top())
	}
	c, err := x.patchCommit(ctx, s.name)
	if err != nil {
		return err
	}
	tree, err := x.store.StageWorktree(ctx, s.includeUntracked)
	if err != nil {
		return err
	}
	e := x.w.entries[s.name]
	if tree == c.Tree && s.message == "" && !e.conflict {
		x.log.Debug("nothing to refresh", "patch", s.name)
		return nil
	}
	if e.conflict {
		left, err := x.markedFiles(ctx, tree, e.conflicts)
		if err != nil {
			return err
		}
		if len(left) > 0 {
			return pstackerrors.NewPatchError("refresh", s.name,
				fmt.Errorf("%w: %s", pstackerrors.ErrUnresolvedConflict, strings.Join(left, ", ")))
		}
	}
	_, committer, err := x.identity(ctx)
	if err != nil {
		return err
	}
	message := c.Message
	if s.message != "" {
		message = s.message
	}
	id, err := x.writeCommit(ctx, &git.Commit{
		Tree:      tree,
		Parents:   c.Parents,
		Author:    c.Author,
		Committer: committer,
		Message:   message,
	})
	if err != nil {
		return err
	}
	e.amended(id)
	x.worktreeTree = tree
	return nil
}

// markedFiles returns those of files that still hold conflict markers in tree
func (x *executor) markedFiles(ctx context.Context, tree plumbing.Hash, files []string) ([]string, error) {
	var left []string
	for _, file := range files {
		data, err := x.readPath(ctx, tree, file)
		if err != nil {
			return nil, err
		}
		if hasConflictMarkers(data) {
			left = append(left, file)
		}
	}
	return left, nil
}

// readPath reads the blob at a slash separated path; a missing file reads as nil
func (x *executor) readPath(ctx context.Context, tree plumbing.Hash, file string) ([]byte, error) {
	parts := strings.Split(file, "/")
	for i, part := range parts {
		entries, err := x.store.ReadTree(ctx, tree)
		if err != nil {
			return nil, err
		}
		idx := slices.IndexFunc(entries, func(e git.TreeEntry) bool { return e.Name == part })
		if idx < 0 {
			return nil, nil
		}
		if i == len(parts)-1 {
			if entries[idx].Mode == filemode.Dir {
				return nil, nil
			}
			return x.store.ReadBlob(ctx, entries[idx].Hash)
		}
		tree = entries[idx].Hash
	}
	return nil, nil
}

// hasConflictMarkers looks for the opening or closing marker line of a conflict hunk.
// The separator line alone is not enough, it also underlines markdown headings.
func hasConflictMarkers(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "<<<<<<< ") || strings.HasPrefix(line, ">>>>>>> ") ||
			line == "<<<<<<<" || line == ">>>>>>>" {
			return true
		}
	}
	return false
}

type spillStep struct{ name string }

func (s *spillStep) run(ctx context.Context, x *executor) error {
	c, err := x.patchCommit(ctx, s.name)
	if err != nil {
		return err
	}
	parent, err := x.cache.get(ctx, c.Parent())
	if err != nil {
		return err
	}
	_, committer, err := x.identity(ctx)
	if err != nil {
		return err
	}
	id, err := x.writeCommit(ctx, &git.Commit{
		Tree:      parent.Tree,
		Parents:   c.Parents,
		Author:    c.Author,
		Committer: committer,
		Message:   c.Message,
	})
	if err != nil {
		return err
	}
	x.w.entries[s.name].amended(id)
	return nil
}

type restoreStep struct{ target *working }

func (s *restoreStep) run(_ context.Context, x *executor) error {
	x.w = s.target.clone()
	return nil
}
