package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-git/go-git/v5/plumbing"

	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/git"
)

// Diff returns the unified diff a patch introduces over its parent
func (s *Stack) Diff(ctx context.Context, name string) ([]byte, error) {
	state, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	p, err := state.Lookup(name)
	if err != nil {
		return nil, err
	}
	c, err := s.store.ReadCommit(ctx, p.Commit)
	if err != nil {
		return nil, err
	}
	parent, err := s.store.ReadCommit(ctx, c.Parent())
	if err != nil {
		return nil, err
	}
	return s.store.DiffTrees(ctx, parent.Tree, c.Tree)
}

// Import creates a patch on top of the stack from a unified diff.
// An empty name is derived from message.
func (tx *Transaction) Import(name, message string, diff []byte) (string, error) {
	if err := tx.guard("import"); err != nil {
		return "", err
	}
	if message == "" && name == "" {
		return "", pstackerrors.NewUsageError("import needs a patch name or a message")
	}
	if name == "" {
		name = Uniquify(MakePatchName(message, tx.stack.opts.NameLength), func(n string) bool { return !tx.IsFree(n) })
	}
	if err := tx.requireNewName("import", name); err != nil {
		return "", err
	}
	if message == "" {
		message = name
	}
	tx.model.applied = append(tx.model.applied, name)
	tx.queue(&importStep{name: name, message: message, diff: diff})
	return name, nil
}

// Replace swaps the changes of a patch for diff, applied onto the patch's parent.
// Patches above an applied patch are pushed back on top.
func (tx *Transaction) Replace(name string, diff []byte) error {
	if err := tx.guard("replace"); err != nil {
		return err
	}
	part, err := tx.requireExisting("replace", name)
	if err != nil {
		return err
	}
	if part != PartitionApplied {
		tx.queue(&replaceStep{name: name, diff: diff})
		return nil
	}
	popped := tx.popRange(slices.Index(tx.model.applied, name))
	tx.queue(&replaceStep{name: name, diff: diff})
	tx.pushNames(popped)
	return nil
}

type importStep struct {
	name, message string
	diff          []byte
}

func (s *importStep) run(ctx context.Context, x *executor) error {
	head := x.w.head()
	headCommit, err := x.cache.get(ctx, head)
	if err != nil {
		return err
	}
	tree, err := x.store.ApplyDiff(ctx, headCommit.Tree, s.diff)
	if err != nil {
		return pstackerrors.NewPatchError("import", s.name, err)
	}
	author, committer, err := x.identity(ctx)
	if err != nil {
		return err
	}
	id, err := x.writeCommit(ctx, &git.Commit{
		Tree:      tree,
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

type replaceStep struct {
	name string
	diff []byte
}

func (s *replaceStep) run(ctx context.Context, x *executor) error {
	c, err := x.patchCommit(ctx, s.name)
	if err != nil {
		return err
	}
	if slices.Contains(x.w.applied, s.name) {
		return fmt.Errorf("cannot replace applied patch %s in place", s.name)
	}
	parent, err := x.cache.get(ctx, c.Parent())
	if err != nil {
		return err
	}
	tree, err := x.store.ApplyDiff(ctx, parent.Tree, s.diff)
	if err != nil {
		return pstackerrors.NewPatchError("replace", s.name, err)
	}
	_, committer, err := x.identity(ctx)
	if err != nil {
		return err
	}
	id, err := x.writeCommit(ctx, &git.Commit{
		Tree:      tree,
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
