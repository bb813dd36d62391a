package engine

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"

	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/git"
)

// commitCache memoizes commit reads for the lifetime of one load or transaction
type commitCache struct {
	store   git.ObjectStore
	commits map[plumbing.Hash]*git.Commit
}

func newCommitCache(store git.ObjectStore) *commitCache {
	return &commitCache{store: store, commits: make(map[plumbing.Hash]*git.Commit)}
}

func (c *commitCache) get(ctx context.Context, id plumbing.Hash) (*git.Commit, error) {
	if commit, ok := c.commits[id]; ok {
		return commit, nil
	}
	commit, err := c.store.ReadCommit(ctx, id)
	if err != nil {
		return nil, err
	}
	c.commits[id] = commit
	return commit, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", pstackerrors.ErrCorruptState, fmt.Sprintf(format, args...))
}

// buildState checks every stack invariant of w and turns it into a StackState.
// The applied chain is walked exactly once.
func buildState(ctx context.Context, cache *commitCache, id plumbing.Hash, w *working) (*StackState, error) {
	seen := make(map[string]Partition, len(w.entries))
	for _, set := range []struct {
		names []string
		part  Partition
	}{
		{w.applied, PartitionApplied},
		{w.unapplied, PartitionUnapplied},
		{w.hidden, PartitionHidden},
	} {
		for _, name := range set.names {
			if prev, dup := seen[name]; dup {
				return nil, corrupt("patch %s is both %s and %s", name, prev, set.part)
			}
			if _, ok := w.entries[name]; !ok {
				return nil, corrupt("patch %s is %s but has no record", name, set.part)
			}
			seen[name] = set.part
		}
	}
	if len(seen) != len(w.entries) {
		for name := range w.entries {
			if _, ok := seen[name]; !ok {
				return nil, corrupt("patch %s is in no series", name)
			}
		}
	}

	for name, e := range w.entries {
		if e.conflict && name != w.top() {
			return nil, corrupt("conflicted patch %s is not the top patch", name)
		}
	}

	state := &StackState{
		ID:        id,
		Base:      w.base,
		Head:      w.head(),
		applied:   append([]string{}, w.applied...),
		unapplied: append([]string{}, w.unapplied...),
		hidden:    append([]string{}, w.hidden...),
		patches:   make(map[string]Patch, len(w.entries)),
	}

	parent := w.base
	for _, name := range w.applied {
		e := w.entries[name]
		commit, err := cache.get(ctx, e.commit)
		if err != nil {
			return nil, err
		}
		if len(commit.Parents) != 1 || commit.Parents[0] != parent {
			return nil, corrupt("applied patch %s is not on top of %s", name, parent)
		}
		state.patches[name] = patchFromCommit(name, commit, e.conflict)
		parent = e.commit
	}
	for _, names := range [][]string{w.unapplied, w.hidden} {
		for _, name := range names {
			e := w.entries[name]
			commit, err := cache.get(ctx, e.commit)
			if err != nil {
				return nil, err
			}
			if len(commit.Parents) != 1 {
				return nil, corrupt("patch %s must have exactly one parent", name)
			}
			state.patches[name] = patchFromCommit(name, commit, false)
		}
	}
	return state, nil
}

func patchFromCommit(name string, c *git.Commit, conflict bool) Patch {
	return Patch{
		Name:      name,
		Commit:    c.ID,
		Message:   c.Message,
		Author:    c.Author,
		Committer: c.Committer,
		Conflict:  conflict,
	}
}
