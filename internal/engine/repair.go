package engine

import (
	"context"
	"slices"

	"github.com/go-git/go-git/v5/plumbing"

	"stackit.dev/pstack/internal/git"
)

// Repair reconciles the stack with a branch that was moved by plain git commands.
// Patch commits reachable from the branch head become applied, the others unapplied,
// and plain commits between the stack and the head become new patches.
// With reset the branch head becomes the new base and every patch is unapplied.
func (s *Stack) Repair(ctx context.Context, reset bool) (*Outcome, error) {
	tx, err := s.Begin(ctx, "repair", skipHeadCheck(), AllowDirty())
	if err != nil {
		return nil, err
	}
	tx.keepWorktree = true
	tx.queue(&repairStep{reset: reset})
	return tx.Commit(ctx)
}

type repairStep struct{ reset bool }

func (s *repairStep) run(ctx context.Context, x *executor) error {
	old := x.w
	byCommit := make(map[plumbing.Hash]string, len(old.entries))
	taken := make(map[string]bool, len(old.entries))
	for name, e := range old.entries {
		byCommit[e.commit] = name
		taken[name] = true
	}

	chain, base, err := s.walk(ctx, x, old, byCommit)
	if err != nil {
		return err
	}

	w := &working{base: base, entries: make(map[string]*entry, len(old.entries)+len(chain))}
	for i := len(chain) - 1; i >= 0; i-- {
		c := chain[i]
		name, known := byCommit[c.ID]
		if !known {
			name = Uniquify(MakePatchName(c.Message, x.nameLength), func(n string) bool { return taken[n] })
			taken[name] = true
			x.out.Created = append(x.out.Created, name)
			x.log.Info("adopted commit as patch", "patch", name, "commit", c.ID.String())
		}
		e := &entry{commit: c.ID}
		if known && old.entries[name].commit == c.ID {
			e.orig = old.entries[name].orig
		}
		w.entries[name] = e
		w.applied = append(w.applied, name)
	}
	if top := w.top(); top != "" && old.entries[top] != nil && old.entries[top].conflict {
		*w.entries[top] = *old.entries[top]
	}

	settle := func(name string) {
		e := *old.entries[name]
		if !e.orig.IsZero() {
			e.commit = e.orig
		}
		e.orig, e.conflict, e.conflicts = plumbing.ZeroHash, false, nil
		w.entries[name] = &e
	}
	for _, name := range slices.Concat(old.applied, old.unapplied) {
		if _, ok := w.entries[name]; ok {
			continue
		}
		settle(name)
		w.unapplied = append(w.unapplied, name)
		if slices.Contains(old.applied, name) {
			x.out.Popped = append(x.out.Popped, name)
		}
	}
	for _, name := range old.hidden {
		if _, ok := w.entries[name]; ok {
			continue
		}
		settle(name)
		w.hidden = append(w.hidden, name)
	}
	x.w = w
	return nil
}

// walk follows first parents from the branch head down to the stack base.
// A merge or root commit stops the walk; the stack then starts below the
// deepest known patch found on the way, or at the branch head when there is none.
func (s *repairStep) walk(ctx context.Context, x *executor, old *working, known map[plumbing.Hash]string) ([]*git.Commit, plumbing.Hash, error) {
	if s.reset {
		return nil, x.branchHead, nil
	}
	var chain []*git.Commit
	for id := x.branchHead; id != old.base; {
		c, err := x.cache.get(ctx, id)
		if err != nil {
			return nil, plumbing.ZeroHash, err
		}
		if len(c.Parents) != 1 {
			deepest := -1
			for i, c := range chain {
				if _, ok := known[c.ID]; ok {
					deepest = i
				}
			}
			if deepest < 0 {
				return nil, x.branchHead, nil
			}
			return chain[:deepest+1], chain[deepest].Parent(), nil
		}
		chain = append(chain, c)
		id = c.Parent()
	}
	return chain, old.base, nil
}
