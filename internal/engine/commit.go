package engine

import (
	"context"
	"errors"
	"fmt"

	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/git"
)

// Commit runs the queued operations and publishes the result with a single
// compare-and-swap of the stack and branch references. A push conflict stops
// execution and publishes the partial result as a Conflict outcome. On any error
// nothing is published and the worktree is left as it was.
func (tx *Transaction) Commit(ctx context.Context) (*Outcome, error) {
	if err := tx.checkOpen(); err != nil {
		return nil, err
	}
	tx.closed = true
	defer tx.release()

	aborted := &Outcome{Kind: OutcomeAborted, State: tx.before}

	startCommit, err := tx.cache.get(ctx, tx.branchHead)
	if err != nil {
		return aborted, err
	}
	x := &executor{
		store:        tx.stack.store,
		cache:        tx.cache,
		log:          tx.log,
		w:            tx.beforeWork.clone(),
		out:          &Outcome{Kind: OutcomeClean},
		worktreeTree: startCommit.Tree,
		branchHead:   tx.branchHead,
		nameLength:   tx.stack.opts.NameLength,
	}
	for i, st := range tx.steps {
		if err := st.run(ctx, x); err != nil {
			tx.log.Warn("transaction aborted", "error", err)
			return aborted, err
		}
		if x.out.Conflict != nil {
			x.out.Kind = OutcomeConflict
			x.out.Skipped = len(tx.steps) - i - 1
			break
		}
	}

	out := x.out
	if tx.cfg.kind == KindRegular && x.w.equal(tx.beforeWork) && x.worktreeTree == startCommit.Tree && tx.branchHead == tx.before.Head {
		out.Kind = OutcomeAborted
		out.State = tx.before
		tx.log.Debug("nothing to publish")
		return out, nil
	}

	rec := newStateRecord(x.w)
	rec.Seq = tx.beforeRecord.Seq + 1
	rec.Command = tx.command
	rec.Kind = tx.cfg.kind
	rec.Steps = tx.cfg.steps
	rec.TxID = tx.id
	rec.Timestamp = tx.stack.opts.Now().UTC()
	rec.Prev = tx.before.ID.String()
	stateID, err := writeRecord(ctx, tx.stack.store, rec, x.w)
	if err != nil {
		return aborted, err
	}
	state, err := buildState(ctx, tx.cache, stateID, x.w)
	if err != nil {
		return aborted, fmt.Errorf("refusing to publish: %w", err)
	}

	headCommit, err := tx.cache.get(ctx, state.Head)
	if err != nil {
		return aborted, err
	}
	checkedOut := false
	if !tx.keepWorktree && (tx.cfg.force || x.worktreeTree != headCommit.Tree) {
		if err := tx.stack.store.Checkout(ctx, x.worktreeTree, headCommit.Tree, tx.cfg.force); err != nil {
			return aborted, err
		}
		checkedOut = true
	}

	updates := []git.RefUpdate{
		{Name: git.StackRef(tx.stack.branch), Old: tx.before.ID, New: stateID},
		{Name: git.BranchRef(tx.stack.branch), Old: tx.branchHead, New: state.Head},
	}
	if err := tx.stack.store.UpdateRefs(ctx, "pstack: "+tx.command, updates); err != nil {
		if checkedOut {
			if rollbackErr := tx.stack.store.Checkout(ctx, headCommit.Tree, x.worktreeTree, true); rollbackErr != nil {
				err = errors.Join(err, fmt.Errorf("failed to restore worktree: %w", rollbackErr))
			}
		}
		if errors.Is(err, pstackerrors.ErrRefRace) {
			tx.log.Warn("lost publish race", "error", err)
		}
		return aborted, err
	}

	out.State = state
	out.Published = true
	tx.log.Info("published stack state",
		"state", stateID.String(),
		"outcome", out.Kind.String(),
		"applied", len(state.applied),
		"unapplied", len(state.unapplied),
		"hidden", len(state.hidden))
	return out, nil
}
