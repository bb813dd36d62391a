package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/git"
	"stackit.dev/pstack/internal/utils"
)

// UndoEntry is one published transaction in the stack log
type UndoEntry struct {
	// ID is the state the transaction produced
	ID plumbing.Hash
	// Prev is the state the transaction started from; zero for the init entry
	Prev      plumbing.Hash
	Seq       int
	Command   string
	Kind      EntryKind
	Steps     int
	TxID      string
	Timestamp time.Time
	Applied   []string
	Unapplied []string
	Hidden    []string
}

// DisplayName returns a one-line description of the entry
func (e UndoEntry) DisplayName() string {
	what := e.Command
	switch e.Kind {
	case KindUndo, KindRedo:
		what = fmt.Sprintf("%s %d", e.Kind, e.Steps)
	}
	return fmt.Sprintf("%s (%s)", what, utils.FormatTimeAgo(e.Timestamp))
}

func entryFromRecord(id plumbing.Hash, rec *stateRecord) UndoEntry {
	return UndoEntry{
		ID:        id,
		Prev:      rec.prev(),
		Seq:       rec.Seq,
		Command:   rec.Command,
		Kind:      rec.Kind,
		Steps:     rec.Steps,
		TxID:      rec.TxID,
		Timestamp: rec.Timestamp,
		Applied:   rec.Applied,
		Unapplied: rec.Unapplied,
		Hidden:    rec.Hidden,
	}
}

// Log lists the stack log newest first. limit <= 0 returns the whole log.
func (s *Stack) Log(ctx context.Context, limit int) ([]UndoEntry, error) {
	id, err := s.store.ResolveRef(ctx, git.StackRef(s.branch))
	if err != nil {
		return nil, err
	}
	if id.IsZero() {
		return nil, fmt.Errorf("%w: %s", pstackerrors.ErrNotInitialized, s.branch)
	}

	var entries []UndoEntry
	for !id.IsZero() && (limit <= 0 || len(entries) < limit) {
		rec, err := readRecord(ctx, s.store, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entryFromRecord(id, rec))
		id = rec.prev()
	}
	return entries, nil
}

// Undo restores the state from before the last n operations.
// Consecutive undos keep walking back instead of undoing each other.
func (s *Stack) Undo(ctx context.Context, n int, hard bool) (*Outcome, error) {
	if n < 1 {
		return nil, pstackerrors.NewUsageError("number of steps to undo must be at least 1")
	}
	return s.travel(ctx, fmt.Sprintf("undo %d", n), KindUndo, n, n, hard)
}

// Redo reverts the last n undos
func (s *Stack) Redo(ctx context.Context, n int, hard bool) (*Outcome, error) {
	if n < 1 {
		return nil, pstackerrors.NewUsageError("number of steps to redo must be at least 1")
	}
	return s.travel(ctx, fmt.Sprintf("redo %d", n), KindRedo, n, -n, hard)
}

// Reset restores any state from the log
func (s *Stack) Reset(ctx context.Context, id plumbing.Hash, hard bool) (*Outcome, error) {
	tx, err := s.Begin(ctx, "reset", travelOptions(KindReset, 0, hard)...)
	if err != nil {
		return nil, err
	}
	rec, err := readRecord(ctx, s.store, id)
	if err != nil {
		tx.Discard()
		return nil, err
	}
	target, err := rec.working()
	if err != nil {
		tx.Discard()
		return nil, err
	}
	tx.command = fmt.Sprintf("reset to %s", rec.Command)
	tx.restore(target)
	return tx.Commit(ctx)
}

func (s *Stack) travel(ctx context.Context, command string, kind EntryKind, n, steps int, hard bool) (*Outcome, error) {
	tx, err := s.Begin(ctx, command, travelOptions(kind, n, hard)...)
	if err != nil {
		return nil, err
	}
	rec, err := logTarget(ctx, s, tx.beforeRecord, steps)
	if err != nil {
		tx.Discard()
		return nil, err
	}
	target, err := rec.working()
	if err != nil {
		tx.Discard()
		return nil, err
	}
	tx.restore(target)
	return tx.Commit(ctx)
}

func travelOptions(kind EntryKind, n int, hard bool) []TxOption {
	opts := []TxOption{withKind(kind, n)}
	if hard {
		opts = append(opts, Force())
	}
	return opts
}

// logTarget walks the log from cur. Positive steps undo, negative steps redo:
// an "undo k" entry passed while undoing adds k steps, while redoing it cancels one,
// and a "redo k" entry passed while redoing adds k.
func logTarget(ctx context.Context, s *Stack, cur *stateRecord, steps int) (*stateRecord, error) {
	exhausted := pstackerrors.ErrNothingToUndo
	if steps < 0 {
		exhausted = pstackerrors.ErrNothingToRedo
	}

	rec := cur
	for steps != 0 {
		if steps > 0 {
			if rec.Kind == KindUndo {
				steps += rec.Steps
			} else {
				steps--
			}
		} else {
			switch rec.Kind {
			case KindUndo:
				steps++
			case KindRedo:
				steps -= rec.Steps
			default:
				return nil, exhausted
			}
		}

		prev := rec.prev()
		if prev.IsZero() {
			return nil, exhausted
		}
		next, err := readRecord(ctx, s.store, prev)
		if err != nil {
			return nil, err
		}
		rec = next
	}
	return rec, nil
}
