package engine

import (
	pstackerrors "stackit.dev/pstack/internal/errors"
)

// OutcomeKind is the result of committing a transaction
type OutcomeKind int

const (
	// OutcomeClean means every queued operation ran
	OutcomeClean OutcomeKind = iota
	// OutcomeConflict means a push stopped on a conflict; the partial result was published
	OutcomeConflict
	// OutcomeAborted means nothing was published, either on error or because nothing changed
	OutcomeAborted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeClean:
		return "clean"
	case OutcomeConflict:
		return "conflict"
	default:
		return "aborted"
	}
}

// Conflict describes the push a transaction stopped on
type Conflict struct {
	Patch string
	Files []string
}

// Outcome reports what a committed transaction did
type Outcome struct {
	Kind OutcomeKind
	// State is the published state, or the unchanged starting state
	State *StackState
	// Published is false when the transaction changed nothing
	Published bool
	Pushed    []string
	Popped    []string
	Created   []string
	// Empty lists pushed patches whose changes were already present below them
	Empty    []string
	Conflict *Conflict
	// Skipped counts queued operations that did not run because of the conflict
	Skipped int
}

// Err returns the soft conflict error for conflicted outcomes and nil otherwise
func (o *Outcome) Err() error {
	if o == nil || o.Conflict == nil {
		return nil
	}
	return pstackerrors.NewMergeConflictError(o.Conflict.Patch, o.Conflict.Files)
}
