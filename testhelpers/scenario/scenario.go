// Package scenario provides a high-level test scenario that combines an
// in-memory object store and an engine stack to provide a terse API for engine tests.
package scenario

import (
	"context"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"stackit.dev/pstack/internal/engine"
	"stackit.dev/pstack/internal/git"
	"stackit.dev/pstack/testhelpers"
)

// Scenario is an initialized stack on branch main of a MemoryStore
type Scenario struct {
	T     *testing.T
	Ctx   context.Context
	Store *testhelpers.MemoryStore
	Stack *engine.Stack
	// Last is the outcome of the most recent transaction run through Tx
	Last *engine.Outcome
}

// NewScenario creates a store and initializes a stack on main
func NewScenario(t *testing.T, opts engine.Options) *Scenario {
	t.Helper()
	ctx := context.Background()
	store := testhelpers.NewMemoryStore(t)
	stack, err := engine.Init(ctx, store, "main", opts)
	require.NoError(t, err)
	return &Scenario{T: t, Ctx: ctx, Store: store, Stack: stack}
}

// Head returns the branch head
func (s *Scenario) Head() plumbing.Hash {
	return s.Store.Ref(git.BranchRef("main"))
}

// State loads the published state
func (s *Scenario) State() *engine.StackState {
	s.T.Helper()
	state, err := s.Stack.State(s.Ctx)
	require.NoError(s.T, err)
	return state
}

// WithApplied adds a patch changing files on top of the stack
func (s *Scenario) WithApplied(name string, files map[string]string) *Scenario {
	s.T.Helper()
	commit, err := s.Store.CommitFiles(s.State().Head, name, files)
	require.NoError(s.T, err)
	s.Tx("new "+name, func(tx *engine.Transaction) error {
		return tx.NewApplied(name, commit)
	})
	require.Nil(s.T, s.Last.Conflict)
	return s
}

// WithUnapplied adds a patch changing files on top of the current head,
// then leaves it at the end of the unapplied series
func (s *Scenario) WithUnapplied(name string, files map[string]string) *Scenario {
	s.T.Helper()
	commit, err := s.Store.CommitFiles(s.State().Head, name, files)
	require.NoError(s.T, err)
	s.Tx("new "+name, func(tx *engine.Transaction) error {
		return tx.NewUnapplied(name, commit)
	})
	return s
}

// Tx runs fn in a transaction and commits it, failing the test on any error
func (s *Scenario) Tx(command string, fn func(tx *engine.Transaction) error, opts ...engine.TxOption) *engine.Outcome {
	s.T.Helper()
	out, err := s.TryTx(command, fn, opts...)
	require.NoError(s.T, err)
	return out
}

// TryTx runs fn in a transaction and commits it. The transaction is discarded when fn fails.
func (s *Scenario) TryTx(command string, fn func(tx *engine.Transaction) error, opts ...engine.TxOption) (*engine.Outcome, error) {
	s.T.Helper()
	tx, err := s.Stack.Begin(s.Ctx, command, opts...)
	if err != nil {
		return nil, err
	}
	if err := fn(tx); err != nil {
		tx.Discard()
		return nil, err
	}
	out, err := tx.Commit(s.Ctx)
	s.Last = out
	return out, err
}

// Expect asserts the three partitions of the published state
func (s *Scenario) Expect(applied, unapplied, hidden []string) *Scenario {
	s.T.Helper()
	state := s.State()
	require.Equal(s.T, nonNil(applied), nonNil(state.AppliedNames()), "applied")
	require.Equal(s.T, nonNil(unapplied), nonNil(state.UnappliedNames()), "unapplied")
	require.Equal(s.T, nonNil(hidden), nonNil(state.HiddenNames()), "hidden")
	require.Equal(s.T, state.Head, s.Head(), "branch head must match the stack head")
	return s
}

// ExpectWorktree asserts file contents in the worktree
func (s *Scenario) ExpectWorktree(files map[string]string) *Scenario {
	s.T.Helper()
	testhelpers.ExpectFiles(s.T, s.Store.WorktreeFiles(), files)
	return s
}

// ExpectMissing asserts that files are absent from the worktree
func (s *Scenario) ExpectMissing(paths ...string) *Scenario {
	s.T.Helper()
	files := s.Store.WorktreeFiles()
	for _, p := range paths {
		require.NotContains(s.T, files, p)
	}
	return s
}

// ExpectClean asserts that the worktree matches the branch head
func (s *Scenario) ExpectClean() *Scenario {
	s.T.Helper()
	head, err := s.Store.ReadCommit(s.Ctx, s.Head())
	require.NoError(s.T, err)
	clean, err := s.Store.WorktreeIsClean(s.Ctx, head.Tree)
	require.NoError(s.T, err)
	require.True(s.T, clean, "worktree should match the branch head")
	return s
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
