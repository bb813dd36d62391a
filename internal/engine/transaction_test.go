package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stackit.dev/pstack/internal/engine"
	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/testhelpers/scenario"
)

func newABC(t *testing.T, opts engine.Options) *scenario.Scenario {
	t.Helper()
	return scenario.NewScenario(t, opts).
		WithApplied("a", map[string]string{"a.txt": "a\n"}).
		WithApplied("b", map[string]string{"b.txt": "b\n"}).
		WithApplied("c", map[string]string{"c.txt": "c\n"})
}

func TestInit(t *testing.T) {
	t.Run("starts empty at the branch head", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{})
		state := s.State()
		require.Equal(t, s.Head(), state.Base)
		require.Equal(t, s.Head(), state.Head)
		require.Zero(t, state.Len())
		s.Expect(nil, nil, nil)
	})

	t.Run("refuses a second init", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{})
		_, err := engine.Init(s.Ctx, s.Store, "main", engine.Options{})
		require.ErrorIs(t, err, pstackerrors.ErrAlreadyInitialized)
	})

	t.Run("open requires init", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{})
		require.NoError(t, s.Stack.Uninit(s.Ctx))
		_, err := engine.Open(s.Ctx, s.Store, "main", engine.Options{})
		require.ErrorIs(t, err, pstackerrors.ErrNotInitialized)
	})
}

func TestPushPop(t *testing.T) {
	t.Run("push then pop restores the previous state", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{}).
			WithApplied("a", map[string]string{"a.txt": "a\n"}).
			WithUnapplied("b", map[string]string{"b.txt": "b\n"})
		before := s.State()
		worktree := s.Store.WorktreeFiles()

		out := s.Tx("push", func(tx *engine.Transaction) error { return tx.Push("b") })
		require.Equal(t, engine.OutcomeClean, out.Kind)
		require.Equal(t, []string{"b"}, out.Pushed)
		s.Expect([]string{"a", "b"}, nil, nil).
			ExpectWorktree(map[string]string{"b.txt": "b\n"})

		s.Tx("pop", func(tx *engine.Transaction) error { return tx.Pop("b") })
		after := s.State()
		require.Equal(t, before.Base, after.Base)
		require.Equal(t, before.Head, after.Head)
		require.Equal(t, commitsOf(before), commitsOf(after))
		require.Equal(t, worktree, s.Store.WorktreeFiles())
	})

	t.Run("push merges a patch onto a different parent", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{})
		root := s.Head()
		s.WithApplied("a", map[string]string{"a.txt": "a\n"})
		other, err := s.Store.CommitFiles(root, "other", map[string]string{"o.txt": "o\n"})
		require.NoError(t, err)
		s.Tx("add", func(tx *engine.Transaction) error { return tx.NewUnapplied("o", other) })

		out := s.Tx("push", func(tx *engine.Transaction) error { return tx.PushNext(-1) })
		require.Equal(t, engine.OutcomeClean, out.Kind)
		s.Expect([]string{"a", "o"}, nil, nil).
			ExpectWorktree(map[string]string{"a.txt": "a\n", "o.txt": "o\n"}).
			ExpectClean()

		p, err := s.State().Lookup("o")
		require.NoError(t, err)
		require.NotEqual(t, other, p.Commit, "a merged push writes a new commit")
		require.Equal(t, "other", p.Subject())
	})

	t.Run("push onto a new parent then pop restores the patch commit", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{})
		root := s.Head()
		s.WithApplied("a", map[string]string{"a.txt": "a\n"})
		b, err := s.Store.CommitFiles(root, "b", map[string]string{"b.txt": "b\n"})
		require.NoError(t, err)
		s.Tx("add", func(tx *engine.Transaction) error { return tx.NewUnapplied("b", b) })
		before := s.State()

		s.Tx("push", func(tx *engine.Transaction) error { return tx.Push("b") })
		pushed, err := s.State().Lookup("b")
		require.NoError(t, err)
		require.NotEqual(t, b, pushed.Commit)

		s.Tx("pop", func(tx *engine.Transaction) error { return tx.Pop("b") })
		s.Expect([]string{"a"}, []string{"b"}, nil).ExpectMissing("b.txt")
		popped, err := s.State().Lookup("b")
		require.NoError(t, err)
		require.Equal(t, b, popped.Commit)
		require.Equal(t, before.Head, s.Head())
	})

	t.Run("push and pop in one transaction publishes nothing", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{})
		root := s.Head()
		s.WithApplied("a", map[string]string{"a.txt": "a\n"})
		b, err := s.Store.CommitFiles(root, "b", map[string]string{"b.txt": "b\n"})
		require.NoError(t, err)
		s.Tx("add", func(tx *engine.Transaction) error { return tx.NewUnapplied("b", b) })

		out := s.Tx("push and pop", func(tx *engine.Transaction) error {
			if err := tx.Push("b"); err != nil {
				return err
			}
			return tx.Pop("b")
		})
		require.Equal(t, engine.OutcomeAborted, out.Kind)
		require.False(t, out.Published)
	})

	t.Run("pop after refresh keeps the refreshed commit", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{})
		root := s.Head()
		s.WithApplied("a", map[string]string{"a.txt": "a\n"})
		b, err := s.Store.CommitFiles(root, "b", map[string]string{"b.txt": "b\n"})
		require.NoError(t, err)
		s.Tx("add", func(tx *engine.Transaction) error { return tx.NewUnapplied("b", b) })
		s.Tx("push", func(tx *engine.Transaction) error { return tx.Push("b") })

		s.Store.WriteFile("b.txt", "b2\n")
		s.Tx("refresh", func(tx *engine.Transaction) error { return tx.Refresh("") }, engine.AllowDirty())
		refreshed, err := s.State().Lookup("b")
		require.NoError(t, err)

		s.Tx("pop", func(tx *engine.Transaction) error { return tx.Pop("b") })
		popped, err := s.State().Lookup("b")
		require.NoError(t, err)
		require.Equal(t, refreshed.Commit, popped.Commit)
		files, err := s.Store.CommitFilesOf(popped.Commit)
		require.NoError(t, err)
		require.Equal(t, "b2\n", files["b.txt"])
	})

	t.Run("push of changes already below is recorded as empty", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{})
		root := s.Head()
		s.WithApplied("a", map[string]string{"a.txt": "a\n"})
		dup, err := s.Store.CommitFiles(root, "dup", map[string]string{"a.txt": "a\n"})
		require.NoError(t, err)
		s.Tx("add", func(tx *engine.Transaction) error { return tx.NewUnapplied("dup", dup) })

		out := s.Tx("push", func(tx *engine.Transaction) error { return tx.Push("dup") })
		require.Equal(t, engine.OutcomeClean, out.Kind)
		require.Equal(t, []string{"dup"}, out.Empty)
		s.Expect([]string{"a", "dup"}, nil, nil)
	})

	t.Run("boundaries", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{}).
			WithUnapplied("u", map[string]string{"u.txt": "u\n"})

		_, err := s.TryTx("pop", func(tx *engine.Transaction) error { return tx.Pop() })
		require.ErrorIs(t, err, pstackerrors.ErrNotApplied)

		_, err = s.TryTx("pop", func(tx *engine.Transaction) error { return tx.Pop("u") })
		require.ErrorIs(t, err, pstackerrors.ErrNotApplied)

		_, err = s.TryTx("push", func(tx *engine.Transaction) error { return tx.Push("missing") })
		require.ErrorIs(t, err, pstackerrors.ErrNotUnapplied)
		require.ErrorIs(t, err, pstackerrors.ErrNotFound)

		s.Tx("push", func(tx *engine.Transaction) error { return tx.Push("u") })
		_, err = s.TryTx("push", func(tx *engine.Transaction) error { return tx.Push("u") })
		require.ErrorIs(t, err, pstackerrors.ErrNotUnapplied)

		_, err = s.TryTx("push", func(tx *engine.Transaction) error { return tx.PushNext(1) })
		require.ErrorIs(t, err, pstackerrors.ErrNotUnapplied)
	})

	t.Run("operations see the effect of earlier ones", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{}).
			WithUnapplied("a", map[string]string{"a.txt": "a\n"})

		s.Tx("push and pop", func(tx *engine.Transaction) error {
			require.NoError(t, tx.Push("a"))
			require.Equal(t, []string{"a"}, tx.Applied())
			return tx.Pop("a")
		})
		s.Expect(nil, []string{"a"}, nil)
	})
}

func TestPopPolicy(t *testing.T) {
	t.Run("cascade pops everything above", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		out := s.Tx("pop", func(tx *engine.Transaction) error { return tx.Pop("a") })
		require.Equal(t, []string{"c", "b", "a"}, out.Popped)
		s.Expect(nil, []string{"a", "b", "c"}, nil).
			ExpectMissing("a.txt", "b.txt", "c.txt")
	})

	t.Run("reorder pushes the patches above back", func(t *testing.T) {
		s := newABC(t, engine.Options{PopPolicy: engine.PopReorder})
		s.Tx("pop", func(tx *engine.Transaction) error { return tx.Pop("a") })
		s.Expect([]string{"b", "c"}, []string{"a"}, nil).
			ExpectWorktree(map[string]string{"b.txt": "b\n", "c.txt": "c\n"}).
			ExpectMissing("a.txt").
			ExpectClean()
	})

	t.Run("reject refuses non-top pops", func(t *testing.T) {
		s := newABC(t, engine.Options{PopPolicy: engine.PopReject})
		_, err := s.TryTx("pop", func(tx *engine.Transaction) error { return tx.Pop("a") })
		require.ErrorIs(t, err, pstackerrors.ErrNotTop)
		s.Expect([]string{"a", "b", "c"}, nil, nil)

		s.Tx("pop", func(tx *engine.Transaction) error { return tx.Pop("c") })
		s.Expect([]string{"a", "b"}, []string{"c"}, nil)
	})

	t.Run("per transaction override", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		_, err := s.TryTx("pop", func(tx *engine.Transaction) error { return tx.Pop("b") },
			engine.WithPopPolicy(engine.PopReject))
		require.ErrorIs(t, err, pstackerrors.ErrNotTop)
	})

	t.Run("pop several from the top", func(t *testing.T) {
		s := newABC(t, engine.Options{PopPolicy: engine.PopReject})
		s.Tx("pop", func(tx *engine.Transaction) error { return tx.PopTop(2) })
		s.Expect([]string{"a"}, []string{"b", "c"}, nil)
	})
}

func TestReorder(t *testing.T) {
	setup := func(t *testing.T) *scenario.Scenario {
		return scenario.NewScenario(t, engine.Options{}).
			WithApplied("a", map[string]string{"a.txt": "a\n"}).
			WithApplied("b", map[string]string{"b.txt": "b\n"}).
			WithUnapplied("c", map[string]string{"c.txt": "c\n"}).
			WithUnapplied("d", map[string]string{"d.txt": "d\n"})
	}

	t.Run("reorders within each partition", func(t *testing.T) {
		s := setup(t)
		s.Tx("sort", func(tx *engine.Transaction) error {
			return tx.Reorder([]string{"b", "a", "d", "c"})
		})
		s.Expect([]string{"b", "a"}, []string{"d", "c"}, nil).
			ExpectWorktree(map[string]string{"a.txt": "a\n", "b.txt": "b\n"}).
			ExpectClean()
	})

	t.Run("unapplied only changes keep the head", func(t *testing.T) {
		s := setup(t)
		head := s.Head()
		s.Tx("sort", func(tx *engine.Transaction) error {
			return tx.Reorder([]string{"a", "b", "d", "c"})
		})
		s.Expect([]string{"a", "b"}, []string{"d", "c"}, nil)
		require.Equal(t, head, s.Head())
	})

	t.Run("same order publishes nothing", func(t *testing.T) {
		s := setup(t)
		calls := s.Store.UpdateRefsCalls
		out := s.Tx("sort", func(tx *engine.Transaction) error {
			return tx.Reorder([]string{"a", "b", "c", "d"})
		})
		require.Equal(t, engine.OutcomeAborted, out.Kind)
		require.False(t, out.Published)
		require.Equal(t, calls, s.Store.UpdateRefsCalls)
	})

	invalid := map[string][]string{
		"omits a patch":        {"a", "b", "c"},
		"lists a patch twice":  {"a", "b", "c", "c"},
		"crosses the boundary": {"a", "c", "b", "d"},
		"names an unknown one": {"a", "b", "c", "x"},
	}
	for name, order := range invalid {
		t.Run(name, func(t *testing.T) {
			s := setup(t)
			_, err := s.TryTx("sort", func(tx *engine.Transaction) error { return tx.Reorder(order) })
			require.ErrorIs(t, err, pstackerrors.ErrInvalidOrder)
			s.Expect([]string{"a", "b"}, []string{"c", "d"}, nil)
		})
	}
}

func TestMovePatches(t *testing.T) {
	t.Run("float", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		s.Tx("float", func(tx *engine.Transaction) error { return tx.Float("a") })
		s.Expect([]string{"b", "c", "a"}, nil, nil).ExpectClean()
	})

	t.Run("sink to the bottom", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		s.Tx("sink", func(tx *engine.Transaction) error { return tx.Sink("", "c") })
		s.Expect([]string{"c", "a", "b"}, nil, nil).ExpectClean()
	})

	t.Run("sink below a target", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		s.Tx("sink", func(tx *engine.Transaction) error { return tx.Sink("b", "c") })
		s.Expect([]string{"a", "c", "b"}, nil, nil).ExpectClean()
	})

	t.Run("goto pops and pushes", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		s.Tx("goto", func(tx *engine.Transaction) error { return tx.Goto("a") })
		s.Expect([]string{"a"}, []string{"b", "c"}, nil)
		s.Tx("goto", func(tx *engine.Transaction) error { return tx.Goto("c") })
		s.Expect([]string{"a", "b", "c"}, nil, nil)
	})
}

func TestPatchLifecycle(t *testing.T) {
	t.Run("new derives names from the message", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{})
		var first, second string
		out := s.Tx("new", func(tx *engine.Transaction) error {
			var err error
			if first, err = tx.New("", "Fix the parser"); err != nil {
				return err
			}
			second, err = tx.New("", "Fix the parser")
			return err
		})
		require.Equal(t, "fix-the-parser", first)
		require.Equal(t, "fix-the-parser-1", second)
		require.Equal(t, []string{first, second}, out.Created)
		s.Expect([]string{first, second}, nil, nil)
	})

	t.Run("new rejects taken and invalid names", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		_, err := s.TryTx("new", func(tx *engine.Transaction) error {
			_, err := tx.New("a", "")
			return err
		})
		require.ErrorIs(t, err, pstackerrors.ErrAlreadyExists)

		_, err = s.TryTx("new", func(tx *engine.Transaction) error {
			_, err := tx.New("bad name", "")
			return err
		})
		require.ErrorIs(t, err, pstackerrors.ErrInvalidName)
	})

	t.Run("hide and unhide", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{}).
			WithApplied("a", map[string]string{"a.txt": "a\n"}).
			WithUnapplied("b", map[string]string{"b.txt": "b\n"}).
			WithUnapplied("c", map[string]string{"c.txt": "c\n"})

		s.Tx("hide", func(tx *engine.Transaction) error { return tx.Hide("b") })
		s.Expect([]string{"a"}, []string{"c"}, []string{"b"})

		_, err := s.TryTx("hide", func(tx *engine.Transaction) error { return tx.Hide("a") })
		require.ErrorIs(t, err, pstackerrors.ErrNotUnapplied)
		_, err = s.TryTx("unhide", func(tx *engine.Transaction) error { return tx.Unhide("c") })
		require.ErrorIs(t, err, pstackerrors.ErrNotHidden)
		_, err = s.TryTx("push", func(tx *engine.Transaction) error { return tx.Push("b") })
		require.ErrorIs(t, err, pstackerrors.ErrNotUnapplied)

		s.Tx("unhide", func(tx *engine.Transaction) error { return tx.Unhide("b") })
		s.Expect([]string{"a"}, []string{"c", "b"}, nil)
	})

	t.Run("rename keeps position and commit", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		before, err := s.State().Lookup("b")
		require.NoError(t, err)

		s.Tx("rename", func(tx *engine.Transaction) error { return tx.Rename("b", "middle") })
		s.Expect([]string{"a", "middle", "c"}, nil, nil)
		after, err := s.State().Lookup("middle")
		require.NoError(t, err)
		require.Equal(t, before.Commit, after.Commit)

		_, err = s.TryTx("rename", func(tx *engine.Transaction) error { return tx.Rename("a", "c") })
		require.ErrorIs(t, err, pstackerrors.ErrAlreadyExists)
		_, err = s.TryTx("rename", func(tx *engine.Transaction) error { return tx.Rename("zz", "yy") })
		require.ErrorIs(t, err, pstackerrors.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newABC(t, engine.Options{}).
			WithUnapplied("d", map[string]string{"d.txt": "d\n"})

		s.Tx("delete", func(tx *engine.Transaction) error { return tx.Delete("d", "c") })
		s.Expect([]string{"a", "b"}, nil, nil).ExpectMissing("c.txt")

		_, err := s.TryTx("delete", func(tx *engine.Transaction) error { return tx.Delete("c") })
		require.ErrorIs(t, err, pstackerrors.ErrNotFound)
	})

	t.Run("update replaces a commit and re-pushes the patches above", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		a, err := s.State().Lookup("a")
		require.NoError(t, err)
		base := s.State().Base
		replacement, err := s.Store.CommitFiles(base, "a v2", map[string]string{"a.txt": "a2\n"})
		require.NoError(t, err)

		s.Tx("update", func(tx *engine.Transaction) error { return tx.Update("a", replacement) })
		s.Expect([]string{"a", "b", "c"}, nil, nil).
			ExpectWorktree(map[string]string{"a.txt": "a2\n", "b.txt": "b\n", "c.txt": "c\n"}).
			ExpectClean()
		updated, err := s.State().Lookup("a")
		require.NoError(t, err)
		require.NotEqual(t, a.Commit, updated.Commit)
		require.Equal(t, "a v2", updated.Subject())
	})

	t.Run("rebase moves the stack onto a new base", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		upstream, err := s.Store.CommitFiles(s.State().Base, "upstream", map[string]string{"up.txt": "up\n"})
		require.NoError(t, err)

		s.Tx("rebase", func(tx *engine.Transaction) error { return tx.Rebase(upstream) })
		s.Expect([]string{"a", "b", "c"}, nil, nil).
			ExpectWorktree(map[string]string{"up.txt": "up\n", "a.txt": "a\n"}).
			ExpectClean()
		require.Equal(t, upstream, s.State().Base)
	})
}

func TestWorktreeOperations(t *testing.T) {
	t.Run("refresh amends the top patch", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		s.Store.WriteFile("c.txt", "c2\n")

		_, err := s.TryTx("refresh", func(tx *engine.Transaction) error { return tx.Refresh("") })
		require.ErrorIs(t, err, pstackerrors.ErrDirtyWorktree)

		s.Tx("refresh", func(tx *engine.Transaction) error { return tx.Refresh("c, second take") }, engine.AllowDirty())
		s.Expect([]string{"a", "b", "c"}, nil, nil).ExpectClean()

		files, err := s.Store.CommitFilesOf(s.Head())
		require.NoError(t, err)
		require.Equal(t, "c2\n", files["c.txt"])
		top, ok := s.State().Top()
		require.True(t, ok)
		require.Equal(t, "c, second take", top.Subject())
	})

	t.Run("refresh without changes publishes nothing", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		out := s.Tx("refresh", func(tx *engine.Transaction) error { return tx.Refresh("") }, engine.AllowDirty())
		require.Equal(t, engine.OutcomeAborted, out.Kind)
		require.False(t, out.Published)
	})

	t.Run("spill keeps the changes in the worktree", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		s.Tx("spill", func(tx *engine.Transaction) error { return tx.Spill() })
		s.Expect([]string{"a", "b", "c"}, nil, nil).
			ExpectWorktree(map[string]string{"c.txt": "c\n"})

		files, err := s.Store.CommitFilesOf(s.Head())
		require.NoError(t, err)
		require.NotContains(t, files, "c.txt")
	})

	t.Run("dirty worktree blocks transactions", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		s.Store.WriteFile("a.txt", "local\n")
		_, err := s.Stack.Begin(s.Ctx, "pop")
		require.ErrorIs(t, err, pstackerrors.ErrDirtyWorktree)
	})

	t.Run("checkout refuses to overwrite local changes", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		s.Store.WriteFile("c.txt", "local\n")
		out, err := s.TryTx("pop", func(tx *engine.Transaction) error { return tx.Pop() }, engine.AllowDirty())
		require.Error(t, err)
		require.Equal(t, engine.OutcomeAborted, out.Kind)
		s.Expect([]string{"a", "b", "c"}, nil, nil).
			ExpectWorktree(map[string]string{"c.txt": "local\n"})
	})
}

func TestTransactionLifecycle(t *testing.T) {
	t.Run("discard publishes nothing", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		tx, err := s.Stack.Begin(s.Ctx, "pop")
		require.NoError(t, err)
		require.NoError(t, tx.Pop())
		tx.Discard()
		s.Expect([]string{"a", "b", "c"}, nil, nil)

		_, err = tx.Commit(s.Ctx)
		require.Error(t, err)
	})

	t.Run("second transaction on the branch is locked out", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		tx, err := s.Stack.Begin(s.Ctx, "first")
		require.NoError(t, err)

		_, err = s.Stack.Begin(s.Ctx, "second")
		require.ErrorIs(t, err, pstackerrors.ErrLocked)

		tx.Discard()
		tx, err = s.Stack.Begin(s.Ctx, "third")
		require.NoError(t, err)
		tx.Discard()
	})

	t.Run("lost publish race leaves state and worktree untouched", func(t *testing.T) {
		s := scenario.NewScenario(t, engine.Options{}).
			WithApplied("a", map[string]string{"a.txt": "a\n"})
		winner := s.State().ID
		s.WithUnapplied("b", map[string]string{"b.txt": "b\n"})
		head := s.Head()

		raced := false
		s.Store.BeforeUpdateRefs = func() {
			if !raced {
				raced = true
				s.Store.SetRef("refs/stacks/main", winner)
			}
		}
		out, err := s.TryTx("push", func(tx *engine.Transaction) error { return tx.Push("b") })
		require.ErrorIs(t, err, pstackerrors.ErrRefRace)
		require.Equal(t, engine.OutcomeAborted, out.Kind)
		require.Equal(t, []string{"b"}, out.State.UnappliedNames())

		require.Equal(t, winner, s.State().ID)
		require.Equal(t, head, s.Head())
		s.ExpectMissing("b.txt").ExpectClean()
		require.Equal(t, 1, errExitCode(err))
	})

	t.Run("branch moved outside the stack", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		_, err := s.Store.Commit("plain commit", map[string]string{"p.txt": "p\n"})
		require.NoError(t, err)
		_, err = s.Stack.Begin(s.Ctx, "pop")
		require.ErrorIs(t, err, pstackerrors.ErrHeadMismatch)
	})

	t.Run("another branch checked out", func(t *testing.T) {
		s := newABC(t, engine.Options{})
		s.Store.SetCurrentBranch("other")
		_, err := s.Stack.Begin(s.Ctx, "pop")
		require.Error(t, err)
	})
}

func commitsOf(state *engine.StackState) map[string]string {
	commits := map[string]string{}
	for _, p := range state.All() {
		commits[p.Name] = p.Commit.String()
	}
	return commits
}

func errExitCode(err error) int {
	return pstackerrors.ExitCode(err)
}
