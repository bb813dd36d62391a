package testhelpers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/git"
	"stackit.dev/pstack/testhelpers"
)

func TestMerge3(t *testing.T) {
	base := "one\ntwo\nthree\nfour\nfive\n"

	t.Run("disjoint changes merge", func(t *testing.T) {
		merged, conflict := testhelpers.Merge3(base,
			"ONE\ntwo\nthree\nfour\nfive\n",
			"one\ntwo\nthree\nfour\nFIVE\n")
		require.False(t, conflict)
		require.Equal(t, "ONE\ntwo\nthree\nfour\nFIVE\n", merged)
	})

	t.Run("identical changes merge", func(t *testing.T) {
		merged, conflict := testhelpers.Merge3(base,
			"one\nTWO\nthree\nfour\nfive\n",
			"one\nTWO\nthree\nfour\nfive\n")
		require.False(t, conflict)
		require.Equal(t, "one\nTWO\nthree\nfour\nfive\n", merged)
	})

	t.Run("overlapping changes conflict", func(t *testing.T) {
		merged, conflict := testhelpers.Merge3(base,
			"one\nours\nthree\nfour\nfive\n",
			"one\ntheirs\nthree\nfour\nfive\n")
		require.True(t, conflict)
		require.Equal(t, "one\n<<<<<<< ours\nours\n=======\ntheirs\n>>>>>>> theirs\nthree\nfour\nfive\n", merged)
	})

	t.Run("one side unchanged", func(t *testing.T) {
		merged, conflict := testhelpers.Merge3(base, base, "zero\n"+base)
		require.False(t, conflict)
		require.Equal(t, "zero\n"+base, merged)
	})
}

func TestMemoryStoreCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewMemoryStore(t)
	head := store.Ref(git.BranchRef("main"))
	next := testhelpers.Must(store.CommitFiles(head, "next", map[string]string{"a.txt": "a\n"}))

	err := store.UpdateRefs(ctx, "test", []git.RefUpdate{
		{Name: git.BranchRef("main"), Old: head, New: next},
		{Name: git.StackRef("main"), Old: next, New: next},
	})
	require.ErrorIs(t, err, pstackerrors.ErrRefRace)
	require.Equal(t, head, store.Ref(git.BranchRef("main")), "a failed swap must not move any reference")

	err = store.UpdateRefs(ctx, "test", []git.RefUpdate{
		{Name: git.BranchRef("main"), Old: head, New: next},
		{Name: git.StackRef("main"), New: next},
	})
	require.NoError(t, err)
	require.Equal(t, next, store.Ref(git.StackRef("main")))
}

func TestMemoryStoreCheckoutKeepsLocalChanges(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewMemoryStore(t)
	head := store.Ref(git.BranchRef("main"))
	next := testhelpers.Must(store.CommitFiles(head, "next", map[string]string{"a.txt": "a\n"}))
	from := testhelpers.Must(store.ReadCommit(ctx, head)).Tree
	to := testhelpers.Must(store.ReadCommit(ctx, next)).Tree

	store.WriteFile("README.md", "local edit\n")
	require.NoError(t, store.Checkout(ctx, from, to, false))
	files := store.WorktreeFiles()
	require.Equal(t, "local edit\n", files["README.md"])
	require.Equal(t, "a\n", files["a.txt"])

	store.WriteFile("a.txt", "conflicting edit\n")
	require.Error(t, store.Checkout(ctx, to, from, false))

	require.NoError(t, store.Checkout(ctx, to, from, true))
	clean, err := store.WorktreeIsClean(ctx, from)
	require.NoError(t, err)
	require.True(t, clean)
}

func TestMemoryStoreStageWorktree(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewMemoryStore(t)
	store.WriteFile("new.txt", "new\n")
	store.RemoveFile("README.md")

	tree := testhelpers.Must(store.StageWorktree(ctx, false))
	files := testhelpers.Must(store.TreeFiles(tree))
	require.Empty(t, files, "the removal is staged and the untracked file is not")

	tree = testhelpers.Must(store.StageWorktree(ctx, true))
	files = testhelpers.Must(store.TreeFiles(tree))
	require.Equal(t, map[string]string{"new.txt": "new\n"}, files)
	require.True(t, testhelpers.Must(store.WorktreeIsClean(ctx, tree)))
}
