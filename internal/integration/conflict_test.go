package integration

import (
	"testing"

	pstackerrors "stackit.dev/pstack/internal/errors"
)

// =============================================================================
// Conflict Resolution Integration Tests
//
// A push that does not merge cleanly leaves the patch applied with conflict
// markers in the worktree. Only refresh, pop, delete and abort are accepted
// until the conflict is resolved.
// =============================================================================

func TestConflictResolution(t *testing.T) {
	binaryPath := getPstackBinary(t)

	// conflicted builds a stack where pushing "a" onto "b" conflicts in README.md
	conflicted := func(t *testing.T) *TestShell {
		sh := NewTestShell(t, binaryPath)
		sh.Run("new a -m a").Write("README.md", "# a\n").Run("refresh")
		sh.Run("new c -m c").Write("c.txt", "c\n").Run("refresh --untracked")
		sh.Run("pop -a")
		sh.Run("new b -m b").Write("README.md", "# b\n").Run("refresh")

		sh.Log("Pushing a onto b stops on the conflict...")
		sh.RunExpectExit(pstackerrors.ExitConflict, "push -a").
			OutputContains("Pushed a").
			OutputContains("Merge conflict in a: README.md").
			OutputContains("1 operation not run").
			OutputNotContains("error:")
		return sh.HasSeries("+ b", "X a", "- c")
	}

	t.Run("refresh records the resolution", func(t *testing.T) {
		sh := conflicted(t)

		sh.Log("Other operations are refused while the conflict is pending...")
		sh.RunExpectExit(pstackerrors.ExitError, "push").
			OutputContains("conflict")
		sh.RunExpectExit(pstackerrors.ExitError, "new d")

		sh.Log("Refreshing with the markers still in place is refused...")
		sh.RunExpectExit(pstackerrors.ExitError, "refresh").
			OutputContains("conflict markers left").
			HasSeries("+ b", "X a", "- c")

		sh.Write("README.md", "# a and b\n").
			Run("refresh").
			HasSeries("+ b", "> a", "- c").
			HasFile("README.md", "# a and b\n").
			IsClean()

		sh.Run("push").
			HasSeries("+ b", "+ a", "> c").
			HasCommits("c", "a", "b")
	})

	t.Run("abort restores the patch as it was", func(t *testing.T) {
		sh := conflicted(t)
		sh.Write("README.md", "half resolved\n")

		sh.Run("abort").
			HasSeries("> b", "- a", "- c").
			HasFile("README.md", "# b\n").
			IsClean()

		sh.Log("The aborted patch still carries its original change...")
		sh.Run("pop").
			Run("push a").
			HasFile("README.md", "# a\n")
	})

	t.Run("pop leaves the conflict behind", func(t *testing.T) {
		sh := conflicted(t)
		sh.Run("pop").
			HasSeries("> b", "- a", "- c").
			HasFile("README.md", "# b\n").
			IsClean()
	})

	t.Run("undo takes back the conflicted push", func(t *testing.T) {
		sh := conflicted(t)
		sh.Run("undo --hard").
			HasSeries("> b", "- a", "- c").
			HasFile("README.md", "# b\n").
			IsClean()
	})
}
