package integration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pstackerrors "stackit.dev/pstack/internal/errors"
)

func TestUndoIntegration(t *testing.T) {
	binaryPath := getPstackBinary(t)

	t.Run("undo and redo walk the log", func(t *testing.T) {
		sh := NewTestShell(t, binaryPath)
		sh.Patch("a", "a.txt", "a\n").
			Patch("b", "b.txt", "b\n")

		sh.Run("undo -n 2").
			HasSeries("> a").
			HasCommits("a").
			HasFile("a.txt", "a\n")

		sh.Run("undo").
			HasSeries("> a")
		_, err := sh.Scene().Repo.ReadFile("a.txt")
		require.Error(t, err, "the refresh of a is undone as well")

		sh.Run("redo -n 2").
			HasSeries("+ a", "> b").
			HasCommits("b", "a").
			IsClean()

		sh.RunExpectExit(pstackerrors.ExitError, "redo").
			OutputContains("nothing to redo")
	})

	t.Run("undo refuses to overwrite local changes", func(t *testing.T) {
		sh := NewTestShell(t, binaryPath)
		sh.Patch("a", "a.txt", "a\n")
		sh.Write("a.txt", "edited\n")

		sh.RunExpectExit(pstackerrors.ExitError, "undo").
			OutputContains("local changes")

		sh.Run("undo --hard").
			HasSeries("> a").
			IsClean()
	})

	t.Run("reset jumps to any logged state", func(t *testing.T) {
		sh := NewTestShell(t, binaryPath)
		sh.Patch("a", "a.txt", "a\n").
			Patch("b", "b.txt", "b\n")

		sh.Run("log")
		id := logEntryID(t, sh.Output(), "new a")

		sh.Run("reset " + id).
			HasSeries("> a").
			HasCommits("a")

		sh.Run("log -n 1").
			OutputContains("reset to new a")

		sh.Run("undo").
			HasSeries("+ a", "> b").
			HasFile("b.txt", "b\n")
	})
}

// logEntryID returns the id of the newest log line mentioning command
func logEntryID(t *testing.T, log, command string) string {
	t.Helper()
	for _, line := range splitNonEmpty(log) {
		fields := strings.Fields(line)
		if len(fields) > 1 && fields[1] == strings.Fields(command)[0] && strings.Contains(line, command+" (") {
			return fields[0]
		}
	}
	t.Fatalf("no log entry for %q in:\n%s", command, log)
	return ""
}
