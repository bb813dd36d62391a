// Package testhelpers provides testing utilities for pstack, including a
// scene system over real Git repositories, an in-memory object store and
// custom assertions.
package testhelpers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Must is a generic helper function that panics if err is not nil,
// otherwise returns the value. This is useful for test setup code
// where errors are not expected and should halt execution immediately.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// ExpectCommitSubjects asserts the subjects of the newest commits reachable from rev.
func ExpectCommitSubjects(t *testing.T, repo *GitRepo, rev string, expected []string) {
	t.Helper()
	subjects, err := repo.ListCommitSubjects(rev)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(subjects), len(expected), "not enough commits on %s", rev)
	require.Equal(t, expected, subjects[:len(expected)])
}

// ExpectClean asserts that the worktree has no changes to tracked files.
func ExpectClean(t *testing.T, repo *GitRepo) {
	t.Helper()
	clean, err := repo.IsClean()
	require.NoError(t, err)
	require.True(t, clean, "worktree should be clean")
}

// ExpectFiles asserts file contents in a flattened tree or worktree map.
func ExpectFiles(t *testing.T, actual map[string]string, expected map[string]string) {
	t.Helper()
	for path, content := range expected {
		got, ok := actual[path]
		require.True(t, ok, "missing file %s", path)
		require.Equal(t, content, got, "content of %s", path)
	}
}
