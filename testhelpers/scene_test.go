package testhelpers_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stackit.dev/pstack/testhelpers"
)

func TestGitRepoBasicOperations(t *testing.T) {
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)

	branch, err := scene.Repo.CurrentBranchName()
	require.NoError(t, err)
	require.Equal(t, "main", branch)

	require.NoError(t, scene.Repo.CommitFile("a.txt", "a\n", "add a"))
	testhelpers.ExpectCommitSubjects(t, scene.Repo, "HEAD", []string{"add a", "initial commit"})
	testhelpers.ExpectClean(t, scene.Repo)

	require.NoError(t, scene.Repo.WriteFile("a.txt", "changed\n"))
	clean, err := scene.Repo.IsClean()
	require.NoError(t, err)
	require.False(t, clean)
}

func TestSceneWithSetup(t *testing.T) {
	scene := testhelpers.NewScene(t, func(scene *testhelpers.Scene) error {
		if err := scene.Repo.CommitFile("1.txt", "1\n", "commit 1"); err != nil {
			return err
		}
		return scene.Repo.CommitFile("2.txt", "2\n", "commit 2")
	})

	subjects, err := scene.Repo.ListCommitSubjects("HEAD")
	require.NoError(t, err)
	require.Equal(t, []string{"commit 2", "commit 1"}, subjects)
}
