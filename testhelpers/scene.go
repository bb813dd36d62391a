package testhelpers

import (
	"os"
	"testing"
)

// Scene represents a test scene with a temporary directory and Git repository.
type Scene struct {
	Dir  string
	Repo *GitRepo
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a new test scene with a temporary directory and Git repository.
// The working directory changes to the scene for the duration of the test,
// so scenes must not be used from parallel tests.
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()
	RequireGitVersion(t, 2, 40)

	tmpDir := t.TempDir()
	repo, err := NewGitRepo(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create Git repo: %v", err)
	}
	scene := &Scene{Dir: tmpDir, Repo: repo}

	// Keep test runs away from the user's log and config files
	t.Setenv("PSTACK_LOG_FILE", os.DevNull)
	t.Setenv("PSTACK_NON_INTERACTIVE", "true")
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Chdir(tmpDir)

	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}
	return scene
}

// BasicSceneSetup is a setup function that creates a basic scene with a single commit.
func BasicSceneSetup(scene *Scene) error {
	return scene.Repo.CommitFile("README.md", "# test\n", "initial commit")
}
