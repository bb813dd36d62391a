package integration

import (
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stackit.dev/pstack/testhelpers"
)

// =============================================================================
// Test Shell - A helper to make integration tests read like terminal sessions
// =============================================================================

// TestShell wraps a test scene and runs the pstack binary in it.
// Tests using this read like a series of terminal commands.
type TestShell struct {
	t          *testing.T
	scene      *testhelpers.Scene
	binaryPath string
	lastOutput string
	lastCode   int
}

// NewTestShell creates a repository with one commit and an initialized stack on main
func NewTestShell(t *testing.T, binaryPath string) *TestShell {
	t.Helper()
	scene := testhelpers.NewScene(t, testhelpers.BasicSceneSetup)
	sh := &TestShell{t: t, scene: scene, binaryPath: binaryPath}
	return sh.Run("init")
}

// Scene returns the underlying test scene for direct access when needed.
func (s *TestShell) Scene() *testhelpers.Scene {
	return s.scene
}

// Dir returns the working directory of the test shell.
func (s *TestShell) Dir() string {
	return s.scene.Dir
}

// =============================================================================
// Command Execution
// =============================================================================

// exec runs pstack and records its output and exit status
func (s *TestShell) exec(args string) {
	s.t.Helper()
	cmd := exec.Command(s.binaryPath, splitArgs(args)...)
	cmd.Dir = s.scene.Dir
	output, err := cmd.CombinedOutput()
	s.lastOutput = string(output)
	s.lastCode = 0
	if err != nil {
		var exitErr *exec.ExitError
		require.True(s.t, errors.As(err, &exitErr), "$ pstack %s: %v", args, err)
		s.lastCode = exitErr.ExitCode()
	}
}

// Run executes a pstack command (e.g., "new feature -m 'Add feature'") that must succeed
func (s *TestShell) Run(args string) *TestShell {
	s.t.Helper()
	s.exec(args)
	require.Zero(s.t, s.lastCode, "$ pstack %s\n%s", args, s.lastOutput)
	return s
}

// RunExpectExit executes a pstack command that must exit with code
func (s *TestShell) RunExpectExit(code int, args string) *TestShell {
	s.t.Helper()
	s.exec(args)
	require.Equal(s.t, code, s.lastCode, "$ pstack %s (expected exit %d)\n%s", args, code, s.lastOutput)
	return s
}

// Git executes a raw git command
func (s *TestShell) Git(args string) *TestShell {
	s.t.Helper()
	require.NoError(s.t, s.scene.Repo.RunGitCommand(splitArgs(args)...))
	return s
}

// =============================================================================
// Patch Shortcuts
// =============================================================================

// Patch creates a patch named name whose only change sets file to content
func (s *TestShell) Patch(name, file, content string) *TestShell {
	s.t.Helper()
	s.Run("new " + name + " -m " + name)
	s.Write(file, content)
	return s.Run("refresh --untracked")
}

// Write modifies a file in the worktree without staging it
func (s *TestShell) Write(filename, content string) *TestShell {
	s.t.Helper()
	require.NoError(s.t, s.scene.Repo.WriteFile(filename, content), "failed to write %s", filename)
	return s
}

// =============================================================================
// Output Inspection
// =============================================================================

// Output returns the last command's output
func (s *TestShell) Output() string {
	return s.lastOutput
}

// OutputContains asserts the last output contains the given string
func (s *TestShell) OutputContains(substr string) *TestShell {
	s.t.Helper()
	require.Contains(s.t, s.lastOutput, substr)
	return s
}

// OutputNotContains asserts the last output does NOT contain the given string
func (s *TestShell) OutputNotContains(substr string) *TestShell {
	s.t.Helper()
	require.NotContains(s.t, s.lastOutput, substr)
	return s
}

// =============================================================================
// Assertions
// =============================================================================

// HasSeries asserts the full series: each line is a marker and a patch name, such as "> b"
func (s *TestShell) HasSeries(lines ...string) *TestShell {
	s.t.Helper()
	s.Run("series --hidden")
	require.Equal(s.t, lines, splitNonEmpty(s.lastOutput), "series")
	return s
}

// HasCommits asserts the subjects on main, newest first, ending with the initial commit
func (s *TestShell) HasCommits(subjects ...string) *TestShell {
	s.t.Helper()
	testhelpers.ExpectCommitSubjects(s.t, s.scene.Repo, "main", append(subjects, "initial commit"))
	return s
}

// HasFile asserts a file's content in the worktree
func (s *TestShell) HasFile(name, content string) *TestShell {
	s.t.Helper()
	actual, err := s.scene.Repo.ReadFile(name)
	require.NoError(s.t, err)
	require.Equal(s.t, content, actual, name)
	return s
}

// IsClean asserts that index and worktree match the branch head
func (s *TestShell) IsClean() *TestShell {
	s.t.Helper()
	testhelpers.ExpectClean(s.t, s.scene.Repo)
	return s
}

// =============================================================================
// Logging
// =============================================================================

// Log prints a message (useful for documenting test steps)
func (s *TestShell) Log(msg string) *TestShell {
	s.t.Log(msg)
	return s
}

// =============================================================================
// Utility Functions
// =============================================================================

// splitArgs splits a command string into args, respecting quotes
func splitArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	for _, r := range s {
		switch {
		case r == '"' || r == '\'':
			switch {
			case inQuote && r == quoteChar:
				inQuote = false
			case !inQuote:
				inQuote = true
				quoteChar = r
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// splitNonEmpty returns the trimmed lines that have content
func splitNonEmpty(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
