package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

// GitRepo represents a Git repository for testing purposes.
type GitRepo struct {
	Dir string
}

// NewGitRepo initializes a new Git repository in the specified directory using 'git init'.
func NewGitRepo(dir string) (*GitRepo, error) {
	repo := &GitRepo{Dir: dir}

	// Use git -c flags to avoid reading global config and set local configs
	cmd := exec.Command("git", "-c", "init.defaultBranch=main", "-c", "core.autocrlf=false", "init", dir, "-b", "main")
	cmd.Env = gitEnv()
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("failed to init repo: %w: %s", err, out)
	}

	// Configure Git user (required for commits)
	if err := repo.runGitCommand("config", "user.name", "Test User"); err != nil {
		return nil, err
	}
	if err := repo.runGitCommand("config", "user.email", "test@example.com"); err != nil {
		return nil, err
	}
	return repo, nil
}

func gitEnv() []string {
	// Avoid reading global git config for faster and reproducible operations
	return append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null", "GIT_CONFIG_NOSYSTEM=1")
}

// runGitCommand executes a git command in the repository directory.
func (r *GitRepo) runGitCommand(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = gitEnv()
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s failed: %w: %s", strings.Join(args, " "), err, output)
	}
	return nil
}

// RunGitCommand executes a git command and returns an error if it fails.
func (r *GitRepo) RunGitCommand(args ...string) error {
	return r.runGitCommand(args...)
}

// RunGitCommandAndGetOutput executes a git command and returns its trimmed output.
func (r *GitRepo) RunGitCommandAndGetOutput(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = gitEnv()
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git command failed: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// WriteFile writes a file relative to the repository root without staging it.
func (r *GitRepo) WriteFile(name, content string) error {
	filePath := filepath.Join(r.Dir, name)
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// ReadFile reads a file relative to the repository root.
func (r *GitRepo) ReadFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.Dir, name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CommitFile writes a file and commits it with message.
func (r *GitRepo) CommitFile(name, content, message string) error {
	if err := r.WriteFile(name, content); err != nil {
		return err
	}
	if err := r.runGitCommand("add", name); err != nil {
		return err
	}
	return r.runGitCommand("commit", "-m", message)
}

// CheckoutBranch checks out a branch.
func (r *GitRepo) CheckoutBranch(name string) error {
	return r.runGitCommand("checkout", name)
}

// CreateAndCheckoutBranch creates and checks out a new branch.
func (r *GitRepo) CreateAndCheckoutBranch(name string) error {
	return r.runGitCommand("checkout", "-b", name)
}

// CurrentBranchName returns the name of the current branch.
func (r *GitRepo) CurrentBranchName() (string, error) {
	return r.RunGitCommandAndGetOutput("branch", "--show-current")
}

// GetRevision returns the SHA of a revision (branch, tag, or commit reference).
func (r *GitRepo) GetRevision(rev string) (string, error) {
	return r.RunGitCommandAndGetOutput("rev-parse", rev)
}

// ListCommitSubjects returns the subjects of the commits reachable from rev, newest first.
func (r *GitRepo) ListCommitSubjects(rev string) ([]string, error) {
	output, err := r.RunGitCommandAndGetOutput("log", "--format=%s", rev)
	if err != nil {
		return nil, err
	}
	return splitLines(output), nil
}

// IsClean reports whether the index and worktree match HEAD, ignoring untracked files.
func (r *GitRepo) IsClean() (bool, error) {
	output, err := r.RunGitCommandAndGetOutput("status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return output == "", nil
}

// splitLines splits a string by newlines and returns non-empty lines.
func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

var gitVersionRegex = regexp.MustCompile(`(\d+)\.(\d+)`)

// RequireGitVersion skips the test unless git is at least major.minor.
func RequireGitVersion(t testing.TB, major, minor int) {
	t.Helper()
	out, err := exec.Command("git", "version").Output()
	if err != nil {
		t.Skipf("git not available: %v", err)
	}
	m := gitVersionRegex.FindStringSubmatch(string(out))
	if m == nil {
		t.Skipf("cannot parse git version %q", out)
	}
	gotMajor, _ := strconv.Atoi(m[1])
	gotMinor, _ := strconv.Atoi(m[2])
	if gotMajor < major || (gotMajor == major && gotMinor < minor) {
		t.Skipf("git %d.%d or newer required, found %s", major, minor, strings.TrimSpace(string(out)))
	}
}
