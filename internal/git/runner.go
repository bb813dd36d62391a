// Package git implements the object store adapter the patch stack engine runs on:
// go-git for object and ref reads, the git CLI for merges, checkouts and atomic ref updates.
package git

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	pstackerrors "stackit.dev/pstack/internal/errors"
)

// DefaultCommandTimeout is the default timeout for git commands
const DefaultCommandTimeout = 5 * time.Minute

// CommandRunner handles execution of git commands
type CommandRunner struct {
	workingDir string
	env        []string
}

// NewCommandRunner creates a new CommandRunner
func NewCommandRunner(workingDir string) *CommandRunner {
	return &CommandRunner{workingDir: workingDir}
}

// WithEnv returns a runner that adds env to every command it runs
func (r *CommandRunner) WithEnv(env ...string) *CommandRunner {
	merged := append(append([]string{}, r.env...), env...)
	return &CommandRunner{workingDir: r.workingDir, env: merged}
}

// Run executes a git command with the given context and returns the trimmed output
func (r *CommandRunner) Run(ctx context.Context, args ...string) (string, error) {
	return r.runInternal(ctx, nil, true, args...)
}

// RunRaw executes a git command and returns its output untouched
func (r *CommandRunner) RunRaw(ctx context.Context, args ...string) (string, error) {
	return r.runInternal(ctx, nil, false, args...)
}

// RunWithInput executes a git command feeding input on stdin
func (r *CommandRunner) RunWithInput(ctx context.Context, input []byte, args ...string) (string, error) {
	return r.runInternal(ctx, input, true, args...)
}

// Lines executes a git command and returns its output split into lines
func (r *CommandRunner) Lines(ctx context.Context, args ...string) ([]string, error) {
	output, err := r.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if output == "" {
		return []string{}, nil
	}
	return strings.Split(output, "\n"), nil
}

// runInternal is the internal implementation that handles directory, env and input
func (r *CommandRunner) runInternal(ctx context.Context, input []byte, trim bool, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// If no timeout/deadline is set in the context, add the default one
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCommandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	if input != nil {
		cmd.Stdin = bytes.NewReader(input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", pstackerrors.NewGitCommandError("git", args, stdout.String(), stderr.String(), ctx.Err())
		}
		return "", pstackerrors.NewGitCommandError("git", args, stdout.String(), stderr.String(), err)
	}
	if trim {
		return strings.TrimSpace(stdout.String()), nil
	}
	return stdout.String(), nil
}

// exitStatus extracts the exit status and captured stdout of a failed git command.
// ok is false when err did not come from a git process that ran to completion.
func exitStatus(err error) (code int, stdout string, ok bool) {
	var gitErr *pstackerrors.GitCommandError
	if !errors.As(err, &gitErr) {
		return 0, "", false
	}
	code = gitErr.ExitCode()
	if code < 0 {
		return 0, "", false
	}
	return code, gitErr.Stdout, true
}
