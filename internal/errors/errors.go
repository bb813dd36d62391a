// Package errors provides sentinel errors and custom error types for pstack.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for patch stack operations
var (
	// ErrNotFound indicates that no patch with the given name exists
	ErrNotFound = errors.New("patch not found")

	// ErrNotApplied indicates that an operation required an applied patch
	ErrNotApplied = errors.New("patch not applied")

	// ErrNotUnapplied indicates that an operation required an unapplied patch
	ErrNotUnapplied = errors.New("patch not unapplied")

	// ErrNotHidden indicates that an operation required a hidden patch
	ErrNotHidden = errors.New("patch not hidden")

	// ErrNotTop indicates a non-top pop under the reject pop policy
	ErrNotTop = errors.New("patch is not the topmost applied patch")

	// ErrAlreadyExists indicates a patch name collision
	ErrAlreadyExists = errors.New("patch already exists")

	// ErrInvalidName indicates a patch name that cannot be used
	ErrInvalidName = errors.New("invalid patch name")

	// ErrInvalidOrder indicates a reorder that is not a permutation or crosses the applied boundary
	ErrInvalidOrder = errors.New("invalid patch order")

	// ErrMergeConflict is the soft outcome of a push that did not merge cleanly
	ErrMergeConflict = errors.New("merge conflict")

	// ErrConflictPending indicates an operation attempted while a conflict is unresolved
	ErrConflictPending = errors.New("conflict pending")

	// ErrNoConflict indicates a conflict-resolution operation without a pending conflict
	ErrNoConflict = errors.New("no conflict to resolve")

	// ErrUnresolvedConflict indicates a refresh while conflict markers are left in the worktree
	ErrUnresolvedConflict = errors.New("conflict markers left")

	// ErrRefRace indicates the stack reference moved while a transaction was running
	ErrRefRace = errors.New("stack reference changed concurrently")

	// ErrDirtyWorktree indicates uncommitted changes that an operation would clobber
	ErrDirtyWorktree = errors.New("worktree has local changes")

	// ErrHeadMismatch indicates the branch was moved outside of pstack
	ErrHeadMismatch = errors.New("branch head does not match the stack")

	// ErrCorruptState indicates persisted stack state that violates its invariants
	ErrCorruptState = errors.New("corrupt stack state")

	// ErrNotInitialized indicates a branch without a stack
	ErrNotInitialized = errors.New("branch not initialized")

	// ErrAlreadyInitialized indicates init on a branch that already has a stack
	ErrAlreadyInitialized = errors.New("branch already initialized")

	// ErrLocked indicates another transaction holds the branch lock
	ErrLocked = errors.New("stack is locked by another process")

	// ErrNothingToUndo indicates the undo log has no earlier state
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo indicates there is no undo left to redo
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrNoAppliedPatches indicates an operation that needs a top patch on an empty stack
	ErrNoAppliedPatches = errors.New("no patches applied")

	// ErrNotOnBranch indicates that HEAD is not on a branch
	ErrNotOnBranch = errors.New("not on a branch")

	// ErrApplyFailed indicates a diff that does not apply to its target tree
	ErrApplyFailed = errors.New("diff does not apply")
)

// Exit codes returned by the pstack binary
const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitUsage    = 2
	ExitConflict = 3
)

// PatchError attaches the operation and patch name to a sentinel error
type PatchError struct {
	Op   string
	Name string
	Err  error
}

func (e *PatchError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *PatchError) Unwrap() error {
	return e.Err
}

// NewPatchError creates a new PatchError
func NewPatchError(op, name string, err error) *PatchError {
	return &PatchError{Op: op, Name: name, Err: err}
}

// MergeConflictError represents a push that stopped on a conflicting patch
type MergeConflictError struct {
	Patch string
	Files []string
}

func (e *MergeConflictError) Error() string {
	if len(e.Files) > 0 {
		return fmt.Sprintf("merge conflict pushing %s: %s", e.Patch, strings.Join(e.Files, ", "))
	}
	return fmt.Sprintf("merge conflict pushing %s", e.Patch)
}

// Is returns true if the target error is ErrMergeConflict
func (e *MergeConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}

// NewMergeConflictError creates a new MergeConflictError
func NewMergeConflictError(patch string, files []string) *MergeConflictError {
	return &MergeConflictError{Patch: patch, Files: files}
}

// UsageError marks a command-line usage problem
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NewUsageError creates a new UsageError
func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

// GitCommandError represents an error from a git command execution
type GitCommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *GitCommandError) Error() string {
	msg := fmt.Sprintf("git command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *GitCommandError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code of the failed command, or -1 if it did not run
func (e *GitCommandError) ExitCode() int {
	var exitErr interface{ ExitCode() int }
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// NewGitCommandError creates a new GitCommandError
func NewGitCommandError(command string, args []string, stdout, stderr string, err error) *GitCommandError {
	return &GitCommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to the process exit status.
// Conflicts are soft and get their own status so scripts can tell them apart.
func ExitCode(err error) int {
	var usage *UsageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrMergeConflict):
		return ExitConflict
	case errors.As(err, &usage):
		return ExitUsage
	default:
		return ExitError
	}
}
