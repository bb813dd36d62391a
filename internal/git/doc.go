// Package git provides the object store the patch stack runs on.
//
// It wraps go-git and git command execution behind ObjectStore:
//   - Object reads and writes (commits, trees, blobs)
//   - Three-way tree merges through git merge-tree
//   - Atomic reference updates through git update-ref --stdin
//   - Worktree checkout, staging and cleanliness checks
//
// This package should be the only place where direct git commands are executed.
package git
