// Package engine implements the patch stack of a branch.
//
// It is the core of pstack, responsible for:
//   - Loading and validating the published StackState of a branch
//   - Batching stack operations into transactions that publish atomically
//   - Merging patches onto the stack and tracking conflicted pushes
//   - Keeping the undo log that backs undo, redo and reset
//
// State lives in git: refs/stacks/<branch> points at a state commit whose
// tree holds stack.json and whose first parent is the previous state.
package engine
