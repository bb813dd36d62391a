package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// ThreeWayMerge merges commit theirs onto commit ours with base as the merge base.
// Requires git 2.40 or newer for `merge-tree --write-tree --merge-base`.
func (r *Repository) ThreeWayMerge(ctx context.Context, base, ours, theirs plumbing.Hash) (*MergeResult, error) {
	trees := make([]plumbing.Hash, 0, 3)
	for _, id := range []plumbing.Hash{base, ours, theirs} {
		c, err := r.ReadCommit(ctx, id)
		if err != nil {
			return nil, err
		}
		trees = append(trees, c.Tree)
	}
	if tree, ok := TrivialMerge(trees[0], trees[1], trees[2]); ok {
		return &MergeResult{Tree: tree}, nil
	}

	out, err := r.runner.RunRaw(ctx, "merge-tree", "--write-tree", "--name-only", "--no-messages",
		"--merge-base="+base.String(), ours.String(), theirs.String())
	if err != nil {
		// Exit status 1 means the merge completed with conflicts
		code, stdout, ok := exitStatus(err)
		if !ok || code != 1 {
			return nil, fmt.Errorf("failed to merge %s onto %s: %w", short(theirs), short(ours), err)
		}
		return ParseMergeTreeOutput(stdout, true)
	}
	return ParseMergeTreeOutput(out, false)
}

// TrivialMerge resolves merges where at most one side changed anything
func TrivialMerge(base, ours, theirs plumbing.Hash) (plumbing.Hash, bool) {
	switch {
	case ours == theirs:
		return ours, true
	case base == ours:
		return theirs, true
	case base == theirs:
		return ours, true
	}
	return plumbing.ZeroHash, false
}

// ParseMergeTreeOutput parses the output of `git merge-tree --write-tree --name-only`.
// The first line is the result tree, followed on conflict by the conflicted paths.
func ParseMergeTreeOutput(out string, conflicted bool) (*MergeResult, error) {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	treeID := strings.TrimSpace(lines[0])
	if len(treeID) != 40 {
		return nil, fmt.Errorf("unexpected merge-tree output %q", out)
	}

	result := &MergeResult{Tree: plumbing.NewHash(treeID), Conflicted: conflicted}
	if !conflicted {
		return result, nil
	}
	seen := make(map[string]bool)
	for _, line := range lines[1:] {
		if line == "" {
			break
		}
		if !seen[line] {
			seen[line] = true
			result.Conflicts = append(result.Conflicts, line)
		}
	}
	return result, nil
}
