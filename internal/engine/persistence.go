package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"

	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/git"
)

const (
	stateFileName = "stack.json"
	stateVersion  = 1
)

// EntryKind tells how a log entry came to be
type EntryKind string

const (
	// KindInit is the first entry, written when a branch is initialized
	KindInit EntryKind = "init"
	// KindRegular entries are written by ordinary stack operations
	KindRegular EntryKind = "regular"
	// KindUndo entries restore an earlier state, Steps counts the undone operations
	KindUndo EntryKind = "undo"
	// KindRedo entries revert Steps undo entries
	KindRedo EntryKind = "redo"
	// KindReset entries restore an explicitly chosen state
	KindReset EntryKind = "reset"
)

type patchRecord struct {
	Commit   string `json:"commit"`
	Conflict  bool     `json:"conflict,omitempty"`
	Conflicts []string `json:"conflicts,omitempty"`
	Orig      string   `json:"orig,omitempty"`
}

// stateRecord is the stack.json document stored in every state commit
type stateRecord struct {
	Version   int                    `json:"version"`
	Seq       int                    `json:"seq"`
	Command   string                 `json:"command"`
	Kind      EntryKind              `json:"kind"`
	Steps     int                    `json:"steps,omitempty"`
	TxID      string                 `json:"txid,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Prev      string                 `json:"prev,omitempty"`
	Base      string                 `json:"base"`
	Head      string                 `json:"head"`
	Applied   []string               `json:"applied"`
	Unapplied []string               `json:"unapplied"`
	Hidden    []string               `json:"hidden"`
	Patches   map[string]patchRecord `json:"patches"`
}

func (r *stateRecord) prev() plumbing.Hash {
	if r.Prev == "" {
		return plumbing.ZeroHash
	}
	return plumbing.NewHash(r.Prev)
}

func (r *stateRecord) working() (*working, error) {
	w := &working{
		base:      plumbing.NewHash(r.Base),
		applied:   slices.Clone(r.Applied),
		unapplied: slices.Clone(r.Unapplied),
		hidden:    slices.Clone(r.Hidden),
		entries:   make(map[string]*entry, len(r.Patches)),
	}
	for name, p := range r.Patches {
		if !plumbing.IsHash(p.Commit) {
			return nil, fmt.Errorf("%w: patch %s has invalid commit %q", pstackerrors.ErrCorruptState, name, p.Commit)
		}
		e := &entry{commit: plumbing.NewHash(p.Commit), conflict: p.Conflict, conflicts: p.Conflicts}
		if p.Orig != "" {
			e.orig = plumbing.NewHash(p.Orig)
		}
		w.entries[name] = e
	}
	if w.head().String() != r.Head {
		return nil, fmt.Errorf("%w: recorded head %s does not match the applied series", pstackerrors.ErrCorruptState, r.Head)
	}
	return w, nil
}

func newStateRecord(w *working) *stateRecord {
	r := &stateRecord{
		Version:   stateVersion,
		Base:      w.base.String(),
		Head:      w.head().String(),
		Applied:   nonNil(w.applied),
		Unapplied: nonNil(w.unapplied),
		Hidden:    nonNil(w.hidden),
		Patches:   make(map[string]patchRecord, len(w.entries)),
	}
	for name, e := range w.entries {
		p := patchRecord{Commit: e.commit.String(), Conflict: e.conflict, Conflicts: e.conflicts}
		if !e.orig.IsZero() {
			p.Orig = e.orig.String()
		}
		r.Patches[name] = p
	}
	return r
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return slices.Clone(names)
}

// readRecord loads the stack.json document of a state commit
func readRecord(ctx context.Context, store git.ObjectStore, id plumbing.Hash) (*stateRecord, error) {
	c, err := store.ReadCommit(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := store.ReadTree(ctx, c.Tree)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Name != stateFileName {
			continue
		}
		data, err := store.ReadBlob(ctx, e.Hash)
		if err != nil {
			return nil, err
		}
		var rec stateRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: state %s: %w", pstackerrors.ErrCorruptState, id, err)
		}
		if rec.Version != stateVersion {
			return nil, fmt.Errorf("%w: state %s has unsupported version %d", pstackerrors.ErrCorruptState, id, rec.Version)
		}
		return &rec, nil
	}
	return nil, fmt.Errorf("%w: state %s has no %s", pstackerrors.ErrCorruptState, id, stateFileName)
}

// writeRecord stores rec as a new state commit. Its parents keep every commit the
// state refers to reachable, so git gc never collects an unapplied patch.
func writeRecord(ctx context.Context, store git.ObjectStore, rec *stateRecord, w *working) (plumbing.Hash, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to marshal stack state: %w", err)
	}
	blob, err := store.WriteBlob(ctx, append(data, '\n'))
	if err != nil {
		return plumbing.ZeroHash, err
	}
	tree, err := store.WriteTree(ctx, []git.TreeEntry{{Name: stateFileName, Mode: filemode.Regular, Hash: blob}})
	if err != nil {
		return plumbing.ZeroHash, err
	}

	var parents []plumbing.Hash
	seen := make(map[plumbing.Hash]bool)
	add := func(h plumbing.Hash) {
		if h.IsZero() || seen[h] {
			return
		}
		seen[h] = true
		parents = append(parents, h)
	}
	add(rec.prev())
	add(w.head())
	for _, h := range w.referencedCommits() {
		add(h)
	}

	_, committer, err := store.Identity(ctx)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return store.WriteCommit(ctx, &git.Commit{
		Tree:      tree,
		Parents:   parents,
		Author:    committer,
		Committer: committer,
		Message:   recordSummary(rec),
	})
}

func recordSummary(rec *stateRecord) string {
	switch rec.Kind {
	case KindUndo, KindRedo:
		return fmt.Sprintf("%s %d\n", rec.Kind, rec.Steps)
	default:
		return rec.Command + "\n"
	}
}
