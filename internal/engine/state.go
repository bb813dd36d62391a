package engine

import (
	"github.com/go-git/go-git/v5/plumbing"

	pstackerrors "stackit.dev/pstack/internal/errors"
)

// Partition identifies which of the three series a patch belongs to
type Partition int

const (
	// PartitionNone is returned for names that are not in the stack
	PartitionNone Partition = iota
	// PartitionApplied patches form the linear chain from base to head
	PartitionApplied
	// PartitionUnapplied patches are queued in push order
	PartitionUnapplied
	// PartitionHidden patches are kept but never pushed implicitly
	PartitionHidden
)

func (p Partition) String() string {
	switch p {
	case PartitionApplied:
		return "applied"
	case PartitionUnapplied:
		return "unapplied"
	case PartitionHidden:
		return "hidden"
	default:
		return "none"
	}
}

// StackState is an immutable snapshot of a branch's patch stack
type StackState struct {
	// ID is the state commit this snapshot was loaded from
	ID   plumbing.Hash
	Base plumbing.Hash
	Head plumbing.Hash

	applied   []string
	unapplied []string
	hidden    []string
	patches   map[string]Patch
}

// Lookup returns the patch called name
func (s *StackState) Lookup(name string) (Patch, error) {
	p, ok := s.patches[name]
	if !ok {
		return Patch{}, pstackerrors.NewPatchError("", name, pstackerrors.ErrNotFound)
	}
	return p, nil
}

// Has reports whether a patch called name exists in any partition
func (s *StackState) Has(name string) bool {
	_, ok := s.patches[name]
	return ok
}

// Applied returns the applied patches from bottom to top
func (s *StackState) Applied() []Patch {
	return s.collect(s.applied)
}

// Unapplied returns the unapplied patches in push order
func (s *StackState) Unapplied() []Patch {
	return s.collect(s.unapplied)
}

// Hidden returns the hidden patches
func (s *StackState) Hidden() []Patch {
	return s.collect(s.hidden)
}

// AppliedNames returns the names of the applied patches from bottom to top
func (s *StackState) AppliedNames() []string {
	return append([]string{}, s.applied...)
}

// UnappliedNames returns the names of the unapplied patches in push order
func (s *StackState) UnappliedNames() []string {
	return append([]string{}, s.unapplied...)
}

// HiddenNames returns the names of the hidden patches
func (s *StackState) HiddenNames() []string {
	return append([]string{}, s.hidden...)
}

// Top returns the topmost applied patch
func (s *StackState) Top() (Patch, bool) {
	if len(s.applied) == 0 {
		return Patch{}, false
	}
	return s.patches[s.applied[len(s.applied)-1]], true
}

// Conflicted returns the patch with an unresolved conflict, if any
func (s *StackState) Conflicted() (Patch, bool) {
	top, ok := s.Top()
	if ok && top.Conflict {
		return top, true
	}
	return Patch{}, false
}

// PartitionOf returns the partition holding name
func (s *StackState) PartitionOf(name string) Partition {
	for _, set := range []struct {
		names []string
		part  Partition
	}{
		{s.applied, PartitionApplied},
		{s.unapplied, PartitionUnapplied},
		{s.hidden, PartitionHidden},
	} {
		for _, n := range set.names {
			if n == name {
				return set.part
			}
		}
	}
	return PartitionNone
}

// All returns every patch: applied, then unapplied, then hidden
func (s *StackState) All() []Patch {
	out := s.collect(s.applied)
	out = append(out, s.collect(s.unapplied)...)
	return append(out, s.collect(s.hidden)...)
}

// Len returns the number of patches in all partitions
func (s *StackState) Len() int {
	return len(s.patches)
}

func (s *StackState) collect(names []string) []Patch {
	out := make([]Patch, 0, len(names))
	for _, n := range names {
		out = append(out, s.patches[n])
	}
	return out
}
