package engine

import (
	"slices"

	"github.com/go-git/go-git/v5/plumbing"
)

// entry is the mutable per-patch record a transaction works on
type entry struct {
	commit   plumbing.Hash
	conflict bool
	// conflicts are the files the conflicting push left markers in
	conflicts []string
	// orig is the commit the patch had before it was last pushed onto a new parent.
	// It is cleared whenever the patch content changes.
	orig plumbing.Hash
}

func (e *entry) equal(o *entry) bool {
	return e.commit == o.commit && e.conflict == o.conflict && e.orig == o.orig &&
		slices.Equal(e.conflicts, o.conflicts)
}

// amended records a new commit with changed content, dropping the pre-push commit
func (e *entry) amended(commit plumbing.Hash) {
	e.commit = commit
	e.conflict = false
	e.conflicts = nil
	e.orig = plumbing.ZeroHash
}

// working is the in-flight stack a transaction mutates before publishing it
type working struct {
	base      plumbing.Hash
	applied   []string
	unapplied []string
	hidden    []string
	entries   map[string]*entry
}

func (w *working) head() plumbing.Hash {
	if len(w.applied) == 0 {
		return w.base
	}
	return w.entries[w.applied[len(w.applied)-1]].commit
}

func (w *working) top() string {
	if len(w.applied) == 0 {
		return ""
	}
	return w.applied[len(w.applied)-1]
}

func (w *working) clone() *working {
	c := &working{
		base:      w.base,
		applied:   slices.Clone(w.applied),
		unapplied: slices.Clone(w.unapplied),
		hidden:    slices.Clone(w.hidden),
		entries:   make(map[string]*entry, len(w.entries)),
	}
	for name, e := range w.entries {
		copied := *e
		copied.conflicts = slices.Clone(e.conflicts)
		c.entries[name] = &copied
	}
	return c
}

func (w *working) equal(o *working) bool {
	if w.base != o.base ||
		!slices.Equal(w.applied, o.applied) ||
		!slices.Equal(w.unapplied, o.unapplied) ||
		!slices.Equal(w.hidden, o.hidden) ||
		len(w.entries) != len(o.entries) {
		return false
	}
	for name, e := range w.entries {
		other, ok := o.entries[name]
		if !ok || !e.equal(other) {
			return false
		}
	}
	return true
}

// conflicted returns the name of the conflicted patch, or ""
func (w *working) conflicted() string {
	top := w.top()
	if top != "" && w.entries[top].conflict {
		return top
	}
	return ""
}

// referencedCommits lists the commits a state must keep reachable besides its head
func (w *working) referencedCommits() []plumbing.Hash {
	var out []plumbing.Hash
	for _, names := range [][]string{w.unapplied, w.hidden} {
		for _, n := range names {
			out = append(out, w.entries[n].commit)
		}
	}
	for _, n := range w.applied {
		if e := w.entries[n]; !e.orig.IsZero() {
			out = append(out, e.orig)
		}
	}
	return out
}

func removeName(names []string, name string) []string {
	i := slices.Index(names, name)
	if i < 0 {
		return names
	}
	return slices.Delete(slices.Clone(names), i, i+1)
}

func replaceName(names []string, old, name string) []string {
	out := slices.Clone(names)
	if i := slices.Index(out, old); i >= 0 {
		out[i] = name
	}
	return out
}
