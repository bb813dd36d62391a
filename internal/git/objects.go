package git

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// LoadCommit reads and decodes a commit from s
func LoadCommit(s storer.EncodedObjectStorer, id plumbing.Hash) (*Commit, error) {
	c, err := object.GetCommit(s, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read commit %s: %w", id, err)
	}
	return &Commit{
		ID:        c.Hash,
		Tree:      c.TreeHash,
		Parents:   append([]plumbing.Hash{}, c.ParentHashes...),
		Author:    c.Author,
		Committer: c.Committer,
		Message:   c.Message,
	}, nil
}

// StoreCommit encodes c into s and returns its id. c.ID is ignored.
func StoreCommit(s storer.EncodedObjectStorer, c *Commit) (plumbing.Hash, error) {
	message := c.Message
	if message != "" && !strings.HasSuffix(message, "\n") {
		message += "\n"
	}
	oc := &object.Commit{
		Author:       c.Author,
		Committer:    c.Committer,
		Message:      message,
		TreeHash:     c.Tree,
		ParentHashes: c.Parents,
	}
	obj := s.NewEncodedObject()
	if err := oc.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode commit: %w", err)
	}
	id, err := s.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to write commit: %w", err)
	}
	return id, nil
}

// LoadTree reads the entries of a tree from s
func LoadTree(s storer.EncodedObjectStorer, id plumbing.Hash) ([]TreeEntry, error) {
	t, err := object.GetTree(s, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree %s: %w", id, err)
	}
	entries := make([]TreeEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		entries = append(entries, TreeEntry{Name: e.Name, Mode: e.Mode, Hash: e.Hash})
	}
	return entries, nil
}

// StoreTree writes a tree object with entries in canonical git order
func StoreTree(s storer.EncodedObjectStorer, entries []TreeEntry) (plumbing.Hash, error) {
	sorted := append([]TreeEntry{}, entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return treeSortKey(sorted[i]) < treeSortKey(sorted[j])
	})

	t := &object.Tree{}
	for _, e := range sorted {
		t.Entries = append(t.Entries, object.TreeEntry{Name: e.Name, Mode: e.Mode, Hash: e.Hash})
	}
	obj := s.NewEncodedObject()
	if err := t.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}
	id, err := s.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to write tree: %w", err)
	}
	return id, nil
}

// git compares directory names as if they ended in a slash
func treeSortKey(e TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

// LoadBlob reads the content of a blob from s
func LoadBlob(s storer.EncodedObjectStorer, id plumbing.Hash) ([]byte, error) {
	b, err := object.GetBlob(s, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	reader, err := b.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", id, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	return data, nil
}

// StoreBlob writes data as a blob into s
func StoreBlob(s storer.EncodedObjectStorer, data []byte) (plumbing.Hash, error) {
	obj := s.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to open blob writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob: %w", err)
	}
	id, err := s.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return id, nil
}
