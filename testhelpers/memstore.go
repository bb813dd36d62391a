package testhelpers

import (
	"context"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/pmezard/go-difflib/difflib"

	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/git"
)

// MemoryStore is an in-memory git.ObjectStore with a simulated worktree.
// Objects are real git objects kept in go-git memory storage, so ids match
// what a repository would produce.
type MemoryStore struct {
	mu      sync.Mutex
	storage *memory.Storage
	gitDir  string
	branch  string
	refs    map[plumbing.ReferenceName]plumbing.Hash

	// worktree holds file contents by path; tracked is the index
	worktree map[string]string
	tracked  map[string]bool

	clock time.Time

	// BeforeUpdateRefs runs before every reference update, outside the store lock.
	// Tests use it to move references behind a transaction's back.
	BeforeUpdateRefs func()
	// UpdateRefsCalls counts reference updates
	UpdateRefsCalls int
}

var _ git.ObjectStore = (*MemoryStore)(nil)

// NewMemoryStore returns a store with branch main holding one commit with README.md
func NewMemoryStore(t testing.TB) *MemoryStore {
	t.Helper()
	s := &MemoryStore{
		storage:  memory.NewStorage(),
		gitDir:   t.TempDir(),
		branch:   "main",
		refs:     map[plumbing.ReferenceName]plumbing.Hash{},
		worktree: map[string]string{},
		tracked:  map[string]bool{},
		clock:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	root := Must(s.CommitFiles(plumbing.ZeroHash, "initial commit", map[string]string{"README.md": "# test\n"}))
	s.ResetHard(root)
	return s
}

// GitDir returns a temporary directory standing in for .git
func (s *MemoryStore) GitDir() string {
	return s.gitDir
}

// CurrentBranch returns the branch HEAD points at
func (s *MemoryStore) CurrentBranch(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.branch == "" {
		return "", pstackerrors.ErrNotOnBranch
	}
	return s.branch, nil
}

// SetCurrentBranch points HEAD at branch; an empty name detaches it
func (s *MemoryStore) SetCurrentBranch(branch string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branch = branch
}

func (s *MemoryStore) ReadCommit(_ context.Context, id plumbing.Hash) (*git.Commit, error) {
	return git.LoadCommit(s.storage, id)
}

func (s *MemoryStore) WriteCommit(_ context.Context, c *git.Commit) (plumbing.Hash, error) {
	return git.StoreCommit(s.storage, c)
}

func (s *MemoryStore) ReadTree(_ context.Context, id plumbing.Hash) ([]git.TreeEntry, error) {
	return git.LoadTree(s.storage, id)
}

func (s *MemoryStore) WriteTree(_ context.Context, entries []git.TreeEntry) (plumbing.Hash, error) {
	return git.StoreTree(s.storage, entries)
}

func (s *MemoryStore) ReadBlob(_ context.Context, id plumbing.Hash) ([]byte, error) {
	return git.LoadBlob(s.storage, id)
}

func (s *MemoryStore) WriteBlob(_ context.Context, data []byte) (plumbing.Hash, error) {
	return git.StoreBlob(s.storage, data)
}

// ThreeWayMerge merges file by file; files changed on both sides are merged line by line
func (s *MemoryStore) ThreeWayMerge(ctx context.Context, base, ours, theirs plumbing.Hash) (*git.MergeResult, error) {
	var files [3]map[string]string
	for i, id := range []plumbing.Hash{base, ours, theirs} {
		c, err := s.ReadCommit(ctx, id)
		if err != nil {
			return nil, err
		}
		if files[i], err = s.TreeFiles(c.Tree); err != nil {
			return nil, err
		}
	}
	b, o, t := files[0], files[1], files[2]

	paths := map[string]bool{}
	for _, m := range files {
		for p := range m {
			paths[p] = true
		}
	}
	result := &git.MergeResult{}
	merged := map[string]string{}
	for _, p := range slices.Sorted(maps.Keys(paths)) {
		bc, inBase := b[p]
		oc, inOurs := o[p]
		tc, inTheirs := t[p]
		switch {
		case inOurs == inTheirs && oc == tc:
			if inOurs {
				merged[p] = oc
			}
		case inBase == inOurs && bc == oc:
			if inTheirs {
				merged[p] = tc
			}
		case inBase == inTheirs && bc == tc:
			if inOurs {
				merged[p] = oc
			}
		case !inOurs || !inTheirs:
			// modify/delete
			result.Conflicted = true
			result.Conflicts = append(result.Conflicts, p)
			if inOurs {
				merged[p] = oc
			} else {
				merged[p] = tc
			}
		default:
			content, conflict := Merge3(bc, oc, tc)
			merged[p] = content
			if conflict {
				result.Conflicted = true
				result.Conflicts = append(result.Conflicts, p)
			}
		}
	}
	tree, err := s.writeFiles(merged)
	if err != nil {
		return nil, err
	}
	result.Tree = tree
	return result, nil
}

func (s *MemoryStore) ResolveRef(_ context.Context, name plumbing.ReferenceName) (plumbing.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs[name], nil
}

// UpdateRefs applies all updates or none, failing with ErrRefRace when any old value is stale
func (s *MemoryStore) UpdateRefs(_ context.Context, _ string, updates []git.RefUpdate) error {
	if s.BeforeUpdateRefs != nil {
		s.BeforeUpdateRefs()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdateRefsCalls++
	for _, u := range updates {
		if cur := s.refs[u.Name]; cur != u.Old {
			return fmt.Errorf("%w: %s is at %s, expected %s", pstackerrors.ErrRefRace, u.Name, cur, u.Old)
		}
	}
	for _, u := range updates {
		if u.New.IsZero() {
			delete(s.refs, u.Name)
		} else {
			s.refs[u.Name] = u.New
		}
	}
	return nil
}

// Checkout replaces the worktree contents of from with to. Without force,
// local changes to files that differ between the trees make it fail.
func (s *MemoryStore) Checkout(_ context.Context, from, to plumbing.Hash, force bool) error {
	target, err := s.TreeFiles(to)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if force {
		s.worktree = target
		s.tracked = trackAll(target)
		return nil
	}
	if from == to {
		return nil
	}
	source, err := s.TreeFiles(from)
	if err != nil {
		return err
	}
	for p := range unionKeys(source, target) {
		sc, inSource := source[p]
		tc, inTarget := target[p]
		if inSource == inTarget && sc == tc {
			continue
		}
		wc, inWorktree := s.worktree[p]
		if inWorktree != inSource || wc != sc {
			return fmt.Errorf("local changes to %s would be overwritten", p)
		}
	}
	for p := range unionKeys(source, target) {
		sc, inSource := source[p]
		tc, inTarget := target[p]
		if inSource == inTarget && sc == tc {
			continue
		}
		switch {
		case inTarget:
			s.worktree[p] = tc
			s.tracked[p] = true
		default:
			delete(s.worktree, p)
			delete(s.tracked, p)
		}
	}
	return nil
}

// WorktreeIsClean compares the tracked files against tree; untracked files are ignored
func (s *MemoryStore) WorktreeIsClean(_ context.Context, tree plumbing.Hash) (bool, error) {
	files, err := s.TreeFiles(tree)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.tracked {
		if _, ok := files[p]; !ok {
			return false, nil
		}
	}
	for p, content := range files {
		if wc, ok := s.worktree[p]; !ok || wc != content || !s.tracked[p] {
			return false, nil
		}
	}
	return true, nil
}

func (s *MemoryStore) StageWorktree(_ context.Context, includeUntracked bool) (plumbing.Hash, error) {
	s.mu.Lock()
	staged := map[string]string{}
	for p, content := range s.worktree {
		if s.tracked[p] || includeUntracked {
			staged[p] = content
		}
	}
	s.tracked = trackAll(staged)
	s.mu.Unlock()
	return s.writeFiles(staged)
}

// ApplyDiff is not simulated; diff application is covered by the repository tests
func (s *MemoryStore) ApplyDiff(_ context.Context, _ plumbing.Hash, _ []byte) (plumbing.Hash, error) {
	return plumbing.ZeroHash, fmt.Errorf("%w: not supported by the memory store", pstackerrors.ErrApplyFailed)
}

// DiffTrees renders a unified diff per changed file
func (s *MemoryStore) DiffTrees(_ context.Context, from, to plumbing.Hash) ([]byte, error) {
	a, err := s.TreeFiles(from)
	if err != nil {
		return nil, err
	}
	b, err := s.TreeFiles(to)
	if err != nil {
		return nil, err
	}
	var out strings.Builder
	for _, p := range slices.Sorted(maps.Keys(unionKeys(a, b))) {
		if a[p] == b[p] {
			continue
		}
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        fileLines(a[p]),
			B:        fileLines(b[p]),
			FromFile: "a/" + p,
			ToFile:   "b/" + p,
			Context:  3,
		})
		if err != nil {
			return nil, err
		}
		out.WriteString(text)
	}
	return []byte(out.String()), nil
}

// Identity returns a fixed author and committer whose clock advances one second per call
func (s *MemoryStore) Identity(_ context.Context) (object.Signature, object.Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = s.clock.Add(time.Second)
	sig := object.Signature{Name: "Test User", Email: "test@example.com", When: s.clock}
	return sig, sig, nil
}

// CommitFiles writes a commit on top of parent with files overlaid on the parent's tree.
// A zero parent creates a root commit. No reference is moved.
func (s *MemoryStore) CommitFiles(parent plumbing.Hash, message string, files map[string]string) (plumbing.Hash, error) {
	ctx := context.Background()
	content := map[string]string{}
	var parents []plumbing.Hash
	if !parent.IsZero() {
		c, err := s.ReadCommit(ctx, parent)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if content, err = s.TreeFiles(c.Tree); err != nil {
			return plumbing.ZeroHash, err
		}
		parents = []plumbing.Hash{parent}
	}
	maps.Copy(content, files)
	tree, err := s.writeFiles(content)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	author, committer, err := s.Identity(ctx)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return s.WriteCommit(ctx, &git.Commit{
		Tree:      tree,
		Parents:   parents,
		Author:    author,
		Committer: committer,
		Message:   message,
	})
}

// Commit commits files on top of the current branch, moving the branch and the worktree
// the way `git commit -a` would
func (s *MemoryStore) Commit(message string, files map[string]string) (plumbing.Hash, error) {
	head := s.Ref(git.BranchRef(s.branch))
	id, err := s.CommitFiles(head, message, files)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	s.ResetHard(id)
	return id, nil
}

// ResetHard moves the current branch to id and checks out its tree
func (s *MemoryStore) ResetHard(id plumbing.Hash) {
	c, err := s.ReadCommit(context.Background(), id)
	if err != nil {
		panic(err)
	}
	files, err := s.TreeFiles(c.Tree)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[git.BranchRef(s.branch)] = id
	s.worktree = files
	s.tracked = trackAll(files)
}

// SetRef moves a reference without touching the worktree; a zero id deletes it
func (s *MemoryStore) SetRef(name plumbing.ReferenceName, id plumbing.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id.IsZero() {
		delete(s.refs, name)
		return
	}
	s.refs[name] = id
}

// Ref returns the value of a reference, zero when it does not exist
func (s *MemoryStore) Ref(name plumbing.ReferenceName) plumbing.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs[name]
}

// WriteFile changes a worktree file without staging it
func (s *MemoryStore) WriteFile(p, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worktree[p] = content
}

// RemoveFile deletes a worktree file without staging the removal
func (s *MemoryStore) RemoveFile(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.worktree, p)
}

// WorktreeFiles returns a copy of the worktree contents
func (s *MemoryStore) WorktreeFiles() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.worktree)
}

// TreeFiles flattens a tree into file contents by path
func (s *MemoryStore) TreeFiles(tree plumbing.Hash) (map[string]string, error) {
	files := map[string]string{}
	if err := s.collect(tree, "", files); err != nil {
		return nil, err
	}
	return files, nil
}

// CommitFilesOf flattens the tree of a commit
func (s *MemoryStore) CommitFilesOf(id plumbing.Hash) (map[string]string, error) {
	c, err := s.ReadCommit(context.Background(), id)
	if err != nil {
		return nil, err
	}
	return s.TreeFiles(c.Tree)
}

func (s *MemoryStore) collect(tree plumbing.Hash, prefix string, files map[string]string) error {
	entries, err := git.LoadTree(s.storage, tree)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := path.Join(prefix, e.Name)
		if e.Mode == filemode.Dir {
			if err := s.collect(e.Hash, p, files); err != nil {
				return err
			}
			continue
		}
		data, err := git.LoadBlob(s.storage, e.Hash)
		if err != nil {
			return err
		}
		files[p] = string(data)
	}
	return nil
}

// writeFiles stores files as a nested tree and returns its id
func (s *MemoryStore) writeFiles(files map[string]string) (plumbing.Hash, error) {
	var entries []git.TreeEntry
	dirs := map[string]map[string]string{}
	for p, content := range files {
		dir, rest, nested := strings.Cut(p, "/")
		if nested {
			if dirs[dir] == nil {
				dirs[dir] = map[string]string{}
			}
			dirs[dir][rest] = content
			continue
		}
		blob, err := git.StoreBlob(s.storage, []byte(content))
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, git.TreeEntry{Name: p, Mode: filemode.Regular, Hash: blob})
	}
	for dir, sub := range dirs {
		id, err := s.writeFiles(sub)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, git.TreeEntry{Name: dir, Mode: filemode.Dir, Hash: id})
	}
	return git.StoreTree(s.storage, entries)
}

func trackAll(files map[string]string) map[string]bool {
	tracked := make(map[string]bool, len(files))
	for p := range files {
		tracked[p] = true
	}
	return tracked
}

func unionKeys(a, b map[string]string) map[string]bool {
	keys := make(map[string]bool, len(a)+len(b))
	for k := range a {
		keys[k] = true
	}
	for k := range b {
		keys[k] = true
	}
	return keys
}

func fileLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

type hunk struct {
	i1, i2 int
	lines  []string
}

func changes(base, other []string) []hunk {
	var hunks []hunk
	for _, op := range difflib.NewMatcher(base, other).GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		hunks = append(hunks, hunk{i1: op.I1, i2: op.I2, lines: other[op.J1:op.J2]})
	}
	return hunks
}

func applyHunks(base []string, start, end int, hunks []hunk) []string {
	var out []string
	pos := start
	for _, h := range hunks {
		out = append(out, base[pos:h.i1]...)
		out = append(out, h.lines...)
		pos = h.i2
	}
	return append(out, base[pos:end]...)
}

// Merge3 merges the line changes of ours and theirs against base.
// Overlapping or touching changes that differ are written with conflict markers.
func Merge3(base, ours, theirs string) (string, bool) {
	b := fileLines(base)
	a, t := changes(b, fileLines(ours)), changes(b, fileLines(theirs))

	var out []string
	conflict := false
	pos, ia, it := 0, 0, 0
	for ia < len(a) || it < len(t) {
		var ga, gt []hunk
		var start, end int
		if it >= len(t) || (ia < len(a) && a[ia].i1 <= t[it].i1) {
			ga, start, end = append(ga, a[ia]), a[ia].i1, a[ia].i2
			ia++
		} else {
			gt, start, end = append(gt, t[it]), t[it].i1, t[it].i2
			it++
		}
		for {
			if ia < len(a) && a[ia].i1 <= end {
				ga = append(ga, a[ia])
				end = max(end, a[ia].i2)
				ia++
			} else if it < len(t) && t[it].i1 <= end {
				gt = append(gt, t[it])
				end = max(end, t[it].i2)
				it++
			} else {
				break
			}
		}

		out = append(out, b[pos:start]...)
		switch {
		case len(gt) == 0:
			out = append(out, applyHunks(b, start, end, ga)...)
		case len(ga) == 0:
			out = append(out, applyHunks(b, start, end, gt)...)
		default:
			mine, theirs := applyHunks(b, start, end, ga), applyHunks(b, start, end, gt)
			if slices.Equal(mine, theirs) {
				out = append(out, mine...)
				break
			}
			conflict = true
			out = append(out, "<<<<<<< ours\n")
			out = append(out, terminated(mine)...)
			out = append(out, "=======\n")
			out = append(out, terminated(theirs)...)
			out = append(out, ">>>>>>> theirs\n")
		}
		pos = end
	}
	out = append(out, b[pos:]...)
	return strings.Join(out, ""), conflict
}

func terminated(lines []string) []string {
	if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
		lines = append(slices.Clone(lines[:n-1]), lines[n-1]+"\n")
	}
	return lines
}
