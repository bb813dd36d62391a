package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/git"
)

// Options configures a Stack
type Options struct {
	// PopPolicy applies to pops of patches that are not on top
	PopPolicy PopPolicy
	// LockTimeout is how long Begin waits for the branch lock; zero fails immediately
	LockTimeout time.Duration
	// NameLength caps names generated from commit messages
	NameLength int
	// IncludeUntracked makes refresh pick up untracked files
	IncludeUntracked bool
	Logger           *slog.Logger
	// Now stamps log entries; defaults to time.Now
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PopPolicy == "" {
		o.PopPolicy = DefaultPopPolicy
	}
	if o.NameLength <= 0 {
		o.NameLength = DefaultNameLength
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Stack is the patch stack of one branch
type Stack struct {
	store  git.ObjectStore
	branch string
	opts   Options
	log    *slog.Logger
}

// Open returns the stack of an initialized branch
func Open(ctx context.Context, store git.ObjectStore, branch string, opts Options) (*Stack, error) {
	s := newStack(store, branch, opts)
	initialized, err := s.IsInitialized(ctx)
	if err != nil {
		return nil, err
	}
	if !initialized {
		return nil, fmt.Errorf("%w: %s (run 'pstack init')", pstackerrors.ErrNotInitialized, branch)
	}
	return s, nil
}

// Init creates an empty stack on branch, based on the branch's current head
func Init(ctx context.Context, store git.ObjectStore, branch string, opts Options) (*Stack, error) {
	s := newStack(store, branch, opts)

	lock, err := acquireLock(ctx, store.GitDir(), branch, s.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.release() }()

	existing, err := store.ResolveRef(ctx, git.StackRef(branch))
	if err != nil {
		return nil, err
	}
	if !existing.IsZero() {
		return nil, fmt.Errorf("%w: %s", pstackerrors.ErrAlreadyInitialized, branch)
	}
	head, err := store.ResolveRef(ctx, git.BranchRef(branch))
	if err != nil {
		return nil, err
	}
	if head.IsZero() {
		return nil, fmt.Errorf("branch %s has no commits yet", branch)
	}

	w := &working{base: head, entries: map[string]*entry{}}
	rec := newStateRecord(w)
	rec.Command = "init"
	rec.Kind = KindInit
	rec.TxID = uuid.NewString()
	rec.Timestamp = s.opts.Now().UTC()
	id, err := writeRecord(ctx, store, rec, w)
	if err != nil {
		return nil, err
	}
	err = store.UpdateRefs(ctx, "pstack: init", []git.RefUpdate{{Name: git.StackRef(branch), New: id}})
	if err != nil {
		return nil, err
	}
	s.log.Info("initialized stack", "base", head.String(), "state", id.String())
	return s, nil
}

func newStack(store git.ObjectStore, branch string, opts Options) *Stack {
	opts = opts.withDefaults()
	return &Stack{
		store:  store,
		branch: branch,
		opts:   opts,
		log:    opts.Logger.With("branch", branch),
	}
}

// Branch returns the branch this stack belongs to
func (s *Stack) Branch() string {
	return s.branch
}

// Store returns the object store the stack lives in
func (s *Stack) Store() git.ObjectStore {
	return s.store
}

// IsInitialized reports whether the branch has a stack reference
func (s *Stack) IsInitialized(ctx context.Context) (bool, error) {
	id, err := s.store.ResolveRef(ctx, git.StackRef(s.branch))
	if err != nil {
		return false, err
	}
	return !id.IsZero(), nil
}

// Uninit removes the stack reference. Patch commits are left to git gc.
func (s *Stack) Uninit(ctx context.Context) error {
	lock, err := acquireLock(ctx, s.store.GitDir(), s.branch, s.opts.LockTimeout)
	if err != nil {
		return err
	}
	defer func() { _ = lock.release() }()

	id, err := s.store.ResolveRef(ctx, git.StackRef(s.branch))
	if err != nil {
		return err
	}
	if id.IsZero() {
		return fmt.Errorf("%w: %s", pstackerrors.ErrNotInitialized, s.branch)
	}
	return s.store.UpdateRefs(ctx, "pstack: uninit", []git.RefUpdate{{Name: git.StackRef(s.branch), Old: id}})
}

// State loads and validates the currently published state
func (s *Stack) State(ctx context.Context) (*StackState, error) {
	state, _, _, err := s.load(ctx, newCommitCache(s.store))
	return state, err
}

func (s *Stack) load(ctx context.Context, cache *commitCache) (*StackState, *stateRecord, *working, error) {
	id, err := s.store.ResolveRef(ctx, git.StackRef(s.branch))
	if err != nil {
		return nil, nil, nil, err
	}
	if id.IsZero() {
		return nil, nil, nil, fmt.Errorf("%w: %s", pstackerrors.ErrNotInitialized, s.branch)
	}
	rec, err := readRecord(ctx, s.store, id)
	if err != nil {
		return nil, nil, nil, err
	}
	w, err := rec.working()
	if err != nil {
		return nil, nil, nil, err
	}
	state, err := buildState(ctx, cache, id, w)
	if err != nil {
		return nil, nil, nil, err
	}
	return state, rec, w, nil
}
