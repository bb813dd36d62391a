package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"

	pstackerrors "stackit.dev/pstack/internal/errors"
	"stackit.dev/pstack/internal/git"
)

var errTransactionClosed = errors.New("transaction already committed or discarded")

// TxOption adjusts how a transaction starts and publishes
type TxOption func(*txConfig)

type txConfig struct {
	allowDirty    bool
	force         bool
	skipHeadCheck bool
	untracked     bool
	popPolicy     PopPolicy
	kind          EntryKind
	steps         int
}

// AllowDirty lets the transaction start with local changes in the worktree.
// The final checkout still refuses to overwrite them.
func AllowDirty() TxOption {
	return func(c *txConfig) { c.allowDirty = true }
}

// Force discards local changes: the new head tree is checked out with --reset semantics
func Force() TxOption {
	return func(c *txConfig) {
		c.force = true
		c.skipHeadCheck = true
	}
}

// IncludeUntracked makes refresh pick up untracked files as well
func IncludeUntracked() TxOption {
	return func(c *txConfig) { c.untracked = true }
}

// WithPopPolicy overrides the stack's pop policy for one transaction
func WithPopPolicy(p PopPolicy) TxOption {
	return func(c *txConfig) {
		if p != "" {
			c.popPolicy = p
		}
	}
}

func withKind(kind EntryKind, steps int) TxOption {
	return func(c *txConfig) {
		c.kind = kind
		c.steps = steps
	}
}

func skipHeadCheck() TxOption {
	return func(c *txConfig) { c.skipHeadCheck = true }
}

// Transaction batches stack operations and publishes them atomically.
// Operations are validated when queued; objects are written by Commit.
type Transaction struct {
	stack   *Stack
	command string
	id      string
	cfg     txConfig
	lock    *branchLock
	cache   *commitCache
	log     *slog.Logger

	before       *StackState
	beforeRecord *stateRecord
	beforeWork   *working
	branchHead   plumbing.Hash

	model        *nameModel
	steps        []step
	keepWorktree bool
	closed       bool
}

// Begin locks the branch, loads its state and checks the preconditions of a transaction
func (s *Stack) Begin(ctx context.Context, command string, opts ...TxOption) (*Transaction, error) {
	cfg := txConfig{kind: KindRegular, popPolicy: s.opts.PopPolicy}
	for _, opt := range opts {
		opt(&cfg)
	}

	current, err := s.store.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	if current != s.branch {
		return nil, fmt.Errorf("branch %s is not checked out (HEAD is on %s)", s.branch, current)
	}

	lock, err := acquireLock(ctx, s.store.GitDir(), s.branch, s.opts.LockTimeout)
	if err != nil {
		return nil, err
	}
	started := false
	defer func() {
		if !started {
			_ = lock.release()
		}
	}()

	cache := newCommitCache(s.store)
	before, rec, w, err := s.load(ctx, cache)
	if err != nil {
		return nil, err
	}

	branchHead, err := s.store.ResolveRef(ctx, git.BranchRef(s.branch))
	if err != nil {
		return nil, err
	}
	if !cfg.skipHeadCheck && branchHead != before.Head {
		return nil, fmt.Errorf("%w: %s is at %s but the stack expects %s (run 'pstack repair')",
			pstackerrors.ErrHeadMismatch, s.branch, branchHead, before.Head)
	}

	if !cfg.allowDirty && !cfg.force {
		headCommit, err := cache.get(ctx, branchHead)
		if err != nil {
			return nil, err
		}
		clean, err := s.store.WorktreeIsClean(ctx, headCommit.Tree)
		if err != nil {
			return nil, err
		}
		if !clean {
			return nil, fmt.Errorf("%w: commit, stash or refresh them first", pstackerrors.ErrDirtyWorktree)
		}
	}

	id := uuid.NewString()
	tx := &Transaction{
		stack:        s,
		command:      command,
		id:           id,
		cfg:          cfg,
		lock:         lock,
		cache:        cache,
		log:          s.log.With("tx", id, "command", command),
		before:       before,
		beforeRecord: rec,
		beforeWork:   w,
		branchHead:   branchHead,
		model:        newNameModel(w),
	}
	tx.log.Debug("transaction started", "state", before.ID.String())
	started = true
	return tx, nil
}

// ID returns the transaction id recorded in the undo log
func (tx *Transaction) ID() string {
	return tx.id
}

// Before returns the state the transaction started from
func (tx *Transaction) Before() *StackState {
	return tx.before
}

// Discard releases the transaction without publishing anything
func (tx *Transaction) Discard() {
	if tx.closed {
		return
	}
	tx.closed = true
	tx.release()
}

func (tx *Transaction) release() {
	if err := tx.lock.release(); err != nil {
		tx.log.Warn("failed to release lock", "error", err)
	}
}

func (tx *Transaction) queue(steps ...step) {
	tx.steps = append(tx.steps, steps...)
}

func (tx *Transaction) checkOpen() error {
	if tx.closed {
		return errTransactionClosed
	}
	return nil
}

// guard rejects every operation while a conflict is unresolved
func (tx *Transaction) guard(op string) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	if c := tx.model.conflicted; c != "" {
		return pstackerrors.NewPatchError(op, c, fmt.Errorf("%w: resolve it with refresh, pop, delete or abort", pstackerrors.ErrConflictPending))
	}
	return nil
}

func (tx *Transaction) requireExisting(op, name string) (Partition, error) {
	part := tx.model.partition(name)
	if part == PartitionNone {
		return part, pstackerrors.NewPatchError(op, name, pstackerrors.ErrNotFound)
	}
	return part, nil
}

func (tx *Transaction) requireNewName(op, name string) error {
	if err := ValidatePatchName(name); err != nil {
		return err
	}
	if tx.model.partition(name) != PartitionNone {
		return pstackerrors.NewPatchError(op, name, pstackerrors.ErrAlreadyExists)
	}
	return nil
}

// IsFree reports whether name is unused at this point of the transaction
func (tx *Transaction) IsFree(name string) bool {
	return tx.model.partition(name) == PartitionNone
}

// Applied returns the applied names as they will be after the queued operations
func (tx *Transaction) Applied() []string {
	return slices.Clone(tx.model.applied)
}

// Unapplied returns the unapplied names as they will be after the queued operations
func (tx *Transaction) Unapplied() []string {
	return slices.Clone(tx.model.unapplied)
}

// Hidden returns the hidden names as they will be after the queued operations
func (tx *Transaction) Hidden() []string {
	return slices.Clone(tx.model.hidden)
}

// popRange pops applied[from:] from the top down
func (tx *Transaction) popRange(from int) []string {
	popped := slices.Clone(tx.model.applied[from:])
	for i := len(popped) - 1; i >= 0; i-- {
		tx.model.pop(popped[i])
		tx.queue(&popStep{name: popped[i]})
	}
	return popped
}

func (tx *Transaction) pushNames(names []string) {
	for _, name := range names {
		tx.model.push(name)
		tx.queue(&pushStep{name: name})
	}
}

// Push pushes unapplied patches, in order, onto the stack
func (tx *Transaction) Push(names ...string) error {
	for _, name := range names {
		if err := tx.guard("push"); err != nil {
			return err
		}
		part := tx.model.partition(name)
		if part == PartitionNone {
			return pstackerrors.NewPatchError("push", name, fmt.Errorf("%w: %w", pstackerrors.ErrNotUnapplied, pstackerrors.ErrNotFound))
		}
		if part != PartitionUnapplied {
			return pstackerrors.NewPatchError("push", name, pstackerrors.ErrNotUnapplied)
		}
		tx.pushNames([]string{name})
	}
	return nil
}

// PushNext pushes the first n unapplied patches; n < 0 pushes all of them
func (tx *Transaction) PushNext(n int) error {
	if err := tx.guard("push"); err != nil {
		return err
	}
	if n < 0 || n > len(tx.model.unapplied) {
		n = len(tx.model.unapplied)
	}
	if n == 0 {
		return fmt.Errorf("%w: no patches to push", pstackerrors.ErrNotUnapplied)
	}
	return tx.Push(slices.Clone(tx.model.unapplied[:n])...)
}

// Pop pops applied patches. Patches that are not on top are handled by the pop policy.
func (tx *Transaction) Pop(names ...string) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	if len(tx.model.applied) == 0 && len(names) == 0 {
		return fmt.Errorf("%w: %w", pstackerrors.ErrNotApplied, pstackerrors.ErrNoAppliedPatches)
	}
	if len(names) == 0 {
		names = []string{tx.model.top()}
	}

	lowest := len(tx.model.applied)
	selected := make(map[string]bool, len(names))
	for _, name := range names {
		part := tx.model.partition(name)
		if part == PartitionNone {
			return pstackerrors.NewPatchError("pop", name, fmt.Errorf("%w: %w", pstackerrors.ErrNotApplied, pstackerrors.ErrNotFound))
		}
		if part != PartitionApplied {
			return pstackerrors.NewPatchError("pop", name, pstackerrors.ErrNotApplied)
		}
		if c := tx.model.conflicted; c != "" && name != c {
			return pstackerrors.NewPatchError("pop", c, pstackerrors.ErrConflictPending)
		}
		selected[name] = true
		lowest = min(lowest, slices.Index(tx.model.applied, name))
	}

	above := make([]string, 0)
	for _, name := range tx.model.applied[lowest:] {
		if !selected[name] {
			above = append(above, name)
		}
	}
	if len(above) > 0 && tx.cfg.popPolicy == PopReject {
		return pstackerrors.NewPatchError("pop", tx.model.applied[lowest], pstackerrors.ErrNotTop)
	}

	tx.popRange(lowest)
	if tx.cfg.popPolicy == PopReorder {
		tx.pushNames(above)
	}
	return nil
}

// PopTop pops the n topmost patches; n < 0 pops all of them
func (tx *Transaction) PopTop(n int) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	if n < 0 || n > len(tx.model.applied) {
		n = len(tx.model.applied)
	}
	if n == 0 {
		return fmt.Errorf("%w: %w", pstackerrors.ErrNotApplied, pstackerrors.ErrNoAppliedPatches)
	}
	return tx.Pop(slices.Clone(tx.model.applied[len(tx.model.applied)-n:])...)
}

// Goto makes name the top patch, pushing or popping whatever lies in between
func (tx *Transaction) Goto(name string) error {
	if err := tx.guard("goto"); err != nil {
		return err
	}
	part, err := tx.requireExisting("goto", name)
	if err != nil {
		return err
	}
	switch part {
	case PartitionApplied:
		tx.popRange(slices.Index(tx.model.applied, name) + 1)
	case PartitionUnapplied:
		idx := slices.Index(tx.model.unapplied, name)
		tx.pushNames(slices.Clone(tx.model.unapplied[:idx+1]))
	default:
		return pstackerrors.NewPatchError("goto", name, pstackerrors.ErrNotUnapplied)
	}
	return nil
}

// Reorder rearranges the visible series. order must list every applied and unapplied
// patch exactly once, with the applied ones first.
func (tx *Transaction) Reorder(order []string) error {
	if err := tx.guard("reorder"); err != nil {
		return err
	}
	applied := tx.model.applied
	visible := len(applied) + len(tx.model.unapplied)
	if len(order) != visible {
		return fmt.Errorf("%w: expected %d patches, got %d", pstackerrors.ErrInvalidOrder, visible, len(order))
	}
	seen := make(map[string]bool, len(order))
	for i, name := range order {
		part := tx.model.partition(name)
		switch {
		case seen[name]:
			return fmt.Errorf("%w: %s listed twice", pstackerrors.ErrInvalidOrder, name)
		case part != PartitionApplied && part != PartitionUnapplied:
			return fmt.Errorf("%w: %s is not an applied or unapplied patch", pstackerrors.ErrInvalidOrder, name)
		case (i < len(applied)) != (part == PartitionApplied):
			return fmt.Errorf("%w: %s would cross the applied/unapplied boundary", pstackerrors.ErrInvalidOrder, name)
		}
		seen[name] = true
	}

	common := 0
	for common < len(applied) && order[common] == applied[common] {
		common++
	}
	appliedCount := len(applied)
	tx.popRange(common)
	tx.pushNames(slices.Clone(order[common:appliedCount]))

	tail := slices.Clone(order[appliedCount:])
	if !slices.Equal(tail, tx.model.unapplied) {
		tx.model.unapplied = tail
		tx.queue(&orderStep{order: tail})
	}
	return nil
}

// Float moves the named patches to the top of the stack in the given order
func (tx *Transaction) Float(names ...string) error {
	if err := tx.guard("float"); err != nil {
		return err
	}
	selected, err := tx.selectVisible("float", names)
	if err != nil {
		return err
	}
	lowest := len(tx.model.applied)
	for _, name := range names {
		if i := slices.Index(tx.model.applied, name); i >= 0 {
			lowest = min(lowest, i)
		}
	}
	var keep []string
	for _, name := range tx.model.applied[lowest:] {
		if !selected[name] {
			keep = append(keep, name)
		}
	}
	tx.popRange(lowest)
	tx.pushNames(keep)
	tx.pushNames(slices.Clone(names))
	return nil
}

// Sink moves the named patches down so they sit directly below target,
// or at the bottom of the stack when target is empty
func (tx *Transaction) Sink(target string, names ...string) error {
	if err := tx.guard("sink"); err != nil {
		return err
	}
	selected, err := tx.selectVisible("sink", names)
	if err != nil {
		return err
	}
	pos := 0
	if target != "" {
		if selected[target] {
			return pstackerrors.NewPatchError("sink", target, fmt.Errorf("%w: target is one of the sunk patches", pstackerrors.ErrInvalidOrder))
		}
		pos = slices.Index(tx.model.applied, target)
		if pos < 0 {
			if _, err := tx.requireExisting("sink", target); err != nil {
				return err
			}
			return pstackerrors.NewPatchError("sink", target, pstackerrors.ErrNotApplied)
		}
	}
	lowest := pos
	for _, name := range names {
		if i := slices.Index(tx.model.applied, name); i >= 0 {
			lowest = min(lowest, i)
		}
	}

	var below, rest []string
	for i, name := range tx.model.applied[lowest:] {
		if selected[name] {
			continue
		}
		if lowest+i < pos {
			below = append(below, name)
		} else {
			rest = append(rest, name)
		}
	}
	tx.popRange(lowest)
	tx.pushNames(below)
	tx.pushNames(slices.Clone(names))
	tx.pushNames(rest)
	return nil
}

func (tx *Transaction) selectVisible(op string, names []string) (map[string]bool, error) {
	if len(names) == 0 {
		return nil, pstackerrors.NewUsageError("%s needs at least one patch", op)
	}
	selected := make(map[string]bool, len(names))
	for _, name := range names {
		part, err := tx.requireExisting(op, name)
		if err != nil {
			return nil, err
		}
		if part == PartitionHidden {
			return nil, pstackerrors.NewPatchError(op, name, pstackerrors.ErrNotUnapplied)
		}
		if selected[name] {
			return nil, fmt.Errorf("%w: %s listed twice", pstackerrors.ErrInvalidOrder, name)
		}
		selected[name] = true
	}
	return selected, nil
}

// Update replaces the commit of a patch. Patches above an applied patch are pushed back on top.
func (tx *Transaction) Update(name string, commit plumbing.Hash) error {
	if err := tx.guard("update"); err != nil {
		return err
	}
	part, err := tx.requireExisting("update", name)
	if err != nil {
		return err
	}
	if part != PartitionApplied {
		tx.queue(&setCommitStep{name: name, commit: commit})
		return nil
	}
	popped := tx.popRange(slices.Index(tx.model.applied, name))
	tx.queue(&setCommitStep{name: name, commit: commit})
	tx.pushNames(popped)
	return nil
}

// Delete removes patches from the stack. Applied patches are popped first, following the pop policy.
func (tx *Transaction) Delete(names ...string) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	var applied []string
	for _, name := range names {
		part, err := tx.requireExisting("delete", name)
		if err != nil {
			return err
		}
		if c := tx.model.conflicted; c != "" && name != c {
			return pstackerrors.NewPatchError("delete", c, pstackerrors.ErrConflictPending)
		}
		if part == PartitionApplied {
			applied = append(applied, name)
		}
	}
	if len(applied) > 0 {
		if err := tx.Pop(applied...); err != nil {
			return err
		}
	}
	for _, name := range names {
		tx.model.remove(name)
		tx.queue(&deleteStep{name: name})
	}
	return nil
}

// Hide moves unapplied patches to the hidden series
func (tx *Transaction) Hide(names ...string) error {
	for _, name := range names {
		if err := tx.guard("hide"); err != nil {
			return err
		}
		part, err := tx.requireExisting("hide", name)
		if err != nil {
			return err
		}
		if part != PartitionUnapplied {
			return pstackerrors.NewPatchError("hide", name, pstackerrors.ErrNotUnapplied)
		}
		tx.model.unapplied = removeName(tx.model.unapplied, name)
		tx.model.hidden = append(tx.model.hidden, name)
		tx.queue(&hideStep{name: name})
	}
	return nil
}

// Unhide moves hidden patches to the end of the unapplied series
func (tx *Transaction) Unhide(names ...string) error {
	for _, name := range names {
		if err := tx.guard("unhide"); err != nil {
			return err
		}
		part, err := tx.requireExisting("unhide", name)
		if err != nil {
			return err
		}
		if part != PartitionHidden {
			return pstackerrors.NewPatchError("unhide", name, pstackerrors.ErrNotHidden)
		}
		tx.model.hidden = removeName(tx.model.hidden, name)
		tx.model.unapplied = append(tx.model.unapplied, name)
		tx.queue(&unhideStep{name: name})
	}
	return nil
}

// Rename gives a patch a new name
func (tx *Transaction) Rename(oldName, newName string) error {
	if err := tx.guard("rename"); err != nil {
		return err
	}
	if _, err := tx.requireExisting("rename", oldName); err != nil {
		return err
	}
	if err := tx.requireNewName("rename", newName); err != nil {
		return err
	}
	tx.model.rename(oldName, newName)
	tx.queue(&renameStep{oldName: oldName, newName: newName})
	return nil
}

// New creates an empty patch on top of the stack. An empty name is derived from message.
func (tx *Transaction) New(name, message string) (string, error) {
	if err := tx.guard("new"); err != nil {
		return "", err
	}
	if name == "" {
		name = Uniquify(MakePatchName(message, tx.stack.opts.NameLength), func(n string) bool { return !tx.IsFree(n) })
	}
	if err := tx.requireNewName("new", name); err != nil {
		return "", err
	}
	if message == "" {
		message = name
	}
	tx.model.applied = append(tx.model.applied, name)
	tx.queue(&newStep{name: name, message: message})
	return name, nil
}

// NewApplied adds an existing commit as a patch and pushes it
func (tx *Transaction) NewApplied(name string, commit plumbing.Hash) error {
	if err := tx.insert(name, commit, true); err != nil {
		return err
	}
	tx.pushNames([]string{name})
	return nil
}

// NewUnapplied adds an existing commit as a patch at the end of the unapplied series
func (tx *Transaction) NewUnapplied(name string, commit plumbing.Hash) error {
	return tx.insert(name, commit, false)
}

func (tx *Transaction) insert(name string, commit plumbing.Hash, front bool) error {
	if err := tx.guard("new"); err != nil {
		return err
	}
	if err := tx.requireNewName("new", name); err != nil {
		return err
	}
	if front {
		tx.model.unapplied = append([]string{name}, tx.model.unapplied...)
	} else {
		tx.model.unapplied = append(tx.model.unapplied, name)
	}
	tx.queue(&insertStep{name: name, commit: commit, front: front})
	return nil
}

// Rebase moves the stack onto a new base commit and pushes the applied patches back
func (tx *Transaction) Rebase(onto plumbing.Hash) error {
	if err := tx.guard("rebase"); err != nil {
		return err
	}
	popped := tx.popRange(0)
	tx.queue(&setBaseStep{commit: onto})
	tx.pushNames(popped)
	return nil
}

// Refresh amends the top patch with the current worktree and clears a pending conflict
func (tx *Transaction) Refresh(message string) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	top := tx.model.top()
	if top == "" {
		return pstackerrors.ErrNoAppliedPatches
	}
	tx.model.conflicted = ""
	tx.queue(&refreshStep{name: top, message: message, includeUntracked: tx.stack.opts.IncludeUntracked || tx.cfg.untracked})
	return nil
}

// Spill empties the top patch while leaving its changes in the worktree
func (tx *Transaction) Spill() error {
	if err := tx.guard("spill"); err != nil {
		return err
	}
	top := tx.model.top()
	if top == "" {
		return pstackerrors.ErrNoAppliedPatches
	}
	tx.keepWorktree = true
	tx.queue(&spillStep{name: top})
	return nil
}

// Abort gives up on a conflicted push: the patch is popped with its pre-push commit
// and the worktree is reset, discarding any resolution in progress
func (tx *Transaction) Abort() error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	c := tx.model.conflicted
	if c == "" {
		return pstackerrors.ErrNoConflict
	}
	tx.model.pop(c)
	tx.queue(&popStep{name: c})
	tx.cfg.force = true
	return nil
}

// restore replaces the whole stack with a logged state
func (tx *Transaction) restore(target *working) {
	tx.model = newNameModel(target)
	tx.queue(&restoreStep{target: target})
}
