package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	pstackerrors "stackit.dev/pstack/internal/errors"
)

const lockRetryDelay = 50 * time.Millisecond

// branchLock is the exclusive advisory lock serializing transactions on one branch
type branchLock struct {
	fl *flock.Flock
}

// LockPath returns the lock file guarding branch
func LockPath(gitDir, branch string) string {
	return filepath.Join(gitDir, "pstack", "locks", url.PathEscape(branch)+".lock")
}

func acquireLock(ctx context.Context, gitDir, branch string, timeout time.Duration) (*branchLock, error) {
	path := LockPath(gitDir, branch)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	var (
		locked bool
		err    error
	)
	if timeout <= 0 {
		locked, err = fl.TryLock()
	} else {
		lockCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		locked, err = fl.TryLockContext(lockCtx, lockRetryDelay)
		if errors.Is(err, context.DeadlineExceeded) {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", branch, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", pstackerrors.ErrLocked, branch)
	}
	return &branchLock{fl: fl}, nil
}

func (l *branchLock) release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
