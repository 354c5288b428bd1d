package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LockSuffix is appended to the store path to form the lock file path.
const LockSuffix = ".lock"

// Backoff bounds for polling a held lock.
const (
	minLockBackoff = 50 * time.Millisecond
	maxLockBackoff = time.Second
)

// FileLock is an advisory exclusive lock on a store file.
type FileLock struct {
	file *os.File
	path string
}

// Lock acquires an exclusive advisory lock for the store at storePath.
//
// A free lock is taken immediately. A held lock is polled with exponential
// backoff until timeout elapses or ctx is cancelled, then ErrLocked is
// returned. The lock file is left in place after Unlock.
func Lock(ctx context.Context, storePath string, timeout time.Duration) (*FileLock, error) {
	lockPath := storePath + LockSuffix
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	ok, err := tryLock(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	}
	if ok {
		return &FileLock{file: file, path: lockPath}, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := minLockBackoff
	for {
		select {
		case <-lockCtx.Done():
			file.Close()
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
		case <-time.After(backoff):
		}

		ok, err := tryLock(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("lock %s: %w", lockPath, err)
		}
		if ok {
			return &FileLock{file: file, path: lockPath}, nil
		}
		backoff = min(backoff*2, maxLockBackoff)
	}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// Unlock releases the lock. Calling Unlock on a released lock is a no-op.
func (l *FileLock) Unlock() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unlock(l.file)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}
