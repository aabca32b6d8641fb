package pacman

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// lockPollInterval is how often a contended flock is retried.
const lockPollInterval = 50 * time.Millisecond

// fileLock is an advisory flock(2) held on a file inside the cache directory.
// The lock file itself is never removed; other processes may hold an open
// descriptor on it.
type fileLock struct {
	file *os.File
}

// acquireLock takes an exclusive or shared flock on path, polling with
// LOCK_NB until it succeeds or ctx is done.
func acquireLock(ctx context.Context, path string, exclusive bool) (*fileLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		err := unix.Flock(int(file.Fd()), how|unix.LOCK_NB)
		if err == nil {
			return &fileLock{file: file}, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EINTR {
			file.Close()
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		select {
		case <-ctx.Done():
			file.Close()
			return nil, lockWaitError(ctx)
		case <-ticker.C:
		}
	}
}

// lockWaitError reports why waiting for a lock stopped. Only an expired
// deadline counts as contention; a cancelled caller gets ctx.Err() back.
func lockWaitError(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}
	return err
}

// release unlocks and closes the lock file.
func (l *fileLock) release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return closeErr
}
