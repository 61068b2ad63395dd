package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLocked is returned when another holder already owns a lock.
// Acquisition never waits.
var ErrLocked = errors.New("file is locked")

// FileLock is an exclusive advisory lock on a file. Release it on every exit
// path; WithLock does this for you.
type FileLock struct {
	path string
	f    *os.File
}

// Acquire takes an exclusive non-blocking lock on path, creating the file
// and its parent directory if needed.
func Acquire(path string) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := tryLock(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &FileLock{path: path, f: f}, nil
}

// Path returns the locked file.
func (l *FileLock) Path() string {
	return l.path
}

// Release drops the lock. Calling it more than once is a no-op.
func (l *FileLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := unlock(l.f)
	closeErr := l.f.Close()
	l.f = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}

// WithLock runs fn while holding the lock on path. The lock is released
// whether fn succeeds, fails or panics.
func WithLock(path string, fn func() error) error {
	l, err := Acquire(path)
	if err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
