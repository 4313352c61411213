// Package lock guards plan output files against concurrent writers.
package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Suffix is appended to a guarded path to name its lock file.
const Suffix = ".lock"

// FileLock is an advisory flock on path. The holder's PID is written into
// the lock file.
type FileLock struct {
	path string
	file *os.File
}

func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// For returns the lock guarding target.
func For(target string) *FileLock {
	return NewFileLock(target + Suffix)
}

func (fl *FileLock) Path() string { return fl.path }

func (fl *FileLock) TryLock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if pid, ok := Holder(fl.path); ok {
			return fmt.Errorf("acquire lock %s (held by pid %d): %w", fl.path, pid, err)
		}
		return fmt.Errorf("acquire lock %s: %w", fl.path, err)
	}

	fail := func(what string, err error) error {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return fmt.Errorf("%s: %w", what, err)
	}
	if err := f.Truncate(0); err != nil {
		return fail("truncate lock file", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fail("seek lock file", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fail("write PID to lock file", err)
	}
	if err := f.Sync(); err != nil {
		return fail("sync lock file", err)
	}

	fl.file = f
	return nil
}

// Unlock releases the lock and removes the lock file. Unlocking twice is a
// no-op.
func (fl *FileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}

	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		fl.file.Close()
		fl.file = nil
		return fmt.Errorf("release lock: %w", err)
	}

	if err := fl.file.Close(); err != nil {
		fl.file = nil
		return fmt.Errorf("close lock file: %w", err)
	}

	os.Remove(fl.path)
	fl.file = nil
	return nil
}

// Holder reads the PID recorded in a lock file.
func Holder(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// WithLock runs fn while holding the lock for target.
func WithLock(target string, fn func() error) error {
	fl := For(target)
	if err := fl.TryLock(); err != nil {
		return err
	}
	defer fl.Unlock()
	return fn()
}
