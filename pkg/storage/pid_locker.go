package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DefaultLocksDir is where component pid files live.
const DefaultLocksDir = "/tmp/run"

// PidFileLocker implements ProcessLockerInterface with a POSIX
// advisory write lock on <locksDir>/<component>.pid. The kernel drops
// the lock when the holding process exits.
type PidFileLocker struct {
	path string
	file *os.File
}

// NewPidFileLocker creates a locker for the named component.
func NewPidFileLocker(locksDir, component string) *PidFileLocker {
	return &PidFileLocker{
		path: filepath.Join(locksDir, component+".pid"),
	}
}

// Acquire opens or creates the pid file, takes a non-blocking write
// lock on it, and records our pid for debugging.
func (l *PidFileLocker) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0777); err != nil {
		return fmt.Errorf("failed to create locks dir: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("failed to open lock file %s: %w", l.path, err)
	}

	flock := unix.Flock_t{Type: unix.F_WRLCK}
	if err := unix.FcntlFlock(file.Fd(), unix.F_SETLK, &flock); err != nil {
		file.Close()
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	// Replace the previous pid number
	if err := file.Truncate(0); err == nil {
		fmt.Fprintf(file, "%d\n", os.Getpid())
	}

	l.file = file
	return nil
}

// Release closes the lock file, dropping the lock, and removes the pid
// file.
func (l *PidFileLocker) Release() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	os.Remove(l.path)
	return err
}

// Path returns the pid file backing the lock.
func (l *PidFileLocker) Path() string {
	return l.path
}
