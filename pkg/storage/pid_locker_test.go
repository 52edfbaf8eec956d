package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestPidFileLocker_AcquireRelease(t *testing.T) {
	locker := NewPidFileLocker(t.TempDir(), "pmlogd-test")

	if err := locker.Acquire(); err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	// the pid file records our pid
	content, err := os.ReadFile(locker.Path())
	if err != nil {
		t.Fatalf("Failed to read pid file: %v", err)
	}
	expected := fmt.Sprintf("%d\n", os.Getpid())
	if string(content) != expected {
		t.Errorf("Expected pid file content %q, got %q", expected, content)
	}

	if err := locker.Release(); err != nil {
		t.Errorf("Release failed: %v", err)
	}

	if _, err := os.Stat(locker.Path()); !os.IsNotExist(err) {
		t.Error("Expected pid file to be removed on release")
	}
}

func TestPidFileLocker_ReacquireAfterRelease(t *testing.T) {
	dir := t.TempDir()
	locker := NewPidFileLocker(dir, "pmlogd-test")

	if err := locker.Acquire(); err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	if err := locker.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := locker.Acquire(); err != nil {
		t.Errorf("Reacquire failed: %v", err)
	}
	locker.Release()
}

func TestPidFileLocker_CreatesLocksDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	locker := NewPidFileLocker(dir, "pmlogd-test")

	if err := locker.Acquire(); err != nil {
		t.Fatalf("Acquire should create the locks dir: %v", err)
	}
	defer locker.Release()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Expected locks dir to exist: %v", err)
	}
}

func TestPidFileLocker_ReleaseWithoutAcquire(t *testing.T) {
	locker := NewPidFileLocker(t.TempDir(), "pmlogd-test")
	if err := locker.Release(); err != nil {
		t.Errorf("Release without acquire should not error, got: %v", err)
	}
}
