package router

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pmlogd/pkg/config"
)

func newTestWriter(t *testing.T, maxSize int64, rotations int) *outputWriter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	return newOutputWriter(&config.OutputConf{
		Name:      "test",
		Path:      path,
		MaxSize:   maxSize,
		Rotations: rotations,
	})
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(content)
}

func TestWriterAppendsNewline(t *testing.T) {
	w := newTestWriter(t, 1024*1024, 1)
	defer w.close()

	w.writeLine("hello")
	w.writeLine("world")

	content := readFile(t, w.path)
	if content != "hello\nworld\n" {
		t.Errorf("Unexpected file content: %q", content)
	}
}

func TestWriterSizeFromExistingFile(t *testing.T) {
	w := newTestWriter(t, 1024*1024, 1)
	defer w.close()

	if err := os.WriteFile(w.path, []byte("previous\n"), 0640); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	w.writeLine("next")

	if w.size != int64(len("previous\nnext\n")) {
		t.Errorf("Expected size %d, got %d", len("previous\nnext\n"), w.size)
	}
}

func TestWriterDirectoryCreation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.log")
	w := newOutputWriter(&config.OutputConf{Name: "test", Path: path, MaxSize: 1024, Rotations: 1})
	defer w.close()

	w.writeLine("test data")

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected live file to be created: %v", err)
	}
}

func TestWriterRotation(t *testing.T) {
	w := newTestWriter(t, 32, 2)
	defer w.close()

	first := strings.Repeat("a", 40)
	w.writeLine(first)

	// The write crossed the limit, so the line was archived and the
	// live file reopened empty.
	if got := readFile(t, w.archivePath(1)); got != first+"\n" {
		t.Errorf("Archive 1 content mismatch: %q", got)
	}
	if got := readFile(t, w.path); got != "" {
		t.Errorf("Expected empty live file, got %q", got)
	}
	if w.size != 0 {
		t.Errorf("Expected size reset to 0, got %d", w.size)
	}
}

func TestWriterRotationShiftsArchives(t *testing.T) {
	w := newTestWriter(t, 8, 2)
	defer w.close()

	w.writeLine("line-one")   // rotates: P.1 = one
	w.writeLine("line-two")   // rotates: P.2 = one, P.1 = two
	w.writeLine("line-three") // rotates: one dropped, P.2 = two, P.1 = three

	if got := readFile(t, w.archivePath(2)); got != "line-two\n" {
		t.Errorf("Archive 2 content mismatch: %q", got)
	}
	if got := readFile(t, w.archivePath(1)); got != "line-three\n" {
		t.Errorf("Archive 1 content mismatch: %q", got)
	}
	if _, err := os.Stat(w.archivePath(3)); !os.IsNotExist(err) {
		t.Error("Expected no archive beyond the rotation count")
	}
}

func TestWriterLiveFileStaysUnderLimit(t *testing.T) {
	w := newTestWriter(t, 64, 1)
	defer w.close()

	for i := 0; i < 20; i++ {
		w.writeLine("0123456789")
	}

	stat, err := os.Stat(w.path)
	if err != nil {
		t.Fatalf("Failed to stat live file: %v", err)
	}
	if stat.Size() >= 64 {
		t.Errorf("Live file size %d should stay below the limit", stat.Size())
	}
}

func TestWriterClose(t *testing.T) {
	w := newTestWriter(t, 1024, 1)

	if err := w.close(); err != nil {
		t.Errorf("Close without open should not error, got: %v", err)
	}

	w.writeLine("test")
	if err := w.close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	// Writing after close reopens the file.
	w.writeLine("more")
	if got := readFile(t, w.path); got != "test\nmore\n" {
		t.Errorf("Unexpected content after reopen: %q", got)
	}
}
