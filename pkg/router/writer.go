package router

import (
	"fmt"
	"os"
	"path/filepath"

	"pmlogd/pkg/config"
)

// outputWriter appends formatted lines to one log file and shifts the
// numbered archives (P.1 most recent .. P.N oldest) when the size
// limit is reached.
type outputWriter struct {
	name      string
	path      string
	maxSize   int64
	rotations int

	file *os.File
	size int64
}

func newOutputWriter(conf *config.OutputConf) *outputWriter {
	return &outputWriter{
		name:      conf.Name,
		path:      conf.Path,
		maxSize:   conf.MaxSize,
		rotations: conf.Rotations,
	}
}

// writeLine appends the line plus a newline. Write errors are logged
// and the line is discarded; the writer stays usable.
func (w *outputWriter) writeLine(line string) {
	if w.file == nil {
		if err := w.open(); err != nil {
			router_logger.Error("Failed to open output", "output", w.name, "error", err)
			return
		}
	}

	n, err := w.file.WriteString(line + "\n")
	w.size += int64(n)
	if err != nil {
		router_logger.Error("Write failed", "output", w.name, "error", err)
		return
	}

	if w.size >= w.maxSize {
		w.rotate()
	}
}

// open opens the live file in append mode and initializes the running
// size from its current length.
func (w *outputWriter) open() error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log dir %s: %w", dir, err)
	}
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return err
	}
	w.file = file
	stat, err := file.Stat()
	if err != nil {
		w.size = 0
		return nil
	}
	w.size = stat.Size()
	return nil
}

// rotate shifts P -> P.1 -> .. -> P.N, dropping the deepest archive,
// and reopens the live file empty. Rename and unlink errors are logged
// and non-fatal.
func (w *outputWriter) rotate() {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			router_logger.Warn("Error closing output for rotation", "output", w.name, "error", err)
		}
		w.file = nil
	}

	oldest := w.archivePath(w.rotations)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		router_logger.Warn("Failed to remove oldest archive", "path", oldest, "error", err)
	}

	for i := w.rotations; i >= 2; i-- {
		from := w.archivePath(i - 1)
		to := w.archivePath(i)
		if err := os.Rename(from, to); err != nil && !os.IsNotExist(err) {
			router_logger.Warn("Failed to shift archive", "from", from, "to", to, "error", err)
		}
	}

	if err := os.Rename(w.path, w.archivePath(1)); err != nil {
		router_logger.Warn("Failed to archive live file", "path", w.path, "error", err)
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		// Degraded mode: the next writeLine retries the open.
		router_logger.Error("Failed to reopen output after rotation", "output", w.name, "error", err)
		w.size = 0
		return
	}
	w.file = file
	w.size = 0
}

func (w *outputWriter) archivePath(generation int) string {
	return fmt.Sprintf("%s.%d", w.path, generation)
}

func (w *outputWriter) close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
