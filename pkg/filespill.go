// Package pkg provides the on-disk append log orisa keeps finished runs in.
package pkg

import (
	"encoding/gob"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// DefaultDir is used when NewFileSpill is given an empty directory.
const DefaultDir = "orisa-history"

// FileSpill is an append-only, index addressable log of items of type T kept
// on disk so long sessions do not hold every run in memory.
type FileSpill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	Get(index uint64) (T, error)
	// Reset drops every item and returns how many were dropped.
	Reset() (uint64, error)
	Close() error
}

type fileSpillImpl[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
	closed  bool
}

// Append implements FileSpill.
func (f *fileSpillImpl[T]) Append(item T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("filespill %s is closed", f.path)
	}

	if err := f.encoder.Encode(item); err != nil {
		slog.Error("Failed to encode item", "path", f.path, "index", f.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	f.length++
	slog.Debug("Appended item", "path", f.path, "index", f.length-1)

	return nil
}

// Path implements FileSpill.
func (f *fileSpillImpl[T]) Path() string {
	return f.path
}

// Close implements FileSpill. The backing file is removed.
func (f *fileSpillImpl[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	f.closed = true

	if err := f.file.Close(); err != nil {
		slog.Error("Failed to close file", "path", f.path, "error", err)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove filespill", "path", f.path, "error", err)
	}

	slog.Debug("Closed filespill", "path", f.path, "length", f.length)

	return nil
}

// Get implements FileSpill.
func (f *fileSpillImpl[T]) Get(index uint64) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var found T

	if index >= f.length {
		slog.Warn("Get index out of bounds", "path", f.path, "index", index, "length", f.length)
		return found, fmt.Errorf("index %d out of bounds (length %d)", index, f.length)
	}

	err := f.scan(index+1, func(i uint64, item T) {
		if i == index {
			found = item
		}
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return found, nil
}

// Len implements FileSpill.
func (f *fileSpillImpl[T]) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.length
}

// Reset implements FileSpill.
func (f *fileSpillImpl[T]) Reset() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, fmt.Errorf("filespill %s is closed", f.path)
	}

	if err := f.file.Truncate(0); err != nil {
		slog.Error("Failed to truncate file", "path", f.path, "error", err)
		return 0, fmt.Errorf("failed to truncate file: %w", err)
	}

	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to rewind file: %w", err)
	}

	dropped := f.length
	f.length = 0
	f.encoder = gob.NewEncoder(f.file)

	slog.Debug("Reset filespill", "path", f.path, "dropped", dropped)

	return dropped, nil
}

// scan decodes the first n items in order. Callers hold f.mu.
func (f *fileSpillImpl[T]) scan(n uint64, fn func(index uint64, item T)) error {
	file, err := os.Open(f.path)
	if err != nil {
		slog.Error("Failed to open file for reading", "path", f.path, "error", err)
		return fmt.Errorf("failed to open file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("Failed to close file", "path", f.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	for i := range n {
		// gob leaves fields absent from the stream untouched, so every item
		// is decoded into a fresh value.
		var item T
		if err := decoder.Decode(&item); err != nil {
			slog.Error("Failed to decode item", "path", f.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		fn(i, item)
	}

	return nil
}

// NewFileSpill creates a FileSpill for items of type T backed by a new file in
// dir. An empty dir selects DefaultDir under the system temp directory.
func NewFileSpill[T any](dir string) (FileSpill[T], error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), DefaultDir)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Error("Failed to create spill directory", "path", dir, "error", err)
		return nil, fmt.Errorf("failed to create spill directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "runs-*.gob")
	if err != nil {
		slog.Error("Failed to create spill file", "path", dir, "error", err)
		return nil, fmt.Errorf("failed to create spill file: %w", err)
	}

	slog.Debug("Created filespill", "path", file.Name())

	return &fileSpillImpl[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}
