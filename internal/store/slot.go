// internal/store/slot.go
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Slot is a single shared storage location holding one serialized blob.
// The store round-trips the entire path collection through it on every
// write; partial or incremental writes are not part of the contract.
type Slot interface {
	// Read returns the current blob, or nil when the slot has never
	// been written.
	Read() ([]byte, error)
	// Write replaces the blob.
	Write(data []byte) error
	// Name identifies the slot for logging.
	Name() string
}

// FileSlot persists the blob as a single JSON file. Writes go through a
// temp file and rename so a crash mid-write cannot corrupt the slot.
type FileSlot struct {
	path string
}

// NewFileSlot creates a file-backed slot at the given path, creating
// parent directories as needed.
func NewFileSlot(path string) (*FileSlot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating slot directory: %w", err)
	}
	return &FileSlot{path: path}, nil
}

// Read returns the file contents, or nil when the file does not exist.
func (s *FileSlot) Read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading slot file: %w", err)
	}
	return data, nil
}

// Write replaces the file contents atomically.
func (s *FileSlot) Write(data []byte) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing slot temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing slot file: %w", err)
	}
	return nil
}

// Name returns the file path.
func (s *FileSlot) Name() string {
	return s.path
}
