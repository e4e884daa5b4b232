// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FailedList is the plain-text file of DOIs that failed or were cancelled,
// one per line. Appends are serialized by the list's own mutex and each one
// opens, writes and closes the file, so the list survives a crash mid-run.
type FailedList struct {
	mu   sync.Mutex
	path string
}

// NewFailedList returns the list stored at dir/name.
func NewFailedList(dir, name string) *FailedList {
	return &FailedList{path: filepath.Join(dir, name)}
}

// Path returns the file location.
func (f *FailedList) Path() string { return f.path }

// Append adds doi to the end of the list.
func (f *FailedList) Append(doi string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating directory for failed list: %w", err)
	}
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening failed list: %w", err)
	}
	if _, err := fmt.Fprintln(fh, doi); err != nil {
		fh.Close()
		return fmt.Errorf("appending to failed list: %w", err)
	}
	return fh.Close()
}

// Truncate empties the list at the start of a fresh run.
func (f *FailedList) Truncate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating directory for failed list: %w", err)
	}
	if err := os.WriteFile(f.path, nil, 0o644); err != nil {
		return fmt.Errorf("truncating failed list: %w", err)
	}
	return nil
}

// Read returns the DOIs currently on the list. A missing file is an empty
// list.
func (f *FailedList) Read() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening failed list: %w", err)
	}
	defer fh.Close()
	return ReadIdentifiers(fh)
}
