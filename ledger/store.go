// Package ledger provides atomic persistence for the small JSON state
// documents the engine depends on (capital state, drawdown peak), plus an
// async write-ahead queue that keeps persistence off the evaluation path.
//
// Corruption on load is deliberately fatal to callers: silently resetting
// capital-accounting state would break the no-reinvestment rule.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrNotExist reports that no document exists at the store path.
	ErrNotExist = errors.New("ledger: document does not exist")

	// ErrCorrupt reports that a document exists but cannot be decoded.
	ErrCorrupt = errors.New("ledger: document corrupt")
)

// Store is a single-document JSON store bound to one path. One writer per
// process; concurrent processes on the same path are a deployment error,
// not something the store defends against beyond atomic rename.
type Store struct {
	path string
}

// NewStore binds a store to a path. The path is injected, not global, so
// multiple logical ledgers can coexist in one process and in tests.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Exists reports whether a document is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load decodes the document into v. A missing file is ErrNotExist; a file
// that cannot be decoded is ErrCorrupt. Callers that hold capital state
// must treat ErrCorrupt as fatal.
func (s *Store) Load(v any) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return fmt.Errorf("ledger: read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	return nil
}

// Save encodes v and persists it atomically: write to a temp file in the
// same directory, then rename over the target.
func (s *Store) Save(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: marshal %s: %w", s.path, err)
	}
	return WriteAtomic(s.path, data)
}

// WriteAtomic writes data to path via temp-file-and-rename, creating the
// containing directory if needed.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("ledger: mkdir %s: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("ledger: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("ledger: rename %s: %w", path, err)
	}
	return nil
}
