package prefcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a Cache persisted as a small JSON document, so selections survive
// service restarts on single-node deployments. Writes go through a temp file
// rename to avoid torn state on crash.
type File struct {
	mu       sync.Mutex
	path     string
	selected map[string]string
}

// NewFile loads (or initializes) a file-backed cache at path.
func NewFile(path string) (*File, error) {
	f := &File{
		path:     path,
		selected: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("prefcache: read %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &f.selected); err != nil {
		return nil, fmt.Errorf("prefcache: parse %s: %w", path, err)
	}

	return f, nil
}

func (f *File) Get(userID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	orgID, ok := f.selected[userID]
	return orgID, ok
}

func (f *File) Put(userID, orgID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.selected[userID] = orgID
	return f.flushLocked()
}

func (f *File) Clear(userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.selected, userID)
	return f.flushLocked()
}

func (f *File) flushLocked() error {
	raw, err := json.MarshalIndent(f.selected, "", "  ")
	if err != nil {
		return fmt.Errorf("prefcache: encode: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("prefcache: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("prefcache: rename %s: %w", filepath.Base(tmp), err)
	}
	return nil
}
