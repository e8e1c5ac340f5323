// Package store provides atomic JSON-file persistence for the per-tool
// collections. Every mutation rewrites the whole file from a freshly
// loaded snapshot via a temp-file-then-rename, so readers observe either
// the pre- or post-state, never a partial write.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrCorrupt is returned when a store file exists but does not parse as
// the expected top-level document shape.
var ErrCorrupt = errors.New("store file corrupt")

// locks holds one advisory mutex per store file path. Writers to the same
// file serialize; distinct files proceed independently.
var locks sync.Map

func lockFor(path string) *sync.Mutex {
	mu, _ := locks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Lock acquires the advisory mutex for path and returns its unlock func.
func Lock(path string) func() {
	mu := lockFor(path)
	mu.Lock()
	return mu.Unlock
}

// ReadFile reads the JSON document at path into v. A missing or empty
// file leaves v untouched and returns false. Malformed JSON returns
// ErrCorrupt wrapped with the parse cause.
func ReadFile(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return true, nil
}

// WriteFile atomically replaces the document at path: serialize to a
// sibling temp file, then rename over the target. The parent directory
// is created if needed.
func WriteFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return WriteBytes(path, append(data, '\n'))
}

// WriteBytes is the raw variant of WriteFile used by the purge engine for
// JSONL streams.
func WriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Timestamp returns the canonical store timestamp for now.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
