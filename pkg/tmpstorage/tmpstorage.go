// Package tmpstorage holds uploaded bytes between the preview and
// confirm phases of an import. Handles are opaque names generated on
// save and round-tripped through the preview token.
package tmpstorage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sheetport/sheetport/pkg/errors"
)

// Storage stores opaque blobs by generated handle.
type Storage interface {
	// Save stores data and returns its handle.
	Save(data []byte) (string, error)

	// Read returns the blob for a handle.
	Read(name string) ([]byte, error)

	// Remove deletes the blob for a handle.
	Remove(name string) error
}

// Folder is a Storage backed by uuid-named files in one directory.
type Folder struct {
	dir string
}

// NewFolder creates a folder store rooted at dir; an empty dir uses the
// system temp directory.
func NewFolder(dir string) (*Folder, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.WrapIO("create", dir, err)
	}
	return &Folder{dir: dir}, nil
}

// Dir returns the storage directory.
func (f *Folder) Dir() string { return f.dir }

// Save writes data to a fresh uuid-named file.
func (f *Folder) Save(data []byte) (string, error) {
	name := uuid.NewString()
	if err := os.WriteFile(filepath.Join(f.dir, name), data, 0o600); err != nil {
		return "", errors.WrapIO("write", name, err)
	}
	return name, nil
}

// Read returns the blob for a handle. Handles are validated against
// path traversal before touching the filesystem.
func (f *Folder) Read(name string) ([]byte, error) {
	path, err := f.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: blob %q", errors.ErrNotFound, name)
		}
		return nil, errors.WrapIO("read", name, err)
	}
	return data, nil
}

// Remove deletes the blob for a handle.
func (f *Folder) Remove(name string) error {
	path, err := f.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: blob %q", errors.ErrNotFound, name)
		}
		return errors.WrapIO("delete", name, err)
	}
	return nil
}

func (f *Folder) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", errors.NewValidationError("name", name, "invalid blob handle")
	}
	return filepath.Join(f.dir, name), nil
}

// Memory is an in-memory Storage for tests and single-process use.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Save stores a copy of data under a fresh uuid handle.
func (m *Memory) Save(data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := uuid.NewString()
	m.blobs[name] = append([]byte(nil), data...)
	return name, nil
}

// Read returns a copy of the blob for a handle.
func (m *Memory) Read(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: blob %q", errors.ErrNotFound, name)
	}
	return append([]byte(nil), data...), nil
}

// Remove deletes the blob for a handle.
func (m *Memory) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[name]; !ok {
		return fmt.Errorf("%w: blob %q", errors.ErrNotFound, name)
	}
	delete(m.blobs, name)
	return nil
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
