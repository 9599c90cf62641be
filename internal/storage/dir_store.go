// ABOUTME: Flat-directory document store with atomic whole-file writes.
// ABOUTME: Writes go through renameio (temp file + rename); deletes and lazy directory creation are idempotent.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio"

	"github.com/2389-research/freewrite/internal/codec"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// DirStore stores every document and sidecar as a file directly under dir.
type DirStore struct {
	dir string
}

// NewDirStore creates a store rooted at dir. The directory is created on first access.
func NewDirStore(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid store directory: %w", err)
	}
	return &DirStore{dir: abs}, nil
}

// Dir returns the absolute store directory.
func (s *DirStore) Dir() string {
	return s.dir
}

// WriteBody atomically replaces a body document.
func (s *DirStore) WriteBody(name, text string) error {
	return s.write("write body", name, []byte(text))
}

// ReadBody reads a body document.
func (s *DirStore) ReadBody(name string) (string, error) {
	data, err := s.read("read body", name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DeleteBody removes a body document if present.
func (s *DirStore) DeleteBody(name string) error {
	return s.remove("delete body", name)
}

// WriteSidecar atomically replaces a sidecar file.
func (s *DirStore) WriteSidecar(name string, data []byte) error {
	return s.write("write sidecar", name, data)
}

// ReadSidecar reads a sidecar file.
func (s *DirStore) ReadSidecar(name string) ([]byte, error) {
	return s.read("read sidecar", name)
}

// DeleteSidecar removes a sidecar file if present.
func (s *DirStore) DeleteSidecar(name string) error {
	return s.remove("delete sidecar", name)
}

// ListBodyFilenames lists body documents, skipping directories and hidden files.
func (s *DirStore) ListBodyFilenames() ([]string, error) {
	return s.list(codec.IsPrimary)
}

// ListAttachmentFilenames lists attachment files.
func (s *DirStore) ListAttachmentFilenames() ([]string, error) {
	return s.list(func(name string) bool {
		_, ok := codec.AttachmentID(name)
		return ok
	})
}

func (s *DirStore) list(keep func(string) bool) ([]string, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &IOError{Op: "list", Name: s.dir, Err: err}
	}

	var names []string
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !keep(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *DirStore) write(op, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, filePerm); err != nil {
		return &IOError{Op: op, Name: name, Err: err}
	}
	return nil
}

func (s *DirStore) read(op, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s %s: %w", op, name, ErrNotFound)
		}
		return nil, &IOError{Op: op, Name: name, Err: err}
	}
	return data, nil
}

func (s *DirStore) remove(op, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &IOError{Op: op, Name: name, Err: err}
	}
	return nil
}

// path resolves name inside the store, rejecting anything that is not a bare filename.
func (s *DirStore) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

func (s *DirStore) ensureDir() error {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return &IOError{Op: "create directory", Name: s.dir, Err: err}
	}
	return nil
}
