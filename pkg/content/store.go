// Package content resolves bodyFile references to response payloads.
// Files live under a single root directory; lookups never escape it.
package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound reports that a referenced content file does not exist.
var ErrNotFound = errors.New("content file not found")

// ErrInvalidPath reports a reference that is absolute or escapes the root.
var ErrInvalidPath = errors.New("invalid content file path")

// Store resolves a content file reference to its bytes.
type Store interface {
	Get(name string) ([]byte, error)
}

// FileStore serves content from a directory on disk.
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at dir. The directory does not have
// to exist yet; lookups will fail with ErrNotFound until it does.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("content directory must not be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve content directory: %w", err)
	}
	return &FileStore{root: abs}, nil
}

// Root returns the absolute content directory.
func (s *FileStore) Root() string {
	return s.root
}

// Get reads the named file from the content root.
func (s *FileStore) Get(name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read content file %s: %w", name, err)
	}
	return data, nil
}

// resolve joins the reference to the root and rejects anything that would
// land outside it.
func (s *FileStore) resolve(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}

	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return filepath.Join(s.root, cleaned), nil
}

var _ Store = (*FileStore)(nil)
