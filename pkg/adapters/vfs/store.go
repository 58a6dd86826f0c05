// Package vfs provides the sandboxed named-buffer storage used by transcode jobs.
package vfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrInvalidName is returned for names that would escape the store.
	ErrInvalidName = errors.New("vfs: invalid file name")

	// ErrNotExist is returned when a name is not in the store.
	ErrNotExist = errors.New("vfs: file does not exist")

	// ErrClosed is returned for operations on a closed store.
	ErrClosed = errors.New("vfs: store closed")
)

// Store is a flat namespace of byte buffers backed by a private directory.
// Each transcode job owns exactly one Store; the engine runs with the
// store directory as its working directory so arguments use bare names.
type Store struct {
	mu     sync.Mutex
	id     string
	dir    string
	closed bool
}

// New creates a store in a fresh directory below root.
// An empty root uses the system temp directory.
func New(root string) (*Store, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}

	id := uuid.NewString()
	dir := filepath.Join(root, "clipforge-"+id)
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	return &Store{id: id, dir: dir}, nil
}

// ID returns the unique store identifier.
func (s *Store) ID() string {
	return s.id
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// WriteFile stores data under name, replacing any previous content.
func (s *Store) WriteFile(name string, data []byte) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ReadFile returns the content stored under name.
func (s *Store) ReadFile(name string) ([]byte, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	return data, err
}

// DeleteFile removes name from the store.
func (s *Store) DeleteFile(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	return err
}

// Exists reports whether name is in the store.
func (s *Store) Exists(name string) (bool, error) {
	path, err := s.resolve(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// List returns the names currently stored, sorted.
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close removes the store directory and everything left in it.
// Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return os.RemoveAll(s.dir)
}

func (s *Store) resolve(name string) (string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", ErrClosed
	}

	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}
