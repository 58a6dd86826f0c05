package vfs

import (
	"os"

	"github.com/user/clipforge/pkg/ports"
)

// Host implements ports.FileSystem on the real file system. It is used for
// CLI inputs and outputs, never as engine working storage.
type Host struct{}

// NewHost creates a Host file system.
func NewHost() *Host {
	return &Host{}
}

// ReadFile reads the entire contents of a file.
func (h *Host) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file, creating it if necessary.
func (h *Host) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}

// MkdirAll creates a directory and all parent directories.
func (h *Host) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists checks if a file or directory exists.
func (h *Host) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Remove deletes a file or empty directory.
func (h *Host) Remove(path string) error {
	return os.Remove(path)
}

var _ ports.FileSystem = (*Host)(nil)
