// Package fsext provides a filesystem abstraction for automeet, so that
// everything touching disk can run against an in-memory filesystem in tests.
package fsext

import (
	"io/fs"

	"github.com/spf13/afero"
)

// Fs represents a file system.
type Fs = afero.Fs

// NewMemMapFs returns a Fs that lives in memory.
func NewMemMapFs() Fs {
	return afero.NewMemMapFs()
}

// NewOsFs returns a Fs backed by the host OS.
func NewOsFs() Fs {
	return afero.NewOsFs()
}

// WriteFile writes the provided data to the provided fs in the provided filename.
func WriteFile(fs Fs, filename string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(fs, filename, data, perm)
}

// ReadFile reads the whole file from the filesystem.
func ReadFile(fs Fs, filename string) ([]byte, error) {
	return afero.ReadFile(fs, filename)
}

// Exists checks if the provided path exists on the filesystem.
func Exists(fs Fs, path string) (bool, error) {
	return afero.Exists(fs, path)
}
