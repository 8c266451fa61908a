package ioutils

import (
	"errors"
	"io/fs"
	"os"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic replaces the file at path with data.
//
// The data is written to a temporary file in the same directory, synced and
// renamed over path. A reader, or a process restarted after a crash, sees
// either the previous complete file or the new complete file, never a
// partially written one.
//
// Example:
//
//	err := WriteFileAtomic("/home/me/.config/snarf/ledger.json.gz", data, 0600)
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
