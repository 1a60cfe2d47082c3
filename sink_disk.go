// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// permissions for created directories and files (respecting umask);
	// carved segments carry no mode information of their own
	diskDirMode  fs.FileMode = 0750
	diskFileMode fs.FileMode = 0640
)

// SinkDisk persists emitted files below a destination directory.
type SinkDisk struct {
	dst       string
	overwrite bool
}

// NewSinkDisk creates a disk sink rooted at dst. If create is false the
// destination must already exist.
func NewSinkDisk(dst string, create, overwrite bool) (*SinkDisk, error) {
	if _, err := os.Stat(dst); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cannot access destination: %w", err)
		}
		if !create {
			return nil, fmt.Errorf("destination does not exist: %s", dst)
		}
		if err := os.MkdirAll(dst, diskDirMode.Perm()); err != nil {
			return nil, fmt.Errorf("failed to create destination: %w", err)
		}
	}
	return &SinkDisk{dst: dst, overwrite: overwrite}, nil
}

// Emit writes data to the destination under relativePath, creating parent
// directories as needed. Paths that would leave the destination are
// rejected.
func (s *SinkDisk) Emit(relativePath string, kind Kind, data []byte) error {
	if relativePath == "" || !filepath.IsLocal(filepath.FromSlash(relativePath)) {
		return fmt.Errorf("refusing path outside destination: %q", relativePath)
	}

	target := filepath.Join(s.dst, filepath.FromSlash(relativePath))

	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, diskDirMode.Perm()); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// check for existence and overwrite, like any careful extractor
	if _, err := os.Lstat(target); !os.IsNotExist(err) {
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
		if !s.overwrite {
			return fmt.Errorf("file already exists: %s", relativePath)
		}
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, diskFileMode.Perm())
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
