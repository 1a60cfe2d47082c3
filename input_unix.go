// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

//go:build unix

package autelfw

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mapInput memory-maps the file at path read-only and returns the mapping
// together with its release function. Filesystems that refuse mmap fall
// back to a plain read.
func mapInput(path string) ([]byte, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close() // the mapping outlives the descriptor

	st, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if !st.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("not a regular file: %s", path)
	}
	if st.Size() == 0 {
		// zero length cannot be mapped
		return []byte{}, func() {}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return data, func() {}, nil
	}
	return data, func() { _ = unix.Munmap(data) }, nil
}
