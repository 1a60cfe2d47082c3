// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package autelfw

import "os"

// mapInput reads the file at path. Platforms without mmap support load the
// input into memory instead.
func mapInput(path string) ([]byte, func(), error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() {}, nil
}
