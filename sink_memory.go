// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"fmt"
	"sort"
	"sync"
)

// SinkMemory collects emitted files in memory. It backs the list-only mode
// of the command line tool and keeps tests off the filesystem. Safe for
// concurrent use.
type SinkMemory struct {
	files sync.Map // map[string]*MemoryFile
}

// MemoryFile is one file collected by a [SinkMemory].
type MemoryFile struct {
	Kind Kind
	Data []byte
}

// NewSinkMemory creates an empty in-memory sink.
func NewSinkMemory() *SinkMemory {
	return &SinkMemory{}
}

// Emit stores a copy of data under relativePath. Emitting the same path
// twice is an error; the engine's naming scheme never reuses a path.
func (s *SinkMemory) Emit(relativePath string, kind Kind, data []byte) error {
	if relativePath == "" {
		return fmt.Errorf("empty path")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	if _, loaded := s.files.LoadOrStore(relativePath, &MemoryFile{Kind: kind, Data: buf}); loaded {
		return fmt.Errorf("file already exists: %s", relativePath)
	}
	return nil
}

// File returns the collected file stored under relativePath.
func (s *SinkMemory) File(relativePath string) (*MemoryFile, bool) {
	v, ok := s.files.Load(relativePath)
	if !ok {
		return nil, false
	}
	return v.(*MemoryFile), true
}

// Paths returns all collected paths in sorted order.
func (s *SinkMemory) Paths() []string {
	var paths []string
	s.files.Range(func(key, _ any) bool {
		paths = append(paths, key.(string))
		return true
	})
	sort.Strings(paths)
	return paths
}

// Len returns the number of collected files.
func (s *SinkMemory) Len() int {
	n := 0
	s.files.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
