// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"fmt"
)

// Magic is a byte pattern that identifies a format. Mask is optional; if set
// it must have the same length as Bytes, and zero mask bytes mark wildcard
// positions that match any input byte.
type Magic struct {
	Bytes []byte
	Mask  []byte
}

// Extent is the resolved boundary of an embedded file. Length is the full
// claimed span starting at the candidate offset; DataOff/DataLen delimit the
// payload that is emitted as the extracted file. For most formats the payload
// is the whole claim. Name carries a declared filename when the format has
// one (vendor container entries). Truncated is set when a declared length
// overran the available data and the payload was clamped to what was there.
type Extent struct {
	Length    int64
	DataOff   int64
	DataLen   int64
	Name      string
	Truncated bool
}

// lengthFunc is the nested-format length reader seam: given a sub-buffer
// whose first byte is the presumed file start, it returns the exact validated
// extent of the structure, or an error if the structure is malformed or
// truncated. The sub-buffer may extend arbitrarily far past the real end;
// the reader must locate the end by its own format rules and never read past
// the slice it is given.
type lengthFunc func(data []byte) (Extent, error)

// Signature maps a byte pattern to a kind and a length-determination
// strategy. Signatures with a nil length reader are classification-only:
// they identify already-bounded payloads but never start a carve.
type Signature struct {
	// Kind of the file this signature identifies.
	Kind Kind

	// Magics are the alternative patterns for this signature.
	Magics []Magic

	// Offset of the magic bytes relative to the candidate start. Tar keeps
	// its magic at offset 257.
	Offset int

	// Check optionally narrows a magic match; it receives the bytes from
	// the candidate start and returns false to reject the candidate.
	Check func(header []byte) bool

	// MinLength is the smallest size a structurally valid file of this kind
	// can have. The scanner skips this many bytes after emitting a
	// candidate, and rejects positions with fewer bytes remaining.
	MinLength int

	// lengthOf resolves the exact extent. Nil for classification-only
	// signatures.
	lengthOf lengthFunc
}

// carveable reports whether the signature can start an extraction.
func (s *Signature) carveable() bool {
	return s.lengthOf != nil
}

// matchLen returns the length of the longest magic that matches data at the
// signature's offset, or -1 if none matches. Longer matches outrank shorter
// ones when several signatures fire at the same position.
func (s *Signature) matchLen(data []byte, offset int) int {
	best := -1
	for _, m := range s.Magics {
		if !matchesMagic(data, offset+s.Offset, m) {
			continue
		}
		if l := s.Offset + len(m.Bytes); l > best {
			best = l
		}
	}
	if best < 0 {
		return -1
	}
	if s.Check != nil && !s.Check(data[offset:]) {
		return -1
	}
	return best
}

// matchesMagic checks if data contains the magic bytes at the given offset,
// honoring wildcard positions in the mask.
func matchesMagic(data []byte, offset int, m Magic) bool {
	if offset < 0 || offset+len(m.Bytes) > len(data) {
		return false
	}
	for i, b := range m.Bytes {
		if m.Mask != nil && m.Mask[i] == 0 {
			continue
		}
		if data[offset+i] != b {
			return false
		}
	}
	return true
}

// BoundaryError reports a candidate whose extent could not be determined.
// The candidate is dropped and scanning resumes after its offset; a boundary
// failure never aborts the surrounding run.
type BoundaryError struct {
	// Offset is the absolute position of the candidate in the input.
	Offset int64

	// Kind of the signature that matched at the offset.
	Kind Kind

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *BoundaryError) Error() string {
	return fmt.Sprintf("unresolvable %s candidate at offset %#x: %v", e.Kind, e.Offset, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BoundaryError) Unwrap() error {
	return e.Err
}
