// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"unicode/utf8"
)

// Registry holds the process-wide signature table. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	sigs []*Signature

	// minCarveLength is the smallest MinLength among carveable signatures.
	// Buffers shorter than this cannot contain a candidate and are not
	// worth scanning.
	minCarveLength int
}

// NewRegistry creates a registry from the given signatures. Order matters
// only for breaking ties between equally specific matches; longer magic
// matches always outrank shorter ones.
func NewRegistry(sigs ...*Signature) *Registry {
	r := &Registry{sigs: sigs, minCarveLength: 1}
	first := true
	for _, s := range sigs {
		if !s.carveable() {
			continue
		}
		if first || s.MinLength < r.minCarveLength {
			r.minCarveLength = s.MinLength
			first = false
		}
	}
	return r
}

// Signatures returns the registered signatures.
func (r *Registry) Signatures() []*Signature {
	return r.sigs
}

// Without returns a copy of the registry with all signatures of the given
// kinds removed.
func (r *Registry) Without(kinds ...Kind) *Registry {
	drop := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		drop[k] = true
	}
	var keep []*Signature
	for _, s := range r.sigs {
		if !drop[s.Kind] {
			keep = append(keep, s)
		}
	}
	return NewRegistry(keep...)
}

// match returns the most specific carveable signature matching at offset, or
// false if none matches. Positions with fewer than MinLength bytes remaining
// are rejected, so a returned candidate always has room for a structurally
// minimal file.
func (r *Registry) match(data []byte, offset int) (*Signature, bool) {
	var best *Signature
	bestLen := -1
	for _, s := range r.sigs {
		if !s.carveable() || len(data)-offset < s.MinLength {
			continue
		}
		if l := s.matchLen(data, offset); l > bestLen {
			best, bestLen = s, l
		}
	}
	return best, best != nil
}

// Identify classifies an already-bounded payload for naming, reporting and
// the recursion decision. The declared name, if any, is consulted when the
// content itself is inconclusive. Unlike match, Identify also applies the
// classification-only signatures (firmware images, the container itself).
func (r *Registry) Identify(data []byte, name string) Kind {
	if len(data) < 4 {
		return KindUnknown
	}

	// the vendor container announces itself with a tag near the start
	if isContainer(data) {
		return KindContainer
	}

	// longest magic match wins
	best := KindUnknown
	bestLen := 0
	for _, s := range r.sigs {
		if s.Kind == KindEntry {
			// a payload starting with an entry record is a container
			continue
		}
		if l := s.matchLen(data, 0); l > bestLen {
			best, bestLen = s.Kind, l
		}
	}
	if best != KindUnknown {
		return best
	}

	if name != "" {
		if k := kindForName(name); k != KindUnknown {
			return k
		}
	}

	// textual fallbacks
	if utf8.Valid(data) {
		trimmed := bytes.TrimLeft(data, " \t\r\n")
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			return KindJSON
		}
		return KindText
	}

	return KindUnknown
}

// DefaultRegistry returns the built-in signature table. Carveable kinds come
// first, classification-only kinds after them; the RC MCU magic is a
// superset of the gimbal magic and outranks it by length.
func DefaultRegistry() *Registry {
	return NewRegistry(
		&Signature{Kind: KindEntry, Magics: magicBytesEntry, MinLength: minLengthEntry, lengthOf: lengthOfEntry},
		&Signature{Kind: KindZip, Magics: magicBytesZip, MinLength: minLengthZip, lengthOf: lengthOfZip},
		&Signature{Kind: KindSevenZip, Magics: magicBytes7zip, MinLength: minLength7zip, lengthOf: lengthOf7zip},
		&Signature{Kind: KindTar, Magics: magicBytesTar, Offset: offsetTar, MinLength: minLengthTar, lengthOf: lengthOfTar},
		&Signature{Kind: KindRar, Magics: magicBytesRar, MinLength: minLengthRar, lengthOf: lengthOfRar},
		&Signature{Kind: KindGzip, Magics: magicBytesGzip, Check: isGzipMethod, MinLength: minLengthGzip, lengthOf: lengthOfGzip},
		&Signature{Kind: KindBzip2, Magics: magicBytesBzip2, MinLength: minLengthBzip2, lengthOf: lengthOfBzip2},
		&Signature{Kind: KindXz, Magics: magicBytesXz, MinLength: minLengthXz, lengthOf: lengthOfXz},
		&Signature{Kind: KindZstd, Magics: magicBytesZstd, MinLength: minLengthZstd, lengthOf: lengthOfZstd},
		&Signature{Kind: KindLz4, Magics: magicBytesLz4, MinLength: minLengthLz4, lengthOf: lengthOfLz4},
		&Signature{Kind: KindSnappy, Magics: magicBytesSnappy, MinLength: minLengthSnappy, lengthOf: lengthOfSnappy},
		&Signature{Kind: KindJSON, Magics: magicBytesJSON, MinLength: minLengthJSON, lengthOf: lengthOfJSON},

		&Signature{Kind: KindUpgRcMcu, Magics: magicBytesUpgRcMcu, MinLength: 5},
		&Signature{Kind: KindUpgGimbal, Magics: magicBytesUpgGimbal, MinLength: 4},
		&Signature{Kind: KindUpgFcs, Magics: magicBytesUpgFcs, MinLength: 4},
		&Signature{Kind: KindUpgBms, Magics: magicBytesUpgBms, MinLength: 4},
		&Signature{Kind: KindUpgEsc, Magics: magicBytesUpgEsc, Check: isUpgEscModel, MinLength: 5},
		&Signature{Kind: KindGpsBin, Magics: magicBytesGpsBin, MinLength: 8},
	)
}
