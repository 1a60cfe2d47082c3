// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/bodgit/sevenzip"
)

// magicBytes7zip contains the magic bytes for a 7zip archive.
// reference: https://py7zr.readthedocs.io/en/latest/archive_format.html
var magicBytes7zip = []Magic{
	{Bytes: []byte{0x37, 0x7a, 0xbc, 0xaf, 0x27, 0x1c}},
}

// minLength7zip is the size of the 7zip signature header.
const minLength7zip = 32

// is7zip checks if data is a 7zip archive.
func is7zip(data []byte) bool {
	return matchesMagic(data, 0, magicBytes7zip[0])
}

// lengthOf7zip resolves the extent of a 7zip archive starting at data[0].
// The 32-byte signature header carries the offset and size of the trailing
// metadata block, protected by a CRC over those fields, so the total length
// follows from the header alone.
func lengthOf7zip(data []byte) (Extent, error) {
	if !is7zip(data) {
		return Extent{}, fmt.Errorf("missing signature header")
	}
	if len(data) < minLength7zip {
		return Extent{}, fmt.Errorf("truncated signature header")
	}

	startHeaderCRC := binary.LittleEndian.Uint32(data[8:12])
	if crc32.ChecksumIEEE(data[12:32]) != startHeaderCRC {
		return Extent{}, fmt.Errorf("start header crc mismatch")
	}

	nextHeaderOffset := binary.LittleEndian.Uint64(data[12:20])
	nextHeaderSize := binary.LittleEndian.Uint64(data[20:28])
	end := uint64(minLength7zip) + nextHeaderOffset + nextHeaderSize
	if nextHeaderOffset > uint64(len(data)) || end > uint64(len(data)) {
		return Extent{}, fmt.Errorf("next header beyond input, have %d bytes, want %d", len(data), end)
	}

	return Extent{Length: int64(end), DataLen: int64(end)}, nil
}

// expand7zip unpacks the regular entries of a carved 7zip archive.
func expand7zip(data []byte, budget int64) ([]expandedFile, error) {
	sz, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("cannot create 7zip reader: %w", err)
	}

	var files []expandedFile
	var errs []error
	for _, f := range sz.File {
		if !f.FileInfo().Mode().IsRegular() {
			continue
		}
		name := sanitizeEntryPath(f.Name)
		if name == "" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			errs = append(errs, fmt.Errorf("cannot open %s: %w", f.Name, err))
			continue
		}
		var buf bytes.Buffer
		_, err = io.Copy(limitWriter(&buf, budget), rc)
		rc.Close()
		if err != nil {
			errs = append(errs, fmt.Errorf("cannot read %s: %w", f.Name, err))
			if errors.Is(err, io.ErrShortWrite) {
				files = append(files, expandedFile{name: name, data: buf.Bytes()})
				break
			}
			continue
		}
		budget -= int64(buf.Len())
		files = append(files, expandedFile{name: name, data: buf.Bytes()})
	}
	return files, errors.Join(errs...)
}
