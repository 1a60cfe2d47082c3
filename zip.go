// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// magicBytesZip contains the magic bytes for a zip local file header.
// reference: https://golang.org/pkg/archive/zip/
var magicBytesZip = []Magic{
	{Bytes: []byte{0x50, 0x4B, 0x03, 0x04}},
}

// eocdMarker is the end-of-central-directory record signature.
var eocdMarker = []byte{0x50, 0x4B, 0x05, 0x06}

// minLengthZip is the size of a bare end-of-central-directory record, the
// structural floor for any zip claim.
const minLengthZip = 22

// isZip checks if data is a zip archive.
func isZip(data []byte) bool {
	return matchesMagic(data, 0, magicBytesZip[0])
}

// lengthOfZip resolves the extent of a zip archive starting at data[0]. The
// archive's true end is the end-of-central-directory record plus its
// comment; the record is found by scanning forward for its signature and
// confirming that the resulting slice opens as a readable archive. A stored
// inner zip carries its own record, which appears first but fails the outer
// validation, so the scan moves on to the next marker.
func lengthOfZip(data []byte) (Extent, error) {
	if !isZip(data) {
		return Extent{}, fmt.Errorf("missing local file header")
	}

	sawMarker := false
	for pos := 4; pos+len(eocdMarker) <= len(data); {
		idx := bytes.Index(data[pos:], eocdMarker)
		if idx < 0 {
			break
		}
		pos += idx
		if pos+minLengthZip > len(data) {
			break
		}
		sawMarker = true

		commentLen := int(binary.LittleEndian.Uint16(data[pos+20 : pos+22]))
		end := pos + minLengthZip + commentLen
		if end > len(data) {
			// comment cut off by the parent boundary, claim what is there
			end = len(data)
		}

		// the record's directory size and offset must tile back exactly to
		// the claim start; archive/zip tolerates prepended data, which
		// would let a stored inner zip's record claim a short extent
		dirSize := binary.LittleEndian.Uint32(data[pos+12 : pos+16])
		dirOffset := binary.LittleEndian.Uint32(data[pos+16 : pos+20])
		zip64 := dirSize == 0xffffffff || dirOffset == 0xffffffff
		if !zip64 && int(dirOffset)+int(dirSize) != pos {
			pos += len(eocdMarker)
			continue
		}

		if _, err := zip.NewReader(bytes.NewReader(data[:end]), int64(end)); err == nil {
			return Extent{Length: int64(end), DataLen: int64(end)}, nil
		}
		pos += len(eocdMarker)
	}

	if sawMarker {
		return Extent{}, fmt.Errorf("no end of central directory marker yields a readable archive")
	}
	return Extent{}, fmt.Errorf("no end of central directory marker")
}

// expandZip unpacks the regular entries of a carved zip archive. Directory
// entries vanish into the entry paths; symlinks and other specials are
// skipped. Reading stops when the size budget is exhausted.
func expandZip(data []byte, budget int64) ([]expandedFile, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("cannot create zip reader: %w", err)
	}

	var files []expandedFile
	var errs []error
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") || !f.Mode().IsRegular() {
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
				// keep what fit before the budget ran out
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
