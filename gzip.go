// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// magicBytesGzip are the magic bytes for gzip compressed files.
//
// https://socketloop.com/tutorials/golang-gunzip-file
var magicBytesGzip = []Magic{
	{Bytes: []byte{0x1f, 0x8b}},
}

// minLengthGzip stays below the 20 bytes of an empty member, header plus
// empty deflate stream plus trailer.
const minLengthGzip = 18

// isGzip checks if the header matches the magic bytes for gzip compressed
// files.
func isGzip(data []byte) bool {
	return matchesMagic(data, 0, magicBytesGzip[0])
}

// isGzipMethod rejects candidates whose header does not declare deflate
// compression or sets reserved flag bits. The two magic bytes alone appear
// in random data far too often.
func isGzipMethod(header []byte) bool {
	return len(header) >= 4 && header[2] == 0x08 && header[3]&0xe0 == 0
}

// lengthOfGzip resolves the extent of a gzip member starting at data[0] by
// decompressing it from a byte reader and measuring consumption. The flate
// decoder reads byte by byte from an io.ByteReader, so it never overshoots
// the member's trailer and the measurement is exact.
func lengthOfGzip(data []byte) (Extent, error) {
	br := bytes.NewReader(data)
	zr, err := gzip.NewReader(br)
	if err != nil {
		return Extent{}, fmt.Errorf("cannot create gzip reader: %w", err)
	}
	zr.Multistream(false)
	if _, err := io.Copy(io.Discard, zr); err != nil {
		return Extent{}, fmt.Errorf("cannot decompress member: %w", err)
	}
	if err := zr.Close(); err != nil {
		return Extent{}, fmt.Errorf("cannot close gzip reader: %w", err)
	}

	consumed := int64(len(data)) - int64(br.Len())
	return Extent{Length: consumed, DataLen: consumed}, nil
}

// expandGzip decompresses a carved gzip member. The member's optional FNAME
// field names the child when present.
func expandGzip(data []byte, budget int64) ([]expandedFile, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot create gzip reader: %w", err)
	}
	name := sanitizeName(zr.Header.Name)

	var buf bytes.Buffer
	if _, err := io.Copy(limitWriter(&buf, budget), zr); err != nil {
		if buf.Len() > 0 {
			return []expandedFile{{name: name, data: buf.Bytes()}}, fmt.Errorf("cannot decompress member: %w", err)
		}
		return nil, fmt.Errorf("cannot decompress member: %w", err)
	}
	return []expandedFile{{name: name, data: buf.Bytes()}}, nil
}
