// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
)

// magicBytesBzip2 are the magic bytes for bzip2 compressed files
// reference: https://en.wikipedia.org/wiki/Bzip2 // https://github.com/dsnet/compress/blob/master/doc/bzip2-format.pdf
var magicBytesBzip2 = []Magic{
	{Bytes: []byte("BZh1")},
	{Bytes: []byte("BZh2")},
	{Bytes: []byte("BZh3")},
	{Bytes: []byte("BZh4")},
	{Bytes: []byte("BZh5")},
	{Bytes: []byte("BZh6")},
	{Bytes: []byte("BZh7")},
	{Bytes: []byte("BZh8")},
	{Bytes: []byte("BZh9")},
}

// minLengthBzip2 is the size of an empty stream, a 4 byte header, the
// 48 bit footer magic and a 32 bit combined CRC.
const minLengthBzip2 = 14

// bzip2FooterMagic is the 48 bit end-of-stream marker, the BCD digits of
// sqrt pi.
const bzip2FooterMagic = 0x177245385090

// isBzip2 checks if the header matches the magic bytes for bzip2 compressed
// files
func isBzip2(data []byte) bool {
	for _, m := range magicBytesBzip2 {
		if matchesMagic(data, 0, m) {
			return true
		}
	}
	return false
}

// lengthOfBzip2 resolves the extent of a bzip2 stream starting at data[0].
// The stream footer is not byte aligned, so the buffer is scanned bit by bit
// for the footer magic; each hit implies a stream end after the 32 bit CRC
// and padding, which is confirmed by decompressing the slice up to that end.
// The magic can occur inside compressed payload, so confirmation failures
// just continue the scan.
func lengthOfBzip2(data []byte) (Extent, error) {
	if !isBzip2(data) {
		return Extent{}, fmt.Errorf("missing stream header")
	}

	var window uint64
	bits := 0
	attempts := 0
	for _, b := range data {
		for j := 7; j >= 0; j-- {
			window = (window<<1 | uint64(b>>uint(j)&1)) & 0xffffffffffff
			bits++
			if bits < 32+48 || window != bzip2FooterMagic {
				continue
			}
			end := (bits + 32 + 7) / 8
			if end > len(data) {
				return Extent{}, fmt.Errorf("stream footer cut off")
			}
			if bzip2StreamValid(data[:end]) {
				return Extent{Length: int64(end), DataLen: int64(end)}, nil
			}
			if attempts++; attempts >= 128 {
				return Extent{}, fmt.Errorf("no footer candidate yields a valid stream")
			}
		}
	}
	return Extent{}, fmt.Errorf("missing stream footer")
}

// bzip2StreamValid reports whether data is exactly one well-formed bzip2
// stream. The slice must end at the stream footer, trailing bytes fail the
// decoder's concatenation probe.
func bzip2StreamValid(data []byte) bool {
	_, err := io.Copy(io.Discard, bzip2.NewReader(bytes.NewReader(data)))
	return err == nil
}

// decompressBz2Stream returns an io.Reader that decompresses src with the
// bzip2 algorithm.
func decompressBz2Stream(src io.Reader) (io.Reader, error) {
	return bzip2.NewReader(src), nil
}
