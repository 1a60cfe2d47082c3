// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// magicBytesZstd is the magic bytes for zstandard files.
// reference: https://www.rfc-editor.org/rfc/rfc8878.html
var magicBytesZstd = []Magic{
	{Bytes: []byte{0x28, 0xb5, 0x2f, 0xfd}},
}

// minLengthZstd is the smallest complete frame, magic, a one byte header
// descriptor, a window descriptor and an empty raw block.
const minLengthZstd = 9

// isZstd checks if the header matches the zstandard magic bytes.
func isZstd(data []byte) bool {
	return matchesMagic(data, 0, magicBytesZstd[0])
}

// lengthOfZstd resolves the extent of a zstandard frame starting at
// data[0]. Frame and block headers carry explicit sizes, so the end follows
// from walking the block chain; the result is confirmed by decompressing
// the slice. Concatenated frames are separate candidates for the scanner,
// only the first frame is claimed.
func lengthOfZstd(data []byte) (Extent, error) {
	if !isZstd(data) {
		return Extent{}, fmt.Errorf("missing frame magic")
	}
	if len(data) < minLengthZstd {
		return Extent{}, fmt.Errorf("truncated frame header")
	}

	fhd := data[4]
	if fhd&0x08 != 0 {
		return Extent{}, fmt.Errorf("reserved frame header bit set")
	}
	singleSegment := fhd&0x20 != 0
	pos := 5
	if !singleSegment {
		pos++ // window descriptor
	}
	switch fhd & 0x3 {
	case 1:
		pos++
	case 2:
		pos += 2
	case 3:
		pos += 4
	}
	switch fhd >> 6 {
	case 0:
		if singleSegment {
			pos++
		}
	case 1:
		pos += 2
	case 2:
		pos += 4
	case 3:
		pos += 8
	}

	for {
		if pos+3 > len(data) {
			return Extent{}, fmt.Errorf("truncated block header at %#x", pos)
		}
		hdr := uint32(data[pos]) | uint32(data[pos+1])<<8 | uint32(data[pos+2])<<16
		blockType := hdr >> 1 & 0x3
		payload := int(hdr >> 3)
		switch blockType {
		case 1:
			// rle blocks store a single byte
			payload = 1
		case 3:
			return Extent{}, fmt.Errorf("reserved block type at %#x", pos)
		}
		pos += 3 + payload
		if pos > len(data) {
			return Extent{}, fmt.Errorf("block at %#x runs past the input", pos-3-payload)
		}
		if hdr&1 != 0 {
			break
		}
	}
	if fhd&0x4 != 0 {
		pos += 4 // content checksum
		if pos > len(data) {
			return Extent{}, fmt.Errorf("content checksum cut off")
		}
	}

	if !zstdFrameValid(data[:pos]) {
		return Extent{}, fmt.Errorf("frame does not decompress")
	}
	return Extent{Length: int64(pos), DataLen: int64(pos)}, nil
}

// zstdFrameValid reports whether data is a well-formed zstandard frame.
func zstdFrameValid(data []byte) bool {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return false
	}
	defer zr.Close()
	_, err = io.Copy(io.Discard, zr)
	return err == nil
}

// decompressZstdStream returns an io.Reader that decompresses src with the
// zstandard algorithm. The reader closes the decoder's worker goroutines
// when closed.
func decompressZstdStream(src io.Reader) (io.Reader, error) {
	zr, err := zstd.NewReader(src)
	if err != nil {
		return nil, err
	}
	return zr.IOReadCloser(), nil
}
