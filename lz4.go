// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// magicBytesLz4 is the magic bytes for LZ4 files.
// reference https://android.googlesource.com/platform/external/lz4/+/HEAD/doc/lz4_Frame_format.md
var magicBytesLz4 = []Magic{
	{Bytes: []byte{0x04, 0x22, 0x4D, 0x18}},
}

// minLengthLz4 is the smallest complete frame, magic, a minimal descriptor
// and the end mark.
const minLengthLz4 = 11

// isLz4 checks if the header matches the LZ4 magic bytes.
func isLz4(data []byte) bool {
	return matchesMagic(data, 0, magicBytesLz4[0])
}

// lengthOfLz4 resolves the extent of an LZ4 frame starting at data[0].
// Every block announces its size in a 4 byte header and a zero size marks
// the end of the frame, so the end follows from walking the block chain;
// the result is confirmed by decompressing the slice.
func lengthOfLz4(data []byte) (Extent, error) {
	if !isLz4(data) {
		return Extent{}, fmt.Errorf("missing frame magic")
	}
	if len(data) < minLengthLz4 {
		return Extent{}, fmt.Errorf("truncated frame header")
	}

	flg, bd := data[4], data[5]
	if flg>>6 != 0x1 {
		return Extent{}, fmt.Errorf("unsupported frame version %d", flg>>6)
	}
	if flg&0x02 != 0 || bd&0x8f != 0 {
		return Extent{}, fmt.Errorf("reserved descriptor bit set")
	}
	if c := bd >> 4 & 0x7; c < 4 || c > 7 {
		return Extent{}, fmt.Errorf("invalid block size code %d", c)
	}
	blockChecksum := flg&0x10 != 0

	pos := 6
	if flg&0x08 != 0 {
		pos += 8 // content size
	}
	if flg&0x01 != 0 {
		pos += 4 // dictionary id
	}
	pos++ // header checksum
	if pos > len(data) {
		return Extent{}, fmt.Errorf("truncated frame descriptor")
	}

	for {
		if pos+4 > len(data) {
			return Extent{}, fmt.Errorf("truncated block header at %#x", pos)
		}
		bs := binary.LittleEndian.Uint32(data[pos : pos+4])
		pos += 4
		if bs == 0 {
			break // end mark
		}
		pos += int(bs & 0x7fffffff)
		if blockChecksum {
			pos += 4
		}
		if pos > len(data) {
			return Extent{}, fmt.Errorf("block runs past the input")
		}
	}
	if flg&0x04 != 0 {
		pos += 4 // content checksum
		if pos > len(data) {
			return Extent{}, fmt.Errorf("content checksum cut off")
		}
	}

	if !lz4FrameValid(data[:pos]) {
		return Extent{}, fmt.Errorf("frame does not decompress")
	}
	return Extent{Length: int64(pos), DataLen: int64(pos)}, nil
}

// lz4FrameValid reports whether data is a well-formed LZ4 frame.
func lz4FrameValid(data []byte) bool {
	_, err := io.Copy(io.Discard, lz4.NewReader(bytes.NewReader(data)))
	return err == nil
}

// decompressLz4Stream returns an io.Reader that decompresses src with the
// LZ4 algorithm.
func decompressLz4Stream(src io.Reader) (io.Reader, error) {
	return lz4.NewReader(src), nil
}
