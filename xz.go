// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/ulikunitz/xz"
)

// magicBytesXz is the magic bytes for xz files.
// reference https://tukaani.org/xz/xz-file-format-1.0.4.txt
var magicBytesXz = []Magic{
	{Bytes: []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}},
}

// xzFooterMagic terminates every xz stream.
var xzFooterMagic = []byte{0x59, 0x5A}

// minLengthXz is the size of an empty stream, a 12 byte header, an 8 byte
// index and a 12 byte footer.
const minLengthXz = 32

// isXz checks if the header matches the xz magic bytes.
func isXz(data []byte) bool {
	return matchesMagic(data, 0, magicBytesXz[0])
}

// lengthOfXz resolves the extent of an xz stream starting at data[0]. The
// 12 byte stream footer sits on a 4 byte boundary and carries a CRC32 over
// its own fields plus an echo of the stream flags from the header, which
// pins down the real footer among chance occurrences of its magic. The
// chosen end is confirmed by decompressing the slice.
func lengthOfXz(data []byte) (Extent, error) {
	if !isXz(data) {
		return Extent{}, fmt.Errorf("missing stream header")
	}
	if len(data) < minLengthXz {
		return Extent{}, fmt.Errorf("truncated stream")
	}
	streamFlags := data[6:8]

	attempts := 0
	for pos := minLengthXz - 2; pos+2 <= len(data); pos += 4 {
		if data[pos] != xzFooterMagic[0] || data[pos+1] != xzFooterMagic[1] {
			continue
		}
		// footer is crc32 (4), backward size (4), stream flags (2), magic (2)
		start := pos - 10
		crc := binary.LittleEndian.Uint32(data[start : start+4])
		if crc32.ChecksumIEEE(data[start+4:start+10]) != crc {
			continue
		}
		if !bytes.Equal(data[start+8:start+10], streamFlags) {
			continue
		}
		end := pos + 2
		if xzStreamValid(data[:end]) {
			return Extent{Length: int64(end), DataLen: int64(end)}, nil
		}
		if attempts++; attempts >= 128 {
			return Extent{}, fmt.Errorf("no footer candidate yields a valid stream")
		}
	}
	return Extent{}, fmt.Errorf("missing stream footer")
}

// xzStreamValid reports whether data is a well-formed xz stream.
func xzStreamValid(data []byte) bool {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return false
	}
	_, err = io.Copy(io.Discard, r)
	return err == nil
}

// decompressXzStream returns an io.Reader that decompresses src with the xz
// algorithm.
func decompressXzStream(src io.Reader) (io.Reader, error) {
	return xz.NewReader(src)
}
