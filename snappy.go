// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/snappy"
)

// magicBytesSnappy is the magic bytes for the snappy framing format.
var magicBytesSnappy = []Magic{
	{Bytes: append([]byte{0xff, 0x06, 0x00, 0x00}, []byte("sNaPpY")...)},
}

// minLengthSnappy is the 10 byte stream identifier chunk.
const minLengthSnappy = 10

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// isSnappy checks if the header matches the snappy magic bytes.
func isSnappy(data []byte) bool {
	return matchesMagic(data, 0, magicBytesSnappy[0])
}

// lengthOfSnappy resolves the extent of a snappy framed stream starting at
// data[0]. The format has no end marker, a stream is simply a chunk
// sequence, so the claim extends chunk by chunk for as long as the chunks
// verify: data chunks must pass their checksum, skippable chunks must fit.
// The first byte that does not open a verifiable chunk ends the stream. An
// identifier with no verifiable chunk behind it fails resolution, the 10
// magic bytes alone carry no payload and are treated as a false positive.
func lengthOfSnappy(data []byte) (Extent, error) {
	if !isSnappy(data) {
		return Extent{}, fmt.Errorf("missing stream identifier")
	}

	pos := minLengthSnappy
	for pos+4 <= len(data) {
		chunkType := data[pos]
		length := int(data[pos+1]) | int(data[pos+2])<<8 | int(data[pos+3])<<16
		end := pos + 4 + length
		if end > len(data) {
			break
		}

		switch {
		case chunkType == 0x00: // compressed data
			if length < 4 {
				return endOfSnappy(pos)
			}
			decoded, err := snappy.Decode(nil, data[pos+8:end])
			if err != nil || maskedCRC32C(decoded) != binary.LittleEndian.Uint32(data[pos+4:pos+8]) {
				return endOfSnappy(pos)
			}
		case chunkType == 0x01: // uncompressed data
			if length < 4 || maskedCRC32C(data[pos+8:end]) != binary.LittleEndian.Uint32(data[pos+4:pos+8]) {
				return endOfSnappy(pos)
			}
		case chunkType >= 0x80 && chunkType != 0xff: // reserved skippable
		default:
			// unskippable reserved chunk or a fresh stream identifier,
			// either way this stream is over
			return endOfSnappy(pos)
		}
		pos = end
	}
	return endOfSnappy(pos)
}

func endOfSnappy(pos int) (Extent, error) {
	if pos == minLengthSnappy {
		return Extent{}, fmt.Errorf("no verifiable chunk after the stream identifier")
	}
	return Extent{Length: int64(pos), DataLen: int64(pos)}, nil
}

// maskedCRC32C is the checksum stored in snappy data chunks, crc32c of the
// uncompressed payload, rotated and offset per the framing format.
func maskedCRC32C(data []byte) uint32 {
	c := crc32.Checksum(data, crc32cTable)
	return (c>>15 | c<<17) + 0xa282ead8
}

// decompressSnappyStream returns an io.Reader that decompresses src with
// the snappy algorithm.
func decompressSnappyStream(src io.Reader) (io.Reader, error) {
	return snappy.NewReader(src), nil
}
