// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/nwaples/rardecode"
)

// magicBytesRar are the magic bytes for Rar files.
var magicBytesRar = []Magic{
	{Bytes: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}},       // Rar 1.5
	{Bytes: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}}, // Rar 5.0
}

// minLengthRar covers the signature plus a minimal main archive header.
const minLengthRar = 20

// isRar checks if the header matches the magic bytes for Rar files.
func isRar(data []byte) bool {
	for _, m := range magicBytesRar {
		if matchesMagic(data, 0, m) {
			return true
		}
	}
	return false
}

// lengthOfRar resolves the extent of a Rar archive starting at data[0] by
// walking the block headers of the matching archive generation until the
// end-of-archive block. Blocks that tile exactly to the end of the buffer
// also close the claim, old v4 archives may omit the end marker.
func lengthOfRar(data []byte) (Extent, error) {
	switch {
	case matchesMagic(data, 0, magicBytesRar[1]):
		return lengthOfRar5(data)
	case matchesMagic(data, 0, magicBytesRar[0]):
		return lengthOfRar4(data)
	}
	return Extent{}, fmt.Errorf("missing rar signature")
}

// rar 1.5 to 4.x block headers: 2 byte crc, 1 byte type, 2 byte flags and
// 2 byte header size, with a 4 byte data size appended when flag 0x8000 is
// set. Type 0x7b closes the archive.
func lengthOfRar4(data []byte) (Extent, error) {
	pos := len(magicBytesRar[0].Bytes)
	for pos < len(data) {
		if pos+7 > len(data) {
			return Extent{}, fmt.Errorf("truncated block header at %#x", pos)
		}
		blockType := data[pos+2]
		flags := binary.LittleEndian.Uint16(data[pos+3 : pos+5])
		headSize := int64(binary.LittleEndian.Uint16(data[pos+5 : pos+7]))
		if headSize < 7 {
			return Extent{}, fmt.Errorf("implausible block header size %d at %#x", headSize, pos)
		}

		var dataSize int64
		if flags&0x8000 != 0 {
			if pos+11 > len(data) {
				return Extent{}, fmt.Errorf("truncated block header at %#x", pos)
			}
			dataSize = int64(binary.LittleEndian.Uint32(data[pos+7 : pos+11]))
		}

		end := int64(pos) + headSize + dataSize
		if end <= int64(pos) || end > int64(len(data)) {
			return Extent{}, fmt.Errorf("block at %#x runs past the input", pos)
		}
		if blockType == 0x7b {
			return Extent{Length: end, DataLen: end}, nil
		}
		pos = int(end)
	}
	return Extent{Length: int64(pos), DataLen: int64(pos)}, nil
}

// rar 5.0 block headers: 4 byte crc, then variable-length integers for
// header size, type and flags, with optional extra and data sizes. Type 5
// closes the archive.
func lengthOfRar5(data []byte) (Extent, error) {
	pos := len(magicBytesRar[1].Bytes)
	for pos < len(data) {
		if pos+5 > len(data) {
			return Extent{}, fmt.Errorf("truncated block header at %#x", pos)
		}
		headSize, n, err := readVint(data, pos+4)
		if err != nil {
			return Extent{}, fmt.Errorf("bad header size at %#x: %w", pos, err)
		}
		hdrStart := pos + 4 + n
		hdrEnd := int64(hdrStart) + int64(headSize)
		if headSize == 0 || hdrEnd > int64(len(data)) {
			return Extent{}, fmt.Errorf("block at %#x runs past the input", pos)
		}

		blockType, n, err := readVint(data, hdrStart)
		if err != nil {
			return Extent{}, fmt.Errorf("bad block type at %#x: %w", pos, err)
		}
		flags, m, err := readVint(data, hdrStart+n)
		if err != nil {
			return Extent{}, fmt.Errorf("bad block flags at %#x: %w", pos, err)
		}

		var dataSize uint64
		cur := hdrStart + n + m
		if flags&0x1 != 0 {
			if _, n, err = readVint(data, cur); err != nil {
				return Extent{}, fmt.Errorf("bad extra size at %#x: %w", pos, err)
			}
			cur += n
		}
		if flags&0x2 != 0 {
			if dataSize, _, err = readVint(data, cur); err != nil {
				return Extent{}, fmt.Errorf("bad data size at %#x: %w", pos, err)
			}
		}

		end := hdrEnd + int64(dataSize)
		if end <= int64(pos) || end > int64(len(data)) {
			return Extent{}, fmt.Errorf("block at %#x runs past the input", pos)
		}
		if blockType == 5 {
			return Extent{Length: end, DataLen: end}, nil
		}
		pos = int(end)
	}
	return Extent{Length: int64(pos), DataLen: int64(pos)}, nil
}

// readVint decodes a rar 5.0 variable-length integer, low 7 bits per byte
// with the high bit as continuation flag.
func readVint(data []byte, pos int) (uint64, int, error) {
	var v uint64
	for i := 0; i < 10; i++ {
		if pos+i >= len(data) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		b := data[pos+i]
		v |= uint64(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("integer does not terminate")
}

// expandRar unpacks the regular entries of a carved Rar archive.
func expandRar(data []byte, budget int64) ([]expandedFile, error) {
	rr, err := rardecode.NewReader(bytes.NewReader(data), "")
	if err != nil {
		return nil, fmt.Errorf("cannot create rar decoder: %w", err)
	}

	var files []expandedFile
	var errs []error
	for {
		hdr, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("cannot walk rar header: %w", err))
			break
		}
		if hdr.IsDir || !hdr.Mode().IsRegular() {
			continue
		}
		name := sanitizeEntryPath(hdr.Name)
		if name == "" {
			continue
		}

		var buf bytes.Buffer
		if _, err := io.Copy(limitWriter(&buf, budget), rr); err != nil {
			errs = append(errs, fmt.Errorf("cannot read %s: %w", hdr.Name, err))
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
