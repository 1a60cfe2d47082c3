// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// The vendor container carries no index. Each embedded file is announced by
// a quoted "<filetransfer>" tag, followed by a "<fileinfo>" block (4-byte
// big-endian name length, 4-byte header word, the quoted filename) and a
// "<filecontent>" block (4-byte big-endian content length, 4-byte meta word,
// the payload bytes).
var (
	tagFileTransfer = []byte(`"<filetransfer>"`)
	tagFileInfo     = []byte(`"<fileinfo>"`)
	tagFileContent  = []byte(`"<filecontent>"`)
)

// magicBytesEntry are the magic bytes for a container file entry.
var magicBytesEntry = []Magic{
	{Bytes: tagFileTransfer},
}

// minLengthEntry is a full record with an empty name and empty content:
// three tags plus two 8-byte block headers.
const minLengthEntry = 59

// isContainer checks if the data is a vendor container, recognized by a
// "<filetransfer>" tag within the first 100 bytes.
func isContainer(data []byte) bool {
	if len(data) < 16 {
		return false
	}
	idx := bytes.Index(data, tagFileTransfer)
	return idx >= 0 && idx < 100
}

// findTag locates the next quoted tag ("<...>") at or after start. It
// returns the tag's offset and full length, quotes included.
func findTag(data []byte, start int) (pos, length int, ok bool) {
	if start < 0 {
		start = 0
	}
	i := start
	for i < len(data)-3 {
		if data[i] != '"' || data[i+1] != '<' {
			i++
			continue
		}
		for j := i + 2; j < len(data)-1; j++ {
			if data[j] == '>' && data[j+1] == '"' {
				return i, j + 2 - i, true
			}
		}
		i += 2
	}
	return 0, 0, false
}

// entryName decodes the declared filename from a fileinfo block: a 4-byte
// big-endian name length, a 4-byte header word, then the name itself,
// usually wrapped in quotes. The header word is returned for diagnostics
// even when the name is missing or cut short.
func entryName(info []byte) (string, []byte) {
	if len(info) < 8 {
		return "", nil
	}
	nameLen := int(binary.BigEndian.Uint32(info[0:4]))
	header := info[4:8]
	if len(info) < 8+nameLen {
		return "", header
	}
	name := info[8 : 8+nameLen]
	if !utf8.Valid(name) {
		return "", header
	}
	return string(bytes.Trim(name, `"`)), header
}

// lengthOfEntry resolves one container file entry starting at data[0], which
// must hold the "<filetransfer>" tag. The claim runs from the tag through
// the end of the declared content; the payload is the content bytes alone. A
// declared length that overruns the available data is clamped, matching how
// vendor images are routinely truncated at flash boundaries.
func lengthOfEntry(data []byte) (Extent, error) {
	if !matchesMagic(data, 0, magicBytesEntry[0]) {
		return Extent{}, fmt.Errorf("missing filetransfer tag")
	}

	// the fileinfo block must follow
	infoPos, infoLen, ok := findTag(data, len(tagFileTransfer))
	if !ok || !bytes.Equal(data[infoPos:infoPos+infoLen], tagFileInfo) {
		return Extent{}, fmt.Errorf("no fileinfo record after filetransfer tag")
	}

	// the fileinfo data runs to the next tag
	infoData := infoPos + infoLen
	contentPos, contentLen, ok := findTag(data, infoData)
	if !ok {
		return Extent{}, fmt.Errorf("no filecontent record")
	}
	name, _ := entryName(data[infoData:contentPos])

	if !bytes.Equal(data[contentPos:contentPos+contentLen], tagFileContent) {
		return Extent{}, fmt.Errorf("unexpected %q record before filecontent", data[contentPos:contentPos+contentLen])
	}

	blockStart := contentPos + contentLen
	if len(data) < blockStart+8 {
		return Extent{}, fmt.Errorf("truncated filecontent block")
	}
	declared := int64(binary.BigEndian.Uint32(data[blockStart : blockStart+4]))

	payloadStart := int64(blockStart + 8)
	payloadEnd := payloadStart + declared
	truncated := false
	if payloadEnd > int64(len(data)) {
		payloadEnd = int64(len(data))
		truncated = true
	}

	return Extent{
		Length:    payloadEnd,
		DataOff:   payloadStart,
		DataLen:   payloadEnd - payloadStart,
		Name:      name,
		Truncated: truncated,
	}, nil
}
