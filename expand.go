// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"fmt"
	"io"
)

// expandedFile is one child produced by expanding a segment. The name is
// the entry path for archives and the optional declared name for
// compressed members; it is empty when the format names nothing.
type expandedFile struct {
	name string
	data []byte
}

type decompressionFunc func(io.Reader) (io.Reader, error)

// decompressSegment decompresses one carved segment into a single child.
// The budget caps the decompressed size; when it is exceeded the partial
// output is returned together with io.ErrShortWrite so the caller can keep
// what fit and report the truncation.
func decompressSegment(data []byte, budget int64, decFunc decompressionFunc) ([]expandedFile, error) {
	stream, err := decFunc(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot start decompression: %w", err)
	}
	defer func() {
		if closer, ok := stream.(io.Closer); ok {
			closer.Close()
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(limitWriter(&buf, budget), stream); err != nil {
		if buf.Len() > 0 {
			return []expandedFile{{data: buf.Bytes()}}, fmt.Errorf("cannot decompress: %w", err)
		}
		return nil, fmt.Errorf("cannot decompress: %w", err)
	}
	return []expandedFile{{data: buf.Bytes()}}, nil
}

// expandSegment unpacks one expandable segment into its children, archive
// entries or the decompressed payload. A non-nil error can accompany
// usable children, archives continue past unreadable entries.
func expandSegment(kind Kind, data []byte, budget int64) ([]expandedFile, error) {
	switch kind {
	case KindZip:
		return expandZip(data, budget)
	case KindSevenZip:
		return expand7zip(data, budget)
	case KindTar:
		return expandTar(data, budget)
	case KindRar:
		return expandRar(data, budget)
	case KindGzip:
		return expandGzip(data, budget)
	case KindBzip2:
		return decompressSegment(data, budget, decompressBz2Stream)
	case KindXz:
		return decompressSegment(data, budget, decompressXzStream)
	case KindZstd:
		return decompressSegment(data, budget, decompressZstdStream)
	case KindLz4:
		return decompressSegment(data, budget, decompressLz4Stream)
	case KindSnappy:
		return decompressSegment(data, budget, decompressSnappyStream)
	case KindBrotli:
		return decompressSegment(data, budget, decompressBrotliStream)
	}
	return nil, fmt.Errorf("%s does not expand", kind)
}
