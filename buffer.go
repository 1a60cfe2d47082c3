// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

// buffer is an immutable view over a contiguous region of bytes plus the
// absolute offset of its first byte in the original input. Sub-views share
// the backing array; nothing mutates it.
type buffer struct {
	data   []byte
	origin int64
}

// abs translates a buffer-relative offset to an absolute input offset for
// diagnostics.
func (b *buffer) abs(offset int) int64 {
	return b.origin + int64(offset)
}

// view returns a sub-view of length bytes starting at offset.
func (b *buffer) view(offset, length int64) *buffer {
	return &buffer{
		data:   b.data[offset : offset+length],
		origin: b.origin + offset,
	}
}
