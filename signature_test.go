// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"errors"
	"fmt"
	"testing"
)

func TestMatchesMagic(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		offset int
		magic  Magic
		want   bool
	}{
		{
			name:  "plain match",
			data:  []byte{0x50, 0x4b, 0x03, 0x04},
			magic: Magic{Bytes: []byte{0x50, 0x4b, 0x03, 0x04}},
			want:  true,
		},
		{
			name:   "match at offset",
			data:   []byte{0x00, 0x00, 0x1f, 0x8b},
			offset: 2,
			magic:  Magic{Bytes: []byte{0x1f, 0x8b}},
			want:   true,
		},
		{
			name:  "mismatch",
			data:  []byte{0x50, 0x4b, 0x05, 0x06},
			magic: Magic{Bytes: []byte{0x50, 0x4b, 0x03, 0x04}},
			want:  false,
		},
		{
			name: "wildcard positions match anything",
			data: []byte{0x00, 0x00, 0x00, 0x00, 0x42},
			magic: Magic{
				Bytes: []byte{0x00, 0x00, 0x00, 0x00, 0x00},
				Mask:  []byte{0xff, 0xff, 0xff, 0xff, 0x00},
			},
			want: true,
		},
		{
			name:   "runs past the end",
			data:   []byte{0x1f},
			magic:  Magic{Bytes: []byte{0x1f, 0x8b}},
			want:   false,
		},
		{
			name:   "negative offset",
			data:   []byte{0x1f, 0x8b},
			offset: -1,
			magic:  Magic{Bytes: []byte{0x1f, 0x8b}},
			want:   false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := matchesMagic(test.data, test.offset, test.magic); got != test.want {
				t.Errorf("matchesMagic() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestSignatureMatchLen(t *testing.T) {
	sig := &Signature{
		Kind: KindTar,
		Magics: []Magic{
			{Bytes: []byte("ustar\x00")},
			{Bytes: []byte("ustar  \x00")},
		},
		Offset: 4,
	}

	tests := []struct {
		name   string
		data   []byte
		offset int
		want   int
	}{
		{
			name: "longest alternative wins",
			data: append([]byte("XXXXXXXX"), []byte("ustar  \x00")...),
			// no match at 0, magic sits at byte 8 = candidate 4 + offset 4
			offset: 4,
			want:   4 + 8,
		},
		{
			name:   "shorter alternative",
			data:   append([]byte("XXXX"), []byte("ustar\x00zz")...),
			offset: 0,
			want:   4 + 6,
		},
		{
			name:   "no match",
			data:   []byte("nothing here at all"),
			offset: 0,
			want:   -1,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := sig.matchLen(test.data, test.offset); got != test.want {
				t.Errorf("matchLen() = %d, want %d", got, test.want)
			}
		})
	}
}

func TestSignatureCheckRejects(t *testing.T) {
	sig := &Signature{
		Kind:   KindGzip,
		Magics: []Magic{{Bytes: []byte{0x1f, 0x8b}}},
		Check:  func(header []byte) bool { return len(header) >= 3 && header[2] == 0x08 },
	}

	if got := sig.matchLen([]byte{0x1f, 0x8b, 0x08, 0x00}, 0); got != 2 {
		t.Errorf("matchLen() = %d, want 2", got)
	}
	if got := sig.matchLen([]byte{0x1f, 0x8b, 0xff, 0x00}, 0); got != -1 {
		t.Errorf("matchLen() with failing check = %d, want -1", got)
	}
}

func TestBoundaryError(t *testing.T) {
	cause := fmt.Errorf("no end of central directory marker")
	err := &BoundaryError{Offset: 0x20, Kind: KindZip, Err: cause}

	want := "unresolvable zip candidate at offset 0x20: no end of central directory marker"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is() did not reach the wrapped cause")
	}
}
