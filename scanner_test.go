// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"testing"
)

func TestScannerFindsCandidatesInOrder(t *testing.T) {
	// two entries separated by noise; entry records are scanned for with
	// the filetransfer tag
	first := buildEntry(t, "a.bin", bytes.Repeat([]byte{0x80}, 16), -1)
	second := buildEntry(t, "b.bin", bytes.Repeat([]byte{0x81}, 16), -1)

	var data []byte
	data = append(data, bytes.Repeat([]byte("x"), 25)...)
	data = append(data, first...)
	data = append(data, bytes.Repeat([]byte("y"), 13)...)
	data = append(data, second...)

	s := newScanner(DefaultRegistry(), &buffer{data: data})

	var offsets []int
	for {
		c, ok := s.next()
		if !ok {
			break
		}
		offsets = append(offsets, c.offset)
		if c.sig.Kind != KindEntry {
			t.Errorf("candidate at %d has kind %s, want %s", c.offset, c.sig.Kind, KindEntry)
		}
		// consume the claim like the engine does
		ext, err := c.sig.lengthOf(data[c.offset:])
		if err != nil {
			t.Fatalf("lengthOf at %d: %v", c.offset, err)
		}
		s.resume(c.offset + int(ext.Length))
	}

	wantFirst := 25
	wantSecond := 25 + len(first) + 13
	if len(offsets) != 2 || offsets[0] != wantFirst || offsets[1] != wantSecond {
		t.Errorf("offsets = %v, want [%d %d]", offsets, wantFirst, wantSecond)
	}
}

func TestScannerSkipsMinLengthAfterMatch(t *testing.T) {
	// a bare filetransfer tag with nothing behind it still produces a
	// candidate; the cursor must then sit past the kind's minimum length
	data := append(append([]byte{}, tagFileTransfer...), bytes.Repeat([]byte{0x00}, 100)...)

	s := newScanner(DefaultRegistry(), &buffer{data: data})
	c, ok := s.next()
	if !ok {
		t.Fatalf("next() found nothing")
	}
	if c.offset != 0 {
		t.Fatalf("offset = %d, want 0", c.offset)
	}
	if s.cur != minLengthEntry {
		t.Errorf("cursor = %d after match, want %d", s.cur, minLengthEntry)
	}
}

func TestScannerResume(t *testing.T) {
	data := append(append([]byte{}, tagFileTransfer...), bytes.Repeat([]byte{0x00}, 100)...)

	s := newScanner(DefaultRegistry(), &buffer{data: data})
	if _, ok := s.next(); !ok {
		t.Fatalf("next() found nothing")
	}

	// resuming one past a failed candidate must not resurface it
	s.resume(1)
	if _, ok := s.next(); ok {
		t.Errorf("next() after resume(1) found a candidate, want none")
	}
}

func TestScannerNoiseOnly(t *testing.T) {
	s := newScanner(DefaultRegistry(), &buffer{data: bytes.Repeat([]byte("q9w8e7r6"), 32)})
	if c, ok := s.next(); ok {
		t.Errorf("next() = candidate at %d (%s), want none", c.offset, c.sig.Kind)
	}
}

func TestBufferView(t *testing.T) {
	b := &buffer{data: []byte("0123456789"), origin: 1000}

	v := b.view(4, 3)
	if string(v.data) != "456" {
		t.Errorf("view data = %q, want %q", v.data, "456")
	}
	if v.origin != 1004 {
		t.Errorf("view origin = %d, want 1004", v.origin)
	}
	if v.abs(2) != 1006 {
		t.Errorf("abs(2) = %d, want 1006", v.abs(2))
	}
}
