// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"testing"
)

// createZip creates a zip archive with the given entries. Entries whose
// name ends in / become directories.
func createZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	return buf.Bytes()
}

// createStoredZip wraps inner uncompressed in an outer zip under the given
// entry name, so the inner bytes appear verbatim in the outer archive.
func createStoredZip(t *testing.T, name string, inner []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		t.Fatalf("creating stored entry: %v", err)
	}
	if _, err := w.Write(inner); err != nil {
		t.Fatalf("writing stored entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	return buf.Bytes()
}

func TestIsZip(t *testing.T) {
	tests := []struct {
		header []byte
		want   bool
	}{
		{[]byte{0x50, 0x4b, 0x03, 0x04}, true},
		{[]byte{0x50, 0x4b, 0x05, 0x06}, false},
		{[]byte{0x00, 0x00, 0x00, 0x00}, false},
	}

	for _, test := range tests {
		if got := isZip(test.header); got != test.want {
			t.Errorf("isZip(%v) = %v, want %v", test.header, got, test.want)
		}
	}
}

func TestLengthOfZip(t *testing.T) {
	archive := createZip(t, map[string]string{"version.txt": "1.2.3"})
	inner := createZip(t, map[string]string{"inner.txt": "i am the inner archive"})

	tests := []struct {
		name    string
		data    []byte
		want    int64
		wantErr bool
	}{
		{
			name: "exact archive",
			data: archive,
			want: int64(len(archive)),
		},
		{
			name: "trailing noise ignored",
			data: append(append([]byte{}, archive...), bytes.Repeat([]byte("A"), 64)...),
			want: int64(len(archive)),
		},
		{
			// an uncompressed nested zip carries its own end record, which
			// appears first but must not end the outer claim
			name: "stored inner zip",
			data: createStoredZip(t, "inner.zip", inner),
			want: int64(len(createStoredZip(t, "inner.zip", inner))),
		},
		{
			name:    "end record cut off",
			data:    archive[:len(archive)-10],
			wantErr: true,
		},
		{
			name:    "no end record in noise",
			data:    append([]byte{0x50, 0x4b, 0x03, 0x04}, bytes.Repeat([]byte("A"), 64)...),
			wantErr: true,
		},
		{
			name:    "not a zip",
			data:    bytes.Repeat([]byte("A"), 64),
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ext, err := lengthOfZip(test.data)
			if (err != nil) != test.wantErr {
				t.Fatalf("lengthOfZip() error = %v, wantErr %v", err, test.wantErr)
			}
			if test.wantErr {
				return
			}
			if ext.Length != test.want {
				t.Errorf("Length = %d, want %d", ext.Length, test.want)
			}
		})
	}
}

func TestLengthOfZipWithComment(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("a.txt"); err != nil {
		t.Fatalf("creating entry: %v", err)
	}
	if err := zw.SetComment("firmware build 42"); err != nil {
		t.Fatalf("setting comment: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	archive := buf.Bytes()

	data := append(append([]byte{}, archive...), bytes.Repeat([]byte("A"), 32)...)
	ext, err := lengthOfZip(data)
	if err != nil {
		t.Fatalf("lengthOfZip() error = %v", err)
	}
	if ext.Length != int64(len(archive)) {
		t.Errorf("Length = %d, want %d (comment must be part of the claim)", ext.Length, len(archive))
	}
}

func TestExpandZip(t *testing.T) {
	archive := createZip(t, map[string]string{
		"version.txt":        "1.2.3",
		"fw/gimbal.bin":      "gimbal payload",
		"dir/":               "",
		"../escape.txt":      "trying to get out",
		"fw/../flattened.md": "cleaned in place",
	})

	files, err := expandZip(archive, 1<<20)
	if err != nil {
		t.Fatalf("expandZip() error = %v", err)
	}

	got := map[string]string{}
	for _, f := range files {
		got[f.name] = string(f.data)
	}
	want := map[string]string{
		"version.txt":   "1.2.3",
		"fw/gimbal.bin": "gimbal payload",
		"escape.txt":    "trying to get out",
		"flattened.md":  "cleaned in place",
	}
	if len(got) != len(want) {
		t.Fatalf("expanded %d entries, want %d: %v", len(got), len(want), got)
	}
	for name, content := range want {
		if got[name] != content {
			t.Errorf("entry %q = %q, want %q", name, got[name], content)
		}
	}
}

func TestExpandZipBudget(t *testing.T) {
	archive := createZip(t, map[string]string{
		"big.bin": string(bytes.Repeat([]byte("B"), 1000)),
	})

	files, err := expandZip(archive, 100)
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("expandZip() error = %v, want io.ErrShortWrite", err)
	}
	if len(files) != 1 || len(files[0].data) != 100 {
		t.Errorf("kept %d files, first %d bytes; want the 100 bytes that fit", len(files), len(files[0].data))
	}
}

func TestExpandZipCorrupt(t *testing.T) {
	if _, err := expandZip(bytes.Repeat([]byte("A"), 64), 1<<20); err == nil {
		t.Errorf("expandZip() on noise succeeded, want error")
	}
}
