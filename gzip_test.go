// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"compress/gzip"
	"testing"
)

// createGzip compresses data into a single gzip member with the given
// declared name.
func createGzip(t *testing.T, name string, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Name = name
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("compressing: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	return buf.Bytes()
}

func TestIsGzip(t *testing.T) {
	tests := []struct {
		header []byte
		want   bool
	}{
		{[]byte{0x1f, 0x8b}, true},
		{[]byte{0x1f, 0x8c}, false},
		{[]byte{0x00, 0x00}, false},
	}

	for _, test := range tests {
		if got := isGzip(test.header); got != test.want {
			t.Errorf("isGzip(%v) = %v, want %v", test.header, got, test.want)
		}
	}
}

func TestIsGzipMethod(t *testing.T) {
	tests := []struct {
		header []byte
		want   bool
	}{
		{[]byte{0x1f, 0x8b, 0x08, 0x00}, true},
		{[]byte{0x1f, 0x8b, 0x07, 0x00}, false}, // not deflate
		{[]byte{0x1f, 0x8b, 0x08, 0xe0}, false}, // reserved flag bits
		{[]byte{0x1f, 0x8b, 0x08}, false},       // too short
	}

	for _, test := range tests {
		if got := isGzipMethod(test.header); got != test.want {
			t.Errorf("isGzipMethod(%v) = %v, want %v", test.header, got, test.want)
		}
	}
}

func TestLengthOfGzip(t *testing.T) {
	member := createGzip(t, "", bytes.Repeat([]byte("firmware "), 100))

	tests := []struct {
		name    string
		data    []byte
		want    int64
		wantErr bool
	}{
		{
			name: "exact member",
			data: member,
			want: int64(len(member)),
		},
		{
			name: "trailing noise ignored",
			data: append(append([]byte{}, member...), bytes.Repeat([]byte("A"), 50)...),
			want: int64(len(member)),
		},
		{
			// adjacent members are separate candidates, the claim must
			// stop at the first member's trailer
			name: "second member not claimed",
			data: append(append([]byte{}, member...), createGzip(t, "", []byte("second"))...),
			want: int64(len(member)),
		},
		{
			name:    "truncated member",
			data:    member[:len(member)-6],
			wantErr: true,
		},
		{
			name:    "not gzip",
			data:    bytes.Repeat([]byte("A"), 50),
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ext, err := lengthOfGzip(test.data)
			if (err != nil) != test.wantErr {
				t.Fatalf("lengthOfGzip() error = %v, wantErr %v", err, test.wantErr)
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

func TestExpandGzip(t *testing.T) {
	content := []byte("decompressed firmware payload")
	member := createGzip(t, "rootfs.img", content)

	files, err := expandGzip(member, 1<<20)
	if err != nil {
		t.Fatalf("expandGzip() error = %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expanded %d files, want 1", len(files))
	}
	if files[0].name != "rootfs.img" {
		t.Errorf("name = %q, want %q", files[0].name, "rootfs.img")
	}
	if !bytes.Equal(files[0].data, content) {
		t.Errorf("data = %q, want %q", files[0].data, content)
	}
}

func TestExpandGzipUnnamed(t *testing.T) {
	files, err := expandGzip(createGzip(t, "", []byte("anonymous")), 1<<20)
	if err != nil {
		t.Fatalf("expandGzip() error = %v", err)
	}
	if len(files) != 1 || files[0].name != "" {
		t.Errorf("files = %v, want one unnamed file", files)
	}
}
