// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"archive/tar"
	"bytes"
	"testing"
)

// createTar creates a tar archive with the given entries in map iteration
// independent order.
func createTar(t *testing.T, entries []struct{ name, content string }) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Mode:     0640,
			Size:     int64(len(e.content)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing header %s: %v", e.name, err)
		}
		if _, err := tw.Write([]byte(e.content)); err != nil {
			t.Fatalf("writing entry %s: %v", e.name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	return buf.Bytes()
}

func TestIsTar(t *testing.T) {
	archive := createTar(t, []struct{ name, content string }{{"a.txt", "hello"}})

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{
			name: "real archive",
			data: archive,
			want: true,
		},
		{
			name: "magic missing",
			data: bytes.Repeat([]byte{0x00}, 1024),
			want: false,
		},
		{
			name: "too short for the magic offset",
			data: bytes.Repeat([]byte{0x00}, 100),
			want: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := isTar(test.data); got != test.want {
				t.Errorf("isTar() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestLengthOfTar(t *testing.T) {
	archive := createTar(t, []struct{ name, content string }{
		{"version.txt", "1.2.3"},
		{"fw/esc.bin", string(bytes.Repeat([]byte{0x00, 0x01}, 700))},
	})

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
			data: append(append([]byte{}, archive...), bytes.Repeat([]byte("A"), 600)...),
			want: int64(len(archive)),
		},
		{
			name:    "truncated archive",
			data:    archive[:len(archive)-1500],
			wantErr: true,
		},
		{
			name:    "no magic",
			data:    bytes.Repeat([]byte{0x00}, 2048),
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ext, err := lengthOfTar(test.data)
			if (err != nil) != test.wantErr {
				t.Fatalf("lengthOfTar() error = %v, wantErr %v", err, test.wantErr)
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

func TestExpandTar(t *testing.T) {
	archive := createTar(t, []struct{ name, content string }{
		{"version.txt", "1.2.3"},
		{"fw/esc.bin", "esc payload"},
		{"../escape.txt", "trying to get out"},
	})

	files, err := expandTar(archive, 1<<20)
	if err != nil {
		t.Fatalf("expandTar() error = %v", err)
	}

	got := map[string]string{}
	for _, f := range files {
		got[f.name] = string(f.data)
	}
	want := map[string]string{
		"version.txt": "1.2.3",
		"fw/esc.bin":  "esc payload",
		"escape.txt":  "trying to get out",
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
