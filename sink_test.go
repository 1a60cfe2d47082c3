// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{`"fcs.bin"`, "fcs.bin"},
		{"plain.txt", "plain.txt"},
		{"dir/inner.bin", "inner.bin"},
		{`c:\windows\evil.dll`, "evil.dll"},
		{"../../etc/passwd", "passwd"},
		{"name\x00with\x00nuls", "namewithnuls"},
		{"..", ""},
		{"", ""},
		{"///", ""},
	}

	for _, test := range tests {
		if got := sanitizeName(test.name); got != test.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", test.name, got, test.want)
		}
	}
}

func TestSanitizeEntryPath(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"fw/gimbal.bin", "fw/gimbal.bin"},
		{"../escape.txt", "escape.txt"},
		{"/abs/path.txt", "abs/path.txt"},
		{`dir\sub\win.txt`, "dir/sub/win.txt"},
		{"a/../b/c.txt", "b/c.txt"},
		{"..", ""},
		{"", ""},
	}

	for _, test := range tests {
		if got := sanitizeEntryPath(test.name); got != test.want {
			t.Errorf("sanitizeEntryPath(%q) = %q, want %q", test.name, got, test.want)
		}
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"0001.zip", "0001"},
		{"archive.tar", "archive"},
		{"noext", "noext"},
		{".hidden", ".hidden"},
	}

	for _, test := range tests {
		if got := stem(test.name); got != test.want {
			t.Errorf("stem(%q) = %q, want %q", test.name, got, test.want)
		}
	}
}

func TestSinkDisk(t *testing.T) {
	dst := t.TempDir()
	sink, err := NewSinkDisk(dst, false, false)
	if err != nil {
		t.Fatalf("NewSinkDisk() error = %v", err)
	}

	if err := sink.Emit("0001/version.json", KindJSON, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dst, "0001", "version.json"))
	if err != nil {
		t.Fatalf("reading emitted file: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"v":1}`)) {
		t.Errorf("emitted file = %q, want %q", got, `{"v":1}`)
	}

	// existing files stay untouched without overwrite
	if err := sink.Emit("0001/version.json", KindJSON, []byte("other")); err == nil {
		t.Errorf("Emit() over existing file succeeded, want error")
	}

	// traversal attempts are refused
	for _, p := range []string{"../outside.bin", "/abs.bin", ""} {
		if err := sink.Emit(p, KindUnknown, []byte("x")); err == nil {
			t.Errorf("Emit(%q) succeeded, want refusal", p)
		}
	}
}

func TestSinkDiskOverwrite(t *testing.T) {
	dst := t.TempDir()
	sink, err := NewSinkDisk(dst, false, true)
	if err != nil {
		t.Fatalf("NewSinkDisk() error = %v", err)
	}

	if err := sink.Emit("a.bin", KindUnknown, []byte("one")); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if err := sink.Emit("a.bin", KindUnknown, []byte("two")); err != nil {
		t.Fatalf("Emit() with overwrite error = %v", err)
	}
	got, _ := os.ReadFile(filepath.Join(dst, "a.bin"))
	if string(got) != "two" {
		t.Errorf("file = %q, want %q", got, "two")
	}
}

func TestSinkDiskCreateDestination(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "sub", "dir")

	if _, err := NewSinkDisk(missing, false, false); err == nil {
		t.Errorf("NewSinkDisk() without create succeeded, want error")
	}
	if _, err := NewSinkDisk(missing, true, false); err != nil {
		t.Errorf("NewSinkDisk() with create error = %v", err)
	}
	if st, err := os.Stat(missing); err != nil || !st.IsDir() {
		t.Errorf("destination was not created: %v", err)
	}
}

func TestSinkMemory(t *testing.T) {
	sink := NewSinkMemory()

	data := []byte("payload")
	if err := sink.Emit("0001.zip", KindZip, data); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	// later mutation of the caller's slice must not reach the sink
	data[0] = 'X'

	f, ok := sink.File("0001.zip")
	if !ok {
		t.Fatalf("File() did not find the emitted path")
	}
	if f.Kind != KindZip || string(f.Data) != "payload" {
		t.Errorf("stored file = (%s, %q), want (zip, %q)", f.Kind, f.Data, "payload")
	}

	if err := sink.Emit("0001.zip", KindZip, []byte("dup")); err == nil {
		t.Errorf("Emit() on taken path succeeded, want error")
	}
	if err := sink.Emit("", KindZip, []byte("x")); err == nil {
		t.Errorf("Emit() with empty path succeeded, want error")
	}

	if err := sink.Emit("0001/a.json", KindJSON, []byte("{}")); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	wantPaths := []string{"0001.zip", "0001/a.json"}
	got := sink.Paths()
	if len(got) != len(wantPaths) || got[0] != wantPaths[0] || got[1] != wantPaths[1] {
		t.Errorf("Paths() = %v, want %v", got, wantPaths)
	}
	if sink.Len() != 2 {
		t.Errorf("Len() = %d, want 2", sink.Len())
	}
}

func TestSinkDiscard(t *testing.T) {
	var sink SinkDiscard
	if err := sink.Emit("anything", KindZip, []byte("data")); err != nil {
		t.Errorf("Emit() error = %v", err)
	}
}
