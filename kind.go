// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import "strings"

// Kind identifies the format of a carved or classified byte segment. The set
// is closed; unknown content is represented by KindUnknown rather than an
// open-ended hierarchy.
type Kind int

const (
	// KindUnknown represents content that matched no signature.
	KindUnknown Kind = iota

	// KindEntry is a single "<filetransfer>" record inside the vendor
	// firmware container. The record carries a declared filename and a
	// length-prefixed payload; the payload is emitted, not the record.
	KindEntry

	// KindContainer is the vendor firmware container itself, recognized by
	// a "<filetransfer>" tag near the start of the data.
	KindContainer

	KindZip
	KindSevenZip
	KindTar
	KindRar
	KindGzip
	KindBzip2
	KindXz
	KindZstd
	KindLz4
	KindSnappy
	KindBrotli
	KindJSON
	KindText

	// Firmware image kinds recognized on already-bounded payloads. They
	// carry no length information of their own and are never carve
	// candidates.
	KindUpgGimbal
	KindUpgRcMcu
	KindUpgFcs
	KindUpgBms
	KindUpgEsc
	KindGpsBin
)

var kindNames = map[Kind]string{
	KindUnknown:   "unknown",
	KindEntry:     "container entry",
	KindContainer: "container",
	KindZip:       "zip",
	KindSevenZip:  "7zip",
	KindTar:       "tar",
	KindRar:       "rar",
	KindGzip:      "gzip",
	KindBzip2:     "bzip2",
	KindXz:        "xz",
	KindZstd:      "zstd",
	KindLz4:       "lz4",
	KindSnappy:    "snappy",
	KindBrotli:    "brotli",
	KindJSON:      "json",
	KindText:      "text",
	KindUpgGimbal: "upg-gimbal",
	KindUpgRcMcu:  "upg-rc-mcu",
	KindUpgFcs:    "upg-fcs",
	KindUpgBms:    "upg-bms",
	KindUpgEsc:    "upg-esc",
	KindGpsBin:    "gps-bin",
}

// String returns the short lowercase name of the kind.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

var kindExtensions = map[Kind]string{
	KindZip:      "zip",
	KindSevenZip: "7z",
	KindTar:      "tar",
	KindRar:      "rar",
	KindGzip:     "gz",
	KindBzip2:    "bz2",
	KindXz:       "xz",
	KindZstd:     "zst",
	KindLz4:      "lz4",
	KindSnappy:   "sz",
	KindBrotli:   "br",
	KindJSON:     "json",
	KindText:     "txt",
}

// Ext returns the file extension used for generated output names.
func (k Kind) Ext() string {
	if e, ok := kindExtensions[k]; ok {
		return e
	}
	return "bin"
}

// kindForName maps a declared filename to a kind based on its extension.
// Used when content sniffing is inconclusive, and for brotli, which has no
// detectable magic bytes at all.
func kindForName(name string) Kind {
	switch strings.ToLower(ext(name)) {
	case "zip":
		return KindZip
	case "7z":
		return KindSevenZip
	case "tar":
		return KindTar
	case "rar":
		return KindRar
	case "gz", "tgz":
		return KindGzip
	case "bz2":
		return KindBzip2
	case "xz":
		return KindXz
	case "zst":
		return KindZstd
	case "lz4":
		return KindLz4
	case "sz":
		return KindSnappy
	case "br":
		return KindBrotli
	case "json":
		return KindJSON
	case "txt", "text", "log":
		return KindText
	}
	return KindUnknown
}

// ext returns the extension of name without the leading dot.
func ext(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// expandable reports whether segments of this kind are unpacked with the
// format library during recursion instead of being rescanned byte by byte.
func (k Kind) expandable() bool {
	switch k {
	case KindZip, KindSevenZip, KindTar, KindRar, KindGzip, KindBzip2,
		KindXz, KindZstd, KindLz4, KindSnappy, KindBrotli:
		return true
	}
	return false
}

// terminal reports whether recursion stops at segments of this kind. Plain
// text and the firmware images carry no embedded files worth carving.
func (k Kind) terminal() bool {
	switch k {
	case KindJSON, KindText, KindUpgGimbal, KindUpgRcMcu, KindUpgFcs,
		KindUpgBms, KindUpgEsc, KindGpsBin:
		return true
	}
	return false
}
