// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"path"
	"strings"
)

// Sink receives the extracted files. The relative path is engine-generated,
// deterministic for identical input, and already confined to the
// destination; implementations persist, collect or discard the data.
type Sink interface {
	Emit(relativePath string, kind Kind, data []byte) error
}

// sanitizeName reduces a declared filename to a single safe path component.
// Container entries quote their names and occasionally pad them with NUL
// bytes; archive entries may carry directories or traversal sequences.
// Returns "" if nothing safe remains.
func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(name, `"`)
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(path.Clean("/" + name))
	if name == "/" || name == "." {
		return ""
	}
	return name
}

// sanitizeEntryPath keeps an archive entry's directory structure while
// preventing escape from the destination: the path is cleaned as if rooted,
// which strips traversal sequences and absolute prefixes. Returns "" if
// nothing safe remains.
func sanitizeEntryPath(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.ReplaceAll(name, `\`, "/")
	cleaned := path.Clean("/" + name)
	if cleaned == "/" {
		return ""
	}
	return cleaned[1:]
}

// stem returns name without its extension, the directory under which a
// file's own children are placed.
func stem(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}
