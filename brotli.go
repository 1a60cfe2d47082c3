// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"io"

	"github.com/andybalholm/brotli"
)

// isBrotli returns always false, because brotli has no unique magic bytes.
// Brotli payloads are recognized by their declared name only, so the kind
// never starts a carve and has no signature in the registry.
func isBrotli(data []byte) bool {
	return false
}

// decompressBrotliStream returns an io.Reader that decompresses src with
// the brotli algorithm.
func decompressBrotliStream(src io.Reader) (io.Reader, error) {
	return brotli.NewReader(src), nil
}
