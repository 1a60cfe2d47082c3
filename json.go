// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"encoding/json"
	"fmt"
)

// magicBytesJSON are the opening bytes worth treating as a document start.
// A lone brace appears everywhere in binary data; an object opening a
// string key or an array of strings or objects is specific enough to probe.
var magicBytesJSON = []Magic{
	{Bytes: []byte(`{"`)},
	{Bytes: []byte(`["`)},
	{Bytes: []byte(`[{`)},
}

// minLengthJSON fits the smallest keyed object.
const minLengthJSON = 7

// isJSON checks if data opens like a JSON document.
func isJSON(data []byte) bool {
	for _, m := range magicBytesJSON {
		if matchesMagic(data, 0, m) {
			return true
		}
	}
	return false
}

// lengthOfJSON resolves the extent of a JSON document starting at data[0].
// A bracket scan with string and escape awareness finds where the opening
// bracket closes, and the slice up to there must parse as valid JSON.
func lengthOfJSON(data []byte) (Extent, error) {
	if !isJSON(data) {
		return Extent{}, fmt.Errorf("missing document start")
	}

	depth := 0
	inString := false
	escaped := false
	for i, b := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth > 0 {
				continue
			}
			end := i + 1
			if !json.Valid(data[:end]) {
				return Extent{}, fmt.Errorf("document does not parse")
			}
			return Extent{Length: int64(end), DataLen: int64(end)}, nil
		}
	}
	return Extent{}, fmt.Errorf("document does not close")
}
