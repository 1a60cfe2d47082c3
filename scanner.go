// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

// candidate is a tentative embedded-file start found by the scanner. It is
// consumed immediately by boundary resolution.
type candidate struct {
	offset int
	sig    *Signature
}

// scanner walks one buffer and emits candidates in strictly increasing
// offset order. Scan state is fresh per buffer; the engine drives it and may
// reposition it after a failed resolution.
type scanner struct {
	reg *Registry
	buf *buffer
	cur int
}

func newScanner(reg *Registry, buf *buffer) *scanner {
	return &scanner{reg: reg, buf: buf}
}

// next returns the next candidate at or after the cursor. After emitting a
// candidate the cursor skips the kind's minimum structural length — a
// conservative skip that can never pass the true end, so signatures nested
// beyond the header are still visited. Unrecognized bytes advance the cursor
// one byte at a time.
func (s *scanner) next() (candidate, bool) {
	for s.cur < len(s.buf.data) {
		sig, ok := s.reg.match(s.buf.data, s.cur)
		if !ok {
			s.cur++
			continue
		}
		c := candidate{offset: s.cur, sig: sig}
		s.cur += sig.MinLength
		return c, true
	}
	return candidate{}, false
}

// resume repositions the cursor. The engine resumes one byte past a
// candidate whose boundary could not be resolved, since the match itself may
// have been a coincidental byte pattern.
func (s *scanner) resume(offset int) {
	s.cur = offset
}
