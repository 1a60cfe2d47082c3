// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// offsetTar is the offset where the magic bytes are located in the file
const offsetTar = 257

// minLengthTar is one tar block; no archive is shorter than its first
// header block.
const minLengthTar = 512

// magicBytesTar are the magic bytes for tar files
var magicBytesTar = []Magic{
	{Bytes: []byte("ustar\x00tar\x00")},
	{Bytes: []byte("ustar\x00")},
	{Bytes: []byte("ustar  \x00")},
}

// isTar checks if the header matches the magic bytes for tar files
func isTar(data []byte) bool {
	for _, m := range magicBytesTar {
		if matchesMagic(data, offsetTar, m) {
			return true
		}
	}
	return false
}

// lengthOfTar resolves the extent of a tar archive starting at data[0] by
// walking it header by header and counting consumed bytes. The reader is
// wrapped so the walk cannot seek and every consumed byte is observed; the
// count after the end-of-archive marker is the exact archive length. A
// header error anywhere fails the whole claim, partial tars are noise.
func lengthOfTar(data []byte) (Extent, error) {
	if !isTar(data) {
		return Extent{}, fmt.Errorf("missing ustar magic")
	}

	cr := &countingReader{r: bytes.NewReader(data)}
	tr := tar.NewReader(cr)
	for {
		_, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Extent{}, fmt.Errorf("cannot walk tar header: %w", err)
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			return Extent{}, fmt.Errorf("cannot drain tar entry: %w", err)
		}
	}

	return Extent{Length: cr.n, DataLen: cr.n}, nil
}

// countingReader counts bytes consumed from the wrapped reader. It
// deliberately implements only io.Reader, which keeps archive/tar from
// seeking over entry bodies without the count seeing them.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// expandTar unpacks the regular entries of a carved tar archive.
func expandTar(data []byte, budget int64) ([]expandedFile, error) {
	tr := tar.NewReader(bytes.NewReader(data))

	var files []expandedFile
	var errs []error
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("cannot walk tar header: %w", err))
			break
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := sanitizeEntryPath(hdr.Name)
		if name == "" {
			continue
		}

		var buf bytes.Buffer
		if _, err := io.Copy(limitWriter(&buf, budget), tr); err != nil {
			errs = append(errs, fmt.Errorf("cannot read %s: %w", hdr.Name, err))
			if errors.Is(err, io.ErrShortWrite) {
				files = append(files, expandedFile{name: name, data: buf.Bytes()})
				break
			}
			continue
		}
		budget -= int64(buf.Len())
		files = append(files, expandedFile{name: name, data: buf.Bytes()})
	}
	return files, errors.Join(errs...)
}
