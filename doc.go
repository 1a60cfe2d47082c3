// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

// Package autelfw carves embedded files out of Autel firmware images.
//
// The images are containers without an index: embedded files are found by
// scanning for format signatures, resolving each candidate's exact extent
// with a format-specific length reader, and recursing into every extracted
// payload until nothing new is found. Supported starting points are the
// vendor "<filetransfer>" container records, common archive formats (zip,
// 7zip, tar, rar), compressed streams (gzip, bzip2, xz, zstd, lz4, snappy)
// and JSON documents; extracted payloads are additionally classified as
// vendor upgrade images, GPS firmware, JSON or text.
//
// Extraction is driven by [Unpack], [UnpackFile] or [UnpackTo], writing to
// the local filesystem, a memory sink or a custom [Sink]. Configuration is
// done using [Config] in an option pattern style, bounding recursion depth,
// file count, input and output sizes. Telemetry data for each run is
// captured as [TelemetryData] and handed to an optional hook.
package autelfw
