// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// clock seam for duration capture in tests
var now = time.Now

var (
	// ErrMaxFilesExceeded is returned by budget checks when the configured
	// maximum number of emitted files would be exceeded.
	ErrMaxFilesExceeded = errors.New("maximum file count exceeded")

	// ErrMaxExtractionSizeExceeded is returned by budget checks when the
	// configured maximum total output size would be exceeded.
	ErrMaxExtractionSizeExceeded = errors.New("maximum extraction size exceeded")
)

// Unpack reads src and carves every embedded file it can resolve into dst
// on the local filesystem. The input is read fully into memory, bounded by
// the configured maximum input size. Unresolvable candidates and sink
// failures are logged and counted but do not abort the run; an error is
// returned only when the input or the destination is unusable.
func Unpack(ctx context.Context, src io.Reader, dst string, cfg *Config) error {
	if cfg == nil {
		cfg = NewConfig()
	}
	sink, err := NewSinkDisk(dst, cfg.CreateDestination(), cfg.Overwrite())
	if err != nil {
		return fmt.Errorf("cannot open destination: %w", err)
	}
	return UnpackTo(ctx, sink, src, cfg)
}

// UnpackTo reads src and carves into the given sink.
func UnpackTo(ctx context.Context, sink Sink, src io.Reader, cfg *Config) error {
	if cfg == nil {
		cfg = NewConfig()
	}
	limitedReader := newLimitErrorReader(src, cfg.MaxInputSize())
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return fmt.Errorf("cannot read input: %w", err)
	}
	return carve(ctx, sink, data, cfg)
}

// UnpackFile carves the file at src into dst. On unix the input is
// memory-mapped instead of read, carving a multi-gigabyte firmware image
// does not duplicate it in memory.
func UnpackFile(ctx context.Context, src, dst string, cfg *Config) error {
	if cfg == nil {
		cfg = NewConfig()
	}
	data, release, err := mapInput(src)
	if err != nil {
		return fmt.Errorf("cannot open input: %w", err)
	}
	defer release()

	// same boundary as the limit reader on the streaming path, which
	// rejects once the limit is reached
	if cfg.MaxInputSize() != -1 && int64(len(data)) >= cfg.MaxInputSize() {
		return fmt.Errorf("input exceeds maximum input size of %d bytes", cfg.MaxInputSize())
	}

	sink, err := NewSinkDisk(dst, cfg.CreateDestination(), cfg.Overwrite())
	if err != nil {
		return fmt.Errorf("cannot open destination: %w", err)
	}
	return carve(ctx, sink, data, cfg)
}

// carve runs the engine over data and delivers telemetry afterwards.
func carve(ctx context.Context, sink Sink, data []byte, cfg *Config) error {
	td := &TelemetryData{InputSize: int64(len(data))}
	defer cfg.TelemetryHook()(ctx, td)
	defer captureExtractionDuration(td, now())

	return newEngine(cfg, sink, td).run(ctx, data)
}

// captureExtractionDuration stores the time elapsed since start.
func captureExtractionDuration(td *TelemetryData, start time.Time) {
	td.ExtractionDuration = now().Sub(start)
}
