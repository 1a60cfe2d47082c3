// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"context"
	"io"
	"log/slog"
)

// ConfigOption is a function pointer to implement the option pattern
type ConfigOption func(*Config)

// Config provides a configuration struct and options to adjust the
// configuration.
//
// The configuration struct holds all configuration options for a carving
// run. The options can be adjusted using the option pattern style.
//
// The default configuration bounds recursion depth, file count and emitted
// bytes so that pathological or adversarial inputs cannot exhaust the host.
type Config struct {
	// concurrency is the number of sibling jobs processed in parallel.
	// 1 keeps the reference single-threaded model.
	concurrency int

	// createDestination creates the destination directory if it does not exist
	createDestination bool

	// expandNested unpacks carved archives and compressed streams with the
	// format library instead of rescanning their raw bytes
	expandNested bool

	// logger stream for the run
	logger logger

	// maxDepth is the maximum recursion depth of the extraction tree
	maxDepth int

	// maxExtractionSize is the maximum total size of emitted files,
	// including decompressed data. Set value to -1 to disable the check.
	maxExtractionSize int64

	// maxFiles is the maximum number of emitted files.
	// Set value to -1 to disable the check.
	maxFiles int64

	// maxInputSize is the maximum size of the input
	// Set value to -1 to disable the check.
	maxInputSize int64

	// minSegmentLength is the smallest segment worth emitting; shorter
	// resolved extents are dropped
	minSegmentLength int64

	// overwrite defines if files in the destination are overwritten
	overwrite bool

	// registry is the signature table used for carving and classification
	registry *Registry

	// telemetryHook is a function to consume telemetry data after the run
	// finished. Important: do not adjust this value after the run started.
	telemetryHook TelemetryHook
}

// Concurrency returns the number of sibling jobs processed in parallel.
func (c *Config) Concurrency() int {
	return c.concurrency
}

// CreateDestination returns true if the destination directory should be
// created if it does not exist.
func (c *Config) CreateDestination() bool {
	return c.createDestination
}

// ExpandNested returns true if carved archives and compressed streams are
// unpacked with the format library instead of being rescanned byte by byte.
func (c *Config) ExpandNested() bool {
	return c.expandNested
}

// Logger returns the logger.
func (c *Config) Logger() logger {
	return c.logger
}

// MaxDepth returns the maximum recursion depth of the extraction tree.
func (c *Config) MaxDepth() int {
	return c.maxDepth
}

// MaxExtractionSize returns the maximum total size of emitted files.
func (c *Config) MaxExtractionSize() int64 {
	return c.maxExtractionSize
}

// MaxFiles returns the maximum number of emitted files.
func (c *Config) MaxFiles() int64 {
	return c.maxFiles
}

// MaxInputSize returns the maximum size of the input.
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// MinSegmentLength returns the smallest segment length worth emitting.
func (c *Config) MinSegmentLength() int64 {
	return c.minSegmentLength
}

// Overwrite returns true if files in the destination should be overwritten.
func (c *Config) Overwrite() bool {
	return c.overwrite
}

// Registry returns the signature table used for carving and classification.
func (c *Config) Registry() *Registry {
	return c.registry
}

// CheckMaxFiles checks if counter exceeds the configured maximum. If the
// maximum is exceeded, an [ErrMaxFilesExceeded] error is returned.
func (c *Config) CheckMaxFiles(counter int64) error {
	if c.MaxFiles() == -1 {
		return nil
	}
	if counter > c.MaxFiles() {
		return ErrMaxFilesExceeded
	}
	return nil
}

// CheckExtractionSize checks if fileSize exceeds the configured maximum. If
// the maximum is exceeded, an [ErrMaxExtractionSizeExceeded] error is
// returned.
func (c *Config) CheckExtractionSize(fileSize int64) error {
	if c.MaxExtractionSize() == -1 {
		return nil
	}
	if fileSize > c.MaxExtractionSize() {
		return ErrMaxExtractionSizeExceeded
	}
	return nil
}

// TelemetryHook returns the telemetry hook.
func (c *Config) TelemetryHook() TelemetryHook {
	if c.telemetryHook == nil {
		return func(ctx context.Context, d *TelemetryData) {
			// noop
		}
	}
	return c.telemetryHook
}

const (
	defaultConcurrency       = 1             // single-threaded reference model
	defaultCreateDestination = false         // don't create destination directory
	defaultExpandNested      = true          // unpack archives with the format library
	defaultMaxDepth          = 16            // extraction tree depth bound
	defaultMaxExtractionSize = 1 << (10 * 3) // 1 Gb
	defaultMaxFiles          = 100000        // 100k files
	defaultMaxInputSize      = 1 << (10 * 3) // 1 Gb
	defaultMinSegmentLength  = 8             // drop degenerate segments
	defaultOverwrite         = false         // don't overwrite existing files
)

var (
	// slog to discard
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	// no operation telemetry hook
	defaultTelemetryHook = func(ctx context.Context, d *TelemetryData) {
		// noop
	}
)

// NewConfig is a generator option that takes opts as adjustments of the
// default configuration in an option pattern style.
func NewConfig(opts ...ConfigOption) *Config {
	config := &Config{
		concurrency:       defaultConcurrency,
		createDestination: defaultCreateDestination,
		expandNested:      defaultExpandNested,
		logger:            defaultLogger,
		maxDepth:          defaultMaxDepth,
		maxExtractionSize: defaultMaxExtractionSize,
		maxFiles:          defaultMaxFiles,
		maxInputSize:      defaultMaxInputSize,
		minSegmentLength:  defaultMinSegmentLength,
		overwrite:         defaultOverwrite,
		registry:          DefaultRegistry(),
		telemetryHook:     defaultTelemetryHook,
	}

	for _, opt := range opts {
		opt(config)
	}

	return config
}

// WithConcurrency options pattern function to process sibling jobs of one
// tree level in parallel. Values below 1 keep the single-threaded model.
func WithConcurrency(n int) ConfigOption {
	return func(c *Config) {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
	}
}

// WithCreateDestination options pattern function to create the destination
// directory if it does not exist.
func WithCreateDestination(create bool) ConfigOption {
	return func(c *Config) {
		c.createDestination = create
	}
}

// WithExpandNested options pattern function to enable/disable unpacking of
// carved archives and compressed streams with the format library. If
// disabled, carved segments are rescanned byte by byte instead.
func WithExpandNested(expand bool) ConfigOption {
	return func(c *Config) {
		c.expandNested = expand
	}
}

// WithLogger options pattern function to set a custom logger.
func WithLogger(logger logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithMaxDepth options pattern function to set the maximum recursion depth
// of the extraction tree.
func WithMaxDepth(depth int) ConfigOption {
	return func(c *Config) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithMaxExtractionSize options pattern function to set the maximum total
// size of emitted files, including decompressed data. (-1 to disable check)
func WithMaxExtractionSize(maxExtractionSize int64) ConfigOption {
	return func(c *Config) {
		c.maxExtractionSize = maxExtractionSize
	}
}

// WithMaxFiles options pattern function to set the maximum number of emitted
// files during the run. (-1 to disable check)
func WithMaxFiles(maxFiles int64) ConfigOption {
	return func(c *Config) {
		c.maxFiles = maxFiles
	}
}

// WithMaxInputSize options pattern function to set MaxInputSize for the
// input file. (-1 to disable check)
func WithMaxInputSize(maxInputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = maxInputSize
	}
}

// WithMinSegmentLength options pattern function to set the smallest segment
// worth emitting. Degenerate one-byte "files" never make it to the sink.
func WithMinSegmentLength(length int64) ConfigOption {
	return func(c *Config) {
		if length > 0 {
			c.minSegmentLength = length
		}
	}
}

// WithOverwrite options pattern function to specify if files in the
// destination should be overwritten.
func WithOverwrite(enable bool) ConfigOption {
	return func(c *Config) {
		c.overwrite = enable
	}
}

// WithRegistry options pattern function to replace the built-in signature
// table.
func WithRegistry(reg *Registry) ConfigOption {
	return func(c *Config) {
		if reg != nil {
			c.registry = reg
		}
	}
}

// WithTelemetryHook options pattern function to set a [TelemetryHook], which
// is called after the run finished.
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}
