// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the CLI knobs in a YAML file. Pointer fields
// distinguish "not set" from a zero value; set fields override the flags.
type fileConfig struct {
	Concurrency       *int   `yaml:"concurrency"`
	CreateDestination *bool  `yaml:"create_destination"`
	ExpandNested      *bool  `yaml:"expand_nested"`
	MaxDepth          *int   `yaml:"max_depth"`
	MaxExtractionSize *int64 `yaml:"max_extraction_size"`
	MaxFiles          *int64 `yaml:"max_files"`
	MaxInputSize      *int64 `yaml:"max_input_size"`
	MinSegmentLength  *int64 `yaml:"min_segment_length"`
	Overwrite         *bool  `yaml:"overwrite"`
}

// loadFileConfig reads and strictly parses a YAML config file, unknown
// keys are an error.
func loadFileConfig(path string) (*fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return &fc, nil
}

// apply copies every set field onto the parsed CLI values.
func (fc *fileConfig) apply(cli *CLI) {
	if fc.Concurrency != nil {
		cli.Concurrency = *fc.Concurrency
	}
	if fc.CreateDestination != nil {
		cli.CreateDestination = *fc.CreateDestination
	}
	if fc.ExpandNested != nil {
		cli.NoExpand = !*fc.ExpandNested
	}
	if fc.MaxDepth != nil {
		cli.MaxDepth = *fc.MaxDepth
	}
	if fc.MaxExtractionSize != nil {
		cli.MaxExtractionSize = *fc.MaxExtractionSize
	}
	if fc.MaxFiles != nil {
		cli.MaxFiles = *fc.MaxFiles
	}
	if fc.MaxInputSize != nil {
		cli.MaxInputSize = *fc.MaxInputSize
	}
	if fc.MinSegmentLength != nil {
		cli.MinSegmentLength = *fc.MinSegmentLength
	}
	if fc.Overwrite != nil {
		cli.Overwrite = *fc.Overwrite
	}
}
