// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"context"
	"encoding/json"
	"time"
)

// TelemetryData holds all telemetry data of one extraction run.
type TelemetryData struct {
	// BoundaryErrors is the number of candidates whose extent could not be
	// resolved and that were dropped
	BoundaryErrors int64 `json:"boundary_errors"`

	// CandidatesScanned is the number of signature matches the scanner
	// reported across all buffers
	CandidatesScanned int64 `json:"candidates_scanned"`

	// DepthTruncations is the number of segments not descended into because
	// the recursion depth limit was reached
	DepthTruncations int64 `json:"depth_truncations"`

	// EmittedBytes is the total size of all emitted files
	EmittedBytes int64 `json:"emitted_bytes"`

	// EmittedFiles is the number of emitted files
	EmittedFiles int64 `json:"emitted_files"`

	// ExtractionDuration is the time the run took
	ExtractionDuration time.Duration `json:"extraction_duration"`

	// FilesByKind counts emitted files per detected kind
	FilesByKind map[string]int64 `json:"files_by_kind"`

	// InputSize is the size of the input
	InputSize int64 `json:"input_size"`

	// LastBoundaryError is the last boundary resolution failure
	LastBoundaryError error `json:"last_boundary_error"`

	// LastSinkError is the last output sink failure
	LastSinkError error `json:"last_sink_error"`

	// MaxDepthSeen is the deepest recursion level reached
	MaxDepthSeen int64 `json:"max_depth_seen"`

	// SinkErrors is the number of files the output sink failed to persist
	SinkErrors int64 `json:"sink_errors"`

	// SkippedTiny is the number of resolved segments below the minimum
	// segment length that were not emitted
	SkippedTiny int64 `json:"skipped_tiny"`

	// Truncated is true when the run stopped early because a file or size
	// budget was exhausted
	Truncated bool `json:"truncated"`
}

// countKind increments the per-kind counter for an emitted file.
func (m *TelemetryData) countKind(k Kind) {
	if m.FilesByKind == nil {
		m.FilesByKind = map[string]int64{}
	}
	m.FilesByKind[k.String()]++
}

// String returns a string representation of [TelemetryData].
func (m TelemetryData) String() string {
	b, _ := json.Marshal(m)
	return string(b)
}

// MarshalJSON implements the [encoding/json.Marshaler] interface.
func (m TelemetryData) MarshalJSON() ([]byte, error) {
	var lastBoundary, lastSink string
	if m.LastBoundaryError != nil {
		lastBoundary = m.LastBoundaryError.Error()
	}
	if m.LastSinkError != nil {
		lastSink = m.LastSinkError.Error()
	}

	type Alias TelemetryData
	return json.Marshal(&struct {
		LastBoundaryError string `json:"last_boundary_error"`
		LastSinkError     string `json:"last_sink_error"`
		*Alias
	}{
		LastBoundaryError: lastBoundary,
		LastSinkError:     lastSink,
		Alias:             (*Alias)(&m),
	})
}

// merge folds the counters of other into m. Used when sibling jobs are
// processed in parallel and each collects into its own TelemetryData.
func (m *TelemetryData) merge(other *TelemetryData) {
	m.BoundaryErrors += other.BoundaryErrors
	m.CandidatesScanned += other.CandidatesScanned
	m.DepthTruncations += other.DepthTruncations
	m.EmittedBytes += other.EmittedBytes
	m.EmittedFiles += other.EmittedFiles
	m.SinkErrors += other.SinkErrors
	m.SkippedTiny += other.SkippedTiny
	if other.MaxDepthSeen > m.MaxDepthSeen {
		m.MaxDepthSeen = other.MaxDepthSeen
	}
	if other.LastBoundaryError != nil {
		m.LastBoundaryError = other.LastBoundaryError
	}
	if other.LastSinkError != nil {
		m.LastSinkError = other.LastSinkError
	}
	if other.Truncated {
		m.Truncated = true
	}
	for k, v := range other.FilesByKind {
		if m.FilesByKind == nil {
			m.FilesByKind = map[string]int64{}
		}
		m.FilesByKind[k] += v
	}
}

// TelemetryHook is a function type that performs operations on
// [TelemetryData] after a run has finished, which can be used to submit the
// data to a telemetry service, for example.
type TelemetryHook func(context.Context, *TelemetryData)
