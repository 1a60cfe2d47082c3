// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

// SinkDiscard drops everything it receives. Useful for dry runs where only
// the log output and telemetry are of interest.
type SinkDiscard struct{}

// Emit discards the file.
func (SinkDiscard) Emit(string, Kind, []byte) error {
	return nil
}
