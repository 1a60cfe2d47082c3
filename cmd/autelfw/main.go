// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/strazzere/autel-fw-parser/cmd"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// main starts the autelfw cli
func main() {
	cmd.Run(version, commit, date)
}
