// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/alecthomas/kong"

	autelfw "github.com/strazzere/autel-fw-parser"
)

// CLI are the cli parameters for the autelfw binary
type CLI struct {
	Input             string           `arg:"" name:"input" help:"Path to firmware image. (\"-\" for STDIN)"`
	Output            string           `arg:"" name:"output" optional:"" help:"Output directory. Without it, found files are listed instead of written."`
	Concurrency       int              `optional:"" default:"1" help:"Process sibling segments with this many workers."`
	Config            string           `optional:"" help:"Path to a YAML file with the same knobs as the flags." type:"existingfile"`
	CreateDestination bool             `short:"c" help:"Create output directory if it does not exist."`
	MaxDepth          int              `optional:"" default:"16" help:"Maximum recursion depth into extracted files."`
	MaxExtractionSize int64            `optional:"" default:"1073741824" help:"Maximum extraction size that is allowed (in bytes). (disable check: -1)"`
	MaxFiles          int64            `optional:"" default:"100000" help:"Maximum files that are extracted before stop. (disable check: -1)"`
	MaxInputSize      int64            `optional:"" default:"1073741824" help:"Maximum input size that is allowed (in bytes). (disable check: -1)"`
	MinSegmentLength  int64            `optional:"" default:"8" help:"Smallest resolved segment worth emitting (in bytes)."`
	NoExpand          bool             `optional:"" help:"Do not unpack nested archives, rescan their raw bytes instead."`
	Overwrite         bool             `short:"O" help:"Overwrite if exist."`
	Preview           int              `short:"p" optional:"" default:"0" help:"In list mode, hexdump this many leading bytes of each file."`
	Telemetry         bool             `short:"T" optional:"" default:"false" help:"Print telemetry to log after the run."`
	Verbose           int              `short:"v" type:"counter" help:"Verbose logging, repeat for more."`
	Version           kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// Run is the entrypoint into autelfw as a cli tool
func Run(version, commit, date string) {
	ctx := context.Background()
	var cli CLI
	kong.Parse(&cli,
		kong.Description("Carve embedded files out of Autel firmware images"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// verbosity: warnings by default, -v for progress, -vv for candidates
	logLevel := slog.LevelWarn
	switch {
	case cli.Verbose == 1:
		logLevel = slog.LevelInfo
	case cli.Verbose >= 2:
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if cli.Config != "" {
		fileCfg, err := loadFileConfig(cli.Config)
		if err != nil {
			logger.Error("reading config file failed", "err", err)
			os.Exit(-1)
		}
		fileCfg.apply(&cli)
	}

	// capture the run's telemetry for the summary and optional log line
	var summary *autelfw.TelemetryData
	telemetryToLog := func(ctx context.Context, td *autelfw.TelemetryData) {
		summary = td
		if cli.Telemetry {
			logger.Info("run finished", "telemetry", td)
		}
	}

	cfg := autelfw.NewConfig(
		autelfw.WithConcurrency(cli.Concurrency),
		autelfw.WithCreateDestination(cli.CreateDestination),
		autelfw.WithExpandNested(!cli.NoExpand),
		autelfw.WithLogger(logger),
		autelfw.WithMaxDepth(cli.MaxDepth),
		autelfw.WithMaxExtractionSize(cli.MaxExtractionSize),
		autelfw.WithMaxFiles(cli.MaxFiles),
		autelfw.WithMaxInputSize(cli.MaxInputSize),
		autelfw.WithMinSegmentLength(cli.MinSegmentLength),
		autelfw.WithOverwrite(cli.Overwrite),
		autelfw.WithTelemetryHook(telemetryToLog),
	)

	listMode := cli.Output == ""
	var err error
	var listSink *autelfw.SinkMemory

	switch {
	case listMode:
		listSink = autelfw.NewSinkMemory()
		var input io.Reader
		if cli.Input == "-" {
			input = bufio.NewReader(os.Stdin)
		} else {
			f, ferr := os.Open(cli.Input)
			if ferr != nil {
				logger.Error("opening input failed", "err", ferr)
				os.Exit(-1)
			}
			defer f.Close()
			input = f
		}
		err = autelfw.UnpackTo(ctx, listSink, input, cfg)
	case cli.Input == "-":
		err = autelfw.Unpack(ctx, bufio.NewReader(os.Stdin), cli.Output, cfg)
	default:
		err = autelfw.UnpackFile(ctx, cli.Input, cli.Output, cfg)
	}
	if err != nil {
		logger.Error("error during extraction", "err", err)
		os.Exit(-1)
	}

	if listMode {
		printListing(os.Stdout, listSink, cli.Preview)
	}
	printSummary(os.Stdout, summary)
}

// printListing writes one line per found file, with an optional hexdump of
// the payload head.
func printListing(w io.Writer, sink *autelfw.SinkMemory, preview int) {
	for _, p := range sink.Paths() {
		f, ok := sink.File(p)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%10d  %-12s  %s\n", len(f.Data), f.Kind, p)
		if preview > 0 {
			hexdump(w, f.Data, preview)
		}
	}
}

// printSummary writes the end-of-run counts, total and per kind.
func printSummary(w io.Writer, td *autelfw.TelemetryData) {
	if td == nil {
		return
	}
	fmt.Fprintf(w, "extracted %d files (%d bytes) from %d bytes of input\n",
		td.EmittedFiles, td.EmittedBytes, td.InputSize)

	kinds := make([]string, 0, len(td.FilesByKind))
	for k := range td.FilesByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-12s %d\n", k, td.FilesByKind[k])
	}

	if td.BoundaryErrors > 0 {
		fmt.Fprintf(w, "  %d candidates could not be resolved\n", td.BoundaryErrors)
	}
	if td.Truncated {
		fmt.Fprintln(w, "  run stopped early, extraction budget exhausted")
	}
}

// hexdump writes up to limit bytes of data in the classic sixteen byte rows
// with an ascii column.
func hexdump(w io.Writer, data []byte, limit int) {
	n := len(data)
	if limit > 0 && n > limit {
		n = limit
	}
	for off := 0; off < n; off += 16 {
		end := off + 16
		if end > n {
			end = n
		}
		fmt.Fprintf(w, "%08x  ", off)
		for i := off; i < off+16; i++ {
			if i == off+8 {
				fmt.Fprint(w, " ")
			}
			if i < end {
				fmt.Fprintf(w, "%02x ", data[i])
			} else {
				fmt.Fprint(w, "   ")
			}
		}
		fmt.Fprint(w, " |")
		for i := off; i < end; i++ {
			b := data[i]
			if b < 0x20 || b > 0x7e {
				b = '.'
			}
			fmt.Fprintf(w, "%c", b)
		}
		fmt.Fprintln(w, "|")
	}
	if len(data) > n {
		fmt.Fprintf(w, "... (%d more bytes)\n", len(data)-n)
	}
}
