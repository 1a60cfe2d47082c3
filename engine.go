// Copyright Tim Strazzere 2025, 2026
// SPDX-License-Identifier: MPL-2.0

package autelfw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"
)

// jobMode selects what a queued job does with its bytes.
type jobMode int

const (
	// jobModeScan walks the buffer for signature candidates and carves
	// every resolvable claim.
	jobModeScan jobMode = iota

	// jobModeExpand unpacks the buffer with its format library and emits
	// the children.
	jobModeExpand
)

// job is one unit of work on the queue. Scan jobs carry the buffer to
// scan; expand jobs additionally carry the segment's kind and the size
// budget snapshotted when the job was created.
type job struct {
	mode   jobMode
	buf    *buffer
	kind   Kind
	dir    string
	depth  int
	budget int64
}

// carvedFile is one file produced by a job, ready for the sequential
// commit phase. The name is the declared one when the format provides it,
// empty otherwise; buf holds the payload.
type carvedFile struct {
	name      string
	kind      Kind
	buf       *buffer
	truncated bool
	origin    int64
}

// jobResult collects everything a job produced, so that emission, budget
// checks and queueing happen in deterministic order even when sibling jobs
// ran in parallel.
type jobResult struct {
	files []carvedFile
	td    TelemetryData
}

// engine drives one carving run: a breadth-first queue of jobs over the
// extraction tree, rooted at the input buffer. Files are emitted in
// discovery order, parents before children, earlier offsets before later
// ones; two runs over the same input produce identical trees.
type engine struct {
	cfg     *Config
	sink    Sink
	td      *TelemetryData
	stopped bool
}

func newEngine(cfg *Config, sink Sink, td *TelemetryData) *engine {
	return &engine{cfg: cfg, sink: sink, td: td}
}

// run scans input and recursively carves everything it claims. Boundary
// failures and sink failures are counted and logged but never abort the
// run; only context cancellation does.
func (e *engine) run(ctx context.Context, input []byte) error {
	e.cfg.Logger().Info("carving", "size", len(input), "kind", e.cfg.Registry().Identify(input, "").String())

	queue := []job{{mode: jobModeScan, buf: &buffer{data: input}}}
	for len(queue) > 0 && !e.stopped {
		if err := ctx.Err(); err != nil {
			return err
		}

		level := queue
		queue = nil
		results := make([]jobResult, len(level))

		if e.cfg.Concurrency() > 1 && len(level) > 1 {
			g := new(errgroup.Group)
			g.SetLimit(e.cfg.Concurrency())
			for i := range level {
				i := i
				g.Go(func() error {
					results[i] = e.runJob(level[i])
					return nil
				})
			}
			_ = g.Wait()
		} else {
			for i := range level {
				results[i] = e.runJob(level[i])
			}
		}

		for i := range level {
			queue = append(queue, e.commit(level[i], &results[i])...)
			if e.stopped {
				queue = nil
				break
			}
		}
	}
	return nil
}

// runJob executes the compute half of a job. It does not touch the sink,
// the budgets or the shared telemetry, so sibling jobs can run in
// parallel.
func (e *engine) runJob(j job) jobResult {
	switch j.mode {
	case jobModeExpand:
		return e.expandJob(j)
	default:
		return e.scanJob(j)
	}
}

// scanJob walks the buffer for candidates and resolves each one. A
// resolved claim consumes its extent, scanning resumes at the claim end
// and overlapping candidates are left for the recursion into the claim. A
// failed resolution drops the candidate and resumes one byte after it.
func (e *engine) scanJob(j job) jobResult {
	var res jobResult
	reg := e.cfg.Registry()
	if len(j.buf.data) < reg.minCarveLength {
		return res
	}
	s := newScanner(reg, j.buf)

	for {
		c, ok := s.next()
		if !ok {
			return res
		}
		res.td.CandidatesScanned++

		ext, err := c.sig.lengthOf(j.buf.data[c.offset:])
		if err != nil {
			berr := &BoundaryError{Offset: j.buf.abs(c.offset), Kind: c.sig.Kind, Err: err}
			res.td.BoundaryErrors++
			res.td.LastBoundaryError = berr
			e.cfg.Logger().Debug("dropping candidate", "error", berr)
			s.resume(c.offset + 1)
			continue
		}

		// a nested buffer that resolves to one claim over its whole self
		// is the segment the parent already emitted, only its interior is
		// interesting
		if j.depth > 0 && c.offset == 0 && ext.Length == int64(len(j.buf.data)) {
			e.cfg.Logger().Debug("segment claims itself, scanning interior", "kind", c.sig.Kind.String())
			s.resume(c.offset + 1)
			continue
		}

		if ext.DataLen < e.cfg.MinSegmentLength() {
			res.td.SkippedTiny++
			s.resume(c.offset + int(ext.Length))
			continue
		}

		payload := j.buf.view(int64(c.offset)+ext.DataOff, ext.DataLen)
		kind := c.sig.Kind
		if kind == KindEntry {
			kind = reg.Identify(payload.data, ext.Name)
		}
		res.files = append(res.files, carvedFile{
			name:      sanitizeName(ext.Name),
			kind:      kind,
			buf:       payload,
			truncated: ext.Truncated,
			origin:    j.buf.abs(c.offset),
		})
		s.resume(c.offset + int(ext.Length))
	}
}

// expandJob unpacks one expandable segment with its format library.
// Expansion failures degrade to a warning; whatever entries did unpack are
// still emitted. Children below the minimum segment length are skipped, the
// same floor the scanner applies to carved claims.
func (e *engine) expandJob(j job) jobResult {
	var res jobResult

	files, err := expandSegment(j.kind, j.buf.data, j.budget)
	if err != nil {
		if errors.Is(err, io.ErrShortWrite) {
			res.td.Truncated = true
		}
		e.cfg.Logger().Warn("expansion incomplete", "kind", j.kind.String(), "error", err)
	}

	for _, f := range files {
		if int64(len(f.data)) < e.cfg.MinSegmentLength() {
			res.td.SkippedTiny++
			continue
		}
		kind := e.cfg.Registry().Identify(f.data, f.name)
		res.files = append(res.files, carvedFile{
			name: f.name,
			kind: kind,
			buf:  &buffer{data: f.data},
		})
	}
	return res
}

// commit runs the sequential half of a job: telemetry merge, budget
// checks, naming, emission and the recursion decision for every produced
// file. It returns the follow-up jobs.
func (e *engine) commit(j job, res *jobResult) []job {
	e.td.merge(&res.td)

	var next []job
	used := make(map[string]bool, len(res.files))
	for i, f := range res.files {
		if err := e.cfg.CheckMaxFiles(e.td.EmittedFiles + 1); err != nil {
			e.noteBudget(err)
			return next
		}
		if err := e.cfg.CheckExtractionSize(e.td.EmittedBytes + int64(len(f.buf.data))); err != nil {
			e.noteBudget(err)
			return next
		}

		name := f.name
		if name == "" {
			name = fmt.Sprintf("%04d.%s", i+1, f.kind.Ext())
		}
		rel := dedupe(used, path.Join(j.dir, name))

		if f.truncated {
			e.cfg.Logger().Warn("declared length overruns the data, clamped", "path", rel, "offset", f.origin)
		}

		depth := j.depth + 1
		if err := e.sink.Emit(rel, f.kind, f.buf.data); err != nil {
			e.td.SinkErrors++
			e.td.LastSinkError = err
			e.cfg.Logger().Warn("cannot emit file", "path", rel, "error", err)
		} else {
			e.td.EmittedFiles++
			e.td.EmittedBytes += int64(len(f.buf.data))
			e.td.countKind(f.kind)
			if int64(depth) > e.td.MaxDepthSeen {
				e.td.MaxDepthSeen = int64(depth)
			}
			e.cfg.Logger().Info("emitted", "path", rel, "kind", f.kind.String(), "size", len(f.buf.data))
		}

		if f.kind.terminal() {
			continue
		}
		if depth >= e.cfg.MaxDepth() {
			e.td.DepthTruncations++
			e.cfg.Logger().Warn("max depth reached, not descending", "path", rel, "depth", depth)
			continue
		}

		// descendants live under the emitted file's stem. The stem is
		// reserved in the same namespace as the filenames, siblings whose
		// stems coincide (a.zip, a.tar) would otherwise share a subtree
		// and their children could collide at the sink
		dir := dedupe(used, path.Join(path.Dir(rel), stem(path.Base(rel))))
		child := job{mode: jobModeScan, buf: f.buf, dir: dir, depth: depth}
		if f.kind.expandable() && e.cfg.ExpandNested() {
			child.mode = jobModeExpand
			child.kind = f.kind
			child.budget = e.remainingBudget()
		}
		next = append(next, child)
	}
	return next
}

// noteBudget records that a file or size budget ended the run early.
func (e *engine) noteBudget(err error) {
	if !e.td.Truncated {
		e.cfg.Logger().Warn("budget exhausted, stopping", "error", err)
	}
	e.td.Truncated = true
	e.stopped = true
}

// remainingBudget is the extraction size still available, used to cap the
// decompressed output of expand jobs.
func (e *engine) remainingBudget() int64 {
	if e.cfg.MaxExtractionSize() == -1 {
		return math.MaxInt64
	}
	if r := e.cfg.MaxExtractionSize() - e.td.EmittedBytes; r > 0 {
		return r
	}
	return 0
}

// dedupe reserves rel in used, appending _2, _3 and so on ahead of the
// extension when the name is taken. Collisions happen when an archive
// holds entries that sanitize to the same path.
func dedupe(used map[string]bool, rel string) string {
	if !used[rel] {
		used[rel] = true
		return rel
	}
	e := path.Ext(rel)
	base := strings.TrimSuffix(rel, e)
	for i := 2; ; i++ {
		cand := fmt.Sprintf("%s_%d%s", base, i, e)
		if !used[cand] {
			used[cand] = true
			return cand
		}
	}
}
