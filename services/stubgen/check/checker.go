// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package check

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/LabStubs/services/stubgen/diff"
	"github.com/AleutianAI/LabStubs/services/stubgen/generator"
	"github.com/AleutianAI/LabStubs/services/stubgen/normalize"
	"github.com/AleutianAI/LabStubs/services/stubgen/project"
	"github.com/AleutianAI/LabStubs/services/stubgen/rules"
	"github.com/AleutianAI/LabStubs/services/stubgen/telemetry"
)

// Normalizer brings a file to the canonical stub style in place.
//
// *normalize.Pipeline is the production implementation.
type Normalizer interface {
	Normalize(ctx context.Context, filePath string) error
}

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a Checker, Writer or Watcher.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	workers    int
	normalizer Normalizer
	runID      string
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithWorkers sets how many files are processed concurrently.
// Values below 1 mean sequential processing.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = max(1, n)
	}
}

// WithNormalizer replaces the default black + isort pipeline.
func WithNormalizer(n Normalizer) Option {
	return func(o *options) {
		if n != nil {
			o.normalizer = n
		}
	}
}

// WithRunID fixes the run id instead of generating one per run.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

// engine regenerates stubs; shared by Checker and Writer.
type engine struct {
	root       string
	rules      rules.RuleSet
	gen        *generator.Generator
	normalizer Normalizer
	logger     *slog.Logger
	workers    int
	runID      string
}

func newEngine(root string, rs rules.RuleSet, opts []Option) engine {
	o := options{logger: slog.Default(), workers: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.normalizer == nil {
		o.normalizer = normalize.DefaultPipeline(
			normalize.WithWorkingDir(root),
			normalize.WithLogger(o.logger),
		)
	}
	return engine{
		root:       root,
		rules:      rs,
		gen:        generator.New(generator.WithLogger(o.logger)),
		normalizer: o.normalizer,
		logger:     o.logger,
		workers:    o.workers,
		runID:      o.runID,
	}
}

func (e *engine) newRunID() string {
	if e.runID != "" {
		return e.runID
	}
	return uuid.NewString()
}

// renderScratch generates the stub of pair, writes it to the scratch path
// and normalizes it there. The caller owns the scratch file afterwards.
func (e *engine) renderScratch(ctx context.Context, pair StubPair) error {
	source, err := os.ReadFile(pair.Implementation)
	if err != nil {
		return fmt.Errorf("read implementation: %w", err)
	}

	stub, err := e.gen.Generate(ctx, source, pair.RelPath, e.rules)
	if err != nil {
		return err
	}

	if err := os.WriteFile(pair.Scratch, []byte(stub), 0o644); err != nil {
		return fmt.Errorf("write scratch file: %w", err)
	}

	return e.normalizer.Normalize(ctx, pair.Scratch)
}

// removeScratch deletes the scratch file. Errors are ignored.
func removeScratch(pair StubPair) {
	_ = os.Remove(pair.Scratch)
}

// exists reports whether path exists; stat errors other than not-exist
// are returned.
func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// =============================================================================
// CHECKER
// =============================================================================

// Checker detects drift between implementations and committed stubs.
//
// Thread Safety: Safe for concurrent use. Concurrent runs over the same
// labs collide on scratch paths and must be avoided by the caller.
type Checker struct {
	engine
}

// NewChecker creates a checker for the repository at root.
//
// Inputs:
//
//	root - Repository root; lab names are resolved against it
//	rs - Stub rules of the project
//	opts - Optional settings
func NewChecker(root string, rs rules.RuleSet, opts ...Option) *Checker {
	return &Checker{engine: newEngine(root, rs, opts)}
}

// CheckAll checks every configured stub of every lab.
//
// Description:
//
//	Labs without a stub list are skipped. For each pair the checker
//	reports MissingImplementation, then MissingStub, and otherwise
//	regenerates the stub into the scratch file, normalizes it and compares
//	it byte for byte with the committed stub. Per-file errors become
//	StatusFailed results; the run always covers every file.
//
// Inputs:
//
//	ctx - Context for cancellation; files not started when it is canceled
//	      are reported as StatusFailed with ctx.Err()
//	labs - Labs to check, in the order they are reported
//
// Outputs:
//
//	*Report - Per-lab results in configuration order
//
// Thread Safety: Files are processed by up to the configured number of
// workers, each with its own scratch path.
func (c *Checker) CheckAll(ctx context.Context, labs []project.Lab) *Report {
	runID := c.newRunID()
	ctx, span := startRunSpan(ctx, "Checker.CheckAll", runID, len(labs))
	defer span.End()

	logger := c.logger.With(slog.String("run_id", runID))
	start := time.Now()

	type job struct {
		lab, file int
		pair      StubPair
	}
	var jobs []job

	report := &Report{RunID: runID, OverallOK: true}
	for _, lab := range labs {
		if !lab.HasStubs() {
			logger.Debug("Skipping lab without stubs", slog.String("lab", lab.Name))
			continue
		}
		logger.Info("Processing lab", slog.String("lab", lab.Name))

		pairs := PairsFor(c.root, lab)
		li := len(report.Labs)
		report.Labs = append(report.Labs, LabReport{
			Lab:     lab.Name,
			Results: make([]CheckResult, len(pairs)),
		})
		for fi, pair := range pairs {
			jobs = append(jobs, job{lab: li, file: fi, pair: pair})
		}
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	for _, j := range jobs {
		g.Go(func() error {
			report.Labs[j.lab].Results[j.file] = c.checkPair(ctx, j.pair)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range report.Results() {
		if !res.OK() {
			report.OverallOK = false
		}
	}

	counts := report.Counts()
	span.SetAttributes(
		attribute.Bool("check.overall_ok", report.OverallOK),
		attribute.Int("check.file_count", len(report.Results())),
	)
	if !report.OverallOK {
		span.SetStatus(codes.Error, "stubs out of date")
	}
	logger.Info("Stub check finished",
		slog.Bool("overall_ok", report.OverallOK),
		slog.Int("match", counts[StatusMatch]),
		slog.Int("mismatch", counts[StatusContentMismatch]),
		slog.Int("missing", counts[StatusMissingImplementation]+counts[StatusMissingStub]),
		slog.Int("failed", counts[StatusFailed]),
		slog.Duration("duration", time.Since(start)),
	)

	return report
}

// CheckPair checks a single stub pair.
func (c *Checker) CheckPair(ctx context.Context, pair StubPair) CheckResult {
	return c.checkPair(ctx, pair)
}

func (c *Checker) checkPair(ctx context.Context, pair StubPair) CheckResult {
	ctx, span := startPairSpan(ctx, "Checker.checkPair", pair)
	defer span.End()

	start := time.Now()
	res := c.compare(ctx, pair)
	res.Duration = time.Since(start)

	span.SetAttributes(attribute.String("check.status", res.Status.String()))
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	recordCheckMetrics(ctx, res.Status, res.Duration)

	attrs := []any{
		slog.String("file", pair.RelPath),
		slog.String("status", res.Status.String()),
	}
	logger := telemetry.LoggerWithTrace(ctx, c.logger)
	switch res.Status {
	case StatusMatch:
		logger.Debug("Stub is up to date", attrs...)
	case StatusFailed:
		logger.Warn("Stub check failed", append(attrs, slog.String("error", res.Err.Error()))...)
	default:
		logger.Warn("Stub is not relevant", attrs...)
	}
	return res
}

func (c *Checker) compare(ctx context.Context, pair StubPair) CheckResult {
	res := CheckResult{Pair: pair}

	if err := ctx.Err(); err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	ok, err := exists(pair.Implementation)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	if !ok {
		res.Status = StatusMissingImplementation
		return res
	}

	ok, err = exists(pair.Stub)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	if !ok {
		res.Status = StatusMissingStub
		return res
	}

	defer removeScratch(pair)
	if err := c.renderScratch(ctx, pair); err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	expected, err := os.ReadFile(pair.Scratch)
	if err != nil {
		res.Status, res.Err = StatusFailed, fmt.Errorf("read scratch file: %w", err)
		return res
	}
	actual, err := os.ReadFile(pair.Stub)
	if err != nil {
		res.Status, res.Err = StatusFailed, fmt.Errorf("read stub: %w", err)
		return res
	}

	d, err := diff.Compare(pair.RelPath+" (expected)", pair.RelPath+" (committed)", string(expected), string(actual))
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	if d == nil {
		res.Status = StatusMatch
		return res
	}
	res.Status = StatusContentMismatch
	res.Diagnostic = d
	return res
}
