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
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/LabStubs/services/stubgen/project"
	"github.com/AleutianAI/LabStubs/services/stubgen/rules"
)

// =============================================================================
// WRITER
// =============================================================================

// Writer regenerates committed stubs in place.
//
// A stub is replaced only after its scratch rendering was normalized
// successfully, so a failing file keeps its previous stub.
//
// Thread Safety: Safe for concurrent use on distinct labs.
type Writer struct {
	engine
}

// NewWriter creates a writer for the repository at root.
func NewWriter(root string, rs rules.RuleSet, opts ...Option) *Writer {
	return &Writer{engine: newEngine(root, rs, opts)}
}

// WriteAll regenerates every configured stub of every lab.
//
// Outputs:
//
//	[]StubPair - Pairs whose stub was written, in configuration order
//	error - Per-file failures joined with errors.Join; other files continue
func (w *Writer) WriteAll(ctx context.Context, labs []project.Lab) ([]StubPair, error) {
	runID := w.newRunID()
	ctx, span := startRunSpan(ctx, "Writer.WriteAll", runID, len(labs))
	defer span.End()

	var pairs []StubPair
	for _, lab := range labs {
		pairs = append(pairs, PairsFor(w.root, lab)...)
	}

	written := make([]bool, len(pairs))
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(w.workers)
	for i, pair := range pairs {
		g.Go(func() error {
			if err := w.Write(ctx, pair); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			written[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var out []StubPair
	for i, pair := range pairs {
		if written[i] {
			out = append(out, pair)
		}
	}

	span.SetAttributes(
		attribute.String("check.run_id", runID),
		attribute.Int("check.written", len(out)),
		attribute.Int("check.failed", len(errs)),
	)
	if len(errs) > 0 {
		span.SetStatus(codes.Error, "some stubs were not written")
	}
	w.logger.Info("Stub generation finished",
		slog.String("run_id", runID),
		slog.Int("written", len(out)),
		slog.Int("failed", len(errs)),
	)
	return out, errors.Join(errs...)
}

// Write regenerates the stub of one pair.
func (w *Writer) Write(ctx context.Context, pair StubPair) (err error) {
	ctx, span := startPairSpan(ctx, "Writer.Write", pair)
	defer span.End()
	defer func() {
		recordWriteMetrics(ctx, err == nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			w.logger.Warn("Stub not written",
				slog.String("file", pair.RelPath),
				slog.String("error", err.Error()),
			)
		}
	}()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", pair.RelPath, err)
	}

	defer removeScratch(pair)
	if err := w.renderScratch(ctx, pair); err != nil {
		return fmt.Errorf("%s: %w", pair.RelPath, err)
	}
	if err := os.Rename(pair.Scratch, pair.Stub); err != nil {
		return fmt.Errorf("%s: replace stub: %w", pair.RelPath, err)
	}

	w.logger.Info("Stub written", slog.String("file", pair.RelPath), slog.String("stub", pair.Stub))
	return nil
}
