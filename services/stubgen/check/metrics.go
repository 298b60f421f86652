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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for check operations.
var (
	tracer = otel.Tracer("labstubs.check")
	meter  = otel.Meter("labstubs.check")
)

// Metrics for stub checks.
var (
	checkLatency metric.Float64Histogram
	checkTotal   metric.Int64Counter
	writeTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		checkLatency, err = meter.Float64Histogram(
			"stub_check_duration_seconds",
			metric.WithDescription("Duration of per-file stub checks"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		checkTotal, err = meter.Int64Counter(
			"stub_check_total",
			metric.WithDescription("Total number of per-file stub checks by status"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		writeTotal, err = meter.Int64Counter(
			"stub_write_total",
			metric.WithDescription("Total number of stubs regenerated in place"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startRunSpan creates the span of a whole run.
func startRunSpan(ctx context.Context, name, runID string, labs int) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String("check.run_id", runID),
			attribute.Int("check.lab_count", labs),
		),
	)
}

// startPairSpan creates the span of one stub pair.
func startPairSpan(ctx context.Context, name string, pair StubPair) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String("check.lab", pair.Lab),
			attribute.String("check.file", pair.RelPath),
		),
	)
}

// recordCheckMetrics records metrics for one stub check.
func recordCheckMetrics(ctx context.Context, status Status, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("status", status.String()))
	checkLatency.Record(ctx, duration.Seconds(), attrs)
	checkTotal.Add(ctx, 1, attrs)
}

// recordWriteMetrics records metrics for one stub write.
func recordWriteMetrics(ctx context.Context, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	writeTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
