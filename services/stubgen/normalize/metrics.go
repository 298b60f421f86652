// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package normalize

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for normalize operations.
var (
	tracer = otel.Tracer("labstubs.normalize")
	meter  = otel.Meter("labstubs.normalize")
)

// Metrics for tool invocations.
var (
	toolLatency metric.Float64Histogram
	toolTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		toolLatency, err = meter.Float64Histogram(
			"normalize_duration_seconds",
			metric.WithDescription("Duration of external normalizer invocations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		toolTotal, err = meter.Int64Counter(
			"normalize_total",
			metric.WithDescription("Total number of external normalizer invocations"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startToolSpan creates a span for one tool invocation.
func startToolSpan(ctx context.Context, tool, filePath string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Runner.Run",
		trace.WithAttributes(
			attribute.String("normalize.tool", tool),
			attribute.String("normalize.file_path", filePath),
		),
	)
}

// setToolSpanResult sets the result attributes on a tool span.
func setToolSpanResult(span trace.Span, exitCode int, success bool) {
	span.SetAttributes(
		attribute.Int("normalize.exit_code", exitCode),
		attribute.Bool("normalize.success", success),
	)
}

// recordToolMetrics records metrics for one tool invocation.
func recordToolMetrics(ctx context.Context, tool string, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Bool("success", success),
	)
	toolLatency.Record(ctx, duration.Seconds(), attrs)
	toolTotal.Add(ctx, 1, attrs)
}
