// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry provides OpenTelemetry-based observability for labstubs.
//
// The normalize and check packages use otel.Tracer() and otel.Meter()
// directly. Without Init they use the no-op providers, so a plain run pays
// nothing for instrumentation.
//
// # Backends
//
// Traces go to an OTLP receiver or to a stdout exporter that writes to
// stderr. Metrics go to a stdout exporter or to a private Prometheus
// registry; a CI job can have that registry written to a node-exporter
// textfile when the run ends, since a short-lived CLI cannot be scraped.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	cfg.MetricExporter = telemetry.ExporterPrometheus
//	cfg.PrometheusTextfile = "/var/lib/node_exporter/labstubs.prom"
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(context.Background())
//
// # Environment Variables
//
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none (default: none)
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none (default: none)
//   - LABSTUBS_ENV: environment name (default: development)
package telemetry
