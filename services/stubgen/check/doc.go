// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package check keeps committed stubs in sync with their implementations.
//
// Every configured implementation file X.py of a lab pairs with a committed
// stub X_stub.py in the same directory. The Checker regenerates each stub
// into a scratch file example_X_stub.py, runs the normalizer on it and
// compares the result byte for byte with the committed stub. The scratch
// file is always removed.
//
// # Components
//
//   - Checker: reports Match, ContentMismatch, MissingImplementation,
//     MissingStub or Failed per pair. Per-file errors never abort a run.
//   - Writer: regenerates committed stubs in place.
//   - Watcher: re-runs a handler when implementations change (fsnotify).
//
// # Concurrency
//
// Files are processed by an errgroup bounded by WithWorkers (default 1).
// Each pair has its own scratch path, so files never collide. Results are
// reported in configuration order regardless of completion order.
//
// # Observability
//
// Runs and files are traced with OpenTelemetry spans. The metrics
// stub_check_total and stub_check_duration_seconds are labelled by status.
package check
