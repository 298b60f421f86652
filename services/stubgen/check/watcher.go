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
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/LabStubs/services/stubgen/project"
)

// PairHandler is called with the pairs whose implementation changed,
// in configuration order.
type PairHandler func(ctx context.Context, pairs []StubPair)

// WatcherOptions configures the Watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait for more changes before triggering.
	// Default: 300ms
	DebounceWindow time.Duration

	// BufferSize is the size of the change buffer channel.
	// Default: 256
	BufferSize int

	// Logger receives watch errors. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultWatcherOptions returns the default watcher options.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceWindow: 300 * time.Millisecond,
		BufferSize:     256,
		Logger:         slog.Default(),
	}
}

// Watcher re-runs a handler when configured implementation files change.
//
// Description:
//
//	Each lab directory is watched non-recursively. Events for files that
//	are not a configured implementation, including stubs and scratch
//	files, are ignored. Changes are batched over the debounce window and
//	deduplicated per pair.
//
// Thread Safety: Safe for concurrent use. The handler is called from a
// single goroutine, one batch at a time.
type Watcher struct {
	watcher  *fsnotify.Watcher
	handler  PairHandler
	debounce time.Duration
	logger   *slog.Logger

	// pairs maps a cleaned implementation path to its pair index.
	pairs map[string]int
	order []StubPair
	dirs  []string

	changes  chan int
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// NewWatcher creates a watcher for the stub pairs of labs.
//
// Inputs:
//
//	root - Repository root
//	labs - Labs whose implementations are watched
//	handler - Called with changed pairs after debounce
//	opts - Optional configuration (nil uses defaults)
//
// Outputs:
//
//	*Watcher - Ready-to-use watcher (call Start, then Stop)
//	error - Non-nil if the watcher could not be created
func NewWatcher(root string, labs []project.Lab, handler PairHandler, opts *WatcherOptions) (*Watcher, error) {
	defaults := DefaultWatcherOptions()
	if opts == nil {
		opts = &defaults
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = defaults.DebounceWindow
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaults.BufferSize
	}
	if opts.Logger == nil {
		opts.Logger = defaults.Logger
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		handler:  handler,
		debounce: opts.DebounceWindow,
		logger:   opts.Logger,
		pairs:    make(map[string]int),
		changes:  make(chan int, opts.BufferSize),
		done:     make(chan struct{}),
	}
	for _, lab := range labs {
		for _, pair := range PairsFor(root, lab) {
			w.pairs[filepath.Clean(pair.Implementation)] = len(w.order)
			w.order = append(w.order, pair)

			dir := filepath.Dir(pair.Implementation)
			if !slices.Contains(w.dirs, dir) {
				w.dirs = append(w.dirs, dir)
			}
		}
	}
	return w, nil
}

// Pairs returns the watched pairs in configuration order.
func (w *Watcher) Pairs() []StubPair {
	return slices.Clone(w.order)
}

// Start begins watching. It returns once the lab directories are registered.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.Stop()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching returns true if the watcher is currently active.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// pairIndex maps an event path to a pair index.
func (w *Watcher) pairIndex(name string) (int, bool) {
	idx, ok := w.pairs[filepath.Clean(name)]
	return idx, ok
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			idx, tracked := w.pairIndex(event.Name)
			if !tracked {
				continue
			}

			select {
			case w.changes <- idx:
			default:
				w.logger.Warn("Change buffer full, dropping event", slog.String("file", event.Name))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	batch := make(map[int]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 && w.handler != nil {
			idxs := make([]int, 0, len(batch))
			for idx := range batch {
				idxs = append(idxs, idx)
			}
			slices.Sort(idxs)

			pairs := make([]StubPair, 0, len(idxs))
			for _, idx := range idxs {
				pairs = append(pairs, w.order[idx])
			}
			w.handler(ctx, pairs)
		}
		clear(batch)
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case idx := <-w.changes:
			batch[idx] = struct{}{}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			flush()
		}
	}
}
