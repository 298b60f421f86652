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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/LabStubs/services/stubgen/project"
)

func TestWatcher_PairIndex(t *testing.T) {
	root := t.TempDir()
	labs := []project.Lab{
		{Name: "lab_1", Stubs: []string{"main.py", "start.py"}},
		{Name: "lab_2", Stubs: []string{"main.py"}},
	}

	w, err := NewWatcher(root, labs, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	require.Len(t, w.Pairs(), 3)

	idx, ok := w.pairIndex(filepath.Join(root, "lab_1", "start.py"))
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	for _, ignored := range []string{"main_stub.py", "example_main_stub.py", "helpers.py"} {
		_, ok := w.pairIndex(filepath.Join(root, "lab_1", ignored))
		assert.False(t, ok, ignored)
	}
}

func TestWatcher_TriggersOnImplementationChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lab_1", "main.py"), addImpl)
	writeFile(t, filepath.Join(root, "lab_1", "start.py"), addImpl)
	labs := []project.Lab{{Name: "lab_1", Stubs: []string{"main.py", "start.py"}}}

	got := make(chan []StubPair, 4)
	w, err := NewWatcher(root, labs, func(_ context.Context, pairs []StubPair) {
		got <- pairs
	}, &WatcherOptions{DebounceWindow: 250 * time.Millisecond, Logger: discardLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()
	assert.True(t, w.IsWatching())

	// Stub writes are not triggers.
	writeFile(t, filepath.Join(root, "lab_1", "main_stub.py"), addStub)
	writeFile(t, filepath.Join(root, "lab_1", "start.py"), addImpl+"\n")
	writeFile(t, filepath.Join(root, "lab_1", "main.py"), addImpl+"\n")

	select {
	case pairs := <-got:
		require.Len(t, pairs, 2)
		assert.Equal(t, "lab_1/main.py", pairs[0].RelPath)
		assert.Equal(t, "lab_1/start.py", pairs[1].RelPath)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}

	w.Stop()
	assert.False(t, w.IsWatching())
}

func TestWatcher_MissingLabDirectory(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), []project.Lab{{Name: "ghost", Stubs: []string{"main.py"}}}, nil, nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
}
