// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addImpl = "def add(a: int, b: int) -> int:\n    return a + b\n"

const addStub = "def add(a: int, b: int) -> int:\n    raise NotImplementedError\n"

const projectConfig = `{"labs": [{"name": "lab_1", "coverage": 60, "stubs": ["main.py"]}]}`

// fixture is a repository with one lab and a settings file whose
// formatter and import sorter leave files untouched.
type fixture struct {
	root     string
	settings string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lab_1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lab_1", "main.py"), []byte(addImpl), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "project_config.json"), []byte(projectConfig), 0o644))

	settings := filepath.Join(t.TempDir(), "settings.yaml")
	content := fmt.Sprintf(`root_dir: %s
formatter:
  name: format
  command: "true"
  args: []
import_sorter:
  name: sort
  command: "true"
  args: []
`, root)
	require.NoError(t, os.WriteFile(settings, []byte(content), 0o644))

	return fixture{root: root, settings: settings}
}

// run executes the command line against the fixture.
func (f fixture) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{args[0], "--config-path", f.settings}, args[1:]...)
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (f fixture) stub(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.root, "lab_1", "main_stub.py"))
	require.NoError(t, err)
	return string(data)
}

func TestRun_GenerateThenCheck(t *testing.T) {
	f := newFixture(t)

	code, out, errOut := f.run(t, "generate")
	require.Equal(t, ExitOK, code, errOut)
	assert.Contains(t, out, "OK: wrote lab_1/main_stub.py")
	assert.Contains(t, out, "1 stubs written")
	assert.Equal(t, addStub, f.stub(t))

	code, out, errOut = f.run(t, "check")
	require.Equal(t, ExitOK, code, errOut)
	assert.Contains(t, out, "Processing lab_1...")
	assert.Contains(t, out, "OK: lab_1/main.py")
	assert.Contains(t, out, allRelevant)
	assert.NotContains(t, out, "\x1b[", "buffers get machine output")

	entries, err := os.ReadDir(filepath.Join(f.root, "lab_1"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "example_"), "scratch file left behind: %s", e.Name())
	}
}

func TestRun_CheckReportsDrift(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "lab_1", "main_stub.py"), []byte(addStub), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "lab_1", "main.py"),
		[]byte("def add(a: int, b: int, c: int) -> int:\n    return a + b + c\n"), 0o644))

	code, out, errOut := f.run(t, "check")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "FAIL: lab_1/main.py and lab_1/main_stub.py differ")
	assert.Contains(t, out, "first difference at line 1")
	assert.Contains(t, out, "+++ lab_1/main.py (committed)")
	assert.Contains(t, out, "Stubs are not relevant: content_mismatch=1")
	assert.NotContains(t, out, allRelevant)
	assert.NotContains(t, errOut, "Error:", "drift is reported on stdout only")
}

func TestRun_CheckMissingStub(t *testing.T) {
	f := newFixture(t)

	code, out, _ := f.run(t, "check")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "FAIL: lab_1/main_stub.py: stub not found")
	assert.Contains(t, out, "missing_stub=1")
}

func TestRun_ConfigErrors(t *testing.T) {
	t.Run("missing project configuration", func(t *testing.T) {
		f := newFixture(t)
		code, _, errOut := f.run(t, "check", "--project-config-path", filepath.Join(f.root, "absent.json"))
		assert.Equal(t, ExitConfigError, code)
		assert.Contains(t, errOut, "invalid project configuration")
	})

	t.Run("invalid project configuration", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, os.WriteFile(filepath.Join(f.root, "project_config.json"),
			[]byte(`{"labs": [{"name": ""}]}`), 0o644))
		code, _, _ := f.run(t, "check")
		assert.Equal(t, ExitConfigError, code)
	})

	t.Run("unknown lab", func(t *testing.T) {
		f := newFixture(t)
		code, _, errOut := f.run(t, "check", "--lab", "lab_9")
		assert.Equal(t, ExitConfigError, code)
		assert.Contains(t, errOut, `unknown lab "lab_9"`)
	})

	t.Run("invalid settings", func(t *testing.T) {
		f := newFixture(t)
		code, _, _ := f.run(t, "check", "--workers", "0")
		assert.Equal(t, ExitConfigError, code)
	})
}

func TestRun_GenerateKeepsStubOnFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "lab_1", "main_stub.py"), []byte(addStub), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "lab_1", "main.py"), []byte("def broken(:\n"), 0o644))

	code, out, _ := f.run(t, "generate")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "FAIL: lab_1/main.py")
	assert.Equal(t, addStub, f.stub(t))
}

func TestRun_Render(t *testing.T) {
	f := newFixture(t)

	code, out, errOut := f.run(t, "render", "lab_1/main.py")
	require.Equal(t, ExitOK, code, errOut)
	assert.Equal(t, addStub, out)

	code, _, errOut = f.run(t, "render", "../elsewhere.py")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, errOut, "outside the root directory")
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRun_WatchChecksChangedFiles(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.root, "lab_1", "main_stub.py"), []byte(addStub), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr syncBuffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"watch", "--config-path", f.settings, "--debounce", "50ms"}, &stdout, &stderr)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "Watching 1 files")
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(f.root, "lab_1", "main.py"), []byte(addImpl), 0o644))

	assert.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "OK: lab_1/main.py")
	}, 5*time.Second, 20*time.Millisecond, stdout.String())

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, ExitOK, code, stderr.String())
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, exitCode(nil))
	assert.Equal(t, ExitFailure, exitCode(errors.New("boom")))
	assert.Equal(t, ExitConfigError, exitCode(configError("bad %s", "settings")))
	assert.Equal(t, ExitFailure, exitCode(fmt.Errorf("wrapped: %w", &exitError{code: ExitFailure, err: errStubsOutdated})))
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd(&app{})

	for _, name := range []string{"check", "generate", "watch", "render"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
		assert.NotEmpty(t, cmd.Short)
		assert.NotEmpty(t, cmd.Example)
	}

	watch, _, err := root.Find([]string{"watch"})
	require.NoError(t, err)
	assert.NotNil(t, watch.Flags().Lookup("write"))
	assert.NotNil(t, watch.Flags().Lookup("debounce"))
}
