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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// =============================================================================
// TOOL RUNNER
// =============================================================================

// RunResult is the outcome of a successful tool invocation.
type RunResult struct {
	Tool     string
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner executes external tools on files.
//
// Thread Safety: Safe for concurrent use.
type Runner struct {
	workingDir string
	logger     *slog.Logger
}

// Option configures the Runner.
type Option func(*Runner)

// WithWorkingDir sets the working directory for tool execution.
//
// Tools such as isort discover their settings from the working directory,
// so this is normally the repository root.
func WithWorkingDir(dir string) Option {
	return func(r *Runner) {
		r.workingDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a new tool runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether the tool's command can be found.
func (r *Runner) Available(cfg ToolConfig) bool {
	_, err := exec.LookPath(cfg.Command)
	return err == nil
}

// Run invokes one tool on a file.
//
// Description:
//
//	Runs `cfg.Command cfg.Args... filePath`, capturing stdout, stderr and
//	the exit code. The file is expected to be rewritten in place.
//
// Inputs:
//
//	ctx - Context for cancellation; propagated to the child process
//	cfg - The tool to run
//	filePath - The file to normalize, passed as the last argument
//
// Outputs:
//
//	*RunResult - Captured output on success
//	error - *ToolError wrapping ErrToolNotInstalled, ErrToolTimeout or
//	        ErrToolFailed; ctx.Err() when the context was canceled
//
// Thread Safety: Safe for concurrent use on distinct files.
func (r *Runner) Run(ctx context.Context, cfg ToolConfig, filePath string) (*RunResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: ctx must not be nil", ErrInvalidInput)
	}
	if cfg.Command == "" || filePath == "" {
		return nil, fmt.Errorf("%w: command and file path are required", ErrInvalidInput)
	}

	ctx, span := startToolSpan(ctx, cfg.Name, filePath)
	defer span.End()
	start := time.Now()

	if !r.Available(cfg) {
		setToolSpanResult(span, -1, false)
		recordToolMetrics(ctx, cfg.Name, time.Since(start), false)
		return nil, &ToolError{Tool: cfg.Name, ExitCode: -1, Err: ErrToolNotInstalled}
	}

	args := make([]string, 0, len(cfg.Args)+1)
	args = append(args, cfg.Args...)
	args = append(args, filePath)

	cmdCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, cfg.Command, args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	duration := time.Since(start)
	setToolSpanResult(span, exitCode, err == nil)
	recordToolMetrics(ctx, cfg.Name, duration, err == nil)

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, &ToolError{
			Tool: cfg.Name, ExitCode: exitCode,
			Stdout: stdout.String(), Stderr: stderr.String(),
			Err: ErrToolTimeout,
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		toolErr := &ToolError{
			Tool: cfg.Name, ExitCode: exitCode,
			Stdout: stdout.String(), Stderr: stderr.String(),
			Err: ErrToolFailed,
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) && toolErr.Stderr == "" {
			toolErr.Stderr = err.Error()
		}
		return nil, toolErr
	}

	r.logger.Debug("Tool completed",
		slog.String("tool", cfg.Name),
		slog.String("file", filePath),
		slog.Duration("duration", duration),
	)

	return &RunResult{
		Tool:     cfg.Name,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}, nil
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline applies the formatter and then the import sorter to a file.
//
// Both tools are treated as black boxes whose only observable effects are
// the file content afterwards and their exit status. Their idempotence is
// assumed, not enforced.
//
// Thread Safety: Safe for concurrent use on distinct files.
type Pipeline struct {
	runner    *Runner
	formatter ToolConfig
	sorter    ToolConfig
}

// NewPipeline creates a pipeline from explicit tool configs.
func NewPipeline(runner *Runner, formatter, sorter ToolConfig) *Pipeline {
	if runner == nil {
		runner = NewRunner()
	}
	return &Pipeline{
		runner:    runner,
		formatter: formatter.Clone(),
		sorter:    sorter.Clone(),
	}
}

// DefaultPipeline creates a black + isort pipeline.
func DefaultPipeline(opts ...Option) *Pipeline {
	return NewPipeline(NewRunner(opts...), DefaultFormatterConfig, DefaultImportSorterConfig)
}

// Tools returns the configured tools in execution order.
func (p *Pipeline) Tools() []ToolConfig {
	return []ToolConfig{p.formatter.Clone(), p.sorter.Clone()}
}

// Available reports, per tool name, whether its command can be found.
func (p *Pipeline) Available() map[string]bool {
	out := make(map[string]bool, 2)
	for _, t := range p.Tools() {
		out[t.Name] = p.runner.Available(t)
	}
	return out
}

// Format runs the formatter on a file.
func (p *Pipeline) Format(ctx context.Context, filePath string) error {
	_, err := p.runner.Run(ctx, p.formatter, filePath)
	return err
}

// SortImports runs the import sorter on a file.
func (p *Pipeline) SortImports(ctx context.Context, filePath string) error {
	_, err := p.runner.Run(ctx, p.sorter, filePath)
	return err
}

// Normalize formats a file and then sorts its imports.
//
// Outputs:
//
//	error - The first *ToolError; the import sorter does not run when the
//	        formatter fails
func (p *Pipeline) Normalize(ctx context.Context, filePath string) error {
	if err := p.Format(ctx, filePath); err != nil {
		return err
	}
	return p.SortImports(ctx, filePath)
}
