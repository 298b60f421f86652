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
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/LabStubs/pkg/ux"
	"github.com/AleutianAI/LabStubs/services/stubgen/check"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		write    bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-check stubs whenever an implementation file changes",
		Long: `Watches the lab directories and re-checks the stub of every implementation
file that changes. With --write the stub is regenerated instead. Stops on
interrupt.`,
		Example: `  labstubs watch
  labstubs watch --write --lab lab_1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			labs, err := a.labs()
			if err != nil {
				return err
			}

			root := a.settings.RootDir
			rs := a.project.RuleSet()
			opts := a.checkOptions()
			checker := check.NewChecker(root, rs, opts...)
			writer := check.NewWriter(root, rs, opts...)
			p := a.printer

			handler := func(ctx context.Context, pairs []check.StubPair) {
				for _, pair := range pairs {
					if !write {
						printResult(p, checker.CheckPair(ctx, pair))
						continue
					}
					if err := writer.Write(ctx, pair); err != nil {
						p.Status(ux.IconError, err.Error())
						continue
					}
					p.Status(ux.IconSuccess, fmt.Sprintf("wrote %s", stubRel(pair)))
				}
			}

			w, err := check.NewWatcher(root, labs, handler, &check.WatcherOptions{
				DebounceWindow: debounce,
				Logger:         a.logger,
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()

			p.Status(ux.IconPending, fmt.Sprintf("Watching %d files, press Ctrl+C to stop", len(w.Pairs())))
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "regenerate stubs instead of checking them")
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "wait this long for more changes before acting")
	return cmd
}
