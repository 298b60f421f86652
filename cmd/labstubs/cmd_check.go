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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/LabStubs/services/stubgen/check"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that every committed stub matches its implementation",
		Long: `Regenerates each configured stub into a scratch file next to it, runs the
formatter and the import sorter on it and compares the result byte for byte
with the committed stub. Exits 1 when any stub differs or is missing.`,
		Example: `  labstubs check --root-dir . --project-config-path project_config.json
  labstubs check --lab lab_1 --personality machine`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			labs, err := a.labs()
			if err != nil {
				return err
			}

			checker := check.NewChecker(a.settings.RootDir, a.project.RuleSet(), a.checkOptions()...)
			report := checker.CheckAll(cmd.Context(), labs)
			printReport(a.printer, report)

			if !report.OverallOK {
				return &exitError{code: ExitFailure, err: errStubsOutdated}
			}
			return nil
		},
	}
}
