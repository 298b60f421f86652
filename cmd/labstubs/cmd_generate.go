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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/LabStubs/pkg/ux"
	"github.com/AleutianAI/LabStubs/services/stubgen/check"
)

func newGenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Regenerate every configured stub in place",
		Long: `Renders and normalizes each configured stub and replaces the committed
stub file. A file that fails keeps its previous stub; the other files are
still written.`,
		Example: `  labstubs generate
  labstubs generate --lab lab_2 -j 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			labs, err := a.labs()
			if err != nil {
				return err
			}

			a.printer.Heading("Generating stubs")
			writer := check.NewWriter(a.settings.RootDir, a.project.RuleSet(), a.checkOptions()...)
			written, err := writer.WriteAll(cmd.Context(), labs)

			for _, pair := range written {
				a.printer.Status(ux.IconSuccess, fmt.Sprintf("wrote %s", stubRel(pair)))
			}
			if err != nil {
				printErrors(a.printer, err)
				return &exitError{code: ExitFailure, err: fmt.Errorf("%d stubs written, some failed", len(written))}
			}
			a.printer.Status(ux.IconSuccess, fmt.Sprintf("%d stubs written", len(written)))
			return nil
		},
	}
}
