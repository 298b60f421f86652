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
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/LabStubs/services/stubgen/generator"
)

func newRenderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "render <file>",
		Short: "Print the raw stub of one implementation file",
		Long: `Prints the generator output for one file, before the formatter and the
import sorter run. The file is resolved against --root-dir and selects its
per-file rules by that relative path.`,
		Example: `  labstubs render lab_1/main.py`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.settings.RootDir
			target := args[0]
			if !filepath.IsAbs(target) {
				target = filepath.Join(root, target)
			}

			rel, err := filepath.Rel(root, target)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return fmt.Errorf("%s is outside the root directory %s", args[0], root)
			}

			source, err := os.ReadFile(target)
			if err != nil {
				return fmt.Errorf("read implementation: %w", err)
			}

			gen := generator.New(generator.WithLogger(a.logger))
			stub, err := gen.Generate(cmd.Context(), source, filepath.ToSlash(rel), a.project.RuleSet())
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), stub)
			return err
		},
	}
}
