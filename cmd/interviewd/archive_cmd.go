// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/interviewd/internal/persistence/sqlite"
)

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Maintain the session archive",
	}

	var mode string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check the sqlite archive for corruption",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vm, err := sqlite.ParseVerifyMode(mode)
			if err != nil {
				return err
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Archive.Backend != "sqlite" {
				return fmt.Errorf("archive verify supports the sqlite backend only, configured: %s", cfg.Archive.Backend)
			}

			problems, err := sqlite.VerifyIntegrity(cmd.Context(), cfg.Archive.Path, vm)
			if err != nil {
				return err
			}
			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintln(cmd.ErrOrStderr(), "  -", p)
				}
				return fmt.Errorf("archive %s failed %s check", cfg.Archive.Path, vm)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archive %s OK (%s)\n", cfg.Archive.Path, vm)
			return nil
		},
	}
	verify.Flags().StringVar(&mode, "mode", "quick", "verification mode: quick or full")

	cmd.AddCommand(verify)
	return cmd
}
