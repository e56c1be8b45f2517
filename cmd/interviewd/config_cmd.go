// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/interviewd/internal/validate"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	var printCfg bool
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				var verr validate.ValidationError
				if errors.As(err, &verr) {
					for _, e := range verr.Errors() {
						fmt.Fprintf(cmd.ErrOrStderr(), "  - %s: %s\n", e.Field, e.Message)
					}
				}
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "configuration OK")
			if printCfg {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(cfg.Redacted()); err != nil {
					return err
				}
				return enc.Close()
			}
			return nil
		},
	}
	validateCmd.Flags().BoolVar(&printCfg, "print", false, "print the effective configuration with secrets masked")

	cmd.AddCommand(validateCmd)
	return cmd
}
