// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ManuGH/interviewd/internal/config"
	"github.com/ManuGH/interviewd/internal/version"
)

// configPathEnv names the config file when --config is not given.
const configPathEnv = "INTERVIEWD_CONFIG"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "interviewd",
		Short:         "Voice-driven practice interview sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv(configPathEnv),
		"path to the YAML config file (env "+configPathEnv+")")

	root.AddCommand(
		newServeCmd(opts),
		newVersionCmd(),
		newConfigCmd(opts),
		newHistoryCmd(opts),
		newArchiveCmd(opts),
	)
	return root
}

// load reads and validates the configuration named by the flags.
func (o *rootOptions) load() (config.AppConfig, error) {
	return config.NewLoader(o.configPath).Load()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
