// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/interviewd/internal/app/bootstrap"
	"github.com/ManuGH/interviewd/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the interviewd API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts.configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	c, err := bootstrap.WireServices(ctx, bootstrap.Options{
		Version:    version.Version,
		ConfigPath: configPath,
	})
	if err != nil {
		return err
	}
	c.Logger.Info().
		Str("event", "server.starting").
		Str("addr", c.Config.ListenAddr).
		Str("version", version.Version).
		Msg("interviewd starting")
	return c.Run(ctx)
}
