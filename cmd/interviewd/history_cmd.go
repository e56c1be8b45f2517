// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/ManuGH/interviewd/internal/domain/session/store"
)

func openArchive(opts *rootOptions) (store.Archive, error) {
	cfg, err := opts.load()
	if err != nil {
		return nil, err
	}
	return store.OpenArchive(cfg.Archive.Backend, cfg.Archive.Path)
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Read archived sessions",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List archived sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			archive, err := openArchive(opts)
			if err != nil {
				return err
			}
			defer archive.Close()

			items, err := archive.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tOVERALL\tTURNS\tCOMPLETED")
			for _, s := range items {
				fmt.Fprintf(tw, "%s\t%s\t%.1f\t%d\t%s\n", s.ID, s.Kind, s.Overall, s.TurnCount, s.CompletedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of sessions to list (0 = all)")

	var out string
	export := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export one archived session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := openArchive(opts)
			if err != nil {
				return err
			}
			defer archive.Close()

			rec, err := archive.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("session %s: %w", args[0], err)
			}
			data, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := renameio.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %s to %s\n", args[0], out)
			return nil
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "", "output file, written atomically (default stdout)")

	cmd.AddCommand(list, export)
	return cmd
}
