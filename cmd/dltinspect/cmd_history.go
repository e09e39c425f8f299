package main

import (
	"github.com/spf13/cobra"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/history"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the counts recorded by previous verify runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}

			store, err := history.Open(a.cfg.History.Path)
			if err != nil {
				return err
			}
			defer closeWith(a.logger, "history", store)

			snaps, err := store.List(cmd.Context(), a.cfg.Storage.Root, limit)
			if err != nil {
				return err
			}
			return a.printer.Snapshots(snaps)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to show (0 for all)")
	return cmd
}
