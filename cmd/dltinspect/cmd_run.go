package main

import (
	"github.com/spf13/cobra"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/inspect"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/source"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "List the storage location, read the event log and query the gold tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}

			steps, err := inspect.Plan(a.cfg.Storage.Root, a.cfg.Pipeline.QualifiedTables())
			if err != nil {
				return err
			}

			lister, err := a.lister()
			if err != nil {
				return err
			}

			// Without a warehouse the listing steps still run; the first
			// query step reports the missing DSN.
			var querier source.Querier
			if a.cfg.Warehouse.DSN != "" {
				wh, err := a.warehouse()
				if err != nil {
					return err
				}
				defer closeWith(a.logger, "warehouse", wh)
				querier = wh
			} else {
				a.logger.Warn("no warehouse dsn configured; queries will fail")
			}

			return inspect.New(lister, querier, a.printer, a.logger).Run(cmd.Context(), steps)
		},
	}
}
