package main

import (
	"github.com/spf13/cobra"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/inspect"
)

func newQueryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "query [table...]",
		Short: "Select every row of the gold tables (default: those in the config)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}

			tables := args
			if len(tables) == 0 {
				tables = a.cfg.Pipeline.QualifiedTables()
			}

			wh, err := a.warehouse()
			if err != nil {
				return err
			}
			defer closeWith(a.logger, "warehouse", wh)

			insp := inspect.New(nil, wh, a.printer, a.logger)
			for _, table := range tables {
				rs, err := insp.QueryGold(cmd.Context(), table)
				if err != nil {
					return err
				}
				if err := a.printer.ResultSet(table, rs); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
