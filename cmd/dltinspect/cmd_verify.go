package main

import (
	"github.com/spf13/cobra"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/contract"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/history"
)

func newVerifyCmd(flags *globalFlags) *cobra.Command {
	var noRecord bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the storage layout, event log and gold tables against their expected contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			lister, err := a.lister()
			if err != nil {
				return err
			}
			wh, err := a.warehouse()
			if err != nil {
				return err
			}
			defer closeWith(a.logger, "warehouse", wh)

			store, err := history.Open(a.cfg.History.Path)
			if err != nil {
				return err
			}
			defer closeWith(a.logger, "history", store)

			v := &contract.Verifier{
				Lister:   lister,
				Querier:  wh,
				Baseline: store,
				Logger:   a.logger,
			}
			report, snap, err := v.Verify(ctx, contract.Target{
				Root:       a.cfg.Storage.Root,
				Database:   a.cfg.Pipeline.Database,
				GoldTables: a.cfg.Pipeline.QualifiedTables(),
			})
			if err != nil {
				return err
			}

			if err := a.printer.Report(report); err != nil {
				return err
			}

			if !noRecord {
				if err := store.Record(ctx, snap); err != nil {
					return err
				}
				a.logger.Info("snapshot recorded", "run_id", snap.RunID, "events", snap.EventCount)
			}

			if report.Blocking() {
				return errContractBlocked
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not record this run in the history store")
	return cmd
}
