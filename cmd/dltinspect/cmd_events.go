package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderjulianmartinez/dlt-inspect/internal/eventlog"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/eventlog/kafka"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/inspect"
	"github.com/alexanderjulianmartinez/dlt-inspect/internal/storage"
)

type eventsOptions struct {
	files   bool
	summary bool
	forward bool
}

func newEventsCmd(flags *globalFlags) *cobra.Command {
	var opts eventsOptions

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query the pipeline event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvents(cmd, flags, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.files, "files", false, "Also list the event log directory")
	f.BoolVar(&opts.summary, "summary", false, "Print a summary instead of every event")
	f.BoolVar(&opts.forward, "forward", false, "Publish events to the configured Kafka topic")
	return cmd
}

func runEvents(cmd *cobra.Command, flags *globalFlags, opts eventsOptions) error {
	a, err := newApp(cmd, flags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	root := a.cfg.Storage.Root

	var lister storage.Lister
	if opts.files {
		if lister, err = a.lister(); err != nil {
			return err
		}
	}
	wh, err := a.warehouse()
	if err != nil {
		return err
	}
	defer closeWith(a.logger, "warehouse", wh)

	insp := inspect.New(lister, wh, a.printer, a.logger)

	if opts.files {
		listing, err := insp.ListEvents(ctx, root)
		if err != nil {
			return err
		}
		if err := a.printer.Listing("Event log files", listing); err != nil {
			return err
		}
	}

	rs, err := insp.QueryEventLog(ctx, root)
	if err != nil {
		return err
	}

	if !opts.summary && !opts.forward {
		return a.printer.ResultSet("Event log", rs)
	}

	events, err := eventlog.Parse(rs)
	if err != nil {
		return err
	}

	if opts.summary {
		err = a.printer.Summary(eventlog.Summarize(events))
	} else {
		err = a.printer.ResultSet("Event log", rs)
	}
	if err != nil {
		return err
	}

	if !opts.forward {
		return nil
	}
	fwd, err := kafka.New(a.cfg.Kafka, a.logger)
	if err != nil {
		return fmt.Errorf("forward events: %w", err)
	}
	defer closeWith(a.logger, "kafka writer", fwd)

	_, err = fwd.Forward(ctx, events)
	return err
}
