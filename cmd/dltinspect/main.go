// dltinspect inspects the output of a Delta Live Tables pipeline: its
// storage location, its event log and its gold tables.
//
// Usage:
//
//	dltinspect run                       # the full inspection, in order
//	dltinspect ls [path]                 # list a storage path (default: root)
//	dltinspect events [--files] [--summary] [--forward]
//	dltinspect query [table...]          # SELECT * from gold tables
//	dltinspect verify [--no-record]      # contract checks
//	dltinspect history [--limit n]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "dltinspect error: %v\n", err)
		if errors.Is(err, errContractBlocked) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
