package main

import (
	"github.com/spf13/cobra"
)

func newLsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a storage path; relative paths are resolved against the pipeline root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}

			var path string
			if len(args) == 1 {
				path = args[0]
			}
			path = a.resolve(path)

			lister, err := a.lister()
			if err != nil {
				return err
			}
			listing, err := lister.List(cmd.Context(), path)
			if err != nil {
				return err
			}
			return a.printer.Listing(path, listing)
		},
	}
}
