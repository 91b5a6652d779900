package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/liamcoop/courtextract/patterns"
)

var jurisdictionsCmd = &cobra.Command{
	Use:   "jurisdictions",
	Short: "List configured jurisdictions and their rule counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store := patterns.NewFileStore(patternsDir)

		names, err := store.List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "JURISDICTION\tRULES\tFIELDS")
		for _, name := range names {
			set, err := store.Load(ctx, name)
			if err != nil {
				fmt.Fprintf(w, "%s\tinvalid\t%v\n", name, err)
				continue
			}
			fields := map[string]bool{}
			for _, r := range set.Rules {
				fields[r.Field] = true
			}
			fmt.Fprintf(w, "%s\t%d\t%d\n", name, len(set.Rules), len(fields))
		}
		return w.Flush()
	},
}
