package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func pricesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prices <name>...",
		Short: "Look up the cheapest offer for each product",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			quotes, err := newPrices(cfg).LookupBatch(cmd.Context(), args)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPRICE\tLINK")
			for _, name := range args {
				q := quotes[name]
				if !q.Available() {
					fmt.Fprintf(tw, "%s\t-\t-\n", name)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s%.2f\t%s\n", name, q.Currency, q.Price, q.Link)
			}
			return tw.Flush()
		},
	}
}
