package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fairyhunter13/pantry-inventory-service/internal/model"
	"github.com/spf13/cobra"
)

func snapshotCmd(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Take one inventory snapshot and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "table" {
				return fmt.Errorf("unknown format %q (want json or table)", format)
			}
			cfg, err := g.load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.SnapshotTimeout)
			defer cancel()
			d, err := build(ctx, cfg)
			if err != nil {
				return err
			}
			inv, err := d.reconciler.Snapshot(ctx)
			if err != nil {
				return err
			}
			if format == "table" {
				return writeInventoryTable(cmd.OutOrStdout(), inv)
			}
			return writeIndented(cmd.OutOrStdout(), inv.View())
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (json, table)")
	return cmd
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeInventoryTable(w io.Writer, inv model.Inventory) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tAMOUNT\tCONSTRAINT\tDEMAND\tPRICE\tTOTAL\tLINK")
	for _, r := range inv.Records {
		price, total := "-", "-"
		if r.Link != "" {
			price = fmt.Sprintf("%s%.2f", r.Currency, r.Price)
			total = fmt.Sprintf("%s%.2f", r.Currency, r.TotalCost())
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			r.Name, r.Amount, r.Constraint, r.Demand(), price, total, r.Link)
	}
	fmt.Fprintf(tw, "\t\t\t%d\t\t%.2f\t\n", inv.TotalDemand(), inv.TotalCost())
	return tw.Flush()
}
